package models

// KeywordScore is a single scored keyword produced by the analysis stage.
type KeywordScore struct {
	Keyword   string  `json:"keyword"`
	Frequency int     `json:"frequency"`
	Score     float64 `json:"score"`
	// Sources lists which analyzers contributed the keyword
	// ("traditional", "llm", or both).
	Sources []string `json:"sources,omitempty"`
}

// KeywordReport bundles the three keyword views plus run metadata for the
// exporter and the chart renderer.
type KeywordReport struct {
	Hybrid      []KeywordScore    `json:"hybrid"`
	LLM         []KeywordScore    `json:"llm"`
	Traditional []KeywordScore    `json:"traditional"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}
