package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Search        SearchConfig      `toml:"search"`
	Crawler       CrawlerConfig     `toml:"crawler"`
	Credentials   CredentialsConfig `toml:"credentials"`
	Browser       BrowserConfig     `toml:"browser"`
	LLM           LLMConfig         `toml:"llm"`
	Gemini        GeminiConfig      `toml:"gemini"`
	Claude        ClaudeConfig      `toml:"claude"`
	Analysis      AnalysisConfig    `toml:"analysis"`
	Output        OutputConfig      `toml:"output"`
	Visualization VizConfig         `toml:"visualization"`
	Logging       LoggingConfig     `toml:"logging"`
}

// SearchConfig defines the keyword/location cross-product to crawl
type SearchConfig struct {
	Keywords       []string `toml:"keywords" validate:"min=1"`
	Locations      []string `toml:"locations" validate:"min=1"`
	PagesPerSearch int      `toml:"pages_per_search" validate:"gte=1"`
}

// CrawlerConfig controls browser session behavior and crawl pacing
type CrawlerConfig struct {
	Headless        bool          `toml:"headless"`
	UseProxy        bool          `toml:"use_proxy"`
	ProxyURL        string        `toml:"proxy_url"`
	RandomUserAgent bool          `toml:"random_user_agent"`
	PageLoadTimeout time.Duration `toml:"page_load_timeout"`
	WaitTimeout     time.Duration `toml:"wait_timeout"`     // per-element wait, bounded
	SettleDelayMin  time.Duration `toml:"settle_delay_min"` // randomized page-settle delay range
	SettleDelayMax  time.Duration `toml:"settle_delay_max"`
	PageDelayMin    time.Duration `toml:"page_delay_min"` // inter-page delay range
	PageDelayMax    time.Duration `toml:"page_delay_max"`
	ItemDelayMin    time.Duration `toml:"item_delay_min"` // inter-detail-item delay range
	ItemDelayMax    time.Duration `toml:"item_delay_max"`
	SearchDelayMin  time.Duration `toml:"search_delay_min"` // inter-combination delay range
	SearchDelayMax  time.Duration `toml:"search_delay_max"`
	ScrollPauseTime time.Duration `toml:"scroll_pause_time"`
	MaxScrolls      int           `toml:"max_scrolls"`
	ScrollMin       int           `toml:"scroll_min"` // random scroll distance range, px
	ScrollMax       int           `toml:"scroll_max"`
	SaveScreenshots bool          `toml:"save_screenshots"`
	ScreenshotDir   string        `toml:"screenshot_dir"`
	CookieFile      string        `toml:"cookie_file"`
}

// CredentialsConfig holds optional site login credentials
type CredentialsConfig struct {
	UseCredentials bool   `toml:"use_credentials"`
	Email          string `toml:"email"`
	Password       string `toml:"password"`
}

// BrowserConfig holds Chrome launch options
type BrowserConfig struct {
	WindowWidth       int  `toml:"window_width"`
	WindowHeight      int  `toml:"window_height"`
	DisableImages     bool `toml:"disable_images"`
	DisableJavaScript bool `toml:"disable_javascript"`
	DisableExtensions bool `toml:"disable_extensions"`
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig selects the provider used for summary/skill extraction
type LLMConfig struct {
	Provider LLMProvider `toml:"provider"` // "gemini" (default) or "claude"
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Timeout     string  `toml:"timeout"`    // duration string (default: "2m")
	RateLimit   string  `toml:"rate_limit"` // min interval between calls (default: "4s")
	Temperature float32 `toml:"temperature"`
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"`
	RateLimit   string  `toml:"rate_limit"`
	Temperature float32 `toml:"temperature"`
}

// AnalysisConfig controls frequency analysis and hybrid keyword merging
type AnalysisConfig struct {
	TopN              int      `toml:"top_n" validate:"gte=1"`
	MinWordLength     int      `toml:"min_word_length"`
	RemoveNumbers     bool     `toml:"remove_numbers"`
	CustomStopWords   []string `toml:"custom_stop_words"`
	TechKeywordsFile  string   `toml:"tech_keywords_file"`
	LLMWeight         float64  `toml:"llm_weight" validate:"gte=0"`
	TraditionalWeight float64  `toml:"traditional_weight" validate:"gte=0"`
	MinFrequency      int      `toml:"min_frequency"`
}

// OutputConfig defines where run artifacts are written
type OutputConfig struct {
	RawDir       string `toml:"raw_dir"`
	ProcessedDir string `toml:"processed_dir"`
	KeywordsDir  string `toml:"keywords_dir"`
	ChartsDir    string `toml:"charts_dir"`
	Prefix       string `toml:"prefix"` // file name prefix; timestamped when empty
}

// VizConfig controls chart rendering
type VizConfig struct {
	Wordcloud bool `toml:"wordcloud"`
	BarChart  bool `toml:"bar_chart"`
	MaxWords  int  `toml:"max_words"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig creates a configuration with default values.
// Pacing defaults are tuned for the target site's rate tolerance.
func NewDefaultConfig() *Config {
	return &Config{
		Search: SearchConfig{
			Keywords:       []string{"Data Engineer"},
			Locations:      []string{"United States"},
			PagesPerSearch: 3,
		},
		Crawler: CrawlerConfig{
			Headless:        false,
			UseProxy:        false,
			RandomUserAgent: true,
			PageLoadTimeout: 30 * time.Second,
			WaitTimeout:     10 * time.Second,
			SettleDelayMin:  3 * time.Second,
			SettleDelayMax:  5 * time.Second,
			PageDelayMin:    5 * time.Second,
			PageDelayMax:    8 * time.Second,
			ItemDelayMin:    4 * time.Second,
			ItemDelayMax:    7 * time.Second,
			SearchDelayMin:  10 * time.Second,
			SearchDelayMax:  15 * time.Second,
			ScrollPauseTime: 1500 * time.Millisecond,
			MaxScrolls:      5,
			ScrollMin:       100,
			ScrollMax:       300,
			SaveScreenshots: false,
			ScreenshotDir:   "./logs/screenshots",
			CookieFile:      "./linkedin_cookies.json",
		},
		Credentials: CredentialsConfig{
			UseCredentials: false,
		},
		Browser: BrowserConfig{
			WindowWidth:       1920,
			WindowHeight:      1080,
			DisableImages:     false,
			DisableJavaScript: false,
			DisableExtensions: true,
		},
		LLM: LLMConfig{
			Provider: LLMProviderGemini,
		},
		Gemini: GeminiConfig{
			APIKey:      "",
			Model:       "gemini-2.0-flash",
			Timeout:     "2m",
			RateLimit:   "4s", // free-tier 15 RPM
			Temperature: 0.2,
		},
		Claude: ClaudeConfig{
			APIKey:      "",
			Model:       "claude-3-5-haiku-20241022",
			MaxTokens:   2048,
			Timeout:     "2m",
			RateLimit:   "1s",
			Temperature: 0.2,
		},
		Analysis: AnalysisConfig{
			TopN:              100,
			MinWordLength:     2,
			RemoveNumbers:     false,
			LLMWeight:         0.7,
			TraditionalWeight: 0.3,
			MinFrequency:      2,
		},
		Output: OutputConfig{
			RawDir:       "./data/raw",
			ProcessedDir: "./data/processed",
			KeywordsDir:  "./output/excel",
			ChartsDir:    "./output/visualizations",
		},
		Visualization: VizConfig{
			Wordcloud: true,
			BarChart:  true,
			MaxWords:  100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2
// -> ... -> env. Later files override earlier files; CLI flag overrides are
// applied separately by the caller (highest priority).
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks config invariants after all override layers are applied
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Crawler.SettleDelayMax < c.Crawler.SettleDelayMin {
		return fmt.Errorf("crawler.settle_delay_max must be >= settle_delay_min")
	}
	if c.Crawler.ScrollMax < c.Crawler.ScrollMin {
		return fmt.Errorf("crawler.scroll_max must be >= scroll_min")
	}
	if c.Credentials.UseCredentials && (c.Credentials.Email == "" || c.Credentials.Password == "") {
		return fmt.Errorf("credentials.use_credentials requires both email and password")
	}
	switch c.LLM.Provider {
	case LLMProviderGemini, LLMProviderClaude:
	default:
		return fmt.Errorf("llm.provider must be %q or %q, got %q", LLMProviderGemini, LLMProviderClaude, c.LLM.Provider)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if keywords := os.Getenv("PETO_SEARCH_KEYWORDS"); keywords != "" {
		config.Search.Keywords = splitCSV(keywords)
	}
	if locations := os.Getenv("PETO_SEARCH_LOCATIONS"); locations != "" {
		config.Search.Locations = splitCSV(locations)
	}
	if pages := os.Getenv("PETO_SEARCH_PAGES"); pages != "" {
		if p, err := strconv.Atoi(pages); err == nil {
			config.Search.PagesPerSearch = p
		}
	}

	if headless := os.Getenv("PETO_CRAWLER_HEADLESS"); headless != "" {
		if h, err := strconv.ParseBool(headless); err == nil {
			config.Crawler.Headless = h
		}
	}
	if timeout := os.Getenv("PETO_CRAWLER_PAGE_LOAD_TIMEOUT"); timeout != "" {
		if t, err := time.ParseDuration(timeout); err == nil {
			config.Crawler.PageLoadTimeout = t
		}
	}
	if cookieFile := os.Getenv("PETO_CRAWLER_COOKIE_FILE"); cookieFile != "" {
		config.Crawler.CookieFile = cookieFile
	}
	if screenshots := os.Getenv("PETO_CRAWLER_SAVE_SCREENSHOTS"); screenshots != "" {
		if s, err := strconv.ParseBool(screenshots); err == nil {
			config.Crawler.SaveScreenshots = s
		}
	}

	if email := os.Getenv("PETO_CREDENTIALS_EMAIL"); email != "" {
		config.Credentials.Email = email
		config.Credentials.UseCredentials = true
	}
	if password := os.Getenv("PETO_CREDENTIALS_PASSWORD"); password != "" {
		config.Credentials.Password = password
	}

	if provider := os.Getenv("PETO_LLM_PROVIDER"); provider != "" {
		config.LLM.Provider = LLMProvider(provider)
	}
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}

	if level := os.Getenv("PETO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("PETO_LOG_OUTPUT"); output != "" {
		if outputs := splitCSV(output); len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// ApplyFlagOverrides applies command-line flag values (highest priority).
// Zero values mean the flag was not set.
func ApplyFlagOverrides(config *Config, keywords, locations string, pages int, headless bool) {
	if keywords != "" {
		config.Search.Keywords = splitCSV(keywords)
	}
	if locations != "" {
		config.Search.Locations = splitCSV(locations)
	}
	if pages > 0 {
		config.Search.PagesPerSearch = pages
	}
	if headless {
		config.Crawler.Headless = true
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
