package common

import (
	"github.com/google/uuid"
)

// NewFallbackJobID generates a synthetic job ID for listings whose URL
// carries no recognizable numeric ID. Format: unknown_<uuid>
func NewFallbackJobID() string {
	return "unknown_" + uuid.New().String()
}
