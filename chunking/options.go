package chunking

import (
	"github.com/sevigo/semchunk/dedup"
	"github.com/sevigo/semchunk/governor"
	"github.com/sevigo/semchunk/schema"
)

// Settings are the per-file limits of an Engine.
type Settings struct {
	Budget governor.Budget `json:"budget"`
	// Chunking holds size overrides; zero fields use the per-language
	// recommendation.
	Chunking schema.CodeChunkingOptions `json:"chunking"`
	// MaxFileBytes skips larger files. Zero disables the check.
	MaxFileBytes int64 `json:"max_file_bytes,omitempty"`
}

// TooLarge reports whether a file of size bytes is over the limit.
func (s Settings) TooLarge(size int64) bool {
	return s.MaxFileBytes > 0 && size > s.MaxFileBytes
}

// DefaultSettings returns the default budget with recommended chunk sizes.
func DefaultSettings() Settings {
	return Settings{Budget: governor.DefaultBudget(), MaxFileBytes: 4 << 20}
}

// Option configures an Engine.
type Option func(*Engine)

// WithSettings replaces all limits at once.
func WithSettings(s Settings) Option {
	return func(e *Engine) {
		e.settings = s
	}
}

// WithBudget sets the per-file resource budget.
func WithBudget(b governor.Budget) Option {
	return func(e *Engine) {
		e.settings.Budget = b
	}
}

// WithMaxChunkChars sets the largest chunk in bytes.
func WithMaxChunkChars(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.settings.Chunking.MaxChunkChars = n
		}
	}
}

// WithMaxLinesPerChunk sets the line window used by line-split.
func WithMaxLinesPerChunk(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.settings.Chunking.MaxLinesPerChunk = n
		}
	}
}

// WithMaxFileBytes skips files larger than n bytes.
func WithMaxFileBytes(n int64) Option {
	return func(e *Engine) {
		e.settings.MaxFileBytes = n
	}
}

// WithStore makes the engine deduplicate against an existing store.
func WithStore(store *dedup.Store) Option {
	return func(e *Engine) {
		if store != nil {
			e.store = store
		}
	}
}
