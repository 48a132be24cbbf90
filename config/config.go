// Package config loads the engine settings from YAML with SEMCHUNK_*
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/sevigo/semchunk/governor"
	"github.com/sevigo/semchunk/parsers/delimiter"
	"github.com/sevigo/semchunk/schema"
)

// ErrInvalidConfig wraps every load and validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

const envPrefix = "SEMCHUNK_"

const (
	ExecutorThread  = "thread"
	ExecutorProcess = "process"
)

const (
	DefaultParallelThreshold = 4
	DefaultMaxFileBytes      = 4 << 20
)

type Config struct {
	Workers           int           `yaml:"workers" validate:"gte=0,lte=512"`
	Executor          string        `yaml:"executor" validate:"oneof=thread process"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxDepth          int           `yaml:"max_depth"`
	MaxChunks         int           `yaml:"max_chunks"`
	ParallelThreshold int           `yaml:"parallel_threshold" validate:"gte=0"`

	MaxChunkChars    int   `yaml:"max_chunk_chars" validate:"gte=0,lte=64000"`
	MinChunkChars    int   `yaml:"min_chunk_chars" validate:"gte=0"`
	MaxLinesPerChunk int   `yaml:"max_lines_per_chunk" validate:"gte=0"`
	MaxFileBytes     int64 `yaml:"max_file_bytes" validate:"gte=0"`

	GrammarDir    string                 `yaml:"grammar_dir"`
	WorkerCommand []string               `yaml:"worker_command"`
	Delimiters    []delimiter.Definition `yaml:"delimiters" validate:"dive"`
	LogLevel      string                 `yaml:"log_level" validate:"oneof=debug info warn error"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Workers:           runtime.NumCPU(),
		Executor:          ExecutorThread,
		Timeout:           governor.DefaultTimeout,
		MaxDepth:          governor.DefaultMaxDepth,
		MaxChunks:         governor.DefaultMaxChunks,
		ParallelThreshold: DefaultParallelThreshold,
		MaxFileBytes:      DefaultMaxFileBytes,
		LogLevel:          "info",
	}
}

// Load reads path (if not empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", ErrInvalidConfig, path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parse %s: %w", ErrInvalidConfig, path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	ints := map[string]*int{
		"WORKERS":             &c.Workers,
		"MAX_DEPTH":           &c.MaxDepth,
		"MAX_CHUNKS":          &c.MaxChunks,
		"PARALLEL_THRESHOLD":  &c.ParallelThreshold,
		"MAX_CHUNK_CHARS":     &c.MaxChunkChars,
		"MIN_CHUNK_CHARS":     &c.MinChunkChars,
		"MAX_LINES_PER_CHUNK": &c.MaxLinesPerChunk,
	}
	for name, field := range ints {
		v, ok := lookup(envPrefix + name)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s: %w", ErrInvalidConfig, envPrefix, name, err)
		}
		*field = n
	}

	if v, ok := lookup(envPrefix + "MAX_FILE_BYTES"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %sMAX_FILE_BYTES: %w", ErrInvalidConfig, envPrefix, err)
		}
		c.MaxFileBytes = n
	}
	if v, ok := lookup(envPrefix + "TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %sTIMEOUT: %w", ErrInvalidConfig, envPrefix, err)
		}
		c.Timeout = d
	}
	if v, ok := lookup(envPrefix + "EXECUTOR"); ok && v != "" {
		c.Executor = strings.ToLower(v)
	}
	if v, ok := lookup(envPrefix + "GRAMMAR_DIR"); ok && v != "" {
		c.GrammarDir = v
	}
	if v, ok := lookup(envPrefix + "LOG_LEVEL"); ok && v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v, ok := lookup(envPrefix + "WORKER_COMMAND"); ok && v != "" {
		c.WorkerCommand = strings.Fields(v)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(validateDefinition, delimiter.Definition{})
	return v
}

// validateDefinition rejects delimiter patterns that are missing or do not
// compile. Only statement families may omit the pattern.
func validateDefinition(sl validator.StructLevel) {
	def := sl.Current().Interface().(delimiter.Definition)
	if def.Pattern == "" && def.Family != delimiter.FamilyStatement {
		sl.ReportError(def.Pattern, "Pattern", "pattern", "required", "")
		return
	}
	if _, err := regexp.Compile(def.Pattern); err != nil {
		sl.ReportError(def.Pattern, "Pattern", "pattern", "regexp", "")
	}
}

// Validate checks field ranges and cross-field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.MaxChunkChars > 0 && c.MinChunkChars > c.MaxChunkChars {
		return fmt.Errorf("%w: min_chunk_chars %d exceeds max_chunk_chars %d", ErrInvalidConfig, c.MinChunkChars, c.MaxChunkChars)
	}
	return nil
}

// Budget returns the per-file resource budget.
func (c *Config) Budget() governor.Budget {
	return governor.Budget{Timeout: c.Timeout, MaxDepth: c.MaxDepth, MaxChunks: c.MaxChunks}
}

// ChunkingOptions returns the size overrides. Zero fields mean the
// per-language recommendation applies.
func (c *Config) ChunkingOptions() schema.CodeChunkingOptions {
	return schema.CodeChunkingOptions{
		MaxChunkChars:    c.MaxChunkChars,
		MinChunkChars:    c.MinChunkChars,
		MaxLinesPerChunk: c.MaxLinesPerChunk,
	}
}

// Level maps LogLevel to a slog level.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
