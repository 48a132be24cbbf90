package chunking

import (
	"fmt"
	"log/slog"

	"github.com/sevigo/semchunk/classify"
	"github.com/sevigo/semchunk/config"
	"github.com/sevigo/semchunk/grammar"
	"github.com/sevigo/semchunk/parsers"
	"github.com/sevigo/semchunk/parsers/delimiter"
	"github.com/sevigo/semchunk/parsers/semantic"
)

// NewRegistry wires every tier: grammar descriptors (embedded plus
// cfg.GrammarDir), the classification router, the semantic and delimiter
// chunkers, the format plugins and the custom delimiter definitions.
func NewRegistry(cfg *config.Config, logger *slog.Logger) (*parsers.Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	grammars, err := grammar.NewRegistry(logger, grammar.WithDirectory(cfg.GrammarDir))
	if err != nil {
		return nil, fmt.Errorf("load grammars: %w", err)
	}
	router := classify.NewRouter(grammars, logger)
	registry := parsers.NewRegistry(logger,
		semantic.New(router, grammars, logger),
		delimiter.New(delimiter.NewDefinitions(), logger),
	)
	if err := parsers.RegisterLanguagePlugins(registry, logger); err != nil {
		return nil, err
	}
	if err := registry.RegisterDelimiters(cfg.Delimiters...); err != nil {
		return nil, fmt.Errorf("register delimiters: %w", err)
	}
	return registry, nil
}

// New builds an engine from configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Engine, error) {
	registry, err := NewRegistry(cfg, logger)
	if err != nil {
		return nil, err
	}
	settings := Settings{
		Budget:       cfg.Budget(),
		Chunking:     cfg.ChunkingOptions(),
		MaxFileBytes: cfg.MaxFileBytes,
	}
	return NewEngine(registry, logger, append([]Option{WithSettings(settings)}, opts...)...), nil
}
