// Package semantic chunks source files along syntax tree boundaries chosen
// by the classification router. Oversized units degrade through
// children-split, line-split and raw-split.
package semantic

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/sevigo/semchunk/classify"
	"github.com/sevigo/semchunk/governor"
	"github.com/sevigo/semchunk/grammar"
	"github.com/sevigo/semchunk/schema"
	"github.com/sevigo/semchunk/textsplitter"
)

var (
	// ErrParse is returned when the file cannot be turned into a usable tree.
	ErrParse = errors.New("source could not be parsed")
	// ErrUnsupportedLanguage is returned for languages without a parser.
	ErrUnsupportedLanguage = errors.New("no syntax parser for language")
)

const (
	defaultMinConfidence = 0.3
	// maxErrorShare is the share of bytes under ERROR nodes above which a
	// tree is rejected.
	maxErrorShare = 0.5
	// wrapperDepth bounds how far children-split looks through non-boundary
	// wrappers such as class bodies.
	wrapperDepth = 3
)

// Chunker is the semantic tier. It is safe for concurrent use; every call
// gets its own parser.
type Chunker struct {
	router        *classify.Router
	grammars      *grammar.Registry
	logger        *slog.Logger
	boundaryTier  schema.Tier
	minConfidence float64

	mu        sync.RWMutex
	languages map[string]func() *sitter.Language
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithBoundaryTier sets the least important tier that still becomes a chunk.
func WithBoundaryTier(tier schema.Tier) Option {
	return func(c *Chunker) {
		if tier >= schema.TierCritical && tier <= schema.TierSyntax {
			c.boundaryTier = tier
		}
	}
}

// WithMinConfidence sets the confidence a classification needs to become a
// boundary.
func WithMinConfidence(confidence float64) Option {
	return func(c *Chunker) {
		if confidence >= 0 && confidence <= 1 {
			c.minConfidence = confidence
		}
	}
}

// WithLanguage registers an additional tree-sitter grammar.
func WithLanguage(name string, language func() *sitter.Language) Option {
	return func(c *Chunker) {
		c.languages[normalizeLanguage(name)] = language
	}
}

func New(router *classify.Router, grammars *grammar.Registry, logger *slog.Logger, opts ...Option) *Chunker {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Chunker{
		router:        router,
		grammars:      grammars,
		logger:        logger.With("component", "semantic_chunker"),
		boundaryTier:  schema.TierHigh,
		minConfidence: defaultMinConfidence,
		languages:     make(map[string]func() *sitter.Language, len(builtinLanguages)),
	}
	for name, lang := range builtinLanguages {
		c.languages[name] = lang
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HasParser reports whether a tree-sitter grammar is registered.
func (c *Chunker) HasParser(language string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.languages[normalizeLanguage(language)]
	return ok
}

// Supports reports whether the language has both a parser and a grammar
// descriptor.
func (c *Chunker) Supports(language string) bool {
	return c.HasParser(language) && c.grammars != nil && c.grammars.Has(normalizeLanguage(language))
}

// Chunk parses the request and emits one chunk per boundary node. When the
// chunk limit is hit the chunks gathered so far are returned together with
// the limit error. Depth and time breaches return no chunks.
func (c *Chunker) Chunk(gov *governor.Governor, req schema.ChunkRequest) ([]schema.CodeChunk, error) {
	language := normalizeLanguage(req.Language)
	c.mu.RLock()
	newLanguage, ok := c.languages[language]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, req.Language)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(newLanguage())

	src := []byte(req.Content)
	tree, err := parser.ParseCtx(gov.Context(), nil, src)
	if err != nil {
		if terr := gov.CheckTime(); terr != nil {
			return nil, terr
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrParse, req.Path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("%w: %s: empty tree", ErrParse, req.Path)
	}
	if root.HasError() && len(src) > 0 {
		if share := float64(errorBytes(root)) / float64(len(src)); share > maxErrorShare {
			return nil, fmt.Errorf("%w: %s: %.0f%% of the file is unparseable", ErrParse, req.Path, share*100)
		}
	}

	w := newWalker(c, gov, req, language)
	walkErr := w.visit(root, 0, 0)
	if walkErr == nil {
		if len(w.chunks) == 0 {
			walkErr = w.emitWholeFile()
		} else {
			walkErr = w.emitTopLevelGaps()
		}
	}

	var limitErr *governor.ChunkLimitExceededError
	switch {
	case walkErr == nil:
	case errors.As(walkErr, &limitErr):
		c.logger.Warn("Chunk limit reached, keeping first chunks",
			"path", req.Path, "kept", len(w.chunks), "limit", limitErr.Limit)
		return w.chunks, walkErr
	default:
		return nil, walkErr
	}

	c.logger.Debug("Semantic chunking finished",
		"path", req.Path, "language", language, "chunks", len(w.chunks), "max_depth", gov.MaxDepthSeen())
	return w.chunks, nil
}

func errorBytes(node *sitter.Node) int {
	if node.Type() == "ERROR" {
		return int(node.EndByte() - node.StartByte())
	}
	if !node.HasError() {
		return 0
	}
	total := 0
	for i := 0; i < int(node.ChildCount()); i++ {
		total += errorBytes(node.Child(i))
	}
	return total
}

func limits(req schema.ChunkRequest) textsplitter.Parameters {
	return textsplitter.Recommend(req.Path, len(req.Content), textsplitter.Parameters{
		MaxChunkChars:    req.Options.MaxChunkChars,
		MinChunkChars:    req.Options.MinChunkChars,
		MaxLinesPerChunk: req.Options.MaxLinesPerChunk,
	})
}
