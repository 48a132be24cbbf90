// Package chunking turns one source file into deduplicated chunks. It
// screens special cases, walks the tier chain chosen by the registry and
// recovers from budget breaches at the file boundary.
package chunking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sevigo/semchunk/dedup"
	"github.com/sevigo/semchunk/governor"
	"github.com/sevigo/semchunk/parsers"
	"github.com/sevigo/semchunk/schema"
	"github.com/sevigo/semchunk/textsplitter"
)

var (
	// ErrBinaryContent is returned for files that look binary.
	ErrBinaryContent = errors.New("binary content")
	// ErrFileTooLarge is returned for files above the configured size.
	ErrFileTooLarge = errors.New("file too large")
	// ErrExtraction is returned when a text extractor cannot decode a file.
	ErrExtraction = errors.New("text extraction failed")
)

// Engine chunks single files. Its dedup store and batch id are shared by
// every call until Reset.
type Engine struct {
	registry *parsers.Registry
	logger   *slog.Logger
	settings Settings
	store    *dedup.Store

	mu      sync.RWMutex
	batchID string
}

func NewEngine(registry *parsers.Registry, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		registry: registry,
		logger:   logger.With("component", "chunking_engine"),
		settings: DefaultSettings(),
		store:    dedup.NewStore(),
		batchID:  uuid.NewString(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the tier registry used for selection.
func (e *Engine) Registry() *parsers.Registry { return e.registry }

// Settings returns the effective limits.
func (e *Engine) Settings() Settings { return e.settings }

// BatchID returns the id stamped on chunks of the current run.
func (e *Engine) BatchID() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.batchID
}

// Store returns the engine's dedup store.
func (e *Engine) Store() *dedup.Store { return e.store }

// Reset forgets every hash and starts a new batch.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store.Reset()
	e.batchID = uuid.NewString()
}

// ChunkFile returns the deduplicated chunks of file stamped with the
// current batch id.
func (e *Engine) ChunkFile(ctx context.Context, file schema.SourceFile) ([]schema.CodeChunk, error) {
	chunks, err := e.Candidates(ctx, file)
	if err != nil {
		return nil, err
	}
	e.mu.RLock()
	batchID := e.batchID
	e.mu.RUnlock()

	kept := e.store.Apply(chunks, batchID)
	if dropped := len(chunks) - len(kept); dropped > 0 {
		e.logger.Debug("Dropped duplicate chunks", "path", file.Path, "duplicates", dropped)
	}
	return kept, nil
}

// Candidates chunks a file without deduplication. Chunks come back detached
// so they can cross a process boundary.
func (e *Engine) Candidates(ctx context.Context, file schema.SourceFile) ([]schema.CodeChunk, error) {
	return e.CandidatesWith(ctx, file, e.settings)
}

// CandidatesWith is Candidates under explicit limits. Worker processes use
// it to apply the limits of the run that sent the file.
func (e *Engine) CandidatesWith(ctx context.Context, file schema.SourceFile, settings Settings) ([]schema.CodeChunk, error) {
	if settings.TooLarge(file.SizeHint) {
		return nil, fmt.Errorf("%w: %s is %d bytes (limit %d)", ErrFileTooLarge, file.Path, file.SizeHint, settings.MaxFileBytes)
	}
	data, err := file.Load()
	if err != nil {
		return nil, err
	}
	if settings.TooLarge(int64(len(data))) {
		return nil, fmt.Errorf("%w: %s is %d bytes (limit %d)", ErrFileTooLarge, file.Path, len(data), settings.MaxFileBytes)
	}

	content, err := e.decode(file.Path, data)
	if err != nil {
		return nil, err
	}
	if len(content) == 0 || textsplitter.IsBlank([]byte(content)) {
		e.logger.Debug("Skipping empty file", "path", file.Path)
		return nil, nil
	}

	chain := e.registry.Chain(file)
	req := schema.ChunkRequest{
		Path:     file.Path,
		Language: chain[0].Language,
		Content:  content,
		Options:  settings.Chunking,
	}
	if textsplitter.IsSingleLine([]byte(content)) {
		chain = chain[len(chain)-1:]
	}

	chunks, err := e.runChain(ctx, chain, req, settings.Budget)
	if err != nil {
		return nil, err
	}
	for i := range chunks {
		chunks[i] = chunks[i].Detach()
	}
	return chunks, nil
}

// decode runs the registered text extractor, if any, before the binary
// screen so formats such as PDF survive it.
func (e *Engine) decode(path string, data []byte) (string, error) {
	if extractor, ok := e.registry.Extractor(path); ok {
		text, err := extractor.ExtractText(data)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrExtraction, path, err)
		}
		return text, nil
	}
	if textsplitter.IsBinary(data) {
		return "", fmt.Errorf("%w: %s", ErrBinaryContent, path)
	}
	return string(data), nil
}

// runChain tries each tier in order. Every tier gets a fresh governor with
// the time that is left. After a depth breach the next tier runs without a
// depth limit. A timeout ends the file.
func (e *Engine) runChain(ctx context.Context, chain []parsers.Selection, req schema.ChunkRequest, budget governor.Budget) ([]schema.CodeChunk, error) {
	budget = budget.Normalized()
	started := time.Now()

	for i, sel := range chain {
		tierBudget := budget
		if budget.Timeout > 0 {
			tierBudget.Timeout = budget.Timeout - time.Since(started)
			if tierBudget.Timeout <= 0 {
				return nil, &governor.ResourceTimeoutError{Limit: budget.Timeout, Elapsed: time.Since(started)}
			}
		}

		gov := tierBudget.Start(ctx)
		chunks, err := sel.Chunker.Chunk(gov, req)
		state := gov.Finish()

		var (
			limitErr   *governor.ChunkLimitExceededError
			depthErr   *governor.DepthExceededError
			timeoutErr *governor.ResourceTimeoutError
		)
		switch {
		case err == nil && len(chunks) > 0:
			e.logger.Debug("File chunked", "path", req.Path, "tier", sel.String(), "chunks", len(chunks), "state", state)
			return chunks, nil
		case errors.As(err, &limitErr) && len(chunks) > 0:
			e.logger.Warn("File degraded by chunk limit", "path", req.Path, "tier", sel.String(), "kept", len(chunks), "limit", limitErr.Limit)
			return chunks, nil
		case errors.As(err, &timeoutErr):
			e.logger.Warn("File timed out", "path", req.Path, "tier", sel.String(), "error", err)
			return nil, err
		case errors.As(err, &depthErr):
			e.logger.Warn("Tree too deep, falling back", "path", req.Path, "tier", sel.String(), "depth", depthErr.Depth, "limit", depthErr.Limit)
			budget.MaxDepth = -1
		case err != nil:
			e.logger.Debug("Tier failed, falling back", "path", req.Path, "tier", sel.String(), "error", err)
		default:
			e.logger.Debug("Tier produced no chunks, falling back", "path", req.Path, "tier", sel.String())
		}
		if i == len(chain)-1 && err != nil {
			return nil, err
		}
	}
	return nil, nil
}
