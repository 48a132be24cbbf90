package classify

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/sevigo/semchunk/grammar"
)

type cacheKey struct {
	language string
	nodeType string
}

type cachedResult struct {
	res Result
	ok  bool
}

// Router chains the classifiers: language extension override, grammar
// descriptor, then pattern fallback. Every accepted result passes through the
// extension's Refine. Router is safe for concurrent use.
type Router struct {
	grammar    Classifier
	pattern    Classifier
	extensions map[string]Extension
	logger     *slog.Logger

	mu    sync.RWMutex
	cache map[cacheKey]cachedResult
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithExtension registers a language extension, replacing any existing one
// for the same languages.
func WithExtension(ext Extension) RouterOption {
	return func(r *Router) {
		for _, lang := range ext.Languages() {
			r.extensions[strings.ToLower(lang)] = ext
		}
	}
}

// WithoutDefaultExtensions drops the built-in extensions.
func WithoutDefaultExtensions() RouterOption {
	return func(r *Router) {
		r.extensions = make(map[string]Extension)
	}
}

func NewRouter(grammars *grammar.Registry, logger *slog.Logger, opts ...RouterOption) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		grammar:    NewGrammarClassifier(grammars),
		pattern:    NewPatternClassifier(),
		extensions: make(map[string]Extension),
		logger:     logger.With("component", "classifier"),
		cache:      make(map[cacheKey]cachedResult),
	}
	for _, ext := range DefaultExtensions() {
		WithExtension(ext)(r)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Classify never fails: when no earlier stage applies the pattern classifier
// provides a result.
func (r *Router) Classify(node NodeContext) Result {
	ext := r.extensions[strings.ToLower(node.Language)]

	if ext != nil {
		if res, ok := ext.Override(node); ok {
			return res
		}
	}

	res, ok := r.classifyGrammar(node)
	if !ok {
		res, _ = r.pattern.Classify(node)
	}
	if ext != nil {
		res = ext.Refine(node, res)
	}
	return res
}

// classifyGrammar memoizes grammar results; they depend only on the
// language and node type.
func (r *Router) classifyGrammar(node NodeContext) (Result, bool) {
	key := cacheKey{language: node.Language, nodeType: node.Type}
	if !node.Named {
		key.nodeType = "\x00" + node.Type
	}

	r.mu.RLock()
	cached, hit := r.cache[key]
	r.mu.RUnlock()
	if hit {
		return cached.res, cached.ok
	}

	res, ok := r.grammar.Classify(node)
	r.mu.Lock()
	r.cache[key] = cachedResult{res: res, ok: ok}
	r.mu.Unlock()

	if !ok {
		r.logger.Debug("Grammar classification unresolved", "language", node.Language, "node_type", node.Type)
	}
	return res, ok
}
