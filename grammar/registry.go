package grammar

import (
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

//go:embed descriptors/*.json
var embedded embed.FS

// aliases lets several language tags share one descriptor.
var aliases = map[string]string{
	"tsx": "typescript",
	"jsx": "javascript",
}

type loadFunc func() ([]byte, error)

// Registry loads descriptors on first use and caches the parsed grammars for
// the lifetime of the process. It is safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	sources  map[string]loadFunc
	grammars map[string]*Grammar
	failed   map[string]error
	logger   *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry) error

// WithDirectory adds every <language>.json file (or <language>/node-types.json)
// under dir. Entries override embedded descriptors of the same language.
func WithDirectory(dir string) Option {
	return func(r *Registry) error {
		if dir == "" {
			return nil
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("read grammar dir %s: %w", dir, err)
		}
		for _, entry := range entries {
			var language, path string
			switch {
			case entry.IsDir():
				language = entry.Name()
				path = filepath.Join(dir, entry.Name(), "node-types.json")
				if _, err := os.Stat(path); err != nil {
					continue
				}
			case strings.HasSuffix(entry.Name(), ".json"):
				language = strings.TrimSuffix(entry.Name(), ".json")
				path = filepath.Join(dir, entry.Name())
			default:
				continue
			}
			p := path
			r.sources[language] = func() ([]byte, error) { return os.ReadFile(p) }
		}
		return nil
	}
}

// WithDescriptor registers an in-memory descriptor for a language.
func WithDescriptor(language string, data []byte) Option {
	return func(r *Registry) error {
		r.sources[language] = func() ([]byte, error) { return data, nil }
		return nil
	}
}

// NewRegistry returns a registry seeded with the embedded descriptors.
func NewRegistry(logger *slog.Logger, opts ...Option) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		sources:  make(map[string]loadFunc),
		grammars: make(map[string]*Grammar),
		failed:   make(map[string]error),
		logger:   logger.With("component", "grammar"),
	}

	files, err := embedded.ReadDir("descriptors")
	if err != nil {
		return nil, fmt.Errorf("read embedded descriptors: %w", err)
	}
	for _, f := range files {
		name := f.Name()
		language := strings.TrimSuffix(name, ".json")
		r.sources[language] = func() ([]byte, error) {
			return embedded.ReadFile("descriptors/" + name)
		}
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func canonical(language string) string {
	language = strings.ToLower(language)
	if alias, ok := aliases[language]; ok {
		return alias
	}
	return language
}

// Has reports whether a descriptor is available for the language. It does
// not parse the descriptor.
func (r *Registry) Has(language string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	lang := canonical(language)
	if _, bad := r.failed[lang]; bad {
		return false
	}
	_, ok := r.sources[lang]
	return ok
}

// Languages lists every language with a descriptor source.
func (r *Registry) Languages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sources))
	for lang := range r.sources {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// Grammar returns the parsed grammar for a language, parsing it on first use.
func (r *Registry) Grammar(language string) (*Grammar, error) {
	lang := canonical(language)

	r.mu.Lock()
	defer r.mu.Unlock()

	if g, ok := r.grammars[lang]; ok {
		return g, nil
	}
	if err, ok := r.failed[lang]; ok {
		return nil, err
	}
	load, ok := r.sources[lang]
	if !ok {
		err := fmt.Errorf("%w: %s", ErrGrammarNotFound, language)
		r.failed[lang] = err
		return nil, err
	}

	data, err := load()
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrGrammarNotFound, language, err)
		r.failed[lang] = err
		r.logger.Warn("Failed to load grammar descriptor", "language", lang, "error", err)
		return nil, err
	}
	g, err := Parse(lang, data)
	if err != nil {
		r.failed[lang] = err
		r.logger.Warn("Failed to parse grammar descriptor", "language", lang, "error", err)
		return nil, err
	}
	r.grammars[lang] = g
	r.logger.Debug("Loaded grammar descriptor", "language", lang, "node_types", len(g.nodes))
	return g, nil
}

// NodeInfo looks up a node type in a language's grammar.
func (r *Registry) NodeInfo(nodeType, language string) (NodeSemanticInfo, bool) {
	g, err := r.Grammar(language)
	if err != nil {
		return NodeSemanticInfo{}, false
	}
	return g.Node(nodeType)
}

// AbstractTypes builds the normalized abstract type -> language -> subtypes
// map across every loadable grammar.
func (r *Registry) AbstractTypes() map[string]map[string][]string {
	out := make(map[string]map[string][]string)
	for _, lang := range r.Languages() {
		g, err := r.Grammar(lang)
		if err != nil {
			continue
		}
		for abstract, subs := range g.AbstractTypes() {
			key := NormalizeAbstract(abstract)
			if out[key] == nil {
				out[key] = make(map[string][]string)
			}
			out[key][lang] = append(out[key][lang], subs...)
		}
	}
	return out
}
