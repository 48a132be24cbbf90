package parsers

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/sevigo/semchunk/governor"
	"github.com/sevigo/semchunk/parsers/delimiter"
	"github.com/sevigo/semchunk/parsers/semantic"
	"github.com/sevigo/semchunk/schema"
)

// ErrPluginNotFound is returned when a plugin is not found
var ErrPluginNotFound = errors.New("language plugin not found")

// Registry selects the chunking tiers for a file. Format plugins and
// delimiter definitions can be added at runtime; selection never changes.
type Registry struct {
	plugins    map[string]schema.ParserPlugin // Map of language name to plugin
	extensions map[string]schema.ParserPlugin // Map of file extension to plugin
	order      []string
	logger     *slog.Logger
	mu         sync.RWMutex

	semantic  *semantic.Chunker
	delimiter *delimiter.Chunker
	custom    []delimiter.Definition
}

// NewRegistry creates a registry over the semantic and delimiter tiers. A
// nil semantic chunker disables the semantic tier.
func NewRegistry(logger *slog.Logger, semanticChunker *semantic.Chunker, delimiterChunker *delimiter.Chunker) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if delimiterChunker == nil {
		delimiterChunker = delimiter.New(delimiter.NewDefinitions(), logger)
	}
	return &Registry{
		plugins:    make(map[string]schema.ParserPlugin),
		extensions: make(map[string]schema.ParserPlugin),
		logger:     logger.With("component", "parser_registry"),
		semantic:   semanticChunker,
		delimiter:  delimiterChunker,
	}
}

// RegisterParser adds a format plugin to the registry
func (r *Registry) RegisterParser(plugin schema.ParserPlugin) error {
	if plugin == nil {
		return errors.New("cannot register nil plugin")
	}

	name := plugin.Name()
	if name == "" {
		return errors.New("plugin must have a non-empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[name]; exists {
		return fmt.Errorf("plugin with name %q already registered", name)
	}

	r.plugins[name] = plugin
	r.order = append(r.order, name)
	for _, ext := range plugin.Extensions() {
		if ext = normalizeExt(ext); ext != "" {
			r.extensions[ext] = plugin
		}
	}

	r.logger.Debug("Registered language plugin", "language", name, "extensions", plugin.Extensions())
	return nil
}

// RegisterDelimiters adds custom delimiter definitions.
func (r *Registry) RegisterDelimiters(defs ...delimiter.Definition) error {
	for _, def := range defs {
		if err := r.delimiter.Definitions().Register(def); err != nil {
			return err
		}
		r.mu.Lock()
		i := slices.IndexFunc(r.custom, func(d delimiter.Definition) bool {
			return strings.EqualFold(d.Language, def.Language) && d.Name == def.Name
		})
		if i >= 0 {
			r.custom[i] = def
		} else {
			r.custom = append(r.custom, def)
		}
		r.mu.Unlock()
		r.logger.Debug("Registered delimiter definition", "language", def.Language, "family", def.Family)
	}
	return nil
}

// CustomDelimiters returns the definitions added through RegisterDelimiters,
// in registration order.
func (r *Registry) CustomDelimiters() []delimiter.Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.custom)
}

// GetParser retrieves a plugin by name
func (r *Registry) GetParser(language string) (schema.ParserPlugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plugin, ok := r.plugins[language]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, language)
	}
	return plugin, nil
}

// GetParserForFile returns the plugin for a file, trying the extension
// first and then each plugin's CanHandle in registration order.
func (r *Registry) GetParserForFile(path string, info fs.FileInfo) (schema.ParserPlugin, error) {
	if ext := filepath.Ext(path); ext != "" {
		if plugin, err := r.GetParserForExtension(ext); err == nil {
			return plugin, nil
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		if plugin := r.plugins[name]; plugin.CanHandle(path, info) {
			return plugin, nil
		}
	}

	return nil, fmt.Errorf("%w for file %s", ErrPluginNotFound, path)
}

// GetParserForExtension returns a plugin for a file extension
func (r *Registry) GetParserForExtension(ext string) (schema.ParserPlugin, error) {
	ext = normalizeExt(ext)
	if ext == "" {
		return nil, fmt.Errorf("%w: empty extension", ErrPluginNotFound)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	plugin, ok := r.extensions[ext]
	if !ok {
		return nil, fmt.Errorf("%w for extension %s", ErrPluginNotFound, ext)
	}

	return plugin, nil
}

// GetAllParsers returns all registered plugins in registration order.
func (r *Registry) GetAllParsers() []schema.ParserPlugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plugins := make([]schema.ParserPlugin, 0, len(r.plugins))
	for _, name := range r.order {
		plugins = append(plugins, r.plugins[name])
	}
	return plugins
}

// Extractor returns the text extractor registered for the file, if any.
func (r *Registry) Extractor(path string) (schema.TextExtractor, bool) {
	plugin, err := r.GetParserForFile(path, nil)
	if err != nil {
		return nil, false
	}
	extractor, ok := plugin.(schema.TextExtractor)
	return extractor, ok
}

// Select returns the preferred tier for a file.
func (r *Registry) Select(file schema.SourceFile) Selection {
	return r.Chain(file)[0]
}

// Chain returns the tiers to try for a file, best first. The generic tier
// is always last, so the chain is never empty.
func (r *Registry) Chain(file schema.SourceFile) []Selection {
	language := strings.ToLower(file.Language)
	if language == "" {
		language = r.DetectLanguage(file.Path)
	}

	var chain []Selection
	if r.semantic != nil && r.semantic.Supports(language) {
		chain = append(chain, Selection{Chunker: r.semantic, Tier: schema.SourceSemantic, Language: language})
	}
	if plugin, err := r.GetParserForFile(file.Path, nil); err == nil {
		chain = append(chain, Selection{
			Chunker:  &pluginChunker{plugin: plugin, delimiter: r.delimiter},
			Tier:     schema.SourceDelimiter,
			Language: language,
			Plugin:   plugin.Name(),
		})
	} else if r.delimiter.Supports(language) {
		chain = append(chain, Selection{Chunker: r.delimiter, Tier: schema.SourceDelimiter, Language: language})
	}
	chain = append(chain, Selection{Chunker: genericChunker{r.delimiter}, Tier: schema.SourceGeneric, Language: language})

	r.logger.Debug("Chunker chain selected", "path", file.Path, "language", language, "chain", chainNames(chain))
	return chain
}

func chainNames(chain []Selection) []string {
	names := make([]string, 0, len(chain))
	for _, s := range chain {
		names = append(names, s.String())
	}
	return names
}

// pluginChunker feeds the sections of a format plugin to the delimiter tier.
type pluginChunker struct {
	plugin    schema.ParserPlugin
	delimiter *delimiter.Chunker
}

func (p *pluginChunker) Chunk(gov *governor.Governor, req schema.ChunkRequest) ([]schema.CodeChunk, error) {
	opts := req.Options
	sections, err := p.plugin.Chunk(req.Content, req.Path, &opts)
	if err != nil {
		return nil, fmt.Errorf("plugin %s: %w", p.plugin.Name(), err)
	}
	return p.delimiter.ChunkSections(gov, req, sections, p.plugin.Name())
}

type genericChunker struct {
	delimiter *delimiter.Chunker
}

func (g genericChunker) Chunk(gov *governor.Governor, req schema.ChunkRequest) ([]schema.CodeChunk, error) {
	return g.delimiter.ChunkGeneric(gov, req)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Languages lists every language tag the registry can route to a
// structural tier.
func (r *Registry) Languages() []string {
	langs := r.delimiter.Definitions().Languages()
	if r.semantic != nil {
		for _, lang := range semantic.ParserLanguages() {
			if r.semantic.Supports(lang) {
				langs = append(langs, lang)
			}
		}
	}
	for _, p := range r.GetAllParsers() {
		langs = append(langs, p.Name())
	}
	slices.Sort(langs)
	return slices.Compact(langs)
}
