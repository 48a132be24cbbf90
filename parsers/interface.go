package parsers

import (
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/sevigo/semchunk/governor"
	"github.com/sevigo/semchunk/parsers/csv"
	"github.com/sevigo/semchunk/parsers/json"
	"github.com/sevigo/semchunk/parsers/markdown"
	"github.com/sevigo/semchunk/parsers/pdf"
	"github.com/sevigo/semchunk/parsers/protobuf"
	"github.com/sevigo/semchunk/parsers/terraform"
	"github.com/sevigo/semchunk/parsers/text"
	"github.com/sevigo/semchunk/parsers/yaml"
	"github.com/sevigo/semchunk/schema"
)

// Chunker is one chunking tier.
type Chunker interface {
	Chunk(gov *governor.Governor, req schema.ChunkRequest) ([]schema.CodeChunk, error)
}

// Selection is a tier chosen for a file.
type Selection struct {
	Chunker  Chunker
	Tier     schema.ChunkSource
	Language string
	// Plugin names the format plugin feeding the delimiter tier, if any.
	Plugin string
}

func (s Selection) String() string {
	if s.Plugin != "" {
		return fmt.Sprintf("%s(%s)", s.Tier, s.Plugin)
	}
	return string(s.Tier)
}

// ParserRegistry tracks registered format plugins.
type ParserRegistry interface {
	RegisterParser(plugin schema.ParserPlugin) error
	GetParser(language string) (schema.ParserPlugin, error)
	GetParserForFile(path string, info fs.FileInfo) (schema.ParserPlugin, error)
	GetParserForExtension(ext string) (schema.ParserPlugin, error)
	GetAllParsers() []schema.ParserPlugin
}

// RegisterLanguagePlugins adds the built-in format plugins to registry.
func RegisterLanguagePlugins(registry ParserRegistry, logger *slog.Logger) error {
	pluginFactories := []struct {
		name    string
		factory func(*slog.Logger) schema.ParserPlugin
	}{
		{"markdown", markdown.NewMarkdownPlugin},
		{"json", json.NewJSONPlugin},
		{"yaml", yaml.NewYamlPlugin},
		{"pdf", pdf.NewPDFPlugin},
		{"text", text.NewTextPlugin},
		{"csv", csv.NewCSVPlugin},
		{"terraform", terraform.NewTerraformPlugin},
		{"protobuf", protobuf.NewProtobufParser},
	}

	for _, f := range pluginFactories {
		plugin := f.factory(logger.With("plugin", f.name))
		if err := registry.RegisterParser(plugin); err != nil {
			return fmt.Errorf("failed to register plugin %s: %w", f.name, err)
		}
	}

	logger.Debug("Language plugins registered", "count", len(registry.GetAllParsers()))
	return nil
}
