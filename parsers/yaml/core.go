// Package yaml reports keys, sequence items and documents of YAML files.
package yaml

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/sevigo/semchunk/schema"
)

// maxNesting bounds how deep keys are reported.
const maxNesting = 3

// YamlPlugin implements schema.ParserPlugin for YAML files.
type YamlPlugin struct {
	logger *slog.Logger
}

// NewYamlPlugin creates a new YAML plugin.
func NewYamlPlugin(logger *slog.Logger) schema.ParserPlugin {
	return &YamlPlugin{
		logger: logger,
	}
}

func (p *YamlPlugin) Name() string {
	return "yaml"
}

func (p *YamlPlugin) Extensions() []string {
	return []string{".yaml", ".yml"}
}

// CanHandle determines if this plugin can process the given file.
func (p *YamlPlugin) CanHandle(path string, info fs.FileInfo) bool {
	if info != nil && info.IsDir() {
		return false
	}

	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
