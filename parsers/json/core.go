// Package json reports object members and array elements of JSON documents
// with their line ranges.
package json

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	model "github.com/sevigo/semchunk/schema"
)

// JSONPlugin implements model.ParserPlugin for JSON files.
type JSONPlugin struct {
	logger *slog.Logger
}

// NewJSONPlugin creates a new JSON plugin.
func NewJSONPlugin(logger *slog.Logger) model.ParserPlugin {
	return &JSONPlugin{
		logger: logger,
	}
}

func (p *JSONPlugin) Name() string {
	return "json"
}

func (p *JSONPlugin) Extensions() []string {
	return []string{".json"}
}

// CanHandle determines if this plugin can process the given file.
func (p *JSONPlugin) CanHandle(path string, info fs.FileInfo) bool {
	if info != nil && info.IsDir() {
		return false
	}
	return strings.EqualFold(filepath.Ext(path), ".json")
}
