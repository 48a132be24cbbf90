// Package text finds titled sections in plain text documents.
package text

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sevigo/semchunk/schema"
)

// TextPlugin implements schema.ParserPlugin for plain text files.
type TextPlugin struct {
	logger *slog.Logger
}

// NewTextPlugin creates a new text file parser plugin.
func NewTextPlugin(logger *slog.Logger) schema.ParserPlugin {
	return &TextPlugin{
		logger: logger,
	}
}

func (p *TextPlugin) Name() string {
	return "text"
}

func (p *TextPlugin) Extensions() []string {
	return []string{".txt", ".text", ".readme", ".changelog", ".license"}
}

// CanHandle accepts known text extensions and well-known extensionless
// documents such as README or LICENSE.
func (p *TextPlugin) CanHandle(path string, info fs.FileInfo) bool {
	if info != nil && info.IsDir() {
		return false
	}

	ext := strings.ToLower(filepath.Ext(path))
	if slices.Contains(p.Extensions(), ext) {
		return true
	}
	if ext == "" {
		textFiles := []string{"readme", "license", "changelog", "authors", "contributors", "notice", "copying"}
		return slices.Contains(textFiles, strings.ToLower(filepath.Base(path)))
	}
	return false
}
