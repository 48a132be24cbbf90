// Package markdown reports heading sections, fenced code blocks and front
// matter of Markdown documents using goldmark.
package markdown

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/sevigo/semchunk/schema"
)

const frontMatterSeparator = "---"

// MarkdownPlugin implements schema.ParserPlugin for Markdown files.
type MarkdownPlugin struct {
	logger   *slog.Logger
	markdown goldmark.Markdown
}

// NewMarkdownPlugin creates a new Markdown plugin backed by goldmark.
func NewMarkdownPlugin(logger *slog.Logger) schema.ParserPlugin {
	return &MarkdownPlugin{
		logger: logger,
		markdown: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Table,
				extension.Strikethrough,
				extension.TaskList,
			),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
		),
	}
}

func (p *MarkdownPlugin) Name() string {
	return "markdown"
}

func (p *MarkdownPlugin) Extensions() []string {
	return []string{".md", ".markdown", ".mdx"}
}

// CanHandle determines if this plugin can process the given file.
func (p *MarkdownPlugin) CanHandle(path string, info fs.FileInfo) bool {
	if info != nil && info.IsDir() {
		return false
	}
	return slices.Contains(p.Extensions(), strings.ToLower(filepath.Ext(path)))
}
