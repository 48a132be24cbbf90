// Package pdf extracts the text layer of PDF documents and reports one
// section per page.
package pdf

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/sevigo/semchunk/schema"
)

// PDFPlugin implements schema.ParserPlugin and schema.TextExtractor.
type PDFPlugin struct {
	logger *slog.Logger
}

// NewPDFPlugin creates a new PDF plugin.
func NewPDFPlugin(logger *slog.Logger) schema.ParserPlugin {
	return &PDFPlugin{
		logger: logger,
	}
}

func (p *PDFPlugin) Name() string {
	return "pdf"
}

func (p *PDFPlugin) Extensions() []string {
	return []string{".pdf"}
}

func (p *PDFPlugin) CanHandle(path string, info fs.FileInfo) bool {
	if info != nil && info.IsDir() {
		return false
	}
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".pdf"
}
