package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrInvalidPDF is returned when the bytes are not a readable PDF.
var ErrInvalidPDF = errors.New("invalid PDF")

const pageMarkerTemplate = "--- Page %d ---\n"

// ExtractText returns the plain text of every page, each preceded by a
// page marker line. Pages without a text layer are skipped.
func (p *PDFPlugin) ExtractText(content []byte) (text string, err error) {
	// The reader panics on some malformed cross reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrInvalidPDF, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPDF, err)
	}

	var b strings.Builder
	pages := reader.NumPage()
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			p.logger.Warn("Failed to extract PDF page text", "page", i, "error", err)
			continue
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		fmt.Fprintf(&b, pageMarkerTemplate, i)
		b.WriteString(strings.TrimRight(pageText, "\n"))
		b.WriteString("\n\n")
	}

	p.logger.Debug("PDF text extracted", "pages", pages, "chars", b.Len())
	return b.String(), nil
}
