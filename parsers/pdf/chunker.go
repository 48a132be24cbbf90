package pdf

import (
	"regexp"
	"strings"

	"github.com/sevigo/semchunk/schema"
)

var pageMarker = regexp.MustCompile(`^--- Page (\d+) ---$`)

// Chunk reports one section per page of text produced by ExtractText.
func (p *PDFPlugin) Chunk(content string, path string, _ *schema.CodeChunkingOptions) ([]schema.Section, error) {
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")

	var sections []schema.Section
	for i, line := range lines {
		m := pageMarker.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if n := len(sections); n > 0 {
			sections[n-1].LineEnd = max(i, sections[n-1].LineStart)
		}
		sections = append(sections, schema.Section{
			LineStart:   i + 1,
			LineEnd:     len(lines),
			Type:        "page",
			Identifier:  "page " + m[1],
			Category:    schema.CategoryDocumentation,
			Annotations: map[string]string{"page": m[1]},
		})
	}

	p.logger.Debug("PDF pages sectioned", "path", path, "pages", len(sections))
	return sections, nil
}
