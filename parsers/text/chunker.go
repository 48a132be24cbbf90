package text

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sevigo/semchunk/schema"
)

const maxHeadingLength = 80

var (
	numberedHeading = regexp.MustCompile(`^(\d+(?:\.\d+)*)\.?\s+\S`)
	underline       = regexp.MustCompile(`^(?:={3,}|-{3,})\s*$`)
)

type heading struct {
	line  int // 1-based
	level int
	title string
}

// Chunk reports one section per detected heading. A heading is a short line
// standing on its own that is numbered, written in capitals, ends with a
// colon or is underlined. Text without headings yields no sections.
func (p *TextPlugin) Chunk(content string, path string, _ *schema.CodeChunkingOptions) ([]schema.Section, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	heads := detectHeadings(lines)
	title := cases.Title(language.English)

	sections := make([]schema.Section, 0, len(heads))
	for i, h := range heads {
		end := len(lines)
		for _, next := range heads[i+1:] {
			if next.level <= h.level {
				end = next.line - 1
				break
			}
		}
		name := h.title
		if isUpper(name) {
			name = title.String(name)
		}
		sections = append(sections, schema.Section{
			LineStart:   h.line,
			LineEnd:     max(end, h.line),
			Type:        "section",
			Identifier:  name,
			Category:    schema.CategoryDocumentation,
			Depth:       h.level - 1,
			Annotations: map[string]string{"level": strconv.Itoa(h.level)},
		})
	}

	p.logger.Debug("Text sections extracted", "path", path, "headings", len(heads))
	return sections, nil
}

func detectHeadings(lines []string) []heading {
	var out []heading
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || len(line) > maxHeadingLength {
			continue
		}
		if i > 0 && strings.TrimSpace(lines[i-1]) != "" {
			continue
		}
		next := ""
		if i+1 < len(lines) {
			next = strings.TrimSpace(lines[i+1])
		}

		switch {
		case underline.MatchString(next) && !underline.MatchString(line):
			level := 1
			if next[0] == '-' {
				level = 2
			}
			out = append(out, heading{line: i + 1, level: level, title: line})
			i++
		case numberedHeading.MatchString(line) && next == "" && !strings.HasSuffix(line, "."):
			m := numberedHeading.FindStringSubmatch(line)
			level := strings.Count(m[1], ".") + 1
			title := strings.TrimSpace(strings.TrimPrefix(line, m[1]))
			out = append(out, heading{line: i + 1, level: level, title: strings.TrimSpace(strings.TrimPrefix(title, "."))})
		case isUpper(line) && next == "":
			out = append(out, heading{line: i + 1, level: 1, title: line})
		case strings.HasSuffix(line, ":") && next != "" && len(strings.Fields(line)) <= 6 && unicode.IsUpper([]rune(line)[0]):
			out = append(out, heading{line: i + 1, level: 2, title: strings.TrimSuffix(line, ":")})
		}
	}
	return out
}

// isUpper reports whether s has letters and all of them are upper case.
func isUpper(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters >= 3
}
