package markdown

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/sevigo/semchunk/schema"
)

type heading struct {
	line  int
	level int
	title string
	id    string
}

// Chunk reports the document's sections. A heading section runs until the
// next heading of the same or a higher level; code blocks and subsections
// nest inside it.
func (p *MarkdownPlugin) Chunk(content string, path string, _ *schema.CodeChunkingOptions) ([]schema.Section, error) {
	idx := schema.NewLineIndex(content)
	source := []byte(content)

	var sections []schema.Section
	if fm, end, ok := parseFrontMatter(content); ok {
		sections = append(sections, fm)
		// Blank the front matter out so goldmark offsets stay valid.
		for i := range end {
			if source[i] != '\n' {
				source[i] = ' '
			}
		}
	}

	doc := p.markdown.Parser().Parse(text.NewReader(source))
	var heads []heading
	var blocks []schema.Section
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			if node.Lines().Len() == 0 {
				return ast.WalkSkipChildren, nil
			}
			seg := node.Lines().At(0)
			h := heading{
				line:  idx.Line(seg.Start),
				level: node.Level,
				title: strings.TrimSpace(string(seg.Value(source))),
			}
			if id, ok := node.AttributeString("id"); ok {
				if b, isBytes := id.([]byte); isBytes {
					h.id = string(b)
				}
			}
			heads = append(heads, h)
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock:
			if node.Lines().Len() == 0 {
				return ast.WalkSkipChildren, nil
			}
			first := idx.Line(node.Lines().At(0).Start) - 1
			last := idx.Line(node.Lines().At(node.Lines().Len()-1).Start) + 1
			lang := string(node.Language(source))
			blocks = append(blocks, schema.Section{
				LineStart:   max(first, 1),
				LineEnd:     min(last, idx.Lines()),
				Type:        "code_block",
				Identifier:  lang,
				Category:    schema.CategoryLiteral,
				Annotations: map[string]string{"code_language": lang},
			})
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk markdown %s: %w", path, err)
	}

	sections = append(sections, headingSections(heads, idx.Lines())...)
	for _, b := range blocks {
		b.Depth = depthAt(heads, b.LineStart)
		sections = append(sections, b)
	}

	p.logger.Debug("Markdown sections extracted", "path", path, "headings", len(heads), "code_blocks", len(blocks))
	return sections, nil
}

func headingSections(heads []heading, lastLine int) []schema.Section {
	sections := make([]schema.Section, 0, len(heads))
	for i, h := range heads {
		end := lastLine
		for _, next := range heads[i+1:] {
			if next.level <= h.level {
				end = next.line - 1
				break
			}
		}
		annotations := map[string]string{"level": fmt.Sprint(h.level)}
		if h.id != "" {
			annotations["anchor"] = h.id
		}
		sections = append(sections, schema.Section{
			LineStart:   h.line,
			LineEnd:     max(end, h.line),
			Type:        "heading",
			Identifier:  h.title,
			Category:    schema.CategoryDocumentation,
			Depth:       h.level - 1,
			Annotations: annotations,
		})
	}
	return sections
}

// depthAt returns the nesting of a line below the headings that precede it.
func depthAt(heads []heading, line int) int {
	depth := 0
	for _, h := range heads {
		if h.line > line {
			break
		}
		depth = h.level
	}
	return depth
}

// parseFrontMatter recognises a leading YAML block fenced by "---" lines.
// end is the byte offset just past the closing fence.
func parseFrontMatter(content string) (schema.Section, int, bool) {
	lines := strings.SplitAfter(content, "\n")
	if len(lines) < 3 || strings.TrimRight(lines[0], "\r\n") != frontMatterSeparator {
		return schema.Section{}, 0, false
	}

	end := len(lines[0])
	for i := 1; i < len(lines); i++ {
		end += len(lines[i])
		if strings.TrimRight(lines[i], "\r\n") != frontMatterSeparator {
			continue
		}

		body := strings.Join(lines[1:i], "")
		var props map[string]any
		if err := yaml.Unmarshal([]byte(body), &props); err != nil {
			return schema.Section{}, 0, false
		}
		annotations := map[string]string{"keys": fmt.Sprint(len(props))}
		identifier := "frontmatter"
		if title, ok := props["title"].(string); ok && title != "" {
			identifier = title
			annotations["title"] = title
		}
		return schema.Section{
			LineStart:   1,
			LineEnd:     i + 1,
			Type:        "frontmatter",
			Identifier:  identifier,
			Category:    schema.CategoryData,
			Annotations: annotations,
		}, end, true
	}
	return schema.Section{}, 0, false
}
