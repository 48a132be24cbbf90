package yaml

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/sevigo/semchunk/schema"
)

// ErrInvalidYAML is returned when a document fails to decode.
var ErrInvalidYAML = errors.New("invalid YAML")

type extractor struct {
	lines    []string
	sections []schema.Section
	title    cases.Caser
}

// Chunk decodes every document in the stream. Each key becomes a section
// running until the next sibling key; multi-document streams also get one
// section per document.
func (p *YamlPlugin) Chunk(content string, path string, _ *schema.CodeChunkingOptions) ([]schema.Section, error) {
	dec := yaml.NewDecoder(strings.NewReader(content))
	var docs []*yaml.Node
	for {
		var doc yaml.Node
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidYAML, path, err)
		}
		docs = append(docs, &doc)
	}

	e := &extractor{
		lines: strings.Split(strings.TrimSuffix(content, "\n"), "\n"),
		title: cases.Title(language.English),
	}
	for i, doc := range docs {
		root := doc
		if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
			root = doc.Content[0]
		}
		end := len(e.lines)
		if i+1 < len(docs) {
			end = e.trimBack(docs[i+1].Line - 1)
		}

		depth := 0
		if len(docs) > 1 {
			e.sections = append(e.sections, schema.Section{
				LineStart:   root.Line,
				LineEnd:     max(end, root.Line),
				Type:        "document",
				Identifier:  documentName(root, i),
				Category:    schema.CategoryModule,
				Annotations: map[string]string{"document": strconv.Itoa(i + 1)},
			})
			depth = 1
		}
		e.visit(root, "", end, depth)
	}

	p.logger.Debug("YAML sections extracted", "path", path, "documents", len(docs), "sections", len(e.sections))
	return e.sections, nil
}

func (e *extractor) visit(node *yaml.Node, prefix string, end, depth int) {
	if depth >= maxNesting {
		return
	}
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			start := leadingLine(key)
			last := end
			if i+2 < len(node.Content) {
				last = e.trimBack(leadingLine(node.Content[i+2]) - 1)
			}
			name := join(prefix, key.Value)
			annotations := map[string]string{"value_kind": kindName(value)}
			if prefix == "" {
				annotations["label"] = e.title.String(strings.NewReplacer("_", " ", "-", " ").Replace(key.Value))
			}
			e.sections = append(e.sections, schema.Section{
				LineStart:   start,
				LineEnd:     max(last, start),
				Type:        "key",
				Identifier:  name,
				Category:    schema.CategoryData,
				Depth:       depth,
				Annotations: annotations,
			})
			e.visit(value, name, max(last, start), depth+1)
		}
	case yaml.SequenceNode:
		for i, item := range node.Content {
			last := end
			if i+1 < len(node.Content) {
				last = e.trimBack(node.Content[i+1].Line - 1)
			}
			name := fmt.Sprintf("%s[%d]", prefix, i)
			e.sections = append(e.sections, schema.Section{
				LineStart:   item.Line,
				LineEnd:     max(last, item.Line),
				Type:        "item",
				Identifier:  name,
				Category:    schema.CategoryData,
				Depth:       depth,
				Annotations: map[string]string{"value_kind": kindName(item)},
			})
			if item.Kind == yaml.MappingNode {
				e.visit(item, name, max(last, item.Line), depth+1)
			}
		}
	}
}

// trimBack moves a 1-based end line up over blank lines and document
// separators.
func (e *extractor) trimBack(line int) int {
	for line > 1 && line <= len(e.lines) {
		t := strings.TrimSpace(e.lines[line-1])
		if t != "" && t != "---" && t != "..." {
			break
		}
		line--
	}
	return line
}

// leadingLine includes the key's head comment.
func leadingLine(key *yaml.Node) int {
	if key.HeadComment == "" {
		return key.Line
	}
	return max(1, key.Line-strings.Count(key.HeadComment, "\n")-1)
}

// documentName prefers the Kubernetes style kind/name pair.
func documentName(root *yaml.Node, index int) string {
	kind := lookup(root, "kind")
	name := ""
	if meta := lookupNode(root, "metadata"); meta != nil {
		name = lookup(meta, "name")
	}
	switch {
	case kind != "" && name != "":
		return kind + "/" + name
	case kind != "":
		return kind
	}
	return "document " + strconv.Itoa(index+1)
}

func lookupNode(node *yaml.Node, key string) *yaml.Node {
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func lookup(node *yaml.Node, key string) string {
	if v := lookupNode(node, key); v != nil && v.Kind == yaml.ScalarNode {
		return v.Value
	}
	return ""
}

func kindName(node *yaml.Node) string {
	switch node.Kind {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.AliasNode:
		return "alias"
	}
	return "scalar"
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
