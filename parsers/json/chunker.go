package json

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	model "github.com/sevigo/semchunk/schema"
)

// ErrInvalidJSON is returned when the document is not well formed.
var ErrInvalidJSON = errors.New("invalid JSON")

// maxNesting bounds how deep members are reported.
const maxNesting = 2

type extractor struct {
	content  string
	idx      *model.LineIndex
	title    cases.Caser
	sections []model.Section
}

// Chunk reports object members and array elements down to a fixed depth.
// Positions come from the decoder's input offsets, so the original layout
// is preserved.
func (p *JSONPlugin) Chunk(content string, path string, _ *model.CodeChunkingOptions) ([]model.Section, error) {
	if !json.Valid([]byte(content)) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidJSON, path)
	}

	e := &extractor{
		content: content,
		idx:     model.NewLineIndex(content),
		title:   cases.Title(language.English),
	}
	if err := e.visit(0, len(content), "", 0); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidJSON, path, err)
	}

	p.logger.Debug("JSON sections extracted", "path", path, "sections", len(e.sections))
	return e.sections, nil
}

// visit walks the container held in content[start:end].
func (e *extractor) visit(start, end int, prefix string, depth int) error {
	if depth >= maxNesting {
		return nil
	}
	dec := json.NewDecoder(strings.NewReader(e.content[start:end]))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok || (delim != '{' && delim != '[') {
		return nil
	}

	for i := 0; dec.More(); i++ {
		memberStart := e.skipSeparators(start + int(dec.InputOffset()))
		name := fmt.Sprintf("%s[%d]", prefix, i)
		kind := "item"
		if delim == '{' {
			keyTok, err := dec.Token()
			if err != nil {
				return err
			}
			key, _ := keyTok.(string)
			name, kind = join(prefix, key), "key"
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		valueEnd := start + int(dec.InputOffset())
		valueStart := valueEnd - len(raw)

		annotations := map[string]string{"value_kind": valueKind(raw)}
		if depth == 0 && delim == '{' {
			annotations["label"] = e.title.String(strings.NewReplacer("_", " ", "-", " ").Replace(name))
		}
		if len(raw) > 0 && (raw[0] == '{' || raw[0] == '[') {
			annotations["members"] = strconv.Itoa(countMembers(raw))
		}
		e.sections = append(e.sections, model.Section{
			LineStart:   e.idx.Line(memberStart),
			LineEnd:     e.idx.Line(max(valueEnd-1, memberStart)),
			Type:        kind,
			Identifier:  name,
			Category:    model.CategoryData,
			Depth:       depth,
			Annotations: annotations,
		})
		if err := e.visit(valueStart, valueEnd, name, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// skipSeparators returns the offset of the next significant byte at or
// after pos.
func (e *extractor) skipSeparators(pos int) int {
	for pos < len(e.content) && strings.IndexByte(" \t\r\n,:", e.content[pos]) >= 0 {
		pos++
	}
	return pos
}

func valueKind(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "null"
	}
	switch raw[0] {
	case '{':
		return "object"
	case '[':
		return "array"
	case '"':
		return "string"
	case 't', 'f':
		return "bool"
	case 'n':
		return "null"
	}
	return "number"
}

func countMembers(raw json.RawMessage) int {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return 0
	}
	n := 0
	for dec.More() {
		var skip json.RawMessage
		if raw[0] == '{' {
			if _, err := dec.Token(); err != nil {
				return n
			}
		}
		if err := dec.Decode(&skip); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return n
		}
		n++
	}
	return n
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
