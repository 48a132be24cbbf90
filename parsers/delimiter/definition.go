package delimiter

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/sevigo/semchunk/schema"
)

// ErrInvalidDefinition is returned by Register for unusable definitions.
var ErrInvalidDefinition = errors.New("invalid delimiter definition")

// Family selects how the extent of a unit is found once its start line
// matched.
type Family string

const (
	// FamilyBrace units run until their braces balance.
	FamilyBrace Family = "brace"
	// FamilyIndent units run while lines are indented deeper than the start.
	FamilyIndent Family = "indent"
	// FamilyKeywordEnd units close with an end keyword at the start's indentation.
	FamilyKeywordEnd Family = "keyword_end"
	// FamilyHeading units run until the next heading of the same or a higher level.
	FamilyHeading Family = "heading"
	// FamilyLisp units are balanced top-level forms.
	FamilyLisp Family = "lisp"
	// FamilyStatement units are terminated by a semicolon outside parentheses.
	FamilyStatement Family = "statement"
)

// Definition describes the unit starts of one language. Pattern is matched
// against each line with its indentation removed and may use the named
// groups kind, name and level. Group names may carry a numeric suffix when
// alternatives need their own group.
type Definition struct {
	Language   string   `json:"language" yaml:"language" validate:"required"`
	Name       string   `json:"name" yaml:"name"`
	Family     Family   `json:"family" yaml:"family" validate:"required,oneof=brace indent keyword_end heading lisp statement"`
	Pattern    string   `json:"pattern" yaml:"pattern"`
	End        string   `json:"end,omitempty" yaml:"end,omitempty"`
	Comment    string   `json:"comment,omitempty" yaml:"comment,omitempty"`
	Kind       string   `json:"kind,omitempty" yaml:"kind,omitempty"`
	Underline  bool     `json:"underline,omitempty" yaml:"underline,omitempty"`
	Extensions []string `json:"extensions,omitempty" yaml:"extensions,omitempty"`
}

// match is what a definition extracted from a start line.
type match struct {
	kind  string
	name  string
	level int
}

type compiled struct {
	Definition
	re    *regexp.Regexp
	end   *regexp.Regexp
	kinds []int
	names []int
	level int
}

var defaultEnd = regexp.MustCompile(`^(?i:end)\b`)

// controlWords never name a unit; they show up when a signature pattern
// catches a control statement.
var controlWords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true, "return": true,
	"new": true, "else": true, "do": true, "try": true, "foreach": true, "using": true,
	"lock": true, "sizeof": true, "typeof": true, "elif": true, "when": true,
}

func compile(def Definition) (*compiled, error) {
	def.Language = strings.ToLower(strings.TrimSpace(def.Language))
	if def.Language == "" {
		return nil, fmt.Errorf("%w: language is required", ErrInvalidDefinition)
	}
	switch def.Family {
	case FamilyBrace, FamilyIndent, FamilyKeywordEnd, FamilyHeading, FamilyLisp, FamilyStatement:
	default:
		return nil, fmt.Errorf("%w: %s: unknown family %q", ErrInvalidDefinition, def.Language, def.Family)
	}
	if def.Pattern == "" && def.Family != FamilyStatement {
		return nil, fmt.Errorf("%w: %s: pattern is required for family %s", ErrInvalidDefinition, def.Language, def.Family)
	}
	if def.Name == "" {
		def.Name = def.Language
	}

	c := &compiled{Definition: def, end: defaultEnd, level: -1}
	pattern := def.Pattern
	if pattern == "" {
		pattern = `^(?P<kind>\w+)`
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidDefinition, def.Language, err)
	}
	c.re = re
	for i, group := range re.SubexpNames() {
		switch {
		case strings.HasPrefix(group, "kind"):
			c.kinds = append(c.kinds, i)
		case strings.HasPrefix(group, "name"):
			c.names = append(c.names, i)
		case group == "level":
			c.level = i
		}
	}
	if def.End != "" {
		if c.end, err = regexp.Compile(def.End); err != nil {
			return nil, fmt.Errorf("%w: %s: end pattern: %w", ErrInvalidDefinition, def.Language, err)
		}
	}
	return c, nil
}

func (c *compiled) match(text string) (match, bool) {
	text = strings.TrimLeft(text, " \t")
	sub := c.re.FindStringSubmatch(text)
	if sub == nil {
		return match{}, false
	}
	m := match{kind: c.Kind, level: 1}
	for _, i := range c.kinds {
		if sub[i] != "" {
			m.kind = strings.TrimSpace(sub[i])
			break
		}
	}
	for _, i := range c.names {
		if sub[i] != "" {
			m.name = strings.TrimSpace(sub[i])
			break
		}
	}
	if controlWords[m.name] {
		return match{}, false
	}
	if c.level > 0 && sub[c.level] != "" {
		m.level = len(sub[c.level])
	} else if lvl, ok := sectionLevels[m.kind]; ok {
		m.level = lvl
	}
	if m.kind == "" {
		m.kind = firstWord(text)
	}
	return m, true
}

var sectionLevels = map[string]int{
	"part": 1, "chapter": 2, "section": 3, "subsection": 4, "subsubsection": 5, "paragraph": 6,
}

func firstWord(s string) string {
	if i := strings.IndexAny(s, " \t({:;"); i > 0 {
		return s[:i]
	}
	return s
}

// Definitions is the set of delimiter definitions keyed by language. It is
// safe for concurrent use.
type Definitions struct {
	mu     sync.RWMutex
	byLang map[string][]*compiled
	byExt  map[string]string
}

// NewDefinitions returns a set preloaded with the built-in definitions.
func NewDefinitions() *Definitions {
	d := &Definitions{
		byLang: make(map[string][]*compiled),
		byExt:  make(map[string]string),
	}
	for _, def := range builtinDefinitions {
		if err := d.Register(def); err != nil {
			panic(err)
		}
	}
	return d
}

// Register adds a definition. A definition whose name matches an existing
// one for the same language replaces it.
func (d *Definitions) Register(def Definition) error {
	c, err := compile(def)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	defs := d.byLang[c.Language]
	if i := slices.IndexFunc(defs, func(e *compiled) bool { return e.Name == c.Name }); i >= 0 {
		defs[i] = c
	} else {
		defs = append(defs, c)
	}
	d.byLang[c.Language] = defs
	for _, ext := range c.Extensions {
		d.byExt[normalizeExt(ext)] = c.Language
	}
	return nil
}

// Has reports whether the language has at least one definition.
func (d *Definitions) Has(language string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byLang[strings.ToLower(language)]) > 0
}

// LanguageForExtension maps a file extension such as ".rb" to a language.
func (d *Definitions) LanguageForExtension(ext string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	lang, ok := d.byExt[normalizeExt(ext)]
	return lang, ok
}

// Languages lists every language with a definition.
func (d *Definitions) Languages() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.byLang))
	for lang := range d.byLang {
		out = append(out, lang)
	}
	slices.Sort(out)
	return out
}

func (d *Definitions) lookup(language string) []*compiled {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.byLang[strings.ToLower(language)])
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// categoryForKind maps the keyword that opened a unit to a category.
func categoryForKind(kind string) schema.Category {
	words := strings.FieldsFunc(strings.ToLower(kind), func(r rune) bool {
		return (r < 'a' || r > 'z') && r != '#'
	})
	for _, w := range words {
		if cat, ok := kindCategories[w]; ok {
			return cat
		}
	}
	return schema.CategoryStructural
}

var kindCategories = map[string]schema.Category{
	"class": schema.CategoryTypeDefinition, "struct": schema.CategoryTypeDefinition,
	"interface": schema.CategoryTypeDefinition, "enum": schema.CategoryTypeDefinition,
	"trait": schema.CategoryTypeDefinition, "type": schema.CategoryTypeDefinition,
	"record": schema.CategoryTypeDefinition, "union": schema.CategoryTypeDefinition,
	"protocol": schema.CategoryTypeDefinition, "object": schema.CategoryTypeDefinition,
	"impl": schema.CategoryTypeDefinition, "typedef": schema.CategoryTypeDefinition,
	"message": schema.CategoryTypeDefinition, "contract": schema.CategoryTypeDefinition,
	"structure": schema.CategoryTypeDefinition, "defrecord": schema.CategoryTypeDefinition,
	"deftype": schema.CategoryTypeDefinition, "defclass": schema.CategoryTypeDefinition,
	"defstruct": schema.CategoryTypeDefinition, "defprotocol": schema.CategoryTypeDefinition,
	"extension": schema.CategoryTypeDefinition, "actor": schema.CategoryTypeDefinition,
	"input": schema.CategoryTypeDefinition,

	"func": schema.CategoryCallable, "function": schema.CategoryCallable, "def": schema.CategoryCallable,
	"fn": schema.CategoryCallable, "fun": schema.CategoryCallable, "sub": schema.CategoryCallable,
	"proc": schema.CategoryCallable, "procedure": schema.CategoryCallable, "method": schema.CategoryCallable,
	"defun": schema.CategoryCallable, "defn": schema.CategoryCallable, "defp": schema.CategoryCallable,
	"defmacro": schema.CategoryCallable, "defmacrop": schema.CategoryCallable, "macro": schema.CategoryCallable,
	"subroutine": schema.CategoryCallable, "constructor": schema.CategoryCallable,
	"destructor": schema.CategoryCallable, "template": schema.CategoryCallable,
	"iterator": schema.CategoryCallable, "modifier": schema.CategoryCallable,
	"defmethod": schema.CategoryCallable, "defgeneric": schema.CategoryCallable,
	"defmulti": schema.CategoryCallable, "define": schema.CategoryCallable,
	"target": schema.CategoryCallable, "query": schema.CategoryCallable, "mutation": schema.CategoryCallable,
	"property": schema.CategoryCallable, "member": schema.CategoryCallable,

	"module": schema.CategoryModule, "namespace": schema.CategoryModule, "package": schema.CategoryModule,
	"defmodule": schema.CategoryModule, "ns": schema.CategoryModule, "mod": schema.CategoryModule,
	"program": schema.CategoryModule, "library": schema.CategoryModule, "from": schema.CategoryModule,

	"create": schema.CategoryData, "var": schema.CategoryData, "let": schema.CategoryData,
	"const": schema.CategoryData, "val": schema.CategoryData, "insert": schema.CategoryData,
	"alter": schema.CategoryData, "resource": schema.CategoryData, "variable": schema.CategoryData,
	"data": schema.CategoryData, "locals": schema.CategoryData, "output": schema.CategoryData,
	"defvar": schema.CategoryData, "defparameter": schema.CategoryData, "defconst": schema.CategoryData,
	"defcustom": schema.CategoryData, "key": schema.CategoryData, "provider": schema.CategoryData,
	"terraform": schema.CategoryData, "drop": schema.CategoryData, "grant": schema.CategoryData,

	"select": schema.CategoryStatement, "update": schema.CategoryStatement,
	"delete": schema.CategoryStatement, "with": schema.CategoryStatement,
	"begin": schema.CategoryStatement,

	"#": schema.CategoryDocumentation, "heading": schema.CategoryDocumentation,
	"section": schema.CategoryDocumentation, "chapter": schema.CategoryDocumentation,
	"part": schema.CategoryDocumentation, "subsection": schema.CategoryDocumentation,
	"subsubsection": schema.CategoryDocumentation,
}
