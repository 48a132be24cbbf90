// Package grammar parses tree-sitter node-types descriptors into a queryable
// model of node types, fields, supertypes and extras.
package grammar

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrGrammarNotFound is returned when no descriptor exists for a language.
var ErrGrammarNotFound = errors.New("grammar descriptor not found")

// ErrInvalidDescriptor is returned for descriptors that are not valid node-types JSON.
var ErrInvalidDescriptor = errors.New("invalid grammar descriptor")

type typeRef struct {
	Type  string `json:"type"`
	Named bool   `json:"named"`
}

type childSpec struct {
	Multiple bool      `json:"multiple"`
	Required bool      `json:"required"`
	Types    []typeRef `json:"types"`
}

type nodeEntry struct {
	Type     string               `json:"type"`
	Named    bool                 `json:"named"`
	Extra    bool                 `json:"extra"`
	Subtypes []typeRef            `json:"subtypes"`
	Fields   map[string]childSpec `json:"fields"`
	Children *childSpec           `json:"children"`
}

// FieldInfo describes one named field of a node type.
type FieldInfo struct {
	Name     string
	Required bool
	Multiple bool
	Types    []string
}

// NodeSemanticInfo is the per node-type record built from a descriptor.
type NodeSemanticInfo struct {
	Type     string
	Language string
	Named    bool
	Abstract bool
	Extra    bool
	// Supertypes lists every abstract type this node belongs to, nearest first.
	Supertypes []string
	// Subtypes lists the concrete subtypes of an abstract node, transitively.
	Subtypes         []string
	Fields           []FieldInfo
	Children         []string
	ChildrenMultiple bool
	HasChildren      bool
}

// Supertype returns the nearest abstract supertype, if any.
func (n NodeSemanticInfo) Supertype() (string, bool) {
	if len(n.Supertypes) == 0 {
		return "", false
	}
	return n.Supertypes[0], true
}

// HasField reports whether the node declares a field with the given name.
func (n NodeSemanticInfo) HasField(name string) bool {
	for _, f := range n.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// FieldNames returns the declared field names in sorted order.
func (n NodeSemanticInfo) FieldNames() []string {
	names := make([]string, len(n.Fields))
	for i, f := range n.Fields {
		names[i] = f.Name
	}
	return names
}

// Grammar is the parsed descriptor of one language. It is read-only once built.
type Grammar struct {
	Language string
	nodes    map[string]NodeSemanticInfo
	tokens   map[string]struct{}
	abstract map[string][]string
}

// Parse builds a Grammar from a node-types JSON document.
func Parse(language string, data []byte) (*Grammar, error) {
	var entries []nodeEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w for %s: %w", ErrInvalidDescriptor, language, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w for %s: no node types", ErrInvalidDescriptor, language)
	}

	g := &Grammar{
		Language: language,
		nodes:    make(map[string]NodeSemanticInfo, len(entries)),
		tokens:   make(map[string]struct{}),
		abstract: make(map[string][]string),
	}

	direct := make(map[string][]string)
	parents := make(map[string][]string)
	for _, e := range entries {
		if e.Type == "" {
			return nil, fmt.Errorf("%w for %s: entry without type", ErrInvalidDescriptor, language)
		}
		if !e.Named {
			g.tokens[e.Type] = struct{}{}
			continue
		}
		for _, sub := range e.Subtypes {
			direct[e.Type] = append(direct[e.Type], sub.Type)
			parents[sub.Type] = append(parents[sub.Type], e.Type)
		}
	}

	for _, e := range entries {
		if !e.Named {
			continue
		}
		info := NodeSemanticInfo{
			Type:     e.Type,
			Language: language,
			Named:    true,
			Abstract: len(e.Subtypes) > 0,
			Extra:    e.Extra,
		}
		for name, spec := range e.Fields {
			info.Fields = append(info.Fields, FieldInfo{
				Name:     name,
				Required: spec.Required,
				Multiple: spec.Multiple,
				Types:    refTypes(spec.Types),
			})
		}
		sort.Slice(info.Fields, func(i, j int) bool { return info.Fields[i].Name < info.Fields[j].Name })
		if e.Children != nil {
			info.HasChildren = true
			info.ChildrenMultiple = e.Children.Multiple
			info.Children = refTypes(e.Children.Types)
		}
		info.Supertypes = ancestors(e.Type, parents)
		if info.Abstract {
			info.Subtypes = concreteSubtypes(e.Type, direct)
			g.abstract[e.Type] = info.Subtypes
		}
		g.nodes[e.Type] = info
	}

	// Subtypes referenced only from supertype lists still get a record so
	// lookups resolve their supertype chain.
	for child := range parents {
		if _, ok := g.nodes[child]; ok {
			continue
		}
		if _, ok := g.tokens[child]; ok {
			continue
		}
		g.nodes[child] = NodeSemanticInfo{
			Type:       child,
			Language:   language,
			Named:      true,
			Supertypes: ancestors(child, parents),
		}
	}
	return g, nil
}

// Node returns the record for a named node type.
func (g *Grammar) Node(nodeType string) (NodeSemanticInfo, bool) {
	info, ok := g.nodes[nodeType]
	return info, ok
}

// IsToken reports whether nodeType is an anonymous token of the grammar.
func (g *Grammar) IsToken(nodeType string) bool {
	_, ok := g.tokens[nodeType]
	return ok
}

// NodeTypes returns every named node type in sorted order.
func (g *Grammar) NodeTypes() []string {
	types := make([]string, 0, len(g.nodes))
	for t := range g.nodes {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// AbstractTypes maps each abstract type to its concrete subtypes.
func (g *Grammar) AbstractTypes() map[string][]string {
	out := make(map[string][]string, len(g.abstract))
	for k, v := range g.abstract {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// NormalizeAbstract strips the hidden-rule underscore from an abstract type name.
func NormalizeAbstract(name string) string {
	return strings.TrimPrefix(name, "_")
}

func refTypes(refs []typeRef) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		if r.Named {
			out = append(out, r.Type)
		}
	}
	return out
}

// ancestors walks the supertype graph breadth first so the nearest
// supertype comes first.
func ancestors(nodeType string, parents map[string][]string) []string {
	var out []string
	seen := map[string]bool{nodeType: true}
	queue := append([]string(nil), parents[nodeType]...)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if seen[next] {
			continue
		}
		seen[next] = true
		out = append(out, next)
		queue = append(queue, parents[next]...)
	}
	return out
}

func concreteSubtypes(abstract string, direct map[string][]string) []string {
	var out []string
	seen := map[string]bool{abstract: true}
	var walk func(string)
	walk = func(t string) {
		for _, sub := range direct[t] {
			if seen[sub] {
				continue
			}
			seen[sub] = true
			if _, isAbstract := direct[sub]; isAbstract {
				walk(sub)
				continue
			}
			out = append(out, sub)
		}
	}
	walk(abstract)
	sort.Strings(out)
	return out
}
