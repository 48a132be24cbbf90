// Package classify maps syntax node types to a semantic category and
// importance tier. Classifiers are chained by Router: language extension,
// then grammar descriptor, then name patterns.
package classify

import (
	"fmt"
	"strings"

	"github.com/sevigo/semchunk/schema"
)

// NodeContext is the plain description of a node handed to classifiers.
type NodeContext struct {
	Type        string
	Language    string
	Named       bool
	Parent      string
	PrevSibling string
	NextSibling string
	ChildTypes  []string
}

// Result is the outcome of one classification. Values are never shared.
type Result struct {
	Category   schema.Category
	Tier       schema.Tier
	Confidence float64
	Method     schema.Method
	Evidence   string
}

// Classifier is one stage of the chain. ok is false when the stage has no
// opinion about the node.
type Classifier interface {
	Classify(node NodeContext) (res Result, ok bool)
}

func newResult(category schema.Category, confidence float64, method schema.Method, evidence string) Result {
	return Result{
		Category:   category,
		Tier:       category.DefaultTier(),
		Confidence: clamp(confidence),
		Method:     method,
		Evidence:   evidence,
	}
}

// Recategorize returns a copy of r with a new category and its default tier.
func (r Result) Recategorize(category schema.Category, evidence string) Result {
	r.Category = category
	r.Tier = category.DefaultTier()
	if evidence != "" {
		r.Evidence = joinEvidence(r.Evidence, evidence)
	}
	return r
}

// Adjust returns a copy of r with its confidence shifted by delta.
func (r Result) Adjust(delta float64, evidence string) Result {
	r.Confidence = clamp(r.Confidence + delta)
	if evidence != "" {
		r.Evidence = joinEvidence(r.Evidence, evidence)
	}
	return r
}

// Metadata converts the result into chunk metadata for a node.
func (r Result) Metadata(nodeType string) schema.SemanticMetadata {
	return schema.SemanticMetadata{
		Category:   r.Category,
		Tier:       r.Tier,
		Confidence: r.Confidence,
		Method:     r.Method,
		Evidence:   r.Evidence,
		NodeType:   nodeType,
	}
}

func (r Result) String() string {
	return fmt.Sprintf("%s/%s %.2f (%s)", r.Category, r.Tier, r.Confidence, r.Method)
}

func joinEvidence(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func hasChild(node NodeContext, types ...string) (string, bool) {
	for _, child := range node.ChildTypes {
		for _, t := range types {
			if child == t {
				return child, true
			}
		}
	}
	return "", false
}

func nameHasWord(nodeType string, words ...string) bool {
	for _, part := range strings.Split(nodeType, "_") {
		for _, w := range words {
			if part == w {
				return true
			}
		}
	}
	return false
}
