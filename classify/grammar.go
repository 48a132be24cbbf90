package classify

import (
	"sort"
	"strings"

	"github.com/sevigo/semchunk/grammar"
	"github.com/sevigo/semchunk/schema"
)

const (
	abstractConfidence       = 0.90
	fieldConfidence          = 0.85
	repeatedChildConfidence  = 0.70
	singleChildConfidence    = 0.65
	extraConfidence          = 0.95
	minFieldInferenceSupport = 0.5
)

// universal categories shared by most grammars' abstract types.
const (
	universalDeclaration = "declaration"
	universalStatement   = "statement"
	universalExpression  = "expression"
	universalLiteral     = "literal"
	universalPattern     = "pattern"
	universalType        = "type"
)

var universalOrder = []string{
	universalDeclaration,
	universalStatement,
	universalExpression,
	universalLiteral,
	universalPattern,
	universalType,
}

var (
	moduleWords   = []string{"import", "export", "package", "module", "namespace", "use", "mod", "extern", "include", "require"}
	typeWords     = []string{"class", "struct", "interface", "enum", "trait", "union", "record", "impl", "type", "protocol"}
	callableWords = []string{"function", "method", "constructor", "fn", "func", "lambda", "closure", "procedure"}
	controlWords  = []string{"if", "for", "while", "switch", "match", "try", "loop", "select", "do", "with", "case", "catch", "except"}
	definingWords = []string{"declaration", "definition", "item", "import", "export", "package", "use"}
)

// controlFields mark a node as branching or looping.
var controlFields = []string{"condition", "consequence", "alternative", "initializer", "update", "increment", "handler", "finalizer", "subject"}

// GrammarClassifier classifies nodes from the grammar descriptor alone.
type GrammarClassifier struct {
	grammars *grammar.Registry
}

func NewGrammarClassifier(grammars *grammar.Registry) *GrammarClassifier {
	return &GrammarClassifier{grammars: grammars}
}

// Classify applies the abstract-type, field, children and extra rules in
// order and stops at the first that applies.
func (c *GrammarClassifier) Classify(node NodeContext) (Result, bool) {
	if c.grammars == nil || !node.Named {
		return Result{}, false
	}
	info, ok := c.grammars.NodeInfo(node.Type, node.Language)
	if !ok {
		return Result{}, false
	}
	if res, ok := classifyAbstract(info); ok {
		return res, true
	}
	if res, ok := classifyFields(info); ok {
		return res, true
	}
	if res, ok := classifyChildren(info); ok {
		return res, true
	}
	if info.Extra {
		return classifyExtra(info), true
	}
	return Result{}, false
}

func universalOf(abstract string) (string, bool) {
	name := grammar.NormalizeAbstract(abstract)
	for _, u := range universalOrder {
		if name == u {
			return u, true
		}
	}
	parts := strings.Split(name, "_")
	for _, u := range universalOrder {
		for _, p := range parts {
			if p == u {
				return u, true
			}
		}
	}
	return "", false
}

func classifyAbstract(info grammar.NodeSemanticInfo) (Result, bool) {
	if info.Abstract {
		// Supertypes themselves never appear in a tree, but classify them for
		// completeness.
		if u, ok := universalOf(info.Type); ok {
			return newResult(universalCategory(u), abstractConfidence, schema.MethodAbstractType, "abstract "+info.Type), true
		}
		return Result{}, false
	}
	for _, super := range info.Supertypes {
		u, ok := universalOf(super)
		if !ok {
			continue
		}
		evidence := "subtype of " + super
		switch u {
		case universalDeclaration:
			return newResult(refineDeclaration(info), abstractConfidence, schema.MethodAbstractType, evidence), true
		case universalStatement:
			return newResult(refineStatement(info), abstractConfidence, schema.MethodAbstractType, evidence), true
		case universalExpression:
			return newResult(refineExpression(info), abstractConfidence, schema.MethodAbstractType, evidence), true
		default:
			return newResult(universalCategory(u), abstractConfidence, schema.MethodAbstractType, evidence), true
		}
	}
	return Result{}, false
}

func universalCategory(u string) schema.Category {
	switch u {
	case universalDeclaration:
		return schema.CategoryData
	case universalStatement:
		return schema.CategoryStatement
	case universalExpression:
		return schema.CategoryExpression
	case universalLiteral:
		return schema.CategoryLiteral
	case universalPattern:
		return schema.CategoryPattern
	case universalType:
		return schema.CategoryTypeExpression
	}
	return schema.CategoryUnknown
}

func refineDeclaration(info grammar.NodeSemanticInfo) schema.Category {
	switch {
	case info.HasField("receiver"), info.HasField("parameters") && info.HasField("body"):
		return schema.CategoryCallable
	case nameHasWord(info.Type, moduleWords...):
		return schema.CategoryModule
	case nameHasWord(info.Type, typeWords...):
		return schema.CategoryTypeDefinition
	case nameHasWord(info.Type, callableWords...), info.HasField("parameters"):
		return schema.CategoryCallable
	}
	if cat, _, ok := scoreFields(info, schema.CategoryCallable, schema.CategoryTypeDefinition, schema.CategoryModule); ok {
		return cat
	}
	return schema.CategoryData
}

func refineStatement(info grammar.NodeSemanticInfo) schema.Category {
	if nameHasWord(info.Type, definingWords...) {
		return refineDeclaration(info)
	}
	for _, f := range controlFields {
		if info.HasField(f) {
			return schema.CategoryControlFlow
		}
	}
	if nameHasWord(info.Type, controlWords...) {
		return schema.CategoryControlFlow
	}
	return schema.CategoryStatement
}

func refineExpression(info grammar.NodeSemanticInfo) schema.Category {
	switch {
	case info.HasField("parameters") && info.HasField("body"):
		return schema.CategoryCallable
	case info.HasField("operator") || info.HasField("operators"):
		return schema.CategoryOperation
	case info.HasField("condition") && info.HasField("consequence"):
		return schema.CategoryControlFlow
	case nameHasWord(info.Type, controlWords...):
		return schema.CategoryControlFlow
	}
	return schema.CategoryExpression
}

func classifyFields(info grammar.NodeSemanticInfo) (Result, bool) {
	if len(info.Fields) == 0 {
		return Result{}, false
	}
	switch {
	case info.HasField("receiver"), info.HasField("parameters") && info.HasField("body"):
		return newResult(schema.CategoryCallable, fieldConfidence, schema.MethodFieldInference, "fields parameters+body"), true
	case info.HasField("condition"):
		return newResult(schema.CategoryControlFlow, fieldConfidence, schema.MethodFieldInference, "field condition"), true
	case info.HasField("operator"), info.HasField("operators"):
		return newResult(schema.CategoryOperation, fieldConfidence, schema.MethodFieldInference, "field operator"), true
	}
	cat, support, ok := scoreFields(info)
	if !ok {
		return Result{}, false
	}
	evidence := "fields " + strings.Join(info.FieldNames(), ",")
	// Weak support lowers confidence without dropping below the children rule.
	conf := fieldConfidence
	if support < 1 {
		conf -= 0.1 * (1 - support)
	}
	return newResult(cat, conf, schema.MethodFieldInference, evidence), true
}

// scoreFields sums the frequency table over the node's fields and returns the
// dominant category. allowed restricts the candidates when non-empty.
func scoreFields(info grammar.NodeSemanticInfo, allowed ...schema.Category) (schema.Category, float64, bool) {
	scores := make(map[schema.Category]float64)
	for _, f := range info.Fields {
		freqs, ok := grammar.FieldCategories(f.Name)
		if !ok {
			continue
		}
		for cat, w := range freqs {
			scores[cat] += w
		}
	}
	if len(allowed) > 0 {
		filtered := make(map[schema.Category]float64, len(allowed))
		for _, cat := range allowed {
			if s, ok := scores[cat]; ok {
				filtered[cat] = s
			}
		}
		scores = filtered
	}
	if len(scores) == 0 {
		return "", 0, false
	}

	cats := make([]schema.Category, 0, len(scores))
	for cat := range scores {
		cats = append(cats, cat)
	}
	// Stable tie-break on the category name.
	sort.Slice(cats, func(i, j int) bool {
		if scores[cats[i]] != scores[cats[j]] {
			return scores[cats[i]] > scores[cats[j]]
		}
		return cats[i] < cats[j]
	})
	best := cats[0]
	if scores[best] < minFieldInferenceSupport {
		return "", 0, false
	}
	return best, scores[best], true
}

func classifyChildren(info grammar.NodeSemanticInfo) (Result, bool) {
	if !info.HasChildren {
		return Result{}, false
	}
	conf := singleChildConfidence
	evidence := "single child constraint"
	if info.ChildrenMultiple {
		conf = repeatedChildConfidence
		evidence = "repeated children constraint"
	}
	return newResult(schema.CategoryStructural, conf, schema.MethodChildren, evidence), true
}

func classifyExtra(info grammar.NodeSemanticInfo) Result {
	if strings.Contains(info.Type, "comment") {
		res := newResult(schema.CategoryDocumentation, extraConfidence, schema.MethodExtra, "extra node")
		res.Tier = schema.TierSyntax
		return res
	}
	return newResult(schema.CategorySyntax, extraConfidence, schema.MethodExtra, "extra node")
}
