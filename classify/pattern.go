package classify

import (
	"regexp"

	"github.com/sevigo/semchunk/schema"
)

const (
	maxPatternConfidence  = 0.65
	catchAllConfidence    = 0.20
	anonymousConfidence   = 0.30
	contextBoost          = 0.05
	patternEvidencePrefix = "matched "
)

type patternRule struct {
	re         *regexp.Regexp
	category   schema.Category
	confidence float64
}

// Rules are tried in order; more specific shapes come first.
var patternRules = []patternRule{
	{regexp.MustCompile(`comment|docstring|^doc_`), schema.CategoryDocumentation, 0.60},
	{regexp.MustCompile(`_(body|list|block)$`), schema.CategoryStructural, 0.40},
	{regexp.MustCompile(`^(function|method|constructor|procedure|subroutine|macro)_(definition|declaration|item|def|signature)$`), schema.CategoryCallable, 0.60},
	{regexp.MustCompile(`^(func|fn|def|defun|defn|lambda|closure|arrow_function|function|method|sub)(_|$)`), schema.CategoryCallable, 0.55},
	{regexp.MustCompile(`(^|_)(class|struct|interface|enum|trait|union|record|protocol|impl|object|module_type)(_|$)`), schema.CategoryTypeDefinition, 0.55},
	{regexp.MustCompile(`^type_(spec|alias|def|definition|declaration|item)$`), schema.CategoryTypeDefinition, 0.55},
	{regexp.MustCompile(`(^|_)(import|include|require|use|using|package|namespace|export|library|extern)(_|$)`), schema.CategoryModule, 0.50},
	{regexp.MustCompile(`(^|_)(if|else|elif|elsif|unless|for|foreach|while|until|loop|do|switch|case|match|when|try|catch|rescue|except|finally|select|guard)(_|$)`), schema.CategoryControlFlow, 0.50},
	{regexp.MustCompile(`(^|_)(var|variable|const|constant|let|field|property|attribute|setting|assignment|declaration|definition)(_|$)`), schema.CategoryData, 0.45},
	{regexp.MustCompile(`statement$`), schema.CategoryStatement, 0.45},
	{regexp.MustCompile(`(^|_)(binary|unary|operator|infix|prefix|postfix|update)(_|$)`), schema.CategoryOperation, 0.40},
	{regexp.MustCompile(`(^|_)(call|invocation|expression|subscript|member|selector|index|access)(_|$)`), schema.CategoryExpression, 0.40},
	{regexp.MustCompile(`(^|_)(literal|string|number|integer|int|float|boolean|bool|true|false|null|nil|none|char|rune|heredoc)(_|$)`), schema.CategoryLiteral, 0.40},
	{regexp.MustCompile(`pattern`), schema.CategoryPattern, 0.40},
	{regexp.MustCompile(`(^|_)type(s)?(_|$)`), schema.CategoryTypeExpression, 0.40},
	{regexp.MustCompile(`(^|_)(block|body|list|program|source_file|module|document|section|clause|chunk|suite|group)(_|$)`), schema.CategoryStructural, 0.35},
	{regexp.MustCompile(`identifier|name$|^word$`), schema.CategoryExpression, 0.35},
}

var containerParent = regexp.MustCompile(`(^|_)(class|interface|impl|trait|object|enum)_?(body|declaration_list|definition)?$|^declaration_list$|^class_body$|^interface_body$|^field_declaration_list$`)

var annotationSibling = regexp.MustCompile(`decorator|annotation|attribute|comment`)

// PatternClassifier classifies any node type from its name and position. It
// always returns a result.
type PatternClassifier struct{}

func NewPatternClassifier() *PatternClassifier {
	return &PatternClassifier{}
}

func (c *PatternClassifier) Classify(node NodeContext) (Result, bool) {
	if !node.Named {
		return newResult(schema.CategorySyntax, anonymousConfidence, schema.MethodPatternFallback, "anonymous token"), true
	}

	res := newResult(schema.CategoryUnknown, catchAllConfidence, schema.MethodPatternFallback, "no pattern matched")
	if rule, ok := matchRule(node.Type); ok {
		res = newResult(rule.category, rule.confidence, schema.MethodPatternFallback, patternEvidencePrefix+rule.re.String())
	}
	return refineByPosition(node, res), true
}

func matchRule(nodeType string) (patternRule, bool) {
	for _, rule := range patternRules {
		if rule.re.MatchString(nodeType) {
			return rule, true
		}
	}
	return patternRule{}, false
}

func refineByPosition(node NodeContext, res Result) Result {
	switch res.Category {
	case schema.CategoryCallable:
		if containerParent.MatchString(node.Parent) {
			res = res.Adjust(contextBoost, "inside "+node.Parent)
		}
	case schema.CategoryStructural:
		// A body directly under a definition belongs to it.
		if parent, ok := matchRule(node.Parent); ok && parent.category.DefaultTier() == schema.TierCritical {
			res = res.Adjust(contextBoost, "body of "+node.Parent)
		}
	case schema.CategoryExpression:
		if node.Parent != "" && node.Parent == node.Type {
			res = res.Adjust(-contextBoost, "nested "+node.Type)
		}
	}
	if res.Tier <= schema.TierHigh && annotationSibling.MatchString(node.PrevSibling) {
		res = res.Adjust(contextBoost, "preceded by "+node.PrevSibling)
	}
	if res.Confidence > maxPatternConfidence {
		res.Confidence = maxPatternConfidence
	}
	return res
}
