package schema

import "fmt"

// Category is the semantic kind of a syntactic construct.
type Category string

const (
	CategoryCallable       Category = "definition_callable"
	CategoryTypeDefinition Category = "definition_type"
	CategoryData           Category = "definition_data"
	CategoryModule         Category = "module_boundary"
	CategoryControlFlow    Category = "control_flow"
	CategoryStatement      Category = "statement"
	CategoryExpression     Category = "expression"
	CategoryOperation      Category = "operation"
	CategoryTypeExpression Category = "type_expression"
	CategoryPattern        Category = "pattern"
	CategoryLiteral        Category = "literal"
	CategoryStructural     Category = "structural"
	CategoryDocumentation  Category = "documentation"
	CategorySyntax         Category = "syntax"
	CategoryUnknown        Category = "unknown"
)

// Tier is the importance of a construct. Lower values are more important.
type Tier int

const (
	TierCritical Tier = iota + 1
	TierHigh
	TierMedium
	TierLow
	TierSyntax
)

var tierNames = map[Tier]string{
	TierCritical: "critical",
	TierHigh:     "high",
	TierMedium:   "medium",
	TierLow:      "low",
	TierSyntax:   "syntax",
}

func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// ParseTier maps a tier name back to its value.
func ParseTier(name string) (Tier, error) {
	for tier, n := range tierNames {
		if n == name {
			return tier, nil
		}
	}
	return 0, fmt.Errorf("unknown tier %q", name)
}

// DefaultTier returns the importance tier a category maps to.
func (c Category) DefaultTier() Tier {
	switch c {
	case CategoryCallable, CategoryTypeDefinition:
		return TierCritical
	case CategoryData, CategoryModule:
		return TierHigh
	case CategoryControlFlow, CategoryStatement, CategoryStructural:
		return TierMedium
	case CategoryExpression, CategoryOperation, CategoryTypeExpression, CategoryPattern, CategoryLiteral:
		return TierLow
	default:
		return TierSyntax
	}
}

// Method tags which classification stage produced a result.
type Method string

const (
	MethodAbstractType      Method = "abstract_type"
	MethodFieldInference    Method = "field_inference"
	MethodChildren          Method = "children"
	MethodExtra             Method = "extra"
	MethodPatternFallback   Method = "pattern_fallback"
	MethodLanguageExtension Method = "language_extension"
	// MethodDelimiter marks chunks produced without a syntax tree.
	MethodDelimiter Method = "delimiter"
)
