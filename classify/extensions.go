package classify

import (
	"github.com/sevigo/semchunk/schema"
)

const (
	overrideConfidence = 0.95
	refineBoost        = 0.03
)

// Extension carries language-specific knowledge. Override may claim a node
// outright; Refine adjusts a result produced by a later stage.
type Extension interface {
	Languages() []string
	Override(node NodeContext) (Result, bool)
	Refine(node NodeContext, prior Result) Result
}

// DefaultExtensions returns the built-in language extensions.
func DefaultExtensions() []Extension {
	return []Extension{
		goExtension{},
		pythonExtension{},
		javascriptExtension{},
		rustExtension{},
		javaExtension{},
	}
}

func override(category schema.Category, evidence string) (Result, bool) {
	return newResult(category, overrideConfidence, schema.MethodLanguageExtension, evidence), true
}

type goExtension struct{}

func (goExtension) Languages() []string { return []string{"go"} }

func (goExtension) Override(node NodeContext) (Result, bool) {
	switch node.Type {
	case "package_clause", "import_declaration":
		return override(schema.CategoryModule, "go "+node.Type)
	case "type_declaration":
		if _, ok := hasChild(node, "type_spec", "type_alias"); ok {
			return override(schema.CategoryTypeDefinition, "go type declaration")
		}
	}
	return Result{}, false
}

func (goExtension) Refine(node NodeContext, prior Result) Result {
	switch {
	case node.Type == "method_declaration":
		return prior.Recategorize(schema.CategoryCallable, "method with receiver").Adjust(refineBoost, "")
	case node.Type == "func_literal" && (node.Parent == "var_spec" || node.Parent == "expression_list"):
		return prior.Adjust(refineBoost, "function value")
	}
	return prior
}

type pythonExtension struct{}

func (pythonExtension) Languages() []string { return []string{"python"} }

func (pythonExtension) Override(node NodeContext) (Result, bool) {
	switch node.Type {
	case "decorated_definition":
		if _, ok := hasChild(node, "class_definition"); ok {
			return override(schema.CategoryTypeDefinition, "decorated class")
		}
		if _, ok := hasChild(node, "function_definition"); ok {
			return override(schema.CategoryCallable, "decorated function")
		}
	case "expression_statement":
		if len(node.ChildTypes) == 1 && node.ChildTypes[0] == "string" && node.PrevSibling == "" {
			res, _ := override(schema.CategoryDocumentation, "docstring")
			return res, true
		}
		if node.Parent == "module" {
			if _, ok := hasChild(node, "assignment"); ok {
				return override(schema.CategoryData, "module level assignment")
			}
		}
	}
	return Result{}, false
}

func (pythonExtension) Refine(node NodeContext, prior Result) Result {
	if node.Type == "function_definition" && node.Parent == "block" && prior.Category == schema.CategoryCallable {
		return prior.Adjust(refineBoost, "nested or method definition")
	}
	return prior
}

type javascriptExtension struct{}

func (javascriptExtension) Languages() []string {
	return []string{"javascript", "jsx", "typescript", "tsx"}
}

func (javascriptExtension) Override(node NodeContext) (Result, bool) {
	switch node.Type {
	case "variable_declarator":
		if _, ok := hasChild(node, "arrow_function", "function_expression", "function", "generator_function"); ok {
			return override(schema.CategoryCallable, "function bound to variable")
		}
		if _, ok := hasChild(node, "class"); ok {
			return override(schema.CategoryTypeDefinition, "class bound to variable")
		}
	case "export_statement":
		if _, ok := hasChild(node, "function_declaration", "generator_function_declaration", "function_signature"); ok {
			return override(schema.CategoryCallable, "exported function")
		}
		if _, ok := hasChild(node, "class_declaration", "abstract_class_declaration", "interface_declaration", "type_alias_declaration", "enum_declaration"); ok {
			return override(schema.CategoryTypeDefinition, "exported type")
		}
		if _, ok := hasChild(node, "lexical_declaration", "variable_declaration"); ok {
			return override(schema.CategoryData, "exported binding")
		}
		return override(schema.CategoryModule, "re-export")
	}
	return Result{}, false
}

func (javascriptExtension) Refine(node NodeContext, prior Result) Result {
	if node.Type == "method_definition" && prior.Category == schema.CategoryCallable {
		return prior.Adjust(refineBoost, "class method")
	}
	return prior
}

type rustExtension struct{}

func (rustExtension) Languages() []string { return []string{"rust"} }

func (rustExtension) Override(node NodeContext) (Result, bool) {
	switch node.Type {
	case "attribute_item", "inner_attribute_item":
		return override(schema.CategorySyntax, "attribute")
	case "empty_statement":
		return override(schema.CategorySyntax, "empty statement")
	case "macro_invocation":
		if node.Parent == "source_file" || node.Parent == "declaration_list" {
			return override(schema.CategoryData, "item-level macro")
		}
		return override(schema.CategoryExpression, "macro call")
	case "macro_definition":
		return override(schema.CategoryCallable, "macro_rules definition")
	}
	return Result{}, false
}

func (rustExtension) Refine(node NodeContext, prior Result) Result {
	if node.Type == "impl_item" {
		if _, ok := hasChild(node, "declaration_list"); ok {
			return prior.Adjust(refineBoost, "impl block")
		}
	}
	if node.Type == "function_item" && node.Parent == "declaration_list" {
		return prior.Adjust(refineBoost, "associated function")
	}
	return prior
}

type javaExtension struct{}

func (javaExtension) Languages() []string { return []string{"java"} }

func (javaExtension) Override(node NodeContext) (Result, bool) {
	switch node.Type {
	case "record_declaration", "annotation_type_declaration":
		return override(schema.CategoryTypeDefinition, "java "+node.Type)
	case "static_initializer":
		return override(schema.CategoryCallable, "static initializer")
	case "modifiers":
		return override(schema.CategorySyntax, "modifiers")
	}
	return Result{}, false
}

func (javaExtension) Refine(node NodeContext, prior Result) Result {
	if node.Type == "method_declaration" && node.Parent == "interface_body" {
		if _, ok := hasChild(node, "block"); !ok {
			return prior.Adjust(-refineBoost, "abstract interface method")
		}
	}
	return prior
}
