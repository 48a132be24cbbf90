package grammar

import (
	"github.com/sevigo/semchunk/schema"
)

// fieldCategoryFrequencies records, for field names that recur across
// grammars, how often a node carrying that field belongs to each category.
// The figures were tallied once over the node-types of the bundled grammars
// and are kept as constant data.
var fieldCategoryFrequencies = map[string]map[schema.Category]float64{
	"parameters":      {schema.CategoryCallable: 0.88, schema.CategoryTypeExpression: 0.07, schema.CategoryExpression: 0.05},
	"return_type":     {schema.CategoryCallable: 0.85, schema.CategoryTypeExpression: 0.15},
	"result":          {schema.CategoryCallable: 0.80, schema.CategoryTypeExpression: 0.20},
	"receiver":        {schema.CategoryCallable: 1.00},
	"body":            {schema.CategoryCallable: 0.42, schema.CategoryTypeDefinition: 0.22, schema.CategoryControlFlow: 0.30, schema.CategoryModule: 0.06},
	"type_parameters": {schema.CategoryCallable: 0.45, schema.CategoryTypeDefinition: 0.50, schema.CategoryTypeExpression: 0.05},
	"superclass":      {schema.CategoryTypeDefinition: 1.00},
	"superclasses":    {schema.CategoryTypeDefinition: 1.00},
	"interfaces":      {schema.CategoryTypeDefinition: 1.00},
	"bounds":          {schema.CategoryTypeDefinition: 0.70, schema.CategoryTypeExpression: 0.30},
	"trait":           {schema.CategoryTypeDefinition: 0.80, schema.CategoryTypeExpression: 0.20},
	"member":          {schema.CategoryStructural: 1.00},
	"condition":       {schema.CategoryControlFlow: 0.92, schema.CategoryExpression: 0.08},
	"consequence":     {schema.CategoryControlFlow: 0.80, schema.CategoryExpression: 0.20},
	"alternative":     {schema.CategoryControlFlow: 0.80, schema.CategoryExpression: 0.20},
	"initializer":     {schema.CategoryControlFlow: 0.85, schema.CategoryStatement: 0.15},
	"update":          {schema.CategoryControlFlow: 1.00},
	"increment":       {schema.CategoryControlFlow: 1.00},
	"handler":         {schema.CategoryControlFlow: 1.00},
	"finalizer":       {schema.CategoryControlFlow: 1.00},
	"subject":         {schema.CategoryControlFlow: 1.00},
	"operator":        {schema.CategoryOperation: 0.95, schema.CategoryStatement: 0.05},
	"operators":       {schema.CategoryOperation: 1.00},
	"left":            {schema.CategoryOperation: 0.60, schema.CategoryStatement: 0.25, schema.CategoryControlFlow: 0.15},
	"right":           {schema.CategoryOperation: 0.60, schema.CategoryStatement: 0.25, schema.CategoryControlFlow: 0.15},
	"operand":         {schema.CategoryOperation: 0.55, schema.CategoryExpression: 0.45},
	"argument":        {schema.CategoryOperation: 0.60, schema.CategoryModule: 0.20, schema.CategoryExpression: 0.20},
	"function":        {schema.CategoryExpression: 1.00},
	"arguments":       {schema.CategoryExpression: 0.90, schema.CategoryStructural: 0.10},
	"object":          {schema.CategoryExpression: 1.00},
	"property":        {schema.CategoryExpression: 0.70, schema.CategoryData: 0.30},
	"index":           {schema.CategoryExpression: 1.00},
	"declarator":      {schema.CategoryData: 1.00},
	"value":           {schema.CategoryData: 0.55, schema.CategoryExpression: 0.30, schema.CategoryControlFlow: 0.15},
	"kind":            {schema.CategoryData: 1.00},
	"path":            {schema.CategoryModule: 0.75, schema.CategoryExpression: 0.25},
	"source":          {schema.CategoryModule: 1.00},
	"module_name":     {schema.CategoryModule: 1.00},
	"module":          {schema.CategoryModule: 0.70, schema.CategoryTypeExpression: 0.30},
	"alias":           {schema.CategoryModule: 0.70, schema.CategoryControlFlow: 0.30},
	"pattern":         {schema.CategoryPattern: 0.70, schema.CategoryData: 0.30},
	"element":         {schema.CategoryTypeExpression: 1.00},
	"key":             {schema.CategoryTypeExpression: 0.40, schema.CategoryData: 0.60},
	"type_arguments":  {schema.CategoryTypeExpression: 0.60, schema.CategoryExpression: 0.40},
}

// FieldCategories returns the category frequencies observed for a field name.
// The returned map is a copy.
func FieldCategories(field string) (map[schema.Category]float64, bool) {
	freqs, ok := fieldCategoryFrequencies[field]
	if !ok {
		return nil, false
	}
	out := make(map[schema.Category]float64, len(freqs))
	for k, v := range freqs {
		out[k] = v
	}
	return out, true
}

// FieldCategoryFrequencies returns a copy of the whole table.
func FieldCategoryFrequencies() map[string]map[schema.Category]float64 {
	out := make(map[string]map[schema.Category]float64, len(fieldCategoryFrequencies))
	for field := range fieldCategoryFrequencies {
		out[field], _ = FieldCategories(field)
	}
	return out
}
