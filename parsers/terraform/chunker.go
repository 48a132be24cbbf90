package terraform

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/sevigo/semchunk/schema"
)

// ErrInvalidHCL is returned when the file does not parse as HCL native syntax.
var ErrInvalidHCL = errors.New("invalid HCL")

// annotatedAttributes are copied onto a block's section when they hold a
// literal value.
var annotatedAttributes = []string{"source", "version", "description", "type", "region", "default"}

// Chunk reports every block as a section. Nested blocks become child
// sections so an oversized resource can still be split along them.
func (p *TerraformPlugin) Chunk(content string, path string, _ *schema.CodeChunkingOptions) ([]schema.Section, error) {
	file, diags := hclsyntax.ParseConfig([]byte(content), path, hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s: %s", ErrInvalidHCL, path, diags.Error())
	}

	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("%w: %s: unexpected body type %T", ErrInvalidHCL, path, file.Body)
	}

	var sections []schema.Section
	for _, block := range body.Blocks {
		sections = p.appendBlock(sections, block, 0)
	}

	p.logger.Debug("Terraform blocks extracted", "path", path, "blocks", len(body.Blocks), "sections", len(sections))
	return sections, nil
}

func (p *TerraformPlugin) appendBlock(sections []schema.Section, block *hclsyntax.Block, depth int) []schema.Section {
	rng := block.Range()
	annotations := map[string]string{
		"block_type": block.Type,
		"attributes": strconv.Itoa(len(block.Body.Attributes)),
	}
	for _, name := range annotatedAttributes {
		attr, ok := block.Body.Attributes[name]
		if !ok {
			continue
		}
		if value, literal := literalValue(attr); literal {
			annotations["attr."+name] = value
		}
	}

	sections = append(sections, schema.Section{
		LineStart:   rng.Start.Line,
		LineEnd:     rng.End.Line,
		Type:        block.Type,
		Identifier:  buildIdentifier(block),
		Category:    categoryFor(block.Type),
		Depth:       depth,
		Annotations: annotations,
	})
	for _, nested := range block.Body.Blocks {
		sections = p.appendBlock(sections, nested, depth+1)
	}
	return sections
}

func buildIdentifier(block *hclsyntax.Block) string {
	if len(block.Labels) == 0 {
		return block.Type
	}
	return block.Type + "." + strings.Join(block.Labels, ".")
}

func categoryFor(blockType string) schema.Category {
	switch blockType {
	case "module":
		return schema.CategoryModule
	case "resource", "data", "variable", "output", "locals", "provider", "terraform":
		return schema.CategoryData
	}
	return schema.CategoryStructural
}

// literalValue renders attributes that evaluate without any variables.
func literalValue(attr *hclsyntax.Attribute) (string, bool) {
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() || !val.IsWhollyKnown() || val.IsNull() {
		return "", false
	}

	switch val.Type() {
	case cty.String:
		return val.AsString(), true
	case cty.Number:
		var num float64
		if err := gocty.FromCtyValue(val, &num); err != nil {
			return "", false
		}
		return strconv.FormatFloat(num, 'f', -1, 64), true
	case cty.Bool:
		return strconv.FormatBool(val.True()), true
	}
	return "", false
}
