package config

import (
	"math/big"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
)

// decodeHCL turns an HCL file into plain sections. Attributes become values,
// blocks become maps keyed by their type and then by each label. Repeated
// unlabeled blocks of one type become a list. Expressions are evaluated
// without variables or functions, so "${" must be written "$${" to reach
// reference expansion.
func decodeHCL(data []byte, filename string) (map[string]any, error) {
	file, diags := hclparse.NewParser().ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, diags
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, errors.Errorf("unexpected HCL body type %T", file.Body)
	}
	return hclBody(body)
}

func hclBody(body *hclsyntax.Body) (map[string]any, error) {
	out := make(map[string]any, len(body.Attributes)+len(body.Blocks))
	for name, attr := range body.Attributes {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, diags
		}
		v, err := ctyToGo(val)
		if err != nil {
			return nil, errors.Wrapf(err, "attribute %q", name)
		}
		out[name] = v
	}

	unlabeled := make(map[string][]any)
	for _, block := range body.Blocks {
		inner, err := hclBody(block.Body)
		if err != nil {
			return nil, err
		}
		if _, clash := body.Attributes[block.Type]; clash {
			return nil, blockError(block, "is also defined as an attribute")
		}
		if len(block.Labels) == 0 {
			unlabeled[block.Type] = append(unlabeled[block.Type], inner)
			continue
		}

		parent, ok := out[block.Type].(map[string]any)
		if !ok {
			if _, exists := out[block.Type]; exists {
				return nil, blockError(block, "mixes labeled and unlabeled blocks")
			}
			parent = make(map[string]any)
			out[block.Type] = parent
		}
		for _, label := range block.Labels[:len(block.Labels)-1] {
			next, ok := parent[label].(map[string]any)
			if !ok {
				next = make(map[string]any)
				parent[label] = next
			}
			parent = next
		}
		last := block.Labels[len(block.Labels)-1]
		if _, dup := parent[last]; dup {
			return nil, blockError(block, "is defined more than once")
		}
		parent[last] = inner
	}

	for blockType, blocks := range unlabeled {
		if _, exists := out[blockType]; exists {
			return nil, errors.Errorf("block %q mixes labeled and unlabeled blocks", blockType)
		}
		if len(blocks) == 1 {
			out[blockType] = blocks[0]
		} else {
			out[blockType] = blocks
		}
	}
	return out, nil
}

func blockError(block *hclsyntax.Block, msg string) error {
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  "Invalid block",
		Detail:   "Block " + block.Type + " " + msg + ".",
		Subject:  block.DefRange().Ptr(),
	}
}

func ctyToGo(v cty.Value) (any, error) {
	if !v.IsWhollyKnown() {
		return nil, errors.New("value is not known")
	}
	if v.IsNull() {
		return nil, nil
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil
	case ty == cty.Bool:
		return v.True(), nil
	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return i, nil
			}
		}
		f, _ := bf.Float64()
		return f, nil
	case ty.IsListType(), ty.IsSetType(), ty.IsTupleType():
		list := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			converted, err := ctyToGo(elem)
			if err != nil {
				return nil, err
			}
			list = append(list, converted)
		}
		return list, nil
	case ty.IsMapType(), ty.IsObjectType():
		m := make(map[string]any, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			key, elem := it.Element()
			converted, err := ctyToGo(elem)
			if err != nil {
				return nil, err
			}
			m[key.AsString()] = converted
		}
		return m, nil
	default:
		return nil, errors.Errorf("unsupported value type %s", ty.FriendlyName())
	}
}
