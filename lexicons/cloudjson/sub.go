// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package cloudjson

import (
	"fmt"
	"slices"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/platform-engineering-labs/lexica/pkg/entity"
	"github.com/platform-engineering-labs/lexica/pkg/lexicon"
)

var _ entity.Intrinsic = Sub{}
var _ lexicon.FunctionProvider = (*Lexicon)(nil)

// Sub is the string-interpolation intrinsic. It renders to Fn::Sub,
// walking its variable values through the caller's recursion so references
// inside variables serialize natively.
type Sub struct {
	Template  string
	Variables map[string]any
}

func (s Sub) Render(walk func(any) (any, error)) (any, error) {
	if len(s.Variables) == 0 {
		return map[string]any{"Fn::Sub": s.Template}, nil
	}

	keys := make([]string, 0, len(s.Variables))
	for k := range s.Variables {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	vars := make(map[string]any, len(s.Variables))
	for _, k := range keys {
		walked, err := walk(s.Variables[k])
		if err != nil {
			return nil, err
		}
		vars[k] = walked
	}

	return map[string]any{"Fn::Sub": []any{s.Template, vars}}, nil
}

// Functions exposes intrinsic constructors to source-unit expressions:
// sub("arn:aws:s3:::${Bucket}", { Bucket = attr.bucket.Arn }).
func (l *Lexicon) Functions() map[string]function.Function {
	return map[string]function.Function{
		"sub": function.New(&function.Spec{
			Params: []function.Parameter{
				{Name: "template", Type: cty.String},
			},
			VarParam: &function.Parameter{
				Name:             "variables",
				Type:             cty.DynamicPseudoType,
				AllowDynamicType: true,
			},
			Type: func(args []cty.Value) (cty.Type, error) {
				return lexicon.IntrinsicVal(Sub{}).Type(), nil
			},
			Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
				sub := Sub{Template: args[0].AsString()}
				if len(args) > 1 {
					vars := make(map[string]any)
					for name, val := range args[1].AsValueMap() {
						decoded, err := decodeCtyArg(val)
						if err != nil {
							return cty.NilVal, err
						}
						vars[name] = decoded
					}
					sub.Variables = vars
				}
				return lexicon.IntrinsicVal(sub), nil
			},
		}),
	}
}

// decodeCtyArg unwraps capsule values and primitives passed as intrinsic
// arguments.
func decodeCtyArg(v cty.Value) (any, error) {
	if ref, ok := lexicon.AttrRefFromVal(v); ok {
		return ref, nil
	}
	if e, ok := lexicon.EntityFromVal(v); ok {
		return e, nil
	}
	if i, ok := lexicon.IntrinsicFromVal(v); ok {
		return i, nil
	}
	t := v.Type()
	switch {
	case t.Equals(cty.String):
		return v.AsString(), nil
	case t.Equals(cty.Bool):
		return v.True(), nil
	case t.Equals(cty.Number):
		f, _ := v.AsBigFloat().Float64()
		return f, nil
	default:
		return nil, fmt.Errorf("unsupported intrinsic argument type %s", t.FriendlyName())
	}
}
