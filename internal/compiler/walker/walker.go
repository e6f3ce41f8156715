// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package walker is the generic recursive transform from resolved entity
// values into lexicon-native output shapes. Every lexicon reuses this single
// walker, which is what keeps references, intrinsics, and inlined property
// entities consistent across the whole output.
package walker

import (
	"fmt"
	"slices"

	"github.com/platform-engineering-labs/lexica/pkg/entity"
	"github.com/platform-engineering-labs/lexica/pkg/lexicon"
)

// Walk transforms one value. Dispatch order: nil, attribute reference,
// intrinsic, resource entity, property entity, cross-lexicon output, array,
// plain object, primitive. Unresolved references and unnamed resource
// entities fail loudly; the pipeline invoked its phases out of order.
func Walk(v lexicon.Visitor, value any) (any, error) {
	switch val := value.(type) {
	case nil:
		return nil, nil

	case *entity.AttrRef:
		target, err := val.Target()
		if err != nil {
			return nil, err
		}
		return v.RenderAttrRef(target, val.Attr())

	case entity.Intrinsic:
		return val.Render(func(inner any) (any, error) {
			return Walk(v, inner)
		})

	case *entity.Entity:
		if val.Kind() == entity.KindResource {
			name, named := val.LogicalName()
			if !named {
				return nil, &entity.SerializationError{
					Subject: fmt.Sprintf("%s entity", val.Type()),
					Reason:  "walked before a logical name was assigned",
				}
			}
			return v.RenderResourceRef(name)
		}
		return v.RenderPropertyEntity(val, func(inner any) (any, error) {
			return Walk(v, inner)
		})

	case *entity.LexiconOutput:
		return val.Marker(), nil

	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			walked, err := Walk(v, elem)
			if err != nil {
				return nil, err
			}
			out[i] = walked
		}
		return out, nil

	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.Sort(keys)

		out := make(map[string]any, len(val))
		for _, k := range keys {
			walked, err := Walk(v, val[k])
			if err != nil {
				return nil, err
			}
			out[v.TransformKey(k)] = walked
		}
		return out, nil

	default:
		return val, nil
	}
}
