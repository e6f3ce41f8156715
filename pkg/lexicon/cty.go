// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package lexicon

import (
	"reflect"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/platform-engineering-labs/lexica/pkg/entity"
)

// Capsule types carry build values through HCL expression evaluation. Source
// units see them as opaque; the loader unwraps them back into property bags.
var (
	entityCapsule    = cty.Capsule("entity", reflect.TypeOf(entity.Entity{}))
	attrRefCapsule   = cty.Capsule("attrref", reflect.TypeOf(entity.AttrRef{}))
	intrinsicCapsule = cty.Capsule("intrinsic", reflect.TypeOf(intrinsicBox{}))
)

type intrinsicBox struct {
	intrinsic entity.Intrinsic
}

func EntityVal(e *entity.Entity) cty.Value {
	return cty.CapsuleVal(entityCapsule, e)
}

func AttrRefVal(r *entity.AttrRef) cty.Value {
	return cty.CapsuleVal(attrRefCapsule, r)
}

func IntrinsicVal(i entity.Intrinsic) cty.Value {
	return cty.CapsuleVal(intrinsicCapsule, &intrinsicBox{intrinsic: i})
}

func EntityFromVal(v cty.Value) (*entity.Entity, bool) {
	if !v.Type().Equals(entityCapsule) {
		return nil, false
	}
	return v.EncapsulatedValue().(*entity.Entity), true
}

func AttrRefFromVal(v cty.Value) (*entity.AttrRef, bool) {
	if !v.Type().Equals(attrRefCapsule) {
		return nil, false
	}
	return v.EncapsulatedValue().(*entity.AttrRef), true
}

func IntrinsicFromVal(v cty.Value) (entity.Intrinsic, bool) {
	if !v.Type().Equals(intrinsicCapsule) {
		return nil, false
	}
	return v.EncapsulatedValue().(*intrinsicBox).intrinsic, true
}

// FunctionProvider is implemented by lexicons that contribute intrinsic
// constructors to source-unit expression evaluation.
type FunctionProvider interface {
	Functions() map[string]function.Function
}
