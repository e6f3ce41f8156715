// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package entity

// Intrinsic is a lexicon-specific computed value (conditionals, string
// interpolation, lookups) that renders itself to the output format
// independent of entity identity. The dependency graph builder treats an
// intrinsic as a leaf; the serializer walker delegates to Render, passing its
// own recursion so the intrinsic can walk nested arguments.
type Intrinsic interface {
	Render(walk func(any) (any, error)) (any, error)
}
