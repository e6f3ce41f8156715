// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package entity

import "fmt"

// AttrRef is a lazy reference to one named attribute of a specific entity.
// It holds an arena handle to its parent, never a pointer, and cannot
// serialize until the resolver has assigned the parent's logical name.
type AttrRef struct {
	parent Handle
	attr   string

	target   string
	resolved bool
}

func (r *AttrRef) Parent() Handle { return r.parent }
func (r *AttrRef) Attr() string   { return r.attr }
func (r *AttrRef) Resolved() bool { return r.resolved }

// Target returns the logical name of the parent entity. Calling Target before
// resolution is an ordering bug in the pipeline and fails loudly.
func (r *AttrRef) Target() (string, error) {
	if !r.resolved {
		return "", &SerializationError{
			Subject: fmt.Sprintf("attribute reference %q", r.attr),
			Reason:  "serialized before resolution",
		}
	}
	return r.target, nil
}

// Resolve records the parent's logical name. Resolving twice with the same
// target is a no-op; the target cannot change within one build.
func (r *AttrRef) Resolve(target string) error {
	if r.resolved {
		if r.target == target {
			return nil
		}
		return &ResolutionError{
			Name:   target,
			Reason: fmt.Sprintf("attribute reference %q already resolved to %q", r.attr, r.target),
		}
	}
	r.target = target
	r.resolved = true
	return nil
}
