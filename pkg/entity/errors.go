// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package entity

import "fmt"

// LoadError reports a single source unit that failed to load. Load errors are
// collected during discovery and never abort the pass.
type LoadError struct {
	Unit string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Unit, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ResolutionError reports a duplicate export name, a composite-expansion
// collision, or an attribute reference whose parent cannot be found. Fatal:
// the pipeline stops before producing output.
type ResolutionError struct {
	Name   string // offending export or logical name
	Path   string // entity.property path, when a reference is at fault
	Reason string
}

func (e *ResolutionError) Error() string {
	subject := e.Name
	if e.Path != "" {
		subject = e.Path
	}
	return fmt.Sprintf("resolve %s: %s", subject, e.Reason)
}

// SerializationError reports a value walked before the pipeline prepared it:
// a resource entity without a logical name or an unresolved attribute
// reference. Always a phase-ordering bug, never silently degraded.
type SerializationError struct {
	Subject string
	Reason  string
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialize %s: %s", e.Subject, e.Reason)
}
