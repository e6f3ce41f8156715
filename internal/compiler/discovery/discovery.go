// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package discovery turns source units into the build's entity namespace.
// Unit load failures are collected, never fatal; name collisions are.
package discovery

import (
	"fmt"
	"log/slog"

	"github.com/platform-engineering-labs/lexica/pkg/entity"
)

// Binding is one exported (name, value) pair produced by loading a source
// unit. Values that are not entities, composites, or lexicon outputs are
// ignored during collection.
type Binding struct {
	Name  string
	Value any
}

// Loader enumerates and loads source units. Implementations are swappable:
// the lexfile loader reads .lex.hcl files from disk, tests register bindings
// in memory.
type Loader interface {
	// Units returns the ordered list of candidate source-unit paths under
	// root. The order is stable so errors are reported deterministically.
	Units(root string) ([]string, error)

	// Load loads one unit and returns its exported bindings. A failure
	// applies to that unit alone.
	Load(path string) ([]Binding, error)
}

// Result is the outcome of one discovery pass. Errors holds one LoadError
// per unit that failed to load; the namespace still contains everything the
// remaining units exported.
type Result struct {
	Namespace *entity.Namespace
	Units     []string
	Errors    []error
}

// Discover loads every unit under root in order and collects exported
// declarables into one namespace. Units are loaded strictly one at a time;
// the growing namespace is never touched concurrently. A duplicate export
// name or composite-expansion collision aborts collection with a
// ResolutionError.
func Discover(loader Loader, root string) (*Result, error) {
	units, err := loader.Units(root)
	if err != nil {
		return nil, fmt.Errorf("enumerate source units under %s: %w", root, err)
	}

	result := &Result{
		Namespace: entity.NewNamespace(),
		Units:     units,
	}

	for _, unit := range units {
		bindings, err := loader.Load(unit)
		if err != nil {
			slog.Warn("Source unit failed to load", "unit", unit, "error", err)
			result.Errors = append(result.Errors, asLoadError(unit, err))
			continue
		}

		for _, binding := range bindings {
			if err := collect(result.Namespace, binding); err != nil {
				return result, fmt.Errorf("collect %q from %s: %w", binding.Name, unit, err)
			}
		}
	}

	slog.Debug("Discovery finished",
		"units", len(result.Units),
		"entities", result.Namespace.Len(),
		"loadErrors", len(result.Errors))

	return result, nil
}

func collect(ns *entity.Namespace, binding Binding) error {
	switch value := binding.Value.(type) {
	case *entity.Entity:
		return ns.Add(binding.Name, value)
	case *entity.LexiconOutput:
		return ns.Add(binding.Name, value)
	case *entity.Composite:
		for _, member := range value.Members() {
			if err := ns.Add(entity.MemberName(binding.Name, member.Name), member.Entity); err != nil {
				return err
			}
		}
		return nil
	default:
		// Plain exported values are not tracked by the build.
		return nil
	}
}

func asLoadError(unit string, err error) error {
	if le, ok := err.(*entity.LoadError); ok {
		return le
	}
	return &entity.LoadError{Unit: unit, Err: err}
}
