// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package resolver assigns logical names and resolves attribute references.
// Both passes must complete before the dependency graph is built or any
// output is serialized.
package resolver

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/platform-engineering-labs/lexica/pkg/entity"
)

// Resolve runs the two resolution passes over a namespace. Pass one records
// each entity's export name as its logical name; pass two resolves every
// attribute reference reachable from the namespace, including each entity's
// own declared accessors and the source of every lexicon output. The first
// dangling reference aborts with a ResolutionError naming the offending
// entity.property path.
func Resolve(ns *entity.Namespace, arena *entity.Arena) error {
	for _, name := range ns.Names() {
		if e, ok := ns.Entity(name); ok {
			if err := e.AssignLogicalName(name); err != nil {
				return err
			}
		}
	}

	for _, out := range ns.Outputs() {
		source, ok := arena.Lookup(out.Source())
		if !ok {
			return &entity.ResolutionError{
				Name:   out.Name(),
				Reason: "output source entity was reclaimed",
			}
		}
		if !ns.Owns(source) {
			return &entity.ResolutionError{
				Name:   out.Name(),
				Reason: "output source entity was never registered in the namespace",
			}
		}
		sourceName, _ := source.LogicalName()
		if err := out.ResolveSource(sourceName); err != nil {
			return err
		}
	}

	for _, name := range ns.Names() {
		e, ok := ns.Entity(name)
		if !ok {
			continue
		}

		w := &refWalker{ns: ns, arena: arena, owner: name, visited: make(map[any]struct{})}

		for _, attr := range e.AttrNames() {
			ref, _ := e.Attr(attr)
			if err := w.resolveRef(ref, attr); err != nil {
				return err
			}
		}
		if err := w.walkProps(e.Properties(), ""); err != nil {
			return err
		}
	}

	return nil
}

// refWalker resolves attribute references in one entity's property tree. The
// visited set is scoped to that single root so cyclic object graphs
// terminate.
type refWalker struct {
	ns      *entity.Namespace
	arena   *entity.Arena
	owner   string
	visited map[any]struct{}
}

func (w *refWalker) walk(value any, path string) error {
	switch v := value.(type) {
	case nil:
		return nil
	case *entity.AttrRef:
		return w.resolveRef(v, path)
	case *entity.Entity:
		// Property-kind entities are inlined, so their internals belong to
		// this root. Resource-kind entities resolve as their own namespace
		// members.
		if v.Kind() != entity.KindProperty {
			return nil
		}
		if w.seen(v) {
			return nil
		}
		return w.walkProps(v.Properties(), path)
	case entity.Intrinsic:
		return nil
	case *entity.LexiconOutput:
		return nil
	case map[string]any:
		if w.seen(v) {
			return nil
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			if err := w.walk(v[k], joinPath(path, k)); err != nil {
				return err
			}
		}
		return nil
	case []any:
		if w.seen(v) {
			return nil
		}
		for i, elem := range v {
			if err := w.walk(elem, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}

func (w *refWalker) walkProps(props map[string]any, path string) error {
	if w.seen(props) {
		return nil
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := w.walk(props[k], joinPath(path, k)); err != nil {
			return err
		}
	}
	return nil
}

func (w *refWalker) resolveRef(ref *entity.AttrRef, path string) error {
	parent, ok := w.arena.Lookup(ref.Parent())
	if !ok {
		return &entity.ResolutionError{
			Path:   w.owner + "." + path,
			Reason: "referenced entity was reclaimed",
		}
	}
	if !w.ns.Owns(parent) {
		return &entity.ResolutionError{
			Path:   w.owner + "." + path,
			Reason: "referenced entity was never registered in the namespace",
		}
	}
	parentName, named := parent.LogicalName()
	if !named {
		return &entity.ResolutionError{
			Path:   w.owner + "." + path,
			Reason: "referenced entity has no logical name",
		}
	}
	return ref.Resolve(parentName)
}

// seen records identity of entities and of plain containers, per root. Maps
// and slices are tracked by their backing pointer.
func (w *refWalker) seen(value any) bool {
	key := identityKey(value)
	if key == nil {
		return false
	}
	if _, ok := w.visited[key]; ok {
		return true
	}
	w.visited[key] = struct{}{}
	return false
}

func identityKey(value any) any {
	switch v := value.(type) {
	case *entity.Entity:
		return v
	case map[string]any:
		return reflect.ValueOf(v).Pointer()
	case []any:
		if v == nil {
			return nil
		}
		// Sub-slices share a backing pointer; the length disambiguates.
		return [2]uintptr{reflect.ValueOf(v).Pointer(), uintptr(len(v))}
	default:
		return nil
	}
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
