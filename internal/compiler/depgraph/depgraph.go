// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package depgraph derives "must be emitted after" edges from resolved
// entity property trees. It is only valid to build the graph after the
// resolver has run.
package depgraph

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/platform-engineering-labs/lexica/internal/compiler/dag"
	"github.com/platform-engineering-labs/lexica/pkg/entity"
)

// Graph maps each resource entity's logical name to the ordered set of
// logical names it directly depends on.
type Graph struct {
	names []string
	deps  map[string][]string
}

// Names returns the graph's nodes in namespace insertion order.
func (g *Graph) Names() []string {
	return slices.Clone(g.names)
}

// DependenciesOf returns the direct dependencies of one node, in the order
// they were first encountered in the property tree scan.
func (g *Graph) DependenciesOf(name string) []string {
	return slices.Clone(g.deps[name])
}

// Map returns the graph as a plain name to dependency-list mapping.
func (g *Graph) Map() map[string][]string {
	out := make(map[string][]string, len(g.deps))
	for name, deps := range g.deps {
		out[name] = slices.Clone(deps)
	}
	return out
}

// Cycles reports the elementary cycles in the graph, normalized and
// deduplicated. Cycles are not an error at this layer; ordering backends
// decide what to do with them.
func (g *Graph) Cycles() [][]string {
	return dag.FindCycles(g.deps)
}

// Build scans every resource entity's property tree and records one edge per
// referenced resource entity. Property entities are inlined, not nodes;
// intrinsics are leaves; a resource entity reached as a value is an edge,
// never recursed into.
func Build(ns *entity.Namespace, arena *entity.Arena) (*Graph, error) {
	g := &Graph{deps: make(map[string][]string)}

	for _, name := range ns.Names() {
		e, ok := ns.Entity(name)
		if !ok || e.Kind() != entity.KindResource {
			continue
		}

		s := &scanner{
			arena:    arena,
			root:     e,
			rootName: name,
			visited:  make(map[any]struct{}),
			edgeSet:  make(map[string]struct{}),
		}
		if err := s.scan(e.Properties()); err != nil {
			return nil, fmt.Errorf("scan %s: %w", name, err)
		}

		g.names = append(g.names, name)
		g.deps[name] = s.edges
	}

	return g, nil
}

// scanner walks one root entity's property tree. The visited set belongs to
// this root alone, so a shared sub-object under two roots is scanned once per
// root while cyclic object graphs still terminate.
type scanner struct {
	arena    *entity.Arena
	root     *entity.Entity
	rootName string

	visited  map[any]struct{}
	selfSeen bool

	edges   []string
	edgeSet map[string]struct{}
}

func (s *scanner) scan(value any) error {
	switch v := value.(type) {
	case nil:
		return nil

	case *entity.AttrRef:
		parent, ok := s.arena.Lookup(v.Parent())
		if !ok {
			return &entity.ResolutionError{
				Path:   s.rootName,
				Reason: "attribute reference to a reclaimed entity survived resolution",
			}
		}
		if parent == s.root {
			s.selfEncounter()
			return nil
		}
		if parent.Kind() != entity.KindResource {
			return nil
		}
		target, err := v.Target()
		if err != nil {
			return err
		}
		s.edge(target)
		return nil

	case *entity.Entity:
		if v == s.root {
			s.selfEncounter()
			return nil
		}
		if v.Kind() == entity.KindResource {
			name, named := v.LogicalName()
			if !named {
				return &entity.ResolutionError{
					Path:   s.rootName,
					Reason: fmt.Sprintf("referenced %s entity was never registered in the namespace", v.Type()),
				}
			}
			s.edge(name)
			return nil
		}
		// Property entities are scanned as if inlined; nested references
		// attach to this root.
		if s.seen(v) {
			return nil
		}
		return s.scanMap(v.Properties())

	case entity.Intrinsic:
		return nil

	case *entity.LexiconOutput:
		return nil

	case map[string]any:
		if s.seen(v) {
			return nil
		}
		return s.scanMap(v)

	case []any:
		if s.seen(v) {
			return nil
		}
		for _, elem := range v {
			if err := s.scan(elem); err != nil {
				return err
			}
		}
		return nil

	default:
		return nil
	}
}

func (s *scanner) scanMap(m map[string]any) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := s.scan(m[k]); err != nil {
			return err
		}
	}
	return nil
}

// selfEncounter implements the two-case self-reference rule: an entity's own
// attribute accessors do not make it depend on itself, but any further
// encounter of the root inside its own tree is a real edge and must surface
// for cycle detection.
func (s *scanner) selfEncounter() {
	if !s.selfSeen {
		s.selfSeen = true
		return
	}
	s.edge(s.rootName)
}

func (s *scanner) edge(name string) {
	if _, ok := s.edgeSet[name]; ok {
		return
	}
	s.edgeSet[name] = struct{}{}
	s.edges = append(s.edges, name)
}

func (s *scanner) seen(value any) bool {
	var key any
	switch v := value.(type) {
	case *entity.Entity:
		key = v
	case map[string]any:
		key = reflect.ValueOf(v).Pointer()
	case []any:
		if v == nil {
			return false
		}
		key = [2]uintptr{reflect.ValueOf(v).Pointer(), uintptr(len(v))}
	default:
		return false
	}
	if _, ok := s.visited[key]; ok {
		return true
	}
	s.visited[key] = struct{}{}
	return false
}
