// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package entity

import "slices"

// Declarable is anything discovery may enter into the namespace under an
// export name: entities and lexicon outputs.
type Declarable interface {
	declarable()
}

func (*Entity) declarable()        {}
func (*LexiconOutput) declarable() {}

// Namespace is the insertion-ordered mapping from export name to declarable,
// built once during discovery. Names are unique per build; later phases treat
// the namespace as immutable.
type Namespace struct {
	names  []string
	byName map[string]Declarable
	owned  map[Declarable]struct{}
}

func NewNamespace() *Namespace {
	return &Namespace{
		byName: make(map[string]Declarable),
		owned:  make(map[Declarable]struct{}),
	}
}

// Add enters a declarable under a name. Binding the same object to the same
// name twice (a re-export through an aggregation unit) is a no-op; binding a
// different object to a taken name is a fatal resolution error.
func (n *Namespace) Add(name string, d Declarable) error {
	if existing, ok := n.byName[name]; ok {
		if existing == d {
			return nil
		}
		return &ResolutionError{
			Name:   name,
			Reason: "name already bound to a different declarable",
		}
	}
	n.names = append(n.names, name)
	n.byName[name] = d
	n.owned[d] = struct{}{}
	return nil
}

func (n *Namespace) Lookup(name string) (Declarable, bool) {
	d, ok := n.byName[name]
	return d, ok
}

// Entity returns the entity bound to name, or false if the name is unbound
// or bound to a lexicon output.
func (n *Namespace) Entity(name string) (*Entity, bool) {
	e, ok := n.byName[name].(*Entity)
	return e, ok
}

// Owns reports whether the declarable itself is registered in the namespace,
// under any name. Identity-based: a structurally equal copy does not count.
func (n *Namespace) Owns(d Declarable) bool {
	_, ok := n.owned[d]
	return ok
}

// Names returns the export names in insertion order.
func (n *Namespace) Names() []string {
	return slices.Clone(n.names)
}

// Outputs returns the lexicon outputs in insertion order.
func (n *Namespace) Outputs() []*LexiconOutput {
	var outs []*LexiconOutput
	for _, name := range n.names {
		if o, ok := n.byName[name].(*LexiconOutput); ok {
			outs = append(outs, o)
		}
	}
	return outs
}

func (n *Namespace) Len() int {
	return len(n.names)
}
