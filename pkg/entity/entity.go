// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package entity

import (
	"fmt"
	"slices"
)

type Kind string

const (
	KindResource Kind = "Resource" // referenced by name wherever it appears as a value
	KindProperty Kind = "Property" // always inlined into its parent's serialized shape
)

// Handle identifies an entity inside the arena that constructed it. The zero
// handle is never valid.
type Handle int

// Entity is a user-declared value tracked by one build: a resource or a
// property bag belonging to a lexicon. Identity is pointer identity; two
// structurally identical entities are distinct unless they are the same
// instance.
type Entity struct {
	lexicon string
	typeTag string
	kind    Kind
	props   map[string]any

	handle Handle

	logicalName string
	named       bool

	attrNames []string
	attrs     map[string]*AttrRef
}

func (e *Entity) Lexicon() string { return e.lexicon }
func (e *Entity) Type() string    { return e.typeTag }
func (e *Entity) Kind() Kind      { return e.kind }
func (e *Entity) Handle() Handle  { return e.handle }

// Properties returns the entity's property bag. Later build phases treat the
// bag as read-only.
func (e *Entity) Properties() map[string]any {
	return e.props
}

// SetProperties replaces the property bag. Only source-unit loaders call this,
// during discovery; the bag is frozen once the namespace is assembled.
func (e *Entity) SetProperties(props map[string]any) {
	if props == nil {
		props = map[string]any{}
	}
	e.props = props
}

// Attr returns the attribute reference for one of the entity's declared
// output attributes.
func (e *Entity) Attr(name string) (*AttrRef, bool) {
	ref, ok := e.attrs[name]
	return ref, ok
}

// AttrNames returns the declared output attribute names in declaration order.
func (e *Entity) AttrNames() []string {
	return slices.Clone(e.attrNames)
}

// LogicalName returns the stable identifier assigned by the resolver, or
// false if resolution has not run for this entity yet.
func (e *Entity) LogicalName() (string, bool) {
	return e.logicalName, e.named
}

// AssignLogicalName records the entity's stable identifier. Assigning the
// same name again is a no-op; an entity cannot carry two names within one
// build.
func (e *Entity) AssignLogicalName(name string) error {
	if e.named {
		if e.logicalName == name {
			return nil
		}
		return &ResolutionError{
			Name:   name,
			Reason: fmt.Sprintf("entity already named %q", e.logicalName),
		}
	}
	e.logicalName = name
	e.named = true
	return nil
}

// Arena owns every entity constructed for one build. Attribute references
// hold arena handles rather than pointers, so a reference whose parent was
// never registered resolves to a plain lookup failure instead of a dangling
// pointer.
type Arena struct {
	entities []*Entity
}

func NewArena() *Arena {
	return &Arena{}
}

// NewResource constructs a resource-kind entity with one attribute reference
// per declared output attribute and the given property bag.
func (a *Arena) NewResource(lexicon, typeTag string, props map[string]any, attrNames ...string) *Entity {
	e := a.register(lexicon, typeTag, KindResource, props)
	e.attrNames = slices.Clone(attrNames)
	e.attrs = make(map[string]*AttrRef, len(attrNames))
	for _, attr := range attrNames {
		e.attrs[attr] = &AttrRef{parent: e.handle, attr: attr}
	}
	return e
}

// NewProperty constructs a property-kind entity. Property entities carry no
// output attributes; they are inlined wherever they appear.
func (a *Arena) NewProperty(lexicon, typeTag string, props map[string]any) *Entity {
	return a.register(lexicon, typeTag, KindProperty, props)
}

func (a *Arena) register(lexicon, typeTag string, kind Kind, props map[string]any) *Entity {
	if props == nil {
		props = map[string]any{}
	}
	e := &Entity{
		lexicon: lexicon,
		typeTag: typeTag,
		kind:    kind,
		props:   props,
		handle:  Handle(len(a.entities) + 1),
	}
	a.entities = append(a.entities, e)
	return e
}

// Lookup returns the entity a handle points at, or false when the handle was
// never issued by this arena.
func (a *Arena) Lookup(h Handle) (*Entity, bool) {
	if h < 1 || int(h) > len(a.entities) {
		return nil, false
	}
	return a.entities[h-1], true
}

func (a *Arena) Len() int {
	return len(a.entities)
}
