// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package entity

// CompositeMember is one named member of a composite.
type CompositeMember struct {
	Name   string
	Entity *Entity
}

// Composite is a named factory that yields a fixed set of member entities
// under one export name. Discovery expands a composite exported as "api" with
// members "role" and "func" into the entities "api_role" and "api_func"; the
// composite's own export name never enters the namespace.
type Composite struct {
	members []CompositeMember
}

func NewComposite(members ...CompositeMember) *Composite {
	return &Composite{members: members}
}

func (c *Composite) Members() []CompositeMember {
	return c.members
}

// MemberName is the namespace name a member receives after expansion.
func MemberName(exportName, memberName string) string {
	return exportName + "_" + memberName
}
