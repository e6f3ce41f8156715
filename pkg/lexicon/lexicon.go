// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package lexicon defines the contract between the compiler core and a
// pluggable target format. A lexicon supplies a resource-type catalog, the
// serializer visitor the walker drives, and the top-level serialization into
// named output documents.
package lexicon

import (
	"github.com/masterminds/semver"

	"github.com/platform-engineering-labs/lexica/pkg/entity"
)

// Visitor is the per-lexicon contract driven by the serializer walker. The
// walker guarantees references, intrinsics, and inlined property entities are
// handled identically everywhere in the output; the visitor only decides the
// native shape of each.
type Visitor interface {
	// RenderAttrRef renders a resolved attribute reference given the
	// parent's logical name and the attribute name.
	RenderAttrRef(parentName, attr string) (any, error)

	// RenderResourceRef renders a by-name reference to a resource entity.
	RenderResourceRef(logicalName string) (any, error)

	// RenderPropertyEntity renders a property-kind entity. walk recurses
	// into the entity's own properties with the same visitor.
	RenderPropertyEntity(e *entity.Entity, walk func(any) (any, error)) (any, error)

	// TransformKey optionally rewrites plain object keys (casing
	// conventions). Identity is a valid implementation.
	TransformKey(key string) string
}

// Document is one named serialized output.
type Document struct {
	Name    string
	Content string
}

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Diagnostic is a non-fatal finding. Diagnostics are returned as data; the
// caller decides whether any severity fails a build.
type Diagnostic struct {
	Severity Severity
	Message  string
	Entity   string
}

// Input is what the orchestrator hands a lexicon for serialization: the
// resolved namespace, the emission order, and the dependency edges. All three
// are immutable by the time a lexicon sees them.
type Input struct {
	Namespace    *entity.Namespace
	Order        []string
	Dependencies map[string][]string
}

// Lexicon is one pluggable backend.
type Lexicon interface {
	Name() string
	Version() *semver.Version

	// FileExtension is appended to document names when documents are
	// written to disk.
	FileExtension() string

	// Catalog maps a resource type tag to its declared output attribute
	// names, used by source-unit loaders to construct entities.
	Catalog() map[string][]string

	Visitor() Visitor

	Serialize(in Input) ([]Document, []Diagnostic, error)
}
