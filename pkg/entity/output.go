// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package entity

import "fmt"

// LexiconOutput bridges one lexicon's entity attribute to a named output
// other lexicons and modules may reference. Unlike an AttrRef it crosses
// lexicon boundaries and serializes to an output-name marker instead of a
// lexicon-native reference. The source entity name stays empty until the
// resolver assigns it.
type LexiconOutput struct {
	lexicon string
	source  Handle
	attr    string
	name    string

	sourceName string
	resolved   bool
}

func NewLexiconOutput(lexicon string, source *Entity, attr, name string) *LexiconOutput {
	return &LexiconOutput{
		lexicon: lexicon,
		source:  source.Handle(),
		attr:    attr,
		name:    name,
	}
}

func (o *LexiconOutput) Lexicon() string { return o.lexicon }
func (o *LexiconOutput) Source() Handle  { return o.source }
func (o *LexiconOutput) Attr() string    { return o.attr }
func (o *LexiconOutput) Name() string    { return o.name }

// SourceEntityName returns the logical name of the source entity, or false
// until resolution has run.
func (o *LexiconOutput) SourceEntityName() (string, bool) {
	return o.sourceName, o.resolved
}

// ResolveSource records the source entity's logical name.
func (o *LexiconOutput) ResolveSource(sourceName string) error {
	if o.resolved {
		if o.sourceName == sourceName {
			return nil
		}
		return &ResolutionError{
			Name:   o.name,
			Reason: fmt.Sprintf("output source already resolved to %q", o.sourceName),
		}
	}
	o.sourceName = sourceName
	o.resolved = true
	return nil
}

// Marker is the lexicon-agnostic serialized form of a reference to this
// output.
func (o *LexiconOutput) Marker() map[string]any {
	return map[string]any{"$output": o.name}
}
