// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package lexfile loads .lex.hcl source units from disk. Loading runs in two
// phases over one project root: enumeration pre-scans every unit and
// constructs the declared entities from the lexicon catalogs, so a unit may
// reference entities declared later or in another file; per-unit loading then
// evaluates property expressions against the full declaration set.
package lexfile

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/platform-engineering-labs/lexica/internal/compiler/discovery"
	"github.com/platform-engineering-labs/lexica/pkg/entity"
	"github.com/platform-engineering-labs/lexica/pkg/lexicon"
)

const (
	// UnitSuffix marks a file as a source unit.
	UnitSuffix = ".lex.hcl"

	// ProjectMarker marks a directory as a project root. A subdirectory
	// carrying its own marker is a child project and is not descended into.
	ProjectMarker = "lexica.hcl"
)

var skippedDirs = map[string]struct{}{
	".git":         {},
	".lexica":      {},
	"vendor":       {},
	"node_modules": {},
}

var fileSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "resource", LabelNames: []string{"name", "type"}},
		{Type: "property", LabelNames: []string{"name", "type"}},
		{Type: "composite", LabelNames: []string{"name"}},
		{Type: "output", LabelNames: []string{"name"}},
	},
}

var entitySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "lexicon", Required: true},
		{Name: "properties"},
	},
}

var compositeSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "resource", LabelNames: []string{"name", "type"}},
		{Type: "property", LabelNames: []string{"name", "type"}},
	},
}

var outputSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "value", Required: true},
	},
}

var _ discovery.Loader = (*Loader)(nil)

// Loader implements discovery.Loader over .lex.hcl files.
type Loader struct {
	arena    *entity.Arena
	registry *lexicon.Registry

	units   map[string]*unit
	evalCtx *hcl.EvalContext
}

// declaration is one entity declared by a unit, pre-scanned before any
// property expression is evaluated.
type declaration struct {
	exportName string
	entity     *entity.Entity
	propsExpr  hcl.Expression

	// member is set for composite members; the composite's export name is
	// already folded into exportName.
	member string
}

type outputDecl struct {
	name      string
	valueExpr hcl.Expression
}

// compositeDecl groups the member declarations of one composite block.
type compositeDecl struct {
	exportName string
	members    []*declaration
}

type unit struct {
	path       string
	decls      []*declaration
	composites []*compositeDecl
	outputs    []*outputDecl

	// err is a pre-scan failure, surfaced when the unit is loaded so
	// discovery can collect it as that unit's load error.
	err error
}

func NewLoader(arena *entity.Arena, registry *lexicon.Registry) *Loader {
	return &Loader{
		arena:    arena,
		registry: registry,
		units:    make(map[string]*unit),
	}
}

// Units enumerates the source units under root in lexical order and runs the
// pre-scan. Enumeration failures are fatal; a unit that fails to parse still
// appears in the result so its failure is reported when it is loaded.
func (l *Loader) Units(root string) ([]string, error) {
	paths, err := enumerate(root)
	if err != nil {
		return nil, err
	}

	parser := hclparse.NewParser()
	for _, path := range paths {
		l.units[path] = l.prescan(parser, path)
	}
	l.evalCtx = l.buildEvalContext()

	return paths, nil
}

// Load evaluates one pre-scanned unit's expressions and returns its exported
// bindings.
func (l *Loader) Load(path string) ([]discovery.Binding, error) {
	u, ok := l.units[path]
	if !ok {
		return nil, fmt.Errorf("unit %s was never enumerated", path)
	}
	if u.err != nil {
		return nil, u.err
	}

	var bindings []discovery.Binding

	for _, d := range u.decls {
		if err := l.assignProperties(d); err != nil {
			return nil, &entity.LoadError{Unit: path, Err: err}
		}
		bindings = append(bindings, discovery.Binding{Name: d.exportName, Value: d.entity})
	}

	for _, c := range u.composites {
		members := make([]entity.CompositeMember, 0, len(c.members))
		for _, d := range c.members {
			if err := l.assignProperties(d); err != nil {
				return nil, &entity.LoadError{Unit: path, Err: err}
			}
			members = append(members, entity.CompositeMember{Name: d.member, Entity: d.entity})
		}
		bindings = append(bindings, discovery.Binding{Name: c.exportName, Value: entity.NewComposite(members...)})
	}

	for _, o := range u.outputs {
		out, err := l.evalOutput(o)
		if err != nil {
			return nil, &entity.LoadError{Unit: path, Err: err}
		}
		bindings = append(bindings, discovery.Binding{Name: o.name, Value: out})
	}

	return bindings, nil
}

func enumerate(root string) ([]string, error) {
	var paths []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skippedDirs[d.Name()]; skip {
				return filepath.SkipDir
			}
			if _, err := os.Stat(filepath.Join(path, ProjectMarker)); err == nil {
				// Child project boundary.
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), UnitSuffix) {
			return nil
		}
		if strings.HasSuffix(d.Name(), "_test"+UnitSuffix) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	slices.Sort(paths)
	return paths, nil
}

// prescan parses one unit and constructs its declared entities with empty
// property bags. Property expressions are retained unevaluated.
func (l *Loader) prescan(parser *hclparse.Parser, path string) *unit {
	u := &unit{path: path}

	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		u.err = &entity.LoadError{Unit: path, Err: diags}
		return u
	}

	content, diags := file.Body.Content(fileSchema)
	if diags.HasErrors() {
		u.err = &entity.LoadError{Unit: path, Err: diags}
		return u
	}

	for _, block := range content.Blocks {
		switch block.Type {
		case "resource", "property":
			d, err := l.prescanEntity(block, block.Labels[0], "")
			if err != nil {
				u.err = &entity.LoadError{Unit: path, Err: err}
				return u
			}
			u.decls = append(u.decls, d)

		case "composite":
			c, err := l.prescanComposite(block)
			if err != nil {
				u.err = &entity.LoadError{Unit: path, Err: err}
				return u
			}
			u.composites = append(u.composites, c)

		case "output":
			body, diags := block.Body.Content(outputSchema)
			if diags.HasErrors() {
				u.err = &entity.LoadError{Unit: path, Err: diags}
				return u
			}
			u.outputs = append(u.outputs, &outputDecl{
				name:      block.Labels[0],
				valueExpr: body.Attributes["value"].Expr,
			})
		}
	}

	return u
}

func (l *Loader) prescanComposite(block *hcl.Block) (*compositeDecl, error) {
	exportName := block.Labels[0]
	content, diags := block.Body.Content(compositeSchema)
	if diags.HasErrors() {
		return nil, diags
	}

	c := &compositeDecl{exportName: exportName}
	for _, member := range content.Blocks {
		d, err := l.prescanEntity(member, entity.MemberName(exportName, member.Labels[0]), member.Labels[0])
		if err != nil {
			return nil, err
		}
		c.members = append(c.members, d)
	}
	return c, nil
}

func (l *Loader) prescanEntity(block *hcl.Block, exportName, member string) (*declaration, error) {
	typeTag := block.Labels[1]
	content, diags := block.Body.Content(entitySchema)
	if diags.HasErrors() {
		return nil, diags
	}

	lexiconVal, diags := content.Attributes["lexicon"].Expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if !lexiconVal.Type().Equals(cty.String) {
		return nil, fmt.Errorf("%s %q: lexicon must be a string", block.Type, exportName)
	}
	lexiconName := lexiconVal.AsString()

	lex, err := l.registry.Lookup(lexiconName)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", block.Type, exportName, err)
	}

	d := &declaration{exportName: exportName, member: member}
	if attr, ok := content.Attributes["properties"]; ok {
		d.propsExpr = attr.Expr
	}

	switch block.Type {
	case "resource":
		attrs, ok := lex.Catalog()[typeTag]
		if !ok {
			return nil, fmt.Errorf("resource %q: type %q not in lexicon %q catalog", exportName, typeTag, lexiconName)
		}
		d.entity = l.arena.NewResource(lexiconName, typeTag, nil, attrs...)
	case "property":
		d.entity = l.arena.NewProperty(lexiconName, typeTag, nil)
	}

	return d, nil
}

// buildEvalContext exposes every pre-scanned declaration as ref.<name> and,
// for resources, its attribute references as attr.<name>.<Attr>. Lexicons
// contribute intrinsic constructors as functions.
func (l *Loader) buildEvalContext() *hcl.EvalContext {
	refVars := make(map[string]cty.Value)
	attrVars := make(map[string]cty.Value)

	addDecl := func(d *declaration) {
		refVars[d.exportName] = lexicon.EntityVal(d.entity)
		if d.entity.Kind() != entity.KindResource {
			return
		}
		attrs := make(map[string]cty.Value)
		for _, name := range d.entity.AttrNames() {
			ref, _ := d.entity.Attr(name)
			attrs[name] = lexicon.AttrRefVal(ref)
		}
		if len(attrs) > 0 {
			attrVars[d.exportName] = cty.ObjectVal(attrs)
		}
	}

	for _, u := range l.units {
		if u.err != nil {
			continue
		}
		for _, d := range u.decls {
			addDecl(d)
		}
		for _, c := range u.composites {
			for _, d := range c.members {
				addDecl(d)
			}
		}
	}

	funcs := make(map[string]function.Function)
	for _, name := range l.registry.Names() {
		lex, err := l.registry.Lookup(name)
		if err != nil {
			continue
		}
		provider, ok := lex.(lexicon.FunctionProvider)
		if !ok {
			continue
		}
		for fname, fn := range provider.Functions() {
			funcs[fname] = fn
		}
	}

	ctx := &hcl.EvalContext{
		Variables: map[string]cty.Value{},
		Functions: funcs,
	}
	if len(refVars) > 0 {
		ctx.Variables["ref"] = cty.ObjectVal(refVars)
	}
	if len(attrVars) > 0 {
		ctx.Variables["attr"] = cty.ObjectVal(attrVars)
	}
	return ctx
}

func (l *Loader) assignProperties(d *declaration) error {
	if d.propsExpr == nil {
		return nil
	}

	val, diags := d.propsExpr.Value(l.evalCtx)
	if diags.HasErrors() {
		return diags
	}
	if !val.Type().IsObjectType() && !val.Type().IsMapType() {
		return fmt.Errorf("%s: properties must be an object", d.exportName)
	}

	props := make(map[string]any)
	for key, v := range val.AsValueMap() {
		decoded, err := ctyToGo(v)
		if err != nil {
			return fmt.Errorf("%s: property %q: %w", d.exportName, key, err)
		}
		props[key] = decoded
	}
	d.entity.SetProperties(props)
	return nil
}

func (l *Loader) evalOutput(o *outputDecl) (*entity.LexiconOutput, error) {
	val, diags := o.valueExpr.Value(l.evalCtx)
	if diags.HasErrors() {
		return nil, diags
	}

	ref, ok := lexicon.AttrRefFromVal(val)
	if !ok {
		return nil, fmt.Errorf("output %q: value must be an attribute reference", o.name)
	}
	source, ok := l.arena.Lookup(ref.Parent())
	if !ok {
		return nil, fmt.Errorf("output %q: source entity was never registered", o.name)
	}
	return entity.NewLexiconOutput(source.Lexicon(), source, ref.Attr(), o.name), nil
}

// ctyToGo lowers an evaluated cty value into the property-bag representation
// the rest of the pipeline walks. Capsule values come back out as the build
// objects they wrap.
func ctyToGo(v cty.Value) (any, error) {
	if e, ok := lexicon.EntityFromVal(v); ok {
		return e, nil
	}
	if ref, ok := lexicon.AttrRefFromVal(v); ok {
		return ref, nil
	}
	if i, ok := lexicon.IntrinsicFromVal(v); ok {
		return i, nil
	}

	if v.IsNull() {
		return nil, nil
	}

	t := v.Type()
	switch {
	case t.Equals(cty.String):
		return v.AsString(), nil
	case t.Equals(cty.Bool):
		return v.True(), nil
	case t.Equals(cty.Number):
		f, _ := v.AsBigFloat().Float64()
		return f, nil
	case t.IsTupleType() || t.IsListType() || t.IsSetType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			decoded, err := ctyToGo(ev)
			if err != nil {
				return nil, err
			}
			out = append(out, decoded)
		}
		return out, nil
	case t.IsObjectType() || t.IsMapType():
		out := make(map[string]any)
		for key, ev := range v.AsValueMap() {
			decoded, err := ctyToGo(ev)
			if err != nil {
				return nil, err
			}
			out[key] = decoded
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %s", t.FriendlyName())
	}
}
