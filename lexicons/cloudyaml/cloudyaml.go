// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package cloudyaml is the built-in YAML template lexicon. It produces the
// same Resources/Outputs shape as cloudjson but keeps resources in emission
// order, which YAML can express and JSON objects cannot.
package cloudyaml

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/masterminds/semver"
	"gopkg.in/yaml.v3"

	"github.com/platform-engineering-labs/lexica/internal/compiler/walker"
	"github.com/platform-engineering-labs/lexica/pkg/entity"
	"github.com/platform-engineering-labs/lexica/pkg/lexicon"
)

// Version set at compile time
var Version = "0.1.0"

var _ lexicon.Lexicon = (*Lexicon)(nil)

type Lexicon struct {
	catalog map[string][]string
}

func New() *Lexicon {
	return &Lexicon{catalog: map[string][]string{
		"K8s::Core::Namespace":  {"Name"},
		"K8s::Core::Service":    {"Name", "ClusterIP"},
		"K8s::Core::ConfigMap":  {"Name"},
		"K8s::Apps::Deployment": {"Name"},
	}}
}

func (l *Lexicon) RegisterType(typeTag string, attrs ...string) {
	l.catalog[typeTag] = slices.Clone(attrs)
}

func (l *Lexicon) Name() string {
	return "cloudyaml"
}

func (l *Lexicon) Version() *semver.Version {
	return semver.MustParse(Version)
}

func (l *Lexicon) FileExtension() string {
	return ".template.yaml"
}

func (l *Lexicon) Catalog() map[string][]string {
	return l.catalog
}

func (l *Lexicon) Visitor() lexicon.Visitor {
	return visitor{}
}

func (l *Lexicon) Serialize(in lexicon.Input) ([]lexicon.Document, []lexicon.Diagnostic, error) {
	v := l.Visitor()
	var diags []lexicon.Diagnostic

	resources := &yaml.Node{Kind: yaml.MappingNode}

	for _, name := range in.Order {
		e, ok := in.Namespace.Entity(name)
		if !ok || e.Kind() != entity.KindResource || e.Lexicon() != l.Name() {
			continue
		}

		props, err := walker.Walk(v, e.Properties())
		if err != nil {
			return nil, nil, fmt.Errorf("walk %s: %w", name, err)
		}

		entry := map[string]any{
			"Type":       e.Type(),
			"Properties": props,
		}

		var dependsOn []string
		for _, dep := range in.Dependencies[name] {
			if dep == name {
				diags = append(diags, lexicon.Diagnostic{
					Severity: lexicon.SeverityWarning,
					Message:  "entity depends on itself",
					Entity:   name,
				})
				continue
			}
			if depEntity, ok := in.Namespace.Entity(dep); ok && depEntity.Lexicon() != l.Name() {
				diags = append(diags, lexicon.Diagnostic{
					Severity: lexicon.SeverityInfo,
					Message:  fmt.Sprintf("dependency on %q crosses into lexicon %q and is not encoded in DependsOn", dep, depEntity.Lexicon()),
					Entity:   name,
				})
				continue
			}
			dependsOn = append(dependsOn, dep)
		}
		if len(dependsOn) > 0 {
			slices.Sort(dependsOn)
			entry["DependsOn"] = dependsOn
		}

		if err := appendMapping(resources, name, entry); err != nil {
			return nil, nil, err
		}
	}

	root := &yaml.Node{Kind: yaml.MappingNode}
	root.Content = append(root.Content, scalar("Resources"), resources)

	outputs, err := l.outputs(in)
	if err != nil {
		return nil, nil, err
	}
	if outputs != nil {
		node := &yaml.Node{}
		if err := node.Encode(outputs); err != nil {
			return nil, nil, fmt.Errorf("encode outputs: %w", err)
		}
		root.Content = append(root.Content, scalar("Outputs"), node)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, nil, fmt.Errorf("encode template: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, nil, fmt.Errorf("close template encoder: %w", err)
	}

	return []lexicon.Document{{Name: "main", Content: buf.String()}}, diags, nil
}

func (l *Lexicon) outputs(in lexicon.Input) (map[string]any, error) {
	outputs := make(map[string]any)
	for _, out := range in.Namespace.Outputs() {
		if out.Lexicon() != l.Name() {
			continue
		}
		sourceName, resolvedSource := out.SourceEntityName()
		if !resolvedSource {
			return nil, &entity.SerializationError{
				Subject: fmt.Sprintf("output %q", out.Name()),
				Reason:  "serialized before its source entity was resolved",
			}
		}
		outputs[out.Name()] = map[string]any{
			"Value":  map[string]any{"Fn::GetAtt": []any{sourceName, out.Attr()}},
			"Export": map[string]any{"Name": out.Name()},
		}
	}
	if len(outputs) == 0 {
		return nil, nil
	}
	return outputs, nil
}

func appendMapping(m *yaml.Node, key string, value any) error {
	node := &yaml.Node{}
	if err := node.Encode(value); err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	m.Content = append(m.Content, scalar(key), node)
	return nil
}

func scalar(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: s}
}

type visitor struct{}

func (visitor) RenderAttrRef(parentName, attr string) (any, error) {
	return map[string]any{"Fn::GetAtt": []any{parentName, attr}}, nil
}

func (visitor) RenderResourceRef(logicalName string) (any, error) {
	return map[string]any{"Ref": logicalName}, nil
}

func (visitor) RenderPropertyEntity(e *entity.Entity, walk func(any) (any, error)) (any, error) {
	return walk(e.Properties())
}

func (visitor) TransformKey(key string) string {
	return key
}
