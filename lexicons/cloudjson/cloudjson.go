// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package cloudjson is the built-in JSON template lexicon. It emits one
// CloudFormation-shaped document per build, with by-name references rendered
// as Ref/Fn::GetAtt and emission order encoded in DependsOn entries.
package cloudjson

import (
	"fmt"
	"slices"

	"github.com/goccy/go-json"
	"github.com/masterminds/semver"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/platform-engineering-labs/lexica"
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
	return &Lexicon{catalog: DefaultCatalog()}
}

// DefaultCatalog covers the resource types the built-in templates are tested
// against. Real deployments extend it through RegisterType from ingested
// provider schemas.
func DefaultCatalog() map[string][]string {
	return map[string][]string{
		"AWS::S3::Bucket":        {"Arn", "DomainName"},
		"AWS::IAM::Role":         {"Arn", "RoleId"},
		"AWS::Lambda::Function":  {"Arn"},
		"AWS::EC2::VPC":          {"VpcId", "CidrBlock"},
		"AWS::EC2::Subnet":       {"SubnetId"},
		"AWS::SQS::Queue":        {"Arn", "QueueName", "QueueUrl"},
		"AWS::DynamoDB::Table":   {"Arn", "StreamArn"},
		"AWS::SNS::Topic":        {"TopicArn", "TopicName"},
		"AWS::Events::Rule":      {"Arn"},
		"AWS::Logs::LogGroup":    {"Arn"},
		"AWS::ApiGateway::Stage": {"StageName"},
	}
}

func (l *Lexicon) RegisterType(typeTag string, attrs ...string) {
	l.catalog[typeTag] = slices.Clone(attrs)
}

func (l *Lexicon) Name() string {
	return "cloudjson"
}

func (l *Lexicon) Version() *semver.Version {
	return semver.MustParse(Version)
}

func (l *Lexicon) FileExtension() string {
	return ".template.json"
}

func (l *Lexicon) Catalog() map[string][]string {
	return l.catalog
}

func (l *Lexicon) Visitor() lexicon.Visitor {
	return visitor{}
}

func (l *Lexicon) Serialize(in lexicon.Input) ([]lexicon.Document, []lexicon.Diagnostic, error) {
	doc, diags, err := buildTemplate(l.Name(), l.Visitor(), in)
	if err != nil {
		return nil, nil, err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal template: %w", err)
	}

	raw, err = sjson.SetBytes(raw, "Metadata.Generator", "lexica "+lexica.Version)
	if err != nil {
		return nil, nil, fmt.Errorf("stamp template metadata: %w", err)
	}

	raw = pretty.PrettyOptions(raw, &pretty.Options{
		Width:    80,
		Indent:   "  ",
		SortKeys: true,
	})
	if raw == nil {
		return nil, nil, fmt.Errorf("beautify template")
	}

	return []lexicon.Document{{Name: "main", Content: string(raw)}}, diags, nil
}

// buildTemplate assembles the Resources/Outputs shape shared by the JSON and
// YAML lexicons.
func buildTemplate(lexiconName string, v lexicon.Visitor, in lexicon.Input) (map[string]any, []lexicon.Diagnostic, error) {
	resources := make(map[string]any)
	var diags []lexicon.Diagnostic

	for _, name := range in.Order {
		e, ok := in.Namespace.Entity(name)
		if !ok || e.Kind() != entity.KindResource || e.Lexicon() != lexiconName {
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
			depEntity, ok := in.Namespace.Entity(dep)
			if ok && depEntity.Lexicon() != lexiconName {
				diags = append(diags, lexicon.Diagnostic{
					Severity: lexicon.SeverityInfo,
					Message:  fmt.Sprintf("dependency on %q crosses into lexicon %q and is not encoded in DependsOn", dep, depEntity.Lexicon()),
					Entity:   name,
				})
				continue
			}
			if dep == name {
				diags = append(diags, lexicon.Diagnostic{
					Severity: lexicon.SeverityWarning,
					Message:  "entity depends on itself",
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

		resources[name] = entry
	}

	doc := map[string]any{"Resources": resources}

	outputs := make(map[string]any)
	for _, out := range in.Namespace.Outputs() {
		if out.Lexicon() != lexiconName {
			continue
		}
		sourceName, resolvedSource := out.SourceEntityName()
		if !resolvedSource {
			return nil, nil, &entity.SerializationError{
				Subject: fmt.Sprintf("output %q", out.Name()),
				Reason:  "serialized before its source entity was resolved",
			}
		}
		outputs[out.Name()] = map[string]any{
			"Value":  map[string]any{"Fn::GetAtt": []any{sourceName, out.Attr()}},
			"Export": map[string]any{"Name": out.Name()},
		}
	}
	if len(outputs) > 0 {
		doc["Outputs"] = outputs
	}

	return doc, diags, nil
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
