// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package diagnostics runs validation passes over serialized output
// documents. Findings are data, never failures; the caller decides what a
// given severity means for its exit status.
package diagnostics

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/theory/jsonpath"
	"github.com/theory/jsonpath/registry"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/platform-engineering-labs/lexica/internal/compiler/dag"
	"github.com/platform-engineering-labs/lexica/pkg/lexicon"
)

// jsonpathParser is a package-level parser with RFC 9535 function extensions
var jsonpathParser = jsonpath.NewParser(jsonpath.WithRegistry(registry.New()))

// Finding is one diagnostic result.
type Finding struct {
	Severity lexicon.Severity
	Message  string
	Entity   string
}

// Meta is the structural context a document is checked against: the output
// names declared by this build and by child projects under the same root.
type Meta struct {
	DeclaredOutputs []string
	ChildOutputs    []string
}

// Engine is one validation pass over a serialized document.
type Engine func(doc lexicon.Document, meta Meta) ([]Finding, error)

// Check runs every built-in engine over one document.
func Check(doc lexicon.Document, meta Meta) ([]Finding, error) {
	var findings []Finding
	for _, engine := range []Engine{CircularReferences, UnknownOutputTargets} {
		found, err := engine(doc, meta)
		if err != nil {
			return findings, err
		}
		findings = append(findings, found...)
	}
	return findings, nil
}

// CircularReferences extracts the reference edges between a template's
// resources and reports every cycle among them. DependsOn entries count as
// edges alongside Ref and Fn::GetAtt.
func CircularReferences(doc lexicon.Document, _ Meta) ([]Finding, error) {
	raw, decoded, err := normalize(doc)
	if err != nil {
		return nil, err
	}

	resources, ok := decoded["Resources"].(map[string]any)
	if !ok {
		return nil, nil
	}

	graph := make(map[string][]string, len(resources))
	for name, body := range resources {
		var edges []string
		seen := make(map[string]bool)
		edge := func(target string) {
			if _, isResource := resources[target]; !isResource || seen[target] {
				return
			}
			seen[target] = true
			edges = append(edges, target)
		}

		for _, target := range selectStrings(body, `$..["Ref"]`) {
			edge(target)
		}
		for _, node := range selectNodes(body, `$..["Fn::GetAtt"]`) {
			if pair, ok := node.([]any); ok && len(pair) > 0 {
				if target, ok := pair[0].(string); ok {
					edge(target)
				}
			}
		}
		for _, dep := range gjson.GetBytes(raw, "Resources."+escapeGjson(name)+".DependsOn").Array() {
			edge(dep.String())
		}

		graph[name] = edges
	}

	var findings []Finding
	for _, cycle := range dag.FindCycles(graph) {
		findings = append(findings, Finding{
			Severity: lexicon.SeverityError,
			Message:  fmt.Sprintf("circular reference: %s", strings.Join(cycle, " -> ")),
			Entity:   cycle[0],
		})
	}
	return findings, nil
}

// UnknownOutputTargets reports output markers that name an output no
// collected declaration and no child project provides.
func UnknownOutputTargets(doc lexicon.Document, meta Meta) ([]Finding, error) {
	_, decoded, err := normalize(doc)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(meta.DeclaredOutputs)+len(meta.ChildOutputs))
	for _, name := range meta.DeclaredOutputs {
		known[name] = true
	}
	for _, name := range meta.ChildOutputs {
		known[name] = true
	}

	var findings []Finding
	for _, target := range selectStrings(decoded, `$..["$output"]`) {
		if known[target] {
			continue
		}
		findings = append(findings, Finding{
			Severity: lexicon.SeverityWarning,
			Message:  fmt.Sprintf("reference to unknown output %q", target),
		})
	}
	return findings, nil
}

// normalize decodes a document into both raw JSON bytes and a plain value
// tree. YAML documents pass through the same path; YAML is a superset of the
// JSON the JSON lexicons emit.
func normalize(doc lexicon.Document) ([]byte, map[string]any, error) {
	var decoded map[string]any
	if err := yaml.Unmarshal([]byte(doc.Content), &decoded); err != nil {
		return nil, nil, fmt.Errorf("decode document %s: %w", doc.Name, err)
	}
	raw, err := json.Marshal(decoded)
	if err != nil {
		return nil, nil, fmt.Errorf("re-encode document %s: %w", doc.Name, err)
	}
	return raw, decoded, nil
}

func selectNodes(data any, query string) []any {
	path, err := jsonpathParser.Parse(query)
	if err != nil {
		return nil
	}
	return path.Select(data)
}

func selectStrings(data any, query string) []string {
	var out []string
	for _, node := range selectNodes(data, query) {
		if s, ok := node.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func escapeGjson(key string) string {
	replacer := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`)
	return replacer.Replace(key)
}
