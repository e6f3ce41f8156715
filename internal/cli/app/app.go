// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package app wires the build pipeline for the CLI: the built-in lexicon
// registry, one entity arena per invocation, and the on-disk source-unit
// loader.
package app

import (
	"context"
	"fmt"

	"github.com/platform-engineering-labs/lexica/internal/compiler"
	"github.com/platform-engineering-labs/lexica/internal/compiler/diagnostics"
	"github.com/platform-engineering-labs/lexica/internal/lexfile"
	"github.com/platform-engineering-labs/lexica/internal/util"
	"github.com/platform-engineering-labs/lexica/lexicons/cloudjson"
	"github.com/platform-engineering-labs/lexica/lexicons/cloudyaml"
	"github.com/platform-engineering-labs/lexica/pkg/entity"
	"github.com/platform-engineering-labs/lexica/pkg/lexicon"
)

type App struct {
	Registry *lexicon.Registry
	Arena    *entity.Arena
}

func NewApp() (*App, error) {
	registry := lexicon.NewRegistry()
	for _, lex := range []lexicon.Lexicon{cloudjson.New(), cloudyaml.New()} {
		if err := registry.Register(lex); err != nil {
			return nil, fmt.Errorf("register built-in lexicon: %w", err)
		}
	}

	return &App{
		Registry: registry,
		Arena:    entity.NewArena(),
	}, nil
}

// Build compiles the project under root.
func (a *App) Build(ctx context.Context, root string) (*compiler.Result, error) {
	root = util.ExpandHomePath(root)
	loader := lexfile.NewLoader(a.Arena, a.Registry)
	return compiler.New(loader, a.Registry, a.Arena).Build(ctx, root)
}

// Validate compiles and then runs every diagnostic engine over the serialized
// documents.
func (a *App) Validate(ctx context.Context, root string) (*compiler.Result, []diagnostics.Finding, error) {
	result, err := a.Build(ctx, root)
	if err != nil {
		return result, nil, err
	}

	meta := diagnostics.Meta{}
	for _, out := range result.Namespace.Outputs() {
		meta.DeclaredOutputs = append(meta.DeclaredOutputs, out.Name())
	}

	var findings []diagnostics.Finding
	for _, docs := range result.Documents {
		for _, doc := range docs {
			found, err := diagnostics.Check(doc, meta)
			if err != nil {
				return result, findings, fmt.Errorf("check %s: %w", doc.Name, err)
			}
			findings = append(findings, found...)
		}
	}

	return result, findings, nil
}
