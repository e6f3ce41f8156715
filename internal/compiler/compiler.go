// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package compiler sequences one build: discovery, resolution, dependency
// graph construction, and per-lexicon serialization.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/segmentio/ksuid"
	"github.com/sourcegraph/conc"

	"github.com/platform-engineering-labs/lexica/internal/compiler/depgraph"
	"github.com/platform-engineering-labs/lexica/internal/compiler/discovery"
	"github.com/platform-engineering-labs/lexica/internal/compiler/resolver"
	"github.com/platform-engineering-labs/lexica/pkg/entity"
	"github.com/platform-engineering-labs/lexica/pkg/lexicon"
)

// Compiler runs the build pipeline against one project root. The pipeline is
// single-threaded through resolution; serialization fans out per lexicon once
// the namespace is immutable.
type Compiler struct {
	loader   discovery.Loader
	registry *lexicon.Registry
	arena    *entity.Arena
}

// Result is the outcome of one build. LoadErrors may be non-empty even on
// success; callers must check it explicitly.
type Result struct {
	BuildID   string
	Namespace *entity.Namespace
	Graph     *depgraph.Graph

	// Order is the emission order handed to every lexicon: topological where
	// the graph allows it, namespace order among independent entities.
	Order []string

	Units      []string
	LoadErrors []error

	// Documents maps lexicon name to its serialized output documents.
	Documents   map[string][]lexicon.Document
	Diagnostics []lexicon.Diagnostic
}

func New(loader discovery.Loader, registry *lexicon.Registry, arena *entity.Arena) *Compiler {
	return &Compiler{
		loader:   loader,
		registry: registry,
		arena:    arena,
	}
}

// Build runs the pipeline. Load errors accumulate in the result without
// stopping it; a collection collision, a resolution failure, or a
// serialization-ordering bug aborts with whatever the result holds so far.
func (c *Compiler) Build(ctx context.Context, root string) (*Result, error) {
	result := &Result{
		BuildID:   ksuid.New().String(),
		Documents: make(map[string][]lexicon.Document),
	}
	log := slog.With("buildID", result.BuildID, "root", root)
	log.Info("Build started")

	discovered, err := discovery.Discover(c.loader, root)
	if discovered != nil {
		result.Namespace = discovered.Namespace
		result.Units = discovered.Units
		result.LoadErrors = discovered.Errors
	}
	if err != nil {
		return result, fmt.Errorf("discovery: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	if err := resolver.Resolve(result.Namespace, c.arena); err != nil {
		return result, fmt.Errorf("resolution: %w", err)
	}

	graph, err := depgraph.Build(result.Namespace, c.arena)
	if err != nil {
		return result, fmt.Errorf("dependency graph: %w", err)
	}
	result.Graph = graph

	for _, cycle := range graph.Cycles() {
		result.Diagnostics = append(result.Diagnostics, lexicon.Diagnostic{
			Severity: lexicon.SeverityWarning,
			Message:  fmt.Sprintf("dependency cycle: %v", cycle),
			Entity:   cycle[0],
		})
	}

	order, err := graph.TopologicalOrder()
	if err != nil {
		// Cyclic graphs still serialize, in the partial order.
		log.Warn("Emission order is partial", "error", err)
	}
	result.Order = order

	if err := ctx.Err(); err != nil {
		return result, err
	}
	if err := c.serialize(result); err != nil {
		return result, err
	}

	log.Info("Build finished",
		"entities", result.Namespace.Len(),
		"lexicons", len(result.Documents),
		"loadErrors", len(result.LoadErrors),
		"diagnostics", len(result.Diagnostics))

	return result, nil
}

// serialize fans out one Serialize call per lexicon in use. The namespace,
// graph, and order are all read-only by now.
func (c *Compiler) serialize(result *Result) error {
	lexicons, err := c.lexiconsInUse(result.Namespace)
	if err != nil {
		return err
	}

	input := lexicon.Input{
		Namespace:    result.Namespace,
		Order:        result.Order,
		Dependencies: result.Graph.Map(),
	}

	var (
		wg   conc.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, lex := range lexicons {
		wg.Go(func() {
			docs, diags, err := lex.Serialize(input)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("serialize %s: %w", lex.Name(), err))
				return
			}
			result.Documents[lex.Name()] = docs
			result.Diagnostics = append(result.Diagnostics, diags...)
		})
	}
	wg.Wait()

	return errors.Join(errs...)
}

// lexiconsInUse returns the registered lexicons the namespace references, in
// registration order. An entity claiming an unregistered lexicon is fatal.
func (c *Compiler) lexiconsInUse(ns *entity.Namespace) ([]lexicon.Lexicon, error) {
	used := make(map[string]bool)
	for _, name := range ns.Names() {
		d, _ := ns.Lookup(name)
		switch v := d.(type) {
		case *entity.Entity:
			used[v.Lexicon()] = true
		case *entity.LexiconOutput:
			used[v.Lexicon()] = true
		}
	}

	var lexicons []lexicon.Lexicon
	for _, name := range c.registry.Names() {
		if !used[name] {
			continue
		}
		lex, err := c.registry.Lookup(name)
		if err != nil {
			return nil, err
		}
		lexicons = append(lexicons, lex)
		delete(used, name)
	}

	for name := range used {
		return nil, fmt.Errorf("lexicon %q not registered", name)
	}
	return lexicons, nil
}
