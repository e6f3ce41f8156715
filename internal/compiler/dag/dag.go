// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package dag holds the directed-graph cycle finder shared by the dependency
// graph sanity check and the diagnostics that look for circular references in
// serialized output.
package dag

import (
	"slices"
	"strings"
)

type color int

const (
	white color = iota // unvisited
	grey               // in progress
	black              // done
)

// FindCycles returns every elementary cycle found by a three-state DFS over
// the graph, each reported exactly once regardless of traversal start. A node
// with a self-edge is a one-element cycle. Nodes referenced as neighbors but
// absent as keys are treated as having no outgoing edges.
func FindCycles(graph map[string][]string) [][]string {
	state := make(map[string]color, len(graph))
	parent := make(map[string]string, len(graph))
	seen := make(map[string]struct{})
	var cycles [][]string

	nodes := make([]string, 0, len(graph))
	for n := range graph {
		nodes = append(nodes, n)
	}
	slices.Sort(nodes)

	var visit func(n string)
	visit = func(n string) {
		state[n] = grey
		for _, m := range graph[n] {
			switch state[m] {
			case white:
				parent[m] = n
				visit(m)
			case grey:
				cycle := reconstruct(n, m, parent)
				key := strings.Join(cycle, "\x00")
				if _, dup := seen[key]; !dup {
					seen[key] = struct{}{}
					cycles = append(cycles, cycle)
				}
			}
		}
		state[n] = black
	}

	for _, n := range nodes {
		if state[n] == white {
			visit(n)
		}
	}
	return cycles
}

// HasCycles reports whether the graph contains at least one cycle.
func HasCycles(graph map[string][]string) bool {
	return len(FindCycles(graph)) > 0
}

// reconstruct walks parent pointers from the current node back to the target
// of the back-edge, includes the target at both ends, trims the trailing
// duplicate, and normalizes the rotation so the lexicographically smallest
// member leads.
func reconstruct(current, target string, parent map[string]string) []string {
	cycle := []string{target}
	for n := current; n != target; n = parent[n] {
		cycle = append(cycle, n)
	}
	cycle = append(cycle, target)
	cycle = cycle[:len(cycle)-1]

	// cycle is [target, current, ..., successor-of-target]; reverse the tail
	// so the sequence follows edge direction.
	slices.Reverse(cycle[1:])

	return normalize(cycle)
}

func normalize(cycle []string) []string {
	smallest := 0
	for i, n := range cycle {
		if n < cycle[smallest] {
			smallest = i
		}
	}
	rotated := make([]string, 0, len(cycle))
	rotated = append(rotated, cycle[smallest:]...)
	rotated = append(rotated, cycle[:smallest]...)
	return rotated
}
