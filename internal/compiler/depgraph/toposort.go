// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package depgraph

import "fmt"

// TopologicalOrder returns the graph's nodes so that every entity appears
// after everything it depends on, breaking ties by namespace insertion order.
// When cycles make a full order impossible the stuck entities are appended
// in namespace order and an error naming them is returned alongside, so the
// order always covers every node.
func (g *Graph) TopologicalOrder() ([]string, error) {
	remaining := make(map[string]int, len(g.names))
	for _, name := range g.names {
		deps := 0
		for _, dep := range g.deps[name] {
			if _, tracked := g.deps[dep]; tracked {
				deps++
			}
		}
		remaining[name] = deps
	}

	dependents := make(map[string][]string, len(g.names))
	for _, name := range g.names {
		for _, dep := range g.deps[name] {
			dependents[dep] = append(dependents[dep], name)
		}
	}

	order := make([]string, 0, len(g.names))
	emitted := make(map[string]struct{}, len(g.names))

	for len(order) < len(g.names) {
		progressed := false
		for _, name := range g.names {
			if _, done := emitted[name]; done {
				continue
			}
			if remaining[name] > 0 {
				continue
			}
			order = append(order, name)
			emitted[name] = struct{}{}
			for _, dependent := range dependents[name] {
				remaining[dependent]--
			}
			progressed = true
		}
		if !progressed {
			var stuck []string
			for _, name := range g.names {
				if _, done := emitted[name]; !done {
					stuck = append(stuck, name)
				}
			}
			return append(order, stuck...), fmt.Errorf("dependency cycle prevents ordering of %v", stuck)
		}
	}

	return order, nil
}
