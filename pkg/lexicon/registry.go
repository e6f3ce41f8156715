// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package lexicon

import "fmt"

// Registry is the eagerly built name-to-lexicon table. Lookups either hit or
// return an explicit not-found error; nothing resolves lazily.
type Registry struct {
	names  []string
	byName map[string]Lexicon
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Lexicon)}
}

func (r *Registry) Register(l Lexicon) error {
	name := l.Name()
	if _, taken := r.byName[name]; taken {
		return fmt.Errorf("lexicon %q already registered", name)
	}
	r.names = append(r.names, name)
	r.byName[name] = l
	return nil
}

func (r *Registry) Lookup(name string) (Lexicon, error) {
	l, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("lexicon %q not registered", name)
	}
	return l, nil
}

// Names returns registered lexicon names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}
