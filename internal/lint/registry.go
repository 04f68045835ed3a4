package lint

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownRule is returned when a rule name is not registered.
var ErrUnknownRule = errors.New("unknown rule")

// Registry maps rule names to rules.
type Registry map[string]Rule

// NewRegistry builds a registry from rules. Registering two rules with the
// same name panics.
func NewRegistry(rules ...Rule) Registry {
	r := make(Registry, len(rules))
	for _, rule := range rules {
		if _, dup := r[rule.Name()]; dup {
			panic(fmt.Sprintf("lint: duplicate rule %q", rule.Name()))
		}
		r[rule.Name()] = rule
	}
	return r
}

// Lookup returns the named rule.
func (r Registry) Lookup(name string) (Rule, error) {
	rule, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownRule, name)
	}
	return rule, nil
}

// Names returns all registered rule names in sorted order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
