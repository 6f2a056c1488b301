package mapping

import (
	"sort"

	"github.com/born-ml/attribution/internal/graph"
)

// Source looks up the rule for a node. It reports false when it has none.
type Source interface {
	RuleFor(node graph.Node) (Rule, bool)
}

// Registry maps node type tags to rules.
type Registry struct {
	rules map[string]Rule
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rules: make(map[string]Rule),
	}
}

// Register associates rule with nodeType, replacing any previous rule.
func (r *Registry) Register(nodeType string, rule Rule) {
	r.rules[nodeType] = rule
}

// Get returns the rule registered for nodeType.
func (r *Registry) Get(nodeType string) (Rule, bool) {
	rule, ok := r.rules[nodeType]
	return rule, ok
}

// RuleFor returns the rule registered for the node's type.
func (r *Registry) RuleFor(node graph.Node) (Rule, bool) {
	return r.Get(node.Type())
}

// Types returns the registered type tags, sorted.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.rules))
	for t := range r.rules {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// SelectorFunc adapts a function to Source. A nil result means no rule.
type SelectorFunc func(node graph.Node) Rule

// RuleFor calls f.
func (f SelectorFunc) RuleFor(node graph.Node) (Rule, bool) {
	rule := f(node)
	return rule, rule != nil
}
