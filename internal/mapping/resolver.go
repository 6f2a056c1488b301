package mapping

import (
	"fmt"

	"github.com/born-ml/attribution/internal/graph"
	"github.com/born-ml/attribution/internal/trace"
)

// Resolver picks the rule of each node: a rule bound to the node instance
// wins, then the source, then the fallback.
//
// A Resolver must not be modified while ResolveAll runs; resolving from
// several goroutines at once is safe.
type Resolver struct {
	bound    map[graph.Node]Rule
	source   Source
	fallback Rule
}

// NewResolver creates a resolver over source. source and fallback may be nil.
func NewResolver(source Source, fallback Rule) *Resolver {
	return &Resolver{
		bound:    make(map[graph.Node]Rule),
		source:   source,
		fallback: fallback,
	}
}

// Bind attaches rule to one node instance.
func (r *Resolver) Bind(node graph.Node, rule Rule) *Resolver {
	r.bound[node] = rule
	return r
}

// Lookup returns the rule that applies to node.
func (r *Resolver) Lookup(node graph.Node) (Rule, bool) {
	if rule, ok := r.bound[node]; ok {
		return rule, true
	}
	if r.source != nil {
		if rule, ok := r.source.RuleFor(node); ok {
			return rule, true
		}
	}
	if r.fallback != nil {
		return r.fallback, true
	}
	return nil, false
}

// ResolveAll builds the reverse function of every primitive node in nodes.
// Containers and input layers are skipped. Each node is resolved once even
// if listed several times. Nodes without a rule are remembered and reported
// by Resolved.For.
func (r *Resolver) ResolveAll(nodes []graph.Node, info Info) (*Resolved, error) {
	resolved := &Resolved{funcs: make(map[graph.Node]Func, len(nodes))}
	for _, node := range nodes {
		if node.IsContainer() || graph.IsInput(node) {
			continue
		}
		if _, done := resolved.funcs[node]; done {
			continue
		}
		rule, ok := r.Lookup(node)
		if !ok {
			resolved.funcs[node] = nil
			continue
		}
		fn, err := build(rule, node, info)
		if err != nil {
			return nil, fmt.Errorf("resolve node %s (%s): %w", node.Name(), node.Type(), err)
		}
		resolved.funcs[node] = fn
	}
	return resolved, nil
}

// Resolved holds the reverse functions of one run. It is read-only.
type Resolved struct {
	funcs map[graph.Node]Func
}

// For returns the reverse function of node, the node being nid in the trace.
func (r *Resolved) For(node graph.Node, nid trace.NodeID) (Func, error) {
	fn := r.funcs[node]
	if fn == nil {
		return nil, &MissingError{Node: node.Name(), Type: node.Type(), NID: nid}
	}
	return fn, nil
}
