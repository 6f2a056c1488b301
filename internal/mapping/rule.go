// Package mapping resolves the reverse rule of every node in a traced model.
//
// A rule takes the forward inputs and outputs of one node invocation plus the
// reversed values of its outputs, and returns the reversed values of its
// inputs. Rules come in three forms: a ready-made Func, a Factory building a
// Func per node, and an Object building a stateful Mapping per node.
package mapping

import (
	"fmt"

	"github.com/born-ml/attribution/internal/graph"
	"github.com/born-ml/attribution/internal/tensor"
	"github.com/born-ml/attribution/internal/trace"
)

// State is the per-invocation context handed to a reverse function.
type State struct {
	// NID is the id of the node being reversed.
	NID trace.NodeID

	// Model is the model under reversal.
	Model *graph.Model

	// Node is the node being reversed.
	Node graph.Node

	// StopAt lists the node's inputs that are in the stop-set. Their
	// reversed values are discarded by the engine.
	StopAt []*graph.Tensor

	// Backend performs tensor arithmetic.
	Backend tensor.Backend
}

// Info is the construction context handed to factories and objects.
type Info struct {
	Model   *graph.Model
	Backend tensor.Backend
}

// Func reverses one node invocation. It must return one value per input.
type Func func(xs, ys []*graph.Tensor, reversedYs []*tensor.RawTensor, state *State) ([]*tensor.RawTensor, error)

// Factory builds the reverse function of a node.
type Factory func(node graph.Node, info Info) (Func, error)

// Mapping is a stateful reverse rule bound to one node.
type Mapping interface {
	Apply(xs, ys []*graph.Tensor, reversedYs []*tensor.RawTensor, state *State) ([]*tensor.RawTensor, error)
}

// Object builds the Mapping of a node.
type Object func(node graph.Node, info Info) (Mapping, error)

// Rule is one of Func, Factory or Object.
type Rule interface {
	rule()
}

func (Func) rule()    {}
func (Factory) rule() {}
func (Object) rule()  {}

// As converts a plain callable of one of the supported shapes to a Rule.
// It accepts Rule values, Mapping values (bound as-is to every node) and
// unnamed functions with the signature of Func, Factory or Object.
func As(v any) (Rule, error) {
	switch r := v.(type) {
	case Rule:
		return r, nil
	case func([]*graph.Tensor, []*graph.Tensor, []*tensor.RawTensor, *State) ([]*tensor.RawTensor, error):
		return Func(r), nil
	case func(graph.Node, Info) (Func, error):
		return Factory(r), nil
	case func(graph.Node, Info) (Mapping, error):
		return Object(r), nil
	case Mapping:
		return Object(func(graph.Node, Info) (Mapping, error) { return r, nil }), nil
	default:
		return nil, fmt.Errorf("mapping: %T is not a reverse rule", v)
	}
}

// build turns rule into the reverse function of node.
func build(rule Rule, node graph.Node, info Info) (Func, error) {
	switch r := rule.(type) {
	case Func:
		return r, nil
	case Factory:
		fn, err := r(node, info)
		if err != nil {
			return nil, err
		}
		if fn == nil {
			return nil, fmt.Errorf("factory returned no function")
		}
		return fn, nil
	case Object:
		m, err := r(node, info)
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, fmt.Errorf("object returned no mapping")
		}
		return m.Apply, nil
	default:
		return nil, fmt.Errorf("unknown rule form %T", rule)
	}
}
