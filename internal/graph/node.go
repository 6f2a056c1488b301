package graph

import (
	"fmt"

	"github.com/born-ml/attribution/internal/backend/cpu"
	"github.com/born-ml/attribution/internal/tensor"
)

// TypeInput is the type tag of input-producing layers.
const TypeInput = "Input"

// Node is an operation instance in a computation graph.
//
// A node may be invoked any number of times; every call registers one
// Invocation in the node's history. Containers (Model) are nodes too.
//
// Nodes are not safe for concurrent Call.
type Node interface {
	// Name returns the instance name.
	Name() string

	// Type returns the type tag used for rule lookup (e.g. "Dense").
	Type() string

	// IsContainer reports whether the node wraps a sub-graph.
	IsContainer() bool

	// Invocations returns the node's invocation history, oldest first.
	Invocations() []*Invocation

	// Call applies the node to inputs, registers the invocation and returns
	// freshly created output tensors.
	Call(inputs ...*Tensor) ([]*Tensor, error)
}

// Invocation is one registered call of a node.
type Invocation struct {
	Node    Node
	Inputs  []*Tensor
	Outputs []*Tensor
}

// ObserveFunc receives every primitive invocation performed during a
// re-execution, as it happens.
type ObserveFunc func(node Node, inputs, outputs []*Tensor)

// Op is the computation carried by a primitive layer.
type Op interface {
	// Type returns the op type tag.
	Type() string

	// Forward computes output values from input values.
	Forward(backend tensor.Backend, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error)

	// Clone returns an op with identical configuration.
	Clone() Op
}

// Layer is a primitive (non-container) node.
type Layer struct {
	name        string
	op          Op
	backend     tensor.Backend
	invocations []*Invocation
}

// NewLayer creates a primitive node computing op on the CPU backend.
func NewLayer(name string, op Op) *Layer {
	return &Layer{
		name:    name,
		op:      op,
		backend: cpu.New(),
	}
}

// Name returns the layer name.
func (l *Layer) Name() string {
	return l.name
}

// Type returns the type tag of the wrapped op.
func (l *Layer) Type() string {
	return l.op.Type()
}

// IsContainer always returns false.
func (l *Layer) IsContainer() bool {
	return false
}

// Op returns the wrapped op.
func (l *Layer) Op() Op {
	return l.op
}

// Backend returns the backend used for forward computation.
func (l *Layer) Backend() tensor.Backend {
	return l.backend
}

// SetBackend replaces the backend used for forward computation.
func (l *Layer) SetBackend(backend tensor.Backend) {
	l.backend = backend
}

// Invocations returns the layer's invocation history.
func (l *Layer) Invocations() []*Invocation {
	return l.invocations
}

// Call computes the layer on inputs and registers the invocation.
func (l *Layer) Call(inputs ...*Tensor) ([]*Tensor, error) {
	outputs, err := l.apply(inputs)
	if err != nil {
		return nil, err
	}
	register(l, inputs, outputs)
	return outputs, nil
}

// Rerun computes the layer on inputs like Call, but records the invocation
// only in the layer's own history and as producer of the outputs. The input
// tensors' consumer lists are left as they are, so a clone can be run on
// another model's tensors without changing that model.
func (l *Layer) Rerun(inputs ...*Tensor) ([]*Tensor, error) {
	outputs, err := l.apply(inputs)
	if err != nil {
		return nil, err
	}
	inv := &Invocation{
		Node:    l,
		Inputs:  append([]*Tensor(nil), inputs...),
		Outputs: outputs,
	}
	for _, out := range outputs {
		out.producer = inv
	}
	l.invocations = append(l.invocations, inv)
	return outputs, nil
}

// Clone duplicates the layer with an identical configuration and an empty
// history.
func (l *Layer) Clone() *Layer {
	return &Layer{
		name:    l.name,
		op:      l.op.Clone(),
		backend: l.backend,
	}
}

// apply computes fresh output tensors without touching any history.
func (l *Layer) apply(inputs []*Tensor) ([]*Tensor, error) {
	values, err := l.op.Forward(l.backend, Values(inputs))
	if err != nil {
		return nil, fmt.Errorf("layer %s (%s): %w", l.name, l.op.Type(), err)
	}
	outputs := make([]*Tensor, len(values))
	for i, v := range values {
		outputs[i] = newTensor(v)
	}
	return outputs, nil
}

// register records a call of node in its history and on the tensors involved.
func register(node Node, inputs, outputs []*Tensor) *Invocation {
	inv := &Invocation{
		Node:    node,
		Inputs:  append([]*Tensor(nil), inputs...),
		Outputs: outputs,
	}
	for _, out := range outputs {
		out.producer = inv
	}
	for _, in := range inputs {
		in.consumers = append(in.consumers, inv)
	}
	switch n := node.(type) {
	case *Layer:
		n.invocations = append(n.invocations, inv)
	case *Model:
		n.invocations = append(n.invocations, inv)
	}
	return inv
}

// Input creates a graph input holding value. The returned tensor is produced
// by a fresh input layer whose single invocation maps the tensor onto itself.
func Input(name string, value *tensor.RawTensor) *Tensor {
	layer := NewLayer(name, inputOp{})
	t := newTensor(value)
	inv := &Invocation{
		Node:    layer,
		Inputs:  []*Tensor{t},
		Outputs: []*Tensor{t},
	}
	t.producer = inv
	layer.invocations = append(layer.invocations, inv)
	return t
}

// IsInput reports whether node is an input-producing layer.
func IsInput(node Node) bool {
	return node != nil && node.Type() == TypeInput
}
