package graph

import (
	"errors"
	"fmt"
	"sort"
)

// ErrDisconnected is returned by NewModel when an output cannot be computed
// from the declared inputs.
var ErrDisconnected = errors.New("graph: output not reachable from inputs")

// ErrUnsupportedNode is returned when re-execution meets a node kind it
// cannot run.
var ErrUnsupportedNode = errors.New("graph: unsupported node kind")

// Model is a container node: a sub-graph from declared inputs to declared
// outputs, itself callable as a node of an enclosing graph.
//
// The sub-graph is captured when the model is built. Every registered
// invocation reachable from the inputs is part of it, including side
// branches that do not contribute to any output.
//
// Example:
//
//	x := graph.Input("x", value)
//	h, _ := dense.Call(x)
//	y, _ := relu.Call(h...)
//	model, err := graph.NewModel("mlp", []*graph.Tensor{x}, y)
type Model struct {
	name        string
	inputs      []*Tensor
	outputs     []*Tensor
	order       []*Invocation
	layers      []Node
	invocations []*Invocation
}

// NewModel captures the sub-graph between inputs and outputs.
//
// Parameters:
//   - name: Instance name of the model
//   - inputs: Declared input tensors, usually created by Input
//   - outputs: Declared output tensors
//
// Returns ErrDisconnected if some output is not computable from inputs.
func NewModel(name string, inputs, outputs []*Tensor) (*Model, error) {
	m := &Model{
		name:    name,
		inputs:  append([]*Tensor(nil), inputs...),
		outputs: append([]*Tensor(nil), outputs...),
	}
	if err := m.capture(); err != nil {
		return nil, err
	}
	return m, nil
}

// capture walks forward from the inputs and collects every invocation whose
// inputs are all computable, tagging each with its forward depth.
func (m *Model) capture() error {
	level := make(map[TensorID]int, len(m.inputs))
	depth := make(map[*Invocation]int)
	var collected []*Invocation

	queue := make([]*Tensor, 0, len(m.inputs))
	for _, x := range m.inputs {
		if _, seen := level[x.id]; seen {
			continue
		}
		level[x.id] = 0
		queue = append(queue, x)
		if inv := x.producer; inv != nil && IsInput(inv.Node) {
			depth[inv] = 0
			collected = append(collected, inv)
		}
	}

	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]

		for _, inv := range t.consumers {
			if _, done := depth[inv]; done {
				continue
			}
			d, ready := 0, true
			for _, in := range inv.Inputs {
				l, ok := level[in.id]
				if !ok {
					ready = false
					break
				}
				d = max(d, l)
			}
			if !ready {
				continue
			}
			depth[inv] = d + 1
			collected = append(collected, inv)
			for _, out := range inv.Outputs {
				if _, seen := level[out.id]; !seen {
					level[out.id] = d + 1
					queue = append(queue, out)
				}
			}
		}
	}

	for _, y := range m.outputs {
		if _, ok := level[y.id]; !ok {
			return fmt.Errorf("model %s: tensor %d: %w", m.name, y.id, ErrDisconnected)
		}
	}

	sort.SliceStable(collected, func(i, j int) bool {
		return depth[collected[i]] < depth[collected[j]]
	})
	m.order = collected

	seen := make(map[Node]bool)
	for _, inv := range collected {
		if !seen[inv.Node] {
			seen[inv.Node] = true
			m.layers = append(m.layers, inv.Node)
		}
	}
	return nil
}

// Name returns the model name.
func (m *Model) Name() string {
	return m.name
}

// Type returns "Model".
func (m *Model) Type() string {
	return "Model"
}

// IsContainer always returns true.
func (m *Model) IsContainer() bool {
	return true
}

// Inputs returns the declared input tensors.
func (m *Model) Inputs() []*Tensor {
	return m.inputs
}

// Outputs returns the declared output tensors.
func (m *Model) Outputs() []*Tensor {
	return m.outputs
}

// Layers returns the direct sub-nodes, input layers included, in order of
// first execution.
func (m *Model) Layers() []Node {
	return m.layers
}

// ExecutionOrder returns the captured invocations sorted by forward depth.
// Input-layer invocations come first.
func (m *Model) ExecutionOrder() []*Invocation {
	return m.order
}

// Invocations returns the model's own invocation history as a node.
func (m *Model) Invocations() []*Invocation {
	return m.invocations
}

// Call runs the model on inputs and registers the invocation in the
// enclosing graph. Internal tensors created by the run are not registered.
func (m *Model) Call(inputs ...*Tensor) ([]*Tensor, error) {
	outputs, err := m.run(inputs, nil)
	if err != nil {
		return nil, err
	}
	register(m, inputs, outputs)
	return outputs, nil
}

// Reapply re-executes the model on its own inputs, producing fresh output
// tensors, and reports every primitive invocation to observe as it runs.
// Nested containers are descended into, so observe only ever sees input
// layers and primitive layers. Input layers of this model are reported first
// as (layer, [x], [x]).
//
// Reapply never registers anything; the model and its layers are left as
// they were.
func (m *Model) Reapply(observe ObserveFunc) ([]*Tensor, error) {
	if observe != nil {
		for _, x := range m.inputs {
			if inv := x.producer; inv != nil && IsInput(inv.Node) {
				observe(inv.Node, []*Tensor{x}, []*Tensor{x})
			}
		}
	}
	return m.run(m.inputs, observe)
}

// run evaluates the captured sub-graph on inputs.
func (m *Model) run(inputs []*Tensor, observe ObserveFunc) ([]*Tensor, error) {
	if len(inputs) != len(m.inputs) {
		return nil, fmt.Errorf("model %s: expected %d inputs, got %d", m.name, len(m.inputs), len(inputs))
	}

	env := make(map[TensorID]*Tensor, len(m.order))
	for i, x := range m.inputs {
		env[x.id] = inputs[i]
	}

	for _, inv := range m.order {
		if IsInput(inv.Node) {
			continue
		}

		xs := make([]*Tensor, len(inv.Inputs))
		for i, in := range inv.Inputs {
			x, ok := env[in.id]
			if !ok {
				return nil, fmt.Errorf("model %s: node %s: input tensor %d not computed", m.name, inv.Node.Name(), in.id)
			}
			xs[i] = x
		}

		var ys []*Tensor
		var err error
		switch n := inv.Node.(type) {
		case *Model:
			ys, err = n.run(xs, observe)
		case *Layer:
			ys, err = n.apply(xs)
			if err == nil && observe != nil {
				observe(n, xs, ys)
			}
		default:
			err = fmt.Errorf("node %s (%T): %w", n.Name(), n, ErrUnsupportedNode)
		}
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", m.name, err)
		}
		if len(ys) != len(inv.Outputs) {
			return nil, fmt.Errorf("model %s: node %s produced %d outputs, expected %d",
				m.name, inv.Node.Name(), len(ys), len(inv.Outputs))
		}
		for i, out := range inv.Outputs {
			env[out.id] = ys[i]
		}
	}

	outputs := make([]*Tensor, len(m.outputs))
	for i, y := range m.outputs {
		outputs[i] = env[y.id]
	}
	return outputs, nil
}

// Flatten returns every node reachable through nested containers, depth first,
// the containers themselves included. Shared nodes appear once.
func (m *Model) Flatten() []Node {
	var nodes []Node
	seen := make(map[Node]bool)
	var walk func(*Model)
	walk = func(c *Model) {
		for _, n := range c.layers {
			if seen[n] {
				continue
			}
			seen[n] = true
			nodes = append(nodes, n)
			if sub, ok := n.(*Model); ok {
				walk(sub)
			}
		}
	}
	walk(m)
	return nodes
}
