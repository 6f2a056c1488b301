package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/attribution/internal/graph"
	"github.com/born-ml/attribution/internal/graph/graphtest"
)

func TestTensorIDsAreUnique(t *testing.T) {
	a := graph.Input("a", graphtest.Vector(1))
	b := graph.Input("b", graphtest.Vector(1))
	assert.NotEqual(t, a.ID(), b.ID())

	ys, err := graph.NewLayer("id", graph.Identity{}).Call(a)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), ys[0].ID())
}

func TestLayerCallRegistersInvocation(t *testing.T) {
	x := graph.Input("x", graphtest.Vector(1, 2))
	layer := graph.NewLayer("scale", &graph.Scale{Factor: 3})

	ys, err := layer.Call(x)
	require.NoError(t, err)
	require.Len(t, ys, 1)

	require.Len(t, layer.Invocations(), 1)
	inv := layer.Invocations()[0]
	assert.Same(t, layer, inv.Node)
	assert.Same(t, inv, ys[0].Producer())
	assert.Contains(t, x.Consumers(), inv)
	assert.InDeltaSlice(t, []float64{3, 6}, ys[0].Value().Float64s(), 1e-6)
}

func TestInputSelfInvocation(t *testing.T) {
	x := graph.Input("x", graphtest.Vector(1))
	inv := x.Producer()
	require.NotNil(t, inv)
	assert.True(t, graph.IsInput(inv.Node))
	assert.Equal(t, []*graph.Tensor{x}, inv.Inputs)
	assert.Equal(t, []*graph.Tensor{x}, inv.Outputs)
}

func TestNewModelExecutionOrder(t *testing.T) {
	s := graphtest.NewSideBranch()

	order := s.Model.ExecutionOrder()
	require.Len(t, order, 4)
	assert.True(t, graph.IsInput(order[0].Node))
	assert.Same(t, s.Dense, order[1].Node)

	// relu and side share depth 2; both come after dense.
	rest := []graph.Node{order[2].Node, order[3].Node}
	assert.ElementsMatch(t, []graph.Node{s.ReLU, s.Side}, rest)
	assert.Len(t, s.Model.Layers(), 4)
}

func TestNewModelDisconnected(t *testing.T) {
	x := graph.Input("x", graphtest.Vector(1))
	other := graph.Input("other", graphtest.Vector(1))
	ys, err := graph.NewLayer("id", graph.Identity{}).Call(other)
	require.NoError(t, err)

	_, err = graph.NewModel("bad", []*graph.Tensor{x}, ys)
	require.ErrorIs(t, err, graph.ErrDisconnected)
}

func TestReapplyObservesPrimitives(t *testing.T) {
	n := graphtest.NewNested()

	var seen []graph.Node
	outs, err := n.Model.Reapply(func(node graph.Node, inputs, outputs []*graph.Tensor) {
		seen = append(seen, node)
	})
	require.NoError(t, err)
	require.Len(t, outs, 1)

	require.Len(t, seen, 5)
	assert.True(t, graph.IsInput(seen[0]))
	assert.Equal(t, []graph.Node{n.Pre, n.Dense, n.ReLU, n.Post}, seen[1:])

	// Fresh outputs, equal values.
	assert.NotEqual(t, n.Y.ID(), outs[0].ID())
	assert.InDeltaSlice(t, n.Y.Value().Float64s(), outs[0].Value().Float64s(), 1e-6)
}

func TestReapplyLeavesHistoryUntouched(t *testing.T) {
	c := graphtest.NewChain()
	before := len(c.A.Invocations())

	_, err := c.Model.Reapply(nil)
	require.NoError(t, err)
	assert.Len(t, c.A.Invocations(), before)
}

func TestNestedMatchesFlatForward(t *testing.T) {
	n := graphtest.NewNested()
	flat := graphtest.NewFlatNested()

	// pre: [2, 4]; dense: [2*1+4*2, 2*-1+4*1] = [10, 2]; relu keeps both.
	assert.InDeltaSlice(t, []float64{10, 2}, n.Y.Value().Float64s(), 1e-6)
	assert.InDeltaSlice(t, flat.Outputs()[0].Value().Float64s(), n.Y.Value().Float64s(), 1e-6)
}

func TestFlatten(t *testing.T) {
	n := graphtest.NewNested()
	nodes := n.Model.Flatten()
	assert.Contains(t, nodes, graph.Node(n.Inner))
	assert.Contains(t, nodes, graph.Node(n.Dense))
	assert.Contains(t, nodes, graph.Node(n.ReLU))
	assert.Contains(t, nodes, graph.Node(n.Post))
}

func TestLayerClone(t *testing.T) {
	layer := graph.NewLayer("dense", &graph.Dense{Weight: graphtest.Matrix(1, 1, 2)})
	_, err := layer.Call(graph.Input("x", graphtest.Vector(1)))
	require.NoError(t, err)

	clone := layer.Clone()
	assert.Equal(t, layer.Name(), clone.Name())
	assert.Empty(t, clone.Invocations())
	assert.NotSame(t, layer.Op(), clone.Op())
}

func TestOpErrors(t *testing.T) {
	x := graph.Input("x", graphtest.Vector(1, 2))

	_, err := graph.NewLayer("add", graph.Add{}).Call(x)
	require.Error(t, err)

	_, err = graph.NewLayer("dense", &graph.Dense{Weight: graphtest.Matrix(3, 1, 1, 1, 1)}).Call(x)
	require.Error(t, err)

	_, err = graph.NewLayer("rep", &graph.Replicate{N: 0}).Call(x)
	require.Error(t, err)
}

func TestReplicate(t *testing.T) {
	x := graph.Input("x", graphtest.Vector(1, 2))
	ys, err := graph.NewLayer("rep", &graph.Replicate{N: 3}).Call(x)
	require.NoError(t, err)
	require.Len(t, ys, 3)
	for _, y := range ys {
		assert.Same(t, ys[0].Producer(), y.Producer())
		assert.InDeltaSlice(t, []float64{1, 2}, y.Value().Float64s(), 1e-6)
	}
}

func TestRerunLeavesInputsUntouched(t *testing.T) {
	x := graph.Input("x", graphtest.Vector(1, 2))
	clone := graph.NewLayer("scale", &graph.Scale{Factor: 2}).Clone()
	consumers := len(x.Consumers())

	ys, err := clone.Rerun(x)
	require.NoError(t, err)
	assert.Len(t, x.Consumers(), consumers)
	require.Len(t, clone.Invocations(), 1)
	assert.Same(t, clone.Invocations()[0], ys[0].Producer())
	assert.InDeltaSlice(t, []float64{2, 4}, ys[0].Value().Float64s(), 1e-6)
}
