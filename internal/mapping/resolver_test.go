package mapping_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/attribution/internal/backend/cpu"
	"github.com/born-ml/attribution/internal/graph"
	"github.com/born-ml/attribution/internal/graph/graphtest"
	"github.com/born-ml/attribution/internal/mapping"
	"github.com/born-ml/attribution/internal/tensor"
)

// constant returns a rule that answers every input with value.
func constant(value float32) mapping.Func {
	return func(xs, _ []*graph.Tensor, _ []*tensor.RawTensor, _ *mapping.State) ([]*tensor.RawTensor, error) {
		out := make([]*tensor.RawTensor, len(xs))
		for i := range out {
			out[i] = graphtest.Vector(value)
		}
		return out, nil
	}
}

func apply(t *testing.T, fn mapping.Func, node graph.Node) float64 {
	t.Helper()
	x := graph.Input("x", graphtest.Vector(0))
	out, err := fn([]*graph.Tensor{x}, nil, nil, &mapping.State{Node: node})
	require.NoError(t, err)
	require.Len(t, out, 1)
	return out[0].Float64s()[0]
}

func TestResolutionOrder(t *testing.T) {
	dense := graph.NewLayer("dense", &graph.Scale{Factor: 1})
	relu := graph.NewLayer("relu", graph.ReLU{})
	other := graph.NewLayer("other", graph.Identity{})

	registry := mapping.NewRegistry()
	registry.Register(graph.TypeScale, constant(2))
	registry.Register(graph.TypeReLU, constant(2))

	resolver := mapping.NewResolver(registry, constant(3)).Bind(dense, constant(1))
	resolved, err := resolver.ResolveAll([]graph.Node{dense, relu, other}, mapping.Info{})
	require.NoError(t, err)

	for node, want := range map[*graph.Layer]float64{dense: 1, relu: 2, other: 3} {
		fn, err := resolved.For(node, 0)
		require.NoError(t, err)
		assert.InDelta(t, want, apply(t, fn, node), 1e-6, node.Name())
	}
}

func TestMissingMappingIsLazy(t *testing.T) {
	relu := graph.NewLayer("relu", graph.ReLU{})
	resolver := mapping.NewResolver(mapping.NewRegistry(), nil)

	resolved, err := resolver.ResolveAll([]graph.Node{relu}, mapping.Info{})
	require.NoError(t, err)

	_, err = resolved.For(relu, 4)
	require.ErrorIs(t, err, mapping.ErrMissingMapping)

	var missing *mapping.MissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "relu", missing.Node)
	assert.Equal(t, graph.TypeReLU, missing.Type)
	assert.EqualValues(t, 4, missing.NID)
}

func TestFactoryCalledOncePerNode(t *testing.T) {
	shared := graph.NewLayer("shared", graph.Identity{})
	calls := 0
	factory := mapping.Factory(func(node graph.Node, info mapping.Info) (mapping.Func, error) {
		calls++
		assert.Same(t, shared, node)
		return constant(5), nil
	})

	resolved, err := mapping.NewResolver(nil, factory).ResolveAll([]graph.Node{shared, shared}, mapping.Info{})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	fn, err := resolved.For(shared, 0)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, apply(t, fn, shared), 1e-6)
}

type scaleMapping struct {
	factor float64
	info   mapping.Info
}

func (m *scaleMapping) Apply(xs, _ []*graph.Tensor, reversedYs []*tensor.RawTensor, state *mapping.State) ([]*tensor.RawTensor, error) {
	return []*tensor.RawTensor{m.info.Backend.MulScalar(reversedYs[0], m.factor)}, nil
}

func TestObjectRule(t *testing.T) {
	layer := graph.NewLayer("scale", &graph.Scale{Factor: 4})
	object := mapping.Object(func(node graph.Node, info mapping.Info) (mapping.Mapping, error) {
		op := node.(*graph.Layer).Op().(*graph.Scale)
		return &scaleMapping{factor: op.Factor, info: info}, nil
	})

	registry := mapping.NewRegistry()
	registry.Register(graph.TypeScale, object)
	resolved, err := mapping.NewResolver(registry, nil).ResolveAll([]graph.Node{layer}, mapping.Info{Backend: cpu.New()})
	require.NoError(t, err)

	fn, err := resolved.For(layer, 0)
	require.NoError(t, err)
	out, err := fn(nil, nil, []*tensor.RawTensor{graphtest.Vector(1, 2)}, &mapping.State{})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{4, 8}, out[0].Float64s(), 1e-6)
}

func TestFactoryErrorAborts(t *testing.T) {
	layer := graph.NewLayer("bad", graph.Identity{})
	factory := mapping.Factory(func(graph.Node, mapping.Info) (mapping.Func, error) {
		return nil, errors.New("cannot build")
	})

	_, err := mapping.NewResolver(nil, factory).ResolveAll([]graph.Node{layer}, mapping.Info{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}

func TestResolveAllSkipsContainersAndInputs(t *testing.T) {
	n := graphtest.NewNested()
	resolver := mapping.NewResolver(nil, nil)
	resolved, err := resolver.ResolveAll(n.Model.Flatten(), mapping.Info{})
	require.NoError(t, err)

	// Containers are never reversed and never reported missing at resolve time.
	_, err = resolved.For(n.Dense, 0)
	assert.ErrorIs(t, err, mapping.ErrMissingMapping)
}

func TestAs(t *testing.T) {
	plain := func(xs, ys []*graph.Tensor, rys []*tensor.RawTensor, s *mapping.State) ([]*tensor.RawTensor, error) {
		return rys, nil
	}
	rule, err := mapping.As(plain)
	require.NoError(t, err)
	assert.IsType(t, mapping.Func(nil), rule)

	rule, err = mapping.As(func(graph.Node, mapping.Info) (mapping.Func, error) { return nil, nil })
	require.NoError(t, err)
	assert.IsType(t, mapping.Factory(nil), rule)

	rule, err = mapping.As(func(graph.Node, mapping.Info) (mapping.Mapping, error) { return nil, nil })
	require.NoError(t, err)
	assert.IsType(t, mapping.Object(nil), rule)

	rule, err = mapping.As(&scaleMapping{factor: 1})
	require.NoError(t, err)
	assert.IsType(t, mapping.Object(nil), rule)

	rule, err = mapping.As(mapping.Identity)
	require.NoError(t, err)
	assert.IsType(t, mapping.Func(nil), rule)

	_, err = mapping.As(42)
	require.Error(t, err)
}

func TestSelectorFunc(t *testing.T) {
	relu := graph.NewLayer("relu", graph.ReLU{})
	dense := graph.NewLayer("dense", graph.Identity{})
	selector := mapping.SelectorFunc(func(node graph.Node) mapping.Rule {
		if node.Type() == graph.TypeReLU {
			return mapping.Identity
		}
		return nil
	})

	_, ok := selector.RuleFor(relu)
	assert.True(t, ok)
	_, ok = selector.RuleFor(dense)
	assert.False(t, ok)
}

func TestRegistryTypes(t *testing.T) {
	registry := mapping.NewRegistry()
	registry.Register("b", mapping.Identity)
	registry.Register("a", mapping.Identity)
	assert.Equal(t, []string{"a", "b"}, registry.Types())

	_, ok := registry.Get("c")
	assert.False(t, ok)
}

func TestIdentity(t *testing.T) {
	x := graph.Input("x", graphtest.Vector(1))
	y := graph.Input("y", graphtest.Vector(1))

	out, err := mapping.Identity([]*graph.Tensor{x}, []*graph.Tensor{y}, []*tensor.RawTensor{graphtest.Vector(7)}, nil)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{7}, out[0].Float64s(), 1e-6)

	_, err = mapping.Identity([]*graph.Tensor{x, x}, []*graph.Tensor{y}, nil, nil)
	require.ErrorIs(t, err, mapping.ErrUnsupportedShape)
}
