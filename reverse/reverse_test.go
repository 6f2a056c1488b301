package reverse_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/attribution/graph"
	"github.com/born-ml/attribution/mapping"
	"github.com/born-ml/attribution/reverse"
	"github.com/born-ml/attribution/tensor"
	"github.com/born-ml/attribution/trace"
)

// scaleRule reverses a Scale layer by applying its factor again.
var scaleRule = mapping.Factory(func(node graph.Node, _ mapping.Info) (mapping.Func, error) {
	op := node.(*graph.Layer).Op().(*graph.Scale)
	return func(_, _ []*graph.Tensor, reversedYs []*tensor.RawTensor, state *mapping.State) ([]*tensor.RawTensor, error) {
		return []*tensor.RawTensor{state.Backend.MulScalar(reversedYs[0], op.Factor)}, nil
	}, nil
})

// split hands the reversed sum to every summand.
var split = mapping.Func(func(xs, _ []*graph.Tensor, reversedYs []*tensor.RawTensor, _ *mapping.State) ([]*tensor.RawTensor, error) {
	out := make([]*tensor.RawTensor, len(xs))
	for i := range out {
		out[i] = reversedYs[0]
	}
	return out, nil
})

func vector(t testing.TB, vals ...float32) *tensor.RawTensor {
	raw, err := tensor.FromFloat32(vals, tensor.Shape{1, len(vals)})
	require.NoError(t, err)
	return raw
}

// residual builds y = x + 3x.
func residual(t testing.TB) (*graph.Model, *graph.Layer) {
	x := graph.Input("x", vector(t, 1, 2))
	scale := graph.NewLayer("scale", &graph.Scale{Factor: 3})
	h, err := scale.Call(x)
	require.NoError(t, err)
	y, err := graph.NewLayer("sum", graph.Add{}).Call(x, h[0])
	require.NoError(t, err)
	model, err := graph.NewModel("residual", []*graph.Tensor{x}, y)
	require.NoError(t, err)
	return model, scale
}

func rules() *mapping.Registry {
	registry := mapping.NewRegistry()
	registry.Register(graph.TypeScale, scaleRule)
	registry.Register(graph.TypeAdd, split)
	return registry
}

func TestPublicReverse(t *testing.T) {
	model, _ := residual(t)

	res, err := reverse.Reverse(context.Background(), model, rules(), reverse.DefaultConfig())
	require.NoError(t, err)

	// y = [4, 8]; x receives y directly and 3y through scale.
	assert.InDeltaSlice(t, []float64{16, 32}, res.Inputs[0].Float64s(), 1e-6)
	assert.NotEmpty(t, res.RunID)
}

func TestPublicBoundRule(t *testing.T) {
	model, scale := residual(t)

	cfg := reverse.DefaultConfig()
	cfg.Bound = map[graph.Node]mapping.Rule{scale: mapping.Identity}
	res, err := reverse.Reverse(context.Background(), model, rules(), cfg)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{8, 16}, res.Inputs[0].Float64s(), 1e-6)
}

func TestPublicMissingMapping(t *testing.T) {
	model, _ := residual(t)
	_, err := reverse.Reverse(context.Background(), model, mapping.NewRegistry(), reverse.DefaultConfig())
	require.ErrorIs(t, err, mapping.ErrMissingMapping)
}

func TestPublicClip(t *testing.T) {
	model, _ := residual(t)

	cfg := reverse.DefaultConfig()
	cfg.Clip = &reverse.Range{Lo: 0, Hi: 10}
	res, err := reverse.Reverse(context.Background(), model, rules(), cfg)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{10, 10}, res.Inputs[0].Float64s(), 1e-6)

	cfg.Clip = &reverse.Range{Lo: 1, Hi: 1}
	_, err = reverse.Reverse(context.Background(), model, rules(), cfg)
	require.ErrorIs(t, err, reverse.ErrInvalidConfig)
}

func TestPublicTraceQueries(t *testing.T) {
	model, scale := residual(t)
	ctx := context.Background()

	exec, err := trace.NewTracer(trace.DefaultConfig()).TraceModel(ctx, model)
	require.NoError(t, err)

	tr := trace.NewTrace(exec)
	e, ok := tr.Node(0)
	require.True(t, ok)
	assert.Same(t, scale, e.Node)

	// x reaches the sum both directly and through scale, so only the sum is
	// a cut point.
	nodes := trace.BottleneckNodes(ctx, exec.Inputs, exec.Outputs, exec.Records)
	require.Len(t, nodes, 1)
	assert.Equal(t, "sum", nodes[0].Node.Name())
}

func TestSaveResult(t *testing.T) {
	model, _ := residual(t)
	res, err := reverse.Reverse(context.Background(), model, rules(), reverse.DefaultConfig())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "maps.safetensors")
	require.NoError(t, reverse.SaveResult(path, model, res))

	maps, meta, err := reverse.LoadResult(path)
	require.NoError(t, err)
	assert.Equal(t, res.RunID, meta["run_id"])
	assert.Equal(t, "residual", meta["model"])
	require.Contains(t, maps, "x")
	assert.InDeltaSlice(t, []float64{16, 32}, maps["x"].Float64s(), 1e-6)
}

func ExampleReverse() {
	x0, _ := tensor.FromFloat32([]float32{1, 2}, tensor.Shape{1, 2})
	x := graph.Input("x", x0)
	y, _ := graph.NewLayer("double", &graph.Scale{Factor: 2}).Call(x)
	model, _ := graph.NewModel("double", []*graph.Tensor{x}, y)

	registry := mapping.NewRegistry()
	registry.Register(graph.TypeScale, scaleRule)
	res, err := reverse.Reverse(context.Background(), model, registry, reverse.DefaultConfig())
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(res.Inputs[0].Float64s())
	// Output: [4 8]
}
