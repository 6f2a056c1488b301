// Package graphtest builds small graphs shared by tests across packages.
package graphtest

import (
	"github.com/born-ml/attribution/internal/graph"
	"github.com/born-ml/attribution/internal/tensor"
)

// Vector returns a [1, len(vals)] float32 tensor.
func Vector(vals ...float32) *tensor.RawTensor {
	t, err := tensor.FromFloat32(vals, tensor.Shape{1, len(vals)})
	if err != nil {
		panic(err)
	}
	return t
}

// Matrix returns a [rows, cols] float32 tensor.
func Matrix(rows, cols int, vals ...float32) *tensor.RawTensor {
	t, err := tensor.FromFloat32(vals, tensor.Shape{rows, cols})
	if err != nil {
		panic(err)
	}
	return t
}

// Must unwraps the result of a node call.
func Must(ys []*graph.Tensor, err error) []*graph.Tensor {
	if err != nil {
		panic(err)
	}
	return ys
}

// Chain is x -> A -> B -> C with Identity ops.
type Chain struct {
	Model   *graph.Model
	X       *graph.Tensor
	A, B, C *graph.Layer
	HA, HB  *graph.Tensor
	Y       *graph.Tensor
}

// NewChain builds a three node identity chain over a [1, 2] input.
func NewChain() *Chain {
	c := &Chain{
		X: graph.Input("x", Vector(1, 2)),
		A: graph.NewLayer("a", graph.Identity{}),
		B: graph.NewLayer("b", graph.Identity{}),
		C: graph.NewLayer("c", graph.Identity{}),
	}
	c.HA = Must(c.A.Call(c.X))[0]
	c.HB = Must(c.B.Call(c.HA))[0]
	c.Y = Must(c.C.Call(c.HB))[0]
	model, err := graph.NewModel("chain", []*graph.Tensor{c.X}, []*graph.Tensor{c.Y})
	if err != nil {
		panic(err)
	}
	c.Model = model
	return c
}

// FanOut is x -> T, with T consumed by both L and R, merged by Sum.
type FanOut struct {
	Model  *graph.Model
	X      *graph.Tensor
	Stem   *graph.Layer
	T      *graph.Tensor
	L, R   *graph.Layer
	LY, RY *graph.Tensor
	Sum    *graph.Layer
	Y      *graph.Tensor
}

// NewFanOut builds the fan-out graph over a [1, 2] input.
func NewFanOut() *FanOut {
	f := &FanOut{
		X:    graph.Input("x", Vector(1, 2)),
		Stem: graph.NewLayer("stem", graph.Identity{}),
		L:    graph.NewLayer("left", graph.Identity{}),
		R:    graph.NewLayer("right", &graph.Scale{Factor: 2}),
		Sum:  graph.NewLayer("sum", graph.Add{}),
	}
	f.T = Must(f.Stem.Call(f.X))[0]
	f.LY = Must(f.L.Call(f.T))[0]
	f.RY = Must(f.R.Call(f.T))[0]
	f.Y = Must(f.Sum.Call(f.LY, f.RY))[0]
	model, err := graph.NewModel("fanout", []*graph.Tensor{f.X}, []*graph.Tensor{f.Y})
	if err != nil {
		panic(err)
	}
	f.Model = model
	return f
}

// SideBranch is a chain x -> dense -> relu -> y plus a side node hanging off
// the hidden tensor that no output depends on.
type SideBranch struct {
	Model *graph.Model
	X     *graph.Tensor
	Dense *graph.Layer
	H     *graph.Tensor
	ReLU  *graph.Layer
	Y     *graph.Tensor
	Side  *graph.Layer
	SideY *graph.Tensor
}

// NewSideBranch builds the side-branch graph with a 2x2 dense layer.
func NewSideBranch() *SideBranch {
	s := &SideBranch{
		X: graph.Input("x", Vector(1, -2)),
		Dense: graph.NewLayer("dense", &graph.Dense{
			Weight: Matrix(2, 2, 1, 0, 0, 1),
			Bias:   Vector(0.5, 0.5),
		}),
		ReLU: graph.NewLayer("relu", graph.ReLU{}),
		Side: graph.NewLayer("side", &graph.Scale{Factor: 3}),
	}
	s.H = Must(s.Dense.Call(s.X))[0]
	s.Y = Must(s.ReLU.Call(s.H))[0]
	s.SideY = Must(s.Side.Call(s.H))[0]
	model, err := graph.NewModel("side", []*graph.Tensor{s.X}, []*graph.Tensor{s.Y})
	if err != nil {
		panic(err)
	}
	s.Model = model
	return s
}

// Nested wraps an inner model (dense -> relu) between an outer pre and post
// layer: x -> pre -> inner -> post -> y.
type Nested struct {
	Model *graph.Model
	Inner *graph.Model
	X     *graph.Tensor
	Pre   *graph.Layer
	Dense *graph.Layer
	ReLU  *graph.Layer
	Post  *graph.Layer
	Y     *graph.Tensor
}

// NewNested builds the nested graph. Its flat equivalent is NewFlatNested.
func NewNested() *Nested {
	n := &Nested{
		Pre: graph.NewLayer("pre", &graph.Scale{Factor: 2}),
		Dense: graph.NewLayer("dense", &graph.Dense{
			Weight: Matrix(2, 2, 1, -1, 2, 1),
		}),
		ReLU: graph.NewLayer("relu", graph.ReLU{}),
		Post: graph.NewLayer("post", graph.Identity{}),
	}

	innerX := graph.Input("inner_x", Vector(0, 0))
	innerH := Must(n.Dense.Call(innerX))[0]
	innerY := Must(n.ReLU.Call(innerH))[0]
	inner, err := graph.NewModel("inner", []*graph.Tensor{innerX}, []*graph.Tensor{innerY})
	if err != nil {
		panic(err)
	}
	n.Inner = inner

	n.X = graph.Input("x", Vector(1, 2))
	h := Must(n.Pre.Call(n.X))[0]
	h = Must(inner.Call(h))[0]
	n.Y = Must(n.Post.Call(h))[0]
	model, err := graph.NewModel("outer", []*graph.Tensor{n.X}, []*graph.Tensor{n.Y})
	if err != nil {
		panic(err)
	}
	n.Model = model
	return n
}

// NewFlatNested builds the same computation as NewNested without the inner
// container.
func NewFlatNested() *graph.Model {
	x := graph.Input("x", Vector(1, 2))
	h := Must(graph.NewLayer("pre", &graph.Scale{Factor: 2}).Call(x))[0]
	h = Must(graph.NewLayer("dense", &graph.Dense{Weight: Matrix(2, 2, 1, -1, 2, 1)}).Call(h))[0]
	h = Must(graph.NewLayer("relu", graph.ReLU{}).Call(h))[0]
	y := Must(graph.NewLayer("post", graph.Identity{}).Call(h))[0]
	model, err := graph.NewModel("flat", []*graph.Tensor{x}, []*graph.Tensor{y})
	if err != nil {
		panic(err)
	}
	return model
}
