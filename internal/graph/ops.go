package graph

import (
	"fmt"

	"github.com/born-ml/attribution/internal/tensor"
)

// Op type tags of the built-in ops.
const (
	TypeDense     = "Dense"
	TypeReLU      = "ReLU"
	TypeAdd       = "Add"
	TypeIdentity  = "Identity"
	TypeScale     = "Scale"
	TypeReplicate = "Replicate"
)

// inputOp marks input layers. It is never executed.
type inputOp struct{}

func (inputOp) Type() string { return TypeInput }

func (inputOp) Forward(_ tensor.Backend, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	return inputs, nil
}

func (inputOp) Clone() Op { return inputOp{} }

// Dense is a fully connected layer: y = x @ W + b.
//
// Weight has shape [in, out]; Bias (optional) has shape [out].
type Dense struct {
	Weight *tensor.RawTensor
	Bias   *tensor.RawTensor
}

// Type returns "Dense".
func (d *Dense) Type() string { return TypeDense }

// Forward computes x @ W + b for a single [batch, in] input.
func (d *Dense) Forward(backend tensor.Backend, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := expectInputs(TypeDense, inputs, 1); err != nil {
		return nil, err
	}
	x := inputs[0]
	if len(x.Shape()) != 2 || x.Shape()[1] != d.Weight.Shape()[0] {
		return nil, fmt.Errorf("dense: input shape %v incompatible with weight %v", x.Shape(), d.Weight.Shape())
	}
	y := backend.MatMul(x, d.Weight)
	if d.Bias != nil {
		y = backend.Add(y, d.Bias)
	}
	return []*tensor.RawTensor{y}, nil
}

// Clone returns a Dense op with copies of the parameters.
func (d *Dense) Clone() Op {
	c := &Dense{Weight: d.Weight.Clone()}
	if d.Bias != nil {
		c.Bias = d.Bias.Clone()
	}
	return c
}

// ReLU applies max(0, x).
type ReLU struct{}

// Type returns "ReLU".
func (ReLU) Type() string { return TypeReLU }

// Forward applies ReLU to the single input.
func (ReLU) Forward(backend tensor.Backend, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := expectInputs(TypeReLU, inputs, 1); err != nil {
		return nil, err
	}
	return []*tensor.RawTensor{backend.ReLU(inputs[0])}, nil
}

// Clone returns ReLU{}.
func (ReLU) Clone() Op { return ReLU{} }

// Add sums any number (>= 2) of inputs element-wise.
type Add struct{}

// Type returns "Add".
func (Add) Type() string { return TypeAdd }

// Forward sums the inputs.
func (Add) Forward(backend tensor.Backend, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) < 2 {
		return nil, fmt.Errorf("add: expected at least 2 inputs, got %d", len(inputs))
	}
	sum := inputs[0]
	for _, x := range inputs[1:] {
		sum = backend.Add(sum, x)
	}
	return []*tensor.RawTensor{sum}, nil
}

// Clone returns Add{}.
func (Add) Clone() Op { return Add{} }

// Identity passes every input through unchanged.
type Identity struct{}

// Type returns "Identity".
func (Identity) Type() string { return TypeIdentity }

// Forward returns copies of the inputs.
func (Identity) Forward(_ tensor.Backend, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	out := make([]*tensor.RawTensor, len(inputs))
	for i, x := range inputs {
		out[i] = x.Clone()
	}
	return out, nil
}

// Clone returns Identity{}.
func (Identity) Clone() Op { return Identity{} }

// Scale multiplies its input by a constant.
type Scale struct {
	Factor float64
}

// Type returns "Scale".
func (s *Scale) Type() string { return TypeScale }

// Forward computes Factor * x.
func (s *Scale) Forward(backend tensor.Backend, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := expectInputs(TypeScale, inputs, 1); err != nil {
		return nil, err
	}
	return []*tensor.RawTensor{backend.MulScalar(inputs[0], s.Factor)}, nil
}

// Clone returns a Scale with the same factor.
func (s *Scale) Clone() Op { return &Scale{Factor: s.Factor} }

// Replicate emits N copies of its single input.
type Replicate struct {
	N int
}

// Type returns "Replicate".
func (r *Replicate) Type() string { return TypeReplicate }

// Forward returns N copies of the input.
func (r *Replicate) Forward(_ tensor.Backend, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := expectInputs(TypeReplicate, inputs, 1); err != nil {
		return nil, err
	}
	if r.N < 1 {
		return nil, fmt.Errorf("replicate: N must be positive, got %d", r.N)
	}
	out := make([]*tensor.RawTensor, r.N)
	for i := range out {
		out[i] = inputs[0].Clone()
	}
	return out, nil
}

// Clone returns a Replicate with the same N.
func (r *Replicate) Clone() Op { return &Replicate{N: r.N} }

func expectInputs(op string, inputs []*tensor.RawTensor, n int) error {
	if len(inputs) != n {
		return fmt.Errorf("%s: expected %d input(s), got %d", op, n, len(inputs))
	}
	return nil
}
