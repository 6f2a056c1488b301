// Package cpu implements the CPU tensor backend in pure Go.
package cpu

import (
	"fmt"

	"github.com/born-ml/attribution/internal/parallel"
	"github.com/born-ml/attribution/internal/tensor"
)

// CPUBackend implements tensor.Backend on CPU.
type CPUBackend struct {
	device   tensor.Device
	parallel parallel.Config
}

// Compile-time check that CPUBackend implements tensor.Backend.
var _ tensor.Backend = (*CPUBackend)(nil)

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{
		device:   tensor.CPU,
		parallel: parallel.DefaultConfig(),
	}
}

// SetParallel sets how MatMul rows and Project samples are split across
// goroutines.
func (cpu *CPUBackend) SetParallel(cfg parallel.Config) {
	cpu.parallel = cfg
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("add", a, b, func(x, y float64) float64 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("sub", a, b, func(x, y float64) float64 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("mul", a, b, func(x, y float64) float64 { return x * y })
}

// SafeDiv performs element-wise division, yielding 0 where the divisor is 0.
func (cpu *CPUBackend) SafeDiv(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("safediv", a, b, func(x, y float64) float64 {
		if y == 0 {
			return 0
		}
		return x / y
	})
}

// MulScalar multiplies every element by scalar.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	return cpu.unary("mulscalar", x, func(v float64) float64 { return v * scalar })
}

// ReLU applies max(0, x) element-wise.
func (cpu *CPUBackend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("relu", x, func(v float64) float64 {
		if v > 0 {
			return v
		}
		return 0
	})
}

// binary evaluates fn over the broadcast of a and b. The result takes a's dtype.
func (cpu *CPUBackend) binary(op string, a, b *tensor.RawTensor, fn func(x, y float64) float64) *tensor.RawTensor {
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch %s vs %s", op, a.DType(), b.DType()))
	}
	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}

	av, bv := a.Float64s(), b.Float64s()
	out := make([]float64, outShape.NumElements())
	if !needsBroadcast {
		for i := range out {
			out[i] = fn(av[i], bv[i])
		}
	} else {
		for i := range out {
			out[i] = fn(av[tensor.BroadcastIndex(i, outShape, a.Shape())], bv[tensor.BroadcastIndex(i, outShape, b.Shape())])
		}
	}
	return cpu.fill(op, outShape, a.DType(), out)
}

// unary evaluates fn element-wise.
func (cpu *CPUBackend) unary(op string, x *tensor.RawTensor, fn func(v float64) float64) *tensor.RawTensor {
	vals := x.Float64s()
	for i, v := range vals {
		vals[i] = fn(v)
	}
	return cpu.fill(op, x.Shape(), x.DType(), vals)
}

// fill allocates a tensor of the given dtype and stores vals into it.
func (cpu *CPUBackend) fill(op string, shape tensor.Shape, dtype tensor.DataType, vals []float64) *tensor.RawTensor {
	result, err := tensor.NewRaw(shape, dtype, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", op, err))
	}

	switch dtype {
	case tensor.Float32:
		data := result.AsFloat32()
		for i, v := range vals {
			data[i] = float32(v)
		}
	case tensor.Float64:
		copy(result.AsFloat64(), vals)
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", op, dtype))
	}
	return result
}
