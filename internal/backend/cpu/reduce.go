package cpu

import (
	"math"

	"github.com/born-ml/attribution/internal/parallel"
	"github.com/born-ml/attribution/internal/tensor"
)

// Sum reduces all elements to a scalar (shape [1]) tensor.
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	total := 0.0
	for _, v := range x.Float64s() {
		total += v
	}
	return cpu.fill("sum", tensor.Shape{1}, x.DType(), []float64{total})
}

// Clip limits every element to the closed range [lo, hi].
func (cpu *CPUBackend) Clip(x *tensor.RawTensor, lo, hi float64) *tensor.RawTensor {
	return cpu.unary("clip", x, func(v float64) float64 {
		return math.Min(math.Max(v, lo), hi)
	})
}

// Project rescales x into [lo, hi].
//
// The tensor is first divided by its absolute maximum, computed per sample
// along axis 0 when the tensor has rank >= 2 and over the whole tensor
// otherwise. An all-zero sample normalizes to zero. The resulting [-1, 1]
// values are then mapped linearly onto [lo, hi], so (-1, 1) leaves the
// normalized values unchanged.
func (cpu *CPUBackend) Project(x *tensor.RawTensor, lo, hi float64) *tensor.RawTensor {
	shape := x.Shape()
	vals := x.Float64s()

	groups, size := samples(shape, len(vals))
	if groups == 0 {
		return x.Clone()
	}

	parallel.Chunks(groups, cpu.parallel, func(start, end int) {
		for g := start; g < end; g++ {
			projectSample(vals[g*size:(g+1)*size], lo, hi)
		}
	})
	return cpu.fill("project", shape, x.DType(), vals)
}

// samples splits n values of shape into groups of size elements. Tensors
// without elements have no groups.
func samples(shape tensor.Shape, n int) (groups, size int) {
	if n == 0 {
		return 0, 0
	}
	if len(shape) >= 2 {
		if shape[0] <= 0 {
			return 0, 0
		}
		return shape[0], n / shape[0]
	}
	return 1, n
}

// projectSample normalizes sample in place by its absolute maximum and maps
// it onto [lo, hi].
func projectSample(sample []float64, lo, hi float64) {
	absMax := 0.0
	for _, v := range sample {
		absMax = math.Max(absMax, math.Abs(v))
	}
	for i, v := range sample {
		norm := 0.0
		if absMax != 0 {
			norm = v / absMax
		}
		unit := math.Min(math.Max((norm+1)/2, 0), 1)
		sample[i] = lo + unit*(hi-lo)
	}
}
