package cpu

import (
	"fmt"

	"github.com/born-ml/attribution/internal/parallel"
	"github.com/born-ml/attribution/internal/tensor"
)

// MatMul performs matrix multiplication.
// For 2D tensors: (M, K) @ (K, N) -> (M, N)
// Rows of the result are computed in parallel.
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape := a.Shape()
	bShape := b.Shape()

	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: only 2D tensors supported, got %dD and %dD", len(aShape), len(bShape)))
	}

	m, k := aShape[0], aShape[1]
	kAlt, n := bShape[0], bShape[1]

	if k != kAlt {
		panic(fmt.Sprintf("matmul: shape mismatch [%d,%d] @ [%d,%d]", m, k, kAlt, n))
	}

	av, bv := a.Float64s(), b.Float64s()
	c := make([]float64, m*n)
	// C[i,j] = sum_k A[i,k] * B[k,j]
	parallel.Chunks(m, cpu.parallel, func(start, end int) {
		for i := start; i < end; i++ {
			for p := 0; p < k; p++ {
				aip := av[i*k+p]
				for j := 0; j < n; j++ {
					c[i*n+j] += aip * bv[p*n+j]
				}
			}
		}
	})
	return cpu.fill("matmul", tensor.Shape{m, n}, a.DType(), c)
}

// Transpose swaps the two axes of a 2D tensor.
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor) *tensor.RawTensor {
	shape := t.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("transpose: only 2D tensors supported, got %dD", len(shape)))
	}

	rows, cols := shape[0], shape[1]
	src := t.Float64s()
	dst := make([]float64, len(src))
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			dst[j*rows+i] = src[i*cols+j]
		}
	}
	return cpu.fill("transpose", tensor.Shape{cols, rows}, t.DType(), dst)
}
