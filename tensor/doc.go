// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the raw tensor values and the backend interface
// used by graphs and reverse rules.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/attribution/backend/cpu"
//	    "github.com/born-ml/attribution/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    x, _ := tensor.FromFloat32([]float32{1, 2, 3, 4}, tensor.Shape{2, 2})
//	    y := backend.MatMul(x, backend.Transpose(x))
//	}
//
// # Supported Data Types
//
// Float32 and Float64. Backends compute in float64 and store results in the
// dtype of their first operand.
package tensor
