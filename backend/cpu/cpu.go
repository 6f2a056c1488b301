// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/attribution/internal/backend/cpu"
	"github.com/born-ml/attribution/tensor"
)

// Backend represents the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new CPU backend.
//
// Example:
//
//	backend := cpu.New()
//	x, _ := tensor.FromFloat32([]float32{-1, 2}, tensor.Shape{1, 2})
//	y := backend.ReLU(x)
func New() *Backend {
	return internalcpu.New()
}
