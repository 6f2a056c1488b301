// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package graph provides the computation-graph model that attribution
// traces and reverses: tensors with stable ids, layers wrapping ops, and
// models that may nest other models.
//
// # Basic Usage
//
//	x := graph.Input("x", value)
//	h, _ := graph.NewLayer("dense", &graph.Dense{Weight: w}).Call(x)
//	y, _ := graph.NewLayer("relu", graph.ReLU{}).Call(h...)
//	model, err := graph.NewModel("mlp", []*graph.Tensor{x}, y)
package graph

import (
	"github.com/born-ml/attribution/internal/graph"
	"github.com/born-ml/attribution/tensor"
)

// Core types.
type (
	// Tensor is a symbolic value with a stable id.
	Tensor = graph.Tensor

	// TensorID identifies a tensor. Ids are unique per process.
	TensorID = graph.TensorID

	// Node is a layer or a model.
	Node = graph.Node

	// Invocation records one call of a node.
	Invocation = graph.Invocation

	// ObserveFunc receives every primitive call made during Model.Reapply.
	ObserveFunc = graph.ObserveFunc

	// Op is the computation wrapped by a Layer.
	Op = graph.Op

	// Layer is a primitive node.
	Layer = graph.Layer

	// Model is a container node built from input and output tensors.
	Model = graph.Model
)

// Built-in ops.
type (
	Dense     = graph.Dense
	ReLU      = graph.ReLU
	Add       = graph.Add
	Identity  = graph.Identity
	Scale     = graph.Scale
	Replicate = graph.Replicate
)

// Type tags of the input layer and the built-in ops.
const (
	TypeInput     = graph.TypeInput
	TypeDense     = graph.TypeDense
	TypeReLU      = graph.TypeReLU
	TypeAdd       = graph.TypeAdd
	TypeIdentity  = graph.TypeIdentity
	TypeScale     = graph.TypeScale
	TypeReplicate = graph.TypeReplicate
)

// Errors returned by NewModel and Reapply.
var (
	ErrDisconnected    = graph.ErrDisconnected
	ErrUnsupportedNode = graph.ErrUnsupportedNode
)

// Input creates an input tensor holding value.
func Input(name string, value *tensor.RawTensor) *Tensor {
	return graph.Input(name, value)
}

// NewLayer creates a layer running op on the CPU backend.
func NewLayer(name string, op Op) *Layer {
	return graph.NewLayer(name, op)
}

// NewModel captures the sub-graph between inputs and outputs.
func NewModel(name string, inputs, outputs []*Tensor) (*Model, error) {
	return graph.NewModel(name, inputs, outputs)
}

// IsInput reports whether node is an input layer.
func IsInput(node Node) bool {
	return graph.IsInput(node)
}
