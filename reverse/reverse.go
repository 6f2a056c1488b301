// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package reverse propagates values from a model's outputs back to its
// inputs using one reverse rule per traced node.
//
// Example:
//
//	registry := mapping.NewRegistry()
//	registry.Register(graph.TypeDense, denseRule)
//	cfg := reverse.DefaultConfig()
//	cfg.Default = mapping.Identity
//	res, err := reverse.Reverse(ctx, model, registry, cfg)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Inputs[0].Float64s())
package reverse

import (
	"context"

	"github.com/born-ml/attribution/graph"
	"github.com/born-ml/attribution/internal/reverse"
	"github.com/born-ml/attribution/internal/serialization"
	"github.com/born-ml/attribution/mapping"
	"github.com/born-ml/attribution/tensor"
)

type (
	// Config configures a reversal run.
	Config = reverse.Config

	// Range is a closed interval used for clipping and projection.
	Range = reverse.Range

	// HeadFunc seeds an output before reversal.
	HeadFunc = reverse.HeadFunc

	// Result is the outcome of a reversal run.
	Result = reverse.Result

	// State is the reversal state of one tensor.
	State = reverse.State

	// OrderError reports a contribution to an already finalized tensor.
	OrderError = reverse.OrderError
)

// Errors returned by Reverse and ReverseBatch.
var (
	ErrOrderViolation = reverse.ErrOrderViolation
	ErrRuleArity      = reverse.ErrRuleArity
	ErrInvalidConfig  = reverse.ErrInvalidConfig
)

// DefaultConfig returns a Config with an identity head and the CPU backend.
func DefaultConfig() Config {
	return reverse.DefaultConfig()
}

// Reverse runs one reversal of model.
func Reverse(ctx context.Context, model *graph.Model, source mapping.Source, cfg Config) (*Result, error) {
	return reverse.Reverse(ctx, model, source, cfg)
}

// ReverseBatch runs one reversal per config concurrently over a shared
// trace. Results are in config order.
func ReverseBatch(ctx context.Context, model *graph.Model, source mapping.Source, cfgs []Config) ([]*Result, error) {
	return reverse.ReverseBatch(ctx, model, source, cfgs)
}

// SaveResult writes the reversed inputs of res to a SafeTensors file, one
// tensor per model input named after its input layer. The run id and model
// name are stored as metadata.
func SaveResult(path string, model *graph.Model, res *Result) error {
	meta := map[string]string{"run_id": res.RunID, "model": model.Name()}
	return serialization.WriteFile(path, serialization.InputMaps(res.InputTensors, res.Inputs), meta)
}

// LoadResult reads maps written by SaveResult.
func LoadResult(path string) (map[string]*tensor.RawTensor, map[string]string, error) {
	return serialization.ReadFile(path)
}
