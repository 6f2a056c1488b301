// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package trace turns a model into an ordered, pruned list of primitive
// node invocations and answers structural queries over it.
//
// Example:
//
//	exec, err := trace.NewTracer(trace.DefaultConfig()).TraceModel(ctx, model)
//	if err != nil {
//	    return err
//	}
//	t := trace.NewTrace(exec)
//	for _, e := range t.Entries() {
//	    fmt.Println(e.NID, e.Node.Name())
//	}
package trace

import (
	"context"

	"github.com/born-ml/attribution/graph"
	"github.com/born-ml/attribution/internal/trace"
)

type (
	// Record is one primitive invocation.
	Record = trace.Record

	// Execution is the pruned, ordered result of tracing a model.
	Execution = trace.Execution

	// Config configures a Tracer.
	Config = trace.Config

	// Tracer traces models.
	Tracer = trace.Tracer

	// NodeID is the dense id of a traced node.
	NodeID = trace.NodeID

	// Entry pairs a record with its node id.
	Entry = trace.Entry

	// Trace indexes an Execution by node id and tensor id.
	Trace = trace.Trace

	// NodeInfo describes one node of an ExecutionGraph.
	NodeInfo = trace.NodeInfo

	// Graph is the node-level view of a trace.
	Graph = trace.Graph

	// ProducerError reports a tensor produced by two kept records.
	ProducerError = trace.ProducerError
)

// NoNode marks model inputs and model outputs in id lists.
const NoNode = trace.NoNode

// Errors returned by the tracer.
var (
	ErrDuplicateProducer = trace.ErrDuplicateProducer
	ErrUnmappedTensor    = trace.ErrUnmappedTensor
)

// DefaultConfig returns the default tracer configuration.
func DefaultConfig() Config {
	return trace.DefaultConfig()
}

// NewTracer creates a tracer.
func NewTracer(config Config) *Tracer {
	return trace.NewTracer(config)
}

// NewTrace indexes exec.
func NewTrace(exec *Execution) *Trace {
	return trace.NewTrace(exec)
}

// Prune keeps the records whose outputs all lead to outputs.
func Prune(records []Record, outputs []*graph.Tensor) ([]Record, error) {
	return trace.Prune(records, outputs)
}

// ExecutionGraph builds the node-level view of t.
func ExecutionGraph(t *Trace, keepInputs bool) *Graph {
	return trace.ExecutionGraph(t, keepInputs)
}

// BottleneckNodes returns the records every input-to-output path passes
// through.
func BottleneckNodes(ctx context.Context, inputs, outputs []*graph.Tensor, records []Record) []Record {
	return trace.BottleneckNodes(ctx, inputs, outputs, records)
}

// BottleneckTensors returns the tensors every input-to-output path passes
// through.
func BottleneckTensors(ctx context.Context, inputs, outputs []*graph.Tensor, records []Record) []*graph.Tensor {
	return trace.BottleneckTensors(ctx, inputs, outputs, records)
}

// ModelLayers lists every node of model, nested ones included.
func ModelLayers(model *graph.Model) []graph.Node {
	return trace.ModelLayers(model)
}
