// Package trace turns a graph model into a flat, pruned and identified list
// of primitive node invocations, and answers structural queries over it.
package trace

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/born-ml/attribution/internal/graph"
	"github.com/born-ml/attribution/internal/telemetry"
)

// Record is one primitive node invocation: the node and the tensors it
// consumed and produced.
type Record struct {
	Node    graph.Node
	Inputs  []*graph.Tensor
	Outputs []*graph.Tensor
}

// Execution is the result of tracing a model.
type Execution struct {
	// Layers lists every node of the model, nested ones included. When the
	// trace was built on copied nodes, the copies are listed instead.
	Layers []graph.Node

	// Records is the pruned execution list in forward topological order.
	Records []Record

	// Inputs are the model's declared inputs.
	Inputs []*graph.Tensor

	// Outputs are the output tensors the records lead to. On the nested path
	// these differ from the model's declared outputs.
	Outputs []*graph.Tensor

	// Nested reports whether the re-execution path was taken.
	Nested bool

	// Copies maps each original node to the clone the records use. Empty
	// unless the trace was built on copied nodes.
	Copies map[graph.Node]graph.Node
}

// Config configures a Tracer.
type Config struct {
	// ReapplyOnCopiedNodes re-invokes cloned nodes during nested tracing so
	// the original nodes' invocation history is left untouched.
	ReapplyOnCopiedNodes bool

	// Logger receives debug output. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config that re-invokes the original nodes.
func DefaultConfig() Config {
	return Config{}
}

// Tracer extracts execution traces from models.
type Tracer struct {
	config Config
}

// NewTracer creates a Tracer.
func NewTracer(config Config) *Tracer {
	return &Tracer{config: config}
}

// TraceModel flattens model into a pruned execution list.
//
// Models without nested containers are read from their recorded execution
// order. Otherwise the model is re-executed under observation and every
// observed primitive is re-invoked on canonical tensors, so all records share
// one namespace of tensor identities.
func (t *Tracer) TraceModel(ctx context.Context, model *graph.Model) (*Execution, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerTrace, "trace.TraceModel",
		oteltrace.WithAttributes(attribute.String("model", model.Name())),
	)
	defer span.End()
	logger := telemetry.Logger(ctx, t.config.Logger)

	layers := ModelLayers(model)
	nested := false
	for _, l := range layers {
		if l.IsContainer() {
			nested = true
			break
		}
	}

	exec := &Execution{Layers: layers, Inputs: model.Inputs(), Nested: nested}
	var (
		records []Record
		err     error
	)
	if nested {
		records, err = t.reapply(model, exec)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	} else {
		for _, inv := range model.ExecutionOrder() {
			records = append(records, Record{Node: inv.Node, Inputs: inv.Inputs, Outputs: inv.Outputs})
		}
		exec.Outputs = model.Outputs()
	}

	pruned, err := Prune(records, exec.Outputs)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("trace model %s: %w", model.Name(), err)
	}

	path := "flat"
	if nested {
		path = "nested"
	}
	if m, mErr := telemetry.DefaultMetrics(); mErr == nil {
		m.TracesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("path", path)))
		m.RecordsPruned.Add(ctx, int64(len(records)-len(pruned)))
	}
	span.SetAttributes(
		attribute.String("path", path),
		attribute.Int("records", len(pruned)),
		attribute.Int("pruned", len(records)-len(pruned)),
	)
	logger.Debug("model traced",
		slog.String("model", model.Name()),
		slog.String("path", path),
		slog.Int("records", len(pruned)),
		slog.Int("pruned", len(records)-len(pruned)),
	)
	telemetry.SetSpanOK(span)

	exec.Records = pruned
	return exec, nil
}

// reapply runs the nested path: observe a fresh re-execution, then rebuild
// every observed invocation on canonical tensors. It sets the outputs of
// exec and, on copied nodes, its layers and copies.
func (t *Tracer) reapply(model *graph.Model, exec *Execution) ([]Record, error) {
	var observed []Record
	fresh, err := model.Reapply(func(node graph.Node, inputs, outputs []*graph.Tensor) {
		observed = append(observed, Record{Node: node, Inputs: inputs, Outputs: outputs})
	})
	if err != nil {
		return nil, fmt.Errorf("trace model %s: reapply: %w", model.Name(), err)
	}

	tensors := make(map[graph.TensorID]*graph.Tensor, len(observed))
	for _, x := range model.Inputs() {
		tensors[x.ID()] = x
	}
	copies := make(map[graph.Node]graph.Node)

	records := make([]Record, 0, len(observed))
	for _, rec := range observed {
		if graph.IsInput(rec.Node) {
			records = append(records, rec)
			continue
		}

		node := rec.Node
		if t.config.ReapplyOnCopiedNodes {
			node = copyOf(copies, node)
		}

		xs := make([]*graph.Tensor, len(rec.Inputs))
		for i, x := range rec.Inputs {
			mapped, ok := tensors[x.ID()]
			if !ok {
				return nil, fmt.Errorf("trace model %s: node %s: tensor %d: %w",
					model.Name(), node.Name(), x.ID(), ErrUnmappedTensor)
			}
			xs[i] = mapped
		}

		var ys []*graph.Tensor
		if c, ok := node.(*graph.Layer); ok && t.config.ReapplyOnCopiedNodes {
			ys, err = c.Rerun(xs...)
		} else {
			ys, err = node.Call(xs...)
		}
		if err != nil {
			return nil, fmt.Errorf("trace model %s: node %s: %w", model.Name(), node.Name(), err)
		}
		for i, y := range rec.Outputs {
			tensors[y.ID()] = ys[i]
		}
		records = append(records, Record{Node: node, Inputs: xs, Outputs: ys})
	}

	outputs := make([]*graph.Tensor, len(fresh))
	for i, y := range fresh {
		mapped, ok := tensors[y.ID()]
		if !ok {
			return nil, fmt.Errorf("trace model %s: output tensor %d: %w", model.Name(), y.ID(), ErrUnmappedTensor)
		}
		outputs[i] = mapped
	}

	exec.Outputs = outputs
	if t.config.ReapplyOnCopiedNodes {
		mapped := make([]graph.Node, len(exec.Layers))
		for i, l := range exec.Layers {
			mapped[i] = l
			if c, ok := copies[l]; ok {
				mapped[i] = c
			}
		}
		exec.Layers = mapped
		exec.Copies = copies
	}
	return records, nil
}

// copyOf returns the clone of node, creating it on first use. Only primitive
// layers can be cloned; other nodes are used as they are.
func copyOf(copies map[graph.Node]graph.Node, node graph.Node) graph.Node {
	if c, ok := copies[node]; ok {
		return c
	}
	layer, ok := node.(*graph.Layer)
	if !ok {
		return node
	}
	c := layer.Clone()
	copies[node] = c
	return c
}

// Prune keeps the records that lead to outputs.
//
// The records are scanned once in reverse; a record is kept when all of its
// outputs are needed, and then its inputs become needed too. Records must be
// in forward topological order. A tensor produced by two kept records fails
// with a *ProducerError.
func Prune(records []Record, outputs []*graph.Tensor) ([]Record, error) {
	needed := make(map[graph.TensorID]bool, len(records))
	for _, y := range outputs {
		needed[y.ID()] = true
	}

	kept := make([]Record, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		all := true
		for _, y := range rec.Outputs {
			if !needed[y.ID()] {
				all = false
				break
			}
		}
		if !all {
			continue
		}
		for _, x := range rec.Inputs {
			needed[x.ID()] = true
		}
		kept = append(kept, rec)
	}

	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}

	producers := make(map[graph.TensorID]graph.Node, len(kept))
	for _, rec := range kept {
		for _, y := range rec.Outputs {
			if prev, ok := producers[y.ID()]; ok {
				return nil, &ProducerError{Tensor: y.ID(), First: prev.Name(), Second: rec.Node.Name()}
			}
			producers[y.ID()] = rec.Node
		}
	}
	return kept, nil
}

// ModelLayers lists every node of model, descending into nested containers.
// The model itself is not included.
func ModelLayers(model *graph.Model) []graph.Node {
	return model.Flatten()
}
