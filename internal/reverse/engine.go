// Package reverse propagates values from a model's outputs back to its
// inputs, one traced node at a time, using a reverse rule per node.
//
// The walk visits nodes in decreasing node id, so every consumer of a tensor
// has delivered its contribution before the tensor is first read. Fan-out
// tensors sum their contributions.
package reverse

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/born-ml/attribution/internal/graph"
	"github.com/born-ml/attribution/internal/mapping"
	"github.com/born-ml/attribution/internal/telemetry"
	"github.com/born-ml/attribution/internal/tensor"
	"github.com/born-ml/attribution/internal/trace"
)

// Result is the outcome of a reversal run.
type Result struct {
	// RunID identifies the run in logs and spans.
	RunID string

	// Inputs holds the reversed value of each declared model input that is
	// not in the stop-set, in order. Inputs that received nothing are nil.
	Inputs []*tensor.RawTensor

	// InputTensors holds the model inputs the entries of Inputs belong to.
	InputTensors []*graph.Tensor

	// States maps every tracked tensor to its state. Only set when
	// Config.ReturnAll is true.
	States map[graph.TensorID]*State
}

// plan is the read-only part of a reversal, shareable between runs.
type plan struct {
	model       *graph.Model
	trace       *trace.Trace
	resolved    *mapping.Resolved
	bottlenecks map[graph.TensorID]bool
}

// Reverse runs one reversal of model.
//
// Rules are looked up per node: rules bound in cfg.Bound first, then source,
// then cfg.Default. A node without any rule fails the run with
// mapping.ErrMissingMapping when the walk reaches it.
//
// Example:
//
//	registry := mapping.NewRegistry()
//	registry.Register(graph.TypeDense, denseRule)
//	cfg := reverse.DefaultConfig()
//	cfg.Default = mapping.Identity
//	res, err := reverse.Reverse(ctx, model, registry, cfg)
func Reverse(ctx context.Context, model *graph.Model, source mapping.Source, cfg Config) (*Result, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerReverse, "reverse.Reverse",
		oteltrace.WithAttributes(attribute.String("model", model.Name())),
	)
	defer span.End()

	cfg, err := cfg.withDefaults()
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	p, err := prepare(ctx, model, source, cfg, cfg.ProjectBottlenecks != nil)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	res, err := p.execute(ctx, cfg)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetSpanOK(span)
	return res, nil
}

// prepare traces the model (unless cfg carries an execution), resolves all
// rules and, if requested, computes the bottleneck tensors.
func prepare(ctx context.Context, model *graph.Model, source mapping.Source, cfg Config, bottlenecks bool) (*plan, error) {
	exec := cfg.Execution
	if exec == nil {
		tracer := trace.NewTracer(trace.Config{
			ReapplyOnCopiedNodes: cfg.ReapplyOnCopiedNodes,
			Logger:               cfg.Logger,
		})
		var err error
		exec, err = tracer.TraceModel(ctx, model)
		if err != nil {
			return nil, err
		}
	}

	resolver := mapping.NewResolver(source, cfg.Default)
	for node, rule := range cfg.Bound {
		resolver.Bind(node, rule)
		if c, ok := exec.Copies[node]; ok {
			resolver.Bind(c, rule)
		}
	}
	resolved, err := resolver.ResolveAll(exec.Layers, mapping.Info{Model: model, Backend: cfg.Backend})
	if err != nil {
		return nil, fmt.Errorf("reverse model %s: %w", model.Name(), err)
	}

	p := &plan{
		model:    model,
		trace:    trace.NewTrace(exec),
		resolved: resolved,
	}
	if bottlenecks {
		p.bottlenecks = make(map[graph.TensorID]bool)
		for _, t := range trace.BottleneckTensors(ctx, exec.Inputs, exec.Outputs, exec.Records) {
			p.bottlenecks[t.ID()] = true
		}
	}
	return p, nil
}

// execute performs one backward walk with its own state map.
func (p *plan) execute(ctx context.Context, cfg Config) (res *Result, err error) {
	runID := uuid.NewString()
	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerReverse, "reverse.execute",
		oteltrace.WithAttributes(attribute.String("run_id", runID)),
	)
	defer span.End()
	logger := telemetry.Logger(ctx, cfg.Logger).With(slog.String("run_id", runID))

	start := time.Now()
	reversed := 0
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
			telemetry.RecordError(span, err)
		}
		if m, mErr := telemetry.DefaultMetrics(); mErr == nil {
			attrs := metric.WithAttributes(attribute.String("status", status))
			m.ReversalsTotal.Add(ctx, 1, attrs)
			m.NodesReversed.Add(ctx, int64(reversed))
			m.ReverseDuration.Record(ctx, time.Since(start).Seconds(), attrs)
		}
		span.SetAttributes(attribute.Int("nodes_reversed", reversed))
	}()

	exec := p.trace.Execution()
	st := newStates(cfg, p.bottlenecks)

	for i, y := range exec.Outputs {
		if err := st.contribute(trace.NoNode, i, y, cfg.Head(y.Value())); err != nil {
			return nil, err
		}
	}

	entries := p.trace.Entries()
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.NID == trace.NoNode {
			continue
		}
		if !reached(st, e.Outputs) {
			logger.Debug("node not reached", slog.Int("nid", int(e.NID)), slog.String("node", e.Node.Name()))
			continue
		}
		if err := p.reverseNode(st, e, cfg); err != nil {
			return nil, err
		}
		reversed++
		logger.Debug("node reversed",
			slog.Int("nid", int(e.NID)),
			slog.String("node", e.Node.Name()),
			slog.String("type", e.Node.Type()),
		)
	}

	res = &Result{RunID: runID}
	for _, x := range exec.Inputs {
		if st.stop[x.ID()] {
			continue
		}
		var value *tensor.RawTensor
		if st.has(x) {
			if value, err = st.resolve(x); err != nil {
				return nil, err
			}
		}
		res.Inputs = append(res.Inputs, value)
		res.InputTensors = append(res.InputTensors, x)
	}
	if cfg.ReturnAll {
		res.States = st.byTensor
	}

	logger.Info("reversal finished",
		slog.String("model", p.model.Name()),
		slog.Int("nodes_reversed", reversed),
		slog.Duration("duration", time.Since(start)),
	)
	telemetry.SetSpanOK(span)
	return res, nil
}

// reverseNode applies the rule of one entry and distributes its result.
func (p *plan) reverseNode(st *states, e trace.Entry, cfg Config) error {
	reversedYs := make([]*tensor.RawTensor, len(e.Outputs))
	for i, y := range e.Outputs {
		v, err := st.resolve(y)
		if err != nil {
			return err
		}
		reversedYs[i] = v
	}

	fn, err := p.resolved.For(e.Node, e.NID)
	if err != nil {
		return err
	}

	state := &mapping.State{
		NID:     e.NID,
		Model:   p.model,
		Node:    e.Node,
		StopAt:  st.stopped(e.Inputs),
		Backend: cfg.Backend,
	}
	reversedXs, err := fn(e.Inputs, e.Outputs, reversedYs, state)
	if err != nil {
		return fmt.Errorf("reverse node %d %s (%s): %w", e.NID, e.Node.Name(), e.Node.Type(), err)
	}
	if len(reversedXs) != len(e.Inputs) {
		return fmt.Errorf("reverse node %d %s (%s): %d values for %d inputs: %w",
			e.NID, e.Node.Name(), e.Node.Type(), len(reversedXs), len(e.Inputs), ErrRuleArity)
	}

	for i, x := range e.Inputs {
		if err := st.contribute(e.NID, i, x, reversedXs[i]); err != nil {
			return err
		}
	}
	return nil
}

// reached reports whether every tensor in ys received a contribution.
func reached(st *states, ys []*graph.Tensor) bool {
	for _, y := range ys {
		if !st.has(y) {
			return false
		}
	}
	return true
}
