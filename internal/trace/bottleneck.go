package trace

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/born-ml/attribution/internal/graph"
	"github.com/born-ml/attribution/internal/telemetry"
)

// BottleneckNodes returns, in forward order, the records all information from
// inputs to outputs has to pass through.
//
// The scan keeps a frontier of open tensors, seeded with everything the
// inputs feed. Each record closes its outputs; if nothing is left open at that
// point the record is a bottleneck. Outputs that are not model outputs then
// reopen the frontier with what they feed.
func BottleneckNodes(ctx context.Context, inputs, outputs []*graph.Tensor, records []Record) []Record {
	_, span := telemetry.StartSpan(ctx, telemetry.TracerTrace, "trace.BottleneckNodes")
	defer span.End()

	forward := make(map[graph.TensorID][]graph.TensorID)
	for _, rec := range records {
		if graph.IsInput(rec.Node) {
			continue
		}
		ys := graph.IDs(rec.Outputs)
		for _, x := range rec.Inputs {
			forward[x.ID()] = append(forward[x.ID()], ys...)
		}
	}

	isOutput := make(map[graph.TensorID]bool, len(outputs))
	for _, y := range outputs {
		isOutput[y.ID()] = true
	}

	open := make(map[graph.TensorID]bool)
	for _, x := range inputs {
		for _, next := range forward[x.ID()] {
			open[next] = true
		}
	}

	var ret []Record
	for _, rec := range records {
		if graph.IsInput(rec.Node) {
			continue
		}
		for _, y := range rec.Outputs {
			delete(open, y.ID())
		}
		if len(open) == 0 {
			ret = append(ret, rec)
		}
		for _, y := range rec.Outputs {
			if isOutput[y.ID()] {
				continue
			}
			for _, next := range forward[y.ID()] {
				open[next] = true
			}
		}
	}

	span.SetAttributes(attribute.Int("bottlenecks", len(ret)))
	return ret
}

// BottleneckTensors returns the distinct single tensors on either side of the
// bottleneck records, in forward order. Multi-tensor sides are skipped.
func BottleneckTensors(ctx context.Context, inputs, outputs []*graph.Tensor, records []Record) []*graph.Tensor {
	var ret []*graph.Tensor
	seen := make(map[graph.TensorID]bool)
	for _, rec := range BottleneckNodes(ctx, inputs, outputs, records) {
		for _, side := range [][]*graph.Tensor{rec.Inputs, rec.Outputs} {
			if len(side) != 1 {
				continue
			}
			if t := side[0]; !seen[t.ID()] {
				seen[t.ID()] = true
				ret = append(ret, t)
			}
		}
	}
	return ret
}
