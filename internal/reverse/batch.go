package reverse

import (
	"context"
	"runtime"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/born-ml/attribution/internal/graph"
	"github.com/born-ml/attribution/internal/mapping"
	"github.com/born-ml/attribution/internal/telemetry"
)

// ReverseBatch runs one reversal per config concurrently over a single trace
// of model.
//
// The trace and the resolved rules are built once from cfgs[0] (its
// Execution, Default, Bound, ReapplyOnCopiedNodes and Backend) and shared by
// all runs. The other fields (Head, StopAt, Clip, ProjectBottlenecks,
// ReturnAll, Logger) apply per run. Rules must be safe for concurrent use.
// If any run fails, the first error is returned and no results.
func ReverseBatch(ctx context.Context, model *graph.Model, source mapping.Source, cfgs []Config) ([]*Result, error) {
	if len(cfgs) == 0 {
		return nil, nil
	}

	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerReverse, "reverse.ReverseBatch",
		oteltrace.WithAttributes(
			attribute.String("model", model.Name()),
			attribute.Int("runs", len(cfgs)),
		),
	)
	defer span.End()

	runs := make([]Config, len(cfgs))
	projection := false
	for i, cfg := range cfgs {
		c, err := cfg.withDefaults()
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if i > 0 {
			c.Backend = runs[0].Backend
		}
		runs[i] = c
		projection = projection || c.ProjectBottlenecks != nil
	}

	p, err := prepare(ctx, model, source, runs[0], projection)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	results := make([]*Result, len(runs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, cfg := range runs {
		i, cfg := i, cfg
		g.Go(func() error {
			res, err := p.execute(gctx, cfg)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetSpanOK(span)
	return results, nil
}
