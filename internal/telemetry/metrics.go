package telemetry

import (
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope of the module's metrics.
const MeterName = "github.com/born-ml/attribution"

// Metrics holds the instruments recorded by tracing and reversal.
//
// Safe for concurrent use after creation.
type Metrics struct {
	// TracesTotal counts trace passes by path (flat or nested).
	TracesTotal metric.Int64Counter

	// RecordsPruned counts execution records dropped by pruning.
	RecordsPruned metric.Int64Counter

	// ReversalsTotal counts reversal runs by status.
	ReversalsTotal metric.Int64Counter

	// NodesReversed counts nodes whose rule was applied.
	NodesReversed metric.Int64Counter

	// ReverseDuration records reversal run duration in seconds.
	ReverseDuration metric.Float64Histogram
}

// NewMetrics registers all instruments with meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.TracesTotal, err = meter.Int64Counter(
		"attribution_traces_total",
		metric.WithDescription("Total trace passes"),
		metric.WithUnit("{trace}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create traces_total: %w", err)
	}

	m.RecordsPruned, err = meter.Int64Counter(
		"attribution_records_pruned_total",
		metric.WithDescription("Execution records dropped by pruning"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create records_pruned_total: %w", err)
	}

	m.ReversalsTotal, err = meter.Int64Counter(
		"attribution_reversals_total",
		metric.WithDescription("Total reversal runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create reversals_total: %w", err)
	}

	m.NodesReversed, err = meter.Int64Counter(
		"attribution_nodes_reversed_total",
		metric.WithDescription("Nodes whose reverse rule was applied"),
		metric.WithUnit("{node}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create nodes_reversed_total: %w", err)
	}

	m.ReverseDuration, err = meter.Float64Histogram(
		"attribution_reverse_duration_seconds",
		metric.WithDescription("Reversal run duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5),
	)
	if err != nil {
		return nil, fmt.Errorf("create reverse_duration: %w", err)
	}

	return m, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsErr  error
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the instruments registered on the global meter
// provider. Registration happens once; later calls return the same value.
func DefaultMetrics() (*Metrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = NewMetrics(otel.Meter(MeterName))
	})
	return defaultMetrics, defaultMetricsErr
}
