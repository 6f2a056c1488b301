package reverse

import (
	"fmt"
	"log/slog"

	"github.com/born-ml/attribution/internal/backend/cpu"
	"github.com/born-ml/attribution/internal/graph"
	"github.com/born-ml/attribution/internal/mapping"
	"github.com/born-ml/attribution/internal/tensor"
	"github.com/born-ml/attribution/internal/trace"
)

// Range is a closed interval [Lo, Hi].
type Range struct {
	Lo float64
	Hi float64
}

// HeadFunc transforms the forward value of an output before it seeds the
// reversal.
type HeadFunc func(y *tensor.RawTensor) *tensor.RawTensor

// Config configures a reversal run.
type Config struct {
	// Default is the rule for nodes the source has no rule for.
	Default mapping.Rule

	// Bound attaches rules to individual node instances. They take
	// precedence over the source.
	Bound map[graph.Node]mapping.Rule

	// Head seeds each output. Nil means identity.
	Head HeadFunc

	// StopAt lists tensors whose contributions are discarded. Everything
	// upstream of them receives nothing through them.
	StopAt []*graph.Tensor

	// Clip limits every finalized value to the range.
	Clip *Range

	// ProjectBottlenecks projects the values of bottleneck tensors onto the
	// range before clipping.
	ProjectBottlenecks *Range

	// Execution is a precomputed trace of the model. Nil means trace now.
	Execution *trace.Execution

	// ReapplyOnCopiedNodes is passed to the tracer when Execution is nil.
	ReapplyOnCopiedNodes bool

	// ReturnAll requests the per-tensor states in the result.
	ReturnAll bool

	// Backend performs aggregation, projection and clipping, and is handed
	// to rules.
	Backend tensor.Backend

	// Logger receives per-node debug output.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with an identity head, the CPU backend and
// the default logger.
func DefaultConfig() Config {
	return Config{
		Head:    identityHead,
		Backend: cpu.New(),
		Logger:  slog.Default().With(slog.String("component", "reverse")),
	}
}

func identityHead(y *tensor.RawTensor) *tensor.RawTensor {
	return y
}

// withDefaults fills unset fields and validates the ranges.
func (c Config) withDefaults() (Config, error) {
	def := DefaultConfig()
	if c.Head == nil {
		c.Head = def.Head
	}
	if c.Backend == nil {
		c.Backend = def.Backend
	}
	if c.Logger == nil {
		c.Logger = def.Logger
	}
	if err := c.Clip.validate("clip"); err != nil {
		return c, err
	}
	if err := c.ProjectBottlenecks.validate("project"); err != nil {
		return c, err
	}
	return c, nil
}

func (r *Range) validate(name string) error {
	if r != nil && !(r.Lo < r.Hi) {
		return fmt.Errorf("%s range [%g, %g]: %w", name, r.Lo, r.Hi, ErrInvalidConfig)
	}
	return nil
}
