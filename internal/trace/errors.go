package trace

import (
	"errors"
	"fmt"

	"github.com/born-ml/attribution/internal/graph"
)

// Common errors.
var (
	ErrDuplicateProducer = errors.New("tensor produced by more than one node")
	ErrUnmappedTensor    = errors.New("tensor not produced by any earlier invocation")
)

// ProducerError reports a tensor claimed by two execution records.
type ProducerError struct {
	Tensor graph.TensorID // Tensor with two producers
	First  string         // Name of the node that produced it first
	Second string         // Name of the conflicting node
}

// Error implements the error interface.
func (e *ProducerError) Error() string {
	return fmt.Sprintf("tensor %d: produced by %q and %q: %v", e.Tensor, e.First, e.Second, ErrDuplicateProducer)
}

// Unwrap returns ErrDuplicateProducer.
func (e *ProducerError) Unwrap() error {
	return ErrDuplicateProducer
}
