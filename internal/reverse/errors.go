package reverse

import (
	"errors"
	"fmt"

	"github.com/born-ml/attribution/internal/graph"
	"github.com/born-ml/attribution/internal/trace"
)

// Common errors.
var (
	ErrOrderViolation = errors.New("contribution to an already finalized tensor")
	ErrRuleArity      = errors.New("reverse rule returned wrong number of values")
	ErrInvalidConfig  = errors.New("invalid reverse config")
)

// OrderError reports a contribution that arrived after its tensor was read.
type OrderError struct {
	Tensor graph.TensorID // Tensor that was already finalized
	NID    trace.NodeID   // Node delivering the late contribution
}

// Error implements the error interface.
func (e *OrderError) Error() string {
	return fmt.Sprintf("tensor %d: node %d: %v", e.Tensor, e.NID, ErrOrderViolation)
}

// Unwrap returns ErrOrderViolation.
func (e *OrderError) Unwrap() error {
	return ErrOrderViolation
}
