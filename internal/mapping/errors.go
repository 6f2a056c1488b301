package mapping

import (
	"errors"
	"fmt"

	"github.com/born-ml/attribution/internal/trace"
)

// Common errors.
var (
	ErrMissingMapping   = errors.New("no reverse rule for node")
	ErrUnsupportedShape = errors.New("unsupported tensor list shape")
)

// MissingError reports a node without a resolvable reverse rule.
type MissingError struct {
	Node string       // Node name
	Type string       // Node type tag
	NID  trace.NodeID // Node id in the trace
}

// Error implements the error interface.
func (e *MissingError) Error() string {
	return fmt.Sprintf("node %d %q (%s): %v", e.NID, e.Node, e.Type, ErrMissingMapping)
}

// Unwrap returns ErrMissingMapping.
func (e *MissingError) Unwrap() error {
	return ErrMissingMapping
}
