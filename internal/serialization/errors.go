package serialization

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrHeaderTooLarge   = errors.New("header exceeds maximum size")
	ErrOutOfBounds      = errors.New("tensor extends beyond data section")
	ErrOffsetOverlap    = errors.New("tensor offsets overlap")
	ErrUnsupportedDType = errors.New("unsupported dtype")
	ErrSizeMismatch     = errors.New("tensor size does not match shape")
)

// ValidationError describes a malformed tensor entry in a header.
type ValidationError struct {
	Tensor  string // Tensor name involved
	Details string // Additional details
	Err     error  // One of the sentinel errors above
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("tensor %q: %s: %v", e.Tensor, e.Details, e.Err)
}

// Unwrap returns the sentinel error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}
