package graph

import (
	"fmt"
	"sync/atomic"

	"github.com/born-ml/attribution/internal/tensor"
)

// TensorID is the stable identity of a graph tensor. IDs are issued once,
// when the tensor is created, and are never reused within a process.
type TensorID int64

// nextTensorID is the source of TensorIDs.
var nextTensorID atomic.Int64

// Tensor is a graph edge: a forward value plus the invocation that produced it.
//
// Two tensors holding numerically equal values are still distinct tensors;
// every lookup in this module goes through ID().
type Tensor struct {
	id        TensorID
	value     *tensor.RawTensor
	producer  *Invocation
	consumers []*Invocation
}

// newTensor wraps value in a tensor with a fresh ID and no history.
func newTensor(value *tensor.RawTensor) *Tensor {
	return &Tensor{
		id:    TensorID(nextTensorID.Add(1)),
		value: value,
	}
}

// ID returns the tensor identity.
func (t *Tensor) ID() TensorID {
	return t.id
}

// Value returns the forward value.
func (t *Tensor) Value() *tensor.RawTensor {
	return t.value
}

// Producer returns the invocation that created this tensor, or nil for
// tensors created by an isolated re-execution (see Model.Reapply).
func (t *Tensor) Producer() *Invocation {
	return t.producer
}

// Consumers returns the registered invocations that took this tensor as input.
func (t *Tensor) Consumers() []*Invocation {
	return t.consumers
}

// String implements fmt.Stringer.
func (t *Tensor) String() string {
	if t.producer != nil {
		return fmt.Sprintf("Tensor#%d(%s)", t.id, t.producer.Node.Name())
	}
	return fmt.Sprintf("Tensor#%d", t.id)
}

// IDs returns the identities of ts, in order.
func IDs(ts []*Tensor) []TensorID {
	ids := make([]TensorID, len(ts))
	for i, t := range ts {
		ids[i] = t.id
	}
	return ids
}

// Values returns the forward values of ts, in order.
func Values(ts []*Tensor) []*tensor.RawTensor {
	vals := make([]*tensor.RawTensor, len(ts))
	for i, t := range ts {
		vals[i] = t.value
	}
	return vals
}
