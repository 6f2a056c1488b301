package reverse

import (
	"fmt"

	"github.com/born-ml/attribution/internal/graph"
	"github.com/born-ml/attribution/internal/tensor"
	"github.com/born-ml/attribution/internal/trace"
)

// State is the reversal bookkeeping of one tensor.
//
// Before finalization it holds either one pending value (Tensor) or the
// list of all contributions (Tensors). Final is set on first read and never
// changes afterwards.
type State struct {
	// NID and Index identify the first contribution: the contributing node
	// (NoNode for output seeds) and the position of the tensor among its
	// inputs.
	NID   trace.NodeID
	Index int

	Tensor  *tensor.RawTensor
	Tensors []*tensor.RawTensor
	Final   *tensor.RawTensor
}

// Finalized reports whether the state has been read.
func (s *State) Finalized() bool {
	return s.Final != nil
}

// states is the per-run tensor-to-state map plus the data needed to finalize.
type states struct {
	byTensor    map[graph.TensorID]*State
	stop        map[graph.TensorID]bool
	bottlenecks map[graph.TensorID]bool
	project     *Range
	clip        *Range
	backend     tensor.Backend
}

func newStates(cfg Config, bottlenecks map[graph.TensorID]bool) *states {
	s := &states{
		byTensor: make(map[graph.TensorID]*State),
		stop:     make(map[graph.TensorID]bool, len(cfg.StopAt)),
		project:  cfg.ProjectBottlenecks,
		clip:     cfg.Clip,
		backend:  cfg.Backend,
	}
	for _, t := range cfg.StopAt {
		s.stop[t.ID()] = true
	}
	if cfg.ProjectBottlenecks != nil {
		s.bottlenecks = bottlenecks
	}
	return s
}

// contribute adds value to the pending contributions of t. Stop-set tensors
// and nil values are ignored.
func (s *states) contribute(nid trace.NodeID, index int, t *graph.Tensor, value *tensor.RawTensor) error {
	if value == nil || s.stop[t.ID()] {
		return nil
	}

	st, ok := s.byTensor[t.ID()]
	if !ok {
		s.byTensor[t.ID()] = &State{NID: nid, Index: index, Tensor: value}
		return nil
	}
	if st.Finalized() {
		return &OrderError{Tensor: t.ID(), NID: nid}
	}
	if st.Tensor != nil {
		st.Tensors = []*tensor.RawTensor{st.Tensor, value}
		st.Tensor = nil
		return nil
	}
	st.Tensors = append(st.Tensors, value)
	return nil
}

// has reports whether t received at least one contribution.
func (s *states) has(t *graph.Tensor) bool {
	_, ok := s.byTensor[t.ID()]
	return ok
}

// resolve finalizes t: sums its contributions, projects bottleneck tensors
// and clips.
func (s *states) resolve(t *graph.Tensor) (*tensor.RawTensor, error) {
	st, ok := s.byTensor[t.ID()]
	if !ok {
		return nil, fmt.Errorf("tensor %d: no contribution to resolve", t.ID())
	}
	if st.Finalized() {
		return st.Final, nil
	}

	value := st.Tensor
	if st.Tensors != nil {
		value = st.Tensors[0]
		for _, v := range st.Tensors[1:] {
			value = s.backend.Add(value, v)
		}
	}
	if s.project != nil && s.bottlenecks[t.ID()] {
		value = s.backend.Project(value, s.project.Lo, s.project.Hi)
	}
	if s.clip != nil {
		value = s.backend.Clip(value, s.clip.Lo, s.clip.Hi)
	}
	st.Final = value
	return value, nil
}

// stopped returns the tensors of ts that are in the stop-set.
func (s *states) stopped(ts []*graph.Tensor) []*graph.Tensor {
	var out []*graph.Tensor
	for _, t := range ts {
		if s.stop[t.ID()] {
			out = append(out, t)
		}
	}
	return out
}
