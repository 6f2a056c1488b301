package trace

import (
	"github.com/born-ml/attribution/internal/graph"
)

// NodeID identifies a non-input record of a Trace. IDs are dense, zero-based
// and follow forward order.
type NodeID int

// NoNode marks input-producing records and graph-input provenance.
const NoNode NodeID = -1

// Entry is a record together with its node id.
type Entry struct {
	NID NodeID
	Record
}

// Trace is an identified execution: every record carries a node id and the
// tensor-to-node indices are prebuilt. A Trace is read-only once built.
type Trace struct {
	execution *Execution
	entries   []Entry
	consumers map[graph.TensorID][]NodeID
	producers map[graph.TensorID]NodeID
	byNID     []int
}

// NewTrace assigns node ids to exec's records and indexes their tensors.
func NewTrace(exec *Execution) *Trace {
	t := &Trace{
		execution: exec,
		entries:   make([]Entry, len(exec.Records)),
		consumers: make(map[graph.TensorID][]NodeID),
		producers: make(map[graph.TensorID]NodeID),
	}

	next := NodeID(0)
	for i, rec := range exec.Records {
		nid := NoNode
		if !graph.IsInput(rec.Node) {
			nid = next
			next++
		}
		t.entries[i] = Entry{NID: nid, Record: rec}

		if nid == NoNode {
			continue
		}
		t.byNID = append(t.byNID, i)
		for _, x := range rec.Inputs {
			t.consumers[x.ID()] = append(t.consumers[x.ID()], nid)
		}
		for _, y := range rec.Outputs {
			t.producers[y.ID()] = nid
		}
	}
	return t
}

// Execution returns the underlying execution.
func (t *Trace) Execution() *Execution {
	return t.execution
}

// Entries returns all records in forward order, input records included.
func (t *Trace) Entries() []Entry {
	return t.entries
}

// Len returns the number of identified (non-input) nodes.
func (t *Trace) Len() int {
	return len(t.byNID)
}

// Node returns the entry with the given id.
func (t *Trace) Node(nid NodeID) (Entry, bool) {
	if nid < 0 || int(nid) >= len(t.byNID) {
		return Entry{}, false
	}
	return t.entries[t.byNID[nid]], true
}

// Consumers returns the ids of the nodes consuming tensor id, one per use.
func (t *Trace) Consumers(id graph.TensorID) []NodeID {
	return t.consumers[id]
}

// Producer returns the id of the node producing tensor id. Declared inputs
// have no producer.
func (t *Trace) Producer(id graph.TensorID) (NodeID, bool) {
	nid, ok := t.producers[id]
	return nid, ok
}
