package trace

import (
	"github.com/born-ml/attribution/internal/graph"
)

// NodeInfo describes one traced node and its neighbours.
type NodeInfo struct {
	NID     NodeID
	Node    graph.Node
	Inputs  []*graph.Tensor
	Outputs []*graph.Tensor

	// InputNIDs holds, per input tensor, the producing node id or NoNode for
	// graph inputs.
	InputNIDs []NodeID

	// OutputNIDs holds, per output tensor, the consuming node ids, or
	// [NoNode] if nothing consumes it.
	OutputNIDs [][]NodeID

	// InputNodes lists the producing nodes of the inputs that have one.
	InputNodes []graph.Node

	// OutputNodes lists, per output tensor, the consuming nodes.
	OutputNodes [][]graph.Node
}

// Graph is the node-id keyed view of a trace.
type Graph struct {
	Nodes map[NodeID]*NodeInfo

	// Inputs holds the input-layer entries; empty unless requested.
	Inputs []*NodeInfo
}

// ExecutionGraph builds the node-id keyed view of t. Input-layer entries are
// included in Graph.Inputs only when keepInputs is set.
func ExecutionGraph(t *Trace, keepInputs bool) *Graph {
	nodes := make(map[NodeID]graph.Node, t.Len())
	for _, e := range t.entries {
		if e.NID != NoNode {
			nodes[e.NID] = e.Node
		}
	}

	g := &Graph{Nodes: make(map[NodeID]*NodeInfo, t.Len())}
	for _, e := range t.entries {
		info := &NodeInfo{
			NID:     e.NID,
			Node:    e.Node,
			Inputs:  e.Inputs,
			Outputs: e.Outputs,
		}

		if e.NID != NoNode {
			for _, x := range e.Inputs {
				nid, ok := t.Producer(x.ID())
				if !ok {
					info.InputNIDs = append(info.InputNIDs, NoNode)
					continue
				}
				info.InputNIDs = append(info.InputNIDs, nid)
				info.InputNodes = append(info.InputNodes, nodes[nid])
			}
		}

		for _, y := range e.Outputs {
			consumers := t.Consumers(y.ID())
			if len(consumers) == 0 {
				info.OutputNIDs = append(info.OutputNIDs, []NodeID{NoNode})
				info.OutputNodes = append(info.OutputNodes, nil)
				continue
			}
			users := make([]graph.Node, len(consumers))
			for i, nid := range consumers {
				users[i] = nodes[nid]
			}
			info.OutputNIDs = append(info.OutputNIDs, append([]NodeID(nil), consumers...))
			info.OutputNodes = append(info.OutputNodes, users)
		}

		if e.NID == NoNode {
			if keepInputs {
				g.Inputs = append(g.Inputs, info)
			}
			continue
		}
		g.Nodes[e.NID] = info
	}
	return g
}
