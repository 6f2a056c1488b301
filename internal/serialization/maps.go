package serialization

import (
	"fmt"

	"github.com/born-ml/attribution/internal/graph"
	"github.com/born-ml/attribution/internal/tensor"
)

// InputMaps names per-input values after the input layers they belong to.
// Nil values are left out. A name taken by an earlier input gets the input
// index appended.
func InputMaps(inputs []*graph.Tensor, values []*tensor.RawTensor) map[string]*tensor.RawTensor {
	maps := make(map[string]*tensor.RawTensor, len(values))
	for i, x := range inputs {
		if i >= len(values) || values[i] == nil {
			continue
		}
		name := fmt.Sprintf("input_%d", i)
		if inv := x.Producer(); inv != nil && inv.Node.Name() != "" {
			name = inv.Node.Name()
		}
		if _, taken := maps[name]; taken {
			name = fmt.Sprintf("%s_%d", name, i)
		}
		maps[name] = values[i]
	}
	return maps
}
