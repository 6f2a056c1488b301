package mapping

import (
	"fmt"

	"github.com/born-ml/attribution/internal/graph"
	"github.com/born-ml/attribution/internal/tensor"
)

// Identity passes reversed outputs straight through to the inputs. It only
// applies to nodes with as many inputs as outputs.
var Identity Func = func(xs, ys []*graph.Tensor, reversedYs []*tensor.RawTensor, _ *State) ([]*tensor.RawTensor, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("identity: %d inputs, %d outputs: %w", len(xs), len(ys), ErrUnsupportedShape)
	}
	return append([]*tensor.RawTensor(nil), reversedYs...), nil
}
