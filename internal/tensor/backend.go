package tensor

// Backend defines the tensor algebra used by graph operations and reverse
// rules. Implementations never modify their operands.
//
// Implementations:
//   - CPU: pure Go (internal/backend/cpu)
type Backend interface {
	// Element-wise binary operations with NumPy-style broadcasting.
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor

	// SafeDiv divides element-wise and yields 0 wherever b is 0.
	SafeDiv(a, b *RawTensor) *RawTensor

	// Matrix operations (2D only).
	MatMul(a, b *RawTensor) *RawTensor
	Transpose(t *RawTensor) *RawTensor

	MulScalar(x *RawTensor, scalar float64) *RawTensor
	ReLU(x *RawTensor) *RawTensor

	// Sum reduces all elements to a scalar tensor.
	Sum(x *RawTensor) *RawTensor

	// Clip limits every element to [lo, hi].
	Clip(x *RawTensor, lo, hi float64) *RawTensor

	// Project scales x by its absolute maximum (per sample when the tensor
	// has a batch axis) and maps the resulting [-1, 1] range onto [lo, hi].
	Project(x *RawTensor, lo, hi float64) *RawTensor

	// Metadata
	Name() string
	Device() Device
}
