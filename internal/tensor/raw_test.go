package tensor

import (
	"testing"
)

func TestFromFloat32(t *testing.T) {
	raw, err := FromFloat32([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	if err != nil {
		t.Fatalf("FromFloat32 failed: %v", err)
	}
	if !raw.Shape().Equal(Shape{2, 3}) {
		t.Errorf("Shape = %v, want [2 3]", raw.Shape())
	}
	if raw.DType() != Float32 {
		t.Errorf("DType = %v, want float32", raw.DType())
	}
	if raw.ByteSize() != 24 {
		t.Errorf("ByteSize = %d, want 24", raw.ByteSize())
	}
	if got := raw.Strides(); got[0] != 3 || got[1] != 1 {
		t.Errorf("Strides = %v, want [3 1]", got)
	}
}

func TestFromFloat64SizeMismatch(t *testing.T) {
	if _, err := FromFloat64([]float64{1, 2, 3}, Shape{2, 2}); err == nil {
		t.Error("expected error for mismatched element count")
	}
}

func TestNewRawInvalidShape(t *testing.T) {
	if _, err := NewRaw(Shape{2, 0}, Float32, CPU); err == nil {
		t.Error("expected error for zero dimension")
	}
}

func TestFloat64sIsACopy(t *testing.T) {
	raw, _ := FromFloat32([]float32{1, 2}, Shape{2})
	vals := raw.Float64s()
	vals[0] = 42
	if raw.AsFloat32()[0] != 1 {
		t.Error("Float64s must not alias tensor memory")
	}
}

func TestCloneIsDeep(t *testing.T) {
	raw, _ := FromFloat64([]float64{1, 2}, Shape{1, 2})
	clone := raw.Clone()
	clone.AsFloat64()[0] = 9
	if raw.AsFloat64()[0] != 1 {
		t.Error("Clone must copy data")
	}
	if !clone.Shape().Equal(raw.Shape()) {
		t.Errorf("Clone shape = %v, want %v", clone.Shape(), raw.Shape())
	}
}

func TestAsFloat32WrongDType(t *testing.T) {
	raw, _ := FromFloat64([]float64{1}, Shape{1})
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	raw.AsFloat32()
}

func TestString(t *testing.T) {
	raw, _ := FromFloat32([]float32{1, 2}, Shape{1, 2})
	if got := raw.String(); got != "RawTensor(float32, [1 2], CPU)" {
		t.Errorf("String = %q", got)
	}
}

func TestEmptyAccessors(t *testing.T) {
	var raw RawTensor
	if got := raw.AsFloat32(); got != nil {
		t.Errorf("AsFloat32 = %v, want nil", got)
	}
	if got := raw.Float64s(); len(got) != 0 {
		t.Errorf("Float64s = %v, want empty", got)
	}
}
