package serialization

import (
	"bytes"
	"encoding/binary"
	"errors"
	"path/filepath"
	"testing"

	"github.com/born-ml/attribution/internal/tensor"
)

func TestWriteReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "maps.safetensors")

	x, err := tensor.FromFloat32([]float32{1.5, 0, 3}, tensor.Shape{1, 3})
	if err != nil {
		t.Fatalf("Failed to create tensor: %v", err)
	}
	mask, err := tensor.FromFloat64([]float64{-1, 2}, tensor.Shape{2})
	if err != nil {
		t.Fatalf("Failed to create tensor: %v", err)
	}

	meta := map[string]string{"run_id": "abc"}
	if err := WriteFile(path, map[string]*tensor.RawTensor{"x": x, "mask": mask}, meta); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	tensors, gotMeta, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if gotMeta["run_id"] != "abc" {
		t.Errorf("metadata = %v, want run_id=abc", gotMeta)
	}
	if len(tensors) != 2 {
		t.Fatalf("got %d tensors, want 2", len(tensors))
	}

	gotX := tensors["x"]
	if gotX.DType() != tensor.Float32 || !gotX.Shape().Equal(tensor.Shape{1, 3}) {
		t.Errorf("x = %v", gotX)
	}
	for i, v := range []float32{1.5, 0, 3} {
		if gotX.AsFloat32()[i] != v {
			t.Errorf("x[%d] = %v, want %v", i, gotX.AsFloat32()[i], v)
		}
	}
	if got := tensors["mask"].AsFloat64(); got[0] != -1 || got[1] != 2 {
		t.Errorf("mask = %v, want [-1 2]", got)
	}
}

func TestWriteOrdersByName(t *testing.T) {
	a, _ := tensor.FromFloat32([]float32{1}, tensor.Shape{1})
	b, _ := tensor.FromFloat32([]float32{2}, tensor.Shape{1})

	var buf bytes.Buffer
	if err := Write(&buf, map[string]*tensor.RawTensor{"b": b, "a": a}, nil); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// The data section is the last 8 bytes: a then b.
	data := buf.Bytes()[buf.Len()-8:]
	if got := binary.LittleEndian.Uint32(data[:4]); got != 0x3f800000 {
		t.Errorf("first tensor bits = %#x, want 1.0", got)
	}
}

// header builds a stream with the given JSON header and data section.
func header(json string, data []byte) *bytes.Reader {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, uint64(len(json)))
	buf.WriteString(json)
	buf.Write(data)
	return bytes.NewReader(buf.Bytes())
}

func TestReadRejects(t *testing.T) {
	tests := []struct {
		name    string
		stream  *bytes.Reader
		wantErr error
	}{
		{
			name:    "out of bounds",
			stream:  header(`{"x":{"dtype":"F32","shape":[2],"data_offsets":[0,8]}}`, make([]byte, 4)),
			wantErr: ErrOutOfBounds,
		},
		{
			name: "overlap",
			stream: header(`{"a":{"dtype":"F32","shape":[2],"data_offsets":[0,8]},`+
				`"b":{"dtype":"F32","shape":[1],"data_offsets":[4,8]}}`, make([]byte, 8)),
			wantErr: ErrOffsetOverlap,
		},
		{
			name:    "dtype",
			stream:  header(`{"x":{"dtype":"I64","shape":[1],"data_offsets":[0,8]}}`, make([]byte, 8)),
			wantErr: ErrUnsupportedDType,
		},
		{
			name:    "size",
			stream:  header(`{"x":{"dtype":"F32","shape":[3],"data_offsets":[0,8]}}`, make([]byte, 8)),
			wantErr: ErrSizeMismatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Read(tt.stream)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestReadHeaderTooLarge(t *testing.T) {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, uint64(MaxHeaderSize+1))
	if _, _, err := Read(&buf); !errors.Is(err, ErrHeaderTooLarge) {
		t.Errorf("err = %v, want ErrHeaderTooLarge", err)
	}
}
