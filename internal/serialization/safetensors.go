package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/born-ml/attribution/internal/tensor"
)

// MaxHeaderSize bounds the JSON header accepted by Read.
const MaxHeaderSize = 100 * 1024 * 1024

const metadataKey = "__metadata__"

// TensorHeader describes one tensor in the SafeTensors header.
type TensorHeader struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// Write encodes tensors and metadata to w. Tensors are written in
// alphabetical order by name.
func Write(w io.Writer, tensors map[string]*tensor.RawTensor, metadata map[string]string) error {
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		names = append(names, name)
	}
	sort.Strings(names)

	header := make(map[string]any, len(names)+1)
	if len(metadata) > 0 {
		header[metadataKey] = metadata
	}
	var offset int64
	for _, name := range names {
		raw := tensors[name]
		dtype, err := dtypeName(raw.DType())
		if err != nil {
			return fmt.Errorf("tensor %s: %w", name, err)
		}
		shape := make([]int64, len(raw.Shape()))
		for i, dim := range raw.Shape() {
			shape[i] = int64(dim)
		}
		size := int64(raw.ByteSize())
		header[name] = TensorHeader{
			DType:       dtype,
			Shape:       shape,
			DataOffsets: [2]int64{offset, offset + size},
		}
		offset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, name := range names {
		if _, err := w.Write(tensors[name].Data()); err != nil {
			return fmt.Errorf("failed to write tensor %s: %w", name, err)
		}
	}
	return nil
}

// WriteFile writes tensors and metadata to the file at path.
func WriteFile(path string, tensors map[string]*tensor.RawTensor, metadata map[string]string) (err error) {
	//nolint:gosec // G304: output path is supplied by the caller
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cErr := f.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()
	return Write(f, tensors, metadata)
}

// Read decodes a SafeTensors stream written by Write or any compatible tool
// limited to F32 and F64 tensors.
func Read(r io.Reader) (map[string]*tensor.RawTensor, map[string]string, error) {
	var headerSize uint64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > MaxHeaderSize {
		return nil, nil, fmt.Errorf("%d bytes: %w", headerSize, ErrHeaderTooLarge)
	}
	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	var rawHeader map[string]json.RawMessage
	if err := json.Unmarshal(headerJSON, &rawHeader); err != nil {
		return nil, nil, fmt.Errorf("failed to parse header: %w", err)
	}

	var metadata map[string]string
	entries := make(map[string]TensorHeader, len(rawHeader))
	for name, msg := range rawHeader {
		if name == metadataKey {
			if err := json.Unmarshal(msg, &metadata); err != nil {
				return nil, nil, fmt.Errorf("failed to parse metadata: %w", err)
			}
			continue
		}
		var th TensorHeader
		if err := json.Unmarshal(msg, &th); err != nil {
			return nil, nil, fmt.Errorf("tensor %s: failed to parse header: %w", name, err)
		}
		entries[name] = th
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read data: %w", err)
	}
	if err := validate(entries, int64(len(data))); err != nil {
		return nil, nil, err
	}

	tensors := make(map[string]*tensor.RawTensor, len(entries))
	for name, th := range entries {
		raw, err := decode(name, th, data)
		if err != nil {
			return nil, nil, err
		}
		tensors[name] = raw
	}
	return tensors, metadata, nil
}

// ReadFile reads the SafeTensors file at path.
func ReadFile(path string) (map[string]*tensor.RawTensor, map[string]string, error) {
	//nolint:gosec // G304: input path is supplied by the caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Read(bytes.NewReader(data))
}

// validate rejects negative, out-of-bounds and overlapping data regions.
func validate(entries map[string]TensorHeader, dataSize int64) error {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return entries[names[i]].DataOffsets[0] < entries[names[j]].DataOffsets[0]
	})

	for i, name := range names {
		start, end := entries[name].DataOffsets[0], entries[name].DataOffsets[1]
		if start < 0 || end < start || end > dataSize {
			return &ValidationError{
				Tensor:  name,
				Details: fmt.Sprintf("region [%d, %d) with data size %d", start, end, dataSize),
				Err:     ErrOutOfBounds,
			}
		}
		if i+1 < len(names) {
			next := names[i+1]
			if end > entries[next].DataOffsets[0] {
				return &ValidationError{
					Tensor:  name,
					Details: fmt.Sprintf("overlaps %q", next),
					Err:     ErrOffsetOverlap,
				}
			}
		}
	}
	return nil
}

func decode(name string, th TensorHeader, data []byte) (*tensor.RawTensor, error) {
	dtype, err := parseDType(th.DType)
	if err != nil {
		return nil, &ValidationError{Tensor: name, Details: th.DType, Err: err}
	}
	shape := make(tensor.Shape, len(th.Shape))
	for i, dim := range th.Shape {
		shape[i] = int(dim)
	}
	raw, err := tensor.NewRaw(shape, dtype, tensor.CPU)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}
	region := data[th.DataOffsets[0]:th.DataOffsets[1]]
	if len(region) != raw.ByteSize() {
		return nil, &ValidationError{
			Tensor:  name,
			Details: fmt.Sprintf("%d bytes for shape %v", len(region), shape),
			Err:     ErrSizeMismatch,
		}
	}
	copy(raw.Data(), region)
	return raw, nil
}

func dtypeName(dt tensor.DataType) (string, error) {
	switch dt {
	case tensor.Float32:
		return "F32", nil
	case tensor.Float64:
		return "F64", nil
	default:
		return "", fmt.Errorf("%s: %w", dt, ErrUnsupportedDType)
	}
}

func parseDType(name string) (tensor.DataType, error) {
	switch name {
	case "F32":
		return tensor.Float32, nil
	case "F64":
		return tensor.Float64, nil
	default:
		return 0, ErrUnsupportedDType
	}
}
