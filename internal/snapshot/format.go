package snapshot

import (
	"fmt"

	"github.com/slab-ml/slab/internal/tensor"
)

// Format constants.
const (
	MagicBytes    = "SLAB"
	FormatVersion = 1
	DataAlignment = 64 // tensor data offsets are 64-byte aligned
	PreludeSize   = 4 + 4 + 8 + 32
	MaxHeaderSize = 100 << 20 // 100 MB of JSON metadata is already absurd
	ChecksumSize  = 32
)

// Header is the JSON metadata block of a .slab file.
type Header struct {
	FormatVersion int               `json:"format_version"`
	Tensors       []TensorMeta      `json:"tensors"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// TensorMeta describes one tensor in the data section.
type TensorMeta struct {
	Name   string `json:"name"`
	DType  string `json:"dtype"`
	Shape  []int  `json:"shape"`
	Offset int64  `json:"offset"` // relative to the data section start
	Size   int64  `json:"size"`   // bytes
}

// parseDType maps a header dtype string back to a DataType.
func parseDType(s string) (tensor.DataType, error) {
	for _, dt := range []tensor.DataType{
		tensor.Float32, tensor.Float64, tensor.Float16,
		tensor.Int32, tensor.Int64, tensor.Uint8,
		tensor.Bool, tensor.Complex64,
	} {
		if dt.String() == s {
			return dt, nil
		}
	}
	return 0, fmt.Errorf("unknown dtype %q", s)
}

// align rounds n up to the next multiple of DataAlignment.
func align(n int64) int64 {
	return (n + DataAlignment - 1) / DataAlignment * DataAlignment
}
