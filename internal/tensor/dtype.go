// Package tensor provides the strided-array substrate for the slab library.
package tensor

import "github.com/x448/float16"

// DType is a constraint for supported tensor element types.
// float16.Float16 is a uint16 under the hood, so ~uint16 admits it.
type DType interface {
	~float32 | ~float64 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~bool | ~complex64
}

// DataType represents runtime type information for tensors.
type DataType int

// Supported data types for tensors.
const (
	Float32 DataType = iota
	Float64
	Float16
	Int32
	Int64
	Uint8
	Bool
	Complex64
)

// Size returns the byte size of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float32, Int32:
		return 4
	case Float64, Int64, Complex64:
		return 8
	case Float16:
		return 2
	case Uint8, Bool:
		return 1
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Float16:
		return "float16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	case Bool:
		return "bool"
	case Complex64:
		return "complex64"
	default:
		return "unknown"
	}
}

// IsInteger reports whether the data type is a signed or unsigned integer.
func (dt DataType) IsInteger() bool {
	return dt == Int32 || dt == Int64 || dt == Uint8
}

// IsFloat reports whether the data type is a floating-point type.
func (dt DataType) IsFloat() bool {
	return dt == Float32 || dt == Float64 || dt == Float16
}

// inferDataType infers DataType from a generic type T.
func inferDataType[T DType](dummy T) DataType {
	switch any(dummy).(type) {
	case float32:
		return Float32
	case float64:
		return Float64
	case float16.Float16:
		return Float16
	case int32:
		return Int32
	case int64:
		return Int64
	case uint8:
		return Uint8
	case bool:
		return Bool
	case complex64:
		return Complex64
	default:
		panic("unsupported type")
	}
}
