package tensor

import (
	"fmt"
	"unsafe"

	"github.com/x448/float16"
)

// RawTensor is a strided view over a shared Storage buffer.
//
// The offset and strides are in element units. Several RawTensors may alias
// the same Storage; writes through one view are observable through all
// others. len(shape) == len(strides) always holds.
type RawTensor struct {
	storage *Storage
	shape   Shape
	stride  []int
	offset  int
	dtype   DataType
	device  Device
}

// NewRaw creates a contiguous RawTensor with the given shape and type.
// Memory is allocated and zero-initialized.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	byteSize := shape.NumElements() * dtype.Size()

	return &RawTensor{
		storage: newStorage(byteSize),
		shape:   shape.Clone(),
		stride:  shape.ComputeStrides(),
		offset:  0,
		dtype:   dtype,
		device:  device,
	}, nil
}

// view creates a RawTensor aliasing r's storage with new geometry.
func (r *RawTensor) view(shape Shape, stride []int, offset int) *RawTensor {
	r.storage.addRef()
	return &RawTensor{
		storage: r.storage,
		shape:   shape,
		stride:  stride,
		offset:  offset,
		dtype:   r.dtype,
		device:  r.device,
	}
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Rank returns the number of dimensions.
func (r *RawTensor) Rank() int {
	return len(r.shape)
}

// Strides returns the tensor's strides in element units.
func (r *RawTensor) Strides() []int {
	return r.stride
}

// Offset returns the view's storage offset in element units.
func (r *RawTensor) Offset() int {
	return r.offset
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// Device returns the tensor's compute device.
func (r *RawTensor) Device() Device {
	return r.device
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// SharesStorage reports whether two views alias the same buffer.
func (r *RawTensor) SharesStorage(other *RawTensor) bool {
	return r.storage == other.storage
}

// DataPtr returns the address of the view's first element. Two views of the
// same storage with the same offset have the same DataPtr.
func (r *RawTensor) DataPtr() uintptr {
	if len(r.storage.data) == 0 {
		return 0 // empty storage has no stable address
	}
	return uintptr(unsafe.Pointer(&r.storage.data[0])) + uintptr(r.offset*r.dtype.Size())
}

// Release decrements the storage reference count, freeing the buffer when
// the last view is released.
func (r *RawTensor) Release() {
	r.storage.release()
}

// IsUnique returns true if this view is the only reference to the buffer.
func (r *RawTensor) IsUnique() bool {
	return r.storage.isUnique()
}

// IsContiguous reports whether elements are laid out densely in row-major
// order. Size-0 and size-1 dimensions never break contiguity.
func (r *RawTensor) IsContiguous() bool {
	expected := 1
	for i := len(r.shape) - 1; i >= 0; i-- {
		if r.shape[i] == 0 {
			return true // empty tensors are trivially contiguous
		}
		if r.shape[i] != 1 && r.stride[i] != expected {
			return false
		}
		expected *= r.shape[i]
	}
	return true
}

// Flat reinterprets the whole backing buffer as []T so kernels can address
// elements by absolute element offset (offset + sum of idx*stride).
// Panics if T does not match the tensor's dtype.
func Flat[T DType](r *RawTensor) []T {
	var dummy T
	if dt := inferDataType(dummy); dt != r.dtype {
		panic(fmt.Sprintf("Flat[%s] called on %s tensor", dt, r.dtype))
	}
	if len(r.storage.data) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, length derived from buffer size
	return unsafe.Slice((*T)(unsafe.Pointer(&r.storage.data[0])), len(r.storage.data)/r.dtype.Size())
}

// bytes returns the whole backing buffer.
func (r *RawTensor) bytes() []byte {
	return r.storage.data
}

// Bytes returns the view's elements as a dense byte span. The view must be
// contiguous; call Contiguous first when it may not be.
func (r *RawTensor) Bytes() []byte {
	if !r.IsContiguous() {
		panic("Bytes called on a non-contiguous view")
	}
	size := r.dtype.Size()
	start := r.offset * size
	return r.storage.data[start : start+r.NumElements()*size]
}

// CopyElement copies one element between tensors of the same dtype.
// Offsets are absolute element offsets into each backing buffer.
func CopyElement(dst, src *RawTensor, dstOff, srcOff int) {
	size := dst.dtype.Size()
	copy(dst.bytes()[dstOff*size:(dstOff+1)*size], src.bytes()[srcOff*size:(srcOff+1)*size])
}

// ElemOffset computes the absolute element offset for the given coordinates.
func (r *RawTensor) ElemOffset(coords ...int) int {
	off := r.offset
	for i, c := range coords {
		off += c * r.stride[i]
	}
	return off
}

// At returns the element at the given coordinates as an any-boxed scalar.
func (r *RawTensor) At(coords ...int) any {
	off := r.ElemOffset(coords...)
	switch r.dtype {
	case Float32:
		return Flat[float32](r)[off]
	case Float64:
		return Flat[float64](r)[off]
	case Float16:
		return Flat[float16.Float16](r)[off]
	case Int32:
		return Flat[int32](r)[off]
	case Int64:
		return Flat[int64](r)[off]
	case Uint8:
		return Flat[uint8](r)[off]
	case Bool:
		return Flat[bool](r)[off]
	case Complex64:
		return Flat[complex64](r)[off]
	default:
		panic(fmt.Sprintf("unsupported dtype %s", r.dtype))
	}
}

// SetAt stores a scalar at the given coordinates, converting v to the
// tensor's dtype. Returns an error if v cannot represent the dtype.
func (r *RawTensor) SetAt(v any, coords ...int) error {
	off := r.ElemOffset(coords...)
	return r.setFlat(v, off)
}

// setFlat stores a converted scalar at an absolute element offset.
func (r *RawTensor) setFlat(v any, off int) error {
	switch r.dtype {
	case Float32:
		f, err := toFloat64(v)
		if err != nil {
			return err
		}
		Flat[float32](r)[off] = float32(f)
	case Float64:
		f, err := toFloat64(v)
		if err != nil {
			return err
		}
		Flat[float64](r)[off] = f
	case Float16:
		f, err := toFloat64(v)
		if err != nil {
			return err
		}
		Flat[float16.Float16](r)[off] = float16.Fromfloat32(float32(f))
	case Int32:
		if n, ok := toInt64(v); ok {
			Flat[int32](r)[off] = int32(n)
			break
		}
		f, err := toFloat64(v)
		if err != nil {
			return err
		}
		Flat[int32](r)[off] = int32(f)
	case Int64:
		// Integers convert exactly; float64 cannot represent all of int64.
		if n, ok := toInt64(v); ok {
			Flat[int64](r)[off] = n
			break
		}
		f, err := toFloat64(v)
		if err != nil {
			return err
		}
		Flat[int64](r)[off] = int64(f)
	case Uint8:
		if n, ok := toInt64(v); ok {
			Flat[uint8](r)[off] = uint8(n)
			break
		}
		f, err := toFloat64(v)
		if err != nil {
			return err
		}
		Flat[uint8](r)[off] = uint8(f)
	case Bool:
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("cannot store %T into bool tensor", v)
		}
		Flat[bool](r)[off] = b
	case Complex64:
		switch c := v.(type) {
		case complex64:
			Flat[complex64](r)[off] = c
		case complex128:
			Flat[complex64](r)[off] = complex64(c)
		default:
			f, err := toFloat64(v)
			if err != nil {
				return err
			}
			Flat[complex64](r)[off] = complex(float32(f), 0)
		}
	default:
		return fmt.Errorf("unsupported dtype %s", r.dtype)
	}
	return nil
}

// toInt64 extracts an exact integer from a scalar, when it is one.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	default:
		return 0, false
	}
}

// toFloat64 converts any supported numeric scalar to float64.
func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case float16.Float16:
		return float64(n.Float32()), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to a tensor scalar", v)
	}
}
