package tensor

import "fmt"

// Zeros creates a contiguous tensor filled with zeros.
func Zeros(shape Shape, dtype DataType, device Device) *RawTensor {
	raw, err := NewRaw(shape, dtype, device)
	if err != nil {
		panic(err) // Shape validation should prevent this
	}
	return raw
}

// Full creates a tensor filled with a scalar value converted to dtype.
func Full(shape Shape, value any, dtype DataType, device Device) *RawTensor {
	raw := Zeros(shape, dtype, device)
	for i := 0; i < raw.NumElements(); i++ {
		if err := raw.setFlat(value, i); err != nil {
			panic(fmt.Sprintf("Full: %v", err))
		}
	}
	return raw
}

// FromSlice creates a contiguous tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromSlice[T DType](data []T, shape Shape) (*RawTensor, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}

	var dummy T
	raw, err := NewRaw(shape, inferDataType(dummy), CPU)
	if err != nil {
		return nil, err
	}
	copy(Flat[T](raw), data)
	return raw, nil
}

// Arange creates a 1D int64 tensor with values from start to end (exclusive).
func Arange(start, end int64) *RawTensor {
	n := int(end - start)
	if n < 0 {
		n = 0
	}
	raw := Zeros(Shape{n}, Int64, CPU)
	data := Flat[int64](raw)
	for i := 0; i < n; i++ {
		data[i] = start + int64(i)
	}
	return raw
}

// ArangeF creates a 1D float32 tensor with values from start to end (exclusive).
func ArangeF(start, end int) *RawTensor {
	n := end - start
	if n < 0 {
		n = 0
	}
	raw := Zeros(Shape{n}, Float32, CPU)
	data := Flat[float32](raw)
	for i := 0; i < n; i++ {
		data[i] = float32(start + i)
	}
	return raw
}

// Consec creates a float32 tensor of the given shape whose elements count
// up from start (default 1) in row-major order: 1, 2, 3, ...
func Consec(shape Shape, start ...float32) *RawTensor {
	first := float32(1)
	if len(start) > 0 {
		first = start[0]
	}
	raw := Zeros(shape, Float32, CPU)
	data := Flat[float32](raw)
	for i := range data {
		data[i] = first + float32(i)
	}
	return raw
}
