package tensor

import "fmt"

// Shape represents the dimensions of a tensor.
// Size-0 dimensions are legal and describe empty tensors.
type Shape []int

// NumElements returns the total number of elements in the tensor.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // Scalar has 1 element
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks that no dimension is negative.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim < 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be >= 0)", i, dim)
		}
	}
	return nil
}

// String formats the shape like a plain int slice, e.g. "[2 3 4]".
func (s Shape) String() string {
	return fmt.Sprintf("%v", []int(s))
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// ComputeStrides calculates row-major strides for the shape, in element units.
// stride[i] = product of all dimensions after i.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// BroadcastShapes implements NumPy-style broadcasting rules.
//
// Shapes are compared element-wise from right to left; dimensions are
// compatible when they are equal or one of them is 1, and missing leading
// dimensions are treated as 1.
func BroadcastShapes(a, b Shape) (Shape, error) {
	maxLen := max(len(a), len(b))
	result := make(Shape, maxLen)

	for i := 0; i < maxLen; i++ {
		aDim, bDim := 1, 1
		if idx := len(a) - 1 - i; idx >= 0 {
			aDim = a[idx]
		}
		if idx := len(b) - 1 - i; idx >= 0 {
			bDim = b[idx]
		}

		switch {
		case aDim == bDim:
			result[maxLen-1-i] = aDim
		case aDim == 1:
			result[maxLen-1-i] = bDim
		case bDim == 1:
			result[maxLen-1-i] = aDim
		default:
			return nil, fmt.Errorf("shapes not compatible for broadcasting: %v vs %v (dimension %d: %d vs %d)",
				a, b, maxLen-1-i, aDim, bDim)
		}
	}

	return result, nil
}

// BroadcastAll broadcasts any number of shapes together.
func BroadcastAll(shapes ...Shape) (Shape, error) {
	if len(shapes) == 0 {
		return Shape{}, nil
	}
	result := shapes[0].Clone()
	for _, s := range shapes[1:] {
		var err error
		result, err = BroadcastShapes(result, s)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// BroadcastTo checks that a source shape can be written into target.
// Unlike symmetric broadcasting, the source may only stretch size-1
// dimensions and drop leading size-1 axes; it can never grow the target.
func BroadcastTo(src, target Shape) error {
	for len(src) > len(target) {
		if src[0] != 1 {
			return fmt.Errorf("shape %v cannot be broadcast to %v: leading dimension %d is not 1",
				src, target, src[0])
		}
		src = src[1:]
	}
	offset := len(target) - len(src)
	for i, dim := range src {
		if dim != 1 && dim != target[offset+i] {
			return fmt.Errorf("shape %v cannot be broadcast to %v (dimension %d: %d vs %d)",
				src, target, offset+i, dim, target[offset+i])
		}
	}
	return nil
}
