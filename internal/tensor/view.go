package tensor

import "fmt"

// OffsetAt maps a row-major logical index into this view to an absolute
// element offset in the backing buffer, honoring strides and offset.
func (r *RawTensor) OffsetAt(flat int) int {
	logical := r.shape.ComputeStrides()
	off := r.offset
	remaining := flat
	for d := 0; d < len(r.shape); d++ {
		idx := remaining / logical[d]
		remaining %= logical[d]
		off += idx * r.stride[d]
	}
	return off
}

// AsStrided returns a view with explicit geometry sharing r's storage.
// The caller is responsible for keeping the geometry inside the buffer.
func (r *RawTensor) AsStrided(shape Shape, stride []int, offset int) *RawTensor {
	return r.view(shape.Clone(), append([]int(nil), stride...), offset)
}

// Narrow returns a view of one dimension restricted to
// [start, start+length*step) with the given step. Bounds are the caller's
// responsibility; the indexing engine validates before narrowing.
func (r *RawTensor) Narrow(dim, start, length, step int) *RawTensor {
	shape := r.shape.Clone()
	stride := append([]int(nil), r.stride...)
	shape[dim] = length
	stride[dim] = r.stride[dim] * step
	return r.view(shape, stride, r.offset+start*r.stride[dim])
}

// Select returns a view with dimension dim removed, fixed at index.
func (r *RawTensor) Select(dim, index int) *RawTensor {
	shape := make(Shape, 0, len(r.shape)-1)
	stride := make([]int, 0, len(r.stride)-1)
	for d := range r.shape {
		if d == dim {
			continue
		}
		shape = append(shape, r.shape[d])
		stride = append(stride, r.stride[d])
	}
	return r.view(shape, stride, r.offset+index*r.stride[dim])
}

// Unsqueeze returns a view with a size-1 dimension inserted at dim.
func (r *RawTensor) Unsqueeze(dim int) *RawTensor {
	shape := make(Shape, 0, len(r.shape)+1)
	stride := make([]int, 0, len(r.stride)+1)
	shape = append(shape, r.shape[:dim]...)
	stride = append(stride, r.stride[:dim]...)
	shape = append(shape, 1)
	// Stride of a size-1 dim never affects addressing; mirror the
	// neighboring stride so contiguity checks stay simple.
	if dim < len(r.stride) {
		stride = append(stride, r.stride[dim]*max(r.shape[dim], 1))
	} else {
		stride = append(stride, 1)
	}
	shape = append(shape, r.shape[dim:]...)
	stride = append(stride, r.stride[dim:]...)
	return r.view(shape, stride, r.offset)
}

// Squeeze returns a view with size-1 dimension dim removed.
// Panics if the dimension does not have size 1.
func (r *RawTensor) Squeeze(dim int) *RawTensor {
	if r.shape[dim] != 1 {
		panic(fmt.Sprintf("Squeeze: dimension %d has size %d, not 1", dim, r.shape[dim]))
	}
	return r.Select(dim, 0)
}

// Transpose returns a view with dimensions permuted. With no arguments all
// dimensions are reversed.
func (r *RawTensor) Transpose(axes ...int) *RawTensor {
	n := len(r.shape)
	if len(axes) == 0 {
		axes = make([]int, n)
		for i := range axes {
			axes[i] = n - 1 - i
		}
	}
	if len(axes) != n {
		panic(fmt.Sprintf("Transpose: got %d axes for %dD tensor", len(axes), n))
	}
	shape := make(Shape, n)
	stride := make([]int, n)
	for i, a := range axes {
		shape[i] = r.shape[a]
		stride[i] = r.stride[a]
	}
	return r.view(shape, stride, r.offset)
}

// Expand returns a broadcast view with size-1 dimensions stretched to the
// target shape using stride 0. The target may add leading dimensions.
func (r *RawTensor) Expand(target Shape) (*RawTensor, error) {
	if len(target) < len(r.shape) {
		return nil, fmt.Errorf("expand: target rank %d smaller than tensor rank %d", len(target), len(r.shape))
	}
	lead := len(target) - len(r.shape)
	stride := make([]int, len(target))
	for i := range target {
		if i < lead {
			stride[i] = 0
			continue
		}
		src := i - lead
		switch {
		case r.shape[src] == target[i]:
			stride[i] = r.stride[src]
		case r.shape[src] == 1:
			stride[i] = 0
		default:
			return nil, fmt.Errorf("expand: cannot expand dimension %d from %d to %d", src, r.shape[src], target[i])
		}
	}
	return r.view(target.Clone(), stride, r.offset), nil
}

// Contiguous returns a tensor with the same logical contents laid out
// densely. Returns the receiver when it is already contiguous.
func (r *RawTensor) Contiguous() *RawTensor {
	if r.IsContiguous() {
		return r
	}
	return r.Clone()
}

// Clone returns a contiguous deep copy that owns fresh storage.
func (r *RawTensor) Clone() *RawTensor {
	out, err := NewRaw(r.shape, r.dtype, r.device)
	if err != nil {
		panic(fmt.Sprintf("Clone: %v", err))
	}
	n := r.NumElements()
	for i := 0; i < n; i++ {
		CopyElement(out, r, i, r.OffsetAt(i))
	}
	return out
}

// Reshape returns a view with the new shape when the tensor is contiguous,
// otherwise a reshaped copy. Element count must be preserved.
func (r *RawTensor) Reshape(newShape Shape) (*RawTensor, error) {
	if newShape.NumElements() != r.NumElements() {
		return nil, fmt.Errorf("reshape: shape %v requires %d elements, tensor has %d",
			newShape, newShape.NumElements(), r.NumElements())
	}
	if r.IsContiguous() {
		return r.view(newShape.Clone(), newShape.ComputeStrides(), r.offset), nil
	}
	out := r.Clone()
	out.shape = newShape.Clone()
	out.stride = newShape.ComputeStrides()
	return out, nil
}

// Flatten returns a 1-D view (or copy when non-contiguous) of all elements.
func (r *RawTensor) Flatten() *RawTensor {
	out, err := r.Reshape(Shape{r.NumElements()})
	if err != nil {
		panic(fmt.Sprintf("Flatten: %v", err)) // element count is preserved
	}
	return out
}

// Fill sets every element of the view to the scalar v converted to the
// tensor's dtype. Works on non-contiguous views.
func (r *RawTensor) Fill(v any) error {
	n := r.NumElements()
	for i := 0; i < n; i++ {
		if err := r.setFlat(v, r.OffsetAt(i)); err != nil {
			return err
		}
	}
	return nil
}

// EqualData reports whether two tensors have the same shape, dtype and
// element-for-element contents, regardless of layout.
func (r *RawTensor) EqualData(other *RawTensor) bool {
	if r.dtype != other.dtype || !r.shape.Equal(other.shape) {
		return false
	}
	size := r.dtype.Size()
	n := r.NumElements()
	for i := 0; i < n; i++ {
		a := r.OffsetAt(i) * size
		b := other.OffsetAt(i) * size
		if string(r.bytes()[a:a+size]) != string(other.bytes()[b:b+size]) {
			return false
		}
	}
	return true
}

// CopyFrom writes src into r element-by-element, broadcasting src to r's
// shape. Both views may be non-contiguous; dtypes must match.
func (r *RawTensor) CopyFrom(src *RawTensor) error {
	if r.dtype != src.dtype {
		return fmt.Errorf("copy: dtype mismatch %s vs %s", r.dtype, src.dtype)
	}
	if err := BroadcastTo(src.shape, r.shape); err != nil {
		return err
	}
	expanded := src
	for len(expanded.shape) > len(r.shape) {
		expanded = expanded.Squeeze(0)
	}
	expanded, err := expanded.Expand(r.shape)
	if err != nil {
		return err
	}
	n := r.NumElements()
	for i := 0; i < n; i++ {
		CopyElement(r, expanded, r.OffsetAt(i), expanded.OffsetAt(i))
	}
	return nil
}
