package index

import (
	"github.com/slab-ml/slab/internal/parallel"
	"github.com/slab-ml/slab/internal/tensor"
)

// normDim normalizes a possibly negative dimension against rank.
func normDim(dim, rank int) (int, error) {
	// 0-d tensors accept dim 0 and -1, like a 1-d tensor would.
	limit := max(rank, 1)
	if dim < -limit || dim >= limit {
		return 0, indexErrorf("dimension out of range (expected to be in range of [%d, %d], but got %d)", -limit, limit-1, dim)
	}
	if dim < 0 {
		dim += limit
	}
	return dim, nil
}

// indexVector validates a 0-d or 1-d integer index tensor against a
// dimension size and returns normalized positions.
func indexVector(index *tensor.RawTensor, size int, dim int) ([]int, error) {
	if index.Rank() > 1 {
		return nil, runtimeErrorf("index is supposed to be a vector, got %d dimensions", index.Rank())
	}
	var raw []int64
	switch index.DType() {
	case tensor.Int64:
		for i := 0; i < index.NumElements(); i++ {
			raw = append(raw, tensor.Flat[int64](index)[index.OffsetAt(i)])
		}
	case tensor.Int32:
		for i := 0; i < index.NumElements(); i++ {
			raw = append(raw, int64(tensor.Flat[int32](index)[index.OffsetAt(i)]))
		}
	default:
		return nil, runtimeErrorf("index is supposed to be an int32 or int64 tensor, got %s", index.DType())
	}

	out := make([]int, len(raw))
	for i, v := range raw {
		orig := v
		if v < 0 {
			v += int64(size)
		}
		if v < 0 || v >= int64(size) {
			return nil, indexErrorf("index %d is out of bounds for dimension %d with size %d", orig, dim, size)
		}
		out[i] = int(v)
	}
	return out, nil
}

// IndexSelect gathers slices of src along dim at the given positions into
// a new contiguous tensor. Works for every dtype, including bool, float16
// and complex64, and for non-contiguous sources.
func IndexSelect(src *tensor.RawTensor, dim int, index *tensor.RawTensor) (*tensor.RawTensor, error) {
	dim, err := normDim(dim, src.Rank())
	if err != nil {
		return nil, err
	}
	if err := checkIndexDevice(src, index); err != nil {
		return nil, err
	}
	if src.Rank() == 0 {
		return nil, runtimeErrorf("index_select requires at least a 1-dimensional input")
	}
	idxs, err := indexVector(index, src.Shape()[dim], dim)
	if err != nil {
		return nil, err
	}

	outShape := src.Shape().Clone()
	outShape[dim] = len(idxs)
	out := tensor.Zeros(outShape, src.DType(), src.Device())

	rowElems := outShape.NumElements()
	if len(idxs) > 0 {
		rowElems /= len(idxs)
	}

	parallel.For(len(idxs), func(i int) {
		outRow := out.Select(dim, i)
		srcRow := src.Select(dim, idxs[i])
		for j := 0; j < rowElems; j++ {
			tensor.CopyElement(out, src, outRow.OffsetAt(j), srcRow.OffsetAt(j))
		}
	}, parallel.DefaultConfig())

	return out, nil
}

// sliceGeometryCheck validates the shared contract of index_copy, index_add
// and index_reduce: src matches dest everywhere except dim, where its size
// equals the number of indices.
func sliceGeometryCheck(dest, src *tensor.RawTensor, dim, numIdx int) error {
	if dest.DType() != src.DType() {
		return runtimeErrorf("source dtype %s does not match destination dtype %s", src.DType(), dest.DType())
	}
	if dest.Device() != src.Device() {
		return runtimeErrorf("expected all tensors to be on the same device, but found at least two devices, %s and %s",
			dest.Device(), src.Device())
	}
	if dest.Rank() == 0 && src.Rank() == 0 {
		if numIdx != 1 {
			return runtimeErrorf("invalid index count %d for scalar destination", numIdx)
		}
		return nil
	}
	if dest.Rank() != src.Rank() {
		return runtimeErrorf("source and destination must have the same number of dimensions, got %d and %d",
			src.Rank(), dest.Rank())
	}
	for d := 0; d < dest.Rank(); d++ {
		want := dest.Shape()[d]
		if d == dim {
			want = numIdx
		}
		if src.Shape()[d] != want {
			return runtimeErrorf("source/destination tensor must have the same slice shapes: destination slice shape %v, source shape %v at dimension %d",
				dest.Shape(), src.Shape(), d)
		}
	}
	return nil
}

// rowPair addresses destination row idxs[i] and source row i.
func rowPair(dest, src *tensor.RawTensor, dim, dstIdx, srcIdx int) (*tensor.RawTensor, *tensor.RawTensor) {
	if dest.Rank() == 0 {
		return dest, src
	}
	return dest.Select(dim, dstIdx), src.Select(dim, srcIdx)
}

// IndexCopy overwrites slices of dest along dim with the corresponding
// slices of src. Duplicate indices keep the last-visited source row.
func IndexCopy(dest *tensor.RawTensor, dim int, index, src *tensor.RawTensor) (*tensor.RawTensor, error) {
	dim, err := normDim(dim, dest.Rank())
	if err != nil {
		return nil, err
	}
	if err := checkIndexDevice(dest, index); err != nil {
		return nil, err
	}
	size := 1
	if dest.Rank() > 0 {
		size = dest.Shape()[dim]
	}
	idxs, err := indexVector(index, size, dim)
	if err != nil {
		return nil, err
	}
	if err := sliceGeometryCheck(dest, src, dim, len(idxs)); err != nil {
		return nil, err
	}

	for i, idx := range idxs {
		dstRow, srcRow := rowPair(dest, src, dim, idx, i)
		n := dstRow.NumElements()
		for j := 0; j < n; j++ {
			tensor.CopyElement(dest, src, dstRow.OffsetAt(j), srcRow.OffsetAt(j))
		}
	}
	return dest, nil
}

// IndexAdd accumulates alpha*src slices into dest along dim. Duplicate
// indices sum all contributions.
func IndexAdd(dest *tensor.RawTensor, dim int, index, src *tensor.RawTensor, alpha float64) (*tensor.RawTensor, error) {
	dim, err := normDim(dim, dest.Rank())
	if err != nil {
		return nil, err
	}
	if err := checkIndexDevice(dest, index); err != nil {
		return nil, err
	}
	size := 1
	if dest.Rank() > 0 {
		size = dest.Shape()[dim]
	}
	idxs, err := indexVector(index, size, dim)
	if err != nil {
		return nil, err
	}
	if err := sliceGeometryCheck(dest, src, dim, len(idxs)); err != nil {
		return nil, err
	}
	add, err := makeCombiner(dest, src, opAdd, alpha)
	if err != nil {
		return nil, err
	}

	for i, idx := range idxs {
		dstRow, srcRow := rowPair(dest, src, dim, idx, i)
		n := dstRow.NumElements()
		for j := 0; j < n; j++ {
			add(dstRow.OffsetAt(j), srcRow.OffsetAt(j))
		}
	}
	return dest, nil
}

// IndexFill sets whole slices of dest along dim to a scalar value.
func IndexFill(dest *tensor.RawTensor, dim int, index *tensor.RawTensor, value any) (*tensor.RawTensor, error) {
	dim, err := normDim(dim, dest.Rank())
	if err != nil {
		return nil, err
	}
	if err := checkIndexDevice(dest, index); err != nil {
		return nil, err
	}
	size := 1
	if dest.Rank() > 0 {
		size = dest.Shape()[dim]
	}
	idxs, err := indexVector(index, size, dim)
	if err != nil {
		return nil, err
	}

	for _, idx := range idxs {
		row := dest
		if dest.Rank() > 0 {
			row = dest.Select(dim, idx)
		}
		if err := row.Fill(value); err != nil {
			return nil, runtimeErrorf("%v", err)
		}
	}
	return dest, nil
}

// IndexReduce folds src slices into dest along dim with one of the named
// reductions (prod, mean, amin, amax). With includeSelf false, every
// destination row touched by at least one index is first reset to the
// reduction's identity; untouched rows keep their original values.
func IndexReduce(dest *tensor.RawTensor, dim int, index, src *tensor.RawTensor, reduce string, includeSelf bool) (*tensor.RawTensor, error) {
	op, err := ParseOp(reduce)
	if err != nil {
		return nil, err
	}
	// Reject non-arithmetic dtypes before touching the destination.
	if op == opMean && !dest.DType().IsFloat() && !dest.DType().IsInteger() {
		return nil, runtimeErrorf("mean reduction is not supported for %s", dest.DType())
	}
	dim, err = normDim(dim, dest.Rank())
	if err != nil {
		return nil, err
	}
	if err := checkIndexDevice(dest, index); err != nil {
		return nil, err
	}
	size := 1
	if dest.Rank() > 0 {
		size = dest.Shape()[dim]
	}
	idxs, err := indexVector(index, size, dim)
	if err != nil {
		return nil, err
	}
	if err := sliceGeometryCheck(dest, src, dim, len(idxs)); err != nil {
		return nil, err
	}

	touched := make([]bool, size)
	counts := make([]int64, size)
	for _, idx := range idxs {
		touched[idx] = true
		counts[idx]++
	}

	if !includeSelf {
		init := identity(op, dest.DType())
		for idx, hit := range touched {
			if !hit {
				continue
			}
			row := dest
			if dest.Rank() > 0 {
				row = dest.Select(dim, idx)
			}
			if err := row.Fill(init); err != nil {
				return nil, runtimeErrorf("%v", err)
			}
		}
	}

	combineOp := op
	if op == opMean {
		combineOp = opAdd
	}
	combine, err := makeCombiner(dest, src, combineOp, 1)
	if err != nil {
		return nil, err
	}

	for i, idx := range idxs {
		dstRow, srcRow := rowPair(dest, src, dim, idx, i)
		n := dstRow.NumElements()
		for j := 0; j < n; j++ {
			combine(dstRow.OffsetAt(j), srcRow.OffsetAt(j))
		}
	}

	if op == opMean {
		for idx, hit := range touched {
			if !hit {
				continue
			}
			count := counts[idx]
			if includeSelf {
				count++
			}
			row := dest
			if dest.Rank() > 0 {
				row = dest.Select(dim, idx)
			}
			if err := divideRow(row, count); err != nil {
				return nil, err
			}
		}
	}
	return dest, nil
}

// divideRow divides every element of a view by count, in place. Integer
// dtypes use floor division, matching the mean reduction's contract.
func divideRow(row *tensor.RawTensor, count int64) error {
	if count <= 1 {
		return nil
	}
	n := row.NumElements()
	switch row.DType() {
	case tensor.Float32:
		flat := tensor.Flat[float32](row)
		for i := 0; i < n; i++ {
			flat[row.OffsetAt(i)] /= float32(count)
		}
	case tensor.Float64:
		flat := tensor.Flat[float64](row)
		for i := 0; i < n; i++ {
			flat[row.OffsetAt(i)] /= float64(count)
		}
	case tensor.Float16:
		divideRowF16(row, count)
	case tensor.Int32:
		flat := tensor.Flat[int32](row)
		for i := 0; i < n; i++ {
			off := row.OffsetAt(i)
			flat[off] = int32(floorDiv(int64(flat[off]), count))
		}
	case tensor.Int64:
		flat := tensor.Flat[int64](row)
		for i := 0; i < n; i++ {
			off := row.OffsetAt(i)
			flat[off] = floorDiv(flat[off], count)
		}
	case tensor.Uint8:
		flat := tensor.Flat[uint8](row)
		for i := 0; i < n; i++ {
			off := row.OffsetAt(i)
			flat[off] = uint8(int64(flat[off]) / count)
		}
	default:
		return runtimeErrorf("mean reduction is not supported for %s", row.DType())
	}
	return nil
}

// floorDiv is integer division rounding toward negative infinity.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// TakeAlongDim gathers elements of src addressed by int64 indices along
// dim. With dim nil, both operands are flattened first. The non-dim
// dimensions of src and indices are broadcast against each other.
func TakeAlongDim(src, indices *tensor.RawTensor, dim *int) (*tensor.RawTensor, error) {
	if indices.DType() != tensor.Int64 {
		return nil, runtimeErrorf("take_along_dim(): dtype of indices should be int64 but got %s", indices.DType())
	}
	if err := checkIndexDevice(src, indices); err != nil {
		return nil, err
	}

	if dim == nil {
		flatSrc := src.Flatten()
		flatIdx := indices.Flatten()
		d := 0
		return takeAlong(flatSrc, flatIdx, d)
	}

	d, err := normDim(*dim, src.Rank())
	if err != nil {
		return nil, err
	}
	if src.Rank() != indices.Rank() {
		return nil, runtimeErrorf("take_along_dim(): input and indices should have the same number of dimensions, but got %d and %d",
			src.Rank(), indices.Rank())
	}
	return takeAlong(src, indices, d)
}

func takeAlong(src, indices *tensor.RawTensor, dim int) (*tensor.RawTensor, error) {
	srcShape := src.Shape().Clone()
	idxShape := indices.Shape().Clone()
	dimSize := srcShape[dim]

	srcShape[dim] = 1
	idxShape[dim] = 1
	broadcast, err := tensor.BroadcastShapes(srcShape, idxShape)
	if err != nil {
		return nil, runtimeErrorf("take_along_dim(): %v", err)
	}

	outShape := broadcast.Clone()
	outShape[dim] = indices.Shape()[dim]

	srcTarget := broadcast.Clone()
	srcTarget[dim] = dimSize
	srcExp, err := src.Expand(srcTarget)
	if err != nil {
		return nil, runtimeErrorf("take_along_dim(): %v", err)
	}
	idxExp, err := indices.Expand(outShape)
	if err != nil {
		return nil, runtimeErrorf("take_along_dim(): %v", err)
	}

	out := tensor.Zeros(outShape, src.DType(), src.Device())
	logical := outShape.ComputeStrides()
	idxFlat := tensor.Flat[int64](idxExp)
	srcStride := srcExp.Strides()
	n := outShape.NumElements()

	// Validate and normalize all coordinates up front so the copy loop
	// below can run in parallel without error plumbing.
	coords := make([]int64, n)
	for i := 0; i < n; i++ {
		v := idxFlat[idxExp.OffsetAt(i)]
		orig := v
		if v < 0 {
			v += int64(dimSize)
		}
		if v < 0 || v >= int64(dimSize) {
			return nil, indexErrorf("index %d is out of bounds for dimension %d with size %d", orig, dim, dimSize)
		}
		coords[i] = v
	}

	parallel.For(n, func(i int) {
		srcOff := srcExp.Offset()
		remaining := i
		for d := 0; d < len(outShape); d++ {
			c := remaining / logical[d]
			remaining %= logical[d]
			if d != dim {
				srcOff += c * srcStride[d]
			}
		}
		srcOff += int(coords[i]) * srcStride[dim]
		tensor.CopyElement(out, src, i, srcOff)
	}, parallel.DefaultConfig())

	return out, nil
}
