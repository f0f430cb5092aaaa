package index

import (
	"math"

	"github.com/slab-ml/slab/internal/tensor"
	"github.com/x448/float16"
)

// Op is an element combine policy for scatter destinations that receive
// more than one contribution.
type Op int

// Combine policies. opCopy overwrites, the rest fold the incoming value
// into the destination. Mean is accumulated as a sum; the caller divides
// by per-row counts afterwards.
const (
	opCopy Op = iota
	opAdd
	opProd
	opAmin
	opAmax
	opMean
)

// ParseOp maps the public reduction names to an Op.
func ParseOp(name string) (Op, error) {
	switch name {
	case "prod":
		return opProd, nil
	case "mean":
		return opMean, nil
	case "amin":
		return opAmin, nil
	case "amax":
		return opAmax, nil
	default:
		return 0, runtimeErrorf("reduce argument must be either of prod, mean, amax or amin, got %q", name)
	}
}

// number constrains the dtypes that support arithmetic combines.
type number interface {
	~float32 | ~float64 | ~int32 | ~int64 | ~uint8
}

func fold[T number](dst, src []T, op Op, alpha T) func(dOff, sOff int) {
	switch op {
	case opAdd, opMean:
		return func(d, s int) { dst[d] += alpha * src[s] }
	case opProd:
		return func(d, s int) { dst[d] *= src[s] }
	case opAmin:
		return func(d, s int) { dst[d] = min(dst[d], src[s]) }
	case opAmax:
		return func(d, s int) { dst[d] = max(dst[d], src[s]) }
	default:
		return func(d, s int) { dst[d] = src[s] }
	}
}

// foldF16 combines float16 values through float32 arithmetic.
func foldF16(dst, src []float16.Float16, op Op, alpha float32) func(dOff, sOff int) {
	apply := func(d, s int, f func(a, b float32) float32) {
		dst[d] = float16.Fromfloat32(f(dst[d].Float32(), src[s].Float32()))
	}
	switch op {
	case opAdd, opMean:
		return func(d, s int) { apply(d, s, func(a, b float32) float32 { return a + alpha*b }) }
	case opProd:
		return func(d, s int) { apply(d, s, func(a, b float32) float32 { return a * b }) }
	case opAmin:
		return func(d, s int) { apply(d, s, func(a, b float32) float32 { return min(a, b) }) }
	case opAmax:
		return func(d, s int) { apply(d, s, func(a, b float32) float32 { return max(a, b) }) }
	default:
		return func(d, s int) { dst[d] = src[s] }
	}
}

// divideRowF16 divides every element of a float16 view by count, going
// through float32 like the float16 combine kernels.
func divideRowF16(row *tensor.RawTensor, count int64) {
	flat := tensor.Flat[float16.Float16](row)
	n := row.NumElements()
	for i := 0; i < n; i++ {
		off := row.OffsetAt(i)
		flat[off] = float16.Fromfloat32(flat[off].Float32() / float32(count))
	}
}

// makeCombiner builds a per-element combine function over the two buffers.
// Offsets passed to the returned function are absolute element offsets.
func makeCombiner(dst, src *tensor.RawTensor, op Op, alpha float64) (func(dOff, sOff int), error) {
	if dst.DType() != src.DType() {
		return nil, runtimeErrorf("combine dtype mismatch: %s vs %s", dst.DType(), src.DType())
	}
	switch dst.DType() {
	case tensor.Float32:
		return fold(tensor.Flat[float32](dst), tensor.Flat[float32](src), op, float32(alpha)), nil
	case tensor.Float64:
		return fold(tensor.Flat[float64](dst), tensor.Flat[float64](src), op, alpha), nil
	case tensor.Float16:
		return foldF16(tensor.Flat[float16.Float16](dst), tensor.Flat[float16.Float16](src), op, float32(alpha)), nil
	case tensor.Int32:
		return fold(tensor.Flat[int32](dst), tensor.Flat[int32](src), op, int32(alpha)), nil
	case tensor.Int64:
		return fold(tensor.Flat[int64](dst), tensor.Flat[int64](src), op, int64(alpha)), nil
	case tensor.Uint8:
		return fold(tensor.Flat[uint8](dst), tensor.Flat[uint8](src), op, uint8(alpha)), nil
	case tensor.Complex64:
		d, s := tensor.Flat[complex64](dst), tensor.Flat[complex64](src)
		switch op {
		case opAdd, opMean:
			a := complex(float32(alpha), 0)
			return func(dOff, sOff int) { d[dOff] += a * s[sOff] }, nil
		case opProd:
			return func(dOff, sOff int) { d[dOff] *= s[sOff] }, nil
		case opCopy:
			return func(dOff, sOff int) { d[dOff] = s[sOff] }, nil
		default:
			return nil, runtimeErrorf("reduction is not supported for complex64")
		}
	case tensor.Bool:
		if op != opCopy {
			return nil, runtimeErrorf("arithmetic combine is not supported for bool tensors")
		}
		d, s := tensor.Flat[bool](dst), tensor.Flat[bool](src)
		return func(dOff, sOff int) { d[dOff] = s[sOff] }, nil
	default:
		return nil, runtimeErrorf("unsupported dtype %s", dst.DType())
	}
}

// identity returns the neutral element a destination row is reset to when
// include_self is false: 0 for mean, 1 for prod, the dtype's extreme
// values for amin/amax.
func identity(op Op, dt tensor.DataType) any {
	switch op {
	case opProd:
		return 1
	case opMean, opAdd:
		return 0
	case opAmin:
		if dt.IsFloat() {
			return math.Inf(1)
		}
		switch dt {
		case tensor.Int32:
			return int64(math.MaxInt32)
		case tensor.Int64:
			return int64(math.MaxInt64)
		case tensor.Uint8:
			return int64(math.MaxUint8)
		}
	case opAmax:
		if dt.IsFloat() {
			return math.Inf(-1)
		}
		switch dt {
		case tensor.Int32:
			return int64(math.MinInt32)
		case tensor.Int64:
			return int64(math.MinInt64)
		case tensor.Uint8:
			return 0
		}
	}
	return 0
}
