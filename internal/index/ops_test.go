package index

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"

	"github.com/slab-ml/slab/internal/tensor"
)

func TestIndexSelect(t *testing.T) {
	src := tensor.Consec(tensor.Shape{3, 4})
	i := i64Tensor(t, []int64{2, 0}, tensor.Shape{2})

	out, err := IndexSelect(src, 0, i)
	require.NoError(t, err)
	assert.True(t, out.Shape().Equal(tensor.Shape{2, 4}))
	assert.Equal(t, []float32{9, 10, 11, 12, 1, 2, 3, 4}, f32Values(t, out))

	out, err = IndexSelect(src, 1, i)
	require.NoError(t, err)
	assert.True(t, out.Shape().Equal(tensor.Shape{3, 2}))
	assert.Equal(t, []float32{3, 1, 7, 5, 11, 9}, f32Values(t, out))
}

func TestIndexSelectNegativeDim(t *testing.T) {
	src := tensor.Consec(tensor.Shape{2, 3})
	i := i64Tensor(t, []int64{-1}, tensor.Shape{1})

	out, err := IndexSelect(src, -1, i)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 6}, f32Values(t, out))
}

func TestIndexSelectDtypes(t *testing.T) {
	i := i64Tensor(t, []int64{1, 0}, tensor.Shape{2})

	t.Run("bool", func(t *testing.T) {
		src := boolTensor(t, []bool{true, false}, tensor.Shape{2})
		out, err := IndexSelect(src, 0, i)
		require.NoError(t, err)
		flat := tensor.Flat[bool](out)
		assert.Equal(t, []bool{false, true}, []bool{flat[0], flat[1]})
	})

	t.Run("float16", func(t *testing.T) {
		src, err := tensor.FromSlice([]float16.Float16{
			float16.Fromfloat32(1.5), float16.Fromfloat32(2.5),
		}, tensor.Shape{2})
		require.NoError(t, err)
		out, err := IndexSelect(src, 0, i)
		require.NoError(t, err)
		flat := tensor.Flat[float16.Float16](out)
		assert.Equal(t, float32(2.5), flat[0].Float32())
		assert.Equal(t, float32(1.5), flat[1].Float32())
	})

	t.Run("complex64", func(t *testing.T) {
		src, err := tensor.FromSlice([]complex64{1 + 1i, 2 + 2i}, tensor.Shape{2})
		require.NoError(t, err)
		out, err := IndexSelect(src, 0, i)
		require.NoError(t, err)
		flat := tensor.Flat[complex64](out)
		assert.Equal(t, complex64(2+2i), flat[0])
	})
}

func TestIndexSelectNonContiguous(t *testing.T) {
	src := tensor.Consec(tensor.Shape{3, 3}).Transpose()
	i := i64Tensor(t, []int64{0, 2}, tensor.Shape{2})

	out, err := IndexSelect(src, 0, i)
	require.NoError(t, err)
	// Transposed rows are original columns.
	assert.Equal(t, []float32{1, 4, 7, 3, 6, 9}, f32Values(t, out))
}

func TestIndexSelectErrors(t *testing.T) {
	src := tensor.Consec(tensor.Shape{2, 3})

	_, err := IndexSelect(src, 5, i64Tensor(t, []int64{0}, tensor.Shape{1}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIndex))
	assert.Contains(t, err.Error(), "dimension out of range (expected to be in range of [-2, 1], but got 5)")

	_, err = IndexSelect(src, 0, i64Tensor(t, []int64{2}, tensor.Shape{1}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index 2 is out of bounds for dimension 0 with size 2")

	twoD := i64Tensor(t, []int64{0, 1}, tensor.Shape{2, 1})
	_, err = IndexSelect(src, 0, twoD)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRuntime))

	f := tensor.Consec(tensor.Shape{1})
	_, err = IndexSelect(src, 0, f)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRuntime))
}

func TestIndexCopy(t *testing.T) {
	dest := tensor.Zeros(tensor.Shape{3, 2}, tensor.Float32, tensor.CPU)
	src := tensor.Consec(tensor.Shape{2, 2})
	i := i64Tensor(t, []int64{2, 0}, tensor.Shape{2})

	_, err := IndexCopy(dest, 0, i, src)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 4, 0, 0, 1, 2}, f32Values(t, dest))
}

func TestIndexCopyDuplicateKeepsLast(t *testing.T) {
	dest := tensor.Zeros(tensor.Shape{2}, tensor.Float32, tensor.CPU)
	src := f32Tensor(t, []float32{7, 9}, tensor.Shape{2})
	i := i64Tensor(t, []int64{0, 0}, tensor.Shape{2})

	_, err := IndexCopy(dest, 0, i, src)
	require.NoError(t, err)
	assert.Equal(t, float32(9), f32Values(t, dest)[0])
}

func TestIndexCopyGeometryMismatch(t *testing.T) {
	dest := tensor.Zeros(tensor.Shape{3, 2}, tensor.Float32, tensor.CPU)
	src := tensor.Consec(tensor.Shape{2, 3})
	i := i64Tensor(t, []int64{0, 1}, tensor.Shape{2})

	_, err := IndexCopy(dest, 0, i, src)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRuntime))
	assert.Contains(t, err.Error(), "same slice shapes")
}

func TestIndexAdd(t *testing.T) {
	dest := tensor.Consec(tensor.Shape{3, 2})
	src := f32Tensor(t, []float32{10, 10, 20, 20}, tensor.Shape{2, 2})
	i := i64Tensor(t, []int64{0, 2}, tensor.Shape{2})

	_, err := IndexAdd(dest, 0, i, src, 1)
	require.NoError(t, err)
	assert.Equal(t, []float32{11, 12, 3, 4, 25, 26}, f32Values(t, dest))
}

func TestIndexAddDuplicatesAndAlpha(t *testing.T) {
	dest := tensor.Zeros(tensor.Shape{3}, tensor.Float32, tensor.CPU)
	src := f32Tensor(t, []float32{1, 2, 3}, tensor.Shape{3})
	i := i64Tensor(t, []int64{1, 1, 1}, tensor.Shape{3})

	_, err := IndexAdd(dest, 0, i, src, 2)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 12, 0}, f32Values(t, dest))
}

func TestIndexAddInt64(t *testing.T) {
	dest := tensor.Arange(0, 4)
	src := i64Tensor(t, []int64{100, 100}, tensor.Shape{2})
	i := i64Tensor(t, []int64{3, 3}, tensor.Shape{2})

	_, err := IndexAdd(dest, 0, i, src, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 2, 203}, i64Values(t, dest))
}

func TestIndexFill(t *testing.T) {
	dest := tensor.Consec(tensor.Shape{2, 3})
	i := i64Tensor(t, []int64{0, 2}, tensor.Shape{2})

	_, err := IndexFill(dest, 1, i, float32(-1))
	require.NoError(t, err)
	assert.Equal(t, []float32{-1, 2, -1, -1, 5, -1}, f32Values(t, dest))
}

func TestIndexReduceProd(t *testing.T) {
	dest := tensor.Consec(tensor.Shape{3}, 2) // [2 3 4]
	src := f32Tensor(t, []float32{10, 5}, tensor.Shape{2})
	i := i64Tensor(t, []int64{0, 0}, tensor.Shape{2})

	_, err := IndexReduce(dest, 0, i, src, "prod", true)
	require.NoError(t, err)
	assert.Equal(t, []float32{100, 3, 4}, f32Values(t, dest))
}

func TestIndexReduceProdExcludeSelf(t *testing.T) {
	dest := tensor.Consec(tensor.Shape{3}, 2)
	src := f32Tensor(t, []float32{10, 5}, tensor.Shape{2})
	i := i64Tensor(t, []int64{0, 0}, tensor.Shape{2})

	_, err := IndexReduce(dest, 0, i, src, "prod", false)
	require.NoError(t, err)
	// Touched row resets to 1; untouched rows keep their values.
	assert.Equal(t, []float32{50, 3, 4}, f32Values(t, dest))
}

func TestIndexReduceMean(t *testing.T) {
	dest, err := tensor.FromSlice([]float32{1, 1, 1, 1, 1, 1}, tensor.Shape{3, 2})
	require.NoError(t, err)
	src := f32Tensor(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	i := i64Tensor(t, []int64{0, 0}, tensor.Shape{2})

	_, err = IndexReduce(dest, 0, i, src, "mean", false)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 3, 1, 1, 1, 1}, f32Values(t, dest))
}

func TestIndexReduceMeanIncludeSelf(t *testing.T) {
	dest, err := tensor.FromSlice([]float32{1, 1}, tensor.Shape{1, 2})
	require.NoError(t, err)
	src := f32Tensor(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	i := i64Tensor(t, []int64{0, 0}, tensor.Shape{2})

	_, err = IndexReduce(dest, 0, i, src, "mean", true)
	require.NoError(t, err)
	// (1+1+3)/3 and (1+2+4)/3
	got := f32Values(t, dest)
	assert.InDelta(t, 5.0/3.0, got[0], 1e-6)
	assert.InDelta(t, 7.0/3.0, got[1], 1e-6)
}

func TestIndexReduceMeanIntegerFloors(t *testing.T) {
	dest := i64Tensor(t, []int64{0, 0}, tensor.Shape{2})
	src := i64Tensor(t, []int64{3, 4}, tensor.Shape{2})
	i := i64Tensor(t, []int64{0, 0}, tensor.Shape{2})

	_, err := IndexReduce(dest, 0, i, src, "mean", false)
	require.NoError(t, err)
	assert.Equal(t, int64(3), i64Values(t, dest)[0]) // floor(7/2)
}

func TestIndexReduceMeanFloat16(t *testing.T) {
	dest, err := tensor.FromSlice([]float16.Float16{
		float16.Fromfloat32(9), float16.Fromfloat32(9),
	}, tensor.Shape{2})
	require.NoError(t, err)
	src, err := tensor.FromSlice([]float16.Float16{
		float16.Fromfloat32(1), float16.Fromfloat32(3),
	}, tensor.Shape{2})
	require.NoError(t, err)
	i := i64Tensor(t, []int64{0, 0}, tensor.Shape{2})

	_, err = IndexReduce(dest, 0, i, src, "mean", false)
	require.NoError(t, err)
	flat := tensor.Flat[float16.Float16](dest)
	assert.Equal(t, float32(2), flat[0].Float32()) // (1+3)/2
	assert.Equal(t, float32(9), flat[1].Float32())
}

func TestIndexReduceMeanRejectsComplex(t *testing.T) {
	dest, err := tensor.FromSlice([]complex64{5}, tensor.Shape{1})
	require.NoError(t, err)
	i := i64Tensor(t, []int64{0}, tensor.Shape{1})

	_, err = IndexReduce(dest, 0, i, dest, "mean", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRuntime))
	assert.Contains(t, err.Error(), "mean reduction is not supported for complex64")
	// The failed call must not have reset the destination.
	assert.Equal(t, complex64(5), tensor.Flat[complex64](dest)[0])
}

func TestIndexReduceAminAmax(t *testing.T) {
	src := f32Tensor(t, []float32{5, -2}, tensor.Shape{2})
	i := i64Tensor(t, []int64{0, 0}, tensor.Shape{2})

	dest := f32Tensor(t, []float32{1, 100}, tensor.Shape{2})
	_, err := IndexReduce(dest, 0, i, src, "amin", true)
	require.NoError(t, err)
	assert.Equal(t, float32(-2), f32Values(t, dest)[0])
	assert.Equal(t, float32(100), f32Values(t, dest)[1])

	dest = f32Tensor(t, []float32{1, 100}, tensor.Shape{2})
	_, err = IndexReduce(dest, 0, i, src, "amax", false)
	require.NoError(t, err)
	// Self excluded: max over contributions only.
	assert.Equal(t, float32(5), f32Values(t, dest)[0])
}

func TestIndexReduceInt64ExcludeSelfExtremes(t *testing.T) {
	// The amin identity for int64 is MaxInt64; it must survive the reset
	// exactly so a single contribution wins.
	dest := i64Tensor(t, []int64{-7}, tensor.Shape{1})
	src := i64Tensor(t, []int64{42}, tensor.Shape{1})
	i := i64Tensor(t, []int64{0}, tensor.Shape{1})

	_, err := IndexReduce(dest, 0, i, src, "amin", false)
	require.NoError(t, err)
	assert.Equal(t, int64(42), i64Values(t, dest)[0])
}

func TestIndexReduceBadName(t *testing.T) {
	dest := tensor.Consec(tensor.Shape{1})
	i := i64Tensor(t, []int64{0}, tensor.Shape{1})

	_, err := IndexReduce(dest, 0, i, dest, "sum", true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRuntime))
	assert.Contains(t, err.Error(), "prod, mean, amax or amin")
}

func TestTakeAlongDim(t *testing.T) {
	src := tensor.Consec(tensor.Shape{2, 3}) // [[1 2 3] [4 5 6]]
	idx := i64Tensor(t, []int64{2, 0}, tensor.Shape{2, 1})

	d := 1
	out, err := TakeAlongDim(src, idx, &d)
	require.NoError(t, err)
	assert.True(t, out.Shape().Equal(tensor.Shape{2, 1}))
	assert.Equal(t, []float32{3, 4}, f32Values(t, out))
}

func TestTakeAlongDimBroadcast(t *testing.T) {
	src := tensor.Consec(tensor.Shape{2, 3})
	// Indices broadcast along dim 0.
	idx := i64Tensor(t, []int64{1, 1, 0}, tensor.Shape{1, 3})

	d := 0
	out, err := TakeAlongDim(src, idx, &d)
	require.NoError(t, err)
	assert.True(t, out.Shape().Equal(tensor.Shape{1, 3}))
	assert.Equal(t, []float32{4, 5, 3}, f32Values(t, out))
}

func TestTakeAlongDimFlattened(t *testing.T) {
	src := tensor.Consec(tensor.Shape{2, 2})
	idx := i64Tensor(t, []int64{3, 0, 2}, tensor.Shape{3})

	out, err := TakeAlongDim(src, idx, nil)
	require.NoError(t, err)
	assert.True(t, out.Shape().Equal(tensor.Shape{3}))
	assert.Equal(t, []float32{4, 1, 3}, f32Values(t, out))
}

func TestTakeAlongDimNegativeIndices(t *testing.T) {
	src := tensor.Consec(tensor.Shape{1, 4})
	idx := i64Tensor(t, []int64{-1, -4}, tensor.Shape{1, 2})

	d := 1
	out, err := TakeAlongDim(src, idx, &d)
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 1}, f32Values(t, out))
}

func TestTakeAlongDimErrors(t *testing.T) {
	src := tensor.Consec(tensor.Shape{2, 3})
	d := 1

	i32, err := tensor.FromSlice([]int32{0}, tensor.Shape{1, 1})
	require.NoError(t, err)
	_, err = TakeAlongDim(src, i32, &d)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRuntime))
	assert.Contains(t, err.Error(), "dtype of indices should be int64 but got int32")

	flat := i64Tensor(t, []int64{0}, tensor.Shape{1})
	_, err = TakeAlongDim(src, flat, &d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "same number of dimensions")

	bad := 7
	idx := i64Tensor(t, []int64{0}, tensor.Shape{1, 1})
	_, err = TakeAlongDim(src, idx, &bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIndex))
	assert.Contains(t, err.Error(), "dimension out of range")

	oob := i64Tensor(t, []int64{3}, tensor.Shape{1, 1})
	_, err = TakeAlongDim(src, oob, &d)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIndex))
	assert.Contains(t, err.Error(), "index 3 is out of bounds for dimension 1 with size 3")
}
