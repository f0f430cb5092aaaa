package index

import (
	"testing"

	"github.com/slab-ml/slab/internal/tensor"
)

// f32Values reads a view's elements in row-major logical order.
func f32Values(t *testing.T, r *tensor.RawTensor) []float32 {
	t.Helper()
	flat := tensor.Flat[float32](r)
	out := make([]float32, r.NumElements())
	for i := range out {
		out[i] = flat[r.OffsetAt(i)]
	}
	return out
}

func i64Values(t *testing.T, r *tensor.RawTensor) []int64 {
	t.Helper()
	flat := tensor.Flat[int64](r)
	out := make([]int64, r.NumElements())
	for i := range out {
		out[i] = flat[r.OffsetAt(i)]
	}
	return out
}

func i64Tensor(t *testing.T, data []int64, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.FromSlice(data, shape)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	return r
}

func boolTensor(t *testing.T, data []bool, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.FromSlice(data, shape)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	return r
}

func f32Tensor(t *testing.T, data []float32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.FromSlice(data, shape)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	return r
}
