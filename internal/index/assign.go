package index

import (
	"github.com/slab-ml/slab/internal/parallel"
	"github.com/slab-ml/slab/internal/tensor"
)

// AssignIndex writes value into dest at the positions selected by the
// index expression. Basic expressions write through a view; advanced
// expressions scatter with overwrite semantics. value may be a Go scalar
// or a *tensor.RawTensor broadcastable to the selection's shape.
func AssignIndex(dest *tensor.RawTensor, terms []Term, value any) error {
	values, err := valueTensor(dest, value)
	if err != nil {
		return err
	}

	p, err := BuildPlan(dest, terms)
	if err != nil {
		return err
	}

	if p.ViewOnly() {
		view := p.View()
		if err := view.CopyFrom(values); err != nil {
			return runtimeErrorf("%v", err)
		}
		return nil
	}
	return p.scatter(values, false)
}

// valueTensor normalizes an assignment value: scalars become 0-d tensors
// of the destination dtype, tensors must already match it.
func valueTensor(dest *tensor.RawTensor, value any) (*tensor.RawTensor, error) {
	if t, ok := value.(*tensor.RawTensor); ok {
		if t.DType() != dest.DType() {
			return nil, runtimeErrorf("value dtype %s does not match destination dtype %s", t.DType(), dest.DType())
		}
		if t.Device() != dest.Device() {
			return nil, runtimeErrorf("expected all tensors to be on the same device, but found at least two devices, %s and %s", dest.Device(), t.Device())
		}
		return t, nil
	}
	scalar := tensor.Zeros(tensor.Shape{}, dest.DType(), dest.Device())
	if err := scalar.SetAt(value); err != nil {
		return nil, runtimeErrorf("%v", err)
	}
	return scalar, nil
}

// scatter writes values into the plan's destination, one element per
// result position. With accumulate, contributions to duplicate
// coordinates are summed; combine order is commutative, so the fixed
// row-major visitation is used unconditionally. Without accumulate,
// duplicate coordinates keep one writer's value (order unspecified); the
// loop runs in parallel only when deterministic mode is off and every
// target element is distinct, so concurrent chunks never race on a
// multi-byte element.
func (p *Plan) scatter(values *tensor.RawTensor, accumulate bool) error {
	if err := tensor.BroadcastTo(values.Shape(), p.resShape); err != nil {
		return runtimeErrorf("shape mismatch: value tensor of shape %v cannot be broadcast to indexing result of shape %v",
			values.Shape(), p.resShape)
	}

	expanded := values
	for expanded.Rank() > len(p.resShape) {
		expanded = expanded.Squeeze(0)
	}
	expanded, err := expanded.Expand(p.resShape)
	if err != nil {
		return runtimeErrorf("%v", err)
	}

	logical := p.resShape.ComputeStrides()
	n := p.resShape.NumElements()

	if accumulate {
		add, err := makeCombiner(p.src, expanded, opAdd, 1)
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			add(int(p.sourceOffset(i, logical)), expanded.OffsetAt(i))
		}
		return nil
	}

	cfg := parallel.DefaultConfig()
	if Deterministic() || p.duplicateTargets() {
		cfg = parallel.Sequential()
	}
	parallel.For(n, func(i int) {
		tensor.CopyElement(p.src, expanded, int(p.sourceOffset(i, logical)), expanded.OffsetAt(i))
	}, cfg)
	return nil
}
