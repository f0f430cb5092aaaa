package index

import (
	"github.com/slab-ml/slab/internal/parallel"
	"github.com/slab-ml/slab/internal/tensor"
)

// ViewIndex resolves an index expression on src. Pure basic expressions
// (integers, slices, ellipsis, new axes) return a stride-only view sharing
// src's storage; expressions with advanced terms return a freshly
// allocated contiguous copy.
func ViewIndex(src *tensor.RawTensor, terms ...Term) (*tensor.RawTensor, error) {
	p, err := BuildPlan(src, terms)
	if err != nil {
		return nil, err
	}
	if p.ViewOnly() {
		return p.View(), nil
	}
	return p.gather(), nil
}

// View materializes the stride-only view for a basic plan.
func (p *Plan) View() *tensor.RawTensor {
	return p.src.AsStrided(p.viewShape, p.viewStride, p.viewOffset)
}

// gather reads one source element per result position into a new
// contiguous tensor. Reads are independent, so they run in parallel.
func (p *Plan) gather() *tensor.RawTensor {
	out := tensor.Zeros(p.resShape, p.src.DType(), p.src.Device())
	logical := p.resShape.ComputeStrides()
	n := p.resShape.NumElements()

	parallel.For(n, func(i int) {
		tensor.CopyElement(out, p.src, i, int(p.sourceOffset(i, logical)))
	}, parallel.DefaultConfig())

	return out
}
