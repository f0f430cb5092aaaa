package index

import (
	"strings"

	"github.com/slab-ml/slab/internal/tensor"
)

// Plan is the resolved access plan for one index expression: the basic
// (view-producing) skeleton plus, when advanced terms are present, the
// broadcast coordinate block. Plans are built per call and discarded.
type Plan struct {
	src *tensor.RawTensor

	// Basic skeleton: the view produced by the basic terms alone, with
	// advanced source dimensions removed. Strides are source strides
	// scaled by slice steps; offset absorbs integer terms.
	viewShape  tensor.Shape
	viewStride []int
	viewOffset int

	// Advanced block.
	hasAdv     bool
	advShape   tensor.Shape // broadcast shape of all advanced terms
	advInsert  int          // basic-axis position where the block lands
	advOffsets []int64      // per broadcast position: sum of coord*stride

	// Result-axis iteration tables. For result axis d, exactly one of
	// axisSrcStride[d] (basic) or axisAdvStride[d] (advanced) is active.
	resShape      tensor.Shape
	axisSrcStride []int
	axisAdvStride []int
}

// ViewOnly reports whether the expression resolves as a stride-only view.
func (p *Plan) ViewOnly() bool {
	return !p.hasAdv
}

// ResultShape returns the shape an indexed read produces.
func (p *Plan) ResultShape() tensor.Shape {
	return p.resShape
}

// advancedEntry is one integer coordinate array bound to a source dim.
type advancedEntry struct {
	coords  *tensor.RawTensor
	srcDim  int
	srcSize int
	stride  int
}

// BuildPlan runs the Shape/Stride Planner: ellipsis expansion, slice and
// integer normalization, mask expansion, broadcast of advanced terms and
// placement of the broadcast block.
func BuildPlan(src *tensor.RawTensor, terms []Term) (*Plan, error) {
	expanded, err := expandEllipsis(src, terms)
	if err != nil {
		return nil, err
	}

	p := &Plan{
		src:        src,
		viewOffset: src.Offset(),
	}

	var (
		entries      []advancedEntry
		advShapes    []tensor.Shape
		srcDim       int
		emittedBasic int
		firstAdvPos  = -1
		advSeparated bool
		lastAdvPos   = -1
	)

	srcShape := src.Shape()
	srcStride := src.Strides()

	for _, term := range expanded {
		switch term.Kind {
		case KindNewAxis:
			p.viewShape = append(p.viewShape, 1)
			p.viewStride = append(p.viewStride, 0)
			emittedBasic++

		case KindInteger:
			size := srcShape[srcDim]
			idx := term.Index
			orig := idx
			if idx < 0 {
				idx += int64(size)
			}
			if idx < 0 || idx >= int64(size) {
				return nil, indexErrorf("index %d is out of bounds for dimension %d with size %d", orig, srcDim, size)
			}
			p.viewOffset += int(idx) * srcStride[srcDim]
			srcDim++

		case KindSlice:
			start, length, step, err := normalizeSlice(term, srcShape[srcDim])
			if err != nil {
				return nil, err
			}
			p.viewShape = append(p.viewShape, length)
			p.viewStride = append(p.viewStride, srcStride[srcDim]*step)
			p.viewOffset += start * srcStride[srcDim]
			emittedBasic++
			srcDim++

		case KindArray:
			if err := checkIndexDevice(src, term.Array); err != nil {
				return nil, err
			}
			entries = append(entries, advancedEntry{
				coords:  term.Array,
				srcDim:  srcDim,
				srcSize: srcShape[srcDim],
				stride:  srcStride[srcDim],
			})
			advShapes = append(advShapes, term.Array.Shape())
			if firstAdvPos < 0 {
				firstAdvPos = emittedBasic
			} else if emittedBasic != lastAdvPos {
				advSeparated = true
			}
			lastAdvPos = emittedBasic
			srcDim++

		case KindMask:
			if err := checkIndexDevice(src, term.Array); err != nil {
				return nil, err
			}
			rank := term.Array.Rank()
			for d := 0; d < rank; d++ {
				if term.Array.Shape()[d] != srcShape[srcDim+d] {
					return nil, indexErrorf("the shape of the mask %v at index %d does not match the shape of the indexed tensor %v at index %d",
						term.Array.Shape(), d, srcShape, srcDim+d)
				}
			}
			coords, nnz := maskCoordinates(term.Array)
			for d := 0; d < rank; d++ {
				entries = append(entries, advancedEntry{
					coords:  coords[d],
					srcDim:  srcDim + d,
					srcSize: srcShape[srcDim+d],
					stride:  srcStride[srcDim+d],
				})
			}
			// A 0-d mask indexes no dimension but still contributes a
			// broadcast axis of size nnz (one row for True, none for False).
			advShapes = append(advShapes, tensor.Shape{nnz})
			if firstAdvPos < 0 {
				firstAdvPos = emittedBasic
			} else if emittedBasic != lastAdvPos {
				advSeparated = true
			}
			lastAdvPos = emittedBasic
			srcDim += rank

		case KindEllipsis:
			// expandEllipsis removed all of these
		}
	}

	p.hasAdv = firstAdvPos >= 0
	if p.hasAdv {
		advShape, err := tensor.BroadcastAll(advShapes...)
		if err != nil {
			return nil, indexErrorf("shape mismatch: indexing tensors could not be broadcast together with shapes %s", shapeList(advShapes))
		}
		p.advShape = advShape
		// Advanced terms separated by slices or new axes move the
		// broadcast block to the front of the result.
		if advSeparated {
			p.advInsert = 0
		} else {
			p.advInsert = firstAdvPos
		}
		if err := p.materializeAdvOffsets(entries); err != nil {
			return nil, err
		}
	}

	p.buildResultAxes()
	return p, nil
}

// expandEllipsis replaces the first ellipsis with enough full slices for
// the consumed dimensions to cover the source rank, appends implicit
// trailing full slices, and checks the "too many indices" contract.
// Ellipses after the first behave as a single full slice.
func expandEllipsis(src *tensor.RawTensor, terms []Term) ([]Term, error) {
	rank := src.Rank()
	consumed := 0
	sawEllipsis := false
	for _, term := range terms {
		switch term.Kind {
		case KindInteger, KindSlice, KindArray:
			consumed++
		case KindMask:
			consumed += term.Array.Rank()
		case KindEllipsis:
			if sawEllipsis {
				consumed++ // later ellipses degrade to ":"
			}
			sawEllipsis = true
		case KindNewAxis:
		}
	}
	if consumed > rank {
		return nil, indexErrorf("too many indices for tensor of dimension %d", rank)
	}

	fill := rank - consumed
	out := make([]Term, 0, len(terms)+fill)
	expandedFirst := false
	for _, term := range terms {
		if term.Kind == KindEllipsis {
			if expandedFirst {
				out = append(out, All())
				continue
			}
			for i := 0; i < fill; i++ {
				out = append(out, All())
			}
			expandedFirst = true
			continue
		}
		out = append(out, term)
	}
	if !expandedFirst {
		for i := 0; i < fill; i++ {
			out = append(out, All())
		}
	}
	return out, nil
}

// normalizeSlice resolves negative bounds, clamps to [0, size] and
// validates the step, returning (start, length, step).
func normalizeSlice(term Term, size int) (int, int, int, error) {
	if term.Step == 0 {
		return 0, 0, 0, valueErrorf("slice step cannot be zero")
	}
	if term.Step < 0 {
		return 0, 0, 0, valueErrorf("negative slice step is not supported")
	}
	step := int(term.Step)

	start := 0
	if term.Start != nil {
		start = int(*term.Start)
		if start < 0 {
			start += size
		}
		start = min(max(start, 0), size)
	}

	stop := size
	if term.Stop != nil {
		stop = int(*term.Stop)
		if stop < 0 {
			stop += size
		}
		stop = min(max(stop, 0), size)
	}

	length := 0
	if stop > start {
		length = (stop - start + step - 1) / step
	}
	return start, length, step, nil
}

// maskCoordinates expands a bool/uint8 mask to one int64 coordinate array
// per mask dimension, listing True positions in row-major order.
func maskCoordinates(mask *tensor.RawTensor) ([]*tensor.RawTensor, int) {
	rank := mask.Rank()
	shape := mask.Shape()
	n := mask.NumElements()

	truthy := func(flat int) bool {
		off := mask.OffsetAt(flat)
		if mask.DType() == tensor.Bool {
			return tensor.Flat[bool](mask)[off]
		}
		return tensor.Flat[uint8](mask)[off] != 0
	}

	nnz := 0
	for i := 0; i < n; i++ {
		if truthy(i) {
			nnz++
		}
	}

	coords := make([]*tensor.RawTensor, rank)
	flats := make([][]int64, rank)
	for d := 0; d < rank; d++ {
		coords[d] = tensor.Zeros(tensor.Shape{nnz}, tensor.Int64, mask.Device())
		flats[d] = tensor.Flat[int64](coords[d])
	}

	logical := shape.ComputeStrides()
	row := 0
	for i := 0; i < n; i++ {
		if !truthy(i) {
			continue
		}
		remaining := i
		for d := 0; d < rank; d++ {
			flats[d][row] = int64(remaining / logical[d])
			remaining %= logical[d]
		}
		row++
	}
	return coords, nnz
}

// materializeAdvOffsets broadcasts each coordinate array to the block
// shape, bounds-checks every coordinate and folds it into a per-position
// source offset. All arithmetic is 64-bit.
func (p *Plan) materializeAdvOffsets(entries []advancedEntry) error {
	nB := p.advShape.NumElements()
	p.advOffsets = make([]int64, nB)

	for _, e := range entries {
		expanded, err := e.coords.Expand(p.advShape)
		if err != nil {
			return indexErrorf("shape mismatch: index array of shape %v could not be broadcast to %v", e.coords.Shape(), p.advShape)
		}
		isInt32 := e.coords.DType() == tensor.Int32
		for b := 0; b < nB; b++ {
			off := expanded.OffsetAt(b)
			var v int64
			if isInt32 {
				v = int64(tensor.Flat[int32](expanded)[off])
			} else {
				v = tensor.Flat[int64](expanded)[off]
			}
			orig := v
			if v < 0 {
				v += int64(e.srcSize)
			}
			if v < 0 || v >= int64(e.srcSize) {
				return indexErrorf("index %d is out of bounds for dimension %d with size %d", orig, e.srcDim, e.srcSize)
			}
			p.advOffsets[b] += v * int64(e.stride)
		}
	}
	return nil
}

// buildResultAxes assembles the result shape and the per-axis stride
// tables used by the gather and scatter kernels.
func (p *Plan) buildResultAxes() {
	if !p.hasAdv {
		p.resShape = p.viewShape.Clone()
		p.axisSrcStride = append([]int(nil), p.viewStride...)
		p.axisAdvStride = make([]int, len(p.viewShape))
		return
	}

	advStrides := p.advShape.ComputeStrides()
	total := len(p.viewShape) + len(p.advShape)
	p.resShape = make(tensor.Shape, 0, total)
	p.axisSrcStride = make([]int, 0, total)
	p.axisAdvStride = make([]int, 0, total)

	appendBasic := func(i int) {
		p.resShape = append(p.resShape, p.viewShape[i])
		p.axisSrcStride = append(p.axisSrcStride, p.viewStride[i])
		p.axisAdvStride = append(p.axisAdvStride, 0)
	}

	for i := 0; i < p.advInsert; i++ {
		appendBasic(i)
	}
	for k := range p.advShape {
		p.resShape = append(p.resShape, p.advShape[k])
		p.axisSrcStride = append(p.axisSrcStride, 0)
		p.axisAdvStride = append(p.axisAdvStride, advStrides[k])
	}
	for i := p.advInsert; i < len(p.viewShape); i++ {
		appendBasic(i)
	}
}

// duplicateTargets reports whether two result positions can resolve to the
// same destination element. Basic axes address distinct elements unless the
// destination itself aliases (a stride-0 axis of size > 1, from Expand);
// beyond that, collisions come only from repeated advanced coordinates.
func (p *Plan) duplicateTargets() bool {
	for d, s := range p.axisSrcStride {
		if s == 0 && p.axisAdvStride[d] == 0 && p.resShape[d] > 1 {
			return true
		}
	}
	if !p.hasAdv {
		return false
	}
	seen := make(map[int64]struct{}, len(p.advOffsets))
	for _, off := range p.advOffsets {
		if _, ok := seen[off]; ok {
			return true
		}
		seen[off] = struct{}{}
	}
	return false
}

// sourceOffset maps a row-major result position to an absolute element
// offset in the source buffer.
func (p *Plan) sourceOffset(flat int, logical []int) int64 {
	off := int64(p.viewOffset)
	bFlat := 0
	remaining := flat
	for d := range p.resShape {
		idx := remaining / logical[d]
		remaining %= logical[d]
		off += int64(idx) * int64(p.axisSrcStride[d])
		bFlat += idx * p.axisAdvStride[d]
	}
	if p.hasAdv {
		off += p.advOffsets[bFlat]
	}
	return off
}

func checkIndexDevice(src, idx *tensor.RawTensor) error {
	if src.Device() != idx.Device() {
		return runtimeErrorf("expected all tensors to be on the same device, but found at least two devices, %s and %s", src.Device(), idx.Device())
	}
	return nil
}

func shapeList(shapes []tensor.Shape) string {
	var b strings.Builder
	for i, s := range shapes {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(s.String())
	}
	return b.String()
}
