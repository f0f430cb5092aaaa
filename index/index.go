// Copyright 2026 The slab Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package index is the public API of slab's indexing engine: basic
// (view-producing) indexing with integers, slices, ellipsis and new axes,
// NumPy-style advanced indexing with broadcast integer arrays and boolean
// masks, and in-place scatter operations (put/copy/add/fill/reduce) with
// defined duplicate-coordinate semantics.
//
// Reading:
//
//	x := tensor.Consec(tensor.Shape{3, 3, 3})
//	v, err := index.View(x, index.Ellipsis, 2) // x[..., 2], copy-free
//
// Writing:
//
//	err := index.Assign(x, []any{index.Slc{Start: 1, Stop: 3}, 0}, 5.0)
package index

import (
	idx "github.com/slab-ml/slab/internal/index"
	"github.com/slab-ml/slab/internal/tensor"
)

// Term is one typed element of an index expression.
type Term = idx.Term

// Slc mirrors a Python slice literal in a raw index expression.
type Slc = idx.Slc

// Raw-expression markers for "..." and None.
var (
	Ellipsis = idx.Ellipsis
	None     = idx.None
)

// Error taxonomy sentinels; match with errors.Is.
var (
	ErrIndex   = idx.ErrIndex
	ErrType    = idx.ErrType
	ErrValue   = idx.ErrValue
	ErrRuntime = idx.ErrRuntime
)

// Term constructors.
var (
	At        = idx.At
	All       = idx.All
	Range     = idx.Range
	RangeStep = idx.RangeStep
	From      = idx.From
	To        = idx.To
	Ellip     = idx.Ellip
	NewAxis   = idx.NewAxis
	Mask      = idx.Mask
	Pick      = idx.Pick
)

// View resolves a raw index expression on src. Pure basic expressions
// return a view sharing src's storage; expressions containing integer
// arrays or boolean masks return a freshly allocated copy.
func View(src *tensor.RawTensor, expr ...any) (*tensor.RawTensor, error) {
	terms, err := idx.ParseTerms(expr...)
	if err != nil {
		return nil, err
	}
	return idx.ViewIndex(src, terms...)
}

// ViewTerms is View for already-built terms.
func ViewTerms(src *tensor.RawTensor, terms ...Term) (*tensor.RawTensor, error) {
	return idx.ViewIndex(src, terms...)
}

// Assign writes value (a Go scalar or *tensor.RawTensor) into dest at the
// positions selected by the raw index expression.
func Assign(dest *tensor.RawTensor, expr []any, value any) error {
	terms, err := idx.ParseTerms(expr...)
	if err != nil {
		return err
	}
	return idx.AssignIndex(dest, terms, value)
}

// AssignTerms is Assign for already-built terms.
func AssignTerms(dest *tensor.RawTensor, terms []Term, value any) error {
	return idx.AssignIndex(dest, terms, value)
}

// Put writes values at the coordinates selected by indices (one optional
// coordinate tensor per destination dimension). With accumulate, values
// destined for the same coordinate are summed.
func Put(dest *tensor.RawTensor, indices []*tensor.RawTensor, values *tensor.RawTensor, accumulate bool) (*tensor.RawTensor, error) {
	return idx.IndexPut(dest, indices, values, accumulate)
}

// Select gathers slices of src along dim at the given index positions into
// a new contiguous tensor.
func Select(src *tensor.RawTensor, dim int, index *tensor.RawTensor) (*tensor.RawTensor, error) {
	return idx.IndexSelect(src, dim, index)
}

// Copy overwrites slices of dest along dim with slices of src.
func Copy(dest *tensor.RawTensor, dim int, index, src *tensor.RawTensor) (*tensor.RawTensor, error) {
	return idx.IndexCopy(dest, dim, index, src)
}

// Add accumulates alpha*src slices into dest along dim.
func Add(dest *tensor.RawTensor, dim int, index, src *tensor.RawTensor, alpha float64) (*tensor.RawTensor, error) {
	return idx.IndexAdd(dest, dim, index, src, alpha)
}

// Fill sets whole slices of dest along dim to a scalar value.
func Fill(dest *tensor.RawTensor, dim int, index *tensor.RawTensor, value any) (*tensor.RawTensor, error) {
	return idx.IndexFill(dest, dim, index, value)
}

// Reduce folds src slices into dest along dim with one of the reductions
// "prod", "mean", "amin" or "amax".
func Reduce(dest *tensor.RawTensor, dim int, index, src *tensor.RawTensor, reduce string, includeSelf bool) (*tensor.RawTensor, error) {
	return idx.IndexReduce(dest, dim, index, src, reduce, includeSelf)
}

// TakeAlongDim gathers elements of src addressed by int64 indices along
// dim; with dim nil both operands are flattened first.
func TakeAlongDim(src, indices *tensor.RawTensor, dim *int) (*tensor.RawTensor, error) {
	return idx.TakeAlongDim(src, indices, dim)
}

// SetDeterministic switches scatter between the fixed-order algorithm and
// the unordered parallel one.
func SetDeterministic(on bool) {
	idx.SetDeterministic(on)
}

// Deterministic reports whether fixed-order scatter is active.
func Deterministic() bool {
	return idx.Deterministic()
}
