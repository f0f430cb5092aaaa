package index

import (
	"github.com/slab-ml/slab/internal/tensor"
)

// TermKind discriminates the closed set of index term variants.
type TermKind int

// Index term variants. A raw index expression is normalized into a
// sequence of these before planning; all later stages dispatch on Kind.
const (
	KindInteger TermKind = iota
	KindSlice
	KindEllipsis
	KindNewAxis
	KindMask
	KindArray
)

// Term is one typed element of an index expression.
type Term struct {
	Kind TermKind

	// KindInteger
	Index int64

	// KindSlice. Nil bounds are open ("from the beginning" / "to the end").
	Start *int64
	Stop  *int64
	Step  int64

	// KindMask (bool/uint8 tensor) or KindArray (integer tensor).
	Array *tensor.RawTensor
}

// At builds an integer index term.
func At(i int64) Term {
	return Term{Kind: KindInteger, Index: i}
}

// All builds the full slice ":".
func All() Term {
	return Term{Kind: KindSlice, Step: 1}
}

// Range builds the slice "start:stop".
func Range(start, stop int64) Term {
	return Term{Kind: KindSlice, Start: &start, Stop: &stop, Step: 1}
}

// RangeStep builds the slice "start:stop:step".
func RangeStep(start, stop, step int64) Term {
	return Term{Kind: KindSlice, Start: &start, Stop: &stop, Step: step}
}

// From builds the slice "start:".
func From(start int64) Term {
	return Term{Kind: KindSlice, Start: &start, Step: 1}
}

// To builds the slice ":stop".
func To(stop int64) Term {
	return Term{Kind: KindSlice, Stop: &stop, Step: 1}
}

// Ellip builds an ellipsis term ("...").
func Ellip() Term {
	return Term{Kind: KindEllipsis}
}

// NewAxis builds a term that inserts a size-1 dimension (Python's None).
func NewAxis() Term {
	return Term{Kind: KindNewAxis}
}

// Mask builds a boolean-mask term from a bool or uint8 tensor.
func Mask(m *tensor.RawTensor) Term {
	return Term{Kind: KindMask, Array: m}
}

// Pick builds an integer-array term.
func Pick(idx *tensor.RawTensor) Term {
	return Term{Kind: KindArray, Array: idx}
}

// Slc mirrors a Python slice literal inside a raw index expression passed
// to ParseTerms. Bounds may be nil (open) or any Go integer; anything else
// is rejected with a TypeError during parsing.
type Slc struct {
	Start, Stop, Step any
}

// ellipsisArg and newAxisArg are the raw-expression markers for "..." and
// None. Exported as singletons below.
type (
	ellipsisArg struct{}
	newAxisArg  struct{}
)

// Raw-expression markers: pass these to ParseTerms where Python would use
// "..." or None.
var (
	Ellipsis = ellipsisArg{}
	None     = newAxisArg{}
)
