// Package index implements basic and advanced indexing over strided tensors:
// view-producing basic indexing, NumPy-style advanced indexing with
// broadcast integer arrays and boolean masks, and in-place scatter
// operations with configurable combine semantics.
package index

import "github.com/pkg/errors"

// Error taxonomy. Every failure returned by this package wraps exactly one
// of these sentinels, so callers dispatch with errors.Is.
var (
	// ErrIndex covers out-of-range indices, too many indices, mask shape
	// mismatches, and floats used where an index is required.
	ErrIndex = errors.New("IndexError")

	// ErrType covers wrongly typed index expressions, e.g. non-integer
	// slice bounds.
	ErrType = errors.New("TypeError")

	// ErrValue covers invalid parameter values, e.g. a zero slice step.
	ErrValue = errors.New("ValueError")

	// ErrRuntime covers shape/broadcast mismatches on writes, dtype
	// mismatches, and cross-device operands.
	ErrRuntime = errors.New("RuntimeError")
)

func indexErrorf(format string, args ...any) error {
	return errors.Wrapf(ErrIndex, format, args...)
}

func typeErrorf(format string, args ...any) error {
	return errors.Wrapf(ErrType, format, args...)
}

func valueErrorf(format string, args ...any) error {
	return errors.Wrapf(ErrValue, format, args...)
}

func runtimeErrorf(format string, args ...any) error {
	return errors.Wrapf(ErrRuntime, format, args...)
}
