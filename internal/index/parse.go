package index

import (
	"reflect"

	"github.com/slab-ml/slab/internal/tensor"
)

// ParseTerms normalizes a heterogeneous raw index expression into typed
// terms. Accepted elements:
//
//   - Go integers of any width (an integer index)
//   - Slc{...} (a slice; bounds must be integers or nil)
//   - Ellipsis and None markers
//   - bool (a 0-d mask: adds a leading dimension of size 1 or 0)
//   - *tensor.RawTensor (bool/uint8 dtype: mask; integer dtype: index array)
//   - Go slices, arbitrarily nested ([]int64, [][]int, []bool, ...),
//     converted to an index array or mask
//   - already-built Term values
//
// Floats used as scalar indices fail with an IndexError; non-integer slice
// bounds fail with a TypeError, matching the engine's error taxonomy.
func ParseTerms(args ...any) ([]Term, error) {
	terms := make([]Term, 0, len(args))
	for _, arg := range args {
		term, err := parseOne(arg)
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}
	return terms, nil
}

func parseOne(arg any) (Term, error) {
	switch v := arg.(type) {
	case Term:
		return v, nil
	case int:
		return At(int64(v)), nil
	case int8:
		return At(int64(v)), nil
	case int16:
		return At(int64(v)), nil
	case int32:
		return At(int64(v)), nil
	case int64:
		return At(v), nil
	case uint:
		return At(int64(v)), nil
	case uint8:
		return At(int64(v)), nil
	case uint16:
		return At(int64(v)), nil
	case uint32:
		return At(int64(v)), nil
	case uint64:
		return At(int64(v)), nil //nolint:gosec // callers pass small indices
	case float32, float64:
		return Term{}, indexErrorf("only integers, slices, ellipsis, None and integer or boolean tensors are valid indices (got %T)", v)
	case bool:
		return scalarMask(v), nil
	case Slc:
		return parseSlice(v)
	case ellipsisArg:
		return Ellip(), nil
	case newAxisArg:
		return NewAxis(), nil
	case *tensor.RawTensor:
		return tensorTerm(v)
	case nil:
		return NewAxis(), nil
	default:
		rv := reflect.ValueOf(arg)
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			arr, err := sequenceToTensor(rv)
			if err != nil {
				return Term{}, err
			}
			return tensorTerm(arr)
		}
		return Term{}, typeErrorf("invalid index expression element of type %T", arg)
	}
}

// scalarMask maps a bare bool to a 0-d mask term.
func scalarMask(v bool) Term {
	m := tensor.Zeros(tensor.Shape{}, tensor.Bool, tensor.CPU)
	if v {
		tensor.Flat[bool](m)[0] = true
	}
	return Mask(m)
}

// tensorTerm classifies a tensor used as an index term by dtype.
// uint8 masks are the legacy byte-mask convention and behave like bool.
func tensorTerm(t *tensor.RawTensor) (Term, error) {
	switch t.DType() {
	case tensor.Bool, tensor.Uint8:
		return Mask(t), nil
	case tensor.Int32, tensor.Int64:
		return Pick(t), nil
	default:
		return Term{}, indexErrorf("tensors used as indices must be int, uint8 or bool tensors (got %s)", t.DType())
	}
}

func parseSlice(s Slc) (Term, error) {
	term := Term{Kind: KindSlice, Step: 1}

	bound := func(v any, name string) (*int64, error) {
		if v == nil {
			return nil, nil
		}
		n, ok := asInt64(v)
		if !ok {
			return nil, typeErrorf("slice %s must be an integer or nil, got %T", name, v)
		}
		return &n, nil
	}

	var err error
	if term.Start, err = bound(s.Start, "start"); err != nil {
		return Term{}, err
	}
	if term.Stop, err = bound(s.Stop, "stop"); err != nil {
		return Term{}, err
	}
	if s.Step != nil {
		step, ok := asInt64(s.Step)
		if !ok {
			return Term{}, typeErrorf("slice step must be an integer or nil, got %T", s.Step)
		}
		term.Step = step
	}
	return term, nil
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	default:
		return 0, false
	}
}

// sequenceToTensor converts a (possibly nested) Go slice into an int64
// index tensor or a bool mask. The nesting must be rectangular.
func sequenceToTensor(rv reflect.Value) (*tensor.RawTensor, error) {
	shape, kind, err := sequenceShape(rv)
	if err != nil {
		return nil, err
	}
	if err := checkRectangular(rv, shape, 0); err != nil {
		return nil, err
	}

	var out *tensor.RawTensor
	switch kind {
	case reflect.Bool:
		out = tensor.Zeros(shape, tensor.Bool, tensor.CPU)
		flat := tensor.Flat[bool](out)
		i := 0
		fillSequence(rv, func(leaf reflect.Value) {
			flat[i] = leaf.Bool()
			i++
		})
	default:
		out = tensor.Zeros(shape, tensor.Int64, tensor.CPU)
		flat := tensor.Flat[int64](out)
		i := 0
		fillSequence(rv, func(leaf reflect.Value) {
			if leaf.CanUint() {
				flat[i] = int64(leaf.Uint()) //nolint:gosec // index values are small
			} else {
				flat[i] = leaf.Int()
			}
			i++
		})
	}
	return out, nil
}

// sequenceShape walks the nesting, checking rectangularity and leaf types.
func sequenceShape(rv reflect.Value) (tensor.Shape, reflect.Kind, error) {
	var shape tensor.Shape
	cur := rv
	for cur.Kind() == reflect.Slice || cur.Kind() == reflect.Array {
		shape = append(shape, cur.Len())
		if cur.Len() == 0 {
			return shape, reflect.Int64, nil
		}
		elem := cur.Index(0)
		for elem.Kind() == reflect.Interface {
			elem = elem.Elem()
		}
		cur = elem
	}

	switch cur.Kind() {
	case reflect.Bool:
		return shape, reflect.Bool, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return shape, reflect.Int64, nil
	case reflect.Float32, reflect.Float64:
		return nil, 0, indexErrorf("only integers, slices, ellipsis, None and integer or boolean tensors are valid indices (got a sequence of %s)", cur.Kind())
	default:
		return nil, 0, typeErrorf("cannot interpret a sequence of %s as an index", cur.Kind())
	}
}

// checkRectangular verifies every nesting level against the derived shape.
// The shape comes from the first-child chain, so each slice at depth d must
// have exactly shape[d] elements and leaves must sit at the deepest level;
// a total leaf count alone would let compensating raggedness through.
func checkRectangular(rv reflect.Value, shape tensor.Shape, depth int) error {
	for rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		if depth != len(shape) {
			return valueErrorf("ragged nested sequence cannot be interpreted as an index (expected %v)", shape)
		}
		return nil
	}
	if depth == len(shape) || rv.Len() != shape[depth] {
		return valueErrorf("ragged nested sequence cannot be interpreted as an index (expected %v)", shape)
	}
	for i := 0; i < rv.Len(); i++ {
		if err := checkRectangular(rv.Index(i), shape, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// fillSequence emits leaves in row-major order. Rectangularity has already
// been checked by checkRectangular.
func fillSequence(rv reflect.Value, emit func(reflect.Value)) {
	var walk func(v reflect.Value)
	walk = func(v reflect.Value) {
		for v.Kind() == reflect.Interface {
			v = v.Elem()
		}
		if v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
			for i := 0; i < v.Len(); i++ {
				walk(v.Index(i))
			}
			return
		}
		emit(v)
	}
	walk(rv)
}
