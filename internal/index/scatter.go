package index

import (
	"github.com/slab-ml/slab/internal/tensor"
)

// IndexPut writes values into dest at the coordinates selected by indices
// and returns dest. indices holds one coordinate tensor per destination
// dimension; a nil entry means that dimension is not indexed and values
// broadcast across it. Trailing dimensions may be omitted entirely.
//
// With accumulate, every value destined for the same coordinate is summed;
// without it, one writer wins in an unspecified order.
func IndexPut(dest *tensor.RawTensor, indices []*tensor.RawTensor, values *tensor.RawTensor, accumulate bool) (*tensor.RawTensor, error) {
	if len(indices) > dest.Rank() {
		return nil, indexErrorf("too many indices for tensor of dimension %d", dest.Rank())
	}
	if values.DType() != dest.DType() {
		return nil, runtimeErrorf("value dtype %s does not match destination dtype %s", values.DType(), dest.DType())
	}
	if values.Device() != dest.Device() {
		return nil, runtimeErrorf("expected all tensors to be on the same device, but found at least two devices, %s and %s",
			dest.Device(), values.Device())
	}

	terms := make([]Term, 0, len(indices))
	for _, idx := range indices {
		if idx == nil {
			terms = append(terms, All())
			continue
		}
		term, err := tensorTerm(idx)
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}

	p, err := BuildPlan(dest, terms)
	if err != nil {
		return nil, err
	}
	if err := p.scatter(values, accumulate); err != nil {
		return nil, err
	}
	return dest, nil
}
