package stock

import "fmt"

// ResolveBatch picks the batch a reference points at. Order: explicit index,
// exact label match, the unlabelled default batch. Returns the position in
// the item's batch slice.
func ResolveBatch(batches []Batch, ref BatchRef) (int, error) {
	if ref.Index != nil {
		idx := *ref.Index
		if idx < 0 || idx >= len(batches) {
			return -1, fmt.Errorf("%w: index %d out of range (have %d batches)", ErrBatchNotFound, idx, len(batches))
		}
		return idx, nil
	}
	if ref.Label != "" {
		for i, b := range batches {
			if b.Label == ref.Label {
				return i, nil
			}
		}
		return -1, fmt.Errorf("%w: no batch labelled %q", ErrBatchNotFound, ref.Label)
	}
	for i, b := range batches {
		if b.Label == "" {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: item has no default batch", ErrBatchNotFound)
}

// TotalQty sums batch quantities; the item aggregate must equal it after
// every mutation.
func TotalQty(batches []Batch) float64 {
	var total float64
	for _, b := range batches {
		total += b.Qty
	}
	return total
}

// displayLabel names a batch in error messages.
func displayLabel(label string) string {
	if label == "" {
		return "(default)"
	}
	return label
}
