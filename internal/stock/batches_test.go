package stock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveBatchByIndex(t *testing.T) {
	batches := []Batch{{ID: 1, Label: "A"}, {ID: 2, Label: "B"}}
	one := 1
	idx, err := ResolveBatch(batches, BatchRef{Index: &one})
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	bad := 5
	_, err = ResolveBatch(batches, BatchRef{Index: &bad})
	assert.ErrorIs(t, err, ErrBatchNotFound)
}

func TestResolveBatchByLabel(t *testing.T) {
	batches := []Batch{{ID: 1, Label: "LOT-1"}, {ID: 2, Label: "LOT-2"}}
	idx, err := ResolveBatch(batches, BatchRef{Label: "LOT-2"})
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	_, err = ResolveBatch(batches, BatchRef{Label: "LOT-9"})
	assert.ErrorIs(t, err, ErrBatchNotFound)
}

func TestResolveBatchDefault(t *testing.T) {
	batches := []Batch{{ID: 1, Label: "LOT-1"}, {ID: 2, Label: ""}}
	idx, err := ResolveBatch(batches, BatchRef{})
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	// Only labelled batches: no implicit default to fall back on.
	_, err = ResolveBatch([]Batch{{ID: 1, Label: "LOT-1"}}, BatchRef{})
	assert.ErrorIs(t, err, ErrBatchNotFound)
}

func TestResolveBatchIndexWinsOverLabel(t *testing.T) {
	batches := []Batch{{ID: 1, Label: "A"}, {ID: 2, Label: "B"}}
	zero := 0
	idx, err := ResolveBatch(batches, BatchRef{Index: &zero, Label: "B"})
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}

func TestTotalQty(t *testing.T) {
	assert.Equal(t, 0.0, TotalQty(nil))
	assert.InDelta(t, 17.5, TotalQty([]Batch{{Qty: 10}, {Qty: 7.5}}), 1e-9)
}

func TestMovementDelta(t *testing.T) {
	assert.Equal(t, -3.0, Movement{Type: MovementSale, Qty: 3}.Delta())
	assert.Equal(t, 3.0, Movement{Type: MovementReceipt, Qty: 3}.Delta())
	assert.Equal(t, 3.0, Movement{Type: MovementOpening, Qty: 3}.Delta())
	assert.Equal(t, -2.0, Movement{Type: MovementAdjustment, Qty: -2}.Delta())
}
