package stock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEntryCreatesNewItem(t *testing.T) {
	store := newMemStore()
	service := NewService(&memRepo{store: store}, nil, nil)

	item, err := service.CreateEntry(context.Background(), EntryInput{
		FirmID:  1,
		ActorID: 7,
		Type:    MovementOpening,
		Name:    "Notebook",
		HSN:     "4820",
		Unit:    "PCS",
		GSTRate: 12,
		Rate:    40,
		Batch:   BatchInput{Label: "", Qty: 25, Rate: 40},
	})
	require.NoError(t, err)
	require.Len(t, item.Batches, 1)
	assert.InDelta(t, 25, item.Qty, 1e-9)
	assert.InDelta(t, 25*40, item.Total, 1e-9)
	require.Len(t, store.movements, 1)
	assert.Equal(t, MovementOpening, store.movements[0].Type)
}

func TestCreateEntryMergesByNameAndLabel(t *testing.T) {
	store := newMemStore()
	seeded := store.seedItem(1, "Notebook", Batch{Label: "L1", Qty: 10, Rate: 40})
	service := NewService(&memRepo{store: store}, nil, nil)

	item, err := service.CreateEntry(context.Background(), EntryInput{
		FirmID: 1,
		Type:   MovementReceipt,
		Name:   "Notebook",
		Rate:   45,
		Batch:  BatchInput{Label: "L1", Qty: 5, Rate: 45},
	})
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, item.ID)
	require.Len(t, item.Batches, 1)
	assert.InDelta(t, 15, item.Batches[0].Qty, 1e-9)
	assert.InDelta(t, 45, item.Batches[0].Rate, 1e-9)
	assert.InDelta(t, 15, item.Qty, 1e-9)
}

func TestCreateEntryNewLabelAddsBatch(t *testing.T) {
	store := newMemStore()
	store.seedItem(1, "Notebook", Batch{Label: "L1", Qty: 10, Rate: 40})
	service := NewService(&memRepo{store: store}, nil, nil)

	item, err := service.CreateEntry(context.Background(), EntryInput{
		FirmID: 1,
		Type:   MovementReceipt,
		Name:   "Notebook",
		Batch:  BatchInput{Label: "L2", Qty: 4, Rate: 42},
	})
	require.NoError(t, err)
	require.Len(t, item.Batches, 2)
	assert.InDelta(t, 14, item.Qty, 1e-9)
}

func TestCreateEntryValidation(t *testing.T) {
	service := NewService(&memRepo{store: newMemStore()}, nil, nil)

	_, err := service.CreateEntry(context.Background(), EntryInput{FirmID: 1, Type: MovementReceipt, Name: "X"})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = service.CreateEntry(context.Background(), EntryInput{FirmID: 1, Type: MovementSale, Name: "X", Batch: BatchInput{Qty: 1}})
	assert.ErrorIs(t, err, ErrInvalidMovement)

	_, err = service.CreateEntry(context.Background(), EntryInput{Type: MovementReceipt, Name: "X", Batch: BatchInput{Qty: 1}})
	assert.Error(t, err)
}

func TestAdjustNegativeFailsBelowZero(t *testing.T) {
	store := newMemStore()
	item := store.seedItem(1, "Pen", Batch{Label: "", Qty: 3, Rate: 10})
	service := NewService(&memRepo{store: store}, nil, nil)

	_, err := service.Adjust(context.Background(), 1, 7, item.ID, BatchRef{}, -5)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	got, err := service.Adjust(context.Background(), 1, 7, item.ID, BatchRef{}, -2)
	require.NoError(t, err)
	assert.InDelta(t, 1, got.Qty, 1e-9)
}

func TestTransferBetweenBatches(t *testing.T) {
	store := newMemStore()
	item := store.seedItem(1, "Pen", Batch{Label: "OLD", Qty: 10, Rate: 10})
	service := NewService(&memRepo{store: store}, nil, nil)

	got, err := service.Transfer(context.Background(), TransferInput{
		FirmID: 1, ActorID: 7, ItemID: item.ID,
		From: BatchRef{Label: "OLD"}, ToLabel: "NEW", Qty: 4,
	})
	require.NoError(t, err)
	require.Len(t, got.Batches, 2)
	assert.InDelta(t, 6, got.Batches[0].Qty, 1e-9)
	assert.InDelta(t, 4, got.Batches[1].Qty, 1e-9)
	assert.InDelta(t, 10, got.Qty, 1e-9)

	// Two paired movements, net zero.
	var net float64
	for _, m := range store.movements {
		net += m.Qty
	}
	assert.InDelta(t, 0, net, 1e-9)
}

func TestBulkImportCollectsFailures(t *testing.T) {
	store := newMemStore()
	service := NewService(&memRepo{store: store}, nil, nil)

	results := service.BulkImport(context.Background(), []EntryInput{
		{FirmID: 1, Type: MovementOpening, Name: "Good", Batch: BatchInput{Qty: 5, Rate: 10}},
		{FirmID: 1, Type: MovementOpening, Name: "Bad", Batch: BatchInput{Qty: 0}},
		{FirmID: 1, Type: MovementOpening, Name: "AlsoGood", Batch: BatchInput{Qty: 2, Rate: 3}},
	})
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, ErrInvalidQuantity)
	assert.NoError(t, results[2].Err)
	assert.NotZero(t, results[0].ItemID)
	assert.NotZero(t, results[2].ItemID)
}
