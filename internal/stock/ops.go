package stock

import (
	"context"
	"fmt"
)

// Consume deducts a sale quantity from the resolved batch, refreshes the
// item aggregates, and records the movement. Runs on the caller's store so a
// bill's stock, ledger, and counter writes share one transaction.
func Consume(ctx context.Context, s BatchStore, firmID int64, in ConsumeInput, billID *int64, actorID int64) (Movement, error) {
	if in.Qty <= 0 {
		return Movement{}, ErrInvalidQuantity
	}
	item, err := s.GetItemForUpdate(ctx, firmID, in.ItemID)
	if err != nil {
		return Movement{}, err
	}
	idx, err := ResolveBatch(item.Batches, in.Batch)
	if err != nil {
		return Movement{}, fmt.Errorf("item %q: %w", item.Name, err)
	}
	batch := item.Batches[idx]
	ok, err := s.DecrementBatchQty(ctx, batch.ID, in.Qty)
	if err != nil {
		return Movement{}, err
	}
	if !ok {
		return Movement{}, fmt.Errorf("%w: item %q batch %s has %.2f, requested %.2f",
			ErrInsufficientStock, item.Name, displayLabel(batch.Label), batch.Qty, in.Qty)
	}
	if _, _, err := s.RecomputeAggregates(ctx, item.ID); err != nil {
		return Movement{}, err
	}
	movement := Movement{
		FirmID:     firmID,
		ItemID:     item.ID,
		BatchLabel: batch.Label,
		Type:       MovementSale,
		Qty:        in.Qty,
		Rate:       in.Rate,
		BillID:     billID,
		CreatedBy:  actorID,
	}
	id, err := s.InsertMovement(ctx, movement)
	if err != nil {
		return Movement{}, err
	}
	movement.ID = id
	return movement, nil
}

// Receive adds quantity into the batch with the given label, creating the
// batch when missing, and records the movement (RECEIPT for purchases,
// OPENING for opening stock).
func Receive(ctx context.Context, s BatchStore, firmID int64, in ReceiveInput, movType MovementType, billID *int64, actorID int64) (Movement, error) {
	if in.Qty <= 0 {
		return Movement{}, ErrInvalidQuantity
	}
	if movType != MovementReceipt && movType != MovementOpening {
		return Movement{}, ErrInvalidMovement
	}
	item, err := s.GetItemForUpdate(ctx, firmID, in.ItemID)
	if err != nil {
		return Movement{}, err
	}
	if err := mergeBatch(ctx, s, item, BatchInput{Label: in.Label, Qty: in.Qty, Rate: in.Rate, Expiry: in.Expiry, MRP: in.MRP}); err != nil {
		return Movement{}, err
	}
	if _, _, err := s.RecomputeAggregates(ctx, item.ID); err != nil {
		return Movement{}, err
	}
	movement := Movement{
		FirmID:     firmID,
		ItemID:     item.ID,
		BatchLabel: in.Label,
		Type:       movType,
		Qty:        in.Qty,
		Rate:       in.Rate,
		BillID:     billID,
		CreatedBy:  actorID,
	}
	id, err := s.InsertMovement(ctx, movement)
	if err != nil {
		return Movement{}, err
	}
	movement.ID = id
	return movement, nil
}

// Restore undoes the quantity effect of a previously recorded movement:
// consumed stock is re-added (recreating the batch if it is gone) and
// received stock is deducted. Deducting fails when the received quantity has
// already been sold on.
func Restore(ctx context.Context, s BatchStore, firmID int64, m Movement) error {
	item, err := s.GetItemForUpdate(ctx, firmID, m.ItemID)
	if err != nil {
		return err
	}
	undo := -m.Delta()
	switch {
	case undo > 0:
		ok, err := s.AddBatchQty(ctx, item.ID, m.BatchLabel, undo)
		if err != nil {
			return err
		}
		if !ok {
			if _, err := s.InsertBatch(ctx, Batch{ItemID: item.ID, Label: m.BatchLabel, Qty: undo, Rate: m.Rate}); err != nil {
				return err
			}
		}
	case undo < 0:
		idx, err := ResolveBatch(item.Batches, BatchRef{Label: m.BatchLabel})
		if err != nil {
			return fmt.Errorf("item %q: %w", item.Name, err)
		}
		batch := item.Batches[idx]
		ok, err := s.DecrementBatchQty(ctx, batch.ID, -undo)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: cannot take back %.2f from item %q batch %s, only %.2f left",
				ErrInsufficientStock, -undo, item.Name, displayLabel(batch.Label), batch.Qty)
		}
	default:
		return nil
	}
	_, _, err = s.RecomputeAggregates(ctx, item.ID)
	return err
}

// mergeBatch folds an incoming batch into the item: quantities sum into the
// label-matched batch and optional fields overwrite only when provided; a
// missing batch is created.
func mergeBatch(ctx context.Context, s BatchStore, item Item, in BatchInput) error {
	for _, b := range item.Batches {
		if b.Label != in.Label {
			continue
		}
		if _, err := s.AddBatchQty(ctx, item.ID, in.Label, in.Qty); err != nil {
			return err
		}
		if in.Rate > 0 {
			b.Rate = in.Rate
		}
		if in.Expiry != nil {
			b.Expiry = in.Expiry
		}
		if in.MRP != nil {
			b.MRP = in.MRP
		}
		return s.UpdateBatchInfo(ctx, b)
	}
	_, err := s.InsertBatch(ctx, Batch{ItemID: item.ID, Label: in.Label, Qty: in.Qty, Rate: in.Rate, Expiry: in.Expiry, MRP: in.MRP})
	return err
}
