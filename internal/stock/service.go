package stock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/munimji/munimji/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, BatchStore) error) error
	GetItem(ctx context.Context, firmID, itemID int64) (Item, error)
	ListItems(ctx context.Context, firmID int64) ([]Item, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates direct stock operations outside billing.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger, now: time.Now}
}

// CreateEntry records a direct stock entry. An item with the same name for
// the firm absorbs the batch (create-or-merge); otherwise a new item is
// created with the batch.
func (s *Service) CreateEntry(ctx context.Context, in EntryInput) (Item, error) {
	if err := validateEntry(in); err != nil {
		return Item{}, err
	}
	var result Item
	err := s.repo.WithTx(ctx, func(ctx context.Context, store BatchStore) error {
		item, err := store.FindItemByName(ctx, in.FirmID, in.Name)
		switch {
		case errors.Is(err, ErrItemNotFound):
			id, err := store.InsertItem(ctx, Item{
				FirmID:  in.FirmID,
				Name:    in.Name,
				HSN:     in.HSN,
				Unit:    in.Unit,
				GSTRate: in.GSTRate,
				Rate:    in.Rate,
			})
			if err != nil {
				return err
			}
			item = Item{ID: id, FirmID: in.FirmID, Name: in.Name}
		case err != nil:
			return err
		default:
			if in.HSN != "" || in.Unit != "" || in.GSTRate > 0 || in.Rate > 0 {
				if in.HSN != "" {
					item.HSN = in.HSN
				}
				if in.Unit != "" {
					item.Unit = in.Unit
				}
				if in.GSTRate > 0 {
					item.GSTRate = in.GSTRate
				}
				if in.Rate > 0 {
					item.Rate = in.Rate
				}
				if err := store.UpdateItemInfo(ctx, item); err != nil {
					return err
				}
			}
		}

		if _, err := Receive(ctx, store, in.FirmID, ReceiveInput{
			ItemID: item.ID,
			Label:  in.Batch.Label,
			Qty:    in.Batch.Qty,
			Rate:   in.Batch.Rate,
			Expiry: in.Batch.Expiry,
			MRP:    in.Batch.MRP,
		}, in.Type, nil, in.ActorID); err != nil {
			return err
		}
		refreshed, err := store.GetItemForUpdate(ctx, in.FirmID, item.ID)
		if err != nil {
			return err
		}
		result = refreshed
		return nil
	})
	if err != nil {
		return Item{}, err
	}
	s.record(ctx, in.FirmID, in.ActorID, "stock.entry", result.ID, map[string]any{
		"movement": string(in.Type),
		"item":     result.Name,
		"qty":      in.Batch.Qty,
	})
	return result, nil
}

// Adjust applies a signed quantity correction to a specific batch.
func (s *Service) Adjust(ctx context.Context, firmID, actorID, itemID int64, ref BatchRef, qty float64) (Item, error) {
	if math.Abs(qty) < 1e-9 {
		return Item{}, ErrInvalidQuantity
	}
	var result Item
	err := s.repo.WithTx(ctx, func(ctx context.Context, store BatchStore) error {
		item, err := store.GetItemForUpdate(ctx, firmID, itemID)
		if err != nil {
			return err
		}
		idx, err := ResolveBatch(item.Batches, ref)
		if err != nil {
			return fmt.Errorf("item %q: %w", item.Name, err)
		}
		batch := item.Batches[idx]
		if qty < 0 {
			ok, err := store.DecrementBatchQty(ctx, batch.ID, -qty)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: item %q batch %s has %.2f, adjustment needs %.2f",
					ErrInsufficientStock, item.Name, displayLabel(batch.Label), batch.Qty, -qty)
			}
		} else {
			if _, err := store.AddBatchQty(ctx, item.ID, batch.Label, qty); err != nil {
				return err
			}
		}
		if _, _, err := store.RecomputeAggregates(ctx, item.ID); err != nil {
			return err
		}
		if _, err := store.InsertMovement(ctx, Movement{
			FirmID:     firmID,
			ItemID:     item.ID,
			BatchLabel: batch.Label,
			Type:       MovementAdjustment,
			Qty:        qty,
			Rate:       batch.Rate,
			CreatedBy:  actorID,
		}); err != nil {
			return err
		}
		refreshed, err := store.GetItemForUpdate(ctx, firmID, item.ID)
		if err != nil {
			return err
		}
		result = refreshed
		return nil
	})
	if err != nil {
		return Item{}, err
	}
	s.record(ctx, firmID, actorID, "stock.adjust", result.ID, map[string]any{"qty": qty})
	return result, nil
}

// Transfer moves quantity from one batch of an item into another label,
// recording paired TRANSFER movements.
func (s *Service) Transfer(ctx context.Context, in TransferInput) (Item, error) {
	if in.Qty <= 0 {
		return Item{}, ErrInvalidQuantity
	}
	var result Item
	err := s.repo.WithTx(ctx, func(ctx context.Context, store BatchStore) error {
		item, err := store.GetItemForUpdate(ctx, in.FirmID, in.ItemID)
		if err != nil {
			return err
		}
		idx, err := ResolveBatch(item.Batches, in.From)
		if err != nil {
			return fmt.Errorf("item %q: %w", item.Name, err)
		}
		src := item.Batches[idx]
		if src.Label == in.ToLabel {
			return errors.New("stock: source and destination batch must differ")
		}
		ok, err := store.DecrementBatchQty(ctx, src.ID, in.Qty)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: item %q batch %s has %.2f, transfer needs %.2f",
				ErrInsufficientStock, item.Name, displayLabel(src.Label), src.Qty, in.Qty)
		}
		moved, err := store.AddBatchQty(ctx, item.ID, in.ToLabel, in.Qty)
		if err != nil {
			return err
		}
		if !moved {
			if _, err := store.InsertBatch(ctx, Batch{ItemID: item.ID, Label: in.ToLabel, Qty: in.Qty, Rate: src.Rate}); err != nil {
				return err
			}
		}
		if _, _, err := store.RecomputeAggregates(ctx, item.ID); err != nil {
			return err
		}
		for _, m := range []Movement{
			{FirmID: in.FirmID, ItemID: item.ID, BatchLabel: src.Label, Type: MovementTransfer, Qty: -in.Qty, Rate: src.Rate, CreatedBy: in.ActorID},
			{FirmID: in.FirmID, ItemID: item.ID, BatchLabel: in.ToLabel, Type: MovementTransfer, Qty: in.Qty, Rate: src.Rate, CreatedBy: in.ActorID},
		} {
			if _, err := store.InsertMovement(ctx, m); err != nil {
				return err
			}
		}
		refreshed, err := store.GetItemForUpdate(ctx, in.FirmID, item.ID)
		if err != nil {
			return err
		}
		result = refreshed
		return nil
	})
	if err != nil {
		return Item{}, err
	}
	s.record(ctx, in.FirmID, in.ActorID, "stock.transfer", result.ID, map[string]any{"qty": in.Qty, "to": in.ToLabel})
	return result, nil
}

// BulkImport attempts every entry independently. One entry's failure never
// aborts the batch; successes and failures are both reported.
func (s *Service) BulkImport(ctx context.Context, entries []EntryInput) []BulkResult {
	results := make([]BulkResult, 0, len(entries))
	for _, entry := range entries {
		item, err := s.CreateEntry(ctx, entry)
		res := BulkResult{Name: entry.Name, Err: err}
		if err == nil {
			res.ItemID = item.ID
		} else if s.logger != nil {
			s.logger.Warn("bulk stock entry failed", slog.String("item", entry.Name), slog.Any("error", err))
		}
		results = append(results, res)
	}
	return results
}

// GetItem returns an item with batches.
func (s *Service) GetItem(ctx context.Context, firmID, itemID int64) (Item, error) {
	return s.repo.GetItem(ctx, firmID, itemID)
}

// ListItems returns the firm's items.
func (s *Service) ListItems(ctx context.Context, firmID int64) ([]Item, error) {
	return s.repo.ListItems(ctx, firmID)
}

func validateEntry(in EntryInput) error {
	if in.FirmID == 0 {
		return errors.New("stock: firm required")
	}
	if in.Name == "" {
		return errors.New("stock: item name required")
	}
	if in.Batch.Qty <= 0 {
		return ErrInvalidQuantity
	}
	switch in.Type {
	case MovementReceipt, MovementOpening:
		return nil
	default:
		return ErrInvalidMovement
	}
}

func (s *Service) record(ctx context.Context, firmID, actorID int64, action string, itemID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		FirmID:   firmID,
		ActorID:  actorID,
		Action:   action,
		Entity:   "stock_item",
		EntityID: fmt.Sprintf("%d", itemID),
		Meta:     meta,
		At:       s.now(),
	})
}
