package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/munimji/munimji/internal/ledger"
	"github.com/munimji/munimji/internal/masterdata/parties"
	"github.com/munimji/munimji/internal/shared"
	"github.com/munimji/munimji/internal/stock"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error
	GetBill(ctx context.Context, firmID, billID int64) (Bill, error)
	ListBills(ctx context.Context, firmID int64, billType BillType) ([]Bill, error)
}

// PartyPort resolves parties with firm-scope enforcement.
type PartyPort interface {
	GetScoped(ctx context.Context, firmID, id int64) (parties.Party, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// BumpPort notifies listeners that a firm's books changed.
type BumpPort interface {
	Bump(ctx context.Context, firmID int64) error
}

// Service creates, updates and cancels bills.
type Service struct {
	repo    RepositoryPort
	parties PartyPort
	audit   AuditPort
	bump    BumpPort
	logger  *slog.Logger
	now     func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, partyPort PartyPort, audit AuditPort, bump BumpPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, parties: partyPort, audit: audit, bump: bump, logger: logger, now: time.Now}
}

func snapshotParty(p parties.Party) PartySnapshot {
	return PartySnapshot{
		ID:        p.ID,
		Name:      p.Name,
		GSTIN:     p.GSTIN,
		State:     p.State,
		StateCode: p.StateCode,
		Address:   p.Address,
		PIN:       p.PIN,
	}
}

// billAmounts maps totals onto ledger posting figures. Under reverse charge
// the recipient owes the tax, so none of it is posted here and the debit
// equals the goods value.
func billAmounts(t Totals, reverseCharge bool) ledger.BillAmounts {
	amt := ledger.BillAmounts{
		Taxable:  t.Taxable,
		RoundOff: t.RoundOff,
		Net:      t.Net,
	}
	if !reverseCharge {
		amt.CGST, amt.SGST, amt.IGST = t.CGST, t.SGST, t.IGST
	}
	return amt
}

func ledgerCharges(charges []OtherCharge) []ledger.Charge {
	out := make([]ledger.Charge, 0, len(charges))
	for _, c := range charges {
		out = append(out, ledger.Charge{Name: c.Type, Amount: c.Amount})
	}
	return out
}

// Create posts a new bill: number first, then the bill row, then stock per
// line, then the balanced ledger group, all in one transaction.
func (s *Service) Create(ctx context.Context, in CreateInput) (Bill, error) {
	if err := in.Validate(); err != nil {
		return Bill{}, err
	}
	party, err := s.parties.GetScoped(ctx, in.FirmID, in.PartyID)
	if err != nil {
		return Bill{}, err
	}
	date := in.Date
	if date.IsZero() {
		date = s.now()
	}
	if in.Meta.SupplyType == "" {
		in.Meta.SupplyType = SupplyIntraState
	}
	totals := ComputeTotals(in.Cart, in.OtherCharges, in.Meta.GSTEnabled, in.Meta.SupplyType, in.Meta.ReverseCharge)

	var result Bill
	err = s.repo.WithTx(ctx, func(ctx context.Context, store Store) error {
		lgr := store.Ledger()
		kind := in.Type.VoucherKind()

		number, err := lgr.NextNumber(ctx, in.FirmID, kind, date)
		if err != nil {
			return fmt.Errorf("billing: assign number: %w", err)
		}
		group, err := lgr.NewGroup(ctx, in.FirmID, kind, nil)
		if err != nil {
			return err
		}
		bill := Bill{
			FirmID:        in.FirmID,
			Type:          in.Type,
			No:            number,
			Date:          date,
			Status:        StatusActive,
			Party:         snapshotParty(party),
			Consignee:     in.Consignee,
			Meta:          in.Meta,
			Cart:          in.Cart,
			OtherCharges:  in.OtherCharges,
			Totals:        totals,
			LedgerGroupID: group.ID,
			CreatedBy:     in.ActorID,
		}
		billID, err := store.InsertBill(ctx, bill)
		if err != nil {
			return err
		}
		bill.ID = billID

		if err := s.applyStock(ctx, store.Stock(), in.FirmID, in.ActorID, in.Type, billID, in.Cart); err != nil {
			return err
		}

		if _, err := lgr.InsertEntries(ctx, in.FirmID, group, ledger.EntryHeader{
			VoucherNo: number,
			Narration: in.Meta.Narration,
			Date:      date,
			CreatedBy: in.ActorID,
		}, s.postingLines(in.Type, party, billID, totals, in)); err != nil {
			return err
		}
		result = bill
		return nil
	})
	if err != nil {
		return Bill{}, err
	}
	s.finish(ctx, in.FirmID, in.ActorID, "bill.create", result)
	return result, nil
}

// Update replaces a bill wholesale: undo stock and ledger effects, then
// re-run creation logic with the new content under the original number and
// group.
func (s *Service) Update(ctx context.Context, in UpdateInput) (Bill, error) {
	create := CreateInput{
		FirmID: in.FirmID, ActorID: in.ActorID, Date: in.Date, PartyID: in.PartyID,
		Meta: in.Meta, Cart: in.Cart, OtherCharges: in.OtherCharges, Consignee: in.Consignee,
	}
	party, err := s.parties.GetScoped(ctx, in.FirmID, in.PartyID)
	if err != nil {
		return Bill{}, err
	}

	var result Bill
	err = s.repo.WithTx(ctx, func(ctx context.Context, store Store) error {
		bill, err := store.GetBillForUpdate(ctx, in.FirmID, in.BillID)
		if err != nil {
			return err
		}
		if bill.Status == StatusCancelled {
			return ErrBillCancelled
		}
		if in.No != "" && in.No != bill.No {
			return ErrNumberImmutable
		}
		create.Type = bill.Type
		if err := create.Validate(); err != nil {
			return err
		}
		if create.Meta.SupplyType == "" {
			create.Meta.SupplyType = SupplyIntraState
		}

		if err := s.undoStock(ctx, store.Stock(), in.FirmID, bill.ID); err != nil {
			return err
		}
		if _, err := store.Ledger().DeleteEntries(ctx, in.FirmID, bill.LedgerGroupID); err != nil {
			return err
		}

		date := in.Date
		if date.IsZero() {
			date = bill.Date
		}
		totals := ComputeTotals(create.Cart, create.OtherCharges, create.Meta.GSTEnabled, create.Meta.SupplyType, create.Meta.ReverseCharge)

		bill.Date = date
		bill.Party = snapshotParty(party)
		bill.Consignee = create.Consignee
		bill.Meta = create.Meta
		bill.Cart = create.Cart
		bill.OtherCharges = create.OtherCharges
		bill.Totals = totals
		if err := store.UpdateBill(ctx, bill); err != nil {
			return err
		}

		if err := s.applyStock(ctx, store.Stock(), in.FirmID, in.ActorID, bill.Type, bill.ID, create.Cart); err != nil {
			return err
		}
		group := ledger.TransactionGroup{Kind: bill.Type.VoucherKind(), ID: bill.LedgerGroupID}
		if _, err := store.Ledger().InsertEntries(ctx, in.FirmID, group, ledger.EntryHeader{
			VoucherNo: bill.No,
			Narration: create.Meta.Narration,
			Date:      date,
			CreatedBy: in.ActorID,
		}, s.postingLines(bill.Type, party, bill.ID, totals, create)); err != nil {
			return err
		}
		result = bill
		return nil
	})
	if err != nil {
		return Bill{}, err
	}
	s.finish(ctx, in.FirmID, in.ActorID, "bill.update", result)
	return result, nil
}

// Cancel is terminal: stock goes back, the ledger group is neutralised by a
// mirrored reversal group, and the bill row survives as the paper trail.
func (s *Service) Cancel(ctx context.Context, firmID, actorID, billID int64, reason string) (Bill, error) {
	var result Bill
	err := s.repo.WithTx(ctx, func(ctx context.Context, store Store) error {
		bill, err := store.GetBillForUpdate(ctx, firmID, billID)
		if err != nil {
			return err
		}
		if bill.Status == StatusCancelled {
			return ErrBillCancelled
		}

		if err := s.undoStock(ctx, store.Stock(), firmID, bill.ID); err != nil {
			return err
		}

		lgr := store.Ledger()
		entries, err := lgr.EntriesForGroup(ctx, firmID, bill.LedgerGroupID)
		if err != nil {
			return err
		}
		if len(entries) > 0 {
			kind := bill.Type.VoucherKind()
			original := bill.LedgerGroupID
			revGroup, err := lgr.NewGroup(ctx, firmID, kind, &original)
			if err != nil {
				return err
			}
			revNumber, err := lgr.NextNumber(ctx, firmID, kind, s.now())
			if err != nil {
				return err
			}
			narration := fmt.Sprintf("Cancellation of %s", bill.No)
			if reason != "" {
				narration += ": " + reason
			}
			if _, err := lgr.InsertEntries(ctx, firmID, revGroup, ledger.EntryHeader{
				VoucherNo: revNumber,
				Narration: narration,
				Date:      s.now(),
				CreatedBy: actorID,
			}, ledger.ReverseEntries(entries)); err != nil {
				return err
			}
		}

		now := s.now()
		if err := store.MarkCancelled(ctx, firmID, bill.ID, actorID, reason, now); err != nil {
			return err
		}
		bill.Status = StatusCancelled
		bill.CancelReason = reason
		bill.CancelledBy = &actorID
		bill.CancelledAt = &now
		result = bill
		return nil
	})
	if err != nil {
		return Bill{}, err
	}
	s.finish(ctx, firmID, actorID, "bill.cancel", result)
	return result, nil
}

// Get returns a bill scoped to the firm.
func (s *Service) Get(ctx context.Context, firmID, billID int64) (Bill, error) {
	return s.repo.GetBill(ctx, firmID, billID)
}

// List returns the firm's bills of one type.
func (s *Service) List(ctx context.Context, firmID int64, billType BillType) ([]Bill, error) {
	return s.repo.ListBills(ctx, firmID, billType)
}

// applyStock mutates inventory per cart line: sales consume, purchases
// receive. The first failing line aborts the whole bill with an error naming
// it.
func (s *Service) applyStock(ctx context.Context, st stock.BatchStore, firmID, actorID int64, billType BillType, billID int64, cart []CartLine) error {
	for i, line := range cart {
		if line.StockID == 0 {
			continue // service line, no inventory behind it
		}
		var err error
		if billType == BillSales {
			_, err = stock.Consume(ctx, st, firmID, stock.ConsumeInput{
				ItemID: line.StockID,
				Batch:  stock.BatchRef{Index: line.BatchIndex, Label: line.BatchLabel},
				Qty:    line.Qty,
				Rate:   line.Rate,
			}, &billID, actorID)
		} else {
			_, err = stock.Receive(ctx, st, firmID, stock.ReceiveInput{
				ItemID: line.StockID,
				Label:  line.BatchLabel,
				Qty:    line.Qty,
				Rate:   line.Rate,
			}, stock.MovementReceipt, &billID, actorID)
		}
		if err != nil {
			return fmt.Errorf("billing: line %d (%s): %w", i, line.Item, err)
		}
	}
	return nil
}

// undoStock restores every movement recorded for the bill and deletes the
// movement records, leaving inventory exactly as before the bill.
func (s *Service) undoStock(ctx context.Context, st stock.BatchStore, firmID, billID int64) error {
	movements, err := st.DeleteMovementsForBill(ctx, firmID, billID)
	if err != nil {
		return err
	}
	for _, m := range movements {
		if err := stock.Restore(ctx, st, firmID, m); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) postingLines(billType BillType, party parties.Party, billID int64, totals Totals, in CreateInput) []ledger.Line {
	amounts := billAmounts(totals, in.Meta.ReverseCharge)
	charges := ledgerCharges(in.OtherCharges)
	if billType == BillPurchase {
		return ledger.PurchaseLines(party.Name, party.ID, billID, amounts, charges)
	}
	return ledger.SalesLines(party.Name, party.ID, billID, amounts, charges)
}

func (s *Service) finish(ctx context.Context, firmID, actorID int64, action string, bill Bill) {
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			FirmID:   firmID,
			ActorID:  actorID,
			Action:   action,
			Entity:   "bill",
			EntityID: fmt.Sprintf("%d", bill.ID),
			Meta:     map[string]any{"bill_no": bill.No, "type": string(bill.Type), "net": bill.Totals.Net},
			At:       s.now(),
		})
	}
	if s.bump != nil {
		if err := s.bump.Bump(ctx, firmID); err != nil && s.logger != nil {
			s.logger.Warn("books bump failed", slog.Int64("firm", firmID), slog.Any("error", err))
		}
	}
}
