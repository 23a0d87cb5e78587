package billing

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/munimji/munimji/internal/ledger"
	"github.com/munimji/munimji/internal/platform/db"
	"github.com/munimji/munimji/internal/stock"
)

// Store is the transactional surface of a bill write. Stock and Ledger hand
// out stores bound to the same transaction, which is what makes a bill
// atomic across all three concerns.
type Store interface {
	InsertBill(ctx context.Context, b Bill) (int64, error)
	GetBillForUpdate(ctx context.Context, firmID, billID int64) (Bill, error)
	UpdateBill(ctx context.Context, b Bill) error
	MarkCancelled(ctx context.Context, firmID, billID, actorID int64, reason string, at time.Time) error
	Stock() stock.BatchStore
	Ledger() ledger.GroupStore
}

// Repository persists bills.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn against a Store bound to one transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, TxStore{Q: tx})
	})
}

// GetBill loads a bill scoped to the firm.
func (r *Repository) GetBill(ctx context.Context, firmID, billID int64) (Bill, error) {
	return scanBill(r.pool.QueryRow(ctx,
		`SELECT `+billColumns+` FROM bills WHERE firm_id=$1 AND id=$2`, firmID, billID))
}

// ListBills returns the firm's bills of one type, newest first.
func (r *Repository) ListBills(ctx context.Context, firmID int64, billType BillType) ([]Bill, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+billColumns+` FROM bills WHERE firm_id=$1 AND bill_type=$2 ORDER BY bill_date DESC, id DESC`,
		firmID, string(billType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// TxStore implements Store over a single transaction.
type TxStore struct {
	Q db.Querier
}

// Stock returns the batch store bound to this transaction.
func (s TxStore) Stock() stock.BatchStore {
	return stock.TxStore{Q: s.Q}
}

// Ledger returns the posting store bound to this transaction.
func (s TxStore) Ledger() ledger.GroupStore {
	return ledger.TxStore{Q: s.Q}
}

const billColumns = `id, firm_id, bill_type, bill_no, bill_date, status, party, consignee, meta, cart, other_charges,
gross_total, taxable, cgst, sgst, igst, round_off, net_total, ledger_group_id,
COALESCE(cancel_reason,''), cancelled_by, cancelled_at, created_by, created_at, updated_at`

// InsertBill persists a new bill row and returns its id.
func (s TxStore) InsertBill(ctx context.Context, b Bill) (int64, error) {
	var id int64
	err := s.Q.QueryRow(ctx,
		`INSERT INTO bills
(firm_id, bill_type, bill_no, bill_date, status, party_id, party, consignee, meta, cart, other_charges,
 gross_total, taxable, cgst, sgst, igst, round_off, net_total, ledger_group_id, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
RETURNING id`,
		b.FirmID, string(b.Type), b.No, b.Date, string(StatusActive), b.Party.ID,
		b.Party, b.Consignee, b.Meta, b.Cart, b.OtherCharges,
		b.Totals.Gross, b.Totals.Taxable, b.Totals.CGST, b.Totals.SGST, b.Totals.IGST,
		b.Totals.RoundOff, b.Totals.Net, b.LedgerGroupID, b.CreatedBy,
	).Scan(&id)
	return id, err
}

// GetBillForUpdate locks and loads a bill for the rest of the transaction.
func (s TxStore) GetBillForUpdate(ctx context.Context, firmID, billID int64) (Bill, error) {
	return scanBill(s.Q.QueryRow(ctx,
		`SELECT `+billColumns+` FROM bills WHERE firm_id=$1 AND id=$2 FOR UPDATE`, firmID, billID))
}

// UpdateBill rewrites a bill's content. Number, type and ledger group stay.
func (s TxStore) UpdateBill(ctx context.Context, b Bill) error {
	tag, err := s.Q.Exec(ctx,
		`UPDATE bills SET bill_date=$3, party_id=$4, party=$5, consignee=$6, meta=$7, cart=$8, other_charges=$9,
gross_total=$10, taxable=$11, cgst=$12, sgst=$13, igst=$14, round_off=$15, net_total=$16, updated_at=NOW()
WHERE firm_id=$1 AND id=$2 AND status=$17`,
		b.FirmID, b.ID, b.Date, b.Party.ID, b.Party, b.Consignee, b.Meta, b.Cart, b.OtherCharges,
		b.Totals.Gross, b.Totals.Taxable, b.Totals.CGST, b.Totals.SGST, b.Totals.IGST,
		b.Totals.RoundOff, b.Totals.Net, string(StatusActive))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBillNotFound
	}
	return nil
}

// MarkCancelled flips the bill into its terminal state.
func (s TxStore) MarkCancelled(ctx context.Context, firmID, billID, actorID int64, reason string, at time.Time) error {
	tag, err := s.Q.Exec(ctx,
		`UPDATE bills SET status=$3, cancel_reason=NULLIF($4,''), cancelled_by=$5, cancelled_at=$6, updated_at=NOW()
WHERE firm_id=$1 AND id=$2 AND status=$7`,
		firmID, billID, string(StatusCancelled), reason, actorID, at, string(StatusActive))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBillCancelled
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBill(row rowScanner) (Bill, error) {
	var (
		b        Bill
		billType string
		status   string
		cancelBy *int64
		cancelAt *time.Time
	)
	err := row.Scan(&b.ID, &b.FirmID, &billType, &b.No, &b.Date, &status,
		&b.Party, &b.Consignee, &b.Meta, &b.Cart, &b.OtherCharges,
		&b.Totals.Gross, &b.Totals.Taxable, &b.Totals.CGST, &b.Totals.SGST, &b.Totals.IGST,
		&b.Totals.RoundOff, &b.Totals.Net, &b.LedgerGroupID,
		&b.CancelReason, &cancelBy, &cancelAt, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bill{}, ErrBillNotFound
		}
		return Bill{}, err
	}
	b.Type = BillType(billType)
	b.Status = BillStatus(status)
	b.CancelledBy = cancelBy
	b.CancelledAt = cancelAt
	return b, nil
}
