package ledger

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/munimji/munimji/internal/platform/db"
	"github.com/munimji/munimji/internal/sequence"
)

// EntryHeader carries the per-transaction fields shared by all lines of a
// posting.
type EntryHeader struct {
	VoucherNo string
	Narration string
	Date      time.Time
	CreatedBy int64
}

// GroupStore is the transactional persistence surface of the posting engine.
// Billing runs it inside its own transaction next to stock and sequence
// mutations, so everything commits or nothing does.
type GroupStore interface {
	NewGroup(ctx context.Context, firmID int64, kind VoucherType, reversalOf *int64) (TransactionGroup, error)
	InsertEntries(ctx context.Context, firmID int64, group TransactionGroup, hdr EntryHeader, lines []Line) ([]Entry, error)
	DeleteEntries(ctx context.Context, firmID int64, groupID int64) (int64, error)
	EntriesForGroup(ctx context.Context, firmID int64, groupID int64) ([]Entry, error)
	HasReversal(ctx context.Context, firmID int64, groupID int64) (bool, error)
	NextNumber(ctx context.Context, firmID int64, kind VoucherType, at time.Time) (string, error)
}

// Repository persists ledger entries and transaction groups.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn against a GroupStore bound to one transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, store GroupStore) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, TxStore{Q: tx})
	})
}

// TxStore implements GroupStore over a single transaction (or, for one-shot
// callers, directly over the pool).
type TxStore struct {
	Q db.Querier
}

// NewGroup allocates a transaction group id tagged with its voucher kind.
func (s TxStore) NewGroup(ctx context.Context, firmID int64, kind VoucherType, reversalOf *int64) (TransactionGroup, error) {
	var id int64
	err := s.Q.QueryRow(ctx,
		`INSERT INTO voucher_groups (firm_id, kind, reversal_of) VALUES ($1, $2, $3) RETURNING id`,
		firmID, string(kind), reversalOf,
	).Scan(&id)
	if err != nil {
		return TransactionGroup{}, err
	}
	return TransactionGroup{Kind: kind, ID: id}, nil
}

const entryColumns = `id, firm_id, voucher_id, voucher_type, voucher_no, account_head, account_type,
debit, credit, COALESCE(narration,''), party_id, bill_id, entry_date, created_by, created_at`

// InsertEntries validates the balance invariant and persists the group's
// lines in one batch. Nothing is written when validation fails.
func (s TxStore) InsertEntries(ctx context.Context, firmID int64, group TransactionGroup, hdr EntryHeader, lines []Line) ([]Entry, error) {
	if err := CheckBalanced(lines); err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(lines))
	for _, line := range lines {
		row := s.Q.QueryRow(ctx,
			`INSERT INTO ledger_entries
(firm_id, voucher_id, voucher_type, voucher_no, account_head, account_type, debit, credit, narration, party_id, bill_id, entry_date, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULLIF($9,''),$10,$11,$12,$13)
RETURNING `+entryColumns,
			firmID, group.ID, string(group.Kind), hdr.VoucherNo,
			line.AccountHead, string(line.AccountType), line.Debit, line.Credit,
			hdr.Narration, line.PartyID, line.BillID, hdr.Date, hdr.CreatedBy,
		)
		e, err := scanEntry(row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// DeleteEntries removes every line of a group, returning the count. Used by
// the delete-and-recreate update path only, never by cancellation.
func (s TxStore) DeleteEntries(ctx context.Context, firmID int64, groupID int64) (int64, error) {
	tag, err := s.Q.Exec(ctx,
		`DELETE FROM ledger_entries WHERE firm_id=$1 AND voucher_id=$2`, firmID, groupID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// EntriesForGroup loads a group's lines in insertion order.
func (s TxStore) EntriesForGroup(ctx context.Context, firmID int64, groupID int64) ([]Entry, error) {
	rows, err := s.Q.Query(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries WHERE firm_id=$1 AND voucher_id=$2 ORDER BY id`,
		firmID, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// HasReversal reports whether a reversal group already points at groupID.
func (s TxStore) HasReversal(ctx context.Context, firmID int64, groupID int64) (bool, error) {
	var exists bool
	err := s.Q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM voucher_groups WHERE firm_id=$1 AND reversal_of=$2)`,
		firmID, groupID).Scan(&exists)
	return exists, err
}

// NextNumber hands out the next voucher number inside the same transaction,
// so an aborted posting never burns a number that was already persisted.
func (s TxStore) NextNumber(ctx context.Context, firmID int64, kind VoucherType, at time.Time) (string, error) {
	return sequence.NextTx(ctx, s.Q, firmID, string(kind), at)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e    Entry
		kind string
		at   string
	)
	err := row.Scan(&e.ID, &e.FirmID, &e.Group.ID, &kind, &e.VoucherNo, &e.AccountHead, &at,
		&e.Debit, &e.Credit, &e.Narration, &e.PartyID, &e.BillID, &e.Date, &e.CreatedBy, &e.CreatedAt)
	if err != nil {
		return Entry{}, err
	}
	e.Group.Kind = VoucherType(kind)
	e.AccountType = AccountType(at)
	return e, nil
}
