package ledger

import (
	"context"
	"time"
)

// Balance summarises one account head's position.
type Balance struct {
	AccountHead string      `json:"accountHead"`
	AccountType AccountType `json:"accountType"`
	TotalDebit  float64     `json:"totalDebit"`
	TotalCredit float64     `json:"totalCredit"`
	Balance     float64     `json:"balance"`
	BalanceType string      `json:"balanceType"`
}

func balanceType(balance float64) string {
	if balance >= 0 {
		return "Dr"
	}
	return "Cr"
}

// AccountBalance sums all entries for one account head, optionally up to a
// date (inclusive). A head with no entries yields a zero balance, not an
// error.
func (r *Repository) AccountBalance(ctx context.Context, firmID int64, accountHead string, asOf *time.Time) (Balance, error) {
	query := `SELECT COALESCE(SUM(debit),0), COALESCE(SUM(credit),0), COALESCE(MAX(account_type),'')
FROM ledger_entries WHERE firm_id=$1 AND account_head=$2`
	args := []any{firmID, accountHead}
	if asOf != nil {
		query += ` AND entry_date <= $3`
		args = append(args, *asOf)
	}
	b := Balance{AccountHead: accountHead}
	var at string
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&b.TotalDebit, &b.TotalCredit, &at); err != nil {
		return Balance{}, err
	}
	b.AccountType = AccountType(at)
	b.Balance = b.TotalDebit - b.TotalCredit
	b.BalanceType = balanceType(b.Balance)
	return b, nil
}

// TrialBalance returns one row per account head active in the period,
// balanced as of the period end. A single grouped pass, not one query per
// account.
func (r *Repository) TrialBalance(ctx context.Context, firmID int64, from, to time.Time) ([]Balance, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT e.account_head, MAX(e.account_type), COALESCE(SUM(e.debit),0), COALESCE(SUM(e.credit),0)
FROM ledger_entries e
WHERE e.firm_id=$1 AND e.entry_date <= $3
  AND e.account_head IN (
    SELECT DISTINCT account_head FROM ledger_entries
    WHERE firm_id=$1 AND entry_date >= $2 AND entry_date <= $3)
GROUP BY e.account_head
ORDER BY e.account_head`,
		firmID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBalances(rows)
}

// LedgerAccounts groups every entry by (account head, account type) for the
// chart-of-accounts view.
func (r *Repository) LedgerAccounts(ctx context.Context, firmID int64) ([]Balance, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT account_head, account_type, COALESCE(SUM(debit),0), COALESCE(SUM(credit),0)
FROM ledger_entries WHERE firm_id=$1
GROUP BY account_head, account_type
ORDER BY account_type, account_head`,
		firmID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBalances(rows)
}

// AccountStatement lists an account head's entries in the period, oldest
// first, for ledger display.
func (r *Repository) AccountStatement(ctx context.Context, firmID int64, accountHead string, from, to time.Time) ([]Entry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries
WHERE firm_id=$1 AND account_head=$2 AND entry_date >= $3 AND entry_date <= $4
ORDER BY entry_date, id`,
		firmID, accountHead, from, to)
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

type balanceRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanBalances(rows balanceRows) ([]Balance, error) {
	var out []Balance
	for rows.Next() {
		var (
			b  Balance
			at string
		)
		if err := rows.Scan(&b.AccountHead, &at, &b.TotalDebit, &b.TotalCredit); err != nil {
			return nil, err
		}
		b.AccountType = AccountType(at)
		b.Balance = b.TotalDebit - b.TotalCredit
		b.BalanceType = balanceType(b.Balance)
		out = append(out, b)
	}
	return out, rows.Err()
}
