// Package reports shapes ledger aggregates into display-ready report rows.
// It is read-only: all numbers come straight from the ledger aggregation
// layer, never from a cache.
package reports

import "math"

// balanceTolerance mirrors the posting-side balance check.
const balanceTolerance = 0.01

// AccountBalance is the input row for report building: one account head's
// position as the aggregation layer computed it.
type AccountBalance struct {
	AccountHead string
	AccountType string
	TotalDebit  float64
	TotalCredit float64
	Balance     float64
	BalanceType string
}

// Row is one account line of a trial balance or account summary.
type Row struct {
	AccountHead string  `json:"accountHead"`
	AccountType string  `json:"accountType"`
	Debit       float64 `json:"debit"`
	Credit      float64 `json:"credit"`
	Balance     float64 `json:"balance"`
	BalanceType string  `json:"balanceType"`
	Display     string  `json:"display"`
}

// TrialBalance summarises every active account with side totals. Balanced
// reports true when total debit and credit agree within tolerance; a false
// value points at broken postings, not rounding.
type TrialBalance struct {
	Rows        []Row   `json:"rows"`
	TotalDebit  float64 `json:"totalDebit"`
	TotalCredit float64 `json:"totalCredit"`
	Balanced    bool    `json:"balanced"`
}

// BuildTrialBalance folds balances into a report.
func BuildTrialBalance(balances []AccountBalance) TrialBalance {
	tb := TrialBalance{Rows: make([]Row, 0, len(balances))}
	for _, b := range balances {
		tb.Rows = append(tb.Rows, toRow(b))
		tb.TotalDebit += b.TotalDebit
		tb.TotalCredit += b.TotalCredit
	}
	tb.Balanced = math.Abs(tb.TotalDebit-tb.TotalCredit) <= balanceTolerance
	return tb
}

// GroupByType buckets account summaries by account type for the
// chart-of-accounts view, preserving input order within each bucket.
func GroupByType(balances []AccountBalance) map[string][]Row {
	out := map[string][]Row{}
	for _, b := range balances {
		out[b.AccountType] = append(out[b.AccountType], toRow(b))
	}
	return out
}

func toRow(b AccountBalance) Row {
	return Row{
		AccountHead: b.AccountHead,
		AccountType: b.AccountType,
		Debit:       b.TotalDebit,
		Credit:      b.TotalCredit,
		Balance:     math.Abs(b.Balance),
		BalanceType: b.BalanceType,
		Display:     Amount(math.Abs(b.Balance)) + " " + b.BalanceType,
	}
}
