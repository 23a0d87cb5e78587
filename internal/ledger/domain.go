// Package ledger implements double-entry posting over per-firm ledger
// entries. Every logical transaction (bill, voucher, journal) owns a
// transaction group whose entries always balance.
package ledger

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// VoucherType enumerates the transaction kinds sharing the numbering space.
type VoucherType string

const (
	VoucherSales    VoucherType = "SALES"
	VoucherPurchase VoucherType = "PURCHASE"
	VoucherPayment  VoucherType = "PAYMENT"
	VoucherReceipt  VoucherType = "RECEIPT"
	VoucherJournal  VoucherType = "JOURNAL"
)

// AccountType classifies account heads.
type AccountType string

const (
	AccountDebtor    AccountType = "DEBTOR"
	AccountCreditor  AccountType = "CREDITOR"
	AccountCash      AccountType = "CASH"
	AccountBank      AccountType = "BANK"
	AccountIncome    AccountType = "INCOME"
	AccountExpense   AccountType = "EXPENSE"
	AccountLiability AccountType = "LIABILITY"
	AccountGeneral   AccountType = "GENERAL"
)

// TransactionGroup identifies all ledger lines of one logical transaction.
// The kind travels with the id so grouping semantics are type-checked rather
// than convention-based.
type TransactionGroup struct {
	Kind VoucherType `json:"kind"`
	ID   int64       `json:"id"`
}

// Entry is the atomic unit of bookkeeping.
type Entry struct {
	ID          int64            `json:"id"`
	FirmID      int64            `json:"firmId"`
	Group       TransactionGroup `json:"group"`
	VoucherNo   string           `json:"voucherNo"`
	AccountHead string           `json:"accountHead"`
	AccountType AccountType      `json:"accountType"`
	Debit       float64          `json:"debit"`
	Credit      float64          `json:"credit"`
	Narration   string           `json:"narration,omitempty"`
	PartyID     *int64           `json:"partyId,omitempty"`
	BillID      *int64           `json:"billId,omitempty"`
	Date        time.Time        `json:"date"`
	CreatedBy   int64            `json:"createdBy"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// Line is one side of a posting before persistence.
type Line struct {
	AccountHead string
	AccountType AccountType
	Debit       float64
	Credit      float64
	PartyID     *int64
	BillID      *int64
}

// BalanceTolerance is the float tolerance for the balance invariant.
const BalanceTolerance = 0.01

var (
	// ErrUnbalanced indicates total debit != total credit.
	ErrUnbalanced = errors.New("ledger: entries must balance")
	// ErrBothSides indicates a line with both debit and credit set.
	ErrBothSides = errors.New("ledger: line cannot carry both debit and credit")
	// ErrEmptyLine indicates a line with neither side set.
	ErrEmptyLine = errors.New("ledger: line needs a debit or credit amount")
	// ErrTooFewLines indicates fewer than two lines.
	ErrTooFewLines = errors.New("ledger: at least two lines required")
	// ErrGroupNotFound indicates a missing transaction group.
	ErrGroupNotFound = errors.New("ledger: transaction group not found")
	// ErrNumberImmutable indicates an attempt to change a voucher number on update.
	ErrNumberImmutable = errors.New("ledger: voucher number cannot change")
	// ErrWrongKind indicates a group of an unexpected voucher type.
	ErrWrongKind = errors.New("ledger: unexpected voucher type for group")
	// ErrAlreadyReversed indicates a group that already has a reversal posted.
	ErrAlreadyReversed = errors.New("ledger: transaction already reversed")
)

// CheckBalanced verifies every line carries exactly one side and the totals
// agree within BalanceTolerance. Nothing may be persisted when it fails.
func CheckBalanced(lines []Line) error {
	if len(lines) < 2 {
		return ErrTooFewLines
	}
	var debit, credit float64
	for idx, line := range lines {
		if line.AccountHead == "" {
			return fmt.Errorf("ledger: line %d missing account head", idx)
		}
		if line.Debit < 0 || line.Credit < 0 {
			return fmt.Errorf("ledger: line %d negative amount", idx)
		}
		if line.Debit > 0 && line.Credit > 0 {
			return fmt.Errorf("%w (line %d %q)", ErrBothSides, idx, line.AccountHead)
		}
		if line.Debit == 0 && line.Credit == 0 {
			return fmt.Errorf("%w (line %d %q)", ErrEmptyLine, idx, line.AccountHead)
		}
		debit += line.Debit
		credit += line.Credit
	}
	if math.Abs(debit-credit) > BalanceTolerance+1e-9 {
		return fmt.Errorf("%w: debit %.2f vs credit %.2f", ErrUnbalanced, debit, credit)
	}
	return nil
}

// ReverseEntries mirrors persisted entries into reversal lines, swapping
// debit and credit. Posting them as a new group nets the original to zero
// while preserving the paper trail.
func ReverseEntries(entries []Entry) []Line {
	out := make([]Line, 0, len(entries))
	for _, e := range entries {
		out = append(out, Line{
			AccountHead: e.AccountHead,
			AccountType: e.AccountType,
			Debit:       e.Credit,
			Credit:      e.Debit,
			PartyID:     e.PartyID,
			BillID:      e.BillID,
		})
	}
	return out
}
