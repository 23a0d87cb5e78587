package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sumSides(lines []Line) (debit, credit float64) {
	for _, l := range lines {
		debit += l.Debit
		credit += l.Credit
	}
	return
}

func TestSalesLinesIntraState(t *testing.T) {
	// 2 x 100 @ 18% GST, intra-state: taxable 200, cgst=sgst=18, net 236.
	lines := SalesLines("Acme Traders", 5, 42, BillAmounts{
		Taxable: 200, CGST: 18, SGST: 18, Net: 236,
	}, nil)

	require.Len(t, lines, 4)
	assert.Equal(t, "Acme Traders", lines[0].AccountHead)
	assert.Equal(t, AccountDebtor, lines[0].AccountType)
	assert.InDelta(t, 236, lines[0].Debit, 1e-9)
	assert.Equal(t, HeadCGSTPayable, lines[1].AccountHead)
	assert.Equal(t, AccountLiability, lines[1].AccountType)
	assert.Equal(t, HeadSGSTPayable, lines[2].AccountHead)
	assert.Equal(t, HeadSales, lines[3].AccountHead)
	assert.InDelta(t, 200, lines[3].Credit, 1e-9)

	require.NoError(t, CheckBalanced(lines))
}

func TestSalesLinesInterStateWithRoundOff(t *testing.T) {
	// rate 99.5 scenario: taxable 199, igst 35.82, raw 234.82 -> net 235,
	// round-off +0.18 credited.
	lines := SalesLines("Acme", 5, 42, BillAmounts{
		Taxable: 199, IGST: 35.82, RoundOff: 0.18, Net: 235,
	}, nil)

	require.Len(t, lines, 4)
	assert.Equal(t, HeadIGSTPayable, lines[1].AccountHead)
	assert.Equal(t, HeadRoundOff, lines[2].AccountHead)
	assert.Equal(t, AccountExpense, lines[2].AccountType)
	assert.InDelta(t, 0.18, lines[2].Credit, 1e-9)
	assert.Zero(t, lines[2].Debit)
	require.NoError(t, CheckBalanced(lines))
}

func TestSalesLinesNegativeRoundOffDebits(t *testing.T) {
	lines := SalesLines("Acme", 5, 42, BillAmounts{
		Taxable: 100.30, RoundOff: -0.30, Net: 100,
	}, nil)

	var found bool
	for _, l := range lines {
		if l.AccountHead == HeadRoundOff {
			found = true
			assert.InDelta(t, 0.30, l.Debit, 1e-9)
			assert.Zero(t, l.Credit)
		}
	}
	assert.True(t, found)
	require.NoError(t, CheckBalanced(lines))
}

func TestSalesLinesOtherChargesCreditedIndividually(t *testing.T) {
	lines := SalesLines("Acme", 5, 42, BillAmounts{
		Taxable: 200, CGST: 19.8, SGST: 19.8, Net: 259.6,
	}, []Charge{{Name: "Freight", Amount: 20}})

	var freight, sales float64
	for _, l := range lines {
		switch l.AccountHead {
		case "Freight":
			freight = l.Credit
			assert.Equal(t, AccountIncome, l.AccountType)
		case HeadSales:
			sales = l.Credit
		}
	}
	assert.InDelta(t, 20, freight, 1e-9)
	// Sales carries taxable line values only, not the charge.
	assert.InDelta(t, 200, sales, 1e-9)
	require.NoError(t, CheckBalanced(lines))
}

func TestPurchaseLinesMirrorSales(t *testing.T) {
	lines := PurchaseLines("Mega Suppliers", 9, 43, BillAmounts{
		Taxable: 200, CGST: 18, SGST: 18, Net: 236,
	}, nil)

	require.Len(t, lines, 4)
	assert.Equal(t, AccountCreditor, lines[0].AccountType)
	assert.InDelta(t, 236, lines[0].Credit, 1e-9)
	assert.Equal(t, HeadCGSTReceivable, lines[1].AccountHead)
	assert.Equal(t, AccountGeneral, lines[1].AccountType)
	assert.InDelta(t, 18, lines[1].Debit, 1e-9)
	assert.Equal(t, HeadPurchases, lines[3].AccountHead)
	assert.Equal(t, AccountExpense, lines[3].AccountType)
	assert.InDelta(t, 200, lines[3].Debit, 1e-9)
	require.NoError(t, CheckBalanced(lines))
}

func TestSettlementAccount(t *testing.T) {
	head, accType := SettlementAccount("Cash", "", "")
	assert.Equal(t, "Cash", head)
	assert.Equal(t, AccountCash, accType)

	head, accType = SettlementAccount("NEFT Transfer", "", "")
	assert.Equal(t, "NEFT Transfer", head)
	assert.Equal(t, AccountBank, accType)

	head, accType = SettlementAccount("cheque", "HDFC Bank", "50100234567891")
	assert.Equal(t, "HDFC Bank - 7891XXXX", head)
	assert.Equal(t, AccountBank, accType)

	head, accType = SettlementAccount("", "", "")
	assert.Equal(t, HeadCash, head)
	assert.Equal(t, AccountCash, accType)
}

func TestReceiptLinesTwoLineShape(t *testing.T) {
	lines := ReceiptLines("Acme", 5, 5000, "Cash", AccountCash)
	require.Len(t, lines, 2)
	assert.Equal(t, "Cash", lines[0].AccountHead)
	assert.InDelta(t, 5000, lines[0].Debit, 1e-9)
	assert.Equal(t, "Acme", lines[1].AccountHead)
	assert.Equal(t, AccountDebtor, lines[1].AccountType)
	assert.InDelta(t, 5000, lines[1].Credit, 1e-9)
	require.NoError(t, CheckBalanced(lines))
}

func TestPaymentLinesTwoLineShape(t *testing.T) {
	lines := PaymentLines("Mega Suppliers", 9, 1200, "UPI", AccountBank)
	require.Len(t, lines, 2)
	assert.Equal(t, AccountCreditor, lines[0].AccountType)
	assert.InDelta(t, 1200, lines[0].Debit, 1e-9)
	assert.Equal(t, "UPI", lines[1].AccountHead)
	assert.InDelta(t, 1200, lines[1].Credit, 1e-9)
}

func TestCheckBalanced(t *testing.T) {
	ok := []Line{
		{AccountHead: "Rent", AccountType: AccountExpense, Debit: 1000},
		{AccountHead: "Cash", AccountType: AccountCash, Credit: 1000},
	}
	require.NoError(t, CheckBalanced(ok))

	unbalanced := []Line{
		{AccountHead: "Rent", AccountType: AccountExpense, Debit: 1000},
		{AccountHead: "Cash", AccountType: AccountCash, Credit: 900},
	}
	assert.ErrorIs(t, CheckBalanced(unbalanced), ErrUnbalanced)

	both := []Line{
		{AccountHead: "Rent", Debit: 10, Credit: 10},
		{AccountHead: "Cash", Credit: 0.0},
	}
	assert.ErrorIs(t, CheckBalanced(both), ErrBothSides)

	empty := []Line{
		{AccountHead: "Rent", Debit: 10},
		{AccountHead: "Cash"},
	}
	assert.ErrorIs(t, CheckBalanced(empty), ErrEmptyLine)

	assert.ErrorIs(t, CheckBalanced([]Line{{AccountHead: "Rent", Debit: 1}}), ErrTooFewLines)

	// Within tolerance passes.
	within := []Line{
		{AccountHead: "A", Debit: 100.004},
		{AccountHead: "B", Credit: 100},
	}
	assert.NoError(t, CheckBalanced(within))
}

func TestReverseEntriesSwapsSides(t *testing.T) {
	pid := int64(5)
	entries := []Entry{
		{AccountHead: "Acme", AccountType: AccountDebtor, Debit: 236, PartyID: &pid},
		{AccountHead: HeadCGSTPayable, AccountType: AccountLiability, Credit: 18},
		{AccountHead: HeadSGSTPayable, AccountType: AccountLiability, Credit: 18},
		{AccountHead: HeadSales, AccountType: AccountIncome, Credit: 200},
	}
	rev := ReverseEntries(entries)
	require.Len(t, rev, 4)
	assert.InDelta(t, 236, rev[0].Credit, 1e-9)
	assert.Zero(t, rev[0].Debit)
	assert.Equal(t, &pid, rev[0].PartyID)
	require.NoError(t, CheckBalanced(rev))

	// Original plus reversal nets to zero on both sides per head.
	d1, c1 := sumSides(rev)
	assert.InDelta(t, d1, c1, 1e-9)
}
