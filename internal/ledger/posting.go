package ledger

import (
	"fmt"
	"strings"
)

// Well-known account heads for bill postings.
const (
	HeadSales          = "Sales"
	HeadPurchases      = "Purchases"
	HeadRoundOff       = "Round Off"
	HeadCGSTPayable    = "CGST Payable"
	HeadSGSTPayable    = "SGST Payable"
	HeadIGSTPayable    = "IGST Payable"
	HeadCGSTReceivable = "CGST Receivable"
	HeadSGSTReceivable = "SGST Receivable"
	HeadIGSTReceivable = "IGST Receivable"
	HeadCash           = "Cash"
)

// BillAmounts carries the computed money figures of a bill that drive its
// ledger posting. RoundOff is signed: positive means the bill was rounded up.
type BillAmounts struct {
	Taxable  float64
	CGST     float64
	SGST     float64
	IGST     float64
	RoundOff float64
	Net      float64
}

// Charge is a named extra amount on a bill (freight, packing and the like)
// posted under its own head.
type Charge struct {
	Name   string
	Amount float64
}

// SalesLines builds the posting for a sales bill. The party is debited for
// the collectible net; tax, round-off, charges and the sales head carry the
// credit side. Order is fixed so ledgers read the same across bills.
func SalesLines(partyAccount string, partyID, billID int64, amt BillAmounts, charges []Charge) []Line {
	pid, bid := partyID, billID
	lines := []Line{{
		AccountHead: partyAccount,
		AccountType: AccountDebtor,
		Debit:       amt.Net,
		PartyID:     &pid,
		BillID:      &bid,
	}}
	for _, t := range []struct {
		head string
		amt  float64
	}{
		{HeadCGSTPayable, amt.CGST},
		{HeadSGSTPayable, amt.SGST},
		{HeadIGSTPayable, amt.IGST},
	} {
		if t.amt > 0 {
			lines = append(lines, Line{AccountHead: t.head, AccountType: AccountLiability, Credit: t.amt, BillID: &bid})
		}
	}
	lines = append(lines, roundOffLine(amt.RoundOff, false, &bid)...)
	for _, c := range charges {
		if c.Amount != 0 {
			lines = append(lines, Line{AccountHead: c.Name, AccountType: AccountIncome, Credit: c.Amount, BillID: &bid})
		}
	}
	lines = append(lines, Line{AccountHead: HeadSales, AccountType: AccountIncome, Credit: amt.Taxable, BillID: &bid})
	return lines
}

// PurchaseLines mirrors SalesLines for a purchase bill: the party is
// credited, input tax sits in receivable heads and the purchases head takes
// the taxable value on the debit side.
func PurchaseLines(partyAccount string, partyID, billID int64, amt BillAmounts, charges []Charge) []Line {
	pid, bid := partyID, billID
	lines := []Line{{
		AccountHead: partyAccount,
		AccountType: AccountCreditor,
		Credit:      amt.Net,
		PartyID:     &pid,
		BillID:      &bid,
	}}
	for _, t := range []struct {
		head string
		amt  float64
	}{
		{HeadCGSTReceivable, amt.CGST},
		{HeadSGSTReceivable, amt.SGST},
		{HeadIGSTReceivable, amt.IGST},
	} {
		if t.amt > 0 {
			lines = append(lines, Line{AccountHead: t.head, AccountType: AccountGeneral, Debit: t.amt, BillID: &bid})
		}
	}
	lines = append(lines, roundOffLine(amt.RoundOff, true, &bid)...)
	for _, c := range charges {
		if c.Amount != 0 {
			lines = append(lines, Line{AccountHead: c.Name, AccountType: AccountExpense, Debit: c.Amount, BillID: &bid})
		}
	}
	lines = append(lines, Line{AccountHead: HeadPurchases, AccountType: AccountExpense, Debit: amt.Taxable, BillID: &bid})
	return lines
}

// roundOffLine picks the side for the round-off head. On a sales bill a
// positive round-off (rounded up) is extra income credited; rounding down is
// a debit. Purchases mirror that.
func roundOffLine(roundOff float64, purchase bool, billID *int64) []Line {
	if roundOff == 0 {
		return nil
	}
	line := Line{AccountHead: HeadRoundOff, AccountType: AccountExpense, BillID: billID}
	amount := roundOff
	if amount < 0 {
		amount = -amount
	}
	credit := roundOff > 0
	if purchase {
		credit = !credit
	}
	if credit {
		line.Credit = amount
	} else {
		line.Debit = amount
	}
	return []Line{line}
}

var bankModeHints = []string{"bank", "cheque", "neft", "rtgs", "upi", "imps", "card"}

// SettlementAccount derives the cash-side account of a payment or receipt
// from the stated mode. A known bank gets its own head named after the
// masked account number; otherwise the mode string decides between a bank
// head and the cash book.
func SettlementAccount(mode, bankName, accountNo string) (string, AccountType) {
	if bankName != "" {
		return fmt.Sprintf("%s - %sXXXX", bankName, lastDigits(accountNo, 4)), AccountBank
	}
	head := strings.TrimSpace(mode)
	lower := strings.ToLower(head)
	for _, hint := range bankModeHints {
		if strings.Contains(lower, hint) {
			if head == "" {
				head = "Bank"
			}
			return head, AccountBank
		}
	}
	if head == "" {
		head = HeadCash
	}
	return head, AccountCash
}

func lastDigits(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// PaymentLines posts money going out: the creditor is debited and the
// settlement account credited.
func PaymentLines(partyAccount string, partyID int64, amount float64, settleHead string, settleType AccountType) []Line {
	pid := partyID
	return []Line{
		{AccountHead: partyAccount, AccountType: AccountCreditor, Debit: amount, PartyID: &pid},
		{AccountHead: settleHead, AccountType: settleType, Credit: amount},
	}
}

// ReceiptLines posts money coming in: the settlement account is debited and
// the debtor credited.
func ReceiptLines(partyAccount string, partyID int64, amount float64, settleHead string, settleType AccountType) []Line {
	pid := partyID
	return []Line{
		{AccountHead: settleHead, AccountType: settleType, Debit: amount},
		{AccountHead: partyAccount, AccountType: AccountDebtor, Credit: amount, PartyID: &pid},
	}
}
