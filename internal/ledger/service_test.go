package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/munimji/munimji/internal/masterdata/parties"
	"github.com/munimji/munimji/internal/sequence"
	"github.com/munimji/munimji/internal/shared"
)

// memLedger is an in-memory GroupStore shared across ledger tests.
type memLedger struct {
	groups    map[int64]groupRow
	entries   []Entry
	counters  map[string]int
	nextGroup int64
	nextEntry int64
}

type groupRow struct {
	firmID     int64
	kind       VoucherType
	reversalOf *int64
}

func newMemLedger() *memLedger {
	return &memLedger{groups: map[int64]groupRow{}, counters: map[string]int{}, nextGroup: 1, nextEntry: 1}
}

func (m *memLedger) NewGroup(_ context.Context, firmID int64, kind VoucherType, reversalOf *int64) (TransactionGroup, error) {
	id := m.nextGroup
	m.nextGroup++
	m.groups[id] = groupRow{firmID: firmID, kind: kind, reversalOf: reversalOf}
	return TransactionGroup{Kind: kind, ID: id}, nil
}

func (m *memLedger) InsertEntries(_ context.Context, firmID int64, group TransactionGroup, hdr EntryHeader, lines []Line) ([]Entry, error) {
	if err := CheckBalanced(lines); err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(lines))
	for _, l := range lines {
		e := Entry{
			ID: m.nextEntry, FirmID: firmID, Group: group, VoucherNo: hdr.VoucherNo,
			AccountHead: l.AccountHead, AccountType: l.AccountType,
			Debit: l.Debit, Credit: l.Credit, Narration: hdr.Narration,
			PartyID: l.PartyID, BillID: l.BillID, Date: hdr.Date, CreatedBy: hdr.CreatedBy,
		}
		m.nextEntry++
		m.entries = append(m.entries, e)
		out = append(out, e)
	}
	return out, nil
}

func (m *memLedger) DeleteEntries(_ context.Context, firmID int64, groupID int64) (int64, error) {
	var kept []Entry
	var n int64
	for _, e := range m.entries {
		if e.FirmID == firmID && e.Group.ID == groupID {
			n++
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return n, nil
}

func (m *memLedger) EntriesForGroup(_ context.Context, firmID int64, groupID int64) ([]Entry, error) {
	var out []Entry
	for _, e := range m.entries {
		if e.FirmID == firmID && e.Group.ID == groupID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memLedger) HasReversal(_ context.Context, firmID int64, groupID int64) (bool, error) {
	for _, g := range m.groups {
		if g.firmID == firmID && g.reversalOf != nil && *g.reversalOf == groupID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memLedger) NextNumber(_ context.Context, firmID int64, kind VoucherType, at time.Time) (string, error) {
	key := fmt.Sprintf("%d/%s/%s", firmID, sequence.FinancialYear(at), kind)
	m.counters[key]++
	prefix, err := sequence.Prefix(string(kind))
	if err != nil {
		return "", err
	}
	return sequence.Format(prefix, sequence.FinancialYear(at), int64(m.counters[key])), nil
}

type memLedgerRepo struct {
	store *memLedger
}

func (r *memLedgerRepo) WithTx(_ context.Context, fn func(context.Context, GroupStore) error) error {
	return fn(context.Background(), r.store)
}

// fakeParties enforces firm scope the way the real repository does.
type fakeParties struct {
	byID map[int64]parties.Party
}

func (f *fakeParties) GetScoped(_ context.Context, firmID, id int64) (parties.Party, error) {
	p, ok := f.byID[id]
	if !ok {
		return parties.Party{}, parties.ErrPartyNotFound
	}
	if p.FirmID != firmID {
		return parties.Party{}, shared.ErrFirmMismatch
	}
	return p, nil
}

func newLedgerService(store *memLedger) *Service {
	return NewService(&memLedgerRepo{store: store}, &fakeParties{byID: map[int64]parties.Party{
		5: {ID: 5, FirmID: 1, Name: "Acme"},
		9: {ID: 9, FirmID: 2, Name: "Foreign Party"},
	}}, nil, nil, nil)
}

func TestPostJournalBalanced(t *testing.T) {
	store := newMemLedger()
	service := newLedgerService(store)

	posted, err := service.PostJournal(context.Background(), JournalInput{
		FirmID: 1, ActorID: 7,
		Lines: []JournalLineInput{
			{AccountHead: "Rent", AccountType: AccountExpense, Debit: 1000},
			{AccountHead: "Cash", AccountType: AccountCash, Credit: 1000},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, VoucherJournal, posted.Group.Kind)
	assert.Contains(t, posted.VoucherNo, "JV/")
	require.Len(t, posted.Entries, 2)
	assert.Equal(t, posted.VoucherNo, posted.Entries[0].VoucherNo)
	assert.Equal(t, posted.Entries[0].Group.ID, posted.Entries[1].Group.ID)
}

func TestPostJournalUnbalancedRejectedBeforePersistence(t *testing.T) {
	store := newMemLedger()
	service := newLedgerService(store)

	_, err := service.PostJournal(context.Background(), JournalInput{
		FirmID: 1,
		Lines: []JournalLineInput{
			{AccountHead: "Rent", Debit: 1000},
			{AccountHead: "Cash", Credit: 900},
		},
	})
	require.ErrorIs(t, err, ErrUnbalanced)
	assert.Empty(t, store.entries)
	assert.Empty(t, store.groups)
}

func TestReceiptVoucherTwoLines(t *testing.T) {
	store := newMemLedger()
	service := newLedgerService(store)

	posted, err := service.CreateVoucher(context.Background(), VoucherInput{
		FirmID: 1, ActorID: 7, Type: VoucherReceipt,
		PartyID: 5, Amount: 5000, PaymentMode: "Cash",
	})
	require.NoError(t, err)
	require.Len(t, posted.Entries, 2)
	assert.Contains(t, posted.VoucherNo, "RV/")

	debit, credit := posted.Entries[0], posted.Entries[1]
	assert.Equal(t, "Cash", debit.AccountHead)
	assert.Equal(t, AccountCash, debit.AccountType)
	assert.InDelta(t, 5000, debit.Debit, 1e-9)
	assert.Equal(t, "Acme", credit.AccountHead)
	assert.Equal(t, AccountDebtor, credit.AccountType)
	assert.InDelta(t, 5000, credit.Credit, 1e-9)
	assert.Equal(t, debit.VoucherNo, credit.VoucherNo)
	assert.Equal(t, debit.Group.ID, credit.Group.ID)
}

func TestVoucherRejectsForeignParty(t *testing.T) {
	service := newLedgerService(newMemLedger())

	_, err := service.CreateVoucher(context.Background(), VoucherInput{
		FirmID: 1, Type: VoucherPayment, PartyID: 9, Amount: 100, PaymentMode: "Cash",
	})
	assert.ErrorIs(t, err, shared.ErrFirmMismatch)
}

func TestVoucherValidation(t *testing.T) {
	service := newLedgerService(newMemLedger())

	_, err := service.CreateVoucher(context.Background(), VoucherInput{FirmID: 1, Type: VoucherJournal, PartyID: 5, Amount: 1})
	assert.ErrorIs(t, err, ErrWrongKind)

	_, err = service.CreateVoucher(context.Background(), VoucherInput{FirmID: 1, Type: VoucherReceipt, PartyID: 5})
	assert.Error(t, err)
}

func TestUpdateVoucherKeepsNumber(t *testing.T) {
	store := newMemLedger()
	service := newLedgerService(store)

	posted, err := service.CreateVoucher(context.Background(), VoucherInput{
		FirmID: 1, Type: VoucherReceipt, PartyID: 5, Amount: 5000, PaymentMode: "Cash",
	})
	require.NoError(t, err)

	updated, err := service.UpdateVoucher(context.Background(), posted.Group.ID, "", VoucherInput{
		FirmID: 1, Type: VoucherReceipt, PartyID: 5, Amount: 7500, PaymentMode: "NEFT", BankName: "HDFC Bank", BankAccount: "50100234567891",
	})
	require.NoError(t, err)
	assert.Equal(t, posted.VoucherNo, updated.VoucherNo)
	assert.Equal(t, posted.Group.ID, updated.Group.ID)
	require.Len(t, updated.Entries, 2)
	assert.Equal(t, "HDFC Bank - 7891XXXX", updated.Entries[0].AccountHead)
	assert.InDelta(t, 7500, updated.Entries[0].Debit, 1e-9)

	// Old lines are gone: exactly two entries remain for the group.
	remaining, err := store.EntriesForGroup(context.Background(), 1, posted.Group.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}

func TestUpdateVoucherNumberImmutable(t *testing.T) {
	service := newLedgerService(newMemLedger())

	posted, err := service.CreateVoucher(context.Background(), VoucherInput{
		FirmID: 1, Type: VoucherReceipt, PartyID: 5, Amount: 100, PaymentMode: "Cash",
	})
	require.NoError(t, err)

	// Resubmitting the same number is a no-op condition.
	_, err = service.UpdateVoucher(context.Background(), posted.Group.ID, posted.VoucherNo, VoucherInput{
		FirmID: 1, Type: VoucherReceipt, PartyID: 5, Amount: 200, PaymentMode: "Cash",
	})
	require.NoError(t, err)

	_, err = service.UpdateVoucher(context.Background(), posted.Group.ID, "RV/2025-26/9999", VoucherInput{
		FirmID: 1, Type: VoucherReceipt, PartyID: 5, Amount: 200, PaymentMode: "Cash",
	})
	assert.ErrorIs(t, err, ErrNumberImmutable)
}

func TestReverseVoucherNetsToZero(t *testing.T) {
	store := newMemLedger()
	service := newLedgerService(store)

	posted, err := service.CreateVoucher(context.Background(), VoucherInput{
		FirmID: 1, ActorID: 7, Type: VoucherReceipt, PartyID: 5, Amount: 5000, PaymentMode: "Cash",
	})
	require.NoError(t, err)

	rev, err := service.ReverseVoucher(context.Background(), 1, 7, posted.Group.ID, "entered twice")
	require.NoError(t, err)
	assert.NotEqual(t, posted.Group.ID, rev.Group.ID)
	assert.Equal(t, posted.Group.Kind, rev.Group.Kind)
	assert.Contains(t, rev.Entries[0].Narration, posted.VoucherNo)

	// Originals untouched, per-head net across both groups is zero.
	perHead := map[string]float64{}
	for _, e := range store.entries {
		perHead[e.AccountHead] += e.Debit - e.Credit
	}
	for head, net := range perHead {
		assert.InDeltaf(t, 0, net, 1e-9, "head %s", head)
	}
	assert.Len(t, store.entries, 4)

	_, err = service.ReverseVoucher(context.Background(), 1, 7, posted.Group.ID, "again")
	assert.ErrorIs(t, err, ErrAlreadyReversed)
}

func TestReverseVoucherFirmIsolation(t *testing.T) {
	store := newMemLedger()
	service := newLedgerService(store)

	posted, err := service.CreateVoucher(context.Background(), VoucherInput{
		FirmID: 1, Type: VoucherReceipt, PartyID: 5, Amount: 100, PaymentMode: "Cash",
	})
	require.NoError(t, err)

	_, err = service.ReverseVoucher(context.Background(), 2, 7, posted.Group.ID, "")
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestUpdateJournalReplacesLines(t *testing.T) {
	store := newMemLedger()
	service := newLedgerService(store)

	posted, err := service.PostJournal(context.Background(), JournalInput{
		FirmID: 1,
		Lines: []JournalLineInput{
			{AccountHead: "Rent", AccountType: AccountExpense, Debit: 1000},
			{AccountHead: "Cash", AccountType: AccountCash, Credit: 1000},
		},
	})
	require.NoError(t, err)

	updated, err := service.UpdateJournal(context.Background(), posted.Group.ID, "", JournalInput{
		FirmID: 1,
		Lines: []JournalLineInput{
			{AccountHead: "Rent", AccountType: AccountExpense, Debit: 1200},
			{AccountHead: "Electricity", AccountType: AccountExpense, Debit: 300},
			{AccountHead: "Cash", AccountType: AccountCash, Credit: 1500},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, posted.VoucherNo, updated.VoucherNo)
	assert.Len(t, updated.Entries, 3)

	remaining, err := store.EntriesForGroup(context.Background(), 1, posted.Group.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 3)
}
