package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/munimji/munimji/internal/masterdata/parties"
	"github.com/munimji/munimji/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, store GroupStore) error) error
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

// Service posts vouchers and journal entries.
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

// PostedVoucher is the persisted result of a posting.
type PostedVoucher struct {
	Group     TransactionGroup
	VoucherNo string
	Entries   []Entry
}

// JournalLineInput is one caller-supplied journal line.
type JournalLineInput struct {
	AccountHead string
	AccountType AccountType
	Debit       float64
	Credit      float64
}

// JournalInput groups fields for posting a journal entry.
type JournalInput struct {
	FirmID    int64
	ActorID   int64
	Date      time.Time
	Narration string
	Lines     []JournalLineInput
}

func (in JournalInput) lines() []Line {
	out := make([]Line, 0, len(in.Lines))
	for _, l := range in.Lines {
		at := l.AccountType
		if at == "" {
			at = AccountGeneral
		}
		out = append(out, Line{AccountHead: l.AccountHead, AccountType: at, Debit: l.Debit, Credit: l.Credit})
	}
	return out
}

// PostJournal validates and persists a journal entry as a new group. The
// balance check runs before any persistence.
func (s *Service) PostJournal(ctx context.Context, in JournalInput) (PostedVoucher, error) {
	if in.FirmID == 0 {
		return PostedVoucher{}, errors.New("ledger: firm required")
	}
	lines := in.lines()
	if err := CheckBalanced(lines); err != nil {
		return PostedVoucher{}, err
	}
	date := in.Date
	if date.IsZero() {
		date = s.now()
	}
	var posted PostedVoucher
	err := s.repo.WithTx(ctx, func(ctx context.Context, store GroupStore) error {
		group, err := store.NewGroup(ctx, in.FirmID, VoucherJournal, nil)
		if err != nil {
			return err
		}
		number, err := store.NextNumber(ctx, in.FirmID, VoucherJournal, date)
		if err != nil {
			return err
		}
		entries, err := store.InsertEntries(ctx, in.FirmID, group, EntryHeader{
			VoucherNo: number,
			Narration: in.Narration,
			Date:      date,
			CreatedBy: in.ActorID,
		}, lines)
		if err != nil {
			return err
		}
		posted = PostedVoucher{Group: group, VoucherNo: number, Entries: entries}
		return nil
	})
	if err != nil {
		return PostedVoucher{}, err
	}
	s.finish(ctx, in.FirmID, in.ActorID, "journal.post", posted)
	return posted, nil
}

// UpdateJournal replaces a journal group's lines wholesale, keeping its
// voucher number. A resubmitted matching number is a no-op; a different one
// is rejected.
func (s *Service) UpdateJournal(ctx context.Context, groupID int64, voucherNo string, in JournalInput) (PostedVoucher, error) {
	lines := in.lines()
	if err := CheckBalanced(lines); err != nil {
		return PostedVoucher{}, err
	}
	var posted PostedVoucher
	err := s.repo.WithTx(ctx, func(ctx context.Context, store GroupStore) error {
		existing, number, err := loadGroup(ctx, store, in.FirmID, groupID, VoucherJournal)
		if err != nil {
			return err
		}
		if voucherNo != "" && voucherNo != number {
			return ErrNumberImmutable
		}
		date := in.Date
		if date.IsZero() {
			date = existing[0].Date
		}
		if _, err := store.DeleteEntries(ctx, in.FirmID, groupID); err != nil {
			return err
		}
		entries, err := store.InsertEntries(ctx, in.FirmID, existing[0].Group, EntryHeader{
			VoucherNo: number,
			Narration: in.Narration,
			Date:      date,
			CreatedBy: in.ActorID,
		}, lines)
		if err != nil {
			return err
		}
		posted = PostedVoucher{Group: existing[0].Group, VoucherNo: number, Entries: entries}
		return nil
	})
	if err != nil {
		return PostedVoucher{}, err
	}
	s.finish(ctx, in.FirmID, in.ActorID, "journal.update", posted)
	return posted, nil
}

// VoucherInput groups fields for a payment or receipt voucher.
type VoucherInput struct {
	FirmID      int64
	ActorID     int64
	Type        VoucherType
	PartyID     int64
	Amount      float64
	PaymentMode string
	BankName    string
	BankAccount string
	Narration   string
	Date        time.Time
}

func (in VoucherInput) validate() error {
	if in.FirmID == 0 {
		return errors.New("ledger: firm required")
	}
	if in.Type != VoucherPayment && in.Type != VoucherReceipt {
		return fmt.Errorf("%w: %s", ErrWrongKind, in.Type)
	}
	if in.PartyID == 0 {
		return errors.New("ledger: party required")
	}
	if in.Amount <= 0 {
		return errors.New("ledger: amount must be positive")
	}
	return nil
}

func (s *Service) voucherLines(ctx context.Context, in VoucherInput) ([]Line, error) {
	party, err := s.parties.GetScoped(ctx, in.FirmID, in.PartyID)
	if err != nil {
		return nil, err
	}
	head, accType := SettlementAccount(in.PaymentMode, in.BankName, in.BankAccount)
	if in.Type == VoucherPayment {
		return PaymentLines(party.Name, party.ID, in.Amount, head, accType), nil
	}
	return ReceiptLines(party.Name, party.ID, in.Amount, head, accType), nil
}

// CreateVoucher posts a two-line payment or receipt voucher.
func (s *Service) CreateVoucher(ctx context.Context, in VoucherInput) (PostedVoucher, error) {
	if err := in.validate(); err != nil {
		return PostedVoucher{}, err
	}
	lines, err := s.voucherLines(ctx, in)
	if err != nil {
		return PostedVoucher{}, err
	}
	date := in.Date
	if date.IsZero() {
		date = s.now()
	}
	var posted PostedVoucher
	err = s.repo.WithTx(ctx, func(ctx context.Context, store GroupStore) error {
		group, err := store.NewGroup(ctx, in.FirmID, in.Type, nil)
		if err != nil {
			return err
		}
		number, err := store.NextNumber(ctx, in.FirmID, in.Type, date)
		if err != nil {
			return err
		}
		entries, err := store.InsertEntries(ctx, in.FirmID, group, EntryHeader{
			VoucherNo: number,
			Narration: in.Narration,
			Date:      date,
			CreatedBy: in.ActorID,
		}, lines)
		if err != nil {
			return err
		}
		posted = PostedVoucher{Group: group, VoucherNo: number, Entries: entries}
		return nil
	})
	if err != nil {
		return PostedVoucher{}, err
	}
	s.finish(ctx, in.FirmID, in.ActorID, "voucher.create", posted)
	return posted, nil
}

// UpdateVoucher deletes and recreates a voucher's lines with new inputs,
// keeping number and group. The voucher type cannot change.
func (s *Service) UpdateVoucher(ctx context.Context, groupID int64, voucherNo string, in VoucherInput) (PostedVoucher, error) {
	if err := in.validate(); err != nil {
		return PostedVoucher{}, err
	}
	lines, err := s.voucherLines(ctx, in)
	if err != nil {
		return PostedVoucher{}, err
	}
	var posted PostedVoucher
	err = s.repo.WithTx(ctx, func(ctx context.Context, store GroupStore) error {
		existing, number, err := loadGroup(ctx, store, in.FirmID, groupID, in.Type)
		if err != nil {
			return err
		}
		if voucherNo != "" && voucherNo != number {
			return ErrNumberImmutable
		}
		reversed, err := store.HasReversal(ctx, in.FirmID, groupID)
		if err != nil {
			return err
		}
		if reversed {
			return ErrAlreadyReversed
		}
		date := in.Date
		if date.IsZero() {
			date = existing[0].Date
		}
		if _, err := store.DeleteEntries(ctx, in.FirmID, groupID); err != nil {
			return err
		}
		entries, err := store.InsertEntries(ctx, in.FirmID, existing[0].Group, EntryHeader{
			VoucherNo: number,
			Narration: in.Narration,
			Date:      date,
			CreatedBy: in.ActorID,
		}, lines)
		if err != nil {
			return err
		}
		posted = PostedVoucher{Group: existing[0].Group, VoucherNo: number, Entries: entries}
		return nil
	})
	if err != nil {
		return PostedVoucher{}, err
	}
	s.finish(ctx, in.FirmID, in.ActorID, "voucher.update", posted)
	return posted, nil
}

// ReverseVoucher posts mirrored entries in a new group pointing back at the
// original, netting it to zero. The original lines stay untouched.
func (s *Service) ReverseVoucher(ctx context.Context, firmID, actorID, groupID int64, reason string) (PostedVoucher, error) {
	var posted PostedVoucher
	err := s.repo.WithTx(ctx, func(ctx context.Context, store GroupStore) error {
		entries, number, err := loadGroup(ctx, store, firmID, groupID, "")
		if err != nil {
			return err
		}
		reversed, err := store.HasReversal(ctx, firmID, groupID)
		if err != nil {
			return err
		}
		if reversed {
			return ErrAlreadyReversed
		}
		kind := entries[0].Group.Kind
		original := groupID
		group, err := store.NewGroup(ctx, firmID, kind, &original)
		if err != nil {
			return err
		}
		revNumber, err := store.NextNumber(ctx, firmID, kind, s.now())
		if err != nil {
			return err
		}
		narration := fmt.Sprintf("Reversal of %s", number)
		if reason != "" {
			narration += ": " + reason
		}
		inserted, err := store.InsertEntries(ctx, firmID, group, EntryHeader{
			VoucherNo: revNumber,
			Narration: narration,
			Date:      s.now(),
			CreatedBy: actorID,
		}, ReverseEntries(entries))
		if err != nil {
			return err
		}
		posted = PostedVoucher{Group: group, VoucherNo: revNumber, Entries: inserted}
		return nil
	})
	if err != nil {
		return PostedVoucher{}, err
	}
	s.finish(ctx, firmID, actorID, "voucher.reverse", posted)
	return posted, nil
}

// loadGroup fetches a group's entries, optionally enforcing its kind. An
// empty result means the group does not exist for this firm.
func loadGroup(ctx context.Context, store GroupStore, firmID, groupID int64, want VoucherType) ([]Entry, string, error) {
	entries, err := store.EntriesForGroup(ctx, firmID, groupID)
	if err != nil {
		return nil, "", err
	}
	if len(entries) == 0 {
		return nil, "", ErrGroupNotFound
	}
	if want != "" && entries[0].Group.Kind != want {
		return nil, "", fmt.Errorf("%w: group %d is %s", ErrWrongKind, groupID, entries[0].Group.Kind)
	}
	return entries, entries[0].VoucherNo, nil
}

func (s *Service) finish(ctx context.Context, firmID, actorID int64, action string, posted PostedVoucher) {
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			FirmID:   firmID,
			ActorID:  actorID,
			Action:   action,
			Entity:   "voucher",
			EntityID: fmt.Sprintf("%d", posted.Group.ID),
			Meta:     map[string]any{"voucher_no": posted.VoucherNo, "kind": string(posted.Group.Kind)},
			At:       s.now(),
		})
	}
	if s.bump != nil {
		if err := s.bump.Bump(ctx, firmID); err != nil && s.logger != nil {
			s.logger.Warn("books bump failed", slog.Int64("firm", firmID), slog.Any("error", err))
		}
	}
}
