package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/munimji/munimji/internal/ledger/reports"
	"github.com/munimji/munimji/internal/masterdata/parties"
	"github.com/munimji/munimji/internal/platform/httpx"
	"github.com/munimji/munimji/internal/shared"
)

// Handler wires voucher, journal and ledger-query endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	queries   *Repository
	validator *validator.Validate
	flight    singleflight.Group
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, queries *Repository) *Handler {
	return &Handler{logger: logger, service: service, queries: queries, validator: validator.New()}
}

// MountRoutes registers ledger routes. The router is already scoped to
// /firms/{firmID}.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/vouchers", h.createVoucher)
	r.Put("/vouchers/{groupID}", h.updateVoucher)
	r.Post("/vouchers/{groupID}/reverse", h.reverseVoucher)
	r.Post("/journals", h.postJournal)
	r.Put("/journals/{groupID}", h.updateJournal)
	r.Get("/ledger/accounts", h.accounts)
	r.Get("/ledger/balance", h.balance)
	r.Get("/ledger/trial-balance", h.trialBalance)
	r.Get("/ledger/statement", h.statement)
}

type voucherRequest struct {
	VoucherType     string  `json:"voucher_type" validate:"required,oneof=PAYMENT RECEIPT"`
	VoucherNo       string  `json:"voucher_no,omitempty"`
	PartyID         int64   `json:"party_id" validate:"required"`
	Amount          float64 `json:"amount" validate:"gt=0"`
	PaymentMode     string  `json:"payment_mode" validate:"required"`
	BankName        string  `json:"bank_name,omitempty"`
	BankAccountNo   string  `json:"bank_account_no,omitempty"`
	Narration       string  `json:"narration,omitempty"`
	TransactionDate string  `json:"transaction_date,omitempty"`
}

func (req voucherRequest) toInput(firmID, actorID int64) (VoucherInput, error) {
	in := VoucherInput{
		FirmID:      firmID,
		ActorID:     actorID,
		Type:        VoucherType(req.VoucherType),
		PartyID:     req.PartyID,
		Amount:      req.Amount,
		PaymentMode: req.PaymentMode,
		BankName:    req.BankName,
		BankAccount: req.BankAccountNo,
		Narration:   req.Narration,
	}
	if req.TransactionDate != "" {
		date, err := time.Parse("2006-01-02", req.TransactionDate)
		if err != nil {
			return VoucherInput{}, err
		}
		in.Date = date
	}
	return in, nil
}

type journalLineRequest struct {
	Account     string  `json:"account" validate:"required"`
	AccountType string  `json:"account_type,omitempty"`
	Debit       float64 `json:"debit" validate:"gte=0"`
	Credit      float64 `json:"credit" validate:"gte=0"`
}

type journalRequest struct {
	VoucherNo string               `json:"voucher_no,omitempty"`
	Date      string               `json:"date,omitempty"`
	Narration string               `json:"narration,omitempty"`
	Lines     []journalLineRequest `json:"lines" validate:"required,min=2,dive"`
}

func (req journalRequest) toInput(firmID, actorID int64) (JournalInput, error) {
	in := JournalInput{FirmID: firmID, ActorID: actorID, Narration: req.Narration}
	if req.Date != "" {
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			return JournalInput{}, err
		}
		in.Date = date
	}
	for _, l := range req.Lines {
		in.Lines = append(in.Lines, JournalLineInput{
			AccountHead: l.Account,
			AccountType: AccountType(l.AccountType),
			Debit:       l.Debit,
			Credit:      l.Credit,
		})
	}
	return in, nil
}

type postedResponse struct {
	VoucherID int64  `json:"voucherId"`
	VoucherNo string `json:"voucherNo"`
	Kind      string `json:"kind"`
	Lines     int    `json:"lines"`
	Success   bool   `json:"success"`
}

func toPostedResponse(p PostedVoucher) postedResponse {
	return postedResponse{
		VoucherID: p.Group.ID,
		VoucherNo: p.VoucherNo,
		Kind:      string(p.Group.Kind),
		Lines:     len(p.Entries),
		Success:   true,
	}
}

func (h *Handler) createVoucher(w http.ResponseWriter, r *http.Request) {
	firmID, err := httpx.URLInt64(r, "firmID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req voucherRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	in, err := req.toInput(firmID, httpx.ActorID(r))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	posted, err := h.service.CreateVoucher(r.Context(), in)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPostedResponse(posted))
}

func (h *Handler) updateVoucher(w http.ResponseWriter, r *http.Request) {
	firmID, err := httpx.URLInt64(r, "firmID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	groupID, err := httpx.URLInt64(r, "groupID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req voucherRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	in, err := req.toInput(firmID, httpx.ActorID(r))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	posted, err := h.service.UpdateVoucher(r.Context(), groupID, req.VoucherNo, in)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPostedResponse(posted))
}

func (h *Handler) reverseVoucher(w http.ResponseWriter, r *http.Request) {
	firmID, err := httpx.URLInt64(r, "firmID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	groupID, err := httpx.URLInt64(r, "groupID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req struct {
		Reason string `json:"reason,omitempty"`
	}
	_ = httpx.DecodeJSON(r, &req)
	posted, err := h.service.ReverseVoucher(r.Context(), firmID, httpx.ActorID(r), groupID, req.Reason)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPostedResponse(posted))
}

func (h *Handler) postJournal(w http.ResponseWriter, r *http.Request) {
	firmID, err := httpx.URLInt64(r, "firmID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req journalRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	in, err := req.toInput(firmID, httpx.ActorID(r))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	posted, err := h.service.PostJournal(r.Context(), in)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPostedResponse(posted))
}

func (h *Handler) updateJournal(w http.ResponseWriter, r *http.Request) {
	firmID, err := httpx.URLInt64(r, "firmID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	groupID, err := httpx.URLInt64(r, "groupID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req journalRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	in, err := req.toInput(firmID, httpx.ActorID(r))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	posted, err := h.service.UpdateJournal(r.Context(), groupID, req.VoucherNo, in)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPostedResponse(posted))
}

func (h *Handler) accounts(w http.ResponseWriter, r *http.Request) {
	firmID, err := httpx.URLInt64(r, "firmID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	balances, err := h.queries.LedgerAccounts(r.Context(), firmID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, reports.GroupByType(toReportBalances(balances)))
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	firmID, err := httpx.URLInt64(r, "firmID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	head := r.URL.Query().Get("account")
	if head == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "account is required")
		return
	}
	asOf, err := httpx.QueryDate(r, "asOf")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	b, err := h.queries.AccountBalance(r.Context(), firmID, head, asOf)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

// trialBalance collapses concurrent identical requests into one aggregation
// pass.
func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	firmID, err := httpx.URLInt64(r, "firmID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	from, err := httpx.QueryDate(r, "from")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	to, err := httpx.QueryDate(r, "to")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	now := time.Now()
	if to == nil {
		to = &now
	}
	if from == nil {
		start := time.Date(now.Year()-1, now.Month(), 1, 0, 0, 0, 0, time.UTC)
		from = &start
	}

	key := fmt.Sprintf("tb:%d:%s:%s", firmID, from.Format("2006-01-02"), to.Format("2006-01-02"))
	result, err, _ := h.flight.Do(key, func() (any, error) {
		balances, err := h.queries.TrialBalance(r.Context(), firmID, *from, *to)
		if err != nil {
			return nil, err
		}
		return reports.BuildTrialBalance(toReportBalances(balances)), nil
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) statement(w http.ResponseWriter, r *http.Request) {
	firmID, err := httpx.URLInt64(r, "firmID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	head := r.URL.Query().Get("account")
	if head == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "account is required")
		return
	}
	from, err := httpx.QueryDate(r, "from")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	to, err := httpx.QueryDate(r, "to")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	now := time.Now()
	if to == nil {
		to = &now
	}
	if from == nil {
		start := now.AddDate(-1, 0, 0)
		from = &start
	}
	entries, err := h.queries.AccountStatement(r.Context(), firmID, head, *from, *to)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func toReportBalances(balances []Balance) []reports.AccountBalance {
	out := make([]reports.AccountBalance, 0, len(balances))
	for _, b := range balances {
		out = append(out, reports.AccountBalance{
			AccountHead: b.AccountHead,
			AccountType: string(b.AccountType),
			TotalDebit:  b.TotalDebit,
			TotalCredit: b.TotalCredit,
			Balance:     b.Balance,
			BalanceType: b.BalanceType,
		})
	}
	return out
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrGroupNotFound), errors.Is(err, parties.ErrPartyNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrFirmMismatch):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrNumberImmutable), errors.Is(err, ErrAlreadyReversed), errors.Is(err, ErrWrongKind):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrUnbalanced), errors.Is(err, ErrBothSides),
		errors.Is(err, ErrEmptyLine), errors.Is(err, ErrTooFewLines):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
	default:
		h.logger.Error("ledger request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
