package billing

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/munimji/munimji/internal/ledger"
	"github.com/munimji/munimji/internal/masterdata/parties"
	"github.com/munimji/munimji/internal/platform/db"
	"github.com/munimji/munimji/internal/platform/httpx"
	"github.com/munimji/munimji/internal/sequence"
	"github.com/munimji/munimji/internal/shared"
	"github.com/munimji/munimji/internal/stock"
)

// Handler wires bill endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	preview   db.Querier
	validator *validator.Validate
}

// NewHandler constructs a Handler instance. preview is used read-only for
// non-mutating number previews.
func NewHandler(logger *slog.Logger, service *Service, preview db.Querier) *Handler {
	return &Handler{logger: logger, service: service, preview: preview, validator: validator.New()}
}

// MountRoutes registers bill routes. The router is already scoped to
// /firms/{firmID}.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/bills", h.list)
	r.Post("/bills", h.create)
	r.Get("/bills/next-number", h.nextNumber)
	r.Get("/bills/{billID}", h.show)
	r.Put("/bills/{billID}", h.update)
	r.Post("/bills/{billID}/cancel", h.cancel)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	firmID, err := httpx.URLInt64(r, "firmID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req billRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	in, err := req.toCreate(firmID, httpx.ActorID(r))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	bill, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toBillResponse(bill))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	firmID, err := httpx.URLInt64(r, "firmID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	billID, err := httpx.URLInt64(r, "billID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req billRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	in, err := req.toCreate(firmID, httpx.ActorID(r))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	bill, err := h.service.Update(r.Context(), UpdateInput{
		FirmID:       in.FirmID,
		ActorID:      in.ActorID,
		BillID:       billID,
		No:           req.BillNo,
		Date:         in.Date,
		PartyID:      in.PartyID,
		Meta:         in.Meta,
		Cart:         in.Cart,
		OtherCharges: in.OtherCharges,
		Consignee:    in.Consignee,
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toBillResponse(bill))
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	firmID, err := httpx.URLInt64(r, "firmID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	billID, err := httpx.URLInt64(r, "billID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	// Body is optional; an absent reason is allowed.
	var req cancelRequest
	_ = httpx.DecodeJSON(r, &req)
	bill, err := h.service.Cancel(r.Context(), firmID, httpx.ActorID(r), billID, req.Reason)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toBillResponse(bill))
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	firmID, err := httpx.URLInt64(r, "firmID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	billID, err := httpx.URLInt64(r, "billID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	bill, err := h.service.Get(r.Context(), firmID, billID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bill)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	firmID, err := httpx.URLInt64(r, "firmID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	billType := BillType(r.URL.Query().Get("type"))
	if billType == "" {
		billType = BillSales
	}
	bills, err := h.service.List(r.Context(), firmID, billType)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bills)
}

// nextNumber previews the next bill number without consuming it.
func (h *Handler) nextNumber(w http.ResponseWriter, r *http.Request) {
	firmID, err := httpx.URLInt64(r, "firmID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	billType := r.URL.Query().Get("type")
	if billType == "" {
		billType = string(BillSales)
	}
	number, err := sequence.PreviewTx(r.Context(), h.preview, firmID, billType, time.Now())
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"billNo": number})
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBillNotFound),
		errors.Is(err, stock.ErrItemNotFound),
		errors.Is(err, parties.ErrPartyNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrFirmMismatch):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrBillCancelled), errors.Is(err, ErrNumberImmutable):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, stock.ErrInsufficientStock),
		errors.Is(err, stock.ErrBatchNotFound),
		errors.Is(err, stock.ErrInvalidQuantity),
		errors.Is(err, ErrEmptyCart),
		errors.Is(err, ledger.ErrUnbalanced):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
	default:
		h.logger.Error("bill request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
