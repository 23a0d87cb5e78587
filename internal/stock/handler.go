package stock

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/munimji/munimji/internal/platform/httpx"
)

// Handler wires stock endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers stock routes. The router is already scoped to
// /firms/{firmID}.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/stock", h.list)
	r.Post("/stock/entries", h.createEntry)
	r.Post("/stock/entries/bulk", h.bulkImport)
	r.Get("/stock/{itemID}", h.show)
	r.Post("/stock/{itemID}/adjust", h.adjust)
	r.Post("/stock/{itemID}/transfer", h.transfer)
}

type batchPayload struct {
	Label  string   `json:"batch,omitempty"`
	Qty    float64  `json:"qty" validate:"gt=0"`
	Rate   float64  `json:"rate" validate:"gte=0"`
	Expiry string   `json:"expiry,omitempty"`
	MRP    *float64 `json:"mrp,omitempty"`
}

type entryRequest struct {
	Type    string       `json:"type" validate:"required,oneof=RECEIPT OPENING"`
	Name    string       `json:"name" validate:"required"`
	HSN     string       `json:"hsn,omitempty"`
	Unit    string       `json:"unit,omitempty"`
	GSTRate float64      `json:"grate,omitempty" validate:"gte=0,lte=100"`
	Rate    float64      `json:"rate,omitempty" validate:"gte=0"`
	Batch   batchPayload `json:"batch" validate:"required"`
}

func (req entryRequest) toInput(firmID, actorID int64) (EntryInput, error) {
	in := EntryInput{
		FirmID:  firmID,
		ActorID: actorID,
		Type:    MovementType(req.Type),
		Name:    req.Name,
		HSN:     req.HSN,
		Unit:    req.Unit,
		GSTRate: req.GSTRate,
		Rate:    req.Rate,
		Batch: BatchInput{
			Label: req.Batch.Label,
			Qty:   req.Batch.Qty,
			Rate:  req.Batch.Rate,
			MRP:   req.Batch.MRP,
		},
	}
	if req.Batch.Expiry != "" {
		expiry, err := time.Parse("2006-01-02", req.Batch.Expiry)
		if err != nil {
			return EntryInput{}, err
		}
		in.Batch.Expiry = &expiry
	}
	return in, nil
}

type adjustRequest struct {
	BatchIndex *int    `json:"batchIndex,omitempty"`
	Batch      string  `json:"batch,omitempty"`
	Qty        float64 `json:"qty" validate:"required"`
}

type transferRequest struct {
	FromIndex *int    `json:"fromIndex,omitempty"`
	From      string  `json:"from,omitempty"`
	To        string  `json:"to" validate:"required"`
	Qty       float64 `json:"qty" validate:"gt=0"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	firmID, err := httpx.URLInt64(r, "firmID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.ListItems(r.Context(), firmID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	firmID, err := httpx.URLInt64(r, "firmID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	itemID, err := httpx.URLInt64(r, "itemID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.service.GetItem(r.Context(), firmID, itemID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) createEntry(w http.ResponseWriter, r *http.Request) {
	firmID, err := httpx.URLInt64(r, "firmID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req entryRequest
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
	item, err := h.service.CreateEntry(r.Context(), in)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

// bulkImport attempts every entry independently and reports per-item
// outcomes; a failing row never aborts the rest.
func (h *Handler) bulkImport(w http.ResponseWriter, r *http.Request) {
	firmID, err := httpx.URLInt64(r, "firmID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var reqs []entryRequest
	if err := httpx.DecodeJSON(r, &reqs); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	actorID := httpx.ActorID(r)
	inputs := make([]EntryInput, 0, len(reqs))
	for _, req := range reqs {
		in, err := req.toInput(firmID, actorID)
		if err != nil {
			in = EntryInput{FirmID: firmID, Name: req.Name}
		}
		inputs = append(inputs, in)
	}
	results := h.service.BulkImport(r.Context(), inputs)

	type itemResult struct {
		Name    string `json:"name"`
		ItemID  int64  `json:"itemId,omitempty"`
		Success bool   `json:"success"`
		Error   string `json:"error,omitempty"`
	}
	out := make([]itemResult, 0, len(results))
	for _, res := range results {
		ir := itemResult{Name: res.Name, ItemID: res.ItemID, Success: res.Err == nil}
		if res.Err != nil {
			ir.Error = res.Err.Error()
		}
		out = append(out, ir)
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	firmID, err := httpx.URLInt64(r, "firmID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	itemID, err := httpx.URLInt64(r, "itemID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req adjustRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	item, err := h.service.Adjust(r.Context(), firmID, httpx.ActorID(r), itemID, BatchRef{Index: req.BatchIndex, Label: req.Batch}, req.Qty)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) transfer(w http.ResponseWriter, r *http.Request) {
	firmID, err := httpx.URLInt64(r, "firmID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	itemID, err := httpx.URLInt64(r, "itemID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req transferRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	item, err := h.service.Transfer(r.Context(), TransferInput{
		FirmID:  firmID,
		ActorID: httpx.ActorID(r),
		ItemID:  itemID,
		From:    BatchRef{Index: req.FromIndex, Label: req.From},
		ToLabel: req.To,
		Qty:     req.Qty,
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrItemNotFound), errors.Is(err, ErrBatchNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInsufficientStock):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Insufficient Stock", err.Error())
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidMovement):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("stock request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
