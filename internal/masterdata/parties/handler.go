package parties

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/munimji/munimji/internal/platform/httpx"
	"github.com/munimji/munimji/internal/shared"
)

// Handler wires party endpoints.
type Handler struct {
	logger    *slog.Logger
	repo      *Repository
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo, validator: validator.New()}
}

// MountRoutes registers party routes. The router is already scoped to
// /firms/{firmID}.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/parties", h.list)
	r.Post("/parties", h.create)
	r.Get("/parties/{partyID}", h.show)
}

type partyRequest struct {
	Name      string `json:"name" validate:"required"`
	GSTIN     string `json:"gstin,omitempty" validate:"omitempty,len=15"`
	State     string `json:"state,omitempty"`
	StateCode string `json:"stateCode,omitempty"`
	Address   string `json:"addr,omitempty"`
	PIN       string `json:"pin,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	firmID, err := httpx.URLInt64(r, "firmID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out, err := h.repo.List(r.Context(), firmID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	firmID, err := httpx.URLInt64(r, "firmID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	partyID, err := httpx.URLInt64(r, "partyID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.repo.GetScoped(r.Context(), firmID, partyID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	firmID, err := httpx.URLInt64(r, "firmID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req partyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	p, err := h.repo.Create(r.Context(), CreateInput{
		FirmID:    firmID,
		Name:      req.Name,
		GSTIN:     req.GSTIN,
		State:     req.State,
		StateCode: req.StateCode,
		Address:   req.Address,
		PIN:       req.PIN,
		Phone:     req.Phone,
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrPartyNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrFirmMismatch):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	default:
		h.logger.Error("party request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
