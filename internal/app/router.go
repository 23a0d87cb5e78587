package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/munimji/munimji/internal/billing"
	"github.com/munimji/munimji/internal/ledger"
	"github.com/munimji/munimji/internal/masterdata/parties"
	"github.com/munimji/munimji/internal/platform/httpx"
	"github.com/munimji/munimji/internal/stock"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	BillingHandler *billing.Handler
	LedgerHandler  *ledger.Handler
	StockHandler   *stock.Handler
	PartiesHandler *parties.Handler
}

// NewRouter constructs the chi.Router. Every business route is scoped under
// a firm so handlers can never act without an explicit firm id.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/firms/{firmID}", func(r chi.Router) {
		params.BillingHandler.MountRoutes(r)
		params.LedgerHandler.MountRoutes(r)
		params.StockHandler.MountRoutes(r)
		params.PartiesHandler.MountRoutes(r)
	})

	return r
}
