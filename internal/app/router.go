package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/backline-erp/backline/internal/accounts"
	"github.com/backline-erp/backline/internal/balances"
	"github.com/backline-erp/backline/internal/ledger"
	"github.com/backline-erp/backline/internal/masterdata"
	"github.com/backline-erp/backline/internal/reports"
	"github.com/backline-erp/backline/internal/vouchers"
	"github.com/backline-erp/backline/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	AccountsHandler   *accounts.Handler
	LedgerHandler     *ledger.Handler
	VouchersHandler   *vouchers.Handler
	ReportsHandler    *reports.Handler
	StockHandler      *balances.Handler
	MasterDataHandler *masterdata.Handler
	JobHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router with Backline defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(api chi.Router) {
		if params.AccountsHandler != nil {
			api.Route("/accounts", params.AccountsHandler.MountRoutes)
		}
		if params.LedgerHandler != nil {
			api.Route("/ledger", params.LedgerHandler.MountRoutes)
		}
		if params.VouchersHandler != nil {
			api.Route("/vouchers", params.VouchersHandler.MountRoutes)
		}
		if params.ReportsHandler != nil {
			api.Route("/reports", params.ReportsHandler.MountRoutes)
		}
		if params.StockHandler != nil {
			api.Route("/stock", params.StockHandler.MountRoutes)
		}
		if params.MasterDataHandler != nil {
			api.Group(params.MasterDataHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			api.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
