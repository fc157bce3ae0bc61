package reports

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/backline-erp/backline/internal/ledger"
	"github.com/backline-erp/backline/internal/platform/httpx"
	"github.com/backline-erp/backline/internal/shared"
)

// Handler serves the report endpoints. Payloads go through the cache; period
// and filter validation happens before any query or cache lookup.
type Handler struct {
	logger  *slog.Logger
	service *Service
	cache   *Cache
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service, cache *Cache) *Handler {
	return &Handler{logger: logger, service: service, cache: cache}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/general-ledger", h.GeneralLedger)
	r.Get("/cash-book", h.CashBook)
	r.Get("/debts", h.Debts)
	r.Get("/top-creditors", h.TopCreditors)
}

func (h *Handler) GeneralLedger(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.ParseInt(r.URL.Query().Get("account_id"), 10, 64)
	if err != nil || accountID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "account_id required")
		return
	}
	p, err := periodFromQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	key := fmt.Sprintf("reports:gl:%d:%s:%s", accountID, p.From.Format("20060102"), p.To.Format("20060102"))
	h.respondCached(w, r, key, func(ctx context.Context) (any, error) {
		gl, err := h.service.GeneralLedger(ctx, accountID, p)
		if err != nil {
			return nil, err
		}
		return NewGeneralLedgerView(gl), nil
	})
}

func (h *Handler) CashBook(w http.ResponseWriter, r *http.Request) {
	p, err := periodFromQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	method := r.URL.Query().Get("method")
	if method != "" && method != "CASH" && method != "BANK" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "method must be CASH or BANK")
		return
	}

	key := fmt.Sprintf("reports:cb:%s:%s:%s", method, p.From.Format("20060102"), p.To.Format("20060102"))
	h.respondCached(w, r, key, func(ctx context.Context) (any, error) {
		cb, err := h.service.CashBook(ctx, p, method)
		if err != nil {
			return nil, err
		}
		return NewCashBookView(cb), nil
	})
}

func (h *Handler) Debts(w http.ResponseWriter, r *http.Request) {
	p, err := periodFromQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	partyType := ledger.PartyType(r.URL.Query().Get("party_type"))
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("perpage"))

	summary, err := h.service.DebtSummary(r.Context(), partyType, p, page, perPage)
	if err != nil {
		h.logger.Error("debt summary", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) TopCreditors(w http.ResponseWriter, r *http.Request) {
	p, err := periodFromQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 5
	}

	key := fmt.Sprintf("reports:topcred:%d:%s", limit, p.To.Format("20060102"))
	h.respondCached(w, r, key, func(ctx context.Context) (any, error) {
		return h.service.TopCreditors(ctx, p, limit)
	})
}

func (h *Handler) respondCached(w http.ResponseWriter, r *http.Request, key string, build func(context.Context) (any, error)) {
	payload, err := h.cache.GetOrBuild(r.Context(), key, build)
	if err != nil {
		h.logger.Error("build report", slog.String("key", key), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// periodFromQuery accepts either month/year or explicit from/to dates.
func periodFromQuery(r *http.Request) (Period, error) {
	q := r.URL.Query()
	if q.Get("month") != "" || q.Get("year") != "" {
		month, err := strconv.Atoi(q.Get("month"))
		if err != nil {
			return Period{}, fmt.Errorf("%w: bad month", shared.ErrValidation)
		}
		year, err := strconv.Atoi(q.Get("year"))
		if err != nil {
			return Period{}, fmt.Errorf("%w: bad year", shared.ErrValidation)
		}
		return MonthPeriod(year, time.Month(month))
	}

	from, err := time.ParseInLocation("2006-01-02", q.Get("from"), time.UTC)
	if err != nil {
		return Period{}, fmt.Errorf("%w: bad from date", shared.ErrValidation)
	}
	to, err := time.ParseInLocation("2006-01-02", q.Get("to"), time.UTC)
	if err != nil {
		return Period{}, fmt.Errorf("%w: bad to date", shared.ErrValidation)
	}
	return NewPeriod(from, to)
}
