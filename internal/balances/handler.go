package balances

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/backline-erp/backline/internal/platform/httpx"
	"github.com/backline-erp/backline/internal/shared"
)

// Handler exposes stock positions and consistency checks over JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches stock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{productID}", h.Show)
	r.Get("/{productID}/verify", h.Verify)
}

type snapshotResponse struct {
	ProductID int64  `json:"product_id"`
	Date      string `json:"date"`
	Quantity  string `json:"quantity"`
	Value     string `json:"value"`
	AvgCost   string `json:"avg_cost"`
}

func toSnapshotResponse(s Snapshot) snapshotResponse {
	return snapshotResponse{
		ProductID: s.ProductID,
		Date:      s.Date.Format("2006-01-02"),
		Quantity:  s.Quantity.String(),
		Value:     s.Value.String(),
		AvgCost:   s.AvgCost.String(),
	}
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	productID, date, ok := h.params(w, r)
	if !ok {
		return
	}
	snap, err := h.service.GetAtDate(r.Context(), productID, date)
	if err != nil {
		h.logger.Error("get snapshot", slog.Int64("product_id", productID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toSnapshotResponse(snap))
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	productID, date, ok := h.params(w, r)
	if !ok {
		return
	}
	tolerance := decimal.Zero
	if raw := r.URL.Query().Get("tolerance"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil || parsed.IsNegative() {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "tolerance must be a non-negative number")
			return
		}
		tolerance = parsed
	}
	res, err := h.service.Verify(r.Context(), productID, date, tolerance)
	if err != nil && !errors.Is(err, shared.ErrConsistency) {
		h.logger.Error("snapshot verify", slog.Int64("product_id", productID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	body := map[string]any{
		"product_id":  res.ProductID,
		"date":        date.Format("2006-01-02"),
		"stored":      toSnapshotResponse(res.Stored),
		"replayed":    toSnapshotResponse(res.Replayed),
		"qty_drift":   res.QtyDrift.String(),
		"value_drift": res.ValueDrift.String(),
		"consistent":  err == nil,
	}
	if err != nil {
		h.logger.Warn("snapshot verify", slog.Int64("product_id", productID), slog.Any("error", err))
		body["detail"] = err.Error()
	}
	httpx.JSON(w, http.StatusOK, body)
}

func (h *Handler) params(w http.ResponseWriter, r *http.Request) (int64, time.Time, bool) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
		return 0, time.Time{}, false
	}
	date := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
			return 0, time.Time{}, false
		}
		date = parsed
	}
	return productID, date, true
}
