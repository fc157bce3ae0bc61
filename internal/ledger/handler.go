package ledger

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/backline-erp/backline/internal/platform/httpx"
	"github.com/backline-erp/backline/internal/shared"
)

// Handler exposes read-only ledger queries. Writes only happen through the
// documents that own them.
type Handler struct {
	logger *slog.Logger
	repo   *Repository
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo}
}

// MountRoutes attaches ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/entries", h.Entries)
	r.Get("/totals", h.Totals)
}

type entryResponse struct {
	ID        int64  `json:"id"`
	AccountID int64  `json:"account_id"`
	ProductID int64  `json:"product_id,omitempty"`
	PartyType string `json:"party_type,omitempty"`
	PartyID   int64  `json:"party_id,omitempty"`
	Date      string `json:"date"`
	Debit     string `json:"debit"`
	Credit    string `json:"credit"`
	Quantity  string `json:"quantity"`
	UnitCost  string `json:"unit_cost"`
	Movement  string `json:"movement,omitempty"`
	Method    string `json:"method,omitempty"`
	RefType   string `json:"ref_type,omitempty"`
	RefID     string `json:"ref_id,omitempty"`
	Memo      string `json:"memo,omitempty"`
}

func toEntryResponse(e Entry) entryResponse {
	resp := entryResponse{
		ID:        e.ID,
		AccountID: e.AccountID,
		ProductID: e.ProductID,
		PartyType: string(e.PartyType),
		PartyID:   e.PartyID,
		Date:      e.Date.Format("2006-01-02"),
		Debit:     e.Debit.String(),
		Credit:    e.Credit.String(),
		Quantity:  e.Quantity.String(),
		UnitCost:  e.UnitCost.String(),
		Movement:  string(e.Movement),
		Method:    e.Method,
		RefType:   e.RefType,
		Memo:      e.Memo,
	}
	if e.RefType != "" {
		resp.RefID = e.RefID.String()
	}
	return resp
}

// Entries pages a product's movement history in posting order.
func (h *Handler) Entries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	productID, err := strconv.ParseInt(q.Get("product_id"), 10, 64)
	if err != nil || productID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "product_id required")
		return
	}
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("perpage"))

	entries, total, err := h.repo.ListByProduct(r.Context(), productID, shared.NewPagination(page, perPage, 0))
	if err != nil {
		h.logger.Error("list entries", slog.Int64("product_id", productID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	data := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		data = append(data, toEntryResponse(e))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": data, "total": total})
}

// Totals sums live entries under the requested filter.
func (h *Handler) Totals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter AggregateFilter
	filter.ProductID, _ = strconv.ParseInt(q.Get("product_id"), 10, 64)
	filter.AccountID, _ = strconv.ParseInt(q.Get("account_id"), 10, 64)
	filter.Movement = MovementType(q.Get("movement"))
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from must be YYYY-MM-DD")
			return
		}
		filter.From = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to must be YYYY-MM-DD")
			return
		}
		filter.To = t
	}

	totals, err := h.repo.Aggregate(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{
		"quantity": totals.Quantity.String(),
		"value":    totals.Value.String(),
		"debit":    totals.Debit.String(),
		"credit":   totals.Credit.String(),
	})
}
