package accounts

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/backline-erp/backline/internal/platform/httpx"
)

// Handler exposes the chart of accounts over JSON.
type Handler struct {
	logger *slog.Logger
	repo   *Repository
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo}
}

// MountRoutes attaches account routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Show)
}

type accountResponse struct {
	ID            int64  `json:"id"`
	Code          string `json:"code"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	NormalBalance string `json:"normal_balance"`
	IsCash        bool   `json:"is_cash"`
}

func toResponse(a Account) accountResponse {
	return accountResponse{
		ID:            a.ID,
		Code:          a.Code,
		Name:          a.Name,
		Type:          string(a.Type),
		NormalBalance: string(a.NormalBalance()),
		IsCash:        a.IsCash,
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var (
		list []Account
		err  error
	)
	if t := r.URL.Query().Get("type"); t != "" {
		typ := AccountType(t)
		if !typ.Valid() {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown account type")
			return
		}
		list, err = h.repo.ListByType(r.Context(), typ)
	} else {
		list, err = h.repo.List(r.Context())
	}
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]accountResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toResponse(a))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": out})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid account id")
		return
	}
	a, err := h.repo.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(a))
}
