package vouchers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/backline-erp/backline/internal/platform/httpx"
	"github.com/backline-erp/backline/internal/shared"
)

// Handler exposes voucher operations over JSON.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// MountRoutes registers voucher routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.Post)
	r.Get("/", h.List)
	r.Get("/{id}", h.Show)
	r.Delete("/{id}", h.Void)
}

func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	var req PostVoucherRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	v, err := req.ToVoucher(actorID(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	posted, err := h.service.Post(r.Context(), v)
	if err != nil {
		h.logger.Error("post voucher", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, NewVoucherResponse(posted))
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid voucher id")
		return
	}
	v, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewVoucherResponse(v))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("perpage"))
	kind := Kind(r.URL.Query().Get("kind"))

	p := shared.NewPagination(page, perPage, 0)
	list, total, err := h.service.List(r.Context(), kind, p)
	if err != nil {
		h.logger.Error("list vouchers", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	data := make([]VoucherResponse, 0, len(list))
	for _, v := range list {
		data = append(data, NewVoucherResponse(v))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"data":  data,
		"total": total,
	})
}

func (h *Handler) Void(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid voucher id")
		return
	}
	if err := h.service.Void(r.Context(), id, actorID(r)); err != nil {
		h.logger.Error("void voucher", slog.String("id", id.String()), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// actorID reads the authenticated actor set by the upstream authorization
// gate. The gate itself is outside this module.
func actorID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	return id
}
