package masterdata

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/backline-erp/backline/internal/platform/httpx"
	"github.com/backline-erp/backline/internal/shared"
)

// Handler serves master data over JSON.
type Handler struct {
	logger   *slog.Logger
	repo     *Repository
	validate *validator.Validate
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{
		logger:   logger,
		repo:     repo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// MountRoutes registers master data routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/products", h.ListProducts)
	r.Post("/products", h.CreateProduct)
	r.Get("/products/{id}", h.ShowProduct)
	r.Get("/customers", h.listParties(KindCustomer))
	r.Post("/customers", h.createParty(KindCustomer))
	r.Get("/suppliers", h.listParties(KindSupplier))
	r.Post("/suppliers", h.createParty(KindSupplier))
}

// CreateProductRequest is the JSON body for product creation.
type CreateProductRequest struct {
	SKU   string `json:"sku" validate:"required,max=50"`
	Name  string `json:"name" validate:"required,max=200"`
	Unit  string `json:"unit" validate:"omitempty,max=20"`
	Price string `json:"price" validate:"omitempty"`
}

// CreatePartyRequest is the JSON body for customer/supplier creation.
type CreatePartyRequest struct {
	Code  string `json:"code" validate:"required,max=50"`
	Name  string `json:"name" validate:"required,max=200"`
	Phone string `json:"phone" validate:"omitempty,max=50"`
	Email string `json:"email" validate:"omitempty,email"`
	TaxID string `json:"tax_id" validate:"omitempty,max=50"`
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, pg := listParams(r)
	products, total, err := h.repo.ListProducts(r.Context(), filter, pg)
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if products == nil {
		products = []Product{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": products, "total": total})
}

func (h *Handler) ShowProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
		return
	}
	p, err := h.repo.GetProduct(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	price := decimal.Zero
	if req.Price != "" {
		parsed, err := decimal.NewFromString(req.Price)
		if err != nil || parsed.IsNegative() {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "price must be a non-negative number")
			return
		}
		price = parsed
	}
	id, err := h.repo.CreateProduct(r.Context(), Product{SKU: req.SKU, Name: req.Name, Unit: req.Unit, Price: price})
	if err != nil {
		h.logger.Error("create product", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (h *Handler) listParties(kind PartyKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, pg := listParams(r)
		parties, total, err := h.repo.ListParties(r.Context(), kind, filter, pg)
		if err != nil {
			h.logger.Error("list parties", slog.String("kind", string(kind)), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		if parties == nil {
			parties = []Party{}
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"data": parties, "total": total})
	}
}

func (h *Handler) createParty(kind PartyKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatePartyRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
			return
		}
		if err := h.validate.Struct(req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		id, err := h.repo.CreateParty(r.Context(), Party{
			Kind:  kind,
			Code:  req.Code,
			Name:  req.Name,
			Phone: req.Phone,
			Email: req.Email,
			TaxID: req.TaxID,
		})
		if err != nil {
			h.logger.Error("create party", slog.String("kind", string(kind)), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusCreated, map[string]any{"id": id})
	}
}

func listParams(r *http.Request) (ListFilter, shared.Pagination) {
	q := r.URL.Query()
	var filter ListFilter
	filter.Keyword = q.Get("keyword")
	if v := q.Get("is_active"); v != "" {
		active := v == "true"
		filter.IsActive = &active
	}
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("perpage"))
	return filter, shared.NewPagination(page, perPage, 0)
}
