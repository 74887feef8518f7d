package product

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	authpkg "github.com/DavidGarciaCosta/portal-productos/internal/auth"
	"github.com/DavidGarciaCosta/portal-productos/internal/middleware"
	productservice "github.com/DavidGarciaCosta/portal-productos/internal/service/product"
	"github.com/DavidGarciaCosta/portal-productos/internal/store"
	"github.com/DavidGarciaCosta/portal-productos/pkg/utils"
)

// Handler exposes the catalog endpoints. Reads are public; mutations
// require an admin token.
type Handler struct {
	products *productservice.Service
	tokens   *authpkg.Tokens
}

// New creates the product handler.
func New(products *productservice.Service, tokens *authpkg.Tokens) *Handler {
	return &Handler{products: products, tokens: tokens}
}

// RegisterRoutes mounts the catalog endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)

	r.Group(func(pr chi.Router) {
		pr.Use(middleware.Authenticate(h.tokens))
		pr.Use(middleware.RequireAdmin)
		pr.Post("/", h.handleCreate)
		pr.Put("/{id}", h.handleUpdate)
		pr.Delete("/{id}", h.handleDelete)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	query := productservice.ListQuery{
		Category: r.URL.Query().Get("category"),
		Search:   r.URL.Query().Get("search"),
		Page:     intQuery(r, "page", 1),
		Limit:    intQuery(r, "limit", 10),
	}

	products, page, err := h.products.List(query)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to list products", "")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"products":   products,
		"pagination": page,
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.Get(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.RespondError(w, http.StatusNotFound, "product not found", "")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to load product", "")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"product": p,
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var input productservice.Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	claims, _ := middleware.ClaimsFrom(r.Context())
	p, err := h.products.Create(input, claims.UserID, claims.Username)
	if err != nil {
		if isValidationError(err) {
			utils.RespondError(w, http.StatusBadRequest, "all required fields must be provided", "")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to create product", "")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "product created successfully",
		"product": p,
	})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var input productservice.Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	p, err := h.products.Update(chi.URLParam(r, "id"), input)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			utils.RespondError(w, http.StatusNotFound, "product not found", "")
		case isValidationError(err):
			utils.RespondError(w, http.StatusBadRequest, "all required fields must be provided", "")
		default:
			utils.RespondError(w, http.StatusInternalServerError, "failed to update product", "")
		}
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "product updated successfully",
		"product": p,
	})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Delete(chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.RespondError(w, http.StatusNotFound, "product not found", "")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to delete product", "")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "product deleted successfully",
	})
}

func intQuery(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}

func isValidationError(err error) bool {
	var verr validator.ValidationErrors
	return errors.As(err, &verr)
}
