package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	authpkg "github.com/DavidGarciaCosta/portal-productos/internal/auth"
	"github.com/DavidGarciaCosta/portal-productos/internal/middleware"
	"github.com/DavidGarciaCosta/portal-productos/internal/service/account"
	"github.com/DavidGarciaCosta/portal-productos/internal/store"
	"github.com/DavidGarciaCosta/portal-productos/pkg/utils"
)

// Handler exposes registration, login and profile endpoints.
type Handler struct {
	accounts *account.Service
	tokens   *authpkg.Tokens
}

// New creates the auth handler.
func New(accounts *account.Service, tokens *authpkg.Tokens) *Handler {
	return &Handler{accounts: accounts, tokens: tokens}
}

// RegisterRoutes mounts the auth endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)

	r.Group(func(pr chi.Router) {
		pr.Use(middleware.Authenticate(h.tokens))
		pr.Get("/verify", h.handleVerify)
		pr.Get("/profile", h.handleProfile)
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req authpkg.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	token, profile, err := h.accounts.Register(req)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrUserExists):
			utils.RespondError(w, http.StatusBadRequest, "user or email already registered", "")
		case isValidationError(err):
			utils.RespondError(w, http.StatusBadRequest, "all fields are required and must be valid", "")
		default:
			utils.RespondError(w, http.StatusInternalServerError, "registration failed", "")
		}
		return
	}

	utils.RespondJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "user registered successfully",
		"token":   token,
		"user":    profile,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req authpkg.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	token, profile, err := h.accounts.Login(req)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrInvalidCredentials):
			utils.RespondError(w, http.StatusUnauthorized, "invalid credentials", "")
		case isValidationError(err):
			utils.RespondError(w, http.StatusBadRequest, "email and password are required", "")
		default:
			utils.RespondError(w, http.StatusInternalServerError, "login failed", "")
		}
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "login successful",
		"token":   token,
		"user":    profile,
	})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFrom(r.Context())
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user": map[string]string{
			"userId":   claims.UserID,
			"username": claims.Username,
			"role":     claims.Role,
		},
	})
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFrom(r.Context())
	profile, err := h.accounts.Profile(claims.UserID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "user not found", "USER_NOT_FOUND")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    profile,
	})
}

func isValidationError(err error) bool {
	var verr validator.ValidationErrors
	return errors.As(err, &verr)
}
