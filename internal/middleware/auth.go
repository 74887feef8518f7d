package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/DavidGarciaCosta/portal-productos/internal/auth"
	"github.com/DavidGarciaCosta/portal-productos/internal/model/user"
	"github.com/DavidGarciaCosta/portal-productos/pkg/utils"
)

type contextKey struct{}

var claimsKey contextKey

// ClaimsFrom extracts the authenticated identity placed in the request
// context by Authenticate.
func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok
}

// Authenticate validates the Bearer token and injects its claims into the
// request context. Failure modes carry distinct codes so clients can react
// (refresh on TOKEN_EXPIRED, re-login on INVALID_TOKEN).
func Authenticate(tokens *auth.Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				utils.RespondError(w, http.StatusUnauthorized, "access token required", "MISSING_TOKEN")
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				utils.RespondError(w, http.StatusUnauthorized, "invalid token format", "INVALID_TOKEN_FORMAT")
				return
			}

			claims, err := tokens.Verify(parts[1])
			if err != nil {
				if errors.Is(err, auth.ErrTokenExpired) {
					utils.RespondError(w, http.StatusUnauthorized, "token expired", "TOKEN_EXPIRED")
					return
				}
				utils.RespondError(w, http.StatusUnauthorized, "invalid token", "INVALID_TOKEN")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin gates catalog mutations behind the admin role. Must run
// after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFrom(r.Context())
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "authentication required", "AUTH_REQUIRED")
			return
		}
		if claims.Role != user.RoleAdmin {
			utils.RespondError(w, http.StatusForbidden, "admin privileges required", "ADMIN_REQUIRED")
			return
		}
		next.ServeHTTP(w, r)
	})
}
