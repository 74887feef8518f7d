package chat

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	authpkg "github.com/DavidGarciaCosta/portal-productos/internal/auth"
	"github.com/DavidGarciaCosta/portal-productos/internal/middleware"
	chatmodel "github.com/DavidGarciaCosta/portal-productos/internal/model/chat"
	chatservice "github.com/DavidGarciaCosta/portal-productos/internal/service/chat"
	"github.com/DavidGarciaCosta/portal-productos/pkg/utils"
)

// Handler exposes the chat REST surface and the websocket entry point.
type Handler struct {
	hub      *chatservice.Hub
	tokens   *authpkg.Tokens
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// New creates the chat handler. An allowedOrigin of "*" skips the origin
// check, matching the CORS policy of the REST surface.
func New(hub *chatservice.Hub, tokens *authpkg.Tokens, allowedOrigin string, log *slog.Logger) *Handler {
	return &Handler{
		hub:    hub,
		tokens: tokens,
		log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "*" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
	}
}

// RegisterRoutes mounts the chat endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)

	r.Group(func(pr chi.Router) {
		pr.Use(middleware.Authenticate(h.tokens))
		pr.Get("/messages", h.handleMessages)
		pr.Get("/online-users", h.handleOnlineUsers)
	})
}

// handleWebSocket authenticates the handshake credential and, on success,
// upgrades the connection and runs the session until termination. A missing
// or invalid token rejects the connection before any registry or
// persistence side effect.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := handshakeToken(r)
	if token == "" {
		utils.RespondError(w, http.StatusUnauthorized, "access token required", "MISSING_TOKEN")
		return
	}

	claims, err := h.tokens.Verify(token)
	if err != nil {
		utils.RespondError(w, http.StatusUnauthorized, "invalid token", "INVALID_TOKEN")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := chatservice.NewClient(h.hub, conn, claims, h.log)
	client.Run()
}

func (h *Handler) handleMessages(w http.ResponseWriter, r *http.Request) {
	history, err := h.hub.History(chatmodel.DefaultRoom)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to load messages", "")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"messages": history,
	})
}

func (h *Handler) handleOnlineUsers(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"users":   h.hub.Roster(),
	})
}

// handshakeToken pulls the credential from the query string or the
// Authorization header, whichever the client used.
func handshakeToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
