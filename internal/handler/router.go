package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	authpkg "github.com/DavidGarciaCosta/portal-productos/internal/auth"
	authhandler "github.com/DavidGarciaCosta/portal-productos/internal/handler/auth"
	chathandler "github.com/DavidGarciaCosta/portal-productos/internal/handler/chat"
	producthandler "github.com/DavidGarciaCosta/portal-productos/internal/handler/product"
	"github.com/DavidGarciaCosta/portal-productos/internal/middleware"
	"github.com/DavidGarciaCosta/portal-productos/internal/service/account"
	chatservice "github.com/DavidGarciaCosta/portal-productos/internal/service/chat"
	productservice "github.com/DavidGarciaCosta/portal-productos/internal/service/product"
	"github.com/DavidGarciaCosta/portal-productos/pkg/utils"
)

// Options carries everything the router needs beyond the services.
type Options struct {
	Tokens        *authpkg.Tokens
	AllowedOrigin string
	StaticDir     string
	Log           *slog.Logger
}

// NewRouter wires HTTP routes to the portal services.
func NewRouter(accounts *account.Service, products *productservice.Service, hub *chatservice.Hub, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(opts.AllowedOrigin))

	authHandler := authhandler.New(accounts, opts.Tokens)
	productHandler := producthandler.New(products, opts.Tokens)
	chatHandler := chathandler.New(hub, opts.Tokens, opts.AllowedOrigin, opts.Log)

	started := time.Now()

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", authHandler.RegisterRoutes)
		api.Route("/products", productHandler.RegisterRoutes)
		api.Route("/chat", chatHandler.RegisterRoutes)

		api.Get("/status", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]any{
				"success":   true,
				"status":    "online",
				"uptime":    time.Since(started).Seconds(),
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
		})
	})

	if opts.StaticDir != "" {
		fs := http.FileServer(http.Dir(opts.StaticDir))
		r.Handle("/*", fs)
	}

	return r
}
