package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/DavidGarciaCosta/portal-productos/internal/auth"
	"github.com/DavidGarciaCosta/portal-productos/internal/config"
	"github.com/DavidGarciaCosta/portal-productos/internal/handler"
	"github.com/DavidGarciaCosta/portal-productos/internal/model/user"
	"github.com/DavidGarciaCosta/portal-productos/internal/service/account"
	chatservice "github.com/DavidGarciaCosta/portal-productos/internal/service/chat"
	"github.com/DavidGarciaCosta/portal-productos/internal/service/presence"
	productservice "github.com/DavidGarciaCosta/portal-productos/internal/service/product"
	"github.com/DavidGarciaCosta/portal-productos/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file loaded, using system environment", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(log)

	db, err := store.Open(cfg.BadgerPath, log)
	if err != nil {
		log.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	users := store.NewUsers(db)
	messages := store.NewMessages(db, log)
	products := store.NewProducts(db)

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenDuration)
	accounts := account.NewService(users, tokens, log)
	catalog := productservice.NewService(products)

	if err := seedAdmin(users, cfg, log); err != nil {
		log.Error("failed to seed admin account", "error", err)
		os.Exit(1)
	}

	registry := presence.NewRegistry()
	hub := chatservice.NewHub(registry, messages, users, cfg.HistoryLimit, cfg.MaxMessageLen, log)

	sweeper := presence.NewSweeper(registry, hub, cfg.SweepInterval, cfg.IdleThreshold, log)
	go sweeper.Run(ctx)

	router := handler.NewRouter(accounts, catalog, hub, handler.Options{
		Tokens:        tokens,
		AllowedOrigin: cfg.AllowedOrigin,
		StaticDir:     cfg.StaticDir,
		Log:           log,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info("portal listening", "addr", cfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	// Leave no ghosts behind: a restart should not report anyone online.
	if err := users.ClearOnline(); err != nil {
		log.Error("failed to clear online flags", "error", err)
	}
	log.Info("portal stopped")
}

// seedAdmin creates the default admin account on first boot.
func seedAdmin(users *store.Users, cfg *config.Config, log *slog.Logger) error {
	hasAdmin, err := users.HasAdmin()
	if err != nil {
		return err
	}
	if hasAdmin {
		log.Debug("admin account already present")
		return nil
	}

	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}

	if _, err := users.Create(user.User{
		Username:     cfg.AdminUsername,
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		Role:         user.RoleAdmin,
	}); err != nil {
		return err
	}

	log.Info("default admin account created", "username", cfg.AdminUsername)
	return nil
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
