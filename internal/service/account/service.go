// Package account implements registration, login and profile lookup on top
// of the persisted user store.
package account

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/DavidGarciaCosta/portal-productos/internal/auth"
	"github.com/DavidGarciaCosta/portal-productos/internal/model/user"
)

// ErrInvalidCredentials is returned for any login failure. One message for
// both unknown email and wrong password, so accounts cannot be enumerated.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserStore is the persistence the service depends on.
type UserStore interface {
	Create(u user.User) (user.User, error)
	GetByEmail(email string) (user.User, error)
	GetByID(id string) (user.User, error)
}

// Service handles the account lifecycle.
type Service struct {
	users  UserStore
	tokens *auth.Tokens
	log    *slog.Logger
}

// NewService wires the account service.
func NewService(users UserStore, tokens *auth.Tokens, log *slog.Logger) *Service {
	return &Service{users: users, tokens: tokens, log: log}
}

// Register validates the request, hashes the password and persists the
// account, returning a fresh token plus the public profile. Only "admin"
// elevates the role; everything else falls back to a regular user.
func (s *Service) Register(req auth.RegisterRequest) (string, user.Profile, error) {
	if err := auth.ValidateRegister(req); err != nil {
		return "", user.Profile{}, err
	}

	role := user.RoleUser
	if strings.EqualFold(strings.TrimSpace(req.Role), user.RoleAdmin) {
		role = user.RoleAdmin
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return "", user.Profile{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.users.Create(user.User{
		Username:     req.Username,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		return "", user.Profile{}, err
	}

	token, err := s.tokens.Generate(created.ID, created.Username, created.Role)
	if err != nil {
		return "", user.Profile{}, fmt.Errorf("generate token: %w", err)
	}

	s.log.Info("user registered", "user", created.Username, "role", created.Role)
	return token, created.Profile(), nil
}

// Login authenticates by email and password and issues a token.
func (s *Service) Login(req auth.LoginRequest) (string, user.Profile, error) {
	if err := auth.ValidateLogin(req); err != nil {
		return "", user.Profile{}, err
	}

	u, err := s.users.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return "", user.Profile{}, ErrInvalidCredentials
	}

	if !auth.ComparePassword(req.Password, u.PasswordHash) {
		return "", user.Profile{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(u.ID, u.Username, u.Role)
	if err != nil {
		return "", user.Profile{}, fmt.Errorf("generate token: %w", err)
	}

	return token, u.Profile(), nil
}

// Profile returns the stored public profile for an authenticated user.
func (s *Service) Profile(userID string) (user.Profile, error) {
	u, err := s.users.GetByID(userID)
	if err != nil {
		return user.Profile{}, err
	}
	return u.Profile(), nil
}
