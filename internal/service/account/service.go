// Package account implements login, registration and logout on top of the
// credential store and the auth gate.
package account

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/memoria-app/memoria/internal/apperr"
	"github.com/memoria-app/memoria/internal/model/auth"
	"github.com/memoria-app/memoria/internal/service/credential"
	"github.com/memoria-app/memoria/internal/service/gate"
)

// Fallback messages shown when the server gives no reason.
const (
	MsgLoginFailed    = "Invalid username or password"
	MsgRegisterFailed = "Registration failed"
)

// API is the subset of the backend used for account flows.
type API interface {
	Login(ctx context.Context, req auth.LoginRequest) (auth.Credentials, error)
	Register(ctx context.Context, req auth.RegisterRequest) (auth.Credentials, error)
}

// Service coordinates token issuance with the store and gate.
type Service struct {
	api    API
	store  credential.Store
	gate   *gate.Gate
	logger *zap.Logger
}

// NewService wires an account service.
func NewService(api API, store credential.Store, g *gate.Gate, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{api: api, store: store, gate: g, logger: logger}
}

// Login authenticates and stores the issued tokens.
func (s *Service) Login(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return apperr.Validation("username", "Username is required")
	}
	if password == "" {
		return apperr.Validation("password", "Password is required")
	}

	creds, err := s.api.Login(ctx, auth.LoginRequest{Username: username, Password: password})
	if err != nil {
		s.logger.Info("login rejected", zap.String("username", username), zap.Error(err))
		return err
	}

	return s.adopt(creds, username)
}

// Register creates an account and signs the user in.
func (s *Service) Register(ctx context.Context, req auth.RegisterRequest) error {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if req.Username == "" {
		return apperr.Validation("username", "Username is required")
	}
	if req.Password != req.Password2 {
		return apperr.Validation("password2", "Passwords do not match")
	}

	creds, err := s.api.Register(ctx, req)
	if err != nil {
		s.logger.Info("registration rejected", zap.String("username", req.Username), zap.Error(err))
		return err
	}

	return s.adopt(creds, req.Username)
}

// Logout clears the tokens and moves the gate to public.
func (s *Service) Logout() error {
	err := s.store.Clear()
	s.gate.SetAuthenticated(false)
	if err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

// HandleUnauthorized is installed as the API client's 401 hook.
func (s *Service) HandleUnauthorized() {
	s.logger.Warn("session rejected by server, signing out")
	if err := s.Logout(); err != nil {
		s.logger.Error("logout after 401 failed", zap.Error(err))
	}
}

func (s *Service) adopt(creds auth.Credentials, username string) error {
	if err := s.store.Set(creds); err != nil {
		return fmt.Errorf("store credentials: %w", err)
	}
	s.gate.SetAuthenticated(true)
	s.logger.Info("signed in", zap.String("username", username))
	return nil
}
