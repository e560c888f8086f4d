package dashboard

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/memoria-app/memoria/internal/model/avatar"
	"github.com/memoria-app/memoria/internal/service/gate"
)

// MsgLoadFailed is shown when the avatar list cannot be fetched.
const MsgLoadFailed = "Failed to load avatars"

// API lists avatars.
type API interface {
	ListAvatars(ctx context.Context) ([]avatar.Avatar, error)
}

// Service backs the avatar overview.
type Service struct {
	api    API
	logger *zap.Logger
}

// NewService wires a dashboard service.
func NewService(api API, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{api: api, logger: logger}
}

// List returns the user's avatars in server order.
func (s *Service) List(ctx context.Context) ([]avatar.Avatar, error) {
	items, err := s.api.ListAvatars(ctx)
	if err != nil {
		return nil, fmt.Errorf("list avatars: %w", err)
	}
	s.logger.Debug("avatars loaded", zap.Int("count", len(items)))
	return items, nil
}

// CanChat reports whether a conversation may be opened with a.
func CanChat(a avatar.Avatar) bool {
	return a.ID > 0 && a.Ready()
}

// ChatPath returns the chat route for a, or false for drafts.
func ChatPath(a avatar.Avatar) (string, bool) {
	if !CanChat(a) {
		return "", false
	}
	return gate.ChatPath(a.ID), true
}
