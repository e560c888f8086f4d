// Package credential keeps the access/refresh token pair for the current user.
package credential

import (
	"errors"
	"sync"

	"github.com/memoria-app/memoria/internal/model/auth"
)

// ErrIncompleteCredentials is returned by Set when either token is missing.
var ErrIncompleteCredentials = errors.New("credentials require both access and refresh tokens")

// Store exposes credential persistence to the gate and the API client.
type Store interface {
	Set(creds auth.Credentials) error
	Get() (auth.Credentials, bool)
	Clear() error
}

// MemoryStore implements Store for the lifetime of the process.
type MemoryStore struct {
	mu    sync.RWMutex
	creds auth.Credentials
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Set replaces both tokens.
func (s *MemoryStore) Set(creds auth.Credentials) error {
	if !creds.Complete() {
		return ErrIncompleteCredentials
	}

	s.mu.Lock()
	s.creds = creds
	s.mu.Unlock()
	return nil
}

// Get returns the stored credentials, or false when none are present.
func (s *MemoryStore) Get() (auth.Credentials, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.creds.Complete() {
		return auth.Credentials{}, false
	}
	return s.creds, true
}

// Clear drops both tokens.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	s.creds = auth.Credentials{}
	s.mu.Unlock()
	return nil
}
