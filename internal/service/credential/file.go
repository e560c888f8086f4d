package credential

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/memoria-app/memoria/internal/model/auth"
)

// FileStore persists credentials as YAML so a login survives restarts.
// The file is read once at construction; afterwards memory is authoritative.
type FileStore struct {
	mu     sync.RWMutex
	path   string
	creds  auth.Credentials
	logger *zap.Logger
}

// NewFileStore loads path if it exists. A missing file yields an empty store.
// A file holding only one token is treated as empty.
func NewFileStore(path string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &FileStore{path: path, logger: logger}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	var creds auth.Credentials
	if err := yaml.Unmarshal(raw, &creds); err != nil {
		return nil, fmt.Errorf("decode credentials file: %w", err)
	}
	if creds.Complete() {
		s.creds = creds
	} else if creds.AccessToken != "" || creds.RefreshToken != "" {
		logger.Warn("ignoring incomplete credentials file", zap.String("path", path))
	}

	return s, nil
}

// Set writes both tokens to disk and memory.
func (s *FileStore) Set(creds auth.Credentials) error {
	if !creds.Complete() {
		return ErrIncompleteCredentials
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(creds); err != nil {
		return err
	}
	s.creds = creds
	return nil
}

// Get returns the stored credentials, or false when none are present.
func (s *FileStore) Get() (auth.Credentials, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.creds.Complete() {
		return auth.Credentials{}, false
	}
	return s.creds, true
}

// Clear removes the file, then forgets both tokens. When the file cannot be
// removed the tokens stay in memory so both copies still agree.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove credentials file: %w", err)
	}
	s.creds = auth.Credentials{}
	return nil
}

// Path returns the backing file location.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) write(creds auth.Credentials) error {
	data, err := yaml.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}

	// write then rename so a reader never sees half a file
	tmp, err := os.CreateTemp(dir, ".credentials-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp credentials file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod credentials file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write credentials file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close credentials file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace credentials file: %w", err)
	}

	s.logger.Debug("credentials saved", zap.String("path", s.path))
	return nil
}
