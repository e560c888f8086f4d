package credential_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoria-app/memoria/internal/model/auth"
	"github.com/memoria-app/memoria/internal/service/credential"
)

var pair = auth.Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"}

func stores(t *testing.T) map[string]credential.Store {
	t.Helper()

	fileStore, err := credential.NewFileStore(filepath.Join(t.TempDir(), "creds.yaml"), nil)
	require.NoError(t, err)

	return map[string]credential.Store{
		"memory": credential.NewMemoryStore(),
		"file":   fileStore,
	}
}

func TestStoreSetGetClear(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok := store.Get()
			assert.False(t, ok, "fresh store must be empty")

			require.NoError(t, store.Set(pair))
			got, ok := store.Get()
			require.True(t, ok)
			assert.Equal(t, pair, got)

			require.NoError(t, store.Clear())
			_, ok = store.Get()
			assert.False(t, ok, "cleared store must be empty")
		})
	}
}

func TestStoreRejectsHalfCredentials(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			err := store.Set(auth.Credentials{AccessToken: "only-access"})
			require.ErrorIs(t, err, credential.ErrIncompleteCredentials)

			err = store.Set(auth.Credentials{RefreshToken: "only-refresh"})
			require.ErrorIs(t, err, credential.ErrIncompleteCredentials)

			_, ok := store.Get()
			assert.False(t, ok)
		})
	}
}

func TestStoreNeverExposesHalfPair(t *testing.T) {
	store := credential.NewMemoryStore()
	other := auth.Credentials{AccessToken: "access-2", RefreshToken: "refresh-2"}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			switch i % 3 {
			case 0:
				_ = store.Set(pair)
			case 1:
				_ = store.Set(other)
			default:
				_ = store.Clear()
			}
		}
	}()

	for i := 0; i < 2000; i++ {
		got, ok := store.Get()
		if !ok {
			continue
		}
		if got != pair && got != other {
			t.Fatalf("observed mixed credentials: %+v", got)
		}
	}
	close(stop)
	wg.Wait()
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "creds.yaml")

	first, err := credential.NewFileStore(path, nil)
	require.NoError(t, err)
	require.NoError(t, first.Set(pair))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second, err := credential.NewFileStore(path, nil)
	require.NoError(t, err)
	got, ok := second.Get()
	require.True(t, ok)
	assert.Equal(t, pair, got)

	require.NoError(t, second.Clear())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "clear must remove the file")

	third, err := credential.NewFileStore(path, nil)
	require.NoError(t, err)
	_, ok = third.Get()
	assert.False(t, ok)
}

func TestFileStoreClearKeepsTokensWhenRemoveFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.yaml")
	store, err := credential.NewFileStore(path, nil)
	require.NoError(t, err)
	require.NoError(t, store.Set(pair))

	// A non-empty directory at the path cannot be removed.
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.MkdirAll(filepath.Join(path, "locked"), 0o700))

	require.Error(t, store.Clear())
	got, ok := store.Get()
	require.True(t, ok)
	assert.Equal(t, pair, got)
}

func TestFileStoreIgnoresIncompleteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("access: only-access\n"), 0o600))

	store, err := credential.NewFileStore(path, nil)
	require.NoError(t, err)
	_, ok := store.Get()
	assert.False(t, ok)
}

func TestFileStoreRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("access: [unterminated"), 0o600))

	_, err := credential.NewFileStore(path, nil)
	require.Error(t, err)
}
