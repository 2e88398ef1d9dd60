package gateway

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hackx/skillos/internal/auth"
	"github.com/hackx/skillos/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession() *auth.Session {
	return &auth.Session{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC),
		User:         auth.User{ID: "6f1c", Phone: "+1234567890"},
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	got, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, got)

	session := testSession()
	require.NoError(t, store.Save(session))
	session.AccessToken = "mutated"

	got, err = store.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "access", got.AccessToken, "store keeps its own copy")

	require.NoError(t, store.Clear())
	got, err = store.Load()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "session.yaml")
	store := NewFileStore(path)
	assert.Equal(t, path, store.Path())

	got, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, got, "missing file is not an error")

	require.NoError(t, store.Save(testSession()))

	got, err = NewFileStore(path).Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "access", got.AccessToken)
	assert.Equal(t, "refresh", got.RefreshToken)
	assert.Equal(t, "+1234567890", got.User.Phone)
	assert.True(t, got.ExpiresAt.Equal(testSession().ExpiresAt))
}

func TestFileStore_EncryptedAndPrivate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.yaml")
	store := NewFileStore(path)
	require.NoError(t, store.Save(testSession()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "access")
	assert.NotContains(t, string(data), "+1234567890")

	for _, p := range []string{path, filepath.Join(dir, "session.key")} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), p)
	}
}

func TestFileStore_WrongKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.yaml")
	require.NoError(t, NewFileStore(path).Save(testSession()))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "session.key"), []byte("other"), 0o600))

	_, err := NewFileStore(path).Load()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrAuth))
	assert.Contains(t, err.Error(), "could not be decrypted")
}

func TestFileStore_Truncated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.yaml")
	store := NewFileStore(path)
	require.NoError(t, store.Save(testSession()))
	require.NoError(t, os.WriteFile(path, []byte("short"), 0o600))

	_, err := store.Load()
	require.Error(t, err)
}

func TestFileStore_ClearAndSaveNil(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.yaml")
	store := NewFileStore(path)

	require.NoError(t, store.Clear(), "clearing a missing file is fine")

	require.NoError(t, store.Save(testSession()))
	require.NoError(t, store.Save(nil))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, got)
}
