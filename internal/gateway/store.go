package gateway

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hackx/skillos/internal/auth"
	"github.com/hackx/skillos/internal/errors"
	"golang.org/x/crypto/nacl/secretbox"
	"gopkg.in/yaml.v3"
)

// SessionStore persists the gateway session between runs.
type SessionStore interface {
	// Load returns the stored session, or nil when none is stored.
	Load() (*auth.Session, error)
	Save(session *auth.Session) error
	Clear() error
}

// MemoryStore keeps the session for the life of the process.
type MemoryStore struct {
	mu      sync.Mutex
	session *auth.Session
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load() (*auth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, nil
	}
	cp := *m.session
	return &cp, nil
}

func (m *MemoryStore) Save(session *auth.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session == nil {
		m.session = nil
		return nil
	}
	cp := *session
	m.session = &cp
	return nil
}

func (m *MemoryStore) Clear() error {
	return m.Save(nil)
}

const (
	keySize   = 32
	nonceSize = 24
)

// FileStore keeps the session in a YAML document sealed with NaCl secretbox.
// The key is derived from a random passphrase kept in a sibling ".key" file,
// created on first save. Both files are written with mode 0600.
type FileStore struct {
	path    string
	keyPath string
	mu      sync.Mutex
}

// NewFileStore creates a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:    path,
		keyPath: strings.TrimSuffix(path, filepath.Ext(path)) + ".key",
	}
}

// Path returns the session file location.
func (f *FileStore) Path() string {
	return f.path
}

// Load reads and decrypts the stored session. A missing file is not an error.
func (f *FileStore) Load() (*auth.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sealed, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrAuth,
			"Failed to read saved session", "Run 'skillos logout' to reset it")
	}

	key, err := f.key(false)
	if err != nil {
		return nil, err
	}
	plain, err := open(sealed, key)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrAuth,
			"Saved session could not be decrypted",
			"Run 'skillos logout' and sign in again")
	}

	var session auth.Session
	if err := yaml.Unmarshal(plain, &session); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrAuth,
			"Saved session is corrupt", "Run 'skillos logout' and sign in again")
	}
	if session.AccessToken == "" {
		return nil, nil
	}
	return &session, nil
}

// Save encrypts and writes session. A nil session clears the store.
func (f *FileStore) Save(session *auth.Session) error {
	if session == nil {
		return f.Clear()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	plain, err := yaml.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Failed to create %s", filepath.Dir(f.path)), "")
	}
	key, err := f.key(true)
	if err != nil {
		return err
	}
	sealed, err := seal(plain, key)
	if err != nil {
		return err
	}
	if err := os.WriteFile(f.path, sealed, 0o600); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Failed to save session", "")
	}
	return nil
}

// Clear removes the session file. The key file is kept.
func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errors.WrapWithCode(err, errors.ErrConfig, "Failed to remove saved session", "")
	}
	return nil
}

// key loads the passphrase file, creating it when create is set.
func (f *FileStore) key(create bool) (*[keySize]byte, error) {
	data, err := os.ReadFile(f.keyPath)
	if os.IsNotExist(err) && create {
		buf := make([]byte, 32)
		if _, err := io.ReadFull(rand.Reader, buf); err != nil {
			return nil, fmt.Errorf("generate session key: %w", err)
		}
		data = []byte(hex.EncodeToString(buf))
		if err := os.WriteFile(f.keyPath, data, 0o600); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig, "Failed to write session key", "")
		}
	} else if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrAuth,
			"Session key is missing", "Run 'skillos login' to sign in again")
	}

	key := [keySize]byte(sha256.Sum256([]byte(strings.TrimSpace(string(data)))))
	return &key, nil
}

// seal returns nonce followed by the secretbox ciphertext.
func seal(plain []byte, key *[keySize]byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plain, &nonce, key), nil
}

func open(sealed []byte, key *[keySize]byte) ([]byte, error) {
	if len(sealed) < nonceSize {
		return nil, fmt.Errorf("sealed data too short")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, key)
	if !ok {
		return nil, fmt.Errorf("wrong key or corrupted data")
	}
	return plain, nil
}
