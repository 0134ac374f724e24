// Package session is the single source of truth for "is there a logged-in
// user, and who are they." A store holds at most one session; establishing
// a new one replaces the previous one in full.
package session

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/cuzradio/storectl/internal/model"
)

// Store is injected into every component that needs the active session.
type Store interface {
	// Establish overwrites any existing session atomically. Subsequent
	// Current calls observe the new session immediately.
	Establish(s model.Session) error
	// Current returns the active session. ok is false when anonymous;
	// absence is a normal state, not an error.
	Current() (s model.Session, ok bool)
	// Clear removes the session. Idempotent.
	Clear() error
}

// MemStore keeps the session in process memory.
type MemStore struct {
	mu  sync.RWMutex
	s   model.Session
	has bool
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore { return &MemStore{} }

func (m *MemStore) Establish(s model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s, m.has = s, !s.Anonymous()
	return nil
}

func (m *MemStore) Current() (model.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.has {
		return model.Session{}, false
	}
	return m.s, true
}

func (m *MemStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s, m.has = model.Session{}, false
	return nil
}

const (
	sessionFile = "session.json"
	keyFile     = "session.key"
)

// FileStore persists the session as one sealed record under a well-known
// path, so it survives re-invocations of the client on the same machine
// but never travels anywhere except as the bearer header on requests.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

var _ Store = (*FileStore)(nil)

// NewFileStore stores the session under dir, creating it on demand.
func NewFileStore(dir string) *FileStore { return &FileStore{dir: dir} }

func (f *FileStore) sessionPath() string { return filepath.Join(f.dir, sessionFile) }
func (f *FileStore) keyPath() string     { return filepath.Join(f.dir, keyFile) }

func (f *FileStore) Establish(s model.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return err
	}
	secret, err := loadOrCreateSecret(f.keyPath())
	if err != nil {
		return err
	}
	plain, err := json.Marshal(s)
	if err != nil {
		return err
	}
	sealed, err := seal(secret, plain)
	if err != nil {
		return err
	}
	// Write-then-rename so readers never observe a half-written session.
	tmp := f.sessionPath() + ".tmp"
	if err := os.WriteFile(tmp, sealed, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.sessionPath())
}

// Current unseals the stored record. Any failure (missing file, missing
// key, tampered blob, empty credential) reads as anonymous.
func (f *FileStore) Current() (model.Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sealed, err := os.ReadFile(f.sessionPath())
	if err != nil {
		return model.Session{}, false
	}
	secret, err := os.ReadFile(f.keyPath())
	if err != nil {
		return model.Session{}, false
	}
	plain, err := open(secret, sealed)
	if err != nil {
		return model.Session{}, false
	}
	var s model.Session
	if err := json.Unmarshal(plain, &s); err != nil || s.Anonymous() {
		return model.Session{}, false
	}
	return s, true
}

func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.sessionPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
