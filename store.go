package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	goerrors "github.com/goliatone/go-errors"
)

// DefaultCredentialKey names the slot holding the active credential
const DefaultCredentialKey = "token"

// MemoryStore keeps the credential in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

var _ CredentialStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Put(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStore) Get(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

// FileStore persists the credential slot in a JSON document on disk so it
// survives restarts of the application. Other slots found in the document
// are preserved.
type FileStore struct {
	mu   sync.Mutex
	path string
	key  string
}

var _ CredentialStore = (*FileStore)(nil)

// NewFileStore returns a store backed by the file at path. An empty key
// uses DefaultCredentialKey.
func NewFileStore(path, key string) *FileStore {
	if key == "" {
		key = DefaultCredentialKey
	}
	return &FileStore{path: path, key: key}
}

// DefaultStorePath returns the per-user location of the credential file
func DefaultStorePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "taskctl", "credentials.json"), nil
}

// Path returns the backing file location
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Put(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	slots, err := f.read()
	if err != nil {
		return err
	}
	slots[f.key] = token
	return f.write(slots)
}

func (f *FileStore) Get(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	slots, err := f.read()
	if err != nil {
		return "", err
	}
	return slots[f.key], nil
}

func (f *FileStore) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	slots, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := slots[f.key]; !ok {
		return nil
	}
	delete(slots, f.key)
	return f.write(slots)
}

func (f *FileStore) read() (map[string]string, error) {
	slots := map[string]string{}
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return slots, nil
	}
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read credential file")
	}
	if len(raw) == 0 {
		return slots, nil
	}
	if err := json.Unmarshal(raw, &slots); err != nil {
		// a corrupt document holds no usable credential
		return map[string]string{}, nil
	}
	return slots, nil
}

func (f *FileStore) write(slots map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create credential directory")
	}

	raw, err := json.Marshal(slots)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode credential file")
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".credentials-*")
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create credential file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to write credential file")
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to set credential file mode")
	}
	if err := tmp.Close(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to close credential file")
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to replace credential file")
	}
	return nil
}

// CurrentClaims returns the claims of the stored credential when one is
// present and not expired. It never calls the network.
func CurrentClaims(ctx context.Context, store CredentialStore, codec *Codec) (*Claims, bool) {
	if store == nil {
		return nil, false
	}
	if codec == nil {
		codec = defaultCodec
	}
	token, err := store.Get(ctx)
	if err != nil || token == "" {
		return nil, false
	}
	claims, err := codec.Decode(token)
	if err != nil || claims.Expired(codec.now()) {
		return nil, false
	}
	return claims, true
}
