// Package credentials persists the optional bearer token used on upload requests.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// TokenKey is the fixed key the bearer token is stored under.
const TokenKey = "token"

// ErrPathRequired is returned when a file store is built without a path.
var ErrPathRequired = errors.New("credentials: file path is required")

// Reader exposes read access to the persisted token. An empty token means none is stored.
type Reader interface {
	Token(ctx context.Context) (string, error)
}

// FileStore keeps key/value pairs in a YAML document on disk.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore constructs a store backed by the YAML file at path. The file need not exist yet.
func NewFileStore(path string) (*FileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, ErrPathRequired
	}
	return &FileStore{path: path}, nil
}

// Path returns the backing file location.
func (s *FileStore) Path() string {
	return s.path
}

// Token returns the stored bearer token or an empty string.
func (s *FileStore) Token(ctx context.Context) (string, error) {
	return s.Get(ctx, TokenKey)
}

// Get returns the value stored under key, or "" when absent.
func (s *FileStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return "", err
	}
	return values[key], nil
}

// Set stores value under key, creating the file if necessary.
func (s *FileStore) Set(_ context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("credentials: key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return err
	}
	values[key] = value
	return s.write(values)
}

// Delete removes key. Deleting a missing key is not an error.
func (s *FileStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.write(values)
}

func (s *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("credentials: read %s: %w", s.path, err)
	}

	values := map[string]string{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("credentials: parse %s: %w", s.path, err)
	}
	if values == nil {
		values = map[string]string{}
	}
	return values, nil
}

func (s *FileStore) write(values map[string]string) error {
	data, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("credentials: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("credentials: create dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("credentials: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("credentials: replace %s: %w", s.path, err)
	}
	return nil
}

// Static is a fixed in-memory Reader.
type Static string

// Token returns the static value.
func (s Static) Token(context.Context) (string, error) {
	return string(s), nil
}
