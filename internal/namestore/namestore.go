// Package namestore persists small key-value profile data, most notably
// the chosen display name, across runs. Values live in a YAML file under
// the user config directory.
package namestore

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	appDirName  = "chat-tui"
	profileFile = "profile.yaml"
)

// KeyUsername is the key under which the display name is stored.
const KeyUsername = "chat.username"

// Store is a file-backed key-value store. Every Set rewrites the file.
type Store struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

// DefaultPath returns the profile location under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appDirName, profileFile), nil
}

// Open loads the store at path. A missing file yields an empty store; it
// is created on the first Set.
func Open(path string) (*Store, error) {
	s := &Store{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &s.values); err != nil {
		return nil, err
	}
	if s.values == nil {
		s.values = make(map[string]string)
	}
	return s, nil
}

// Get returns the stored value for key.
func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key and writes the file.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value

	data, err := yaml.Marshal(s.values)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}
