// Package credential persists provider API keys for the application
// instance. Secrets are keyed by service name (e.g. "ANTHROPIC_API_KEY");
// an absent credential is a valid state distinct from an empty string.
package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Store is the credential lookup contract consumed by the orchestrator.
// Get must report storage failures as errors, never as an absent secret.
type Store interface {
	Get(serviceName string) (secret string, ok bool, err error)
	Set(serviceName, secret string) error
}

const storeFileName = "credentials.json"

// FileStore keeps secrets in a JSON file under the application data dir.
// Set persists immediately; there is no batching and no expiry.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates the data directory if needed and returns a store
// backed by <dir>/credentials.json.
func NewFileStore(dir string) (*FileStore, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve storage dir: %w", err)
	}
	if err := os.MkdirAll(absDir, 0o700); err != nil {
		return nil, fmt.Errorf("create storage dir %q: %w", absDir, err)
	}
	return &FileStore{path: filepath.Join(absDir, storeFileName)}, nil
}

// Get returns the stored secret for the service name, if any.
func (s *FileStore) Get(serviceName string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	secrets, err := s.load()
	if err != nil {
		return "", false, err
	}
	secret, ok := secrets[serviceName]
	return secret, ok, nil
}

// Set overwrites the secret for the service name and persists immediately.
func (s *FileStore) Set(serviceName, secret string) error {
	if serviceName == "" {
		return errors.New("service name must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	secrets, err := s.load()
	if err != nil {
		return err
	}
	secrets[serviceName] = secret
	return s.save(secrets)
}

func (s *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read credential store %q: %w", s.path, err)
	}

	secrets := map[string]string{}
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("parse credential store %q: %w", s.path, err)
	}
	return secrets, nil
}

// save writes through a temp file and rename so a crash mid-write cannot
// truncate existing secrets.
func (s *FileStore) save(secrets map[string]string) error {
	data, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write credential store %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace credential store %q: %w", s.path, err)
	}
	return nil
}
