// Package oskeyring stores Vezor credentials in the operating system
// keyring, with an in-memory drop-in for tests.
package oskeyring

import (
	"errors"
	"fmt"
	"sync"

	keyringlib "github.com/zalando/go-keyring"
)

// service namespaces every entry this package writes.
const service = "vezor"

// ErrNotFound is returned by Get when no entry exists under the key.
var ErrNotFound = errors.New("credential not found in keyring")

// Service reads and writes named credentials. Implementations return
// ErrNotFound from Get for missing keys and tolerate Delete on keys that
// do not exist.
type Service interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// OSService stores credentials in the platform keychain via
// zalando/go-keyring.
type OSService struct{}

// NewOSService creates the platform-backed keyring service.
func NewOSService() *OSService {
	return &OSService{}
}

func (s *OSService) Get(key string) (string, error) {
	value, err := keyringlib.Get(service, key)
	if err != nil {
		if errors.Is(err, keyringlib.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read %q from OS keyring: %w", key, err)
	}
	return value, nil
}

func (s *OSService) Set(key, value string) error {
	return keyringlib.Set(service, key, value)
}

func (s *OSService) Delete(key string) error {
	err := keyringlib.Delete(service, key)
	if err != nil && !errors.Is(err, keyringlib.ErrNotFound) {
		return err
	}
	return nil
}

var _ Service = (*OSService)(nil)

// MemoryService keeps credentials in a map. Used by tests and anywhere a
// real keychain is unavailable (CI, containers).
type MemoryService struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryService creates an empty in-memory keyring.
func NewMemoryService() *MemoryService {
	return &MemoryService{entries: make(map[string]string)}
}

func (s *MemoryService) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.entries[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (s *MemoryService) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = value
	return nil
}

func (s *MemoryService) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

var _ Service = (*MemoryService)(nil)
