package credential

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/99designs/keyring"
)

const (
	serviceName = "focusflow"
	// APIKeyName is the keyring item holding the language-model credential.
	APIKeyName = "anthropic-api-key"
)

type Config struct {
	// FileDir is used by the encrypted file backend.
	FileDir string
	// Backends overrides the backend preference list.
	Backends []keyring.BackendType
}

type Store struct {
	cfg Config
}

func New(cfg Config) *Store {
	if cfg.FileDir == "" {
		cfg.FileDir = "~/.config/focusflow/credentials"
	}
	if len(cfg.Backends) == 0 {
		cfg.Backends = []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		}
	}
	return &Store{cfg: cfg}
}

func (s *Store) open() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName:              serviceName,
		AllowedBackends:          s.cfg.Backends,
		FileDir:                  s.cfg.FileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt("focusflow-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

func (s *Store) Get(key string) (string, error) {
	ring, err := s.open()
	if err != nil {
		return "", err
	}
	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

func (s *Store) Set(key, value string) error {
	ring, err := s.open()
	if err != nil {
		return err
	}
	if err := ring.Set(keyring.Item{Key: key, Data: []byte(value)}); err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(key string) error {
	ring, err := s.open()
	if err != nil {
		return err
	}
	if err := ring.Remove(key); err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}

// ResolveAPIKey prefers ANTHROPIC_API_KEY, then CLAUDE_API_KEY, then the
// keyring. It returns "" when none is set.
func ResolveAPIKey(s *Store) string {
	for _, env := range []string{"ANTHROPIC_API_KEY", "CLAUDE_API_KEY"} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v
		}
	}
	if s == nil {
		return ""
	}
	v, err := s.Get(APIKeyName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(v)
}

// IsNotFound reports whether err means the item does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, keyring.ErrKeyNotFound)
}
