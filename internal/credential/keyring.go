package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "vvmsync"

// Field names of the provisioned IMAP credentials, as reported by the
// carrier's STATUS message.
const (
	FieldUsername = "u"
	FieldPassword = "pw"
	FieldServer   = "srv"
	FieldPort     = "ipt"
)

// ErrNotFound is returned when a credential has never been provisioned.
var ErrNotFound = errors.New("credential not found")

// Credentials holds the IMAP login data of one phone account. Port is
// kept as provisioned; it is parsed by the mailbox adapter.
type Credentials struct {
	Username string
	Password string
	Server   string
	Port     string
}

// Store reads and writes per-account credentials in a keyring.
type Store struct {
	ring keyring.Keyring
}

// NewStore wraps an already opened keyring.
func NewStore(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Open returns a Store backed by the system keyring. fileDir is used by
// the encrypted-file fallback backend.
func Open(fileDir string) (*Store, error) {
	if fileDir == "" {
		fileDir = "~/.config/vvmsync/credentials"
	}
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt("vvmsync-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return &Store{ring: ring}, nil
}

// Key returns the keyring key for a field of an account.
func Key(accountID, field string) string {
	return "vvm-" + accountID + "-" + field
}

// Get retrieves a credential value by key.
func (s *Store) Get(key string) (string, error) {
	item, err := s.ring.Get(key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", fmt.Errorf("getting credential %q: %w", key, ErrNotFound)
		}
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key.
func (s *Store) Set(key string, value string) error {
	err := s.ring.Set(keyring.Item{
		Key:  key,
		Data: []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key. Missing keys are not an error.
func (s *Store) Delete(key string) error {
	err := s.ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}

// Load reads all provisioned fields of an account. Missing fields are
// left empty; the caller decides whether the set is usable.
func (s *Store) Load(accountID string) (Credentials, error) {
	var c Credentials
	fields := []struct {
		name string
		dst  *string
	}{
		{FieldUsername, &c.Username},
		{FieldPassword, &c.Password},
		{FieldServer, &c.Server},
		{FieldPort, &c.Port},
	}

	for _, f := range fields {
		v, err := s.Get(Key(accountID, f.name))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return Credentials{}, err
		}
		*f.dst = v
	}

	return c, nil
}

// Save writes every field of c for the account.
func (s *Store) Save(accountID string, c Credentials) error {
	values := map[string]string{
		FieldUsername: c.Username,
		FieldPassword: c.Password,
		FieldServer:   c.Server,
		FieldPort:     c.Port,
	}
	for field, v := range values {
		if err := s.Set(Key(accountID, field), v); err != nil {
			return err
		}
	}
	return nil
}

// Clear removes every field of the account.
func (s *Store) Clear(accountID string) error {
	for _, field := range []string{FieldUsername, FieldPassword, FieldServer, FieldPort} {
		if err := s.Delete(Key(accountID, field)); err != nil {
			return err
		}
	}
	return nil
}
