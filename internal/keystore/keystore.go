// Package keystore persists the vault's key material in a secure
// key-value store behind generation-versioned service namespaces. Reads
// fall back through prior generations and migrate hits forward.
package keystore

import (
	"encoding/base64"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/arlenn/secvault/internal/events"
)

// Secret names the logical secrets the keystore manages.
type Secret string

const (
	// SecretGeneratedPassword is the device-generated random password
	// used while no user password is configured.
	SecretGeneratedPassword Secret = "generated-password"

	// SecretL1Key is legacy key material. It is carried across
	// generations but no field-level crypto path uses it; the vault
	// keys the database file with it.
	SecretL1Key Secret = "l1-key"

	// SecretL2Key is the data-encryption key, itself encrypted under a
	// key derived from the current password.
	SecretL2Key Secret = "encrypted-l2-key"

	// SecretSignatureSalt is the per-installation salt for account
	// signature hashing, created lazily on first use.
	SecretSignatureSalt Secret = "signature-salt"
)

// ErrKeyringNotFound is the sentinel a Keyring returns for a missing
// entry. Not-found is never an error at the keystore level; it drives
// the generation fallback chain.
var ErrKeyringNotFound = errors.New("keyring entry not found")

// KeystoreError wraps any unexpected status from the underlying secure
// store.
type KeystoreError struct {
	Op  string
	Err error
}

func (e *KeystoreError) Error() string {
	return fmt.Sprintf("keystore %s failed: %v", e.Op, e.Err)
}

func (e *KeystoreError) Unwrap() error { return e.Err }

// Keyring is the underlying secure key-value store. Implementations
// return ErrKeyringNotFound for missing entries; any other error is
// treated as an unexpected backend status.
type Keyring interface {
	Get(service, account string) ([]byte, error)
	Set(service, account string, value []byte) error
	Delete(service, account string) error
}

// Store reads and writes the vault secrets through the generation
// chain.
type Store struct {
	keyring     Keyring
	generations []generation
	reporter    events.Reporter
}

// New returns a Store over the given keyring. reporter receives a
// SecretMigrated event for every value found under an old generation.
func New(keyring Keyring, reporter events.Reporter) *Store {
	if reporter == nil {
		reporter = events.NopReporter{}
	}
	return &Store{
		keyring:     keyring,
		generations: defaultGenerations,
		reporter:    reporter,
	}
}

// Read looks a secret up in the current generation first, then walks
// prior generations newest-to-oldest. The first hit under an old
// generation is written through into the current one. Returns nil with
// no error when no generation holds the secret.
func (s *Store) Read(name Secret) ([]byte, error) {
	for i, gen := range s.generations {
		raw, err := s.keyring.Get(gen.service, gen.account(name))
		if errors.Is(err, ErrKeyringNotFound) {
			continue
		}
		if err != nil {
			return nil, &KeystoreError{Op: "read", Err: err}
		}

		value, err := gen.decode(raw)
		if err != nil {
			return nil, &KeystoreError{Op: "decode", Err: err}
		}

		if i > 0 {
			if err := s.Write(name, value); err != nil {
				return nil, err
			}
			zap.L().Info("migrated secret to current keystore generation",
				zap.String("secret", string(name)),
				zap.String("from_generation", gen.name))
			s.reporter.Report(events.SecretMigrated{
				Generation: gen.name,
				Secret:     string(name),
			})
		}

		return value, nil
	}

	return nil, nil
}

// Write stores a secret under the current generation.
func (s *Store) Write(name Secret, value []byte) error {
	current := s.generations[0]
	if err := s.keyring.Set(current.service, current.account(name), current.encode(value)); err != nil {
		return &KeystoreError{Op: "write", Err: err}
	}
	return nil
}

// Clear removes a secret from every generation. Missing entries are not
// an error.
func (s *Store) Clear(name Secret) error {
	for _, gen := range s.generations {
		err := s.keyring.Delete(gen.service, gen.account(name))
		if err != nil && !errors.Is(err, ErrKeyringNotFound) {
			return &KeystoreError{Op: "clear", Err: err}
		}
	}
	return nil
}

func encodeBase64(value []byte) []byte {
	return []byte(base64.StdEncoding.EncodeToString(value))
}

func decodeBase64(raw []byte) ([]byte, error) {
	value, err := base64.StdEncoding.DecodeString(string(raw))
	if err != nil {
		return nil, fmt.Errorf("malformed base64 secret: %w", err)
	}
	return value, nil
}
