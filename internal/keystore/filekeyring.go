package keystore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/e-XpertSolutions/go-secret/secret"
)

// FileKeyring is a Keyring backed by encrypted store files, one file
// per service namespace. It stands in for the OS secure store on
// platforms without a system keychain.
type FileKeyring struct {
	dir        string
	passphrase string

	mu     sync.Mutex
	stores map[string]*secret.Store
}

// NewFileKeyring opens a keyring rooted at dir. Store files are created
// on demand, protected by passphrase.
func NewFileKeyring(dir, passphrase string) (*FileKeyring, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create keyring directory: %w", err)
	}
	return &FileKeyring{
		dir:        dir,
		passphrase: passphrase,
		stores:     make(map[string]*secret.Store),
	}, nil
}

func (k *FileKeyring) Get(service, account string) ([]byte, error) {
	st, err := k.store(service)
	if err != nil {
		return nil, err
	}

	value, err := st.Get(sanitizeKey(account))
	if errors.Is(err, secret.ErrNotFound) {
		return nil, ErrKeyringNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("keyring get failed: %w", err)
	}
	return value, nil
}

func (k *FileKeyring) Set(service, account string, value []byte) error {
	st, err := k.store(service)
	if err != nil {
		return err
	}

	if err := st.Put(sanitizeKey(account), value); err != nil {
		return fmt.Errorf("keyring set failed: %w", err)
	}
	return nil
}

func (k *FileKeyring) Delete(service, account string) error {
	st, err := k.store(service)
	if err != nil {
		return err
	}

	// go-secret treats deleting a missing key as a no-op, matching the
	// idempotent clear contract.
	if err := st.Delete(sanitizeKey(account)); err != nil {
		return fmt.Errorf("keyring delete failed: %w", err)
	}
	return nil
}

// Close releases every open store file.
func (k *FileKeyring) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	var firstErr error
	for service, st := range k.stores {
		if err := st.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close keyring store %s: %w", service, err)
		}
		delete(k.stores, service)
	}
	return firstErr
}

func (k *FileKeyring) store(service string) (*secret.Store, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if st, ok := k.stores[service]; ok {
		return st, nil
	}

	path := filepath.Join(k.dir, service+".keyring")
	st, err := secret.OpenStore(path, k.passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring store %s: %w", service, err)
	}
	k.stores[service] = st
	return st, nil
}

// sanitizeKey maps an account name onto the store's restricted key
// charset (alphanumerics, dashes, underscores).
func sanitizeKey(account string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, account)
}
