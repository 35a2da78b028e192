package vault

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/arlenn/secvault/internal/autofill"
	"github.com/arlenn/secvault/internal/crypto"
	"github.com/arlenn/secvault/internal/events"
	"github.com/arlenn/secvault/internal/keystore"
	"github.com/arlenn/secvault/internal/storage"
)

// DefaultSessionTTL is how long an authenticated session stays valid.
const DefaultSessionTTL = 72 * time.Hour

// Options configures Open.
type Options struct {
	// DatabasePath is the vault database file.
	DatabasePath string

	// SharedDatabasePath, when set, is the preferred shared-group
	// location. The file is moved there once; on any failure the
	// original path keeps being used.
	SharedDatabasePath string

	// Keyring is the secret-store backend.
	Keyring keystore.Keyring

	// Reporter receives migration and maintenance events. Optional.
	Reporter events.Reporter

	// TLD resolves registrable domains for signature hashing and
	// domain matching. Defaults to the public-suffix list.
	TLD autofill.TLDService

	// SessionTTL overrides DefaultSessionTTL when positive.
	SessionTTL time.Duration
}

// Vault is the single entry point over the crypto engine, secret store
// and database. One mutex guards every public operation; each call is
// atomic with respect to every other.
type Vault struct {
	mu    sync.Mutex
	store *storage.Store
	keys  *keystore.Store
	tld   autofill.TLDService

	sessionTTL time.Duration
	now        func() time.Time

	sessionPassword []byte
	sessionExpires  time.Time
}

// Open prepares key material, relocates the database file if a shared
// location is configured, opens the database and runs migrations.
// A partially migrated schema fails construction.
func Open(opts Options) (*Vault, error) {
	reporter := opts.Reporter
	if reporter == nil {
		reporter = events.NopReporter{}
	}
	tld := opts.TLD
	if tld == nil {
		tld = autofill.PublicSuffixService{}
	}
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	keys := keystore.New(opts.Keyring, reporter)

	fileKey, err := ensureFileKey(keys)
	if err != nil {
		return nil, err
	}
	if err := ensureDataKey(keys); err != nil {
		return nil, err
	}

	path := opts.DatabasePath
	if opts.SharedDatabasePath != "" {
		path = storage.RelocateDatabase(path, opts.SharedDatabasePath, fileKey, reporter)
	}

	store, err := storage.Open(path, fileKey, &migrationCrypto{keys: keys, tld: tld})
	if err != nil {
		return nil, wrapStorage(err)
	}
	zap.L().Info("vault opened", zap.String("path", path))

	return &Vault{
		store:      store,
		keys:       keys,
		tld:        tld,
		sessionTTL: ttl,
		now:        time.Now,
	}, nil
}

// Close releases the database handle.
func (v *Vault) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dropSession()
	if err := v.store.Close(); err != nil {
		return NewStorageError(err)
	}
	return nil
}

// ensureFileKey returns the database file key, generating and
// persisting one on first run.
func ensureFileKey(keys *keystore.Store) ([]byte, error) {
	key, err := keys.Read(keystore.SecretL1Key)
	if err != nil {
		return nil, NewAuthError(err)
	}
	if key != nil {
		return key, nil
	}
	key, err = crypto.GenerateSecret()
	if err != nil {
		return nil, NewAuthError(err)
	}
	if err := keys.Write(keystore.SecretL1Key, key); err != nil {
		return nil, NewAuthError(err)
	}
	return key, nil
}

// ensureDataKey guarantees an encrypted data key exists. On first run a
// fresh data key is sealed under a device-generated password, leaving
// the vault auto-unlocked until the user sets a password of their own.
func ensureDataKey(keys *keystore.Store) error {
	enc, err := keys.Read(keystore.SecretL2Key)
	if err != nil {
		return NewAuthError(err)
	}
	if enc != nil {
		return nil
	}

	generated, err := keys.Read(keystore.SecretGeneratedPassword)
	if err != nil {
		return NewAuthError(err)
	}
	if generated == nil {
		generated, err = crypto.GenerateSecret()
		if err != nil {
			return NewAuthError(err)
		}
		if err := keys.Write(keystore.SecretGeneratedPassword, generated); err != nil {
			return NewAuthError(err)
		}
	}

	dataKey, err := crypto.GenerateSecret()
	if err != nil {
		return NewAuthError(err)
	}
	enc, err = crypto.Encrypt(dataKey, crypto.DeriveKey(generated))
	if err != nil {
		return NewAuthError(err)
	}
	if err := keys.Write(keystore.SecretL2Key, enc); err != nil {
		return NewAuthError(err)
	}
	zap.L().Info("data key provisioned")
	return nil
}

// AuthWith verifies password by decrypting the stored data key and, on
// success, caches it as the session password until the TTL elapses.
func (v *Vault) AuthWith(password []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	enc, err := v.keys.Read(keystore.SecretL2Key)
	if err != nil {
		return NewAuthError(err)
	}
	if enc == nil {
		return ErrNoDataKey
	}
	if _, err := crypto.Decrypt(enc, crypto.DeriveKey(password)); err != nil {
		return wrapAuth(err)
	}

	v.sessionPassword = bytes.Clone(password)
	v.sessionExpires = v.now().Add(v.sessionTTL)
	return nil
}

// Lock drops the cached session password immediately.
func (v *Vault) Lock() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dropSession()
}

// ResetL2Password re-encrypts the data key under a key derived from
// newPassword. oldPassword may be nil while the vault is still
// auto-unlocked; the device-generated password is used instead and
// cleared afterwards. The cached session is invalidated before
// anything else, so the next call re-authenticates whether or not the
// reset succeeds.
func (v *Vault) ResetL2Password(oldPassword, newPassword []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.dropSession()

	enc, err := v.keys.Read(keystore.SecretL2Key)
	if err != nil {
		return NewAuthError(err)
	}
	if enc == nil {
		return ErrNoDataKey
	}

	password := oldPassword
	if password == nil {
		password, err = v.keys.Read(keystore.SecretGeneratedPassword)
		if err != nil {
			return NewAuthError(err)
		}
		if password == nil {
			return ErrAuthRequired
		}
	}

	dataKey, err := crypto.Decrypt(enc, crypto.DeriveKey(password))
	if err != nil {
		return wrapAuth(err)
	}

	sealed, err := crypto.Encrypt(dataKey, crypto.DeriveKey(newPassword))
	if err != nil {
		return NewAuthError(err)
	}
	if err := v.keys.Write(keystore.SecretL2Key, sealed); err != nil {
		return NewAuthError(err)
	}
	if err := v.keys.Clear(keystore.SecretGeneratedPassword); err != nil {
		return NewAuthError(err)
	}
	zap.L().Info("vault password changed")
	return nil
}

func (v *Vault) dropSession() {
	v.sessionPassword = nil
	v.sessionExpires = time.Time{}
}

// currentPassword returns the password usable right now: the generated
// one while auto-unlocked, otherwise a live session password. The
// session deadline is checked lazily here; there is no timer.
func (v *Vault) currentPassword() ([]byte, error) {
	generated, err := v.keys.Read(keystore.SecretGeneratedPassword)
	if err != nil {
		return nil, NewAuthError(err)
	}
	if generated != nil {
		return generated, nil
	}
	if v.sessionPassword != nil && v.now().Before(v.sessionExpires) {
		return v.sessionPassword, nil
	}
	v.dropSession()
	return nil, ErrAuthRequired
}

// dataKey decrypts the stored L2 key with the current password.
func (v *Vault) dataKey() ([]byte, error) {
	password, err := v.currentPassword()
	if err != nil {
		return nil, err
	}
	enc, err := v.keys.Read(keystore.SecretL2Key)
	if err != nil {
		return nil, NewAuthError(err)
	}
	if enc == nil {
		return nil, ErrNoDataKey
	}
	key, err := crypto.Decrypt(enc, crypto.DeriveKey(password))
	if err != nil {
		return nil, wrapAuth(err)
	}
	return key, nil
}

// signatureSalt reads the per-installation signature salt, creating and
// persisting a 64-byte one the first time it is needed.
func signatureSalt(keys *keystore.Store) ([]byte, error) {
	salt, err := keys.Read(keystore.SecretSignatureSalt)
	if err != nil {
		return nil, err
	}
	if salt != nil {
		return salt, nil
	}
	salt, err = crypto.GenerateSalt(crypto.SignatureSaltSize)
	if err != nil {
		return nil, err
	}
	if err := keys.Write(keystore.SecretSignatureSalt, salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// computeSignature hashes the normalized account identity together with
// the plaintext password. Recomputed on every write, never trusted from
// caller input.
func computeSignature(keys *keystore.Store, tld autofill.TLDService, domain, username, password string) (string, error) {
	salt, err := signatureSalt(keys)
	if err != nil {
		return "", err
	}
	normalized := tld.ETLDPlus1(domain)
	return crypto.Hash([]byte(normalized+username+password), salt), nil
}

func (v *Vault) signature(domain, username, password string) (string, error) {
	sig, err := computeSignature(v.keys, v.tld, domain, username, password)
	if err != nil {
		return "", NewAuthError(err)
	}
	return sig, nil
}

// migrationCrypto lets re-encrypting migrations run before the Vault
// value exists. It only works while a generated password is available;
// a password-protected legacy database cannot be backfilled without a
// session, and opening it reports that instead of half-migrating.
type migrationCrypto struct {
	keys *keystore.Store
	tld  autofill.TLDService
}

func (m *migrationCrypto) fieldKey() ([]byte, error) {
	generated, err := m.keys.Read(keystore.SecretGeneratedPassword)
	if err != nil {
		return nil, err
	}
	if generated == nil {
		return nil, fmt.Errorf("re-encrypting migration: %w", ErrAuthRequired)
	}
	enc, err := m.keys.Read(keystore.SecretL2Key)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, ErrNoDataKey
	}
	return crypto.Decrypt(enc, crypto.DeriveKey(generated))
}

func (m *migrationCrypto) DecryptField(ciphertext []byte) ([]byte, error) {
	key, err := m.fieldKey()
	if err != nil {
		return nil, err
	}
	return crypto.Decrypt(ciphertext, key)
}

func (m *migrationCrypto) EncryptField(plaintext []byte) ([]byte, error) {
	key, err := m.fieldKey()
	if err != nil {
		return nil, err
	}
	return crypto.Encrypt(plaintext, key)
}

func (m *migrationCrypto) Signature(domain, username, password string) (string, error) {
	return computeSignature(m.keys, m.tld, domain, username, password)
}
