package vault

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arlenn/secvault/internal/keystore"
	"github.com/arlenn/secvault/internal/storage"
)

type memKeyring struct {
	entries map[string][]byte
}

func newMemKeyring() *memKeyring {
	return &memKeyring{entries: make(map[string][]byte)}
}

func (m *memKeyring) key(service, account string) string { return service + "\x00" + account }

func (m *memKeyring) Get(service, account string) ([]byte, error) {
	value, ok := m.entries[m.key(service, account)]
	if !ok {
		return nil, keystore.ErrKeyringNotFound
	}
	return value, nil
}

func (m *memKeyring) Set(service, account string, value []byte) error {
	m.entries[m.key(service, account)] = value
	return nil
}

func (m *memKeyring) Delete(service, account string) error {
	delete(m.entries, m.key(service, account))
	return nil
}

func openTestVault(t *testing.T) *Vault {
	t.Helper()

	v, err := Open(Options{
		DatabasePath: filepath.Join(t.TempDir(), "vault.db"),
		Keyring:      newMemKeyring(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Close() })
	return v
}

func TestSaveAndLookupBySubdomain(t *testing.T) {
	v := openTestVault(t)
	ctx := context.Background()

	id, err := v.SaveWebsiteCredentials(ctx, &WebsiteCredentials{
		Account:  storage.Account{Domain: "example.com", Username: "bob"},
		Password: "hunter2",
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	accounts, err := v.AccountsFor(ctx, "www.example.com")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "bob", accounts[0].Username)
	assert.NotEmpty(t, accounts[0].Signature)

	// Fresh vault runs auto-unlocked; no AuthWith needed.
	creds, err := v.WebsiteCredentialsFor(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", creds.Password)
}

func TestPasswordModeRequiresAuth(t *testing.T) {
	v := openTestVault(t)
	ctx := context.Background()

	id, err := v.SaveWebsiteCredentials(ctx, &WebsiteCredentials{
		Account:  storage.Account{Domain: "example.com", Username: "bob"},
		Password: "hunter2",
	})
	require.NoError(t, err)

	require.NoError(t, v.ResetL2Password(nil, []byte("s3cret")))

	_, err = v.WebsiteCredentialsFor(ctx, id)
	assert.ErrorIs(t, err, ErrAuthRequired)

	err = v.AuthWith([]byte("wrong"))
	assert.ErrorIs(t, err, ErrInvalidPassword)

	_, err = v.WebsiteCredentialsFor(ctx, id)
	assert.ErrorIs(t, err, ErrAuthRequired, "failed auth must not create a session")

	require.NoError(t, v.AuthWith([]byte("s3cret")))

	creds, err := v.WebsiteCredentialsFor(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", creds.Password)
}

func TestResetInvalidatesSessionEvenOnFailure(t *testing.T) {
	v := openTestVault(t)
	ctx := context.Background()

	id, err := v.SaveWebsiteCredentials(ctx, &WebsiteCredentials{
		Account:  storage.Account{Domain: "example.com", Username: "bob"},
		Password: "hunter2",
	})
	require.NoError(t, err)

	require.NoError(t, v.ResetL2Password(nil, []byte("first")))
	require.NoError(t, v.AuthWith([]byte("first")))

	err = v.ResetL2Password([]byte("wrong-old"), []byte("second"))
	assert.ErrorIs(t, err, ErrInvalidPassword)

	_, err = v.WebsiteCredentialsFor(ctx, id)
	assert.ErrorIs(t, err, ErrAuthRequired, "session must be gone after a failed reset")

	// The old password still works; nothing was rewritten.
	require.NoError(t, v.AuthWith([]byte("first")))
}

func TestSessionExpiresLazily(t *testing.T) {
	v := openTestVault(t)
	ctx := context.Background()

	id, err := v.SaveWebsiteCredentials(ctx, &WebsiteCredentials{
		Account:  storage.Account{Domain: "example.com", Username: "bob"},
		Password: "hunter2",
	})
	require.NoError(t, err)

	require.NoError(t, v.ResetL2Password(nil, []byte("s3cret")))

	base := time.Now()
	v.now = func() time.Time { return base }
	require.NoError(t, v.AuthWith([]byte("s3cret")))

	v.now = func() time.Time { return base.Add(DefaultSessionTTL - time.Minute) }
	_, err = v.WebsiteCredentialsFor(ctx, id)
	require.NoError(t, err)

	v.now = func() time.Time { return base.Add(DefaultSessionTTL + time.Minute) }
	_, err = v.WebsiteCredentialsFor(ctx, id)
	assert.ErrorIs(t, err, ErrAuthRequired)
}

func TestSignatureRecomputedOnWrite(t *testing.T) {
	v := openTestVault(t)
	ctx := context.Background()

	creds := &WebsiteCredentials{
		Account:  storage.Account{Domain: "www.example.com", Username: "bob"},
		Password: "hunter2",
	}
	id, err := v.SaveWebsiteCredentials(ctx, creds)
	require.NoError(t, err)
	first := creds.Account.Signature
	require.NotEmpty(t, first)

	// Caller-supplied signatures are ignored.
	creds.Account.ID = id
	creds.Account.Signature = "forged"
	creds.Password = "new-password"
	_, err = v.SaveWebsiteCredentials(ctx, creds)
	require.NoError(t, err)
	assert.NotEqual(t, "forged", creds.Account.Signature)
	assert.NotEqual(t, first, creds.Account.Signature, "password change must change the signature")
}

func TestDuplicateAccountMapped(t *testing.T) {
	v := openTestVault(t)
	ctx := context.Background()

	_, err := v.SaveWebsiteCredentials(ctx, &WebsiteCredentials{
		Account:  storage.Account{Domain: "example.com", Username: "bob"},
		Password: "one",
	})
	require.NoError(t, err)

	_, err = v.SaveWebsiteCredentials(ctx, &WebsiteCredentials{
		Account:  storage.Account{Domain: "example.com", Username: "bob"},
		Password: "two",
	})
	assert.ErrorIs(t, err, ErrDuplicateRecord)
}

func TestCreditCardSuffixReadableWhileLocked(t *testing.T) {
	v := openTestVault(t)
	ctx := context.Background()

	id, err := v.SaveCreditCard(ctx, &CreditCard{
		Title:      "personal",
		CardNumber: "4111 1111 1111 1234",
	})
	require.NoError(t, err)

	require.NoError(t, v.ResetL2Password(nil, []byte("s3cret")))

	cards, err := v.CreditCards(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "1234", cards[0].CardSuffix)
	assert.Empty(t, cards[0].CardNumber)

	_, err = v.CreditCardByID(ctx, id)
	assert.ErrorIs(t, err, ErrAuthRequired)

	require.NoError(t, v.AuthWith([]byte("s3cret")))
	card, err := v.CreditCardByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "4111 1111 1111 1234", card.CardNumber)
}

func TestDeleteAccountRemovesCredentials(t *testing.T) {
	v := openTestVault(t)
	ctx := context.Background()

	id, err := v.SaveWebsiteCredentials(ctx, &WebsiteCredentials{
		Account:  storage.Account{Domain: "example.com", Username: "bob"},
		Password: "hunter2",
	})
	require.NoError(t, err)

	meta, err := v.SyncMetadataForObject(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, meta.ObjectID)

	require.NoError(t, v.DeleteAccount(ctx, id))

	_, err = v.AccountByID(ctx, id)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	count, err := v.DeleteTombstones(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vault.db")
	keyring := newMemKeyring()
	ctx := context.Background()

	v, err := Open(Options{DatabasePath: path, Keyring: keyring})
	require.NoError(t, err)
	id, err := v.SaveWebsiteCredentials(ctx, &WebsiteCredentials{
		Account:  storage.Account{Domain: "example.com", Username: "bob"},
		Password: "hunter2",
	})
	require.NoError(t, err)
	require.NoError(t, v.Close())

	v, err = Open(Options{DatabasePath: path, Keyring: keyring})
	require.NoError(t, err)
	defer v.Close()

	creds, err := v.WebsiteCredentialsFor(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", creds.Password)
}
