package vault

import (
	"context"

	"github.com/arlenn/secvault/internal/autofill"
	"github.com/arlenn/secvault/internal/crypto"
	"github.com/arlenn/secvault/internal/storage"
)

// WebsiteCredentials is an account together with its plaintext
// password. Ciphertext never crosses the facade in either direction.
type WebsiteCredentials struct {
	Account  storage.Account
	Password string
}

// SaveWebsiteCredentials inserts or updates an account and its
// password. The signature is recomputed from the current plaintext
// before anything is encrypted or stored. Returns the account id.
func (v *Vault) SaveWebsiteCredentials(ctx context.Context, c *WebsiteCredentials) (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	key, err := v.dataKey()
	if err != nil {
		return 0, err
	}

	sig, err := v.signature(c.Account.Domain, c.Account.Username, c.Password)
	if err != nil {
		return 0, err
	}
	c.Account.Signature = sig

	sealed, err := crypto.Encrypt([]byte(c.Password), key)
	if err != nil {
		return 0, NewAuthError(err)
	}

	id, err := v.store.SaveCredentials(ctx, &storage.Credentials{
		Account:  c.Account,
		Password: sealed,
	})
	if err != nil {
		return 0, wrapStorage(err)
	}
	c.Account.ID = id
	return id, nil
}

// WebsiteCredentialsFor returns the account and its decrypted password.
// The password field is empty when the account has none stored.
func (v *Vault) WebsiteCredentialsFor(ctx context.Context, accountID int64) (*WebsiteCredentials, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	stored, err := v.store.CredentialsForAccount(ctx, accountID)
	if err != nil {
		return nil, wrapStorage(err)
	}

	result := &WebsiteCredentials{Account: stored.Account}
	if len(stored.Password) == 0 {
		return result, nil
	}

	key, err := v.dataKey()
	if err != nil {
		return nil, err
	}
	plaintext, err := crypto.Decrypt(stored.Password, key)
	if err != nil {
		return nil, wrapAuth(err)
	}
	result.Password = string(plaintext)
	return result, nil
}

// Accounts lists every saved account. No authentication needed; only
// queryable identity fields are returned.
func (v *Vault) Accounts(ctx context.Context) ([]storage.Account, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	accounts, err := v.store.Accounts(ctx)
	if err != nil {
		return nil, wrapStorage(err)
	}
	return accounts, nil
}

// AccountByID returns a single account.
func (v *Vault) AccountByID(ctx context.Context, id int64) (*storage.Account, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	account, err := v.store.AccountByID(ctx, id)
	if err != nil {
		return nil, wrapStorage(err)
	}
	return account, nil
}

// AccountsFor returns accounts matching the registrable domain of
// domain: accounts saved for "example.com" match a lookup from
// "www.example.com" and vice versa. Falls back to an exact match when
// no registrable domain can be derived.
func (v *Vault) AccountsFor(ctx context.Context, domain string) ([]storage.Account, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.accountsFor(ctx, domain)
}

func (v *Vault) accountsFor(ctx context.Context, domain string) ([]storage.Account, error) {
	etld := v.tld.ETLDPlus1(domain)

	var (
		accounts []storage.Account
		err      error
	)
	if etld == "" {
		accounts, err = v.store.AccountsForDomain(ctx, domain)
	} else {
		accounts, err = v.store.AccountsForTLDPlus1(ctx, etld)
	}
	if err != nil {
		return nil, wrapStorage(err)
	}
	return accounts, nil
}

// RankedAccountsFor returns deduplicated accounts for domain in autofill
// order, each carrying its reversed-index rank for identity-store
// export.
func (v *Vault) RankedAccountsFor(ctx context.Context, domain string) ([]autofill.RankedAccount, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	accounts, err := v.store.Accounts(ctx)
	if err != nil {
		return nil, wrapStorage(err)
	}
	deduped := autofill.SortedAndDeduplicated(accounts, v.tld)
	return autofill.RankedForDomain(domain, deduped, v.tld), nil
}

// DeleteAccount tombstones the account's sync metadata, then removes
// the account and its credentials.
func (v *Vault) DeleteAccount(ctx context.Context, id int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return wrapStorage(v.store.DeleteAccount(ctx, id))
}

// UpdateLastUsed bumps only the account's last-used timestamp.
func (v *Vault) UpdateLastUsed(ctx context.Context, id int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return wrapStorage(v.store.UpdateLastUsed(ctx, id))
}
