package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const accountColumns = `id, title, username, domain, signature, notes, created, last_updated, last_used`

func scanAccount(scanner interface{ Scan(dest ...any) error }) (*Account, error) {
	account := &Account{}
	err := scanner.Scan(
		&account.ID, &account.Title, &account.Username, &account.Domain,
		&account.Signature, &account.Notes, &account.Created,
		&account.LastUpdated, &account.LastUsed,
	)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// SaveCredentials inserts or updates an account together with its
// encrypted password. An insert also creates the account's sync
// metadata row in the same transaction; an update bumps its
// last-modified timestamp. Returns the account id.
func (s *Store) SaveCredentials(ctx context.Context, c *Credentials) (int64, error) {
	var id int64
	err := s.InTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = s.SaveCredentialsTx(ctx, tx, c)
		return err
	})
	return id, err
}

// SaveCredentialsTx is SaveCredentials inside a caller-supplied
// transaction.
func (s *Store) SaveCredentialsTx(ctx context.Context, tx *sql.Tx, c *Credentials) (int64, error) {
	if c.Account.ID == 0 {
		return s.insertCredentials(ctx, tx, c)
	}
	return c.Account.ID, s.updateCredentials(ctx, tx, c)
}

func (s *Store) insertCredentials(ctx context.Context, tx *sql.Tx, c *Credentials) (int64, error) {
	now := time.Now()
	c.Account.Created = now
	c.Account.LastUpdated = now

	result, err := tx.ExecContext(ctx, `
		INSERT INTO accounts (title, username, domain, signature, notes, created, last_updated, last_used)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Account.Title, c.Account.Username, c.Account.Domain, c.Account.Signature,
		c.Account.Notes, c.Account.Created, c.Account.LastUpdated, c.Account.LastUsed,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateRecord
		}
		return 0, fmt.Errorf("failed to insert account: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get account id: %w", err)
	}
	c.Account.ID = id

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO credentials (account_id, password) VALUES (?, ?)`,
		id, c.Password); err != nil {
		return 0, fmt.Errorf("failed to insert credentials: %w", err)
	}

	// Every account insert carries exactly one sync metadata row,
	// created in the same transaction.
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sync_metadata (sync_id, object_id, last_modified) VALUES (?, ?, ?)`,
		uuid.NewString(), id, MillisecondPrecision(now)); err != nil {
		return 0, fmt.Errorf("failed to insert sync metadata: %w", err)
	}

	return id, nil
}

func (s *Store) updateCredentials(ctx context.Context, tx *sql.Tx, c *Credentials) error {
	now := time.Now()
	c.Account.LastUpdated = now

	result, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET title = ?, username = ?, domain = ?, signature = ?, notes = ?, last_updated = ?
		WHERE id = ?`,
		c.Account.Title, c.Account.Username, c.Account.Domain, c.Account.Signature,
		c.Account.Notes, c.Account.LastUpdated, c.Account.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateRecord
		}
		return fmt.Errorf("failed to update account: %w", err)
	}
	if err := checkRowsAffected(result, c.Account.ID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO credentials (account_id, password) VALUES (?, ?)
		ON CONFLICT(account_id) DO UPDATE SET password = excluded.password`,
		c.Account.ID, c.Password); err != nil {
		return fmt.Errorf("failed to update credentials: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE sync_metadata SET last_modified = ? WHERE object_id = ?`,
		MillisecondPrecision(now), c.Account.ID); err != nil {
		return fmt.Errorf("failed to update sync metadata: %w", err)
	}

	return nil
}

// AccountByID returns one account or ErrNotFound.
func (s *Store) AccountByID(ctx context.Context, id int64) (*Account, error) {
	account, err := scanAccount(s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: account %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// Accounts returns every saved account.
func (s *Store) Accounts(ctx context.Context) ([]Account, error) {
	return s.queryAccounts(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY id`)
}

// AccountsForDomain returns accounts with an exact domain match.
func (s *Store) AccountsForDomain(ctx context.Context, domain string) ([]Account, error) {
	return s.queryAccounts(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE domain = ? ORDER BY id`, domain)
}

// AccountsForDomainSuffix returns accounts whose domain is a subdomain
// of domain.
func (s *Store) AccountsForDomainSuffix(ctx context.Context, domain string) ([]Account, error) {
	return s.queryAccounts(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE domain LIKE '%.' || ? ORDER BY id`, domain)
}

// AccountsForTLDPlus1 returns accounts matching the registrable domain
// exactly or as a subdomain of it.
func (s *Store) AccountsForTLDPlus1(ctx context.Context, etld string) ([]Account, error) {
	return s.queryAccounts(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE domain = ? OR domain LIKE '%.' || ? ORDER BY id`,
		etld, etld)
}

func (s *Store) queryAccounts(ctx context.Context, query string, args ...any) ([]Account, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}

// CredentialsForAccount returns the account and its encrypted password,
// or ErrNotFound.
func (s *Store) CredentialsForAccount(ctx context.Context, accountID int64) (*Credentials, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT a.id, a.title, a.username, a.domain, a.signature, a.notes,
		       a.created, a.last_updated, a.last_used, c.password
		FROM accounts a
		LEFT JOIN credentials c ON c.account_id = a.id
		WHERE a.id = ?`, accountID)

	c := &Credentials{}
	err := row.Scan(
		&c.Account.ID, &c.Account.Title, &c.Account.Username, &c.Account.Domain,
		&c.Account.Signature, &c.Account.Notes, &c.Account.Created,
		&c.Account.LastUpdated, &c.Account.LastUsed, &c.Password,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: account %d", ErrNotFound, accountID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}
	return c, nil
}

// DeleteAccount removes an account, tombstoning its sync metadata
// first: the object id is nulled and last-modified bumped before the
// account row goes away, never the reverse.
func (s *Store) DeleteAccount(ctx context.Context, id int64) error {
	return s.InTransaction(ctx, func(tx *sql.Tx) error {
		return s.DeleteAccountTx(ctx, tx, id)
	})
}

// DeleteAccountTx is DeleteAccount inside a caller-supplied
// transaction.
func (s *Store) DeleteAccountTx(ctx context.Context, tx *sql.Tx, id int64) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE sync_metadata SET object_id = NULL, last_modified = ? WHERE object_id = ?`,
		MillisecondPrecision(time.Now()), id); err != nil {
		return fmt.Errorf("failed to tombstone sync metadata: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM credentials WHERE account_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return checkRowsAffected(result, id)
}

// UpdateLastUsed bumps only the last-used timestamp; no other account
// field changes.
func (s *Store) UpdateLastUsed(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET last_used = ? WHERE id = ?`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update last used: %w", err)
	}
	return checkRowsAffected(result, id)
}
