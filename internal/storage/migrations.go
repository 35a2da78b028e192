package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// MigrationCrypto supplies the cryptographic operations that
// re-encrypting migrations need. Fresh databases never invoke it, so
// nil is acceptable when no legacy rows can exist.
type MigrationCrypto interface {
	// DecryptField opens a field-level ciphertext.
	DecryptField(ciphertext []byte) ([]byte, error)
	// EncryptField seals a field-level plaintext.
	EncryptField(plaintext []byte) ([]byte, error)
	// Signature computes the current account signature hash.
	Signature(domain, username, password string) (string, error)
}

var errMigrationNeedsCrypto = errors.New("migration requires crypto dependencies")

type migration struct {
	name string
	run  func(ctx context.Context, tx *sql.Tx, mc MigrationCrypto) error
}

func execStatements(statements ...string) func(context.Context, *sql.Tx, MigrationCrypto) error {
	return func(ctx context.Context, tx *sql.Tx, _ MigrationCrypto) error {
		for _, statement := range statements {
			if _, err := tx.ExecContext(ctx, statement); err != nil {
				return fmt.Errorf("failed to execute %q: %w", strings.Fields(statement)[0], err)
			}
		}
		return nil
	}
}

// tableRebuild describes the rename-old / create-new / copy / drop-old
// pattern used when a constraint cannot be added in place.
type tableRebuild struct {
	table     string
	createSQL string
	columns   []string
}

func rebuildTable(ctx context.Context, tx *sql.Tx, rb tableRebuild) error {
	old := rb.table + "_old"
	cols := strings.Join(rb.columns, ", ")

	steps := []string{
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s", rb.table, old),
		rb.createSQL,
		fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", rb.table, cols, cols, old),
		fmt.Sprintf("DROP TABLE %s", old),
	}
	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step); err != nil {
			return fmt.Errorf("failed to rebuild table %s: %w", rb.table, err)
		}
	}
	return nil
}

// migrations is the ordered chain. Names and order are frozen: the
// ledger records names, and reordering or renaming a step would replay
// or skip schema work on existing vaults.
var migrations = []migration{
	{name: "v1_create_accounts", run: execStatements(createAccountsV1SQL, createCredentialsSQL)},
	{name: "v2_create_never_prompt_sites", run: execStatements(createNeverPromptSitesSQL)},
	{name: "v3_create_notes", run: execStatements(createNotesV1SQL)},
	{name: "v4_create_identities", run: execStatements(createIdentitiesSQL)},
	{name: "v5_create_credit_cards", run: execStatements(createCreditCardsV1SQL)},
	{name: "v6_create_sync_metadata", run: execStatements(createSyncMetadataSQL)},
	{name: "v7_account_last_used", run: execStatements(
		`ALTER TABLE accounts ADD COLUMN last_used TIMESTAMP`,
	)},
	{name: "v8_unique_domain_username", run: migrateUniqueDomainUsername},
	{name: "v9_encrypt_card_numbers", run: migrateEncryptCardNumbers},
	{name: "v10_recompute_signatures", run: migrateRecomputeSignatures},
	{name: "v11_domain_indexes", run: execStatements(
		`CREATE INDEX IF NOT EXISTS idx_accounts_domain ON accounts(domain)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_metadata_object_id ON sync_metadata(object_id)`,
	)},
	{name: "v12_normalize_sync_timestamps", run: execStatements(
		`UPDATE sync_metadata
		 SET last_modified = CAST(last_modified * 1000 AS INTEGER) / 1000.0
		 WHERE last_modified IS NOT NULL`,
	)},
	{name: "v13_note_domain", run: execStatements(
		`ALTER TABLE notes ADD COLUMN associated_domain TEXT NOT NULL DEFAULT ''`,
	)},
}

// migrate applies every pending migration in order, one transaction
// each, recording applied names in the ledger. Any failure aborts the
// open: the vault must never run on a partially migrated schema.
func (s *Store) migrate(ctx context.Context, mc MigrationCrypto) error {
	if _, err := s.db.ExecContext(ctx, createMigrationsLedgerSQL); err != nil {
		return fmt.Errorf("failed to create migrations ledger: %w", err)
	}

	applied, err := s.appliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.name] {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration transaction: %w", err)
		}

		if err := m.run(ctx, tx, mc); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %s failed: %w", m.name, err)
		}
		if _, err := tx.ExecContext(ctx, insertMigrationSQL, m.name); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", m.name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", m.name, err)
		}

		zap.L().Info("applied vault migration", zap.String("migration", m.name))
	}

	return nil
}

func (s *Store) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, appliedMigrationsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations ledger: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan migrations ledger: %w", err)
		}
		applied[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate migrations ledger: %w", err)
	}
	return applied, nil
}

func migrateUniqueDomainUsername(ctx context.Context, tx *sql.Tx, _ MigrationCrypto) error {
	return rebuildTable(ctx, tx, tableRebuild{
		table:     "accounts",
		createSQL: createAccountsV2SQL,
		columns: []string{
			"id", "title", "username", "domain", "signature", "notes",
			"created", "last_updated", "last_used",
		},
	})
}

// migrateEncryptCardNumbers splits the plaintext card_number column
// into an encrypted full value plus a plaintext display suffix, then
// rebuilds the table to drop the plaintext column.
func migrateEncryptCardNumbers(ctx context.Context, tx *sql.Tx, mc MigrationCrypto) error {
	type cardRow struct {
		id     int64
		number string
	}

	rows, err := tx.QueryContext(ctx, `SELECT id, card_number FROM credit_cards`)
	if err != nil {
		return fmt.Errorf("failed to read credit cards: %w", err)
	}
	var cards []cardRow
	for rows.Next() {
		var c cardRow
		if err := rows.Scan(&c.id, &c.number); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan credit card: %w", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("failed to iterate credit cards: %w", err)
	}
	rows.Close()

	if _, err := tx.ExecContext(ctx, `ALTER TABLE credit_cards RENAME TO credit_cards_old`); err != nil {
		return fmt.Errorf("failed to rename credit_cards: %w", err)
	}
	if _, err := tx.ExecContext(ctx, createCreditCardsV2SQL); err != nil {
		return fmt.Errorf("failed to create credit_cards: %w", err)
	}

	for _, c := range cards {
		if mc == nil {
			return errMigrationNeedsCrypto
		}
		encrypted, err := mc.EncryptField([]byte(c.number))
		if err != nil {
			return fmt.Errorf("failed to encrypt card number: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO credit_cards (
				id, title, created, last_updated, card_number, card_suffix,
				cardholder_name, security_code, expiration_month, expiration_year
			)
			SELECT id, title, created, last_updated, ?, ?,
			       cardholder_name, security_code, expiration_month, expiration_year
			FROM credit_cards_old WHERE id = ?`,
			encrypted, CardSuffix(c.number), c.id)
		if err != nil {
			return fmt.Errorf("failed to copy credit card: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DROP TABLE credit_cards_old`); err != nil {
		return fmt.Errorf("failed to drop credit_cards_old: %w", err)
	}
	return nil
}

// migrateRecomputeSignatures rewrites every account signature with the
// current hashing scheme, decrypting each stored password to do so.
func migrateRecomputeSignatures(ctx context.Context, tx *sql.Tx, mc MigrationCrypto) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT a.id, a.domain, a.username, c.password
		FROM accounts a
		JOIN credentials c ON c.account_id = a.id
		WHERE c.password IS NOT NULL`)
	if err != nil {
		return fmt.Errorf("failed to read accounts: %w", err)
	}

	type accountRow struct {
		id               int64
		domain, username string
		password         []byte
	}
	var accounts []accountRow
	for rows.Next() {
		var a accountRow
		if err := rows.Scan(&a.id, &a.domain, &a.username, &a.password); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("failed to iterate accounts: %w", err)
	}
	rows.Close()

	for _, a := range accounts {
		if mc == nil {
			return errMigrationNeedsCrypto
		}
		password, err := mc.DecryptField(a.password)
		if err != nil {
			return fmt.Errorf("failed to decrypt password for account %d: %w", a.id, err)
		}
		signature, err := mc.Signature(a.domain, a.username, string(password))
		if err != nil {
			return fmt.Errorf("failed to compute signature for account %d: %w", a.id, err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE accounts SET signature = ? WHERE id = ?`, signature, a.id); err != nil {
			return fmt.Errorf("failed to update signature for account %d: %w", a.id, err)
		}
	}
	return nil
}

// CardSuffix returns the plaintext display suffix for a card number:
// the last four digits.
func CardSuffix(number string) string {
	digits := make([]byte, 0, len(number))
	for i := 0; i < len(number); i++ {
		if number[i] >= '0' && number[i] <= '9' {
			digits = append(digits, number[i])
		}
	}
	if len(digits) <= 4 {
		return string(digits)
	}
	return string(digits[len(digits)-4:])
}
