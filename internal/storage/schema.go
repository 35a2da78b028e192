package storage

// Schema statements referenced by the migration chain. Earlier versions
// of a table are kept verbatim: the chain must replay history exactly
// for databases created by old releases.

const (
	createMigrationsLedgerSQL = `
		CREATE TABLE IF NOT EXISTS vault_migrations (
			name TEXT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`

	appliedMigrationsSQL = `SELECT name FROM vault_migrations;`

	insertMigrationSQL = `INSERT INTO vault_migrations (name) VALUES (?);`

	// v1: accounts predate last_used and the (domain, username)
	// uniqueness constraint.
	createAccountsV1SQL = `
		CREATE TABLE accounts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL DEFAULT '',
			username TEXT NOT NULL DEFAULT '',
			domain TEXT NOT NULL DEFAULT '',
			signature TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			created TIMESTAMP NOT NULL,
			last_updated TIMESTAMP NOT NULL
		);
	`

	// The password table is physically separate from accounts so
	// username/domain queries never touch encrypted payload.
	createCredentialsSQL = `
		CREATE TABLE credentials (
			account_id INTEGER PRIMARY KEY,
			password BLOB,
			FOREIGN KEY (account_id) REFERENCES accounts(id)
		);
	`

	createNeverPromptSitesSQL = `
		CREATE TABLE never_prompt_sites (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			domain TEXT NOT NULL UNIQUE
		);
	`

	// v3: notes predate the associated_domain column.
	createNotesV1SQL = `
		CREATE TABLE notes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL DEFAULT '',
			created TIMESTAMP NOT NULL,
			last_updated TIMESTAMP NOT NULL,
			text TEXT NOT NULL DEFAULT ''
		);
	`

	createIdentitiesSQL = `
		CREATE TABLE identities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL DEFAULT '',
			created TIMESTAMP NOT NULL,
			last_updated TIMESTAMP NOT NULL,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			address_street TEXT NOT NULL DEFAULT '',
			address_city TEXT NOT NULL DEFAULT '',
			address_state TEXT NOT NULL DEFAULT '',
			address_zip TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT ''
		);
	`

	// v5: card numbers were stored in plaintext before v9 split them
	// into an encrypted full value plus a display suffix.
	createCreditCardsV1SQL = `
		CREATE TABLE credit_cards (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL DEFAULT '',
			created TIMESTAMP NOT NULL,
			last_updated TIMESTAMP NOT NULL,
			card_number TEXT NOT NULL DEFAULT '',
			cardholder_name TEXT NOT NULL DEFAULT '',
			security_code TEXT NOT NULL DEFAULT '',
			expiration_month INTEGER NOT NULL DEFAULT 0,
			expiration_year INTEGER NOT NULL DEFAULT 0
		);
	`

	createCreditCardsV2SQL = `
		CREATE TABLE credit_cards (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL DEFAULT '',
			created TIMESTAMP NOT NULL,
			last_updated TIMESTAMP NOT NULL,
			card_number BLOB,
			card_suffix TEXT NOT NULL DEFAULT '',
			cardholder_name TEXT NOT NULL DEFAULT '',
			security_code TEXT NOT NULL DEFAULT '',
			expiration_month INTEGER NOT NULL DEFAULT 0,
			expiration_year INTEGER NOT NULL DEFAULT 0
		);
	`

	// last_modified is seconds since epoch with millisecond precision;
	// REAL because that is the native precision of the storage layer.
	createSyncMetadataSQL = `
		CREATE TABLE sync_metadata (
			sync_id TEXT PRIMARY KEY,
			object_id INTEGER,
			last_modified REAL
		);
	`

	// v8: accounts gain the (domain, username) uniqueness constraint
	// via a full table rebuild.
	createAccountsV2SQL = `
		CREATE TABLE accounts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL DEFAULT '',
			username TEXT NOT NULL DEFAULT '',
			domain TEXT NOT NULL DEFAULT '',
			signature TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			created TIMESTAMP NOT NULL,
			last_updated TIMESTAMP NOT NULL,
			last_used TIMESTAMP,
			UNIQUE (domain, username)
		);
	`
)
