// Package storage implements the vault's relational store: a single
// passphrase-encrypted SQLite file holding every entity table, an
// ordered migration chain, and the sync metadata the companion sync
// subsystem reads.
package storage

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"

	// Registers the "sqlite3" driver with transparent SQLCipher
	// encryption.
	_ "github.com/mutecomm/go-sqlcipher/v4"
)

// querier is satisfied by both *sql.DB and *sql.Tx so every query can
// run standalone or inside a caller-supplied transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the relational store over one encrypted database file. All
// access is serialized through a single connection: one logical
// reader/writer, no concurrency assumptions for callers to violate.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the encrypted database at path, keyed
// with the 32-byte file key, and applies any pending migrations.
// mc supplies the crypto operations the re-encrypting migrations need;
// pass nil when no legacy data can exist (fresh installs, tests).
// A corrupt file or wrong key surfaces as ErrNonRecoverable.
func Open(path string, fileKey []byte, mc MigrationCrypto) (*Store, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma_key=x'%s'&_busy_timeout=5000&_foreign_keys=ON&_journal_mode=WAL",
		path, hex.EncodeToString(fileKey),
	)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single connection; this is also what
	// serializes every reader and writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// The key pragma is only validated on first real access. A wrong
	// key or corrupt file reads as "not a database".
	var n int
	if err := db.QueryRowContext(context.Background(),
		`SELECT count(*) FROM sqlite_master`).Scan(&n); err != nil {
		db.Close()
		if isCorruptFile(err) {
			return nil, fmt.Errorf("%w: %v", ErrNonRecoverable, err)
		}
		return nil, fmt.Errorf("failed to read database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(context.Background(), mc); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// InTransaction runs fn inside one write transaction. The sync layer
// uses it to keep account, credential and metadata changes atomic.
func (s *Store) InTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}
	return nil
}

func checkRowsAffected(result sql.Result, id int64) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return nil
}
