package storage

import (
	"errors"

	sqlite3 "github.com/mutecomm/go-sqlcipher/v4"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateRecord is returned when an insert violates a unique
	// constraint, most notably the (domain, username) account index.
	// Callers treat it differently from other storage failures.
	ErrDuplicateRecord = errors.New("duplicate record")

	// ErrNonRecoverable is returned when the database file cannot be
	// opened at all: corrupt file or wrong file key. Retrying will not
	// help; the caller decides whether to recreate the vault.
	ErrNonRecoverable = errors.New("database file is not recoverable")
)

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

func isCorruptFile(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrNotADB || sqliteErr.Code == sqlite3.ErrCorrupt
}

// IsTransient reports whether err is a busy/locked condition worth
// retrying. Anything else is treated as permanent by callers.
func IsTransient(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
}
