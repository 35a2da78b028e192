package vault

import (
	"errors"
	"fmt"

	"github.com/arlenn/secvault/internal/crypto"
	"github.com/arlenn/secvault/internal/storage"
)

// VaultError is the only error type that crosses the facade boundary.
// Lower-level storage, keystore and crypto failures are re-wrapped into
// one of the codes below before they reach a caller.
type VaultError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// ErrorCode classifies facade errors.
type ErrorCode string

const (
	// CodeAuthRequired indicates no valid session and no generated
	// password; the caller must authenticate first.
	CodeAuthRequired ErrorCode = "AUTH_REQUIRED"

	// CodeInvalidPassword indicates the supplied password failed the
	// data-key decryption check.
	CodeInvalidPassword ErrorCode = "INVALID_PASSWORD"

	// CodeNoDataKey indicates required key material is missing from
	// the secret store.
	CodeNoDataKey ErrorCode = "NO_DATA_KEY"

	// CodeAuth wraps unexpected failures on the authentication path
	// that are not a wrong password.
	CodeAuth ErrorCode = "AUTH_ERROR"

	// CodeStorage wraps database failures.
	CodeStorage ErrorCode = "STORAGE_ERROR"

	// CodeDuplicateRecord indicates a unique-constraint violation.
	// Callers offer an update instead of an insert.
	CodeDuplicateRecord ErrorCode = "DUPLICATE_RECORD"
)

// Error implements the error interface.
func (e *VaultError) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("[%s] %v", e.Code, e.Err)
	case e.Message != "":
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	default:
		return string(e.Code)
	}
}

// Unwrap returns the wrapped error.
func (e *VaultError) Unwrap() error { return e.Err }

// Is matches two VaultErrors by code, so errors.Is(err, ErrInvalidPassword)
// holds for any wrapped invalid-password failure.
func (e *VaultError) Is(target error) bool {
	t, ok := target.(*VaultError)
	return ok && e.Code == t.Code
}

var (
	ErrAuthRequired    = &VaultError{Code: CodeAuthRequired, Message: "authentication required"}
	ErrInvalidPassword = &VaultError{Code: CodeInvalidPassword, Message: "invalid password"}
	ErrNoDataKey       = &VaultError{Code: CodeNoDataKey, Message: "key material missing"}
	ErrDuplicateRecord = &VaultError{Code: CodeDuplicateRecord, Message: "duplicate record"}
)

// NewAuthError wraps an unexpected authentication-path failure.
func NewAuthError(err error) *VaultError {
	return &VaultError{Code: CodeAuth, Err: err}
}

// NewStorageError wraps a database failure.
func NewStorageError(err error) *VaultError {
	return &VaultError{Code: CodeStorage, Err: err}
}

// wrapStorage maps storage-layer errors into the facade taxonomy.
// Duplicates keep their distinct code; everything else becomes a
// storage error. ErrNotFound and ErrNonRecoverable stay reachable
// through Unwrap.
func wrapStorage(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrDuplicateRecord) {
		return &VaultError{Code: CodeDuplicateRecord, Err: err}
	}
	return &VaultError{Code: CodeStorage, Err: err}
}

// wrapAuth maps decryption failures on the authentication path.
func wrapAuth(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, crypto.ErrInvalidPassword) {
		return &VaultError{Code: CodeInvalidPassword, Err: err}
	}
	return &VaultError{Code: CodeAuth, Err: err}
}
