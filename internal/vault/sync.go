package vault

import (
	"context"
	"database/sql"
	"time"

	"github.com/arlenn/secvault/internal/storage"
)

// InTransaction runs fn inside one write transaction. The sync layer
// uses it to keep account, credential and metadata changes atomic; the
// closure receives the raw transaction and the storage-level Tx method
// variants operate on it.
func (v *Vault) InTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return wrapStorage(v.store.InTransaction(ctx, fn))
}

// Store exposes the underlying storage layer to the sync subsystem and
// background jobs. Callers using it directly bypass the facade lock and
// the error taxonomy.
func (v *Vault) Store() *storage.Store { return v.store }

// ModifiedSyncMetadata returns rows with a non-null last-modified
// timestamp, i.e. everything awaiting upload.
func (v *Vault) ModifiedSyncMetadata(ctx context.Context) ([]storage.SyncMetadata, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	rows, err := v.store.ModifiedSyncMetadata(ctx)
	if err != nil {
		return nil, wrapStorage(err)
	}
	return rows, nil
}

// SyncMetadataModifiedBefore returns rows modified before cutoff.
func (v *Vault) SyncMetadataModifiedBefore(ctx context.Context, cutoff time.Time) ([]storage.SyncMetadata, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	rows, err := v.store.SyncMetadataModifiedBefore(ctx, cutoff)
	if err != nil {
		return nil, wrapStorage(err)
	}
	return rows, nil
}

// SyncMetadataBySyncIDs looks rows up by their external sync ids.
func (v *Vault) SyncMetadataBySyncIDs(ctx context.Context, syncIDs []string) ([]storage.SyncMetadata, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	rows, err := v.store.SyncMetadataBySyncIDs(ctx, syncIDs)
	if err != nil {
		return nil, wrapStorage(err)
	}
	return rows, nil
}

// SyncMetadataForObject returns the row for one account id.
func (v *Vault) SyncMetadataForObject(ctx context.Context, objectID int64) (*storage.SyncMetadata, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	row, err := v.store.SyncMetadataForObject(ctx, objectID)
	if err != nil {
		return nil, wrapStorage(err)
	}
	return row, nil
}

// UpdateSyncTimestamp writes the row's last-modified timestamp with
// millisecond rounding; a zero time clears it.
func (v *Vault) UpdateSyncTimestamp(ctx context.Context, objectID int64, t time.Time) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return wrapStorage(v.store.UpdateSyncTimestamp(ctx, objectID, t))
}

// DeleteTombstones removes metadata rows whose object id has been
// nulled, returning the count.
func (v *Vault) DeleteTombstones(ctx context.Context) (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	count, err := v.store.DeleteTombstones(ctx)
	if err != nil {
		return 0, wrapStorage(err)
	}
	return count, nil
}
