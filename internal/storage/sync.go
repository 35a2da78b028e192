package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// MillisecondPrecision rounds a timestamp down to the storage layer's
// native millisecond precision, as seconds since epoch. Host-clock
// timestamps must go through this before being compared with persisted
// ones, or fresh reads spuriously compare unequal.
func MillisecondPrecision(t time.Time) float64 {
	return math.Floor(float64(t.UnixNano())/1e6) / 1000
}

// SameTimestamp compares two second-denominated timestamps at
// millisecond precision.
func SameTimestamp(a, b float64) bool {
	return math.Floor(a*1000) == math.Floor(b*1000)
}

const syncColumns = `sync_id, object_id, last_modified`

func scanSyncMetadata(scanner interface{ Scan(dest ...any) error }) (*SyncMetadata, error) {
	m := &SyncMetadata{}
	if err := scanner.Scan(&m.SyncID, &m.ObjectID, &m.LastModified); err != nil {
		return nil, err
	}
	return m, nil
}

// ModifiedSyncMetadata returns every row with a non-null last-modified
// timestamp, i.e. everything the sync layer still has to pick up.
func (s *Store) ModifiedSyncMetadata(ctx context.Context) ([]SyncMetadata, error) {
	return querySyncMetadata(ctx, s.db,
		`SELECT `+syncColumns+` FROM sync_metadata WHERE last_modified IS NOT NULL`)
}

// ModifiedSyncMetadataTx is ModifiedSyncMetadata inside a
// caller-supplied transaction.
func (s *Store) ModifiedSyncMetadataTx(ctx context.Context, tx *sql.Tx) ([]SyncMetadata, error) {
	return querySyncMetadata(ctx, tx,
		`SELECT `+syncColumns+` FROM sync_metadata WHERE last_modified IS NOT NULL`)
}

// SyncMetadataModifiedBefore returns rows last modified strictly before
// the cutoff. The cutoff is rounded to millisecond precision first.
func (s *Store) SyncMetadataModifiedBefore(ctx context.Context, cutoff time.Time) ([]SyncMetadata, error) {
	return querySyncMetadata(ctx, s.db,
		`SELECT `+syncColumns+` FROM sync_metadata WHERE last_modified IS NOT NULL AND last_modified < ?`,
		MillisecondPrecision(cutoff))
}

// SyncMetadataBySyncIDs looks rows up by their external sync ids.
func (s *Store) SyncMetadataBySyncIDs(ctx context.Context, syncIDs []string) ([]SyncMetadata, error) {
	return s.syncMetadataBySyncIDs(ctx, s.db, syncIDs)
}

// SyncMetadataBySyncIDsTx is SyncMetadataBySyncIDs inside a
// caller-supplied transaction.
func (s *Store) SyncMetadataBySyncIDsTx(ctx context.Context, tx *sql.Tx, syncIDs []string) ([]SyncMetadata, error) {
	return s.syncMetadataBySyncIDs(ctx, tx, syncIDs)
}

func (s *Store) syncMetadataBySyncIDs(ctx context.Context, q querier, syncIDs []string) ([]SyncMetadata, error) {
	if len(syncIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(syncIDs)), ",")
	args := make([]any, len(syncIDs))
	for i, id := range syncIDs {
		args[i] = id
	}
	return querySyncMetadata(ctx, q,
		`SELECT `+syncColumns+` FROM sync_metadata WHERE sync_id IN (`+placeholders+`)`, args...)
}

// SyncMetadataForObject returns the metadata row for an internal
// account id, or ErrNotFound.
func (s *Store) SyncMetadataForObject(ctx context.Context, objectID int64) (*SyncMetadata, error) {
	return s.syncMetadataForObject(ctx, s.db, objectID)
}

// SyncMetadataForObjectTx is SyncMetadataForObject inside a
// caller-supplied transaction.
func (s *Store) SyncMetadataForObjectTx(ctx context.Context, tx *sql.Tx, objectID int64) (*SyncMetadata, error) {
	return s.syncMetadataForObject(ctx, tx, objectID)
}

func (s *Store) syncMetadataForObject(ctx context.Context, q querier, objectID int64) (*SyncMetadata, error) {
	m, err := scanSyncMetadata(q.QueryRowContext(ctx,
		`SELECT `+syncColumns+` FROM sync_metadata WHERE object_id = ?`, objectID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: sync metadata for object %d", ErrNotFound, objectID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync metadata: %w", err)
	}
	return m, nil
}

// UpdateSyncTimestamp persists a last-modified timestamp for an object,
// rounded to millisecond precision. A nil-like zero time clears it.
func (s *Store) UpdateSyncTimestamp(ctx context.Context, objectID int64, t time.Time) error {
	return s.updateSyncTimestamp(ctx, s.db, objectID, t)
}

// UpdateSyncTimestampTx is UpdateSyncTimestamp inside a caller-supplied
// transaction.
func (s *Store) UpdateSyncTimestampTx(ctx context.Context, tx *sql.Tx, objectID int64, t time.Time) error {
	return s.updateSyncTimestamp(ctx, tx, objectID, t)
}

func (s *Store) updateSyncTimestamp(ctx context.Context, q querier, objectID int64, t time.Time) error {
	var lastModified any
	if !t.IsZero() {
		lastModified = MillisecondPrecision(t)
	}
	result, err := q.ExecContext(ctx,
		`UPDATE sync_metadata SET last_modified = ? WHERE object_id = ?`,
		lastModified, objectID)
	if err != nil {
		return fmt.Errorf("failed to update sync timestamp: %w", err)
	}
	return checkRowsAffected(result, objectID)
}

// DeleteTombstones removes every sync metadata row whose object id is
// null, returning the count removed. Used by the tombstone cleaner
// inside one transaction.
func (s *Store) DeleteTombstones(ctx context.Context) (int64, error) {
	var count int64
	err := s.InTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		count, err = s.DeleteTombstonesTx(ctx, tx)
		return err
	})
	return count, err
}

// DeleteTombstonesTx is DeleteTombstones inside a caller-supplied
// transaction.
func (s *Store) DeleteTombstonesTx(ctx context.Context, tx *sql.Tx) (int64, error) {
	result, err := tx.ExecContext(ctx, `DELETE FROM sync_metadata WHERE object_id IS NULL`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete tombstones: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return count, nil
}

func querySyncMetadata(ctx context.Context, q querier, query string, args ...any) ([]SyncMetadata, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync metadata: %w", err)
	}
	defer rows.Close()

	var metadata []SyncMetadata
	for rows.Next() {
		m, err := scanSyncMetadata(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync metadata: %w", err)
		}
		metadata = append(metadata, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sync metadata: %w", err)
	}
	return metadata, nil
}
