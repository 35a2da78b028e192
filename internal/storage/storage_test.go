package storage

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

var testFileKey = bytes.Repeat([]byte{0x42}, 32)

// setupTestStore creates an encrypted database in a temp dir.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "vault.db"), testFileKey, nil)
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func TestOpenAppliesAllMigrations(t *testing.T) {
	store := setupTestStore(t)

	applied, err := store.appliedMigrations(context.Background())
	if err != nil {
		t.Fatalf("Failed to read migrations ledger: %v", err)
	}
	if len(applied) != len(migrations) {
		t.Errorf("Expected %d applied migrations, got %d", len(migrations), len(applied))
	}
	for _, m := range migrations {
		if !applied[m.name] {
			t.Errorf("Migration %s not recorded as applied", m.name)
		}
	}
}

func TestMigrationIdempotence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.db")
	ctx := context.Background()

	first, err := Open(path, testFileKey, nil)
	if err != nil {
		t.Fatalf("Failed to open store first time: %v", err)
	}

	// Seed some data so reopen can prove it survives.
	c := &Credentials{
		Account:  Account{Username: "bob", Domain: "example.com", Signature: "sig"},
		Password: []byte("ciphertext"),
	}
	id, err := first.SaveCredentials(ctx, c)
	if err != nil {
		t.Fatalf("Failed to save credentials: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Failed to close store: %v", err)
	}

	second, err := Open(path, testFileKey, nil)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer second.Close()

	var ledgerRows int
	if err := second.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM vault_migrations`).Scan(&ledgerRows); err != nil {
		t.Fatalf("Failed to count ledger rows: %v", err)
	}
	if ledgerRows != len(migrations) {
		t.Errorf("Reopen applied extra migrations: ledger has %d rows, want %d",
			ledgerRows, len(migrations))
	}

	got, err := second.CredentialsForAccount(ctx, id)
	if err != nil {
		t.Fatalf("Failed to read credentials after reopen: %v", err)
	}
	if got.Account.Username != "bob" || string(got.Password) != "ciphertext" {
		t.Errorf("Data changed across reopen: %+v", got)
	}
}

func TestOpenWrongKeyNonRecoverable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.db")

	store, err := Open(path, testFileKey, nil)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	store.Close()

	wrongKey := bytes.Repeat([]byte{0x13}, 32)
	if _, err := Open(path, wrongKey, nil); !errors.Is(err, ErrNonRecoverable) {
		t.Errorf("Expected ErrNonRecoverable for wrong key, got %v", err)
	}
}

func TestSaveCredentialsCreatesSyncMetadata(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	id, err := store.SaveCredentials(ctx, &Credentials{
		Account:  Account{Username: "bob", Domain: "example.com"},
		Password: []byte("ciphertext"),
	})
	if err != nil {
		t.Fatalf("Failed to save credentials: %v", err)
	}

	meta, err := store.SyncMetadataForObject(ctx, id)
	if err != nil {
		t.Fatalf("Sync metadata row missing after account insert: %v", err)
	}
	if meta.ObjectID == nil || *meta.ObjectID != id {
		t.Errorf("Sync metadata object id = %v, want %d", meta.ObjectID, id)
	}
	if meta.LastModified == nil {
		t.Error("Sync metadata last_modified should be set on insert")
	}
	if meta.SyncID == "" {
		t.Error("Sync metadata sync_id should be set")
	}
}

func TestSaveCredentialsDuplicate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first := &Credentials{
		Account:  Account{Username: "bob", Domain: "example.com"},
		Password: []byte("one"),
	}
	if _, err := store.SaveCredentials(ctx, first); err != nil {
		t.Fatalf("Failed to save first credentials: %v", err)
	}

	_, err := store.SaveCredentials(ctx, &Credentials{
		Account:  Account{Username: "bob", Domain: "example.com"},
		Password: []byte("two"),
	})
	if !errors.Is(err, ErrDuplicateRecord) {
		t.Errorf("Expected ErrDuplicateRecord for same (domain, username), got %v", err)
	}

	// Different username on the same domain is fine.
	if _, err := store.SaveCredentials(ctx, &Credentials{
		Account:  Account{Username: "alice", Domain: "example.com"},
		Password: []byte("three"),
	}); err != nil {
		t.Errorf("Unexpected error for distinct username: %v", err)
	}
}

func TestUpdateCredentials(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	c := &Credentials{
		Account:  Account{Username: "bob", Domain: "example.com", Signature: "old-sig"},
		Password: []byte("old"),
	}
	id, err := store.SaveCredentials(ctx, c)
	if err != nil {
		t.Fatalf("Failed to save credentials: %v", err)
	}
	created := c.Account.Created

	c.Account.Signature = "new-sig"
	c.Password = []byte("new")
	if _, err := store.SaveCredentials(ctx, c); err != nil {
		t.Fatalf("Failed to update credentials: %v", err)
	}

	got, err := store.CredentialsForAccount(ctx, id)
	if err != nil {
		t.Fatalf("Failed to read credentials: %v", err)
	}
	if string(got.Password) != "new" {
		t.Errorf("Password not updated: %q", got.Password)
	}
	if got.Account.Signature != "new-sig" {
		t.Errorf("Signature not updated: %q", got.Account.Signature)
	}
	if !got.Account.Created.Equal(created) {
		t.Errorf("Created changed on update: %v != %v", got.Account.Created, created)
	}
	if !got.Account.LastUpdated.After(created) && !got.Account.LastUpdated.Equal(created) {
		t.Errorf("LastUpdated not rewritten on persist")
	}
}

func TestDomainLookups(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, c := range []*Credentials{
		{Account: Account{Username: "bob", Domain: "example.com"}},
		{Account: Account{Username: "bob", Domain: "mail.example.com"}},
		{Account: Account{Username: "bob", Domain: "example.org"}},
	} {
		if _, err := store.SaveCredentials(ctx, c); err != nil {
			t.Fatalf("Failed to save credentials: %v", err)
		}
	}

	exact, err := store.AccountsForDomain(ctx, "example.com")
	if err != nil {
		t.Fatalf("AccountsForDomain failed: %v", err)
	}
	if len(exact) != 1 || exact[0].Domain != "example.com" {
		t.Errorf("Exact match returned %v", exact)
	}

	suffix, err := store.AccountsForDomainSuffix(ctx, "example.com")
	if err != nil {
		t.Fatalf("AccountsForDomainSuffix failed: %v", err)
	}
	if len(suffix) != 1 || suffix[0].Domain != "mail.example.com" {
		t.Errorf("Suffix match returned %v", suffix)
	}

	combined, err := store.AccountsForTLDPlus1(ctx, "example.com")
	if err != nil {
		t.Fatalf("AccountsForTLDPlus1 failed: %v", err)
	}
	if len(combined) != 2 {
		t.Errorf("Combined match returned %d accounts, want 2", len(combined))
	}
}

func TestUpdateLastUsedLeavesOtherFields(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	c := &Credentials{Account: Account{Username: "bob", Domain: "example.com"}}
	id, err := store.SaveCredentials(ctx, c)
	if err != nil {
		t.Fatalf("Failed to save credentials: %v", err)
	}
	lastUpdated := c.Account.LastUpdated

	if err := store.UpdateLastUsed(ctx, id); err != nil {
		t.Fatalf("UpdateLastUsed failed: %v", err)
	}

	got, err := store.AccountByID(ctx, id)
	if err != nil {
		t.Fatalf("Failed to read account: %v", err)
	}
	if got.LastUsed == nil {
		t.Fatal("LastUsed not set")
	}
	if !got.LastUpdated.Equal(lastUpdated) {
		t.Errorf("UpdateLastUsed must not alter last_updated: %v != %v",
			got.LastUpdated, lastUpdated)
	}
}

func TestDeleteAccountTombstonesFirst(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	id, err := store.SaveCredentials(ctx, &Credentials{
		Account: Account{Username: "bob", Domain: "example.com"},
	})
	if err != nil {
		t.Fatalf("Failed to save credentials: %v", err)
	}
	meta, err := store.SyncMetadataForObject(ctx, id)
	if err != nil {
		t.Fatalf("Failed to read sync metadata: %v", err)
	}

	if err := store.DeleteAccount(ctx, id); err != nil {
		t.Fatalf("DeleteAccount failed: %v", err)
	}

	if _, err := store.AccountByID(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Account should be gone, got %v", err)
	}

	tombstones, err := store.SyncMetadataBySyncIDs(ctx, []string{meta.SyncID})
	if err != nil {
		t.Fatalf("Failed to read tombstone: %v", err)
	}
	if len(tombstones) != 1 {
		t.Fatalf("Tombstone row missing after delete")
	}
	if tombstones[0].ObjectID != nil {
		t.Error("Tombstone object_id should be null")
	}
	if tombstones[0].LastModified == nil {
		t.Error("Tombstone last_modified should be set")
	}
}

func TestDeleteTombstones(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	keepID, err := store.SaveCredentials(ctx, &Credentials{
		Account: Account{Username: "alice", Domain: "example.org"},
	})
	if err != nil {
		t.Fatalf("Failed to save credentials: %v", err)
	}
	dropID, err := store.SaveCredentials(ctx, &Credentials{
		Account: Account{Username: "bob", Domain: "example.com"},
	})
	if err != nil {
		t.Fatalf("Failed to save credentials: %v", err)
	}
	if err := store.DeleteAccount(ctx, dropID); err != nil {
		t.Fatalf("DeleteAccount failed: %v", err)
	}

	count, err := store.DeleteTombstones(ctx)
	if err != nil {
		t.Fatalf("DeleteTombstones failed: %v", err)
	}
	if count != 1 {
		t.Errorf("First cleanup removed %d rows, want 1", count)
	}

	count, err = store.DeleteTombstones(ctx)
	if err != nil {
		t.Fatalf("Second DeleteTombstones failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Second cleanup removed %d rows, want 0", count)
	}

	if _, err := store.SyncMetadataForObject(ctx, keepID); err != nil {
		t.Errorf("Live metadata row removed by cleanup: %v", err)
	}
}

func TestUpdateSyncTimestampRounding(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	id, err := store.SaveCredentials(ctx, &Credentials{
		Account: Account{Username: "bob", Domain: "example.com"},
	})
	if err != nil {
		t.Fatalf("Failed to save credentials: %v", err)
	}

	now := time.Now()
	if err := store.UpdateSyncTimestamp(ctx, id, now); err != nil {
		t.Fatalf("UpdateSyncTimestamp failed: %v", err)
	}

	meta, err := store.SyncMetadataForObject(ctx, id)
	if err != nil {
		t.Fatalf("Failed to read sync metadata: %v", err)
	}
	if meta.LastModified == nil {
		t.Fatal("last_modified not set")
	}
	if !SameTimestamp(*meta.LastModified, MillisecondPrecision(now)) {
		t.Errorf("Persisted timestamp %v does not compare equal to rounded host clock %v",
			*meta.LastModified, MillisecondPrecision(now))
	}
}

func TestMillisecondPrecisionComparison(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	// 0.4ms apart: equal after rounding.
	a := MillisecondPrecision(base)
	b := MillisecondPrecision(base.Add(400 * time.Microsecond))
	if !SameTimestamp(a, b) {
		t.Errorf("Timestamps 0.4ms apart should compare equal: %v vs %v", a, b)
	}

	// 1.2ms apart: unequal, with clear ordering.
	c := MillisecondPrecision(base.Add(1200 * time.Microsecond))
	if SameTimestamp(a, c) {
		t.Errorf("Timestamps 1.2ms apart should compare unequal: %v vs %v", a, c)
	}
	if !(a < c) {
		t.Errorf("Rounded ordering lost: %v should sort before %v", a, c)
	}
}

func TestModifiedSyncQueries(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	id, err := store.SaveCredentials(ctx, &Credentials{
		Account: Account{Username: "bob", Domain: "example.com"},
	})
	if err != nil {
		t.Fatalf("Failed to save credentials: %v", err)
	}

	modified, err := store.ModifiedSyncMetadata(ctx)
	if err != nil {
		t.Fatalf("ModifiedSyncMetadata failed: %v", err)
	}
	if len(modified) != 1 {
		t.Fatalf("Expected 1 modified row, got %d", len(modified))
	}

	before, err := store.SyncMetadataModifiedBefore(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("SyncMetadataModifiedBefore failed: %v", err)
	}
	if len(before) != 1 {
		t.Errorf("Expected 1 row before future cutoff, got %d", len(before))
	}

	before, err = store.SyncMetadataModifiedBefore(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("SyncMetadataModifiedBefore failed: %v", err)
	}
	if len(before) != 0 {
		t.Errorf("Expected 0 rows before past cutoff, got %d", len(before))
	}

	// Clearing the timestamp removes the row from the modified set.
	if err := store.UpdateSyncTimestamp(ctx, id, time.Time{}); err != nil {
		t.Fatalf("UpdateSyncTimestamp clear failed: %v", err)
	}
	modified, err = store.ModifiedSyncMetadata(ctx)
	if err != nil {
		t.Fatalf("ModifiedSyncMetadata failed: %v", err)
	}
	if len(modified) != 0 {
		t.Errorf("Expected 0 modified rows after clear, got %d", len(modified))
	}
}

func TestNeverPromptSites(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.AddNeverPromptSite(ctx, "example.com"); err != nil {
		t.Fatalf("AddNeverPromptSite failed: %v", err)
	}
	// Re-adding is a no-op, not an error.
	if err := store.AddNeverPromptSite(ctx, "example.com"); err != nil {
		t.Fatalf("Re-adding never prompt site failed: %v", err)
	}

	has, err := store.HasNeverPromptSite(ctx, "example.com")
	if err != nil {
		t.Fatalf("HasNeverPromptSite failed: %v", err)
	}
	if !has {
		t.Error("example.com should be on the never prompt list")
	}

	sites, err := store.NeverPromptSites(ctx)
	if err != nil {
		t.Fatalf("NeverPromptSites failed: %v", err)
	}
	if len(sites) != 1 {
		t.Errorf("Expected 1 site, got %d", len(sites))
	}

	if err := store.DeleteAllNeverPromptSites(ctx); err != nil {
		t.Fatalf("DeleteAllNeverPromptSites failed: %v", err)
	}
	has, err = store.HasNeverPromptSite(ctx, "example.com")
	if err != nil {
		t.Fatalf("HasNeverPromptSite failed: %v", err)
	}
	if has {
		t.Error("Never prompt list should be empty after delete all")
	}
}

func TestNoteCRUD(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	note := &Note{Title: "wifi", Text: "password under the router", AssociatedDomain: "example.com"}
	id, err := store.SaveNote(ctx, note)
	if err != nil {
		t.Fatalf("SaveNote failed: %v", err)
	}

	note.Text = "rotated"
	if _, err := store.SaveNote(ctx, note); err != nil {
		t.Fatalf("SaveNote update failed: %v", err)
	}

	got, err := store.NoteByID(ctx, id)
	if err != nil {
		t.Fatalf("NoteByID failed: %v", err)
	}
	if got.Text != "rotated" || got.AssociatedDomain != "example.com" {
		t.Errorf("Note mismatch: %+v", got)
	}

	if err := store.DeleteNote(ctx, id); err != nil {
		t.Fatalf("DeleteNote failed: %v", err)
	}
	if _, err := store.NoteByID(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestCreditCardSuffixQueryableWithoutDecryption(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	card := &CreditCard{
		Title:           "personal",
		CardNumber:      []byte("opaque-ciphertext"),
		CardSuffix:      "4242",
		CardholderName:  "Bob",
		ExpirationMonth: 12,
		ExpirationYear:  2030,
	}
	if _, err := store.SaveCreditCard(ctx, card); err != nil {
		t.Fatalf("SaveCreditCard failed: %v", err)
	}

	cards, err := store.CreditCards(ctx)
	if err != nil {
		t.Fatalf("CreditCards failed: %v", err)
	}
	if len(cards) != 1 {
		t.Fatalf("Expected 1 card, got %d", len(cards))
	}
	if cards[0].CardSuffix != "4242" {
		t.Errorf("Suffix not readable from list: %q", cards[0].CardSuffix)
	}
	if string(cards[0].CardNumber) != "opaque-ciphertext" {
		t.Errorf("Card number should round-trip as opaque bytes")
	}
}

func TestCardSuffix(t *testing.T) {
	cases := map[string]string{
		"4242424242424242":    "4242",
		"4242 4242 4242 1234": "1234",
		"123":                 "123",
		"":                    "",
	}
	for number, want := range cases {
		if got := CardSuffix(number); got != want {
			t.Errorf("CardSuffix(%q) = %q, want %q", number, got, want)
		}
	}
}
