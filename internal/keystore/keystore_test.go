package keystore

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arlenn/secvault/internal/events"
)

type fakeKeyring struct {
	entries map[string][]byte
	failGet error
}

func newFakeKeyring() *fakeKeyring {
	return &fakeKeyring{entries: make(map[string][]byte)}
}

func entryKey(service, account string) string { return service + "\x00" + account }

func (f *fakeKeyring) Get(service, account string) ([]byte, error) {
	if f.failGet != nil {
		return nil, f.failGet
	}
	value, ok := f.entries[entryKey(service, account)]
	if !ok {
		return nil, ErrKeyringNotFound
	}
	return value, nil
}

func (f *fakeKeyring) Set(service, account string, value []byte) error {
	f.entries[entryKey(service, account)] = value
	return nil
}

func (f *fakeKeyring) Delete(service, account string) error {
	if _, ok := f.entries[entryKey(service, account)]; !ok {
		return ErrKeyringNotFound
	}
	delete(f.entries, entryKey(service, account))
	return nil
}

type recordingReporter struct {
	events []events.Event
}

func (r *recordingReporter) Report(e events.Event) { r.events = append(r.events, e) }

func TestReadMissingEverywhere(t *testing.T) {
	store := New(newFakeKeyring(), nil)

	value, err := store.Read(SecretL2Key)
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestWriteThenRead(t *testing.T) {
	keyring := newFakeKeyring()
	store := New(keyring, nil)

	require.NoError(t, store.Write(SecretGeneratedPassword, []byte("device-password")))

	value, err := store.Read(SecretGeneratedPassword)
	require.NoError(t, err)
	assert.Equal(t, []byte("device-password"), value)

	// Current generation stores text-wrapped base64.
	raw, err := keyring.Get(serviceV4, groupAccount(SecretGeneratedPassword))
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("device-password")), string(raw))
}

func TestReadFallsBackAndMigrates(t *testing.T) {
	keyring := newFakeKeyring()
	reporter := &recordingReporter{}
	store := New(keyring, reporter)

	// Secret only present under the v2 generation, base64-wrapped.
	require.NoError(t, keyring.Set(serviceV2, bareAccount(SecretL2Key),
		encodeBase64([]byte("encrypted-data-key"))))

	value, err := store.Read(SecretL2Key)
	require.NoError(t, err)
	assert.Equal(t, []byte("encrypted-data-key"), value)

	// Write-through into the current generation.
	migrated, err := keyring.Get(serviceV4, groupAccount(SecretL2Key))
	require.NoError(t, err)
	assert.Equal(t, encodeBase64([]byte("encrypted-data-key")), migrated)

	require.Len(t, reporter.events, 1)
	migratedEvent, ok := reporter.events[0].(events.SecretMigrated)
	require.True(t, ok)
	assert.Equal(t, "v2", migratedEvent.Generation)
	assert.Equal(t, string(SecretL2Key), migratedEvent.Secret)

	// Subsequent reads hit the current generation and report nothing.
	_, err = store.Read(SecretL2Key)
	require.NoError(t, err)
	assert.Len(t, reporter.events, 1)
}

func TestReadOldestGenerationRawBytes(t *testing.T) {
	keyring := newFakeKeyring()
	store := New(keyring, nil)

	// v1 predates the base64 wrapping and holds raw bytes.
	rawValue := []byte{0x00, 0x01, 0xfe, 0xff}
	require.NoError(t, keyring.Set(serviceV1, bareAccount(SecretL1Key), rawValue))

	value, err := store.Read(SecretL1Key)
	require.NoError(t, err)
	assert.Equal(t, rawValue, value)

	// Migrated copy is base64-wrapped under the current generation.
	migrated, err := keyring.Get(serviceV4, groupAccount(SecretL1Key))
	require.NoError(t, err)
	assert.Equal(t, encodeBase64(rawValue), migrated)
}

func TestNewerGenerationWins(t *testing.T) {
	keyring := newFakeKeyring()
	store := New(keyring, nil)

	require.NoError(t, keyring.Set(serviceV3, bundleAccount(SecretL2Key), encodeBase64([]byte("newer"))))
	require.NoError(t, keyring.Set(serviceV1, bareAccount(SecretL2Key), []byte("older")))

	value, err := store.Read(SecretL2Key)
	require.NoError(t, err)
	assert.Equal(t, []byte("newer"), value)
}

func TestClearIdempotent(t *testing.T) {
	keyring := newFakeKeyring()
	store := New(keyring, nil)

	require.NoError(t, store.Write(SecretGeneratedPassword, []byte("pw")))
	require.NoError(t, keyring.Set(serviceV1, bareAccount(SecretGeneratedPassword), []byte("pw")))

	require.NoError(t, store.Clear(SecretGeneratedPassword))
	value, err := store.Read(SecretGeneratedPassword)
	require.NoError(t, err)
	assert.Nil(t, value)

	// Clearing again is not an error.
	require.NoError(t, store.Clear(SecretGeneratedPassword))
}

func TestUnexpectedBackendStatus(t *testing.T) {
	keyring := newFakeKeyring()
	keyring.failGet = errors.New("backend exploded")
	store := New(keyring, nil)

	_, err := store.Read(SecretL2Key)
	var keystoreErr *KeystoreError
	require.ErrorAs(t, err, &keystoreErr)
}

func TestMalformedBase64Secret(t *testing.T) {
	keyring := newFakeKeyring()
	store := New(keyring, nil)

	require.NoError(t, keyring.Set(serviceV4, groupAccount(SecretL2Key), []byte("!!not-base64!!")))

	_, err := store.Read(SecretL2Key)
	var keystoreErr *KeystoreError
	require.ErrorAs(t, err, &keystoreErr)
}
