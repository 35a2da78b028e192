package keystore

// The keystore has been through four generations of service naming:
// unshared per-app, bundle-qualified, then app-group shared. The
// service names, account UUIDs and prefixes below are a durable
// external contract; changing any of them strands every existing
// installation's key material behind an unreachable namespace.

const (
	bundleID   = "com.arlenn.secvault"
	appGroupID = "group.com.arlenn.secvault"

	serviceV1 = "com.arlenn.secvault"
	serviceV2 = "com.arlenn.secvault.v2"
	serviceV3 = "com.arlenn.secvault.v3"
	serviceV4 = "com.arlenn.secvault.shared.v4"
)

// Fixed account-name constants, one per secret type.
var accountUUIDs = map[Secret]string{
	SecretGeneratedPassword: "5A8BDE23-41B7-4B08-8A76-4D5B2F1C9E03",
	SecretL1Key:             "C3F27E8B-9D54-4AD1-B0E2-7A6F31D845CA",
	SecretL2Key:             "E1B940F6-2C7D-4F39-96A8-0D53C8B17ED4",
	SecretSignatureSalt:     "7D06A2E9-F481-4C65-A3B7-52E98D104BF6",
}

type generation struct {
	name    string
	service string
	account func(Secret) string
	encode  func([]byte) []byte
	decode  func([]byte) ([]byte, error)
}

func rawEncode(value []byte) []byte          { return value }
func rawDecode(raw []byte) ([]byte, error)   { return raw, nil }
func bareAccount(name Secret) string         { return accountUUIDs[name] }
func bundleAccount(name Secret) string       { return bundleID + "." + accountUUIDs[name] }
func groupAccount(name Secret) string        { return appGroupID + "." + accountUUIDs[name] }

// defaultGenerations is ordered newest first; index 0 is the current
// generation every write targets. The v4 account prefix carries the
// app-group identifier so all processes of the same install share the
// entries. v1 predates the text-wrapped encoding and stores raw bytes.
var defaultGenerations = []generation{
	{
		name:    "v4-shared",
		service: serviceV4,
		account: groupAccount,
		encode:  encodeBase64,
		decode:  decodeBase64,
	},
	{
		name:    "v3-bundle",
		service: serviceV3,
		account: bundleAccount,
		encode:  encodeBase64,
		decode:  decodeBase64,
	},
	{
		name:    "v2",
		service: serviceV2,
		account: bareAccount,
		encode:  encodeBase64,
		decode:  decodeBase64,
	},
	{
		name:    "v1",
		service: serviceV1,
		account: bareAccount,
		encode:  rawEncode,
		decode:  rawDecode,
	},
}
