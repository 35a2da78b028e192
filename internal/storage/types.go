package storage

import "time"

// Account holds the queryable identity of a saved credential. The
// password itself lives in a separate table so accounts can be listed
// without touching encrypted payloads.
type Account struct {
	ID          int64
	Title       string
	Username    string
	Domain      string
	Signature   string
	Notes       string
	Created     time.Time
	LastUpdated time.Time
	LastUsed    *time.Time
}

// Credentials pairs an account with its encrypted password. Password is
// ciphertext at this layer; the vault facade handles plaintext.
type Credentials struct {
	Account  Account
	Password []byte
}

// NeverPromptSite is a domain the user opted out of save prompts for.
type NeverPromptSite struct {
	ID     int64
	Domain string
}

// Note is a free-form secure note, optionally tied to a domain.
type Note struct {
	ID               int64
	Title            string
	Created          time.Time
	LastUpdated      time.Time
	AssociatedDomain string
	Text             string
}

// Identity holds autofillable personal details.
type Identity struct {
	ID            int64
	Title         string
	Created       time.Time
	LastUpdated   time.Time
	FirstName     string
	LastName      string
	AddressStreet string
	AddressCity   string
	AddressState  string
	AddressZip    string
	Phone         string
	Email         string
}

// CreditCard holds a payment card. CardNumber is ciphertext; CardSuffix
// is kept in plaintext so lists can render without authentication.
type CreditCard struct {
	ID              int64
	Title           string
	Created         time.Time
	LastUpdated     time.Time
	CardNumber      []byte
	CardSuffix      string
	CardholderName  string
	SecurityCode    string
	ExpirationMonth int
	ExpirationYear  int
}

// SyncMetadata tracks one syncable account. A nil ObjectID marks a
// tombstone awaiting physical deletion once sync has observed it.
// LastModified is seconds since epoch, rounded to millisecond
// precision.
type SyncMetadata struct {
	SyncID       string
	ObjectID     *int64
	LastModified *float64
}
