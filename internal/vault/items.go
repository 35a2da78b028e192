package vault

import (
	"context"

	"github.com/arlenn/secvault/internal/crypto"
	"github.com/arlenn/secvault/internal/storage"
)

// CreditCard is a payment card with its plaintext number. The suffix is
// derived from the number on save and stays readable without
// authentication.
type CreditCard struct {
	ID              int64
	Title           string
	CardNumber      string
	CardSuffix      string
	CardholderName  string
	SecurityCode    string
	ExpirationMonth int
	ExpirationYear  int
}

// SaveCreditCard encrypts the card number, derives the display suffix
// and stores the card. Returns the card id.
func (v *Vault) SaveCreditCard(ctx context.Context, card *CreditCard) (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	key, err := v.dataKey()
	if err != nil {
		return 0, err
	}
	sealed, err := crypto.Encrypt([]byte(card.CardNumber), key)
	if err != nil {
		return 0, NewAuthError(err)
	}
	card.CardSuffix = storage.CardSuffix(card.CardNumber)

	id, err := v.store.SaveCreditCard(ctx, &storage.CreditCard{
		ID:              card.ID,
		Title:           card.Title,
		CardNumber:      sealed,
		CardSuffix:      card.CardSuffix,
		CardholderName:  card.CardholderName,
		SecurityCode:    card.SecurityCode,
		ExpirationMonth: card.ExpirationMonth,
		ExpirationYear:  card.ExpirationYear,
	})
	if err != nil {
		return 0, wrapStorage(err)
	}
	card.ID = id
	return id, nil
}

// CreditCards lists stored cards without decrypting anything: the
// number field is left empty and the plaintext suffix identifies the
// card. No authentication needed.
func (v *Vault) CreditCards(ctx context.Context) ([]CreditCard, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	stored, err := v.store.CreditCards(ctx)
	if err != nil {
		return nil, wrapStorage(err)
	}
	cards := make([]CreditCard, 0, len(stored))
	for _, c := range stored {
		cards = append(cards, CreditCard{
			ID:              c.ID,
			Title:           c.Title,
			CardSuffix:      c.CardSuffix,
			CardholderName:  c.CardholderName,
			ExpirationMonth: c.ExpirationMonth,
			ExpirationYear:  c.ExpirationYear,
		})
	}
	return cards, nil
}

// CreditCardByID returns one card with its number decrypted.
func (v *Vault) CreditCardByID(ctx context.Context, id int64) (*CreditCard, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	stored, err := v.store.CreditCardByID(ctx, id)
	if err != nil {
		return nil, wrapStorage(err)
	}

	key, err := v.dataKey()
	if err != nil {
		return nil, err
	}
	number, err := crypto.Decrypt(stored.CardNumber, key)
	if err != nil {
		return nil, wrapAuth(err)
	}

	return &CreditCard{
		ID:              stored.ID,
		Title:           stored.Title,
		CardNumber:      string(number),
		CardSuffix:      stored.CardSuffix,
		CardholderName:  stored.CardholderName,
		SecurityCode:    stored.SecurityCode,
		ExpirationMonth: stored.ExpirationMonth,
		ExpirationYear:  stored.ExpirationYear,
	}, nil
}

// DeleteCreditCard removes a card.
func (v *Vault) DeleteCreditCard(ctx context.Context, id int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return wrapStorage(v.store.DeleteCreditCard(ctx, id))
}

// SaveNote stores a secure note. Returns the note id.
func (v *Vault) SaveNote(ctx context.Context, note *storage.Note) (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	id, err := v.store.SaveNote(ctx, note)
	if err != nil {
		return 0, wrapStorage(err)
	}
	return id, nil
}

// Notes lists stored notes.
func (v *Vault) Notes(ctx context.Context) ([]storage.Note, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	notes, err := v.store.Notes(ctx)
	if err != nil {
		return nil, wrapStorage(err)
	}
	return notes, nil
}

// NoteByID returns a single note.
func (v *Vault) NoteByID(ctx context.Context, id int64) (*storage.Note, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	note, err := v.store.NoteByID(ctx, id)
	if err != nil {
		return nil, wrapStorage(err)
	}
	return note, nil
}

// DeleteNote removes a note.
func (v *Vault) DeleteNote(ctx context.Context, id int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return wrapStorage(v.store.DeleteNote(ctx, id))
}

// SaveIdentity stores an identity. Returns the identity id.
func (v *Vault) SaveIdentity(ctx context.Context, identity *storage.Identity) (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	id, err := v.store.SaveIdentity(ctx, identity)
	if err != nil {
		return 0, wrapStorage(err)
	}
	return id, nil
}

// Identities lists stored identities.
func (v *Vault) Identities(ctx context.Context) ([]storage.Identity, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	identities, err := v.store.Identities(ctx)
	if err != nil {
		return nil, wrapStorage(err)
	}
	return identities, nil
}

// IdentityByID returns a single identity.
func (v *Vault) IdentityByID(ctx context.Context, id int64) (*storage.Identity, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	identity, err := v.store.IdentityByID(ctx, id)
	if err != nil {
		return nil, wrapStorage(err)
	}
	return identity, nil
}

// DeleteIdentity removes an identity.
func (v *Vault) DeleteIdentity(ctx context.Context, id int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return wrapStorage(v.store.DeleteIdentity(ctx, id))
}

// AddNeverPromptSite records a domain the user never wants save prompts
// for. Adding the same domain twice is not an error.
func (v *Vault) AddNeverPromptSite(ctx context.Context, domain string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return wrapStorage(v.store.AddNeverPromptSite(ctx, domain))
}

// NeverPromptSites lists the opted-out domains.
func (v *Vault) NeverPromptSites(ctx context.Context) ([]storage.NeverPromptSite, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	sites, err := v.store.NeverPromptSites(ctx)
	if err != nil {
		return nil, wrapStorage(err)
	}
	return sites, nil
}

// HasNeverPromptSite reports whether domain is opted out.
func (v *Vault) HasNeverPromptSite(ctx context.Context, domain string) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	ok, err := v.store.HasNeverPromptSite(ctx, domain)
	if err != nil {
		return false, wrapStorage(err)
	}
	return ok, nil
}

// DeleteAllNeverPromptSites clears the opt-out list.
func (v *Vault) DeleteAllNeverPromptSites(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return wrapStorage(v.store.DeleteAllNeverPromptSites(ctx))
}
