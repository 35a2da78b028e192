package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SaveNote inserts (id zero) or updates a note, returning its id.
func (s *Store) SaveNote(ctx context.Context, note *Note) (int64, error) {
	now := time.Now()
	note.LastUpdated = now

	if note.ID == 0 {
		note.Created = now
		result, err := s.db.ExecContext(ctx, `
			INSERT INTO notes (title, created, last_updated, associated_domain, text)
			VALUES (?, ?, ?, ?, ?)`,
			note.Title, note.Created, note.LastUpdated, note.AssociatedDomain, note.Text)
		if err != nil {
			return 0, fmt.Errorf("failed to insert note: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("failed to get note id: %w", err)
		}
		note.ID = id
		return id, nil
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE notes SET title = ?, last_updated = ?, associated_domain = ?, text = ?
		WHERE id = ?`,
		note.Title, note.LastUpdated, note.AssociatedDomain, note.Text, note.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to update note: %w", err)
	}
	return note.ID, checkRowsAffected(result, note.ID)
}

// Notes returns every note.
func (s *Store) Notes(ctx context.Context) ([]Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, created, last_updated, associated_domain, text
		FROM notes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.Title, &n.Created, &n.LastUpdated,
			&n.AssociatedDomain, &n.Text); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notes: %w", err)
	}
	return notes, nil
}

// NoteByID returns one note or ErrNotFound.
func (s *Store) NoteByID(ctx context.Context, id int64) (*Note, error) {
	n := &Note{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, created, last_updated, associated_domain, text
		FROM notes WHERE id = ?`, id).
		Scan(&n.ID, &n.Title, &n.Created, &n.LastUpdated, &n.AssociatedDomain, &n.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: note %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return n, nil
}

// DeleteNote removes a note.
func (s *Store) DeleteNote(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return checkRowsAffected(result, id)
}

// SaveIdentity inserts (id zero) or updates an identity, returning its
// id.
func (s *Store) SaveIdentity(ctx context.Context, identity *Identity) (int64, error) {
	now := time.Now()
	identity.LastUpdated = now

	if identity.ID == 0 {
		identity.Created = now
		result, err := s.db.ExecContext(ctx, `
			INSERT INTO identities (
				title, created, last_updated, first_name, last_name,
				address_street, address_city, address_state, address_zip, phone, email
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			identity.Title, identity.Created, identity.LastUpdated,
			identity.FirstName, identity.LastName, identity.AddressStreet,
			identity.AddressCity, identity.AddressState, identity.AddressZip,
			identity.Phone, identity.Email)
		if err != nil {
			return 0, fmt.Errorf("failed to insert identity: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("failed to get identity id: %w", err)
		}
		identity.ID = id
		return id, nil
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE identities SET
			title = ?, last_updated = ?, first_name = ?, last_name = ?,
			address_street = ?, address_city = ?, address_state = ?, address_zip = ?,
			phone = ?, email = ?
		WHERE id = ?`,
		identity.Title, identity.LastUpdated, identity.FirstName, identity.LastName,
		identity.AddressStreet, identity.AddressCity, identity.AddressState,
		identity.AddressZip, identity.Phone, identity.Email, identity.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to update identity: %w", err)
	}
	return identity.ID, checkRowsAffected(result, identity.ID)
}

// Identities returns every identity.
func (s *Store) Identities(ctx context.Context) ([]Identity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, created, last_updated, first_name, last_name,
		       address_street, address_city, address_state, address_zip, phone, email
		FROM identities ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query identities: %w", err)
	}
	defer rows.Close()

	var identities []Identity
	for rows.Next() {
		var ident Identity
		if err := rows.Scan(&ident.ID, &ident.Title, &ident.Created, &ident.LastUpdated,
			&ident.FirstName, &ident.LastName, &ident.AddressStreet, &ident.AddressCity,
			&ident.AddressState, &ident.AddressZip, &ident.Phone, &ident.Email); err != nil {
			return nil, fmt.Errorf("failed to scan identity: %w", err)
		}
		identities = append(identities, ident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate identities: %w", err)
	}
	return identities, nil
}

// IdentityByID returns one identity or ErrNotFound.
func (s *Store) IdentityByID(ctx context.Context, id int64) (*Identity, error) {
	ident := &Identity{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, created, last_updated, first_name, last_name,
		       address_street, address_city, address_state, address_zip, phone, email
		FROM identities WHERE id = ?`, id).
		Scan(&ident.ID, &ident.Title, &ident.Created, &ident.LastUpdated,
			&ident.FirstName, &ident.LastName, &ident.AddressStreet, &ident.AddressCity,
			&ident.AddressState, &ident.AddressZip, &ident.Phone, &ident.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: identity %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}
	return ident, nil
}

// DeleteIdentity removes an identity.
func (s *Store) DeleteIdentity(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM identities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete identity: %w", err)
	}
	return checkRowsAffected(result, id)
}

// SaveCreditCard inserts (id zero) or updates a card, returning its id.
// CardNumber is ciphertext; CardSuffix must already be derived from the
// plaintext number by the caller.
func (s *Store) SaveCreditCard(ctx context.Context, card *CreditCard) (int64, error) {
	now := time.Now()
	card.LastUpdated = now

	if card.ID == 0 {
		card.Created = now
		result, err := s.db.ExecContext(ctx, `
			INSERT INTO credit_cards (
				title, created, last_updated, card_number, card_suffix,
				cardholder_name, security_code, expiration_month, expiration_year
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			card.Title, card.Created, card.LastUpdated, card.CardNumber, card.CardSuffix,
			card.CardholderName, card.SecurityCode, card.ExpirationMonth, card.ExpirationYear)
		if err != nil {
			return 0, fmt.Errorf("failed to insert credit card: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("failed to get credit card id: %w", err)
		}
		card.ID = id
		return id, nil
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE credit_cards SET
			title = ?, last_updated = ?, card_number = ?, card_suffix = ?,
			cardholder_name = ?, security_code = ?, expiration_month = ?, expiration_year = ?
		WHERE id = ?`,
		card.Title, card.LastUpdated, card.CardNumber, card.CardSuffix,
		card.CardholderName, card.SecurityCode, card.ExpirationMonth,
		card.ExpirationYear, card.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to update credit card: %w", err)
	}
	return card.ID, checkRowsAffected(result, card.ID)
}

// CreditCards returns every card. Numbers stay encrypted; the plaintext
// suffix is what list views render.
func (s *Store) CreditCards(ctx context.Context) ([]CreditCard, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, created, last_updated, card_number, card_suffix,
		       cardholder_name, security_code, expiration_month, expiration_year
		FROM credit_cards ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query credit cards: %w", err)
	}
	defer rows.Close()

	var cards []CreditCard
	for rows.Next() {
		var card CreditCard
		if err := rows.Scan(&card.ID, &card.Title, &card.Created, &card.LastUpdated,
			&card.CardNumber, &card.CardSuffix, &card.CardholderName,
			&card.SecurityCode, &card.ExpirationMonth, &card.ExpirationYear); err != nil {
			return nil, fmt.Errorf("failed to scan credit card: %w", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate credit cards: %w", err)
	}
	return cards, nil
}

// CreditCardByID returns one card or ErrNotFound.
func (s *Store) CreditCardByID(ctx context.Context, id int64) (*CreditCard, error) {
	card := &CreditCard{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, created, last_updated, card_number, card_suffix,
		       cardholder_name, security_code, expiration_month, expiration_year
		FROM credit_cards WHERE id = ?`, id).
		Scan(&card.ID, &card.Title, &card.Created, &card.LastUpdated,
			&card.CardNumber, &card.CardSuffix, &card.CardholderName,
			&card.SecurityCode, &card.ExpirationMonth, &card.ExpirationYear)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: credit card %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credit card: %w", err)
	}
	return card, nil
}

// DeleteCreditCard removes a card.
func (s *Store) DeleteCreditCard(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM credit_cards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete credit card: %w", err)
	}
	return checkRowsAffected(result, id)
}
