package storage

import (
	"context"
	"fmt"
)

// AddNeverPromptSite records a domain the user opted out of save
// prompts for. Adding an already-listed domain is not an error.
func (s *Store) AddNeverPromptSite(ctx context.Context, domain string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO never_prompt_sites (domain) VALUES (?)
		 ON CONFLICT(domain) DO NOTHING`, domain)
	if err != nil {
		return fmt.Errorf("failed to add never prompt site: %w", err)
	}
	return nil
}

// NeverPromptSites returns the full opt-out list.
func (s *Store) NeverPromptSites(ctx context.Context) ([]NeverPromptSite, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, domain FROM never_prompt_sites ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query never prompt sites: %w", err)
	}
	defer rows.Close()

	var sites []NeverPromptSite
	for rows.Next() {
		var site NeverPromptSite
		if err := rows.Scan(&site.ID, &site.Domain); err != nil {
			return nil, fmt.Errorf("failed to scan never prompt site: %w", err)
		}
		sites = append(sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate never prompt sites: %w", err)
	}
	return sites, nil
}

// HasNeverPromptSite reports whether a domain is on the opt-out list.
func (s *Store) HasNeverPromptSite(ctx context.Context, domain string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM never_prompt_sites WHERE domain = ?)`, domain).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check never prompt site: %w", err)
	}
	return exists, nil
}

// DeleteAllNeverPromptSites clears the opt-out list.
func (s *Store) DeleteAllNeverPromptSites(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM never_prompt_sites`); err != nil {
		return fmt.Errorf("failed to delete never prompt sites: %w", err)
	}
	return nil
}
