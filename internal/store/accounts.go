package store

import (
	"context"
	"fmt"

	"github.com/0xintuition/ethmultivault-indexer/internal/models"
)

// UpsertAccount creates an account on first observation of an address and
// is a no-op on replay (§3 "Account... created on first observation").
func (s *Store) UpsertAccount(ctx context.Context, a models.Account) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO accounts (id, label, type, image)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`,
		a.ID, a.Label, string(a.Type), a.Image,
	)
	if err != nil {
		return fmt.Errorf("upsert account %s: %w", a.ID, err)
	}
	return nil
}

// EnsureAccount upserts a bare default account the first time an address is
// seen as a sender, receiver, or creator, without overwriting a richer row
// already on file (§3).
func (s *Store) EnsureAccount(ctx context.Context, address string) error {
	return s.UpsertAccount(ctx, models.Account{ID: address, Type: models.AccountDefault})
}

// GetAccount looks up an account by address.
func (s *Store) GetAccount(ctx context.Context, id string) (models.Account, error) {
	var a models.Account
	var accType string
	err := s.db.QueryRow(ctx, `
		SELECT id, label, type, image FROM accounts WHERE id = $1`, id,
	).Scan(&a.ID, &a.Label, &accType, &a.Image)
	if noRows(err) {
		return models.Account{}, ErrNotFound
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("get account %s: %w", id, err)
	}
	a.Type = models.AccountType(accType)
	return a, nil
}

// SetAccountLabel updates an account's label, e.g. once an ENS name
// resolves for the address (§4.4).
func (s *Store) SetAccountLabel(ctx context.Context, id, label string) error {
	_, err := s.db.Exec(ctx, `UPDATE accounts SET label = $2 WHERE id = $1`, id, label)
	if err != nil {
		return fmt.Errorf("set account label %s: %w", id, err)
	}
	return nil
}
