package store

import (
	"context"
	"fmt"

	"github.com/0xintuition/ethmultivault-indexer/internal/models"
)

// UpsertPosition creates a position on first deposit into a vault for an
// account. AdjustPositionShares handles every subsequent mutation (§3, §8
// "a zero-share position SHOULD be deleted").
func (s *Store) UpsertPosition(ctx context.Context, p models.Position) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO positions (id, vault_id, account_id, shares)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO NOTHING`,
		p.ID, p.VaultID, p.AccountID, p.Shares.String(),
	)
	if err != nil {
		return fmt.Errorf("upsert position %s: %w", p.ID, err)
	}
	return nil
}

// GetPosition looks up a position by its composite id.
func (s *Store) GetPosition(ctx context.Context, id string) (models.Position, error) {
	var p models.Position
	var shares string
	err := s.db.QueryRow(ctx, `
		SELECT vault_id, account_id, shares::text FROM positions WHERE id = $1`, id,
	).Scan(&p.VaultID, &p.AccountID, &shares)
	if noRows(err) {
		return models.Position{}, ErrNotFound
	}
	if err != nil {
		return models.Position{}, fmt.Errorf("get position %s: %w", id, err)
	}
	p.ID = id
	if p.Shares, err = models.DecimalFromString(shares); err != nil {
		return models.Position{}, err
	}
	return p, nil
}

// AdjustPositionShares applies a signed delta and, once shares reach zero,
// deletes the row instead of leaving a zero-balance position on file (§8).
func (s *Store) AdjustPositionShares(ctx context.Context, id string, delta *models.DecimalShares, negative bool) error {
	const addSQL = `UPDATE positions SET shares = shares + $2::numeric WHERE id = $1`
	const subSQL = `UPDATE positions SET shares = shares - $2::numeric WHERE id = $1`

	query := addSQL
	if negative {
		query = subSQL
	}
	if _, err := s.db.Exec(ctx, query, id, delta.String()); err != nil {
		return fmt.Errorf("adjust position shares %s: %w", id, err)
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM positions WHERE id = $1 AND shares = 0`, id); err != nil {
		return fmt.Errorf("prune zero position %s: %w", id, err)
	}
	return nil
}
