package store

import (
	"context"
	"fmt"

	"github.com/0xintuition/ethmultivault-indexer/internal/models"
)

// UpsertVault creates a vault on first reference and is otherwise a no-op;
// share/price mutations go through AdjustVaultShares and SetVaultSharePrice
// so concurrent handlers never clobber each other's deltas (§3, §8).
func (s *Store) UpsertVault(ctx context.Context, v models.Vault) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO vaults (id, term_id, curve_id, total_shares, current_share_price, position_count)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO NOTHING`,
		v.ID, v.TermID.Big(), v.CurveID, v.TotalShares.String(), v.CurrentSharePrice.String(), v.PositionCount,
	)
	if err != nil {
		return fmt.Errorf("upsert vault %s: %w", v.ID, err)
	}
	return nil
}

// GetVault looks up a vault by its composite id.
func (s *Store) GetVault(ctx context.Context, id string) (models.Vault, error) {
	var v models.Vault
	var termIDStr, totalShares, sharePrice string
	err := s.db.QueryRow(ctx, `
		SELECT term_id::text, curve_id, total_shares::text, current_share_price::text, position_count
		FROM vaults WHERE id = $1`, id,
	).Scan(&termIDStr, &v.CurveID, &totalShares, &sharePrice, &v.PositionCount)
	if noRows(err) {
		return models.Vault{}, ErrNotFound
	}
	if err != nil {
		return models.Vault{}, fmt.Errorf("get vault %s: %w", id, err)
	}
	v.ID = id
	if v.TermID, err = models.TermIDFromString(termIDStr); err != nil {
		return models.Vault{}, err
	}
	if v.TotalShares, err = models.DecimalFromString(totalShares); err != nil {
		return models.Vault{}, err
	}
	if v.CurrentSharePrice, err = models.DecimalFromString(sharePrice); err != nil {
		return models.Vault{}, err
	}
	return v, nil
}

// AdjustVaultShares applies a signed delta to total_shares and bumps
// position_count by countDelta (Deposited/Redeemed handlers, §4.3).
func (s *Store) AdjustVaultShares(ctx context.Context, vaultID string, delta *models.DecimalShares, negative bool, countDelta int64) error {
	const addSQL = `UPDATE vaults SET total_shares = total_shares + $2::numeric, position_count = position_count + $3 WHERE id = $1`
	const subSQL = `UPDATE vaults SET total_shares = total_shares - $2::numeric, position_count = position_count + $3 WHERE id = $1`

	query := addSQL
	if negative {
		query = subSQL
	}
	if _, err := s.db.Exec(ctx, query, vaultID, delta.String(), countDelta); err != nil {
		return fmt.Errorf("adjust vault shares %s: %w", vaultID, err)
	}
	return nil
}

// SetVaultSharePrice records the share price reported by a
// SharePriceChanged(Curve) event (§4.3).
func (s *Store) SetVaultSharePrice(ctx context.Context, vaultID string, price *models.DecimalShares) error {
	_, err := s.db.Exec(ctx, `UPDATE vaults SET current_share_price = $2 WHERE id = $1`,
		vaultID, price.String())
	if err != nil {
		return fmt.Errorf("set vault share price %s: %w", vaultID, err)
	}
	return nil
}
