package store

import (
	"context"
	"fmt"
	"time"

	"github.com/0xintuition/ethmultivault-indexer/internal/models"
)

// IncrementStats bumps the running totals row (§3 "Stats"). Each argument
// is a delta, typically 1 for the counter the calling handler just
// produced and 0 for the rest.
func (s *Store) IncrementStats(ctx context.Context, atoms, triples, signals, accounts int64) error {
	_, err := s.db.Exec(ctx, `
		UPDATE stats
		SET total_atoms = total_atoms + $1,
		    total_triples = total_triples + $2,
		    total_signals = total_signals + $3,
		    total_accounts = total_accounts + $4`,
		atoms, triples, signals, accounts,
	)
	if err != nil {
		return fmt.Errorf("increment stats: %w", err)
	}
	return nil
}

// GetStats reads the current running totals.
func (s *Store) GetStats(ctx context.Context) (models.Stats, error) {
	var st models.Stats
	err := s.db.QueryRow(ctx, `
		SELECT total_atoms, total_triples, total_signals, total_accounts FROM stats`,
	).Scan(&st.TotalAtoms, &st.TotalTriples, &st.TotalSignals, &st.TotalAccounts)
	if err != nil {
		return models.Stats{}, fmt.Errorf("get stats: %w", err)
	}
	return st, nil
}

// UpsertStatsHour folds deltas into the hourly bucket containing ts,
// truncated to the hour boundary (§3 "StatsHour").
func (s *Store) UpsertStatsHour(ctx context.Context, ts time.Time, atoms, triples, signals, accounts int64, depositVolume, redeemVolume *models.DecimalShares) error {
	hourStart := ts.UTC().Truncate(time.Hour)
	_, err := s.db.Exec(ctx, `
		INSERT INTO stats_hourly (hour_start, total_atoms, total_triples, total_signals, total_accounts, deposit_volume, redeem_volume)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (hour_start) DO UPDATE SET
			total_atoms = stats_hourly.total_atoms + EXCLUDED.total_atoms,
			total_triples = stats_hourly.total_triples + EXCLUDED.total_triples,
			total_signals = stats_hourly.total_signals + EXCLUDED.total_signals,
			total_accounts = stats_hourly.total_accounts + EXCLUDED.total_accounts,
			deposit_volume = stats_hourly.deposit_volume + EXCLUDED.deposit_volume,
			redeem_volume = stats_hourly.redeem_volume + EXCLUDED.redeem_volume`,
		hourStart, atoms, triples, signals, accounts, depositVolume.String(), redeemVolume.String(),
	)
	if err != nil {
		return fmt.Errorf("upsert stats hour %s: %w", hourStart, err)
	}
	return nil
}
