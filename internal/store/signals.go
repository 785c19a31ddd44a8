package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/0xintuition/ethmultivault-indexer/internal/models"
)

// InsertSignal records one derived per-account, per-term delta (§3
// "Signal"). Signal carries no natural key, so idempotence is enforced by a
// unique constraint on (event_id, account_id, direction); a replayed event
// that already produced this signal is a no-op.
func (s *Store) InsertSignal(ctx context.Context, sig models.Signal) error {
	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO signals (id, account_id, term_id, vault_id, direction, delta, event_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (event_id, account_id, direction) DO NOTHING`,
		sig.ID, sig.AccountID, sig.TermID.Big(), sig.VaultID, string(sig.Direction),
		sig.Delta.String(), sig.EventID, sig.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert signal for event %s: %w", sig.EventID, err)
	}
	return nil
}

// SignalsForAccount returns every signal recorded for an account, most
// recent first. No handler or test in this repository calls it.
func (s *Store) SignalsForAccount(ctx context.Context, accountID string) ([]models.Signal, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, term_id::text, vault_id, direction, delta::text, event_id, created_at
		FROM signals WHERE account_id = $1 ORDER BY created_at DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list signals for %s: %w", accountID, err)
	}
	defer rows.Close()

	var out []models.Signal
	for rows.Next() {
		var sig models.Signal
		var termIDStr, delta, direction string
		if err := rows.Scan(&sig.ID, &termIDStr, &sig.VaultID, &direction, &delta, &sig.EventID, &sig.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan signal row: %w", err)
		}
		sig.AccountID = accountID
		sig.Direction = models.SignalDirection(direction)
		if sig.TermID, err = models.TermIDFromString(termIDStr); err != nil {
			return nil, err
		}
		if sig.Delta, err = models.SignedDecimalFromString(delta); err != nil {
			return nil, err
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}
