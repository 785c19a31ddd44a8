package store

import (
	"context"
	"fmt"

	"github.com/0xintuition/ethmultivault-indexer/internal/models"
)

// InsertAtom creates an atom row keyed by term id. Replayed AtomCreated
// events for a term id already on file are idempotent no-ops (§4.3, §8).
func (s *Store) InsertAtom(ctx context.Context, a models.Atom) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO atoms (
			term_id, creator_id, vault_id, wallet_id, label, data, type, emoji,
			image, resolution_status, failure_reason, created_at_block, created_at_tx
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (term_id) DO NOTHING`,
		a.TermID.Big(), a.CreatorID, a.VaultID, a.WalletID, a.Label, a.Data,
		string(a.Type), a.Emoji, a.Image, string(a.ResolutionStatus), a.FailureReason,
		a.CreatedAtBlock, a.CreatedAtTx,
	)
	if err != nil {
		return fmt.Errorf("insert atom %s: %w", a.TermID.String(), err)
	}
	return nil
}

// GetAtom looks up an atom by term id.
func (s *Store) GetAtom(ctx context.Context, id models.TermID) (models.Atom, error) {
	var a models.Atom
	var atomType, status string
	err := s.db.QueryRow(ctx, `
		SELECT creator_id, vault_id, wallet_id, label, data, type, emoji, image,
		       resolution_status, failure_reason, created_at_block, created_at_tx
		FROM atoms WHERE term_id = $1`, id.Big(),
	).Scan(&a.CreatorID, &a.VaultID, &a.WalletID, &a.Label, &a.Data, &atomType,
		&a.Emoji, &a.Image, &status, &a.FailureReason, &a.CreatedAtBlock, &a.CreatedAtTx)
	if noRows(err) {
		return models.Atom{}, ErrNotFound
	}
	if err != nil {
		return models.Atom{}, fmt.Errorf("get atom %s: %w", id.String(), err)
	}
	a.TermID = id
	a.Type = models.AtomType(atomType)
	a.ResolutionStatus = models.ResolutionStatus(status)
	return a, nil
}

// SetAtomResolution transitions an atom's off-chain resolution lifecycle
// (§4.4): resolved atoms carry a label/image, failed atoms carry a reason.
func (s *Store) SetAtomResolution(ctx context.Context, id models.TermID, status models.ResolutionStatus, label, image, failureReason string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE atoms
		SET resolution_status = $2, label = COALESCE(NULLIF($3, ''), label),
		    image = COALESCE(NULLIF($4, ''), image), failure_reason = $5
		WHERE term_id = $1`,
		id.Big(), string(status), label, image, failureReason,
	)
	if err != nil {
		return fmt.Errorf("set atom resolution %s: %w", id.String(), err)
	}
	return nil
}
