package store

import (
	"context"
	"fmt"

	"github.com/0xintuition/ethmultivault-indexer/internal/models"
)

// InsertTriple creates a triple row and its implicit counter-triple
// bookkeeping (§3 "implicitly creates a counter-triple term"). Replays are
// idempotent no-ops.
func (s *Store) InsertTriple(ctx context.Context, t models.Triple) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO triples (term_id, subject_id, predicate_id, object_id, counter_term_id, creator_id)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (term_id) DO NOTHING`,
		t.TermID.Big(), t.SubjectID.Big(), t.PredicateID.Big(), t.ObjectID.Big(),
		t.CounterTermID.Big(), t.CreatorID,
	)
	if err != nil {
		return fmt.Errorf("insert triple %s: %w", t.TermID.String(), err)
	}
	return nil
}

// GetTriple looks up a triple by its term id.
func (s *Store) GetTriple(ctx context.Context, id models.TermID) (models.Triple, error) {
	var t models.Triple
	var subjectBig, predicateBig, objectBig, counterBig string
	err := s.db.QueryRow(ctx, `
		SELECT subject_id::text, predicate_id::text, object_id::text, counter_term_id::text, creator_id
		FROM triples WHERE term_id = $1`, id.Big(),
	).Scan(&subjectBig, &predicateBig, &objectBig, &counterBig, &t.CreatorID)
	if noRows(err) {
		return models.Triple{}, ErrNotFound
	}
	if err != nil {
		return models.Triple{}, fmt.Errorf("get triple %s: %w", id.String(), err)
	}

	t.TermID = id
	if t.SubjectID, err = models.TermIDFromString(subjectBig); err != nil {
		return models.Triple{}, err
	}
	if t.PredicateID, err = models.TermIDFromString(predicateBig); err != nil {
		return models.Triple{}, err
	}
	if t.ObjectID, err = models.TermIDFromString(objectBig); err != nil {
		return models.Triple{}, err
	}
	if t.CounterTermID, err = models.TermIDFromString(counterBig); err != nil {
		return models.Triple{}, err
	}
	return t, nil
}

// IsCounterTriple reports whether id is the counter term of an existing
// triple (§4.3, Open Question 1). The decoded consumer does not call it.
func (s *Store) IsCounterTriple(ctx context.Context, id models.TermID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM triples WHERE counter_term_id = $1)`, id.Big(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check counter triple %s: %w", id.String(), err)
	}
	return exists, nil
}
