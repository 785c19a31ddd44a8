package store

import (
	"context"
	"fmt"

	"github.com/0xintuition/ethmultivault-indexer/internal/models"
)

// UpsertTextObject stores the side-table row for an AtomTypeTextObject atom
// (§3, §4.4). A replayed resolution overwrites the text, which is
// harmless since off-chain resolution is deterministic per atom.
func (s *Store) UpsertTextObject(ctx context.Context, o models.TextObject) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO text_objects (id, data) VALUES ($1,$2)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`,
		o.ID.Big(), o.Data,
	)
	if err != nil {
		return fmt.Errorf("upsert text object %s: %w", o.ID.String(), err)
	}
	return nil
}

// UpsertByteObject stores the side-table row for an AtomTypeByteObject atom.
func (s *Store) UpsertByteObject(ctx context.Context, o models.ByteObject) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO byte_objects (id, data) VALUES ($1,$2)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`,
		o.ID.Big(), o.Data,
	)
	if err != nil {
		return fmt.Errorf("upsert byte object %s: %w", o.ID.String(), err)
	}
	return nil
}

// UpsertJSONObject stores the side-table row for an AtomTypeJSONObject atom.
func (s *Store) UpsertJSONObject(ctx context.Context, o models.JSONObject) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO json_objects (id, data) VALUES ($1,$2::jsonb)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`,
		o.ID.Big(), o.Data,
	)
	if err != nil {
		return fmt.Errorf("upsert json object %s: %w", o.ID.String(), err)
	}
	return nil
}

// UpsertPerson stores the side-table row for an AtomTypePerson atom,
// typically populated once an IPFS/ENS profile document resolves (§4.4).
func (s *Store) UpsertPerson(ctx context.Context, p models.Person) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO persons (id, name, email, image) VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email, image = EXCLUDED.image`,
		p.ID.Big(), p.Name, p.Email, p.Image,
	)
	if err != nil {
		return fmt.Errorf("upsert person %s: %w", p.ID.String(), err)
	}
	return nil
}

// UpsertOrganization stores the side-table row for an AtomTypeOrganization atom.
func (s *Store) UpsertOrganization(ctx context.Context, o models.Organization) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO organizations (id, name, email, image) VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email, image = EXCLUDED.image`,
		o.ID.Big(), o.Name, o.Email, o.Image,
	)
	if err != nil {
		return fmt.Errorf("upsert organization %s: %w", o.ID.String(), err)
	}
	return nil
}

// UpsertBook stores the side-table row for an AtomTypeBook atom.
func (s *Store) UpsertBook(ctx context.Context, b models.Book) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO books (id, name, author, genre, image) VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, author = EXCLUDED.author,
			genre = EXCLUDED.genre, image = EXCLUDED.image`,
		b.ID.Big(), b.Name, b.Author, b.Genre, b.Image,
	)
	if err != nil {
		return fmt.Errorf("upsert book %s: %w", b.ID.String(), err)
	}
	return nil
}

// UpsertThing stores the side-table row for an AtomTypeThing atom.
func (s *Store) UpsertThing(ctx context.Context, t models.Thing) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO things (id, name, image, url) VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, image = EXCLUDED.image, url = EXCLUDED.url`,
		t.ID.Big(), t.Name, t.Image, t.URL,
	)
	if err != nil {
		return fmt.Errorf("upsert thing %s: %w", t.ID.String(), err)
	}
	return nil
}

// UpsertCaip10 stores the side-table row for an AtomTypeCaip10 atom,
// populated inline at decode time rather than via off-chain resolution
// (§4.1 "decoded in place").
func (s *Store) UpsertCaip10(ctx context.Context, c models.Caip10) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO caip10s (id, chain_id, address) VALUES ($1,$2,$3)
		ON CONFLICT (id) DO UPDATE SET chain_id = EXCLUDED.chain_id, address = EXCLUDED.address`,
		c.ID.Big(), c.ChainID, c.Address,
	)
	if err != nil {
		return fmt.Errorf("upsert caip10 %s: %w", c.ID.String(), err)
	}
	return nil
}

// UpsertImageGuard stores one classification result (§4.5). Overwritable
// since a re-classification of the same ipfs_hash should replace it.
func (s *Store) UpsertImageGuard(ctx context.Context, g models.ImageGuard) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO image_guards (id, ipfs_hash, score, model, classification, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET
			score = EXCLUDED.score, model = EXCLUDED.model, classification = EXCLUDED.classification`,
		g.ID, g.IPFSHash, g.Score, g.Model, string(g.Classification), g.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert image guard %s: %w", g.ID, err)
	}
	return nil
}
