package decoded

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/0xintuition/ethmultivault-indexer/internal/abievents"
	"github.com/0xintuition/ethmultivault-indexer/internal/models"
	"github.com/0xintuition/ethmultivault-indexer/internal/pipeline"
)

func vaultKey(term models.TermID, curveID int64) string {
	return models.VaultID(term, curveID)
}

// handleAtomCreated implements §4.3 "AtomCreated": classify, persist the
// atom and its default vault, resolve structured types inline, and enqueue
// off-chain resolution for the rest.
func (c *Consumer) handleAtomCreated(ctx context.Context, msg pipeline.DecodedMessage, e abievents.AtomCreated) error {
	if err := c.Store.EnsureAccount(ctx, e.Creator.Hex()); err != nil {
		return fmt.Errorf("ensure creator account: %w", err)
	}
	if err := c.Store.EnsureAccount(ctx, e.AtomWallet.Hex()); err != nil {
		return fmt.Errorf("ensure atom wallet account: %w", err)
	}

	atomType := models.ClassifyAtomData(e.AtomData)
	vaultID := vaultKey(e.TermID, models.DefaultCurveID)

	atom := models.Atom{
		TermID:           e.TermID,
		CreatorID:        e.Creator.Hex(),
		VaultID:          vaultID,
		WalletID:         e.AtomWallet.Hex(),
		Data:             e.AtomData,
		Type:             atomType,
		ResolutionStatus: models.ResolutionPending,
		CreatedAtTx:      msg.TransactionHash,
		CreatedAtBlock:   msg.BlockNumber,
	}

	if err := c.Store.InsertAtom(ctx, atom); err != nil {
		return fmt.Errorf("insert atom: %w", err)
	}

	if err := c.Store.UpsertVault(ctx, models.Vault{
		ID:                vaultID,
		TermID:            e.TermID,
		CurveID:           models.DefaultCurveID,
		TotalShares:       models.Zero(),
		CurrentSharePrice: models.Zero(),
	}); err != nil {
		return fmt.Errorf("upsert default vault: %w", err)
	}

	if err := c.resolveInlineOrEnqueue(ctx, e.TermID, atomType, e.AtomData); err != nil {
		return err
	}

	if err := c.Store.IncrementStats(ctx, 1, 0, 0, 0); err != nil {
		return fmt.Errorf("increment atom stats: %w", err)
	}
	return nil
}

// resolveInlineOrEnqueue resolves structured on-chain-decodable types
// (Account, Caip10) immediately and enqueues a resolver job for off-chain
// types (ipfs, ens); all other types are left Pending with no job, per
// §4.3 step 4 which only names ipfs/ens as requiring a job.
func (c *Consumer) resolveInlineOrEnqueue(ctx context.Context, term models.TermID, atomType models.AtomType, data []byte) error {
	switch atomType {
	case models.AtomTypeCaip10:
		chainID, address, err := decodeCaip10(data)
		if err != nil {
			return c.Store.SetAtomResolution(ctx, term, models.ResolutionFailed, "", "", err.Error())
		}
		if err := c.Store.UpsertCaip10(ctx, models.Caip10{ID: term, ChainID: chainID, Address: address}); err != nil {
			return fmt.Errorf("upsert caip10 side table: %w", err)
		}
		return c.Store.SetAtomResolution(ctx, term, models.ResolutionResolved, address, "", "")

	case models.AtomTypeAccount:
		address, err := decodeInlineAccount(data)
		if err != nil {
			return c.Store.SetAtomResolution(ctx, term, models.ResolutionFailed, "", "", err.Error())
		}
		if err := c.Store.EnsureAccount(ctx, address); err != nil {
			return fmt.Errorf("ensure inline account: %w", err)
		}
		return c.Store.SetAtomResolution(ctx, term, models.ResolutionResolved, address, "", "")

	case models.AtomTypeIPFS, models.AtomTypeENS:
		job := pipeline.NewResolverJob(term, string(data))
		body, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("marshal resolver job: %w", err)
		}
		if err := c.Broker.Send(ctx, c.ResolverQueueURL, string(body)); err != nil {
			return fmt.Errorf("enqueue resolver job: %w", err)
		}
		return nil

	default:
		return nil
	}
}

// decodeInlineAccount parses the JSON manifest ClassifyAtomData recognized
// as an account reference (§4.3 step 1, step 4).
func decodeInlineAccount(data []byte) (string, error) {
	var v struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return "", fmt.Errorf("decode account atom: %w", err)
	}
	if v.Address == "" {
		return "", fmt.Errorf("account atom missing address")
	}
	return v.Address, nil
}

// decodeCaip10 parses "caip10:<chain_id>:<address>" in place, no network
// required (§4.1 "decoded in place", §4.4 "caip10:<chain>:<address>").
func decodeCaip10(data []byte) (chainID, address string, err error) {
	s := string(data)
	const prefix = "caip10:"
	if len(s) <= len(prefix) {
		return "", "", fmt.Errorf("malformed caip10 atom %q", s)
	}
	rest := s[len(prefix):]
	for i := len(rest) - 1; i >= 0; i-- {
		if rest[i] == ':' {
			return rest[:i], rest[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("malformed caip10 atom %q", s)
}

// handleTripleCreated implements §4.3 "TripleCreated": validate the
// referenced atoms exist, then create the triple row, its counter-triple
// term id, and two default vaults (one per side).
func (c *Consumer) handleTripleCreated(ctx context.Context, msg pipeline.DecodedMessage, e abievents.TripleCreated) error {
	if err := c.Store.EnsureAccount(ctx, e.Creator.Hex()); err != nil {
		return fmt.Errorf("ensure creator account: %w", err)
	}

	for _, atomID := range []models.TermID{e.Subject, e.Predicate, e.Object} {
		if _, err := c.Store.GetAtom(ctx, atomID); err != nil {
			return fmt.Errorf("triple %s references unknown atom %s: %w", e.TermID.String(), atomID.String(), err)
		}
	}

	counter := e.TermID.Counter()
	triple := models.Triple{
		TermID:        e.TermID,
		SubjectID:     e.Subject,
		PredicateID:   e.Predicate,
		ObjectID:      e.Object,
		CounterTermID: counter,
		CreatorID:     e.Creator.Hex(),
	}
	if err := c.Store.InsertTriple(ctx, triple); err != nil {
		return fmt.Errorf("insert triple: %w", err)
	}

	primaryVaultID := vaultKey(e.TermID, models.DefaultCurveID)
	counterVaultID := vaultKey(counter, models.DefaultCurveID)

	if err := c.Store.UpsertVault(ctx, models.Vault{
		ID: primaryVaultID, TermID: e.TermID, CurveID: models.DefaultCurveID,
		TotalShares: models.Zero(), CurrentSharePrice: models.Zero(),
	}); err != nil {
		return fmt.Errorf("upsert primary triple vault: %w", err)
	}
	if err := c.Store.UpsertVault(ctx, models.Vault{
		ID: counterVaultID, TermID: counter, CurveID: models.DefaultCurveID,
		TotalShares: models.Zero(), CurrentSharePrice: models.Zero(),
	}); err != nil {
		return fmt.Errorf("upsert counter triple vault: %w", err)
	}

	if err := c.Store.IncrementStats(ctx, 0, 1, 0, 0); err != nil {
		return fmt.Errorf("increment triple stats: %w", err)
	}
	return nil
}
