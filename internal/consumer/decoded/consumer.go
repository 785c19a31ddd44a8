// Package decoded implements the decoded consumer (§4.3): a dispatch over
// EthMultiVaultEvents, each handler a small state-machine transition on the
// relational model, serialized per vault/term by a fixed worker pool (§5).
package decoded

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/0xintuition/ethmultivault-indexer/internal/abievents"
	"github.com/0xintuition/ethmultivault-indexer/internal/models"
	"github.com/0xintuition/ethmultivault-indexer/internal/pipeline"
	"github.com/0xintuition/ethmultivault-indexer/internal/queue"
	"github.com/0xintuition/ethmultivault-indexer/internal/sharding"
)

// storage is the subset of internal/store.Store the decoded consumer
// depends on. Accepting the interface instead of *store.Store lets
// handler tests substitute an in-memory fake without a database (§4.3).
type storage interface {
	EnsureAccount(ctx context.Context, address string) error
	InsertAtom(ctx context.Context, a models.Atom) error
	GetAtom(ctx context.Context, id models.TermID) (models.Atom, error)
	SetAtomResolution(ctx context.Context, id models.TermID, status models.ResolutionStatus, label, image, failureReason string) error
	UpsertCaip10(ctx context.Context, c models.Caip10) error
	InsertTriple(ctx context.Context, t models.Triple) error
	UpsertVault(ctx context.Context, v models.Vault) error
	GetVault(ctx context.Context, id string) (models.Vault, error)
	AdjustVaultShares(ctx context.Context, vaultID string, delta *models.DecimalShares, negative bool, countDelta int64) error
	SetVaultSharePrice(ctx context.Context, vaultID string, price *models.DecimalShares) error
	UpsertPosition(ctx context.Context, p models.Position) error
	GetPosition(ctx context.Context, id string) (models.Position, error)
	AdjustPositionShares(ctx context.Context, id string, delta *models.DecimalShares, negative bool) error
	DepositExists(ctx context.Context, eventID string) (bool, error)
	InsertDeposit(ctx context.Context, d models.Deposit) error
	RedemptionExists(ctx context.Context, eventID string) (bool, error)
	InsertRedemption(ctx context.Context, r models.Redemption) error
	InsertFeeTransfer(ctx context.Context, f models.FeeTransfer) error
	InsertSignal(ctx context.Context, sig models.Signal) error
	IncrementStats(ctx context.Context, atoms, triples, signals, accounts int64) error
	UpsertStatsHour(ctx context.Context, ts time.Time, atoms, triples, signals, accounts int64, depositVolume, redeemVolume *models.DecimalShares) error
}

// Consumer applies decoded events to the relational model (§4.3).
type Consumer struct {
	Broker              queue.Broker
	Store               storage
	DecodedQueueURL     string
	ResolverQueueURL    string
	ImageUploadQueueURL string
	PollPause           time.Duration
	ToleranceBps        int
	Shards              *sharding.Pool
	Log                 *logrus.Entry
}

// Run polls the decoded queue until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		messages, err := c.Broker.Receive(ctx, c.DecodedQueueURL)
		if err != nil {
			return &pipeline.TransientError{Op: "decoded receive", Err: err}
		}
		if len(messages) == 0 {
			time.Sleep(c.PollPause)
			continue
		}
		// Each message is dispatched on its own goroutine so unrelated
		// vaults/terms actually run concurrently through the shard pool
		// (§5); Shards.Run itself still serializes same-key work.
		var wg sync.WaitGroup
		for _, msg := range messages {
			msg := msg
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := c.handle(ctx, msg); err != nil {
					c.Log.WithError(err).WithField("message_id", msg.ID).Error("decoded message handling failed")
				}
			}()
		}
		wg.Wait()
	}
}

// handle unmarshals the envelope, serializes execution on the event's
// shard key (§5 "Positions within one vault MUST be serialized"), and acks
// only once the handler has committed its state transitions. A message
// that does not unmarshal is acked and dropped; it is not forwarded to a
// dead-letter queue.
func (c *Consumer) handle(ctx context.Context, msg queue.Message) error {
	var decoded pipeline.DecodedMessage
	if err := json.Unmarshal([]byte(msg.Body), &decoded); err != nil {
		c.Log.WithError(err).Warn("malformed decoded message, acking and dropping")
		return c.Broker.Ack(ctx, c.DecodedQueueURL, msg.ReceiptHandle)
	}

	key := shardKey(decoded.Body)
	err := c.Shards.Run(key, func() error {
		return c.dispatch(ctx, decoded)
	})
	if err != nil {
		return &pipeline.TransientError{Op: "apply decoded event", Err: err}
	}
	return c.Broker.Ack(ctx, c.DecodedQueueURL, msg.ReceiptHandle)
}

// shardKey picks the stable key §5 shards on: vault_id for balance events,
// term_id for atom/triple events.
func shardKey(body abievents.Event) string {
	switch e := body.(type) {
	case abievents.AtomCreated:
		return e.TermID.String()
	case abievents.TripleCreated:
		return e.TermID.String()
	case abievents.Deposited:
		return vaultKey(e.TermID, e.CurveID)
	case abievents.DepositedCurve:
		return vaultKey(e.TermID, e.CurveID)
	case abievents.Redeemed:
		return vaultKey(e.TermID, e.CurveID)
	case abievents.RedeemedCurve:
		return vaultKey(e.TermID, e.CurveID)
	case abievents.SharePriceChanged:
		return vaultKey(e.TermID, e.CurveID)
	case abievents.SharePriceChangedCurve:
		return vaultKey(e.TermID, e.CurveID)
	case abievents.FeesTransferred:
		return e.Sender.Hex() + e.Receiver.Hex()
	default:
		return "default"
	}
}

func (c *Consumer) dispatch(ctx context.Context, msg pipeline.DecodedMessage) error {
	switch e := msg.Body.(type) {
	case abievents.AtomCreated:
		return c.handleAtomCreated(ctx, msg, e)
	case abievents.TripleCreated:
		return c.handleTripleCreated(ctx, msg, e)
	case abievents.Deposited:
		return c.handleDeposited(ctx, msg, depositedArgs{
			Sender: e.Sender.Hex(), Receiver: e.Receiver.Hex(), TermID: e.TermID, CurveID: e.CurveID,
			AssetsAfterFees: e.AssetsAfterFees, SharesForReceiver: e.SharesForReceiver,
			EntryFee: e.EntryFee, ProtocolFee: e.ProtocolFee, NewSharePrice: e.NewSharePrice,
		})
	case abievents.DepositedCurve:
		return c.handleDeposited(ctx, msg, depositedArgs{
			Sender: e.Sender.Hex(), Receiver: e.Receiver.Hex(), TermID: e.TermID, CurveID: e.CurveID,
			AssetsAfterFees: e.AssetsAfterFees, SharesForReceiver: e.SharesForReceiver,
			EntryFee: e.EntryFee, ProtocolFee: e.ProtocolFee, NewSharePrice: e.NewSharePrice,
		})
	case abievents.Redeemed:
		return c.handleRedeemed(ctx, msg, redeemedArgs{
			Sender: e.Sender.Hex(), Receiver: e.Receiver.Hex(), TermID: e.TermID, CurveID: e.CurveID,
			AssetsForReceiver: e.AssetsForReceiver, SharesRedeemed: e.SharesRedeemed,
			ExitFee: e.ExitFee, ProtocolFee: e.ProtocolFee, NewSharePrice: e.NewSharePrice,
		})
	case abievents.RedeemedCurve:
		return c.handleRedeemed(ctx, msg, redeemedArgs{
			Sender: e.Sender.Hex(), Receiver: e.Receiver.Hex(), TermID: e.TermID, CurveID: e.CurveID,
			AssetsForReceiver: e.AssetsForReceiver, SharesRedeemed: e.SharesRedeemed,
			ExitFee: e.ExitFee, ProtocolFee: e.ProtocolFee, NewSharePrice: e.NewSharePrice,
		})
	case abievents.FeesTransferred:
		return c.handleFeesTransferred(ctx, msg, e)
	case abievents.SharePriceChanged:
		return c.handleSharePriceChanged(ctx, e.TermID, e.CurveID, e.NewSharePrice, e.TotalShares)
	case abievents.SharePriceChangedCurve:
		return c.handleSharePriceChanged(ctx, e.TermID, e.CurveID, e.NewSharePrice, e.TotalShares)
	default:
		c.Log.Warnf("unhandled decoded event kind %s", msg.Body.Kind())
		return nil
	}
}
