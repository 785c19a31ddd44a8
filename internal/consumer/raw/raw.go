// Package raw implements the raw consumer (§4.2): decode raw EVM logs into
// typed domain events and publish them to the decoded queue.
package raw

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/0xintuition/ethmultivault-indexer/internal/abievents"
	"github.com/0xintuition/ethmultivault-indexer/internal/pipeline"
	"github.com/0xintuition/ethmultivault-indexer/internal/queue"
	"github.com/0xintuition/ethmultivault-indexer/internal/rawsource"
)

// Consumer decodes messages from the raw queue and publishes DecodedMessage
// envelopes to the decoded queue (§4.2, §9 "AppContext").
type Consumer struct {
	Broker          queue.Broker
	Adapter         rawsource.Adapter
	ContractAddress string // lowercase, 0x-prefixed
	RawQueueURL     string
	DecodedQueueURL string
	PollPause       time.Duration
	Log             *logrus.Entry
}

// Run polls the raw queue until ctx is cancelled (§5 "a receive loop issues
// long-polled receive calls").
func (c *Consumer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		messages, err := c.Broker.Receive(ctx, c.RawQueueURL)
		if err != nil {
			return &pipeline.TransientError{Op: "raw receive", Err: err}
		}
		if len(messages) == 0 {
			time.Sleep(c.PollPause)
			continue
		}
		// Each message is dispatched on its own goroutine so a batch's
		// logs are decoded and published concurrently instead of one at
		// a time (§5).
		var wg sync.WaitGroup
		for _, msg := range messages {
			msg := msg
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := c.handle(ctx, msg); err != nil {
					c.Log.WithError(err).WithField("message_id", msg.ID).Error("raw message handling failed")
				}
			}()
		}
		wg.Wait()
	}
}

// handle implements §4.2's seven steps, ending with send-then-ack so a
// crash between the two results in redelivery, never loss. Malformed or
// undecodable payloads are acked and dropped; they are not forwarded to a
// dead-letter queue.
func (c *Consumer) handle(ctx context.Context, msg queue.Message) error {
	raw, err := c.Adapter.IntoRawMessage([]byte(msg.Body))
	if err != nil {
		c.Log.WithError(err).Warn("malformed raw payload, acking and dropping")
		return c.Broker.Ack(ctx, c.RawQueueURL, msg.ReceiptHandle)
	}

	if raw.Op != rawsource.OpCreate {
		// D/U are accepted but idempotent no-ops for this append-only log (§4.1).
		return c.Broker.Ack(ctx, c.RawQueueURL, msg.ReceiptHandle)
	}

	if !strings.EqualFold(raw.Body.Address, c.ContractAddress) {
		return c.Broker.Ack(ctx, c.RawQueueURL, msg.ReceiptHandle)
	}

	topicHashes, err := parseTopics(raw.Body.Topics)
	if err != nil {
		c.Log.WithError(err).Warn("malformed topics, acking and dropping")
		return c.Broker.Ack(ctx, c.RawQueueURL, msg.ReceiptHandle)
	}

	data, err := parseData(raw.Body.Data)
	if err != nil {
		c.Log.WithError(err).Warn("malformed log data, acking and dropping")
		return c.Broker.Ack(ctx, c.RawQueueURL, msg.ReceiptHandle)
	}

	event, err := abievents.Decode(topicHashes, data)
	if err != nil {
		c.Log.WithError(err).Warn("log decoding error, acking and dropping")
		return c.Broker.Ack(ctx, c.RawQueueURL, msg.ReceiptHandle)
	}

	decoded := pipeline.FromRawLog(raw.Body, event)
	body, err := json.Marshal(decoded)
	if err != nil {
		return &pipeline.TransientError{Op: "marshal decoded message", Err: err}
	}

	if err := c.Broker.Send(ctx, c.DecodedQueueURL, string(body)); err != nil {
		return &pipeline.TransientError{Op: "send decoded message", Err: err}
	}
	return c.Broker.Ack(ctx, c.RawQueueURL, msg.ReceiptHandle)
}

// parseTopics decodes each topic string as a 32-byte value, failing on
// length mismatch (§4.2 step 3).
func parseTopics(topics []string) ([]common.Hash, error) {
	hashes := make([]common.Hash, 0, len(topics))
	for _, t := range topics {
		b, err := hex.DecodeString(strings.TrimPrefix(t, "0x"))
		if err != nil {
			return nil, fmt.Errorf("decode topic %q: %w", t, err)
		}
		if len(b) != common.HashLength {
			return nil, fmt.Errorf("topic %q: expected %d bytes, got %d", t, common.HashLength, len(b))
		}
		hashes = append(hashes, common.BytesToHash(b))
	}
	return hashes, nil
}

// parseData hex-decodes the log data payload, stripping an optional "0x"
// prefix (§4.2 step 4).
func parseData(data string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(data, "0x"))
	if err != nil {
		return nil, fmt.Errorf("decode log data: %w", err)
	}
	return b, nil
}
