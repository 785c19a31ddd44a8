package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// LocalBroker is an in-memory Broker used in tests and for the development
// mode described in §6 ("Optional local broker endpoint"). It mirrors the
// teacher's MessageQueue (core/messages.go) — a mutex-guarded FIFO per
// queue — generalized from one global queue to many named ones, and with
// a visibility lease so redelivery semantics can be exercised in tests.
type LocalBroker struct {
	mu     sync.Mutex
	queues map[string][]localMessage
	leased map[string]localMessage // receiptHandle -> message, not yet acked
}

type localMessage struct {
	id   string
	body string
}

// NewLocalBroker constructs an empty broker.
func NewLocalBroker() *LocalBroker {
	return &LocalBroker{
		queues: make(map[string][]localMessage),
		leased: make(map[string]localMessage),
	}
}

func (b *LocalBroker) Receive(_ context.Context, queueURL string) ([]Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	q := b.queues[queueURL]
	if len(q) == 0 {
		return nil, nil
	}
	msg := q[0]
	b.queues[queueURL] = q[1:]

	receipt := uuid.NewString()
	b.leased[receipt] = msg
	return []Message{{ID: msg.id, Body: msg.body, ReceiptHandle: receipt}}, nil
}

func (b *LocalBroker) Send(_ context.Context, queueURL string, body string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queues[queueURL] = append(b.queues[queueURL], localMessage{id: uuid.NewString(), body: body})
	return nil
}

func (b *LocalBroker) Ack(_ context.Context, _ string, receiptHandle string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.leased[receiptHandle]; !ok {
		return fmt.Errorf("ack: unknown receipt handle %s", receiptHandle)
	}
	delete(b.leased, receiptHandle)
	return nil
}

// Redeliver returns a leased-but-unacked message back to its queue,
// simulating a visibility timeout expiry (§4.6) for tests.
func (b *LocalBroker) Redeliver(queueURL, receiptHandle string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	msg, ok := b.leased[receiptHandle]
	if !ok {
		return fmt.Errorf("redeliver: unknown receipt handle %s", receiptHandle)
	}
	delete(b.leased, receiptHandle)
	b.queues[queueURL] = append([]localMessage{msg}, b.queues[queueURL]...)
	return nil
}

// Len reports the number of messages currently queued (not leased) under
// queueURL, for test assertions.
func (b *LocalBroker) Len(queueURL string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queues[queueURL])
}
