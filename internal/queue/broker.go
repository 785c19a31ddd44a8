// Package queue provides the uniform broker abstraction every consumer
// depends on (§4.6, §9 "Queue broker abstraction"): receive/send/ack over
// a concrete broker injected at startup, plus a bounded visibility lease
// for at-least-once redelivery.
package queue

import "context"

// Message is one unit handed back from Receive: the broker's opaque
// message id, the UTF-8 body, and a receipt handle used to Ack it (§4.6).
type Message struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// Broker is the single polymorphic interface the core depends on (§4.6,
// §9). A concrete implementation (SQS, or an in-memory broker for local
// development against LocalStack-shaped endpoints) is injected at startup.
type Broker interface {
	// Receive blocks up to the broker's long-poll timeout and returns
	// whatever messages are available, possibly none.
	Receive(ctx context.Context, queueURL string) ([]Message, error)
	// Send enqueues a UTF-8 body onto the named queue.
	Send(ctx context.Context, queueURL string, body string) error
	// Ack deletes a message so it is not redelivered after its visibility
	// lease expires.
	Ack(ctx context.Context, queueURL string, receiptHandle string) error
}
