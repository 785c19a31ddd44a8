package queue

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// longPollSeconds matches the broker's long-poll window (§5 "a receive
// loop issues long-polled receive calls").
const longPollSeconds = 20

// maxMessagesPerReceive bounds task parallelism to the broker's in-flight
// window (§5 "Task parallelism is bounded by the broker's in-flight window").
const maxMessagesPerReceive = 10

// visibilityTimeoutSeconds is the bounded window after which an unacked
// message is redelivered (§4.6 "Visibility lease").
const visibilityTimeoutSeconds = 60

// SQSBroker implements Broker against AWS SQS (or a LocalStack endpoint in
// development, per §6 "Optional local broker endpoint for development").
type SQSBroker struct {
	client *sqs.Client
}

// NewSQSBroker builds a broker client. If localstackURL is non-empty, the
// client's BaseEndpoint is overridden so development traffic never leaves
// the machine.
func NewSQSBroker(ctx context.Context, localstackURL string) (*SQSBroker, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var opts []func(*sqs.Options)
	if localstackURL != "" {
		opts = append(opts, func(o *sqs.Options) {
			o.BaseEndpoint = aws.String(localstackURL)
		})
	}

	return &SQSBroker{client: sqs.NewFromConfig(cfg, opts...)}, nil
}

func (b *SQSBroker) Receive(ctx context.Context, queueURL string) ([]Message, error) {
	out, err := b.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            &queueURL,
		MaxNumberOfMessages: maxMessagesPerReceive,
		WaitTimeSeconds:     longPollSeconds,
		VisibilityTimeout:   visibilityTimeoutSeconds,
	})
	if err != nil {
		return nil, fmt.Errorf("sqs receive: %w", err)
	}

	msgs := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		msgs = append(msgs, Message{
			ID:            aws.ToString(m.MessageId),
			Body:          aws.ToString(m.Body),
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
		})
	}
	return msgs, nil
}

func (b *SQSBroker) Send(ctx context.Context, queueURL string, body string) error {
	_, err := b.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    &queueURL,
		MessageBody: &body,
	})
	if err != nil {
		return fmt.Errorf("sqs send: %w", err)
	}
	return nil
}

func (b *SQSBroker) Ack(ctx context.Context, queueURL string, receiptHandle string) error {
	_, err := b.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &queueURL,
		ReceiptHandle: &receiptHandle,
	})
	if err != nil {
		return fmt.Errorf("sqs ack: %w", err)
	}
	return nil
}
