package notify

import "context"

// queueClient abstracts the email job queue so the dispatcher can run
// against SQS in production and an in-memory channel in tests and
// development.
type queueClient interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}
