package port

import "context"

// MessageHandler processes one payload. Returning an error leaves the message unacknowledged
// so the broker redelivers it.
type MessageHandler func(ctx context.Context, payload string) error

type PublisherPort interface {
	Publish(ctx context.Context, queue, payload string) error
}

type ConsumerPort interface {
	// Consume delivers messages of queue to handler one at a time and blocks until ctx is done.
	Consume(ctx context.Context, queue string, handler MessageHandler) error
}

type QueuePort interface {
	PublisherPort
	ConsumerPort
	Ping(ctx context.Context) error
	Close() error
}
