package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"btcinvest/internal/domain/port"
)

type memoryMessage struct {
	payload  string
	attempts int
}

// MemoryQueue is a single-process broker for local runs and tests. It keeps the same contract as the
// network brokers: one message per handler call, redelivery on handler error, dead-lettering after
// maxDeliveries attempts.
type MemoryQueue struct {
	maxDeliveries int
	retryDelay    time.Duration
	log           *slog.Logger

	mu          sync.Mutex
	queues      map[string]chan memoryMessage
	deadLetters map[string][]string
	buffer      int
}

func NewMemoryQueue(buffer, maxDeliveries int, log *slog.Logger) *MemoryQueue {
	if buffer <= 0 {
		buffer = 256
	}
	if maxDeliveries <= 0 {
		maxDeliveries = 5
	}
	return &MemoryQueue{
		maxDeliveries: maxDeliveries,
		retryDelay:    100 * time.Millisecond,
		log:           log,
		queues:        make(map[string]chan memoryMessage),
		deadLetters:   make(map[string][]string),
		buffer:        buffer,
	}
}

func (q *MemoryQueue) channel(queue string) chan memoryMessage {
	q.mu.Lock()
	defer q.mu.Unlock()

	ch, ok := q.queues[queue]
	if !ok {
		ch = make(chan memoryMessage, q.buffer)
		q.queues[queue] = ch
	}
	return ch
}

func (q *MemoryQueue) Publish(ctx context.Context, queue, payload string) error {
	select {
	case q.channel(queue) <- memoryMessage{payload: payload}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to publish to %s: %w", queue, ctx.Err())
	}
}

func (q *MemoryQueue) Consume(ctx context.Context, queue string, handler port.MessageHandler) error {
	ch := q.channel(queue)
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-ch:
			msg.attempts++
			if err := handler(ctx, msg.payload); err != nil {
				q.retry(ctx, queue, ch, msg, err)
			}
		}
	}
}

func (q *MemoryQueue) retry(ctx context.Context, queue string, ch chan memoryMessage, msg memoryMessage, cause error) {
	if msg.attempts >= q.maxDeliveries {
		q.mu.Lock()
		dlq := DeadLetterName(queue)
		q.deadLetters[dlq] = append(q.deadLetters[dlq], msg.payload)
		q.mu.Unlock()
		q.log.Warn("message moved to dead-letter queue", "queue", queue, "attempts", msg.attempts, "error", cause)
		return
	}

	q.log.Warn("message handler failed, redelivering", "queue", queue, "attempts", msg.attempts, "error", cause)
	go func() {
		select {
		case <-ctx.Done():
		case <-time.After(q.retryDelay):
			select {
			case ch <- msg:
			case <-ctx.Done():
			}
		}
	}()
}

// DeadLetters returns the payloads parked on the dead-letter queue of queue.
func (q *MemoryQueue) DeadLetters(queue string) []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.deadLetters[DeadLetterName(queue)]...)
}

// Len reports how many messages wait on queue.
func (q *MemoryQueue) Len(queue string) int {
	return len(q.channel(queue))
}

func (q *MemoryQueue) Ping(ctx context.Context) error { return nil }

func (q *MemoryQueue) Close() error { return nil }
