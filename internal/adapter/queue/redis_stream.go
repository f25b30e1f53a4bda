package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"btcinvest/internal/domain/port"
)

const payloadField = "payload"

// DeadLetterName is the queue a message is moved to once it exhausted its deliveries.
func DeadLetterName(queue string) string {
	return queue + ".dead-letter"
}

type StreamOptions struct {
	Group         string
	Consumer      string
	MaxDeliveries int64
	// ClaimIdle is how long a delivered but unacknowledged entry waits before it is redelivered.
	ClaimIdle time.Duration
	Block     time.Duration
	// MaxLen caps both the stream and its dead-letter stream, approximately. Zero means unbounded.
	MaxLen int64
}

// RedisStreamQueue implements the queue ports on Redis Streams with a consumer group.
// Entries stay in the group's pending list until acknowledged, which gives at-least-once delivery.
type RedisStreamQueue struct {
	client *redis.Client
	opts   StreamOptions
	log    *slog.Logger

	mu     sync.Mutex
	groups map[string]bool
}

func NewRedisStreamQueue(client *redis.Client, opts StreamOptions, log *slog.Logger) *RedisStreamQueue {
	if opts.Group == "" {
		opts.Group = "btcinvest"
	}
	if opts.Consumer == "" {
		host, _ := os.Hostname()
		opts.Consumer = fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
	}
	if opts.MaxDeliveries <= 0 {
		opts.MaxDeliveries = 5
	}
	if opts.ClaimIdle <= 0 {
		opts.ClaimIdle = 30 * time.Second
	}
	if opts.Block <= 0 {
		opts.Block = 5 * time.Second
	}
	return &RedisStreamQueue{
		client: client,
		opts:   opts,
		log:    log,
		groups: make(map[string]bool),
	}
}

func (q *RedisStreamQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close is a no-op: the client is shared with the cache adapter.
func (q *RedisStreamQueue) Close() error {
	return nil
}

func (q *RedisStreamQueue) Publish(ctx context.Context, queue, payload string) error {
	args := &redis.XAddArgs{
		Stream: queue,
		Values: map[string]interface{}{payloadField: payload},
	}
	if q.opts.MaxLen > 0 {
		args.MaxLen = q.opts.MaxLen
		args.Approx = true
	}

	if err := q.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to publish to stream %s: %w", queue, err)
	}
	return nil
}

func (q *RedisStreamQueue) ensureGroup(ctx context.Context, queue string) error {
	q.mu.Lock()
	created := q.groups[queue]
	q.mu.Unlock()
	if created {
		return nil
	}

	err := q.client.XGroupCreateMkStream(ctx, queue, q.opts.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group on %s: %w", queue, err)
	}

	q.mu.Lock()
	q.groups[queue] = true
	q.mu.Unlock()
	return nil
}

func (q *RedisStreamQueue) Consume(ctx context.Context, queue string, handler port.MessageHandler) error {
	if err := q.ensureGroup(ctx, queue); err != nil {
		return err
	}

	q.log.Info("stream consumer started", "stream", queue, "group", q.opts.Group, "consumer", q.opts.Consumer)

	backoff := time.Second
	for {
		if ctx.Err() != nil {
			q.log.Info("stream consumer stopped", "stream", queue, "consumer", q.opts.Consumer)
			return nil
		}

		if err := q.reclaim(ctx, queue, handler); err != nil && ctx.Err() == nil {
			q.log.Warn("failed to reclaim pending entries", "stream", queue, "error", err)
		}

		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.opts.Group,
			Consumer: q.opts.Consumer,
			Streams:  []string{queue, ">"},
			Count:    1,
			Block:    q.opts.Block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			q.log.Error("failed to read from stream", "stream", queue, "error", err, "retry_in", backoff)
			select {
			case <-ctx.Done():
			case <-time.After(backoff):
			}
			continue
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				q.handle(ctx, queue, msg, handler)
			}
		}
	}
}

func (q *RedisStreamQueue) handle(ctx context.Context, queue string, msg redis.XMessage, handler port.MessageHandler) {
	payload, ok := msg.Values[payloadField].(string)
	if !ok {
		q.log.Error("stream entry has no payload, dead-lettering", "stream", queue, "id", msg.ID)
		q.deadLetter(ctx, queue, msg.ID, "", 0)
		return
	}

	if err := handler(ctx, payload); err != nil {
		q.log.Warn("message handler failed, leaving entry pending", "stream", queue, "id", msg.ID, "error", err)
		return
	}

	if err := q.client.XAck(ctx, queue, q.opts.Group, msg.ID).Err(); err != nil {
		q.log.Error("failed to ack stream entry", "stream", queue, "id", msg.ID, "error", err)
	}
}

// reclaim takes over entries that stayed unacknowledged longer than ClaimIdle. Entries that were
// already delivered MaxDeliveries times are moved to the dead-letter stream instead.
func (q *RedisStreamQueue) reclaim(ctx context.Context, queue string, handler port.MessageHandler) error {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: queue,
		Group:  q.opts.Group,
		Idle:   q.opts.ClaimIdle,
		Start:  "-",
		End:    "+",
		Count:  10,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}

	for _, p := range pending {
		if p.RetryCount >= q.opts.MaxDeliveries {
			payload := ""
			if entries, err := q.client.XRangeN(ctx, queue, p.ID, p.ID, 1).Result(); err == nil && len(entries) == 1 {
				payload, _ = entries[0].Values[payloadField].(string)
			}
			q.deadLetter(ctx, queue, p.ID, payload, p.RetryCount)
			continue
		}

		claimed, err := q.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   queue,
			Group:    q.opts.Group,
			Consumer: q.opts.Consumer,
			MinIdle:  q.opts.ClaimIdle,
			Messages: []string{p.ID},
		}).Result()
		if err != nil {
			return fmt.Errorf("failed to claim %s: %w", p.ID, err)
		}
		for _, msg := range claimed {
			q.log.Info("redelivering stream entry", "stream", queue, "id", msg.ID, "deliveries", p.RetryCount+1)
			q.handle(ctx, queue, msg, handler)
		}
	}
	return nil
}

func (q *RedisStreamQueue) deadLetter(ctx context.Context, queue, id, payload string, deliveries int64) {
	dlq := DeadLetterName(queue)
	args := &redis.XAddArgs{
		Stream: dlq,
		Values: map[string]interface{}{
			payloadField: payload,
			"source_id":  id,
			"deliveries": deliveries,
		},
	}
	if q.opts.MaxLen > 0 {
		args.MaxLen = q.opts.MaxLen
		args.Approx = true
	}
	err := q.client.XAdd(ctx, args).Err()
	if err != nil {
		q.log.Error("failed to dead-letter stream entry", "stream", queue, "id", id, "error", err)
		return
	}

	if err := q.client.XAck(ctx, queue, q.opts.Group, id).Err(); err != nil {
		q.log.Error("failed to ack dead-lettered entry", "stream", queue, "id", id, "error", err)
		return
	}
	q.log.Warn("message moved to dead-letter queue", "stream", queue, "dead_letter", dlq, "id", id, "deliveries", deliveries)
}
