package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"btcinvest/internal/domain/port"
)

const publishChannels = 4

// amqpChannel is the part of *amqp.Channel the publisher uses.
type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// RabbitMQQueue publishes to durable quorum queues. Redelivery is bounded by the broker through
// x-delivery-limit; exhausted messages are routed to DeadLetterName(queue).
//
// Publishing borrows a channel from a small pool. A channel closed by a broker exception is dropped
// and the next publish opens a fresh one.
type RabbitMQQueue struct {
	conn          *amqp.Connection
	maxDeliveries int
	log           *slog.Logger

	openChannel func() (amqpChannel, error)
	channels    chan amqpChannel
	declared    sync.Map
}

func NewRabbitMQQueue(url string, maxDeliveries int, log *slog.Logger) (*RabbitMQQueue, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Dial:      amqp.DefaultDial(10 * time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	q := newRabbitMQQueue(func() (amqpChannel, error) {
		ch, err := conn.Channel()
		if err != nil {
			return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
		}
		return ch, nil
	}, maxDeliveries, log)
	q.conn = conn

	ch, err := q.acquire()
	if err != nil {
		conn.Close()
		return nil, err
	}
	q.release(ch, nil)

	log.Info("connected to rabbitmq")
	return q, nil
}

func newRabbitMQQueue(open func() (amqpChannel, error), maxDeliveries int, log *slog.Logger) *RabbitMQQueue {
	if maxDeliveries <= 0 {
		maxDeliveries = 5
	}
	return &RabbitMQQueue{
		maxDeliveries: maxDeliveries,
		log:           log,
		openChannel:   open,
		channels:      make(chan amqpChannel, publishChannels),
	}
}

// queueArgs declares a quorum queue that dead-letters a message after maxDeliveries attempts.
func queueArgs(queue string, maxDeliveries int) amqp.Table {
	return amqp.Table{
		"x-queue-type":              "quorum",
		"x-delivery-limit":          maxDeliveries,
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": DeadLetterName(queue),
	}
}

func (q *RabbitMQQueue) declare(ch amqpChannel, queue string) error {
	dlq := DeadLetterName(queue)
	if _, err := ch.QueueDeclare(dlq, true, false, false, false, amqp.Table{
		"x-queue-type": "quorum",
	}); err != nil {
		return fmt.Errorf("failed to declare %s: %w", dlq, err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, queueArgs(queue, q.maxDeliveries)); err != nil {
		return fmt.Errorf("failed to declare %s: %w", queue, err)
	}
	return nil
}

func (q *RabbitMQQueue) acquire() (amqpChannel, error) {
	for {
		select {
		case ch := <-q.channels:
			if ch.IsClosed() {
				continue
			}
			return ch, nil
		default:
			return q.openChannel()
		}
	}
}

// release returns ch to the pool unless the publish failed or the pool is full.
func (q *RabbitMQQueue) release(ch amqpChannel, err error) {
	if err != nil || ch.IsClosed() {
		_ = ch.Close()
		return
	}
	select {
	case q.channels <- ch:
	default:
		_ = ch.Close()
	}
}

func (q *RabbitMQQueue) Publish(ctx context.Context, queue, payload string) (err error) {
	ch, err := q.acquire()
	if err != nil {
		return err
	}
	defer func() { q.release(ch, err) }()

	if _, ok := q.declared.Load(queue); !ok {
		if err := q.declare(ch, queue); err != nil {
			return err
		}
		q.declared.Store(queue, true)
	}

	err = ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         []byte(payload),
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", queue, err)
	}
	return nil
}

// Consume opens a dedicated channel with prefetch 1, so each consumer holds a single unacked message.
func (q *RabbitMQQueue) Consume(ctx context.Context, queue string, handler port.MessageHandler) error {
	ch, err := q.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open consumer channel: %w", err)
	}
	defer ch.Close()

	if err := q.declare(ch, queue); err != nil {
		return err
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch: %w", err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume %s: %w", queue, err)
	}

	q.log.Info("rabbitmq consumer started", "queue", queue)

	for {
		select {
		case <-ctx.Done():
			q.log.Info("rabbitmq consumer stopped", "queue", queue)
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("rabbitmq delivery channel closed")
			}

			if err := handler(ctx, string(d.Body)); err != nil {
				q.log.Warn("message handler failed, requeueing", "queue", queue, "redelivered", d.Redelivered, "error", err)
				if err := d.Nack(false, true); err != nil {
					q.log.Error("failed to nack message", "queue", queue, "error", err)
				}
				continue
			}

			if err := d.Ack(false); err != nil {
				q.log.Error("failed to ack message", "queue", queue, "error", err)
			}
		}
	}
}

func (q *RabbitMQQueue) Ping(ctx context.Context) error {
	if q.conn == nil || q.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

func (q *RabbitMQQueue) Close() error {
	for drained := false; !drained; {
		select {
		case ch := <-q.channels:
			_ = ch.Close()
		default:
			drained = true
		}
	}
	if q.conn == nil || q.conn.IsClosed() {
		return nil
	}
	return q.conn.Close()
}
