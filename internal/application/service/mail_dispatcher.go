package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"btcinvest/internal/domain/model"
	"btcinvest/internal/domain/port"
)

// MailDispatcher delivers deposit confirmations queued by the account use case.
type MailDispatcher struct {
	consumer    port.ConsumerPort
	mailer      port.MailerPort
	metrics     port.MetricsPort
	queue       string
	sendTimeout time.Duration
	logger      *slog.Logger
}

func NewMailDispatcher(consumer port.ConsumerPort, mailer port.MailerPort, metrics port.MetricsPort, queue string, sendTimeout time.Duration, logger *slog.Logger) *MailDispatcher {
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	return &MailDispatcher{
		consumer:    consumer,
		mailer:      mailer,
		metrics:     metrics,
		queue:       queue,
		sendTimeout: sendTimeout,
		logger:      logger,
	}
}

func (d *MailDispatcher) Run(ctx context.Context) error {
	d.logger.Info("mail dispatcher started", "queue", d.queue)
	return d.consumer.Consume(ctx, d.queue, d.Handle)
}

func (d *MailDispatcher) Handle(ctx context.Context, payload string) error {
	var c model.DepositConfirmation
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return model.NewError(model.KindValidation, "service.MailDispatcher", fmt.Errorf("failed to unmarshal confirmation: %w", err))
	}
	if !model.ValidEmail(c.UserEmail) {
		return model.Errorf(model.KindValidation, "service.MailDispatcher", "invalid recipient %q", c.UserEmail)
	}

	ctx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	err := d.mailer.SendDepositConfirmation(ctx, c)
	d.metrics.MailDelivery(err)
	if err != nil {
		d.logger.Warn("confirmation mail was not sent", "to", c.UserEmail, "error", err)
		return err
	}

	d.logger.Info("confirmation mail sent", "to", c.UserEmail)
	return nil
}
