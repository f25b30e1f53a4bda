package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"btcinvest/internal/domain/model"
	"btcinvest/internal/domain/port"
)

const DefaultPriceTTL = 1800 * time.Second

// CachePopulator materialises cache-population messages into the cache with an only-if-absent write.
type CachePopulator struct {
	consumer     port.ConsumerPort
	cache        port.CachePort
	metrics      port.MetricsPort
	queue        string
	ttl          time.Duration
	cacheTimeout time.Duration
	logger       *slog.Logger
}

func NewCachePopulator(consumer port.ConsumerPort, cache port.CachePort, metrics port.MetricsPort, queue string, ttl, cacheTimeout time.Duration, logger *slog.Logger) *CachePopulator {
	if ttl <= 0 {
		ttl = DefaultPriceTTL
	}
	if cacheTimeout <= 0 {
		cacheTimeout = 2 * time.Second
	}
	return &CachePopulator{
		consumer:     consumer,
		cache:        cache,
		metrics:      metrics,
		queue:        queue,
		ttl:          ttl,
		cacheTimeout: cacheTimeout,
		logger:       logger,
	}
}

// Run blocks until ctx is cancelled or the consumer fails.
func (p *CachePopulator) Run(ctx context.Context) error {
	p.logger.Info("cache populator started", "queue", p.queue, "ttl", p.ttl)
	return p.consumer.Consume(ctx, p.queue, p.Handle)
}

// Handle stores one message. A returned error leaves the message unacknowledged.
func (p *CachePopulator) Handle(ctx context.Context, payload string) error {
	msg, err := model.ParseCachePopulationMessage(payload)
	if err != nil {
		p.metrics.CachePopulation(port.PopulationInvalid)
		p.logger.Error("invalid cache population message", "queue", p.queue, "error", err)
		return model.NewError(model.KindValidation, "service.CachePopulator", err)
	}
	if msg.Key == "" {
		p.metrics.CachePopulation(port.PopulationInvalid)
		p.logger.Error("cache population message without key", "queue", p.queue)
		return model.Errorf(model.KindValidation, "service.CachePopulator", "message has no key")
	}

	ctx, cancel := context.WithTimeout(ctx, p.cacheTimeout)
	defer cancel()

	stored, err := p.cache.SetIfAbsent(ctx, msg.Key, payload, p.ttl)
	if err != nil {
		p.metrics.CachePopulation(port.PopulationError)
		return model.NewError(model.KindCacheUnavailable, "service.CachePopulator", fmt.Errorf("failed to write %s: %w", msg.Key, err))
	}

	if stored {
		p.metrics.CachePopulation(port.PopulationStored)
		p.logger.Info("price saved on cache", "key", msg.Key)
	} else {
		p.metrics.CachePopulation(port.PopulationExists)
		p.logger.Debug("price already cached, keeping current ttl", "key", msg.Key)
	}
	return nil
}
