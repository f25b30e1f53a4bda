package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"btcinvest/internal/domain/model"
	"btcinvest/internal/domain/port"
)

const DefaultCacheSaverQueue = "cache-saver-queue"

type PriceOptions struct {
	CacheKey  string
	QueueName string

	CacheTimeout  time.Duration
	OriginTimeout time.Duration
	QueueTimeout  time.Duration

	// HealCorruptCache falls through to the origin instead of failing on an unparseable cache entry.
	HealCorruptCache bool
	// BestEffortPublish logs a failed cache-population publish and still returns the fetched price.
	BestEffortPublish bool
}

func (o *PriceOptions) setDefaults() {
	if o.CacheKey == "" {
		o.CacheKey = model.PriceCacheKey
	}
	if o.QueueName == "" {
		o.QueueName = DefaultCacheSaverQueue
	}
	if o.CacheTimeout <= 0 {
		o.CacheTimeout = 2 * time.Second
	}
	if o.OriginTimeout <= 0 {
		o.OriginTimeout = 5 * time.Second
	}
	if o.QueueTimeout <= 0 {
		o.QueueTimeout = 2 * time.Second
	}
}

// PriceUseCase answers the current BTC quote cache-aside. It reads the cache but never writes it;
// the cache is filled by the populator worker from the message published on a miss.
type PriceUseCase struct {
	cache     port.CachePort
	origin    port.PriceOriginPort
	publisher port.PublisherPort
	metrics   port.MetricsPort
	opts      PriceOptions
	logger    *slog.Logger
}

func NewPriceUseCase(cache port.CachePort, origin port.PriceOriginPort, publisher port.PublisherPort, metrics port.MetricsPort, opts PriceOptions, logger *slog.Logger) *PriceUseCase {
	opts.setDefaults()
	return &PriceUseCase{
		cache:     cache,
		origin:    origin,
		publisher: publisher,
		metrics:   metrics,
		opts:      opts,
		logger:    logger,
	}
}

// GetCurrentPrice returns the quote rounded to two decimals.
func (uc *PriceUseCase) GetCurrentPrice(ctx context.Context) (model.PriceQuote, error) {
	const op = "usecase.GetCurrentPrice"

	cached, found, err := uc.readCache(ctx)
	if err != nil {
		uc.metrics.CacheLookup(port.LookupError)
		return model.PriceQuote{}, model.NewError(model.KindCacheUnavailable, op, err)
	}

	if found {
		msg, err := model.ParseCachePopulationMessage(cached)
		if err == nil {
			uc.metrics.CacheLookup(port.LookupHit)
			uc.logger.Debug("price served from cache", "key", uc.opts.CacheKey)
			return msg.Quote().Rounded(), nil
		}

		uc.metrics.CacheLookup(port.LookupCorrupt)
		if !uc.opts.HealCorruptCache {
			return model.PriceQuote{}, model.NewError(model.KindCacheCorrupted, op, err)
		}
		uc.logger.Warn("corrupted cache entry, falling back to origin", "key", uc.opts.CacheKey, "error", err)
	} else {
		uc.metrics.CacheLookup(port.LookupMiss)
	}

	quote, err := uc.fetchOrigin(ctx)
	if err != nil {
		if errors.Is(err, model.ErrOriginUnavailable) {
			return model.PriceQuote{}, err
		}
		return model.PriceQuote{}, model.NewError(model.KindOriginUnavailable, op, err)
	}

	if err := uc.publish(ctx, quote); err != nil {
		if !uc.opts.BestEffortPublish {
			return model.PriceQuote{}, model.NewError(model.KindQueueUnavailable, op, err)
		}
		uc.logger.Warn("failed to publish cache population message, returning price anyway", "queue", uc.opts.QueueName, "error", err)
	}

	return quote.Rounded(), nil
}

func (uc *PriceUseCase) readCache(ctx context.Context) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.opts.CacheTimeout)
	defer cancel()
	return uc.cache.Get(ctx, uc.opts.CacheKey)
}

func (uc *PriceUseCase) fetchOrigin(ctx context.Context) (model.PriceQuote, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.opts.OriginTimeout)
	defer cancel()

	start := time.Now()
	quote, err := uc.origin.FetchCurrentPrice(ctx)
	uc.metrics.OriginFetch(uc.origin.Name(), time.Since(start), err)
	if err != nil {
		return model.PriceQuote{}, err
	}
	if err := quote.Validate(); err != nil {
		return model.PriceQuote{}, err
	}
	return quote, nil
}

// publish sends the unrounded quote so a later cache hit rounds from full precision.
func (uc *PriceUseCase) publish(ctx context.Context, quote model.PriceQuote) error {
	payload, err := json.Marshal(model.NewCachePopulationMessage(uc.opts.CacheKey, quote))
	if err != nil {
		return fmt.Errorf("failed to marshal cache population message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, uc.opts.QueueTimeout)
	defer cancel()

	err = uc.publisher.Publish(ctx, uc.opts.QueueName, string(payload))
	uc.metrics.QueuePublish(uc.opts.QueueName, err)
	return err
}
