package origin

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"btcinvest/internal/domain/model"
)

// TestOrigin produces a random-walk quote without any network access.
type TestOrigin struct {
	log    *slog.Logger
	spread float64

	mu   sync.Mutex
	rand *rand.Rand
	last float64
}

func NewTestOrigin(start float64, log *slog.Logger) *TestOrigin {
	if start <= 0 {
		start = 350000
	}
	return &TestOrigin{
		log:    log,
		spread: 0.003,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
		last:   start,
	}
}

func (t *TestOrigin) Name() string { return "test-generator" }

func (t *TestOrigin) FetchCurrentPrice(ctx context.Context) (model.PriceQuote, error) {
	if err := ctx.Err(); err != nil {
		return model.PriceQuote{}, model.NewError(model.KindOriginUnavailable, "origin.TestOrigin", err)
	}

	t.mu.Lock()
	// drift at most 0.5% per call, never below 1
	t.last *= 1 + (t.rand.Float64()-0.5)*0.01
	if t.last < 1 {
		t.last = 1
	}
	mid := t.last
	t.mu.Unlock()

	q := model.PriceQuote{
		PurchasePrice: mid * (1 + t.spread/2),
		SalePrice:     mid * (1 - t.spread/2),
	}
	t.log.Debug("generated test price", "buy", q.PurchasePrice, "sell", q.SalePrice)
	return q, nil
}
