package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btcinvest/internal/adapter/cache"
	"btcinvest/internal/adapter/queue"
	"btcinvest/internal/application/usecase"
	"btcinvest/internal/domain/model"
	"btcinvest/internal/infrastructure/metrics"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRedisCache(t *testing.T) (*miniredis.Miniredis, *cache.RedisAdapter) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, cache.NewRedisAdapter(client, cache.DefaultKeyPrefix)
}

const cachedKey = "bitcoin-investment-api:btc-price"

func TestCachePopulator_StoresRawPayload(t *testing.T) {
	mr, c := newRedisCache(t)
	p := NewCachePopulator(nil, c, metrics.New(), "cache-saver-queue", 0, 0, discardLogger())

	payload := `{"key":"btc-price","purchasePrice":66751.3254,"salePrice":65250.1542}`
	require.NoError(t, p.Handle(context.Background(), payload))

	got, err := mr.Get(cachedKey)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.Equal(t, 1800*time.Second, mr.TTL(cachedKey))
}

func TestCachePopulator_DuplicateKeepsTTLWindow(t *testing.T) {
	mr, c := newRedisCache(t)
	p := NewCachePopulator(nil, c, metrics.New(), "cache-saver-queue", 0, 0, discardLogger())

	first := `{"key":"btc-price","purchasePrice":1,"salePrice":2}`
	require.NoError(t, p.Handle(context.Background(), first))
	mr.FastForward(10 * time.Minute)

	require.NoError(t, p.Handle(context.Background(), first))
	require.NoError(t, p.Handle(context.Background(), `{"key":"btc-price","purchasePrice":3,"salePrice":4}`))

	got, err := mr.Get(cachedKey)
	require.NoError(t, err)
	assert.Equal(t, first, got)
	assert.Equal(t, 20*time.Minute, mr.TTL(cachedKey))
}

func TestCachePopulator_RejectsMalformed(t *testing.T) {
	mr, c := newRedisCache(t)
	p := NewCachePopulator(nil, c, metrics.New(), "cache-saver-queue", 0, 0, discardLogger())

	for _, payload := range []string{
		`not-json`,
		`{"purchasePrice":1,"salePrice":2}`,
		`{"key":"btc-price","purchasePrice":1}`,
		`{"key":"","purchasePrice":1,"salePrice":2}`,
	} {
		err := p.Handle(context.Background(), payload)
		assert.ErrorIs(t, err, model.ErrValidation, payload)
	}
	assert.False(t, mr.Exists(cachedKey))
}

func TestCachePopulator_CacheDown(t *testing.T) {
	mr, c := newRedisCache(t)
	p := NewCachePopulator(nil, c, metrics.New(), "cache-saver-queue", 0, 100*time.Millisecond, discardLogger())
	mr.Close()

	err := p.Handle(context.Background(), `{"key":"btc-price","purchasePrice":1,"salePrice":2}`)
	assert.ErrorIs(t, err, model.ErrCacheUnavailable)
}

type stubOrigin struct {
	quote model.PriceQuote
}

func (s stubOrigin) Name() string { return "stub" }

func (s stubOrigin) FetchCurrentPrice(context.Context) (model.PriceQuote, error) {
	return s.quote, nil
}

// A miss publishes, the populator writes, and the next lookup reads the same rounded quote from cache.
func TestCachePopulator_RoundTripThroughLookup(t *testing.T) {
	mr, c := newRedisCache(t)
	q := queue.NewMemoryQueue(8, 3, discardLogger())
	m := metrics.New()

	origin := stubOrigin{quote: model.PriceQuote{PurchasePrice: 537963.391, SalePrice: 539677.66989998}}
	lookup := usecase.NewPriceUseCase(c, origin, q, m, usecase.PriceOptions{}, discardLogger())
	populator := NewCachePopulator(q, c, m, usecase.DefaultCacheSaverQueue, 0, 0, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = populator.Run(ctx) }()

	fresh, err := lookup.GetCurrentPrice(ctx)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return mr.Exists(cachedKey) }, 2*time.Second, 10*time.Millisecond)

	cached, err := lookup.GetCurrentPrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.PriceQuote{PurchasePrice: 537963.39, SalePrice: 539677.67}, cached)
	assert.Equal(t, fresh, cached)
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []model.DepositConfirmation
	err  error
}

func (m *recordingMailer) SendDepositConfirmation(_ context.Context, c model.DepositConfirmation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, c)
	return nil
}

func TestMailDispatcher_Handle(t *testing.T) {
	mailer := &recordingMailer{}
	d := NewMailDispatcher(nil, mailer, metrics.New(), "mail", time.Second, discardLogger())

	err := d.Handle(context.Background(), `{"userEmail":"ana@example.com","subject":"Deposit","text":"ok"}`)
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "ana@example.com", mailer.sent[0].UserEmail)

	assert.ErrorIs(t, d.Handle(context.Background(), `{`), model.ErrValidation)
	assert.ErrorIs(t, d.Handle(context.Background(), `{"userEmail":"nope"}`), model.ErrValidation)
}

func TestMailDispatcher_FailureIsReturned(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("sendgrid down")}
	d := NewMailDispatcher(nil, mailer, metrics.New(), "mail", time.Second, discardLogger())

	err := d.Handle(context.Background(), `{"userEmail":"ana@example.com","subject":"Deposit","text":"ok"}`)
	assert.Error(t, err)
}

func TestModeService_SwitchMode(t *testing.T) {
	s := NewModeService(model.LiveMode, discardLogger())

	assert.False(t, s.SwitchMode(model.LiveMode))
	assert.True(t, s.SwitchMode(model.TestMode))
	assert.Equal(t, model.TestMode, s.GetCurrentMode())
}
