package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"btcinvest/internal/domain/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeCache struct {
	mu     sync.Mutex
	values map[string]string
	getErr error
	writes int
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string]string)}
}

func (c *fakeCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return "", false, c.getErr
	}
	v, ok := c.values[key]
	return v, ok, nil
}

func (c *fakeCache) SetIfAbsent(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes++
	if _, ok := c.values[key]; ok {
		return false, nil
	}
	c.values[key] = value
	return true, nil
}

func (c *fakeCache) Ping(context.Context) error { return nil }
func (c *fakeCache) Close() error               { return nil }

type fakeOrigin struct {
	mu    sync.Mutex
	quote model.PriceQuote
	err   error
	calls int
}

func (o *fakeOrigin) Name() string { return "fake" }

func (o *fakeOrigin) FetchCurrentPrice(ctx context.Context) (model.PriceQuote, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	if _, ok := ctx.Deadline(); !ok {
		return model.PriceQuote{}, errors.New("origin called without a deadline")
	}
	return o.quote, o.err
}

type published struct {
	queue   string
	payload string
}

type fakePublisher struct {
	mu   sync.Mutex
	err  error
	msgs []published
}

func (p *fakePublisher) Publish(_ context.Context, queue, payload string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{queue: queue, payload: payload})
	return nil
}

type nopMetrics struct{}

func (nopMetrics) CacheLookup(string)                       {}
func (nopMetrics) OriginFetch(string, time.Duration, error) {}
func (nopMetrics) QueuePublish(string, error)               {}
func (nopMetrics) CachePopulation(string)                   {}
func (nopMetrics) MailDelivery(error)                       {}

type fakeStorage struct {
	mu      sync.Mutex
	byID    map[string]*model.Account
	findErr error
	creates int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{byID: make(map[string]*model.Account)}
}

func (s *fakeStorage) CreateAccount(_ context.Context, a *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	cp := *a
	s.byID[a.ID] = &cp
	return nil
}

func (s *fakeStorage) FindAccountByEmail(_ context.Context, email string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, a := range s.byID {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStorage) FindAccountByID(_ context.Context, id string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	a, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (s *fakeStorage) AddToBalance(_ context.Context, id string, cents int64) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	a.BalanceCents += cents
	cp := *a
	return &cp, nil
}

func (s *fakeStorage) Ping(context.Context) error { return nil }
func (s *fakeStorage) Close() error               { return nil }

// plainHasher prefixes the password so tests stay fast without bcrypt.
type plainHasher struct{}

func (plainHasher) Hash(pw string) (string, error) { return "hashed:" + pw, nil }
func (plainHasher) Verify(pw, hash string) bool   { return strings.TrimPrefix(hash, "hashed:") == pw }

type fakeTokens struct{}

func (fakeTokens) Issue(userID string) (string, error) { return "token-for-" + userID, nil }
