package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// RunFunc is a long-lived consumer loop that returns when ctx is done or it fails.
type RunFunc func(ctx context.Context) error

// Pool держит N экземпляров одного consumer'а и перезапускает упавшие с backoff.
type Pool struct {
	workers    int
	minBackoff time.Duration
	maxBackoff time.Duration
	logger     *slog.Logger
}

func NewPool(workers int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		workers:    workers,
		minBackoff: 500 * time.Millisecond,
		maxBackoff: 30 * time.Second,
		logger:     logger,
	}
}

// Start launches the workers and returns a channel of their failures.
// The channel is closed once every worker has stopped after ctx is cancelled.
func (p *Pool) Start(ctx context.Context, name string, run RunFunc) <-chan error {
	errs := make(chan error)
	var wg sync.WaitGroup

	wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go func(id int) {
			defer wg.Done()
			p.workerLoop(ctx, name, id, run, errs)
		}(i)
	}

	go func() {
		wg.Wait()
		close(errs)
	}()

	return errs
}

func (p *Pool) workerLoop(ctx context.Context, name string, id int, run RunFunc, errs chan<- error) {
	backoff := p.minBackoff

	for {
		started := time.Now()
		err := run(ctx)
		if ctx.Err() != nil {
			p.logger.Info("worker stopped", "worker", name, "id", id)
			return
		}
		if err == nil {
			err = fmt.Errorf("worker %s/%d exited unexpectedly", name, id)
		}

		p.logger.Error("worker failed, restarting", "worker", name, "id", id, "backoff", backoff, "error", err)
		select {
		case <-ctx.Done():
			return
		case errs <- fmt.Errorf("%s/%d: %w", name, id, err):
		}

		// a worker that ran for a while before failing starts over from the minimum delay
		if time.Since(started) > p.maxBackoff {
			backoff = p.minBackoff
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > p.maxBackoff {
			backoff = p.maxBackoff
		}
	}
}
