package queue

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/pkg/metrics"
)

const channelBuffer = 256

// ErrPoolStopped is returned for work submitted after the pool shut down.
var ErrPoolStopped = errors.New("hash pool stopped")

type job struct {
	ctx context.Context
	run func(ctx context.Context)
}

// HashPool runs password hashing on a fixed set of workers so that a burst of
// logins cannot start more concurrent bcrypt computations than there are
// workers. It implements ports.PasswordHasher by delegating to an inner hasher.
type HashPool struct {
	jobs    chan job
	inner   ports.PasswordHasher
	workers int
	log     zerolog.Logger

	wg      sync.WaitGroup
	stopped <-chan struct{}
}

// NewHashPool creates a HashPool with numWorkers workers.
// If numWorkers <= 0, runtime.NumCPU() is used.
func NewHashPool(numWorkers int, inner ports.PasswordHasher, log zerolog.Logger) *HashPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &HashPool{
		jobs:    make(chan job, channelBuffer),
		inner:   inner,
		workers: numWorkers,
		log:     log,
	}
}

// Workers returns the number of worker goroutines.
func (p *HashPool) Workers() int { return p.workers }

// Start launches all worker goroutines. Workers stop when ctx is cancelled;
// call Wait to block until they have exited.
func (p *HashPool) Start(ctx context.Context) {
	p.stopped = ctx.Done()
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.runWorker(ctx, i)
	}
	p.log.Debug().Int("workers", p.workers).Msg("hash pool started")
}

// Wait blocks until every worker has returned.
func (p *HashPool) Wait() {
	p.wg.Wait()
}

func (p *HashPool) Hash(ctx context.Context, password string) (string, error) {
	var (
		hash string
		err  error
	)
	if subErr := p.submit(ctx, func(ctx context.Context) {
		hash, err = p.inner.Hash(ctx, password)
	}); subErr != nil {
		return "", subErr
	}
	return hash, err
}

func (p *HashPool) Compare(ctx context.Context, hash, password string) (bool, error) {
	var (
		ok  bool
		err error
	)
	if subErr := p.submit(ctx, func(ctx context.Context) {
		ok, err = p.inner.Compare(ctx, hash, password)
	}); subErr != nil {
		return false, subErr
	}
	return ok, err
}

// submit queues fn and waits for it to finish. It gives up as soon as ctx is
// done or the pool stops; fn is skipped by the worker if ctx expired while
// it was queued.
func (p *HashPool) submit(ctx context.Context, fn func(ctx context.Context)) error {
	done := make(chan struct{})
	j := job{ctx: ctx, run: func(ctx context.Context) {
		defer close(done)
		fn(ctx)
	}}

	// Counted before the send so a worker's Dec can never run first.
	metrics.HashQueueDepth.Inc()
	select {
	case p.jobs <- j:
	case <-ctx.Done():
		metrics.HashQueueDepth.Dec()
		return ctx.Err()
	case <-p.stopped:
		metrics.HashQueueDepth.Dec()
		return ErrPoolStopped
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.stopped:
		return ErrPoolStopped
	}
}

func (p *HashPool) runWorker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-p.jobs:
			metrics.HashQueueDepth.Dec()
			if err := j.ctx.Err(); err != nil {
				p.log.Debug().Err(err).Int("worker_id", id).Msg("dropping expired hash job")
				continue
			}
			j.run(j.ctx)
		}
	}
}
