package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"go.uber.org/goleak"

	"github.com/99minutos/auth-service/pkg/metrics"
)

type stubHasher struct {
	delay   time.Duration
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (s *stubHasher) track() func() {
	n := s.active.Add(1)
	for {
		cur := s.maxSeen.Load()
		if n <= cur || s.maxSeen.CompareAndSwap(cur, n) {
			break
		}
	}
	time.Sleep(s.delay)
	return func() { s.active.Add(-1) }
}

func (s *stubHasher) Hash(_ context.Context, password string) (string, error) {
	defer s.track()()
	return "hashed:" + password, nil
}

func (s *stubHasher) Compare(_ context.Context, hash, password string) (bool, error) {
	defer s.track()()
	return hash == "hashed:"+password, nil
}

func startPool(t *testing.T, workers int, inner *stubHasher) (*HashPool, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	p := NewHashPool(workers, inner, zerolog.Nop())
	p.Start(ctx)
	return p, func() {
		cancel()
		p.Wait()
	}
}

func TestHashPool_HashAndCompare(t *testing.T) {
	defer goleak.VerifyNone(t)
	p, stop := startPool(t, 2, &stubHasher{})
	defer stop()

	hash, err := p.Hash(context.Background(), "Secret123!")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if hash != "hashed:Secret123!" {
		t.Fatalf("unexpected hash: %s", hash)
	}

	ok, err := p.Compare(context.Background(), hash, "Secret123!")
	if err != nil || !ok {
		t.Fatalf("expected match, got ok=%v err=%v", ok, err)
	}
}

func TestHashPool_BoundsConcurrency(t *testing.T) {
	defer goleak.VerifyNone(t)
	inner := &stubHasher{delay: 5 * time.Millisecond}
	p, stop := startPool(t, 2, inner)
	defer stop()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Hash(context.Background(), "Secret123!"); err != nil {
				t.Errorf("Hash returned error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := inner.maxSeen.Load(); got > 2 {
		t.Fatalf("expected at most 2 concurrent hashes, saw %d", got)
	}
}

func TestHashPool_ExpiredContext(t *testing.T) {
	defer goleak.VerifyNone(t)
	p, stop := startPool(t, 1, &stubHasher{})
	defer stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Hash(ctx, "Secret123!"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestHashPool_StoppedPool(t *testing.T) {
	defer goleak.VerifyNone(t)
	p, stop := startPool(t, 1, &stubHasher{})
	stop()

	if _, err := p.Hash(context.Background(), "Secret123!"); !errors.Is(err, ErrPoolStopped) {
		t.Fatalf("expected ErrPoolStopped, got %v", err)
	}
}

func TestNewHashPool_DefaultsWorkers(t *testing.T) {
	p := NewHashPool(0, &stubHasher{}, zerolog.Nop())
	if p.Workers() <= 0 {
		t.Fatalf("expected positive worker count, got %d", p.Workers())
	}
}

func TestHashPool_QueueDepthRestoredWhenEnqueueFails(t *testing.T) {
	baseline := testutil.ToFloat64(metrics.HashQueueDepth)

	// No workers and an unbuffered queue, so every send blocks.
	p := NewHashPool(1, &stubHasher{}, zerolog.Nop())
	p.jobs = make(chan job)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Hash(ctx, "Secret123!"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := testutil.ToFloat64(metrics.HashQueueDepth); got != baseline {
		t.Fatalf("queue depth after cancelled enqueue = %v, want %v", got, baseline)
	}

	stopped := make(chan struct{})
	close(stopped)
	p.stopped = stopped
	if _, err := p.Compare(context.Background(), "hashed:x", "x"); !errors.Is(err, ErrPoolStopped) {
		t.Fatalf("expected ErrPoolStopped, got %v", err)
	}
	if got := testutil.ToFloat64(metrics.HashQueueDepth); got != baseline {
		t.Fatalf("queue depth after stopped enqueue = %v, want %v", got, baseline)
	}
}

func TestHashPool_QueueDepthNeverNegative(t *testing.T) {
	defer goleak.VerifyNone(t)
	baseline := testutil.ToFloat64(metrics.HashQueueDepth)
	p, stop := startPool(t, 4, &stubHasher{})
	defer stop()

	var (
		wg       sync.WaitGroup
		negative atomic.Bool
	)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Hash(context.Background(), "Secret123!"); err != nil {
				t.Errorf("hash failed: %v", err)
			}
			if testutil.ToFloat64(metrics.HashQueueDepth) < baseline {
				negative.Store(true)
			}
		}()
	}
	wg.Wait()

	if negative.Load() {
		t.Fatal("queue depth dropped below its starting value")
	}
	if got := testutil.ToFloat64(metrics.HashQueueDepth); got != baseline {
		t.Fatalf("queue depth after drain = %v, want %v", got, baseline)
	}
}
