package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gatehouse-io/gatehouse/pkg/slogx"
)

const (
	// DefaultRenewalWorkers is the number of goroutines draining the renewal
	// queue when no count is configured.
	DefaultRenewalWorkers = 4

	// renewalQueueSize bounds the renewal backlog. When the queue is full
	// renewals are dropped, a dropped renewal only means the session expires
	// on its original schedule.
	renewalQueueSize = 1024
)

// Renewer pushes session expiry forward in the background so the request path
// never waits on the shared store for a renewal. At most one renewal per
// token is in flight at a time.
type Renewer struct {
	store Store
	ttl   time.Duration
	queue chan string

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewRenewer(store Store, ttl time.Duration) *Renewer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Renewer{
		store:    store,
		ttl:      ttl,
		queue:    make(chan string, renewalQueueSize),
		inflight: make(map[string]struct{}),
	}
}

// Enqueue schedules a renewal for the token. It never blocks: if a renewal
// for this token is already queued, or the queue is full, the call is a
// no-op.
func (r *Renewer) Enqueue(token string) {
	r.mu.Lock()
	if _, busy := r.inflight[token]; busy {
		r.mu.Unlock()
		return
	}
	r.inflight[token] = struct{}{}
	r.mu.Unlock()

	select {
	case r.queue <- token:
	default:
		// Queue full, drop the renewal.
		r.release(token)
	}
}

func (r *Renewer) release(token string) {
	r.mu.Lock()
	delete(r.inflight, token)
	r.mu.Unlock()
}

// Run starts the worker pool and blocks until ctx is cancelled.
func (r *Renewer) Run(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = DefaultRenewalWorkers
	}

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.work(ctx)
		}()
	}
	wg.Wait()
}

func (r *Renewer) work(ctx context.Context) {
	log := slogx.FromContext(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case token := <-r.queue:
			err := r.store.Renew(ctx, token, r.ttl)
			r.release(token)

			switch {
			case err == nil:
			case errors.Is(err, ErrNotFound):
				// Session expired between lookup and renewal, nothing to do.
			case ctx.Err() != nil:
				return
			default:
				log.Warn("session renewal failed", "error", err)
			}
		}
	}
}
