package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gatehouse-io/gatehouse/internal/gatehouse/domain"
	"github.com/gatehouse-io/gatehouse/internal/gatehouse/session"
	"github.com/stretchr/testify/require"
)

// renewRecorder records Renew calls.
type renewRecorder struct {
	session.Store

	mu     sync.Mutex
	renews []string
	done   chan struct{}
}

func (s *renewRecorder) Renew(ctx context.Context, token string, ttl time.Duration) error {
	err := s.Store.Renew(ctx, token, ttl)

	s.mu.Lock()
	s.renews = append(s.renews, token)
	s.mu.Unlock()

	select {
	case s.done <- struct{}{}:
	default:
	}
	return err
}

func (s *renewRecorder) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.renews)
}

func TestRenewerRenewsEnqueuedSessions(t *testing.T) {
	backing := session.NewMemoryStore()
	store := &renewRecorder{Store: backing, done: make(chan struct{}, 1)}
	require.NoError(t, backing.Put(context.Background(), "tok", domain.Identity{Username: "alice"}, time.Minute))

	renewer := session.NewRenewer(store, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go renewer.Run(ctx, 2)

	renewer.Enqueue("tok")

	select {
	case <-store.done:
	case <-time.After(2 * time.Second):
		t.Fatal("renewal never happened")
	}
	require.GreaterOrEqual(t, store.count(), 1)
}

func TestRenewerDeduplicatesInflightTokens(t *testing.T) {
	backing := session.NewMemoryStore()
	store := &renewRecorder{Store: backing, done: make(chan struct{}, 1)}
	require.NoError(t, backing.Put(context.Background(), "tok", domain.Identity{}, time.Minute))

	renewer := session.NewRenewer(store, time.Hour)

	// No workers running yet: repeated enqueues of the same token must
	// collapse into a single queued renewal.
	for range 10 {
		renewer.Enqueue("tok")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go renewer.Run(ctx, 1)

	select {
	case <-store.done:
	case <-time.After(2 * time.Second):
		t.Fatal("renewal never happened")
	}

	// Give the worker a moment to drain anything else (there should be
	// nothing else queued).
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, store.count())
}

func TestRenewerToleratesExpiredSession(t *testing.T) {
	backing := session.NewMemoryStore()
	store := &renewRecorder{Store: backing, done: make(chan struct{}, 1)}

	renewer := session.NewRenewer(store, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go renewer.Run(ctx, 1)

	// Token does not exist; the worker should swallow ErrNotFound and keep going.
	renewer.Enqueue("gone")

	select {
	case <-store.done:
	case <-time.After(2 * time.Second):
		t.Fatal("renewal attempt never happened")
	}
}

func TestMemoryStoreSlidingExpiry(t *testing.T) {
	s := session.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "tok", domain.Identity{Username: "alice"}, 50*time.Millisecond))
	require.NoError(t, s.Renew(ctx, "tok", time.Minute))

	time.Sleep(80 * time.Millisecond)

	// Renewal pushed expiry past the original 50ms lifetime.
	_, err := s.Get(ctx, "tok")
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "tok"))
	_, err = s.Get(ctx, "tok")
	require.ErrorIs(t, err, session.ErrNotFound)

	require.ErrorIs(t, s.Renew(ctx, "tok", time.Minute), session.ErrNotFound)
}
