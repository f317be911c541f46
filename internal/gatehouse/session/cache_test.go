package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gatehouse-io/gatehouse/internal/gatehouse/domain"
	"github.com/gatehouse-io/gatehouse/internal/gatehouse/session"
	"github.com/stretchr/testify/require"
)

// countingStore wraps a Store and counts Get calls, optionally failing after
// a switch is flipped.
type countingStore struct {
	session.Store
	gets int
	fail bool
}

func (s *countingStore) Get(ctx context.Context, token string) (domain.Identity, error) {
	s.gets++
	if s.fail {
		return domain.Identity{}, errors.New("store unreachable")
	}
	return s.Store.Get(ctx, token)
}

func testIdentity() domain.Identity {
	now := time.Now().UTC().Truncate(time.Second)
	return domain.Identity{
		SubjectID:  "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		Username:   "alice",
		Role:       domain.RoleUser,
		IssuedAt:   now,
		LastSeenAt: now,
	}
}

func newTestCache(t *testing.T, store session.Store) *session.Cache {
	t.Helper()

	renewer := session.NewRenewer(store, time.Minute)
	cache, err := session.NewCache(store, renewer, session.CacheConfig{})
	require.NoError(t, err)
	t.Cleanup(cache.Close)
	return cache
}

func TestResolveHitsStoreThenLocalTier(t *testing.T) {
	backing := session.NewMemoryStore()
	store := &countingStore{Store: backing}
	cache := newTestCache(t, store)
	ctx := context.Background()

	id := testIdentity()
	require.NoError(t, backing.Put(ctx, "tok", id, time.Minute))

	got, err := cache.Resolve(ctx, "tok")
	require.NoError(t, err)
	require.Equal(t, id.SubjectID, got.SubjectID)
	require.Equal(t, id.IssuedAt, got.IssuedAt)
	require.Equal(t, 1, store.gets)
	cache.Wait()

	// Second resolve is served locally even if the store goes away.
	store.fail = true
	got, err = cache.Resolve(ctx, "tok")
	require.NoError(t, err)
	require.Equal(t, id.SubjectID, got.SubjectID)
	require.Equal(t, 1, store.gets, "local tier should answer without a store call")
}

func TestResolveStampsLastSeen(t *testing.T) {
	backing := session.NewMemoryStore()
	store := &countingStore{Store: backing}
	cache := newTestCache(t, store)
	ctx := context.Background()

	id := testIdentity()
	id.LastSeenAt = id.IssuedAt.Add(-time.Hour)
	require.NoError(t, backing.Put(ctx, "tok", id, time.Minute))

	before := time.Now().UTC()
	got, err := cache.Resolve(ctx, "tok")
	require.NoError(t, err)
	require.False(t, got.LastSeenAt.Before(before), "store-tier hit should refresh last-seen")
	cache.Wait()

	first := got.LastSeenAt
	time.Sleep(10 * time.Millisecond)
	got, err = cache.Resolve(ctx, "tok")
	require.NoError(t, err)
	require.True(t, got.LastSeenAt.After(first), "local-tier hit should refresh last-seen")
	require.Equal(t, id.IssuedAt, got.IssuedAt, "issued-at is fixed at login")
}

func TestResolveUnknownTokenIsNegativeCached(t *testing.T) {
	backing := session.NewMemoryStore()
	store := &countingStore{Store: backing}
	cache := newTestCache(t, store)
	ctx := context.Background()

	_, err := cache.Resolve(ctx, "dead")
	require.ErrorIs(t, err, session.ErrNotFound)
	require.Equal(t, 1, store.gets)
	cache.Wait()

	// Repeated lookups are answered by the negative tier.
	_, err = cache.Resolve(ctx, "dead")
	require.ErrorIs(t, err, session.ErrNotFound)
	require.Equal(t, 1, store.gets)
}

func TestResolvePrefersLocalTierOverNegative(t *testing.T) {
	backing := session.NewMemoryStore()
	store := &countingStore{Store: backing}
	cache := newTestCache(t, store)
	ctx := context.Background()

	// Miss first so the negative tier records the token.
	_, err := cache.Resolve(ctx, "tok")
	require.ErrorIs(t, err, session.ErrNotFound)
	cache.Wait()

	// A session created under the same token must be visible right away,
	// even with the store down.
	require.NoError(t, cache.Put(ctx, "tok", testIdentity()))
	cache.Wait()

	store.fail = true
	got, err := cache.Resolve(ctx, "tok")
	require.NoError(t, err)
	require.Equal(t, "alice", got.Username)
}

func TestResolvePropagatesStoreFailure(t *testing.T) {
	store := &countingStore{Store: session.NewMemoryStore(), fail: true}
	cache := newTestCache(t, store)

	_, err := cache.Resolve(context.Background(), "tok")
	require.Error(t, err)
	require.NotErrorIs(t, err, session.ErrNotFound)
	cache.Wait()

	// Transport failures must not poison the negative tier.
	store.fail = false
	require.NoError(t, store.Store.Put(context.Background(), "tok", testIdentity(), time.Minute))
	_, err = cache.Resolve(context.Background(), "tok")
	require.NoError(t, err)
}

func TestPutPrimesLocalTier(t *testing.T) {
	backing := session.NewMemoryStore()
	store := &countingStore{Store: backing}
	cache := newTestCache(t, store)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "tok", testIdentity()))
	cache.Wait()

	_, err := cache.Resolve(ctx, "tok")
	require.NoError(t, err)
	require.Zero(t, store.gets, "freshly created session should be served locally")
}

func TestInvalidateIsImmediateLocally(t *testing.T) {
	backing := session.NewMemoryStore()
	cache := newTestCache(t, &countingStore{Store: backing})
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "tok", testIdentity()))
	cache.Wait()

	require.NoError(t, cache.Invalidate(ctx, "tok"))
	cache.Wait()

	_, err := cache.Resolve(ctx, "tok")
	require.ErrorIs(t, err, session.ErrNotFound)
}
