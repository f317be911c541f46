package session

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/gatehouse-io/gatehouse/internal/gatehouse/domain"
)

const (
	// DefaultLocalCapacity caps the number of identities held in the local
	// tier per instance.
	DefaultLocalCapacity = 1000

	// DefaultLocalTTL bounds how stale a locally cached identity may be. A
	// session revoked elsewhere is honoured here within this window.
	DefaultLocalTTL = 5 * time.Minute

	// DefaultNegativeTTL is how long a miss is remembered. It keeps repeated
	// probes with a dead token off the shared store.
	DefaultNegativeTTL = time.Minute
)

// CacheConfig tunes the two cache tiers. Zero values fall back to defaults.
type CacheConfig struct {
	LocalCapacity int64
	LocalTTL      time.Duration
	NegativeTTL   time.Duration
	SessionTTL    time.Duration
}

func (c *CacheConfig) applyDefaults() {
	if c.LocalCapacity <= 0 {
		c.LocalCapacity = DefaultLocalCapacity
	}
	if c.LocalTTL <= 0 {
		c.LocalTTL = DefaultLocalTTL
	}
	if c.NegativeTTL <= 0 {
		c.NegativeTTL = DefaultNegativeTTL
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = DefaultTTL
	}
}

// Cache layers a local in-process tier over the shared session store. Hits in
// the local tier skip the store entirely, misses in the negative tier short
// circuit repeated lookups of dead tokens, and every successful lookup queues
// an async renewal so active sessions slide their expiry forward.
type Cache struct {
	store    Store
	renewer  *Renewer
	local    *ristretto.Cache
	negative *ristretto.Cache
	cfg      CacheConfig
}

func NewCache(store Store, renewer *Renewer, cfg CacheConfig) (*Cache, error) {
	cfg.applyDefaults()

	local, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.LocalCapacity * 10,
		MaxCost:     cfg.LocalCapacity,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	negative, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.LocalCapacity * 10,
		MaxCost:     cfg.LocalCapacity,
		BufferItems: 64,
	})
	if err != nil {
		local.Close()
		return nil, err
	}

	return &Cache{
		store:    store,
		renewer:  renewer,
		local:    local,
		negative: negative,
		cfg:      cfg,
	}, nil
}

// Resolve returns the identity behind a token. The local tier answers first,
// then the negative tier, then the shared store. Store transport failures are
// returned as-is so callers can distinguish "no such session" from "store
// unreachable".
//
// Every successful resolve stamps LastSeenAt on the returned identity, so an
// active session always reports its most recent use, not its login time.
func (c *Cache) Resolve(ctx context.Context, token string) (domain.Identity, error) {
	if v, ok := c.local.Get(token); ok {
		id := v.(domain.Identity)
		id.LastSeenAt = time.Now().UTC()
		c.renewer.Enqueue(token)
		return id, nil
	}

	if _, found := c.negative.Get(token); found {
		return domain.Identity{}, ErrNotFound
	}

	id, err := c.store.Get(ctx, token)
	if errors.Is(err, ErrNotFound) {
		c.negative.SetWithTTL(token, struct{}{}, 1, c.cfg.NegativeTTL)
		return domain.Identity{}, ErrNotFound
	}
	if err != nil {
		return domain.Identity{}, err
	}

	id.LastSeenAt = time.Now().UTC()
	c.local.SetWithTTL(token, id, 1, c.cfg.LocalTTL)
	c.renewer.Enqueue(token)
	return id, nil
}

// Put creates a session in the shared store and primes the local tier.
func (c *Cache) Put(ctx context.Context, token string, id domain.Identity) error {
	if err := c.store.Put(ctx, token, id, c.cfg.SessionTTL); err != nil {
		return err
	}
	c.negative.Del(token)
	c.local.SetWithTTL(token, id, 1, c.cfg.LocalTTL)
	return nil
}

// Invalidate removes a session everywhere. The local drop is immediate on
// this instance; other instances converge within the local TTL window.
func (c *Cache) Invalidate(ctx context.Context, token string) error {
	c.local.Del(token)
	if err := c.store.Delete(ctx, token); err != nil {
		return err
	}
	c.negative.SetWithTTL(token, struct{}{}, 1, c.cfg.NegativeTTL)
	return nil
}

// Wait flushes pending cache writes. Only needed by tests, ristretto applies
// Set calls asynchronously.
func (c *Cache) Wait() {
	c.local.Wait()
	c.negative.Wait()
}

func (c *Cache) Close() {
	c.local.Close()
	c.negative.Close()
}
