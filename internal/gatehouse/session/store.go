// Package session manages opaque session tokens: the shared distributed
// store behind them and the local cache layered in front of it.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gatehouse-io/gatehouse/internal/gatehouse/domain"
)

var ErrNotFound = errors.New("session: not found")

// DefaultTTL is the sliding session lifetime. Each renewal pushes expiry this
// far into the future.
const DefaultTTL = 30 * time.Minute

// Store is the shared session store. All gateway instances see the same
// sessions through it.
type Store interface {
	// Get returns the identity behind a token, or ErrNotFound when the token
	// is unknown or expired.
	Get(ctx context.Context, token string) (domain.Identity, error)

	// Put writes a session with the given lifetime, replacing any existing
	// entry for the token.
	Put(ctx context.Context, token string, id domain.Identity, ttl time.Duration) error

	// Renew pushes the expiry of an existing session ttl into the future.
	// Returns ErrNotFound if the session no longer exists.
	Renew(ctx context.Context, token string, ttl time.Duration) error

	// Delete removes a session. Deleting an absent token is not an error.
	Delete(ctx context.Context, token string) error
}

// MemoryStore is an in-process Store used in tests and single-instance
// deployments.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memorySession
}

type memorySession struct {
	id        domain.Identity
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]memorySession)}
}

func (s *MemoryStore) Get(ctx context.Context, token string) (domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok || time.Now().After(sess.expiresAt) {
		delete(s.sessions, token)
		return domain.Identity{}, ErrNotFound
	}
	return sess.id, nil
}

func (s *MemoryStore) Put(ctx context.Context, token string, id domain.Identity, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[token] = memorySession{id: id, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Renew(ctx context.Context, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok || time.Now().After(sess.expiresAt) {
		delete(s.sessions, token)
		return ErrNotFound
	}
	sess.expiresAt = time.Now().Add(ttl)
	s.sessions[token] = sess
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, token)
	return nil
}
