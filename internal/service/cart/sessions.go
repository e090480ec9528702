package cart

import (
	"context"
	"sync"
	"time"

	"golang.org/x/text/currency"

	"tienda-b2b/internal/catalog"
	cartrepo "tienda-b2b/internal/repository/cart"
)

// DefaultIdleTimeout is how long an unused session stays cached.
const DefaultIdleTimeout = 30 * time.Minute

// Sessions hands out one Service per session key, opening it on first use.
// Services whose load failed are not cached, so the next Get retries it.
type Sessions struct {
	mu       sync.Mutex
	repo     cartrepo.Repository
	catalog  catalog.Lookup
	currency currency.Unit
	opts     []Option
	idle     time.Duration
	now      func() time.Time
	open     map[string]*session
}

type session struct {
	svc      *Service
	lastUsed time.Time
}

func NewSessions(repo cartrepo.Repository, lookup catalog.Lookup, cur currency.Unit, opts ...Option) *Sessions {
	return &Sessions{
		repo:     repo,
		catalog:  lookup,
		currency: cur,
		opts:     opts,
		idle:     DefaultIdleTimeout,
		now:      time.Now,
		open:     make(map[string]*session),
	}
}

// SetIdleTimeout changes how long unused sessions stay cached. Zero or less
// keeps them forever.
func (s *Sessions) SetIdleTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idle = d
}

func (s *Sessions) Get(ctx context.Context, sessionKey string) *Service {
	if svc, ok := s.cached(sessionKey); ok {
		return svc
	}

	svc := Open(ctx, sessionKey, s.repo, s.catalog, s.currency, s.opts...)
	if !svc.Loaded() {
		return svc
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if e, ok := s.open[sessionKey]; ok {
		e.lastUsed = now
		return e.svc
	}
	s.evictIdleLocked(now)
	s.open[sessionKey] = &session{svc: svc, lastUsed: now}
	return svc
}

func (s *Sessions) cached(sessionKey string) (*Service, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.open[sessionKey]
	if !ok {
		return nil, false
	}
	e.lastUsed = s.now()
	return e.svc, true
}

// evictIdleLocked drops sessions unused for longer than the idle timeout.
// A session in the middle of a checkout is kept.
func (s *Sessions) evictIdleLocked(now time.Time) {
	if s.idle <= 0 {
		return
	}
	for key, e := range s.open {
		if now.Sub(e.lastUsed) > s.idle && !e.svc.CheckingOut() {
			delete(s.open, key)
		}
	}
}

// Len returns the number of cached sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.open)
}

// Forget drops the cached Service; the next Get reloads from storage.
func (s *Sessions) Forget(sessionKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.open, sessionKey)
}
