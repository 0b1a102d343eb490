package api

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/kalambet/rootcause/internal/pipeline"
)

const (
	DefaultSessionTTL   = 1 * time.Hour
	DefaultSessionPurge = 10 * time.Minute
)

// guardedSession serializes access to one conversation.
type guardedSession struct {
	mu sync.Mutex
	s  *pipeline.Session
}

// Sessions is the in-memory registry of conversations. A session that is
// not used for the TTL is dropped; every Ask or History call renews it.
type Sessions struct {
	asker pipeline.Asker
	ttl   time.Duration
	cache *cache.Cache
}

// NewSessions returns a registry with DefaultSessionTTL.
func NewSessions(a pipeline.Asker) *Sessions {
	return NewSessionsWithTTL(a, DefaultSessionTTL, DefaultSessionPurge)
}

// NewSessionsWithTTL returns a registry whose idle sessions expire after ttl
// and are purged every purge interval.
func NewSessionsWithTTL(a pipeline.Asker, ttl, purge time.Duration) *Sessions {
	return &Sessions{asker: a, ttl: ttl, cache: cache.New(ttl, purge)}
}

// Create starts a new conversation and returns its ID.
func (r *Sessions) Create() string {
	return r.create(cache.DefaultExpiration)
}

// CreatePinned starts a conversation that never expires.
func (r *Sessions) CreatePinned() string {
	return r.create(cache.NoExpiration)
}

func (r *Sessions) create(d time.Duration) string {
	gs := &guardedSession{s: pipeline.NewSession(r.asker)}
	r.cache.Set(gs.s.ID, gs, d)
	return gs.s.ID
}

// get returns the session and renews its expiry. Pinned sessions stay pinned.
func (r *Sessions) get(id string) (*guardedSession, bool) {
	x, exp, found := r.cache.GetWithExpiration(id)
	if !found {
		return nil, false
	}
	gs := x.(*guardedSession)
	if !exp.IsZero() {
		r.cache.Set(id, gs, r.ttl)
	}
	return gs, true
}

// Ask runs query in the session id.
func (r *Sessions) Ask(ctx context.Context, id, query string) (pipeline.Answer, bool, error) {
	gs, ok := r.get(id)
	if !ok {
		return pipeline.Answer{}, false, nil
	}
	gs.mu.Lock()
	defer gs.mu.Unlock()
	ans, err := gs.s.Ask(ctx, query)
	return ans, true, err
}

// History returns a copy of the session's turns.
func (r *Sessions) History(id string) ([]pipeline.Turn, bool) {
	gs, ok := r.get(id)
	if !ok {
		return nil, false
	}
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return gs.s.History(), true
}

// Len counts stored sessions, including expired ones not yet purged.
func (r *Sessions) Len() int {
	return r.cache.ItemCount()
}
