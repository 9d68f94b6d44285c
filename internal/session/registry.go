// Package session keeps live chat sessions in memory, keyed by UUID, and
// evicts the ones that have sat idle past their TTL. Nothing is persisted: a
// restart drops every conversation.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nyashahama/safeserve-backend/internal/gateway"
	"github.com/nyashahama/safeserve-backend/internal/metrics"
)

var (
	ErrNotFound = errors.New("session: not found or expired")
	ErrFull     = errors.New("session: registry is full")
)

// Starter opens a new chat conversation. *gateway.Gateway satisfies it.
type Starter interface {
	StartChat(role string) *gateway.ChatSession
}

// ─── CONFIG ───────────────────────────────────────────────────────────────────

// Config holds tuning parameters for the Registry. Zero-valued fields take
// the values from DefaultConfig().
type Config struct {
	// TTL is how long a session may sit idle before it is evicted.
	TTL time.Duration

	// SweepInterval is how often the janitor looks for idle sessions.
	SweepInterval time.Duration

	// MaxSessions caps memory use. Create fails with ErrFull beyond it.
	MaxSessions int

	// Now is the clock. Nil uses time.Now.
	Now func() time.Time
}

// DefaultConfig returns safe production defaults.
func DefaultConfig() Config {
	return Config{
		TTL:           30 * time.Minute,
		SweepInterval: time.Minute,
		MaxSessions:   10000,
	}
}

// ─── REGISTRY ─────────────────────────────────────────────────────────────────

type entry struct {
	chat     *gateway.ChatSession
	lastUsed time.Time
}

// Registry maps session IDs to chat sessions. It is safe for concurrent use.
type Registry struct {
	starter Starter
	cfg     Config
	metrics *metrics.Gateway
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*entry
}

// NewRegistry constructs a Registry. Call Start() to run the janitor.
func NewRegistry(starter Starter, cfg Config, m *metrics.Gateway, logger *slog.Logger) *Registry {
	def := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = def.MaxSessions
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Registry{
		starter:  starter,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
		sessions: make(map[uuid.UUID]*entry),
	}
}

// Create opens a chat for role and returns its ID.
func (r *Registry) Create(role string) (uuid.UUID, *gateway.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sessions) >= r.cfg.MaxSessions {
		r.sweepLocked()
		if len(r.sessions) >= r.cfg.MaxSessions {
			return uuid.Nil, nil, ErrFull
		}
	}

	id := uuid.New()
	chat := r.starter.StartChat(role)
	r.sessions[id] = &entry{chat: chat, lastUsed: r.cfg.Now()}
	r.metrics.SetSessions(len(r.sessions))

	r.logger.Info("session: created", "session_id", id, "role", chat.Role())
	return id, chat, nil
}

// Get returns the session and marks it used. Sessions past their TTL are
// reported as ErrNotFound even if the janitor has not removed them yet.
func (r *Registry) Get(id uuid.UUID) (*gateway.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	now := r.cfg.Now()
	if now.Sub(e.lastUsed) > r.cfg.TTL {
		delete(r.sessions, id)
		r.metrics.SetSessions(len(r.sessions))
		return nil, ErrNotFound
	}
	e.lastUsed = now
	return e.chat, nil
}

// Delete ends a session. It reports whether the session existed.
func (r *Registry) Delete(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	r.metrics.SetSessions(len(r.sessions))
	return true
}

// Len returns the number of sessions held, including expired ones the
// janitor has not reached yet.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts idle sessions and returns how many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweepLocked()
}

func (r *Registry) sweepLocked() int {
	now := r.cfg.Now()
	evicted := 0
	for id, e := range r.sessions {
		if now.Sub(e.lastUsed) > r.cfg.TTL {
			delete(r.sessions, id)
			evicted++
		}
	}
	if evicted > 0 {
		r.metrics.SetSessions(len(r.sessions))
	}
	return evicted
}

// ─── JANITOR ──────────────────────────────────────────────────────────────────

// Start runs the janitor until ctx is cancelled. Call it in a goroutine from
// main:
//
//	go registry.Start(ctx)
func (r *Registry) Start(ctx context.Context) {
	r.logger.Info("session: janitor starting", "ttl", r.cfg.TTL, "sweep_interval", r.cfg.SweepInterval)

	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("session: janitor stopped")
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Debug("session: evicted idle sessions", "count", n, "remaining", r.Len())
			}
		}
	}
}
