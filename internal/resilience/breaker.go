package resilience

import (
	"sync"
	"time"
)

// DefaultCooldown outlasts the per-minute quota windows of the hosted model
// APIs without parking the feature for long.
const DefaultCooldown = 30 * time.Second

// BreakerState is a point-in-time snapshot for status endpoints and logs.
type BreakerState struct {
	Open          bool          `json:"open"`
	CooldownUntil time.Time     `json:"cooldown_until,omitzero"`
	Remaining     time.Duration `json:"-"`
	RemainingMS   int64         `json:"remaining_ms"`
	Trips         int64         `json:"trips"`
}

// Breaker is the quota gate shared by every gateway operation. It has no
// half-open state: once cooldownUntil passes the next call is simply
// attempted, and either succeeds or trips the breaker again.
//
// The zero value is not usable; construct with NewBreaker. A single Breaker
// is meant to be shared by everything that draws on the same quota.
type Breaker struct {
	cooldown time.Duration
	now      func() time.Time

	mu            sync.Mutex
	cooldownUntil time.Time
	trips         int64
}

// NewBreaker returns a closed breaker. cooldown <= 0 selects DefaultCooldown;
// a nil clock selects time.Now.
func NewBreaker(cooldown time.Duration, now func() time.Time) *Breaker {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if now == nil {
		now = time.Now
	}
	return &Breaker{cooldown: cooldown, now: now}
}

// CheckOpen returns ErrCooldownActive while the cooldown window is running.
func (b *Breaker) CheckOpen() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.now().Before(b.cooldownUntil) {
		return ErrCooldownActive
	}
	return nil
}

// Trip opens the breaker for one cooldown period starting now. Tripping an
// already open breaker extends the window.
func (b *Breaker) Trip() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cooldownUntil = b.now().Add(b.cooldown)
	b.trips++
}

// Reset closes the breaker immediately.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cooldownUntil = time.Time{}
}

// Cooldown returns the configured cooldown duration.
func (b *Breaker) Cooldown() time.Duration { return b.cooldown }

// State returns a snapshot of the breaker.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	st := BreakerState{Trips: b.trips}
	if now.Before(b.cooldownUntil) {
		st.Open = true
		st.CooldownUntil = b.cooldownUntil
		st.Remaining = b.cooldownUntil.Sub(now)
		st.RemainingMS = st.Remaining.Milliseconds()
	}
	return st
}
