package resilience

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ─── CONFIG ───────────────────────────────────────────────────────────────────

// RetryConfig holds the tuning parameters for an Executor. Zero-valued fields
// take the values from DefaultRetryConfig().
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialDelay is the wait before the first retry. Each later wait doubles,
	// up to MaxDelay.
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// MaxJitter bounds the random delay added on top of every back-off wait so
	// that many callers failing together do not resubmit in lockstep.
	MaxJitter time.Duration

	// AttemptTimeout bounds a single attempt. Zero disables it.
	AttemptTimeout time.Duration

	// Sleep waits for d or until ctx is done. Nil uses a timer. Tests replace
	// it to record delays without waiting.
	Sleep func(ctx context.Context, d time.Duration) error

	// Jitter returns a duration in [0, max). Nil uses math/rand/v2.
	Jitter func(max time.Duration) time.Duration
}

// DefaultRetryConfig returns the production defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialDelay:   time.Second,
		MaxDelay:       8 * time.Second,
		MaxJitter:      500 * time.Millisecond,
		AttemptTimeout: 90 * time.Second,
	}
}

// ─── EXECUTOR ─────────────────────────────────────────────────────────────────

// Executor runs remote attempts with the breaker gate, failure classification
// and bounded exponential back-off. It is safe for concurrent use; each
// Execute call keeps its own back-off schedule.
type Executor struct {
	cfg     RetryConfig
	breaker *Breaker
	logger  *slog.Logger
}

// NewExecutor constructs an Executor bound to breaker. Every failure that
// classifies as quota trips breaker; every attempt is gated on it.
func NewExecutor(cfg RetryConfig, breaker *Breaker, logger *slog.Logger) *Executor {
	def := DefaultRetryConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = def.InitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.MaxDelay < cfg.InitialDelay {
		cfg.MaxDelay = cfg.InitialDelay
	}
	if cfg.MaxJitter < 0 {
		cfg.MaxJitter = 0
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepCtx
	}
	if cfg.Jitter == nil {
		cfg.Jitter = randomJitter
	}
	return &Executor{cfg: cfg, breaker: breaker, logger: logger}
}

// Breaker returns the breaker this executor gates on.
func (e *Executor) Breaker() *Breaker { return e.breaker }

// Config returns the effective configuration after defaults were applied.
func (e *Executor) Config() RetryConfig { return e.cfg }

// Execute runs attempt until it succeeds, fails with a non-transient error,
// or MaxAttempts is exhausted.
//
//   - The breaker is checked before every attempt; while it is open Execute
//     returns ErrCooldownActive without calling attempt.
//   - Quota failures trip the breaker and return at once.
//   - Transient failures are retried after InitialDelay·2ⁿ plus jitter.
//   - Terminal failures return at once.
//
// Returned errors wrap both the kind sentinel and the last attempt error, so
// errors.Is(err, ErrQuotaExceeded) and errors.As on transport errors both
// work. KindOf and AttemptsOf read back the classification.
func Execute[T any](ctx context.Context, e *Executor, op string, attempt func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	schedule := e.schedule()
	log := e.logger.With("operation", op)

	var lastErr error
	for n := 1; n <= e.cfg.MaxAttempts; n++ {
		if err := e.breaker.CheckOpen(); err != nil {
			log.Debug("resilience: breaker open, skipping attempt", "attempt", n)
			return zero, wrap(KindCooldown, n-1, lastErr)
		}

		v, err := runAttempt(ctx, e.cfg.AttemptTimeout, attempt)
		if err == nil {
			if n > 1 {
				log.Info("resilience: attempt succeeded after retry", "attempt", n)
			}
			return v, nil
		}
		lastErr = err

		// The caller gave up; nothing left to retry for.
		if ctx.Err() != nil {
			return zero, wrap(KindTerminal, n, err)
		}

		switch kind := Classify(err); kind {
		case KindQuota:
			e.breaker.Trip()
			log.Warn("resilience: quota exhausted, breaker tripped",
				"attempt", n,
				"cooldown", e.breaker.Cooldown(),
				"error", err,
			)
			return zero, wrap(KindQuota, n, err)

		case KindCooldown:
			return zero, wrap(KindCooldown, n, err)

		case KindTransient:
			if n == e.cfg.MaxAttempts {
				break
			}
			delay := schedule.NextBackOff() + e.jitter()
			log.Warn("resilience: transient failure, retrying",
				"attempt", n,
				"max", e.cfg.MaxAttempts,
				"delay_ms", delay.Milliseconds(),
				"error", err,
			)
			if serr := e.cfg.Sleep(ctx, delay); serr != nil {
				return zero, wrap(KindTerminal, n, err)
			}

		default:
			return zero, wrap(KindTerminal, n, err)
		}
	}

	log.Warn("resilience: retries exhausted", "attempts", e.cfg.MaxAttempts, "error", lastErr)
	return zero, wrap(KindTransient, e.cfg.MaxAttempts, lastErr)
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, attempt func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return attempt(ctx)
	}
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return attempt(actx)
}

// schedule returns a fresh doubling schedule. Randomisation is disabled on
// the library side; jitter is added separately so it stays additive and
// bounded by MaxJitter.
func (e *Executor) schedule() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.cfg.InitialDelay
	b.MaxInterval = e.cfg.MaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func (e *Executor) jitter() time.Duration {
	if e.cfg.MaxJitter <= 0 {
		return 0
	}
	return e.cfg.Jitter(e.cfg.MaxJitter)
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(max)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
