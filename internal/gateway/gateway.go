// Package gateway is the caller-facing surface over the remote model. Every
// operation returns a value of its documented shape: on any failure (open
// breaker, exhausted retries, terminal error, schema violation) the
// operation's fixed fallback is returned instead and the failure is logged.
//
// Callers never see an error from this package.
package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gowebpki/jcs"

	"github.com/nyashahama/safeserve-backend/internal/ai"
	"github.com/nyashahama/safeserve-backend/internal/contract"
	"github.com/nyashahama/safeserve-backend/internal/metrics"
	"github.com/nyashahama/safeserve-backend/internal/resilience"
	"github.com/nyashahama/safeserve-backend/internal/scoring"
)

// kindSchema labels schema violations in logs and metrics. They come from
// contract, not from the executor, so they have no resilience.Kind.
const kindSchema = "schema"

// Gateway runs the nine structured operations and creates chat sessions.
// It is safe for concurrent use; the only state shared between calls is the
// executor's breaker.
type Gateway struct {
	gen     ai.Generator
	exec    *resilience.Executor
	model   scoring.Model
	metrics *metrics.Gateway
	logger  *slog.Logger
}

// New wires a Gateway. m may be nil.
func New(gen ai.Generator, exec *resilience.Executor, model scoring.Model, m *metrics.Gateway, logger *slog.Logger) *Gateway {
	return &Gateway{
		gen:     gen,
		exec:    exec,
		model:   model,
		metrics: m,
		logger:  logger,
	}
}

// Model returns the risk model used to seed and cross-check predictions.
func (g *Gateway) Model() scoring.Model { return g.model }

// Breaker reports the shared quota breaker.
func (g *Gateway) Breaker() resilience.BreakerState {
	return g.exec.Breaker().State()
}

// ResetBreaker closes the quota breaker ahead of its cooldown.
func (g *Gateway) ResetBreaker() {
	g.exec.Breaker().Reset()
	g.logger.Info("gateway: quota breaker reset by operator")
}

// ─── PIPELINE ─────────────────────────────────────────────────────────────────

// invoke is the shared per-call pipeline: breaker-gated, retried generation
// followed by contract validation. The caller substitutes the fallback when
// err is non-nil; invoke has already logged and counted the failure.
func invoke[T any](ctx context.Context, g *Gateway, op contract.Operation, payload any, req ai.Request) (T, []ai.Source, error) {
	start := time.Now()
	log := g.logger.With("operation", string(op), "digest", digest(payload))

	req.Schema = contract.Schema(op)

	resp, err := resilience.Execute(ctx, g.exec, string(op), func(ctx context.Context) (ai.Response, error) {
		return g.gen.Generate(ctx, req)
	})

	var out T
	if err == nil {
		out, err = contract.Decode[T](op, resp.Text)
	}
	if err != nil {
		g.recordFailure(log, op, err, time.Since(start))
		var zero T
		return zero, nil, err
	}

	elapsed := time.Since(start)
	g.metrics.ObserveCall(string(op), metrics.OutcomeSuccess, elapsed)
	log.Debug("gateway: call succeeded", "elapsed_ms", elapsed.Milliseconds())
	return out, resp.Sources, nil
}

// recordFailure logs and counts a call that is about to be served its fallback.
func (g *Gateway) recordFailure(log *slog.Logger, op contract.Operation, err error, elapsed time.Duration) {
	kind := failureKind(err)
	if kind == string(resilience.KindQuota) {
		g.metrics.BreakerTripped()
	}
	g.metrics.ObserveFailure(string(op), kind)
	g.metrics.ObserveCall(string(op), metrics.OutcomeFallback, elapsed)

	log.Warn("gateway: serving fallback",
		"kind", kind,
		"attempts", resilience.AttemptsOf(err),
		"elapsed_ms", elapsed.Milliseconds(),
		"error", err,
	)
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, contract.ErrSchemaViolation):
		return kindSchema
	case errors.Is(err, ErrInvalidImage):
		return string(resilience.KindTerminal)
	}
	return string(resilience.KindOf(err))
}

// digest returns a short RFC 8785 canonical hash of payload so log lines for
// identical inputs correlate across calls.
func digest(payload any) string {
	if payload == nil {
		return ""
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])[:16]
}

func userPrompt(text string) []ai.Message {
	return []ai.Message{{Role: ai.RoleUser, Text: text}}
}
