// Package api implements the HTTP layer of the SafeServe gateway.
// Handlers are methods on *Server. Each handler file is responsible for one
// resource group and only imports the dependencies it actually uses.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nyashahama/safeserve-backend/internal/dashboard"
	"github.com/nyashahama/safeserve-backend/internal/gateway"
	"github.com/nyashahama/safeserve-backend/internal/metrics"
	"github.com/nyashahama/safeserve-backend/internal/session"
)

// defaultRequestTimeout leaves room for a full retry schedule behind one
// request: three 90s attempts plus backoff.
const defaultRequestTimeout = 5 * time.Minute

// Config holds values read from environment variables at startup.
type Config struct {
	// Env is "production", "staging", or "development".
	Env string

	// CORSOrigin is the allowed origin in production. Other environments
	// echo the caller's Origin.
	CORSOrigin string

	// RequestTimeout bounds every request. Zero uses five minutes.
	RequestTimeout time.Duration
}

// Server holds all shared dependencies. Each handler file attaches methods to
// this type and uses only the fields it needs.
type Server struct {
	// gw runs every model-backed operation. Its methods never fail.
	gw *gateway.Gateway

	// loader fans dashboard panels out concurrently.
	loader *dashboard.Loader

	// sessions holds live chat conversations.
	sessions *session.Registry

	// metrics is exposed on /metrics. May be nil.
	metrics *metrics.Gateway

	cfg    Config
	logger *slog.Logger
}

// NewServer constructs the Server and wires the chi router. The returned
// http.Handler is ready to pass to http.Server.
func NewServer(
	gw *gateway.Gateway,
	loader *dashboard.Loader,
	sessions *session.Registry,
	m *metrics.Gateway,
	cfg Config,
	logger *slog.Logger,
) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	s := &Server{
		gw:       gw,
		loader:   loader,
		sessions: sessions,
		metrics:  m,
		cfg:      cfg,
		logger:   logger,
	}

	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// ── Global middleware ─────────────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))

	// ── Health & metrics ──────────────────────────────────────────────────────
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", s.metrics.Handler())

	// ── API v1 ────────────────────────────────────────────────────────────────
	r.Route("/api", func(r chi.Router) {

		// Local scoring, no model call.
		r.Post("/risk/score", s.handleRiskScore)

		// Structured operations. Every one answers 200, with live data or
		// with the operation's fallback.
		r.Post("/vendor/explain", s.handleExplainVendor)
		r.Post("/outbreak/predict", s.handlePredictOutbreak)
		r.Post("/incidents/knowledge", s.handleSymptomKnowledge)
		r.Post("/incidents/triage", s.handleTriageIncident)
		r.Post("/incidents/report", s.handleIncidentReport)
		r.Post("/kitchen/audit", s.handleKitchenAudit)
		r.Post("/sentiment/scan", s.handleSentimentScan)
		r.Get("/regions/assessment", s.handleRegions)
		r.Get("/sustainability/impact", s.handleSustainabilityImpact)
		r.Get("/sustainability/actions", s.handleSustainabilityActions)

		// Dashboard. GET uses the district's default inputs.
		r.Get("/dashboard", s.handleDashboard)
		r.Post("/dashboard", s.handleDashboard)

		// Chat sessions.
		r.Post("/chat", s.handleCreateChat)
		r.Route("/chat/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetChat)
			r.Delete("/", s.handleDeleteChat)
			r.Post("/messages", s.handleSendMessage)
		})

		// Operator surface.
		r.Get("/breaker", s.handleBreakerState)
		// Unauthenticated, so never mounted in production.
		if s.cfg.Env != "production" {
			r.Post("/breaker/reset", s.handleBreakerReset)
		}
		r.Get("/contracts", s.handleListContracts)
		r.Get("/contracts/{operation}", s.handleGetContract)
	})

	return r
}
