package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nyashahama/safeserve-backend/internal/contract"
)

// ─── GET /api/breaker ─────────────────────────────────────────────────────────

func (s *Server) handleBreakerState(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, s.gw.Breaker())
}

// ─── POST /api/breaker/reset ──────────────────────────────────────────────────

// handleBreakerReset closes the quota gate early, e.g. after a billing fix.
func (s *Server) handleBreakerReset(w http.ResponseWriter, r *http.Request) {
	s.gw.ResetBreaker()
	s.logger.Info("api: breaker reset by operator", logField(r))
	respond(w, http.StatusOK, s.gw.Breaker())
}

// ─── GET /api/contracts ───────────────────────────────────────────────────────

func (s *Server) handleListContracts(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string][]contract.Operation{"operations": contract.Operations})
}

// ─── GET /api/contracts/:operation ────────────────────────────────────────────

type contractResponse struct {
	Operation contract.Operation `json:"operation"`
	Schema    json.RawMessage    `json:"schema"`
	Fallback  any                `json:"fallback"`
}

// handleGetContract returns the schema a model reply must satisfy and the
// value served in its place when it does not.
func (s *Server) handleGetContract(w http.ResponseWriter, r *http.Request) {
	op := contract.Operation(chi.URLParam(r, "operation"))
	schema := contract.Schema(op)
	if schema == nil {
		respondErr(w, http.StatusNotFound, "unknown operation")
		return
	}
	respond(w, http.StatusOK, contractResponse{
		Operation: op,
		Schema:    schema,
		Fallback:  contract.Fallback(op),
	})
}
