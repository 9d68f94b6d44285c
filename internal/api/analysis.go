package api

import (
	"net/http"
	"strings"

	"github.com/nyashahama/safeserve-backend/internal/dashboard"
	"github.com/nyashahama/safeserve-backend/internal/gateway"
	"github.com/nyashahama/safeserve-backend/internal/scoring"
)

// ─── POST /api/risk/score ─────────────────────────────────────────────────────

type riskScoreResponse struct {
	Score int               `json:"score"`
	Level scoring.RiskLevel `json:"level"`
}

// handleRiskScore computes the rule-based score locally. No model call.
func (s *Server) handleRiskScore(w http.ResponseWriter, r *http.Request) {
	var req scoring.RiskFactors
	if !decode(w, r, &req) {
		return
	}
	score := s.gw.Model().Compute(req)
	respond(w, http.StatusOK, riskScoreResponse{Score: score, Level: scoring.Level(score)})
}

// ─── POST /api/vendor/explain ─────────────────────────────────────────────────

func (s *Server) handleExplainVendor(w http.ResponseWriter, r *http.Request) {
	var req gateway.VendorFactors
	if !decode(w, r, &req) {
		return
	}
	respond(w, http.StatusOK, s.gw.ExplainVendorRisk(r.Context(), req))
}

// ─── POST /api/outbreak/predict ───────────────────────────────────────────────

func (s *Server) handlePredictOutbreak(w http.ResponseWriter, r *http.Request) {
	var req scoring.RiskFactors
	if !decode(w, r, &req) {
		return
	}
	respond(w, http.StatusOK, s.gw.PredictOutbreakRisk(r.Context(), req))
}

// ─── POST /api/incidents/* ────────────────────────────────────────────────────

type symptomsRequest struct {
	Symptoms []string `json:"symptoms"`
}

// decodeSymptoms reads a symptoms body, dropping blank entries. At least one
// symptom is required.
func decodeSymptoms(w http.ResponseWriter, r *http.Request) ([]string, bool) {
	var req symptomsRequest
	if !decode(w, r, &req) {
		return nil, false
	}
	symptoms := nonBlank(req.Symptoms)
	if len(symptoms) == 0 {
		respondErr(w, http.StatusBadRequest, "symptoms must not be empty")
		return nil, false
	}
	return symptoms, true
}

func (s *Server) handleSymptomKnowledge(w http.ResponseWriter, r *http.Request) {
	symptoms, ok := decodeSymptoms(w, r)
	if !ok {
		return
	}
	respond(w, http.StatusOK, s.gw.SymptomKnowledge(r.Context(), symptoms))
}

func (s *Server) handleTriageIncident(w http.ResponseWriter, r *http.Request) {
	symptoms, ok := decodeSymptoms(w, r)
	if !ok {
		return
	}
	respond(w, http.StatusOK, s.gw.TriageIncident(r.Context(), symptoms))
}

// handleIncidentReport runs triage and the knowledge lookup together.
func (s *Server) handleIncidentReport(w http.ResponseWriter, r *http.Request) {
	symptoms, ok := decodeSymptoms(w, r)
	if !ok {
		return
	}
	respond(w, http.StatusOK, s.loader.Incident(r.Context(), symptoms))
}

// ─── POST /api/kitchen/audit ──────────────────────────────────────────────────

type kitchenAuditRequest struct {
	// Image is base64 or a data: URL. An undecodable image yields the audit
	// fallback, not a 400.
	Image string `json:"image"`
}

func (s *Server) handleKitchenAudit(w http.ResponseWriter, r *http.Request) {
	var req kitchenAuditRequest
	if !decode(w, r, &req) {
		return
	}
	respond(w, http.StatusOK, s.gw.AuditKitchenPhoto(r.Context(), req.Image))
}

// ─── POST /api/sentiment/scan ─────────────────────────────────────────────────

type sentimentScanRequest struct {
	Posts []string `json:"posts"`
}

func (s *Server) handleSentimentScan(w http.ResponseWriter, r *http.Request) {
	var req sentimentScanRequest
	if !decode(w, r, &req) {
		return
	}
	posts := nonBlank(req.Posts)
	if len(posts) == 0 {
		respondErr(w, http.StatusBadRequest, "posts must not be empty")
		return
	}
	respond(w, http.StatusOK, s.gw.ScanSentiment(r.Context(), posts))
}

// ─── GET endpoints ────────────────────────────────────────────────────────────

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, s.gw.AssessRegions(r.Context()))
}

func (s *Server) handleSustainabilityImpact(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, s.gw.SustainabilityImpact(r.Context()))
}

func (s *Server) handleSustainabilityActions(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, s.gw.SustainabilityActions(r.Context()))
}

// ─── GET|POST /api/dashboard ──────────────────────────────────────────────────

// handleDashboard loads the regulator overview. A POST body replaces the
// default inputs; fields it omits keep their defaults.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	req := dashboard.DefaultOverviewRequest()
	if r.Method == http.MethodPost && !decode(w, r, &req) {
		return
	}
	respond(w, http.StatusOK, s.loader.Overview(r.Context(), req))
}

// ─── HELPERS ─────────────────────────────────────────────────────────────────

func nonBlank(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
