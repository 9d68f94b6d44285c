// Package dashboard composes gateway operations that a screen loads together
// and runs them concurrently. Because gateway operations never fail, every
// panel is always filled, with live data or with its fallback.
package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nyashahama/safeserve-backend/internal/contract"
	"github.com/nyashahama/safeserve-backend/internal/gateway"
	"github.com/nyashahama/safeserve-backend/internal/scoring"
)

// Analyst is the subset of the gateway the loader needs. *gateway.Gateway
// satisfies it; tests inject a stub.
type Analyst interface {
	PredictOutbreakRisk(ctx context.Context, f scoring.RiskFactors) contract.PredictiveRisk
	AssessRegions(ctx context.Context) contract.RegionalAssessment
	ExplainVendorRisk(ctx context.Context, f gateway.VendorFactors) contract.VendorRiskExplanation
	TriageIncident(ctx context.Context, symptoms []string) contract.IncidentTriage
	SymptomKnowledge(ctx context.Context, symptoms []string) contract.SymptomKnowledge
}

// ─── INPUTS ───────────────────────────────────────────────────────────────────

// OverviewRequest holds the inputs of the regulator overview.
type OverviewRequest struct {
	Factors scoring.RiskFactors   `json:"factors"`
	Vendor  gateway.VendorFactors `json:"vendor"`
}

// DefaultOverviewRequest is the district's steady-state input set.
func DefaultOverviewRequest() OverviewRequest {
	return OverviewRequest{
		Factors: scoring.RiskFactors{
			SchoolReports:  3,
			AvgSeverity:    6.5,
			SentimentSpike: 25,
			HygieneDeficit: 8,
			IoTAnomalies:   2,
		},
		Vendor: gateway.VendorFactors{IncidentCount: 1, HygieneScore: 78, TempAnomalies: 4},
	}
}

// ─── RESULTS ──────────────────────────────────────────────────────────────────

// Overview is the regulator dashboard payload.
type Overview struct {
	LocalScore int                            `json:"localScore"`
	LocalLevel scoring.RiskLevel              `json:"localLevel"`
	Predictive contract.PredictiveRisk        `json:"predictive"`
	Regions    contract.RegionalAssessment    `json:"regions"`
	Vendor     contract.VendorRiskExplanation `json:"vendor"`
	ElapsedMS  int64                          `json:"elapsedMs"`
}

// IncidentReport is the school portal's combined incident analysis.
type IncidentReport struct {
	Triage    contract.IncidentTriage   `json:"triage"`
	Knowledge contract.SymptomKnowledge `json:"knowledge"`
}

// ─── LOADER ───────────────────────────────────────────────────────────────────

// Loader fans gateway calls out in parallel.
type Loader struct {
	analyst Analyst
	model   scoring.Model
	logger  *slog.Logger
}

// NewLoader constructs a Loader. model computes the local score shown next to
// the model's prediction.
func NewLoader(analyst Analyst, model scoring.Model, logger *slog.Logger) *Loader {
	return &Loader{analyst: analyst, model: model, logger: logger}
}

// Overview loads the predictive score, regional assessment and vendor
// explanation concurrently and returns once all three are in.
func (l *Loader) Overview(ctx context.Context, req OverviewRequest) Overview {
	start := time.Now()
	score := l.model.Compute(req.Factors)
	out := Overview{LocalScore: score, LocalLevel: scoring.Level(score)}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		out.Predictive = l.analyst.PredictOutbreakRisk(ctx, req.Factors)
	}()
	go func() {
		defer wg.Done()
		out.Regions = l.analyst.AssessRegions(ctx)
	}()
	go func() {
		defer wg.Done()
		out.Vendor = l.analyst.ExplainVendorRisk(ctx, req.Vendor)
	}()
	wg.Wait()

	out.ElapsedMS = time.Since(start).Milliseconds()
	l.logger.Debug("dashboard: overview loaded",
		"local_score", score,
		"regions_fallback", out.Regions.IsFallback,
		"elapsed_ms", out.ElapsedMS,
	)
	return out
}

// Incident triages a report and looks up likely causes concurrently.
func (l *Loader) Incident(ctx context.Context, symptoms []string) IncidentReport {
	var out IncidentReport

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		out.Triage = l.analyst.TriageIncident(ctx, symptoms)
	}()
	go func() {
		defer wg.Done()
		out.Knowledge = l.analyst.SymptomKnowledge(ctx, symptoms)
	}()
	wg.Wait()

	return out
}
