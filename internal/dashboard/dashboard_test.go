package dashboard_test

import (
	"context"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nyashahama/safeserve-backend/internal/ai"
	"github.com/nyashahama/safeserve-backend/internal/contract"
	"github.com/nyashahama/safeserve-backend/internal/dashboard"
	"github.com/nyashahama/safeserve-backend/internal/gateway"
	"github.com/nyashahama/safeserve-backend/internal/resilience"
	"github.com/nyashahama/safeserve-backend/internal/scoring"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ─── STUBS ────────────────────────────────────────────────────────────────────

// slowAnalyst blocks every call until release is closed, so the test can see
// that all panels are in flight at once.
type slowAnalyst struct {
	inFlight atomic.Int32
	release  chan struct{}
}

func (s *slowAnalyst) enter() {
	s.inFlight.Add(1)
	<-s.release
	s.inFlight.Add(-1)
}

func (s *slowAnalyst) PredictOutbreakRisk(context.Context, scoring.RiskFactors) contract.PredictiveRisk {
	s.enter()
	return contract.PredictiveRisk{Score: 55, RiskLevel: "MODERATE", Explanation: []string{"live"}}
}

func (s *slowAnalyst) AssessRegions(context.Context) contract.RegionalAssessment {
	s.enter()
	return contract.RegionalAssessment{Data: contract.FallbackRegions()[:1]}
}

func (s *slowAnalyst) ExplainVendorRisk(context.Context, gateway.VendorFactors) contract.VendorRiskExplanation {
	s.enter()
	return contract.VendorRiskExplanation{Summary: "live", Details: []string{"d"}, Urgency: "LOW"}
}

func (s *slowAnalyst) TriageIncident(context.Context, []string) contract.IncidentTriage {
	s.enter()
	return contract.IncidentTriage{Severity: 2, Urgency: "LOW", ImmediateActions: []string{"watch"}}
}

func (s *slowAnalyst) SymptomKnowledge(context.Context, []string) contract.SymptomKnowledge {
	s.enter()
	return contract.SymptomKnowledge{LikelyCauses: []string{"Norovirus"}, SuggestedProtocols: []string{"p"}, UrgencyLevel: "Low"}
}

type failingGenerator struct {
	mu    sync.Mutex
	calls int
}

func (f *failingGenerator) Generate(context.Context, ai.Request) (ai.Response, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return ai.Response{}, &ai.StatusError{Provider: "stub", Code: 400, Message: "bad request"}
}

func (f *failingGenerator) Name() string { return "failing" }

// ─── TESTS ────────────────────────────────────────────────────────────────────

func TestOverview_RunsPanelsConcurrently(t *testing.T) {
	analyst := &slowAnalyst{release: make(chan struct{})}
	loader := dashboard.NewLoader(analyst, scoring.DefaultModel(), discardLogger())

	done := make(chan dashboard.Overview, 1)
	go func() { done <- loader.Overview(context.Background(), dashboard.DefaultOverviewRequest()) }()

	deadline := time.After(2 * time.Second)
	for analyst.inFlight.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d panels in flight at once, want 3", analyst.inFlight.Load())
		default:
			time.Sleep(time.Millisecond)
		}
	}
	close(analyst.release)

	out := <-done
	if out.Predictive.Score != 55 || out.Vendor.Summary != "live" || len(out.Regions.Data) != 1 {
		t.Errorf("unexpected overview: %+v", out)
	}
	if out.LocalScore != scoring.ComputeRisk(dashboard.DefaultOverviewRequest().Factors) {
		t.Errorf("LocalScore = %d", out.LocalScore)
	}
	if out.LocalLevel != scoring.Level(out.LocalScore) {
		t.Errorf("LocalLevel = %s", out.LocalLevel)
	}
}

func TestOverview_AllPanelsFilledWhenEveryCallFails(t *testing.T) {
	gen := &failingGenerator{}
	exec := resilience.NewExecutor(resilience.RetryConfig{}, resilience.NewBreaker(0, nil), discardLogger())
	gw := gateway.New(gen, exec, scoring.DefaultModel(), nil, discardLogger())
	loader := dashboard.NewLoader(gw, scoring.DefaultModel(), discardLogger())

	out := loader.Overview(context.Background(), dashboard.DefaultOverviewRequest())

	if !reflect.DeepEqual(out.Predictive, contract.FallbackPredictiveRisk()) {
		t.Errorf("predictive panel = %+v", out.Predictive)
	}
	if !reflect.DeepEqual(out.Regions, contract.FallbackRegionalAssessment()) {
		t.Errorf("regions panel = %+v", out.Regions)
	}
	if !reflect.DeepEqual(out.Vendor, contract.FallbackVendorRiskExplanation()) {
		t.Errorf("vendor panel = %+v", out.Vendor)
	}
	if gen.calls != 3 {
		t.Errorf("terminal errors should give one call per panel, got %d", gen.calls)
	}
}

func TestIncident_RunsBothConcurrently(t *testing.T) {
	analyst := &slowAnalyst{release: make(chan struct{})}
	loader := dashboard.NewLoader(analyst, scoring.DefaultModel(), discardLogger())

	done := make(chan dashboard.IncidentReport, 1)
	go func() { done <- loader.Incident(context.Background(), []string{"Fever"}) }()

	deadline := time.After(2 * time.Second)
	for analyst.inFlight.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("triage and knowledge lookup should run together")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	close(analyst.release)

	out := <-done
	if out.Triage.Severity != 2 || out.Knowledge.LikelyCauses[0] != "Norovirus" {
		t.Errorf("unexpected report: %+v", out)
	}
}
