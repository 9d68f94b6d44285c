package scoring_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/nyashahama/safeserve-backend/internal/scoring"
)

var (
	baseline = scoring.RiskFactors{SchoolReports: 3, AvgSeverity: 6.5, SentimentSpike: 25, HygieneDeficit: 8, IoTAnomalies: 2}
	outbreak = scoring.RiskFactors{SchoolReports: 12, AvgSeverity: 8.2, SentimentSpike: 65, HygieneDeficit: 22, IoTAnomalies: 7}
)

// ─── ComputeRisk ──────────────────────────────────────────────────────────────

func TestComputeRisk_OutbreakScoresAboveBaseline(t *testing.T) {
	b := scoring.ComputeRisk(baseline)
	o := scoring.ComputeRisk(outbreak)
	if o <= b {
		t.Errorf("outbreak score %d should exceed baseline %d", o, b)
	}
}

func TestComputeRisk_Baseline(t *testing.T) {
	// 3*5*.3 + 6.5*10*.2 + 25*.2 + 8*.15 + 2*10*.15 = 26.7
	if got := scoring.ComputeRisk(baseline); got != 27 {
		t.Errorf("baseline score = %d, want 27", got)
	}
}

func TestComputeRisk_HygieneDeficitIsAPercentage(t *testing.T) {
	// Baseline with only the deficit varied: 25.5 + 0.15*deficit.
	tests := []struct {
		deficit float64
		want    int
	}{
		{10, 27},
		{22, 29},
		{50, 33},
		{90, 39},
	}
	for _, tt := range tests {
		f := baseline
		f.HygieneDeficit = tt.deficit
		if got := scoring.ComputeRisk(f); got != tt.want {
			t.Errorf("hygieneDeficit=%v: score = %d, want %d", tt.deficit, got, tt.want)
		}
	}

	full, over := baseline, baseline
	full.HygieneDeficit, over.HygieneDeficit = 100, 500
	if scoring.ComputeRisk(full) != scoring.ComputeRisk(over) {
		t.Error("deficits beyond 100% should clamp to 100%")
	}
}

func TestComputeRisk_Bounds(t *testing.T) {
	tests := []struct {
		name string
		f    scoring.RiskFactors
		want int
	}{
		{"zero", scoring.RiskFactors{}, 0},
		{"negative treated as zero", scoring.RiskFactors{SchoolReports: -5, AvgSeverity: -1, SentimentSpike: -30}, 0},
		{"NaN treated as zero", scoring.RiskFactors{AvgSeverity: math.NaN()}, 0},
		{"everything at cap", scoring.RiskFactors{SchoolReports: 20, AvgSeverity: 10, SentimentSpike: 100, HygieneDeficit: 100, IoTAnomalies: 10}, 100},
		{"far beyond caps", scoring.RiskFactors{SchoolReports: 1e6, AvgSeverity: 1e6, SentimentSpike: 1e6, HygieneDeficit: 1e6, IoTAnomalies: 1e6}, 100},
		{"infinite anomalies", scoring.RiskFactors{IoTAnomalies: math.Inf(1)}, 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scoring.ComputeRisk(tt.f); got != tt.want {
				t.Errorf("ComputeRisk = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestComputeRisk_AlwaysInRange(t *testing.T) {
	for reports := 0.0; reports <= 30; reports += 3 {
		for sev := 0.0; sev <= 12; sev += 1.5 {
			for pct := 0.0; pct <= 120; pct += 20 {
				f := scoring.RiskFactors{
					SchoolReports:  reports,
					AvgSeverity:    sev,
					SentimentSpike: pct,
					HygieneDeficit: pct / 4,
					IoTAnomalies:   reports / 2,
				}
				got := scoring.ComputeRisk(f)
				if got < 0 || got > 100 {
					t.Fatalf("ComputeRisk(%+v) = %d, out of [0,100]", f, got)
				}
			}
		}
	}
}

func TestComputeRisk_MonotonicInEachFactor(t *testing.T) {
	bump := []struct {
		name string
		set  func(f *scoring.RiskFactors, v float64)
	}{
		{"school_reports", func(f *scoring.RiskFactors, v float64) { f.SchoolReports = v }},
		{"avg_severity", func(f *scoring.RiskFactors, v float64) { f.AvgSeverity = v }},
		{"sentiment_spike", func(f *scoring.RiskFactors, v float64) { f.SentimentSpike = v }},
		{"hygiene_deficit", func(f *scoring.RiskFactors, v float64) { f.HygieneDeficit = v }},
		{"iot_anomalies", func(f *scoring.RiskFactors, v float64) { f.IoTAnomalies = v }},
	}
	for _, b := range bump {
		t.Run(b.name, func(t *testing.T) {
			f := baseline
			prev := -1
			for v := 0.0; v <= 150; v += 0.5 {
				b.set(&f, v)
				got := scoring.ComputeRisk(f)
				if got < prev {
					t.Fatalf("score decreased from %d to %d at %s=%v", prev, got, b.name, v)
				}
				prev = got
			}
		})
	}
}

// ─── Level ────────────────────────────────────────────────────────────────────

func TestLevel(t *testing.T) {
	tests := []struct {
		score int
		want  scoring.RiskLevel
	}{
		{0, scoring.LevelLow},
		{40, scoring.LevelLow},
		{41, scoring.LevelModerate},
		{70, scoring.LevelModerate},
		{71, scoring.LevelHigh},
		{85, scoring.LevelHigh},
		{86, scoring.LevelCritical},
		{100, scoring.LevelCritical},
	}
	for _, tt := range tests {
		if got := scoring.Level(tt.score); got != tt.want {
			t.Errorf("Level(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

// ─── Model ────────────────────────────────────────────────────────────────────

func TestDefaultModel_Valid(t *testing.T) {
	if err := scoring.DefaultModel().Validate(); err != nil {
		t.Fatalf("default model invalid: %v", err)
	}
}

func TestParseModel_PartialOverrideKeepsDefaults(t *testing.T) {
	raw := json.RawMessage(`{
		"school_reports": {"cap": 20, "scale": 5, "weight": 0.40},
		"sentiment_spike": {"cap": 100, "scale": 1, "weight": 0.10}
	}`)
	m, err := scoring.ParseModel(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.SchoolReports.Weight != 0.40 {
		t.Errorf("school_reports weight = %v, want 0.40", m.SchoolReports.Weight)
	}
	if m.AvgSeverity != scoring.DefaultModel().AvgSeverity {
		t.Errorf("avg_severity should keep its default, got %+v", m.AvgSeverity)
	}

	// Reports now weigh more, so maxing them alone scores higher.
	f := scoring.RiskFactors{SchoolReports: 20}
	if m.Compute(f) <= scoring.ComputeRisk(f) {
		t.Errorf("heavier report weight should raise the score: custom=%d default=%d",
			m.Compute(f), scoring.ComputeRisk(f))
	}
}

func TestParseModel_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  json.RawMessage
	}{
		{"empty", json.RawMessage(``)},
		{"malformed", json.RawMessage(`{bad}`)},
		{"weights do not sum to one", json.RawMessage(`{"school_reports":{"cap":20,"scale":5,"weight":0.9}}`)},
		{"negative weight", json.RawMessage(`{
			"school_reports":{"cap":20,"scale":5,"weight":0.45},
			"avg_severity":{"cap":10,"scale":10,"weight":-0.05}
		}`)},
		{"cap times scale above 100", json.RawMessage(`{"iot_anomalies":{"cap":20,"scale":10,"weight":0.15}}`)},
		{"zero cap", json.RawMessage(`{"avg_severity":{"cap":0,"scale":10,"weight":0.2}}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := scoring.ParseModel(tt.raw); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
