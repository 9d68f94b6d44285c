// Package scoring implements the deterministic outbreak risk model: a
// weighted linear combination of clamped factors normalised to 0–100. It is
// intentionally dependency-free: it imports nothing from internal/ and can be
// called synchronously from any request path.
package scoring

import "math"

// ─── TYPES ────────────────────────────────────────────────────────────────────

// RiskFactors are the structured inputs to the model. All fields are expected
// to be non-negative; negative and NaN values are treated as zero.
type RiskFactors struct {
	SchoolReports  float64 `json:"schoolReports"`  // incident reports from schools, capped at 20 by default
	AvgSeverity    float64 `json:"avgSeverity"`    // 0–10
	SentimentSpike float64 `json:"sentimentSpike"` // percentage
	HygieneDeficit float64 `json:"hygieneDeficit"` // percentage points below target
	IoTAnomalies   float64 `json:"iotAnomalies"`   // cold-chain sensor anomalies
}

// RiskLevel is the four-band classification used by the dashboard colours.
type RiskLevel string

const (
	LevelLow      RiskLevel = "LOW"
	LevelModerate RiskLevel = "MODERATE"
	LevelHigh     RiskLevel = "HIGH"
	LevelCritical RiskLevel = "CRITICAL"
)

// Band upper bounds (inclusive).
const (
	lowCeiling      = 40
	moderateCeiling = 70
	highCeiling     = 85
)

// ─── CORE FUNCTIONS ───────────────────────────────────────────────────────────

// normalise clamps v to [0, cap] and maps it onto the 0–100 axis.
func normalise(v float64, c Component) float64 {
	if math.IsNaN(v) || v < 0 {
		v = 0
	}
	if v > c.Cap {
		v = c.Cap
	}
	return math.Min(v*c.Scale, 100)
}

// Compute returns the weighted risk score in [0, 100], rounded to the nearest
// integer. It never fails and has no side effects. Every component weight is
// non-negative, so the result is non-decreasing in each factor.
func (m Model) Compute(f RiskFactors) int {
	score := normalise(f.SchoolReports, m.SchoolReports)*m.SchoolReports.Weight +
		normalise(f.AvgSeverity, m.AvgSeverity)*m.AvgSeverity.Weight +
		normalise(f.SentimentSpike, m.SentimentSpike)*m.SentimentSpike.Weight +
		normalise(f.HygieneDeficit, m.HygieneDeficit)*m.HygieneDeficit.Weight +
		normalise(f.IoTAnomalies, m.IoTAnomalies)*m.IoTAnomalies.Weight

	return clampScore(int(math.Round(score)))
}

// ComputeRisk scores f with DefaultModel.
func ComputeRisk(f RiskFactors) int {
	return DefaultModel().Compute(f)
}

// clampScore constrains a score to [0, 100].
func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Level buckets a score into LOW / MODERATE / HIGH / CRITICAL.
func Level(score int) RiskLevel {
	switch {
	case score <= lowCeiling:
		return LevelLow
	case score <= moderateCeiling:
		return LevelModerate
	case score <= highCeiling:
		return LevelHigh
	default:
		return LevelCritical
	}
}
