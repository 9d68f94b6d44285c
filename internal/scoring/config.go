package scoring

import (
	"encoding/json"
	"fmt"
	"math"
)

// weightTolerance absorbs float rounding when weights are read from JSON.
const weightTolerance = 1e-6

// Component holds the scoring parameters for one risk factor.
//
// JSON shape:
//
//	{ "cap": 20, "scale": 5, "weight": 0.3 }
//
// The factor value is clamped to [0, Cap], multiplied by Scale to land on a
// 0–100 axis, then weighted.
type Component struct {
	Cap    float64 `json:"cap"`
	Scale  float64 `json:"scale"`
	Weight float64 `json:"weight"`
}

func (c Component) validate(name string) error {
	if c.Cap <= 0 {
		return fmt.Errorf("risk model: %s cap must be > 0, got %v", name, c.Cap)
	}
	if c.Scale <= 0 {
		return fmt.Errorf("risk model: %s scale must be > 0, got %v", name, c.Scale)
	}
	if c.Cap*c.Scale > 100+weightTolerance {
		return fmt.Errorf("risk model: %s cap*scale=%v exceeds 100", name, c.Cap*c.Scale)
	}
	if c.Weight < 0 || math.IsNaN(c.Weight) {
		return fmt.Errorf("risk model: %s weight must be >= 0, got %v", name, c.Weight)
	}
	return nil
}

// Model is the full weighted-sum configuration. DefaultModel mirrors the
// regulator dashboard's rule-based panel (30/20/20/15/15).
//
// JSON shape:
//
//	{
//	  "school_reports":  { "cap": 20,  "scale": 5,  "weight": 0.30 },
//	  "avg_severity":    { "cap": 10,  "scale": 10, "weight": 0.20 },
//	  "sentiment_spike": { "cap": 100, "scale": 1,  "weight": 0.20 },
//	  "hygiene_deficit": { "cap": 100, "scale": 1,  "weight": 0.15 },
//	  "iot_anomalies":   { "cap": 10,  "scale": 10, "weight": 0.15 }
//	}
type Model struct {
	SchoolReports  Component `json:"school_reports"`
	AvgSeverity    Component `json:"avg_severity"`
	SentimentSpike Component `json:"sentiment_spike"`
	HygieneDeficit Component `json:"hygiene_deficit"`
	IoTAnomalies   Component `json:"iot_anomalies"`
}

// DefaultModel returns the stock weights.
func DefaultModel() Model {
	return Model{
		SchoolReports:  Component{Cap: 20, Scale: 5, Weight: 0.30},
		AvgSeverity:    Component{Cap: 10, Scale: 10, Weight: 0.20},
		SentimentSpike: Component{Cap: 100, Scale: 1, Weight: 0.20},
		HygieneDeficit: Component{Cap: 100, Scale: 1, Weight: 0.15},
		IoTAnomalies:   Component{Cap: 10, Scale: 10, Weight: 0.15},
	}
}

func (m Model) components() []struct {
	name string
	c    Component
} {
	return []struct {
		name string
		c    Component
	}{
		{"school_reports", m.SchoolReports},
		{"avg_severity", m.AvgSeverity},
		{"sentiment_spike", m.SentimentSpike},
		{"hygiene_deficit", m.HygieneDeficit},
		{"iot_anomalies", m.IoTAnomalies},
	}
}

// Validate checks every component and that the weights sum to 1.0. Call it
// once at startup, not per computation.
func (m Model) Validate() error {
	sum := 0.0
	for _, nc := range m.components() {
		if err := nc.c.validate(nc.name); err != nil {
			return err
		}
		sum += nc.c.Weight
	}
	if math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("risk model: weights sum to %v, want 1.0", sum)
	}
	return nil
}

// ParseModel unmarshals a JSON model definition. Components missing from the
// blob keep their default values, so a partial override such as
// {"school_reports":{"cap":30,...}} only needs to rebalance the weights.
func ParseModel(raw json.RawMessage) (Model, error) {
	if len(raw) == 0 {
		return Model{}, fmt.Errorf("risk model: empty JSON")
	}
	m := DefaultModel()
	if err := json.Unmarshal(raw, &m); err != nil {
		return Model{}, fmt.Errorf("risk model: cannot unmarshal: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Model{}, err
	}
	return m, nil
}
