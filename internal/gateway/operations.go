package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/nyashahama/safeserve-backend/internal/ai"
	"github.com/nyashahama/safeserve-backend/internal/contract"
	"github.com/nyashahama/safeserve-backend/internal/scoring"
)

// divergenceThreshold is how far the model's outbreak score may stray from
// the local RiskModel score before it is logged as suspicious.
const divergenceThreshold = 30

// VendorFactors are the inputs to a vendor risk explanation.
type VendorFactors struct {
	IncidentCount int     `json:"incidentCount"`
	HygieneScore  float64 `json:"hygieneScore"`
	TempAnomalies int     `json:"tempAnomalies"`
}

// ─── VENDORS & OUTBREAKS ──────────────────────────────────────────────────────

// ExplainVendorRisk explains why a vendor is high-risk.
func (g *Gateway) ExplainVendorRisk(ctx context.Context, f VendorFactors) contract.VendorRiskExplanation {
	prompt := fmt.Sprintf(
		"Provide an expert food safety explanation for why a vendor is high-risk based on these factors: "+
			"Incidents: %d, Hygiene Score: %g, Temp Anomalies: %d. Be concise and authoritative.",
		f.IncidentCount, f.HygieneScore, f.TempAnomalies,
	)
	v, _, err := invoke[contract.VendorRiskExplanation](ctx, g, contract.OpVendorRiskExplanation, f,
		ai.Request{Messages: userPrompt(prompt)})
	if err != nil {
		return contract.FallbackVendorRiskExplanation()
	}
	return v
}

// predictiveInput is the metrics block sent with a predictive score request.
type predictiveInput struct {
	scoring.RiskFactors
	CalculatedBase int `json:"calculatedBase"`
}

// PredictOutbreakRisk asks the model for a district outbreak risk score. The
// locally computed score is sent along as calculatedBase and used to flag
// answers that disagree with it sharply.
func (g *Gateway) PredictOutbreakRisk(ctx context.Context, f scoring.RiskFactors) contract.PredictiveRisk {
	in := predictiveInput{RiskFactors: f, CalculatedBase: g.model.Compute(f)}
	metricsJSON, _ := json.Marshal(in)

	prompt := "Analyze these metrics and calculate a District Outbreak Risk Score (0-100). " +
		"Provide reasoning for the score. Metrics: " + string(metricsJSON)

	v, _, err := invoke[contract.PredictiveRisk](ctx, g, contract.OpPredictiveScore, in,
		ai.Request{Messages: userPrompt(prompt)})
	if err != nil {
		return contract.FallbackPredictiveRisk()
	}

	if diff := math.Abs(v.Score - float64(in.CalculatedBase)); diff > divergenceThreshold {
		g.logger.Warn("gateway: model score diverges from local risk model",
			"operation", string(contract.OpPredictiveScore),
			"model_score", v.Score,
			"local_score", in.CalculatedBase,
			"local_level", scoring.Level(in.CalculatedBase),
		)
	}
	return v
}

// ─── INCIDENTS ────────────────────────────────────────────────────────────────

// SymptomKnowledge maps symptoms to likely causes and safety protocols.
func (g *Gateway) SymptomKnowledge(ctx context.Context, symptoms []string) contract.SymptomKnowledge {
	prompt := fmt.Sprintf(
		"For these symptoms: %s, provide likely causes and immediate safety protocols.",
		strings.Join(symptoms, ", "),
	)
	v, _, err := invoke[contract.SymptomKnowledge](ctx, g, contract.OpSymptomKnowledge, symptoms,
		ai.Request{Messages: userPrompt(prompt)})
	if err != nil {
		return contract.FallbackSymptomKnowledge()
	}
	return v
}

// TriageIncident scores the severity of a food poisoning incident.
func (g *Gateway) TriageIncident(ctx context.Context, symptoms []string) contract.IncidentTriage {
	prompt := fmt.Sprintf(
		"Analyze the severity of a food poisoning incident with these symptoms: %s. "+
			"Rate severity on a 1-10 scale.",
		strings.Join(symptoms, ", "),
	)
	v, _, err := invoke[contract.IncidentTriage](ctx, g, contract.OpIncidentTriage, symptoms,
		ai.Request{Messages: userPrompt(prompt)})
	if err != nil {
		return contract.FallbackIncidentTriage()
	}
	return v
}

// ─── KITCHEN AUDIT ────────────────────────────────────────────────────────────

// ErrInvalidImage is returned by ParseImage for input that is not a base64
// encoded image.
var ErrInvalidImage = errors.New("invalid image payload")

// ParseImage accepts raw base64 or a data: URL and returns the inline image
// with its detected MIME type.
func ParseImage(encoded string) (*ai.InlineImage, error) {
	encoded = strings.TrimSpace(encoded)
	if strings.HasPrefix(encoded, "data:") {
		_, after, ok := strings.Cut(encoded, ",")
		if !ok {
			return nil, fmt.Errorf("%w: malformed data URL", ErrInvalidImage)
		}
		encoded = after
	}
	if encoded == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidImage)
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	mime := http.DetectContentType(raw)
	if !strings.HasPrefix(mime, "image/") {
		return nil, fmt.Errorf("%w: content type %s", ErrInvalidImage, mime)
	}
	return &ai.InlineImage{MIMEType: mime, Data: encoded}, nil
}

// AuditKitchenPhoto assesses hygiene compliance from a kitchen photo. Input
// that does not decode to an image is a terminal request error: the fallback
// is returned without contacting the model.
func (g *Gateway) AuditKitchenPhoto(ctx context.Context, imageBase64 string) contract.KitchenAudit {
	img, err := ParseImage(imageBase64)
	if err != nil {
		g.recordFailure(g.logger.With("operation", string(contract.OpKitchenPhotoAudit)),
			contract.OpKitchenPhotoAudit, err, 0)
		return contract.FallbackKitchenAudit()
	}

	req := ai.Request{Messages: []ai.Message{{
		Role:  ai.RoleUser,
		Image: img,
		Text: "Analyze this kitchen/food preparation area for hygiene compliance. " +
			"Provide a score from 0-100 and list observations.",
	}}}
	v, _, err := invoke[contract.KitchenAudit](ctx, g, contract.OpKitchenPhotoAudit, imageBase64, req)
	if err != nil {
		return contract.FallbackKitchenAudit()
	}
	return v
}

// ─── SENTIMENT & REGIONS ──────────────────────────────────────────────────────

// ScanSentiment looks for program risk signals in social media posts.
func (g *Gateway) ScanSentiment(ctx context.Context, posts []string) contract.SentimentScan {
	prompt := "Analyze these social media posts for mentions of the MBG program risk. " +
		"Rate overall risk from 0 to 10 and list geographic clusters of complaints: \n\n" +
		strings.Join(posts, "\n---\n")
	v, _, err := invoke[contract.SentimentScan](ctx, g, contract.OpSentimentScan, posts,
		ai.Request{Messages: userPrompt(prompt)})
	if err != nil {
		return contract.FallbackSentimentScan()
	}
	return v
}

// AssessRegions produces the regional risk table using search grounding. The
// grounding sources are returned alongside the data.
func (g *Gateway) AssessRegions(ctx context.Context) contract.RegionalAssessment {
	prompt := "Analyze current food safety risks across Indonesian regions for the MBG " +
		"(Makan Bergizi Gratis) program. Provide data for Jakarta Raya, Jawa Barat, " +
		"Jawa Timur, Sumatera Utara, and Sulawesi Selatan."

	v, sources, err := invoke[contract.RegionalPayload](ctx, g, contract.OpRegionalAssessment, nil,
		ai.Request{Messages: userPrompt(prompt), Grounding: true})
	if err != nil {
		return contract.FallbackRegionalAssessment()
	}

	out := contract.RegionalAssessment{
		Data:    v.Data,
		Sources: make([]contract.Source, 0, len(sources)),
	}
	for _, s := range sources {
		out.Sources = append(out.Sources, contract.Source{URI: s.URI, Title: s.Title})
	}
	return out
}

// ─── SUSTAINABILITY ───────────────────────────────────────────────────────────

// SustainabilityImpact estimates this month's sustainability gains.
func (g *Gateway) SustainabilityImpact(ctx context.Context) contract.SustainabilityImpact {
	prompt := fmt.Sprintf(
		"Estimate the sustainability impact of the MBG program in Jakarta for %s. "+
			"Focus on CO2 reduction and meal recovery.",
		time.Now().Format("January 2006"),
	)
	v, _, err := invoke[contract.SustainabilityImpact](ctx, g, contract.OpSustainabilityImpact, nil,
		ai.Request{Messages: userPrompt(prompt)})
	if err != nil {
		return contract.FallbackSustainabilityImpact()
	}
	return v
}

// SustainabilityActions recommends data-driven actions for vendors.
func (g *Gateway) SustainabilityActions(ctx context.Context) []contract.SustainabilityAction {
	prompt := "Suggest 3 data-driven sustainability actions for the MBG program vendors " +
		"based on typical food waste patterns in school lunches."
	v, _, err := invoke[[]contract.SustainabilityAction](ctx, g, contract.OpSustainabilityActions, nil,
		ai.Request{Messages: userPrompt(prompt)})
	if err != nil {
		return contract.FallbackSustainabilityActions()
	}
	return v
}
