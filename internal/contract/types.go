package contract

// Operation identifies one remote-call type.
type Operation string

const (
	OpVendorRiskExplanation Operation = "vendor-risk-explanation"
	OpPredictiveScore       Operation = "predictive-score"
	OpSymptomKnowledge      Operation = "symptom-knowledge"
	OpIncidentTriage        Operation = "incident-triage"
	OpKitchenPhotoAudit     Operation = "kitchen-photo-audit"
	OpSentimentScan         Operation = "sentiment-scan"
	OpRegionalAssessment    Operation = "regional-assessment"
	OpSustainabilityImpact  Operation = "sustainability-impact"
	OpSustainabilityActions Operation = "sustainability-actions"
	OpChatSession           Operation = "chat-session"
)

// Operations lists every structured operation, in dashboard order. The chat
// session is excluded: its replies are free text.
var Operations = []Operation{
	OpVendorRiskExplanation,
	OpPredictiveScore,
	OpSymptomKnowledge,
	OpIncidentTriage,
	OpKitchenPhotoAudit,
	OpSentimentScan,
	OpRegionalAssessment,
	OpSustainabilityImpact,
	OpSustainabilityActions,
}

// ─── RESPONSE SHAPES ──────────────────────────────────────────────────────────
// JSON names match what the dashboard already binds to.

// VendorRiskExplanation explains why a vendor is flagged.
type VendorRiskExplanation struct {
	Summary string   `json:"summary"`
	Details []string `json:"details"`
	Urgency string   `json:"urgency"`
}

// PredictiveRisk is the district outbreak risk score with its reasoning.
type PredictiveRisk struct {
	Score                float64  `json:"score"`
	RiskLevel            string   `json:"riskLevel"`
	Explanation          []string `json:"explanation"`
	PrimaryFactors       []string `json:"primaryFactors"`
	RecommendedThreshold float64  `json:"recommendedThreshold"`
}

// SymptomKnowledge maps reported symptoms to likely causes and protocols.
type SymptomKnowledge struct {
	LikelyCauses       []string `json:"likelyCauses"`
	SuggestedProtocols []string `json:"suggestedProtocols"`
	UrgencyLevel       string   `json:"urgencyLevel"`
}

// IncidentTriage scores the severity of a food poisoning incident.
type IncidentTriage struct {
	Severity         float64  `json:"severity"` // 1–10
	Urgency          string   `json:"urgency"`
	ImmediateActions []string `json:"immediateActions"`
}

// KitchenAudit is the hygiene assessment of a kitchen photo.
type KitchenAudit struct {
	Score           float64  `json:"score"`
	Observations    []string `json:"observations"`
	Recommendations []string `json:"recommendations"`
	Passed          bool     `json:"passed"`
}

// SentimentCluster is one geographic cluster of complaints.
type SentimentCluster struct {
	Location string `json:"location"`
	Issue    string `json:"issue"`
	Severity string `json:"severity"`
}

// SentimentScan summarises social media risk on a 0–10 scale.
type SentimentScan struct {
	RiskLevel        float64            `json:"riskLevel"`
	DetectedClusters []SentimentCluster `json:"detectedClusters"`
}

// RegionRisk is one row of the regional assessment table.
type RegionRisk struct {
	Region        string  `json:"region"`
	Risk          string  `json:"risk"`
	Score         float64 `json:"score"`
	Status        string  `json:"status"`
	Concern       string  `json:"concern"`
	ActiveVendors int     `json:"activeVendors"`
}

// RegionalPayload is what the model returns for a regional assessment.
type RegionalPayload struct {
	Data []RegionRisk `json:"data"`
}

// Source is a web page the model grounded its answer on.
type Source struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// RegionalAssessment is the caller-facing regional result. Sources come from
// search grounding metadata, not from the model's JSON.
type RegionalAssessment struct {
	Data       []RegionRisk `json:"data"`
	Sources    []Source     `json:"sources"`
	IsFallback bool         `json:"isFallback"`
}

// SustainabilityImpact estimates the program's monthly sustainability gains.
type SustainabilityImpact struct {
	CO2AvoidedKg      float64 `json:"co2AvoidedKg"`
	MealsSaved        float64 `json:"mealsSaved"`
	WasteReductionPct float64 `json:"wasteReductionPct"`
}

// ProjectedDelta is the expected effect of a sustainability action.
type ProjectedDelta struct {
	Waste string `json:"waste"`
	CO2   string `json:"co2"`
	Meals string `json:"meals"`
	Score string `json:"score"`
}

// SustainabilityAction is one recommended vendor action.
type SustainabilityAction struct {
	ID                string         `json:"id"`
	Priority          string         `json:"priority"`
	Vendor            string         `json:"vendor"`
	Action            string         `json:"action"`
	Confidence        string         `json:"confidence"`
	Target            string         `json:"target"`
	ExpectedReduction string         `json:"expectedReduction"`
	Status            string         `json:"status"`
	WhySuggested      []string       `json:"whySuggested"`
	EvidenceScore     string         `json:"evidenceScore"`
	ProjectedDelta    ProjectedDelta `json:"projectedDelta"`
}
