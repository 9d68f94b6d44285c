package contract

// ─── FALLBACKS ────────────────────────────────────────────────────────────────
// Each function returns a fresh value so callers may mutate what they get.
// Every fallback validates against its own operation's schema.

// FallbackVendorRiskExplanation is served when a vendor explanation fails.
func FallbackVendorRiskExplanation() VendorRiskExplanation {
	return VendorRiskExplanation{
		Summary: "High variance in safety metrics detected.",
		Details: []string{
			"Significant hygiene score degradation compared to previous audits.",
			"Recurrent temperature spikes in cold storage units.",
			"Correlation with localized student illness reports.",
		},
		Urgency: "CRITICAL",
	}
}

// FallbackPredictiveRisk is a neutral MODERATE prediction with the standard alert threshold.
func FallbackPredictiveRisk() PredictiveRisk {
	return PredictiveRisk{
		Score:     42,
		RiskLevel: "MODERATE",
		Explanation: []string{
			"Baseline analysis based on historical safety records.",
			"Automated intelligence in standby due to high volume.",
		},
		PrimaryFactors:       []string{"System Normalcy"},
		RecommendedThreshold: 80,
	}
}

// FallbackSymptomKnowledge gives generic foodborne-illness protocols.
func FallbackSymptomKnowledge() SymptomKnowledge {
	return SymptomKnowledge{
		LikelyCauses: []string{"Common Foodborne Pathogens"},
		SuggestedProtocols: []string{
			"Isolate batch samples",
			"Monitor hydration levels",
			"Notify district health officer",
		},
		UrgencyLevel: "Elevated",
	}
}

// FallbackIncidentTriage rates an incident mid-scale until a human reviews it.
func FallbackIncidentTriage() IncidentTriage {
	return IncidentTriage{
		Severity:         5,
		Urgency:          "MODERATE",
		ImmediateActions: []string{"Monitor patients", "Contact local health office"},
	}
}

// FallbackKitchenAudit is returned when the photo cannot be analysed.
func FallbackKitchenAudit() KitchenAudit {
	return KitchenAudit{
		Score:           70,
		Observations:    []string{"Automated vision system offline. Manual verification required."},
		Recommendations: []string{"Perform internal hygiene checklist"},
		Passed:          true,
	}
}

// FallbackSentimentScan reports a low risk level and no clusters.
func FallbackSentimentScan() SentimentScan {
	return SentimentScan{RiskLevel: 3.4, DetectedClusters: []SentimentCluster{}}
}

// FallbackRegions is the static five-region table served when the live
// assessment is unavailable.
func FallbackRegions() []RegionRisk {
	return []RegionRisk{
		{Region: "Jakarta Raya", Risk: "Low", Score: 18, Status: "Stable", Concern: "General Logistics", ActiveVendors: 1420},
		{Region: "Jawa Barat", Risk: "Low", Score: 22, Status: "Optimal", Concern: "Certification Gaps", ActiveVendors: 2150},
		{Region: "Jawa Timur", Risk: "Low", Score: 15, Status: "Stable", Concern: "None Detected", ActiveVendors: 1890},
		{Region: "Sumatera Utara", Risk: "Moderate", Score: 38, Status: "Monitoring", Concern: "Sourcing Delays", ActiveVendors: 850},
		{Region: "Sulawesi Selatan", Risk: "Low", Score: 12, Status: "Stable", Concern: "None Detected", ActiveVendors: 420},
	}
}

// FallbackRegionalAssessment wraps FallbackRegions with no sources and IsFallback set.
func FallbackRegionalAssessment() RegionalAssessment {
	return RegionalAssessment{Data: FallbackRegions(), Sources: []Source{}, IsFallback: true}
}

// FallbackSustainabilityImpact holds last published monthly figures.
func FallbackSustainabilityImpact() SustainabilityImpact {
	return SustainabilityImpact{CO2AvoidedKg: 2430, MealsSaved: 14205, WasteReductionPct: 18.4}
}

// FallbackSustainabilityActions is a single standing recommendation.
func FallbackSustainabilityActions() []SustainabilityAction {
	return []SustainabilityAction{{
		ID:                "GOV-001",
		Priority:          "HIGH",
		Vendor:            "Barokah Foods",
		Action:            "Implement portion calibration for high-waste fish menus.",
		Confidence:        "0.94",
		Target:            "West Jakarta Cluster",
		ExpectedReduction: "12%",
		Status:            "Recommended",
		WhySuggested: []string{
			"Historical waste spike in fish menus",
			"Over-portioning detected in school feedback",
		},
		EvidenceScore:  "0.91",
		ProjectedDelta: ProjectedDelta{Waste: "-12%", CO2: "45kg", Meals: "210", Score: "+5"},
	}}
}

// Fallback returns op's fallback as an untyped value, in the shape the
// model would have produced. Served by GET /api/contracts/{operation}.
func Fallback(op Operation) any {
	switch op {
	case OpVendorRiskExplanation:
		return FallbackVendorRiskExplanation()
	case OpPredictiveScore:
		return FallbackPredictiveRisk()
	case OpSymptomKnowledge:
		return FallbackSymptomKnowledge()
	case OpIncidentTriage:
		return FallbackIncidentTriage()
	case OpKitchenPhotoAudit:
		return FallbackKitchenAudit()
	case OpSentimentScan:
		return FallbackSentimentScan()
	case OpRegionalAssessment:
		return RegionalPayload{Data: FallbackRegions()}
	case OpSustainabilityImpact:
		return FallbackSustainabilityImpact()
	case OpSustainabilityActions:
		return FallbackSustainabilityActions()
	}
	return nil
}
