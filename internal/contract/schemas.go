package contract

// JSON Schemas for each operation. The same document is sent to the model as
// its structured-output schema and used to validate what comes back, so keep
// to the keyword subset the hosted APIs accept: type, properties, required,
// items, minItems, minimum, maximum.

const stringArray = `{"type": "array", "items": {"type": "string"}}`
const nonEmptyStringArray = `{"type": "array", "items": {"type": "string"}, "minItems": 1}`

var schemaVendorRiskExplanation = `{
  "type": "object",
  "properties": {
    "summary": {"type": "string"},
    "details": ` + nonEmptyStringArray + `,
    "urgency": {"type": "string"}
  },
  "required": ["summary", "details", "urgency"]
}`

var schemaPredictiveScore = `{
  "type": "object",
  "properties": {
    "score": {"type": "number", "minimum": 0, "maximum": 100},
    "riskLevel": {"type": "string"},
    "explanation": ` + nonEmptyStringArray + `,
    "primaryFactors": ` + stringArray + `,
    "recommendedThreshold": {"type": "number", "minimum": 0, "maximum": 100}
  },
  "required": ["score", "riskLevel", "explanation", "primaryFactors", "recommendedThreshold"]
}`

var schemaSymptomKnowledge = `{
  "type": "object",
  "properties": {
    "likelyCauses": ` + nonEmptyStringArray + `,
    "suggestedProtocols": ` + nonEmptyStringArray + `,
    "urgencyLevel": {"type": "string"}
  },
  "required": ["likelyCauses", "suggestedProtocols", "urgencyLevel"]
}`

var schemaIncidentTriage = `{
  "type": "object",
  "properties": {
    "severity": {"type": "number", "minimum": 1, "maximum": 10},
    "urgency": {"type": "string"},
    "immediateActions": ` + nonEmptyStringArray + `
  },
  "required": ["severity", "urgency", "immediateActions"]
}`

var schemaKitchenPhotoAudit = `{
  "type": "object",
  "properties": {
    "score": {"type": "number", "minimum": 0, "maximum": 100},
    "observations": ` + nonEmptyStringArray + `,
    "recommendations": ` + stringArray + `,
    "passed": {"type": "boolean"}
  },
  "required": ["score", "observations", "recommendations", "passed"]
}`

var schemaSentimentScan = `{
  "type": "object",
  "properties": {
    "riskLevel": {"type": "number", "minimum": 0, "maximum": 10},
    "detectedClusters": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "location": {"type": "string"},
          "issue": {"type": "string"},
          "severity": {"type": "string"}
        },
        "required": ["location", "issue", "severity"]
      }
    }
  },
  "required": ["riskLevel", "detectedClusters"]
}`

var schemaRegionalAssessment = `{
  "type": "object",
  "properties": {
    "data": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "properties": {
          "region": {"type": "string"},
          "risk": {"type": "string"},
          "score": {"type": "number", "minimum": 0, "maximum": 100},
          "status": {"type": "string"},
          "concern": {"type": "string"},
          "activeVendors": {"type": "integer", "minimum": 0}
        },
        "required": ["region", "risk", "score", "status", "concern", "activeVendors"]
      }
    }
  },
  "required": ["data"]
}`

var schemaSustainabilityImpact = `{
  "type": "object",
  "properties": {
    "co2AvoidedKg": {"type": "number", "minimum": 0},
    "mealsSaved": {"type": "number", "minimum": 0},
    "wasteReductionPct": {"type": "number", "minimum": 0, "maximum": 100}
  },
  "required": ["co2AvoidedKg", "mealsSaved", "wasteReductionPct"]
}`

var schemaSustainabilityActions = `{
  "type": "array",
  "minItems": 1,
  "items": {
    "type": "object",
    "properties": {
      "id": {"type": "string"},
      "priority": {"type": "string"},
      "vendor": {"type": "string"},
      "action": {"type": "string"},
      "confidence": {"type": "string"},
      "target": {"type": "string"},
      "expectedReduction": {"type": "string"},
      "status": {"type": "string"},
      "whySuggested": ` + stringArray + `,
      "evidenceScore": {"type": "string"},
      "projectedDelta": {
        "type": "object",
        "properties": {
          "waste": {"type": "string"},
          "co2": {"type": "string"},
          "meals": {"type": "string"},
          "score": {"type": "string"}
        },
        "required": ["waste", "co2", "meals", "score"]
      }
    },
    "required": ["id", "priority", "vendor", "action", "confidence", "target",
      "expectedReduction", "status", "whySuggested", "evidenceScore", "projectedDelta"]
  }
}`
