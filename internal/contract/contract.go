// Package contract defines the response shape of every gateway operation: a
// Go type, the JSON Schema the remote model must satisfy, and a fixed
// fallback value of the same type.
//
// A response is accepted only if it parses as JSON, validates against the
// operation's schema, and unmarshals into the Go type. Anything less is a
// schema violation; partial objects are never returned.
package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonschema"
)

// ErrSchemaViolation is wrapped by every Decode failure.
var ErrSchemaViolation = errors.New("schema violation")

type entry struct {
	raw    json.RawMessage
	schema *jsonschema.Schema
}

var registry = map[Operation]entry{
	OpVendorRiskExplanation: mustCompile(schemaVendorRiskExplanation),
	OpPredictiveScore:       mustCompile(schemaPredictiveScore),
	OpSymptomKnowledge:      mustCompile(schemaSymptomKnowledge),
	OpIncidentTriage:        mustCompile(schemaIncidentTriage),
	OpKitchenPhotoAudit:     mustCompile(schemaKitchenPhotoAudit),
	OpSentimentScan:         mustCompile(schemaSentimentScan),
	OpRegionalAssessment:    mustCompile(schemaRegionalAssessment),
	OpSustainabilityImpact:  mustCompile(schemaSustainabilityImpact),
	OpSustainabilityActions: mustCompile(schemaSustainabilityActions),
}

// mustCompile panics on a bad schema literal; it runs at package init so a
// broken schema fails every test immediately.
func mustCompile(src string) entry {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile([]byte(src))
	if err != nil {
		panic(fmt.Sprintf("contract: compile schema: %v", err))
	}
	return entry{raw: json.RawMessage(src), schema: schema}
}

// Schema returns the JSON Schema document for op, or nil for operations that
// have none (the chat session).
func Schema(op Operation) json.RawMessage {
	e, ok := registry[op]
	if !ok {
		return nil
	}
	return e.raw
}

// Validate checks raw JSON against op's schema.
func Validate(op Operation, data []byte) error {
	e, ok := registry[op]
	if !ok {
		return fmt.Errorf("contract: unknown operation %q", op)
	}
	if !json.Valid(data) {
		return fmt.Errorf("contract: %s: %w: malformed JSON (%.120s)", op, ErrSchemaViolation, data)
	}
	result := e.schema.ValidateJSON(data)
	if !result.IsValid() {
		return fmt.Errorf("contract: %s: %w: %v", op, ErrSchemaViolation, result.Errors)
	}
	return nil
}

// Decode parses the model's text output for op into T. Markdown fences the
// model may wrap around its JSON are stripped first.
func Decode[T any](op Operation, text string) (T, error) {
	var out T

	body := StripFences(text)
	if body == "" {
		return out, fmt.Errorf("contract: %s: %w: empty response", op, ErrSchemaViolation)
	}
	if err := Validate(op, []byte(body)); err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return out, fmt.Errorf("contract: %s: %w: %v", op, ErrSchemaViolation, err)
	}
	return out, nil
}

// StripFences removes a surrounding ```json … ``` block, if any.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
