// Package ai defines the transport-neutral interface for calling a hosted
// generative model, plus concrete clients for Gemini, Anthropic and DeepSeek.
//
// Clients do one HTTP round trip per Generate call. Retries, cooldowns and
// response validation live above this package.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Role is the author of one conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// InlineImage is a base64-encoded image attached to a user turn.
type InlineImage struct {
	MIMEType string
	Data     string // base64, no data: prefix
}

// Message is one turn of a conversation. Image is only honoured on user
// turns and only by providers that accept images.
type Message struct {
	Role  Role
	Text  string
	Image *InlineImage
}

// Request is a single generation request.
type Request struct {
	// System is the system instruction. May be empty.
	System string

	// Messages is the conversation so far, oldest first. The last message
	// must be from the user.
	Messages []Message

	// Schema, when set, asks for JSON output conforming to this JSON Schema.
	// Providers without native structured output get it in the prompt.
	Schema json.RawMessage

	// Grounding enables web-search grounding where the provider supports it.
	Grounding bool

	// MaxTokens caps the output length. Zero means the client default.
	MaxTokens int
}

// Source is a web page the model cited through search grounding.
type Source struct {
	URI   string
	Title string
}

// Response is the model output for one Request.
type Response struct {
	// Text is the concatenated text of the first candidate. It may be empty
	// when the model produced nothing usable; that is not an error.
	Text string

	// Sources is populated only for grounded requests.
	Sources []Source
}

// Generator is the interface the gateway uses to reach a model.
// Tests inject a stub that returns canned responses.
type Generator interface {
	// Generate performs one request. A non-nil error means no usable
	// response was received; its HTTP status, if any, is available through
	// a *StatusError in the chain.
	//
	// Implementations must be safe to call concurrently.
	Generate(ctx context.Context, req Request) (Response, error)

	// Name identifies the provider in logs.
	Name() string
}

// ErrImageUnsupported is returned by providers that cannot accept images.
var ErrImageUnsupported = errors.New("provider does not accept images")

// StatusError is a non-2xx response from a provider API.
type StatusError struct {
	Provider string
	Code     int    // HTTP status
	Status   string // provider status string, e.g. "RESOURCE_EXHAUSTED"
	Message  string
}

func (e *StatusError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("%s: status %d %s: %s", e.Provider, e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Code, e.Message)
}

// StatusCode lets the resilience layer classify the error without importing
// this package.
func (e *StatusError) StatusCode() int { return e.Code }

// ─── CLIENT OPTIONS ───────────────────────────────────────────────────────────

const (
	defaultTimeout   = 90 * time.Second
	defaultMaxTokens = 2048
	maxResponseBody  = 1 << 20 // 1 MB cap
)

type clientOptions struct {
	baseURL    string
	httpClient *http.Client
}

// Option customises a provider client.
type Option func(*clientOptions)

// WithBaseURL points the client at a different API host. Used by tests and
// by deployments that route through a proxy.
func WithBaseURL(url string) Option {
	return func(o *clientOptions) { o.baseURL = url }
}

// WithHTTPClient replaces the default client, which has a 90s timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

func buildOptions(defaultBase string, opts []Option) clientOptions {
	o := clientOptions{
		baseURL:    defaultBase,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// schemaInstruction is appended to the system prompt for providers that take
// the output schema as text.
func schemaInstruction(schema json.RawMessage) string {
	return "\n\nRespond ONLY with valid JSON matching this JSON Schema, no markdown fences, no preamble:\n" +
		string(schema)
}

func maxTokens(req Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return defaultMaxTokens
}
