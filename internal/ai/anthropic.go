package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const anthropicBaseURL = "https://api.anthropic.com"

// anthropicClient is the Generator backed by the Anthropic Messages API.
type anthropicClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewAnthropicClient returns a Generator that calls the Anthropic API.
//   - apiKey: your ANTHROPIC_API_KEY
//   - model:  e.g. "claude-sonnet-4-5"
func NewAnthropicClient(apiKey, model string, opts ...Option) Generator {
	o := buildOptions(anthropicBaseURL, opts)
	return &anthropicClient{
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimSuffix(o.baseURL, "/"),
		httpClient: o.httpClient,
	}
}

func (c *anthropicClient) Name() string { return "anthropic" }

// ─── ANTHROPIC API SHAPES ─────────────────────────────────────────────────────

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string           `json:"role"`
	Content []anthropicBlock `json:"content"`
}

type anthropicBlock struct {
	Type   string           `json:"type"`
	Text   string           `json:"text,omitempty"`
	Source *anthropicSource `json:"source,omitempty"`
}

type anthropicSource struct {
	Type      string `json:"type"` // "base64"
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// ─── IMPLEMENTATION ───────────────────────────────────────────────────────────

// Generate calls the Messages API. Search grounding is not available here;
// grounded requests are answered from model knowledge with no sources.
func (c *anthropicClient) Generate(ctx context.Context, req Request) (Response, error) {
	body := anthropicRequest{
		Model:     c.model,
		MaxTokens: maxTokens(req),
		System:    req.System,
		Messages:  make([]anthropicMessage, 0, len(req.Messages)),
	}
	if len(req.Schema) > 0 {
		body.System += schemaInstruction(req.Schema)
	}

	for _, m := range req.Messages {
		role := "user"
		if m.Role == RoleModel {
			role = "assistant"
		}
		msg := anthropicMessage{Role: role}
		if m.Image != nil {
			msg.Content = append(msg.Content, anthropicBlock{
				Type: "image",
				Source: &anthropicSource{
					Type:      "base64",
					MediaType: m.Image.MIMEType,
					Data:      m.Image.Data,
				},
			})
		}
		if m.Text != "" {
			msg.Content = append(msg.Content, anthropicBlock{Type: "text", Text: m.Text})
		}
		body.Messages = append(body.Messages, msg)
	}

	text, err := c.call(ctx, body)
	if err != nil {
		return Response{}, err
	}
	return Response{Text: text}, nil
}

// call sends one request to the Anthropic Messages API and returns the
// concatenated text blocks.
func (c *anthropicClient) call(ctx context.Context, reqBody anthropicRequest) (string, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("anthropic: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/messages",
		bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return "", fmt.Errorf("anthropic: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("anthropic: http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", fmt.Errorf("anthropic: read response body: %w", err)
	}

	var parsed anthropicResponse
	jsonErr := json.Unmarshal(respBytes, &parsed)

	if resp.StatusCode != http.StatusOK || parsed.Error != nil {
		se := &StatusError{Provider: "anthropic", Code: resp.StatusCode}
		if parsed.Error != nil {
			se.Status = parsed.Error.Type
			se.Message = parsed.Error.Message
		} else {
			se.Message = fmt.Sprintf("%.200s", respBytes)
		}
		return "", se
	}
	if jsonErr != nil {
		return "", fmt.Errorf("anthropic: unmarshal response: %w", jsonErr)
	}

	var sb strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}
