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

const deepseekBaseURL = "https://api.deepseek.com"

// deepseekClient is the Generator backed by the DeepSeek API.
// DeepSeek exposes an OpenAI-compatible /v1/chat/completions endpoint, so the
// request/response shapes are standard OpenAI chat format.
type deepseekClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewDeepSeekClient returns a Generator that calls the DeepSeek API.
//   - apiKey: your DEEPSEEK_API_KEY
//   - model:  e.g. "deepseek-chat"
func NewDeepSeekClient(apiKey, model string, opts ...Option) Generator {
	o := buildOptions(deepseekBaseURL, opts)
	return &deepseekClient{
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimSuffix(o.baseURL, "/"),
		httpClient: o.httpClient,
	}
}

func (c *deepseekClient) Name() string { return "deepseek" }

// ─── OPENAI-COMPATIBLE API SHAPES ────────────────────────────────────────────

type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// responseFormat instructs the model to return valid JSON.
// DeepSeek honours {"type": "json_object"} the same way OpenAI does.
type responseFormat struct {
	Type string `json:"type"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// ─── IMPLEMENTATION ───────────────────────────────────────────────────────────

// Generate calls the chat completions endpoint. Images are rejected; the
// chat models are text-only.
func (c *deepseekClient) Generate(ctx context.Context, req Request) (Response, error) {
	body := openAIRequest{
		Model:     c.model,
		MaxTokens: maxTokens(req),
		Messages:  make([]openAIMessage, 0, len(req.Messages)+1),
	}

	system := req.System
	if len(req.Schema) > 0 {
		// json_object mode requires the word "json" somewhere in the prompt;
		// the schema instruction provides it.
		system += schemaInstruction(req.Schema)
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	if system != "" {
		body.Messages = append(body.Messages, openAIMessage{Role: "system", Content: system})
	}

	for _, m := range req.Messages {
		if m.Image != nil {
			return Response{}, fmt.Errorf("deepseek: %w", ErrImageUnsupported)
		}
		role := "user"
		if m.Role == RoleModel {
			role = "assistant"
		}
		body.Messages = append(body.Messages, openAIMessage{Role: role, Content: m.Text})
	}

	text, err := c.call(ctx, body)
	if err != nil {
		return Response{}, err
	}
	return Response{Text: text}, nil
}

// call sends one request to the DeepSeek chat completions endpoint and returns
// the text content of the first choice.
func (c *deepseekClient) call(ctx context.Context, reqBody openAIRequest) (string, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("deepseek: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/chat/completions",
		bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return "", fmt.Errorf("deepseek: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepseek: http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", fmt.Errorf("deepseek: read response: %w", err)
	}

	var parsed openAIResponse
	jsonErr := json.Unmarshal(respBytes, &parsed)

	if resp.StatusCode != http.StatusOK || parsed.Error != nil {
		se := &StatusError{Provider: "deepseek", Code: resp.StatusCode}
		if parsed.Error != nil {
			se.Status = parsed.Error.Type
			se.Message = parsed.Error.Message
		} else {
			se.Message = fmt.Sprintf("%.200s", respBytes)
		}
		return "", se
	}
	if jsonErr != nil {
		return "", fmt.Errorf("deepseek: unmarshal response: %w", jsonErr)
	}

	if len(parsed.Choices) == 0 {
		return "", nil
	}
	return parsed.Choices[0].Message.Content, nil
}
