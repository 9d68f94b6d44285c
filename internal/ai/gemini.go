package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// DefaultGeminiModel is the model every gateway operation targets unless
// GEMINI_MODEL overrides it.
const DefaultGeminiModel = "gemini-3-flash-preview"

const geminiBaseURL = "https://generativelanguage.googleapis.com"

// geminiClient is the Generator backed by the Gemini generateContent REST API.
type geminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewGeminiClient returns a Generator that calls the Gemini API.
//   - apiKey: your GEMINI_API_KEY
//   - model:  e.g. "gemini-3-flash-preview"
func NewGeminiClient(apiKey, model string, opts ...Option) Generator {
	o := buildOptions(geminiBaseURL, opts)
	return &geminiClient{
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimSuffix(o.baseURL, "/"),
		httpClient: o.httpClient,
	}
}

func (c *geminiClient) Name() string { return "gemini" }

// ─── GEMINI API SHAPES ────────────────────────────────────────────────────────

type geminiRequest struct {
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	Contents          []geminiContent         `json:"contents"`
	Tools             []geminiTool            `json:"tools,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *geminiBlob `json:"inlineData,omitempty"`
	Thought    bool        `json:"thought,omitempty"`
}

type geminiBlob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiTool struct {
	GoogleSearch *struct{} `json:"googleSearch,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseMimeType   string          `json:"responseMimeType,omitempty"`
	ResponseJSONSchema json.RawMessage `json:"responseJsonSchema,omitempty"`
	MaxOutputTokens    int             `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content           geminiContent `json:"content"`
		FinishReason      string        `json:"finishReason"`
		GroundingMetadata *struct {
			GroundingChunks []struct {
				Web *struct {
					URI   string `json:"uri"`
					Title string `json:"title"`
				} `json:"web"`
			} `json:"groundingChunks"`
		} `json:"groundingMetadata"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// ─── IMPLEMENTATION ───────────────────────────────────────────────────────────

// Generate sends one generateContent request.
func (c *geminiClient) Generate(ctx context.Context, req Request) (Response, error) {
	body := geminiRequest{
		Contents: make([]geminiContent, 0, len(req.Messages)),
		GenerationConfig: &geminiGenerationConfig{
			MaxOutputTokens: req.MaxTokens,
		},
	}
	if req.System != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	for _, m := range req.Messages {
		content := geminiContent{Role: string(m.Role)}
		if m.Image != nil {
			content.Parts = append(content.Parts, geminiPart{
				InlineData: &geminiBlob{MimeType: m.Image.MIMEType, Data: m.Image.Data},
			})
		}
		if m.Text != "" {
			content.Parts = append(content.Parts, geminiPart{Text: m.Text})
		}
		body.Contents = append(body.Contents, content)
	}
	if len(req.Schema) > 0 {
		body.GenerationConfig.ResponseMimeType = "application/json"
		body.GenerationConfig.ResponseJSONSchema = req.Schema
	}
	if req.Grounding {
		body.Tools = []geminiTool{{GoogleSearch: &struct{}{}}}
	}

	parsed, err := c.call(ctx, body)
	if err != nil {
		return Response{}, err
	}

	var out Response
	if len(parsed.Candidates) == 0 {
		return out, nil
	}
	cand := parsed.Candidates[0]

	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		if p.Thought {
			continue
		}
		sb.WriteString(p.Text)
	}
	out.Text = sb.String()

	if cand.GroundingMetadata != nil {
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk.Web == nil || chunk.Web.URI == "" {
				continue
			}
			out.Sources = append(out.Sources, Source{URI: chunk.Web.URI, Title: chunk.Web.Title})
		}
	}
	return out, nil
}

// call sends one request to the generateContent endpoint.
func (c *geminiClient) call(ctx context.Context, reqBody geminiRequest) (geminiResponse, error) {
	var parsed geminiResponse

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return parsed, fmt.Errorf("gemini: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return parsed, fmt.Errorf("gemini: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return parsed, fmt.Errorf("gemini: http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return parsed, fmt.Errorf("gemini: read response body: %w", err)
	}

	// Error bodies from the load balancer are not always JSON, so the status
	// code is checked before the body is required to parse.
	jsonErr := json.Unmarshal(respBytes, &parsed)

	if resp.StatusCode != http.StatusOK || parsed.Error != nil {
		se := &StatusError{Provider: "gemini", Code: resp.StatusCode}
		if parsed.Error != nil {
			se.Status = parsed.Error.Status
			se.Message = parsed.Error.Message
			if parsed.Error.Code != 0 {
				se.Code = parsed.Error.Code
			}
		} else {
			se.Message = fmt.Sprintf("%.200s", respBytes)
		}
		return parsed, se
	}
	if jsonErr != nil {
		return parsed, fmt.Errorf("gemini: unmarshal response: %w", jsonErr)
	}
	return parsed, nil
}
