package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stackpilot/stackpilot-backend/internal/platform/logger"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-2.5-flash"
)

// GeminiClient calls the Gemini REST API.
type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
	t       *transport
}

func NewGeminiClient(opt Options, log *logger.Logger) (*GeminiClient, error) {
	apiKey := strings.TrimSpace(opt.GeminiAPIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key required")
	}
	model := strings.TrimPrefix(strings.TrimSpace(opt.GeminiModel), "models/")
	if model == "" {
		model = defaultGeminiModel
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opt.GeminiBaseURL), "/")
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	return &GeminiClient{apiKey: apiKey, model: model, baseURL: baseURL, t: newTransport(opt, log)}, nil
}

func (c *GeminiClient) Name() string { return "gemini" }

func (c *GeminiClient) GenerateText(ctx context.Context, system, user string) (string, error) {
	var resp geminiResponse
	if err := c.t.postJSON(ctx, c.Name(), c.url("generateContent"), c.headers(), c.request(system, user, nil), &resp); err != nil {
		return "", err
	}
	return resp.text()
}

func (c *GeminiClient) GenerateObject(ctx context.Context, req ObjectRequest) (string, error) {
	var resp geminiResponse
	if err := c.t.postJSON(ctx, c.Name(), c.url("generateContent"), c.headers(), c.request(req.System, req.User, req.Schema), &resp); err != nil {
		return "", err
	}
	return resp.text()
}

func (c *GeminiClient) StreamObject(ctx context.Context, req ObjectRequest, onDelta func(string) error) (string, error) {
	resp, err := c.t.open(ctx, c.Name(), c.url("streamGenerateContent")+"?alt=sse", c.headers(), c.request(req.System, req.User, req.Schema))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out strings.Builder
	err = readSSE(resp.Body, func(_, data string) error {
		var chunk geminiResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return fmt.Errorf("gemini stream decode: %w", err)
		}
		if chunk.PromptFeedback.BlockReason != "" {
			return fmt.Errorf("gemini blocked prompt: %s", chunk.PromptFeedback.BlockReason)
		}
		delta := chunk.joinedText()
		if delta == "" {
			return nil
		}
		out.WriteString(delta)
		return onDelta(delta)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out.String(), ctxErr
		}
		return out.String(), err
	}
	return out.String(), nil
}

func (c *GeminiClient) url(method string) string {
	return fmt.Sprintf("%s/models/%s:%s", c.baseURL, c.model, method)
}

func (c *GeminiClient) headers() map[string]string {
	return map[string]string{"x-goog-api-key": c.apiKey}
}

func (c *GeminiClient) request(system, user string, schema map[string]any) geminiRequest {
	req := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: user}}}},
	}
	if strings.TrimSpace(system) != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}
	if schema != nil {
		req.GenerationConfig = &geminiGenerationConfig{
			ResponseMimeType:   "application/json",
			ResponseJSONSchema: schema,
		}
	}
	return req
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	ResponseMimeType   string         `json:"responseMimeType,omitempty"`
	ResponseJSONSchema map[string]any `json:"responseJsonSchema,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

func (r geminiResponse) joinedText() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

func (r geminiResponse) text() (string, error) {
	if r.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("gemini blocked prompt: %s", r.PromptFeedback.BlockReason)
	}
	txt := r.joinedText()
	if txt == "" {
		return "", fmt.Errorf("empty response from gemini")
	}
	return txt, nil
}
