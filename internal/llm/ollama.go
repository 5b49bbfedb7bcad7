package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stackpilot/stackpilot-backend/internal/platform/logger"
)

const (
	defaultOllamaBaseURL = "http://127.0.0.1:11434"
	defaultOllamaModel   = "llama3:instruct"
)

// OllamaClient calls a local Ollama server.
type OllamaClient struct {
	baseURL string
	model   string
	t       *transport
}

func NewOllamaClient(opt Options, log *logger.Logger) *OllamaClient {
	baseURL := strings.TrimRight(strings.TrimSpace(opt.OllamaURL), "/")
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	model := strings.TrimSpace(opt.OllamaModel)
	if model == "" {
		model = defaultOllamaModel
	}
	return &OllamaClient{baseURL: baseURL, model: model, t: newTransport(opt, log)}
}

func (c *OllamaClient) Name() string { return "ollama" }

func (c *OllamaClient) GenerateText(ctx context.Context, system, user string) (string, error) {
	var resp ollamaChunk
	req := ollamaRequest{Model: c.model, System: system, Prompt: user, Stream: false}
	if err := c.t.postJSON(ctx, c.Name(), c.baseURL+"/api/generate", nil, req, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("ollama api error: %s", resp.Error)
	}
	return resp.Response, nil
}

func (c *OllamaClient) GenerateObject(ctx context.Context, req ObjectRequest) (string, error) {
	var resp ollamaChunk
	body := ollamaRequest{Model: c.model, System: req.System, Prompt: req.User, Format: req.Schema, Stream: false}
	if err := c.t.postJSON(ctx, c.Name(), c.baseURL+"/api/generate", nil, body, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("ollama api error: %s", resp.Error)
	}
	return resp.Response, nil
}

// StreamObject reads Ollama's newline-delimited JSON stream.
func (c *OllamaClient) StreamObject(ctx context.Context, req ObjectRequest, onDelta func(string) error) (string, error) {
	body := ollamaRequest{Model: c.model, System: req.System, Prompt: req.User, Format: req.Schema, Stream: true}
	resp, err := c.t.open(ctx, c.Name(), c.baseURL+"/api/generate", nil, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out strings.Builder
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var chunk ollamaChunk
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			return out.String(), fmt.Errorf("ollama stream decode: %w", err)
		}
		if chunk.Error != "" {
			return out.String(), fmt.Errorf("ollama api error: %s", chunk.Error)
		}
		if chunk.Response != "" {
			out.WriteString(chunk.Response)
			if err := onDelta(chunk.Response); err != nil {
				return out.String(), err
			}
		}
		if chunk.Done {
			return out.String(), nil
		}
	}
	if err := sc.Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out.String(), ctxErr
		}
		return out.String(), err
	}
	return out.String(), nil
}

type ollamaRequest struct {
	Model  string         `json:"model"`
	System string         `json:"system,omitempty"`
	Prompt string         `json:"prompt"`
	Format map[string]any `json:"format,omitempty"`
	Stream bool           `json:"stream"`
}

type ollamaChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}
