package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/stackpilot/stackpilot-backend/internal/platform/logger"
)

// ObjectRequest asks for a JSON document conforming to Schema.
type ObjectRequest struct {
	System string
	User   string
	Schema map[string]any
}

// Provider is the model capability the plan pipeline depends on.
type Provider interface {
	Name() string
	// GenerateText returns free-form text.
	GenerateText(ctx context.Context, system, user string) (string, error)
	// GenerateObject returns the full JSON document in one response.
	GenerateObject(ctx context.Context, req ObjectRequest) (string, error)
	// StreamObject calls onDelta with each text fragment as it arrives and
	// returns the concatenated text. An error from onDelta aborts the stream.
	StreamObject(ctx context.Context, req ObjectRequest, onDelta func(string) error) (string, error)
}

type Options struct {
	Provider          string
	GeminiAPIKey      string
	GeminiModel       string
	GeminiBaseURL     string
	OllamaURL         string
	OllamaModel       string
	MaxRetries        int
	RequestTimeout    time.Duration
	RequestsPerSecond float64
}

func New(opt Options, log *logger.Logger) (Provider, error) {
	switch strings.ToLower(opt.Provider) {
	case "gemini":
		return NewGeminiClient(opt, log)
	case "ollama":
		return NewOllamaClient(opt, log), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", opt.Provider)
	}
}

func newPacer(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
