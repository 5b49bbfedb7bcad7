package bootstrap

import (
	"github.com/redis/go-redis/v9"

	"github.com/stackpilot/stackpilot-backend/config"
	"github.com/stackpilot/stackpilot-backend/internal/llm"
	"github.com/stackpilot/stackpilot-backend/internal/plans/cache"
	"github.com/stackpilot/stackpilot-backend/internal/plans/generator"
	"github.com/stackpilot/stackpilot-backend/internal/plans/service"
	"github.com/stackpilot/stackpilot-backend/internal/platform/logger"
	"github.com/stackpilot/stackpilot-backend/internal/ratelimit"
)

type Services struct {
	Generation *service.GenerationService
	Plans      *service.PlanService
	// MemoryLimiter is swept by the scheduler; it is the only limiter when
	// RATE_LIMIT_BACKEND=memory and the fallback otherwise.
	MemoryLimiter *ratelimit.MemoryLimiter
}

func BuildServices(cfg *config.Config, store service.PlanStore, rdb redis.UniversalClient, log *logger.Logger) (*Services, error) {
	provider, err := llm.New(llm.Options{
		Provider:          cfg.LLM.Provider,
		GeminiAPIKey:      cfg.LLM.GeminiAPIKey,
		GeminiModel:       cfg.LLM.GeminiModel,
		OllamaURL:         cfg.LLM.OllamaURL,
		OllamaModel:       cfg.LLM.OllamaModel,
		MaxRetries:        cfg.LLM.MaxRetries,
		RequestTimeout:    cfg.LLM.Timeout,
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
	}, log.With("component", "llm"))
	if err != nil {
		return nil, err
	}

	mem, err := ratelimit.NewMemoryLimiter(cfg.RateLimit.Max, cfg.RateLimit.Window)
	if err != nil {
		return nil, err
	}
	var limiter ratelimit.Limiter = mem
	if cfg.RateLimit.Backend == "redis" {
		rl, err := ratelimit.NewRedisLimiter(rdb, "", cfg.RateLimit.Max, cfg.RateLimit.Window)
		if err != nil {
			return nil, err
		}
		limiter = ratelimit.NewFallbackLimiter(rl, mem, log.With("component", "ratelimit"))
	}

	plans := service.NewPlanService(store, cache.NewHistoryCache(rdb, cfg.Cache.HistoryTTL), log.With("component", "plans"))
	gen := generator.New(provider, cfg.LLM.Timeout, log.With("component", "generator"))

	return &Services{
		Generation:    service.NewGenerationService(gen, plans, limiter, cache.NewStatusStore(rdb), log.With("component", "generation")),
		Plans:         plans,
		MemoryLimiter: mem,
	}, nil
}
