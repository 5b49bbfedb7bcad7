package bootstrap

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/stackpilot/stackpilot-backend/internal/api/http"
	"github.com/stackpilot/stackpilot-backend/internal/api/http/middleware"
	"github.com/stackpilot/stackpilot-backend/internal/auth"
	planshttp "github.com/stackpilot/stackpilot-backend/internal/plans/http"
	"github.com/stackpilot/stackpilot-backend/internal/platform/logger"
)

type RouterDeps struct {
	ServiceName    string
	Version        string
	AllowedOrigins []string
	PingSecret     string

	DBPing   httpapi.Probe
	Redis    redis.UniversalClient
	Verifier auth.Verifier
	Services *Services
	Log      *logger.Logger
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID(dep.Log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     dep.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders:    []string{middleware.HeaderRequestID, "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-Plan-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	health := httpapi.HealthOptions{
		ServiceName: dep.ServiceName,
		Version:     dep.Version,
		DB:          dep.DBPing,
		PingSecret:  dep.PingSecret,
	}
	if dep.Redis != nil {
		health.Cache = func(ctx context.Context) error { return dep.Redis.Ping(ctx).Err() }
		health.CachePing = func(ctx context.Context) (string, error) { return dep.Redis.Ping(ctx).Result() }
	}
	httpapi.NewHealthHandler(health, dep.Log).RegisterRoutes(r)

	plans := planshttp.New(dep.Services.Generation, dep.Services.Plans, dep.Log.With("component", "http"))
	plans.Register(r,
		auth.Middleware(dep.Verifier, auth.Optional, dep.Log),
		auth.Middleware(dep.Verifier, auth.Required, dep.Log))

	return r
}
