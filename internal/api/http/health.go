package http

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/stackpilot/stackpilot-backend/internal/platform/logger"
)

const probeTimeout = time.Second

// Probe checks one dependency. A nil Probe reports "disabled".
type Probe func(ctx context.Context) error

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	DB        string    `json:"db"`
	Cache     string    `json:"cache"`
}

type HealthHandler struct {
	serviceName string
	version     string
	db          Probe
	cache       Probe
	cachePing   func(ctx context.Context) (string, error)
	pingSecret  string
	log         *logger.Logger
}

type HealthOptions struct {
	ServiceName string
	Version     string
	DB          Probe
	Cache       Probe
	// CachePing returns the raw PING reply for /ping-cache.
	CachePing  func(ctx context.Context) (string, error)
	PingSecret string
}

func NewHealthHandler(opt HealthOptions, log *logger.Logger) *HealthHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &HealthHandler{
		serviceName: opt.ServiceName,
		version:     opt.Version,
		db:          opt.DB,
		cache:       opt.Cache,
		cachePing:   opt.CachePing,
		pingSecret:  opt.PingSecret,
		log:         log,
	}
}

// HealthCheck probes the database and cache concurrently. The service is
// "degraded" rather than down when a dependency fails, since generation for
// anonymous users works without either.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()

	var dbStatus, cacheStatus string
	var g errgroup.Group
	g.Go(func() error {
		dbStatus = h.probe(ctx, "db", h.db)
		return nil
	})
	g.Go(func() error {
		cacheStatus = h.probe(ctx, "cache", h.cache)
		return nil
	})
	_ = g.Wait()

	status := "healthy"
	if dbStatus == "down" || cacheStatus == "down" {
		status = "degraded"
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		DB:        dbStatus,
		Cache:     cacheStatus,
	})
}

func (h *HealthHandler) probe(ctx context.Context, name string, p Probe) string {
	if p == nil {
		return "disabled"
	}
	if err := p(ctx); err != nil {
		h.log.WithContext(ctx).Warn("health probe failed", "dependency", name, "error", err)
		return "down"
	}
	return "up"
}

// PingCache is a secret-guarded cache probe for uptime monitors.
func (h *HealthHandler) PingCache(c *gin.Context) {
	if h.pingSecret == "" || h.cachePing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	want := "Bearer " + h.pingSecret
	if subtle.ConstantTimeCompare([]byte(c.GetHeader("Authorization")), []byte(want)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()

	reply, err := h.cachePing(ctx)
	if err != nil {
		h.log.WithContext(ctx).Error("cache ping failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "cache_ping_failed", "details": "cache did not answer"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"redis": gin.H{
			"ping":      reply,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"status":    "healthy",
		},
		"message": "cache ping successful",
	})
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
	r.GET("/ping-cache", h.PingCache)
}
