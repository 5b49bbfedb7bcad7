package http

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stackpilot/stackpilot-backend/internal/plans/domain"
)

// errorBody maps a service error to a status and a stable error code. Details
// never carry model output or driver messages.
func errorBody(err error) (int, gin.H) {
	var (
		verr        *domain.ValidationError
		rl          *domain.RateLimitError
		schemaErr   *domain.SchemaValidationError
		timeout     *domain.TimeoutError
		dbErr       *domain.DatabaseError
		upstream    *domain.UpstreamError
		unsupported *domain.UnsupportedSchemaError
	)

	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, gin.H{"error": "invalid_input", "details": verr.Message}
	case errors.As(err, &rl):
		return http.StatusTooManyRequests, gin.H{
			"error":      "rate_limited",
			"details":    fmt.Sprintf("too many requests, try again in %d seconds", retryAfterSeconds(rl)),
			"retryAfter": retryAfterSeconds(rl),
		}
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, gin.H{"error": "unauthenticated", "details": "sign in to use this endpoint"}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, gin.H{"error": "not_found", "details": "project not found"}
	case errors.As(err, &schemaErr):
		return http.StatusInternalServerError, gin.H{"error": "generation_failed", "details": "the generated plan was incomplete, please try again"}
	case errors.As(err, &timeout):
		return http.StatusGatewayTimeout, gin.H{"error": "generation_timeout", "details": "the model took too long to respond"}
	case errors.As(err, &upstream):
		return http.StatusBadGateway, gin.H{"error": "generation_failed", "details": "the model provider is unavailable"}
	case errors.As(err, &dbErr):
		if dbErr.Kind == domain.DBUnavailable {
			return http.StatusServiceUnavailable, gin.H{"error": "database_unavailable", "details": "storage is temporarily unreachable"}
		}
		return http.StatusInternalServerError, gin.H{"error": "database_error", "details": "failed to access storage"}
	case errors.As(err, &unsupported):
		return http.StatusInternalServerError, gin.H{"error": "unsupported_schema", "details": unsupported.Error()}
	}
	return http.StatusInternalServerError, gin.H{"error": "internal_error", "details": "unexpected server error"}
}

func retryAfterSeconds(rl *domain.RateLimitError) int {
	return int(math.Ceil(rl.RetryAfter.Seconds()))
}

// writeError logs server-side failures and writes the JSON error.
func (h *Handler) writeError(c *gin.Context, err error) {
	status, body := errorBody(err)

	var rl *domain.RateLimitError
	if errors.As(err, &rl) {
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(rl)))
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.Limit))
		c.Header("X-RateLimit-Remaining", "0")
	}
	if status >= http.StatusInternalServerError {
		h.log.WithContext(c.Request.Context()).Error("request failed",
			"path", c.FullPath(), "status", status, "error", err)
	}
	c.AbortWithStatusJSON(status, body)
}
