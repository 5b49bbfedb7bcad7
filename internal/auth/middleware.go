package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stackpilot/stackpilot-backend/internal/platform/logger"
)

// Mode selects what Middleware does with requests lacking a valid session.
type Mode int

const (
	// Optional lets anonymous requests through with no uid set. A token that
	// is present but invalid is still rejected.
	Optional Mode = iota
	Required
)

// Middleware verifies the bearer token and stores the uid under CtxFirebaseUID.
func Middleware(v Verifier, mode Mode, log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.Nop()
	}
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			if mode == Required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "details": "missing authorization token"})
				return
			}
			c.Next()
			return
		}

		if v == nil {
			log.WithContext(c.Request.Context()).Warn("bearer token sent but no verifier configured")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "details": "sessions are not enabled"})
			return
		}

		uid, err := v.Verify(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, ErrInvalidToken) {
				log.WithContext(c.Request.Context()).Error("token verification failed", "error", err)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "details": "invalid token"})
			return
		}

		c.Set(CtxFirebaseUID, uid)
		c.Next()
	}
}

// extractToken extracts the Bearer token from the Authorization header
func extractToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
