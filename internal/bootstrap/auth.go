package bootstrap

import (
	"context"

	"github.com/stackpilot/stackpilot-backend/config"
	"github.com/stackpilot/stackpilot-backend/internal/auth"
	"github.com/stackpilot/stackpilot-backend/internal/platform/logger"
)

// BuildVerifier prefers Firebase and falls back to the dev HMAC verifier. With
// neither configured every request is anonymous.
func BuildVerifier(ctx context.Context, cfg config.FirebaseConfig, log *logger.Logger) (auth.Verifier, error) {
	if cfg.CredentialsPath != "" {
		v, err := auth.InitializeFirebase(ctx, &cfg)
		if err != nil {
			return nil, err
		}
		log.Info("session verification: firebase")
		return v, nil
	}
	if cfg.DevJWTSecret != "" {
		v, err := auth.NewHMACVerifier(cfg.DevJWTSecret)
		if err != nil {
			return nil, err
		}
		log.Warn("session verification: development HS256 tokens")
		return v, nil
	}
	log.Warn("session verification disabled, all requests are anonymous")
	return nil, nil
}
