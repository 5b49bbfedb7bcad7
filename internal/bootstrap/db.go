package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/stackpilot/stackpilot-backend/config"
	"github.com/stackpilot/stackpilot-backend/internal/db"
	"github.com/stackpilot/stackpilot-backend/internal/platform/logger"
)

// OpenDB applies pending migrations and opens the pool.
func OpenDB(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*db.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("DB_DSN is not set")
	}

	mctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.Migrate(mctx, cfg.DSN, log); err != nil {
		return nil, err
	}

	return db.Open(ctx, db.Options{DSN: cfg.DSN, MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
}
