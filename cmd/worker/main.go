package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/stackpilot/stackpilot-backend/config"
	"github.com/stackpilot/stackpilot-backend/internal/db"
	"github.com/stackpilot/stackpilot-backend/internal/platform/logger"
)

const usage = "usage: worker <migrate|status>"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logger.New("development", cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch os.Args[1] {
	case "migrate":
		err = db.Migrate(ctx, cfg.Database.DSN, log)
	case "status":
		err = db.MigrationStatus(ctx, cfg.Database.DSN, log)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n%s\n", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal("worker command failed", "command", os.Args[1], "error", err)
	}
	log.Info("worker command finished", "command", os.Args[1])
}
