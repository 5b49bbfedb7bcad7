package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/stackpilot/stackpilot-backend/config"
	"github.com/stackpilot/stackpilot-backend/internal/bootstrap"
	"github.com/stackpilot/stackpilot-backend/internal/plans/repository"
	"github.com/stackpilot/stackpilot-backend/internal/platform/logger"
	"github.com/stackpilot/stackpilot-backend/internal/ratelimit"
	"github.com/stackpilot/stackpilot-backend/internal/scheduler"
)

const serviceName = "stackpilot-backend"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	mode := "development"
	if cfg.IsProduction() {
		mode = "production"
	}
	log, err := logger.New(mode, cfg.App.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := bootstrap.OpenDB(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("database unavailable", "error", err)
	}
	defer database.Close()

	rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis.URL, log)
	if err != nil {
		log.Fatal("redis config invalid", "error", err)
	}
	defer rdb.Close()

	verifier, err := bootstrap.BuildVerifier(ctx, cfg.Firebase, log)
	if err != nil {
		log.Fatal("session verifier init failed", "error", err)
	}

	repo := repository.NewPlanRepo(database.Pool)
	svcs, err := bootstrap.BuildServices(cfg, repo, rdb, log)
	if err != nil {
		log.Fatal("service wiring failed", "error", err)
	}

	sched := scheduler.New(log.With("component", "scheduler"))
	if err := sched.Add(ratelimit.SweepJob(svcs.MemoryLimiter, "0 */5 * * * *", log)); err != nil {
		log.Fatal("scheduler setup failed", "error", err)
	}
	sched.Start()

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:    serviceName,
		Version:        cfg.App.Version,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		PingSecret:     cfg.App.PingSecret,
		DBPing:         repo.Ping,
		Redis:          rdb,
		Verifier:       verifier,
		Services:       svcs,
		Log:            log,
	})

	// No WriteTimeout: /generate streams for as long as the model takes.
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Server.Port, "env", cfg.App.Environment, "llm", cfg.LLM.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	sched.Stop(shutdownCtx)
}
