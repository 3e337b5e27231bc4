package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"campusconnect/internal/app/bootstrap"
	"campusconnect/internal/app/handlers/negotiation"
	"campusconnect/internal/app/services/auth"
	"campusconnect/internal/infra/config"
	ginserver "campusconnect/internal/infra/http/gin"
	"campusconnect/internal/infra/notify"
	"campusconnect/internal/infra/obs"
	"campusconnect/internal/infra/realtime"
	"campusconnect/internal/infra/schedule"
	"campusconnect/internal/infra/security"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("using fallback configuration", "error", err)
		cfg = fallbackConfig(env)
	}

	hub := realtime.NewHub(cfg.CORSOrigins, logger.With("component", "realtime"))
	defer hub.Close()
	sink := &notify.LogSink{Logger: logger.With("component", "notify")}

	stores, err := openBackend(ctx, cfg, logger, hub, sink)
	if err != nil {
		logger.Error("storage init failed", "mode", cfg.StorageMode, "error", err)
		os.Exit(1)
	}
	defer stores.close()

	app, err := bootstrap.Build(bootstrap.Options{
		UoWFactory:  stores.factory,
		Outbox:      stores.outbox,
		Idempotency: stores.idempotency,
		Notifier:    &notify.OutboxNotifier{Outbox: stores.outbox},
		Logger:      logger,
	})
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}
	if stores.subscribe != nil {
		stores.subscribe(&negotiation.SettlementSaga{Rejecter: app.Rejecter})
	}

	authSvc := &auth.Service{
		Users:      stores.users,
		Sessions:   stores.sessions,
		Tokens:     security.RandomTokenGenerator{},
		SessionTTL: cfg.SessionTTL,
		Logger:     logger.With("component", "auth"),
	}

	if cfg.SeedDemoData {
		if err := seedDemoData(ctx, stores, authSvc, getenv("DEMO_FIXTURES", ""), logger); err != nil {
			logger.Warn("demo data seeding failed", "error", err)
		}
	}

	var workers sync.WaitGroup
	runWorker := func(name string, run func(context.Context) error) {
		workers.Add(1)
		go func() {
			defer workers.Done()
			if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("worker stopped", "worker", name, "error", err)
			}
		}()
	}

	runner := &schedule.Runner{Logger: logger.With("component", "schedule"), Timeout: time.Minute}
	runner.Add(&negotiation.Sweeper{Rejecter: app.Rejecter, Lookback: cfg.SettlementLookback}, cfg.SettlementSweepInterval)
	runWorker("schedule", runner.Run)

	if cfg.KafkaEnabled() && stores.queue != nil {
		pipeline, err := newEventPipeline(ctx, cfg, stores, app.Rejecter, hub, sink, logger)
		if err != nil {
			logger.Error("kafka init failed", "error", err)
			os.Exit(1)
		}
		defer pipeline.close()
		for name, run := range pipeline.workers() {
			runWorker(name, run)
		}
	} else if cfg.StorageMode == config.StorageMongo {
		logger.Warn("kafka disabled: outbox records stay unpublished, settlement relies on the sweeper")
	}

	health := obs.HealthHandlers{Checks: stores.checks}
	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, health, ginserver.Handlers{
		Negotiation:    ginserver.NegotiationHandler{Commands: app.Commands, Queries: app.Queries, Logger: logger},
		Listing:        ginserver.ListingHandler{Commands: app.Commands, Queries: app.Queries, Logger: logger},
		User:           ginserver.UserHandler{Commands: app.Commands, Queries: app.Queries, Logger: logger},
		Complaint:      ginserver.ComplaintHandler{Commands: app.Commands, Queries: app.Queries, Logger: logger},
		Admin:          ginserver.AdminHandler{Commands: app.Commands, Queries: app.Queries, Logger: logger},
		Auth:           ginserver.AuthHandler{Service: authSvc, Logger: logger},
		Realtime:       ginserver.RealtimeHandler{Hub: hub, Logger: logger},
		AuthMiddleware: ginserver.AuthMiddleware{Service: authSvc, Logger: logger}.Handle,
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode, "kafka", cfg.KafkaEnabled())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		stop()
		workers.Wait()
		os.Exit(1)
	}
	stop()
	workers.Wait()
	logger.Info("HTTP server stopped")
}

// fallbackConfig is the in-memory development setup used when the
// environment does not parse.
func fallbackConfig(env string) config.Config {
	return config.Config{
		Env:                     env,
		HTTPAddr:                getenv("HTTP_ADDR", ":8080"),
		StorageMode:             config.StorageMemory,
		SettlementSweepInterval: 5 * time.Minute,
		SettlementLookback:      24 * time.Hour,
		SessionTTL:              24 * time.Hour,
		SeedDemoData:            true,
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
