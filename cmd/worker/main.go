// The worker executes delayed lifecycle jobs: quote expiries, trip
// auto-completes, driver cooldowns, assignment retries, and the
// recurring pending-quote sweep. It runs alongside the API server and
// shares its database and Redis.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"charter/internal/app"
	"charter/internal/config"
	"charter/internal/jobs"
	"charter/internal/logging"
)

func main() {
	cfg := config.Load()
	log := logging.NewLogger(cfg.LogLevel)

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer bootCancel()

	db, err := app.NewDatabase(bootCtx, cfg.Database, nil)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(bootCtx, cfg.Redis, nil)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	log.Info("connected to Redis")

	services := app.BuildServices(db, redisClient, cfg, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Rebuild the job schedule from stored state before processing.
	if err := services.Backfill.Run(ctx); err != nil {
		log.Error("backfill failed", "error", err)
		os.Exit(1)
	}

	worker := jobs.NewWorker(services.JobStore, log, jobs.WorkerOptions{
		PollInterval: cfg.Worker.PollInterval,
		Lease:        cfg.Worker.Lease,
		MaxAttempts:  cfg.Worker.MaxAttempts,
	})

	worker.Register(jobs.KindQuoteExpiry, payloadHandler(services.Quotes.HandleExpiry))
	worker.Register(jobs.KindTripAutoComplete, payloadHandler(services.Trips.HandleAutoComplete))
	worker.Register(jobs.KindDriverCooldown, payloadHandler(services.Trips.HandleCooldown))
	worker.Register(jobs.KindAssignDriver, payloadHandler(services.Quotes.HandleAssignRetry))
	worker.RegisterRecurring(jobs.KindProcessPendingQuotes, cfg.Lifecycle.SweepInterval,
		payloadHandler(services.Quotes.SweepPendingQuotes))

	// Metrics and health endpoint on its own listener.
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	metricsServer := &http.Server{Addr: cfg.Worker.MetricsAddr, Handler: mux}
	go func() {
		log.Info("metrics listening", "addr", cfg.Worker.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server error", "error", err)
		}
	}()

	log.Info("worker started", "poll_interval", cfg.Worker.PollInterval.String())
	worker.Run(ctx)
	log.Info("worker stopped")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}

// payloadHandler adapts a payload-typed service handler to the job
// handler signature.
func payloadHandler(fn func(context.Context, jobs.Payload) error) jobs.HandlerFunc {
	return func(ctx context.Context, job *jobs.Job) error {
		payload, err := job.DecodePayload()
		if err != nil {
			return err
		}
		return fn(ctx, payload)
	}
}
