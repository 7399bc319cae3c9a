package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Skrufy/ConstructionManager-sub015/internal/bootstrap"
	"github.com/Skrufy/ConstructionManager-sub015/internal/config"
	"github.com/Skrufy/ConstructionManager-sub015/internal/core/domain"
	"github.com/Skrufy/ConstructionManager-sub015/internal/observability/logging"
	"github.com/Skrufy/ConstructionManager-sub015/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := startMetricsServer(cfg.WorkerMetricsPort, workerMetrics, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeNotifications(ctx, func(handlerCtx context.Context, n domain.Notification) error {
		workerMetrics.StartEvent()
		workerMetrics.ObserveDeliveryLag("worker", time.Since(n.CreatedAt))

		persistCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Second)
		defer cancel()

		started := time.Now()
		persistErr := app.Notifications.Create(persistCtx, &n)
		workerMetrics.FinishEvent("worker", time.Since(started), persistErr)
		return persistErr
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker subscription failed", "error", err)
		os.Exit(1)
	}
}

func startMetricsServer(port string, workerMetrics *metrics.WorkerMetrics, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", workerMetrics.Handler())

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("worker metrics listening", "port", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker metrics server failed", "error", err)
		}
	}()
	return server
}
