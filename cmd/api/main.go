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

	httpadapter "github.com/Skrufy/ConstructionManager-sub015/internal/adapters/http"
	"github.com/Skrufy/ConstructionManager-sub015/internal/bootstrap"
	"github.com/Skrufy/ConstructionManager-sub015/internal/config"
	"github.com/Skrufy/ConstructionManager-sub015/internal/observability/logging"
	"github.com/Skrufy/ConstructionManager-sub015/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("api", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	apiMetrics := metrics.NewAPIMetrics("api")
	router := httpadapter.NewRouter(
		app.StartUC,
		app.DraftUC,
		app.DraftUC,
		app.MatchUC,
		app.ConfirmUC,
		app.NotifyUC,
		apiMetrics,
	).Handler()

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown failed", "error", err)
	}
}
