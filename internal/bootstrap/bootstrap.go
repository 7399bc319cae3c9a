package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/Skrufy/ConstructionManager-sub015/internal/config"
	"github.com/Skrufy/ConstructionManager-sub015/internal/core/ports"
	"github.com/Skrufy/ConstructionManager-sub015/internal/core/usecase"
	"github.com/Skrufy/ConstructionManager-sub015/internal/infrastructure/inference/openai"
	"github.com/Skrufy/ConstructionManager-sub015/internal/infrastructure/pdf"
	"github.com/Skrufy/ConstructionManager-sub015/internal/infrastructure/queue/nats"
	"github.com/Skrufy/ConstructionManager-sub015/internal/infrastructure/repository/postgres"
	"github.com/Skrufy/ConstructionManager-sub015/internal/infrastructure/resilience"
	"github.com/Skrufy/ConstructionManager-sub015/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Queue         ports.NotificationQueue
	Notifications ports.NotificationStore

	StartUC   ports.SplitStarter
	DraftUC   *usecase.EditDraftUseCase
	MatchUC   ports.RevisionChecker
	ConfirmUC ports.SplitConfirmer
	NotifyUC  ports.NotificationReader

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	drafts := postgres.NewDraftRepository(db)
	documents := postgres.NewDocumentRepository(db)
	notifications := postgres.NewNotificationRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init notification queue: %w", err)
	}

	extractor := pdf.NewExtractor()
	inferencer := openai.New(openai.Config{
		APIKey:            cfg.OpenAIAPIKey,
		BaseURL:           cfg.OpenAIBaseURL,
		Model:             cfg.OpenAIModel,
		RequestTimeout:    time.Duration(cfg.OpenAITimeoutSeconds) * time.Second,
		RequestsPerSecond: cfg.OpenAIRequestsPerSec,
		Burst:             cfg.OpenAIBurst,
	}, executor)

	startUC := usecase.NewStartSplitUseCase(drafts, storage, extractor, inferencer, usecase.StartLimits{
		MaxUploadBytes:       cfg.MaxUploadBytes,
		MaxPages:             cfg.MaxPages,
		InferenceConcurrency: cfg.InferenceConcurrency,
	})
	draftUC := usecase.NewEditDraftUseCase(drafts)
	matchUC := usecase.NewMatchRevisionsUseCase(drafts, documents)
	confirmUC := usecase.NewConfirmSplitUseCase(drafts, documents, storage, extractor, queue)
	notifyUC := usecase.NewNotificationsUseCase(notifications)

	return &App{
		Config: cfg,

		Queue:         queue,
		Notifications: notifications,

		StartUC:   startUC,
		DraftUC:   draftUC,
		MatchUC:   matchUC,
		ConfirmUC: confirmUC,
		NotifyUC:  notifyUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
