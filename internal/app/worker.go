package app

import (
	"context"
	"database/sql"
	"fmt"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/velohub/audio-qa-server/internal/config"
	"github.com/velohub/audio-qa-server/internal/gateway"
	"github.com/velohub/audio-qa-server/internal/queue"
	"github.com/velohub/audio-qa-server/internal/repository"
	"github.com/velohub/audio-qa-server/internal/service"
	"github.com/velohub/audio-qa-server/internal/worker"
	dbbuilder "github.com/velohub/audio-qa-server/pkg/database"
)

// WorkerApp is the queue-consuming analysis pipeline application.
type WorkerApp struct {
	logger      *zap.Logger
	dbPool      *sql.DB
	queue       *queue.Client
	processor   *worker.Processor
	transcriber *gateway.SpeechTranscriber
	scorer      *gateway.GeminiScorer
}

func NewWorkerApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*WorkerApp, error) {
	if cfg.GCPProjectID == "" {
		return nil, fmt.Errorf("GCP_PROJECT_ID is required")
	}
	if cfg.GCSBucketName == "" {
		return nil, fmt.Errorf("GCS_BUCKET_NAME is required")
	}

	dbPool, err := dbbuilder.New(
		dbbuilder.WithDriver(cfg.DBDriver),
		dbbuilder.WithDataSource(cfg.DBPath),
	)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}
	if err := repository.EnsureSchema(ctx, dbPool); err != nil {
		return nil, fmt.Errorf("schema init failed: %w", err)
	}

	queueClient, err := queue.New(ctx, cfg.GCPProjectID,
		queue.WithSubscription(cfg.PubSubSubscription),
		queue.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("queue init failed: %w", err)
	}

	transcriber, err := gateway.NewSpeechTranscriber(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("transcriber init failed: %w", err)
	}

	scorer, err := gateway.NewGeminiScorer(ctx, cfg.GCPProjectID, cfg.GCPLocation, cfg.GeminiModel, logger)
	if err != nil {
		return nil, fmt.Errorf("scorer init failed: %w", err)
	}

	evaluationRepo := repository.NewEvaluationRepository(dbPool)
	resultRepo := repository.NewAnalysisResultRepository(dbPool)
	analysisService := service.NewAnalysisService(resultRepo, evaluationRepo, logger)

	notifier := gateway.NewCompletionNotifier(cfg.APIBaseURL, logger)

	// One scorer runs both passes; each call is an independent assessment
	// of the same transcript.
	processor := worker.NewProcessor(evaluationRepo, transcriber, scorer, analysisService,
		cfg.GCSBucketName, logger,
		worker.WithSecondaryScorer(scorer),
		worker.WithNotifier(notifier),
		worker.WithMaxRetries(cfg.MaxRetries),
		worker.WithLanguage(cfg.LanguageCode),
	)

	return &WorkerApp{
		logger:      logger,
		dbPool:      dbPool,
		queue:       queueClient,
		processor:   processor,
		transcriber: transcriber,
		scorer:      scorer,
	}, nil
}

// Run consumes the subscription until a shutdown signal arrives; the
// in-flight message finishes before the receive loop returns.
func (a *WorkerApp) Run() error {
	a.logger.Info("worker starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := a.queue.Receive(ctx, a.processor.Handle)
	if err != nil && ctx.Err() == nil {
		a.logger.Error("receive loop failed", zap.Error(err))
	}

	a.logger.Info("worker shutting down")

	if closeErr := a.queue.Close(); closeErr != nil {
		a.logger.Error("queue shutdown error", zap.Error(closeErr))
	}
	if closeErr := a.transcriber.Close(); closeErr != nil {
		a.logger.Error("transcriber shutdown error", zap.Error(closeErr))
	}
	if closeErr := a.scorer.Close(); closeErr != nil {
		a.logger.Error("scorer shutdown error", zap.Error(closeErr))
	}
	if closeErr := a.dbPool.Close(); closeErr != nil {
		a.logger.Error("database shutdown error", zap.Error(closeErr))
	}

	_ = a.logger.Sync()
	if ctx.Err() != nil {
		return nil
	}
	return err
}
