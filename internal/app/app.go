package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/velohub/audio-qa-server/internal/api"
	"github.com/velohub/audio-qa-server/internal/config"
	"github.com/velohub/audio-qa-server/internal/gateway"
	"github.com/velohub/audio-qa-server/internal/queue"
	"github.com/velohub/audio-qa-server/internal/repository"
	"github.com/velohub/audio-qa-server/internal/service"
	"github.com/velohub/audio-qa-server/pkg/cache"
	dbbuilder "github.com/velohub/audio-qa-server/pkg/database"
	"github.com/velohub/audio-qa-server/pkg/httpserver"
)

const completedChannel = "audio:completed"

// completionBroadcaster publishes processing-completed events on a redis
// channel for the console frontend.
type completionBroadcaster struct {
	cache *cache.Cache
}

func (b *completionBroadcaster) PublishCompleted(ctx context.Context, evaluationID, fileName string) error {
	// The cached status entry is stale the moment processing completes.
	if err := b.cache.Delete(ctx, api.StatusCacheKey(evaluationID)); err != nil {
		return err
	}
	return b.cache.Publish(ctx, completedChannel, map[string]string{
		"evaluationId": evaluationID,
		"fileName":     fileName,
	})
}

// App is the API server application.
type App struct {
	logger     *zap.Logger
	dbPool     *sql.DB
	cache      *cache.Cache
	storage    *gateway.GCSStorage
	queue      *queue.Client
	httpServer *httpserver.Server
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
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
	logger.Info("Database pool initialized", zap.String("path", cfg.DBPath))

	cacheClient, err := cache.New(ctx,
		cache.WithAddress(cfg.RedisAddr),
	)
	if err != nil {
		return nil, fmt.Errorf("cache init failed: %w", err)
	}
	logger.Info("Cache client initialized", zap.String("addr", cfg.RedisAddr))

	storage, err := gateway.NewGCSStorage(ctx, cfg.GCSBucketName, logger,
		gateway.WithUploadTTL(cfg.UploadURLTTL),
	)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	queueClient, err := queue.New(ctx, cfg.GCPProjectID,
		queue.WithTopic(cfg.PubSubTopic),
		queue.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("queue init failed: %w", err)
	}

	evaluationRepo := repository.NewEvaluationRepository(dbPool)
	resultRepo := repository.NewAnalysisResultRepository(dbPool)

	statusService := service.NewAudioStatusService(evaluationRepo, storage, queueClient,
		&completionBroadcaster{cache: cacheClient}, logger)
	analysisService := service.NewAnalysisService(resultRepo, evaluationRepo, logger)

	handlers := api.NewHandlers(statusService, analysisService, storage.Bucket(), logger,
		api.WithCache(cacheClient),
		api.WithStatusTTL(cfg.StatusCacheTTL),
		api.WithAverageTTL(cfg.AverageCacheTTL),
	)

	httpServer, err := httpserver.New(
		httpserver.WithPort(cfg.HTTPPort),
		httpserver.WithLogger(logger),
		httpserver.WithLogging(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http server: %w", err)
	}
	handlers.Register(httpServer.Engine())

	return &App{
		logger:     logger,
		dbPool:     dbPool,
		cache:      cacheClient,
		storage:    storage,
		queue:      queueClient,
		httpServer: httpServer,
	}, nil
}

// Run starts the application and blocks until a shutdown signal is received.
func (a *App) Run() error {
	a.logger.Info("application starting")

	a.httpServer.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	a.logger.Info("application shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("http shutdown error", zap.Error(err))
	}
	if err := a.queue.Close(); err != nil {
		a.logger.Error("queue shutdown error", zap.Error(err))
	}
	if err := a.storage.Close(); err != nil {
		a.logger.Error("storage shutdown error", zap.Error(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("cache shutdown error", zap.Error(err))
	}
	if err := a.dbPool.Close(); err != nil {
		a.logger.Error("database shutdown error", zap.Error(err))
	}

	a.logger.Info("graceful shutdown completed")
	_ = a.logger.Sync()
	return nil
}
