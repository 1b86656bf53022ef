package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/velohub/audio-qa-server/internal/app"
	"github.com/velohub/audio-qa-server/internal/config"
)

func main() {
	_ = godotenv.Load(".env")

	cfg := config.LoadFromEnv()

	logger, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	workerApp, err := app.NewWorkerApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize worker", zap.Error(err))
	}

	if err := workerApp.Run(); err != nil {
		logger.Fatal("Worker exited with error", zap.Error(err))
	}
}
