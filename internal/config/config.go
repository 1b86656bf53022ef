package config

import (
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Config holds all configuration for the API server and the worker.
type Config struct {
	AppEnv   string
	HTTPPort int

	DBDriver string
	DBPath   string

	RedisAddr string

	GCPProjectID  string
	GCPLocation   string
	GCSBucketName string

	PubSubTopic        string
	PubSubSubscription string

	GeminiModel  string
	LanguageCode string

	MaxRetries      int
	UploadURLTTL    time.Duration
	StatusCacheTTL  time.Duration
	AverageCacheTTL time.Duration
	APIBaseURL      string
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() *Config {
	return &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		HTTPPort: getEnvInt("HTTP_PORT", 8080),

		DBDriver: getEnv("DB_DRIVER", "sqlite3"),
		DBPath:   getEnv("DB_PATH", "./data/audio_qa.db"),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		GCPProjectID:  os.Getenv("GCP_PROJECT_ID"),
		GCPLocation:   getEnv("GCP_LOCATION", "us-central1"),
		GCSBucketName: os.Getenv("GCS_BUCKET_NAME"),

		PubSubTopic:        getEnv("PUBSUB_TOPIC", "audio-quality-uploads"),
		PubSubSubscription: getEnv("PUBSUB_SUBSCRIPTION", "audio-quality-worker"),

		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		LanguageCode: getEnv("LANGUAGE_CODE", "pt-BR"),

		MaxRetries:      getEnvInt("MAX_RETRIES", 3),
		UploadURLTTL:    getEnvDuration("UPLOAD_URL_TTL", 15*time.Minute),
		StatusCacheTTL:  getEnvDuration("STATUS_CACHE_TTL", 15*time.Second),
		AverageCacheTTL: getEnvDuration("AVERAGE_CACHE_TTL", 10*time.Minute),
		APIBaseURL:      getEnv("API_BASE_URL", "http://localhost:8080"),
	}
}

// NewLogger creates a new Zap logger based on the config.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	if cfg.AppEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	val, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return val
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return val
}
