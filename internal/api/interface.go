package api

import (
	"context"
	"time"

	"github.com/velohub/audio-qa-server/internal/gateway"
	"github.com/velohub/audio-qa-server/internal/repository/models"
	"github.com/velohub/audio-qa-server/internal/service"
)

// Cacher defines the interface for cache operations.
type Cacher interface {
	Close() error
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// StatusService covers evaluation lifecycle and audio upload state.
type StatusService interface {
	CreateEvaluation(ctx context.Context, input service.NewEvaluation) (models.Evaluation, error)
	GetEvaluation(ctx context.Context, id string) (models.Evaluation, error)
	RequestUploadURL(ctx context.Context, evaluationID, fileName, mimeType string, sizeBytes int64) (gateway.UploadTicket, error)
	ConfirmUpload(ctx context.Context, evaluationID, objectKey string) error
	Status(ctx context.Context, evaluationID string) (service.AudioStatusInfo, error)
	Reprocess(ctx context.Context, evaluationID, bucket string) (string, error)
	NotifyCompleted(ctx context.Context, evaluationID string) error
}

// AnalysisService covers persisted analysis results and aggregations.
type AnalysisService interface {
	GetResult(ctx context.Context, evaluationID string) (models.AnalysisResult, error)
	AgentAverage(ctx context.Context, agentName string, window service.DateRange) (service.AgentAverage, error)
	ListByAgent(ctx context.Context, agentName, month string, year int) ([]models.AgentResult, error)
	UpdateAnalysisText(ctx context.Context, evaluationID, text string) error
}
