package service

import (
	"context"
	"time"

	"github.com/velohub/audio-qa-server/internal/gateway"
	"github.com/velohub/audio-qa-server/internal/repository/models"
)

// EvaluationRepository defines the evaluation persistence operations the
// services need.
type EvaluationRepository interface {
	Create(ctx context.Context, eval models.Evaluation) (models.Evaluation, error)
	GetByID(ctx context.Context, id string) (models.Evaluation, error)
	GetByAudioFileName(ctx context.Context, objectKey string) (models.Evaluation, error)
	// SetUploadPending records the issued object key and resets the audio
	// booleans (UPLOAD_PENDING).
	SetUploadPending(ctx context.Context, id, objectKey string, now time.Time) error
	// MarkSent flips audio_sent (UPLOAD_PENDING -> SENT).
	MarkSent(ctx context.Context, id string, now time.Time) error
	// MarkTreated flips audio_treated (SENT -> TREATED). It reports false
	// without error when the evaluation was already treated, so duplicate
	// queue deliveries are a no-op.
	MarkTreated(ctx context.Context, id string, now time.Time) (bool, error)
}

// AnalysisResultRepository defines the result persistence operations.
type AnalysisResultRepository interface {
	// UpsertByEvaluation writes the result keyed by evaluation id,
	// replacing any prior analysis of the same evaluation.
	UpsertByEvaluation(ctx context.Context, result models.AnalysisResult) (models.AnalysisResult, error)
	GetByEvaluationID(ctx context.Context, evaluationID string) (models.AnalysisResult, error)
	// AgentScores returns the effective score of every analysis belonging
	// to the agent, optionally bounded by inclusive day limits.
	AgentScores(ctx context.Context, agentName string, start, end *time.Time) ([]float64, error)
	// ListByAgent returns up to limit analyses for the agent, newest
	// first. month is 1-12, or 0 for any; year is 0 for any.
	ListByAgent(ctx context.Context, agentName string, month, year, limit int) ([]models.AgentResult, error)
	UpdateAnalysisText(ctx context.Context, evaluationID, text string) error
}

// ObjectStorage is the signed-URL/object gateway consumed by the status
// service.
type ObjectStorage interface {
	IssueUploadURL(ctx context.Context, fileName, mimeType string, sizeBytes int64) (gateway.UploadTicket, error)
	ObjectExists(ctx context.Context, objectKey string) (bool, error)
}

// QueuePublisher re-publishes a synthetic object-finalized event so the
// worker re-runs an evaluation.
type QueuePublisher interface {
	PublishObjectFinalized(ctx context.Context, objectKey, bucket string) (string, error)
}

// CompletionPublisher broadcasts processing-completed events to interested
// consumers (the admin frontend gateway subscribes to these).
type CompletionPublisher interface {
	PublishCompleted(ctx context.Context, evaluationID, fileName string) error
}
