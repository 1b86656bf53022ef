package worker

import (
	"context"
	"time"

	"github.com/velohub/audio-qa-server/internal/gateway"
	"github.com/velohub/audio-qa-server/internal/repository/models"
)

// EvaluationSource looks up the evaluation an uploaded object belongs to.
type EvaluationSource interface {
	GetByAudioFileName(ctx context.Context, objectKey string) (models.Evaluation, error)
	MarkSent(ctx context.Context, id string, now time.Time) error
}

// Transcriber converts a stored recording into text with word timings.
type Transcriber interface {
	Transcribe(ctx context.Context, objectURI, languageCode string) (gateway.TranscriptionResult, error)
}

// Scorer produces one automated quality assessment of a transcript.
type Scorer interface {
	ScoreCall(ctx context.Context, transcript string, words []models.WordTimestamp) (gateway.CallScore, error)
}

// Recorder durably persists an analysis and flips the evaluation to
// completed.
type Recorder interface {
	RecordAnalysis(ctx context.Context, result models.AnalysisResult) (models.AnalysisResult, error)
}

// Notifier announces that an evaluation finished processing. Failures are
// logged and ignored; the persisted result is the source of truth.
type Notifier interface {
	NotifyCompleted(ctx context.Context, evaluationID string) error
}
