package mocks

import (
	"context"
	"errors"
	"time"

	"github.com/velohub/audio-qa-server/internal/gateway"
	"github.com/velohub/audio-qa-server/internal/repository/models"
)

// MockEvaluationSource is a mock implementation of the EvaluationSource
// interface for testing the worker.
type MockEvaluationSource struct {
	GetByAudioFileNameFunc func(ctx context.Context, objectKey string) (models.Evaluation, error)
	MarkSentFunc           func(ctx context.Context, id string, now time.Time) error
}

func (m *MockEvaluationSource) GetByAudioFileName(ctx context.Context, objectKey string) (models.Evaluation, error) {
	if m.GetByAudioFileNameFunc != nil {
		return m.GetByAudioFileNameFunc(ctx, objectKey)
	}
	return models.Evaluation{}, errors.New("GetByAudioFileNameFunc not implemented")
}

func (m *MockEvaluationSource) MarkSent(ctx context.Context, id string, now time.Time) error {
	if m.MarkSentFunc != nil {
		return m.MarkSentFunc(ctx, id, now)
	}
	return errors.New("MarkSentFunc not implemented")
}

// MockTranscriber is a mock implementation of the Transcriber interface.
type MockTranscriber struct {
	TranscribeFunc func(ctx context.Context, objectURI, languageCode string) (gateway.TranscriptionResult, error)
}

func (m *MockTranscriber) Transcribe(ctx context.Context, objectURI, languageCode string) (gateway.TranscriptionResult, error) {
	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, objectURI, languageCode)
	}
	return gateway.TranscriptionResult{}, errors.New("TranscribeFunc not implemented")
}

// MockScorer is a mock implementation of the Scorer interface.
type MockScorer struct {
	ScoreCallFunc func(ctx context.Context, transcript string, words []models.WordTimestamp) (gateway.CallScore, error)
}

func (m *MockScorer) ScoreCall(ctx context.Context, transcript string, words []models.WordTimestamp) (gateway.CallScore, error) {
	if m.ScoreCallFunc != nil {
		return m.ScoreCallFunc(ctx, transcript, words)
	}
	return gateway.CallScore{}, errors.New("ScoreCallFunc not implemented")
}

// MockRecorder is a mock implementation of the Recorder interface.
type MockRecorder struct {
	RecordAnalysisFunc func(ctx context.Context, result models.AnalysisResult) (models.AnalysisResult, error)
}

func (m *MockRecorder) RecordAnalysis(ctx context.Context, result models.AnalysisResult) (models.AnalysisResult, error) {
	if m.RecordAnalysisFunc != nil {
		return m.RecordAnalysisFunc(ctx, result)
	}
	return models.AnalysisResult{}, errors.New("RecordAnalysisFunc not implemented")
}

// MockNotifier is a mock implementation of the Notifier interface.
type MockNotifier struct {
	NotifyCompletedFunc func(ctx context.Context, evaluationID string) error
}

func (m *MockNotifier) NotifyCompleted(ctx context.Context, evaluationID string) error {
	if m.NotifyCompletedFunc != nil {
		return m.NotifyCompletedFunc(ctx, evaluationID)
	}
	return errors.New("NotifyCompletedFunc not implemented")
}
