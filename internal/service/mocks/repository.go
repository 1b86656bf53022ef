package mocks

import (
	"context"
	"errors"
	"time"

	"github.com/velohub/audio-qa-server/internal/gateway"
	"github.com/velohub/audio-qa-server/internal/repository/models"
)

// MockEvaluationRepository is a mock implementation of the
// EvaluationRepository interface for testing the service layer.
type MockEvaluationRepository struct {
	CreateFunc             func(ctx context.Context, eval models.Evaluation) (models.Evaluation, error)
	GetByIDFunc            func(ctx context.Context, id string) (models.Evaluation, error)
	GetByAudioFileNameFunc func(ctx context.Context, objectKey string) (models.Evaluation, error)
	SetUploadPendingFunc   func(ctx context.Context, id, objectKey string, now time.Time) error
	MarkSentFunc           func(ctx context.Context, id string, now time.Time) error
	MarkTreatedFunc        func(ctx context.Context, id string, now time.Time) (bool, error)
}

func (m *MockEvaluationRepository) Create(ctx context.Context, eval models.Evaluation) (models.Evaluation, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, eval)
	}
	return models.Evaluation{}, errors.New("CreateFunc not implemented")
}

func (m *MockEvaluationRepository) GetByID(ctx context.Context, id string) (models.Evaluation, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return models.Evaluation{}, errors.New("GetByIDFunc not implemented")
}

func (m *MockEvaluationRepository) GetByAudioFileName(ctx context.Context, objectKey string) (models.Evaluation, error) {
	if m.GetByAudioFileNameFunc != nil {
		return m.GetByAudioFileNameFunc(ctx, objectKey)
	}
	return models.Evaluation{}, errors.New("GetByAudioFileNameFunc not implemented")
}

func (m *MockEvaluationRepository) SetUploadPending(ctx context.Context, id, objectKey string, now time.Time) error {
	if m.SetUploadPendingFunc != nil {
		return m.SetUploadPendingFunc(ctx, id, objectKey, now)
	}
	return errors.New("SetUploadPendingFunc not implemented")
}

func (m *MockEvaluationRepository) MarkSent(ctx context.Context, id string, now time.Time) error {
	if m.MarkSentFunc != nil {
		return m.MarkSentFunc(ctx, id, now)
	}
	return errors.New("MarkSentFunc not implemented")
}

func (m *MockEvaluationRepository) MarkTreated(ctx context.Context, id string, now time.Time) (bool, error) {
	if m.MarkTreatedFunc != nil {
		return m.MarkTreatedFunc(ctx, id, now)
	}
	return false, errors.New("MarkTreatedFunc not implemented")
}

// MockAnalysisResultRepository is a mock implementation of the
// AnalysisResultRepository interface.
type MockAnalysisResultRepository struct {
	UpsertByEvaluationFunc func(ctx context.Context, result models.AnalysisResult) (models.AnalysisResult, error)
	GetByEvaluationIDFunc  func(ctx context.Context, evaluationID string) (models.AnalysisResult, error)
	AgentScoresFunc        func(ctx context.Context, agentName string, start, end *time.Time) ([]float64, error)
	ListByAgentFunc        func(ctx context.Context, agentName string, month, year, limit int) ([]models.AgentResult, error)
	UpdateAnalysisTextFunc func(ctx context.Context, evaluationID, text string) error
}

func (m *MockAnalysisResultRepository) UpsertByEvaluation(ctx context.Context, result models.AnalysisResult) (models.AnalysisResult, error) {
	if m.UpsertByEvaluationFunc != nil {
		return m.UpsertByEvaluationFunc(ctx, result)
	}
	return models.AnalysisResult{}, errors.New("UpsertByEvaluationFunc not implemented")
}

func (m *MockAnalysisResultRepository) GetByEvaluationID(ctx context.Context, evaluationID string) (models.AnalysisResult, error) {
	if m.GetByEvaluationIDFunc != nil {
		return m.GetByEvaluationIDFunc(ctx, evaluationID)
	}
	return models.AnalysisResult{}, errors.New("GetByEvaluationIDFunc not implemented")
}

func (m *MockAnalysisResultRepository) AgentScores(ctx context.Context, agentName string, start, end *time.Time) ([]float64, error) {
	if m.AgentScoresFunc != nil {
		return m.AgentScoresFunc(ctx, agentName, start, end)
	}
	return nil, errors.New("AgentScoresFunc not implemented")
}

func (m *MockAnalysisResultRepository) ListByAgent(ctx context.Context, agentName string, month, year, limit int) ([]models.AgentResult, error) {
	if m.ListByAgentFunc != nil {
		return m.ListByAgentFunc(ctx, agentName, month, year, limit)
	}
	return nil, errors.New("ListByAgentFunc not implemented")
}

func (m *MockAnalysisResultRepository) UpdateAnalysisText(ctx context.Context, evaluationID, text string) error {
	if m.UpdateAnalysisTextFunc != nil {
		return m.UpdateAnalysisTextFunc(ctx, evaluationID, text)
	}
	return errors.New("UpdateAnalysisTextFunc not implemented")
}

// MockObjectStorage is a mock implementation of the ObjectStorage interface.
type MockObjectStorage struct {
	IssueUploadURLFunc func(ctx context.Context, fileName, mimeType string, sizeBytes int64) (gateway.UploadTicket, error)
	ObjectExistsFunc   func(ctx context.Context, objectKey string) (bool, error)
}

func (m *MockObjectStorage) IssueUploadURL(ctx context.Context, fileName, mimeType string, sizeBytes int64) (gateway.UploadTicket, error) {
	if m.IssueUploadURLFunc != nil {
		return m.IssueUploadURLFunc(ctx, fileName, mimeType, sizeBytes)
	}
	return gateway.UploadTicket{}, errors.New("IssueUploadURLFunc not implemented")
}

func (m *MockObjectStorage) ObjectExists(ctx context.Context, objectKey string) (bool, error) {
	if m.ObjectExistsFunc != nil {
		return m.ObjectExistsFunc(ctx, objectKey)
	}
	return false, errors.New("ObjectExistsFunc not implemented")
}

// MockQueuePublisher is a mock implementation of the QueuePublisher
// interface.
type MockQueuePublisher struct {
	PublishObjectFinalizedFunc func(ctx context.Context, objectKey, bucket string) (string, error)
}

func (m *MockQueuePublisher) PublishObjectFinalized(ctx context.Context, objectKey, bucket string) (string, error) {
	if m.PublishObjectFinalizedFunc != nil {
		return m.PublishObjectFinalizedFunc(ctx, objectKey, bucket)
	}
	return "", errors.New("PublishObjectFinalizedFunc not implemented")
}

// MockCompletionPublisher is a mock implementation of the
// CompletionPublisher interface.
type MockCompletionPublisher struct {
	PublishCompletedFunc func(ctx context.Context, evaluationID, fileName string) error
}

func (m *MockCompletionPublisher) PublishCompleted(ctx context.Context, evaluationID, fileName string) error {
	if m.PublishCompletedFunc != nil {
		return m.PublishCompletedFunc(ctx, evaluationID, fileName)
	}
	return errors.New("PublishCompletedFunc not implemented")
}
