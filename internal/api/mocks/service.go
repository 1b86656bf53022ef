package mocks

import (
	"context"
	"errors"

	"github.com/velohub/audio-qa-server/internal/gateway"
	"github.com/velohub/audio-qa-server/internal/repository/models"
	"github.com/velohub/audio-qa-server/internal/service"
)

// MockStatusService is a mock implementation of the StatusService interface
// for testing the handler layer.
type MockStatusService struct {
	CreateEvaluationFunc func(ctx context.Context, input service.NewEvaluation) (models.Evaluation, error)
	GetEvaluationFunc    func(ctx context.Context, id string) (models.Evaluation, error)
	RequestUploadURLFunc func(ctx context.Context, evaluationID, fileName, mimeType string, sizeBytes int64) (gateway.UploadTicket, error)
	ConfirmUploadFunc    func(ctx context.Context, evaluationID, objectKey string) error
	StatusFunc           func(ctx context.Context, evaluationID string) (service.AudioStatusInfo, error)
	ReprocessFunc        func(ctx context.Context, evaluationID, bucket string) (string, error)
	NotifyCompletedFunc  func(ctx context.Context, evaluationID string) error
}

func (m *MockStatusService) CreateEvaluation(ctx context.Context, input service.NewEvaluation) (models.Evaluation, error) {
	if m.CreateEvaluationFunc != nil {
		return m.CreateEvaluationFunc(ctx, input)
	}
	return models.Evaluation{}, errors.New("CreateEvaluationFunc not implemented")
}

func (m *MockStatusService) GetEvaluation(ctx context.Context, id string) (models.Evaluation, error) {
	if m.GetEvaluationFunc != nil {
		return m.GetEvaluationFunc(ctx, id)
	}
	return models.Evaluation{}, errors.New("GetEvaluationFunc not implemented")
}

func (m *MockStatusService) RequestUploadURL(ctx context.Context, evaluationID, fileName, mimeType string, sizeBytes int64) (gateway.UploadTicket, error) {
	if m.RequestUploadURLFunc != nil {
		return m.RequestUploadURLFunc(ctx, evaluationID, fileName, mimeType, sizeBytes)
	}
	return gateway.UploadTicket{}, errors.New("RequestUploadURLFunc not implemented")
}

func (m *MockStatusService) ConfirmUpload(ctx context.Context, evaluationID, objectKey string) error {
	if m.ConfirmUploadFunc != nil {
		return m.ConfirmUploadFunc(ctx, evaluationID, objectKey)
	}
	return errors.New("ConfirmUploadFunc not implemented")
}

func (m *MockStatusService) Status(ctx context.Context, evaluationID string) (service.AudioStatusInfo, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx, evaluationID)
	}
	return service.AudioStatusInfo{}, errors.New("StatusFunc not implemented")
}

func (m *MockStatusService) Reprocess(ctx context.Context, evaluationID, bucket string) (string, error) {
	if m.ReprocessFunc != nil {
		return m.ReprocessFunc(ctx, evaluationID, bucket)
	}
	return "", errors.New("ReprocessFunc not implemented")
}

func (m *MockStatusService) NotifyCompleted(ctx context.Context, evaluationID string) error {
	if m.NotifyCompletedFunc != nil {
		return m.NotifyCompletedFunc(ctx, evaluationID)
	}
	return errors.New("NotifyCompletedFunc not implemented")
}

// MockAnalysisService is a mock implementation of the AnalysisService
// interface for testing the handler layer.
type MockAnalysisService struct {
	GetResultFunc          func(ctx context.Context, evaluationID string) (models.AnalysisResult, error)
	AgentAverageFunc       func(ctx context.Context, agentName string, window service.DateRange) (service.AgentAverage, error)
	ListByAgentFunc        func(ctx context.Context, agentName, month string, year int) ([]models.AgentResult, error)
	UpdateAnalysisTextFunc func(ctx context.Context, evaluationID, text string) error
}

func (m *MockAnalysisService) GetResult(ctx context.Context, evaluationID string) (models.AnalysisResult, error) {
	if m.GetResultFunc != nil {
		return m.GetResultFunc(ctx, evaluationID)
	}
	return models.AnalysisResult{}, errors.New("GetResultFunc not implemented")
}

func (m *MockAnalysisService) AgentAverage(ctx context.Context, agentName string, window service.DateRange) (service.AgentAverage, error) {
	if m.AgentAverageFunc != nil {
		return m.AgentAverageFunc(ctx, agentName, window)
	}
	return service.AgentAverage{}, errors.New("AgentAverageFunc not implemented")
}

func (m *MockAnalysisService) ListByAgent(ctx context.Context, agentName, month string, year int) ([]models.AgentResult, error) {
	if m.ListByAgentFunc != nil {
		return m.ListByAgentFunc(ctx, agentName, month, year)
	}
	return nil, errors.New("ListByAgentFunc not implemented")
}

func (m *MockAnalysisService) UpdateAnalysisText(ctx context.Context, evaluationID, text string) error {
	if m.UpdateAnalysisTextFunc != nil {
		return m.UpdateAnalysisTextFunc(ctx, evaluationID, text)
	}
	return errors.New("UpdateAnalysisTextFunc not implemented")
}
