package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/velohub/audio-qa-server/internal/gateway"
	"github.com/velohub/audio-qa-server/internal/repository/models"
)

const dbTimeout = 5 * time.Second

// AudioStatusService owns the audio-status state machine of an evaluation:
// NONE -> UPLOAD_PENDING -> SENT -> TREATED, with manual reprocessing of
// records stuck in SENT.
type AudioStatusService struct {
	evaluations EvaluationRepository
	storage     ObjectStorage
	queue       QueuePublisher
	events      CompletionPublisher
	logger      *zap.Logger
	now         func() time.Time
}

// NewAudioStatusService creates the state machine service.
func NewAudioStatusService(evaluations EvaluationRepository, storage ObjectStorage, queue QueuePublisher, events CompletionPublisher, logger *zap.Logger) *AudioStatusService {
	if evaluations == nil {
		panic("evaluations repository must not be nil")
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	return &AudioStatusService{
		evaluations: evaluations,
		storage:     storage,
		queue:       queue,
		events:      events,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateEvaluation stores a new human scorecard with no audio associated.
func (s *AudioStatusService) CreateEvaluation(ctx context.Context, input NewEvaluation) (models.Evaluation, error) {
	if strings.TrimSpace(input.EvaluatorName) == "" || strings.TrimSpace(input.AgentName) == "" {
		return models.Evaluation{}, fmt.Errorf("%w: evaluator and agent names are required", ErrValidation)
	}
	if strings.TrimSpace(input.Month) == "" || input.Year == 0 {
		return models.Evaluation{}, fmt.Errorf("%w: month and year are required", ErrValidation)
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	eval, err := s.evaluations.Create(dbCtx, models.Evaluation{
		EvaluatorName: input.EvaluatorName,
		AgentName:     input.AgentName,
		Month:         input.Month,
		Year:          input.Year,
		CallDate:      input.CallDate,
		Criteria:      input.Criteria,
		Notes:         input.Notes,
		TotalScore:    input.TotalScore,
	})
	if err != nil {
		return models.Evaluation{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	s.logger.Info("evaluation created",
		zap.String("id", eval.ID),
		zap.String("agent", eval.AgentName))
	return eval, nil
}

// GetEvaluation fetches one scorecard.
func (s *AudioStatusService) GetEvaluation(ctx context.Context, id string) (models.Evaluation, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return s.load(dbCtx, id)
}

// RequestUploadURL moves an evaluation into UPLOAD_PENDING and hands back a
// signed upload grant. Rejected while an unprocessed upload is pending
// (state SENT) so the in-flight object cannot be clobbered.
func (s *AudioStatusService) RequestUploadURL(ctx context.Context, evaluationID, fileName, mimeType string, sizeBytes int64) (gateway.UploadTicket, error) {
	if strings.TrimSpace(fileName) == "" || strings.TrimSpace(mimeType) == "" {
		return gateway.UploadTicket{}, fmt.Errorf("%w: fileName and mimeType are required", ErrValidation)
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	eval, err := s.load(dbCtx, evaluationID)
	if err != nil {
		return gateway.UploadTicket{}, err
	}

	if eval.AudioSent && !eval.AudioTreated {
		return gateway.UploadTicket{}, fmt.Errorf("%w: an unprocessed upload is already pending for evaluation %s", ErrConflict, evaluationID)
	}

	ticket, err := s.storage.IssueUploadURL(ctx, fileName, mimeType, sizeBytes)
	if err != nil {
		return gateway.UploadTicket{}, mapStorageErr(err)
	}

	if err := s.evaluations.SetUploadPending(dbCtx, evaluationID, ticket.ObjectKey, s.now()); err != nil {
		return gateway.UploadTicket{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	s.logger.Info("upload url issued",
		zap.String("evaluation_id", evaluationID),
		zap.String("object_key", ticket.ObjectKey))
	return ticket, nil
}

// ConfirmUpload moves UPLOAD_PENDING -> SENT once the client finished its
// PUT against the signed URL. The object key recorded when the URL was
// issued must match the one confirmed.
func (s *AudioStatusService) ConfirmUpload(ctx context.Context, evaluationID, objectKey string) error {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	eval, err := s.load(dbCtx, evaluationID)
	if err != nil {
		return err
	}

	if eval.AudioFileName == "" {
		return fmt.Errorf("%w: no upload URL was issued for evaluation %s", ErrConflict, evaluationID)
	}
	if eval.AudioSent {
		return fmt.Errorf("%w: upload already confirmed for evaluation %s", ErrConflict, evaluationID)
	}
	if eval.AudioFileName != objectKey {
		return fmt.Errorf("%w: expected %q", ErrMismatch, eval.AudioFileName)
	}

	if err := s.evaluations.MarkSent(dbCtx, evaluationID, s.now()); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	s.logger.Info("upload confirmed", zap.String("evaluation_id", evaluationID))
	return nil
}

// Status projects the display status out of the two persisted booleans.
func (s *AudioStatusService) Status(ctx context.Context, evaluationID string) (AudioStatusInfo, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	eval, err := s.load(dbCtx, evaluationID)
	if err != nil {
		return AudioStatusInfo{}, err
	}

	return AudioStatusInfo{
		EvaluationID:   eval.ID,
		Status:         DeriveAudioStatus(eval.AudioSent, eval.AudioTreated),
		AudioFileName:  eval.AudioFileName,
		Sent:           eval.AudioSent,
		Treated:        eval.AudioTreated,
		AudioCreatedAt: eval.AudioCreatedAt,
		AudioUpdatedAt: eval.AudioUpdatedAt,
	}, nil
}

// Reprocess re-publishes the object-finalized event for a record stuck in
// SENT. The stored object must still exist; treated records are rejected.
func (s *AudioStatusService) Reprocess(ctx context.Context, evaluationID, bucket string) (string, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	eval, err := s.load(dbCtx, evaluationID)
	if err != nil {
		return "", err
	}

	if eval.AudioTreated {
		return "", fmt.Errorf("%w: evaluation %s is already processed", ErrConflict, evaluationID)
	}
	if eval.AudioFileName == "" {
		return "", fmt.Errorf("%w: evaluation %s has no audio file", ErrValidation, evaluationID)
	}
	if !eval.AudioSent {
		return "", fmt.Errorf("%w: upload for evaluation %s was never confirmed", ErrConflict, evaluationID)
	}

	exists, err := s.storage.ObjectExists(ctx, eval.AudioFileName)
	if err != nil {
		return "", mapStorageErr(err)
	}
	if !exists {
		return "", fmt.Errorf("%w: object %s is gone from storage", ErrNotFound, eval.AudioFileName)
	}

	messageID, err := s.queue.PublishObjectFinalized(ctx, eval.AudioFileName, bucket)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExternalService, err)
	}

	s.logger.Info("reprocess requested",
		zap.String("evaluation_id", evaluationID),
		zap.String("object_key", eval.AudioFileName),
		zap.String("message_id", messageID))
	return messageID, nil
}

// NotifyCompleted broadcasts the completion event for an evaluation. Called
// by the worker through the internal endpoint; best-effort by contract.
func (s *AudioStatusService) NotifyCompleted(ctx context.Context, evaluationID string) error {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	eval, err := s.load(dbCtx, evaluationID)
	if err != nil {
		return err
	}

	if s.events == nil {
		return nil
	}
	if err := s.events.PublishCompleted(ctx, eval.ID, eval.AudioFileName); err != nil {
		s.logger.Warn("completion broadcast failed",
			zap.String("evaluation_id", evaluationID),
			zap.Error(err))
		return fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	return nil
}

func (s *AudioStatusService) load(ctx context.Context, id string) (models.Evaluation, error) {
	if strings.TrimSpace(id) == "" {
		return models.Evaluation{}, fmt.Errorf("%w: evaluation id is required", ErrValidation)
	}
	eval, err := s.evaluations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Evaluation{}, fmt.Errorf("%w: evaluation %s", ErrNotFound, id)
		}
		return models.Evaluation{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return eval, nil
}

func mapStorageErr(err error) error {
	switch {
	case errors.Is(err, gateway.ErrInvalidFile):
		return fmt.Errorf("%w: %v", ErrValidation, err)
	case errors.Is(err, gateway.ErrBucketUnconfigured):
		return fmt.Errorf("%w: %v", ErrExternalService, err)
	case errors.Is(err, gateway.ErrObjectNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	default:
		return fmt.Errorf("%w: %v", ErrExternalService, err)
	}
}
