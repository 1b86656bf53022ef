package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/velohub/audio-qa-server/internal/gateway"
	"github.com/velohub/audio-qa-server/internal/repository/models"
	"github.com/velohub/audio-qa-server/internal/service/mocks"
)

func evaluationInState(sent, treated bool) models.Evaluation {
	eval := models.Evaluation{
		ID:        "eval-1",
		AgentName: "Ana",
	}
	if sent || treated {
		eval.AudioFileName = "audio/1700000000000-call.mp3"
	}
	eval.AudioSent = sent
	eval.AudioTreated = treated
	return eval
}

func repoReturning(eval models.Evaluation) *mocks.MockEvaluationRepository {
	return &mocks.MockEvaluationRepository{
		GetByIDFunc: func(ctx context.Context, id string) (models.Evaluation, error) {
			return eval, nil
		},
	}
}

func TestNewAudioStatusService(t *testing.T) {
	t.Run("nil repository panics", func(t *testing.T) {
		assert.Panics(t, func() {
			NewAudioStatusService(nil, nil, nil, nil, zap.NewNop())
		})
	})
}

func TestCreateEvaluationValidation(t *testing.T) {
	svc := NewAudioStatusService(&mocks.MockEvaluationRepository{}, nil, nil, nil, zap.NewNop())

	_, err := svc.CreateEvaluation(context.Background(), NewEvaluation{AgentName: "Ana"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateEvaluation(context.Background(), NewEvaluation{
		EvaluatorName: "Bruno", AgentName: "Ana",
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRequestUploadURL(t *testing.T) {
	t.Run("issues ticket and records pending key", func(t *testing.T) {
		var pendingKey string
		repo := repoReturning(evaluationInState(false, false))
		repo.SetUploadPendingFunc = func(ctx context.Context, id, objectKey string, now time.Time) error {
			pendingKey = objectKey
			return nil
		}
		storage := &mocks.MockObjectStorage{
			IssueUploadURLFunc: func(ctx context.Context, fileName, mimeType string, sizeBytes int64) (gateway.UploadTicket, error) {
				return gateway.UploadTicket{ObjectKey: "audio/1-call.mp3", UploadURL: "https://signed"}, nil
			},
		}
		svc := NewAudioStatusService(repo, storage, nil, nil, zap.NewNop())

		ticket, err := svc.RequestUploadURL(context.Background(), "eval-1", "call.mp3", "audio/mpeg", 1024)
		require.NoError(t, err)
		assert.Equal(t, "audio/1-call.mp3", ticket.ObjectKey)
		assert.Equal(t, "audio/1-call.mp3", pendingKey)
	})

	t.Run("conflict while an upload awaits processing", func(t *testing.T) {
		svc := NewAudioStatusService(repoReturning(evaluationInState(true, false)), nil, nil, nil, zap.NewNop())

		_, err := svc.RequestUploadURL(context.Background(), "eval-1", "call.mp3", "audio/mpeg", 1024)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("allowed again after treatment", func(t *testing.T) {
		repo := repoReturning(evaluationInState(true, true))
		repo.SetUploadPendingFunc = func(ctx context.Context, id, objectKey string, now time.Time) error {
			return nil
		}
		storage := &mocks.MockObjectStorage{
			IssueUploadURLFunc: func(ctx context.Context, fileName, mimeType string, sizeBytes int64) (gateway.UploadTicket, error) {
				return gateway.UploadTicket{ObjectKey: "audio/2-call.mp3"}, nil
			},
		}
		svc := NewAudioStatusService(repo, storage, nil, nil, zap.NewNop())

		_, err := svc.RequestUploadURL(context.Background(), "eval-1", "call.mp3", "audio/mpeg", 1024)
		assert.NoError(t, err)
	})

	t.Run("invalid file maps to validation error", func(t *testing.T) {
		repo := repoReturning(evaluationInState(false, false))
		storage := &mocks.MockObjectStorage{
			IssueUploadURLFunc: func(ctx context.Context, fileName, mimeType string, sizeBytes int64) (gateway.UploadTicket, error) {
				return gateway.UploadTicket{}, gateway.ErrInvalidFile
			},
		}
		svc := NewAudioStatusService(repo, storage, nil, nil, zap.NewNop())

		_, err := svc.RequestUploadURL(context.Background(), "eval-1", "call.exe", "application/octet-stream", 1024)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown evaluation", func(t *testing.T) {
		repo := &mocks.MockEvaluationRepository{
			GetByIDFunc: func(ctx context.Context, id string) (models.Evaluation, error) {
				return models.Evaluation{}, sql.ErrNoRows
			},
		}
		svc := NewAudioStatusService(repo, nil, nil, nil, zap.NewNop())

		_, err := svc.RequestUploadURL(context.Background(), "missing", "call.mp3", "audio/mpeg", 0)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestConfirmUpload(t *testing.T) {
	t.Run("marks sent on matching key", func(t *testing.T) {
		marked := false
		eval := evaluationInState(false, false)
		eval.AudioFileName = "audio/1-call.mp3"
		repo := repoReturning(eval)
		repo.MarkSentFunc = func(ctx context.Context, id string, now time.Time) error {
			marked = true
			return nil
		}
		svc := NewAudioStatusService(repo, nil, nil, nil, zap.NewNop())

		require.NoError(t, svc.ConfirmUpload(context.Background(), "eval-1", "audio/1-call.mp3"))
		assert.True(t, marked)
	})

	t.Run("mismatched key", func(t *testing.T) {
		eval := evaluationInState(false, false)
		eval.AudioFileName = "audio/1-call.mp3"
		svc := NewAudioStatusService(repoReturning(eval), nil, nil, nil, zap.NewNop())

		err := svc.ConfirmUpload(context.Background(), "eval-1", "audio/other.mp3")
		assert.ErrorIs(t, err, ErrMismatch)
	})

	t.Run("no upload url issued", func(t *testing.T) {
		svc := NewAudioStatusService(repoReturning(evaluationInState(false, false)), nil, nil, nil, zap.NewNop())

		err := svc.ConfirmUpload(context.Background(), "eval-1", "audio/1-call.mp3")
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("already confirmed", func(t *testing.T) {
		svc := NewAudioStatusService(repoReturning(evaluationInState(true, false)), nil, nil, nil, zap.NewNop())

		err := svc.ConfirmUpload(context.Background(), "eval-1", "audio/1700000000000-call.mp3")
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestStatusProjection(t *testing.T) {
	svc := NewAudioStatusService(repoReturning(evaluationInState(true, false)), nil, nil, nil, zap.NewNop())

	info, err := svc.Status(context.Background(), "eval-1")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, info.Status)
	assert.True(t, info.Sent)
	assert.False(t, info.Treated)
}

func TestReprocess(t *testing.T) {
	storageWith := func(exists bool) *mocks.MockObjectStorage {
		return &mocks.MockObjectStorage{
			ObjectExistsFunc: func(ctx context.Context, objectKey string) (bool, error) {
				return exists, nil
			},
		}
	}

	t.Run("republishes the finalize event", func(t *testing.T) {
		queue := &mocks.MockQueuePublisher{
			PublishObjectFinalizedFunc: func(ctx context.Context, objectKey, bucket string) (string, error) {
				assert.Equal(t, "audio/1700000000000-call.mp3", objectKey)
				assert.Equal(t, "velohub-audio", bucket)
				return "msg-9", nil
			},
		}
		svc := NewAudioStatusService(repoReturning(evaluationInState(true, false)), storageWith(true), queue, nil, zap.NewNop())

		id, err := svc.Reprocess(context.Background(), "eval-1", "velohub-audio")
		require.NoError(t, err)
		assert.Equal(t, "msg-9", id)
	})

	t.Run("rejected when already treated", func(t *testing.T) {
		svc := NewAudioStatusService(repoReturning(evaluationInState(true, true)), storageWith(true), nil, nil, zap.NewNop())

		_, err := svc.Reprocess(context.Background(), "eval-1", "velohub-audio")
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("rejected without an audio file", func(t *testing.T) {
		svc := NewAudioStatusService(repoReturning(evaluationInState(false, false)), storageWith(true), nil, nil, zap.NewNop())

		_, err := svc.Reprocess(context.Background(), "eval-1", "velohub-audio")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("rejected before upload confirmation", func(t *testing.T) {
		eval := evaluationInState(false, false)
		eval.AudioFileName = "audio/1-call.mp3"
		svc := NewAudioStatusService(repoReturning(eval), storageWith(true), nil, nil, zap.NewNop())

		_, err := svc.Reprocess(context.Background(), "eval-1", "velohub-audio")
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("rejected when the object is gone", func(t *testing.T) {
		svc := NewAudioStatusService(repoReturning(evaluationInState(true, false)), storageWith(false), nil, nil, zap.NewNop())

		_, err := svc.Reprocess(context.Background(), "eval-1", "velohub-audio")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestNotifyCompleted(t *testing.T) {
	t.Run("publishes the completion event", func(t *testing.T) {
		var published string
		events := &mocks.MockCompletionPublisher{
			PublishCompletedFunc: func(ctx context.Context, evaluationID, fileName string) error {
				published = evaluationID
				return nil
			},
		}
		svc := NewAudioStatusService(repoReturning(evaluationInState(true, true)), nil, nil, events, zap.NewNop())

		require.NoError(t, svc.NotifyCompleted(context.Background(), "eval-1"))
		assert.Equal(t, "eval-1", published)
	})

	t.Run("broadcast failure surfaces as external error", func(t *testing.T) {
		events := &mocks.MockCompletionPublisher{
			PublishCompletedFunc: func(ctx context.Context, evaluationID, fileName string) error {
				return errors.New("redis down")
			},
		}
		svc := NewAudioStatusService(repoReturning(evaluationInState(true, true)), nil, nil, events, zap.NewNop())

		err := svc.NotifyCompleted(context.Background(), "eval-1")
		assert.ErrorIs(t, err, ErrExternalService)
	})
}
