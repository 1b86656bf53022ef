package worker

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
	"github.com/velohub/audio-qa-server/internal/worker/mocks"
)

const testObjectKey = "audio/1700000000000-call.mp3"

func finalizeEvent() []byte {
	return []byte(`{"name":"` + testObjectKey + `","bucket":"velohub-audio"}`)
}

func sentEvaluation() models.Evaluation {
	return models.Evaluation{
		ID:            "eval-1",
		AgentName:     "Ana",
		AudioFileName: testObjectKey,
		AudioSent:     true,
	}
}

func noSleep(time.Duration) {}

func TestProcessorHappyPathWithConsensus(t *testing.T) {
	var recorded models.AnalysisResult
	var notified string

	evaluations := &mocks.MockEvaluationSource{
		GetByAudioFileNameFunc: func(ctx context.Context, key string) (models.Evaluation, error) {
			assert.Equal(t, testObjectKey, key)
			return sentEvaluation(), nil
		},
	}
	transcriber := &mocks.MockTranscriber{
		TranscribeFunc: func(ctx context.Context, uri, lang string) (gateway.TranscriptionResult, error) {
			assert.Equal(t, "gs://velohub-audio/"+testObjectKey, uri)
			assert.Equal(t, "pt-BR", lang)
			return gateway.TranscriptionResult{Text: "bom dia", Confidence: 0.93}, nil
		},
	}
	primary := &mocks.MockScorer{
		ScoreCallFunc: func(ctx context.Context, transcript string, _ []models.WordTimestamp) (gateway.CallScore, error) {
			return gateway.CallScore{Pass: models.ScoringPass{Score: 80}}, nil
		},
	}
	secondary := &mocks.MockScorer{
		ScoreCallFunc: func(ctx context.Context, transcript string, _ []models.WordTimestamp) (gateway.CallScore, error) {
			return gateway.CallScore{Pass: models.ScoringPass{Score: 90}}, nil
		},
	}
	recorder := &mocks.MockRecorder{
		RecordAnalysisFunc: func(ctx context.Context, result models.AnalysisResult) (models.AnalysisResult, error) {
			recorded = result
			result.ID = "result-1"
			return result, nil
		},
	}
	notifier := &mocks.MockNotifier{
		NotifyCompletedFunc: func(ctx context.Context, id string) error {
			notified = id
			return nil
		},
	}

	p := NewProcessor(evaluations, transcriber, primary, recorder, "velohub-audio", zap.NewNop(),
		WithSecondaryScorer(secondary),
		WithNotifier(notifier),
		WithSleep(noSleep))

	err := p.Handle(context.Background(), "msg-1", finalizeEvent())
	require.NoError(t, err)

	assert.Equal(t, "eval-1", recorded.EvaluationID)
	assert.Equal(t, "bom dia", recorded.Transcript)
	assert.Equal(t, 80.0, recorded.QualityAnalysis.Score)
	require.NotNil(t, recorded.GPTAnalysis)
	assert.Equal(t, 90.0, recorded.GPTAnalysis.Score)
	require.NotNil(t, recorded.ConsensusScore)
	assert.Equal(t, 85.0, *recorded.ConsensusScore)
	assert.Equal(t, "eval-1", notified)
}

func TestProcessorSecondaryPassIsBestEffort(t *testing.T) {
	var recorded models.AnalysisResult

	evaluations := &mocks.MockEvaluationSource{
		GetByAudioFileNameFunc: func(ctx context.Context, key string) (models.Evaluation, error) {
			return sentEvaluation(), nil
		},
	}
	transcriber := &mocks.MockTranscriber{
		TranscribeFunc: func(ctx context.Context, uri, lang string) (gateway.TranscriptionResult, error) {
			return gateway.TranscriptionResult{Text: "bom dia"}, nil
		},
	}
	primary := &mocks.MockScorer{
		ScoreCallFunc: func(ctx context.Context, _ string, _ []models.WordTimestamp) (gateway.CallScore, error) {
			return gateway.CallScore{Pass: models.ScoringPass{Score: 72}}, nil
		},
	}
	secondary := &mocks.MockScorer{
		ScoreCallFunc: func(ctx context.Context, _ string, _ []models.WordTimestamp) (gateway.CallScore, error) {
			return gateway.CallScore{}, errors.New("model overloaded")
		},
	}
	recorder := &mocks.MockRecorder{
		RecordAnalysisFunc: func(ctx context.Context, result models.AnalysisResult) (models.AnalysisResult, error) {
			recorded = result
			return result, nil
		},
	}

	p := NewProcessor(evaluations, transcriber, primary, recorder, "velohub-audio", zap.NewNop(),
		WithSecondaryScorer(secondary),
		WithSleep(noSleep))

	err := p.Handle(context.Background(), "msg-1", finalizeEvent())
	require.NoError(t, err)

	assert.Nil(t, recorded.GPTAnalysis)
	assert.Nil(t, recorded.ConsensusScore)
	assert.Equal(t, 72.0, recorded.QualityAnalysis.Score)
	assert.Equal(t, 72.0, recorded.EffectiveScore())
}

func TestProcessorAcksAlreadyTreatedEvaluation(t *testing.T) {
	evaluations := &mocks.MockEvaluationSource{
		GetByAudioFileNameFunc: func(ctx context.Context, key string) (models.Evaluation, error) {
			eval := sentEvaluation()
			eval.AudioTreated = true
			return eval, nil
		},
	}
	transcriber := &mocks.MockTranscriber{
		TranscribeFunc: func(ctx context.Context, uri, lang string) (gateway.TranscriptionResult, error) {
			t.Fatal("transcriber should not run for a treated evaluation")
			return gateway.TranscriptionResult{}, nil
		},
	}

	p := NewProcessor(evaluations, transcriber, &mocks.MockScorer{}, &mocks.MockRecorder{}, "velohub-audio", zap.NewNop(),
		WithSleep(noSleep))

	err := p.Handle(context.Background(), "msg-1", finalizeEvent())
	require.NoError(t, err)
}

func TestProcessorMarksSentWhenConfirmationWasMissed(t *testing.T) {
	var marked string
	evaluations := &mocks.MockEvaluationSource{
		GetByAudioFileNameFunc: func(ctx context.Context, key string) (models.Evaluation, error) {
			eval := sentEvaluation()
			eval.AudioSent = false
			return eval, nil
		},
		MarkSentFunc: func(ctx context.Context, id string, now time.Time) error {
			marked = id
			return nil
		},
	}
	transcriber := &mocks.MockTranscriber{
		TranscribeFunc: func(ctx context.Context, uri, lang string) (gateway.TranscriptionResult, error) {
			return gateway.TranscriptionResult{Text: "ola"}, nil
		},
	}
	primary := &mocks.MockScorer{
		ScoreCallFunc: func(ctx context.Context, _ string, _ []models.WordTimestamp) (gateway.CallScore, error) {
			return gateway.CallScore{Pass: models.ScoringPass{Score: 50}}, nil
		},
	}
	recorder := &mocks.MockRecorder{
		RecordAnalysisFunc: func(ctx context.Context, result models.AnalysisResult) (models.AnalysisResult, error) {
			return result, nil
		},
	}

	p := NewProcessor(evaluations, transcriber, primary, recorder, "velohub-audio", zap.NewNop(),
		WithSleep(noSleep))

	err := p.Handle(context.Background(), "msg-1", finalizeEvent())
	require.NoError(t, err)
	assert.Equal(t, "eval-1", marked)
}

func TestProcessorRetryScheduleAndPermanentFailure(t *testing.T) {
	evaluations := &mocks.MockEvaluationSource{
		GetByAudioFileNameFunc: func(ctx context.Context, key string) (models.Evaluation, error) {
			return models.Evaluation{}, sql.ErrNoRows
		},
	}

	var slept []time.Duration
	p := NewProcessor(evaluations, &mocks.MockTranscriber{}, &mocks.MockScorer{}, &mocks.MockRecorder{}, "velohub-audio", zap.NewNop(),
		WithSleep(func(d time.Duration) { slept = append(slept, d) }))

	// First two failures delay before nacking; the third is permanent
	// and returns immediately so the dead letter policy takes over.
	require.Error(t, p.Handle(context.Background(), "msg-1", finalizeEvent()))
	require.Error(t, p.Handle(context.Background(), "msg-1", finalizeEvent()))
	require.Error(t, p.Handle(context.Background(), "msg-1", finalizeEvent()))

	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, slept)

	// Counter was forgotten on permanent failure, so a redelivery starts
	// a fresh schedule.
	require.Error(t, p.Handle(context.Background(), "msg-1", finalizeEvent()))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, time.Second}, slept)
}

func TestProcessorMalformedEventFailsHandling(t *testing.T) {
	p := NewProcessor(&mocks.MockEvaluationSource{}, &mocks.MockTranscriber{}, &mocks.MockScorer{}, &mocks.MockRecorder{}, "velohub-audio", zap.NewNop(),
		WithSleep(noSleep))

	err := p.Handle(context.Background(), "msg-1", []byte(`{"bucket":"only"}`))
	require.Error(t, err)
}

func TestRetryTrackerExpiresEntries(t *testing.T) {
	tracker := NewRetryTracker()
	current := time.Unix(1_700_000_000, 0)
	tracker.now = func() time.Time { return current }

	assert.Equal(t, 1, tracker.Increment("msg-1"))
	assert.Equal(t, 2, tracker.Increment("msg-1"))

	current = current.Add(trackerEntryTTL + time.Minute)
	assert.Equal(t, 1, tracker.Increment("msg-1"))

	tracker.Forget("msg-1")
	assert.Equal(t, 1, tracker.Increment("msg-1"))
}
