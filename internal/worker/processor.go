package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/velohub/audio-qa-server/internal/gateway"
	"github.com/velohub/audio-qa-server/internal/queue"
	"github.com/velohub/audio-qa-server/internal/repository/models"
)

const (
	defaultMaxRetries   = 3
	defaultRetryDelay   = time.Second
	transcribeAttempts  = 3
	notifyTimeout       = 5 * time.Second
	defaultLanguageCode = "pt-BR"
)

// Processor consumes object-finalize events and runs the analysis
// pipeline: transcribe, score twice, persist, notify.
type Processor struct {
	evaluations EvaluationSource
	transcriber Transcriber
	primary     Scorer
	secondary   Scorer
	recorder    Recorder
	notifier    Notifier

	tracker      *RetryTracker
	logger       *zap.Logger
	bucket       string
	languageCode string
	maxRetries   int
	retryDelay   time.Duration
	sleep        gateway.SleepFunc
	now          func() time.Time
}

type ProcessorOption func(*Processor)

func WithSecondaryScorer(s Scorer) ProcessorOption {
	return func(p *Processor) { p.secondary = s }
}

func WithNotifier(n Notifier) ProcessorOption {
	return func(p *Processor) { p.notifier = n }
}

func WithMaxRetries(n int) ProcessorOption {
	return func(p *Processor) {
		if n > 0 {
			p.maxRetries = n
		}
	}
}

func WithRetryDelay(d time.Duration) ProcessorOption {
	return func(p *Processor) {
		if d > 0 {
			p.retryDelay = d
		}
	}
}

func WithLanguage(code string) ProcessorOption {
	return func(p *Processor) {
		if code != "" {
			p.languageCode = code
		}
	}
}

func WithSleep(sleep gateway.SleepFunc) ProcessorOption {
	return func(p *Processor) { p.sleep = sleep }
}

func WithClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) { p.now = now }
}

func NewProcessor(
	evaluations EvaluationSource,
	transcriber Transcriber,
	primary Scorer,
	recorder Recorder,
	bucket string,
	logger *zap.Logger,
	opts ...ProcessorOption,
) *Processor {
	p := &Processor{
		evaluations:  evaluations,
		transcriber:  transcriber,
		primary:      primary,
		recorder:     recorder,
		tracker:      NewRetryTracker(),
		logger:       logger.Named("worker"),
		bucket:       bucket,
		languageCode: defaultLanguageCode,
		maxRetries:   defaultMaxRetries,
		retryDelay:   defaultRetryDelay,
		sleep:        time.Sleep,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handle is the queue handler. It runs the pipeline for one message and
// applies the retry policy on failure: exponential delay before nacking,
// and a final nack with no delay once the attempt budget is spent so the
// subscription's dead-letter policy takes the message.
func (p *Processor) Handle(ctx context.Context, messageID string, data []byte) error {
	err := p.process(ctx, data)
	if err == nil {
		p.tracker.Forget(messageID)
		return nil
	}

	attempts := p.tracker.Increment(messageID)
	if attempts >= p.maxRetries {
		p.tracker.Forget(messageID)
		p.logger.Error("message failed permanently",
			zap.String("messageId", messageID),
			zap.Int("attempts", attempts),
			zap.Error(err))
		return err
	}

	delay := p.retryDelay << (attempts - 1)
	p.logger.Warn("message failed, delaying before nack",
		zap.String("messageId", messageID),
		zap.Int("attempt", attempts),
		zap.Duration("delay", delay),
		zap.Error(err))
	p.sleep(delay)
	return err
}

func (p *Processor) process(ctx context.Context, data []byte) error {
	event, err := queue.ParseObjectEvent(data)
	if err != nil {
		return err
	}

	eval, err := p.evaluations.GetByAudioFileName(ctx, event.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The finalize event can outrun the upload confirmation;
			// redelivery resolves that. A persistently unknown object
			// ends up in the dead letter queue.
			return fmt.Errorf("no evaluation owns object %q: %w", event.Name, err)
		}
		return fmt.Errorf("look up evaluation for %q: %w", event.Name, err)
	}

	logger := p.logger.With(
		zap.String("evaluation_id", eval.ID),
		zap.String("object_key", event.Name))

	if eval.AudioTreated {
		logger.Info("evaluation already treated, acking duplicate event")
		return nil
	}

	// The event itself proves the object landed in the bucket, so a
	// missed confirm-upload call does not strand the evaluation.
	if !eval.AudioSent {
		if err := p.evaluations.MarkSent(ctx, eval.ID, p.now()); err != nil {
			return fmt.Errorf("mark evaluation sent: %w", err)
		}
	}

	bucket := event.Bucket
	if bucket == "" {
		bucket = p.bucket
	}
	objectURI := fmt.Sprintf("gs://%s/%s", bucket, event.Name)

	started := p.now()
	transcription, err := gateway.WithRetry(ctx, func(ctx context.Context) (gateway.TranscriptionResult, error) {
		return p.transcriber.Transcribe(ctx, objectURI, p.languageCode)
	}, transcribeAttempts, p.retryDelay, p.sleep)
	if err != nil {
		return fmt.Errorf("transcribe %s: %w", objectURI, err)
	}
	logger.Info("transcription complete",
		zap.Int("words", len(transcription.Words)),
		zap.Float64("confidence", transcription.Confidence))

	primaryScore, err := gateway.WithRetry(ctx, func(ctx context.Context) (gateway.CallScore, error) {
		return p.primary.ScoreCall(ctx, transcription.Text, transcription.Words)
	}, p.maxRetries, p.retryDelay, p.sleep)
	if err != nil {
		return fmt.Errorf("score transcript: %w", err)
	}

	result := models.AnalysisResult{
		EvaluationID:    eval.ID,
		FileName:        event.Name,
		ObjectURI:       objectURI,
		Transcript:      transcription.Text,
		WordTimestamps:  transcription.Words,
		Emotion:         primaryScore.Emotion,
		Nuance:          primaryScore.Nuance,
		QualityAnalysis: primaryScore.Pass,
		CriticalWords:   primaryScore.CriticalWords,
	}

	// The second pass is best-effort. When it succeeds the published
	// score becomes the mean of both passes.
	if p.secondary != nil {
		secondScore, err := p.secondary.ScoreCall(ctx, transcription.Text, transcription.Words)
		if err != nil {
			logger.Warn("secondary scoring pass failed, keeping primary only", zap.Error(err))
		} else {
			pass := secondScore.Pass
			result.GPTAnalysis = &pass
			consensus := math.Round((primaryScore.Pass.Score+pass.Score)/2*100) / 100
			result.ConsensusScore = &consensus
		}
	}

	result.ProcessingSeconds = p.now().Sub(started).Seconds()

	saved, err := p.recorder.RecordAnalysis(ctx, result)
	if err != nil {
		return fmt.Errorf("record analysis: %w", err)
	}
	logger.Info("analysis recorded",
		zap.String("result_id", saved.ID),
		zap.Float64("score", saved.EffectiveScore()),
		zap.Float64("processing_seconds", result.ProcessingSeconds))

	if p.notifier != nil {
		notifyCtx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := p.notifier.NotifyCompleted(notifyCtx, eval.ID); err != nil {
			logger.Warn("completion notification failed", zap.Error(err))
		}
	}

	return nil
}
