package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/velohub/audio-qa-server/internal/repository/models"
)

const transcribeTimeout = 5 * time.Minute

// TranscriptionResult is the text and word timing recovered from one call
// recording.
type TranscriptionResult struct {
	Text       string
	Words      []models.WordTimestamp
	Confidence float64
}

// SpeechTranscriber wraps the Speech-to-Text long-running recognize API.
type SpeechTranscriber struct {
	client *speech.Client
	logger *zap.Logger
}

func NewSpeechTranscriber(ctx context.Context, logger *zap.Logger) (*SpeechTranscriber, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}
	return &SpeechTranscriber{client: client, logger: logger.Named("speech")}, nil
}

// Transcribe runs long-running recognition against an object URI
// (gs://bucket/key) and flattens the result into one transcript plus
// word-level timestamps. An empty transcript is an error.
func (t *SpeechTranscriber) Transcribe(ctx context.Context, objectURI, languageCode string) (TranscriptionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, transcribeTimeout)
	defer cancel()

	op, err := t.client.LongRunningRecognize(ctx, &speechpb.LongRunningRecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_MP3,
			SampleRateHertz:            16000,
			LanguageCode:               languageCode,
			EnableAutomaticPunctuation: true,
			EnableWordTimeOffsets:      true,
			Model:                      "latest_long",
			UseEnhanced:                true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Uri{Uri: objectURI},
		},
	})
	if err != nil {
		return TranscriptionResult{}, fmt.Errorf("start recognize for %s: %w", objectURI, err)
	}

	resp, err := op.Wait(ctx)
	if err != nil {
		return TranscriptionResult{}, fmt.Errorf("recognize %s: %w", objectURI, err)
	}

	var sb strings.Builder
	var words []models.WordTimestamp
	confidence := 0.0

	for i, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		alt := alts[0]
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strings.TrimSpace(alt.GetTranscript()))
		if i == 0 {
			confidence = float64(alt.GetConfidence())
		}
		for _, w := range alt.GetWords() {
			words = append(words, models.WordTimestamp{
				Word:      w.GetWord(),
				StartTime: w.GetStartTime().AsDuration().Seconds(),
				EndTime:   w.GetEndTime().AsDuration().Seconds(),
			})
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return TranscriptionResult{}, fmt.Errorf("%w: %s", ErrEmptyTranscription, objectURI)
	}

	t.logger.Info("transcription finished",
		zap.String("object_uri", objectURI),
		zap.Int("chars", len(text)),
		zap.Int("words", len(words)))

	return TranscriptionResult{Text: text, Words: words, Confidence: confidence}, nil
}

func (t *SpeechTranscriber) Close() error {
	return t.client.Close()
}
