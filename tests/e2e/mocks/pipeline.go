package mocks

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/velohub/audio-qa-server/internal/gateway"
	"github.com/velohub/audio-qa-server/internal/repository/models"
)

type InMemoryCache struct{}

func (c *InMemoryCache) Get(ctx context.Context, key string, dest any) error {
	return sql.ErrNoRows
}

func (c *InMemoryCache) Set(ctx context.Context, key string, value any, exp time.Duration) error {
	return nil
}

func (c *InMemoryCache) Close() error {
	return nil
}

// FakeStorage stands in for the signed-URL bucket gateway. Every issued
// key is remembered so ObjectExists answers truthfully for the test run.
type FakeStorage struct {
	mu     sync.Mutex
	bucket string
	issued map[string]bool
}

func NewFakeStorage(bucket string) *FakeStorage {
	return &FakeStorage{bucket: bucket, issued: make(map[string]bool)}
}

func (s *FakeStorage) IssueUploadURL(ctx context.Context, fileName, mimeType string, sizeBytes int64) (gateway.UploadTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := "audio/" + fileName
	s.issued[key] = true
	return gateway.UploadTicket{
		UploadURL:        "https://storage.test/" + s.bucket + "/" + key,
		ObjectKey:        key,
		Bucket:           s.bucket,
		ExpiresInSeconds: 900,
	}, nil
}

func (s *FakeStorage) ObjectExists(ctx context.Context, objectKey string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issued[objectKey], nil
}

// CaptureQueue records every published finalize event so tests can replay
// them through the worker.
type CaptureQueue struct {
	mu        sync.Mutex
	Published []PublishedEvent
}

type PublishedEvent struct {
	ObjectKey string
	Bucket    string
}

func (q *CaptureQueue) PublishObjectFinalized(ctx context.Context, objectKey, bucket string) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.Published = append(q.Published, PublishedEvent{ObjectKey: objectKey, Bucket: bucket})
	return fmt.Sprintf("msg-%d", len(q.Published)), nil
}

// FakeTranscriber returns a canned transcript.
type FakeTranscriber struct {
	Calls int
}

func (t *FakeTranscriber) Transcribe(ctx context.Context, objectURI, languageCode string) (gateway.TranscriptionResult, error) {
	t.Calls++
	return gateway.TranscriptionResult{
		Text: "bom dia, em que posso ajudar",
		Words: []models.WordTimestamp{
			{Word: "bom", StartTime: 0.0, EndTime: 0.4},
			{Word: "dia", StartTime: 0.4, EndTime: 0.9},
		},
		Confidence: 0.93,
	}, nil
}

// FakeScorer hands out scores in sequence, so a primary and a secondary
// pass over the same transcript get distinct assessments.
type FakeScorer struct {
	mu     sync.Mutex
	Scores []float64
	Calls  int
}

func (s *FakeScorer) ScoreCall(ctx context.Context, transcript string, words []models.WordTimestamp) (gateway.CallScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	score := s.Scores[s.Calls%len(s.Scores)]
	s.Calls++
	return gateway.CallScore{
		Pass: models.ScoringPass{
			Criteria:     models.QualityCriteria{GreetingAdequate: true, ActiveListening: true},
			Score:        score,
			Confidence:   0.9,
			Rationale:    []string{"greeting present"},
			AnalysisText: "courteous opening, issue handled",
		},
		Emotion:       models.Emotion{Tone: "calm", Empathy: 0.8, Professionalism: 0.9},
		Nuance:        models.Nuance{Clarity: 0.85, Tension: 0.1},
		CriticalWords: []string{"cancelamento"},
	}, nil
}
