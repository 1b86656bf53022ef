package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/velohub/audio-qa-server/internal/repository/models"
	"github.com/velohub/audio-qa-server/internal/service/mocks"
)

func TestGetResult(t *testing.T) {
	t.Run("maps missing row to not found", func(t *testing.T) {
		repo := &mocks.MockAnalysisResultRepository{
			GetByEvaluationIDFunc: func(ctx context.Context, id string) (models.AnalysisResult, error) {
				return models.AnalysisResult{}, sql.ErrNoRows
			},
		}
		svc := NewAnalysisService(repo, &mocks.MockEvaluationRepository{}, zap.NewNop())

		_, err := svc.GetResult(context.Background(), "eval-1")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRecordAnalysis(t *testing.T) {
	t.Run("upserts then marks treated", func(t *testing.T) {
		var upserted, treated bool
		results := &mocks.MockAnalysisResultRepository{
			UpsertByEvaluationFunc: func(ctx context.Context, result models.AnalysisResult) (models.AnalysisResult, error) {
				upserted = true
				return result, nil
			},
		}
		evaluations := &mocks.MockEvaluationRepository{
			MarkTreatedFunc: func(ctx context.Context, id string, now time.Time) (bool, error) {
				treated = true
				return true, nil
			},
		}
		svc := NewAnalysisService(results, evaluations, zap.NewNop())

		_, err := svc.RecordAnalysis(context.Background(), models.AnalysisResult{EvaluationID: "eval-1"})
		require.NoError(t, err)
		assert.True(t, upserted)
		assert.True(t, treated)
	})

	t.Run("duplicate delivery stays successful", func(t *testing.T) {
		results := &mocks.MockAnalysisResultRepository{
			UpsertByEvaluationFunc: func(ctx context.Context, result models.AnalysisResult) (models.AnalysisResult, error) {
				return result, nil
			},
		}
		evaluations := &mocks.MockEvaluationRepository{
			MarkTreatedFunc: func(ctx context.Context, id string, now time.Time) (bool, error) {
				return false, nil
			},
		}
		svc := NewAnalysisService(results, evaluations, zap.NewNop())

		_, err := svc.RecordAnalysis(context.Background(), models.AnalysisResult{EvaluationID: "eval-1"})
		assert.NoError(t, err)
	})
}

func TestAgentAverage(t *testing.T) {
	repoWith := func(scores []float64) *mocks.MockAnalysisResultRepository {
		return &mocks.MockAnalysisResultRepository{
			AgentScoresFunc: func(ctx context.Context, agent string, start, end *time.Time) ([]float64, error) {
				return scores, nil
			},
		}
	}

	t.Run("averages effective scores", func(t *testing.T) {
		svc := NewAnalysisService(repoWith([]float64{80, 60, 100}), &mocks.MockEvaluationRepository{}, zap.NewNop())

		avg, err := svc.AgentAverage(context.Background(), "Ana", DateRange{})
		require.NoError(t, err)
		require.NotNil(t, avg.Average)
		assert.Equal(t, 80.0, *avg.Average)
		assert.Equal(t, 3, avg.SampleCount)
	})

	t.Run("rounds to two decimals", func(t *testing.T) {
		svc := NewAnalysisService(repoWith([]float64{80, 85}), &mocks.MockEvaluationRepository{}, zap.NewNop())

		avg, err := svc.AgentAverage(context.Background(), "Ana", DateRange{})
		require.NoError(t, err)
		assert.Equal(t, 82.5, *avg.Average)

		svc = NewAnalysisService(repoWith([]float64{70, 70, 71}), &mocks.MockEvaluationRepository{}, zap.NewNop())
		avg, err = svc.AgentAverage(context.Background(), "Ana", DateRange{})
		require.NoError(t, err)
		assert.Equal(t, 70.33, *avg.Average)
	})

	t.Run("empty set yields nil average, not an error", func(t *testing.T) {
		svc := NewAnalysisService(repoWith(nil), &mocks.MockEvaluationRepository{}, zap.NewNop())

		avg, err := svc.AgentAverage(context.Background(), "Ana", DateRange{})
		require.NoError(t, err)
		assert.Nil(t, avg.Average)
		assert.Equal(t, 0, avg.SampleCount)
	})

	t.Run("widened bounds cover whole days", func(t *testing.T) {
		var gotStart, gotEnd *time.Time
		repo := &mocks.MockAnalysisResultRepository{
			AgentScoresFunc: func(ctx context.Context, agent string, start, end *time.Time) ([]float64, error) {
				gotStart, gotEnd = start, end
				return []float64{50}, nil
			},
		}
		svc := NewAnalysisService(repo, &mocks.MockEvaluationRepository{}, zap.NewNop())

		day := time.Date(2026, 1, 15, 13, 45, 0, 0, time.UTC)
		_, err := svc.AgentAverage(context.Background(), "Ana", DateRange{Start: &day, End: &day})
		require.NoError(t, err)

		require.NotNil(t, gotStart)
		require.NotNil(t, gotEnd)
		assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), gotStart.UTC())
		assert.Equal(t, 15, gotEnd.UTC().Day())
		assert.Equal(t, 23, gotEnd.UTC().Hour())
	})

	t.Run("validation failures", func(t *testing.T) {
		svc := NewAnalysisService(repoWith(nil), &mocks.MockEvaluationRepository{}, zap.NewNop())

		_, err := svc.AgentAverage(context.Background(), "  ", DateRange{})
		assert.ErrorIs(t, err, ErrValidation)

		start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
		end := start.Add(-24 * time.Hour)
		_, err = svc.AgentAverage(context.Background(), "Ana", DateRange{Start: &start, End: &end})
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestListByAgent(t *testing.T) {
	t.Run("translates month name to its number", func(t *testing.T) {
		var gotMonth, gotYear, gotLimit int
		repo := &mocks.MockAnalysisResultRepository{
			ListByAgentFunc: func(ctx context.Context, agent string, month, year, limit int) ([]models.AgentResult, error) {
				gotMonth, gotYear, gotLimit = month, year, limit
				return nil, nil
			},
		}
		svc := NewAnalysisService(repo, &mocks.MockEvaluationRepository{}, zap.NewNop())

		_, err := svc.ListByAgent(context.Background(), "Ana", "Março", 2026)
		require.NoError(t, err)
		assert.Equal(t, 3, gotMonth)
		assert.Equal(t, 2026, gotYear)
		assert.Equal(t, 100, gotLimit)
	})

	t.Run("unknown month", func(t *testing.T) {
		svc := NewAnalysisService(&mocks.MockAnalysisResultRepository{}, &mocks.MockEvaluationRepository{}, zap.NewNop())

		_, err := svc.ListByAgent(context.Background(), "Ana", "March", 2026)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("empty month means all months", func(t *testing.T) {
		repo := &mocks.MockAnalysisResultRepository{
			ListByAgentFunc: func(ctx context.Context, agent string, month, year, limit int) ([]models.AgentResult, error) {
				assert.Zero(t, month)
				return nil, nil
			},
		}
		svc := NewAnalysisService(repo, &mocks.MockEvaluationRepository{}, zap.NewNop())

		_, err := svc.ListByAgent(context.Background(), "Ana", "", 0)
		assert.NoError(t, err)
	})
}

func TestUpdateAnalysisText(t *testing.T) {
	t.Run("rejects empty text", func(t *testing.T) {
		svc := NewAnalysisService(&mocks.MockAnalysisResultRepository{}, &mocks.MockEvaluationRepository{}, zap.NewNop())

		err := svc.UpdateAnalysisText(context.Background(), "eval-1", "  ")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("maps missing analysis to not found", func(t *testing.T) {
		repo := &mocks.MockAnalysisResultRepository{
			UpdateAnalysisTextFunc: func(ctx context.Context, id, text string) error {
				return sql.ErrNoRows
			},
		}
		svc := NewAnalysisService(repo, &mocks.MockEvaluationRepository{}, zap.NewNop())

		err := svc.UpdateAnalysisText(context.Background(), "eval-1", "novo texto")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
