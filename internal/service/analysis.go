package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/velohub/audio-qa-server/internal/repository/models"
)

const listLimit = 100

// Calendar month names in the evaluations' local language (pt-BR), matched
// by the list filter.
var monthNames = []string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// AnalysisService reads and records audio analysis results.
type AnalysisService struct {
	results     AnalysisResultRepository
	evaluations EvaluationRepository
	logger      *zap.Logger
	now         func() time.Time
}

// NewAnalysisService creates the result query/recording service.
func NewAnalysisService(results AnalysisResultRepository, evaluations EvaluationRepository, logger *zap.Logger) *AnalysisService {
	if results == nil {
		panic("results repository must not be nil")
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	return &AnalysisService{
		results:     results,
		evaluations: evaluations,
		logger:      logger,
		now:         time.Now,
	}
}

// GetResult returns the analysis for an evaluation, or ErrNotFound while it
// is still processing or absent.
func (s *AnalysisService) GetResult(ctx context.Context, evaluationID string) (models.AnalysisResult, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	result, err := s.results.GetByEvaluationID(dbCtx, evaluationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.AnalysisResult{}, fmt.Errorf("%w: analysis for evaluation %s is still processing or absent", ErrNotFound, evaluationID)
		}
		return models.AnalysisResult{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return result, nil
}

// RecordAnalysis durably writes the analysis and flips the evaluation to
// TREATED. Safe under duplicate queue delivery: the result upsert is keyed
// by evaluation id and MarkTreated is a no-op when already treated.
func (s *AnalysisService) RecordAnalysis(ctx context.Context, result models.AnalysisResult) (models.AnalysisResult, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	saved, err := s.results.UpsertByEvaluation(dbCtx, result)
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	transitioned, err := s.evaluations.MarkTreated(dbCtx, result.EvaluationID, s.now())
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if !transitioned {
		s.logger.Info("evaluation already treated, duplicate delivery ignored",
			zap.String("evaluation_id", result.EvaluationID))
	}
	return saved, nil
}

// AgentAverage averages the effective scores of one agent's analyses,
// optionally bounded by an inclusive date range over the analyses' creation
// dates. Empty match sets return a nil average, not an error.
func (s *AnalysisService) AgentAverage(ctx context.Context, agentName string, window DateRange) (AgentAverage, error) {
	if strings.TrimSpace(agentName) == "" {
		return AgentAverage{}, fmt.Errorf("%w: agent name is required", ErrValidation)
	}
	if window.Start != nil && window.End != nil && window.End.Before(*window.Start) {
		return AgentAverage{}, fmt.Errorf("%w: dateEnd precedes dateStart", ErrValidation)
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	start, end := normalizeRange(window)
	scores, err := s.results.AgentScores(dbCtx, agentName, start, end)
	if err != nil {
		return AgentAverage{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if len(scores) == 0 {
		return AgentAverage{Average: nil, SampleCount: 0}, nil
	}

	sum := 0.0
	for _, score := range scores {
		sum += score
	}
	avg := math.Round(sum/float64(len(scores))*100) / 100

	s.logger.Info("agent average computed",
		zap.String("agent", agentName),
		zap.Float64("average", avg),
		zap.Int("samples", len(scores)))
	return AgentAverage{Average: &avg, SampleCount: len(scores)}, nil
}

// ListByAgent returns up to 100 analyses for the agent, newest first,
// optionally narrowed to a calendar month name and year.
func (s *AnalysisService) ListByAgent(ctx context.Context, agentName, month string, year int) ([]models.AgentResult, error) {
	if strings.TrimSpace(agentName) == "" {
		return nil, fmt.Errorf("%w: agent name is required", ErrValidation)
	}

	monthNumber := 0
	if month != "" {
		monthNumber = monthIndex(month)
		if monthNumber == 0 {
			return nil, fmt.Errorf("%w: unknown month %q", ErrValidation, month)
		}
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.results.ListByAgent(dbCtx, agentName, monthNumber, year, listLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return rows, nil
}

// UpdateAnalysisText applies a manual edit to the stored analysis free text.
func (s *AnalysisService) UpdateAnalysisText(ctx context.Context, evaluationID, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: analysis text must not be empty", ErrValidation)
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if err := s.results.UpdateAnalysisText(dbCtx, evaluationID, text); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: analysis for evaluation %s", ErrNotFound, evaluationID)
		}
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return nil
}

// normalizeRange widens the bounds to whole days: start of dateStart through
// end of dateEnd, both inclusive, each side independently optional.
func normalizeRange(window DateRange) (*time.Time, *time.Time) {
	var start, end *time.Time
	if window.Start != nil {
		t := time.Date(window.Start.Year(), window.Start.Month(), window.Start.Day(), 0, 0, 0, 0, window.Start.Location())
		start = &t
	}
	if window.End != nil {
		t := time.Date(window.End.Year(), window.End.Month(), window.End.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), window.End.Location())
		end = &t
	}
	return start, end
}

// monthIndex maps a local-language month name to 1-12, or 0 when unknown.
func monthIndex(name string) int {
	for i, m := range monthNames {
		if strings.EqualFold(m, name) {
			return i + 1
		}
	}
	return 0
}
