package service

import (
	"time"

	"github.com/velohub/audio-qa-server/internal/repository/models"
)

// NewEvaluation is the payload for creating a scorecard.
type NewEvaluation struct {
	EvaluatorName string
	AgentName     string
	Month         string
	Year          int
	CallDate      time.Time
	Criteria      models.QualityCriteria
	Notes         string
	TotalScore    float64
}

// AudioStatusInfo is the projection served by the status endpoint.
type AudioStatusInfo struct {
	EvaluationID   string
	Status         AudioStatus
	AudioFileName  string
	Sent           bool
	Treated        bool
	AudioCreatedAt *time.Time
	AudioUpdatedAt *time.Time
}

// AgentAverage is the aggregated automated score for one agent.
// Average is nil when no qualifying analyses exist.
type AgentAverage struct {
	Average     *float64
	SampleCount int
}

// DateRange bounds an aggregation window. Either side may be nil; bounds are
// applied inclusively over whole days.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}