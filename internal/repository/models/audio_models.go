package models

import "time"

// QualityCriteria is the fixed set of boolean checks a reviewer (or the
// automated scorer) fills in for one call.
type QualityCriteria struct {
	GreetingAdequate   bool `json:"greetingAdequate"`
	ActiveListening    bool `json:"activeListening"`
	ClarityObjectivity bool `json:"clarityObjectivity"`
	IssueResolved      bool `json:"issueResolved"`
	SubjectMastery     bool `json:"subjectMastery"`
	EmpathyCordiality  bool `json:"empathyCordiality"`
	SurveyDirected     bool `json:"surveyDirected"`
	IncorrectProcedure bool `json:"incorrectProcedure"`
	AbruptClosure      bool `json:"abruptClosure"`
}

// Evaluation is one human-authored quality scorecard for a recorded call,
// carrying the mutable audio pipeline status fields.
type Evaluation struct {
	ID            string
	EvaluatorName string
	AgentName     string
	Month         string
	Year          int
	CallDate      time.Time
	Criteria      QualityCriteria
	Notes         string
	TotalScore    float64

	AudioFileName  string // object key; empty means no audio associated
	AudioSent      bool
	AudioTreated   bool
	AudioCreatedAt *time.Time
	AudioUpdatedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// WordTimestamp is one word of the transcript with its offsets in seconds.
type WordTimestamp struct {
	Word      string  `json:"word"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
}

// Emotion summarizes the tone read from the call.
type Emotion struct {
	Tone            string  `json:"tone"`
	Empathy         float64 `json:"empathy"`
	Professionalism float64 `json:"professionalism"`
}

// Nuance holds secondary conversational signals.
type Nuance struct {
	Clarity float64 `json:"clarity"`
	Tension float64 `json:"tension"`
}

// ScoringPass is one independent automated re-assessment of the call.
type ScoringPass struct {
	Criteria     QualityCriteria `json:"criteria"`
	Score        float64         `json:"score"`
	Confidence   float64         `json:"confidence"`
	Rationale    []string        `json:"rationale"`
	AnalysisText string          `json:"analysisText"`
}

// AnalysisResult is the persisted outcome of processing one evaluation's
// audio. At most one row exists per evaluation.
type AnalysisResult struct {
	ID           string
	EvaluationID string
	FileName     string
	ObjectURI    string

	Transcript     string
	WordTimestamps []WordTimestamp
	Emotion        Emotion
	Nuance         Nuance

	QualityAnalysis ScoringPass  // primary pass
	GPTAnalysis     *ScoringPass // secondary pass, best-effort
	ConsensusScore  *float64     // mean of both passes when both succeeded
	CriticalWords   []string

	ProcessingSeconds float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EffectiveScore selects the score used downstream, preferring consensus,
// then the secondary pass, then the primary pass.
func (r *AnalysisResult) EffectiveScore() float64 {
	if r.ConsensusScore != nil {
		return *r.ConsensusScore
	}
	if r.GPTAnalysis != nil {
		return r.GPTAnalysis.Score
	}
	return r.QualityAnalysis.Score
}

// AgentResult joins an analysis result with the owning evaluation's agent.
type AgentResult struct {
	Result    AnalysisResult
	AgentName string
}
