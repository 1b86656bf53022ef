package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/velohub/audio-qa-server/internal/repository/models"
)

// AnalysisResultRepository persists the outcome of audio processing,
// strictly one row per evaluation.
type AnalysisResultRepository struct {
	db *sql.DB
}

func NewAnalysisResultRepository(db *sql.DB) *AnalysisResultRepository {
	return &AnalysisResultRepository{db: db}
}

const resultColumns = `
	id, evaluation_id, file_name, object_uri, transcript,
	word_timestamps, emotion, nuance, quality_analysis, gpt_analysis,
	consensus_score, critical_words, processing_seconds, created_at, updated_at`

// UpsertByEvaluation writes the result keyed by evaluation id. A retry or a
// reprocess overwrites the previous analysis instead of appending a second
// row.
func (r *AnalysisResultRepository) UpsertByEvaluation(ctx context.Context, result models.AnalysisResult) (models.AnalysisResult, error) {
	now := time.Now().UTC()
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = now
	}
	result.UpdatedAt = now

	words, err := json.Marshal(orEmptySlice(result.WordTimestamps))
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("marshal word timestamps: %w", err)
	}
	emotion, err := json.Marshal(result.Emotion)
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("marshal emotion: %w", err)
	}
	nuance, err := json.Marshal(result.Nuance)
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("marshal nuance: %w", err)
	}
	quality, err := json.Marshal(result.QualityAnalysis)
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("marshal quality analysis: %w", err)
	}
	var gpt any
	if result.GPTAnalysis != nil {
		b, err := json.Marshal(result.GPTAnalysis)
		if err != nil {
			return models.AnalysisResult{}, fmt.Errorf("marshal gpt analysis: %w", err)
		}
		gpt = string(b)
	}
	critical, err := json.Marshal(orEmptyStrings(result.CriticalWords))
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("marshal critical words: %w", err)
	}

	const query = `
		INSERT INTO analysis_results (` + resultColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(evaluation_id) DO UPDATE SET
			file_name = excluded.file_name,
			object_uri = excluded.object_uri,
			transcript = excluded.transcript,
			word_timestamps = excluded.word_timestamps,
			emotion = excluded.emotion,
			nuance = excluded.nuance,
			quality_analysis = excluded.quality_analysis,
			gpt_analysis = excluded.gpt_analysis,
			consensus_score = excluded.consensus_score,
			critical_words = excluded.critical_words,
			processing_seconds = excluded.processing_seconds,
			updated_at = excluded.updated_at`

	_, err = r.db.ExecContext(ctx, query,
		result.ID, result.EvaluationID, result.FileName, result.ObjectURI, result.Transcript,
		string(words), string(emotion), string(nuance), string(quality), gpt,
		nullFloatPtr(result.ConsensusScore), string(critical), result.ProcessingSeconds,
		result.CreatedAt, result.UpdatedAt,
	)
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("upsert analysis result: %w", err)
	}

	// the row keeps its original id when the upsert hit an existing one
	return r.GetByEvaluationID(ctx, result.EvaluationID)
}

// GetByEvaluationID fetches the analysis for one evaluation; sql.ErrNoRows
// when absent.
func (r *AnalysisResultRepository) GetByEvaluationID(ctx context.Context, evaluationID string) (models.AnalysisResult, error) {
	const query = `SELECT ` + resultColumns + ` FROM analysis_results WHERE evaluation_id = ?`
	row := r.db.QueryRowContext(ctx, query, evaluationID)
	result, _, err := scanResult(row)
	return result, err
}

// AgentScores returns the effective score of every analysis belonging to
// the agent, bounded by the optional created_at limits. The score priority
// (consensus, then secondary, then primary pass) is computed in SQL.
func (r *AnalysisResultRepository) AgentScores(ctx context.Context, agentName string, start, end *time.Time) ([]float64, error) {
	query := `
		SELECT COALESCE(
			r.consensus_score,
			json_extract(r.gpt_analysis, '$.score'),
			json_extract(r.quality_analysis, '$.score')
		) AS score
		FROM analysis_results AS r
		JOIN evaluations AS e ON e.id = r.evaluation_id
		WHERE e.agent_name = ?`
	args := []any{agentName}

	if start != nil {
		query += ` AND r.created_at >= ?`
		args = append(args, start.UTC())
	}
	if end != nil {
		query += ` AND r.created_at <= ?`
		args = append(args, end.UTC())
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query AgentScores: %w", err)
	}
	defer rows.Close()

	var scores []float64
	for rows.Next() {
		var score sql.NullFloat64
		if err := rows.Scan(&score); err != nil {
			return nil, fmt.Errorf("scan AgentScores row: %w", err)
		}
		if score.Valid {
			scores = append(scores, score.Float64)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate AgentScores: %w", err)
	}
	return scores, nil
}

// ListByAgent returns up to limit analyses for the agent, newest first,
// optionally narrowed to a month (1-12) and year.
func (r *AnalysisResultRepository) ListByAgent(ctx context.Context, agentName string, month, year, limit int) ([]models.AgentResult, error) {
	query := `
		SELECT ` + prefixedResultColumns("r") + `, e.agent_name
		FROM analysis_results AS r
		JOIN evaluations AS e ON e.id = r.evaluation_id
		WHERE e.agent_name = ?`
	args := []any{agentName}

	if month > 0 {
		query += ` AND CAST(strftime('%m', r.created_at) AS INTEGER) = ?`
		args = append(args, month)
	}
	if year > 0 {
		query += ` AND CAST(strftime('%Y', r.created_at) AS INTEGER) = ?`
		args = append(args, year)
	}

	query += ` ORDER BY r.created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ListByAgent: %w", err)
	}
	defer rows.Close()

	var out []models.AgentResult
	for rows.Next() {
		result, agent, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ListByAgent row: %w", err)
		}
		out = append(out, models.AgentResult{Result: result, AgentName: agent})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListByAgent: %w", err)
	}
	return out, nil
}

// UpdateAnalysisText rewrites the free analysis text inside the primary
// pass; sql.ErrNoRows when no analysis exists for the evaluation.
func (r *AnalysisResultRepository) UpdateAnalysisText(ctx context.Context, evaluationID, text string) error {
	const query = `
		UPDATE analysis_results
		SET quality_analysis = json_set(quality_analysis, '$.analysisText', ?), updated_at = ?
		WHERE evaluation_id = ?`

	res, err := r.db.ExecContext(ctx, query, text, time.Now().UTC(), evaluationID)
	if err != nil {
		return fmt.Errorf("update analysis text: %w", err)
	}
	return requireRow(res)
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanResult reads one result row; when the query selects the joined agent
// name it is returned as the second value, otherwise it stays empty.
func scanResult(row scanner) (models.AnalysisResult, string, error) {
	var result models.AnalysisResult
	var words, emotion, nuance, quality, critical string
	var gpt sql.NullString
	var consensus sql.NullFloat64
	var agentName string

	dest := []any{
		&result.ID, &result.EvaluationID, &result.FileName, &result.ObjectURI, &result.Transcript,
		&words, &emotion, &nuance, &quality, &gpt,
		&consensus, &critical, &result.ProcessingSeconds, &result.CreatedAt, &result.UpdatedAt,
	}
	if rows, ok := row.(*sql.Rows); ok {
		cols, err := rows.Columns()
		if err != nil {
			return models.AnalysisResult{}, "", err
		}
		if len(cols) == len(dest)+1 {
			dest = append(dest, &agentName)
		}
	}

	if err := row.Scan(dest...); err != nil {
		return models.AnalysisResult{}, "", err
	}

	if err := json.Unmarshal([]byte(words), &result.WordTimestamps); err != nil {
		return models.AnalysisResult{}, "", fmt.Errorf("unmarshal word timestamps: %w", err)
	}
	if err := json.Unmarshal([]byte(emotion), &result.Emotion); err != nil {
		return models.AnalysisResult{}, "", fmt.Errorf("unmarshal emotion: %w", err)
	}
	if err := json.Unmarshal([]byte(nuance), &result.Nuance); err != nil {
		return models.AnalysisResult{}, "", fmt.Errorf("unmarshal nuance: %w", err)
	}
	if err := json.Unmarshal([]byte(quality), &result.QualityAnalysis); err != nil {
		return models.AnalysisResult{}, "", fmt.Errorf("unmarshal quality analysis: %w", err)
	}
	if gpt.Valid {
		var pass models.ScoringPass
		if err := json.Unmarshal([]byte(gpt.String), &pass); err != nil {
			return models.AnalysisResult{}, "", fmt.Errorf("unmarshal gpt analysis: %w", err)
		}
		result.GPTAnalysis = &pass
	}
	if consensus.Valid {
		v := consensus.Float64
		result.ConsensusScore = &v
	}
	if err := json.Unmarshal([]byte(critical), &result.CriticalWords); err != nil {
		return models.AnalysisResult{}, "", fmt.Errorf("unmarshal critical words: %w", err)
	}
	return result, agentName, nil
}

func prefixedResultColumns(alias string) string {
	return alias + `.id, ` + alias + `.evaluation_id, ` + alias + `.file_name, ` + alias + `.object_uri, ` + alias + `.transcript,
		` + alias + `.word_timestamps, ` + alias + `.emotion, ` + alias + `.nuance, ` + alias + `.quality_analysis, ` + alias + `.gpt_analysis,
		` + alias + `.consensus_score, ` + alias + `.critical_words, ` + alias + `.processing_seconds, ` + alias + `.created_at, ` + alias + `.updated_at`
}

func nullFloatPtr(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func orEmptySlice(words []models.WordTimestamp) []models.WordTimestamp {
	if words == nil {
		return []models.WordTimestamp{}
	}
	return words
}

func orEmptyStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
