package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/velohub/audio-qa-server/internal/repository/models"
)

// EvaluationRepository persists quality scorecards and their audio-status
// fields.
type EvaluationRepository struct {
	db *sql.DB
}

func NewEvaluationRepository(db *sql.DB) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

const evaluationColumns = `
	id, evaluator_name, agent_name, month, year, call_date,
	greeting_adequate, active_listening, clarity_objectivity, issue_resolved,
	subject_mastery, empathy_cordiality, survey_directed, incorrect_procedure,
	abrupt_closure, notes, total_score,
	audio_file_name, audio_sent, audio_treated, audio_created_at, audio_updated_at,
	created_at, updated_at`

// Create inserts a new evaluation, generating its id.
func (r *EvaluationRepository) Create(ctx context.Context, eval models.Evaluation) (models.Evaluation, error) {
	now := time.Now().UTC()
	eval.ID = uuid.NewString()
	eval.CreatedAt = now
	eval.UpdatedAt = now

	const query = `
		INSERT INTO evaluations (` + evaluationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		eval.ID, eval.EvaluatorName, eval.AgentName, eval.Month, eval.Year, nullTime(eval.CallDate),
		eval.Criteria.GreetingAdequate, eval.Criteria.ActiveListening, eval.Criteria.ClarityObjectivity,
		eval.Criteria.IssueResolved, eval.Criteria.SubjectMastery, eval.Criteria.EmpathyCordiality,
		eval.Criteria.SurveyDirected, eval.Criteria.IncorrectProcedure, eval.Criteria.AbruptClosure,
		eval.Notes, eval.TotalScore,
		nullString(eval.AudioFileName), eval.AudioSent, eval.AudioTreated,
		nullTimePtr(eval.AudioCreatedAt), nullTimePtr(eval.AudioUpdatedAt),
		eval.CreatedAt, eval.UpdatedAt,
	)
	if err != nil {
		return models.Evaluation{}, fmt.Errorf("insert evaluation: %w", err)
	}
	return eval, nil
}

// GetByID fetches one evaluation; sql.ErrNoRows when absent.
func (r *EvaluationRepository) GetByID(ctx context.Context, id string) (models.Evaluation, error) {
	const query = `SELECT ` + evaluationColumns + ` FROM evaluations WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetByAudioFileName fetches the evaluation owning an object key;
// sql.ErrNoRows when no evaluation references it.
func (r *EvaluationRepository) GetByAudioFileName(ctx context.Context, objectKey string) (models.Evaluation, error) {
	const query = `SELECT ` + evaluationColumns + ` FROM evaluations WHERE audio_file_name = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, objectKey))
}

// SetUploadPending records the issued object key and resets both audio
// booleans.
func (r *EvaluationRepository) SetUploadPending(ctx context.Context, id, objectKey string, now time.Time) error {
	const query = `
		UPDATE evaluations
		SET audio_file_name = ?, audio_sent = 0, audio_treated = 0,
			audio_created_at = ?, audio_updated_at = ?, updated_at = ?
		WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query, objectKey, now.UTC(), now.UTC(), now.UTC(), id)
	if err != nil {
		return fmt.Errorf("set upload pending: %w", err)
	}
	return requireRow(res)
}

// MarkSent flips audio_sent after the client confirmed its upload.
func (r *EvaluationRepository) MarkSent(ctx context.Context, id string, now time.Time) error {
	const query = `
		UPDATE evaluations
		SET audio_sent = 1, audio_updated_at = ?, updated_at = ?
		WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query, now.UTC(), now.UTC(), id)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	return requireRow(res)
}

// MarkTreated flips audio_treated for a sent, untreated evaluation. The
// guard keeps treated implying sent and makes duplicate worker deliveries a
// reported no-op instead of an error.
func (r *EvaluationRepository) MarkTreated(ctx context.Context, id string, now time.Time) (bool, error) {
	const query = `
		UPDATE evaluations
		SET audio_treated = 1, audio_updated_at = ?, updated_at = ?
		WHERE id = ? AND audio_sent = 1 AND audio_treated = 0`

	res, err := r.db.ExecContext(ctx, query, now.UTC(), now.UTC(), id)
	if err != nil {
		return false, fmt.Errorf("mark treated: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark treated rows: %w", err)
	}
	return affected > 0, nil
}

func (r *EvaluationRepository) scanOne(row *sql.Row) (models.Evaluation, error) {
	var eval models.Evaluation
	var callDate, audioCreated, audioUpdated sql.NullTime
	var fileName sql.NullString

	err := row.Scan(
		&eval.ID, &eval.EvaluatorName, &eval.AgentName, &eval.Month, &eval.Year, &callDate,
		&eval.Criteria.GreetingAdequate, &eval.Criteria.ActiveListening, &eval.Criteria.ClarityObjectivity,
		&eval.Criteria.IssueResolved, &eval.Criteria.SubjectMastery, &eval.Criteria.EmpathyCordiality,
		&eval.Criteria.SurveyDirected, &eval.Criteria.IncorrectProcedure, &eval.Criteria.AbruptClosure,
		&eval.Notes, &eval.TotalScore,
		&fileName, &eval.AudioSent, &eval.AudioTreated, &audioCreated, &audioUpdated,
		&eval.CreatedAt, &eval.UpdatedAt,
	)
	if err != nil {
		return models.Evaluation{}, err
	}

	if callDate.Valid {
		eval.CallDate = callDate.Time
	}
	eval.AudioFileName = fileName.String
	if audioCreated.Valid {
		t := audioCreated.Time
		eval.AudioCreatedAt = &t
	}
	if audioUpdated.Valid {
		t := audioUpdated.Time
		eval.AudioUpdatedAt = &t
	}
	return eval, nil
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func nullTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
