package repository

import (
	"context"
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS evaluations (
	id                  TEXT PRIMARY KEY,
	evaluator_name      TEXT NOT NULL,
	agent_name          TEXT NOT NULL,
	month               TEXT NOT NULL,
	year                INTEGER NOT NULL,
	call_date           DATETIME,
	greeting_adequate   BOOLEAN NOT NULL DEFAULT 0,
	active_listening    BOOLEAN NOT NULL DEFAULT 0,
	clarity_objectivity BOOLEAN NOT NULL DEFAULT 0,
	issue_resolved      BOOLEAN NOT NULL DEFAULT 0,
	subject_mastery     BOOLEAN NOT NULL DEFAULT 0,
	empathy_cordiality  BOOLEAN NOT NULL DEFAULT 0,
	survey_directed     BOOLEAN NOT NULL DEFAULT 0,
	incorrect_procedure BOOLEAN NOT NULL DEFAULT 0,
	abrupt_closure      BOOLEAN NOT NULL DEFAULT 0,
	notes               TEXT NOT NULL DEFAULT '',
	total_score         REAL NOT NULL DEFAULT 0,
	audio_file_name     TEXT,
	audio_sent          BOOLEAN NOT NULL DEFAULT 0,
	audio_treated       BOOLEAN NOT NULL DEFAULT 0,
	audio_created_at    DATETIME,
	audio_updated_at    DATETIME,
	created_at          DATETIME NOT NULL,
	updated_at          DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_evaluations_agent ON evaluations(agent_name);
CREATE INDEX IF NOT EXISTS idx_evaluations_audio_file ON evaluations(audio_file_name);
CREATE INDEX IF NOT EXISTS idx_evaluations_created ON evaluations(created_at);

CREATE TABLE IF NOT EXISTS analysis_results (
	id                 TEXT PRIMARY KEY,
	evaluation_id      TEXT NOT NULL UNIQUE REFERENCES evaluations(id),
	file_name          TEXT NOT NULL,
	object_uri         TEXT NOT NULL,
	transcript         TEXT NOT NULL,
	word_timestamps    TEXT NOT NULL DEFAULT '[]',
	emotion            TEXT NOT NULL DEFAULT '{}',
	nuance             TEXT NOT NULL DEFAULT '{}',
	quality_analysis   TEXT NOT NULL,
	gpt_analysis       TEXT,
	consensus_score    REAL,
	critical_words     TEXT NOT NULL DEFAULT '[]',
	processing_seconds REAL NOT NULL DEFAULT 0,
	created_at         DATETIME NOT NULL,
	updated_at         DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_results_created ON analysis_results(created_at);
`

// EnsureSchema creates the tables and indexes when they are missing. Runs at
// startup before the pool is handed to the repositories.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
