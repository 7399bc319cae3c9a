package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the tables this service owns. Bootstrap DDL is
// serialized across api/worker startups with an advisory lock.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026041502)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS split_drafts (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	uploader_id TEXT NOT NULL,
	source_path TEXT NOT NULL,
	original_filename TEXT NOT NULL,
	status TEXT NOT NULL,
	page_count INTEGER NOT NULL,
	verified_count INTEGER NOT NULL DEFAULT 0,
	pages JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_split_drafts_uploader ON split_drafts(uploader_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_split_drafts_status ON split_drafts(status);

CREATE TABLE IF NOT EXISTS project_documents (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	filename TEXT NOT NULL,
	drawing_number TEXT,
	sheet_title TEXT,
	discipline TEXT,
	revision TEXT,
	scale TEXT,
	storage_path TEXT NOT NULL,
	current_version INTEGER NOT NULL DEFAULT 1,
	is_latest BOOLEAN NOT NULL DEFAULT TRUE,
	size_bytes BIGINT NOT NULL DEFAULT 0,
	uploaded_by TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_project_documents_project ON project_documents(project_id);
CREATE INDEX IF NOT EXISTS idx_project_documents_drawing ON project_documents(project_id, drawing_number) WHERE is_latest;

CREATE TABLE IF NOT EXISTS document_revisions (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES project_documents(id),
	version INTEGER NOT NULL,
	storage_path TEXT NOT NULL,
	change_notes TEXT,
	uploaded_by TEXT NOT NULL,
	size_bytes BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE (document_id, version)
);

CREATE TABLE IF NOT EXISTS notifications (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	type TEXT NOT NULL,
	title TEXT NOT NULL,
	message TEXT NOT NULL,
	severity TEXT NOT NULL,
	category TEXT,
	action_url TEXT,
	data JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
