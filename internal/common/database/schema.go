// internal/common/database/schema.go
package database

import (
	"context"
	"database/sql"
	"fmt"
)

var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,
	`CREATE TABLE IF NOT EXISTS job_applications (
		id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		first_name  TEXT NOT NULL,
		last_name   TEXT NOT NULL,
		email       TEXT NOT NULL,
		phone       TEXT NOT NULL,
		address     TEXT NOT NULL DEFAULT '',
		city        TEXT NOT NULL DEFAULT '',
		state       TEXT NOT NULL DEFAULT '',
		zip         TEXT NOT NULL DEFAULT '',
		position    TEXT NOT NULL,
		experience  TEXT NOT NULL,
		start_date  DATE NOT NULL DEFAULT CURRENT_DATE,
		resume_url  TEXT,
		"references" JSONB NOT NULL DEFAULT '[]'::jsonb,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_job_applications_created_at ON job_applications (created_at DESC)`,
}

// EnsureSchema creates the tables the site writes to. Every statement is
// idempotent so it is safe to run on each deploy.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
