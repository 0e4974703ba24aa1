// Package postgres implements the repository ports over PostgreSQL.
// Reports are stored as JSONB documents; the relational surface carries
// only what list views filter and sort on.
package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect opens and pings a database handle.
func Connect(url string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the tables if they do not exist yet.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS datasets (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		original_filename TEXT NOT NULL,
		file_path TEXT NOT NULL,
		file_size BIGINT NOT NULL DEFAULT 0,
		upload_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		rows_count INTEGER NOT NULL DEFAULT 0,
		columns_count INTEGER NOT NULL DEFAULT 0,
		column_names JSONB NOT NULL DEFAULT '[]'
	);

	CREATE TABLE IF NOT EXISTS analyses (
		id TEXT PRIMARY KEY,
		dataset_id TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
		analysis_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		cleaning_report JSONB,
		statistics JSONB,
		anomalies JSONB,
		insights TEXT,
		sql_queries TEXT,
		status TEXT NOT NULL DEFAULT 'processing',
		error_message TEXT
	);

	CREATE TABLE IF NOT EXISTS visualizations (
		id TEXT PRIMARY KEY,
		analysis_id TEXT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
		chart_type TEXT NOT NULL,
		file_path TEXT NOT NULL,
		created_date TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_analyses_dataset_id ON analyses(dataset_id);
	CREATE INDEX IF NOT EXISTS idx_visualizations_analysis_id ON visualizations(analysis_id);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
