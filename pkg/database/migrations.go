package database

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect/sql"
)

// CreateGINIndexes creates full-text search GIN indexes for PostgreSQL.
// These enable efficient search over patient names and serialized analysis
// results, which Ent schema definitions cannot express.
func CreateGINIndexes(ctx context.Context, driver *sql.Driver) error {
	db := driver.DB()

	_, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_patients_name_gin
		ON patients USING gin(to_tsvector('english', name))`)
	if err != nil {
		return fmt.Errorf("failed to create patients name GIN index: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_ai_reports_key_findings_gin
		ON ai_reports USING gin(to_tsvector('english', COALESCE(key_findings, '')))`)
	if err != nil {
		return fmt.Errorf("failed to create key_findings GIN index: %w", err)
	}

	return nil
}
