package postgres

import (
	"context"
	"fmt"

	"datalyst/domain/core"
	"datalyst/domain/dataset"
	"datalyst/ports"

	"github.com/jmoiron/sqlx"
)

// visualizationRepository implements the VisualizationRepository interface
type visualizationRepository struct {
	db *sqlx.DB
}

// NewVisualizationRepository creates a new visualization repository
func NewVisualizationRepository(db *sqlx.DB) ports.VisualizationRepository {
	return &visualizationRepository{db: db}
}

// Create inserts chart metadata
func (r *visualizationRepository) Create(ctx context.Context, v *dataset.Visualization) error {
	query := `INSERT INTO visualizations (id, analysis_id, chart_type, file_path, created_date)
	VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.ExecContext(ctx, query, v.ID, v.AnalysisID, v.Type, v.FilePath, v.CreatedDate)
	if err != nil {
		return fmt.Errorf("failed to create visualization: %w", err)
	}
	return nil
}

// GetByAnalysisID retrieves chart metadata for one analysis in creation order
func (r *visualizationRepository) GetByAnalysisID(ctx context.Context, analysisID core.ID) ([]*dataset.Visualization, error) {
	query := `SELECT id, analysis_id, chart_type, file_path, created_date
	FROM visualizations WHERE analysis_id = $1 ORDER BY created_date ASC`

	rows, err := r.db.QueryContext(ctx, query, analysisID)
	if err != nil {
		return nil, fmt.Errorf("failed to list visualizations: %w", err)
	}
	defer rows.Close()

	var out []*dataset.Visualization
	for rows.Next() {
		var v dataset.Visualization
		if err := rows.Scan(&v.ID, &v.AnalysisID, &v.Type, &v.FilePath, &v.CreatedDate); err != nil {
			return nil, fmt.Errorf("failed to scan visualization: %w", err)
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}
