package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"datalyst/domain/core"
	"datalyst/domain/dataset"
	"datalyst/domain/report"
	"datalyst/ports"

	"github.com/jmoiron/sqlx"
)

// analysisRepository implements the AnalysisRepository interface
type analysisRepository struct {
	db *sqlx.DB
}

// NewAnalysisRepository creates a new analysis repository
func NewAnalysisRepository(db *sqlx.DB) ports.AnalysisRepository {
	return &analysisRepository{db: db}
}

func marshalReports(a *dataset.Analysis) (cleaning, stats, anomalies []byte, err error) {
	if a.Cleaning != nil {
		if cleaning, err = json.Marshal(a.Cleaning); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal cleaning report: %w", err)
		}
	}
	if a.Statistics != nil {
		if stats, err = json.Marshal(a.Statistics); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal statistics: %w", err)
		}
	}
	if a.Anomalies != nil {
		if anomalies, err = json.Marshal(a.Anomalies); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal anomalies: %w", err)
		}
	}
	return cleaning, stats, anomalies, nil
}

// Create inserts a new analysis row
func (r *analysisRepository) Create(ctx context.Context, a *dataset.Analysis) error {
	cleaning, stats, anomalies, err := marshalReports(a)
	if err != nil {
		return err
	}

	query := `INSERT INTO analyses (
		id, dataset_id, analysis_date, cleaning_report, statistics,
		anomalies, insights, sql_queries, status, error_message
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = r.db.ExecContext(ctx, query,
		a.ID, a.DatasetID, a.AnalysisDate, nullable(cleaning), nullable(stats),
		nullable(anomalies), a.Insights, a.SQLQueries, a.Status, a.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to create analysis: %w", err)
	}
	return nil
}

// Update replaces the stored reports and status for an analysis
func (r *analysisRepository) Update(ctx context.Context, a *dataset.Analysis) error {
	cleaning, stats, anomalies, err := marshalReports(a)
	if err != nil {
		return err
	}

	query := `UPDATE analyses SET
		cleaning_report = $2, statistics = $3, anomalies = $4,
		insights = $5, sql_queries = $6, status = $7, error_message = $8
	WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		a.ID, nullable(cleaning), nullable(stats), nullable(anomalies),
		a.Insights, a.SQLQueries, a.Status, a.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to update analysis: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrAnalysisNotFound
	}
	return nil
}

// UpdateStatus is a narrow write used for progress reporting
func (r *analysisRepository) UpdateStatus(ctx context.Context, id core.ID, status dataset.AnalysisStatus, errorMsg string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE analyses SET status = $2, error_message = $3 WHERE id = $1`,
		id, status, errorMsg,
	)
	if err != nil {
		return fmt.Errorf("failed to update analysis status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrAnalysisNotFound
	}
	return nil
}

// GetByID retrieves an analysis with its reports
func (r *analysisRepository) GetByID(ctx context.Context, id core.ID) (*dataset.Analysis, error) {
	query := `SELECT
		id, dataset_id, analysis_date, cleaning_report, statistics, anomalies,
		COALESCE(insights, '') AS insights, COALESCE(sql_queries, '') AS sql_queries,
		status, COALESCE(error_message, '') AS error_message
	FROM analyses WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)
	a, err := scanAnalysis(row)
	if err == sql.ErrNoRows {
		return nil, core.ErrAnalysisNotFound
	}
	return a, err
}

// GetByDatasetID retrieves all analyses for a dataset, newest first
func (r *analysisRepository) GetByDatasetID(ctx context.Context, datasetID core.ID) ([]*dataset.Analysis, error) {
	query := `SELECT
		id, dataset_id, analysis_date, cleaning_report, statistics, anomalies,
		COALESCE(insights, '') AS insights, COALESCE(sql_queries, '') AS sql_queries,
		status, COALESCE(error_message, '') AS error_message
	FROM analyses WHERE dataset_id = $1 ORDER BY analysis_date DESC`

	rows, err := r.db.QueryContext(ctx, query, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	var out []*dataset.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAnalysis(row rowScanner) (*dataset.Analysis, error) {
	var a dataset.Analysis
	var cleaning, stats, anomalies []byte

	err := row.Scan(
		&a.ID, &a.DatasetID, &a.AnalysisDate, &cleaning, &stats, &anomalies,
		&a.Insights, &a.SQLQueries, &a.Status, &a.ErrorMessage,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan analysis: %w", err)
	}

	if len(cleaning) > 0 {
		a.Cleaning = &report.CleaningReport{}
		if err := json.Unmarshal(cleaning, a.Cleaning); err != nil {
			return nil, fmt.Errorf("failed to unmarshal cleaning report: %w", err)
		}
	}
	if len(stats) > 0 {
		a.Statistics = &report.Statistics{}
		if err := json.Unmarshal(stats, a.Statistics); err != nil {
			return nil, fmt.Errorf("failed to unmarshal statistics: %w", err)
		}
	}
	if len(anomalies) > 0 {
		a.Anomalies = &report.AnomalyReport{}
		if err := json.Unmarshal(anomalies, a.Anomalies); err != nil {
			return nil, fmt.Errorf("failed to unmarshal anomalies: %w", err)
		}
	}
	return &a, nil
}

// nullable maps an empty JSON blob to SQL NULL
func nullable(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}
