package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"datalyst/domain/core"
	"datalyst/domain/dataset"
	"datalyst/ports"

	"github.com/jmoiron/sqlx"
)

// datasetRepository implements the DatasetRepository interface
type datasetRepository struct {
	db *sqlx.DB
}

// NewDatasetRepository creates a new dataset repository
func NewDatasetRepository(db *sqlx.DB) ports.DatasetRepository {
	return &datasetRepository{db: db}
}

// Create inserts a new dataset into the database
func (r *datasetRepository) Create(ctx context.Context, ds *dataset.Dataset) error {
	columnsJSON, err := json.Marshal(ds.ColumnNames)
	if err != nil {
		return fmt.Errorf("failed to marshal column names: %w", err)
	}

	query := `INSERT INTO datasets (
		id, filename, original_filename, file_path, file_size,
		upload_date, rows_count, columns_count, column_names
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.db.ExecContext(ctx, query,
		ds.ID, ds.Filename, ds.OriginalFilename, ds.FilePath, ds.FileSize,
		ds.UploadDate, ds.RowsCount, ds.ColumnsCount, columnsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to create dataset: %w", err)
	}
	return nil
}

// GetByID retrieves a dataset by its ID
func (r *datasetRepository) GetByID(ctx context.Context, id core.ID) (*dataset.Dataset, error) {
	query := `SELECT
		id, filename, original_filename, COALESCE(file_path, '') AS file_path,
		COALESCE(file_size, 0) AS file_size, upload_date,
		COALESCE(rows_count, 0) AS rows_count, COALESCE(columns_count, 0) AS columns_count,
		column_names
	FROM datasets WHERE id = $1`

	var ds dataset.Dataset
	var columnsJSON []byte

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&ds.ID, &ds.Filename, &ds.OriginalFilename, &ds.FilePath,
		&ds.FileSize, &ds.UploadDate, &ds.RowsCount, &ds.ColumnsCount,
		&columnsJSON,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.ErrDatasetNotFound
		}
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}

	if len(columnsJSON) > 0 {
		if err := json.Unmarshal(columnsJSON, &ds.ColumnNames); err != nil {
			return nil, fmt.Errorf("failed to unmarshal column names: %w", err)
		}
	}
	return &ds, nil
}

// List retrieves datasets newest first with pagination
func (r *datasetRepository) List(ctx context.Context, limit, offset int) ([]*dataset.Dataset, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT
		id, filename, original_filename, COALESCE(file_path, '') AS file_path,
		COALESCE(file_size, 0) AS file_size, upload_date,
		COALESCE(rows_count, 0) AS rows_count, COALESCE(columns_count, 0) AS columns_count,
		column_names
	FROM datasets ORDER BY upload_date DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	var out []*dataset.Dataset
	for rows.Next() {
		var ds dataset.Dataset
		var columnsJSON []byte
		if err := rows.Scan(
			&ds.ID, &ds.Filename, &ds.OriginalFilename, &ds.FilePath,
			&ds.FileSize, &ds.UploadDate, &ds.RowsCount, &ds.ColumnsCount,
			&columnsJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		if len(columnsJSON) > 0 {
			if err := json.Unmarshal(columnsJSON, &ds.ColumnNames); err != nil {
				return nil, fmt.Errorf("failed to unmarshal column names: %w", err)
			}
		}
		out = append(out, &ds)
	}
	return out, rows.Err()
}

// Delete removes a dataset and, through cascade, its analyses
func (r *datasetRepository) Delete(ctx context.Context, id core.ID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM datasets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrDatasetNotFound
	}
	return nil
}
