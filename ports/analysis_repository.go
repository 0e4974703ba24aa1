package ports

import (
	"context"

	"datalyst/domain/core"
	"datalyst/domain/dataset"
)

// AnalysisRepository defines the interface for analysis result storage
type AnalysisRepository interface {
	Create(ctx context.Context, a *dataset.Analysis) error
	Update(ctx context.Context, a *dataset.Analysis) error
	GetByID(ctx context.Context, id core.ID) (*dataset.Analysis, error)
	GetByDatasetID(ctx context.Context, datasetID core.ID) ([]*dataset.Analysis, error)

	// UpdateStatus is a narrow write for progress reporting
	UpdateStatus(ctx context.Context, id core.ID, status dataset.AnalysisStatus, errorMsg string) error
}

// VisualizationRepository defines the interface for chart metadata storage
type VisualizationRepository interface {
	Create(ctx context.Context, v *dataset.Visualization) error
	GetByAnalysisID(ctx context.Context, analysisID core.ID) ([]*dataset.Visualization, error)
}
