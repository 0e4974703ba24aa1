// Package app wires the pipeline, repositories and LLM-backed helpers
// into the operations the HTTP layer exposes.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"datalyst/adapters/excel"
	"datalyst/domain/core"
	"datalyst/domain/dataset"
	"datalyst/domain/report"
	"datalyst/domain/table"
	"datalyst/internal"
	"datalyst/internal/config"
	"datalyst/internal/insights"
	"datalyst/internal/pipeline"
	"datalyst/internal/sqlgen"
	"datalyst/ports"
)

// AnalysisService orchestrates uploads, pipeline runs and the question
// endpoints. Pipeline runs are bounded by a weighted semaphore so a
// burst of requests cannot load every dataset into memory at once.
type AnalysisService struct {
	log      *internal.Logger
	cfg      *config.Config
	datasets ports.DatasetRepository
	analyses ports.AnalysisRepository
	charts   ports.VisualizationRepository
	runner   *pipeline.Runner
	answerer *insights.Answerer
	sqlgen   *sqlgen.QueryBuilder
	slots    *semaphore.Weighted
}

// NewAnalysisService builds the service. llmClient may be nil; every
// LLM-backed operation then degrades to its templated fallback.
func NewAnalysisService(
	cfg *config.Config,
	datasets ports.DatasetRepository,
	analyses ports.AnalysisRepository,
	charts ports.VisualizationRepository,
	renderer ports.ChartRenderer,
	llmClient ports.LLMClient,
) *AnalysisService {
	var generator *insights.Generator
	var answerer *insights.Answerer
	var builder *sqlgen.QueryBuilder
	if llmClient != nil {
		generator = insights.NewGenerator(llmClient, cfg.LLM.Model, cfg.LLM.MaxTokens)
		answerer = insights.NewAnswerer(llmClient, cfg.LLM.Model, cfg.LLM.MaxTokens)
		builder = sqlgen.NewQueryBuilder(llmClient, cfg.LLM.Model, cfg.LLM.MaxTokens)
	}

	return &AnalysisService{
		log:      internal.NewLogger("AnalysisService"),
		cfg:      cfg,
		datasets: datasets,
		analyses: analyses,
		charts:   charts,
		runner:   pipeline.NewRunner(renderer, generator),
		answerer: answerer,
		sqlgen:   builder,
		slots:    semaphore.NewWeighted(cfg.Server.MaxConcurrent),
	}
}

// Upload stores the file, reads its shape and registers the dataset.
func (s *AnalysisService) Upload(ctx context.Context, up dataset.Upload) (*dataset.Dataset, error) {
	ext := strings.ToLower(filepath.Ext(up.Filename))
	if ext != ".csv" && ext != ".xlsx" && ext != ".xls" {
		return nil, core.ErrUnsupportedFormat
	}

	if err := os.MkdirAll(s.cfg.Storage.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}

	stored := fmt.Sprintf("%s_%s", time.Now().Format("20060102_150405"), up.Filename)
	path := filepath.Join(s.cfg.Storage.UploadDir, stored)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}
	size, err := io.Copy(f, up.File)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	reader, err := excel.NewDataReader(path)
	if err != nil {
		return nil, err
	}
	tbl, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}

	ds := dataset.NewDataset(up.Filename)
	ds.Filename = stored
	ds.FilePath = path
	ds.FileSize = size
	ds.RowsCount = tbl.Rows()
	ds.ColumnsCount = tbl.Cols()
	ds.ColumnNames = tbl.Names()

	if err := s.datasets.Create(ctx, ds); err != nil {
		return nil, err
	}

	s.log.Info("stored dataset %s (%d rows, %d columns)", ds.ID, ds.RowsCount, ds.ColumnsCount)
	return ds, nil
}

// Analyze runs the full pipeline for a dataset and persists the results.
func (s *AnalysisService) Analyze(ctx context.Context, datasetID core.ID) (*dataset.Analysis, error) {
	ds, err := s.datasets.GetByID(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	analysis := dataset.NewAnalysis(ds.ID)
	if err := s.analyses.Create(ctx, analysis); err != nil {
		return nil, err
	}

	if err := s.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to acquire analysis slot: %w", err)
	}
	defer s.slots.Release(1)

	state := s.runner.Run(ctx, &pipeline.State{
		DatasetID: ds.ID,
		FilePath:  ds.FilePath,
		Filename:  ds.OriginalFilename,
	})

	analysis.Cleaning = state.Cleaning
	analysis.Statistics = state.Statistics
	analysis.Anomalies = state.Anomalies
	analysis.Insights = state.Insights
	analysis.SQLQueries = state.SQLQueries
	analysis.ErrorMessage = strings.Join(state.Errors, "; ")
	if state.Status == pipeline.StatusFailed {
		analysis.Status = dataset.StatusFailed
	} else {
		analysis.Status = dataset.StatusCompleted
	}

	if err := s.analyses.Update(ctx, analysis); err != nil {
		return nil, err
	}

	for _, plan := range state.Visualizations {
		viz := &dataset.Visualization{
			ID:          core.NewID(),
			AnalysisID:  analysis.ID,
			Type:        plan.Type,
			FilePath:    plan.Filename,
			CreatedDate: time.Now(),
		}
		if err := s.charts.Create(ctx, viz); err != nil {
			s.log.Warn("failed to persist visualization %s: %v", plan.Filename, err)
		}
	}

	s.log.Info("analysis %s for dataset %s finished: %s", analysis.ID, ds.ID, analysis.Status)
	return analysis, nil
}

// GetAnalysis loads an analysis and its chart metadata.
func (s *AnalysisService) GetAnalysis(ctx context.Context, id core.ID) (*dataset.Analysis, []*dataset.Visualization, error) {
	analysis, err := s.analyses.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	charts, err := s.charts.GetByAnalysisID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return analysis, charts, nil
}

// ListDatasets returns stored datasets, newest first.
func (s *AnalysisService) ListDatasets(ctx context.Context, limit, offset int) ([]*dataset.Dataset, error) {
	return s.datasets.List(ctx, limit, offset)
}

// DeleteDataset removes a dataset, its analyses and its stored file.
func (s *AnalysisService) DeleteDataset(ctx context.Context, id core.ID) error {
	ds, err := s.datasets.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.datasets.Delete(ctx, id); err != nil {
		return err
	}
	if ds.FilePath != "" {
		if err := os.Remove(ds.FilePath); err != nil && !os.IsNotExist(err) {
			s.log.Warn("failed to remove stored file %s: %v", ds.FilePath, err)
		}
	}
	return nil
}

// Question answers a free-form question about a dataset, reusing the
// latest completed statistics when available.
func (s *AnalysisService) Question(ctx context.Context, datasetID core.ID, question string) (string, error) {
	ds, tbl, err := s.loadDataset(ctx, datasetID)
	if err != nil {
		return "", err
	}

	if s.answerer == nil {
		return "", fmt.Errorf("no LLM provider configured")
	}

	var stats *report.Statistics
	if history, err := s.analyses.GetByDatasetID(ctx, ds.ID); err == nil {
		for _, a := range history {
			if a.Status == dataset.StatusCompleted && a.Statistics != nil {
				stats = a.Statistics
				break
			}
		}
	}
	return s.answerer.Answer(ctx, tbl, stats, question)
}

// TextToSQL converts a question into SQL against the dataset's schema.
func (s *AnalysisService) TextToSQL(ctx context.Context, datasetID core.ID, question string) (sqlgen.QueryResult, error) {
	ds, tbl, err := s.loadDataset(ctx, datasetID)
	if err != nil {
		return sqlgen.QueryResult{}, err
	}
	if s.sqlgen == nil {
		return sqlgen.QueryResult{
			NeedsClarification:   true,
			ClarificationMessage: "AI service is currently unavailable (Mock Mode). Please try again later.",
		}, nil
	}
	return s.sqlgen.Build(ctx, tbl, sqlgen.TableName(ds.OriginalFilename), question), nil
}

func (s *AnalysisService) loadDataset(ctx context.Context, datasetID core.ID) (*dataset.Dataset, *table.Table, error) {
	ds, err := s.datasets.GetByID(ctx, datasetID)
	if err != nil {
		return nil, nil, err
	}
	reader, err := excel.NewDataReader(ds.FilePath)
	if err != nil {
		return nil, nil, err
	}
	tbl, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read dataset file: %w", err)
	}
	return ds, tbl, nil
}
