// Package pipeline sequences the analysis stages over one dataset: load,
// clean, summarize, detect anomalies, plan charts, generate insights and
// SQL. Execution is strictly sequential; loader and cleaner failures are
// fatal for the run, everything after degrades per stage.
package pipeline

import (
	"context"
	"fmt"

	"datalyst/adapters/excel"
	"datalyst/domain/core"
	"datalyst/domain/report"
	"datalyst/domain/table"
	"datalyst/internal"
	"datalyst/internal/anomaly"
	"datalyst/internal/cleaning"
	"datalyst/internal/insights"
	"datalyst/internal/sqlgen"
	"datalyst/internal/statistics"
	"datalyst/internal/viz"
	"datalyst/ports"
)

// Run statuses, in stage order.
const (
	StatusProcessing           = "processing"
	StatusCleaningDone         = "cleaning_completed"
	StatusStatisticsDone       = "statistics_completed"
	StatusAnomalyDetectionDone = "anomaly_detection_completed"
	StatusVisualizationsDone   = "visualizations_completed"
	StatusInsightsDone         = "insights_completed"
	StatusCompleted            = "completed"
	StatusFailed               = "failed"
)

// State carries everything one run produces. It flows forward through
// the stages; no stage reads results a later stage wrote.
type State struct {
	DatasetID core.ID
	FilePath  string
	Filename  string

	Raw     *table.Table
	Cleaned *table.Table

	Cleaning       *report.CleaningReport
	Statistics     *report.Statistics
	Anomalies      *report.AnomalyReport
	Visualizations []report.Visualization
	Insights       string
	SQLQueries     string

	Errors []string
	Status string
}

// Runner owns the stage implementations for the lifetime of the process.
// Generator and Renderer are optional; without a generator the templated
// insight summary is used.
type Runner struct {
	log        *internal.Logger
	cleaner    *cleaning.Cleaner
	summarizer *statistics.Summarizer
	detector   *anomaly.Detector
	planner    *viz.Planner
	generator  *insights.Generator
}

// NewRunner builds a runner. renderer and generator may be nil.
func NewRunner(renderer ports.ChartRenderer, generator *insights.Generator) *Runner {
	return &Runner{
		log:        internal.NewLogger("Pipeline"),
		cleaner:    cleaning.NewCleaner(),
		summarizer: statistics.NewSummarizer(),
		detector:   anomaly.NewDetector(),
		planner:    viz.NewPlanner(renderer),
		generator:  generator,
	}
}

// Run executes the full stage sequence, mutating and returning state.
func (r *Runner) Run(ctx context.Context, state *State) *State {
	state.Status = StatusProcessing

	if state.Raw == nil {
		if !r.load(state) {
			return state
		}
	}

	if !r.clean(state) {
		return state
	}
	r.summarize(state)
	r.detect(state)
	r.visualize(ctx, state)
	r.generateInsights(ctx, state)
	r.generateSQL(state)

	state.Status = StatusCompleted
	r.log.Info("run for dataset %s finished with %d errors", state.DatasetID, len(state.Errors))
	return state
}

func (r *Runner) load(state *State) bool {
	reader, err := excel.NewDataReader(state.FilePath)
	if err != nil {
		return r.fatal(state, err)
	}
	tbl, err := reader.Read()
	if err != nil {
		return r.fatal(state, err)
	}
	state.Raw = tbl
	return true
}

func (r *Runner) clean(state *State) bool {
	cleaned, rep, err := r.cleaner.Clean(state.Raw, state.FilePath)
	if err != nil {
		return r.fatal(state, err)
	}
	state.Cleaned = cleaned
	state.Cleaning = rep
	state.Status = StatusCleaningDone
	return true
}

func (r *Runner) summarize(state *State) {
	defer r.recoverStage(state, "Statistics generation error")
	state.Statistics = r.summarizer.Summarize(state.Cleaned)
	state.Status = StatusStatisticsDone
}

func (r *Runner) detect(state *State) {
	defer r.recoverStage(state, "Anomaly detection error")
	rep, errs := r.detector.Detect(state.Cleaned)
	state.Anomalies = rep
	state.Errors = append(state.Errors, errs...)
	state.Status = StatusAnomalyDetectionDone
}

func (r *Runner) visualize(ctx context.Context, state *State) {
	defer r.recoverStage(state, "Visualization error")
	plans, errs := r.planner.Plan(ctx, state.Cleaned, state.DatasetID)
	state.Visualizations = append(state.Visualizations, plans...)
	state.Errors = append(state.Errors, errs...)
	state.Status = StatusVisualizationsDone
}

func (r *Runner) generateInsights(ctx context.Context, state *State) {
	defer r.recoverStage(state, "Insights generation error")

	if r.generator == nil {
		state.Insights = insights.MockInsights(state.Statistics, state.Anomalies)
		state.Status = StatusInsightsDone
		return
	}

	out, err := r.generator.Generate(ctx, state.Cleaning, state.Statistics, state.Anomalies)
	if err != nil {
		state.Errors = append(state.Errors, fmt.Sprintf("Insights generation error: %v", err))
		return
	}
	state.Insights = out
	state.Status = StatusInsightsDone
}

func (r *Runner) generateSQL(state *State) {
	defer r.recoverStage(state, "SQL generation error")
	state.SQLQueries = sqlgen.Generate(state.Cleaned, state.Filename)
}

// fatal records a cleaner-tier failure: the run stops and no partial
// reports are published.
func (r *Runner) fatal(state *State, err error) bool {
	r.log.Error("run for dataset %s failed: %v", state.DatasetID, err)
	state.Errors = append(state.Errors, fmt.Sprintf("Data cleaning error: %v", err))
	state.Status = StatusFailed
	state.Cleaned = nil
	state.Cleaning = nil
	return false
}

func (r *Runner) recoverStage(state *State, label string) {
	if rec := recover(); rec != nil {
		r.log.Error("%s: %v", label, rec)
		state.Errors = append(state.Errors, fmt.Sprintf("%s: %v", label, rec))
	}
}
