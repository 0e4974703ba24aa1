// Package viz plans the standard chart set for a cleaned table and hands
// each descriptor to a renderer. Planning is deterministic; rendering is
// delegated and failures are collected, not fatal.
package viz

import (
	"context"
	"fmt"

	"datalyst/domain/core"
	"datalyst/domain/report"
	"datalyst/domain/table"
	"datalyst/internal"
	"datalyst/ports"
)

const histogramLimit = 3

// Planner decides which charts to produce for a table.
type Planner struct {
	log      *internal.Logger
	renderer ports.ChartRenderer
}

// NewPlanner creates a planner backed by the given renderer. A nil
// renderer plans descriptors without producing artifacts.
func NewPlanner(renderer ports.ChartRenderer) *Planner {
	return &Planner{
		log:      internal.NewLogger("VizPlanner"),
		renderer: renderer,
	}
}

// Plan builds the chart descriptors for the table and asks the renderer
// to produce each one. Render failures are returned as messages next to
// the successfully planned descriptors.
func (p *Planner) Plan(ctx context.Context, tbl *table.Table, datasetID core.ID) ([]report.Visualization, []string) {
	numeric := tbl.NumericColumns()
	categorical := categoricalColumns(tbl)

	var plans []report.Visualization

	for i, col := range numeric {
		if i >= histogramLimit {
			break
		}
		plans = append(plans, report.Visualization{
			Type:     "histogram",
			Column:   col,
			Filename: fmt.Sprintf("hist_%s_%s.png", datasetID, col),
		})
	}

	if len(numeric) >= 2 {
		plans = append(plans, report.Visualization{
			Type:     "correlation",
			Filename: fmt.Sprintf("corr_%s.png", datasetID),
		})
	}

	if len(categorical) > 0 {
		plans = append(plans, report.Visualization{
			Type:     "bar_chart",
			Column:   categorical[0],
			Filename: fmt.Sprintf("bar_%s_%s.png", datasetID, categorical[0]),
		})
	}

	if len(numeric) >= 2 {
		plans = append(plans, report.Visualization{
			Type:     "scatter",
			Columns:  []string{numeric[0], numeric[1]},
			Filename: fmt.Sprintf("scatter_%s.png", datasetID),
		})
	}

	var errs []string
	if p.renderer != nil {
		for _, plan := range plans {
			if err := p.renderer.Render(ctx, tbl, plan); err != nil {
				p.log.Warn("render %s failed: %v", plan.Filename, err)
				errs = append(errs, fmt.Sprintf("Visualization error: %v", err))
			}
		}
	}

	p.log.Info("planned %d charts for dataset %s", len(plans), datasetID)
	return plans, errs
}

func categoricalColumns(tbl *table.Table) []string {
	var names []string
	for _, c := range tbl.Columns {
		if c.Type != table.TypeNumeric {
			names = append(names, c.Name)
		}
	}
	return names
}
