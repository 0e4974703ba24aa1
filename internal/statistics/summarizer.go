// Package statistics implements the descriptive-statistics stage: numeric
// summaries, Pearson correlation and categorical frequencies over the
// cleaned table. The stage has no side effects and never fails on typed
// input; an empty table yields empty summaries.
package statistics

import (
	"fmt"
	"math"

	"datalyst/domain/report"
	"datalyst/domain/table"
	"datalyst/internal"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Summarizer computes the statistics report for a cleaned table.
type Summarizer struct {
	log *internal.Logger
}

// NewSummarizer creates a summarizer.
func NewSummarizer() *Summarizer {
	return &Summarizer{log: internal.NewLogger("Statistics")}
}

// Summarize builds the full statistics report.
func (s *Summarizer) Summarize(tbl *table.Table) *report.Statistics {
	rows, cols := tbl.Shape()
	out := &report.Statistics{
		Shape:              report.Shape{rows, cols},
		Columns:            tbl.Names(),
		NumericSummary:     make(map[string]report.NumericSummary),
		CategoricalSummary: make(map[string]report.CategoricalSummary),
	}

	numericCols := tbl.NumericColumns()
	for _, name := range numericCols {
		col, _ := tbl.Lookup(name)
		values := col.Floats()
		if len(values) == 0 {
			continue
		}
		out.NumericSummary[name] = describe(values)
	}

	if len(numericCols) >= 2 {
		out.Correlations = correlationMatrix(tbl, numericCols)
	}

	for _, col := range tbl.Columns {
		if col.Type == table.TypeNumeric {
			continue
		}
		out.CategoricalSummary[col.Name] = summarizeCategorical(&col)
	}

	s.log.Info("summarized %d numeric and %d categorical columns",
		len(out.NumericSummary), len(out.CategoricalSummary))
	return out
}

// describe mirrors the describe() convention: sample standard deviation
// (Bessel's correction) and linearly interpolated quartiles. A single-value
// column reports zero spread rather than an undefined one.
func describe(values []float64) report.NumericSummary {
	mean, _ := stats.Mean(values)
	minV, _ := stats.Min(values)
	maxV, _ := stats.Max(values)

	std := 0.0
	if len(values) > 1 {
		if sd, err := stats.StandardDeviationSample(values); err == nil && !math.IsNaN(sd) {
			std = sd
		}
	}

	return report.NumericSummary{
		Count: float64(len(values)),
		Mean:  mean,
		Std:   std,
		Min:   minV,
		Q25:   Quantile(values, 0.25),
		Q50:   Quantile(values, 0.50),
		Q75:   Quantile(values, 0.75),
		Max:   maxV,
	}
}

// correlationMatrix computes the symmetric Pearson matrix over numeric
// columns. Entries where either column has zero variance come out as nil,
// never NaN, so the report stays JSON-representable.
func correlationMatrix(tbl *table.Table, names []string) map[string]map[string]*float64 {
	series := make(map[string][]float64, len(names))
	for _, name := range names {
		col, _ := tbl.Lookup(name)
		series[name] = col.Floats()
	}

	matrix := make(map[string]map[string]*float64, len(names))
	for _, x := range names {
		matrix[x] = make(map[string]*float64, len(names))
		for _, y := range names {
			xs, ys := series[x], series[y]
			if len(xs) != len(ys) || len(xs) == 0 {
				matrix[x][y] = nil
				continue
			}
			r := stat.Correlation(xs, ys, nil)
			if math.IsNaN(r) || math.IsInf(r, 0) {
				matrix[x][y] = nil
				continue
			}
			v := r
			matrix[x][y] = &v
		}
	}
	return matrix
}

// summarizeCategorical counts distinct values and the top five by
// frequency, ties broken by first appearance.
func summarizeCategorical(col *table.Column) report.CategoricalSummary {
	counts := make(map[string]int, len(col.Cells))
	order := make([]string, 0, len(col.Cells))
	for _, v := range col.Cells {
		if v.IsNull() {
			continue
		}
		display := displayValue(v)
		if counts[display] == 0 {
			order = append(order, display)
		}
		counts[display]++
	}

	top := make([]report.ValueCount, 0, 5)
	used := make(map[string]bool, 5)
	for len(top) < 5 && len(top) < len(order) {
		best := ""
		bestCount := -1
		for _, val := range order {
			if used[val] {
				continue
			}
			if counts[val] > bestCount {
				best = val
				bestCount = counts[val]
			}
		}
		used[best] = true
		top = append(top, report.ValueCount{Value: best, Count: bestCount})
	}

	return report.CategoricalSummary{
		UniqueValues: len(order),
		TopValues:    top,
	}
}

func displayValue(v table.Value) string {
	if s, ok := v.Str(); ok {
		return s
	}
	return fmt.Sprintf("%v", v.Native())
}
