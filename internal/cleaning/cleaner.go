// Package cleaning implements the data-cleaning stage: it normalizes the
// raw table, records a cleaning report, and persists the cleaned artifact.
// Any failure here is fatal for the whole pipeline run.
package cleaning

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"datalyst/domain/report"
	"datalyst/domain/table"
	"datalyst/internal"

	"github.com/montanaflynn/stats"
)

// MissingPlaceholder fills non-numeric columns that hold no values at all.
const MissingPlaceholder = "Unknown"

// Cleaner normalizes a raw table into an analysis-ready one.
type Cleaner struct {
	log *internal.Logger
}

// NewCleaner creates a cleaner.
func NewCleaner() *Cleaner {
	return &Cleaner{log: internal.NewLogger("Cleaner")}
}

// Clean runs the full cleaning sequence on tbl and returns the cleaned table
// plus its report. sourcePath locates the original file so the cleaned
// artifact can be written next to it; when empty (in-memory input) no
// artifact is persisted and the report's path stays empty.
//
// Report fields describing the table (shape, missing counts, duplicate count,
// column types) are captured after trimming and numeric coercion but before
// deduplication and imputation.
func (c *Cleaner) Clean(tbl *table.Table, sourcePath string) (*table.Table, *report.CleaningReport, error) {
	work := tbl.Clone()

	work = dropEmptyRows(work)
	trimTextCells(work)
	coerceNumericColumns(work)

	rep := &report.CleaningReport{
		MissingValues: make(map[string]int, work.Cols()),
		DataTypes:     make(map[string]string, work.Cols()),
	}
	rows, cols := work.Shape()
	rep.OriginalShape = report.Shape{rows, cols}
	for _, col := range work.Columns {
		rep.MissingValues[col.Name] = col.MissingCount()
		rep.DataTypes[col.Name] = string(col.Type)
	}
	rep.Duplicates = countDuplicates(work)

	cleaned := dropDuplicateRows(work)
	rep.RowsRemoved = rows - cleaned.Rows()

	if err := imputeMissing(cleaned); err != nil {
		return nil, nil, fmt.Errorf("imputation failed: %w", err)
	}

	cleanedRows, cleanedCols := cleaned.Shape()
	rep.CleanedShape = report.Shape{cleanedRows, cleanedCols}

	if sourcePath != "" {
		name := "cleaned_" + filepath.Base(sourcePath)
		path := filepath.Join(filepath.Dir(sourcePath), name)
		if err := writeCSV(cleaned, path); err != nil {
			return nil, nil, fmt.Errorf("failed to persist cleaned artifact: %w", err)
		}
		rep.CleanedFilePath = name
	}

	c.log.Info("cleaned %d rows to %d (%d removed, %d duplicates recorded)",
		rows, cleanedRows, rep.RowsRemoved, rep.Duplicates)
	return cleaned, rep, nil
}

// dropEmptyRows removes rows where every cell is null, preserving order.
func dropEmptyRows(t *table.Table) *table.Table {
	keep := make([]bool, t.Rows())
	for i := range keep {
		for j := range t.Columns {
			if !t.Columns[j].Cells[i].IsNull() {
				keep[i] = true
				break
			}
		}
	}
	return t.Select(keep)
}

// trimTextCells strips leading/trailing whitespace from text cells in place.
func trimTextCells(t *table.Table) {
	for j := range t.Columns {
		cells := t.Columns[j].Cells
		for i, v := range cells {
			if s, ok := v.Str(); ok {
				if trimmed := strings.TrimSpace(s); trimmed != s {
					cells[i] = table.Text(trimmed)
				}
			}
		}
	}
}

// coerceNumericColumns upgrades text columns where at least one cell parses
// as a number: parsed cells become numeric, failures become null. A column
// where nothing parses is left as text. This is deliberately best-effort: a
// mostly-text column with a single numeric-looking cell is upgraded too.
func coerceNumericColumns(t *table.Table) {
	for j := range t.Columns {
		col := &t.Columns[j]
		if col.Type != table.TypeText {
			continue
		}

		parsed := make([]table.Value, len(col.Cells))
		hits := 0
		for i, v := range col.Cells {
			s, ok := v.Str()
			if !ok {
				parsed[i] = table.Null()
				continue
			}
			f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil || math.IsNaN(f) {
				parsed[i] = table.Null()
				continue
			}
			parsed[i] = table.Number(f)
			hits++
		}

		if hits > 0 {
			col.Type = table.TypeNumeric
			col.Cells = parsed
		}
	}
}

// countDuplicates counts rows that repeat an earlier row (the first
// occurrence of each distinct row is not counted).
func countDuplicates(t *table.Table) int {
	seen := make(map[string]bool, t.Rows())
	dups := 0
	for i := 0; i < t.Rows(); i++ {
		key := t.RowKey(i)
		if seen[key] {
			dups++
		} else {
			seen[key] = true
		}
	}
	return dups
}

// dropDuplicateRows removes exact duplicate rows, keeping first occurrences.
func dropDuplicateRows(t *table.Table) *table.Table {
	seen := make(map[string]bool, t.Rows())
	keep := make([]bool, t.Rows())
	for i := 0; i < t.Rows(); i++ {
		key := t.RowKey(i)
		if !seen[key] {
			seen[key] = true
			keep[i] = true
		}
	}
	return t.Select(keep)
}

// imputeMissing fills every null cell: numeric columns take the column
// median, other columns take the most frequent value (first-seen wins ties)
// or the placeholder when the column holds no values at all. After this the
// table has no null cells.
func imputeMissing(t *table.Table) error {
	for j := range t.Columns {
		col := &t.Columns[j]
		if col.MissingCount() == 0 {
			continue
		}

		var fill table.Value
		if col.Type == table.TypeNumeric {
			values := col.Floats()
			if len(values) == 0 {
				// Numeric column with no values at all: fall back to the
				// placeholder and let the column revert to text.
				col.Type = table.TypeText
				fill = table.Text(MissingPlaceholder)
			} else {
				median, err := stats.Median(values)
				if err != nil {
					return fmt.Errorf("median of %s: %w", col.Name, err)
				}
				fill = table.Number(median)
			}
		} else {
			mode, ok := mostFrequent(col.Cells)
			if !ok {
				fill = table.Text(MissingPlaceholder)
			} else {
				fill = mode
			}
		}

		for i, v := range col.Cells {
			if v.IsNull() {
				col.Cells[i] = fill
			}
		}
	}
	return nil
}

// mostFrequent returns the most common non-null cell value, ties broken by
// first appearance. ok is false when every cell is null.
func mostFrequent(cells []table.Value) (table.Value, bool) {
	counts := make(map[string]int, len(cells))
	order := make([]table.Value, 0, len(cells))
	for _, v := range cells {
		if v.IsNull() {
			continue
		}
		key := v.Key()
		if counts[key] == 0 {
			order = append(order, v)
		}
		counts[key]++
	}
	if len(order) == 0 {
		return table.Null(), false
	}

	best := order[0]
	bestCount := counts[best.Key()]
	for _, v := range order[1:] {
		if counts[v.Key()] > bestCount {
			best = v
			bestCount = counts[v.Key()]
		}
	}
	return best, true
}

// writeCSV persists the cleaned table. Numeric cells use the shortest exact
// representation; booleans render as true/false.
func writeCSV(t *table.Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.Names()); err != nil {
		return err
	}
	for i := 0; i < t.Rows(); i++ {
		record := make([]string, t.Cols())
		for j, v := range t.Row(i) {
			record[j] = cellString(v)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func cellString(v table.Value) string {
	switch v.Kind() {
	case table.KindNumeric:
		f, _ := v.Float()
		return strconv.FormatFloat(f, 'g', -1, 64)
	case table.KindText:
		s, _ := v.Str()
		return s
	case table.KindBool:
		b, _ := v.Boolean()
		return strconv.FormatBool(b)
	case table.KindTime:
		return fmt.Sprintf("%v", v.Native())
	default:
		return ""
	}
}
