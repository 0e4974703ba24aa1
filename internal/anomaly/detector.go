// Package anomaly runs the data-quality battery over a cleaned table:
// missing-value census, duplicate census, sentinel strings, IQR outliers,
// domain rules and a multivariate isolation-forest pass. Checks are
// independent; one failing contributes nothing but never stops the rest.
package anomaly

import (
	"fmt"
	"math"
	"strings"
	"time"

	"datalyst/domain/report"
	"datalyst/domain/table"
	"datalyst/internal"
	"datalyst/internal/statistics"
)

const (
	minAge        = 18
	maxAge        = 70
	fenceK        = 1.5
	contamination = 0.1
	forestSeed    = 42
	maxSamples    = 10
)

var sentinelValues = map[string]bool{
	"nan":  true,
	"null": true,
	"":     true,
	"none": true,
}

// Detector runs the full check battery. Clock is overridable for the
// future-year rule.
type Detector struct {
	log   *internal.Logger
	Clock func() time.Time
}

// NewDetector creates a detector using wall-clock time.
func NewDetector() *Detector {
	return &Detector{
		log:   internal.NewLogger("AnomalyDetector"),
		Clock: time.Now,
	}
}

// Detect runs every check on a private copy of the table and merges the
// findings. Check failures come back as messages alongside the partial
// report.
func (d *Detector) Detect(tbl *table.Table) (*report.AnomalyReport, []string) {
	// private copy, the shared cleaned table must stay untouched
	work := tbl.Clone()

	out := &report.AnomalyReport{
		Outliers:           make(map[string]report.OutlierStats),
		InvalidValues:      make(map[string][]string),
		MissingValues:      make(map[string]int),
		DomainAnomalies:    make(map[string][]int),
		RowsWithDuplicates: []int{},
		AnomalyIndices:     []int{},
	}

	var errs []string
	run := func(name string, check func()) {
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("check %s failed: %v", name, r)
				errs = append(errs, fmt.Sprintf("Anomaly check %s failed: %v", name, r))
			}
		}()
		check()
	}

	run("missing_values", func() { d.checkMissing(work, out) })
	run("duplicates", func() { d.checkDuplicates(work, out) })
	run("invalid_values", func() { d.checkSentinels(work, out) })
	run("outliers", func() { d.checkOutliers(work, out) })
	run("domain_rules", func() { d.checkDomainRules(work, out) })
	run("multivariate", func() { d.checkMultivariate(work, out) })

	out.Summary = "Advanced anomaly detection completed."
	d.log.Info("detection finished: %d outlier columns, %d duplicate rows, %d multivariate hits",
		len(out.Outliers), out.Duplicates, len(out.AnomalyIndices))
	return out, errs
}

func (d *Detector) checkMissing(tbl *table.Table, out *report.AnomalyReport) {
	for _, col := range tbl.Columns {
		if n := col.MissingCount(); n > 0 {
			out.MissingValues[col.Name] = n
		}
	}
}

// checkDuplicates reports every member of a duplicate group, first
// occurrences included.
func (d *Detector) checkDuplicates(tbl *table.Table, out *report.AnomalyReport) {
	groups := make(map[string][]int)
	for i := 0; i < tbl.Rows(); i++ {
		key := tbl.RowKey(i)
		groups[key] = append(groups[key], i)
	}
	seen := make(map[int]bool)
	for _, members := range groups {
		if len(members) < 2 {
			continue
		}
		for _, idx := range members {
			seen[idx] = true
		}
	}
	for i := 0; i < tbl.Rows(); i++ {
		if seen[i] {
			out.RowsWithDuplicates = append(out.RowsWithDuplicates, i)
		}
	}
	out.Duplicates = len(out.RowsWithDuplicates)
}

// checkSentinels flags placeholder text regardless of the column's
// declared type.
func (d *Detector) checkSentinels(tbl *table.Table, out *report.AnomalyReport) {
	for _, col := range tbl.Columns {
		var hits []string
		for _, v := range col.Cells {
			s, ok := v.Str()
			if !ok {
				continue
			}
			if sentinelValues[strings.ToLower(strings.TrimSpace(s))] {
				hits = append(hits, s)
			}
		}
		if len(hits) > 0 {
			out.InvalidValues[col.Name] = hits
		}
	}
}

func (d *Detector) checkOutliers(tbl *table.Table, out *report.AnomalyReport) {
	rows := tbl.Rows()
	if rows == 0 {
		return
	}
	for _, name := range tbl.NumericColumns() {
		col, _ := tbl.Lookup(name)
		values := col.Floats()
		if len(values) == 0 {
			continue
		}
		q1 := statistics.Quantile(values, 0.25)
		q3 := statistics.Quantile(values, 0.75)
		iqr := q3 - q1
		lower := q1 - fenceK*iqr
		upper := q3 + fenceK*iqr

		var hits []float64
		count := 0
		for _, v := range values {
			if v < lower || v > upper {
				count++
				if len(hits) < maxSamples {
					hits = append(hits, v)
				}
			}
		}
		if count == 0 {
			continue
		}
		out.Outliers[name] = report.OutlierStats{
			Count:      count,
			Percentage: round2(float64(count) / float64(rows) * 100),
			Values:     hits,
		}
	}
}

// checkDomainRules applies the fixed column-name-keyed heuristics. The
// invalid_age key is always present, empty when the column is missing.
func (d *Detector) checkDomainRules(tbl *table.Table, out *report.AnomalyReport) {
	ageCol, hasAge := tbl.Lookup("age")

	invalidAge := []int{}
	if hasAge {
		for i, v := range ageCol.Cells {
			if f, ok := v.Float(); ok && (f < minAge || f > maxAge) {
				invalidAge = append(invalidAge, i)
			}
		}
	}
	out.DomainAnomalies["invalid_age"] = invalidAge

	if expCol, ok := tbl.Lookup("years_experience"); ok && hasAge {
		hits := []int{}
		for i, v := range expCol.Cells {
			exp, okExp := v.Float()
			age, okAge := ageCol.Cells[i].Float()
			if okExp && okAge && exp > age {
				hits = append(hits, i)
			}
		}
		out.DomainAnomalies["exp_gt_age"] = hits
	}

	if yearCol, ok := tbl.Lookup("last_promotion_year"); ok {
		currentYear := float64(d.Clock().Year())
		hits := []int{}
		for i, v := range yearCol.Cells {
			if f, okF := v.Float(); okF && f > currentYear {
				hits = append(hits, i)
			}
		}
		out.DomainAnomalies["future_year"] = hits
	}

	for _, name := range tbl.NumericColumns() {
		col, _ := tbl.Lookup(name)
		var hits []int
		for i, v := range col.Cells {
			if f, ok := v.Float(); ok && f < 0 {
				hits = append(hits, i)
			}
		}
		if len(hits) > 0 {
			out.DomainAnomalies["negative_"+name] = hits
		}
	}
}

// checkMultivariate runs the isolation forest over the numeric columns,
// nulls read as zero. Needs at least two numeric columns.
func (d *Detector) checkMultivariate(tbl *table.Table, out *report.AnomalyReport) {
	numeric := tbl.NumericColumns()
	if len(numeric) < 2 || tbl.Rows() == 0 {
		return
	}

	data := make([][]float64, tbl.Rows())
	for i := range data {
		data[i] = make([]float64, len(numeric))
	}
	for j, name := range numeric {
		col, _ := tbl.Lookup(name)
		for i, v := range col.Cells {
			if f, ok := v.Float(); ok {
				data[i][j] = f
			}
		}
	}

	forest := newIsolationForest(data, forestSeed)
	scores := forest.Scores(data)

	threshold := statistics.Quantile(scores, 1-contamination)
	for i, s := range scores {
		if s > threshold {
			out.AnomalyIndices = append(out.AnomalyIndices, i)
		}
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
