// Package report defines the immutable analysis reports produced by the
// pipeline stages. Every field is a JSON-representable scalar, mapping or
// sequence so the reports can be persisted and served as-is.
package report

// Shape is (rows, columns), marshaled as a two-element array.
type Shape [2]int

// Rows returns the row count.
func (s Shape) Rows() int { return s[0] }

// Cols returns the column count.
func (s Shape) Cols() int { return s[1] }

// CleaningReport is produced once per run by the cleaning stage.
// Missing counts and declared types reflect the table after whitespace
// trimming and numeric coercion but before deduplication and imputation.
type CleaningReport struct {
	OriginalShape   Shape             `json:"original_shape"`
	MissingValues   map[string]int    `json:"missing_values"`
	Duplicates      int               `json:"duplicates"`
	DataTypes       map[string]string `json:"data_types"`
	CleanedShape    Shape             `json:"cleaned_shape"`
	RowsRemoved     int               `json:"rows_removed"`
	CleanedFilePath string            `json:"cleaned_file_path"`
}

// NumericSummary mirrors the describe() convention: count, mean, sample
// standard deviation, min, linearly interpolated quartiles, max.
type NumericSummary struct {
	Count float64 `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Q25   float64 `json:"25%"`
	Q50   float64 `json:"50%"`
	Q75   float64 `json:"75%"`
	Max   float64 `json:"max"`
}

// ValueCount is one value→frequency entry; entries are ordered by
// descending frequency, ties broken by first appearance.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// CategoricalSummary describes one non-numeric column.
type CategoricalSummary struct {
	UniqueValues int          `json:"unique_values"`
	TopValues    []ValueCount `json:"top_values"`
}

// Statistics is the cross-column descriptive summary of the cleaned table.
// Correlation entries are nil where variance is zero (never NaN).
type Statistics struct {
	Shape              Shape                          `json:"shape"`
	Columns            []string                       `json:"columns"`
	NumericSummary     map[string]NumericSummary      `json:"numeric_summary"`
	CategoricalSummary map[string]CategoricalSummary  `json:"categorical_summary"`
	Correlations       map[string]map[string]*float64 `json:"correlations"`
}

// OutlierStats reports the IQR-rule outliers of one numeric column.
type OutlierStats struct {
	Count      int       `json:"count"`
	Percentage float64   `json:"percentage"`
	Values     []float64 `json:"values"`
}

// AnomalyReport merges the findings of the independent anomaly checks.
// Duplicates counts every member of a duplicate group, not just repeats.
type AnomalyReport struct {
	Outliers           map[string]OutlierStats `json:"outliers"`
	InvalidValues      map[string][]string     `json:"invalid_values"`
	MissingValues      map[string]int          `json:"missing_values"`
	DomainAnomalies    map[string][]int        `json:"domain_anomalies"`
	Duplicates         int                     `json:"duplicates"`
	RowsWithDuplicates []int                   `json:"rows_with_duplicates"`
	AnomalyIndices     []int                   `json:"anomaly_indices"`
	Summary            string                  `json:"summary"`
}

// Visualization describes one chart the renderer should produce.
type Visualization struct {
	Type     string   `json:"type"`
	Column   string   `json:"column,omitempty"`
	Columns  []string `json:"columns,omitempty"`
	Filename string   `json:"filename"`
}
