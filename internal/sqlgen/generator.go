// Package sqlgen emits illustrative PostgreSQL for a cleaned table: a
// CREATE TABLE schema plus sample INSERT statements. Nothing here is
// executed against a database.
package sqlgen

import (
	"fmt"
	"path/filepath"
	"strings"

	"datalyst/domain/table"
)

const sampleRows = 5

// TableName derives a SQL-safe table name from the source filename.
func TableName(filename string) string {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}

// columnName normalizes a header for SQL use.
func columnName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}

// sqlType maps a column's resident type to its PostgreSQL counterpart.
// Numeric columns map to DECIMAL since cell values are floats throughout.
func sqlType(t table.Type) string {
	switch t {
	case table.TypeNumeric:
		return "DECIMAL"
	case table.TypeBoolean:
		return "BOOLEAN"
	case table.TypeTemporal:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

// Generate renders the schema and the first rows of the table as a
// single SQL script.
func Generate(tbl *table.Table, filename string) string {
	tableName := TableName(filename)

	var parts []string
	parts = append(parts, fmt.Sprintf("-- SQL Schema and Data for %s\n", filename))
	parts = append(parts, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (", tableName))
	parts = append(parts, "    id SERIAL PRIMARY KEY,")

	for i, col := range tbl.Columns {
		line := fmt.Sprintf("    %s %s", columnName(col.Name), sqlType(col.Type))
		if i < len(tbl.Columns)-1 {
			line += ","
		}
		parts = append(parts, line)
	}
	parts = append(parts, ");\n")

	parts = append(parts, "\n-- Sample INSERT statements (first 5 rows)")

	cols := make([]string, len(tbl.Columns))
	for i, col := range tbl.Columns {
		cols[i] = columnName(col.Name)
	}
	colList := strings.Join(cols, ", ")

	limit := tbl.Rows()
	if limit > sampleRows {
		limit = sampleRows
	}
	for i := 0; i < limit; i++ {
		values := make([]string, 0, len(tbl.Columns))
		for _, v := range tbl.Row(i) {
			values = append(values, sqlLiteral(v))
		}
		parts = append(parts, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s);",
			tableName, colList, strings.Join(values, ", ")))
	}

	return strings.Join(parts, "\n")
}

func sqlLiteral(v table.Value) string {
	if v.IsNull() {
		return "NULL"
	}
	if s, ok := v.Str(); ok {
		return "'" + strings.ReplaceAll(s, "'", "''") + "'"
	}
	if b, ok := v.Boolean(); ok {
		if b {
			return "True"
		}
		return "False"
	}
	if ts, ok := v.Timestamp(); ok {
		return "'" + ts.Format("2006-01-02 15:04:05") + "'"
	}
	f, _ := v.Float()
	return formatNumber(f)
}

// formatNumber prints integers without a trailing .0 so generated
// literals read naturally.
func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
