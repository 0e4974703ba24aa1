// Package table holds the uniform in-memory representation of a tabular
// dataset: named, typed columns of equal length, in insertion order.
package table

import (
	"strings"

	"datalyst/domain/core"
)

// Type is the declared type of a whole column.
type Type string

const (
	TypeNumeric  Type = "numeric"
	TypeText     Type = "text"
	TypeBoolean  Type = "boolean"
	TypeTemporal Type = "temporal"
)

// Column is a named sequence of typed cells.
type Column struct {
	Name  string
	Type  Type
	Cells []Value
}

// Len returns the number of cells in the column.
func (c *Column) Len() int {
	return len(c.Cells)
}

// MissingCount returns the number of null cells.
func (c *Column) MissingCount() int {
	count := 0
	for _, v := range c.Cells {
		if v.IsNull() {
			count++
		}
	}
	return count
}

// Floats returns the non-null numeric cell values in row order.
func (c *Column) Floats() []float64 {
	out := make([]float64, 0, len(c.Cells))
	for _, v := range c.Cells {
		if f, ok := v.Float(); ok {
			out = append(out, f)
		}
	}
	return out
}

// Table is an ordered sequence of equally sized columns.
// Invariant: every column has the same number of cells.
type Table struct {
	Columns []Column
}

// New builds a table from columns, validating the equal-length invariant.
func New(columns ...Column) (*Table, error) {
	for i := 1; i < len(columns); i++ {
		if len(columns[i].Cells) != len(columns[0].Cells) {
			return nil, core.ErrShapeMismatch
		}
	}
	return &Table{Columns: columns}, nil
}

// Rows returns the row count.
func (t *Table) Rows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Cells)
}

// Cols returns the column count.
func (t *Table) Cols() int {
	return len(t.Columns)
}

// Shape returns (rows, cols).
func (t *Table) Shape() (int, int) {
	return t.Rows(), t.Cols()
}

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Lookup returns a pointer to the named column, or false if absent.
func (t *Table) Lookup(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// Row returns the cells of row i in column order.
func (t *Table) Row(i int) []Value {
	row := make([]Value, len(t.Columns))
	for j := range t.Columns {
		row[j] = t.Columns[j].Cells[i]
	}
	return row
}

// RowKey returns a canonical fingerprint of row i, used for exact
// duplicate detection.
func (t *Table) RowKey(i int) string {
	var sb strings.Builder
	for j := range t.Columns {
		if j > 0 {
			sb.WriteByte(0x1f)
		}
		sb.WriteString(t.Columns[j].Cells[i].Key())
	}
	return sb.String()
}

// NumericColumns returns the names of columns whose declared type is numeric,
// in column order.
func (t *Table) NumericColumns() []string {
	var names []string
	for _, c := range t.Columns {
		if c.Type == TypeNumeric {
			names = append(names, c.Name)
		}
	}
	return names
}

// Select returns a new table containing only the rows where keep[i] is true,
// preserving row order. Cell values are shared, not copied.
func (t *Table) Select(keep []bool) *Table {
	out := &Table{Columns: make([]Column, len(t.Columns))}
	for j, c := range t.Columns {
		kept := make([]Value, 0, len(c.Cells))
		for i, v := range c.Cells {
			if keep[i] {
				kept = append(kept, v)
			}
		}
		out.Columns[j] = Column{Name: c.Name, Type: c.Type, Cells: kept}
	}
	return out
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{Columns: make([]Column, len(t.Columns))}
	for j, c := range t.Columns {
		cells := make([]Value, len(c.Cells))
		copy(cells, c.Cells)
		out.Columns[j] = Column{Name: c.Name, Type: c.Type, Cells: cells}
	}
	return out
}
