package cleaning

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"datalyst/domain/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTable(t *testing.T, cols ...table.Column) *table.Table {
	t.Helper()
	tbl, err := table.New(cols...)
	require.NoError(t, err)
	return tbl
}

func textCol(name string, values ...string) table.Column {
	cells := make([]table.Value, len(values))
	for i, v := range values {
		cells[i] = table.Text(v)
	}
	return table.Column{Name: name, Type: table.TypeText, Cells: cells}
}

func TestCleanDropsAllNullRows(t *testing.T) {
	tbl := mustTable(t,
		table.Column{Name: "a", Type: table.TypeText, Cells: []table.Value{
			table.Text("x"), table.Null(), table.Text("y"),
		}},
		table.Column{Name: "b", Type: table.TypeText, Cells: []table.Value{
			table.Null(), table.Null(), table.Text("z"),
		}},
	)

	cleaned, rep, err := NewCleaner().Clean(tbl, "")
	require.NoError(t, err)

	assert.Equal(t, 2, rep.OriginalShape.Rows(), "all-null row dropped before the report snapshot")
	assert.Equal(t, 2, cleaned.Rows())
	col, _ := cleaned.Lookup("a")
	s, _ := col.Cells[0].Str()
	assert.Equal(t, "x", s)
}

func TestCleanTrimsWhitespace(t *testing.T) {
	tbl := mustTable(t, textCol("name", "  Ann ", "Bob"))

	cleaned, _, err := NewCleaner().Clean(tbl, "")
	require.NoError(t, err)

	col, _ := cleaned.Lookup("name")
	s, _ := col.Cells[0].Str()
	assert.Equal(t, "Ann", s)
}

func TestCleanCoercesMixedNumericColumn(t *testing.T) {
	tbl := mustTable(t, textCol("salary", "50000", "abc", "61000"))

	cleaned, rep, err := NewCleaner().Clean(tbl, "")
	require.NoError(t, err)

	col, _ := cleaned.Lookup("salary")
	assert.Equal(t, table.TypeNumeric, col.Type)
	assert.Equal(t, "numeric", rep.DataTypes["salary"])
	assert.Equal(t, 1, rep.MissingValues["salary"], "unparseable cell counts as missing pre-imputation")

	// failed parse imputed with the median of 50000 and 61000
	f, ok := col.Cells[1].Float()
	require.True(t, ok)
	assert.InDelta(t, 55500, f, 1e-9)
}

func TestCleanLeavesPureTextColumns(t *testing.T) {
	tbl := mustTable(t, textCol("city", "NYC", "LA"))

	cleaned, rep, err := NewCleaner().Clean(tbl, "")
	require.NoError(t, err)

	col, _ := cleaned.Lookup("city")
	assert.Equal(t, table.TypeText, col.Type)
	assert.Equal(t, "text", rep.DataTypes["city"])
}

func TestCleanSingleNumericLookingCellUpgradesColumn(t *testing.T) {
	// accepted best-effort behavior, not a bug
	tbl := mustTable(t, textCol("code", "alpha", "beta", "42"))

	cleaned, _, err := NewCleaner().Clean(tbl, "")
	require.NoError(t, err)

	col, _ := cleaned.Lookup("code")
	assert.Equal(t, table.TypeNumeric, col.Type)
	f, ok := col.Cells[0].Float()
	require.True(t, ok, "failed parses are imputed afterwards")
	assert.Equal(t, 42.0, f)
}

func TestCleanDeduplicates(t *testing.T) {
	tbl := mustTable(t,
		textCol("a", "1", "1", "2"),
		textCol("b", "x", "x", "y"),
	)

	cleaned, rep, err := NewCleaner().Clean(tbl, "")
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Duplicates, "repeats after the first occurrence")
	assert.Equal(t, 2, cleaned.Rows())
	assert.Equal(t, 1, rep.RowsRemoved)
	assert.Equal(t, rep.OriginalShape.Rows()-rep.CleanedShape.Rows(), rep.RowsRemoved)
}

func TestCleanImputesCategoricalMode(t *testing.T) {
	tbl := mustTable(t, table.Column{
		Name: "city", Type: table.TypeText,
		Cells: []table.Value{
			table.Text("LA"), table.Text("NYC"), table.Null(), table.Text("NYC"),
		},
	})

	cleaned, _, err := NewCleaner().Clean(tbl, "")
	require.NoError(t, err)

	col, _ := cleaned.Lookup("city")
	s, _ := col.Cells[2].Str()
	assert.Equal(t, "NYC", s)
}

func TestCleanImputesPlaceholderForAllNullColumn(t *testing.T) {
	tbl := mustTable(t,
		textCol("keep", "a", "b"),
		table.Column{Name: "empty", Type: table.TypeText, Cells: []table.Value{
			table.Null(), table.Null(),
		}},
	)

	cleaned, _, err := NewCleaner().Clean(tbl, "")
	require.NoError(t, err)

	col, _ := cleaned.Lookup("empty")
	for _, v := range col.Cells {
		s, _ := v.Str()
		assert.Equal(t, MissingPlaceholder, s)
	}
}

func TestCleanLeavesNoNulls(t *testing.T) {
	tbl := mustTable(t,
		textCol("n", "1", "oops", "3"),
		table.Column{Name: "c", Type: table.TypeText, Cells: []table.Value{
			table.Null(), table.Text("x"), table.Null(),
		}},
	)

	cleaned, _, err := NewCleaner().Clean(tbl, "")
	require.NoError(t, err)

	for _, col := range cleaned.Columns {
		assert.Zero(t, col.MissingCount(), col.Name)
	}
}

func TestCleanIdempotent(t *testing.T) {
	tbl := mustTable(t,
		textCol("age", "25", "25", "b", "30"),
		textCol("city", " NYC", "NYC", "LA", "SF"),
	)

	c := NewCleaner()
	once, first, err := c.Clean(tbl, "")
	require.NoError(t, err)

	twice, second, err := c.Clean(once, "")
	require.NoError(t, err)

	assert.Zero(t, second.RowsRemoved, "second pass removes nothing")
	assert.Equal(t, first.CleanedShape, second.CleanedShape)
	assert.Equal(t, once.Rows(), twice.Rows())
}

func TestCleanWritesArtifact(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "input.csv")
	require.NoError(t, os.WriteFile(source, []byte("placeholder"), 0o644))

	tbl := mustTable(t, textCol("x", "1", "2"))

	_, rep, err := NewCleaner().Clean(tbl, source)
	require.NoError(t, err)
	assert.Equal(t, "cleaned_input.csv", rep.CleanedFilePath)

	f, err := os.Open(filepath.Join(dir, "cleaned_input.csv"))
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"x"}, records[0])
	assert.Equal(t, []string{"1"}, records[1])
}

func TestCleanDoesNotMutateInput(t *testing.T) {
	tbl := mustTable(t, textCol("v", " a ", " a "))

	_, _, err := NewCleaner().Clean(tbl, "")
	require.NoError(t, err)

	col, _ := tbl.Lookup("v")
	s, _ := col.Cells[0].Str()
	assert.Equal(t, " a ", s, "caller's table stays as loaded")
	assert.Equal(t, 2, tbl.Rows())
}
