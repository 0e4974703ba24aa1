package excel

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"datalyst/domain/core"
	"datalyst/domain/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewDataReaderRejectsUnknownExtension(t *testing.T) {
	_, err := NewDataReader("data.json")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUnsupportedFormat))

	for _, name := range []string{"a.csv", "b.xlsx", "c.xls", "D.CSV"} {
		_, err := NewDataReader(name)
		assert.NoError(t, err, name)
	}
}

func TestReadCSVTypesColumns(t *testing.T) {
	path := writeFile(t, "people.csv",
		"name,age,active\n"+
			"Ann,34,true\n"+
			"Bob,28,false\n"+
			"Cid,,true\n")

	r, err := NewDataReader(path)
	require.NoError(t, err)
	tbl, err := r.Read()
	require.NoError(t, err)

	require.Equal(t, []string{"name", "age", "active"}, tbl.Names())

	name, _ := tbl.Lookup("name")
	assert.Equal(t, table.TypeText, name.Type)

	age, _ := tbl.Lookup("age")
	assert.Equal(t, table.TypeNumeric, age.Type)
	assert.True(t, age.Cells[2].IsNull(), "empty cell reads as null")
	f, _ := age.Cells[0].Float()
	assert.Equal(t, 34.0, f)

	active, _ := tbl.Lookup("active")
	assert.Equal(t, table.TypeBoolean, active.Type)
	b, _ := active.Cells[1].Boolean()
	assert.False(t, b)
}

func TestReadCSVMixedColumnStaysText(t *testing.T) {
	path := writeFile(t, "mixed.csv", "v\n10\nabc\n30\n")

	r, err := NewDataReader(path)
	require.NoError(t, err)
	tbl, err := r.Read()
	require.NoError(t, err)

	col, _ := tbl.Lookup("v")
	assert.Equal(t, table.TypeText, col.Type, "typing is strict; coercion is the cleaner's job")
}

func TestReadCSVNaNLiteralIsNotNumeric(t *testing.T) {
	path := writeFile(t, "nan.csv", "v\n1\nnan\n3\n")

	r, err := NewDataReader(path)
	require.NoError(t, err)
	tbl, err := r.Read()
	require.NoError(t, err)

	col, _ := tbl.Lookup("v")
	assert.Equal(t, table.TypeText, col.Type)
}

func TestReadCSVRaggedRows(t *testing.T) {
	path := writeFile(t, "ragged.csv", "a,b\n1,2\n3\n")

	r, err := NewDataReader(path)
	require.NoError(t, err)
	tbl, err := r.Read()
	require.NoError(t, err)

	b, _ := tbl.Lookup("b")
	assert.True(t, b.Cells[1].IsNull(), "short row pads with nulls")
}

func TestReadMissingFile(t *testing.T) {
	r, err := NewDataReader(filepath.Join(t.TempDir(), "absent.csv"))
	require.NoError(t, err)

	_, err = r.Read()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestReadEmptyCSV(t *testing.T) {
	path := writeFile(t, "empty.csv", "")

	r, err := NewDataReader(path)
	require.NoError(t, err)
	_, err = r.Read()
	require.Error(t, err)
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"city", "pop"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"NYC", 8400000}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"LA", 3900000}))

	path := filepath.Join(t.TempDir(), "cities.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	r, err := NewDataReader(path)
	require.NoError(t, err)
	tbl, err := r.Read()
	require.NoError(t, err)

	assert.Equal(t, []string{"city", "pop"}, tbl.Names())
	pop, _ := tbl.Lookup("pop")
	assert.Equal(t, table.TypeNumeric, pop.Type)
	v, _ := pop.Cells[0].Float()
	assert.Equal(t, 8400000.0, v)
}
