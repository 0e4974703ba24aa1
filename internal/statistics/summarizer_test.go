package statistics

import (
	"math"
	"testing"

	"datalyst/domain/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTable(t *testing.T, cols []table.Column) *table.Table {
	t.Helper()
	tbl, err := table.New(cols...)
	require.NoError(t, err)
	return tbl
}

func TestSummarizeNumericColumns(t *testing.T) {
	tbl := buildTable(t, []table.Column{
		{Name: "age", Type: table.TypeNumeric, Cells: []table.Value{
			table.Number(25), table.Number(30), table.Number(35), table.Number(40),
		}},
		{Name: "name", Type: table.TypeText, Cells: []table.Value{
			table.Text("a"), table.Text("b"), table.Text("c"), table.Text("d"),
		}},
	})

	out := NewSummarizer().Summarize(tbl)

	assert.Equal(t, []string{"age", "name"}, out.Columns)
	assert.Equal(t, 4, out.Shape.Rows())

	age, ok := out.NumericSummary["age"]
	require.True(t, ok)
	assert.Equal(t, 4.0, age.Count)
	assert.InDelta(t, 32.5, age.Mean, 1e-9)
	assert.InDelta(t, 6.454972243679028, age.Std, 1e-9) // sample std
	assert.Equal(t, 25.0, age.Min)
	assert.InDelta(t, 28.75, age.Q25, 1e-9)
	assert.InDelta(t, 32.5, age.Q50, 1e-9)
	assert.InDelta(t, 36.25, age.Q75, 1e-9)
	assert.Equal(t, 40.0, age.Max)

	// one numeric column only, no correlation matrix
	assert.Nil(t, out.Correlations)
}

func TestSummarizeSingleValueColumnHasZeroStd(t *testing.T) {
	tbl := buildTable(t, []table.Column{
		{Name: "x", Type: table.TypeNumeric, Cells: []table.Value{table.Number(7)}},
	})

	out := NewSummarizer().Summarize(tbl)
	assert.Equal(t, 0.0, out.NumericSummary["x"].Std)
}

func TestCorrelationMatrixProperties(t *testing.T) {
	tbl := buildTable(t, []table.Column{
		{Name: "a", Type: table.TypeNumeric, Cells: []table.Value{
			table.Number(1), table.Number(2), table.Number(3), table.Number(4),
		}},
		{Name: "b", Type: table.TypeNumeric, Cells: []table.Value{
			table.Number(2), table.Number(4), table.Number(6), table.Number(8),
		}},
		{Name: "c", Type: table.TypeNumeric, Cells: []table.Value{
			table.Number(4), table.Number(3), table.Number(2), table.Number(1),
		}},
	})

	out := NewSummarizer().Summarize(tbl)
	require.NotNil(t, out.Correlations)

	for _, name := range []string{"a", "b", "c"} {
		require.NotNil(t, out.Correlations[name][name])
		assert.InDelta(t, 1.0, *out.Correlations[name][name], 1e-9, "diagonal must be 1")
	}
	for _, x := range []string{"a", "b", "c"} {
		for _, y := range []string{"a", "b", "c"} {
			rxy, ryx := out.Correlations[x][y], out.Correlations[y][x]
			require.NotNil(t, rxy)
			require.NotNil(t, ryx)
			assert.InDelta(t, *rxy, *ryx, 1e-9, "matrix must be symmetric")
			assert.LessOrEqual(t, math.Abs(*rxy), 1.0+1e-9)
		}
	}
	assert.InDelta(t, 1.0, *out.Correlations["a"]["b"], 1e-9)
	assert.InDelta(t, -1.0, *out.Correlations["a"]["c"], 1e-9)
}

func TestCorrelationConstantColumnIsNil(t *testing.T) {
	tbl := buildTable(t, []table.Column{
		{Name: "a", Type: table.TypeNumeric, Cells: []table.Value{
			table.Number(1), table.Number(2), table.Number(3),
		}},
		{Name: "k", Type: table.TypeNumeric, Cells: []table.Value{
			table.Number(5), table.Number(5), table.Number(5),
		}},
	})

	out := NewSummarizer().Summarize(tbl)
	require.NotNil(t, out.Correlations)
	assert.Nil(t, out.Correlations["a"]["k"])
	assert.Nil(t, out.Correlations["k"]["k"])
}

func TestSummarizeCategorical(t *testing.T) {
	tbl := buildTable(t, []table.Column{
		{Name: "city", Type: table.TypeText, Cells: []table.Value{
			table.Text("NYC"), table.Text("LA"), table.Text("NYC"),
			table.Text("SF"), table.Text("LA"), table.Text("NYC"),
		}},
	})

	out := NewSummarizer().Summarize(tbl)
	cat, ok := out.CategoricalSummary["city"]
	require.True(t, ok)
	assert.Equal(t, 3, cat.UniqueValues)
	require.Len(t, cat.TopValues, 3)
	assert.Equal(t, "NYC", cat.TopValues[0].Value)
	assert.Equal(t, 3, cat.TopValues[0].Count)
	assert.Equal(t, "LA", cat.TopValues[1].Value)
	assert.Equal(t, "SF", cat.TopValues[2].Value)
}

func TestSummarizeCategoricalTiesKeepFirstSeen(t *testing.T) {
	tbl := buildTable(t, []table.Column{
		{Name: "grade", Type: table.TypeText, Cells: []table.Value{
			table.Text("B"), table.Text("A"), table.Text("B"), table.Text("A"),
		}},
	})

	out := NewSummarizer().Summarize(tbl)
	top := out.CategoricalSummary["grade"].TopValues
	require.Len(t, top, 2)
	assert.Equal(t, "B", top[0].Value)
	assert.Equal(t, "A", top[1].Value)
}

func TestSummarizeCategoricalTopFiveCap(t *testing.T) {
	cells := make([]table.Value, 0, 8)
	for _, s := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		cells = append(cells, table.Text(s))
	}
	tbl := buildTable(t, []table.Column{
		{Name: "id", Type: table.TypeText, Cells: cells},
	})

	out := NewSummarizer().Summarize(tbl)
	assert.Equal(t, 8, out.CategoricalSummary["id"].UniqueValues)
	assert.Len(t, out.CategoricalSummary["id"].TopValues, 5)
}

func TestSummarizeEmptyTable(t *testing.T) {
	tbl := buildTable(t, nil)
	out := NewSummarizer().Summarize(tbl)

	assert.Equal(t, 0, out.Shape.Rows())
	assert.Equal(t, 0, out.Shape.Cols())
	assert.Empty(t, out.NumericSummary)
	assert.Empty(t, out.CategoricalSummary)
	assert.Nil(t, out.Correlations)
}
