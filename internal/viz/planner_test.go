package viz

import (
	"context"
	"errors"
	"testing"

	"datalyst/domain/core"
	"datalyst/domain/report"
	"datalyst/domain/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRenderer struct {
	rendered []string
	fail     map[string]bool
}

func (r *recordingRenderer) Render(_ context.Context, _ *table.Table, v report.Visualization) error {
	if r.fail[v.Type] {
		return errors.New("render backend unavailable")
	}
	r.rendered = append(r.rendered, v.Filename)
	return nil
}

func buildTable(t *testing.T, numeric, categorical []string) *table.Table {
	t.Helper()
	var cols []table.Column
	for _, name := range numeric {
		cols = append(cols, table.Column{
			Name: name, Type: table.TypeNumeric,
			Cells: []table.Value{table.Number(1), table.Number(2)},
		})
	}
	for _, name := range categorical {
		cols = append(cols, table.Column{
			Name: name, Type: table.TypeText,
			Cells: []table.Value{table.Text("a"), table.Text("b")},
		})
	}
	tbl, err := table.New(cols...)
	require.NoError(t, err)
	return tbl
}

func chartTypes(plans []report.Visualization) []string {
	out := make([]string, len(plans))
	for i, p := range plans {
		out[i] = p.Type
	}
	return out
}

func TestPlanFullChartSet(t *testing.T) {
	tbl := buildTable(t, []string{"a", "b", "c", "d"}, []string{"city"})
	r := &recordingRenderer{}

	plans, errs := NewPlanner(r).Plan(context.Background(), tbl, core.ID("ds1"))
	require.Empty(t, errs)

	// three histograms even with four numeric columns
	assert.Equal(t,
		[]string{"histogram", "histogram", "histogram", "correlation", "bar_chart", "scatter"},
		chartTypes(plans))
	assert.Equal(t, "hist_ds1_a.png", plans[0].Filename)
	assert.Equal(t, []string{"a", "b"}, plans[5].Columns)
	assert.Len(t, r.rendered, len(plans))
}

func TestPlanSingleNumericColumn(t *testing.T) {
	tbl := buildTable(t, []string{"x"}, nil)

	plans, _ := NewPlanner(nil).Plan(context.Background(), tbl, core.ID("ds2"))
	assert.Equal(t, []string{"histogram"}, chartTypes(plans))
}

func TestPlanCategoricalOnly(t *testing.T) {
	tbl := buildTable(t, nil, []string{"city", "grade"})

	plans, _ := NewPlanner(nil).Plan(context.Background(), tbl, core.ID("ds3"))
	require.Equal(t, []string{"bar_chart"}, chartTypes(plans))
	assert.Equal(t, "city", plans[0].Column, "first categorical column wins")
}

func TestPlanRenderFailureIsCollected(t *testing.T) {
	tbl := buildTable(t, []string{"a", "b"}, nil)
	r := &recordingRenderer{fail: map[string]bool{"correlation": true}}

	plans, errs := NewPlanner(r).Plan(context.Background(), tbl, core.ID("ds4"))

	assert.Len(t, plans, 4, "failed render keeps its descriptor")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Visualization error")
}

func TestPlanDeterministicFilenames(t *testing.T) {
	tbl := buildTable(t, []string{"a", "b"}, nil)

	first, _ := NewPlanner(nil).Plan(context.Background(), tbl, core.ID("ds5"))
	second, _ := NewPlanner(nil).Plan(context.Background(), tbl, core.ID("ds5"))
	assert.Equal(t, first, second)
}
