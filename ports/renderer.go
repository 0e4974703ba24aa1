package ports

import (
	"context"

	"datalyst/domain/report"
	"datalyst/domain/table"
)

// ChartRenderer turns a chart descriptor into an image artifact. The
// descriptor's filename is the artifact name the renderer must produce.
type ChartRenderer interface {
	Render(ctx context.Context, tbl *table.Table, viz report.Visualization) error
}
