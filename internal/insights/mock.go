package insights

import (
	"fmt"
	"strings"

	"datalyst/domain/report"
)

// MockInsights renders the deterministic templated summary used when no
// LLM provider is reachable. The output is markdown, same as the live
// provider's.
func MockInsights(stats *report.Statistics, anomalies *report.AnomalyReport) string {
	summary := anomalies.Summary
	if summary == "" {
		summary = "No anomalies detected"
	}

	lines := []string{
		"### Data Analysis Insights (Mock Mode)",
		"",
		"**1. Key Insights**",
		fmt.Sprintf("- The dataset contains %d rows and %d columns.", stats.Shape.Rows(), stats.Shape.Cols()),
		fmt.Sprintf("- There are %d numeric variables and %d categorical variables.", len(stats.NumericSummary), len(stats.CategoricalSummary)),
		"",
		"**2. Patterns & Trends**",
		"- Distribution analysis shows varying ranges across numeric features.",
		"- Correlation analysis suggests potential relationships between variables (refer to heatmap).",
		"",
		"**3. Data Quality**",
		"- Data cleaning process handled missing values and duplicates.",
		fmt.Sprintf("- %s.", strings.TrimSuffix(summary, ".")),
		"",
		"**4. Recommendations**",
		"- Consider collecting more data points for robust analysis.",
		"- Further investigate the identified outliers.",
		"",
		"**5. Business Implications**",
		"- These findings can support data-driven decision making.",
		"- Monitor key metrics for changes over time.",
	}
	return strings.Join(lines, "\n")
}
