// Package insights turns the analysis reports into a natural-language
// summary through an LLM, with a deterministic templated fallback when
// the provider is out of quota or unreachable by configuration.
package insights

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"datalyst/domain/report"
	"datalyst/internal"
	"datalyst/ports"
)

// Generator produces the insight report for a finished analysis.
type Generator struct {
	log       *internal.Logger
	client    ports.LLMClient
	model     string
	maxTokens int
}

// NewGenerator wires a generator to an LLM client.
func NewGenerator(client ports.LLMClient, model string, maxTokens int) *Generator {
	return &Generator{
		log:       internal.NewLogger("Insights"),
		client:    client,
		model:     model,
		maxTokens: maxTokens,
	}
}

// Generate asks the LLM for insights over the three reports. Quota and
// availability errors fall back to the templated summary; any other
// error is returned to the caller.
func (g *Generator) Generate(ctx context.Context, cleaning *report.CleaningReport, stats *report.Statistics, anomalies *report.AnomalyReport) (string, error) {
	prompt := buildContext(cleaning, stats, anomalies)

	out, err := g.client.ChatCompletion(ctx, g.model, prompt, g.maxTokens)
	if err != nil {
		if IsQuotaError(err) {
			g.log.Warn("provider unavailable, using templated insights: %v", err)
			return MockInsights(stats, anomalies), nil
		}
		return "", fmt.Errorf("insights generation: %w", err)
	}
	return out, nil
}

// IsQuotaError reports whether the provider rejected the call for quota
// or availability reasons rather than a malformed request.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range []string{"402", "404", "Insufficient Balance", "insufficient_quota", "Not Found"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func buildContext(cleaning *report.CleaningReport, stats *report.Statistics, anomalies *report.AnomalyReport) string {
	var sb strings.Builder

	sb.WriteString("Dataset Analysis Summary:\n\n")
	sb.WriteString("1. Data Cleaning:\n")
	fmt.Fprintf(&sb, "- Original shape: (%d, %d)\n", cleaning.OriginalShape.Rows(), cleaning.OriginalShape.Cols())
	fmt.Fprintf(&sb, "- Cleaned shape: (%d, %d)\n", cleaning.CleanedShape.Rows(), cleaning.CleanedShape.Cols())
	fmt.Fprintf(&sb, "- Rows removed: %d\n", cleaning.RowsRemoved)
	fmt.Fprintf(&sb, "- Duplicates found: %d\n\n", cleaning.Duplicates)

	sb.WriteString("2. Dataset Overview:\n")
	fmt.Fprintf(&sb, "- Total rows: %d\n", stats.Shape.Rows())
	fmt.Fprintf(&sb, "- Total columns: %d\n", stats.Shape.Cols())
	fmt.Fprintf(&sb, "- Columns: %s\n\n", strings.Join(stats.Columns, ", "))

	sb.WriteString("3. Numeric Summary:\n")
	if len(stats.NumericSummary) == 0 {
		sb.WriteString("No numeric columns\n")
	}
	for _, name := range sortedKeys(stats.NumericSummary) {
		s := stats.NumericSummary[name]
		fmt.Fprintf(&sb, "- %s: mean=%.2f std=%.2f min=%.2f max=%.2f\n", name, s.Mean, s.Std, s.Min, s.Max)
	}

	sb.WriteString("\n4. Categorical Summary:\n")
	if len(stats.CategoricalSummary) == 0 {
		sb.WriteString("No categorical columns\n")
	}
	for _, name := range sortedKeys(stats.CategoricalSummary) {
		fmt.Fprintf(&sb, "- %s: %d unique values\n", name, stats.CategoricalSummary[name].UniqueValues)
	}

	sb.WriteString("\n5. Anomalies Detected:\n")
	summary := anomalies.Summary
	if summary == "" {
		summary = "No anomalies detected"
	}
	fmt.Fprintf(&sb, "%s\n", summary)
	fmt.Fprintf(&sb, "Outliers by column: %s\n\n", strings.Join(sortedKeys(anomalies.Outliers), ", "))

	sb.WriteString(`Based on this analysis, provide:
1. Key insights about the data
2. Notable patterns or trends
3. Data quality observations
4. Recommendations for further analysis
5. Potential business implications

Keep the response concise but informative.
`)
	return sb.String()
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
