package insights

import (
	"context"
	"fmt"
	"strings"

	"datalyst/domain/report"
	"datalyst/domain/table"
	"datalyst/internal"
	"datalyst/ports"
)

const mockAnswer = "I apologize, but I'm currently running in Mock Mode due to API limits. " +
	"I cannot provide specific answers to your questions at this time, but you can still " +
	"view the generated statistics and visualizations."

const previewRows = 3

// Answerer handles free-form questions about a dataset.
type Answerer struct {
	log       *internal.Logger
	client    ports.LLMClient
	model     string
	maxTokens int
}

// NewAnswerer wires an answerer to an LLM client.
func NewAnswerer(client ports.LLMClient, model string, maxTokens int) *Answerer {
	return &Answerer{
		log:       internal.NewLogger("QA"),
		client:    client,
		model:     model,
		maxTokens: maxTokens,
	}
}

// Answer builds a dataset context and asks the LLM the user's question.
// Provider quota errors degrade to a fixed mock answer instead of failing.
func (a *Answerer) Answer(ctx context.Context, tbl *table.Table, stats *report.Statistics, question string) (string, error) {
	prompt := a.buildPrompt(tbl, stats, question)

	out, err := a.client.ChatCompletion(ctx, a.model, prompt, a.maxTokens)
	if err != nil {
		if IsQuotaError(err) {
			a.log.Warn("provider unavailable, returning mock answer: %v", err)
			return mockAnswer, nil
		}
		return "", fmt.Errorf("question answering: %w", err)
	}
	return out, nil
}

func (a *Answerer) buildPrompt(tbl *table.Table, stats *report.Statistics, question string) string {
	rows, cols := tbl.Shape()

	var sb strings.Builder
	sb.WriteString("Dataset Information:\n")
	fmt.Fprintf(&sb, "- Shape: %d rows, %d columns\n", rows, cols)
	fmt.Fprintf(&sb, "- Columns: %s\n", strings.Join(tbl.Names(), ", "))

	sb.WriteString("\nFirst few rows:\n")
	sb.WriteString(previewTable(tbl))

	if stats != nil {
		sb.WriteString("\nStatistics Summary:\n")
		for _, name := range sortedKeys(stats.NumericSummary) {
			s := stats.NumericSummary[name]
			fmt.Fprintf(&sb, "- %s: count=%.0f mean=%.2f std=%.2f min=%.2f max=%.2f\n",
				name, s.Count, s.Mean, s.Std, s.Min, s.Max)
		}
		for _, name := range sortedKeys(stats.CategoricalSummary) {
			fmt.Fprintf(&sb, "- %s: %d unique values\n", name, stats.CategoricalSummary[name].UniqueValues)
		}
	}

	return fmt.Sprintf(`You are a data analyst assistant. Based on the following dataset information, answer the user's question accurately and concisely.

%s

User Question: %s

Provide a clear, data-driven answer. If you need to perform calculations, show your work. If the question cannot be answered with the available data, explain why.

Answer:`, sb.String(), question)
}

func previewTable(tbl *table.Table) string {
	var sb strings.Builder
	sb.WriteString(strings.Join(tbl.Names(), " | "))
	sb.WriteByte('\n')
	limit := tbl.Rows()
	if limit > previewRows {
		limit = previewRows
	}
	for i := 0; i < limit; i++ {
		cells := make([]string, 0, tbl.Cols())
		for _, v := range tbl.Row(i) {
			cells = append(cells, fmt.Sprintf("%v", v.Native()))
		}
		sb.WriteString(strings.Join(cells, " | "))
		sb.WriteByte('\n')
	}
	return sb.String()
}
