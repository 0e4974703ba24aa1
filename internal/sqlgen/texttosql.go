package sqlgen

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"datalyst/domain/table"
	"datalyst/internal"
	"datalyst/ports"
)

const clarificationPrefix = "CLARIFICATION NEEDED:"

// sqlKeywords are identifiers the column validator must not mistake for
// column references.
var sqlKeywords = map[string]bool{
	"select": true, "from": true, "where": true, "group": true, "by": true,
	"order": true, "having": true, "limit": true, "offset": true, "join": true,
	"inner": true, "left": true, "right": true, "outer": true, "on": true,
	"as": true, "and": true, "or": true, "not": true, "in": true, "like": true,
	"between": true, "is": true, "null": true, "distinct": true, "count": true,
	"sum": true, "avg": true, "min": true, "max": true, "case": true,
	"when": true, "then": true, "else": true, "end": true, "asc": true,
	"desc": true, "true": true, "false": true, "cast": true, "integer": true,
	"text": true, "numeric": true, "boolean": true, "timestamp": true,
	"date": true, "varchar": true, "char": true,
}

var identPattern = regexp.MustCompile(`\b([a-z_][a-z0-9_]*)\b`)

// QueryResult is the outcome of a text-to-SQL request. Either SQLQuery
// is set, or NeedsClarification carries a message back to the user.
type QueryResult struct {
	SQLQuery             string            `json:"sql_query,omitempty"`
	NeedsClarification   bool              `json:"needs_clarification"`
	ClarificationMessage string            `json:"clarification_message,omitempty"`
	TableName            string            `json:"table_name,omitempty"`
	Schema               map[string]string `json:"schema,omitempty"`
}

// QueryBuilder converts natural-language questions into PostgreSQL
// against a dataset's derived schema.
type QueryBuilder struct {
	log       *internal.Logger
	client    ports.LLMClient
	model     string
	maxTokens int
}

// NewQueryBuilder wires a builder to an LLM client.
func NewQueryBuilder(client ports.LLMClient, model string, maxTokens int) *QueryBuilder {
	return &QueryBuilder{
		log:       internal.NewLogger("TextToSQL"),
		client:    client,
		model:     model,
		maxTokens: maxTokens,
	}
}

// Schema maps each column name to its PostgreSQL type.
func Schema(tbl *table.Table) map[string]string {
	schema := make(map[string]string, tbl.Cols())
	for _, col := range tbl.Columns {
		schema[col.Name] = sqlType(col.Type)
	}
	return schema
}

// Build generates a query for the question, validating every referenced
// column against the table's schema before returning it.
func (b *QueryBuilder) Build(ctx context.Context, tbl *table.Table, tableName, question string) QueryResult {
	schema := Schema(tbl)
	if len(schema) == 0 {
		return QueryResult{
			NeedsClarification:   true,
			ClarificationMessage: "Unable to extract schema from dataset. Please ensure the file is valid.",
		}
	}

	prompt := b.buildPrompt(tbl, tableName, question)
	out, err := b.client.ChatCompletion(ctx, b.model, prompt, b.maxTokens)
	if err != nil {
		b.log.Warn("generation failed: %v", err)
		if strings.Contains(err.Error(), "402") || strings.Contains(err.Error(), "404") ||
			strings.Contains(err.Error(), "Insufficient Balance") {
			return QueryResult{
				NeedsClarification:   true,
				ClarificationMessage: "AI service is currently unavailable (Mock Mode). Please try again later.",
			}
		}
		return QueryResult{
			NeedsClarification:   true,
			ClarificationMessage: fmt.Sprintf("Error generating SQL query: %v", err),
		}
	}

	sql := strings.TrimSpace(out)
	if strings.HasPrefix(sql, clarificationPrefix) {
		return QueryResult{
			NeedsClarification:   true,
			ClarificationMessage: strings.TrimSpace(strings.TrimPrefix(sql, clarificationPrefix)),
		}
	}

	sql = strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(sql, "```sql", ""), "```", ""))

	if invalid := InvalidColumns(sql, tbl.Names()); len(invalid) > 0 {
		return QueryResult{
			NeedsClarification: true,
			ClarificationMessage: fmt.Sprintf(
				"The generated query references columns that don't exist: %s. Available columns are: %s",
				strings.Join(invalid, ", "), strings.Join(tbl.Names(), ", ")),
		}
	}

	return QueryResult{
		SQLQuery:  sql,
		TableName: tableName,
		Schema:    schema,
	}
}

// InvalidColumns returns identifiers in the query that are neither SQL
// keywords, valid columns, nor dataset table names.
func InvalidColumns(sql string, validColumns []string) []string {
	valid := make(map[string]bool, len(validColumns))
	for _, col := range validColumns {
		valid[strings.ToLower(col)] = true
	}

	var invalid []string
	seen := make(map[string]bool)
	for _, match := range identPattern.FindAllString(strings.ToLower(sql), -1) {
		if sqlKeywords[match] || valid[match] || seen[match] {
			continue
		}
		if strings.HasPrefix(match, "dataset_") {
			continue
		}
		seen[match] = true
		invalid = append(invalid, match)
	}
	return invalid
}

func (b *QueryBuilder) buildPrompt(tbl *table.Table, tableName, question string) string {
	schemaLines := make([]string, 0, tbl.Cols())
	for _, col := range tbl.Columns {
		schemaLines = append(schemaLines, fmt.Sprintf("  %s %s", col.Name, sqlType(col.Type)))
	}

	return fmt.Sprintf(`You are a PostgreSQL SQL query generator. Your task is to convert natural language questions into valid PostgreSQL SQL queries.

CRITICAL RULES:
1. Output ONLY the SQL query - no explanations, no markdown, no code blocks
2. Use ONLY the columns provided in the schema below
3. Do NOT invent or hallucinate column names
4. If the question is ambiguous or unclear, respond with EXACTLY: "CLARIFICATION NEEDED: [your specific question]"
5. Use proper PostgreSQL syntax
6. Always use the exact table name provided
7. For aggregations, use appropriate GROUP BY clauses
8. End the query with a semicolon

Table Schema:
Table name: %s
Columns:
%s

Available columns (use ONLY these): %s

Question: %s`,
		tableName, strings.Join(schemaLines, ",\n"), strings.Join(tbl.Names(), ", "), question)
}
