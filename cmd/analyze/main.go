// Command analyze runs the analysis pipeline over a local file and
// prints the resulting reports as JSON. No database, server or LLM
// provider is needed; insights fall back to the templated summary.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"

	"datalyst/domain/core"
	"datalyst/internal/pipeline"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: analyze <dataset file (.csv/.xlsx/.xls)>")
	}
	path := os.Args[1]

	runner := pipeline.NewRunner(nil, nil)
	state := runner.Run(context.Background(), &pipeline.State{
		DatasetID: core.NewID(),
		FilePath:  path,
		Filename:  filepath.Base(path),
	})

	out := map[string]interface{}{
		"status":          state.Status,
		"cleaning_report": state.Cleaning,
		"statistics":      state.Statistics,
		"anomalies":       state.Anomalies,
		"visualizations":  state.Visualizations,
		"insights":        state.Insights,
		"sql_queries":     state.SQLQueries,
		"errors":          state.Errors,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("Failed to encode results: %v", err)
	}

	if state.Status == pipeline.StatusFailed {
		os.Exit(1)
	}
}
