package ui

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"datalyst/domain/core"
	"datalyst/domain/dataset"
)

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "Data analysis platform API",
	})
}

func (a *App) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.cfg.Server.MaxUploadBytes)
	if err := r.ParseMultipartForm(a.cfg.Server.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	ds, err := a.service.Upload(r.Context(), dataset.Upload{
		Filename: header.Filename,
		Size:     header.Size,
		File:     file,
	})
	if err != nil {
		if errors.Is(err, core.ErrUnsupportedFormat) {
			writeError(w, http.StatusBadRequest, "Invalid file type. Please upload CSV or Excel files only.")
			return
		}
		a.log.Error("upload failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Upload failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"dataset_id": ds.ID,
		"filename":   ds.OriginalFilename,
		"rows":       ds.RowsCount,
		"columns":    ds.ColumnsCount,
		"message":    "File uploaded successfully",
	})
}

func (a *App) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseDatasetID(chi.URLParam(r, "datasetID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dataset id")
		return
	}

	analysis, err := a.service.Analyze(r.Context(), core.ID(id))
	if err != nil {
		if core.IsNotFoundError(err) {
			writeError(w, http.StatusNotFound, "Dataset not found")
			return
		}
		a.log.Error("analysis failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Analysis failed: "+err.Error())
		return
	}

	message := "Analysis completed successfully"
	status := http.StatusOK
	if analysis.Status == dataset.StatusFailed {
		message = "Analysis failed: " + analysis.ErrorMessage
		status = http.StatusInternalServerError
	}

	writeJSON(w, status, map[string]interface{}{
		"analysis_id": analysis.ID,
		"status":      analysis.Status,
		"message":     message,
	})
}

func (a *App) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseAnalysisID(chi.URLParam(r, "analysisID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid analysis id")
		return
	}

	analysis, charts, err := a.service.GetAnalysis(r.Context(), core.ID(id))
	if err != nil {
		if core.IsNotFoundError(err) {
			writeError(w, http.StatusNotFound, "Analysis not found")
			return
		}
		a.log.Error("get analysis failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	vizOut := make([]map[string]interface{}, 0, len(charts))
	for _, v := range charts {
		vizOut = append(vizOut, map[string]interface{}{
			"id":   v.ID,
			"type": v.Type,
			"url":  "/visualizations/" + v.FilePath,
		})
	}

	noCacheHeaders(w)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":              analysis.ID,
		"dataset_id":      analysis.DatasetID,
		"status":          analysis.Status,
		"analysis_date":   analysis.AnalysisDate,
		"cleaning_report": analysis.Cleaning,
		"statistics":      analysis.Statistics,
		"anomalies":       analysis.Anomalies,
		"insights":        analysis.Insights,
		"insights_html":   renderMarkdown(analysis.Insights),
		"sql_queries":     analysis.SQLQueries,
		"visualizations":  vizOut,
		"error_message":   analysis.ErrorMessage,
	})
}

func (a *App) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	datasets, err := a.service.ListDatasets(r.Context(), limit, offset)
	if err != nil {
		a.log.Error("list datasets failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if datasets == nil {
		datasets = []*dataset.Dataset{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"datasets": datasets})
}

func (a *App) handleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseDatasetID(chi.URLParam(r, "datasetID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dataset id")
		return
	}

	if err := a.service.DeleteDataset(r.Context(), core.ID(id)); err != nil {
		if core.IsNotFoundError(err) {
			writeError(w, http.StatusNotFound, "Dataset not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Dataset deleted"})
}

type questionRequest struct {
	DatasetID string `json:"dataset_id"`
	Question  string `json:"question"`
}

func (a *App) handleQuestion(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	id, err := core.ParseDatasetID(req.DatasetID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dataset id")
		return
	}

	answer, err := a.service.Question(r.Context(), core.ID(id), req.Question)
	if err != nil {
		if core.IsNotFoundError(err) {
			writeError(w, http.StatusNotFound, "Dataset not found")
			return
		}
		a.log.Error("question failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

func (a *App) handleTextToSQL(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	id, err := core.ParseDatasetID(req.DatasetID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dataset id")
		return
	}

	result, err := a.service.TextToSQL(r.Context(), core.ID(id), req.Question)
	if err != nil {
		if core.IsNotFoundError(err) {
			writeError(w, http.StatusNotFound, "Dataset not found")
			return
		}
		a.log.Error("text-to-sql failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// renderMarkdown converts insight markdown into an HTML fragment for
// direct embedding by clients.
func renderMarkdown(src string) string {
	if src == "" {
		return ""
	}
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	return string(markdown.ToHTML([]byte(src), p, renderer))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
