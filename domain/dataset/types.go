package dataset

import (
	"io"
	"time"

	"datalyst/domain/core"
	"datalyst/domain/report"
)

// AnalysisStatus represents the processing state of an analysis run
type AnalysisStatus string

const (
	StatusPending    AnalysisStatus = "pending"
	StatusProcessing AnalysisStatus = "processing"
	StatusCompleted  AnalysisStatus = "completed"
	StatusFailed     AnalysisStatus = "failed"
)

// Dataset represents a stored dataset file and its basic shape
type Dataset struct {
	ID               core.ID   `json:"id"`
	Filename         string    `json:"filename"`          // stored (timestamped) filename
	OriginalFilename string    `json:"original_filename"` // filename as uploaded
	FilePath         string    `json:"file_path"`
	FileSize         int64     `json:"file_size"`
	UploadDate       time.Time `json:"upload_date"`
	RowsCount        int       `json:"rows"`
	ColumnsCount     int       `json:"columns"`
	ColumnNames      []string  `json:"column_names"`
}

// NewDataset creates a dataset record with a fresh ID
func NewDataset(originalFilename string) *Dataset {
	return &Dataset{
		ID:               core.NewID(),
		OriginalFilename: originalFilename,
		UploadDate:       time.Now(),
	}
}

// Analysis represents one pipeline run over a dataset and its reports
type Analysis struct {
	ID           core.ID               `json:"id"`
	DatasetID    core.ID               `json:"dataset_id"`
	AnalysisDate time.Time             `json:"analysis_date"`
	Cleaning     *report.CleaningReport `json:"cleaning_report,omitempty"`
	Statistics   *report.Statistics     `json:"statistics,omitempty"`
	Anomalies    *report.AnomalyReport  `json:"anomalies,omitempty"`
	Insights     string                `json:"insights,omitempty"`
	SQLQueries   string                `json:"sql_queries,omitempty"`
	Status       AnalysisStatus        `json:"status"`
	ErrorMessage string                `json:"error_message,omitempty"`
}

// NewAnalysis creates an analysis record in the processing state
func NewAnalysis(datasetID core.ID) *Analysis {
	return &Analysis{
		ID:           core.NewID(),
		DatasetID:    datasetID,
		AnalysisDate: time.Now(),
		Status:       StatusProcessing,
	}
}

// Visualization represents a rendered chart stored on disk
type Visualization struct {
	ID          core.ID   `json:"id"`
	AnalysisID  core.ID   `json:"analysis_id"`
	Type        string    `json:"type"` // histogram, correlation, bar_chart, scatter
	FilePath    string    `json:"file_path"`
	CreatedDate time.Time `json:"created_date"`
}

// Upload represents an uploaded file before it is stored
type Upload struct {
	Filename string
	Size     int64
	File     io.Reader
}
