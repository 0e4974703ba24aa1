// Package excel loads delimited and spreadsheet files into the uniform
// table representation. Content is not validated here: malformed cells
// surface later as cleaning and anomaly findings.
package excel

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"datalyst/domain/core"
	"datalyst/domain/table"
	"datalyst/internal"

	"github.com/xuri/excelize/v2"
)

var logger = internal.NewLogger("DataReader")

// DataReader handles reading Excel and CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
}

// NewDataReader creates a reader for the given path. The extension decides
// the format: .csv, .xlsx and .xls are supported.
func NewDataReader(filePath string) (*DataReader, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".csv":
		return &DataReader{filePath: filePath, fileType: "csv"}, nil
	case ".xlsx", ".xls":
		return &DataReader{filePath: filePath, fileType: "xlsx"}, nil
	default:
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedFormat, filepath.Ext(filePath))
	}
}

// Read loads the file into a typed table.
func (r *DataReader) Read() (*table.Table, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	var raw *RawData
	var err error
	switch r.fileType {
	case "csv":
		raw, err = r.readCSV()
	default:
		raw, err = r.readExcel()
	}
	if err != nil {
		return nil, err
	}

	return buildTable(raw)
}

func (r *DataReader) readExcel() (*RawData, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	logger.Info("Excel file read (%d rows)", len(rows))

	if len(rows) == 0 {
		return nil, fmt.Errorf("Excel file has no header row")
	}
	return splitHeader(rows), nil
}

func (r *DataReader) readCSV() (*RawData, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	logger.Info("CSV file read (%d rows)", len(rows))

	if len(rows) == 0 {
		return nil, fmt.Errorf("CSV file has no header row")
	}
	return splitHeader(rows), nil
}

func splitHeader(rows [][]string) *RawData {
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}
	return &RawData{Headers: headers, Rows: rows[1:]}
}

// buildTable types each column: a column where every non-empty cell parses
// as a number becomes numeric, one where every non-empty cell is a boolean
// literal becomes boolean, anything else stays text. Empty cells are null.
// Mixed-content columns land as text and are revisited by the cleaner.
func buildTable(raw *RawData) (*table.Table, error) {
	cols := make([]table.Column, len(raw.Headers))
	for j, name := range raw.Headers {
		values := make([]string, len(raw.Rows))
		for i, row := range raw.Rows {
			if j < len(row) {
				values[i] = row[j]
			}
		}
		cols[j] = typeColumn(name, values)
	}

	tbl, err := table.New(cols...)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble table: %w", err)
	}
	logger.Info("file processed (%d columns, %d rows)", tbl.Cols(), tbl.Rows())
	return tbl, nil
}

func typeColumn(name string, values []string) table.Column {
	allNumeric := true
	allBool := true
	nonEmpty := 0

	for _, v := range values {
		s := strings.TrimSpace(v)
		if s == "" {
			continue
		}
		nonEmpty++
		if !isNumericLiteral(s) {
			allNumeric = false
		}
		if !isBoolLiteral(s) {
			allBool = false
		}
	}

	cells := make([]table.Value, len(values))
	switch {
	case nonEmpty > 0 && allNumeric:
		for i, v := range values {
			s := strings.TrimSpace(v)
			if s == "" {
				cells[i] = table.Null()
				continue
			}
			f, _ := strconv.ParseFloat(s, 64)
			cells[i] = table.Number(f)
		}
		return table.Column{Name: name, Type: table.TypeNumeric, Cells: cells}
	case nonEmpty > 0 && allBool:
		for i, v := range values {
			s := strings.TrimSpace(v)
			if s == "" {
				cells[i] = table.Null()
				continue
			}
			cells[i] = table.Bool(strings.EqualFold(s, "true"))
		}
		return table.Column{Name: name, Type: table.TypeBoolean, Cells: cells}
	default:
		for i, v := range values {
			if strings.TrimSpace(v) == "" {
				cells[i] = table.Null()
				continue
			}
			// Keep the raw text; the cleaner owns whitespace handling.
			cells[i] = table.Text(v)
		}
		return table.Column{Name: name, Type: table.TypeText, Cells: cells}
	}
}

func isBoolLiteral(s string) bool {
	return strings.EqualFold(s, "true") || strings.EqualFold(s, "false")
}

// isNumericLiteral accepts only finite numbers; "nan" and "inf" parse but
// are placeholder text, not data.
func isNumericLiteral(s string) bool {
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
}
