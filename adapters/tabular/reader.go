// Package tabular reads raw survey export tables from delimited text
// or Excel workbooks and writes the per-task output tables.
package tabular

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/table"
)

// DataReader handles reading CSV, TSV and Excel export files
type DataReader struct {
	filePath string
	fileType string // "xlsx", "csv" or "tsv"
}

// NewDataReader creates a reader, picking the format from the extension
func NewDataReader(filePath string) *DataReader {
	fileType := "csv"
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".xlsx", ".xls":
		fileType = "xlsx"
	case ".tsv", ".txt":
		fileType = "tsv"
	}
	return &DataReader{filePath: filePath, fileType: fileType}
}

// ReadTable reads the export into a string-typed table. Cells are never
// numerically coerced here; normalization happens during row processing.
func (r *DataReader) ReadTable() (*table.Table, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	switch r.fileType {
	case "xlsx":
		return r.readExcel()
	default:
		return r.readDelimited()
	}
}

func (r *DataReader) readExcel() (*table.Table, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("Excel file has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	log.Printf("[DataReader] Excel sheet %s read in %.2fms (%d rows)",
		sheets[0], float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))

	return buildTable(rows)
}

func (r *DataReader) readDelimited() (*table.Table, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file: %w", r.fileType, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	if r.fileType == "tsv" {
		reader.Comma = '\t'
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s file: %w", r.fileType, err)
	}
	return buildTable(rows)
}

// buildTable converts raw string rows into a table; the first row is
// the header, short data rows leave trailing cells empty
func buildTable(rows [][]string) (*table.Table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("input file is empty")
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	t := table.New(headers)
	for _, record := range rows[1:] {
		row := make(table.Row, len(headers))
		for i, header := range headers {
			if i < len(record) {
				row[header] = record[i]
			}
		}
		t.AppendRow(row)
	}
	return t, nil
}
