package tabular

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/core"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/table"
)

// Writer writes per-task long-format output tables as TSV files
type Writer struct {
	// Dir is the output directory, created on demand.
	Dir string
}

// WriteTask writes one task's table to <dir>/task-<task>_survey.tsv and
// returns the written path
func (w *Writer) WriteTask(task core.TaskName, t *table.Table) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(w.Dir, fmt.Sprintf("task-%s_survey.tsv", task))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	cw.Comma = '\t'

	if err := cw.Write(t.Columns); err != nil {
		return "", fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range t.Rows {
		record := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			v := row[col]
			if table.IsMissing(v) {
				v = table.MissingToken
			}
			record[i] = v
		}
		if err := cw.Write(record); err != nil {
			return "", fmt.Errorf("failed to write row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("failed to flush output: %w", err)
	}
	return path, nil
}
