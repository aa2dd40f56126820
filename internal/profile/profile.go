// Package profile computes per-column summary statistics of a raw
// table for the conversion report.
package profile

import (
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/table"
)

// ColumnProfile summarizes one input column
type ColumnProfile struct {
	Column      string  `json:"column"`
	Rows        int     `json:"rows"`
	Missing     int     `json:"missing"`
	MissingRate float64 `json:"missing_rate"`
	Unique      int     `json:"unique"`
	// Numeric statistics are present only when the column has at least
	// two parseable numeric values.
	Numeric bool    `json:"numeric"`
	Mean    float64 `json:"mean,omitempty"`
	StdDev  float64 `json:"std_dev,omitempty"`
	Min     float64 `json:"min,omitempty"`
	Max     float64 `json:"max,omitempty"`
}

// Columns profiles every column of a table in column order
func Columns(t *table.Table) []ColumnProfile {
	out := make([]ColumnProfile, 0, len(t.Columns))
	for _, col := range t.Columns {
		out = append(out, profileColumn(t, col))
	}
	return out
}

func profileColumn(t *table.Table, col string) ColumnProfile {
	p := ColumnProfile{Column: col, Rows: t.Len()}

	var numeric []float64
	for _, row := range t.Rows {
		v := strings.TrimSpace(row[col])
		if table.IsMissing(v) {
			p.Missing++
			continue
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			numeric = append(numeric, f)
		}
	}
	p.Unique = len(t.UniqueValues(col))
	if p.Rows > 0 {
		p.MissingRate = float64(p.Missing) / float64(p.Rows)
	}

	if len(numeric) >= 2 {
		mean, errMean := stats.Mean(numeric)
		stdDev, errStd := stats.StandardDeviation(numeric)
		min, errMin := stats.Min(numeric)
		max, errMax := stats.Max(numeric)
		if errMean == nil && errStd == nil && errMin == nil && errMax == nil {
			p.Numeric = true
			p.Mean = mean
			p.StdDev = stdDev
			p.Min = min
			p.Max = max
		}
	}
	return p
}

// OverallMissingRate computes the missing-cell share across all columns
func OverallMissingRate(profiles []ColumnProfile) float64 {
	totalCells, missingCells := 0, 0
	for _, p := range profiles {
		totalCells += p.Rows
		missingCells += p.Missing
	}
	if totalCells == 0 {
		return 0
	}
	return float64(missingCells) / float64(totalCells)
}
