// Package classify identifies platform/system columns in raw survey
// exports and parses run suffixes from column names.
package classify

import (
	"regexp"
	"strconv"
	"strings"
)

// ColumnClass is the coarse role of an input column
type ColumnClass string

const (
	ClassSystem ColumnClass = "system"
	ClassItem   ColumnClass = "item"
)

// systemColumns is the fixed platform-metadata set (LimeSurvey and
// spreadsheet-export bookkeeping fields), matched on the lowercase
// trimmed column name.
var systemColumns = map[string]bool{
	"id":            true,
	"token":         true,
	"submitdate":    true,
	"startdate":     true,
	"datestamp":     true,
	"startlanguage": true,
	"lastpage":      true,
	"seed":          true,
	"ipaddr":        true,
	"refurl":        true,
	"interviewtime": true,
}

var groupTimePattern = regexp.MustCompile(`^grouptime\d+$`)

var (
	// BIDS-style run suffix: <base>_run-<NN>. Checked first because it is
	// the more specific pattern and must not be shadowed by the looser
	// platform suffix.
	bidsRunPattern = regexp.MustCompile(`^(.+)_run-(\d+)$`)
	// Platform-style run suffix: <base>run<NN>, case-insensitive.
	platformRunPattern = regexp.MustCompile(`(?i)^(.+?)run(\d+)$`)
)

// ClassifyColumn classifies a column name as a system column or a
// candidate item column
func ClassifyColumn(name string) ColumnClass {
	lower := strings.ToLower(strings.TrimSpace(name))
	if systemColumns[lower] {
		return ClassSystem
	}
	if groupTimePattern.MatchString(lower) {
		return ClassSystem
	}
	if strings.HasPrefix(lower, "duration_") {
		return ClassSystem
	}
	return ClassItem
}

// ParseRun extracts a run suffix from a column name. The BIDS pattern
// wins over the platform pattern when both could apply. Returns the
// name unchanged with ok=false when neither matches.
func ParseRun(name string) (base string, run int, ok bool) {
	if m := bidsRunPattern.FindStringSubmatch(name); m != nil {
		n, err := strconv.Atoi(m[2])
		if err == nil {
			return m[1], n, true
		}
	}
	if m := platformRunPattern.FindStringSubmatch(name); m != nil {
		n, err := strconv.Atoi(m[2])
		if err == nil {
			return m[1], n, true
		}
	}
	return name, 0, false
}

// GroupByRun regroups column names by base name and run number.
// Columns without a run suffix land under run 0.
func GroupByRun(columns []string) map[string]map[int][]string {
	out := make(map[string]map[int][]string)
	for _, col := range columns {
		base, run, ok := ParseRun(col)
		if !ok {
			base, run = col, 0
		}
		if out[base] == nil {
			out[base] = make(map[int][]string)
		}
		out[base][run] = append(out[base][run], col)
	}
	return out
}
