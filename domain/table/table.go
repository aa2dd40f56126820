package table

import (
	"fmt"
	"sort"
	"strings"
)

// MissingToken is the on-disk representation of a missing cell.
const MissingToken = "n/a"

// naSentinels are raw-cell spellings treated as missing on read.
var naSentinels = map[string]bool{
	"":     true,
	"na":   true,
	"n/a":  true,
	"nan":  true,
	"none": true,
	"null": true,
}

// Row represents a single respondent row as string key-value pairs
type Row map[string]string

// Table is an ordered, string-typed survey export table.
// All pipeline stages treat a Table as a value: transformations return a
// new Table (or operate on an explicit Clone), never partially mutate
// the caller's reference.
type Table struct {
	Columns []string
	Rows    []Row
}

// New creates an empty table with the given column order
func New(columns []string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols, Rows: []Row{}}
}

// IsMissing reports whether a raw cell value counts as missing
func IsMissing(v string) bool {
	return naSentinels[strings.ToLower(strings.TrimSpace(v))]
}

// Clone returns a deep copy of the table
func (t *Table) Clone() *Table {
	out := New(t.Columns)
	out.Rows = make([]Row, len(t.Rows))
	for i, row := range t.Rows {
		cloned := make(Row, len(row))
		for k, v := range row {
			cloned[k] = v
		}
		out.Rows[i] = cloned
	}
	return out
}

// HasColumn reports whether a column exists
func (t *Table) HasColumn(name string) bool {
	return t.columnIndex(name) >= 0
}

func (t *Table) columnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// AppendRow adds a row, filling absent columns with the empty string
func (t *Table) AppendRow(row Row) {
	if row == nil {
		row = Row{}
	}
	t.Rows = append(t.Rows, row)
}

// Get returns a cell value; absent columns read as empty
func (r Row) Get(column string) string {
	return r[column]
}

// Values returns the column's cells in row order
func (t *Table) Values(column string) []string {
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[column]
	}
	return out
}

// UniqueValues returns the sorted distinct non-missing trimmed values of a column
func (t *Table) UniqueValues(column string) []string {
	seen := make(map[string]bool)
	for _, row := range t.Rows {
		v := strings.TrimSpace(row[column])
		if IsMissing(v) {
			continue
		}
		seen[v] = true
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// RenameColumn renames a column in place, keeping its position.
// It is an error if the target name already exists as a different column.
func (t *Table) RenameColumn(from, to string) error {
	if from == to {
		return nil
	}
	idx := t.columnIndex(from)
	if idx < 0 {
		return fmt.Errorf("cannot rename: column %q not found", from)
	}
	if t.HasColumn(to) {
		return fmt.Errorf("cannot rename %q: column %q already exists", from, to)
	}
	t.Columns[idx] = to
	for _, row := range t.Rows {
		if v, ok := row[from]; ok {
			row[to] = v
			delete(row, from)
		}
	}
	return nil
}

// CombineFirst merges the source columns into dst with first-non-missing-wins
// semantics, scanning sources in the given order, then drops the sources.
// dst is created at the position of the first source if it does not exist.
func (t *Table) CombineFirst(dst string, sources []string) error {
	present := make([]string, 0, len(sources))
	for _, s := range sources {
		if t.HasColumn(s) {
			present = append(present, s)
		}
	}
	if len(present) == 0 {
		return fmt.Errorf("cannot combine into %q: no source columns present", dst)
	}
	if !t.HasColumn(dst) {
		idx := t.columnIndex(present[0])
		t.Columns = append(t.Columns, "")
		copy(t.Columns[idx+1:], t.Columns[idx:])
		t.Columns[idx] = dst
	}
	for _, row := range t.Rows {
		if !IsMissing(row[dst]) {
			continue
		}
		for _, s := range present {
			if s == dst {
				continue
			}
			if v := row[s]; !IsMissing(v) {
				row[dst] = v
				break
			}
		}
	}
	for _, s := range present {
		if s != dst {
			t.DropColumn(s)
		}
	}
	return nil
}

// DropColumn removes a column and its cells
func (t *Table) DropColumn(name string) {
	idx := t.columnIndex(name)
	if idx < 0 {
		return
	}
	t.Columns = append(t.Columns[:idx], t.Columns[idx+1:]...)
	for _, row := range t.Rows {
		delete(row, name)
	}
}

// AddColumn appends a column with the given per-row values.
// Values shorter than the row count leave remaining cells empty.
func (t *Table) AddColumn(name string, values []string) error {
	if t.HasColumn(name) {
		return fmt.Errorf("column %q already exists", name)
	}
	t.Columns = append(t.Columns, name)
	for i, row := range t.Rows {
		if i < len(values) {
			row[name] = values[i]
		}
	}
	return nil
}

// Filter returns a new table with the rows the predicate keeps, preserving order
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := New(t.Columns)
	for _, row := range t.Rows {
		if keep(row) {
			cloned := make(Row, len(row))
			for k, v := range row {
				cloned[k] = v
			}
			out.Rows = append(out.Rows, cloned)
		}
	}
	return out
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.Rows)
}
