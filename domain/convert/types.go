// Package convert holds the value types a conversion run exchanges with
// its callers: options, policies, column mappings and the result payload.
package convert

import (
	"fmt"
	"sort"

	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/core"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/table"
)

// DuplicatePolicy governs how participant-ID collisions are resolved
type DuplicatePolicy string

const (
	DuplicateError     DuplicatePolicy = "error"
	DuplicateKeepFirst DuplicatePolicy = "keep_first"
	DuplicateKeepLast  DuplicatePolicy = "keep_last"
	DuplicateSessions  DuplicatePolicy = "sessions"
)

// DupSessionColumn is the synthetic session column written by the
// "sessions" duplicate policy.
const DupSessionColumn = "_dup_session_num"

// SessionAll disables session filtering when passed as the requested session.
const SessionAll = "all"

// ParseDuplicatePolicy validates a policy string, defaulting empty to "error"
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(s) {
	case "":
		return DuplicateError, nil
	case DuplicateError, DuplicateKeepFirst, DuplicateKeepLast, DuplicateSessions:
		return DuplicatePolicy(s), nil
	default:
		return "", fmt.Errorf("unknown duplicate handling policy %q (want error, keep_first, keep_last or sessions)", s)
	}
}

// Options configures a single conversion run
type Options struct {
	// IDColumn is the caller-declared participant-ID column.
	IDColumn string
	// IDMap maps raw subject keys to canonical participant IDs. Optional.
	IDMap map[string]string
	// IDMapSource names where the ID map came from, for the provenance warning.
	IDMapSource string
	// Session selects a session value, SessionAll, or empty for auto behavior.
	Session string
	// Duplicates is the duplicate-participant-ID policy.
	Duplicates DuplicatePolicy
	// Tasks restricts output to a subset of matched tasks. Empty keeps all.
	Tasks []string
	// StrictLevels disables the numeric-tolerance fallback during validation.
	StrictLevels bool
}

// Mapping is the resolved target of one input column
type Mapping struct {
	Task core.TaskName `json:"task"`
	Item string        `json:"item"`
	// Run is the parsed run number, 0 when the column carries none.
	Run int `json:"run"`
}

// ColumnMapping maps input column names to their resolved targets.
// Built once from matched templates; immutable during row processing.
type ColumnMapping map[string]Mapping

// Tasks returns the distinct tasks present in the mapping, sorted
func (m ColumnMapping) Tasks() []core.TaskName {
	seen := make(map[core.TaskName]bool)
	for _, mapping := range m {
		seen[mapping.Task] = true
	}
	out := make([]core.TaskName, 0, len(seen))
	for task := range seen {
		out = append(out, task)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// TemplateMatch reports, per detected column group, which template matched
type TemplateMatch struct {
	Group   string         `json:"group"`
	Task    *core.TaskName `json:"task"`
	Columns []string       `json:"columns"`
}

// Warnings accumulates human-readable, never-fatal conversion notes,
// scoped per task plus a general bucket for run-level notes.
type Warnings struct {
	ByTask  map[core.TaskName][]string
	General []string
}

// NewWarnings creates an empty warning accumulator
func NewWarnings() *Warnings {
	return &Warnings{ByTask: make(map[core.TaskName][]string)}
}

// Add appends a task-scoped warning
func (w *Warnings) Add(task core.TaskName, format string, args ...interface{}) {
	w.ByTask[task] = append(w.ByTask[task], fmt.Sprintf(format, args...))
}

// AddGeneral appends a run-level warning
func (w *Warnings) AddGeneral(format string, args ...interface{}) {
	w.General = append(w.General, fmt.Sprintf(format, args...))
}

// Merge appends all entries of other, preserving insertion order
func (w *Warnings) Merge(other *Warnings) {
	if other == nil {
		return
	}
	for task, msgs := range other.ByTask {
		w.ByTask[task] = append(w.ByTask[task], msgs...)
	}
	w.General = append(w.General, other.General...)
}

// Flatten returns all warnings in deterministic order: general first,
// then per task sorted by task name.
func (w *Warnings) Flatten() []string {
	out := append([]string{}, w.General...)
	tasks := make([]core.TaskName, 0, len(w.ByTask))
	for task := range w.ByTask {
		tasks = append(tasks, task)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i] < tasks[j] })
	for _, task := range tasks {
		for _, msg := range w.ByTask[task] {
			out = append(out, fmt.Sprintf("[%s] %s", task, msg))
		}
	}
	return out
}

// ToleranceSet records which items were accepted only via the numeric
// tolerance band, per task. Audit trail, not an error.
type ToleranceSet map[core.TaskName]map[string]bool

// Record marks an item as tolerance-accepted
func (ts ToleranceSet) Record(task core.TaskName, itemID string) {
	if ts[task] == nil {
		ts[task] = make(map[string]bool)
	}
	ts[task][itemID] = true
}

// Items returns a task's tolerance-accepted items, sorted
func (ts ToleranceSet) Items(task core.TaskName) []string {
	out := make([]string, 0, len(ts[task]))
	for id := range ts[task] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Merge folds another tolerance set into this one
func (ts ToleranceSet) Merge(other ToleranceSet) {
	for task, items := range other {
		for id := range items {
			ts.Record(task, id)
		}
	}
}

// Result is the structured output of a conversion run
type Result struct {
	RunID            core.RunID                     `json:"run_id"`
	TasksWithData    []core.TaskName                `json:"tasks_with_data"`
	Warnings         []string                       `json:"warnings"`
	WarningsByTask   map[core.TaskName][]string     `json:"warnings_by_task"`
	Tolerance        map[core.TaskName][]string     `json:"items_using_tolerance"`
	Duplicates       map[string][]core.TaskName     `json:"duplicates_across_templates"`
	TemplateMatches  []TemplateMatch                `json:"template_matches"`
	DetectedSessions []string                       `json:"detected_sessions,omitempty"`
	Tables           map[core.TaskName]*table.Table `json:"-"`
}
