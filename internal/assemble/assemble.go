// Package assemble resolves column mappings into the included tasks,
// groups columns by (task, run) and builds the caller-facing payloads.
package assemble

import (
	"fmt"
	"sort"
	"strings"

	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/convert"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/core"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/internal/classify"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/internal/errors"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/internal/library"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/internal/rows"
)

// MatchColumns builds the column mapping from the library's item index:
// every item-classified column whose run-stripped base is claimed by a
// template maps to (task, base, run). Unmatched item columns are
// ignored; system columns never match.
func MatchColumns(columns []string, lib *library.Library) convert.ColumnMapping {
	mapping := make(convert.ColumnMapping)
	for _, col := range columns {
		if classify.ClassifyColumn(col) == classify.ClassSystem {
			continue
		}
		base, run, ok := classify.ParseRun(col)
		if !ok {
			base, run = col, 0
		}
		task, claimed := lib.ItemToTask[base]
		if !claimed {
			continue
		}
		mapping[col] = convert.Mapping{Task: task, Item: base, Run: run}
	}
	return mapping
}

// ResolveTasks intersects the mapped tasks with the caller's selection
// and gathers each included task's accumulated warnings. An empty
// intersection is fatal.
func ResolveTasks(mapping convert.ColumnMapping, selected []string, libWarnings *convert.Warnings) ([]core.TaskName, *convert.Warnings, error) {
	available := mapping.Tasks()

	var included []core.TaskName
	if len(selected) == 0 {
		included = available
	} else {
		want := make(map[core.TaskName]bool, len(selected))
		for _, s := range selected {
			want[core.TaskName(strings.ToLower(strings.TrimSpace(s)))] = true
		}
		for _, task := range available {
			if want[task] {
				included = append(included, task)
			}
		}
	}

	if len(included) == 0 {
		return nil, nil, errors.WithCode(errors.CodeNoTasksMatched,
			fmt.Errorf("%w (available: %s)", core.ErrNoTasksMatched, formatTasks(available)))
	}

	warnings := convert.NewWarnings()
	if libWarnings != nil {
		for _, task := range included {
			for _, msg := range libWarnings.ByTask[task] {
				warnings.Add(task, "%s", msg)
			}
		}
	}
	return included, warnings, nil
}

// BuildTaskRunColumns groups source columns by (task, run) into per-run
// candidate lookup tables, plus a flat column→task compatibility map.
func BuildTaskRunColumns(mapping convert.ColumnMapping) (map[core.TaskName]map[int]rows.RunColumns, map[string]core.TaskName) {
	byTaskRun := make(map[core.TaskName]map[int]rows.RunColumns)
	colToTask := make(map[string]core.TaskName, len(mapping))

	cols := make([]string, 0, len(mapping))
	for col := range mapping {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	for _, col := range cols {
		m := mapping[col]
		colToTask[col] = m.Task
		if byTaskRun[m.Task] == nil {
			byTaskRun[m.Task] = make(map[int]rows.RunColumns)
		}
		if byTaskRun[m.Task][m.Run] == nil {
			byTaskRun[m.Task][m.Run] = make(rows.RunColumns)
		}
		byTaskRun[m.Task][m.Run][m.Item] = col
	}
	return byTaskRun, colToTask
}

// Runs returns the sorted run numbers present for a task
func Runs(byRun map[int]rows.RunColumns) []int {
	out := make([]int, 0, len(byRun))
	for run := range byRun {
		out = append(out, run)
	}
	sort.Ints(out)
	return out
}

// BuildTemplateMatches serializes, per detected column group, which
// template matched (nil when none), for caller-facing reporting
func BuildTemplateMatches(columns []string, mapping convert.ColumnMapping) []convert.TemplateMatch {
	var itemCols []string
	for _, col := range columns {
		if classify.ClassifyColumn(col) == classify.ClassItem {
			itemCols = append(itemCols, col)
		}
	}

	groups := classify.GroupByRun(itemCols)
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]convert.TemplateMatch, 0, len(names))
	for _, name := range names {
		var groupCols []string
		for _, run := range sortedRuns(groups[name]) {
			groupCols = append(groupCols, groups[name][run]...)
		}

		match := convert.TemplateMatch{Group: name, Columns: groupCols}
		for _, col := range groupCols {
			if m, ok := mapping[col]; ok {
				task := m.Task
				match.Task = &task
				break
			}
		}
		out = append(out, match)
	}
	return out
}

func sortedRuns(byRun map[int][]string) []int {
	out := make([]int, 0, len(byRun))
	for run := range byRun {
		out = append(out, run)
	}
	sort.Ints(out)
	return out
}

func formatTasks(tasks []core.TaskName) string {
	if len(tasks) == 0 {
		return "none"
	}
	parts := make([]string, len(tasks))
	for i, t := range tasks {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}
