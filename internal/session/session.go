// Package session detects session columns, filters rows by session and
// applies the duplicate-participant-ID policy.
package session

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/convert"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/core"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/table"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/internal/errors"
)

// sessionCandidates are the column names recognized as session columns,
// matched case-insensitively in this order.
var sessionCandidates = []string{"session", "ses", "visit", "timepoint"}

// DetectColumn returns the session column of a table, if any
func DetectColumn(t *table.Table) (string, bool) {
	for _, cand := range sessionCandidates {
		for _, col := range t.Columns {
			if strings.EqualFold(strings.TrimSpace(col), cand) {
				return col, true
			}
		}
	}
	return "", false
}

// DetectSessions returns the sorted distinct non-empty trimmed values of
// the detected session column
func DetectSessions(t *table.Table) (column string, sessions []string) {
	col, ok := DetectColumn(t)
	if !ok {
		return "", nil
	}
	return col, t.UniqueValues(col)
}

// Filter applies the caller's session request.
//
// A concrete session filters to exact trimmed matches and fails when no
// row survives. SessionAll disables filtering. An empty request with
// detected sessions and policy "error" auto-filters to the first
// detected session as a best-effort preview, recorded as a warning.
func Filter(t *table.Table, requested string, policy convert.DuplicatePolicy, warnings *convert.Warnings) (*table.Table, error) {
	column, detected := DetectSessions(t)

	switch {
	case requested == convert.SessionAll:
		return t, nil
	case requested != "":
		if column == "" {
			return nil, errors.WithCode(errors.CodeSessionEmpty,
				fmt.Errorf("%w: session %q requested but no session column detected", core.ErrSessionEmpty, requested))
		}
		want := strings.TrimSpace(requested)
		filtered := t.Filter(func(r table.Row) bool {
			return strings.TrimSpace(r[column]) == want
		})
		if filtered.Len() == 0 {
			return nil, errors.WithCode(errors.CodeSessionEmpty,
				fmt.Errorf("%w: session %q matched no rows (available: %s)",
					core.ErrSessionEmpty, requested, strings.Join(detected, ", ")))
		}
		return filtered, nil
	case len(detected) > 0 && policy == convert.DuplicateError:
		first := detected[0]
		filtered := t.Filter(func(r table.Row) bool {
			return strings.TrimSpace(r[column]) == first
		})
		warnings.AddGeneral("multiple sessions detected (%s); previewing session %q only - pass a session or use the sessions duplicate policy to convert all",
			strings.Join(detected, ", "), first)
		return filtered, nil
	default:
		return t, nil
	}
}

// HandleDuplicates applies the duplicate-participant-ID policy over the
// normalized ID column. Returns the resulting table and, for the
// sessions policy, the synthetic session column name.
func HandleDuplicates(t *table.Table, idColumn string, policy convert.DuplicatePolicy, warnings *convert.Warnings) (*table.Table, string, error) {
	counts := make(map[string]int)
	for _, row := range t.Rows {
		id := strings.TrimSpace(row[idColumn])
		if table.IsMissing(id) {
			continue
		}
		counts[id]++
	}

	var duplicated []string
	for id, n := range counts {
		if n > 1 {
			duplicated = append(duplicated, id)
		}
	}
	if len(duplicated) == 0 {
		return t, "", nil
	}
	sort.Strings(duplicated)

	switch policy {
	case convert.DuplicateError:
		return nil, "", errors.WithCode(errors.CodeDuplicateIDs,
			fmt.Errorf("%w: %d participant IDs appear more than once (%s)",
				core.ErrDuplicateIDs, len(duplicated), formatExamples(duplicated)))

	case convert.DuplicateKeepFirst, convert.DuplicateKeepLast:
		keepLast := policy == convert.DuplicateKeepLast
		keepIdx := make(map[string]int)
		for i, row := range t.Rows {
			id := strings.TrimSpace(row[idColumn])
			if table.IsMissing(id) {
				continue
			}
			if _, seen := keepIdx[id]; !seen || keepLast {
				keepIdx[id] = i
			}
		}
		i := -1
		filtered := t.Filter(func(r table.Row) bool {
			i++
			id := strings.TrimSpace(r[idColumn])
			if table.IsMissing(id) {
				return true
			}
			return keepIdx[id] == i
		})
		warnings.AddGeneral("%d duplicate participant IDs resolved with policy %s (%s)",
			len(duplicated), policy, formatExamples(duplicated))
		return filtered, "", nil

	case convert.DuplicateSessions:
		out := t.Clone()
		counter := make(map[string]int)
		values := make([]string, out.Len())
		for i, row := range out.Rows {
			id := strings.TrimSpace(row[idColumn])
			if table.IsMissing(id) {
				values[i] = "1"
				continue
			}
			counter[id]++
			values[i] = strconv.Itoa(counter[id])
		}
		if err := out.AddColumn(convert.DupSessionColumn, values); err != nil {
			return nil, "", err
		}
		warnings.AddGeneral("%d duplicate participant IDs expanded into synthetic sessions (%s)",
			len(duplicated), formatExamples(duplicated))
		return out, convert.DupSessionColumn, nil

	default:
		return nil, "", errors.InvalidInput(fmt.Sprintf("unknown duplicate handling policy %q", policy))
	}
}

// formatExamples names up to 5 duplicate IDs
func formatExamples(ids []string) string {
	const maxShown = 5
	if len(ids) <= maxShown {
		return strings.Join(ids, ", ")
	}
	return fmt.Sprintf("%s, ...", strings.Join(ids[:maxShown], ", "))
}
