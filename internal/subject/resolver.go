// Package subject resolves which raw-table column carries the subject
// keys of an external ID map and remaps it to canonical participant IDs.
package subject

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/convert"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/core"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/table"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/ports"
)

// candidatePreference is the fixed column preference list tried after
// the caller-declared ID column. Exporters vary naming widely.
var candidatePreference = []string{
	"participant_id", "code", "token", "id", "subject", "sub_id", "participant",
}

// Resolver selects and remaps the participant-ID column
type Resolver struct {
	// Suggester proposes close matches for unmapped IDs. Optional.
	Suggester ports.FuzzySuggestPort
}

// columnScore holds the match statistics of one candidate column
type columnScore struct {
	column  string
	matches int
	ratio   float64
}

// UnmappedError reports subject IDs with no ID-map entry. Recoverable by
// the caller: it carries the full missing list, the map keys and fuzzy
// suggestions so the source data can be fixed.
type UnmappedError struct {
	Column      string
	Missing     []string
	MapKeys     []string
	Suggestions map[string][]string
}

func (e *UnmappedError) Error() string {
	const maxShown = 20
	shown := e.Missing
	suffix := ""
	if len(shown) > maxShown {
		suffix = fmt.Sprintf(" (and %d more)", len(shown)-maxShown)
		shown = shown[:maxShown]
	}
	return fmt.Sprintf("column %q contains %d subject IDs missing from the ID map: %s%s",
		e.Column, len(e.Missing), strings.Join(shown, ", "), suffix)
}

func (e *UnmappedError) Unwrap() error {
	return core.ErrUnmappedSubjects
}

// normalizeKey lowercases and strips all whitespace; raw-side keys are
// case/whitespace-insensitive.
func normalizeKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

// Resolve scores every candidate column against the ID map, selects the
// best, and remaps it in place to canonical participant IDs. This is the
// one documented in-place column rewrite of the pipeline.
func (r *Resolver) Resolve(t *table.Table, declaredColumn string, idMap map[string]string, mapSource string, warnings *convert.Warnings) (string, error) {
	if len(idMap) == 0 {
		return declaredColumn, nil
	}

	normalized := make(map[string]string, len(idMap))
	for raw, canonical := range idMap {
		normalized[normalizeKey(raw)] = canonical
	}

	best := r.selectColumn(t, declaredColumn, normalized)
	if best.column == "" {
		return "", &UnmappedError{Column: declaredColumn, MapKeys: sortedKeys(idMap)}
	}

	missing := map[string]bool{}
	for _, row := range t.Rows {
		v := strings.TrimSpace(row[best.column])
		if table.IsMissing(v) {
			continue
		}
		if _, ok := normalized[normalizeKey(v)]; !ok {
			missing[v] = true
		}
	}
	if len(missing) > 0 {
		missingList := make([]string, 0, len(missing))
		for v := range missing {
			missingList = append(missingList, v)
		}
		sort.Strings(missingList)
		err := &UnmappedError{
			Column:  best.column,
			Missing: missingList,
			MapKeys: sortedKeys(idMap),
		}
		if r.Suggester != nil {
			err.Suggestions = r.Suggester.Suggest(missingList, err.MapKeys)
		}
		return "", err
	}

	for _, row := range t.Rows {
		v := strings.TrimSpace(row[best.column])
		if table.IsMissing(v) {
			continue
		}
		row[best.column] = normalized[normalizeKey(v)]
	}

	warnings.AddGeneral("participant IDs in column %q remapped via %s (%d entries)",
		best.column, mapSource, len(idMap))
	log.Printf("[SubjectResolver] Column %q selected (%d/%d unique values matched)",
		best.column, best.matches, len(t.UniqueValues(best.column)))
	return best.column, nil
}

// selectColumn scores the declared column first and keeps it as the
// running best; a candidate replaces it only by strictly more matches,
// or equal matches with a higher match ratio. A zero-match best falls
// back to a "code" column when one exists.
func (r *Resolver) selectColumn(t *table.Table, declaredColumn string, normalized map[string]string) columnScore {
	candidates := r.candidates(t, declaredColumn)
	if len(candidates) == 0 {
		return columnScore{}
	}

	best := r.score(t, candidates[0], normalized)
	for _, col := range candidates[1:] {
		s := r.score(t, col, normalized)
		if s.matches > best.matches || (s.matches == best.matches && s.ratio > best.ratio) {
			best = s
		}
	}

	if best.matches == 0 {
		for _, col := range t.Columns {
			if strings.EqualFold(col, "code") {
				return r.score(t, col, normalized)
			}
		}
	}
	return best
}

// DefaultIDColumn picks the participant-ID column when no ID map drives
// the selection: the declared column when present in the table, else the
// first preference-list column found, else empty.
func DefaultIDColumn(t *table.Table, declaredColumn string) string {
	r := &Resolver{}
	cands := r.candidates(t, declaredColumn)
	if len(cands) == 0 {
		return ""
	}
	return cands[0]
}

// candidates returns the declared column plus the preference list,
// deduplicated case-insensitively and restricted to present columns
func (r *Resolver) candidates(t *table.Table, declaredColumn string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(name string) {
		for _, col := range t.Columns {
			if strings.EqualFold(col, name) && !seen[strings.ToLower(col)] {
				seen[strings.ToLower(col)] = true
				out = append(out, col)
			}
		}
	}
	if declaredColumn != "" {
		add(declaredColumn)
	}
	for _, name := range candidatePreference {
		add(name)
	}
	return out
}

func (r *Resolver) score(t *table.Table, column string, normalized map[string]string) columnScore {
	unique := t.UniqueValues(column)
	matches := 0
	for _, v := range unique {
		if _, ok := normalized[normalizeKey(v)]; ok {
			matches++
		}
	}
	ratio := 0.0
	if len(unique) > 0 {
		ratio = float64(matches) / float64(len(unique))
	}
	return columnScore{column: column, matches: matches, ratio: ratio}
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
