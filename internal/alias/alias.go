// Package alias canonicalizes inconsistently named survey columns using
// a flat alias file or template-embedded alias metadata.
package alias

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/core"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/table"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/template"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/internal/errors"
)

// Entry is one alias-file line: a canonical ID and its aliases
type Entry struct {
	Canonical string
	Aliases   []string
}

// headerTokens mark an optional first row to skip in alias files.
var headerTokens = map[string]bool{
	"canonical":    true,
	"canonical_id": true,
	"id":           true,
}

// ParseFile reads an alias file from disk
func ParseFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open alias file %s", path)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads alias entries: one per line, tab- or whitespace-delimited,
// `#` comments and blank lines ignored, optional header row skipped.
func Parse(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if lineNo == 1 && headerTokens[strings.ToLower(fields[0])] {
			continue
		}
		if len(fields) < 2 {
			return nil, errors.InvalidInput(fmt.Sprintf("alias file line %d: %q has no aliases", lineNo, line))
		}
		entries = append(entries, Entry{Canonical: fields[0], Aliases: fields[1:]})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read alias file")
	}
	return entries, nil
}

// BuildAliasMap builds alias→canonical from entries. Canonical IDs map to
// themselves. An alias claimed by two different canonicals is fatal.
func BuildAliasMap(entries []Entry) (map[string]string, error) {
	out := make(map[string]string)
	claim := func(name, canonical string) error {
		if prev, ok := out[name]; ok && prev != canonical {
			return errors.WithCode(errors.CodeAliasConflict, core.NewAliasConflictError(name, prev, canonical))
		}
		out[name] = canonical
		return nil
	}
	for _, e := range entries {
		if err := claim(e.Canonical, e.Canonical); err != nil {
			return nil, err
		}
		for _, a := range e.Aliases {
			if err := claim(a, e.Canonical); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// BuildCanonicalAliases builds the inverse canonical→aliases grouping,
// de-duplicated and order-preserving
func BuildCanonicalAliases(entries []Entry) map[string][]string {
	out := make(map[string][]string)
	seen := make(map[string]map[string]bool)
	for _, e := range entries {
		if seen[e.Canonical] == nil {
			seen[e.Canonical] = make(map[string]bool)
			out[e.Canonical] = []string{}
		}
		for _, a := range e.Aliases {
			if a == e.Canonical || seen[e.Canonical][a] {
				continue
			}
			seen[e.Canonical][a] = true
			out[e.Canonical] = append(out[e.Canonical], a)
		}
	}
	return out
}

// ApplyAliasMap rewrites a table so every raw column carrying an aliased
// name appears under its canonical name. Multiple sources of one
// canonical are merged with first-non-missing-wins; a single source is
// renamed in place. Returns a new table; idempotent.
func ApplyAliasMap(t *table.Table, aliasMap map[string]string) (*table.Table, error) {
	out := t.Clone()

	// Group source columns per canonical, preserving table column order.
	grouped := make(map[string][]string)
	var order []string
	for _, col := range out.Columns {
		canonical, ok := aliasMap[col]
		if !ok {
			continue
		}
		if _, exists := grouped[canonical]; !exists {
			order = append(order, canonical)
		}
		grouped[canonical] = append(grouped[canonical], col)
	}

	for _, canonical := range order {
		sources := grouped[canonical]
		if len(sources) == 1 && sources[0] != canonical {
			if err := out.RenameColumn(sources[0], canonical); err != nil {
				return nil, errors.Wrapf(err, "failed to canonicalize column %s", sources[0])
			}
			continue
		}
		if len(sources) > 1 {
			if err := out.CombineFirst(canonical, sources); err != nil {
				return nil, errors.Wrapf(err, "failed to merge alias columns for %s", canonical)
			}
		}
	}
	return out, nil
}

// CanonicalizeTemplateItems rewrites a template's item keys through the
// canonical-alias grouping. When both an alias key and its canonical key
// are present the alias definition is discarded; an alias key alone is
// promoted to the canonical key.
func CanonicalizeTemplateItems(tpl *template.SurveyTemplate, canonicalAliases map[string][]string) {
	for canonical, aliases := range canonicalAliases {
		for _, a := range aliases {
			def, ok := tpl.Items[a]
			if !ok {
				continue
			}
			if _, hasCanonical := tpl.Items[canonical]; !hasCanonical {
				tpl.Items[canonical] = def
			}
			delete(tpl.Items, a)
		}
	}
}
