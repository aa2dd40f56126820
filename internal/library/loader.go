// Package library loads a directory of canonical survey templates,
// merges alias metadata, detects cross-template item collisions and
// classifies project templates against a global reference library.
package library

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/core"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/convert"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/template"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/internal/alias"
)

const (
	templatePrefix = "survey-"
	templateSuffix = ".json"
	// participantsTask is the reserved demographics template, never
	// treated as a survey task.
	participantsTask = "participants"
)

// Library is the fully resolved template set for one conversion run
type Library struct {
	Templates map[core.TaskName]*template.SurveyTemplate
	// ItemToTask indexes every item ID and alias across all templates.
	ItemToTask map[string]core.TaskName
	// Duplicates records item IDs claimed by more than one task.
	// Informational: a project may legitimately reuse question wording.
	Duplicates map[string][]core.TaskName
	Warnings   *convert.Warnings
}

// Loader reads survey template libraries from disk
type Loader struct {
	// CanonicalAliases, when set, rewrites template item keys through the
	// alias file before the template's own alias metadata is indexed.
	CanonicalAliases map[string][]string
}

// LoadTemplates satisfies ports.TemplateLibraryPort for plain loads
// without drift classification
func (l *Loader) LoadTemplates(dir string) (map[core.TaskName]*template.SurveyTemplate, error) {
	lib, err := l.Load(dir, "")
	if err != nil {
		return nil, err
	}
	return lib.Templates, nil
}

// Load scans a library directory. When globalDir is non-empty and
// distinct from dir, each template is classified against the global
// reference library and drift is recorded as a per-task warning.
func (l *Loader) Load(dir, globalDir string) (*Library, error) {
	templates, warnings, err := l.loadDir(dir)
	if err != nil {
		return nil, err
	}

	lib := &Library{
		Templates:  templates,
		ItemToTask: make(map[string]core.TaskName),
		Duplicates: make(map[string][]core.TaskName),
		Warnings:   warnings,
	}
	l.indexItems(lib)

	if globalDir != "" {
		if samePath(dir, globalDir) {
			for _, tpl := range templates {
				tpl.Provenance = template.Provenance{Kind: template.ProvenanceGlobal}
			}
		} else {
			globals, _, err := l.loadDir(globalDir)
			if err != nil {
				return nil, err
			}
			l.classifyDrift(lib, globals)
		}
	}
	return lib, nil
}

// loadDir parses every survey-*.json file in a directory. Files that
// fail to parse are skipped and logged, never fatal.
func (l *Loader) loadDir(dir string) (map[core.TaskName]*template.SurveyTemplate, *convert.Warnings, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read template library %s: %w", dir, err)
	}

	templates := make(map[core.TaskName]*template.SurveyTemplate)
	warnings := convert.NewWarnings()
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, templatePrefix) || !strings.HasSuffix(name, templateSuffix) {
			continue
		}
		fileTask := strings.TrimSuffix(strings.TrimPrefix(name, templatePrefix), templateSuffix)
		if strings.EqualFold(fileTask, participantsTask) {
			continue
		}

		tpl, err := l.loadFile(filepath.Join(dir, name))
		if err != nil {
			log.Printf("[TemplateLibrary] Skipping %s: %v", name, err)
			continue
		}
		if tpl.Task == "" {
			tpl.Task = core.TaskName(strings.ToLower(fileTask))
		}

		if prev, ok := templates[tpl.Task]; ok {
			log.Printf("[TemplateLibrary] Task %s defined by both %s and %s, keeping the first",
				tpl.Task, prev.SourceFile, name)
			continue
		}
		l.checkLevelsRangeCooccurrence(tpl, warnings)
		templates[tpl.Task] = tpl
	}
	return templates, warnings, nil
}

// loadFile parses one flat template JSON file and injects the alias indices
func (l *Loader) loadFile(path string) (*template.SurveyTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("not a JSON object: %w", err)
	}

	tpl := &template.SurveyTemplate{
		SourceFile:     filepath.Base(path),
		Items:          make(map[string]*template.ItemSchema),
		Aliases:        make(map[string]string),
		ReverseAliases: make(map[string][]string),
	}

	for key, msg := range raw {
		if template.IsReservedKey(key) {
			if key == "Study" {
				if err := json.Unmarshal(msg, &tpl.Study); err != nil {
					return nil, fmt.Errorf("invalid Study block: %w", err)
				}
			}
			continue
		}
		var item template.ItemSchema
		if err := json.Unmarshal(msg, &item); err != nil {
			return nil, fmt.Errorf("invalid item %q: %w", key, err)
		}
		tpl.Items[key] = &item
	}

	if tpl.Study.TaskName != "" {
		task, err := core.ParseTaskName(tpl.Study.TaskName)
		if err != nil {
			return nil, err
		}
		tpl.Task = task
	}

	if l.CanonicalAliases != nil {
		alias.CanonicalizeTemplateItems(tpl, l.CanonicalAliases)
	}
	if err := indexTemplateAliases(tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

// indexTemplateAliases derives _aliases/_reverse_aliases from the
// per-item Aliases and AliasOf fields
func indexTemplateAliases(tpl *template.SurveyTemplate) error {
	// Deterministic iteration keeps conflict errors stable.
	ids := make([]string, 0, len(tpl.Items))
	for id := range tpl.Items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	claim := func(aliasID, canonical string) error {
		if prev, ok := tpl.Aliases[aliasID]; ok && prev != canonical {
			return core.NewAliasConflictError(aliasID, prev, canonical)
		}
		if _, ok := tpl.Aliases[aliasID]; !ok {
			tpl.Aliases[aliasID] = canonical
			tpl.ReverseAliases[canonical] = append(tpl.ReverseAliases[canonical], aliasID)
		}
		return nil
	}

	for _, id := range ids {
		item := tpl.Items[id]
		for _, a := range item.Aliases {
			if err := claim(a, id); err != nil {
				return err
			}
		}
		if item.AliasOf != "" {
			if err := claim(id, item.AliasOf); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkLevelsRangeCooccurrence warns when an item defines both Levels
// and a numeric range. The range wins at validation time; the levels
// become advisory labels only.
func (l *Loader) checkLevelsRangeCooccurrence(tpl *template.SurveyTemplate, warnings *convert.Warnings) {
	var both []string
	for _, id := range tpl.ExpectedItems() {
		item := tpl.Items[id]
		if item.HasLevels() && item.HasNumericRange() {
			both = append(both, id)
		}
	}
	if len(both) > 0 {
		warnings.Add(tpl.Task, "items defining both Levels and a numeric range (range takes precedence): %s",
			template.FormatIDList(both))
	}
}

// indexItems builds the flat item→task index, recording collisions
func (l *Loader) indexItems(lib *Library) {
	tasks := make([]core.TaskName, 0, len(lib.Templates))
	for task := range lib.Templates {
		tasks = append(tasks, task)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i] < tasks[j] })

	claim := func(itemID string, task core.TaskName) {
		prev, ok := lib.ItemToTask[itemID]
		if !ok {
			lib.ItemToTask[itemID] = task
			return
		}
		if prev == task {
			return
		}
		if len(lib.Duplicates[itemID]) == 0 {
			lib.Duplicates[itemID] = []core.TaskName{prev}
		}
		lib.Duplicates[itemID] = appendTaskOnce(lib.Duplicates[itemID], task)
	}

	for _, task := range tasks {
		tpl := lib.Templates[task]
		for _, id := range tpl.ExpectedItems() {
			claim(id, task)
			for _, a := range tpl.ReverseAliases[id] {
				claim(a, task)
			}
		}
	}
}

// classifyDrift marks each project template as project/global/modified
// relative to the global reference set
func (l *Loader) classifyDrift(lib *Library, globals map[core.TaskName]*template.SurveyTemplate) {
	for task, tpl := range lib.Templates {
		ref, sameName := globals[task]
		if sameName && setsEqual(tpl.ItemSet(), ref.ItemSet()) {
			tpl.Provenance = template.Provenance{Kind: template.ProvenanceGlobal}
			continue
		}

		// No exact same-named match: look for the global template with
		// the largest item overlap, preferring the same-named one.
		best, overlap := bestOverlap(tpl, globals, ref)
		if best == nil || overlap == 0 {
			tpl.Provenance = template.Provenance{Kind: template.ProvenanceProject}
			continue
		}
		if setsEqual(tpl.ItemSet(), best.ItemSet()) {
			tpl.Provenance = template.Provenance{Kind: template.ProvenanceGlobal}
			continue
		}

		added, removed := template.DiffItemSets(tpl, best)
		tpl.Provenance = template.Provenance{
			Kind:    template.ProvenanceModified,
			Added:   added,
			Removed: removed,
		}
		lib.Warnings.Add(task, "template differs from global %s: added [%s], removed [%s]",
			best.SourceFile, template.FormatIDList(added), template.FormatIDList(removed))
	}
}

func bestOverlap(tpl *template.SurveyTemplate, globals map[core.TaskName]*template.SurveyTemplate, preferred *template.SurveyTemplate) (*template.SurveyTemplate, int) {
	mine := tpl.ItemSet()
	count := func(ref *template.SurveyTemplate) int {
		n := 0
		for id := range ref.ItemSet() {
			if mine[id] {
				n++
			}
		}
		return n
	}

	var best *template.SurveyTemplate
	bestCount := 0
	if preferred != nil {
		best, bestCount = preferred, count(preferred)
	}

	names := make([]core.TaskName, 0, len(globals))
	for name := range globals {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	for _, name := range names {
		ref := globals[name]
		if ref == preferred {
			continue
		}
		if c := count(ref); c > bestCount {
			best, bestCount = ref, c
		}
	}
	return best, bestCount
}

func setsEqual(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func appendTaskOnce(tasks []core.TaskName, task core.TaskName) []core.TaskName {
	for _, t := range tasks {
		if t == task {
			return tasks
		}
	}
	return append(tasks, task)
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}
