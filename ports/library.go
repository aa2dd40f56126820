package ports

import (
	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/core"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/template"
)

// TemplateLibraryPort loads a directory of survey templates keyed by task.
// The global reference library used for drift classification is loaded
// through the same boundary.
type TemplateLibraryPort interface {
	LoadTemplates(dir string) (map[core.TaskName]*template.SurveyTemplate, error)
}

// FuzzySuggestPort proposes close matches for IDs missing from a mapping.
// Implementations return suggestions per missing ID, best first.
type FuzzySuggestPort interface {
	Suggest(missing []string, candidates []string) map[string][]string
}

// LevelMatcherPort matches a normalized cell value against allowed level
// keys more loosely than string equality (case folding, trimmed zeros).
// Returns the matched level key.
type LevelMatcherPort interface {
	MatchLevel(value string, levelKeys []string) (string, bool)
}
