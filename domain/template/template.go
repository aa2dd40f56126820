// Package template defines the canonical survey template model shared by
// the library loader, the row processor and the duplicate detector.
package template

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/core"
)

// reservedKeys are the top-level template keys that are metadata, not items.
// Shared by every consumer so the filter cannot drift between stages.
var reservedKeys = map[string]bool{
	"Technical": true,
	"Study":     true,
	"Metadata":  true,
	"I18n":      true,
	"Scoring":   true,
	"Normative": true,
}

// IsReservedKey reports whether a top-level template key is schema metadata
func IsReservedKey(key string) bool {
	return reservedKeys[key]
}

// ReservedKeys returns the reserved key set in sorted order
func ReservedKeys() []string {
	out := make([]string, 0, len(reservedKeys))
	for k := range reservedKeys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ItemSchema describes one survey item of a task
type ItemSchema struct {
	Description string            `json:"Description,omitempty"`
	Levels      map[string]string `json:"Levels,omitempty"`
	MinValue    *float64          `json:"MinValue,omitempty"`
	MaxValue    *float64          `json:"MaxValue,omitempty"`
	Aliases     []string          `json:"Aliases,omitempty"`
	AliasOf     string            `json:"AliasOf,omitempty"`
}

// HasLevels reports whether the item declares an allowed-level set
func (s *ItemSchema) HasLevels() bool {
	return s != nil && len(s.Levels) > 0
}

// HasNumericRange reports whether both numeric bounds are declared
func (s *ItemSchema) HasNumericRange() bool {
	return s != nil && s.MinValue != nil && s.MaxValue != nil
}

// LevelKeys returns the sorted allowed-level keys
func (s *ItemSchema) LevelKeys() []string {
	keys := make([]string, 0, len(s.Levels))
	for k := range s.Levels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NumericLevelKeys returns the level keys parseable as numbers
func (s *ItemSchema) NumericLevelKeys() []float64 {
	var out []float64
	for k := range s.Levels {
		if f, err := strconv.ParseFloat(strings.TrimSpace(k), 64); err == nil {
			out = append(out, f)
		}
	}
	sort.Float64s(out)
	return out
}

// ProvenanceKind classifies a project template relative to the global library
type ProvenanceKind string

const (
	ProvenanceProject  ProvenanceKind = "project"
	ProvenanceGlobal   ProvenanceKind = "global"
	ProvenanceModified ProvenanceKind = "modified"
)

// Provenance records how a project template relates to the reference library
type Provenance struct {
	Kind    ProvenanceKind `json:"kind"`
	Added   []string       `json:"added,omitempty"`
	Removed []string       `json:"removed,omitempty"`
}

// StudyInfo mirrors the reserved Study block of a template file
type StudyInfo struct {
	TaskName string `json:"TaskName,omitempty"`
}

// SurveyTemplate is one task's schema: a flat item map plus the alias
// indices injected by the loader. Constructed once per conversion run and
// read-only afterward.
type SurveyTemplate struct {
	Task       core.TaskName
	SourceFile string
	Study      StudyInfo
	Items      map[string]*ItemSchema

	// Aliases maps alias item IDs to their canonical ID within this template.
	Aliases map[string]string
	// ReverseAliases maps canonical item IDs to their declared aliases.
	ReverseAliases map[string][]string

	Provenance Provenance
}

// ExpectedItems returns the canonical item IDs in sorted order,
// excluding reserved keys and alias-only entries
func (t *SurveyTemplate) ExpectedItems() []string {
	out := make([]string, 0, len(t.Items))
	for id := range t.Items {
		if IsReservedKey(id) {
			continue
		}
		if _, isAlias := t.Aliases[id]; isAlias {
			continue
		}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Candidates returns the ordered column-name candidates for an item:
// the item ID itself, then its declared aliases in declaration order.
func (t *SurveyTemplate) Candidates(itemID string) []string {
	out := []string{itemID}
	out = append(out, t.ReverseAliases[itemID]...)
	return out
}

// Item returns the schema for an item ID, following a template-local alias
func (t *SurveyTemplate) Item(itemID string) *ItemSchema {
	if s, ok := t.Items[itemID]; ok {
		return s
	}
	if canonical, ok := t.Aliases[itemID]; ok {
		return t.Items[canonical]
	}
	return nil
}

// ItemSet returns the canonical item IDs as a set
func (t *SurveyTemplate) ItemSet() map[string]bool {
	out := make(map[string]bool)
	for _, id := range t.ExpectedItems() {
		out[id] = true
	}
	return out
}

// DiffItemSets computes the item IDs added and removed going from ref to t
func DiffItemSets(t, ref *SurveyTemplate) (added, removed []string) {
	mine := t.ItemSet()
	theirs := ref.ItemSet()
	for id := range mine {
		if !theirs[id] {
			added = append(added, id)
		}
	}
	for id := range theirs {
		if !mine[id] {
			removed = append(removed, id)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

// FormatIDList renders an ID list for warning text, capped at 5 shown
// plus a "+N more" suffix
func FormatIDList(ids []string) string {
	const maxShown = 5
	if len(ids) <= maxShown {
		return strings.Join(ids, ", ")
	}
	return fmt.Sprintf("%s, +%d more", strings.Join(ids[:maxShown], ", "), len(ids)-maxShown)
}
