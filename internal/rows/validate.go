package rows

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/core"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/convert"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/table"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/template"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/ports"
)

// ValidationError rejects a single answer with the full context the
// caller needs to fix the source data
type ValidationError struct {
	Task    core.TaskName
	Subject string
	Item    string
	Value   string
	Allowed []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value %q for item %s (subject %s, task %s); allowed levels: %s",
		e.Value, e.Item, e.Subject, e.Task, strings.Join(e.Allowed, ", "))
}

func (e *ValidationError) Unwrap() error {
	return core.ErrValueRejected
}

// Validator checks answers against item schemas. Safe for concurrent
// use as long as each goroutine records into its own ToleranceSet.
type Validator struct {
	// LevelMatcher loosens level-key matching beyond equality. Optional;
	// DefaultLevelMatcher is used when nil.
	LevelMatcher ports.LevelMatcherPort
	// StrictLevels disables the numeric-tolerance fallback.
	StrictLevels bool
}

// DefaultLevelMatcher matches level keys case-insensitively and by
// numeric equality, so "4.0" matches the level key "4".
type DefaultLevelMatcher struct{}

// MatchLevel implements ports.LevelMatcherPort
func (DefaultLevelMatcher) MatchLevel(value string, levelKeys []string) (string, bool) {
	for _, key := range levelKeys {
		if strings.EqualFold(strings.TrimSpace(value), strings.TrimSpace(key)) {
			return key, true
		}
	}
	if f, ok := parseNumeric(value); ok {
		for _, key := range levelKeys {
			if k, kok := parseNumeric(key); kok && k == f {
				return key, true
			}
		}
	}
	return "", false
}

// ValidateItem validates one answer against its item schema. A nil
// return means accepted; acceptance through the numeric-tolerance band
// is recorded in tolerance as an audit flag.
func (v *Validator) ValidateItem(task core.TaskName, subject, itemID, value string, schema *template.ItemSchema, tolerance convert.ToleranceSet) error {
	// Missing values and schema-less items are not validated here.
	if table.IsMissing(value) || schema == nil {
		return nil
	}
	// Range-only and free-text items are not level-checked.
	if !schema.HasLevels() {
		return nil
	}

	if _, ok := schema.Levels[value]; ok {
		return nil
	}
	matcher := v.LevelMatcher
	if matcher == nil {
		matcher = DefaultLevelMatcher{}
	}
	if _, ok := matcher.MatchLevel(value, schema.LevelKeys()); ok {
		return nil
	}

	if f, ok := parseNumeric(value); ok {
		// An explicit numeric range takes precedence over the levels.
		if schema.HasNumericRange() {
			if f >= *schema.MinValue && f <= *schema.MaxValue {
				return nil
			}
		} else if !v.StrictLevels {
			if numeric := schema.NumericLevelKeys(); len(numeric) >= 2 {
				if f >= floats.Min(numeric) && f <= floats.Max(numeric) {
					tolerance.Record(task, itemID)
					return nil
				}
			}
		}
	}

	return &ValidationError{
		Task:    task,
		Subject: subject,
		Item:    itemID,
		Value:   value,
		Allowed: schema.LevelKeys(),
	}
}
