package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// Use UUID v7 for time-ordered, sortable IDs
	// Falls back to v4 if v7 is not available (for compatibility)
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific identifier types
type (
	// RunID identifies a single conversion run.
	RunID ID
	// ParticipantID is a canonical subject identifier after ID-map resolution.
	ParticipantID string
	// TaskName is the lowercase lookup key of a survey template.
	TaskName string
	// ItemID is a canonical survey item identifier within a task.
	ItemID string
)

func (id RunID) String() string        { return ID(id).String() }
func (p ParticipantID) String() string { return string(p) }
func (t TaskName) String() string      { return string(t) }
func (i ItemID) String() string        { return string(i) }

// NewRunID creates a fresh run identifier
func NewRunID() RunID {
	return RunID(NewID())
}

// ParseTaskName parses a string into a TaskName, lowercasing the lookup key
func ParseTaskName(s string) (TaskName, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("task name cannot be empty")
	}
	return TaskName(strings.ToLower(strings.TrimSpace(s))), nil
}

// ParseParticipantID parses a string into a ParticipantID
func ParseParticipantID(s string) (ParticipantID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("participant ID cannot be empty")
	}
	return ParticipantID(strings.TrimSpace(s)), nil
}
