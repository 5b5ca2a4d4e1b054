// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
)

// EventType is the closed set of mutations the engine reacts to.
type EventType string

// Event types sent by the CRUD layer after a mutation.
const (
	EventTaskCreate     EventType = "TASK_CREATE"
	EventTaskComplete   EventType = "TASK_COMPLETE"
	EventTaskUncomplete EventType = "TASK_UNCOMPLETE"
	EventTaskDelete     EventType = "TASK_DELETE"
	EventActivityLogged EventType = "ACTIVITY_LOGGED"
	EventExpenseLogged  EventType = "EXPENSE_LOGGED"
	EventStudyLogged    EventType = "STUDY_LOGGED"
	EventDayFinalize    EventType = "DAY_FINALIZE"
	EventRefresh        EventType = "REFRESH"
)

// EventTypes lists every valid type in declaration order.
var EventTypes = []EventType{
	EventTaskCreate,
	EventTaskComplete,
	EventTaskUncomplete,
	EventTaskDelete,
	EventActivityLogged,
	EventExpenseLogged,
	EventStudyLogged,
	EventDayFinalize,
	EventRefresh,
}

// Valid reports whether t is a member of the enumeration.
func (t EventType) Valid() bool {
	for _, known := range EventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseEventType normalizes s and checks it against the enumeration.
func ParseEventType(s string) (EventType, error) {
	t := EventType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, s)
	}
	return t, nil
}

// RatingEvent is a transient trigger consumed by the event processor.
// The type is informational: every event recomputes from current data.
type RatingEvent struct {
	Type     EventType
	UserID   string
	Metadata map[string]any
}

// Validate checks the event before any state is touched.
func (e RatingEvent) Validate() error {
	if !e.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
	if strings.TrimSpace(e.UserID) == "" {
		return fmt.Errorf("%w: missing user id", ErrInvalidEvent)
	}
	return nil
}
