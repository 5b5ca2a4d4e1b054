// Package probe drives a running rating server with concurrent events and
// checks the ledger invariants through the public API.
package probe

import (
	"time"

	"github.com/okian/pulse/internal/domain/model"
)

// Config holds configuration for a probe run.
type Config struct {
	BaseURL   string        // Base URL of the service
	NumEvents int           // Number of events to submit
	Users     int           // Number of distinct users the events spread over
	Workers   int           // Number of concurrent submitters
	Timeout   time.Duration // HTTP request timeout
	Floor     int           // Lowest rating the server may report
	Ceiling   int           // Highest rating the server may report
	Verbose   bool          // Log every violation as it is found
}

// Event is the POST /events body.
type Event struct {
	Type     string         `json:"type"`
	UserID   string         `json:"user_id"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Stats holds run statistics.
type Stats struct {
	EventsSubmitted  int
	EventsSuccessful int
	EventsRejected   int
	EventsFailed     int
	UsersChecked     int
	EntriesChecked   int
	Violations       []Violation
	StartTime        time.Time
	Duration         time.Duration
}

// Violation is one broken ledger invariant for a user.
type Violation struct {
	UserID string
	Rule   string
	Detail string
}

type (
	historyEntry = model.RatingHistoryEntry
	ratingState  = model.RatingState
)
