package model

import "time"

// BreakdownSchemaVersion is bumped whenever Breakdown's encoding changes.
const BreakdownSchemaVersion = 1

// LiveEntryID marks the unpersisted projection for today.
const LiveEntryID = "LIVE"

// Breakdown holds the component scores behind one day's DPS.
type Breakdown struct {
	SchemaVersion      int      `json:"schemaVersion"`
	StudyScore         float64  `json:"studyScore"`
	PlanScore          float64  `json:"planScore"`
	BudgetScore        float64  `json:"budgetScore"`
	ActivityScore      float64  `json:"activityScore"`
	DisciplinePenalty  float64  `json:"disciplinePenalty"`
	RelativeAdjustment float64  `json:"relativeAdjustment"`
	Degraded           []string `json:"degraded,omitempty"`
}

// RatingHistoryEntry is one day's rating record. Locked entries are
// persisted once per (user, date) and never change; the live entry is
// recomputed on demand.
type RatingHistoryEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Date      string    `json:"date"`
	OldRating int       `json:"oldRating"`
	NewRating int       `json:"newRating"`
	Change    int       `json:"change"`
	DPS       float64   `json:"dps"`
	Breakdown Breakdown `json:"breakdown"`
	Reason    string    `json:"reason"`
	IsLive    bool      `json:"isLive"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserRating is the rating state stored on the user record.
type UserRating struct {
	UserID         string
	Rating         int
	Rank           string
	LastActiveDate string
}

// RatingState is the read projection handed to UI and API callers.
type RatingState struct {
	UserID         string             `json:"userId"`
	CurrentRating  int                `json:"currentRating"`
	PreviousRating int                `json:"previousRating"`
	Tier           string             `json:"tier"`
	TierColor      string             `json:"tierColor"`
	TodayDelta     int                `json:"todayDelta"`
	TodayDPS       float64            `json:"todayDPS"`
	Breakdown      Breakdown          `json:"breakdown"`
	LiveEntry      RatingHistoryEntry `json:"liveEntry"`
	BaseRating     int                `json:"baseRating"`
	FinalizedDays  int                `json:"finalizedDays"`
}
