package repository

import (
	"time"

	"github.com/okian/pulse/internal/domain/model"
	"gorm.io/datatypes"
)

// UserRecord is the rating half of the users table. Only GormStore writes
// these columns.
type UserRecord struct {
	ID             string `gorm:"primaryKey;size:64"`
	Rating         int    `gorm:"not null"`
	Rank           string `gorm:"size:32"`
	LastActiveDate string `gorm:"size:10"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName pins the table name.
func (UserRecord) TableName() string { return "users" }

// RatingHistoryRecord is one locked day. (user_id, date) is unique.
type RatingHistoryRecord struct {
	ID        string                              `gorm:"primaryKey;size:36"`
	UserID    string                              `gorm:"size:64;not null;uniqueIndex:uk_rating_history_user_date,priority:1"`
	Date      string                              `gorm:"size:10;not null;uniqueIndex:uk_rating_history_user_date,priority:2"`
	OldRating int                                 `gorm:"not null"`
	NewRating int                                 `gorm:"not null"`
	Change    int                                 `gorm:"not null"`
	DPS       float64                             `gorm:"column:dps;not null"`
	Breakdown datatypes.JSONType[model.Breakdown] `gorm:"not null"`
	Reason    string                              `gorm:"size:255"`
	CreatedAt time.Time
}

// TableName pins the table name.
func (RatingHistoryRecord) TableName() string { return "rating_histories" }

func (r RatingHistoryRecord) toModel() model.RatingHistoryEntry {
	return model.RatingHistoryEntry{
		ID:        r.ID,
		UserID:    r.UserID,
		Date:      r.Date,
		OldRating: r.OldRating,
		NewRating: r.NewRating,
		Change:    r.Change,
		DPS:       r.DPS,
		Breakdown: r.Breakdown.Data(),
		Reason:    r.Reason,
		CreatedAt: r.CreatedAt,
	}
}

func fromModel(e model.RatingHistoryEntry) RatingHistoryRecord {
	return RatingHistoryRecord{
		ID:        e.ID,
		UserID:    e.UserID,
		Date:      e.Date,
		OldRating: e.OldRating,
		NewRating: e.NewRating,
		Change:    e.Change,
		DPS:       e.DPS,
		Breakdown: datatypes.NewJSONType(e.Breakdown),
		Reason:    e.Reason,
		CreatedAt: e.CreatedAt,
	}
}

func (u UserRecord) toModel() model.UserRating {
	return model.UserRating{
		UserID:         u.ID,
		Rating:         u.Rating,
		Rank:           u.Rank,
		LastActiveDate: u.LastActiveDate,
	}
}
