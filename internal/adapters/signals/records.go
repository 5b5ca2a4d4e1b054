package signals

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// The records below mirror tables owned by the CRUD layer. The engine only
// reads them. Timestamps are expected in UTC.

// Task is a planned item with an optional due date.
type Task struct {
	ID          string  `gorm:"primaryKey;size:36"`
	UserID      string  `gorm:"size:64;index;not null"`
	Title       string  `gorm:"size:255"`
	DueDate     *string `gorm:"size:10;index"`
	Completed   bool    `gorm:"not null;default:false"`
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

// StudySession is a block of logged study time.
type StudySession struct {
	ID       string    `gorm:"primaryKey;size:36"`
	UserID   string    `gorm:"size:64;index;not null"`
	Subject  string    `gorm:"size:128"`
	Minutes  int       `gorm:"not null"`
	LoggedAt time.Time `gorm:"index;not null"`
}

// Expense is one logged purchase.
type Expense struct {
	ID       string          `gorm:"primaryKey;size:36"`
	UserID   string          `gorm:"size:64;index;not null"`
	Category string          `gorm:"size:64"`
	Amount   decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	SpentAt  time.Time       `gorm:"index;not null"`
}

// Budget is the user's monthly spending limit.
type Budget struct {
	UserID       string          `gorm:"primaryKey;size:64"`
	MonthlyLimit decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	UpdatedAt    time.Time
}

// ActivityLog is a block of logged physical or focus activity.
type ActivityLog struct {
	ID       string    `gorm:"primaryKey;size:36"`
	UserID   string    `gorm:"size:64;index;not null"`
	Kind     string    `gorm:"size:64"`
	Minutes  int       `gorm:"not null"`
	LoggedAt time.Time `gorm:"index;not null"`
}
