// Package signals reads the raw daily signals the calculators score.
package signals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/pulse/internal/domain/calendar"
	"github.com/okian/pulse/internal/domain/scoring"
	"github.com/okian/pulse/pkg/metrics"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Store serves every scoring source from one database.
type Store struct {
	db *gorm.DB
}

var (
	_ scoring.StudySource    = (*Store)(nil)
	_ scoring.TaskSource     = (*Store)(nil)
	_ scoring.BudgetSource   = (*Store)(nil)
	_ scoring.ActivitySource = (*Store)(nil)
)

// New wraps db.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Sources exposes the store as all four scoring sources.
func (s *Store) Sources() scoring.Sources {
	return scoring.Sources{Study: s, Tasks: s, Budget: s, Activity: s}
}

// AutoMigrate creates the signal tables. Production schemas belong to the
// CRUD layer; this is for local runs and tests.
func (s *Store) AutoMigrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(&Task{}, &StudySession{}, &Expense{}, &Budget{}, &ActivityLog{})
	if err != nil {
		return fmt.Errorf("migrate signal tables: %w", err)
	}
	return nil
}

// StudyMinutes sums study minutes logged in the window.
func (s *Store) StudyMinutes(ctx context.Context, userID string, w calendar.Window) (int, error) {
	return s.sumMinutes(ctx, &StudySession{}, userID, w)
}

// ActivityMinutes sums activity minutes logged in the window.
func (s *Store) ActivityMinutes(ctx context.Context, userID string, w calendar.Window) (int, error) {
	return s.sumMinutes(ctx, &ActivityLog{}, userID, w)
}

func (s *Store) sumMinutes(ctx context.Context, table any, userID string, w calendar.Window) (int, error) {
	defer observe(time.Now())

	from, to := bounds(w)
	var total int64
	err := s.db.WithContext(ctx).
		Model(table).
		Select("COALESCE(SUM(minutes), 0)").
		Where("user_id = ? AND logged_at >= ? AND logged_at < ?", userID, from, to).
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("sum minutes: %w", err)
	}
	return int(total), nil
}

// TaskStats counts completions, missed due tasks and deletions in the
// window. A task counts as missed if it was still open when the day ended.
func (s *Store) TaskStats(ctx context.Context, userID string, w calendar.Window) (scoring.TaskStats, error) {
	defer observe(time.Now())

	from, to := bounds(w)
	db := s.db.WithContext(ctx)
	var st scoring.TaskStats

	var completed int64
	err := db.Model(&Task{}).
		Where("user_id = ? AND completed = ? AND completed_at >= ? AND completed_at < ?", userID, true, from, to).
		Count(&completed).Error
	if err != nil {
		return st, fmt.Errorf("count completed tasks: %w", err)
	}
	st.Completed = int(completed)

	var missed int64
	err = db.Model(&Task{}).
		Where("user_id = ? AND due_date = ?", userID, w.Day.String()).
		Where("(completed = ? OR completed_at IS NULL OR completed_at >= ?)", false, to).
		Count(&missed).Error
	if err != nil {
		return st, fmt.Errorf("count missed tasks: %w", err)
	}
	st.MissedDue = int(missed)

	var deleted []Task
	err = db.Unscoped().
		Where("user_id = ? AND deleted_at >= ? AND deleted_at < ?", userID, from, to).
		Find(&deleted).Error
	if err != nil {
		return st, fmt.Errorf("list deleted tasks: %w", err)
	}
	for _, t := range deleted {
		del := scoring.TaskDeletion{
			Completed:   t.Completed,
			CompletedAt: t.CompletedAt,
			DeletedAt:   t.DeletedAt.Time,
		}
		if t.DueDate != nil {
			del.DueDate = *t.DueDate
		}
		st.Deletions = append(st.Deletions, del)
	}
	return st, nil
}

// BudgetStats reports the user's monthly limit and what was spent in the
// window.
func (s *Store) BudgetStats(ctx context.Context, userID string, w calendar.Window) (scoring.BudgetStats, error) {
	defer observe(time.Now())

	db := s.db.WithContext(ctx)
	var st scoring.BudgetStats

	var b Budget
	err := db.Take(&b, "user_id = ?", userID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return st, nil
	case err != nil:
		return st, fmt.Errorf("load budget: %w", err)
	}
	st.HasBudget = true
	st.MonthlyLimit = b.MonthlyLimit

	from, to := bounds(w)
	var amounts []decimal.Decimal
	err = db.Model(&Expense{}).
		Where("user_id = ? AND spent_at >= ? AND spent_at < ?", userID, from, to).
		Pluck("amount", &amounts).Error
	if err != nil {
		return st, fmt.Errorf("list expenses: %w", err)
	}
	st.Expenses = len(amounts)
	st.Spent = decimal.Sum(decimal.Zero, amounts...)
	return st, nil
}

// bounds returns the window in UTC, matching how timestamps are stored.
func bounds(w calendar.Window) (time.Time, time.Time) {
	return w.From().UTC(), w.To().UTC()
}

func observe(start time.Time) {
	metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
}
