// Package repository persists user ratings and locked history entries.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/okian/pulse/internal/domain/ledger"
	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/pkg/logger"
	"github.com/okian/pulse/pkg/metrics"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Storage drivers accepted by Open.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the configured database. TranslateError is on so unique
// violations surface as gorm.ErrDuplicatedKey on every driver.
func Open(driver, dsn string, maxOpenConns int) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if maxOpenConns > 0 {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("pool %s: %w", driver, err)
		}
		sqlDB.SetMaxOpenConns(maxOpenConns)
	}
	return db, nil
}

// GormStore implements the ledger store on gorm.
type GormStore struct {
	db     *gorm.DB
	logger logger.Logger
}

var _ ledger.Store = (*GormStore)(nil)

// NewGormStore wraps db.
func NewGormStore(db *gorm.DB, opts ...Option) *GormStore {
	s := &GormStore{db: db}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("repository")
	}
	return s
}

// AutoMigrate creates or updates the rating tables.
func (s *GormStore) AutoMigrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&UserRecord{}, &RatingHistoryRecord{}); err != nil {
		return fmt.Errorf("migrate rating tables: %w", err)
	}
	return nil
}

// EnsureUser inserts the user at base if absent and returns the stored row.
func (s *GormStore) EnsureUser(ctx context.Context, userID string, base int, rank string) (model.UserRating, error) {
	defer observeUpdate(time.Now())

	rec := UserRecord{ID: userID, Rating: base, Rank: rank}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&rec).Error
	if err != nil {
		return model.UserRating{}, fmt.Errorf("insert user %s: %w", userID, err)
	}

	var stored UserRecord
	if err := s.db.WithContext(ctx).Take(&stored, "id = ?", userID).Error; err != nil {
		return model.UserRating{}, fmt.Errorf("load user %s: %w", userID, notFound(err))
	}
	return stored.toModel(), nil
}

// LatestLocked returns the newest locked entry for the user.
func (s *GormStore) LatestLocked(ctx context.Context, userID string) (model.RatingHistoryEntry, error) {
	defer observeQuery(time.Now())

	var rec RatingHistoryRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date DESC").
		Take(&rec).Error
	if err != nil {
		return model.RatingHistoryEntry{}, notFound(err)
	}
	return rec.toModel(), nil
}

// GetLocked returns the entry for (user, date).
func (s *GormStore) GetLocked(ctx context.Context, userID, date string) (model.RatingHistoryEntry, error) {
	defer observeQuery(time.Now())

	var rec RatingHistoryRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, date).
		Take(&rec).Error
	if err != nil {
		return model.RatingHistoryEntry{}, notFound(err)
	}
	return rec.toModel(), nil
}

// InsertLocked inserts e unless (user, date) already exists, in which case
// it returns ErrDuplicate and leaves the stored entry alone.
func (s *GormStore) InsertLocked(ctx context.Context, e model.RatingHistoryEntry) error {
	defer observeUpdate(time.Now())

	rec := fromModel(e)
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
			DoNothing: true,
		}).
		Create(&rec)
	if res.Error != nil && !errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("insert entry %s %s: %w", e.UserID, e.Date, res.Error)
	}
	if res.Error != nil || res.RowsAffected == 0 {
		s.logger.Debug(ctx, "entry already locked",
			logger.String("userID", e.UserID),
			logger.String("date", e.Date),
		)
		return fmt.Errorf("%w: %s %s", ErrDuplicate, e.UserID, e.Date)
	}
	return nil
}

// UpdateRating overwrites rating and rank. An empty lastActive keeps the
// stored date.
func (s *GormStore) UpdateRating(ctx context.Context, userID string, rating int, rank, lastActive string) error {
	defer observeUpdate(time.Now())

	updates := map[string]any{
		"rating": rating,
		"rank":   rank,
	}
	if lastActive != "" {
		updates["last_active_date"] = lastActive
	}
	res := s.db.WithContext(ctx).
		Model(&UserRecord{}).
		Where("id = ?", userID).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update rating %s: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update rating %s: %w", userID, ErrNotFound)
	}
	return nil
}

// History lists locked entries newest first. limit <= 0 returns all.
func (s *GormStore) History(ctx context.Context, userID string, limit int) ([]model.RatingHistoryEntry, error) {
	defer observeQuery(time.Now())

	q := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var recs []RatingHistoryRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list history %s: %w", userID, err)
	}
	out := make([]model.RatingHistoryEntry, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toModel())
	}
	return out, nil
}

// CountLocked returns how many days are locked for the user.
func (s *GormStore) CountLocked(ctx context.Context, userID string) (int, error) {
	defer observeQuery(time.Now())

	var n int64
	err := s.db.WithContext(ctx).
		Model(&RatingHistoryRecord{}).
		Where("user_id = ?", userID).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count history %s: %w", userID, err)
	}
	return int(n), nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func observeQuery(start time.Time) {
	metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
}

func observeUpdate(start time.Time) {
	metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Microseconds()) / 1000)
}
