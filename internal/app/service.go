// Package service provides the rating engine's single entry point: every
// rating write and read goes through Service.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/okian/pulse/internal/adapters/repository"
	"github.com/okian/pulse/internal/adapters/signals"
	"github.com/okian/pulse/internal/config"
	"github.com/okian/pulse/internal/domain/calendar"
	"github.com/okian/pulse/internal/domain/dedupe"
	"github.com/okian/pulse/internal/domain/dps"
	"github.com/okian/pulse/internal/domain/ledger"
	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/internal/domain/scoring"
	"github.com/okian/pulse/internal/domain/tier"
	"github.com/okian/pulse/pkg/logger"
	"github.com/okian/pulse/pkg/metrics"
	"gorm.io/gorm"
)

// Service implements the API dependencies for the rating engine.
type Service struct {
	mu sync.RWMutex

	// Inputs
	db    *gorm.DB
	cfg   *config.Config
	clock calendar.Clock

	// Core components, built by Start
	cal     *calendar.Calendar
	ratings *repository.GormStore
	signals *signals.Store
	cache   dedupe.Cache
	ledger  *ledger.Ledger
	tiers   tier.Table

	// State
	started         bool
	eventsProcessed atomic.Int64

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDB sets the database holding ratings and signals.
func WithDB(db *gorm.DB) Option {
	return func(s *Service) {
		s.db = db
	}
}

// WithConfig replaces the default configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithClock replaces the wall clock, mainly for tests crossing midnight.
func WithClock(clock calendar.Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		cfg:   config.New(),
		tiers: tier.Default,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start wires the components and, when configured, migrates the schema.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.db == nil {
		return ErrNoDatabase
	}

	s.logger.Info(ctx, "starting rating service...")

	loc, err := s.cfg.Location()
	if err != nil {
		return err
	}
	s.cal = calendar.New(
		calendar.WithLocation(loc),
		calendar.WithCutoffHour(s.cfg.Rating.CutoffHour),
		calendar.WithClock(s.clock),
	)

	s.ratings = repository.NewGormStore(s.db, repository.WithLogger(logger.Named("repository")))
	s.signals = signals.New(s.db)
	if s.cfg.Storage.AutoMigrate {
		if err := s.ratings.AutoMigrate(ctx); err != nil {
			return err
		}
		if err := s.signals.AutoMigrate(ctx); err != nil {
			return err
		}
		s.logger.Info(ctx, "schema migrated")
	}

	scorer := scoring.NewScorer(s.signals.Sources(),
		scoring.WithParams(s.cfg.ScoringParams()),
		scoring.WithCalendar(s.cal),
		scoring.WithLogger(logger.Named("scoring")),
	)
	agg := dps.New(dps.WithParams(s.cfg.DPSParams()), dps.WithTiers(s.tiers))
	s.cache = dedupe.NewInMemory(dedupe.WithMaxSize(s.cfg.Rating.FinalizedCacheSize))
	s.ledger = ledger.New(s.ratings, scorer,
		ledger.WithCalendar(s.cal),
		ledger.WithAggregator(agg),
		ledger.WithCache(s.cache),
		ledger.WithTiers(s.tiers),
		ledger.WithBaseRating(s.cfg.Rating.Base),
		ledger.WithMaxBackfillDays(s.cfg.Rating.MaxBackfillDays),
		ledger.WithLogger(logger.Named("ledger")),
	)

	s.started = true
	s.logger.Info(ctx, "rating service started",
		logger.String("timezone", loc.String()),
		logger.Int("cutoffHour", s.cfg.Rating.CutoffHour),
		logger.Int("baseRating", s.cfg.Rating.Base),
		logger.Bool("autoMigrate", s.cfg.Storage.AutoMigrate),
	)
	return nil
}

// Stop marks the service stopped. The database belongs to the caller.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "rating service stopped")
}

func (s *Service) components() (*ledger.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.ledger, nil
}

// ProcessEvent finalizes any elapsed days, then recomputes and stores
// today's rating. The event type is recorded for audit only.
func (s *Service) ProcessEvent(ctx context.Context, ev model.RatingEvent) (model.RatingState, error) {
	l, err := s.components()
	if err != nil {
		return model.RatingState{}, err
	}
	ev.UserID = strings.TrimSpace(ev.UserID)
	if err := ev.Validate(); err != nil {
		metrics.RecordEventInvalid()
		s.logger.Warn(ctx, "rejected rating event",
			logger.String("type", string(ev.Type)),
			logger.Error(err),
		)
		return model.RatingState{}, err
	}

	metrics.RecordEventProcessed(string(ev.Type))
	s.eventsProcessed.Add(1)
	s.logger.Debug(ctx, "processing rating event",
		logger.String("type", string(ev.Type)),
		logger.String("userID", ev.UserID),
		logger.Any("metadata", ev.Metadata),
	)

	before, err := l.User(ctx, ev.UserID)
	if err != nil {
		return model.RatingState{}, err
	}
	if _, err := l.FinalizeUser(ctx, before); err != nil {
		return model.RatingState{}, fmt.Errorf("finalize %s: %w", ev.UserID, err)
	}
	live, err := l.UpsertLive(ctx, ev.UserID)
	if err != nil {
		return model.RatingState{}, fmt.Errorf("recompute %s: %w", ev.UserID, err)
	}
	return s.state(ctx, l, ev.UserID, live.NewRating, before.Rating, live)
}

// GetState finalizes elapsed days, a documented side effect, and returns
// the stored rating together with today's unpersisted projection.
func (s *Service) GetState(ctx context.Context, userID string) (model.RatingState, error) {
	l, err := s.components()
	if err != nil {
		return model.RatingState{}, err
	}
	userID, err = checkUser(userID)
	if err != nil {
		return model.RatingState{}, err
	}

	if _, err := l.CheckAndFinalizePastDays(ctx, userID); err != nil {
		return model.RatingState{}, fmt.Errorf("finalize %s: %w", userID, err)
	}
	u, err := l.User(ctx, userID)
	if err != nil {
		return model.RatingState{}, err
	}
	live, err := l.Live(ctx, userID)
	if err != nil {
		return model.RatingState{}, fmt.Errorf("project %s: %w", userID, err)
	}
	return s.state(ctx, l, userID, u.Rating, live.OldRating, live)
}

// CheckAndFinalizePastDays locks every elapsed day for the user and returns
// how many entries were inserted.
func (s *Service) CheckAndFinalizePastDays(ctx context.Context, userID string) (int, error) {
	l, err := s.components()
	if err != nil {
		return 0, err
	}
	userID, err = checkUser(userID)
	if err != nil {
		return 0, err
	}
	return l.CheckAndFinalizePastDays(ctx, userID)
}

// History finalizes elapsed days and lists locked entries newest first.
// limit is clamped to [1, max_history_limit].
func (s *Service) History(ctx context.Context, userID string, limit int) ([]model.RatingHistoryEntry, error) {
	l, err := s.components()
	if err != nil {
		return nil, err
	}
	userID, err = checkUser(userID)
	if err != nil {
		return nil, err
	}
	maxLimit := s.cfg.MaxHistoryLimit
	if limit <= 0 || limit > maxLimit {
		limit = maxLimit
	}

	if _, err := l.CheckAndFinalizePastDays(ctx, userID); err != nil {
		return nil, fmt.Errorf("finalize %s: %w", userID, err)
	}
	return l.History(ctx, userID, limit)
}

func (s *Service) state(ctx context.Context, l *ledger.Ledger, userID string, current, previous int, live model.RatingHistoryEntry) (model.RatingState, error) {
	days, err := l.FinalizedDays(ctx, userID)
	if err != nil {
		return model.RatingState{}, err
	}
	t := s.tiers.For(current)
	return model.RatingState{
		UserID:         userID,
		CurrentRating:  current,
		PreviousRating: previous,
		Tier:           t.Name,
		TierColor:      t.Color,
		TodayDelta:     live.Change,
		TodayDPS:       live.DPS,
		Breakdown:      live.Breakdown,
		LiveEntry:      live,
		BaseRating:     l.BaseRating(),
		FinalizedDays:  days,
	}, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"eventsProcessed": s.eventsProcessed.Load(),
		"timezone":        s.cfg.Rating.Timezone,
		"cutoffHour":      s.cfg.Rating.CutoffHour,
		"baseRating":      s.cfg.Rating.Base,
		"maxDailyChange":  s.cfg.Rating.MaxDailyChange,
	}
	if s.started {
		stats["today"] = s.cal.Today().String()
		stats["finalizedCacheSize"] = s.cache.Size()
		metrics.UpdateFinalizedCacheSize(s.cache.Size())
	}
	return stats
}

func checkUser(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", fmt.Errorf("%w: missing user id", model.ErrInvalidEvent)
	}
	return userID, nil
}
