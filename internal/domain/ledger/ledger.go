// Package ledger owns the per-day rating history: it locks elapsed days
// exactly once and projects today's live entry.
//
// A (user, day) pair is LIVE while the day is today and LOCKED once the day
// has elapsed and an entry was inserted. There is no way back.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okian/pulse/internal/domain/calendar"
	"github.com/okian/pulse/internal/domain/dedupe"
	"github.com/okian/pulse/internal/domain/dps"
	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/internal/domain/scoring"
	"github.com/okian/pulse/internal/domain/tier"
	"github.com/okian/pulse/pkg/logger"
	"github.com/okian/pulse/pkg/metrics"
)

// Store persists users and locked history entries. It is the only writer of
// the rating columns.
type Store interface {
	// EnsureUser inserts the user at the base rating if absent and returns
	// the stored row.
	EnsureUser(ctx context.Context, userID string, base int, rank string) (model.UserRating, error)

	// LatestLocked returns the newest locked entry or model.ErrNotFound.
	LatestLocked(ctx context.Context, userID string) (model.RatingHistoryEntry, error)

	// GetLocked returns the entry for date or model.ErrNotFound.
	GetLocked(ctx context.Context, userID, date string) (model.RatingHistoryEntry, error)

	// InsertLocked inserts e if no entry exists for (user, date). It returns
	// model.ErrDuplicate when one does.
	InsertLocked(ctx context.Context, e model.RatingHistoryEntry) error

	// UpdateRating overwrites the user's rating and rank. An empty
	// lastActive leaves last_active_date untouched.
	UpdateRating(ctx context.Context, userID string, rating int, rank, lastActive string) error

	// History lists locked entries newest first.
	History(ctx context.Context, userID string, limit int) ([]model.RatingHistoryEntry, error)

	// CountLocked returns the number of locked entries for the user.
	CountLocked(ctx context.Context, userID string) (int, error)
}

// Scorer computes component scores for a window.
type Scorer interface {
	Calculate(ctx context.Context, userID string, w calendar.Window) (scoring.Components, error)
}

// Ledger finalizes elapsed days and projects today.
type Ledger struct {
	store  Store
	scorer Scorer
	agg    *dps.Aggregator
	cal    *calendar.Calendar
	cache  dedupe.Cache
	tiers  tier.Table
	logger logger.Logger

	baseRating      int
	maxBackfillDays int
}

// New creates a Ledger.
func New(store Store, scorer Scorer, opts ...Option) *Ledger {
	l := &Ledger{
		store:           store,
		scorer:          scorer,
		baseRating:      1000,
		maxBackfillDays: 366,
		tiers:           tier.Default,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.agg == nil {
		l.agg = dps.New(dps.WithTiers(l.tiers))
	}
	if l.cal == nil {
		l.cal = calendar.New()
	}
	if l.cache == nil {
		l.cache = dedupe.NewInMemory()
	}
	if l.logger == nil {
		l.logger = logger.Get().Named("ledger")
	}
	return l
}

// BaseRating returns the rating new users start at.
func (l *Ledger) BaseRating() int { return l.baseRating }

// User returns the stored rating row, creating it at the base rating.
func (l *Ledger) User(ctx context.Context, userID string) (model.UserRating, error) {
	u, err := l.store.EnsureUser(ctx, userID, l.baseRating, l.tiers.For(l.baseRating).Name)
	if err != nil {
		metrics.RecordPersistenceFailure("ensure_user")
		return model.UserRating{}, fmt.Errorf("%w: ensure user %s: %w", model.ErrPersistence, userID, err)
	}
	return u, nil
}

// CheckAndFinalizePastDays locks every elapsed day since the user's last
// locked entry, oldest first, and returns how many entries it inserted.
// Entries inserted concurrently by another caller win; this call continues
// from their newRating.
func (l *Ledger) CheckAndFinalizePastDays(ctx context.Context, userID string) (int, error) {
	u, err := l.User(ctx, userID)
	if err != nil {
		return 0, err
	}
	return l.FinalizeUser(ctx, u)
}

// FinalizeUser is CheckAndFinalizePastDays for a row the caller already
// loaded through User.
func (l *Ledger) FinalizeUser(ctx context.Context, u model.UserRating) (int, error) {
	userID := u.UserID
	yesterday := l.cal.Today().Prev()
	key := dedupe.Key(userID, yesterday.String())
	if l.cache.Seen(ctx, key) {
		return 0, nil
	}

	start, baseline, ok, err := l.startDay(ctx, u)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}

	if pending := calendar.DaysBetween(start, yesterday) + 1; pending > l.maxBackfillDays {
		oldest := yesterday.AddDays(1 - l.maxBackfillDays)
		l.logger.Warn(ctx, "backfill window exceeded, skipping oldest days",
			logger.String("userID", userID),
			logger.String("from", start.String()),
			logger.String("resumeAt", oldest.String()),
			logger.Int("pending", pending),
		)
		start = oldest
	}

	inserted := 0
	for d := start; !yesterday.Before(d); d = d.Next() {
		if err := ctx.Err(); err != nil {
			return inserted, err
		}
		next, fresh, err := l.finalizeDay(ctx, userID, d, baseline)
		if err != nil {
			return inserted, err
		}
		baseline = next
		if fresh {
			inserted++
		}
	}

	if inserted > 0 {
		rank := l.tiers.For(baseline).Name
		if err := l.store.UpdateRating(ctx, userID, baseline, rank, ""); err != nil {
			metrics.RecordPersistenceFailure("update_rating")
			return inserted, fmt.Errorf("%w: update rating %s: %w", model.ErrPersistence, userID, err)
		}
		metrics.RecordRatingUpdate()
		l.logger.Info(ctx, "finalized past days",
			logger.String("userID", userID),
			logger.Int("days", inserted),
			logger.Int("rating", baseline),
		)
	}

	l.cache.Record(ctx, key)
	return inserted, nil
}

// startDay picks the first day to finalize and the rating it starts from.
// ok is false when the user has never been active.
func (l *Ledger) startDay(ctx context.Context, u model.UserRating) (calendar.Day, int, bool, error) {
	latest, err := l.store.LatestLocked(ctx, u.UserID)
	switch {
	case err == nil:
		d, perr := l.cal.Parse(latest.Date)
		if perr != nil {
			return calendar.Day{}, 0, false, fmt.Errorf("%w: %w", model.ErrPersistence, perr)
		}
		return d.Next(), latest.NewRating, true, nil
	case errors.Is(err, model.ErrNotFound):
	default:
		metrics.RecordPersistenceFailure("latest_locked")
		return calendar.Day{}, 0, false, fmt.Errorf("%w: latest entry %s: %w", model.ErrPersistence, u.UserID, err)
	}

	if u.LastActiveDate == "" {
		return calendar.Day{}, 0, false, nil
	}
	d, err := l.cal.Parse(u.LastActiveDate)
	if err != nil {
		return calendar.Day{}, 0, false, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}
	return d, l.baseRating, true, nil
}

// finalizeDay locks day d on top of baseline. It returns the newRating to
// carry forward and whether this call inserted the entry.
func (l *Ledger) finalizeDay(ctx context.Context, userID string, d calendar.Day, baseline int) (int, bool, error) {
	started := time.Now()
	w := calendar.Closed(d)
	comps, err := l.scorer.Calculate(ctx, userID, w)
	if err != nil {
		return 0, false, fmt.Errorf("score %s for %s: %w", d, userID, err)
	}
	res := l.agg.Aggregate(comps, baseline)
	metrics.RecordRecomputeLatency(w.Kind(), float64(time.Since(started).Milliseconds()))

	entry := model.RatingHistoryEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Date:      d.String(),
		OldRating: baseline,
		NewRating: res.NewRating,
		Change:    res.Change,
		DPS:       res.TotalDPS,
		Breakdown: breakdown(comps, res),
		Reason:    reason(d, res, comps.Degraded, true),
		CreatedAt: l.cal.Now(),
	}

	err = l.store.InsertLocked(ctx, entry)
	switch {
	case err == nil:
		metrics.RecordDayFinalized()
		return entry.NewRating, true, nil
	case errors.Is(err, model.ErrDuplicate):
		metrics.RecordDuplicateFinalization()
		existing, gerr := l.store.GetLocked(ctx, userID, d.String())
		if gerr != nil {
			metrics.RecordPersistenceFailure("get_locked")
			return 0, false, fmt.Errorf("%w: reread %s for %s: %w", model.ErrPersistence, d, userID, gerr)
		}
		l.logger.Debug(ctx, "day already finalized",
			logger.String("userID", userID),
			logger.String("day", d.String()),
		)
		return existing.NewRating, false, nil
	default:
		metrics.RecordPersistenceFailure("insert_locked")
		return 0, false, fmt.Errorf("%w: lock %s for %s: %w", model.ErrPersistence, d, userID, err)
	}
}

// Live computes today's projection on top of the latest locked entry. It
// writes nothing.
func (l *Ledger) Live(ctx context.Context, userID string) (model.RatingHistoryEntry, error) {
	baseline := l.baseRating
	latest, err := l.store.LatestLocked(ctx, userID)
	switch {
	case err == nil:
		baseline = latest.NewRating
	case errors.Is(err, model.ErrNotFound):
	default:
		metrics.RecordPersistenceFailure("latest_locked")
		return model.RatingHistoryEntry{}, fmt.Errorf("%w: latest entry %s: %w", model.ErrPersistence, userID, err)
	}

	started := time.Now()
	today := l.cal.Today()
	w := calendar.Live(today)
	comps, err := l.scorer.Calculate(ctx, userID, w)
	if err != nil {
		return model.RatingHistoryEntry{}, fmt.Errorf("score %s for %s: %w", today, userID, err)
	}
	res := l.agg.Aggregate(comps, baseline)
	metrics.RecordRecomputeLatency(w.Kind(), float64(time.Since(started).Milliseconds()))

	return model.RatingHistoryEntry{
		ID:        model.LiveEntryID,
		UserID:    userID,
		Date:      today.String(),
		OldRating: baseline,
		NewRating: res.NewRating,
		Change:    res.Change,
		DPS:       res.TotalDPS,
		Breakdown: breakdown(comps, res),
		Reason:    reason(today, res, comps.Degraded, false),
		IsLive:    true,
		CreatedAt: l.cal.Now(),
	}, nil
}

// UpsertLive computes today's projection and stores it as the user's
// current rating. Concurrent writers race; the last one wins.
func (l *Ledger) UpsertLive(ctx context.Context, userID string) (model.RatingHistoryEntry, error) {
	live, err := l.Live(ctx, userID)
	if err != nil {
		return model.RatingHistoryEntry{}, err
	}
	rank := l.tiers.For(live.NewRating).Name
	if err := l.store.UpdateRating(ctx, userID, live.NewRating, rank, live.Date); err != nil {
		metrics.RecordPersistenceFailure("update_rating")
		return model.RatingHistoryEntry{}, fmt.Errorf("%w: update rating %s: %w", model.ErrPersistence, userID, err)
	}
	metrics.RecordRatingUpdate()
	return live, nil
}

// History lists locked entries newest first.
func (l *Ledger) History(ctx context.Context, userID string, limit int) ([]model.RatingHistoryEntry, error) {
	entries, err := l.store.History(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: history %s: %w", model.ErrPersistence, userID, err)
	}
	return entries, nil
}

// FinalizedDays counts the user's locked entries.
func (l *Ledger) FinalizedDays(ctx context.Context, userID string) (int, error) {
	n, err := l.store.CountLocked(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: count history %s: %w", model.ErrPersistence, userID, err)
	}
	return n, nil
}

func breakdown(c scoring.Components, r dps.Result) model.Breakdown {
	return model.Breakdown{
		SchemaVersion:      model.BreakdownSchemaVersion,
		StudyScore:         c.Study,
		PlanScore:          c.Plan,
		BudgetScore:        c.Budget,
		ActivityScore:      c.Activity,
		DisciplinePenalty:  c.DisciplinePenalty,
		RelativeAdjustment: r.RelativeAdjustment,
		Degraded:           c.Degraded,
	}
}

func reason(d calendar.Day, r dps.Result, degraded []string, locked bool) string {
	var b strings.Builder
	if locked {
		fmt.Fprintf(&b, "day %s finalized", d)
	} else {
		fmt.Fprintf(&b, "live projection for %s", d)
	}
	fmt.Fprintf(&b, ": dps %.2f, change %+d", r.TotalDPS, r.Change)
	if len(degraded) > 0 {
		fmt.Fprintf(&b, " (degraded: %s)", strings.Join(degraded, ", "))
	}
	return b.String()
}
