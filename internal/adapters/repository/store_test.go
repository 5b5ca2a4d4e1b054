package repository_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okian/pulse/internal/adapters/repository"
	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *repository.GormStore {
	t.Helper()
	require.NoError(t, logger.Init(logger.WithOutput(io.Discard)))

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := repository.Open(repository.DriverSQLite, dsn, 1)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	s := repository.NewGormStore(db, repository.WithLogger(logger.Get()))
	require.NoError(t, s.AutoMigrate(context.Background()))
	return s
}

func entry(userID, date string, oldRating, newRating int) model.RatingHistoryEntry {
	return model.RatingHistoryEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Date:      date,
		OldRating: oldRating,
		NewRating: newRating,
		Change:    newRating - oldRating,
		DPS:       float64(newRating - oldRating),
		Breakdown: model.Breakdown{
			SchemaVersion: model.BreakdownSchemaVersion,
			StudyScore:    20,
			PlanScore:     10,
			Degraded:      []string{"budget"},
		},
		Reason:    "day " + date + " finalized",
		CreatedAt: time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC),
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := repository.Open("mysql", "dsn", 0)
	assert.True(t, errors.Is(err, repository.ErrUnknownDriver))
}

func TestEnsureUser(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	u, err := s.EnsureUser(ctx, "u-1", 1000, "Pupil")
	require.NoError(t, err)
	assert.Equal(t, model.UserRating{UserID: "u-1", Rating: 1000, Rank: "Pupil"}, u)

	require.NoError(t, s.UpdateRating(ctx, "u-1", 1030, "Pupil", "2025-06-10"))

	// a second ensure must not reset the rating
	u, err = s.EnsureUser(ctx, "u-1", 1000, "Pupil")
	require.NoError(t, err)
	assert.Equal(t, 1030, u.Rating)
	assert.Equal(t, "2025-06-10", u.LastActiveDate)
}

func TestUpdateRating(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	err := s.UpdateRating(ctx, "missing", 1, "Newbie", "")
	assert.True(t, errors.Is(err, repository.ErrNotFound))

	_, err = s.EnsureUser(ctx, "u-1", 1000, "Pupil")
	require.NoError(t, err)
	require.NoError(t, s.UpdateRating(ctx, "u-1", 1010, "Pupil", "2025-06-10"))
	require.NoError(t, s.UpdateRating(ctx, "u-1", 1250, "Specialist", ""))

	u, err := s.EnsureUser(ctx, "u-1", 1000, "Pupil")
	require.NoError(t, err)
	assert.Equal(t, 1250, u.Rating)
	assert.Equal(t, "Specialist", u.Rank)
	assert.Equal(t, "2025-06-10", u.LastActiveDate, "empty lastActive keeps the stored date")
}

func TestInsertLockedRoundTrip(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	want := entry("u-1", "2025-06-10", 1000, 1030)
	require.NoError(t, s.InsertLocked(ctx, want))

	got, err := s.GetLocked(ctx, "u-1", "2025-06-10")
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.NewRating, got.NewRating)
	assert.Equal(t, want.Breakdown, got.Breakdown)
	assert.Equal(t, want.Reason, got.Reason)
	assert.False(t, got.IsLive)

	_, err = s.GetLocked(ctx, "u-1", "2025-06-11")
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestInsertLockedDuplicate(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	first := entry("u-1", "2025-06-10", 1000, 1030)
	require.NoError(t, s.InsertLocked(ctx, first))

	err := s.InsertLocked(ctx, entry("u-1", "2025-06-10", 1000, 1090))
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrDuplicate))
	assert.True(t, errors.Is(err, model.ErrDuplicate))

	got, err := s.GetLocked(ctx, "u-1", "2025-06-10")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID, "the first entry wins")
	assert.Equal(t, 1030, got.NewRating)

	// same date for another user is fine
	require.NoError(t, s.InsertLocked(ctx, entry("u-2", "2025-06-10", 1000, 1005)))
}

func TestInsertLockedConcurrent(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	const writers = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		inserted int
		dups     int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.InsertLocked(ctx, entry("u-1", "2025-06-10", 1000, 1000+i))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				inserted++
			case errors.Is(err, repository.ErrDuplicate):
				dups++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, inserted)
	assert.Equal(t, writers-1, dups)
	n, err := s.CountLocked(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestHistoryAndLatest(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	_, err := s.LatestLocked(ctx, "u-1")
	assert.True(t, errors.Is(err, repository.ErrNotFound))

	for i, d := range []string{"2025-06-08", "2025-06-10", "2025-06-09"} {
		require.NoError(t, s.InsertLocked(ctx, entry("u-1", d, 1000+i, 1001+i)))
	}
	require.NoError(t, s.InsertLocked(ctx, entry("u-2", "2025-06-12", 1000, 1000)))

	latest, err := s.LatestLocked(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-10", latest.Date)

	all, err := s.History(ctx, "u-1", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"2025-06-10", "2025-06-09", "2025-06-08"},
		[]string{all[0].Date, all[1].Date, all[2].Date})

	two, err := s.History(ctx, "u-1", 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)

	n, err := s.CountLocked(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
