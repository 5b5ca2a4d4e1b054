package service_test

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
	service "github.com/okian/pulse/internal/app"
	"github.com/okian/pulse/internal/config"
	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
	"gorm.io/gorm"
)

func init() {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}

// testClock is a settable clock shared with the service.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newDB() *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := repository.Open(repository.DriverSQLite, dsn, 1)
	So(err, ShouldBeNil)
	return db
}

func newStartedService(start time.Time, opts ...service.Option) (*service.Service, *gorm.DB, *testClock) {
	clock := &testClock{now: start}
	db := newDB()
	svc := service.New(append([]service.Option{
		service.WithDB(db),
		service.WithClock(clock.Now),
	}, opts...)...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc, db, clock
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it is created but not started", func() {
			So(svc, ShouldNotBeNil)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})

		Convey("Then operations fail until it starts", func() {
			_, err := svc.GetState(context.Background(), "u-1")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("Then starting without a database fails", func() {
			So(errors.Is(svc.Start(context.Background()), service.ErrNoDatabase), ShouldBeTrue)
		})
	})

	Convey("Given a config with an unknown timezone", t, func() {
		cfg := config.New()
		cfg.Rating.Timezone = "Atlantis/Central"
		svc := service.New(service.WithDB(newDB()), service.WithConfig(cfg))

		Convey("Then Start rejects it", func() {
			So(errors.Is(svc.Start(context.Background()), config.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc, _, _ := newStartedService(time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC))

		Convey("Then stats report it running", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["today"], ShouldEqual, "2025-06-10")
			So(stats["timezone"], ShouldEqual, "UTC")
		})

		Convey("When starting twice", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
		})

		Convey("When stopping the service", func() {
			svc.Stop()
			svc.Stop()

			Convey("Then it should be marked as stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_InvalidInput(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc, db, _ := newStartedService(time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC))
		ctx := context.Background()

		Convey("When an unknown event type arrives", func() {
			_, err := svc.ProcessEvent(ctx, model.RatingEvent{Type: "NOTE_SAVED", UserID: "u-1"})

			Convey("Then it is rejected without touching state", func() {
				So(errors.Is(err, model.ErrInvalidEvent), ShouldBeTrue)
				var n int64
				So(db.Model(&repository.UserRecord{}).Count(&n).Error, ShouldBeNil)
				So(n, ShouldEqual, 0)
			})
		})

		Convey("When the user id is blank", func() {
			_, err := svc.ProcessEvent(ctx, model.RatingEvent{Type: model.EventRefresh, UserID: " "})
			So(errors.Is(err, model.ErrInvalidEvent), ShouldBeTrue)

			_, err = svc.GetState(ctx, "")
			So(errors.Is(err, model.ErrInvalidEvent), ShouldBeTrue)

			_, err = svc.History(ctx, "", 10)
			So(errors.Is(err, model.ErrInvalidEvent), ShouldBeTrue)
		})
	})
}
