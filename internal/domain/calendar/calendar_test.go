package calendar_test

import (
	"testing"
	"time"

	"github.com/okian/pulse/internal/domain/calendar"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCalendar_DayBoundaries(t *testing.T) {
	Convey("Given a calendar in UTC with a fixed clock", t, func() {
		now := time.Date(2026, 3, 14, 23, 59, 59, 0, time.UTC)
		cal := calendar.New(calendar.WithClock(func() time.Time { return now }))

		Convey("When asking for today", func() {
			today := cal.Today()

			Convey("Then it is the civil date of the clock", func() {
				So(today.String(), ShouldEqual, "2026-03-14")
				So(today.Start(), ShouldEqual, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC))
				So(today.End(), ShouldEqual, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC))
			})
		})

		Convey("When the clock passes midnight", func() {
			now = now.Add(2 * time.Second)

			Convey("Then today advances by one day", func() {
				So(cal.Today().String(), ShouldEqual, "2026-03-15")
			})
		})

		Convey("When navigating days", func() {
			d, err := cal.Parse("2026-02-28")
			So(err, ShouldBeNil)

			Convey("Then next, prev and month length are calendar-correct", func() {
				So(d.Next().String(), ShouldEqual, "2026-03-01")
				So(d.Prev().String(), ShouldEqual, "2026-02-27")
				So(d.AddDays(-28).String(), ShouldEqual, "2026-01-31")
				So(d.DaysInMonth(), ShouldEqual, 28)
				So(d.Before(d.Next()), ShouldBeTrue)
				So(d.Next().Before(d), ShouldBeFalse)
				So(d.Equal(d.Next().Prev()), ShouldBeTrue)
				So(calendar.DaysBetween(d, d.AddDays(5)), ShouldEqual, 5)
				So(calendar.DaysBetween(d.AddDays(5), d), ShouldEqual, 0)
				So(calendar.DaysBetween(d, d.AddDays(800)), ShouldEqual, 800)
			})
		})

		Convey("When parsing an invalid day", func() {
			_, err := cal.Parse("2026-13-01")

			Convey("Then an error is returned", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When reading the cutoff", func() {
			d := cal.Today()

			Convey("Then it defaults to 06:00 local", func() {
				So(cal.CutoffHour(), ShouldEqual, 6)
				So(cal.Cutoff(d), ShouldEqual, time.Date(2026, 3, 14, 6, 0, 0, 0, time.UTC))
			})
		})
	})
}

func TestCalendar_Location(t *testing.T) {
	Convey("Given a calendar in a non-UTC location", t, func() {
		loc := time.FixedZone("UTC+9", 9*60*60)
		// 20:00 UTC on the 14th is already the 15th at UTC+9.
		now := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
		cal := calendar.New(
			calendar.WithLocation(loc),
			calendar.WithCutoffHour(8),
			calendar.WithClock(func() time.Time { return now }),
		)

		Convey("Then day boundaries follow the canonical location", func() {
			So(cal.Today().String(), ShouldEqual, "2026-03-15")
			So(cal.Today().Start().Location(), ShouldEqual, loc)
			So(cal.Cutoff(cal.Today()).Hour(), ShouldEqual, 8)
			So(cal.Location(), ShouldEqual, loc)
		})

		Convey("And invalid cutoff hours are ignored", func() {
			c := calendar.New(calendar.WithCutoffHour(24))
			So(c.CutoffHour(), ShouldEqual, 6)
		})
	})
}

func TestWindow(t *testing.T) {
	Convey("Given a day", t, func() {
		cal := calendar.New()
		d, _ := cal.Parse("2026-01-10")

		Convey("Then closed and live windows span the whole day", func() {
			closed := calendar.Closed(d)
			live := calendar.Live(d)
			So(closed.Closed, ShouldBeTrue)
			So(live.Closed, ShouldBeFalse)
			So(closed.From(), ShouldEqual, d.Start())
			So(closed.To(), ShouldEqual, d.End())
			So(live.To(), ShouldEqual, d.End())
			So(closed.Kind(), ShouldEqual, "closed")
			So(live.Kind(), ShouldEqual, "live")
		})
	})
}
