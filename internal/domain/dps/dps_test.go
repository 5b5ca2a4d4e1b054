package dps_test

import (
	"testing"

	"github.com/okian/pulse/internal/domain/dps"
	"github.com/okian/pulse/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAggregate(t *testing.T) {
	Convey("Given the default aggregator", t, func() {
		agg := dps.New()

		Convey("When a Pupil studies an hour and completes a task", func() {
			r := agg.Aggregate(scoring.Components{Study: 20, Plan: 10}, 1000)

			Convey("Then the rating rises by thirty without dampening", func() {
				So(r.RawDPS, ShouldEqual, 30)
				So(r.RelativeAdjustment, ShouldEqual, 0)
				So(r.Change, ShouldEqual, 30)
				So(r.NewRating, ShouldEqual, 1030)
			})
		})

		Convey("When the discipline penalty outweighs the gains", func() {
			r := agg.Aggregate(scoring.Components{Plan: 10, DisciplinePenalty: 18}, 1000)
			So(r.RawDPS, ShouldEqual, -8)
			So(r.Change, ShouldEqual, -8)
			So(r.NewRating, ShouldEqual, 992)
		})

		Convey("When an Expert gains", func() {
			// Expert is two tiers above Pupil: 20% dampening
			r := agg.Aggregate(scoring.Components{Study: 50}, 1450)
			So(r.RelativeAdjustment, ShouldAlmostEqual, -10, 1e-9)
			So(r.TotalDPS, ShouldAlmostEqual, 40, 1e-9)
			So(r.Change, ShouldEqual, 40)
		})

		Convey("When an Expert loses", func() {
			r := agg.Aggregate(scoring.Components{Budget: -20}, 1450)

			Convey("Then losses are not dampened", func() {
				So(r.RelativeAdjustment, ShouldEqual, 0)
				So(r.Change, ShouldEqual, -20)
			})
		})

		Convey("When a Newbie loses", func() {
			// two tiers below Pupil
			r := agg.Aggregate(scoring.Components{Budget: -20}, 500)
			So(r.Change, ShouldEqual, -16)
		})

		Convey("When a Master gains", func() {
			// four tiers above Pupil
			r := agg.Aggregate(scoring.Components{Study: 50, Plan: 50}, 2000)
			So(r.RelativeAdjustment, ShouldAlmostEqual, -40, 1e-9)
			So(r.Change, ShouldEqual, 60)
		})
	})
}

func TestAggregateBounds(t *testing.T) {
	Convey("Given a small daily maximum", t, func() {
		p := dps.DefaultParams()
		p.MaxDailyChange = 25
		agg := dps.New(dps.WithParams(p))

		Convey("Then the change is clamped in both directions", func() {
			up := agg.Aggregate(scoring.Components{Study: 50, Plan: 50, Activity: 50}, 1000)
			So(up.Change, ShouldEqual, 25)

			down := agg.Aggregate(scoring.Components{Budget: -50, DisciplinePenalty: 50}, 1000)
			So(down.Change, ShouldEqual, -25)
		})

		Convey("Then the rating never leaves its floor and ceiling", func() {
			low := agg.Aggregate(scoring.Components{DisciplinePenalty: 50}, 10)
			So(low.NewRating, ShouldEqual, 0)
			So(low.Change, ShouldEqual, -10)

			high := agg.Aggregate(scoring.Components{Study: 50}, 3990)
			So(high.NewRating, ShouldEqual, 4000)
			So(high.Change, ShouldEqual, 10)
		})
	})

	Convey("Given custom weights and scaling", t, func() {
		p := dps.DefaultParams()
		p.Weights.Study = 0.5
		p.ScalingFactor = 2
		agg := dps.New(dps.WithParams(p))

		Convey("Then both apply before rounding", func() {
			r := agg.Aggregate(scoring.Components{Study: 15, Plan: 1}, 1000)
			So(r.RawDPS, ShouldEqual, 8.5)
			So(r.Change, ShouldEqual, 17)
		})
	})

	Convey("Given steep per-tier dampening", t, func() {
		p := dps.DefaultParams()
		p.DampeningPerTier = 0.2
		agg := dps.New(dps.WithParams(p))

		Convey("Then dampening stops at the maximum", func() {
			r := agg.Aggregate(scoring.Components{Study: 50, Plan: 50}, 2000)
			So(r.RelativeAdjustment, ShouldAlmostEqual, -50, 1e-9)
			So(r.Change, ShouldEqual, 50)
		})
	})

	Convey("Given an unknown reference tier", t, func() {
		p := dps.DefaultParams()
		p.ReferenceTier = "Grandmaster"
		agg := dps.New(dps.WithParams(p))

		Convey("Then no dampening is applied", func() {
			r := agg.Aggregate(scoring.Components{Study: 50}, 2500)
			So(r.RelativeAdjustment, ShouldEqual, 0)
		})
	})
}
