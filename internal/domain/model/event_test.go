package model_test

import (
	"errors"
	"testing"

	model "github.com/okian/pulse/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestParseEventType(t *testing.T) {
	convey.Convey("Given raw event type strings", t, func() {
		convey.Convey("When every known type is parsed", func() {
			convey.Convey("Then each is accepted unchanged", func() {
				for _, et := range model.EventTypes {
					got, err := model.ParseEventType(string(et))
					convey.So(err, convey.ShouldBeNil)
					convey.So(got, convey.ShouldEqual, et)
				}
			})
		})

		convey.Convey("When a type has stray case and whitespace", func() {
			got, err := model.ParseEventType("  task_complete ")

			convey.Convey("Then it is normalized", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(got, convey.ShouldEqual, model.EventTaskComplete)
			})
		})

		convey.Convey("When the type is unknown", func() {
			_, err := model.ParseEventType("NOTE_CREATED")

			convey.Convey("Then it is rejected as an invalid event", func() {
				convey.So(errors.Is(err, model.ErrInvalidEvent), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the type is empty", func() {
			_, err := model.ParseEventType("")
			convey.So(errors.Is(err, model.ErrInvalidEvent), convey.ShouldBeTrue)
		})
	})
}

func TestRatingEvent_Validate(t *testing.T) {
	convey.Convey("Given rating events", t, func() {
		convey.Convey("When the event is well formed", func() {
			e := model.RatingEvent{Type: model.EventStudyLogged, UserID: "u-1", Metadata: map[string]any{"minutes": 60}}
			convey.So(e.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When the type is outside the enumeration", func() {
			e := model.RatingEvent{Type: "PORTFOLIO_VIEWED", UserID: "u-1"}
			err := e.Validate()
			convey.So(errors.Is(err, model.ErrInvalidEvent), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "PORTFOLIO_VIEWED")
		})

		convey.Convey("When the user id is blank", func() {
			e := model.RatingEvent{Type: model.EventRefresh, UserID: "   "}
			err := e.Validate()
			convey.So(errors.Is(err, model.ErrInvalidEvent), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "missing user id")
		})
	})
}
