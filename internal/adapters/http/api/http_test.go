package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/okian/pulse/internal/adapters/http/api"
	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	logger.Init(logger.WithOutput(io.Discard))
}

type mockDeps struct {
	state     model.RatingState
	history   []model.RatingHistoryEntry
	finalized int
	err       error

	events    []model.RatingEvent
	lastUser  string
	lastLimit int
}

func (m *mockDeps) ProcessEvent(_ context.Context, ev model.RatingEvent) (model.RatingState, error) {
	m.events = append(m.events, ev)
	if m.err != nil {
		return model.RatingState{}, m.err
	}
	st := m.state
	st.UserID = ev.UserID
	return st, nil
}

func (m *mockDeps) GetState(_ context.Context, userID string) (model.RatingState, error) {
	m.lastUser = userID
	if m.err != nil {
		return model.RatingState{}, m.err
	}
	st := m.state
	st.UserID = userID
	return st, nil
}

func (m *mockDeps) CheckAndFinalizePastDays(_ context.Context, userID string) (int, error) {
	m.lastUser = userID
	return m.finalized, m.err
}

func (m *mockDeps) History(_ context.Context, userID string, limit int) ([]model.RatingHistoryEntry, error) {
	m.lastUser = userID
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.history, nil
}

type mockStats struct{ stats map[string]interface{} }

func (m *mockStats) GetStats() map[string]interface{} { return m.stats }

func newRouter(deps *mockDeps) http.Handler {
	r := chi.NewRouter()
	api.NewServer(deps, &mockStats{stats: map[string]interface{}{"started": true}}).Register(context.Background(), r)
	return r
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var rd io.Reader = http.NoBody
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) map[string]string {
	var out map[string]string
	So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
	return out
}

func TestServer_Events(t *testing.T) {
	Convey("Given an API server", t, func() {
		deps := &mockDeps{state: model.RatingState{CurrentRating: 1030, PreviousRating: 1000, TodayDelta: 30, Tier: "Pupil"}}
		h := newRouter(deps)

		Convey("When a valid event is posted", func() {
			w := do(h, http.MethodPost, "/events", `{"type":"study_logged","user_id":"u-1","metadata":{"minutes":60}}`)

			Convey("Then it returns the new rating state", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")

				var st model.RatingState
				So(json.Unmarshal(w.Body.Bytes(), &st), ShouldBeNil)
				So(st.UserID, ShouldEqual, "u-1")
				So(st.CurrentRating, ShouldEqual, 1030)
				So(st.TodayDelta, ShouldEqual, 30)
			})

			Convey("And the event type is normalized", func() {
				So(deps.events, ShouldHaveLength, 1)
				So(deps.events[0].Type, ShouldEqual, model.EventStudyLogged)
				So(deps.events[0].Metadata["minutes"], ShouldEqual, 60.0)
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(h, http.MethodPost, "/events", `{not json`)

			Convey("Then it is rejected as a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["code"], ShouldEqual, "bad_request")
				So(deps.events, ShouldBeEmpty)
			})
		})

		Convey("When the event type is unknown", func() {
			w := do(h, http.MethodPost, "/events", `{"type":"NOTE_CREATED","user_id":"u-1"}`)

			Convey("Then it returns invalid_event without calling the service", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["code"], ShouldEqual, "invalid_event")
				So(deps.events, ShouldBeEmpty)
			})
		})

		Convey("When the user is missing", func() {
			w := do(h, http.MethodPost, "/events", `{"type":"REFRESH","user_id":"  "}`)

			Convey("Then it returns invalid_event", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["code"], ShouldEqual, "invalid_event")
			})
		})

		Convey("When the service fails to persist", func() {
			deps.err = fmt.Errorf("%w: update rating u-1: disk full", model.ErrPersistence)
			w := do(h, http.MethodPost, "/events", `{"type":"REFRESH","user_id":"u-1"}`)

			Convey("Then it returns persistence_failure", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				body := decodeError(w)
				So(body["code"], ShouldEqual, "persistence_failure")
				So(body["message"], ShouldContainSubstring, "disk full")
			})
		})

		Convey("When the method is wrong", func() {
			w := do(h, http.MethodGet, "/events", "")

			Convey("Then the router refuses it", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})
	})
}

func TestServer_Ratings(t *testing.T) {
	Convey("Given an API server", t, func() {
		deps := &mockDeps{
			state:     model.RatingState{CurrentRating: 1030, FinalizedDays: 1},
			finalized: 2,
			history: []model.RatingHistoryEntry{
				{UserID: "u-1", Date: "2025-06-10", OldRating: 1000, NewRating: 1030, Change: 30},
			},
		}
		h := newRouter(deps)

		Convey("When the state is requested", func() {
			w := do(h, http.MethodGet, "/state/u-1", "")

			Convey("Then the user id comes from the path", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastUser, ShouldEqual, "u-1")
				var st model.RatingState
				So(json.Unmarshal(w.Body.Bytes(), &st), ShouldBeNil)
				So(st.FinalizedDays, ShouldEqual, 1)
			})
		})

		Convey("When finalization is requested", func() {
			w := do(h, http.MethodPost, "/finalize/u-1", "")

			Convey("Then it reports how many days were locked", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var out map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
				So(out["finalized"], ShouldEqual, 2.0)
				So(out["userId"], ShouldEqual, "u-1")
			})
		})

		Convey("When history is requested with a limit", func() {
			w := do(h, http.MethodGet, "/history/u-1?limit=5", "")

			Convey("Then the limit is passed through", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastLimit, ShouldEqual, 5)
				var entries []model.RatingHistoryEntry
				So(json.Unmarshal(w.Body.Bytes(), &entries), ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
				So(entries[0].NewRating, ShouldEqual, 1030)
			})
		})

		Convey("When history is requested without a limit", func() {
			w := do(h, http.MethodGet, "/history/u-1", "")

			Convey("Then the service default applies", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastLimit, ShouldEqual, 0)
			})
		})

		Convey("When the limit is malformed", func() {
			for _, raw := range []string{"abc", "0", "-3"} {
				w := do(h, http.MethodGet, "/history/u-1?limit="+raw, "")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["code"], ShouldEqual, "bad_request")
			}
		})

		Convey("When the service reports a lookup miss", func() {
			deps.err = fmt.Errorf("load user u-9: %w", model.ErrNotFound)
			w := do(h, http.MethodGet, "/state/u-9", "")

			Convey("Then it returns 404", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(decodeError(w)["code"], ShouldEqual, "not_found")
			})
		})

		Convey("When the request context is cancelled", func() {
			deps.err = context.Canceled
			w := do(h, http.MethodPost, "/finalize/u-1", "")

			Convey("Then it returns 503", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(decodeError(w)["code"], ShouldEqual, "unavailable")
			})
		})

		Convey("When the service fails unexpectedly", func() {
			deps.err = errors.New("boom")
			w := do(h, http.MethodGet, "/history/u-1", "")

			Convey("Then it returns internal", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(decodeError(w)["code"], ShouldEqual, "internal")
			})
		})
	})
}

func TestServer_Operational(t *testing.T) {
	Convey("Given an API server", t, func() {
		h := newRouter(&mockDeps{})

		Convey("Then /stats returns the provider's stats", func() {
			w := do(h, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var out map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
			So(out["started"], ShouldEqual, true)
		})

		Convey("Then /healthz serves the metrics registry", func() {
			do(h, http.MethodGet, "/state/u-1", "")
			w := do(h, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "http_requests_total")
		})

		Convey("Then unknown paths return 404", func() {
			w := do(h, http.MethodGet, "/unknown", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestWrapKind(t *testing.T) {
	Convey("Given an operation error", t, func() {
		cause := errors.New("eof")

		Convey("Then both the kind and the cause stay matchable", func() {
			err := api.WrapKind("api.post_event", api.ErrBadRequest, cause)
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.post_event: bad request: eof")
		})

		Convey("Then a nil cause yields the bare kind", func() {
			err := api.WrapKind("api.finalize", api.ErrInternal, nil)
			So(errors.Is(err, api.ErrInternal), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.finalize: internal error")
		})
	})
}
