package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/conftix/internal/adapters/session"
	"github.com/okian/conftix/internal/domain/lookup"
	"github.com/okian/conftix/internal/domain/model"
	"github.com/okian/conftix/pkg/logger"
)

func init() {
	_ = logger.Init()
}

type stubLookup struct {
	mu    sync.Mutex
	calls int
}

func (s *stubLookup) Exists(context.Context, string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return true, nil
}

func (s *stubLookup) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubSearch struct{}

func (stubSearch) SearchUsers(context.Context, string, int) ([]lookup.Candidate, error) {
	return []lookup.Candidate{{Login: "octocat"}}, nil
}

func (stubSearch) DisplayName(context.Context, string) (string, error) { return "", nil }

func TestStore(t *testing.T) {
	Convey("Given a session store on a fake clock", t, func() {
		clock := clockwork.NewFakeClock()
		lk := &stubLookup{}
		st := session.NewStore(lk, stubSearch{},
			session.WithClock(clock),
			session.WithTTL(10*time.Minute),
			session.WithCheckerOptions(lookup.WithCheckClock(clock)),
			session.WithSuggesterOptions(lookup.WithSuggestClock(clock)),
		)
		defer st.Close()

		Convey("FromRequest creates a session and sets the cookie", func() {
			rec := httptest.NewRecorder()
			s := st.FromRequest(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			So(s, ShouldNotBeNil)
			So(st.Len(), ShouldEqual, 1)

			cookies := rec.Result().Cookies()
			So(len(cookies), ShouldEqual, 1)
			So(cookies[0].Name, ShouldEqual, session.DefaultCookieName)
			So(cookies[0].Value, ShouldEqual, s.ID)
			So(cookies[0].HttpOnly, ShouldBeTrue)

			Convey("and the cookie finds it again", func() {
				req := httptest.NewRequest(http.MethodGet, "/ticket", nil)
				req.AddCookie(cookies[0])
				again := st.FromRequest(httptest.NewRecorder(), req)
				So(again, ShouldEqual, s)
				So(st.Len(), ShouldEqual, 1)
			})
		})

		Convey("An unknown cookie gets a fresh session", func() {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: "stale"})
			_, ok := st.Lookup(req)
			So(ok, ShouldBeFalse)
			s := st.FromRequest(httptest.NewRecorder(), req)
			So(s.ID, ShouldNotEqual, "stale")
		})

		Convey("The record slot is shared and clearable", func() {
			s := st.Create()
			_, ok := s.Record()
			So(ok, ShouldBeFalse)

			s.SetRecord(model.SubmissionRecord{RequestID: "abc-1234"})
			got, ok := s.Record()
			So(ok, ShouldBeTrue)
			So(got.RequestID, ShouldEqual, "abc-1234")

			s.ClearRecord()
			_, ok = s.Record()
			So(ok, ShouldBeFalse)
		})

		Convey("Selecting a suggestion confirms the handle on the same session", func() {
			s := st.Create()
			handle := s.Suggester.Select("octocat")
			So(handle, ShouldEqual, "@octocat")
			input, status := s.Checker.Status()
			So(input, ShouldEqual, "@octocat")
			So(status, ShouldEqual, model.HandleExists)
			So(lk.Calls(), ShouldEqual, 0)
		})

		Convey("Idle sessions are swept after the TTL", func() {
			old := st.Create()
			clock.Advance(6 * time.Minute)
			fresh := st.Create()
			clock.Advance(5 * time.Minute)

			So(st.Sweep(), ShouldEqual, 1)
			_, ok := st.Get(old.ID)
			So(ok, ShouldBeFalse)
			_, ok = st.Get(fresh.ID)
			So(ok, ShouldBeTrue)
		})
	})
}
