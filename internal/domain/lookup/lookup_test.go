package lookup_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/conftix/internal/domain/lookup"
	"github.com/okian/conftix/internal/domain/model"
	"github.com/okian/conftix/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

// eventually polls cond; fake clock callbacks run on their own goroutine.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

type fakeLookup struct {
	mu      sync.Mutex
	calls   []string
	known   map[string]bool
	err     error
	gate    chan struct{}
	started chan string
}

func (f *fakeLookup) Exists(ctx context.Context, login string) (bool, error) {
	f.mu.Lock()
	f.calls = append(f.calls, login)
	gate, started := f.gate, f.started
	f.mu.Unlock()
	if started != nil {
		started <- login
	}
	if gate != nil {
		<-gate
	}
	if f.err != nil {
		return false, f.err
	}
	return f.known[login], nil
}

func (f *fakeLookup) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func TestChecker(t *testing.T) {
	Convey("Given a checker on a fake clock", t, func() {
		clock := clockwork.NewFakeClock()
		fl := &fakeLookup{known: map[string]bool{"octocat": true}}
		c := lookup.NewChecker(fl, lookup.WithCheckClock(clock))
		defer c.Close()

		Convey("When a handle is typed quickly", func() {
			for _, h := range []string{"@o", "@oc", "@oct", "@octo", "@octocat"} {
				c.Update(h)
				clock.Advance(100 * time.Millisecond)
			}

			Convey("Then nothing is looked up before the quiet period", func() {
				So(fl.Calls(), ShouldBeEmpty)
				_, st := c.Status()
				So(st, ShouldEqual, model.HandleUnset)
			})

			Convey("Then exactly one lookup runs for the final value", func() {
				clock.Advance(lookup.DefaultCheckDelay)
				So(eventually(func() bool { return c.StatusFor("@octocat") == model.HandleExists }), ShouldBeTrue)
				So(fl.Calls(), ShouldResemble, []string{"octocat"})
			})
		})

		Convey("When the handle is malformed", func() {
			c.Update("octocat")
			clock.Advance(time.Second)

			Convey("Then no lookup is scheduled", func() {
				time.Sleep(20 * time.Millisecond)
				So(fl.Calls(), ShouldBeEmpty)
				_, st := c.Status()
				So(st, ShouldEqual, model.HandleUnset)
			})
		})

		Convey("When the account does not exist", func() {
			c.Update("@ghost")
			clock.Advance(lookup.DefaultCheckDelay)
			So(eventually(func() bool { return c.StatusFor("@ghost") == model.HandleMissing }), ShouldBeTrue)
		})

		Convey("When a suggestion confirms the handle", func() {
			c.Update("@oc")
			c.Confirm("@octocat")
			clock.Advance(time.Second)

			Convey("Then it is confirmed without any lookup", func() {
				time.Sleep(20 * time.Millisecond)
				input, st := c.Status()
				So(input, ShouldEqual, "@octocat")
				So(st, ShouldEqual, model.HandleExists)
				So(fl.Calls(), ShouldBeEmpty)
			})
		})
	})

	Convey("Given a lookup service that fails", t, func() {
		clock := clockwork.NewFakeClock()
		fl := &fakeLookup{err: errors.New("rate limited")}
		c := lookup.NewChecker(fl, lookup.WithCheckClock(clock))
		defer c.Close()

		Convey("Then the handle is reported missing", func() {
			c.Update("@octocat")
			clock.Advance(lookup.DefaultCheckDelay)
			So(eventually(func() bool { return c.StatusFor("@octocat") == model.HandleMissing }), ShouldBeTrue)
		})
	})

	Convey("Given a lookup that is still running when the input changes", t, func() {
		clock := clockwork.NewFakeClock()
		fl := &fakeLookup{
			known:   map[string]bool{"octocat": true},
			gate:    make(chan struct{}),
			started: make(chan string, 1),
		}
		c := lookup.NewChecker(fl, lookup.WithCheckClock(clock))
		defer c.Close()

		c.Update("@octocat")
		clock.Advance(lookup.DefaultCheckDelay)
		So(<-fl.started, ShouldEqual, "octocat")
		So(c.StatusFor("@octocat"), ShouldEqual, model.HandleChecking)

		c.Update("@octocat2")
		close(fl.gate)

		Convey("Then the late answer is discarded", func() {
			time.Sleep(20 * time.Millisecond)
			input, st := c.Status()
			So(input, ShouldEqual, "@octocat2")
			So(st, ShouldEqual, model.HandleUnset)
		})
	})
}

type fakeSearcher struct {
	mu       sync.Mutex
	searches []string
	results  map[string][]lookup.Candidate
	names    map[string]string
	gate     map[string]chan struct{}
	started  chan string
	err      error
}

func (f *fakeSearcher) SearchUsers(ctx context.Context, term string, limit int) ([]lookup.Candidate, error) {
	f.mu.Lock()
	f.searches = append(f.searches, term)
	gate := f.gate[term]
	f.mu.Unlock()
	if f.started != nil {
		f.started <- term
	}
	if gate != nil {
		// Ignores ctx on purpose: the result must still be dropped.
		<-gate
	}
	if f.err != nil {
		return nil, f.err
	}
	res := f.results[term]
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (f *fakeSearcher) DisplayName(ctx context.Context, login string) (string, error) {
	name, ok := f.names[login]
	if !ok {
		return "", errors.New("not found")
	}
	return name, nil
}

func (f *fakeSearcher) Searches() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searches...)
}

type recordingConfirmer struct {
	mu      sync.Mutex
	handles []string
}

func (r *recordingConfirmer) Confirm(handle string) {
	r.mu.Lock()
	r.handles = append(r.handles, handle)
	r.mu.Unlock()
}

func TestSuggester(t *testing.T) {
	Convey("Given a suggester on a fake clock", t, func() {
		clock := clockwork.NewFakeClock()
		fs := &fakeSearcher{
			results: map[string][]lookup.Candidate{
				"al": {{Login: "alpha", AvatarURL: "https://a/1"}},
				"ali": {
					{Login: "alice", AvatarURL: "https://a/2"},
					{Login: "alina", AvatarURL: "https://a/3"},
				},
			},
			names: map[string]string{"alice": "Alice Liddell"},
		}
		conf := &recordingConfirmer{}
		s := lookup.NewSuggester(fs, lookup.WithSuggestClock(clock), lookup.WithConfirmer(conf))
		defer s.Close()

		Convey("When the term settles", func() {
			s.Update("@ali")
			So(s.Snapshot().Pending, ShouldBeTrue)
			clock.Advance(lookup.DefaultSuggestDelay)

			Convey("Then the enriched list is shown in search order", func() {
				So(eventually(func() bool { return s.Snapshot().Open }), ShouldBeTrue)
				snap := s.Snapshot()
				So(snap.Pending, ShouldBeFalse)
				So(snap.Entries, ShouldResemble, []model.SuggestionEntry{
					{Handle: "@alice", AvatarThumbnailURL: "https://a/2", DisplayName: "Alice Liddell"},
					{Handle: "@alina", AvatarThumbnailURL: "https://a/3"},
				})
			})

			Convey("Then selecting an entry confirms it and closes the panel", func() {
				So(eventually(func() bool { return s.Snapshot().Open }), ShouldBeTrue)
				So(s.Select("alice"), ShouldEqual, "@alice")
				snap := s.Snapshot()
				So(snap.Open, ShouldBeFalse)
				So(snap.Entries, ShouldBeEmpty)
				So(snap.Input, ShouldEqual, "@alice")
				So(conf.handles, ShouldResemble, []string{"@alice"})
			})

			Convey("Then dismissing closes the panel", func() {
				So(eventually(func() bool { return s.Snapshot().Open }), ShouldBeTrue)
				s.Dismiss()
				So(s.Snapshot().Open, ShouldBeFalse)
			})
		})

		Convey("When the term is emptied", func() {
			s.Update("@")
			snap := s.Snapshot()
			So(snap.Open, ShouldBeFalse)
			So(snap.Pending, ShouldBeFalse)
			clock.Advance(time.Second)
			time.Sleep(20 * time.Millisecond)
			So(fs.Searches(), ShouldBeEmpty)
		})

		Convey("When nothing matches", func() {
			s.Update("@zzz")
			clock.Advance(lookup.DefaultSuggestDelay)
			So(eventually(func() bool { return !s.Snapshot().Pending }), ShouldBeTrue)
			So(s.Snapshot().Open, ShouldBeFalse)
		})
	})

	Convey("Given a search still running when the input changes", t, func() {
		clock := clockwork.NewFakeClock()
		fs := &fakeSearcher{
			results: map[string][]lookup.Candidate{
				"al":  {{Login: "alpha"}},
				"ali": {{Login: "alice"}},
			},
			gate:    map[string]chan struct{}{"al": make(chan struct{})},
			started: make(chan string, 4),
		}
		s := lookup.NewSuggester(fs, lookup.WithSuggestClock(clock))
		defer s.Close()

		s.Update("@al")
		clock.Advance(lookup.DefaultSuggestDelay)
		So(<-fs.started, ShouldEqual, "al")

		s.Update("@ali")
		close(fs.gate["al"])

		Convey("Then the superseded results are never shown", func() {
			time.Sleep(20 * time.Millisecond)
			snap := s.Snapshot()
			So(snap.Entries, ShouldBeEmpty)
			So(snap.Term, ShouldEqual, "ali")

			clock.Advance(lookup.DefaultSuggestDelay)
			So(eventually(func() bool { return s.Snapshot().Open }), ShouldBeTrue)
			So(s.Snapshot().Entries, ShouldResemble, []model.SuggestionEntry{{Handle: "@alice"}})
		})
	})

	Convey("Given a search service that fails", t, func() {
		clock := clockwork.NewFakeClock()
		fs := &fakeSearcher{err: errors.New("boom")}
		s := lookup.NewSuggester(fs, lookup.WithSuggestClock(clock))
		defer s.Close()

		s.Update("@ali")
		clock.Advance(lookup.DefaultSuggestDelay)

		Convey("Then the list stays closed and empty", func() {
			So(eventually(func() bool { return !s.Snapshot().Pending }), ShouldBeTrue)
			So(s.Snapshot().Open, ShouldBeFalse)
			So(s.Snapshot().Entries, ShouldBeEmpty)
		})
	})
}
