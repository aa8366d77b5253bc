package github_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/conftix/internal/adapters/github"
	"github.com/okian/conftix/pkg/logger"
)

func init() {
	_ = logger.Init()
}

func newServer(calls *int64) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/{login}", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(calls, 1)
		switch r.PathValue("login") {
		case "octocat":
			_ = json.NewEncoder(w).Encode(map[string]any{"login": "octocat", "name": "The Octocat"})
		case "nameless":
			_ = json.NewEncoder(w).Encode(map[string]any{"login": "nameless"})
		case "broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
		}
	})
	mux.HandleFunc("GET /search/users", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(calls, 1)
		if r.URL.Query().Get("q") == "fail" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		users := []map[string]any{}
		for _, l := range []string{"oct", "octo", "octocat", "octopus", "octavia", "octave"} {
			users = append(users, map[string]any{"login": l, "avatar_url": "https://avatars.example/" + l})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"total_count": len(users),
			"per_page":    r.URL.Query().Get("per_page"),
			"items":       users,
		})
	})
	return httptest.NewServer(mux)
}

func TestClient(t *testing.T) {
	Convey("Given a client pointed at a fake GitHub API", t, func() {
		var calls int64
		srv := newServer(&calls)
		defer srv.Close()

		c, err := github.New(github.WithBaseURL(srv.URL), github.WithToken("t0ken"))
		So(err, ShouldBeNil)
		ctx := context.Background()

		Convey("Exists is true for a known login", func() {
			ok, err := c.Exists(ctx, "octocat")
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
		})

		Convey("Exists is false without error on 404", func() {
			ok, err := c.Exists(ctx, "ghost")
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("Exists reports server errors", func() {
			ok, err := c.Exists(ctx, "broken")
			So(ok, ShouldBeFalse)
			So(errors.Is(err, github.ErrLookup), ShouldBeTrue)
		})

		Convey("An empty login makes no call", func() {
			ok, err := c.Exists(ctx, "  ")
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
			So(atomic.LoadInt64(&calls), ShouldEqual, 0)
		})

		Convey("SearchUsers caps the result at limit", func() {
			got, err := c.SearchUsers(ctx, "oct", 5)
			So(err, ShouldBeNil)
			So(len(got), ShouldEqual, 5)
			So(got[2].Login, ShouldEqual, "octocat")
			So(got[2].AvatarURL, ShouldEqual, "https://avatars.example/octocat")
		})

		Convey("SearchUsers wraps failures", func() {
			_, err := c.SearchUsers(ctx, "fail", 5)
			So(errors.Is(err, github.ErrLookup), ShouldBeTrue)
		})

		Convey("DisplayName returns the profile name", func() {
			name, err := c.DisplayName(ctx, "octocat")
			So(err, ShouldBeNil)
			So(name, ShouldEqual, "The Octocat")

			name, err = c.DisplayName(ctx, "nameless")
			So(err, ShouldBeNil)
			So(name, ShouldBeEmpty)
		})
	})
}
