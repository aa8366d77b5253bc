package smoke_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/conftix/internal/app"
	"github.com/okian/conftix/internal/config"
	"github.com/okian/conftix/internal/domain/lookup"
	"github.com/okian/conftix/internal/domain/submission"
	"github.com/okian/conftix/internal/smoke"
	"github.com/okian/conftix/pkg/logger"
)

func init() {
	_ = logger.Init()
}

type everyoneExists struct{}

func (everyoneExists) Exists(context.Context, string) (bool, error) { return true, nil }
func (everyoneExists) SearchUsers(context.Context, string, int) ([]lookup.Candidate, error) {
	return nil, nil
}
func (everyoneExists) DisplayName(context.Context, string) (string, error) { return "", nil }

type countingHost struct {
	uploads atomic.Int64
	fail    bool
}

func (h *countingHost) Ready() error { return nil }

func (h *countingHost) Upload(_ context.Context, req submission.UploadRequest) (submission.Upload, error) {
	if h.fail {
		return submission.Upload{}, errors.New("host unavailable")
	}
	h.uploads.Add(1)
	return submission.Upload{SecureURL: "https://img.example.com/" + req.PublicID, PublicID: req.PublicID}, nil
}

type quietBackend struct{}

func (quietBackend) Ready() error                                          { return nil }
func (quietBackend) Notify(context.Context, submission.Notification) error { return nil }

func startService(host submission.Uploader) (*httptest.Server, func()) {
	cfg := config.New()
	cfg.WorkerCount = 4
	cfg.QueueSize = 64
	cfg.HandleDebounceMS = 0
	cfg.SuggestDebounceMS = 0

	svc := service.New(
		service.WithConfig(cfg),
		service.WithLookup(everyoneExists{}, everyoneExists{}),
		service.WithUploader(host),
		service.WithNotifier(quietBackend{}),
	)
	if err := svc.Start(context.Background()); err != nil {
		panic(err)
	}
	mux := http.NewServeMux()
	if err := svc.Register(context.Background(), mux); err != nil {
		panic(err)
	}
	srv := httptest.NewServer(mux)
	return srv, func() {
		srv.Close()
		svc.Stop()
	}
}

func smokeConfig(base string, n int) *smoke.Config {
	return &smoke.Config{
		BaseURL:       base,
		Registrations: n,
		Workers:       4,
		Timeout:       5 * time.Second,
		TicketWait:    5 * time.Second,
		PollInterval:  10 * time.Millisecond,
		Handles:       []string{"@octocat", "@gopher"},
	}
}

func TestRun(t *testing.T) {
	Convey("Given a running registration service", t, func() {
		host := &countingHost{}
		srv, stop := startService(host)
		defer stop()

		Convey("When the smoke run submits several registrations", func() {
			out := filepath.Join(t.TempDir(), "results.json")
			cfg := smokeConfig(srv.URL, 6)
			cfg.OutputFile = out

			stats, err := smoke.Run(context.Background(), cfg)

			Convey("Then every ticket is stored exactly once", func() {
				So(err, ShouldBeNil)
				So(stats.Generated, ShouldEqual, 6)
				So(stats.Accepted, ShouldEqual, 6)
				So(stats.TicketsDone, ShouldEqual, 6)
				So(stats.TicketsFailed, ShouldEqual, 0)
				So(host.uploads.Load(), ShouldEqual, int64(6))
			})

			Convey("Then the results file lists each registration", func() {
				So(err, ShouldBeNil)
				data, readErr := os.ReadFile(out)
				So(readErr, ShouldBeNil)
				var results []smoke.Result
				So(json.Unmarshal(data, &results), ShouldBeNil)
				So(len(results), ShouldEqual, 6)
				So(results[0].RequestID, ShouldNotBeEmpty)
				So(results[0].State, ShouldEqual, "done")
				So(results[1].GitHub, ShouldEqual, "@gopher")
			})
		})
	})

	Convey("Given a service whose image host rejects uploads", t, func() {
		srv, stop := startService(&countingHost{fail: true})
		defer stop()

		Convey("The smoke run reports the failed tickets", func() {
			stats, err := smoke.Run(context.Background(), smokeConfig(srv.URL, 2))
			So(errors.Is(err, smoke.ErrSmokeFailed), ShouldBeTrue)
			So(stats.Accepted, ShouldEqual, 2)
			So(stats.TicketsFailed, ShouldEqual, 2)
		})
	})

	Convey("Given nothing listening", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		Convey("The health check fails before anything is submitted", func() {
			stats, err := smoke.Run(context.Background(), smokeConfig(srv.URL, 1))
			So(err, ShouldNotBeNil)
			So(stats.Generated, ShouldEqual, 0)
		})
	})
}
