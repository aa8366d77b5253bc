package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry and custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered under the namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.submissions.WithLabelValues("accepted").Inc()

				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_unit_submissions_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording submission metrics", func() {
			before := testutil.ToFloat64(globalManager.submissions.WithLabelValues("invalid"))
			RecordSubmission("invalid")
			RecordDuplicateTrigger()
			RecordPipelineResult("failure", "upload")
			RecordStageLatency("capture", 12)

			Convey("Then the counters move", func() {
				So(testutil.ToFloat64(globalManager.submissions.WithLabelValues("invalid")), ShouldEqual, before+1)
			})
		})

		Convey("When recording live feedback and queue metrics", func() {
			So(func() {
				RecordAvatarCompression("ok")
				RecordAvatarBytes(120_000)
				RecordHandleCheck("stale")
				RecordSuggestionSearch("cancelled")
				UpdateActiveSessions(3)
				UpdateStoredOutcomes(7)
				RecordOutboundRequest("github", "2xx", 40)
				UpdateQueueSize(2)
				UpdateQueueCapacity(10)
				UpdateQueueUtilization(0.2)
				RecordQueueEnqueueError("queue_full")
				UpdateWorkerCount(4)
				RecordHTTPRequest("register", "POST", "303")
				RecordHTTPRequestDuration("register", "POST", "303", 15)
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.2)
			}, ShouldNotPanic)

			Convey("Then gauges hold the last value", func() {
				So(testutil.ToFloat64(globalManager.activeSessions), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 4)
			})
		})

		Convey("When gathering the custom registry", func() {
			RecordHandleCheck("exists")
			families, err := GetRegistry().Gather()

			Convey("Then only conftix metrics are exposed", func() {
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "conftix_"), ShouldBeTrue)
				}
			})
		})
	})
}

func TestStatusClass(t *testing.T) {
	Convey("Given HTTP status codes", t, func() {
		So(StatusClass(0), ShouldEqual, "error")
		So(StatusClass(201), ShouldEqual, "2xx")
		So(StatusClass(302), ShouldEqual, "3xx")
		So(StatusClass(404), ShouldEqual, "4xx")
		So(StatusClass(503), ShouldEqual, "5xx")
	})
}
