package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then its collectors are registered under the namespace", func() {
				manager.eventsDuplicate.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(families, ShouldNotBeEmpty)

				found := false
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "test_unit_"), ShouldBeTrue)
					if f.GetName() == "test_unit_events_duplicate_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "test")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When two managers share one registry", func() {
			registry := prometheus.NewRegistry()
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second registration panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		Convey("When ingest events are recorded", func() {
			before := testutil.ToFloat64(globalManager.eventsIngested.WithLabelValues("focus-lost"))
			RecordEventIngested("focus-lost")
			RecordEventIngested("focus-lost")
			RecordEventDuplicate()
			RecordEventRejected("invalid")
			RecordEventRecorded()

			Convey("Then the labelled counter grows", func() {
				after := testutil.ToFloat64(globalManager.eventsIngested.WithLabelValues("focus-lost"))
				So(after-before, ShouldEqual, 2)
			})
		})

		Convey("When an analysis is recorded", func() {
			before := testutil.ToFloat64(globalManager.riskLevels.WithLabelValues("critical"))
			RecordAnalysis(1.5, 12, "critical")

			Convey("Then the risk level is counted", func() {
				So(testutil.ToFloat64(globalManager.riskLevels.WithLabelValues("critical"))-before, ShouldEqual, 1)
			})
		})

		Convey("When gauges are set", func() {
			UpdateQueueSize(7)
			UpdateQueueCapacity(10)
			UpdateQueueUtilization(0.7)
			UpdateWorkerCount(4)
			UpdateWorkerActiveCount(3)
			UpdateSessionsTotal(2)

			Convey("Then they hold the last value", func() {
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.queueUtilization), ShouldEqual, 0.7)
				So(testutil.ToFloat64(globalManager.workerActiveCount), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.sessionsTotal), ShouldEqual, 2)
			})
		})

		Convey("When live clients connect and leave", func() {
			before := testutil.ToFloat64(globalManager.liveClients)
			UpdateLiveClients(1)
			UpdateLiveClients(1)
			UpdateLiveClients(-1)

			Convey("Then the gauge tracks the difference", func() {
				So(testutil.ToFloat64(globalManager.liveClients)-before, ShouldEqual, 1)
			})
		})

		Convey("When the remaining helpers are called", func() {
			So(func() {
				RecordPrediction("medium")
				RecordLegacyScoreUpdate()
				RecordLiveSnapshotPushed()
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordWorkerProcessingLatency(2)
				RecordWorkerError()
				RecordRepositoryWriteLatency(0.3)
				RecordRepositoryQueryLatency(0.2)
				RecordHTTPRequest("/healthz", "GET", "200")
				RecordHTTPRequestDuration("/healthz", "GET", "200", 0.4)
				RecordErrorByComponent("worker", "record")
				CollectSystem()
			}, ShouldNotPanic)

			Convey("Then the registry gathers cleanly", func() {
				_, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				So(testutil.ToFloat64(globalManager.systemGoroutineCount), ShouldBeGreaterThan, 0)
			})
		})
	})
}
