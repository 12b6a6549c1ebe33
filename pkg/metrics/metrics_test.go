package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a fresh registry and custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("judging"),
				WithHistogramBuckets([]float64{1, 5, 10}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered under the custom namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.scoreRetries.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := map[string]bool{}
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["test_judging_score_retries_total"], ShouldBeTrue)
			})
		})

		Convey("When registering twice on the same registry", func() {
			registry := prometheus.NewRegistry()
			_ = NewManager(WithPrometheusRegistry(registry))

			Convey("Then the duplicate registration panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestJudgingMetrics(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording score writes", func() {
			before := testutil.ToFloat64(globalManager.scoreWrites.WithLabelValues("created"))
			RecordScoreWrite("created")
			RecordScoreWrite("created")

			Convey("Then the labelled counter grows", func() {
				So(testutil.ToFloat64(globalManager.scoreWrites.WithLabelValues("created")), ShouldEqual, before+2)
			})
		})

		Convey("When recording eligibility decisions without a match", func() {
			before := testutil.ToFloat64(globalManager.eligibilityChecks.WithLabelValues("ineligible", "none"))
			RecordEligibilityCheck(false, "")

			Convey("Then the match label defaults to none", func() {
				So(testutil.ToFloat64(globalManager.eligibilityChecks.WithLabelValues("ineligible", "none")), ShouldEqual, before+1)
			})
		})

		Convey("When recording shortlist, toggle and distribution activity", func() {
			So(func() {
				RecordShortlistRun("top_n", 3)
				RecordShortlistToggle("shortlisted")
				RecordAutoDistribute([]int{3, 3, 2, 2, 2})
				RecordAggregateRebuild("ok")
				RecordScoreRejected("out_of_range")
				RecordScoreRetry()
			}, ShouldNotPanic)
		})

		Convey("When recording infrastructure metrics", func() {
			So(func() {
				RecordHTTPRequest("score", "POST", "200")
				RecordHTTPRequestDuration("score", "POST", "200", 4)
				RecordStoreLatency("upsert_score", 1.5)
				RecordLockWait(0.2)
				RecordLockFailure()
				UpdateQueueCapacity(10)
				UpdateQueueSize(2)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				UpdateWorkerActiveCount(4)
				RecordWorkerProcessingLatency(3)
				RecordWorkerError()
				RecordErrorByComponent("ledger", "transient")
				RecordErrorByType("server_error", "high")
				RecordErrorByEndpoint("score", "POST", "client_error")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.4)
			}, ShouldNotPanic)

			Convey("Then the queue gauge reflects the last update", func() {
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 2)
			})
		})

		Convey("Then GetRegistry exposes the custom registry", func() {
			So(GetRegistry(), ShouldEqual, customRegistry)
		})
	})
}
