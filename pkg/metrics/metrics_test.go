package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then defaults are applied", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "jansou")
				So(manager.subsystem, ShouldEqual, "scoring")
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
				So(manager.Enabled(), ShouldBeTrue)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("sub"),
				WithMetricPrefix("pre"),
				WithLatencyBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(false),
				WithRefreshInterval(time.Second),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.groupsCreated.Inc()

			Convey("Then names carry namespace, subsystem and prefix", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := map[string]bool{}
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["test_sub_pre_groups_created_total"], ShouldBeTrue)
				So(manager.Enabled(), ShouldBeFalse)
				So(manager.RefreshInterval(), ShouldEqual, time.Second)
			})
		})

		Convey("When options carry empty values", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithLatencyBuckets(nil),
				WithRefreshInterval(0),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "jansou")
				So(manager.subsystem, ShouldEqual, "scoring")
				So(manager.latencyBuckets, ShouldResemble, defaultLatencyBuckets)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		m := Default()

		Convey("When recording session mutations", func() {
			before := testutil.ToFloat64(m.sessionMutations.WithLabelValues("submit", "ok"))
			RecordSessionMutation("submit", "ok")
			RecordSessionMutation("submit", "ok")
			RecordSessionMutation("submit", "duplicate")

			Convey("Then counts are split by op and outcome", func() {
				So(testutil.ToFloat64(m.sessionMutations.WithLabelValues("submit", "ok"))-before, ShouldEqual, 2)
			})
		})

		Convey("When recording standings cache lookups", func() {
			before := testutil.ToFloat64(m.standingsCache.WithLabelValues("hit"))
			RecordStandingsCache("hit")

			Convey("Then the hit counter moves", func() {
				So(testutil.ToFloat64(m.standingsCache.WithLabelValues("hit"))-before, ShouldEqual, 1)
			})
		})

		Convey("When recording summary recomputes", func() {
			before := testutil.ToFloat64(m.summaryRecomputes)
			RecordSummaryRecompute(1.5)

			Convey("Then the counter moves", func() {
				So(testutil.ToFloat64(m.summaryRecomputes)-before, ShouldEqual, 1)
			})
		})

		Convey("When recording standings warm-up", func() {
			before := testutil.ToFloat64(m.warmJobs.WithLabelValues("coalesced"))
			RecordWarmJob("coalesced")
			UpdateWarmQueueDepth(3)
			RecordWarmLatency(2)

			Convey("Then the job counter and queue depth move", func() {
				So(testutil.ToFloat64(m.warmJobs.WithLabelValues("coalesced"))-before, ShouldEqual, 1)
				So(testutil.ToFloat64(m.warmQueueDepth), ShouldEqual, 3)
			})
		})

		Convey("When recording the rest", func() {
			Convey("Then nothing panics", func() {
				So(func() {
					RecordMutationLatency("update", 3)
					RecordLockWait(0.2)
					RecordGroupCreated()
					RecordPlayerAdded()
					RecordStoreTxLatency(2)
					RecordStoreTxError()
					RecordRepositoryQueryLatency(0.5)
					RecordHTTPRequest("/api/groups", "POST", "201")
					RecordHTTPRequestDuration("/api/groups", "POST", "201", 4)
					RecordErrorByComponent("app", "internal")
					RecordErrorByEndpoint("/api/groups", "POST", "conflict")
					UpdateSystemMemoryUsage(1 << 20)
					UpdateSystemGoroutineCount(12)
					RecordSystemGCPauseTime(0.3)
				}, ShouldNotPanic)
			})
		})

		Convey("When gathering the registry", func() {
			families, err := GetRegistry().Gather()

			Convey("Then metrics are exposed", func() {
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		m := Default()
		before := testutil.ToFloat64(m.sessionMutations.WithLabelValues("delete", "ok"))

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				RecordSessionMutation("delete", "ok")
				RecordMutationLatency("delete", 1)
			}()
		}
		wg.Wait()

		Convey("Then no increment is lost", func() {
			So(testutil.ToFloat64(m.sessionMutations.WithLabelValues("delete", "ok"))-before, ShouldEqual, 50)
		})
	})
}
