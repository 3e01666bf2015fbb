package metrics

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "playview")
				So(manager.subsystem, ShouldEqual, "playback")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.playsLoaded.Inc()

			Convey("Then the metrics should carry the namespace and labels", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				var found bool
				for _, mf := range families {
					if mf.GetName() != "test_namespace_test_subsystem_plays_loaded_total" {
						continue
					}
					found = true
					So(mf.GetMetric(), ShouldHaveLength, 1)
					labels := mf.GetMetric()[0].GetLabel()
					So(labels, ShouldHaveLength, 1)
					So(labels[0].GetName(), ShouldEqual, "env")
					So(labels[0].GetValue(), ShouldEqual, "test")
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When ignoring empty options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithConstLabels(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "playview")
				So(manager.subsystem, ShouldEqual, "playback")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		Convey("When recording playback metrics", func() {
			So(func() {
				RecordPlayLoaded()
				RecordPlayLoadFailure("server_error")
				RecordFrameRendered(0.4)
				RecordRefreshTick()
				UpdatePlaybackRunning(true)
				UpdatePlaybackRunning(false)
				UpdatePlaybackPosition(3, 40)
			}, ShouldNotPanic)
		})

		Convey("When recording resource and backend metrics", func() {
			So(func() {
				UpdateBackgroundReady(true)
				UpdateBackgroundReady(false)
				RecordResourceLoadError()
				RecordBackendRequest("play_data", "200", 12)
				RecordCacheHit()
				RecordCacheMiss()
			}, ShouldNotPanic)
		})

		Convey("When recording queue and stream metrics", func() {
			So(func() {
				UpdateQueueCapacity(64)
				UpdateQueueSize(3)
				UpdateQueueUtilization(3.0 / 64)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordFrameEncoded(4)
				RecordFrameDropped("stale")
				UpdateWorkerCount(2)
				UpdateViewerCount(1)
				RecordEventPublished("position", "ok")
			}, ShouldNotPanic)
		})

		Convey("When recording HTTP, error and system metrics", func() {
			So(func() {
				RecordHTTPRequest("playback", "GET", "200")
				RecordHTTPRequestDuration("playback", "GET", "200", 1.5)
				RecordErrorByComponent("loader", "server_error")
				RecordErrorByType("server_error", "high")
				RecordErrorByEndpoint("load", "POST", "server_error")
				RecordErrorLatency("http", "server_error", 20)
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)
		})

		Convey("Then the custom registry should expose them", func() {
			RecordPlayLoaded()
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)

			names := make(map[string]bool, len(families))
			for _, mf := range families {
				names[mf.GetName()] = true
			}
			So(names["playview_playback_plays_loaded_total"], ShouldBeTrue)
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					RecordFrameRendered(float64(j % 5))
					UpdatePlaybackPosition(j, 100)
					RecordFrameDropped("viewer")
				}
			}(i)
		}

		Convey("Then recording should not race or panic", func() {
			So(func() { wg.Wait() }, ShouldNotPanic)
		})
	})
}
