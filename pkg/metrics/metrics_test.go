package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	. "github.com/smartystreets/goconvey/convey"
)

// valueOf reads the current value of a counter or gauge.
func valueOf(m prometheus.Metric) float64 {
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		return -1
	}
	if out.Counter != nil {
		return out.GetCounter().GetValue()
	}
	return out.GetGauge().GetValue()
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should use the default namespace", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "gliderindex")
				So(manager.subsystem, ShouldEqual, "reports")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.reportRuns.WithLabelValues("competition", StatusOK).Inc()

			Convey("Then metric names and constant labels should follow them", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				var found bool
				for _, f := range families {
					if f.GetName() == "test_namespace_test_subsystem_runs_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
					}
				}
				So(found, ShouldBeTrue)
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
			})
		})

		Convey("When options carry empty values", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithCustomLabels(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "gliderindex")
				So(manager.histogramBuckets, ShouldResemble, DefaultLatencyBuckets())
				So(manager.customLabels, ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		Convey("When recording ingestion and runs", func() {
			before := valueOf(globalManager.modelsIngested.WithLabelValues("index-list"))
			RecordModelsIngested("index-list", 42)
			RecordReportRun("index-list", StatusOK)
			RecordReportRun("index-list", StatusError)
			RecordReportDuration("index-list", 12.5)

			Convey("Then counters should move by the recorded amounts", func() {
				So(valueOf(globalManager.modelsIngested.WithLabelValues("index-list")), ShouldEqual, before+42)
				So(valueOf(globalManager.reportRuns.WithLabelValues("index-list", StatusError)), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When updating per class gauges", func() {
			UpdateClassEntries("competition", "15m Klasse", 7)
			UpdateClassEntries("competition", "15m Klasse", 3)
			UpdateRosterBuckets("Standard", 4)
			UpdateLastRun("competition", 1700000000)

			Convey("Then the last value should win", func() {
				So(valueOf(globalManager.classEntries.WithLabelValues("competition", "15m Klasse")), ShouldEqual, 3)
				So(valueOf(globalManager.rosterBuckets.WithLabelValues("Standard")), ShouldEqual, 4)
				So(valueOf(globalManager.lastRunUnix.WithLabelValues("competition")), ShouldEqual, 1700000000)
			})
		})

		Convey("When recording stage errors and cache lookups", func() {
			before := valueOf(globalManager.stageErrors.WithLabelValues("export"))
			RecordStageError("export")
			RecordCacheLookup("competition", true)
			RecordCacheLookup("competition", false)
			RecordPDFLatency(800)

			Convey("Then they should be counted", func() {
				So(valueOf(globalManager.stageErrors.WithLabelValues("export")), ShouldEqual, before+1)
				So(valueOf(globalManager.cacheLookups.WithLabelValues("competition", "hit")), ShouldBeGreaterThanOrEqualTo, 1)
				So(valueOf(globalManager.cacheLookups.WithLabelValues("competition", "miss")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording HTTP metrics", func() {
			So(func() {
				RecordHTTPRequest("/healthz", "GET", "200")
				RecordHTTPRequest("/index-list", "GET", "404")
				RecordHTTPRequestDuration("/competition", "GET", "200", 5.0)
			}, ShouldNotPanic)
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the custom registry", t, func() {
		RecordReportRun("competition", StatusOK)

		Convey("Then it should expose the report metrics", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			var names []string
			for _, f := range families {
				names = append(names, f.GetName())
			}
			So(strings.Join(names, ","), ShouldContainSubstring, "gliderindex_reports_runs_total")
		})
	})
}

// bucketCounts maps each upper bound of a histogram to its cumulative count.
func bucketCounts(m prometheus.Metric) map[float64]uint64 {
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		return nil
	}
	counts := make(map[float64]uint64)
	for _, b := range out.GetHistogram().GetBucket() {
		counts[b.GetUpperBound()] = b.GetCumulativeCount()
	}
	return counts
}

func TestDurationBuckets(t *testing.T) {
	Convey("Given a manager with default buckets", t, func() {
		manager := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))

		Convey("When a typical run and request duration are observed", func() {
			manager.reportDuration.WithLabelValues("index-list").Observe(180)
			manager.httpRequestDuration.WithLabelValues("index-list", "GET", "200").Observe(3)

			Convey("Then they should land in millisecond buckets below the top", func() {
				run := bucketCounts(manager.reportDuration.WithLabelValues("index-list").(prometheus.Metric))
				So(run[100], ShouldEqual, 0)
				So(run[250], ShouldEqual, 1)

				req := bucketCounts(manager.httpRequestDuration.WithLabelValues("index-list", "GET", "200").(prometheus.Metric))
				So(req[1], ShouldEqual, 0)
				So(req[5], ShouldEqual, 1)
			})
		})

		Convey("Then the bounds should be ascending milliseconds up to a minute", func() {
			b := DefaultLatencyBuckets()
			for i := 1; i < len(b); i++ {
				So(b[i], ShouldBeGreaterThan, b[i-1])
			}
			So(b[len(b)-1], ShouldEqual, 60000.0)
		})
	})
}
