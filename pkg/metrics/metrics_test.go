package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given manager creation", t, func() {
		Convey("When creating with default options", func() {
			manager := NewManager(WithRegistry(prometheus.NewRegistry()))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.Registry(), ShouldNotBeNil)
				So(manager.Handler(), ShouldNotBeNil)
			})
		})

		Convey("When creating with a custom namespace", func() {
			manager := NewManager(
				WithNamespace("test_scout"),
				WithRegistry(prometheus.NewRegistry()),
			)

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating with an empty namespace", func() {
			manager := NewManager(
				WithNamespace(""),
				WithRegistry(prometheus.NewRegistry()),
			)

			Convey("Then the default namespace is kept", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, defaultNamespace)
			})
		})

		Convey("When creating with a nil registry option", func() {
			manager := NewManager(WithRegistry(nil))

			Convey("Then a fresh registry is used", func() {
				So(manager, ShouldNotBeNil)
				So(manager.Registry(), ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given an isolated global manager", t, func() {
		previous := get()
		SetGlobal(NewManager(WithRegistry(prometheus.NewRegistry())))
		defer SetGlobal(previous)

		Convey("When recording pass metrics", func() {
			Convey("Then finished passes should record by result", func() {
				So(func() {
					RecordPassFinished("done")
					RecordPassFinished("error")
					RecordPassFinished("canceled")
				}, ShouldNotPanic)
			})

			Convey("And pass duration and progress should record", func() {
				So(func() {
					RecordPassDuration(0.5)
					RecordPassDuration(12.0)
					UpdatePassProgress(0)
					UpdatePassProgress(95)
					UpdatePassProgress(100)
				}, ShouldNotPanic)
			})
		})

		Convey("When recording observation and alert metrics", func() {
			Convey("Then observations should record by outcome", func() {
				So(func() {
					RecordObservation("processed")
					RecordObservation("invalid")
					RecordObservation("error")
				}, ShouldNotPanic)
			})

			Convey("And alerts should record by type and severity", func() {
				So(func() {
					RecordAlert("price_drift", "medium")
					RecordAlert("new_entrant", "low")
					RecordAlert("name_change", "high")
					RecordAlertSuppressed()
				}, ShouldNotPanic)
			})
		})

		Convey("When recording ingestion metrics", func() {
			So(func() {
				RecordIngestRetry()
				RecordIngestRetry()
				RecordIngestFailure("transient")
				RecordIngestFailure("permanent")
			}, ShouldNotPanic)
		})

		Convey("When recording operational metrics", func() {
			So(func() {
				UpdateQueueSize(0)
				UpdateQueueSize(256)
				UpdateEntityCounts(10, 25)
				RecordStoreLatency(1.5)
				RecordStoreLatency(250.0)
			}, ShouldNotPanic)
		})

		Convey("When recording HTTP metrics", func() {
			So(func() {
				RecordHTTPRequest("health", "GET", "200")
				RecordHTTPRequest("agent_run", "POST", "409")
				RecordHTTPRequestDuration("health", "GET", 0.001)
				RecordHTTPRequestDuration("alerts", "GET", 0.25)
			}, ShouldNotPanic)
		})

		Convey("When recording with edge values", func() {
			So(func() {
				UpdateQueueSize(-1)
				UpdateEntityCounts(0, 0)
				RecordPassDuration(0)
				RecordStoreLatency(100000)
				RecordHTTPRequest("", "", "")
				RecordHTTPRequestDuration("", "", 0)
			}, ShouldNotPanic)
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		previous := get()
		SetGlobal(NewManager(WithRegistry(prometheus.NewRegistry())))
		defer SetGlobal(previous)

		done := make(chan bool, 10)
		for i := 0; i < 10; i++ {
			go func() {
				for j := 0; j < 100; j++ {
					RecordObservation("processed")
					UpdateQueueSize(j)
					RecordStoreLatency(float64(j))
					RecordHTTPRequest("alerts", "GET", "200")
				}
				done <- true
			}()
		}
		for i := 0; i < 10; i++ {
			<-done
		}

		Convey("Then concurrent access should not panic", func() {
			So(true, ShouldBeTrue)
		})
	})
}

func TestSetGlobal(t *testing.T) {
	Convey("Given the process-wide manager", t, func() {
		previous := get()
		defer SetGlobal(previous)

		Convey("When replacing it", func() {
			replacement := NewManager(WithRegistry(prometheus.NewRegistry()))
			SetGlobal(replacement)

			Convey("Then the helpers route to the replacement", func() {
				So(get(), ShouldEqual, replacement)
				So(GetRegistry(), ShouldEqual, replacement.Registry())
			})
		})

		Convey("When replacing it with nil", func() {
			SetGlobal(nil)

			Convey("Then the current manager is kept", func() {
				So(get(), ShouldNotBeNil)
			})
		})
	})
}
