package alerting_test

import (
	"testing"
	"time"

	"github.com/sandlin/cma-scout/internal/domain/alerting"
	"github.com/sandlin/cma-scout/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestClassify(t *testing.T) {
	convey.Convey("Given the default classifier", t, func() {
		c := alerting.NewClassifier()

		convey.Convey("When a pair is observed for the first time", func() {
			out := c.Classify(alerting.PairState{}, alerting.Observation{
				CompetitorID:   "c-1",
				CompetitorName: "Acme Homes LLC",
				DetectedName:   "Acme Homes LLC",
				Score:          98,
				DistanceMiles:  2,
			})

			convey.Convey("Then exactly one new_entrant alert fires at low severity", func() {
				convey.So(out.Alerts, convey.ShouldHaveLength, 1)
				convey.So(out.Alerts[0].Type, convey.ShouldEqual, model.AlertNewEntrant)
				convey.So(out.Alerts[0].Severity, convey.ShouldEqual, model.SeverityLow)
				convey.So(out.Status, convey.ShouldEqual, model.StatusMatched)
			})
		})

		convey.Convey("When a tracked pair re-observes unchanged data", func() {
			prev := alerting.PairState{
				Tracked:          true,
				LastScore:        98,
				LastDetectedName: "Acme Homes LLC",
				LastPriceMin:     300_000,
				LastPriceMax:     350_000,
			}
			out := c.Classify(prev, alerting.Observation{
				CompetitorID: "c-1",
				DetectedName: "Acme Homes LLC",
				Score:        98,
				PriceMin:     300_000,
				PriceMax:     350_000,
			})

			convey.Convey("Then no alert fires", func() {
				convey.So(out.Alerts, convey.ShouldBeEmpty)
				convey.So(out.Status, convey.ShouldEqual, model.StatusMatched)
			})
		})

		convey.Convey("When the score drifts past the threshold on a price change", func() {
			prev := alerting.PairState{
				Tracked:          true,
				LastScore:        98,
				LastDetectedName: "Acme Homes LLC",
				LastPriceMin:     300_000,
				LastPriceMax:     350_000,
			}
			out := c.Classify(prev, alerting.Observation{
				CompetitorID: "c-1",
				DetectedName: "Acme Homes LLC",
				Score:        58,
				PriceMin:     500_000,
				PriceMax:     550_000,
			})

			convey.Convey("Then price_drift fires at medium severity above the floor", func() {
				convey.So(out.Alerts, convey.ShouldHaveLength, 1)
				convey.So(out.Alerts[0].Type, convey.ShouldEqual, model.AlertPriceDrift)
				convey.So(out.Alerts[0].Severity, convey.ShouldEqual, model.SeverityMedium)
			})
		})

		convey.Convey("When the score crosses below the severity floor", func() {
			prev := alerting.PairState{
				Tracked:          true,
				LastScore:        60,
				LastDetectedName: "Acme Homes LLC",
				LastPriceMin:     300_000,
				LastPriceMax:     350_000,
			}
			out := c.Classify(prev, alerting.Observation{
				CompetitorID: "c-1",
				DetectedName: "Acme Homes LLC",
				Score:        35,
				PriceMin:     500_000,
				PriceMax:     550_000,
			})

			convey.Convey("Then price_drift fires at high severity", func() {
				convey.So(out.Alerts, convey.ShouldHaveLength, 1)
				convey.So(out.Alerts[0].Type, convey.ShouldEqual, model.AlertPriceDrift)
				convey.So(out.Alerts[0].Severity, convey.ShouldEqual, model.SeverityHigh)
			})
		})

		convey.Convey("When the score moves without a price band change", func() {
			prev := alerting.PairState{
				Tracked:          true,
				LastScore:        98,
				LastDetectedName: "Acme Homes LLC",
				LastPriceMin:     300_000,
				LastPriceMax:     350_000,
			}
			out := c.Classify(prev, alerting.Observation{
				CompetitorID: "c-1",
				DetectedName: "Acme Homes LLC",
				Score:        70,
				PriceMin:     300_000,
				PriceMax:     350_000,
			})

			convey.Convey("Then no price_drift fires", func() {
				convey.So(out.Alerts, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When the detected name changes", func() {
			prev := alerting.PairState{
				Tracked:          true,
				LastScore:        98,
				LastDetectedName: "Acme Homes LLC",
				LastPriceMin:     300_000,
				LastPriceMax:     350_000,
			}
			out := c.Classify(prev, alerting.Observation{
				CompetitorID: "c-1",
				DetectedName: "Summit Builders",
				Score:        90,
				PriceMin:     300_000,
				PriceMax:     350_000,
			})

			convey.Convey("Then name_change fires at medium and the pair turns mismatched", func() {
				convey.So(out.Alerts, convey.ShouldHaveLength, 1)
				convey.So(out.Alerts[0].Type, convey.ShouldEqual, model.AlertNameChange)
				convey.So(out.Alerts[0].Severity, convey.ShouldEqual, model.SeverityMedium)
				convey.So(out.Status, convey.ShouldEqual, model.StatusMismatched)
			})
		})

		convey.Convey("When the name change is only cosmetic", func() {
			prev := alerting.PairState{
				Tracked:          true,
				LastScore:        98,
				LastDetectedName: "Acme Homes LLC",
				LastPriceMin:     300_000,
				LastPriceMax:     350_000,
			}
			out := c.Classify(prev, alerting.Observation{
				CompetitorID: "c-1",
				DetectedName: "ACME HOMES, Inc.",
				Score:        98,
				PriceMin:     300_000,
				PriceMax:     350_000,
			})

			convey.Convey("Then no name_change fires", func() {
				convey.So(out.Alerts, convey.ShouldBeEmpty)
				convey.So(out.Status, convey.ShouldEqual, model.StatusMatched)
			})
		})

		convey.Convey("When both price and name move in one observation", func() {
			prev := alerting.PairState{
				Tracked:          true,
				LastScore:        98,
				LastDetectedName: "Acme Homes LLC",
				LastPriceMin:     300_000,
				LastPriceMax:     350_000,
			}
			out := c.Classify(prev, alerting.Observation{
				CompetitorID: "c-1",
				DetectedName: "Summit Builders",
				Score:        40,
				PriceMin:     500_000,
				PriceMax:     550_000,
			})

			convey.Convey("Then one alert per category fires", func() {
				convey.So(out.Alerts, convey.ShouldHaveLength, 2)
				convey.So(out.Alerts[0].Type, convey.ShouldEqual, model.AlertPriceDrift)
				convey.So(out.Alerts[1].Type, convey.ShouldEqual, model.AlertNameChange)
			})
		})
	})
}

func TestClassifyStale(t *testing.T) {
	convey.Convey("Given the default freshness window", t, func() {
		c := alerting.NewClassifier()
		now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

		convey.Convey("When a tracked competitor has gone dark past the window", func() {
			prev := alerting.PairState{
				Tracked:     true,
				LastScraped: now.Add(-15 * 24 * time.Hour),
			}
			out := c.ClassifyStale(prev, now)

			convey.Convey("Then stale_data fires at low severity", func() {
				convey.So(out, convey.ShouldNotBeNil)
				convey.So(out.Status, convey.ShouldEqual, model.StatusStale)
				convey.So(out.Alerts, convey.ShouldHaveLength, 1)
				convey.So(out.Alerts[0].Type, convey.ShouldEqual, model.AlertStaleData)
				convey.So(out.Alerts[0].Severity, convey.ShouldEqual, model.SeverityLow)
			})
		})

		convey.Convey("When the competitor was observed inside the window", func() {
			prev := alerting.PairState{
				Tracked:     true,
				LastScraped: now.Add(-13 * 24 * time.Hour),
			}

			convey.Convey("Then nothing fires", func() {
				convey.So(c.ClassifyStale(prev, now), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the pair was never tracked", func() {
			prev := alerting.PairState{LastScraped: now.Add(-30 * 24 * time.Hour)}

			convey.Convey("Then nothing fires", func() {
				convey.So(c.ClassifyStale(prev, now), convey.ShouldBeNil)
			})
		})
	})

	convey.Convey("Given a shortened freshness window", t, func() {
		c := alerting.NewClassifier(alerting.WithFreshnessWindow(48 * time.Hour))
		now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

		convey.Convey("When the competitor is three days dark", func() {
			prev := alerting.PairState{
				Tracked:     true,
				LastScraped: now.Add(-72 * time.Hour),
			}

			convey.Convey("Then stale_data fires under the custom window", func() {
				convey.So(c.ClassifyStale(prev, now), convey.ShouldNotBeNil)
			})
		})
	})
}
