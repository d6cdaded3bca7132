package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/sandlin/cma-scout/internal/adapters/repository"
	"github.com/sandlin/cma-scout/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestMemStore(t *testing.T) {
	convey.Convey("Given an empty in-memory store", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()

		convey.Convey("When listing before any writes", func() {
			assignments, err := store.ListAssignments(ctx)
			convey.So(err, convey.ShouldBeNil)
			convey.So(assignments, convey.ShouldBeEmpty)

			alerts, err := store.ListAlerts(ctx)
			convey.So(err, convey.ShouldBeNil)
			convey.So(alerts, convey.ShouldBeEmpty)
		})

		convey.Convey("When fetching a missing entity", func() {
			_, err := store.GetAssignment(ctx, "missing")
			convey.So(err, convey.ShouldEqual, repository.ErrNotFound)

			_, err = store.GetCompetitor(ctx, "missing")
			convey.So(err, convey.ShouldEqual, repository.ErrNotFound)
		})

		convey.Convey("When assignments are written out of order", func() {
			convey.So(store.PutAssignment(ctx, model.Assignment{ID: "a-2", Community: "Stone Creek"}), convey.ShouldBeNil)
			convey.So(store.PutAssignment(ctx, model.Assignment{ID: "a-1", Community: "Rolling Hills"}), convey.ShouldBeNil)

			convey.Convey("Then listings come back ordered by id", func() {
				assignments, err := store.ListAssignments(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(assignments, convey.ShouldHaveLength, 2)
				convey.So(assignments[0].ID, convey.ShouldEqual, "a-1")
				convey.So(assignments[1].ID, convey.ShouldEqual, "a-2")
			})

			convey.Convey("Then a rewrite replaces in place", func() {
				convey.So(store.PutAssignment(ctx, model.Assignment{ID: "a-1", Community: "Rolling Hills West"}), convey.ShouldBeNil)
				got, err := store.GetAssignment(ctx, "a-1")
				convey.So(err, convey.ShouldBeNil)
				convey.So(got.Community, convey.ShouldEqual, "Rolling Hills West")
			})
		})

		convey.Convey("When an outcome is applied", func() {
			score := 98
			now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
			outcome := repository.Outcome{
				Assignment: &model.Assignment{
					ID:             "a-1",
					BuilderName:    "Acme Homes",
					CompetitorID:   "c-1",
					AlignmentScore: &score,
					Status:         model.StatusMatched,
				},
				Competitor: &model.Competitor{
					ID:          "c-1",
					Name:        "Acme Homes LLC",
					LastScraped: now,
				},
				Alerts: []model.Alert{{
					ID:           "alert-1",
					CompetitorID: "c-1",
					Type:         model.AlertNewEntrant,
					Severity:     model.SeverityLow,
					Date:         now,
				}},
			}
			convey.So(store.ApplyOutcome(ctx, outcome), convey.ShouldBeNil)

			convey.Convey("Then all three entities land together", func() {
				a, err := store.GetAssignment(ctx, "a-1")
				convey.So(err, convey.ShouldBeNil)
				convey.So(a.Status, convey.ShouldEqual, model.StatusMatched)
				convey.So(a.Tracked(), convey.ShouldBeTrue)

				c, err := store.GetCompetitor(ctx, "c-1")
				convey.So(err, convey.ShouldBeNil)
				convey.So(c.Name, convey.ShouldEqual, "Acme Homes LLC")

				alerts, err := store.ListAlerts(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(alerts, convey.ShouldHaveLength, 1)
			})

			convey.Convey("And when more alerts arrive later", func() {
				later := now.Add(time.Hour)
				convey.So(store.ApplyOutcome(ctx, repository.Outcome{
					Alerts: []model.Alert{{
						ID:           "alert-2",
						CompetitorID: "c-1",
						Type:         model.AlertPriceDrift,
						Severity:     model.SeverityMedium,
						Date:         later,
					}},
				}), convey.ShouldBeNil)

				convey.Convey("Then listings come back newest first", func() {
					alerts, err := store.ListAlerts(ctx)
					convey.So(err, convey.ShouldBeNil)
					convey.So(alerts, convey.ShouldHaveLength, 2)
					convey.So(alerts[0].ID, convey.ShouldEqual, "alert-2")
					convey.So(alerts[1].ID, convey.ShouldEqual, "alert-1")
				})
			})
		})

		convey.Convey("When the context is already canceled", func() {
			canceled, cancel := context.WithCancel(ctx)
			cancel()

			convey.Convey("Then reads and writes fail fast", func() {
				_, err := store.ListAssignments(canceled)
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(store.ApplyOutcome(canceled, repository.Outcome{}), convey.ShouldNotBeNil)
				convey.So(store.Ping(canceled), convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When pinging a live store", func() {
			convey.So(store.Ping(ctx), convey.ShouldBeNil)
		})
	})
}
