package fingerprint_test

import (
	"context"
	"math"
	"testing"

	"github.com/sandlin/cma-scout/internal/domain/fingerprint"
	"github.com/sandlin/cma-scout/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestNormalizeName(t *testing.T) {
	convey.Convey("Given builder name normalization", t, func() {
		convey.Convey("When names differ only by case, punctuation, and suffixes", func() {
			convey.So(fingerprint.NormalizeName("Acme Homes LLC"), convey.ShouldEqual, "acme homes")
			convey.So(fingerprint.NormalizeName("ACME-HOMES, Inc."), convey.ShouldEqual, "acme homes")
			convey.So(fingerprint.NormalizeName("acme homes"), convey.ShouldEqual, "acme homes")
		})

		convey.Convey("When the name is only suffixes or empty", func() {
			convey.So(fingerprint.NormalizeName("LLC Inc"), convey.ShouldEqual, "")
			convey.So(fingerprint.NormalizeName(""), convey.ShouldEqual, "")
		})

		convey.Convey("When the name contains digits", func() {
			convey.So(fingerprint.NormalizeName("Sector 7 Builders"), convey.ShouldEqual, "sector 7 builders")
		})
	})
}

func TestSimilarity(t *testing.T) {
	convey.Convey("Given token-set similarity", t, func() {
		convey.Convey("When token sets are identical", func() {
			convey.So(fingerprint.Similarity("acme homes", "acme homes"), convey.ShouldEqual, 1)
		})

		convey.Convey("When token sets partially overlap", func() {
			// {acme, homes} vs {apex, homes}: 1 shared of 3 distinct.
			convey.So(fingerprint.Similarity("acme homes", "apex homes"), convey.ShouldAlmostEqual, 1.0/3.0, 1e-9)
		})

		convey.Convey("When token sets are disjoint", func() {
			convey.So(fingerprint.Similarity("acme homes", "lakeside villas"), convey.ShouldEqual, 0)
		})

		convey.Convey("When one side is empty", func() {
			convey.So(fingerprint.Similarity("", "acme homes"), convey.ShouldEqual, 0)
		})

		convey.Convey("When both sides are empty", func() {
			convey.So(fingerprint.Similarity("", ""), convey.ShouldEqual, 1)
		})
	})
}

func TestDistanceMiles(t *testing.T) {
	convey.Convey("Given great-circle distance", t, func() {
		convey.Convey("When the points coincide", func() {
			convey.So(fingerprint.DistanceMiles(32.7, -97.1, 32.7, -97.1), convey.ShouldEqual, 0)
		})

		convey.Convey("When the points are one degree of latitude apart", func() {
			d := fingerprint.DistanceMiles(32.0, -97.0, 33.0, -97.0)
			convey.So(d, convey.ShouldBeGreaterThan, 68)
			convey.So(d, convey.ShouldBeLessThan, 70)
		})
	})
}

func TestMatcher(t *testing.T) {
	convey.Convey("Given a matcher with known assignments and competitors", t, func() {
		ctx := context.Background()
		m := fingerprint.NewMatcher()

		assignments := []model.Assignment{
			{
				ID:          "a-1",
				Community:   "Rolling Hills",
				BuilderName: "Acme Homes",
				Location:    model.Location{Lat: 32.7, Lon: -97.1},
			},
		}
		competitors := []model.Competitor{
			{
				ID:       "c-1",
				Name:     "Apex Homes",
				Location: model.Location{Lat: 32.72, Lon: -97.12},
			},
		}

		convey.Convey("When an observation matches an assignment within radius", func() {
			obs := model.RawObservation{
				ObservedName: "Acme Homes LLC",
				Location:     model.Location{Lat: 32.71, Lon: -97.1},
			}
			match, err := m.Match(ctx, obs, assignments, competitors)

			convey.Convey("Then it resolves to the assignment inside the radius", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(match.Kind, convey.ShouldEqual, fingerprint.MatchedAssignment)
				convey.So(match.AssignmentID, convey.ShouldEqual, "a-1")
				convey.So(match.DistanceMiles, convey.ShouldBeLessThanOrEqualTo, m.Radius())
			})
		})

		convey.Convey("When an observation matches a competitor's name better", func() {
			obs := model.RawObservation{
				ObservedName: "Apex Homes",
				Location:     model.Location{Lat: 32.72, Lon: -97.12},
			}
			match, err := m.Match(ctx, obs, assignments, competitors)

			convey.Convey("Then it resolves to the competitor", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(match.Kind, convey.ShouldEqual, fingerprint.MatchedCompetitor)
				convey.So(match.CompetitorID, convey.ShouldEqual, "c-1")
			})
		})

		convey.Convey("When every candidate is beyond the radius", func() {
			// One degree of latitude is roughly 69 miles.
			obs := model.RawObservation{
				ObservedName: "Acme Homes",
				Location:     model.Location{Lat: 33.7, Lon: -97.1},
			}
			match, err := m.Match(ctx, obs, assignments, competitors)

			convey.Convey("Then it reports no match", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(match.Kind, convey.ShouldEqual, fingerprint.NoMatch)
			})
		})

		convey.Convey("When similarity and distance tie between kinds", func() {
			tied := []model.Competitor{{
				ID:       "c-2",
				Name:     "Acme Homes",
				Location: model.Location{Lat: 32.7, Lon: -97.1},
			}}
			obs := model.RawObservation{
				ObservedName: "Acme Homes",
				Location:     model.Location{Lat: 32.7, Lon: -97.1},
			}
			match, err := m.Match(ctx, obs, assignments, tied)

			convey.Convey("Then the assignment wins deterministically", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(match.Kind, convey.ShouldEqual, fingerprint.MatchedAssignment)
				convey.So(match.AssignmentID, convey.ShouldEqual, "a-1")
			})
		})

		convey.Convey("When the observation location is out of range", func() {
			obs := model.RawObservation{
				ObservedName: "Acme Homes",
				Location:     model.Location{Lat: 95, Lon: -97.1},
			}
			_, err := m.Match(ctx, obs, assignments, competitors)

			convey.Convey("Then it is rejected as invalid", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err, convey.ShouldWrap, fingerprint.ErrInvalidObservation)
			})
		})

		convey.Convey("When the observation coordinates are not finite", func() {
			cases := []model.Location{
				{Lat: math.NaN(), Lon: math.NaN()},
				{Lat: math.NaN(), Lon: -97.1},
				{Lat: 32.7, Lon: math.NaN()},
				{Lat: math.Inf(1), Lon: -97.1},
			}
			for _, loc := range cases {
				obs := model.RawObservation{
					ObservedName: "Acme Homes",
					Location:     loc,
				}
				_, err := m.Match(ctx, obs, assignments, competitors)

				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err, convey.ShouldWrap, fingerprint.ErrInvalidObservation)
			}
		})

		convey.Convey("When a custom radius is configured", func() {
			wide := fingerprint.NewMatcher(fingerprint.WithRadius(100))
			obs := model.RawObservation{
				ObservedName: "Acme Homes",
				Location:     model.Location{Lat: 33.7, Lon: -97.1},
			}
			match, err := wide.Match(ctx, obs, assignments, nil)

			convey.Convey("Then candidates inside the wider radius match", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(match.Kind, convey.ShouldEqual, fingerprint.MatchedAssignment)
			})
		})
	})
}
