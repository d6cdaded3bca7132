package dedupe_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sandlin/cma-scout/internal/domain/dedupe"
	"github.com/smartystreets/goconvey/convey"
)

func TestKey(t *testing.T) {
	convey.Convey("Given alert dedupe keys", t, func() {
		convey.Convey("When built from competitor and type", func() {
			convey.So(dedupe.Key("c-1", "price_drift"), convey.ShouldEqual, "c-1:price_drift")
		})

		convey.Convey("When the same competitor fires different types", func() {
			convey.So(dedupe.Key("c-1", "price_drift"), convey.ShouldNotEqual, dedupe.Key("c-1", "name_change"))
		})
	})
}

func TestWindowDeduper(t *testing.T) {
	convey.Convey("Given a deduper with a controllable clock", t, func() {
		ctx := context.Background()
		now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
		clock := func() time.Time { return now }
		d := dedupe.NewWindowDeduper(dedupe.WithClock(clock))

		convey.Convey("When a key fires for the first time", func() {
			seen := d.SeenAndRecord(ctx, "c-1:price_drift")

			convey.Convey("Then it is recorded, not suppressed", func() {
				convey.So(seen, convey.ShouldBeFalse)
				convey.So(d.Size(), convey.ShouldEqual, 1)
			})

			convey.Convey("And when the same key fires inside the window", func() {
				now = now.Add(23 * time.Hour)

				convey.Convey("Then it is suppressed", func() {
					convey.So(d.SeenAndRecord(ctx, "c-1:price_drift"), convey.ShouldBeTrue)
				})
			})

			convey.Convey("And when the window has elapsed", func() {
				now = now.Add(25 * time.Hour)

				convey.Convey("Then the key may fire again", func() {
					convey.So(d.SeenAndRecord(ctx, "c-1:price_drift"), convey.ShouldBeFalse)
				})
			})
		})

		convey.Convey("When a claimed key is unrecorded after a failed write", func() {
			convey.So(d.SeenAndRecord(ctx, "c-1:new_entrant"), convey.ShouldBeFalse)
			d.Unrecord(ctx, "c-1:new_entrant")

			convey.Convey("Then the key may fire immediately", func() {
				convey.So(d.SeenAndRecord(ctx, "c-1:new_entrant"), convey.ShouldBeFalse)
				convey.So(d.Size(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When distinct keys fire", func() {
			convey.So(d.SeenAndRecord(ctx, "c-1:price_drift"), convey.ShouldBeFalse)
			convey.So(d.SeenAndRecord(ctx, "c-2:price_drift"), convey.ShouldBeFalse)
			convey.So(d.SeenAndRecord(ctx, "c-1:name_change"), convey.ShouldBeFalse)

			convey.Convey("Then they do not suppress each other", func() {
				convey.So(d.Size(), convey.ShouldEqual, 3)
			})
		})
	})

	convey.Convey("Given a shortened window", t, func() {
		ctx := context.Background()
		now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
		d := dedupe.NewWindowDeduper(
			dedupe.WithWindow(time.Hour),
			dedupe.WithClock(func() time.Time { return now }),
		)

		convey.Convey("When the key refires just past the hour", func() {
			convey.So(d.SeenAndRecord(ctx, "k"), convey.ShouldBeFalse)
			now = now.Add(61 * time.Minute)

			convey.Convey("Then it is no longer suppressed", func() {
				convey.So(d.SeenAndRecord(ctx, "k"), convey.ShouldBeFalse)
			})
		})
	})

	convey.Convey("Given a deduper past its sweep threshold", t, func() {
		ctx := context.Background()
		now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
		d := dedupe.NewWindowDeduper(
			dedupe.WithClock(func() time.Time { return now }),
			dedupe.WithSweepThreshold(8),
		)

		convey.Convey("When stale entries pile up and the window passes", func() {
			for i := 0; i < 8; i++ {
				convey.So(d.SeenAndRecord(ctx, fmt.Sprintf("old-%d", i)), convey.ShouldBeFalse)
			}
			now = now.Add(25 * time.Hour)
			convey.So(d.SeenAndRecord(ctx, "fresh"), convey.ShouldBeFalse)

			convey.Convey("Then expired entries are swept out", func() {
				convey.So(d.Size(), convey.ShouldEqual, 1)
			})
		})
	})
}
