package queue_test

import (
	"context"
	"testing"

	"github.com/sandlin/cma-scout/internal/adapters/mq/queue"
	"github.com/sandlin/cma-scout/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestInMemoryQueue(t *testing.T) {
	convey.Convey("Given a bounded in-memory queue", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(4))

		convey.Convey("When assignments are enqueued within capacity", func() {
			convey.So(q.Enqueue(ctx, model.Assignment{ID: "a-1"}), convey.ShouldBeTrue)
			convey.So(q.Enqueue(ctx, model.Assignment{ID: "a-2"}), convey.ShouldBeTrue)

			convey.Convey("Then the queue length reflects them", func() {
				convey.So(q.Len(ctx), convey.ShouldEqual, 2)
			})

			convey.Convey("And when the queue is closed", func() {
				convey.So(q.Close(), convey.ShouldBeNil)

				convey.Convey("Then buffered items still drain in order", func() {
					items := q.Dequeue(ctx)
					first := <-items
					second := <-items
					convey.So(first.ID, convey.ShouldEqual, "a-1")
					convey.So(second.ID, convey.ShouldEqual, "a-2")

					_, open := <-items
					convey.So(open, convey.ShouldBeFalse)
				})

				convey.Convey("Then further enqueues are rejected", func() {
					convey.So(q.Enqueue(ctx, model.Assignment{ID: "a-3"}), convey.ShouldBeFalse)
					convey.So(q.IsClosed(), convey.ShouldBeTrue)
				})

				convey.Convey("Then a second close is a no-op", func() {
					convey.So(q.Close(), convey.ShouldBeNil)
				})
			})
		})

		convey.Convey("When the queue is full", func() {
			for i := 0; i < 4; i++ {
				convey.So(q.Enqueue(ctx, model.Assignment{ID: "a"}), convey.ShouldBeTrue)
			}

			convey.Convey("Then enqueue reports backpressure instead of blocking", func() {
				convey.So(q.Enqueue(ctx, model.Assignment{ID: "overflow"}), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the dequeue context is canceled", func() {
			convey.So(q.Enqueue(ctx, model.Assignment{ID: "a-1"}), convey.ShouldBeTrue)
			drainCtx, cancel := context.WithCancel(ctx)
			items := q.Dequeue(drainCtx)
			cancel()

			convey.Convey("Then the delivery channel closes", func() {
				for range items {
					// Drain whatever was in flight before cancellation.
				}
				convey.So(q.IsClosed(), convey.ShouldBeFalse)
			})
		})
	})
}
