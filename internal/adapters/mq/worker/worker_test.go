package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/proctor/internal/adapters/mq/queue"
	worker "github.com/okian/proctor/internal/adapters/mq/worker"
	model "github.com/okian/proctor/internal/domain/model"
	logging "github.com/okian/proctor/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockRecorder struct {
	mu       sync.Mutex
	recorded []model.Event
	failFor  map[string]error
	delay    time.Duration
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{failFor: make(map[string]error)}
}

func (m *mockRecorder) Record(_ context.Context, e model.Event) error {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failFor[e.ID]; ok {
		return err
	}
	m.recorded = append(m.recorded, e)
	return nil
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recorded)
}

func event(i int) model.Event {
	return model.Event{
		ID:        fmt.Sprintf("e-%d", i),
		SessionID: "s-1",
		Type:      model.EventFocusLost,
		Timestamp: time.Date(2025, 3, 1, 9, 0, i, 0, time.UTC),
	}
}

func TestPool(t *testing.T) {
	if err := logging.Init(); err != nil {
		t.Fatalf("logger init: %v", err)
	}
	ctx := context.Background()

	convey.Convey("Given a pool over an in-memory queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		rec := newMockRecorder()
		pool := worker.NewPool(4, q, rec, worker.WithName("test-pool"))

		convey.Convey("When events are queued and the pool shuts down", func() {
			pool.Start(ctx)
			pool.Start(ctx)
			for i := range 50 {
				convey.So(q.Enqueue(ctx, event(i)), convey.ShouldBeNil)
			}
			err := pool.Shutdown(ctx)

			convey.Convey("Then every event is recorded before the workers exit", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(rec.count(), convey.ShouldEqual, 50)
				convey.So(pool.Processed(), convey.ShouldEqual, 50)
				convey.So(pool.Failed(), convey.ShouldEqual, 0)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the recorder rejects an event", func() {
			rec.failFor["e-1"] = errors.New("store offline")
			pool.Start(ctx)
			for i := range 3 {
				convey.So(q.Enqueue(ctx, event(i)), convey.ShouldBeNil)
			}
			convey.So(pool.Shutdown(ctx), convey.ShouldBeNil)

			convey.Convey("Then the failure is counted and the rest still recorded", func() {
				convey.So(pool.Failed(), convey.ShouldEqual, 1)
				convey.So(pool.Processed(), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the shutdown deadline is shorter than the backlog", func() {
			rec.delay = 50 * time.Millisecond
			slow := worker.NewPool(1, q, rec)
			slow.Start(ctx)
			for i := range 10 {
				convey.So(q.Enqueue(ctx, event(i)), convey.ShouldBeNil)
			}
			short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
			defer cancel()
			err := slow.Shutdown(short)

			convey.Convey("Then shutdown reports the timeout", func() {
				convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the run context is canceled", func() {
			runCtx, cancel := context.WithCancel(ctx)
			pool.Start(runCtx)
			cancel()

			convey.Convey("Then shutdown returns once the workers have stopped", func() {
				convey.So(pool.Shutdown(ctx), convey.ShouldBeNil)
			})
		})
	})

	convey.Convey("Given a pool size below one", t, func() {
		pool := worker.NewPool(0, queue.NewInMemoryQueue(), newMockRecorder())

		convey.Convey("Then a CPU based default is used", func() {
			convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
		})
	})
}
