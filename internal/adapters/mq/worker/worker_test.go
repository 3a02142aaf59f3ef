package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/bonk/internal/adapters/mq/queue"
	"github.com/okian/bonk/internal/adapters/mq/worker"
	"github.com/okian/bonk/internal/domain/model"
	"github.com/okian/bonk/internal/domain/scores"
	"github.com/smartystreets/goconvey/convey"
)

type mockSubmitter struct {
	mu     sync.Mutex
	calls  []string
	errs   map[string]error
	result scores.Result
	delay  time.Duration
}

func newMockSubmitter() *mockSubmitter {
	return &mockSubmitter{errs: make(map[string]error), result: scores.ResultInserted}
}

func (m *mockSubmitter) Submit(ctx context.Context, name string, _ int) (scores.Result, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
	if err, ok := m.errs[name]; ok {
		return 0, err
	}
	return m.result, nil
}

type collector struct {
	mu   sync.Mutex
	got  []worker.Completion
	seen chan struct{}
}

func newCollector() *collector {
	return &collector{seen: make(chan struct{}, 100)}
}

func (c *collector) complete(_ context.Context, comp worker.Completion) {
	c.mu.Lock()
	c.got = append(c.got, comp)
	c.mu.Unlock()
	c.seen <- struct{}{}
}

func (c *collector) wait(t *testing.T, n int) []worker.Completion {
	t.Helper()
	for range n {
		select {
		case <-c.seen:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %d completions", n)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]worker.Completion(nil), c.got...)
}

func TestWorker(t *testing.T) {
	convey.Convey("Given a worker reading from a queue", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		sub := newMockSubmitter()
		col := newCollector()
		w := worker.NewInMemoryWorker(q, sub, col.complete, worker.WithName("test-worker"))
		go w.Run(ctx)

		convey.Convey("When a submission succeeds", func() {
			convey.So(q.Enqueue(ctx, model.Submission{ID: "s1", Round: 3, Name: "Alice", Score: 9}), convey.ShouldBeNil)
			got := col.wait(t, 1)

			convey.Convey("Then the completion carries the result", func() {
				convey.So(got[0].Err, convey.ShouldBeNil)
				convey.So(got[0].Result, convey.ShouldEqual, scores.ResultInserted)
				convey.So(got[0].Submission.Round, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When the store fails", func() {
			sub.errs["Bob"] = scores.ErrStore
			convey.So(q.Enqueue(ctx, model.Submission{ID: "s2", Name: "Bob"}), convey.ShouldBeNil)
			got := col.wait(t, 1)

			convey.Convey("Then the error is reported and keeps its kind", func() {
				convey.So(errors.Is(got[0].Err, scores.ErrStore), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the queue is closed", func() {
			convey.So(q.Close(), convey.ShouldBeNil)

			convey.Convey("Then the worker stops", func() {
				select {
				case <-w.Done():
				case <-time.After(time.Second):
					t.Fatal("worker did not stop after close")
				}
			})
		})
	})

	convey.Convey("Given a worker with a short job timeout", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue()
		sub := newMockSubmitter()
		sub.delay = time.Second
		col := newCollector()
		w := worker.NewInMemoryWorker(q, sub, col.complete, worker.WithJobTimeout(20*time.Millisecond))
		go w.Run(ctx)

		convey.So(q.Enqueue(ctx, model.Submission{ID: "slow", Name: "Slow"}), convey.ShouldBeNil)
		got := col.wait(t, 1)

		convey.So(errors.Is(got[0].Err, context.DeadlineExceeded), convey.ShouldBeTrue)
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of three workers", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(32))
		sub := newMockSubmitter()
		col := newCollector()
		pool := worker.NewPool(3, q, sub, col.complete)
		pool.Start(ctx)
		pool.Start(ctx)

		convey.Convey("When submissions are queued and the pool shuts down", func() {
			for i := range 10 {
				convey.So(q.Enqueue(ctx, model.Submission{Round: uint64(i), Name: "p"}), convey.ShouldBeNil)
			}
			shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			convey.So(pool.Shutdown(shutdownCtx), convey.ShouldBeNil)

			convey.Convey("Then every queued submission was processed", func() {
				convey.So(pool.Size(), convey.ShouldEqual, 3)
				convey.So(col.wait(t, 10), convey.ShouldHaveLength, 10)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("A pool that never started shuts down immediately", t, func() {
		pool := worker.NewPool(0, queue.NewInMemoryQueue(), newMockSubmitter(), nil)
		convey.So(pool.Size(), convey.ShouldEqual, 1)
		convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
	})
}
