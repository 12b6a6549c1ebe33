package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/hackjudge/internal/adapters/mq/queue"
	"github.com/okian/hackjudge/internal/adapters/mq/worker"
	"github.com/okian/hackjudge/internal/domain/model"
	logging "github.com/okian/hackjudge/pkg/logger"
)

type mockRebuilder struct {
	mu     sync.Mutex
	calls  map[string]int
	errors map[string]error
	delay  time.Duration
}

func newMockRebuilder() *mockRebuilder {
	return &mockRebuilder{calls: map[string]int{}, errors: map[string]error{}}
}

func (m *mockRebuilder) Rebuild(ctx context.Context, id string) (model.Submission, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return model.Submission{}, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[id]++
	if err := m.errors[id]; err != nil {
		return model.Submission{}, err
	}
	return model.Submission{ID: id, ScoreCount: 1}, nil
}

func (m *mockRebuilder) count(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[id]
}

func (m *mockRebuilder) fail(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[id] = err
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker over a queue", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		r := newMockRebuilder()
		w := worker.NewInMemoryWorker(q, r, worker.WithName("test-worker"))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a job is queued", func() {
			convey.So(q.Enqueue(ctx, queue.Job{HackathonID: "h1", SubmissionID: "s1"}), convey.ShouldBeNil)

			convey.Convey("Then the submission is rebuilt once", func() {
				convey.So(eventually(func() bool { return r.count("s1") == 1 }), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a rebuild fails", func() {
			r.fail("bad", errors.New("store down"))
			convey.So(q.Enqueue(ctx, queue.Job{SubmissionID: "bad"}), convey.ShouldBeNil)
			convey.So(q.Enqueue(ctx, queue.Job{SubmissionID: "good"}), convey.ShouldBeNil)

			convey.Convey("Then the worker keeps going", func() {
				convey.So(eventually(func() bool { return r.count("good") == 1 }), convey.ShouldBeTrue)
				convey.So(r.count("bad"), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the queue closes", func() {
			convey.So(q.Close(), convey.ShouldBeNil)

			convey.Convey("Then Run returns", func() {
				select {
				case <-w.Done():
				case <-time.After(time.Second):
					convey.So("worker still running", convey.ShouldBeEmpty)
				}
			})
		})

		convey.Convey("When shut down while the queue stays open", func() {
			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()
			convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
			convey.So(q.Enqueue(ctx, queue.Job{SubmissionID: "late"}), convey.ShouldBeNil)

			convey.Convey("Then the job stays queued for the next worker", func() {
				convey.So(eventually(func() bool { return q.Len() == 1 }), convey.ShouldBeTrue)
				convey.So(r.count("late"), convey.ShouldEqual, 0)

				next := worker.NewInMemoryWorker(q, r, worker.WithName("next-worker"))
				go next.Run(ctx)
				convey.So(eventually(func() bool { return r.count("late") == 1 }), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When shut down twice", func() {
			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()
			convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
			convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of four workers", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		r := newMockRebuilder()
		r.fail("s-bad", errors.New("boom"))
		p := worker.NewPool(4, q, r, worker.WithJobTimeout(time.Second))
		convey.So(p.Size(), convey.ShouldEqual, 4)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		p.Start(ctx)

		ids := []string{"s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8", "s-bad"}
		for _, id := range ids {
			convey.So(q.Enqueue(ctx, queue.Job{HackathonID: "h1", SubmissionID: id}), convey.ShouldBeNil)
		}

		convey.Convey("When the pool shuts down", func() {
			sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer scancel()
			err := p.Shutdown(sctx)

			convey.Convey("Then every queued job drained first", func() {
				convey.So(err, convey.ShouldBeNil)
				for _, id := range ids {
					convey.So(r.count(id), convey.ShouldEqual, 1)
				}
				convey.So(p.Processed(), convey.ShouldEqual, 8)
				convey.So(p.Failed(), convey.ShouldEqual, 1)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a pool stuck on slow jobs", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		r := newMockRebuilder()
		r.delay = 500 * time.Millisecond
		p := worker.NewPool(1, q, r)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		p.Start(ctx)
		for _, id := range []string{"a", "b", "c"} {
			convey.So(q.Enqueue(ctx, queue.Job{SubmissionID: id}), convey.ShouldBeNil)
		}

		convey.Convey("Then a short deadline reports the timeout", func() {
			sctx, scancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer scancel()
			err := p.Shutdown(sctx)
			convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
		})
	})
}
