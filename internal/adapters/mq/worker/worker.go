// Package worker drains rebuild jobs from the queue and recomputes
// submission aggregates.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/hackjudge/internal/adapters/mq/queue"
	"github.com/okian/hackjudge/internal/domain/model"
	"github.com/okian/hackjudge/pkg/logger"
	"github.com/okian/hackjudge/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultJobTimeout = 10 * time.Second
)

// Rebuilder recomputes one submission aggregate from its score entries.
type Rebuilder interface {
	Rebuild(ctx context.Context, submissionID string) (model.Submission, error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes rebuild jobs.
type Worker interface {
	// Run starts the worker loop until ctx is canceled, Shutdown is called
	// or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current job.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue      Queue
	rebuilder  Rebuilder
	name       string
	jobTimeout time.Duration

	processed *atomic.Int64
	failed    *atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker reading q and writing through r.
func NewInMemoryWorker(q Queue, r Rebuilder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:      q,
		rebuilder:  r,
		name:       "worker",
		jobTimeout: defaultJobTimeout,
		processed:  new(atomic.Int64),
		failed:     new(atomic.Int64),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	// Cancelling on exit hands any job held by Dequeue back to the queue.
	dctx, cancel := context.WithCancel(ctx)
	defer cancel()
	jobs := w.queue.Dequeue(dctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, j); err != nil {
				w.logger.Error(ctx, "rebuild failed",
					logger.String("submission_id", j.SubmissionID),
					logger.Error(err))
			}
		}
	}
}

// Done closes when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// Shutdown stops the worker and waits for Run to return.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, j queue.Job) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	sub, err := w.rebuilder.Rebuild(jobCtx, j.SubmissionID)
	if err != nil {
		w.failed.Add(1)
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "rebuild_error")
		metrics.RecordErrorByType("rebuild_error", "medium")
		return fmt.Errorf("rebuild %s: %w", j.SubmissionID, err)
	}
	w.processed.Add(1)
	w.logger.Debug(ctx, "aggregate rebuilt",
		logger.String("submission_id", sub.ID),
		logger.Float64("aggregate", sub.AggregateScore),
		logger.Int("score_count", sub.ScoreCount),
		logger.Duration("queued_for", start.Sub(j.EnqueuedAt)))
	return nil
}

// Pool runs several workers over one queue.
type Pool struct {
	workers   []*InMemoryWorker
	queue     Queue
	processed atomic.Int64
	failed    atomic.Int64
	logger    logger.Logger
}

// NewPool creates workerCount workers (NumCPU when < 1).
func NewPool(workerCount int, q Queue, r Rebuilder, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range workerCount {
		wopts := append([]Option{
			WithName("worker-" + strconv.Itoa(i)),
			withCounters(&p.processed, &p.failed),
		}, opts...)
		p.workers[i] = NewInMemoryWorker(q, r, wopts...)
	}
	metrics.UpdateWorkerActiveCount(workerCount)
	return p
}

// Start runs every worker in its own goroutine.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns how many jobs succeeded.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Failed returns how many jobs failed.
func (p *Pool) Failed() int64 { return p.failed.Load() }

// Shutdown closes the queue and lets the workers drain it. When ctx ends
// first the workers are stopped after their current job.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			timedOut = true
			w.shutdownOnce.Do(func() { close(w.shutdown) })
			p.logger.Warn(ctx, "worker did not drain in time", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
	}
	return nil
}
