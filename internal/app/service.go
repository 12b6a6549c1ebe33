// Package service assembles the judging engine and its supporting
// infrastructure into one runnable unit used by the HTTP server and CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/hackjudge/internal/adapters/lock"
	"github.com/okian/hackjudge/internal/adapters/mq/queue"
	"github.com/okian/hackjudge/internal/adapters/mq/worker"
	"github.com/okian/hackjudge/internal/adapters/repository"
	"github.com/okian/hackjudge/internal/config"
	"github.com/okian/hackjudge/internal/domain/dedupe"
	"github.com/okian/hackjudge/internal/domain/judging"
	"github.com/okian/hackjudge/pkg/logger"
	"github.com/okian/hackjudge/pkg/metrics"
)

// ErrNotStarted is returned by operations that need a running service.
var ErrNotStarted = errors.New("service not started")

// Service owns the store, the round locker, the engine and the rebuild
// worker pool.
type Service struct {
	mu sync.RWMutex

	cfg    *config.Config
	logger logger.Logger
	clock  judging.Clock

	store   repository.Store
	redis   redis.UniversalClient
	locker  lock.Locker
	engine  *judging.Engine
	deduper dedupe.Deduper
	queue   *queue.InMemoryQueue
	pool    *worker.Pool

	ownsStore bool
	ownsRedis bool
	started   bool
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig replaces the default configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithStore injects a store instead of opening the configured driver.
// The service does not close an injected store.
func WithStore(store repository.Store) Option {
	return func(s *Service) { s.store = store }
}

// WithRedisClient injects the client backing the distributed round lock.
// The caller keeps ownership of client.
func WithRedisClient(client redis.UniversalClient) Option {
	return func(s *Service) { s.redis = client }
}

// WithClock sets the engine clock.
func WithClock(c judging.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Nothing is opened until Start.
func New(opts ...Option) *Service {
	s := &Service{
		cfg:   config.New(),
		clock: judging.SystemClock,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the store, builds the engine and starts the rebuild workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting judging service...")

	if s.store == nil {
		store, err := openStore(ctx, s.cfg)
		if err != nil {
			return err
		}
		s.store = store
		s.ownsStore = true
	}
	s.logger.Info(ctx, "store ready", logger.String("driver", s.cfg.StoreDriver))

	s.locker = s.newLocker(ctx)
	s.engine = judging.New(s.store,
		judging.WithLocker(s.locker),
		judging.WithClock(s.clock),
		judging.WithRetryBackoff(time.Duration(s.cfg.ScoreRetryBackoffMS)*time.Millisecond),
	)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.cfg.DedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.cfg.QueueSize))
	s.pool = worker.NewPool(s.cfg.WorkerCount, s.queue, s.engine)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "judging service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queue_size", s.cfg.QueueSize),
		logger.Int("dedupe_size", s.cfg.DedupeSize),
	)
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		store, err := repository.NewSQLiteStore(ctx, cfg.SQLiteDSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		if err := store.InitSchema(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("init sqlite schema: %w", err)
		}
		return store, nil
	default:
		return repository.NewMemoryStore(), nil
	}
}

// newLocker picks the Redis locker when a client or address is configured.
func (s *Service) newLocker(ctx context.Context) lock.Locker {
	if s.redis == nil && s.cfg.RedisAddr != "" {
		s.redis = redis.NewClient(&redis.Options{
			Addr:     s.cfg.RedisAddr,
			Password: s.cfg.RedisPassword,
			DB:       s.cfg.RedisDB,
		})
		s.ownsRedis = true
	}
	if s.redis == nil {
		return lock.NewLocal()
	}
	r := lock.NewRedis(s.redis, lock.WithTTL(time.Duration(s.cfg.LockTTLMS)*time.Millisecond))
	if err := r.Ping(ctx); err != nil {
		s.logger.Warn(ctx, "redis lock backend unreachable; lock calls will fail until it recovers", logger.Error(err))
	}
	return r
}

// Shutdown drains the rebuild queue and closes what Start opened.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping judging service...")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if s.ownsStore {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
		s.store = nil
		s.ownsStore = false
	}
	if s.ownsRedis {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
		s.redis = nil
		s.ownsRedis = false
	}

	s.started = false
	s.logger.Info(ctx, "judging service stopped")
	return errors.Join(errs...)
}

// Engine returns the judging engine, or nil before Start.
func (s *Service) Engine() *judging.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// Deduper returns the idempotency key cache, or nil before Start.
func (s *Service) Deduper() dedupe.Deduper {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deduper
}

// StoreDriver names the active store backend.
func (s *Service) StoreDriver() string {
	return s.cfg.StoreDriver
}

// EnqueueRebuild queues one aggregate rebuild per non-draft submission of
// the round. It returns how many jobs were queued before any failure.
func (s *Service) EnqueueRebuild(ctx context.Context, hackathonID string, round int) (int, error) {
	s.mu.RLock()
	engine, q, started := s.engine, s.queue, s.started
	s.mu.RUnlock()
	if !started {
		return 0, ErrNotStarted
	}

	subs, err := engine.Submissions(ctx, hackathonID, round)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, sub := range subs {
		job := queue.Job{HackathonID: hackathonID, RoundIndex: round, SubmissionID: sub.ID}
		if err := q.Enqueue(ctx, job); err != nil {
			s.logger.Warn(ctx, "rebuild enqueue stopped",
				logger.String("hackathon_id", hackathonID),
				logger.Int("round", round),
				logger.Int("enqueued", n),
				logger.Error(err))
			return n, err
		}
		n++
	}
	s.logger.Info(ctx, "rebuild queued",
		logger.String("hackathon_id", hackathonID),
		logger.Int("round", round),
		logger.Int("jobs", n))
	return n, nil
}

// Stats returns service statistics for monitoring.
func (s *Service) Stats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":      s.started,
		"store_driver": s.cfg.StoreDriver,
		"worker_count": s.cfg.WorkerCount,
		"queue_size":   s.cfg.QueueSize,
		"dedupe_size":  s.cfg.DedupeSize,
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	goroutines := runtime.NumGoroutine()
	metrics.UpdateSystemMemoryUsage(mem.Alloc)
	metrics.UpdateSystemGoroutineCount(goroutines)
	stats["goroutines"] = goroutines
	stats["memory_bytes"] = mem.Alloc

	if !s.started {
		return stats
	}

	queueLen := s.queue.Len()
	metrics.UpdateQueueSize(queueLen)
	stats["queue_length"] = queueLen
	stats["rebuilds_processed"] = s.pool.Processed()
	stats["rebuilds_failed"] = s.pool.Failed()
	stats["idempotency_keys"] = s.deduper.Size()

	counts, err := s.store.Counts(ctx)
	if err != nil {
		s.logger.Warn(ctx, "store counts unavailable", logger.Error(err))
		return stats
	}
	stats["store"] = counts
	return stats
}
