package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/okian/hackjudge/pkg/logger"
	"github.com/okian/hackjudge/pkg/metrics"
)

// Default Redis locker configuration constants.
const (
	defaultTTL           = 30 * time.Second
	defaultRetryInterval = 25 * time.Millisecond
	defaultPrefix        = "hackjudge:lock:"
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lock re-acquired by another replica is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Option applies a configuration option to the Redis locker.
type Option func(*Redis)

// WithTTL bounds how long a lock survives a crashed holder.
func WithTTL(ttl time.Duration) Option {
	return func(r *Redis) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithRetryInterval sets the pause between acquisition attempts.
func WithRetryInterval(d time.Duration) Option {
	return func(r *Redis) {
		if d > 0 {
			r.retry = d
		}
	}
}

// WithPrefix namespaces lock keys.
func WithPrefix(prefix string) Option {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Redis) {
		if l != nil {
			r.logger = l
		}
	}
}

// Redis is a Locker backed by SET NX PX on a shared Redis.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	retry  time.Duration
	prefix string
	logger logger.Logger
}

var _ Locker = (*Redis)(nil)

// NewRedis creates a distributed locker on client.
func NewRedis(client redis.UniversalClient, opts ...Option) *Redis {
	r := &Redis{
		client: client,
		ttl:    defaultTTL,
		retry:  defaultRetryInterval,
		prefix: defaultPrefix,
		logger: logger.Get().Named("lock"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Lock polls SET NX until it wins or ctx ends.
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	start := time.Now()
	full := r.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(r.retry)
	defer ticker.Stop()
	for {
		ok, err := r.client.SetNX(ctx, full, token, r.ttl).Result()
		if err != nil {
			metrics.RecordLockFailure()
			return nil, fmt.Errorf("%w: %s: %w", ErrNotAcquired, key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			metrics.RecordLockFailure()
			return nil, fmt.Errorf("%w: %s: %w", ErrNotAcquired, key, ctx.Err())
		case <-ticker.C:
		}
	}
	metrics.RecordLockWait(float64(time.Since(start).Microseconds()) / 1000)

	var once sync.Once
	return func() {
		once.Do(func() {
			// Release even if the caller's ctx is already done.
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, r.client, []string{full}, token).Err(); err != nil {
				r.logger.Warn(releaseCtx, "lock release failed", logger.String("key", full), logger.Error(err))
			}
		})
	}, nil
}

// Ping verifies connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
