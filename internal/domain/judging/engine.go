// Package judging implements round progression: criteria, judge assignment,
// the score ledger, leaderboard ranking, shortlisting and eligibility.
//
// The engine holds no state of its own beyond configuration; everything it
// reads and writes goes through repository.Store, so several engines may
// serve the same store concurrently.
package judging

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/hackjudge/internal/adapters/lock"
	"github.com/okian/hackjudge/internal/adapters/repository"
	"github.com/okian/hackjudge/internal/domain/model"
	"github.com/okian/hackjudge/internal/domain/scoring"
	"github.com/okian/hackjudge/pkg/logger"
)

// Default engine configuration constants.
const (
	defaultRetryBackoff = 50 * time.Millisecond
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithScorer replaces the weighted scorer.
func WithScorer(s scoring.Scorer) Option {
	return func(e *Engine) {
		if s != nil {
			e.scorer = s
		}
	}
}

// WithLocker sets the round locker (in-process by default).
func WithLocker(l lock.Locker) Option {
	return func(e *Engine) {
		if l != nil {
			e.locker = l
		}
	}
}

// WithClock injects the time source.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRetryBackoff sets the pause before retrying a transient score write.
func WithRetryBackoff(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.retryBackoff = d
		}
	}
}

// WithIDGenerator replaces uuid generation for new records.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// Engine is the round progression and judging engine.
type Engine struct {
	store        repository.Store
	scorer       scoring.Scorer
	locker       lock.Locker
	clock        Clock
	logger       logger.Logger
	retryBackoff time.Duration
	newID        func() string
}

// New creates an engine over store.
func New(store repository.Store, opts ...Option) *Engine {
	e := &Engine{
		store:        store,
		scorer:       scoring.NewWeightedScorer(),
		locker:       lock.NewLocal(),
		clock:        SystemClock,
		logger:       logger.Get().Named("judging"),
		retryBackoff: defaultRetryBackoff,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store exposes the underlying store.
func (e *Engine) Store() repository.Store { return e.store }

// withRoundLock runs fn while holding the lock for one round.
func (e *Engine) withRoundLock(ctx context.Context, op, hackathonID string, round int, fn func() error) error {
	unlock, err := e.locker.Lock(ctx, lock.RoundKey(hackathonID, round))
	if err != nil {
		return storeErr(op, err, "")
	}
	defer unlock()
	return fn()
}

// loadRound fetches a hackathon and one of its rounds.
func (e *Engine) loadRound(ctx context.Context, op, hackathonID string, round int) (model.Hackathon, model.Round, error) {
	h, err := e.store.Hackathon(ctx, hackathonID)
	if err != nil {
		return model.Hackathon{}, model.Round{}, storeErr(op, err, fmt.Sprintf("hackathon %s not found", hackathonID))
	}
	r, ok := h.Round(round)
	if !ok {
		return model.Hackathon{}, model.Round{}, newError(op, KindNotFound, fmt.Sprintf("round %d not found", round), nil)
	}
	return h, r, nil
}

// aggregate is the AggregateFunc handed to the store.
func (e *Engine) aggregate(entries []model.ScoreEntry) (float64, int) {
	return scoring.AggregateEntries(e.scorer, entries)
}
