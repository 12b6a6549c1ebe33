package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/hackjudge/internal/app"
	"github.com/okian/hackjudge/internal/adapters/repository"
	"github.com/okian/hackjudge/internal/config"
	"github.com/okian/hackjudge/internal/domain/judging"
	"github.com/okian/hackjudge/internal/domain/model"
	"github.com/okian/hackjudge/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	cfg := config.New()
	cfg.WorkerCount = 2
	cfg.QueueSize = 16
	cfg.DedupeSize = 100
	cfg.ScoreRetryBackoffMS = 1
	return cfg
}

func hackathon() model.Hackathon {
	return model.Hackathon{
		ID:                  "h1",
		AllowIndividual:     true,
		UnrestrictedJudging: true,
		Judges:              []string{"j1"},
		Rounds: []model.Round{{
			Index:    0,
			OpensAt:  base,
			ClosesAt: base.Add(24 * time.Hour),
			Criteria: []model.Criterion{{Name: "impact", MaxScore: 10, Weight: 1}},
		}},
	}
}

// seedRound adds n scored submissions to round 0 of h1.
func seedRound(ctx context.Context, eng *judging.Engine, n int) []string {
	_, err := eng.ConfigureHackathon(ctx, hackathon())
	So(err, ShouldBeNil)
	ids := make([]string, 0, n)
	for i := range n {
		sub, err := eng.Submit(ctx, judging.SubmitInput{HackathonID: "h1", OwnerID: "p" + string(rune('a'+i))})
		So(err, ShouldBeNil)
		_, err = eng.SubmitScore(ctx, judging.ScoreInput{
			SubmissionID: sub.ID, JudgeID: "j1", Scores: map[string]float64{"impact": float64(i + 1)},
		})
		So(err, ShouldBeNil)
		ids = append(ids, sub.ID)
	}
	return ids
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service on an injected memory store", t, func() {
		ctx := context.Background()
		clock := judging.ClockFunc(func() time.Time { return base.Add(time.Hour) })
		svc := service.New(
			service.WithConfig(testConfig()),
			service.WithStore(repository.NewMemoryStore()),
			service.WithClock(clock),
		)

		Convey("Before Start nothing is wired", func() {
			So(svc.Engine(), ShouldBeNil)
			_, err := svc.EnqueueRebuild(ctx, "h1", 0)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			stats := svc.Stats(ctx)
			So(stats["started"], ShouldEqual, false)
			So(svc.Shutdown(ctx), ShouldBeNil)
		})

		Convey("When started", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			defer func() { _ = svc.Shutdown(ctx) }()

			So(svc.Engine(), ShouldNotBeNil)
			So(svc.Deduper(), ShouldNotBeNil)
			So(svc.StoreDriver(), ShouldEqual, config.StoreMemory)

			Convey("Then rebuilds run through the worker pool", func() {
				ids := seedRound(ctx, svc.Engine(), 3)
				n, err := svc.EnqueueRebuild(ctx, "h1", 0)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, len(ids))

				deadline := time.Now().Add(2 * time.Second)
				for time.Now().Before(deadline) {
					if svc.Stats(ctx)["rebuilds_processed"] == int64(3) {
						break
					}
					time.Sleep(5 * time.Millisecond)
				}
				stats := svc.Stats(ctx)
				So(stats["rebuilds_processed"], ShouldEqual, int64(3))
				So(stats["rebuilds_failed"], ShouldEqual, int64(0))

				sub, err := svc.Engine().Submission(ctx, ids[2])
				So(err, ShouldBeNil)
				So(sub.AggregateScore, ShouldEqual, 3.0)
			})

			Convey("Then an unknown hackathon is reported by the engine", func() {
				_, err := svc.EnqueueRebuild(ctx, "nope", 0)
				So(judging.KindOf(err), ShouldEqual, judging.KindNotFound)
			})

			Convey("Then stats include store counts", func() {
				seedRound(ctx, svc.Engine(), 2)
				stats := svc.Stats(ctx)
				So(stats["started"], ShouldEqual, true)
				counts, ok := stats["store"].(repository.Counts)
				So(ok, ShouldBeTrue)
				So(counts.Submissions, ShouldEqual, 2)
			})

			Convey("Then after Shutdown the queue rejects new work", func() {
				So(svc.Shutdown(ctx), ShouldBeNil)
				_, err := svc.EnqueueRebuild(ctx, "h1", 0)
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})
	})
}

func TestService_SQLite(t *testing.T) {
	Convey("Given a service configured for sqlite", t, func() {
		ctx := context.Background()
		cfg := testConfig()
		cfg.StoreDriver = config.StoreSQLite
		cfg.SQLiteDSN = filepath.Join(t.TempDir(), "judge.db")
		svc := service.New(
			service.WithConfig(cfg),
			service.WithClock(judging.ClockFunc(func() time.Time { return base.Add(time.Hour) })),
		)

		Convey("It opens the schema and serves the engine", func() {
			So(svc.Start(ctx), ShouldBeNil)
			ids := seedRound(ctx, svc.Engine(), 1)
			sub, err := svc.Engine().Submission(ctx, ids[0])
			So(err, ShouldBeNil)
			So(sub.ScoreCount, ShouldEqual, 1)
			So(svc.Shutdown(ctx), ShouldBeNil)
		})
	})
}
