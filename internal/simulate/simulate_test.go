package simulate_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/hackjudge/internal/adapters/http/api"
	service "github.com/okian/hackjudge/internal/app"
	"github.com/okian/hackjudge/internal/config"
	"github.com/okian/hackjudge/internal/simulate"
	"github.com/okian/hackjudge/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func startServer(ctx context.Context) (*httptest.Server, func()) {
	cfg := config.New()
	cfg.WorkerCount = 2
	svc := service.New(service.WithConfig(cfg))
	So(svc.Start(ctx), ShouldBeNil)
	srv := httptest.NewServer(api.NewServer(svc.Engine(), svc.Deduper(), svc, svc).Handler())
	return srv, func() {
		srv.Close()
		_ = svc.Shutdown(ctx)
	}
}

func TestRun(t *testing.T) {
	Convey("Given a running judging server", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		srv, stop := startServer(ctx)
		defer stop()

		cfg := simulate.NewConfig()
		cfg.BaseURL = srv.URL
		cfg.Teams = 4
		cfg.TeamSize = 2
		cfg.Solo = 3
		cfg.Judges = 3
		cfg.Shortlist = 3
		cfg.Workers = 4
		cfg.RoundWindow = 1500 * time.Millisecond

		Convey("When the simulation runs", func() {
			stats, err := simulate.Run(ctx, cfg)

			Convey("Then every step passes", func() {
				So(err, ShouldBeNil)
				So(stats.Submissions, ShouldEqual, 7)
				So(stats.Assignments, ShouldEqual, 3)
				So(stats.ScoresSubmitted, ShouldEqual, 7)
				So(stats.ScoresFailed, ShouldEqual, 0)
				So(stats.Shortlisted, ShouldEqual, 3)
				So(stats.EligibleChecked, ShouldEqual, 4*2+3)
				So(stats.RebuildsEnqueued, ShouldEqual, 7)
				So(stats.Duration, ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestRun_Unreachable(t *testing.T) {
	Convey("A simulation against a closed port fails at the health step", t, func() {
		cfg := simulate.NewConfig()
		cfg.BaseURL = "http://127.0.0.1:1"
		cfg.Timeout = time.Second
		_, err := simulate.Run(context.Background(), cfg)
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldStartWith, "health:")
	})
}

func TestConfig_Validate(t *testing.T) {
	Convey("Given the default config", t, func() {
		cfg := simulate.NewConfig()
		So(cfg.Validate(), ShouldBeNil)

		cases := []struct {
			name   string
			mutate func(*simulate.Config)
		}{
			{"no entrants", func(c *simulate.Config) { c.Teams, c.Solo = 0, 0 }},
			{"empty teams", func(c *simulate.Config) { c.TeamSize = 0 }},
			{"no judges", func(c *simulate.Config) { c.Judges = 0 }},
			{"negative shortlist", func(c *simulate.Config) { c.Shortlist = -1 }},
			{"no workers", func(c *simulate.Config) { c.Workers = 0 }},
			{"no window", func(c *simulate.Config) { c.RoundWindow = 0 }},
			{"no url", func(c *simulate.Config) { c.BaseURL = "" }},
		}
		for _, tc := range cases {
			Convey("It rejects "+tc.name, func() {
				tc.mutate(cfg)
				So(errors.Is(cfg.Validate(), simulate.ErrInvalidConfig), ShouldBeTrue)
			})
		}
	})
}

func TestPlan(t *testing.T) {
	Convey("Plans are reproducible for a seed", t, func() {
		cfg := simulate.NewConfig()
		cfg.HackathonID = "h"
		now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
		a, b := simulate.NewPlan(cfg, now), simulate.NewPlan(cfg, now)

		So(a.Entrants, ShouldResemble, b.Entrants)
		So(a.Scores(5), ShouldResemble, b.Scores(5))
		So(a.Entrants, ShouldHaveLength, cfg.Teams+cfg.Solo)
		So(a.Hackathon.Rounds[0].ClosesAt, ShouldEqual, now.Add(cfg.RoundWindow))
		So(a.Hackathon.Rounds[1].OpensAt, ShouldEqual, a.Hackathon.Rounds[0].ClosesAt)

		Convey("And scores stay in range on half steps", func() {
			for _, q := range []float64{0, 5, 10} {
				for _, v := range a.Scores(q) {
					So(v, ShouldBeBetweenOrEqual, 0.0, 10.0)
					So(v*2, ShouldEqual, float64(int(v*2)))
				}
			}
		})
	})
}
