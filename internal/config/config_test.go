package config_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/okian/hackjudge/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 50_000)
			convey.So(cfg.LockTTLMS, convey.ShouldEqual, 30_000)
			convey.So(cfg.MaxLeaderboardLimit, convey.ShouldEqual, 500)
			convey.So(cfg.RedisAddr, convey.ShouldBeEmpty)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a config with an invalid field", t, func() {
		cases := map[string]func(*config.Config){
			"addr must not be empty":        func(c *config.Config) { c.Addr = " " },
			"store_driver must be":          func(c *config.Config) { c.StoreDriver = "postgres" },
			"sqlite_dsn must not be empty":  func(c *config.Config) { c.StoreDriver = config.StoreSQLite; c.SQLiteDSN = "" },
			"lock_ttl_ms must be positive":  func(c *config.Config) { c.LockTTLMS = 0 },
			"max_leaderboard_limit must be": func(c *config.Config) { c.MaxLeaderboardLimit = 0 },
			"score_retry_backoff_ms must":   func(c *config.Config) { c.ScoreRetryBackoffMS = -1 },
		}

		for msg, mutate := range cases {
			cfg := config.New()
			mutate(cfg)
			err := cfg.Validate()

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, msg)
		}
	})
}
