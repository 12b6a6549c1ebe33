package lock_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/hackjudge/internal/adapters/lock"
	"github.com/okian/hackjudge/pkg/logger"
)

func TestMain(m *testing.M) {
	_ = logger.Init()
	os.Exit(m.Run())
}

func TestRoundKey(t *testing.T) {
	Convey("Given a hackathon round", t, func() {
		So(lock.RoundKey("h1", 2), ShouldEqual, "round:h1:2")
	})
}

func TestLocal(t *testing.T) {
	Convey("Given a local locker", t, func() {
		l := lock.NewLocal()
		ctx := context.Background()

		Convey("When many goroutines contend for one key", func() {
			var (
				inside  atomic.Int32
				maxSeen atomic.Int32
				wg      sync.WaitGroup
			)
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					unlock, err := l.Lock(ctx, "round:h1:0")
					if err != nil {
						return
					}
					n := inside.Add(1)
					if n > maxSeen.Load() {
						maxSeen.Store(n)
					}
					time.Sleep(time.Millisecond)
					inside.Add(-1)
					unlock()
				}()
			}
			wg.Wait()

			Convey("Then only one holds it at a time and the key is released", func() {
				So(maxSeen.Load(), ShouldEqual, 1)
				So(l.Len(), ShouldEqual, 0)
			})
		})

		Convey("When different keys are locked", func() {
			u1, err1 := l.Lock(ctx, "round:h1:0")
			u2, err2 := l.Lock(ctx, "round:h1:1")

			Convey("Then they do not block each other", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				u1()
				u2()
			})
		})

		Convey("When the context ends while waiting", func() {
			unlock, err := l.Lock(ctx, "round:h1:0")
			So(err, ShouldBeNil)

			short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
			defer cancel()
			_, err = l.Lock(short, "round:h1:0")

			Convey("Then acquisition fails with ErrNotAcquired", func() {
				So(errors.Is(err, lock.ErrNotAcquired), ShouldBeTrue)
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			})

			unlock()
			unlock()
			So(l.Len(), ShouldEqual, 0)
		})
	})
}

// The Redis locker needs a live server; set HACKJUDGE_TEST_REDIS_ADDR to run it.
func TestRedis(t *testing.T) {
	addr := os.Getenv("HACKJUDGE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("HACKJUDGE_TEST_REDIS_ADDR not set")
	}

	Convey("Given a Redis locker", t, func() {
		client := redis.NewClient(&redis.Options{Addr: addr})
		defer client.Close()
		l := lock.NewRedis(client, lock.WithPrefix("hackjudge:test:"), lock.WithTTL(time.Second), lock.WithRetryInterval(5*time.Millisecond))
		ctx := context.Background()
		So(l.Ping(ctx), ShouldBeNil)

		Convey("When the key is held", func() {
			unlock, err := l.Lock(ctx, "round:h1:0")
			So(err, ShouldBeNil)

			short, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
			defer cancel()
			_, err = l.Lock(short, "round:h1:0")

			Convey("Then a second holder waits and times out", func() {
				So(errors.Is(err, lock.ErrNotAcquired), ShouldBeTrue)
			})

			unlock()

			Convey("Then after release it can be re-acquired", func() {
				again, err := l.Lock(ctx, "round:h1:0")
				So(err, ShouldBeNil)
				again()
			})
		})
	})
}
