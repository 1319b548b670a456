package worker_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/okian/vibrapulse/internal/adapters/mq/queue"
	"github.com/okian/vibrapulse/internal/adapters/mq/worker"
	"github.com/okian/vibrapulse/internal/domain/model"
	logging "github.com/okian/vibrapulse/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type recordingSink struct {
	name  string
	mu    sync.Mutex
	got   []string
	fail  error
	delay time.Duration
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Deliver(ctx context.Context, n model.Notification) error {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.got = append(s.got, n.ReportID)
	return nil
}

func (s *recordingSink) delivered() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.got...)
}

func initLogger() {
	_ = logging.InitWith(io.Discard, logging.FormatText)
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker with two sinks", t, func() {
		initLogger()
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		good := &recordingSink{name: "good"}
		bad := &recordingSink{name: "bad", fail: errors.New("broker down")}
		w := worker.NewInMemoryWorker(q, []worker.Sink{bad, good}, worker.WithName("test"))

		convey.Convey("When notifications are queued and the queue closes", func() {
			ctx := context.Background()
			q.Enqueue(ctx, model.Notification{ReportID: "r1"})
			q.Enqueue(ctx, model.Notification{ReportID: "r2"})
			_ = q.Close()

			w.Run(ctx)

			convey.Convey("Then every notification reaches the healthy sink in order", func() {
				convey.So(good.delivered(), convey.ShouldResemble, []string{"r1", "r2"})
			})

			convey.Convey("Then the worker is done", func() {
				select {
				case <-w.Done():
				default:
					convey.So("worker still running", convey.ShouldBeEmpty)
				}
			})
		})

		convey.Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			go w.Run(ctx)
			cancel()

			convey.Convey("Then Run returns", func() {
				select {
				case <-w.Done():
				case <-time.After(time.Second):
					convey.So("worker did not stop", convey.ShouldBeEmpty)
				}
			})
		})
	})

	convey.Convey("Given a slow sink and a short delivery timeout", t, func() {
		initLogger()
		q := queue.NewInMemoryQueue()
		slow := &recordingSink{name: "slow", delay: time.Second}
		w := worker.NewInMemoryWorker(q, []worker.Sink{slow}, worker.WithDeliveryTimeout(10*time.Millisecond))

		q.Enqueue(context.Background(), model.Notification{ReportID: "r1"})
		_ = q.Close()
		start := time.Now()
		w.Run(context.Background())

		convey.Convey("Then the delivery is abandoned quickly", func() {
			convey.So(time.Since(start), convey.ShouldBeLessThan, 500*time.Millisecond)
			convey.So(slow.delivered(), convey.ShouldBeEmpty)
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a pool of workers", t, func() {
		initLogger()
		q := queue.NewInMemoryQueue(queue.WithCapacity(200))
		sink := &recordingSink{name: "sink"}
		p := worker.NewPool(4, q, []worker.Sink{sink})
		ctx := context.Background()

		convey.So(p.Size(), convey.ShouldEqual, 4)
		p.Start(ctx)

		convey.Convey("When many notifications are queued and the pool shuts down", func() {
			for i := 0; i < 100; i++ {
				q.Enqueue(ctx, model.Notification{ReportID: fmt.Sprintf("r%d", i)})
			}
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			err := p.Shutdown(shutdownCtx)

			convey.Convey("Then the queue is drained before returning", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(sink.delivered(), convey.ShouldHaveLength, 100)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a pool stuck on a slow sink", t, func() {
		initLogger()
		q := queue.NewInMemoryQueue()
		sink := &recordingSink{name: "slow", delay: 2 * time.Second}
		p := worker.NewPool(1, q, []worker.Sink{sink}, worker.WithDeliveryTimeout(5*time.Second))
		p.Start(context.Background())
		q.Enqueue(context.Background(), model.Notification{ReportID: "r1"})
		q.Enqueue(context.Background(), model.Notification{ReportID: "r2"})

		convey.Convey("When shutdown times out", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			err := p.Shutdown(ctx)

			convey.Convey("Then an error is returned", func() {
				convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a non-positive worker count", t, func() {
		initLogger()
		p := worker.NewPool(0, queue.NewInMemoryQueue(), nil)

		convey.Convey("Then a default pool size is used", func() {
			convey.So(p.Size(), convey.ShouldBeGreaterThan, 0)
		})
	})
}
