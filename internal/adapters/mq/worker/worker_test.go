package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/conftix/internal/adapters/mq/queue"
	worker "github.com/okian/conftix/internal/adapters/mq/worker"
	model "github.com/okian/conftix/internal/domain/model"
	logging "github.com/okian/conftix/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockQueue struct {
	jobs chan queue.Job
	once sync.Once
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan queue.Job, 128)}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan queue.Job {
	return mq.jobs
}

func (mq *mockQueue) Close() error {
	mq.once.Do(func() { close(mq.jobs) })
	return nil
}

func (mq *mockQueue) add(id string) {
	mq.jobs <- model.SubmissionRecord{RequestID: id, FullName: "Jane Doe"}
}

type mockProcessor struct {
	mu     sync.Mutex
	done   map[string]int
	errs   map[string]error
	panics map[string]bool
}

func newMockProcessor() *mockProcessor {
	return &mockProcessor{done: map[string]int{}, errs: map[string]error{}, panics: map[string]bool{}}
}

func (mp *mockProcessor) Process(ctx context.Context, j queue.Job) error { //nolint:gocritic // hugeParam
	mp.mu.Lock()
	defer mp.mu.Unlock()
	if mp.panics[j.RequestID] {
		panic("renderer exploded")
	}
	mp.done[j.RequestID]++
	return mp.errs[j.RequestID]
}

func (mp *mockProcessor) count(id string) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.done[id]
}

func (mp *mockProcessor) total() int {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	n := 0
	for _, c := range mp.done {
		n += c
	}
	return n
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a new InMemoryWorker", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		proc := newMockProcessor()

		convey.Convey("When running a worker", func() {
			w := worker.NewInMemoryWorker(q, proc, worker.WithName("test-worker"))
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go w.Run(ctx)

			convey.Convey("And a job arrives", func() {
				q.add("req-1")

				convey.Convey("Then it is processed once", func() {
					convey.So(eventually(func() bool { return proc.count("req-1") == 1 }), convey.ShouldBeTrue)
				})
			})

			convey.Convey("And a job fails", func() {
				proc.errs["req-2"] = errors.New("upload failed")
				q.add("req-2")
				q.add("req-3")

				convey.Convey("Then the worker keeps going", func() {
					convey.So(eventually(func() bool { return proc.count("req-3") == 1 }), convey.ShouldBeTrue)
				})
			})

			convey.Convey("And a job panics", func() {
				proc.panics["req-boom"] = true
				q.add("req-boom")
				q.add("req-4")

				convey.Convey("Then the worker survives", func() {
					convey.So(eventually(func() bool { return proc.count("req-4") == 1 }), convey.ShouldBeTrue)
				})
			})

			convey.Convey("And when shutting down", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer shutdownCancel()

				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the queue is closed", func() {
			w := worker.NewInMemoryWorker(q, proc)
			stopped := make(chan struct{})
			go func() {
				w.Run(context.Background())
				close(stopped)
			}()
			_ = q.Close()

			convey.Convey("Then the worker stops", func() {
				select {
				case <-stopped:
				case <-time.After(time.Second):
					convey.So("worker still running", convey.ShouldBeEmpty)
				}
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a worker pool", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		proc := newMockProcessor()

		convey.Convey("When created with no explicit count", func() {
			pool := worker.NewPool(0, q, proc)
			convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
		})

		convey.Convey("When many jobs are queued concurrently", func() {
			pool := worker.NewPool(4, q, proc)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			pool.Start(ctx)

			const jobs = 100
			var wg sync.WaitGroup
			for i := 0; i < 5; i++ {
				wg.Add(1)
				go func(p int) {
					defer wg.Done()
					for j := 0; j < jobs/5; j++ {
						if j == 0 && p == 0 {
							proc.mu.Lock()
							proc.errs["req-0-0"] = errors.New("notify failed")
							proc.mu.Unlock()
						}
						q.add(fmt.Sprintf("req-%d-%d", p, j))
					}
				}(i)
			}
			wg.Wait()

			convey.Convey("Then every job is processed exactly once", func() {
				convey.So(eventually(func() bool { return proc.total() == jobs }), convey.ShouldBeTrue)
				convey.So(eventually(func() bool {
					total, failed := pool.Processed()
					return total == jobs && failed == 1
				}), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When shutting down", func() {
			pool := worker.NewPool(2, q, proc)
			pool.Start(context.Background())
			q.add("req-last")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			err := pool.Shutdown(shutdownCtx)

			convey.Convey("Then queued jobs drain before the workers stop", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(proc.count("req-last"), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When stopping", func() {
			pool := worker.NewPool(2, q, proc)
			pool.Start(context.Background())
			pool.Stop()

			convey.Convey("Then jobs are no longer picked up", func() {
				q.add("req-after-stop")
				time.Sleep(20 * time.Millisecond)
				convey.So(proc.count("req-after-stop"), convey.ShouldEqual, 0)
			})
		})
	})
}
