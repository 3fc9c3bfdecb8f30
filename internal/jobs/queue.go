// Package jobs runs conversions in the background when queue mode is on.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leca/seo-images/internal/metrics"
)

var (
	ErrQueueFull   = errors.New("job queue is full")
	ErrQueueClosed = errors.New("job queue is closed")
)

// Func is the unit of work. ctx is cancelled only when Close gives up
// waiting for the queue to drain.
type Func func(ctx context.Context) error

type job struct {
	id   string
	name string
	run  Func
}

// Queue is a bounded in-process FIFO served by a fixed set of workers.
type Queue struct {
	jobs    chan job
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewQueue starts workers goroutines over a buffer of capacity jobs.
func NewQueue(workers, capacity int, m *metrics.Metrics) *Queue {
	if workers < 1 {
		workers = 1
	}
	if capacity < 1 {
		capacity = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		jobs:    make(chan job, capacity),
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			q.worker()
		}()
	}
	return q
}

// Enqueue schedules fn and returns its job id. It never blocks.
func (q *Queue) Enqueue(name string, fn Func) (string, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return "", ErrQueueClosed
	}

	j := job{id: uuid.NewString(), name: name, run: fn}
	select {
	case q.jobs <- j:
		q.metrics.SetQueueDepth(len(q.jobs))
		slog.Info("job queued", "job_id", j.id, "job", name)
		return j.id, nil
	default:
		return "", ErrQueueFull
	}
}

// Len is the number of jobs waiting for a worker.
func (q *Queue) Len() int {
	return len(q.jobs)
}

// Close stops accepting jobs and waits for queued ones to finish. If ctx
// expires first, running jobs are cancelled and ctx.Err() is returned.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		<-done
		return ctx.Err()
	}
}

func (q *Queue) worker() {
	for j := range q.jobs {
		q.metrics.SetQueueDepth(len(q.jobs))
		q.run(j)
	}
}

func (q *Queue) run(j job) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("job panicked", "job_id", j.id, "job", j.name, "panic", r)
		}
	}()

	if err := j.run(q.ctx); err != nil {
		slog.Error("job failed", "job_id", j.id, "job", j.name, "error", err, "elapsed", time.Since(start))
		return
	}
	slog.Info("job done", "job_id", j.id, "job", j.name, "elapsed", time.Since(start))
}
