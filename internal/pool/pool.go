// Package pool runs granule conversion tasks with bounded parallelism.
//
// Each task executes in a goroutine of its own that exits when the task
// returns, so no state leaks from one granule conversion into the next.
// Submission never blocks: tasks wait in an unbounded backlog until a slot is
// free.
package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/iasi-l2-converter/internal/observability"
	"github.com/couchcryptid/iasi-l2-converter/internal/queue"
	"golang.org/x/sync/semaphore"
)

// Task is one unit of work, typically the conversion of a single granule.
type Task struct {
	ID   string
	Name string
	Run  func(ctx context.Context) error
}

// Pool executes submitted tasks, at most size at a time.
type Pool struct {
	size    int
	sem     *semaphore.Weighted
	backlog *queue.Queue[Task]
	logger  *slog.Logger
	metrics *observability.Metrics

	lifecycleMu sync.Mutex
	started     bool
	stopped     bool
	cancel      context.CancelFunc
	tasks       sync.WaitGroup
	scheduler   sync.WaitGroup

	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	panicked  atomic.Int64
	running   atomic.Int64
}

// Stats is a snapshot of pool counters.
type Stats struct {
	Size      int   `json:"size"`
	Queued    int   `json:"queued"`
	Running   int64 `json:"running"`
	Submitted int64 `json:"submitted"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Panicked  int64 `json:"panicked"`
}

// New creates a pool that runs at most size tasks concurrently.
func New(size int, logger *slog.Logger, metrics *observability.Metrics) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{
		size:    size,
		sem:     semaphore.NewWeighted(int64(size)),
		backlog: queue.New[Task](),
		logger:  logger,
		metrics: metrics,
	}
}

// Start launches the scheduler. Tasks submitted before Start are rejected.
func (p *Pool) Start(ctx context.Context) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if p.started {
		return ErrPoolAlreadyStarted
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.scheduler.Add(1)
	go p.schedule(ctx)

	p.started = true
	p.logger.Info("task pool started", "size", p.size)
	return nil
}

// Submit enqueues a task without blocking.
func (p *Pool) Submit(task Task) error {
	if task.Run == nil {
		return ErrNilTask
	}

	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if !p.started {
		return ErrPoolNotStarted
	}
	if p.stopped {
		return ErrPoolStopped
	}

	p.submitted.Add(1)
	p.backlog.Push(task)
	return nil
}

// Stop stops accepting tasks, discards the backlog, and waits up to timeout
// for running tasks to finish.
func (p *Pool) Stop(timeout time.Duration) error {
	p.lifecycleMu.Lock()
	if !p.started || p.stopped {
		p.lifecycleMu.Unlock()
		return nil
	}
	p.stopped = true
	p.cancel()
	p.lifecycleMu.Unlock()

	done := make(chan struct{})
	go func() {
		p.scheduler.Wait()
		p.tasks.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		if n := p.backlog.Len(); n > 0 {
			p.logger.Warn("task pool stopped with queued tasks", "dropped", n)
		}
		return nil
	case <-timer.C:
		return ErrStopTimeout
	}
}

// Stats returns current pool statistics.
func (p *Pool) Stats() Stats {
	return Stats{
		Size:      p.size,
		Queued:    p.backlog.Len(),
		Running:   p.running.Load(),
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Panicked:  p.panicked.Load(),
	}
}

// schedule hands backlog tasks to fresh goroutines as slots become free.
func (p *Pool) schedule(ctx context.Context) {
	defer p.scheduler.Done()

	for {
		task, err := p.backlog.Pop(ctx)
		if err != nil {
			return
		}
		if err := p.sem.Acquire(ctx, 1); err != nil {
			// Shutting down; keep the task counted with the backlog.
			p.backlog.Push(task)
			return
		}

		p.tasks.Add(1)
		go p.execute(ctx, task)
	}
}

// execute runs one task to completion. Shutdown does not interrupt a running
// conversion; the task sees a context that is never cancelled.
func (p *Pool) execute(ctx context.Context, task Task) {
	defer p.tasks.Done()
	defer p.sem.Release(1)

	p.running.Add(1)
	p.metrics.TasksInFlight.Inc()
	defer func() {
		p.running.Add(-1)
		p.metrics.TasksInFlight.Dec()
	}()

	if err := p.runSafely(context.WithoutCancel(ctx), task); err != nil {
		p.failed.Add(1)
		p.logger.Error("task failed", "task_id", task.ID, "granule", task.Name, "error", err)
		return
	}
	p.completed.Add(1)
}

func (p *Pool) runSafely(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.panicked.Add(1)
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task.Run(ctx)
}
