package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/shelfwatch/shelfwatch/internal/utils"
)

// Task is one unit of background work. Fn must respect its context;
// the runner enforces Timeout per attempt. OnDone, when set, fires
// exactly once after the task's final attempt, whatever the outcome.
type Task struct {
	Name    string
	Timeout time.Duration
	Retries int
	Fn      func(ctx context.Context) error
	OnDone  func()
}

// Runner executes submitted tasks on a fixed pool of workers. Submit is
// fire-and-forget: callers get no result, only logs.
type Runner struct {
	tasks chan Task
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewRunner(workers, queueSize int) *Runner {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 32
	}
	r := &Runner{tasks: make(chan Task, queueSize)}
	r.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go r.worker()
	}
	return r
}

// Submit queues a task. It reports false when the queue is full or the
// runner is closed; the task is dropped in that case.
func (r *Runner) Submit(t Task) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	select {
	case r.tasks <- t:
		return true
	default:
		utils.Log.WithFields(logrus.Fields{"task": t.Name}).Warn("Task queue full, dropping task")
		return false
	}
}

// Close stops accepting tasks and waits for queued work to drain.
func (r *Runner) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.tasks)
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Runner) worker() {
	defer r.wg.Done()
	for t := range r.tasks {
		r.runTask(t)
	}
}

func (r *Runner) runTask(t Task) {
	if t.OnDone != nil {
		defer t.OnDone()
	}
	attempts := t.Retries + 1
	for i := 0; i < attempts; i++ {
		err := r.runAttempt(t)
		if err == nil {
			return
		}
		utils.Log.WithFields(logrus.Fields{
			"task":    t.Name,
			"attempt": i + 1,
		}).WithError(err).Warn("Task attempt failed")
	}
	utils.Log.WithFields(logrus.Fields{"task": t.Name}).Error("Task gave up")
}

func (r *Runner) runAttempt(t Task) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("task panicked: %v", rec)
		}
	}()

	ctx := context.Background()
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}
	return t.Fn(ctx)
}
