// Package scheduler drives the recurring jobs: batch price checks,
// alert evaluation and retention cleanup.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/shelfwatch/shelfwatch/internal/utils"
	"github.com/shelfwatch/shelfwatch/pkg/aggregator"
	"github.com/shelfwatch/shelfwatch/pkg/alerting"
	"github.com/shelfwatch/shelfwatch/pkg/storage"
)

// ErrAlreadyRunning means a superseding run found the previous one
// still in flight and skipped itself.
var ErrAlreadyRunning = errors.New("scheduler: job already running")

type Config struct {
	CheckInterval   time.Duration // default 10m
	AlertInterval   time.Duration // default 30m
	CleanupInterval time.Duration // default 24h
	Freshness       time.Duration // default 6h
	BatchLimit      int           // default 20
	RetentionDays   int           // default 30
	CheckTimeout    time.Duration // per-item check task, default 2m
	CheckRetries    int           // per-item check task, default 1

	// LockPath is the database path the cross-process job lock derives
	// its lock file from. Empty disables file locking.
	LockPath string
}

func (c *Config) applyDefaults() {
	if c.CheckInterval <= 0 {
		c.CheckInterval = 10 * time.Minute
	}
	if c.AlertInterval <= 0 {
		c.AlertInterval = 30 * time.Minute
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = 24 * time.Hour
	}
	if c.Freshness <= 0 {
		c.Freshness = alerting.DefaultFreshness
	}
	if c.BatchLimit <= 0 {
		c.BatchLimit = 20
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = 30
	}
	if c.CheckTimeout <= 0 {
		c.CheckTimeout = 2 * time.Minute
	}
	if c.CheckRetries <= 0 {
		c.CheckRetries = 1
	}
}

type Scheduler struct {
	db           *storage.DB
	orchestrator *aggregator.Orchestrator
	evaluator    *alerting.Evaluator
	runner       *Runner
	cfg          Config

	checkRunning int32
	alertRunning int32
}

func New(db *storage.DB, orchestrator *aggregator.Orchestrator, evaluator *alerting.Evaluator, runner *Runner, cfg Config) *Scheduler {
	cfg.applyDefaults()
	if runner == nil {
		runner = NewRunner(0, 0)
	}
	return &Scheduler{db: db, orchestrator: orchestrator, evaluator: evaluator, runner: runner, cfg: cfg}
}

// RunBatchCheck selects eligible items and hands each one to the task
// runner as its own check task, returning after dispatch without
// waiting for the checks. The batch counts as running until its last
// task finishes: an overlapping call returns ErrAlreadyRunning, another
// process is blocked by the job lock file. force bypasses the freshness
// window.
func (s *Scheduler) RunBatchCheck(ctx context.Context, force bool) (int, error) {
	if !atomic.CompareAndSwapInt32(&s.checkRunning, 0, 1) {
		return 0, ErrAlreadyRunning
	}

	var lock *utils.JobLock
	release := func() {
		if lock != nil {
			lock.Unlock()
		}
		atomic.StoreInt32(&s.checkRunning, 0)
	}

	if s.cfg.LockPath != "" {
		l, err := utils.NewJobLock(s.cfg.LockPath, "pricecheck")
		if err != nil {
			release()
			return 0, err
		}
		held, err := l.TryLock()
		if err != nil {
			release()
			return 0, err
		}
		if !held {
			release()
			return 0, ErrAlreadyRunning
		}
		lock = l
	}

	items, err := s.db.ItemsNeedingCheck(ctx, s.cfg.Freshness, s.cfg.BatchLimit, force)
	if err != nil {
		release()
		return 0, err
	}

	var pending sync.WaitGroup
	dispatched := 0
	for _, item := range items {
		item := item
		pending.Add(1)
		ok := s.runner.Submit(Task{
			Name:    fmt.Sprintf("check-item-%d", item.ID),
			Timeout: s.cfg.CheckTimeout,
			Retries: s.cfg.CheckRetries,
			OnDone:  pending.Done,
			Fn: func(ctx context.Context) error {
				_, err := s.orchestrator.CheckAndSavePrices(ctx, item)
				return err
			},
		})
		if !ok {
			pending.Done()
			continue
		}
		dispatched++
	}

	// Hold the single-flight guard until the dispatched checks finish
	// so the next tick cannot re-dispatch in-flight items.
	go func() {
		pending.Wait()
		release()
		utils.Log.WithFields(logrus.Fields{
			"eligible":   len(items),
			"dispatched": dispatched,
			"forced":     force,
		}).Info("Batch price check finished")
	}()
	return dispatched, nil
}

// RunAlertEvaluation evaluates all targets, skipping itself when the
// previous evaluation is still running.
func (s *Scheduler) RunAlertEvaluation(ctx context.Context) (int, error) {
	if !atomic.CompareAndSwapInt32(&s.alertRunning, 0, 1) {
		return 0, ErrAlreadyRunning
	}
	defer atomic.StoreInt32(&s.alertRunning, 0)

	return s.evaluator.Run(ctx)
}

// RunCleanup applies the retention policy. Deleting by timestamp is
// idempotent, so no overlap guard is needed.
func (s *Scheduler) RunCleanup(ctx context.Context) (int64, error) {
	deleted, err := s.db.CleanupObservationsOlderThan(ctx, s.cfg.RetentionDays)
	if err != nil {
		return 0, err
	}
	utils.Log.WithFields(logrus.Fields{
		"deleted": deleted,
		"days":    s.cfg.RetentionDays,
	}).Info("Retention cleanup finished")
	return deleted, nil
}

// Start runs all job loops until the context is cancelled. Each job
// fires once immediately, then on its ticker.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx, s.cfg.CheckInterval, "price check", func(ctx context.Context) error {
		_, err := s.RunBatchCheck(ctx, false)
		return err
	})
	go s.loop(ctx, s.cfg.AlertInterval, "alert evaluation", func(ctx context.Context) error {
		_, err := s.RunAlertEvaluation(ctx)
		return err
	})
	go s.loop(ctx, s.cfg.CleanupInterval, "retention cleanup", func(ctx context.Context) error {
		_, err := s.RunCleanup(ctx)
		return err
	})
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, name string, job func(ctx context.Context) error) {
	run := func() {
		// A run may take at most its own interval; the next tick is
		// the retry.
		runCtx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		if err := job(runCtx); err != nil {
			if errors.Is(err, ErrAlreadyRunning) {
				utils.Log.WithFields(logrus.Fields{"job": name}).Debug("Job still running, skipping cycle")
				return
			}
			utils.Log.WithFields(logrus.Fields{"job": name}).WithError(err).Error("Job failed")
		}
	}

	run()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			run()
		case <-ctx.Done():
			return
		}
	}
}
