package concurrency

import (
	"fmt"
	"sync"
	"time"

	"trendgrid/internal/core"

	"github.com/alitto/pond"
)

// PoolConfig holds configuration for a worker pool
type PoolConfig struct {
	Name        string
	MaxWorkers  int
	MaxCapacity int
	IdleTimeout time.Duration
	NonBlocking bool // If true, Submit() returns error instead of blocking when full
}

// WorkerPool wraps alitto/pond with task tracking and standardized config
type WorkerPool struct {
	pool    *pond.WorkerPool
	config  PoolConfig
	logger  core.ILogger
	pending sync.WaitGroup
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(cfg PoolConfig, logger core.ILogger) *WorkerPool {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 1
	}
	if cfg.MaxCapacity <= 0 {
		cfg.MaxCapacity = cfg.MaxWorkers
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}

	log := logger.WithField("component", "worker_pool").WithField("pool", cfg.Name)
	pool := pond.New(
		cfg.MaxWorkers,
		cfg.MaxCapacity,
		pond.IdleTimeout(cfg.IdleTimeout),
		pond.Strategy(pond.Balanced()),
		pond.PanicHandler(func(p interface{}) {
			log.Error("Worker pool panic recovered", "panic", p)
		}),
	)

	return &WorkerPool{
		pool:   pool,
		config: cfg,
		logger: log,
	}
}

// Submit adds a task to the pool
func (wp *WorkerPool) Submit(task func()) error {
	if wp.pool.Stopped() {
		return fmt.Errorf("worker pool '%s' is stopped", wp.config.Name)
	}

	wp.pending.Add(1)
	wrapped := func() {
		defer wp.pending.Done()
		task()
	}

	if wp.config.NonBlocking {
		if !wp.pool.TrySubmit(wrapped) {
			wp.pending.Done()
			return fmt.Errorf("worker pool '%s' is full (capacity: %d)", wp.config.Name, wp.config.MaxCapacity)
		}
		return nil
	}

	wp.pool.Submit(wrapped)
	return nil
}

// Wait blocks until every submitted task has returned or timeout elapses.
// It reports whether all tasks finished; a timeout of zero waits forever.
func (wp *WorkerPool) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wp.pending.Wait()
		close(done)
	}()

	if timeout <= 0 {
		<-done
		return true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		wp.logger.Warn("Timed out waiting for tasks", "timeout", timeout, "waiting", wp.pool.WaitingTasks(), "running", wp.pool.RunningWorkers())
		return false
	}
}

// Stop stops accepting tasks; running tasks are not interrupted
func (wp *WorkerPool) Stop() {
	wp.pool.Stop()
}

// Stats returns pool statistics
func (wp *WorkerPool) Stats() map[string]interface{} {
	return map[string]interface{}{
		"running_workers":  wp.pool.RunningWorkers(),
		"idle_workers":     wp.pool.IdleWorkers(),
		"submitted_tasks":  wp.pool.SubmittedTasks(),
		"waiting_tasks":    wp.pool.WaitingTasks(),
		"successful_tasks": wp.pool.SuccessfulTasks(),
		"failed_tasks":     wp.pool.FailedTasks(),
	}
}
