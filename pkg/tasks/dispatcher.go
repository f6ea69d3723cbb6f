// Package tasks runs best-effort background work outside the request path.
package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/jordanlanch/homeschoolhub/pkg/logger"
	"github.com/jordanlanch/homeschoolhub/pkg/metrics"
)

// Task is a unit of background work
type Task struct {
	Name        string
	MaxAttempts int
	Run         func(ctx context.Context) error
}

// Config tunes the dispatcher
type Config struct {
	Workers     int
	QueueSize   int
	Backoff     time.Duration // delay before attempt n is n*Backoff
	TaskTimeout time.Duration
}

// DefaultConfig returns the settings used in production
func DefaultConfig() Config {
	return Config{
		Workers:     2,
		QueueSize:   256,
		Backoff:     time.Second,
		TaskTimeout: 10 * time.Second,
	}
}

// Dispatcher executes tasks on a fixed pool of workers with a bounded queue.
// Tasks are dropped, logged and counted when the queue is full or the
// dispatcher is stopped.
type Dispatcher struct {
	cfg     Config
	queue   chan Task
	log     logger.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewDispatcher creates a dispatcher. Call Start before dispatching.
func NewDispatcher(cfg Config, log logger.Logger, m *metrics.Metrics) *Dispatcher {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		cfg:     cfg,
		queue:   make(chan Task, cfg.QueueSize),
		log:     log,
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers
func (d *Dispatcher) Start() {
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	d.log.Info("task dispatcher started", "workers", d.cfg.Workers, "queue_size", d.cfg.QueueSize)
}

// Dispatch enqueues a task without blocking. It reports whether the task was accepted.
func (d *Dispatcher) Dispatch(task Task) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.drop(task, "dispatcher stopped")
		return false
	}

	select {
	case d.queue <- task:
		return true
	default:
		d.drop(task, "queue full")
		return false
	}
}

func (d *Dispatcher) drop(task Task, reason string) {
	d.log.Warn("background task dropped", "task", task.Name, "reason", reason)
	d.metrics.RecordTask(task.Name, "dropped")
}

// Stop stops accepting tasks and waits for queued ones to finish or ctx to expire.
// Retries still waiting on backoff are abandoned when ctx expires.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for task := range d.queue {
		d.execute(task)
	}
}

func (d *Dispatcher) execute(task Task) {
	attempts := task.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(time.Duration(attempt-1) * d.cfg.Backoff):
			case <-d.ctx.Done():
				d.log.Warn("background task abandoned", "task", task.Name, "attempt", attempt, "error", err)
				d.metrics.RecordTask(task.Name, "failed")
				return
			}
		}

		ctx, cancel := context.WithTimeout(d.ctx, d.cfg.TaskTimeout)
		err = task.Run(ctx)
		cancel()

		if err == nil {
			d.metrics.RecordTask(task.Name, "success")
			return
		}
		d.log.Warn("background task attempt failed", "task", task.Name, "attempt", attempt, "error", err)
	}

	d.log.Error("background task failed", "task", task.Name, "attempts", attempts, "error", err)
	d.metrics.RecordTask(task.Name, "failed")
}
