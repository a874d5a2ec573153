package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/hostmesh/hostrt/metric"
)

// Scheduler is the process-wide singleton the TimingWheel submits fired
// task callbacks to, and that ComponentBase asks to cancel a node's
// outstanding tasks on Shutdown. Tasks are tracked per owner name (a
// node's name) so RemoveTask can detach every timer task that node armed.
type Scheduler struct {
	pool *pool

	tasksMu sync.Mutex
	tasks   map[string][]func()
}

// New constructs a Scheduler with the given worker count and queue depth.
// Pass a nil metric.Registry to skip Prometheus export.
func New(workers, queueSize int, reg *metric.Registry) *Scheduler {
	return &Scheduler{
		pool:  newPool(workers, queueSize, reg),
		tasks: make(map[string][]func()),
	}
}

// Start launches the worker pool. ctx cancellation stops all workers.
func (s *Scheduler) Start(ctx context.Context) error {
	return s.pool.Start(ctx)
}

// Stop drains the worker pool, waiting up to timeout.
func (s *Scheduler) Stop(timeout time.Duration) error {
	return s.pool.Stop(timeout)
}

// Submit hands fn to the worker pool. This is the SubmitFunc the
// TimingWheel is constructed with: it decouples callback execution from
// the tick goroutine.
func (s *Scheduler) Submit(fn func()) {
	_ = s.pool.Submit(fn)
}

// RegisterTask associates detach with owner, so a later RemoveTask(owner)
// calls it. Typically detach is a timer.Timer.Stop or Task.Detach closure.
func (s *Scheduler) RegisterTask(owner string, detach func()) {
	s.tasksMu.Lock()
	defer s.tasksMu.Unlock()
	s.tasks[owner] = append(s.tasks[owner], detach)
}

// RemoveTask detaches every task registered under owner and forgets them.
func (s *Scheduler) RemoveTask(owner string) {
	s.tasksMu.Lock()
	detachers := s.tasks[owner]
	delete(s.tasks, owner)
	s.tasksMu.Unlock()

	for _, detach := range detachers {
		detach()
	}
}

// Stats returns a snapshot of the underlying pool's counters.
func (s *Scheduler) Stats() Stats {
	return s.pool.Stats()
}

var (
	instanceMu sync.Mutex
	instance   *Scheduler
)

// Instance returns the process-wide Scheduler, constructing a default one
// (4 workers, 1024-deep queue, no metrics) on first use.
func Instance() *Scheduler {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance == nil {
		instance = New(4, 1024, nil)
	}
	return instance
}

// Init force-recreates the process-wide Scheduler with the given
// configuration. Intended for test isolation between scenarios.
func Init(workers, queueSize int, reg *metric.Registry) *Scheduler {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	instance = New(workers, queueSize, reg)
	return instance
}

// Shutdown discards the process-wide Scheduler.
func Shutdown() {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	instance = nil
}
