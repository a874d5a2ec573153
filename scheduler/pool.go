// Package scheduler is the external collaborator TimingWheel hands fired
// callbacks off to, and the place ComponentBase.Shutdown cancels a node's
// outstanding tasks. It is a generic worker pool plus a per-owner task
// registry, not a co-routine scheduler in its own right.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hostmesh/hostrt/errors"
	"github.com/hostmesh/hostrt/metric"
)

// pool is a generic worker pool for concurrent func() execution: Submit is
// non-blocking and drops on a full queue rather than backing up the caller
// (in this scheduler, the TimingWheel tick goroutine).
type pool struct {
	workers   int
	queueSize int
	workChan  chan func()

	lifecycleMu sync.Mutex
	started     bool
	stopped     bool
	wg          sync.WaitGroup

	submitted atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64

	metrics *poolMetrics
}

type poolMetrics struct {
	queueDepth prometheus.Gauge
	submitted  prometheus.Counter
	processed  prometheus.Counter
	dropped    prometheus.Counter
}

func newPool(workers, queueSize int, reg *metric.Registry) *pool {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 1024
	}
	p := &pool{
		workers:   workers,
		queueSize: queueSize,
		workChan:  make(chan func(), queueSize),
	}
	if reg != nil {
		p.metrics = &poolMetrics{
			queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{Name: "scheduler_queue_depth", Help: "Current scheduler queue depth."}),
			submitted:  prometheus.NewCounter(prometheus.CounterOpts{Name: "scheduler_submitted_total", Help: "Total callbacks submitted to the scheduler."}),
			processed:  prometheus.NewCounter(prometheus.CounterOpts{Name: "scheduler_processed_total", Help: "Total callbacks executed by the scheduler."}),
			dropped:    prometheus.NewCounter(prometheus.CounterOpts{Name: "scheduler_dropped_total", Help: "Total callbacks dropped due to a full queue."}),
		}
		_ = reg.Register("scheduler_queue_depth", p.metrics.queueDepth)
		_ = reg.Register("scheduler_submitted_total", p.metrics.submitted)
		_ = reg.Register("scheduler_processed_total", p.metrics.processed)
		_ = reg.Register("scheduler_dropped_total", p.metrics.dropped)
	}
	return p
}

// Submit hands a callback to the pool. Non-blocking; drops with
// ErrQueueFull if the queue is saturated.
func (p *pool) Submit(fn func()) error {
	p.lifecycleMu.Lock()
	started, stopped := p.started, p.stopped
	p.lifecycleMu.Unlock()

	if !started {
		return errors.WrapInvalid(errors.ErrNotStarted, "Scheduler", "Submit", "pool not started")
	}
	if stopped {
		return errors.WrapInvalid(errors.ErrAlreadyStopped, "Scheduler", "Submit", "pool stopped")
	}

	select {
	case p.workChan <- fn:
		p.submitted.Add(1)
		if p.metrics != nil {
			p.metrics.submitted.Inc()
			p.metrics.queueDepth.Set(float64(len(p.workChan)))
		}
		return nil
	default:
		p.dropped.Add(1)
		if p.metrics != nil {
			p.metrics.dropped.Inc()
		}
		return errors.WrapTransient(errors.ErrQueueFull, "Scheduler", "Submit", "queue full")
	}
}

func (p *pool) Start(ctx context.Context) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()
	if p.started {
		return nil
	}
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	p.started = true
	return nil
}

func (p *pool) Stop(timeout time.Duration) error {
	p.lifecycleMu.Lock()
	if !p.started || p.stopped {
		p.lifecycleMu.Unlock()
		return nil
	}
	p.stopped = true
	p.lifecycleMu.Unlock()

	close(p.workChan)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return errors.WrapTransient(errors.ErrShuttingDown, "Scheduler", "Stop", "workers did not drain before timeout")
	}
}

func (p *pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case fn, ok := <-p.workChan:
			if !ok {
				return
			}
			fn()
			p.processed.Add(1)
			if p.metrics != nil {
				p.metrics.processed.Inc()
			}
		}
	}
}

// Stats is a point-in-time snapshot of pool counters.
type Stats struct {
	Workers    int
	QueueDepth int
	Submitted  int64
	Processed  int64
	Dropped    int64
}

func (p *pool) Stats() Stats {
	return Stats{
		Workers:    p.workers,
		QueueDepth: len(p.workChan),
		Submitted:  p.submitted.Load(),
		Processed:  p.processed.Load(),
		Dropped:    p.dropped.Load(),
	}
}
