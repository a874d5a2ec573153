// Package timer provides the user-facing Timer façade: register/deregister
// lifecycle on top of a shared timingwheel.TimingWheel.
package timer

import (
	"sync/atomic"

	"github.com/hostmesh/hostrt/errors"
	"github.com/hostmesh/hostrt/timingwheel"
)

var nextID atomic.Uint64

// Option configures a Timer at construction.
type Option struct {
	PeriodMS uint32
	Oneshot  bool
	Callback func()
}

// Timer wraps a single timingwheel.Task with Start/Stop lifecycle.
type Timer struct {
	wheel   *timingwheel.TimingWheel
	opt     Option
	task    *timingwheel.Task
	started atomic.Bool
}

// New constructs a Timer bound to wheel. Call Start to arm it.
func New(wheel *timingwheel.TimingWheel, opt Option) *Timer {
	return &Timer{wheel: wheel, opt: opt}
}

// Start validates the period, builds a TimerTask, and places it on the
// wheel. A second Start is a no-op (compare-and-swap on started).
func (t *Timer) Start() error {
	if !t.started.CompareAndSwap(false, true) {
		return nil
	}

	if t.opt.PeriodMS == 0 || int64(t.opt.PeriodMS) > timingwheel.MaxIntervalMS {
		t.started.Store(false)
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Timer", "Start", "period out of range")
	}

	t.task = timingwheel.NewTask(nextID.Add(1), int64(t.opt.PeriodMS), t.opt.Oneshot, t.opt.Callback)
	if err := t.wheel.AddTask(t.task); err != nil {
		t.started.Store(false)
		return errors.WrapInvalid(err, "Timer", "Start", "add task to wheel")
	}
	return nil
}

// Stop flips started false and detaches the task's callback. Any firing
// already handed to the scheduler completes without re-arming.
func (t *Timer) Stop() {
	if !t.started.CompareAndSwap(true, false) {
		return
	}
	if t.task != nil {
		t.task.Detach()
	}
}
