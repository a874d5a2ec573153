package timingwheel

import (
	"sync"
	"sync/atomic"
	"time"
)

// TaskCallback is handed off to the scheduler when a task fires. It must
// not block the tick loop; the wheel never calls it inline.
type TaskCallback func()

// Task is a schedulable unit on the wheel: fields mirror TimerTask from
// the data model — period, residual-delay bookkeeping across rotations,
// cumulative timing error, and a per-task mutex guarding only the
// callback, so Stop can detach it without contending with the hot fire path.
type Task struct {
	ID       uint64
	PeriodMS int64 // 1 <= PeriodMS <= MaxIntervalMS
	Oneshot  bool

	// RemainderMS is set when the task sits on the assistant wheel: the
	// portion of its period left over once the assistant-wheel offset is
	// consumed, used to place it correctly in the work wheel on cascade.
	RemainderMS int64

	// NextFireDurationMS is the drift-adjusted period used for the next
	// reinsertion of a periodic task.
	NextFireDurationMS int64

	AccumulatedErrorNS atomic.Int64
	LastExecuteTimeMS  atomic.Int64

	scheduledAt time.Time

	mu       sync.Mutex
	callback TaskCallback
}

// NewTask constructs a Task with a fresh id. Callers own id allocation
// (typically the Timer façade, via a package-level atomic counter).
func NewTask(id uint64, periodMS int64, oneshot bool, cb TaskCallback) *Task {
	return &Task{
		ID:                 id,
		PeriodMS:           periodMS,
		NextFireDurationMS: periodMS,
		Oneshot:            oneshot,
		callback:           cb,
	}
}

// Detach clears the callback under the task's mutex. Any firing already
// handed to the scheduler completes normally since it captured the
// callback value before Detach ran.
func (t *Task) Detach() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.callback = nil
}

// SetCallback installs cb, replacing any previous callback.
func (t *Task) SetCallback(cb TaskCallback) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.callback = cb
}

// fire captures the current callback and returns it along with whether one
// was present, so the wheel can decide whether to reinsert the task.
func (t *Task) fire() (TaskCallback, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.callback == nil {
		return nil, false
	}
	return t.callback, true
}

// recordFiring updates drift bookkeeping: the difference between the ideal
// schedule time and actual is accumulated in AccumulatedErrorNS and
// subtracted from NextFireDurationMS, clamped non-negative.
func (t *Task) recordFiring(actual time.Time) {
	if !t.scheduledAt.IsZero() {
		drift := actual.Sub(t.scheduledAt).Nanoseconds()
		t.AccumulatedErrorNS.Add(drift)
	}
	t.LastExecuteTimeMS.Store(actual.UnixMilli())

	next := t.PeriodMS - t.AccumulatedErrorNS.Load()/int64(time.Millisecond)
	if next < 0 {
		next = 0
	}
	t.NextFireDurationMS = next
}
