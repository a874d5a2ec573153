// Package timingwheel implements the two-level hierarchical timing wheel
// that drives periodic and one-shot component callbacks at millisecond
// resolution: a 512-slot work wheel and a 64-slot assistant wheel, ticking
// every 2 ms.
package timingwheel

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/hostmesh/hostrt/errors"
)

const (
	// WorkWheelSize is the number of slots in the work (fine-grained) wheel.
	WorkWheelSize = 512
	// AssistantWheelSize is the number of slots in the assistant (coarse)
	// wheel.
	AssistantWheelSize = 64
	// ResolutionMS is the tick resolution in milliseconds.
	ResolutionMS = 2
	// MaxIntervalMS is the longest period schedulable on the wheel.
	MaxIntervalMS = WorkWheelSize * AssistantWheelSize * ResolutionMS
)

// SubmitFunc hands a fired task's callback off to the external scheduler.
// The wheel never runs callbacks on its own tick goroutine.
type SubmitFunc func(TaskCallback)

// TimingWheel is a process-wide timing wheel. Construct with New and share
// one instance process-wide; Start/Shutdown are idempotent.
type TimingWheel struct {
	workWheel      [WorkWheelSize]*bucket
	assistantWheel [AssistantWheelSize]*bucket

	currentWorkIndex       atomic.Uint32
	currentAssistantIndex  atomic.Uint32
	tickCount              atomic.Uint64

	submit  SubmitFunc
	limiter *rate.Limiter

	runningMu sync.Mutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New constructs a TimingWheel. submit hands a fired task's callback to the
// external scheduler; if nil, callbacks run synchronously on the tick
// goroutine (only suitable for tests).
func New(submit SubmitFunc) *TimingWheel {
	if submit == nil {
		submit = func(cb TaskCallback) { cb() }
	}
	w := &TimingWheel{
		submit:  submit,
		limiter: rate.NewLimiter(rate.Every(ResolutionMS*time.Millisecond), 1),
	}
	for i := range w.workWheel {
		w.workWheel[i] = &bucket{}
	}
	for i := range w.assistantWheel {
		w.assistantWheel[i] = &bucket{}
	}
	return w
}

// Start launches the tick goroutine. A second Start is a no-op.
func (w *TimingWheel) Start() {
	w.runningMu.Lock()
	defer w.runningMu.Unlock()
	if w.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.running = true

	w.wg.Add(1)
	go w.tickLoop(ctx)
}

// Shutdown signals the tick goroutine to exit and waits for it. Idempotent;
// safe to call from a deferred cleanup even if Start was never called.
func (w *TimingWheel) Shutdown() {
	w.runningMu.Lock()
	if !w.running {
		w.runningMu.Unlock()
		return
	}
	w.running = false
	cancel := w.cancel
	w.runningMu.Unlock()

	cancel()
	w.wg.Wait()
}

func (w *TimingWheel) tickLoop(ctx context.Context) {
	defer w.wg.Done()
	for {
		if err := w.limiter.Wait(ctx); err != nil {
			return
		}
		w.Tick()
	}
}

// TickCount returns the number of ticks processed so far.
func (w *TimingWheel) TickCount() uint64 {
	return w.tickCount.Load()
}

// AddTask inserts task according to the insertion rule: periods up to
// WorkWheelSize*ResolutionMS (1024 ms) go directly into the work wheel;
// longer periods go into the assistant wheel with RemainderMS recorded for
// the eventual cascade.
func (w *TimingWheel) AddTask(task *Task) error {
	return w.addTaskAt(task, task.PeriodMS)
}

func (w *TimingWheel) addTaskAt(task *Task, periodMS int64) error {
	if periodMS < 0 || periodMS > MaxIntervalMS {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "TimingWheel", "AddTask", "period out of range")
	}

	const workSpanMS = WorkWheelSize * ResolutionMS

	if periodMS <= workSpanMS {
		offset := ceilDiv(periodMS, ResolutionMS)
		idx := (w.currentWorkIndex.Load() + uint32(offset)) % WorkWheelSize
		w.workWheel[idx].add(task)
		return nil
	}

	offset := periodMS / workSpanMS
	idx := (w.currentAssistantIndex.Load() + uint32(offset)) % AssistantWheelSize
	task.RemainderMS = periodMS % workSpanMS
	w.assistantWheel[idx].add(task)
	return nil
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}

// Tick advances the work wheel by one slot, drains and fires that slot's
// tasks, and — when the work wheel wraps — advances and cascades the
// assistant wheel. Tick is exported so tests can drive the wheel without
// waiting on the rate limiter. Firing still reads the wall clock for drift
// correction, so a periodic task ticked faster than real time is reinserted
// further out than its nominal period.
func (w *TimingWheel) Tick() {
	newIdx := (w.currentWorkIndex.Load() + 1) % WorkWheelSize
	w.currentWorkIndex.Store(newIdx)

	now := time.Now()
	for _, task := range w.workWheel[newIdx].drain() {
		w.fireAndMaybeReinsert(task, now)
	}

	if newIdx == 0 {
		newAssistantIdx := (w.currentAssistantIndex.Load() + 1) % AssistantWheelSize
		w.currentAssistantIndex.Store(newAssistantIdx)
		w.cascade(newAssistantIdx)
	}

	w.tickCount.Add(1)
}

func (w *TimingWheel) cascade(assistantIdx uint32) {
	for _, task := range w.assistantWheel[assistantIdx].drain() {
		_ = w.addTaskAt(task, task.RemainderMS)
	}
}

func (w *TimingWheel) fireAndMaybeReinsert(task *Task, now time.Time) {
	cb, ok := task.fire()
	if !ok {
		// Detached (Stop called); drop it.
		return
	}

	task.recordFiring(now)
	w.submit(cb)

	if task.Oneshot {
		return
	}

	task.scheduledAt = now.Add(time.Duration(task.NextFireDurationMS) * time.Millisecond)
	_ = w.addTaskAt(task, task.NextFireDurationMS)
}
