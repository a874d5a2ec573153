package timer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hostmesh/hostrt/timer"
	"github.com/hostmesh/hostrt/timingwheel"
)

func TestTimer_StartFiresAtExpectedTick(t *testing.T) {
	w := timingwheel.New(nil)

	fired := 0
	tm := timer.New(w, timer.Option{PeriodMS: 10, Oneshot: true, Callback: func() { fired++ }})
	require.NoError(t, tm.Start())

	for i := 0; i < 4; i++ {
		w.Tick()
	}
	require.Equal(t, 0, fired)

	w.Tick()
	require.Equal(t, 1, fired)
}

func TestTimer_StartIsIdempotent(t *testing.T) {
	w := timingwheel.New(nil)

	calls := 0
	tm := timer.New(w, timer.Option{PeriodMS: 4, Callback: func() { calls++ }})
	require.NoError(t, tm.Start())
	require.NoError(t, tm.Start())

	for i := 0; i < 2; i++ {
		w.Tick()
	}
	require.Equal(t, 1, calls)
}

func TestTimer_StopDetachesTask(t *testing.T) {
	w := timingwheel.New(nil)

	fired := 0
	tm := timer.New(w, timer.Option{PeriodMS: 4, Callback: func() { fired++ }})
	require.NoError(t, tm.Start())
	tm.Stop()

	for i := 0; i < 4; i++ {
		w.Tick()
	}
	require.Equal(t, 0, fired)
}

func TestTimer_StopIsIdempotent(t *testing.T) {
	w := timingwheel.New(nil)
	tm := timer.New(w, timer.Option{PeriodMS: 4, Callback: func() {}})
	require.NoError(t, tm.Start())
	tm.Stop()
	tm.Stop()
}

func TestTimer_RejectsZeroPeriod(t *testing.T) {
	w := timingwheel.New(nil)
	tm := timer.New(w, timer.Option{PeriodMS: 0, Callback: func() {}})
	require.Error(t, tm.Start())
}

func TestTimer_RejectsOutOfRangePeriod(t *testing.T) {
	w := timingwheel.New(nil)
	tm := timer.New(w, timer.Option{PeriodMS: uint32(timingwheel.MaxIntervalMS) + 1, Callback: func() {}})
	require.Error(t, tm.Start())
}
