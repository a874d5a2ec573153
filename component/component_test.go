package component_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hostmesh/hostrt/component"
	"github.com/hostmesh/hostrt/scheduler"
	"github.com/hostmesh/hostrt/timingwheel"
)

type fakeComponent struct {
	component.ComponentBase
	initCalled  bool
	clearCalled int
}

func (f *fakeComponent) Init() bool { f.initCalled = true; return true }
func (f *fakeComponent) Clear()     { f.clearCalled++ }

func TestComponentBase_InitializeCallsInit(t *testing.T) {
	c := &fakeComponent{}
	sched := scheduler.New(1, 8, nil)
	wheel := timingwheel.New(nil)

	ok := c.Initialize("comp-a", component.Config{ConfigFilePath: "app.yaml"}, c, sched, wheel)
	require.True(t, ok)
	require.True(t, c.initCalled)
	require.Equal(t, "comp-a", c.Node().Name())
}

func TestComponentBase_ShutdownIsIdempotent(t *testing.T) {
	c := &fakeComponent{}
	sched := scheduler.New(1, 8, nil)
	wheel := timingwheel.New(nil)
	require.True(t, c.Initialize("comp-b", component.Config{}, c, sched, wheel))

	c.Shutdown()
	c.Shutdown()
	require.Equal(t, 1, c.clearCalled)
	require.True(t, c.IsShutdown())
}

func TestComponentBase_TimerComponentStartsAndCancelsOnShutdown(t *testing.T) {
	c := &fakeComponent{}
	sched := scheduler.New(1, 8, nil)
	wheel := timingwheel.New(nil)

	fired := 0
	cfg := component.TimerConfig{Config: component.Config{}, Name: "comp-c", IntervalMS: 4}
	ok := c.InitializeTimer(cfg, c, sched, wheel, func() { fired++ })
	require.True(t, ok)

	wheel.Tick()
	wheel.Tick()
	require.Equal(t, 1, fired)

	c.Shutdown()

	for i := 0; i < 4; i++ {
		wheel.Tick()
	}
	require.Equal(t, 1, fired)
}
