package mainboard_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hostmesh/hostrt/classloader"
	"github.com/hostmesh/hostrt/classregistry"
	"github.com/hostmesh/hostrt/component"
	"github.com/hostmesh/hostrt/mainboard"
	"github.com/hostmesh/hostrt/scheduler"
	"github.com/hostmesh/hostrt/timingwheel"
)

type pingComponent struct {
	component.ComponentBase
	proc int
}

func (p *pingComponent) Init() bool { return true }
func (p *pingComponent) Clear()     {}
func (p *pingComponent) Proc()      { p.proc++ }

func registerPingComponent(r *classregistry.Registry) error {
	r.Register(classloader.BaseName[component.Instantiable](), "PingComponent", "ping.so",
		func() any { return &pingComponent{} })
	r.Register(classloader.BaseName[component.TimerInstantiable](), "PingTimerComponent", "ping.so",
		func() any { return &pingComponent{} })
	return nil
}

const graphYAML = `
modules:
  - name: demo
    components:
      - class_name: PingComponent
        config_file_path: ""
    timer_components:
      - name: PingTimer
        class_name: PingTimerComponent
        interval: 10
`

func TestModuleController_LoadOneInstantiatesAndRetains(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(graphYAML), 0o644))

	registry := classregistry.New(nil)
	sched := scheduler.New(1, 8, nil)
	wheel := timingwheel.New(nil)

	ctrl := mainboard.New(registry, sched, wheel)
	err := ctrl.LoadOne(path, "ping.so", classloader.WithRegisterFunc(registerPingComponent))
	require.NoError(t, err)

	require.Equal(t, 2, ctrl.ComponentCount())
	require.True(t, ctrl.KeepAlive())

	wheel.Tick()
	wheel.Tick()
	wheel.Tick()
	wheel.Tick()
	wheel.Tick()

	ctrl.Shutdown()
}

func TestModuleController_LoadAllRunsFilesConcurrently(t *testing.T) {
	dir := t.TempDir()
	path1 := filepath.Join(dir, "a.yaml")
	path2 := filepath.Join(dir, "b.yaml")
	require.NoError(t, os.WriteFile(path1, []byte(graphYAML), 0o644))
	require.NoError(t, os.WriteFile(path2, []byte(graphYAML), 0o644))

	registry := classregistry.New(nil)
	sched := scheduler.New(1, 8, nil)
	wheel := timingwheel.New(nil)

	ctrl := mainboard.New(registry, sched, wheel)
	err := ctrl.LoadAll([]string{path1, path2}, "ping.so", classloader.WithRegisterFunc(registerPingComponent))
	require.NoError(t, err)
	require.Equal(t, 4, ctrl.ComponentCount())
}
