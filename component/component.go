// Package component implements ComponentBase and the timer-component
// variant, the abstract host of one unit of work in the module system.
package component

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/hostmesh/hostrt/errors"
	"github.com/hostmesh/hostrt/node"
	"github.com/hostmesh/hostrt/scheduler"
	"github.com/hostmesh/hostrt/timer"
	"github.com/hostmesh/hostrt/timingwheel"
)

// Config is the framework-supplied configuration for a plain component: a
// class name, and paths to a config file and a flag file, each resolved
// against an environment search path before falling back to the literal
// path.
type Config struct {
	ClassName      string
	ConfigFilePath string
	FlagFilePath   string
}

// TimerConfig additionally carries a timer name and firing interval for a
// timer-driven component.
type TimerConfig struct {
	Config
	Name       string
	IntervalMS uint32
}

// Base is the interface every concrete component implements. Init is the
// subclass hook called at the end of Initialize; Clear is an optional
// teardown hook run before readers are shut down.
type Base interface {
	Init() bool
	Clear()
}

// Instantiable is the interface every plain component the module
// controller instantiates must satisfy. It is the fixed Base type the
// class loader is parameterized with for component classes: unlike the
// source's per-call template Base, this module's controller always loads
// against this one interface, since every graph-described class is a
// component.
type Instantiable interface {
	Base
	Initialize(name string, cfg Config, self Base, sched *scheduler.Scheduler, wheel *timingwheel.TimingWheel) bool
	Shutdown()
	IsShutdown() bool
}

// TimerInstantiable is Instantiable's timer-component counterpart: Proc is
// the periodic callback the module controller arms on the shared
// TimingWheel at the graph-specified interval.
type TimerInstantiable interface {
	Base
	InitializeTimer(cfg TimerConfig, self Base, sched *scheduler.Scheduler, wheel *timingwheel.TimingWheel, callback func()) bool
	Shutdown()
	IsShutdown() bool
	Proc()
}

// ComponentBase is the abstract host of one unit of work: it owns one Node
// and a list of readers, and drives the Initialize/Shutdown lifecycle the
// module controller expects of every component it creates.
type ComponentBase struct {
	isShutdown atomic.Bool

	node           *node.Node
	configFilePath string

	scheduler *scheduler.Scheduler
	wheel     *timingwheel.TimingWheel
	tm        *timer.Timer

	self Base
}

// resolveWithEnv mirrors the source's GetFilePathWithEnv: if path is
// non-empty, look for it under each ':'-separated directory named by the
// env var; fall back to the literal path (with a warning) when the env var
// is unset or the file isn't found under any of its entries.
func resolveWithEnv(log *slog.Logger, path, envVar string) string {
	if path == "" {
		return ""
	}
	if filepath.IsAbs(path) {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	searchPath := os.Getenv(envVar)
	if searchPath != "" {
		for _, dir := range filepath.SplitList(searchPath) {
			candidate := filepath.Join(dir, path)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}

	log.Warn("file not found under environment search path, using literal path",
		"path", path, "env_var", envVar)
	return path
}

// Initialize is the framework entry point called by the module controller.
// It resolves config/flag paths, constructs this component's Node, and
// finally calls the subclass's Init hook. self must be the concrete
// component embedding this ComponentBase.
func (c *ComponentBase) Initialize(name string, cfg Config, self Base, sched *scheduler.Scheduler, wheel *timingwheel.TimingWheel) bool {
	log := slog.Default()
	c.configFilePath = resolveWithEnv(log, cfg.ConfigFilePath, "APOLLO_CONF_PATH")
	if cfg.FlagFilePath != "" {
		resolveWithEnv(log, cfg.FlagFilePath, "APOLLO_FLAG_PATH")
	}

	c.node = node.New(name, "")
	c.scheduler = sched
	c.wheel = wheel
	c.self = self

	return self.Init()
}

// InitializeTimer is Initialize's timer-component counterpart: it also
// arms a periodic Timer at cfg.IntervalMS before calling Init.
func (c *ComponentBase) InitializeTimer(cfg TimerConfig, self Base, sched *scheduler.Scheduler, wheel *timingwheel.TimingWheel, callback func()) bool {
	if !c.Initialize(cfg.Name, cfg.Config, self, sched, wheel) {
		return false
	}

	c.tm = timer.New(wheel, timer.Option{PeriodMS: cfg.IntervalMS, Callback: callback})
	if err := c.tm.Start(); err != nil {
		slog.Default().Error("timer component failed to start its timer", "name", cfg.Name, "err", err)
		return false
	}
	if c.scheduler != nil {
		c.scheduler.RegisterTask(c.node.Name(), c.tm.Stop)
	}
	return true
}

// ConfigFilePath returns the resolved config file path.
func (c *ComponentBase) ConfigFilePath() string { return c.configFilePath }

// LoadConfig decodes the resolved config file into cfg, which must be a
// pointer. Generalizes GetProtoConfig<T> for a YAML-based config surface.
func (c *ComponentBase) LoadConfig(cfg any) error {
	if c.configFilePath == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "ComponentBase", "LoadConfig", "no config file path resolved")
	}
	data, err := os.ReadFile(c.configFilePath)
	if err != nil {
		return errors.WrapInvalid(err, "ComponentBase", "LoadConfig", "read "+c.configFilePath)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.WrapInvalid(err, "ComponentBase", "LoadConfig", "decode "+c.configFilePath)
	}
	return nil
}

// Node returns the component's Node.
func (c *ComponentBase) Node() *node.Node { return c.node }

// Shutdown is idempotent: it calls the subclass's Clear hook, clears the
// node's readers, and cancels every task the scheduler holds for this
// node's name. A second Shutdown call is a no-op.
func (c *ComponentBase) Shutdown() {
	if c.isShutdown.Swap(true) {
		return
	}

	c.self.Clear()
	c.node.ClearData()
	if c.scheduler != nil {
		c.scheduler.RemoveTask(c.node.Name())
	}
}

// IsShutdown reports whether Shutdown has run.
func (c *ComponentBase) IsShutdown() bool { return c.isShutdown.Load() }
