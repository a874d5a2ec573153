// Package mainboard implements ModuleController, the process host that
// reads graph description files, loads the artifacts they reference,
// instantiates and initializes their components, and retains the results
// so components outlive the controller's own call stack.
package mainboard

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hostmesh/hostrt/classloader"
	"github.com/hostmesh/hostrt/classregistry"
	"github.com/hostmesh/hostrt/component"
	"github.com/hostmesh/hostrt/errors"
	"github.com/hostmesh/hostrt/graphdesc"
	"github.com/hostmesh/hostrt/scheduler"
	"github.com/hostmesh/hostrt/timingwheel"
)

// ModuleController owns process-wide framework singletons and the
// retention list keeping instantiated components alive.
type ModuleController struct {
	registry  *classregistry.Registry
	loaders   *classloader.Manager
	scheduler *scheduler.Scheduler
	wheel     *timingwheel.TimingWheel
	log       *slog.Logger
	retry     errors.RetryConfig

	mu           sync.Mutex
	retained     []component.Instantiable
	retainedTmr  []component.TimerInstantiable
	hasTimerComp bool
}

// New constructs a ModuleController wired to the given framework
// singletons. sched drives worker execution; wheel drives timer firing.
func New(registry *classregistry.Registry, sched *scheduler.Scheduler, wheel *timingwheel.TimingWheel) *ModuleController {
	return &ModuleController{
		registry:  registry,
		loaders:   classloader.NewManager(registry),
		scheduler: sched,
		wheel:     wheel,
		log:       slog.Default(),
		retry:     errors.DefaultRetryConfig(),
	}
}

// LoadAll loads every dag config file in paths concurrently (one goroutine
// per file), then reports the first error encountered, if any.
func (c *ModuleController) LoadAll(paths []string, artifactPath string, opts ...classloader.Option) error {
	g := new(errgroup.Group)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			return c.LoadOne(path, artifactPath, opts...)
		})
	}
	return g.Wait()
}

// LoadOne loads a single dag config file: parses the graph, then
// instantiates and initializes its components sequentially, since
// components within one file may reference readers on a shared node built
// up incrementally. opts is forwarded to the underlying Loader, primarily
// so tests can substitute classloader.WithRegisterFunc for a real plugin.
func (c *ModuleController) LoadOne(path, artifactPath string, opts ...classloader.Option) error {
	graph, err := graphdesc.Parse(path)
	if err != nil {
		return errors.WrapFatal(err, "ModuleController", "LoadOne", "parse graph "+path)
	}

	if graph.HasTimerComponent() {
		c.mu.Lock()
		c.hasTimerComp = true
		c.mu.Unlock()
	}

	loader, err := c.loadLibraryWithRetry(artifactPath, opts...)
	if err != nil {
		return errors.WrapFatal(err, "ModuleController", "LoadOne", "load artifact "+artifactPath)
	}

	for _, module := range graph.Modules {
		for _, comp := range module.Components {
			if err := c.instantiatePlain(loader, comp); err != nil {
				c.log.Warn("component instantiation failed", "module", module.Name, "class", comp.ClassName, "err", err)
			}
		}
		for _, tc := range module.TimerComponents {
			if err := c.instantiateTimer(loader, tc); err != nil {
				c.log.Warn("timer component instantiation failed", "module", module.Name, "class", tc.ClassName, "err", err)
			}
		}
	}
	return nil
}

// loadLibraryWithRetry loads artifactPath, retrying on errors classified as
// transient (e.g. the artifact file being momentarily unavailable while
// it's being written by a deployment step) per c.retry's backoff schedule.
// Non-transient failures return immediately.
func (c *ModuleController) loadLibraryWithRetry(artifactPath string, opts ...classloader.Option) (*classloader.Loader, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		loader, err := c.loaders.LoadLibrary(artifactPath, opts...)
		if err == nil {
			return loader, nil
		}
		lastErr = err

		if !c.retry.ShouldRetry(err, attempt) {
			return nil, lastErr
		}
		delay := c.retry.BackoffDelay(attempt)
		c.log.Warn("retrying artifact load after transient error",
			"artifact", artifactPath, "attempt", attempt+1, "delay", delay, "err", err)
		time.Sleep(delay)
	}
}

func (c *ModuleController) instantiatePlain(loader *classloader.Loader, comp graphdesc.Component) error {
	h, err := classloader.CreateClassObj[component.Instantiable](loader, comp.ClassName)
	if err != nil {
		return err
	}

	cfg := component.Config{
		ClassName:      comp.ClassName,
		ConfigFilePath: comp.ConfigFilePath,
		FlagFilePath:   comp.FlagFilePath,
	}
	if !h.Object.Initialize(comp.ClassName, cfg, h.Object, c.scheduler, c.wheel) {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "ModuleController", "instantiatePlain", "Initialize returned false for "+comp.ClassName)
	}

	c.mu.Lock()
	c.retained = append(c.retained, h.Object)
	c.mu.Unlock()
	return nil
}

func (c *ModuleController) instantiateTimer(loader *classloader.Loader, tc graphdesc.TimerComponent) error {
	h, err := classloader.CreateClassObj[component.TimerInstantiable](loader, tc.ClassName)
	if err != nil {
		return err
	}

	cfg := component.TimerConfig{
		Config: component.Config{
			ClassName:      tc.ClassName,
			ConfigFilePath: tc.ConfigFilePath,
			FlagFilePath:   tc.FlagFilePath,
		},
		Name:       tc.Name,
		IntervalMS: tc.IntervalMS,
	}
	if !h.Object.InitializeTimer(cfg, h.Object, c.scheduler, c.wheel, h.Object.Proc) {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "ModuleController", "instantiateTimer", "InitializeTimer returned false for "+tc.ClassName)
	}

	c.mu.Lock()
	c.retainedTmr = append(c.retainedTmr, h.Object)
	c.mu.Unlock()
	return nil
}

// KeepAlive reports whether the process should stay alive after loading:
// true iff at least one loaded graph declared a timer component.
func (c *ModuleController) KeepAlive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasTimerComp
}

// Shutdown shuts down every retained component.
func (c *ModuleController) Shutdown() {
	c.mu.Lock()
	plain := append([]component.Instantiable(nil), c.retained...)
	timers := append([]component.TimerInstantiable(nil), c.retainedTmr...)
	c.mu.Unlock()

	for _, comp := range plain {
		comp.Shutdown()
	}
	for _, comp := range timers {
		comp.Shutdown()
	}
}

// ComponentCount returns the number of components retained so far, plain
// plus timer.
func (c *ModuleController) ComponentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.retained) + len(c.retainedTmr)
}
