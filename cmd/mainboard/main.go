// Package main implements the mainboard process: it loads one or more
// graph description files against a component artifact, instantiates and
// initializes every component they describe, and keeps the process alive
// as long as any loaded graph declared a timer component.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/hostmesh/hostrt/classregistry"
	"github.com/hostmesh/hostrt/mainboard"
	"github.com/hostmesh/hostrt/metric"
	"github.com/hostmesh/hostrt/scheduler"
	"github.com/hostmesh/hostrt/timingwheel"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "mainboard"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("mainboard failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cliCfg, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	metrics := metric.NewRegistry()
	sched := scheduler.Init(cliCfg.SchedWorkers, cliCfg.SchedQueueSize, metrics)
	wheel := timingwheel.New(func(cb timingwheel.TaskCallback) { sched.Submit(cb) })
	wheel.Start()

	ctrl := mainboard.New(classregistry.Instance(), sched, wheel)

	ctx := context.Background()
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	slog.Info("loading graph descriptions", "count", len(cliCfg.DagConfPaths), "plugin", cliCfg.PluginPath)
	if err := ctrl.LoadAll(cliCfg.DagConfPaths, cliCfg.PluginPath); err != nil {
		return fmt.Errorf("load graphs: %w", err)
	}
	slog.Info("modules loaded", "components", ctrl.ComponentCount(), "keep_alive", ctrl.KeepAlive())

	return runWithSignalHandling(ctx, ctrl, wheel, sched)
}

func initializeCLI() (*CLIConfig, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, true, nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, true, nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("starting mainboard", "version", Version, "build_time", BuildTime,
		"process_group", cliCfg.ProcessGroup, "sched_name", cliCfg.SchedName)

	return cliCfg, false, nil
}

func runWithSignalHandling(ctx context.Context, ctrl *mainboard.ModuleController, wheel *timingwheel.TimingWheel, sched *scheduler.Scheduler) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if !ctrl.KeepAlive() {
		slog.Info("no timer components loaded, shutting down immediately")
	} else {
		slog.Info("mainboard running, awaiting shutdown signal")
		<-signalCtx.Done()
		slog.Info("received shutdown signal")
	}

	ctrl.Shutdown()
	wheel.Shutdown()
	if err := sched.Stop(10 * time.Second); err != nil {
		slog.Warn("scheduler did not stop cleanly", "err", err)
	}
	return nil
}
