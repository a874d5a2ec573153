package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// CLIConfig holds command-line configuration for the mainboard process.
type CLIConfig struct {
	DagConfPaths   []string
	ProcessGroup   string
	SchedName      string
	SchedWorkers   int
	SchedQueueSize int
	PluginPath     string
	LogLevel       string
	LogFormat      string
	ShowVersion    bool
	ShowHelp       bool
}

// dagConfList accumulates repeated --dag_conf occurrences into a slice,
// matching the original's multi-file support.
type dagConfList struct{ values *[]string }

func (d *dagConfList) String() string {
	if d.values == nil {
		return ""
	}
	return strings.Join(*d.values, ",")
}

func (d *dagConfList) Set(value string) error {
	*d.values = append(*d.values, value)
	return nil
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.Var(&dagConfList{values: &cfg.DagConfPaths}, "dag_conf",
		"Path to a graph description file (env: MAINBOARD_DAG_CONF, repeatable)")

	flag.StringVar(&cfg.ProcessGroup, "process_group",
		getEnv("MAINBOARD_PROCESS_GROUP", "default"),
		"Scheduler process group name (env: MAINBOARD_PROCESS_GROUP)")

	flag.StringVar(&cfg.SchedName, "sched_name",
		getEnv("MAINBOARD_SCHED_NAME", "default"),
		"Scheduler policy name (env: MAINBOARD_SCHED_NAME)")

	flag.IntVar(&cfg.SchedWorkers, "sched_workers",
		getEnvInt("MAINBOARD_SCHED_WORKERS", 4),
		"Number of scheduler worker goroutines (env: MAINBOARD_SCHED_WORKERS)")

	flag.IntVar(&cfg.SchedQueueSize, "sched_queue_size",
		getEnvInt("MAINBOARD_SCHED_QUEUE_SIZE", 1024),
		"Scheduler submit queue capacity (env: MAINBOARD_SCHED_QUEUE_SIZE)")

	flag.StringVar(&cfg.PluginPath, "plugin",
		getEnv("MAINBOARD_PLUGIN", ""),
		"Path to the component artifact (Go plugin .so) to load (env: MAINBOARD_PLUGIN)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("MAINBOARD_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: MAINBOARD_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("MAINBOARD_LOG_FORMAT", "json"),
		"Log format: json, text (env: MAINBOARD_LOG_FORMAT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")

	flag.Usage = func() { printDetailedHelp() }
	flag.Parse()

	if envDag := os.Getenv("MAINBOARD_DAG_CONF"); envDag != "" && len(cfg.DagConfPaths) == 0 {
		cfg.DagConfPaths = strings.Split(envDag, ",")
	}

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}
	if len(cfg.DagConfPaths) == 0 {
		return fmt.Errorf("at least one --dag_conf is required")
	}
	for _, path := range cfg.DagConfPaths {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("dag conf not found: %s", path)
		}
	}
	if cfg.PluginPath == "" {
		return fmt.Errorf("--plugin is required")
	}
	if cfg.SchedWorkers <= 0 {
		return fmt.Errorf("--sched_workers must be positive, got %d", cfg.SchedWorkers)
	}
	if cfg.SchedQueueSize <= 0 {
		return fmt.Errorf("--sched_queue_size must be positive, got %d", cfg.SchedQueueSize)
	}
	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	validFormats := []string{"json", "text"}
	if !contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}
	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - module hosting process

Usage: %s --dag_conf=<path> [--dag_conf=<path> ...] --plugin=<path> [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Load one graph description against one artifact
  %s --dag_conf=/etc/mainboard/perception.yaml --plugin=/opt/mainboard/perception.so

  # Load multiple graph description files
  %s --dag_conf=a.yaml --dag_conf=b.yaml --plugin=modules.so

Version: %s
Build: %s
`, os.Args[0], os.Args[0], Version, BuildTime)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
