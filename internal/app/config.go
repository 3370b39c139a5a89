package app

import (
	"errors"
	"os"
	"strings"
)

// Config holds everything an App instance needs to run the requested phases.
type Config struct {
	// Experiment files.
	ConfigPath    string // flat NAME=VALUE experiment configuration
	ParamFilePath string // optional structured parameter file
	ParamGroup    string // root identifier of nested assignments, e.g. "params"
	TemplatePath  string
	RenderedPath  string

	// Phases. Any combination may be requested; they run in a fixed order.
	Reset      bool
	Start      bool // run once with visualization
	Headless   bool // run once without visualization
	TestLabel  string
	SweepPath  string
	Console    bool // interactive shell session over the fleet
	Logs       bool // log-tail session over the fleet
	Stream     bool // process-output session over the fleet
	ResetEach  bool // reset external state before every sweep run
	Permissive bool // leave unresolved template placeholders verbatim

	// Session options.
	SessionID    string
	FleetBase    string
	WorkerIDs    []int
	Synchronized bool

	// Fleet log convention.
	LogDir  string
	LogFile string

	// External collaborator commands, overridable through the environment.
	BackendCmd  []string
	HeadlessArg []string
	ResetCmd    []string
	CollectCmd  []string
	WorkDir     string

	SummaryPath string

	LogFormat string
	LogLevel  string
}

// NewConfig validates a config and fills in environment-driven defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.needsRun() && cfg.ConfigPath == "" {
		return nil, errors.New("a run phase requires -config pointing at the experiment configuration")
	}
	if cfg.needsRun() && cfg.TemplatePath == "" {
		return nil, errors.New("a run phase requires -template pointing at the configuration template")
	}
	if cfg.needsSession() && cfg.FleetBase == "" {
		return nil, errors.New("a session phase requires -fleet naming the worker fleet")
	}

	if cfg.RenderedPath == "" {
		cfg.RenderedPath = strings.TrimSuffix(cfg.TemplatePath, ".template")
	}
	if cfg.needsRun() && cfg.RenderedPath == cfg.TemplatePath {
		return nil, errors.New("rendered path equals the template path; name the template with a .template suffix or pass -render-out")
	}
	if cfg.SessionID == "" {
		cfg.SessionID = "monitor"
	}
	if cfg.LogFile == "" {
		cfg.LogFile = "monitor.log"
	}
	if cfg.ParamGroup == "" {
		cfg.ParamGroup = "params"
	}

	cfg.BackendCmd = commandFromEnv("TOYCHAIN_BACKEND", cfg.BackendCmd, []string{"argos3", "-c"})
	cfg.HeadlessArg = commandFromEnv("TOYCHAIN_HEADLESS_ARGS", cfg.HeadlessArg, []string{"-z"})
	cfg.ResetCmd = commandFromEnv("TOYCHAIN_RESET", cfg.ResetCmd, []string{"./reset-state.sh"})
	cfg.CollectCmd = commandFromEnv("TOYCHAIN_COLLECT", cfg.CollectCmd, []string{"./collect-results.sh"})

	return &cfg, nil
}

// needsRun reports whether any phase will launch the backend.
func (c *Config) needsRun() bool {
	return c.Start || c.Headless || c.TestLabel != "" || c.SweepPath != ""
}

// needsSession reports whether any monitoring session was requested.
func (c *Config) needsSession() bool {
	return c.Console || c.Logs || c.Stream
}

// commandFromEnv resolves a collaborator argv: an explicit value wins, then a
// whitespace-split environment variable, then the built-in default.
func commandFromEnv(envVar string, explicit, fallback []string) []string {
	if len(explicit) > 0 {
		return explicit
	}
	if v := os.Getenv(envVar); v != "" {
		return strings.Fields(v)
	}
	return fallback
}
