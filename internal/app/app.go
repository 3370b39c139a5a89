package app

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/donatienLeray/toychain-argos/internal/backend"
	"github.com/donatienLeray/toychain-argos/internal/expstore"
	"github.com/donatienLeray/toychain-argos/internal/lifecycle"
	"github.com/donatienLeray/toychain-argos/internal/mux"
	"github.com/donatienLeray/toychain-argos/internal/sweep"
	"github.com/donatienLeray/toychain-argos/internal/template"
)

// App encapsulates the orchestrator's dependencies, configuration, and
// lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config

	store     *expstore.Store
	manager   *lifecycle.Manager
	driver    *sweep.Driver
	resetter  backend.Resetter
	collector backend.ResultCollector
	sessions  *mux.Manager
}

// New is the constructor for the orchestrator. It loads the experiment
// configuration eagerly: a store that cannot be loaded is a fatal startup
// error, reported by panic and recovered at the entrypoint.
func New(outW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	a := &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		sessions: mux.NewManager(),
	}

	a.resetter = &backend.ExecResetter{Command: cfg.ResetCmd, Dir: cfg.WorkDir}
	a.collector = &backend.ExecCollector{Command: cfg.CollectCmd, Dir: cfg.WorkDir}

	if cfg.needsRun() || cfg.Reset {
		a.wireRunPath()
	}
	return a
}

// wireRunPath loads the store and builds the run machinery. Run phases need
// all of it; a bare reset only needs the resetter.
func (a *App) wireRunPath() {
	if a.config.ConfigPath == "" {
		return
	}

	store, err := expstore.Load(a.config.ConfigPath)
	if err != nil {
		panic(fmt.Errorf("failed to load experiment configuration: %w", err))
	}
	expstore.RegisterArenaDim(store)

	if a.config.ParamFilePath != "" {
		pf, err := expstore.LoadParamFile(a.config.ParamFilePath, a.config.ParamGroup)
		if err != nil {
			panic(fmt.Errorf("failed to load parameter file: %w", err))
		}
		store.AttachParamFile(pf)
	}
	a.store = store
	a.logger.Debug("Experiment configuration loaded.", "parameters", len(store.Names()))

	renderer := template.NewRenderer()
	if a.config.Permissive {
		renderer = template.NewPermissiveRenderer()
	}

	exec := &backend.ExecBackend{
		Command:      a.config.BackendCmd,
		HeadlessArgs: a.config.HeadlessArg,
		Dir:          a.config.WorkDir,
	}
	a.manager = lifecycle.NewManager(exec, a.resetter, renderer, a.config.TemplatePath, a.config.RenderedPath)
	a.driver = sweep.NewDriver(a.store, a.manager, a.collector, lifecycle.Options{
		Visualize: a.config.Start,
		Reset:     a.config.ResetEach,
	})
}

// Store exposes the loaded experiment store. This is primarily for testing.
func (a *App) Store() *expstore.Store {
	return a.store
}
