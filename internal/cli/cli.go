package cli

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/donatienLeray/toychain-argos/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("argoscli", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
toychain-argos - experiment orchestration for a simulated robot swarm.

Usage:
  argoscli [options]

Phases (any combination; executed as reset, run, session):
`)
		flagSet.PrintDefaults()
	}

	// Experiment files.
	configFlag := flagSet.String("config", "", "Path to the NAME=VALUE experiment configuration.")
	paramsFlag := flagSet.String("params", "", "Path to the structured parameter file (optional).")
	templateFlag := flagSet.String("template", "", "Path to the configuration template.")
	renderOutFlag := flagSet.String("render-out", "", "Where to write the rendered configuration. Default: template path without its .template suffix.")

	// Phases.
	resetFlag := flagSet.Bool("reset", false, "Reset external persistent state.")
	startFlag := flagSet.Bool("start", false, "Run once with visualization.")
	headlessFlag := flagSet.Bool("headless", false, "Run once without visualization.")
	testFlag := flagSet.String("test", "", "One-shot test run under the given label: single repetition, no collection.")
	sweepFlag := flagSet.String("sweep", "", "Full sweep from the given .hcl file or directory.")
	consoleFlag := flagSet.Bool("console", false, "Attach an interactive console session to the fleet.")
	logsFlag := flagSet.Bool("logs", false, "Attach a log-tailing session to the fleet.")
	streamFlag := flagSet.Bool("stream", false, "Attach a process-output session to the fleet.")
	resetEachFlag := flagSet.Bool("reset-each", false, "Reset external state before every sweep run.")
	permissiveFlag := flagSet.Bool("permissive", false, "Leave unresolved template placeholders verbatim instead of failing.")

	// Session options.
	sessionFlag := flagSet.String("session", "monitor", "Session id. Reopening a live id tears the old session down.")
	fleetFlag := flagSet.String("fleet", "", "Fleet base name; workers are containers named {base}.{id}.")
	workersFlag := flagSet.String("workers", "", "Comma-separated worker ids to attach to, in the given order. Default: all.")
	syncFlag := flagSet.Bool("sync", false, "Broadcast keystrokes to every pane.")
	logDirFlag := flagSet.String("log-dir", "logs", "Directory holding per-worker log directories.")
	logFileFlag := flagSet.String("log-file", "monitor.log", "Per-worker log file name.")

	summaryFlag := flagSet.String("summary", "", "Write a YAML sweep summary to this path.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	if *startFlag && *headlessFlag {
		return nil, false, &ExitError{Code: 2, Message: "-start and -headless are mutually exclusive"}
	}

	workerIDs, err := parseWorkerIDs(*workersFlag)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	cfg := app.Config{
		ConfigPath:    *configFlag,
		ParamFilePath: *paramsFlag,
		TemplatePath:  *templateFlag,
		RenderedPath:  *renderOutFlag,

		Reset:      *resetFlag,
		Start:      *startFlag,
		Headless:   *headlessFlag,
		TestLabel:  *testFlag,
		SweepPath:  *sweepFlag,
		Console:    *consoleFlag,
		Logs:       *logsFlag,
		Stream:     *streamFlag,
		ResetEach:  *resetEachFlag,
		Permissive: *permissiveFlag,

		SessionID:    *sessionFlag,
		FleetBase:    *fleetFlag,
		WorkerIDs:    workerIDs,
		Synchronized: *syncFlag,
		LogDir:       *logDirFlag,
		LogFile:      *logFileFlag,

		SummaryPath: *summaryFlag,
		LogFormat:   logFormat,
		LogLevel:    logLevel,
	}

	if !cfg.Reset && cfg.TestLabel == "" && cfg.SweepPath == "" &&
		!cfg.Start && !cfg.Headless && !cfg.Console && !cfg.Logs && !cfg.Stream {
		flagSet.Usage()
		return nil, true, nil
	}

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	return config, false, nil
}

// parseWorkerIDs parses the -workers flag: a comma-separated list of
// positive integers whose order is preserved.
func parseWorkerIDs(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]int, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid worker id %q: must be a positive integer", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
