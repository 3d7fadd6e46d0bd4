// Package internal provides the App struct that wires all components of
// mustdo together and initializes the CLI layer.
package internal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/valter-silva-au/mustdo/internal/cli"
	"github.com/valter-silva-au/mustdo/internal/core"
	"github.com/valter-silva-au/mustdo/internal/integration"
	"github.com/valter-silva-au/mustdo/internal/observability"
	"github.com/valter-silva-au/mustdo/internal/storage"
	"github.com/valter-silva-au/mustdo/pkg/models"
)

// HomeEnv names the environment variable that overrides the data directory.
const HomeEnv = "MUSTDO_HOME"

// outboxFile holds webhook notifications waiting to be retried.
const outboxFile = ".mustdo_outbox.json"

// App holds all service dependencies for mustdo.
type App struct {
	BasePath string

	// Configuration
	ConfigMgr core.ConfigurationManager
	Config    *models.GlobalConfig

	// Storage layer
	Store storage.TaskStore

	// Core services
	Engine *core.Engine

	// Integration services
	Player integration.Player

	// Observability
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier

	// Warnings collects non-fatal problems found while starting up.
	Warnings []string
}

// NewApp creates and wires all components of mustdo. basePath is the
// directory holding .mustdo.yaml, the task document and the event log.
func NewApp(basePath string) (*App, error) {
	return newApp(basePath, os.Stderr)
}

// newApp is NewApp with the writer used by the terminal bell. It must not
// be stdout, which `mcp serve` uses as its transport.
func newApp(basePath string, bellOut io.Writer) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.LoadGlobalConfig()
	if err != nil {
		return nil, err
	}
	if err := app.ConfigMgr.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	app.Config = cfg

	// --- Storage layer ---
	tasksPath := resolvePath(basePath, cfg.TasksFile)
	if err := os.MkdirAll(filepath.Dir(tasksPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	app.Store = storage.NewTaskStore(tasksPath, storage.LoadOptions{
		SkipMalformed: cfg.Store.SkipMalformed,
	})

	// --- Integration services ---
	app.Player = integration.NewPlayer(cfg.Alarm, bellOut)

	// --- Observability ---
	app.EventLog, err = observability.NewJSONLEventLog(resolvePath(basePath, cfg.EventLog))
	if err != nil {
		// Non-fatal: run without an event log.
		app.EventLog = nil
		app.Warnings = append(app.Warnings, fmt.Sprintf("event log disabled: %v", err))
	}
	app.AlertEngine = observability.NewAlertEngine(observability.AlertThresholds{
		DueSoonMinutes: cfg.Alerts.DueSoonMinutes,
		MaxOpenTasks:   cfg.Alerts.MaxOpenTasks,
	})
	if app.EventLog != nil {
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
	}
	if cfg.Notifications.Enabled && cfg.Notifications.WebhookURL != "" {
		app.Notifier = observability.NewOutbox(
			observability.NewSlackNotifier(cfg.Notifications.WebhookURL, ""),
			filepath.Join(basePath, outboxFile),
		)
	}

	// --- Core services ---
	var events core.EventLogger
	if app.EventLog != nil {
		events = &eventLogAdapter{log: app.EventLog}
	}
	lockPath := storage.LockPath(tasksPath)
	app.Engine = core.NewEngine(core.EngineConfig{
		Store:  &storeAdapter{store: app.Store},
		Player: app.Player,
		Events: events,
		Lock:   func() (func() error, error) { return storage.LockFile(lockPath) },
		Stops:  storage.NewStopStamp(storage.StopPath(tasksPath)),
	})

	report, err := app.Engine.Load()
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	switch {
	case report.Corrupt:
		app.Warnings = append(app.Warnings, fmt.Sprintf("%s was unreadable and has been ignored: %v", tasksPath, report.Cause))
	case report.Skipped > 0:
		app.Warnings = append(app.Warnings, fmt.Sprintf("skipped %d malformed task(s) in %s: %v", report.Skipped, tasksPath, report.Cause))
	}

	// --- Wire CLI package-level variables ---
	cli.Engine = app.Engine
	cli.ScanInterval = cfg.Scan.Interval
	cli.EventLog = app.EventLog
	cli.AlertEngine = app.AlertEngine
	cli.MetricsCalc = app.MetricsCalc
	cli.Notifier = app.Notifier

	return app, nil
}

// Close stops the alarm and releases the event log file handle. It is
// safe to call Close on a partially initialized App.
func (a *App) Close() error {
	var firstErr error
	if a.Engine != nil {
		if err := a.Engine.Close(); err != nil {
			firstErr = err
		}
	}
	if a.EventLog != nil {
		if err := a.EventLog.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ResolveBasePath determines the mustdo data directory. It checks the
// MUSTDO_HOME env var, then walks up from the current directory looking
// for .mustdo.yaml, then falls back to the current directory.
func ResolveBasePath() string {
	if home := os.Getenv(HomeEnv); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	cwd := dir
	for {
		if _, err := os.Stat(filepath.Join(dir, core.ConfigFileName+".yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return cwd
}

func resolvePath(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// --- Adapters ---

// storeAdapter adapts storage.TaskStore to core.TaskPersister.
type storeAdapter struct {
	store storage.TaskStore
}

func (a *storeAdapter) Save(tasks []*models.Task) error {
	return a.store.Save(tasks)
}

func (a *storeAdapter) Load() ([]*models.Task, core.StoreLoadReport, error) {
	tasks, r, err := a.store.Load()
	return tasks, core.StoreLoadReport{
		Missing: r.Missing,
		Corrupt: r.Corrupt,
		Skipped: r.Skipped,
		Cause:   r.Cause,
	}, err
}

func (a *storeAdapter) Changed() (bool, error) {
	return a.store.Changed()
}

// eventLogAdapter adapts observability.EventLog to core.EventLogger.
type eventLogAdapter struct {
	log observability.EventLog
}

func (a *eventLogAdapter) LogEvent(eventType string, data map[string]any) error {
	return a.log.Write(observability.NewEvent(eventType, data))
}
