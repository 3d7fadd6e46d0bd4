// Package core contains the business logic for mustdo: deadline
// resolution, the task lifecycle, the deadline scanner, the alarm state
// machine, and the engine that ties them to a task store.
package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/valter-silva-au/mustdo/pkg/models"
)

// ConfigFileName is the base name of the YAML configuration file.
const ConfigFileName = ".mustdo"

// ConfigurationManager defines the interface for loading and validating
// configuration from the .mustdo.yaml file.
type ConfigurationManager interface {
	LoadGlobalConfig() (*models.GlobalConfig, error)
	ValidateConfig(cfg *models.GlobalConfig) error
}

// viperConfigManager implements ConfigurationManager using Viper.
type viperConfigManager struct {
	// basePath is the directory where .mustdo.yaml resides.
	basePath string
}

// NewConfigurationManager creates a new ConfigurationManager that reads
// .mustdo.yaml relative to basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultGlobalConfig returns a GlobalConfig populated with defaults.
func DefaultGlobalConfig() *models.GlobalConfig {
	return &models.GlobalConfig{
		TasksFile: "tasks.json",
		EventLog:  ".mustdo_events.jsonl",
		Scan: models.ScanConfig{
			Interval: 60 * time.Second,
		},
		Alarm: models.AlarmConfig{
			Bell: true,
		},
		Alerts: models.AlertConfig{
			DueSoonMinutes: 15,
			MaxOpenTasks:   20,
		},
	}
}

// LoadGlobalConfig reads .mustdo.yaml from the base path using Viper.
// If the file does not exist, defaults are returned.
func (cm *viperConfigManager) LoadGlobalConfig() (*models.GlobalConfig, error) {
	cfg := DefaultGlobalConfig()

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)

	v.SetDefault("tasks_file", cfg.TasksFile)
	v.SetDefault("event_log", cfg.EventLog)
	v.SetDefault("scan.interval", cfg.Scan.Interval)
	v.SetDefault("alarm.command", cfg.Alarm.Command)
	v.SetDefault("alarm.bell", cfg.Alarm.Bell)
	v.SetDefault("store.skip_malformed", cfg.Store.SkipMalformed)
	v.SetDefault("notifications.enabled", cfg.Notifications.Enabled)
	v.SetDefault("notifications.webhook_url", cfg.Notifications.WebhookURL)
	v.SetDefault("alerts.due_soon_minutes", cfg.Alerts.DueSoonMinutes)
	v.SetDefault("alerts.max_open_tasks", cfg.Alerts.MaxOpenTasks)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading %s.yaml: %w", ConfigFileName, err)
	}

	cfg.TasksFile = v.GetString("tasks_file")
	cfg.EventLog = v.GetString("event_log")
	cfg.Scan.Interval = v.GetDuration("scan.interval")
	cfg.Alarm.Command = v.GetString("alarm.command")
	cfg.Alarm.Args = v.GetStringSlice("alarm.args")
	cfg.Alarm.Bell = v.GetBool("alarm.bell")
	cfg.Store.SkipMalformed = v.GetBool("store.skip_malformed")
	cfg.Notifications.Enabled = v.GetBool("notifications.enabled")
	cfg.Notifications.WebhookURL = v.GetString("notifications.webhook_url")
	cfg.Alerts.DueSoonMinutes = v.GetInt("alerts.due_soon_minutes")
	cfg.Alerts.MaxOpenTasks = v.GetInt("alerts.max_open_tasks")

	return cfg, nil
}

// ValidateConfig checks the configuration for invalid values and returns
// one error listing every problem.
func (cm *viperConfigManager) ValidateConfig(cfg *models.GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	if strings.TrimSpace(cfg.TasksFile) == "" {
		errs = append(errs, "tasks_file must not be empty")
	}

	if cfg.Scan.Interval <= 0 {
		errs = append(errs, fmt.Sprintf("scan.interval must be positive, got %s", cfg.Scan.Interval))
	}

	if cfg.Alerts.DueSoonMinutes < 0 {
		errs = append(errs, fmt.Sprintf("alerts.due_soon_minutes must be non-negative, got %d", cfg.Alerts.DueSoonMinutes))
	}

	if cfg.Alerts.MaxOpenTasks < 0 {
		errs = append(errs, fmt.Sprintf("alerts.max_open_tasks must be non-negative, got %d", cfg.Alerts.MaxOpenTasks))
	}

	if cfg.Notifications.Enabled && cfg.Notifications.WebhookURL == "" {
		errs = append(errs, "notifications.webhook_url is required when notifications are enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
