package models

import "time"

// AlarmConfig selects the playback collaborator used while the alarm sounds.
type AlarmConfig struct {
	Command string   `yaml:"command,omitempty" mapstructure:"command"`
	Args    []string `yaml:"args,omitempty" mapstructure:"args"`
	Bell    bool     `yaml:"bell" mapstructure:"bell"`
}

// ScanConfig controls the deadline scanner.
type ScanConfig struct {
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// StoreConfig controls how the task document is read.
type StoreConfig struct {
	// SkipMalformed drops only the malformed records on load instead of
	// discarding the whole document.
	SkipMalformed bool `yaml:"skip_malformed" mapstructure:"skip_malformed"`
}

// NotificationConfig configures the webhook sent when the alarm starts.
type NotificationConfig struct {
	Enabled    bool   `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL string `yaml:"webhook_url,omitempty" mapstructure:"webhook_url"`
}

// AlertConfig holds the thresholds used by the alert engine.
type AlertConfig struct {
	DueSoonMinutes int `yaml:"due_soon_minutes" mapstructure:"due_soon_minutes"`
	MaxOpenTasks   int `yaml:"max_open_tasks" mapstructure:"max_open_tasks"`
}

// GlobalConfig holds settings read from .mustdo.yaml via Viper.
type GlobalConfig struct {
	TasksFile     string             `yaml:"tasks_file" mapstructure:"tasks_file"`
	EventLog      string             `yaml:"event_log" mapstructure:"event_log"`
	Scan          ScanConfig         `yaml:"scan" mapstructure:"scan"`
	Alarm         AlarmConfig        `yaml:"alarm" mapstructure:"alarm"`
	Store         StoreConfig        `yaml:"store" mapstructure:"store"`
	Notifications NotificationConfig `yaml:"notifications" mapstructure:"notifications"`
	Alerts        AlertConfig        `yaml:"alerts" mapstructure:"alerts"`
}
