package observability

import (
	"fmt"
	"time"
)

// Metrics holds counts derived from the event log.
type Metrics struct {
	TasksCreated      int        `json:"tasks_created" yaml:"tasks_created"`
	TasksCompleted    int        `json:"tasks_completed" yaml:"tasks_completed"`
	TasksDeleted      int        `json:"tasks_deleted" yaml:"tasks_deleted"`
	TasksNotified     int        `json:"tasks_notified" yaml:"tasks_notified"`
	TasksAcknowledged int        `json:"tasks_acknowledged" yaml:"tasks_acknowledged"`
	AlarmsStarted     int        `json:"alarms_started" yaml:"alarms_started"`
	AlarmsStopped     int        `json:"alarms_stopped" yaml:"alarms_stopped"`
	// AlarmsSilenced counts stops issued by the user, as opposed to the
	// scanner stopping the alarm on its own.
	AlarmsSilenced int            `json:"alarms_silenced" yaml:"alarms_silenced"`
	Scans          int            `json:"scans" yaml:"scans"`
	Failures       map[string]int `json:"failures" yaml:"failures"`
	EventCount     int            `json:"event_count" yaml:"event_count"`
	OldestEvent    *time.Time     `json:"oldest_event,omitempty" yaml:"oldest_event,omitempty"`
	NewestEvent    *time.Time     `json:"newest_event,omitempty" yaml:"newest_event,omitempty"`
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a new MetricsCalculator that reads from the given EventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate reads all events since the given time and aggregates them into metrics.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	m := &Metrics{Failures: make(map[string]int)}
	m.EventCount = len(events)

	for i, event := range events {
		t := event.Time
		if i == 0 {
			m.OldestEvent = &t
		}
		m.NewestEvent = &t

		switch event.Type {
		case "task.created":
			m.TasksCreated++
		case "task.completed":
			m.TasksCompleted++
		case "task.deleted":
			m.TasksDeleted++
		case "task.notified":
			m.TasksNotified++
		case "task.acknowledged":
			m.TasksAcknowledged++
		case "alarm.started":
			// Restarts while already sounding are not new alarms.
			if restarted, _ := event.Data["restarted"].(bool); !restarted {
				m.AlarmsStarted++
			}
		case "alarm.stopped":
			m.AlarmsStopped++
			if reason, _ := event.Data["reason"].(string); reason == "user" {
				m.AlarmsSilenced++
			}
		case "scan.completed":
			m.Scans++
		}
		if event.Level == LevelError || event.Type == "store.corrupt" {
			m.Failures[event.Type]++
		}
	}

	return m, nil
}
