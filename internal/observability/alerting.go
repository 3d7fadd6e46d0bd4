package observability

import (
	"fmt"
	"time"

	"github.com/valter-silva-au/mustdo/pkg/models"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Alert conditions.
const (
	ConditionOverdue     = "task_overdue"
	ConditionDueSoon     = "task_due_soon"
	ConditionTooManyOpen = "too_many_open"
)

// Alert represents a triggered alert condition.
type Alert struct {
	ID          string        `json:"id" yaml:"id"`
	Condition   string        `json:"condition" yaml:"condition"`
	Severity    AlertSeverity `json:"severity" yaml:"severity"`
	Message     string        `json:"message" yaml:"message"`
	TriggeredAt time.Time     `json:"triggered_at" yaml:"triggered_at"`
}

// AlertThresholds configures when alerts fire.
type AlertThresholds struct {
	// DueSoonMinutes is the look-ahead window for due-soon alerts; 0 disables them.
	DueSoonMinutes int `yaml:"due_soon_minutes" json:"due_soon_minutes"`
	// MaxOpenTasks is the open-task count above which too_many_open fires;
	// 0 disables it.
	MaxOpenTasks int `yaml:"max_open_tasks" json:"max_open_tasks"`
}

// DefaultAlertThresholds returns the default alert thresholds.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		DueSoonMinutes: 15,
		MaxOpenTasks:   20,
	}
}

// AlertEngine evaluates alert conditions against a task collection.
type AlertEngine interface {
	Evaluate(tasks []models.Task, now time.Time) []Alert
}

type alertEngine struct {
	thresholds AlertThresholds
}

// NewAlertEngine creates a new AlertEngine with the given thresholds.
func NewAlertEngine(thresholds AlertThresholds) AlertEngine {
	return &alertEngine{thresholds: thresholds}
}

// Evaluate returns the alerts triggered by tasks at now: overdue tasks
// first, then due-soon tasks, each in collection order, then the
// open-task count.
func (ae *alertEngine) Evaluate(tasks []models.Task, now time.Time) []Alert {
	var alerts []Alert
	alerts = append(alerts, ae.checkOverdue(tasks, now)...)
	alerts = append(alerts, ae.checkDueSoon(tasks, now)...)
	alerts = append(alerts, ae.checkOpenCount(tasks, now)...)
	return alerts
}

// checkOverdue alerts on every uncompleted task whose deadline has passed.
func (ae *alertEngine) checkOverdue(tasks []models.Task, now time.Time) []Alert {
	var alerts []Alert
	for i := range tasks {
		t := &tasks[i]
		if !t.Overdue(now) {
			continue
		}
		late := now.Sub(*t.Deadline).Truncate(time.Minute)
		alerts = append(alerts, Alert{
			ID:          fmt.Sprintf("overdue-%d", i+1),
			Condition:   ConditionOverdue,
			Severity:    SeverityHigh,
			Message:     fmt.Sprintf("%q was due at %s (%s ago)", t.Description, t.DueLabel(), late),
			TriggeredAt: now,
		})
	}
	return alerts
}

// checkDueSoon alerts on uncompleted tasks due within the look-ahead window.
func (ae *alertEngine) checkDueSoon(tasks []models.Task, now time.Time) []Alert {
	if ae.thresholds.DueSoonMinutes <= 0 {
		return nil
	}
	horizon := now.Add(time.Duration(ae.thresholds.DueSoonMinutes) * time.Minute)

	var alerts []Alert
	for i := range tasks {
		t := &tasks[i]
		if t.Completed || t.Deadline == nil {
			continue
		}
		if !t.Deadline.After(now) || t.Deadline.After(horizon) {
			continue
		}
		alerts = append(alerts, Alert{
			ID:          fmt.Sprintf("due-soon-%d", i+1),
			Condition:   ConditionDueSoon,
			Severity:    SeverityMedium,
			Message:     fmt.Sprintf("%q is due at %s", t.Description, t.DueLabel()),
			TriggeredAt: now,
		})
	}
	return alerts
}

// checkOpenCount alerts when too many tasks are still open.
func (ae *alertEngine) checkOpenCount(tasks []models.Task, now time.Time) []Alert {
	if ae.thresholds.MaxOpenTasks <= 0 {
		return nil
	}
	open := 0
	for i := range tasks {
		if !tasks[i].Completed {
			open++
		}
	}
	if open <= ae.thresholds.MaxOpenTasks {
		return nil
	}
	return []Alert{{
		ID:          "open-count",
		Condition:   ConditionTooManyOpen,
		Severity:    SeverityLow,
		Message:     fmt.Sprintf("%d tasks are open, exceeding the maximum of %d", open, ae.thresholds.MaxOpenTasks),
		TriggeredAt: now,
	}}
}
