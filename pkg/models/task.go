package models

import "time"

// Task is a single reminder tracked by mustdo. Tasks are referenced by
// pointer identity inside the core; they carry no separate ID.
type Task struct {
	Description string     `json:"description" yaml:"description"`
	Deadline    *time.Time `json:"deadline" yaml:"deadline"`
	Completed   bool       `json:"completed" yaml:"completed"`
	Notified    bool       `json:"notified" yaml:"notified"`
}

// TaskStatus is the display classification of a task at a point in time.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusOverdue   TaskStatus = "overdue"
	StatusCompleted TaskStatus = "completed"
)

// PastDue reports whether the task has a deadline at or before now,
// regardless of completion.
func (t *Task) PastDue(now time.Time) bool {
	return t.Deadline != nil && !t.Deadline.After(now)
}

// Overdue reports whether the task is uncompleted and past its deadline.
// Tasks without a deadline are never overdue.
func (t *Task) Overdue(now time.Time) bool {
	return !t.Completed && t.PastDue(now)
}

// Status classifies the task for display. A task is shown as overdue only
// once its deadline is strictly in the past.
func (t *Task) Status(now time.Time) TaskStatus {
	switch {
	case t.Completed:
		return StatusCompleted
	case t.Deadline != nil && t.Deadline.Before(now):
		return StatusOverdue
	default:
		return StatusPending
	}
}

// DueLabel returns the "HH:MM" wall-clock time of the deadline, or "" when
// the task has none.
func (t *Task) DueLabel() string {
	if t.Deadline == nil {
		return ""
	}
	return t.Deadline.Format("15:04")
}

// AlarmState is the state of the alarm controller.
type AlarmState string

const (
	AlarmIdle     AlarmState = "idle"
	AlarmSounding AlarmState = "sounding"
)
