package core

import (
	"time"

	"github.com/valter-silva-au/mustdo/pkg/models"
)

// AlarmVerdict is the scanner's instruction to the alarm controller.
type AlarmVerdict string

const (
	// VerdictHold leaves the alarm as it is.
	VerdictHold  AlarmVerdict = "hold"
	VerdictStart AlarmVerdict = "start"
	VerdictStop  AlarmVerdict = "stop"
)

// ScanResult is the outcome of one pass over the collection.
type ScanResult struct {
	// Triggered lists tasks that became notified in this pass, in display order.
	Triggered []*models.Task
	Verdict   AlarmVerdict
}

// NeedsAlarm reports whether the task has just become due for its one
// alarm: it has a deadline at or before now, is not completed and has not
// been notified yet.
func NeedsAlarm(task *models.Task, now time.Time) bool {
	return task.Overdue(now) && !task.Notified
}

// AlarmShouldSound reports whether any task is overdue, uncompleted and
// already notified, i.e. still holds the alarm on.
func AlarmShouldSound(tasks []*models.Task, now time.Time) bool {
	for _, t := range tasks {
		if t.Notified && t.Overdue(now) {
			return true
		}
	}
	return false
}

// ScanDeadlines marks every newly overdue task as notified and decides
// what the alarm should do. All simultaneously overdue tasks are marked in
// the same pass.
func ScanDeadlines(tasks []*models.Task, now time.Time) ScanResult {
	res := ScanResult{Verdict: VerdictHold}
	for _, t := range tasks {
		if NeedsAlarm(t, now) {
			t.Notified = true
			res.Triggered = append(res.Triggered, t)
		}
	}

	switch {
	case len(res.Triggered) > 0:
		res.Verdict = VerdictStart
	case !AlarmShouldSound(tasks, now):
		res.Verdict = VerdictStop
	}
	return res
}

// AcknowledgeOverdue marks every task whose deadline is at or before now as
// notified, completed or not, and returns the tasks whose flag changed.
func AcknowledgeOverdue(tasks []*models.Task, now time.Time) []*models.Task {
	var changed []*models.Task
	for _, t := range tasks {
		if t.PastDue(now) {
			if !t.Notified {
				changed = append(changed, t)
			}
			t.Notified = true
		}
	}
	return changed
}
