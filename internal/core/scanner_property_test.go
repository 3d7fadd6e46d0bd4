package core

import (
	"testing"

	"github.com/valter-silva-au/mustdo/pkg/models"
	"pgregory.net/rapid"
)

// Feature: mustdo, Property 6: One Alarm Per Overdue Task
// *For any* collection, after a scan no uncompleted overdue task is left
// unnotified, a second scan at the same instant triggers nothing, and the
// verdict is start exactly when something was triggered.
func TestProperty6_OneAlarmPerOverdueTask(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		now := at(2026, 3, 14, 12, 0)
		tasks := genTasks(rt, now)

		wasNotified := make([]bool, len(tasks))
		for i, task := range tasks {
			wasNotified[i] = task.Notified
		}

		first := ScanDeadlines(tasks, now)
		for i, task := range tasks {
			if task.Overdue(now) && !task.Notified {
				rt.Fatalf("task %d overdue and unnotified after scan", i)
			}
			if wasNotified[i] && !task.Notified {
				rt.Fatalf("task %d lost its notified flag", i)
			}
		}
		if (first.Verdict == VerdictStart) != (len(first.Triggered) > 0) {
			rt.Fatalf("verdict %q with %d triggered", first.Verdict, len(first.Triggered))
		}

		second := ScanDeadlines(tasks, now)
		if len(second.Triggered) != 0 {
			rt.Fatalf("second scan triggered %d tasks", len(second.Triggered))
		}
		wantStop := !AlarmShouldSound(tasks, now)
		if (second.Verdict == VerdictStop) != wantStop {
			rt.Fatalf("second verdict %q, AlarmShouldSound=%v", second.Verdict, !wantStop)
		}
	})
}

// Feature: mustdo, Property 7: Acknowledgement Covers Every Past Deadline
// *For any* collection, after AcknowledgeOverdue every task with a deadline
// at or before now is notified, and nothing else changes.
func TestProperty7_AcknowledgementCoversEveryPastDeadline(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		now := at(2026, 3, 14, 12, 0)
		tasks := genTasks(rt, now)
		before := make([]models.Task, len(tasks))
		for i, task := range tasks {
			before[i] = *task
		}

		AcknowledgeOverdue(tasks, now)

		for i, task := range tasks {
			if task.PastDue(now) && !task.Notified {
				rt.Fatalf("task %d past due but not notified", i)
			}
			want := before[i]
			if task.PastDue(now) {
				want.Notified = true
			}
			if *task != want {
				rt.Fatalf("task %d = %+v, want %+v", i, *task, want)
			}
		}
		if res := ScanDeadlines(tasks, now); len(res.Triggered) != 0 {
			rt.Fatalf("scan after acknowledgement triggered %d tasks", len(res.Triggered))
		}
	})
}
