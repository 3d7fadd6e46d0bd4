package observability

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/valter-silva-au/mustdo/pkg/models"
	"pgregory.net/rapid"
)

func taskDue(desc string, deadline time.Time) models.Task {
	return models.Task{Description: desc, Deadline: &deadline}
}

func TestAlertEngine_Overdue(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	done := taskDue("done", now.Add(-time.Hour))
	done.Completed = true
	tasks := []models.Task{
		taskDue("late", now.Add(-90*time.Minute)),
		done,
		taskDue("now", now),
	}

	alerts := NewAlertEngine(AlertThresholds{DueSoonMinutes: 0, MaxOpenTasks: 10}).Evaluate(tasks, now)

	if len(alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %d: %+v", len(alerts), alerts)
	}
	if alerts[0].ID != "overdue-1" || alerts[0].Severity != SeverityHigh || alerts[0].Condition != ConditionOverdue {
		t.Errorf("unexpected first alert: %+v", alerts[0])
	}
	if !strings.Contains(alerts[0].Message, "1h30m0s ago") {
		t.Errorf("message %q should say how late", alerts[0].Message)
	}
	if alerts[1].ID != "overdue-3" {
		t.Errorf("second alert ID = %s, want overdue-3", alerts[1].ID)
	}
}

func TestAlertEngine_DueSoon(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	tasks := []models.Task{
		taskDue("soon", now.Add(10*time.Minute)),
		taskDue("edge", now.Add(15*time.Minute)),
		taskDue("later", now.Add(16*time.Minute)),
		{Description: "no deadline"},
	}

	alerts := NewAlertEngine(DefaultAlertThresholds()).Evaluate(tasks, now)

	if len(alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %d: %+v", len(alerts), alerts)
	}
	for i, wantID := range []string{"due-soon-1", "due-soon-2"} {
		if alerts[i].ID != wantID || alerts[i].Severity != SeverityMedium {
			t.Errorf("alert %d = %+v, want %s medium", i, alerts[i], wantID)
		}
	}
	if !strings.Contains(alerts[0].Message, "10:10") {
		t.Errorf("message %q should include the due time", alerts[0].Message)
	}
}

func TestAlertEngine_TooManyOpen(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	tasks := []models.Task{{Description: "a"}, {Description: "b"}, {Description: "c", Completed: true}}

	alerts := NewAlertEngine(AlertThresholds{MaxOpenTasks: 1}).Evaluate(tasks, now)
	if len(alerts) != 1 || alerts[0].Condition != ConditionTooManyOpen || alerts[0].Severity != SeverityLow {
		t.Fatalf("unexpected alerts: %+v", alerts)
	}

	alerts = NewAlertEngine(AlertThresholds{MaxOpenTasks: 2}).Evaluate(tasks, now)
	if len(alerts) != 0 {
		t.Errorf("expected no alerts at the threshold, got %+v", alerts)
	}
}

func TestAlertEngine_ZeroThresholdsDisableRules(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	tasks := []models.Task{
		{Description: "a"},
		taskDue("soon", now.Add(5*time.Minute)),
	}

	alerts := NewAlertEngine(AlertThresholds{}).Evaluate(tasks, now)
	if len(alerts) != 0 {
		t.Errorf("zero thresholds should raise nothing, got %+v", alerts)
	}
}

func TestAlertEngine_EmptyCollection(t *testing.T) {
	alerts := NewAlertEngine(DefaultAlertThresholds()).Evaluate(nil, time.Now())
	if len(alerts) != 0 {
		t.Errorf("expected no alerts, got %+v", alerts)
	}
}

// Feature: mustdo, Property 9: Overdue Alerts Match Overdue Tasks
// *For any* collection, the number of task_overdue alerts equals the number
// of uncompleted tasks whose deadline is at or before now, and no task is
// both overdue and due soon.
func TestProperty9_OverdueAlertsMatchOverdueTasks(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
		n := rapid.IntRange(0, 12).Draw(rt, "n")
		tasks := make([]models.Task, n)
		wantOverdue := 0
		for i := range tasks {
			tasks[i].Description = "t"
			tasks[i].Completed = rapid.Bool().Draw(rt, "completed")
			if rapid.Bool().Draw(rt, "hasDeadline") {
				d := now.Add(time.Duration(rapid.IntRange(-60, 60).Draw(rt, "offset")) * time.Minute)
				tasks[i].Deadline = &d
			}
			if tasks[i].Overdue(now) {
				wantOverdue++
			}
		}

		alerts := NewAlertEngine(DefaultAlertThresholds()).Evaluate(tasks, now)

		seen := map[string]bool{}
		gotOverdue := 0
		for _, a := range alerts {
			if seen[a.ID] {
				rt.Fatalf("duplicate alert ID %s", a.ID)
			}
			seen[a.ID] = true
			if a.Condition == ConditionOverdue {
				gotOverdue++
			}
		}
		if gotOverdue != wantOverdue {
			rt.Fatalf("got %d overdue alerts, want %d", gotOverdue, wantOverdue)
		}
		for i := range tasks {
			pos := strconv.Itoa(i + 1)
			if seen["overdue-"+pos] && seen["due-soon-"+pos] {
				rt.Fatalf("task %d is both overdue and due soon", i+1)
			}
		}
	})
}
