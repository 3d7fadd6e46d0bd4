package core

import (
	"errors"
	"testing"
	"time"

	"github.com/valter-silva-au/mustdo/pkg/models"
	"pgregory.net/rapid"
)

func genTasks(t *rapid.T, now time.Time) []*models.Task {
	n := rapid.IntRange(0, 8).Draw(t, "n")
	tasks := make([]*models.Task, n)
	for i := range tasks {
		task := &models.Task{
			Description: rapid.StringMatching(`[a-z]{1,8}`).Draw(t, "description"),
			Completed:   rapid.Bool().Draw(t, "completed"),
			Notified:    rapid.Bool().Draw(t, "notified"),
		}
		if rapid.Bool().Draw(t, "hasDeadline") {
			d := now.Add(time.Duration(rapid.IntRange(-120, 120).Draw(t, "offsetMinutes")) * time.Minute)
			task.Deadline = &d
		}
		tasks[i] = task
	}
	return tasks
}

// Feature: mustdo, Property 5: Failed Lifecycle Operations Leave The Collection Unchanged
// *For any* collection, an invalid create or an operation on a task outside
// the collection returns an error and leaves length, order and flags alone.
func TestProperty5_FailedOperationsLeaveCollectionUnchanged(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		now := at(2026, 3, 14, 12, 0)
		tasks := genTasks(rt, now)
		tm := NewTaskManager(tasks)

		before := make([]models.Task, len(tasks))
		for i, task := range tasks {
			before[i] = *task
		}

		stranger := &models.Task{Description: "stranger"}
		op := rapid.IntRange(0, 3).Draw(rt, "op")
		var err error
		var want error
		switch op {
		case 0:
			_, err = tm.CreateTask("   ", "10:00", now)
			want = models.ErrEmptyDescription
		case 1:
			_, err = tm.CreateTask("valid", rapid.SampledFrom([]string{"24:00", "1:60", "noon", "12-30"}).Draw(rt, "clock"), now)
			want = models.ErrInvalidTimeFormat
		case 2:
			err = tm.CompleteTask(stranger)
			want = models.ErrNotFound
		case 3:
			err = tm.DeleteTask(stranger)
			want = models.ErrNotFound
		}
		if !errors.Is(err, want) {
			rt.Fatalf("op %d error = %v, want %v", op, err, want)
		}

		after := tm.GetAllTasks()
		if len(after) != len(before) {
			rt.Fatalf("length changed from %d to %d", len(before), len(after))
		}
		for i := range after {
			if after[i] != tasks[i] || *after[i] != before[i] {
				rt.Fatalf("task %d changed: %+v -> %+v", i, before[i], *after[i])
			}
		}
	})
}
