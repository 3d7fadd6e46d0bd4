package core

import (
	"strings"
	"time"

	"github.com/valter-silva-au/mustdo/pkg/models"
)

// TaskManager defines the task lifecycle operations over the ordered
// collection. It never persists; callers save after each successful mutation.
type TaskManager interface {
	// CreateTask validates description, resolves clock ("" for no deadline)
	// against now, and appends the new task.
	CreateTask(description, clock string, now time.Time) (*models.Task, error)
	CompleteTask(task *models.Task) error
	DeleteTask(task *models.Task) error
	GetAllTasks() []*models.Task
	// TaskAt returns the task at a 1-based display position.
	TaskAt(position int) (*models.Task, error)
	Contains(task *models.Task) bool
	Replace(tasks []*models.Task)
}

// taskManager keeps tasks in insertion order, which is display order.
// Tasks are identified by pointer.
type taskManager struct {
	tasks []*models.Task
}

// NewTaskManager creates a TaskManager over an initial collection.
func NewTaskManager(tasks []*models.Task) TaskManager {
	tm := &taskManager{}
	tm.Replace(tasks)
	return tm
}

func (tm *taskManager) CreateTask(description, clock string, now time.Time) (*models.Task, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, &TaskError{Kind: models.ErrEmptyDescription}
	}

	task := &models.Task{Description: description}
	if clock != "" {
		deadline, err := ResolveDeadline(clock, now)
		if err != nil {
			return nil, err
		}
		task.Deadline = &deadline
	}

	tm.tasks = append(tm.tasks, task)
	return task, nil
}

// CompleteTask marks the task completed. Completing twice is a no-op; the
// deadline and notified flag are left alone.
func (tm *taskManager) CompleteTask(task *models.Task) error {
	if tm.indexOf(task) < 0 {
		return notFound(task)
	}
	task.Completed = true
	return nil
}

func (tm *taskManager) DeleteTask(task *models.Task) error {
	i := tm.indexOf(task)
	if i < 0 {
		return notFound(task)
	}
	tm.tasks = append(tm.tasks[:i], tm.tasks[i+1:]...)
	return nil
}

func (tm *taskManager) GetAllTasks() []*models.Task {
	out := make([]*models.Task, len(tm.tasks))
	copy(out, tm.tasks)
	return out
}

func (tm *taskManager) TaskAt(position int) (*models.Task, error) {
	if position < 1 || position > len(tm.tasks) {
		return nil, &TaskError{Kind: models.ErrNotFound, Msg: positionMsg(position, len(tm.tasks))}
	}
	return tm.tasks[position-1], nil
}

func (tm *taskManager) Contains(task *models.Task) bool {
	return tm.indexOf(task) >= 0
}

func (tm *taskManager) Replace(tasks []*models.Task) {
	tm.tasks = make([]*models.Task, 0, len(tasks))
	for _, t := range tasks {
		if t != nil {
			tm.tasks = append(tm.tasks, t)
		}
	}
}

func (tm *taskManager) indexOf(task *models.Task) int {
	if task == nil {
		return -1
	}
	for i, t := range tm.tasks {
		if t == task {
			return i
		}
	}
	return -1
}
