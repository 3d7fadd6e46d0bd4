package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/valter-silva-au/mustdo/pkg/models"
)

// SignalKind names a core-to-UI notification.
type SignalKind string

const (
	SignalTaskAdded    SignalKind = "task_added"
	SignalTaskUpdated  SignalKind = "task_updated"
	SignalTaskRemoved  SignalKind = "task_removed"
	SignalAlarmChanged SignalKind = "alarm_state_changed"
	// SignalTasksReloaded means the whole collection was replaced from the
	// store; previously held task references are stale.
	SignalTasksReloaded SignalKind = "tasks_reloaded"
)

// Signal is delivered to subscribers after the operation that produced it
// has released the engine.
type Signal struct {
	Kind  SignalKind
	Task  *models.Task
	Alarm models.AlarmState
}

// TickResult reports one deadline scan.
type TickResult struct {
	ScanID    string
	At        time.Time
	Triggered []*models.Task
	Verdict   AlarmVerdict
	Alarm     models.AlarmState
}

// EngineConfig holds the collaborators of an Engine.
type EngineConfig struct {
	Store TaskPersister
	// Player plays the alarm sound. nil disables playback.
	Player Player
	// Events receives engine events. nil disables event logging.
	Events EventLogger
	// Clock defaults to time.Now.
	Clock func() time.Time
	// Lock, when set, is held around every operation so that several
	// processes sharing one store serialize their load-mutate-save cycles.
	Lock func() (unlock func() error, err error)
	// Stops, when set, publishes StopAlarm to other processes and silences
	// this engine's alarm when another process stops it.
	Stops StopRelay
}

// Engine is the task core: lifecycle, store, scanner and alarm controller
// behind one mutex. Every operation runs to completion before the next one
// starts, and every successful mutation is persisted before returning.
type Engine struct {
	mu     sync.Mutex
	tasks  TaskManager
	store  TaskPersister
	alarm  *AlarmController
	events EventLogger
	clock  func() time.Time
	lock   func() (func() error, error)
	stops  StopRelay

	subMu sync.Mutex
	subs  []func(Signal)
}

// NewEngine creates an Engine with an empty collection. Call Load to read
// the store.
func NewEngine(cfg EngineConfig) *Engine {
	e := &Engine{
		tasks:  NewTaskManager(nil),
		store:  cfg.Store,
		events: cfg.Events,
		clock:  cfg.Clock,
		lock:   cfg.Lock,
		stops:  cfg.Stops,
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	e.alarm = NewAlarmController(cfg.Player, func(err error) {
		e.log(EventPlaybackFailed, map[string]any{"error": err.Error()})
	})
	return e
}

// Subscribe registers fn to receive signals. fn may call back into the engine.
func (e *Engine) Subscribe(fn func(Signal)) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	e.subs = append(e.subs, fn)
}

// Load replaces the collection with the store's content. A corrupt document
// is not an error; the report says what was lost.
func (e *Engine) Load() (StoreLoadReport, error) {
	var report StoreLoadReport
	err := e.run(false, func(_ time.Time, q *[]Signal) error {
		var err error
		report, err = e.loadLocked(q)
		return err
	})
	return report, err
}

// CreateTask validates and appends a task, then saves. When only the save
// fails, the task is returned together with the error and stays in memory.
func (e *Engine) CreateTask(description, clock string) (*models.Task, error) {
	var task *models.Task
	err := e.run(true, func(now time.Time, q *[]Signal) error {
		t, err := e.tasks.CreateTask(description, clock, now)
		if err != nil {
			return fmt.Errorf("creating task: %w", err)
		}
		task = t
		e.log(EventTaskCreated, taskData(t))
		*q = append(*q, Signal{Kind: SignalTaskAdded, Task: t})
		return e.persistLocked()
	})
	return task, err
}

// CompleteTask marks task completed and saves.
func (e *Engine) CompleteTask(task *models.Task) error {
	return e.run(true, func(_ time.Time, q *[]Signal) error {
		return e.completeLocked(task, q)
	})
}

// CompleteAt completes the task at a 1-based display position.
func (e *Engine) CompleteAt(position int) (*models.Task, error) {
	var task *models.Task
	err := e.run(true, func(_ time.Time, q *[]Signal) error {
		t, err := e.tasks.TaskAt(position)
		if err != nil {
			return fmt.Errorf("completing task: %w", err)
		}
		task = t
		return e.completeLocked(t, q)
	})
	return task, err
}

// DeleteTask removes task from the collection and saves.
func (e *Engine) DeleteTask(task *models.Task) error {
	return e.run(true, func(_ time.Time, q *[]Signal) error {
		return e.deleteLocked(task, q)
	})
}

// DeleteAt deletes the task at a 1-based display position.
func (e *Engine) DeleteAt(position int) (*models.Task, error) {
	var task *models.Task
	err := e.run(true, func(_ time.Time, q *[]Signal) error {
		t, err := e.tasks.TaskAt(position)
		if err != nil {
			return fmt.Errorf("deleting task: %w", err)
		}
		task = t
		return e.deleteLocked(t, q)
	})
	return task, err
}

// StopAlarm is the user's stop command: it silences the alarm, marks every
// task whose deadline has passed as notified, and saves. It returns the
// tasks that were newly acknowledged.
func (e *Engine) StopAlarm() ([]*models.Task, error) {
	var acked []*models.Task
	err := e.run(true, func(now time.Time, q *[]Signal) error {
		if e.alarm.Stop() {
			e.log(EventAlarmStopped, map[string]any{"reason": "user"})
			*q = append(*q, Signal{Kind: SignalAlarmChanged, Alarm: models.AlarmIdle})
		}
		acked = AcknowledgeOverdue(e.tasks.GetAllTasks(), now)
		for _, t := range acked {
			e.log(EventTaskAcknowledged, taskData(t))
			*q = append(*q, Signal{Kind: SignalTaskUpdated, Task: t})
		}
		err := e.persistLocked()
		if e.stops != nil {
			if rerr := e.stops.Raise(); rerr != nil && err == nil {
				err = fmt.Errorf("recording stop: %w", rerr)
			}
		}
		return err
	})
	return acked, err
}

// Tick runs one deadline scan. Newly overdue tasks are marked notified and
// saved; the alarm is started, stopped or left alone per the scan verdict.
// A save failure is returned but does not prevent the alarm decision.
func (e *Engine) Tick() (TickResult, error) {
	var res TickResult
	err := e.run(true, func(now time.Time, q *[]Signal) error {
		scan := ScanDeadlines(e.tasks.GetAllTasks(), now)
		res = TickResult{
			ScanID:    uuid.NewString(),
			At:        now,
			Triggered: scan.Triggered,
			Verdict:   scan.Verdict,
		}

		for _, t := range scan.Triggered {
			data := taskData(t)
			data["scan_id"] = res.ScanID
			e.log(EventTaskNotified, data)
			*q = append(*q, Signal{Kind: SignalTaskUpdated, Task: t})
		}

		var saveErr error
		if len(scan.Triggered) > 0 {
			saveErr = e.persistLocked()
		}

		switch scan.Verdict {
		case VerdictStart:
			changed := e.alarm.Start()
			e.log(EventAlarmStarted, map[string]any{
				"scan_id":   res.ScanID,
				"triggered": len(scan.Triggered),
				"restarted": !changed,
			})
			if changed {
				*q = append(*q, Signal{Kind: SignalAlarmChanged, Alarm: models.AlarmSounding})
			}
		case VerdictStop:
			if e.alarm.Stop() {
				e.log(EventAlarmStopped, map[string]any{"scan_id": res.ScanID, "reason": "scanner"})
				*q = append(*q, Signal{Kind: SignalAlarmChanged, Alarm: models.AlarmIdle})
			}
		}
		res.Alarm = e.alarm.State()

		e.log(EventScanCompleted, map[string]any{
			"scan_id":   res.ScanID,
			"tasks":     len(e.tasks.GetAllTasks()),
			"triggered": len(scan.Triggered),
			"verdict":   string(scan.Verdict),
		})
		return saveErr
	})
	return res, err
}

// Tasks returns the collection in display order. The pointers are the
// task references accepted by CompleteTask and DeleteTask; treat them as
// read-only.
func (e *Engine) Tasks() []*models.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tasks.GetAllTasks()
}

// Snapshot returns copies of every task in display order.
func (e *Engine) Snapshot() []models.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	all := e.tasks.GetAllTasks()
	out := make([]models.Task, len(all))
	for i, t := range all {
		out[i] = *t
		if t.Deadline != nil {
			d := *t.Deadline
			out[i].Deadline = &d
		}
	}
	return out
}

// TaskAt returns the task at a 1-based display position.
func (e *Engine) TaskAt(position int) (*models.Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tasks.TaskAt(position)
}

// AlarmState returns the alarm controller state.
func (e *Engine) AlarmState() models.AlarmState {
	return e.alarm.State()
}

// PlaybackError returns the last playback failure, if any.
func (e *Engine) PlaybackError() error {
	return e.alarm.LastError()
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time {
	return e.clock()
}

// Close stops playback without acknowledging any task.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.alarm.Stop()
	return nil
}

// run executes op under the engine mutex and the optional cross-process
// lock. When reload is set, a stop recorded by another process is applied
// and the collection is reloaded if the store changed on disk. Signals queued by op are delivered after release.
func (e *Engine) run(reload bool, op func(now time.Time, q *[]Signal) error) error {
	var q []Signal
	e.mu.Lock()
	err := func() error {
		if e.lock != nil {
			unlock, err := e.lock()
			if err != nil {
				return fmt.Errorf("locking task store: %w", err)
			}
			defer func() { _ = unlock() }()
		}
		if reload {
			if err := e.syncLocked(&q); err != nil {
				return err
			}
		}
		return op(e.clock(), &q)
	}()
	e.mu.Unlock()

	e.deliver(q)
	return err
}

func (e *Engine) syncLocked(q *[]Signal) error {
	if e.stops != nil {
		raised, err := e.stops.Raised()
		if err != nil {
			return fmt.Errorf("checking stop stamp: %w", err)
		}
		if raised && e.alarm.Stop() {
			e.log(EventAlarmStopped, map[string]any{"reason": "other_process"})
			*q = append(*q, Signal{Kind: SignalAlarmChanged, Alarm: models.AlarmIdle})
		}
	}
	if e.store == nil {
		return nil
	}
	changed, err := e.store.Changed()
	if err != nil {
		return fmt.Errorf("checking task store: %w", err)
	}
	if !changed {
		return nil
	}
	_, err = e.loadLocked(q)
	return err
}

func (e *Engine) loadLocked(q *[]Signal) (StoreLoadReport, error) {
	if e.store == nil {
		return StoreLoadReport{Missing: true}, nil
	}
	tasks, report, err := e.store.Load()
	if err != nil {
		return report, fmt.Errorf("loading tasks: %w", err)
	}
	if report.Corrupt || report.Skipped > 0 {
		data := map[string]any{
			"discarded_all": report.Corrupt,
			"skipped":       report.Skipped,
		}
		if report.Cause != nil {
			data["error"] = report.Cause.Error()
		}
		e.log(EventStoreCorrupt, data)
	}
	e.tasks.Replace(tasks)
	*q = append(*q, Signal{Kind: SignalTasksReloaded})
	return report, nil
}

func (e *Engine) completeLocked(task *models.Task, q *[]Signal) error {
	if err := e.tasks.CompleteTask(task); err != nil {
		return fmt.Errorf("completing task: %w", err)
	}
	e.log(EventTaskCompleted, taskData(task))
	*q = append(*q, Signal{Kind: SignalTaskUpdated, Task: task})
	return e.persistLocked()
}

func (e *Engine) deleteLocked(task *models.Task, q *[]Signal) error {
	if err := e.tasks.DeleteTask(task); err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	e.log(EventTaskDeleted, taskData(task))
	*q = append(*q, Signal{Kind: SignalTaskRemoved, Task: task})
	return e.persistLocked()
}

func (e *Engine) persistLocked() error {
	if e.store == nil {
		return nil
	}
	if err := e.store.Save(e.tasks.GetAllTasks()); err != nil {
		e.log(EventStoreSaveFailed, map[string]any{"error": err.Error()})
		return fmt.Errorf("saving tasks: %w", err)
	}
	return nil
}

func (e *Engine) deliver(q []Signal) {
	if len(q) == 0 {
		return
	}
	e.subMu.Lock()
	subs := make([]func(Signal), len(e.subs))
	copy(subs, e.subs)
	e.subMu.Unlock()

	for _, s := range q {
		for _, fn := range subs {
			fn(s)
		}
	}
}

func (e *Engine) log(eventType string, data map[string]any) {
	if e.events == nil {
		return
	}
	// Event logging is best effort.
	_ = e.events.LogEvent(eventType, data)
}

func taskData(t *models.Task) map[string]any {
	data := map[string]any{
		"description": t.Description,
		"completed":   t.Completed,
		"notified":    t.Notified,
	}
	if t.Deadline != nil {
		data["deadline"] = t.Deadline.Format(time.RFC3339)
	}
	return data
}
