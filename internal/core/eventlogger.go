package core

// EventLogger is the subset of the observability event log that core
// services need. Defining it here avoids importing the observability package.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}

// Event types emitted by the engine.
const (
	EventTaskCreated      = "task.created"
	EventTaskCompleted    = "task.completed"
	EventTaskDeleted      = "task.deleted"
	EventTaskNotified     = "task.notified"
	EventTaskAcknowledged = "task.acknowledged"
	EventAlarmStarted     = "alarm.started"
	EventAlarmStopped     = "alarm.stopped"
	EventScanCompleted    = "scan.completed"
	EventStoreCorrupt     = "store.corrupt"
	EventStoreSaveFailed  = "store.save_failed"
	EventPlaybackFailed   = "alarm.playback_failed"
)
