package core

import "github.com/valter-silva-au/mustdo/pkg/models"

// TaskPersister is the subset of storage.TaskStore that the engine needs.
// Defining it here keeps core independent of the storage package.
type TaskPersister interface {
	Save(tasks []*models.Task) error
	Load() ([]*models.Task, StoreLoadReport, error)
	Changed() (bool, error)
}

// StoreLoadReport mirrors storage.LoadReport.
type StoreLoadReport struct {
	Missing bool
	Corrupt bool
	Skipped int
	Cause   error
}

// StopRelay carries the user's stop command between processes sharing a
// store. Raise records a stop; Raised reports whether a stop was recorded
// by someone else since the last call.
type StopRelay interface {
	Raise() error
	Raised() (bool, error)
}
