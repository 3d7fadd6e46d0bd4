package models

import "errors"

// Error kinds shared by the core and storage layers. Concrete failures wrap
// one of these and are matched with errors.Is.
var (
	ErrInvalidTimeFormat = errors.New("invalid time format")
	ErrEmptyDescription  = errors.New("task description cannot be empty")
	ErrNotFound          = errors.New("task not found")
	ErrIO                = errors.New("task store i/o failure")
	ErrCorruptStore      = errors.New("corrupt task store")
)
