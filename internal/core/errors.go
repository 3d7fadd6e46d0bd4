package core

import (
	"fmt"

	"github.com/valter-silva-au/mustdo/pkg/models"
)

// TaskError pairs an error kind from the models package with detail.
// errors.Is matches it against the kind.
type TaskError struct {
	Kind error
	Msg  string
}

func (e *TaskError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *TaskError) Unwrap() error { return e.Kind }

func invalidTimef(format string, args ...any) error {
	return &TaskError{Kind: models.ErrInvalidTimeFormat, Msg: fmt.Sprintf(format, args...)}
}

func notFound(task *models.Task) error {
	if task == nil {
		return &TaskError{Kind: models.ErrNotFound, Msg: "nil task reference"}
	}
	return &TaskError{Kind: models.ErrNotFound, Msg: fmt.Sprintf("%q is not in the collection", task.Description)}
}

func positionMsg(position, count int) string {
	if count == 0 {
		return fmt.Sprintf("no task at position %d (the list is empty)", position)
	}
	return fmt.Sprintf("no task at position %d (valid: 1-%d)", position, count)
}
