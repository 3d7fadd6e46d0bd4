package storage

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/valter-silva-au/mustdo/pkg/models"
)

// StopPath returns the stop stamp kept next to the document at path.
func StopPath(path string) string {
	return path + ".stop"
}

// StopStamp records the user's stop command in a small file so that every
// mustdo process sharing a task document can silence its own alarm.
type StopStamp interface {
	// Raise writes a fresh stamp.
	Raise() error
	// Raised reports whether the stamp changed since this StopStamp was
	// created or last raised or checked.
	Raised() (bool, error)
}

type fileStopStamp struct {
	path string
	last []byte
}

// NewStopStamp creates a StopStamp at path. A stamp already on disk is
// treated as seen.
func NewStopStamp(path string) StopStamp {
	s := &fileStopStamp{path: path}
	s.last, _ = os.ReadFile(path)
	return s
}

func (s *fileStopStamp) Raise() error {
	stamp := []byte(time.Now().UTC().Format(time.RFC3339Nano) + "\n")
	if err := os.WriteFile(s.path, stamp, 0o600); err != nil {
		return fmt.Errorf("writing stop stamp %s: %w: %v", s.path, models.ErrIO, err)
	}
	s.last = stamp
	return nil
}

func (s *fileStopStamp) Raised() (bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("reading stop stamp %s: %w: %v", s.path, models.ErrIO, err)
	}
	if bytes.Equal(data, s.last) {
		return false, nil
	}
	s.last = data
	return true, nil
}
