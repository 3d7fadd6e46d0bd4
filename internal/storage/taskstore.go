package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/valter-silva-au/mustdo/pkg/models"
)

// deadlineLayout is the wall-clock ISO-8601 form written for deadlines.
// Fractional seconds are emitted only when non-zero.
const deadlineLayout = "2006-01-02T15:04:05.999999999"

// localDeadlineLayouts are accepted for deadlines without a UTC offset and
// are interpreted in the local time zone.
var localDeadlineLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// taskRecord is the on-disk form of a task. Missing keys decode to their
// zero values, which are also the documented defaults.
type taskRecord struct {
	Description string  `json:"description"`
	Deadline    *string `json:"deadline"`
	Completed   bool    `json:"completed"`
	Notified    bool    `json:"notified"`
}

// LoadReport describes what happened while reading the task document.
type LoadReport struct {
	// Missing is set when the document did not exist.
	Missing bool
	// Corrupt is set when the whole document was discarded.
	Corrupt bool
	// Skipped counts malformed records dropped in skip-malformed mode.
	Skipped int
	// Cause holds the first decode failure, wrapped in ErrCorruptStore.
	Cause error
}

// LoadOptions control tolerant decoding.
type LoadOptions struct {
	SkipMalformed bool
}

// TaskStore defines the interface for the flat JSON task document.
type TaskStore interface {
	Save(tasks []*models.Task) error
	Load() ([]*models.Task, LoadReport, error)
	// Changed reports whether the document on disk differs from the one
	// this store last read or wrote.
	Changed() (bool, error)
	Path() string
}

type fileTaskStore struct {
	path string
	opts LoadOptions

	// Fingerprint of the document as last seen by Load or Save.
	seen    bool
	modTime time.Time
	size    int64
}

// NewTaskStore creates a TaskStore backed by the JSON document at path.
func NewTaskStore(path string, opts LoadOptions) TaskStore {
	return &fileTaskStore{path: path, opts: opts}
}

func (s *fileTaskStore) Path() string {
	return s.path
}

// Save writes every task as one JSON array, overwriting the document.
func (s *fileTaskStore) Save(tasks []*models.Task) error {
	data, err := EncodeTasks(tasks)
	if err != nil {
		return fmt.Errorf("saving tasks: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("saving tasks: creating directory: %w: %v", models.ErrIO, err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("saving tasks: writing %s: %w: %v", s.path, models.ErrIO, err)
	}
	s.remember()
	return nil
}

// Load reads the document. A missing document yields an empty collection.
// An undecodable document also yields an empty collection without error;
// the report says so.
func (s *fileTaskStore) Load() ([]*models.Task, LoadReport, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.seen = false
			return []*models.Task{}, LoadReport{Missing: true}, nil
		}
		return nil, LoadReport{}, fmt.Errorf("loading tasks: reading %s: %w: %v", s.path, models.ErrIO, err)
	}
	s.remember()

	tasks, report := DecodeTasks(data, s.opts)
	return tasks, report, nil
}

func (s *fileTaskStore) Changed() (bool, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s.seen, nil
		}
		return false, fmt.Errorf("checking %s: %w: %v", s.path, models.ErrIO, err)
	}
	if !s.seen {
		return true, nil
	}
	return !info.ModTime().Equal(s.modTime) || info.Size() != s.size, nil
}

func (s *fileTaskStore) remember() {
	info, err := os.Stat(s.path)
	if err != nil {
		s.seen = false
		return
	}
	s.seen = true
	s.modTime = info.ModTime()
	s.size = info.Size()
}

// EncodeTasks renders tasks as the persisted JSON array.
func EncodeTasks(tasks []*models.Task) ([]byte, error) {
	records := make([]taskRecord, 0, len(tasks))
	for _, t := range tasks {
		rec := taskRecord{
			Description: t.Description,
			Completed:   t.Completed,
			Notified:    t.Notified,
		}
		if t.Deadline != nil {
			d := FormatDeadline(*t.Deadline)
			rec.Deadline = &d
		}
		records = append(records, rec)
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("marshaling tasks: %w", err)
	}
	return data, nil
}

// DecodeTasks parses the persisted JSON array. It never fails: a document
// that is not a JSON array, or a malformed record when opts.SkipMalformed is
// false, discards every task and marks the report Corrupt.
func DecodeTasks(data []byte, opts LoadOptions) ([]*models.Task, LoadReport) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return []*models.Task{}, LoadReport{
			Corrupt: true,
			Cause:   fmt.Errorf("%w: %v", models.ErrCorruptStore, err),
		}
	}
	if raw == nil {
		return []*models.Task{}, LoadReport{
			Corrupt: true,
			Cause:   fmt.Errorf("%w: document is not a JSON array", models.ErrCorruptStore),
		}
	}

	var report LoadReport
	tasks := make([]*models.Task, 0, len(raw))
	for i, r := range raw {
		task, err := decodeRecord(r)
		if err != nil {
			cause := fmt.Errorf("%w: record %d: %v", models.ErrCorruptStore, i, err)
			if !opts.SkipMalformed {
				return []*models.Task{}, LoadReport{Corrupt: true, Cause: cause}
			}
			if report.Cause == nil {
				report.Cause = cause
			}
			report.Skipped++
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, report
}

func decodeRecord(r json.RawMessage) (*models.Task, error) {
	var rec taskRecord
	if err := json.Unmarshal(r, &rec); err != nil {
		return nil, err
	}
	task := &models.Task{
		Description: rec.Description,
		Completed:   rec.Completed,
		Notified:    rec.Notified,
	}
	if rec.Deadline != nil && *rec.Deadline != "" {
		d, err := ParseDeadline(*rec.Deadline)
		if err != nil {
			return nil, err
		}
		task.Deadline = &d
	}
	return task, nil
}

// FormatDeadline renders a deadline as a local wall-clock ISO-8601 string.
func FormatDeadline(t time.Time) string {
	return t.In(time.Local).Format(deadlineLayout)
}

// ParseDeadline parses an ISO-8601 date-time. Values carrying a UTC offset
// are converted to local time; values without one are taken as local.
func ParseDeadline(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(time.Local), nil
	}
	for _, layout := range localDeadlineLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("deadline %q is not an ISO-8601 date-time", s)
}
