package observability

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestLog(t *testing.T) (EventLog, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	log, err := NewJSONLEventLog(path)
	if err != nil {
		t.Fatalf("creating event log: %v", err)
	}
	t.Cleanup(func() { _ = log.Close() })
	return log, path
}

func TestEventLog_WriteAndRead(t *testing.T) {
	log, _ := newTestLog(t)

	now := time.Now().UTC().Truncate(time.Millisecond)
	events := []Event{
		{
			Time:    now,
			Level:   LevelInfo,
			Type:    "task.created",
			Message: `task "Call mom" created`,
			Data:    map[string]any{"description": "Call mom"},
		},
		{
			Time:    now.Add(time.Second),
			Level:   LevelWarn,
			Type:    "task.notified",
			Message: `task "Call mom" is overdue`,
			Data:    map[string]any{"description": "Call mom", "scan_id": "abc"},
		},
	}

	for _, e := range events {
		if err := log.Write(e); err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}

	result, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 events, got %d", len(result))
	}
	if result[0].Type != "task.created" {
		t.Errorf("expected type task.created, got %s", result[0].Type)
	}
	if result[1].Level != LevelWarn {
		t.Errorf("expected level WARN, got %s", result[1].Level)
	}
	if result[1].Data["scan_id"] != "abc" {
		t.Errorf("expected scan_id abc, got %v", result[1].Data["scan_id"])
	}
}

func TestEventLog_Filters(t *testing.T) {
	log, _ := newTestLog(t)

	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	for i, typ := range []string{"task.created", "alarm.started", "task.completed", "alarm.stopped"} {
		if err := log.Write(Event{Time: base.Add(time.Duration(i) * time.Minute), Level: LevelFor(typ), Type: typ}); err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}

	since := base.Add(time.Minute)
	until := base.Add(2 * time.Minute)
	tests := []struct {
		name   string
		filter EventFilter
		want   int
	}{
		{"all", EventFilter{}, 4},
		{"type", EventFilter{Type: "task.created"}, 1},
		{"prefix", EventFilter{TypePrefix: "alarm."}, 2},
		{"level", EventFilter{Level: LevelWarn}, 1},
		{"since", EventFilter{Since: &since}, 3},
		{"window", EventFilter{Since: &since, Until: &until}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := log.Read(tt.filter)
			if err != nil {
				t.Fatalf("reading events: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d events, want %d", len(got), tt.want)
			}
		})
	}
}

func TestEventLog_SkipsMalformedLines(t *testing.T) {
	log, path := newTestLog(t)
	if err := log.Write(NewEvent("task.created", map[string]any{"description": "a"})); err != nil {
		t.Fatalf("writing event: %v", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("opening log: %v", err)
	}
	_, _ = f.WriteString("{not json\n\n")
	_ = f.Close()

	if err := log.Write(NewEvent("task.deleted", map[string]any{"description": "a"})); err != nil {
		t.Fatalf("writing event: %v", err)
	}

	got, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 valid events, got %d", len(got))
	}
}

func TestEventLog_ReadMissingFile(t *testing.T) {
	log, path := newTestLog(t)
	if err := os.Remove(path); err != nil {
		t.Fatalf("removing log: %v", err)
	}
	got, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil events, got %v", got)
	}
}

func TestEventLog_ConcurrentWrites(t *testing.T) {
	log, _ := newTestLog(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = log.Write(NewEvent("scan.completed", nil))
		}()
	}
	wg.Wait()

	got, err := log.Read(EventFilter{Type: "scan.completed"})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(got) != 20 {
		t.Errorf("expected 20 events, got %d", len(got))
	}
}

func TestNewEvent(t *testing.T) {
	e := NewEvent("store.save_failed", map[string]any{"error": "disk full"})
	if e.Level != LevelError {
		t.Errorf("Level = %s, want ERROR", e.Level)
	}
	if e.Message != "disk full" {
		t.Errorf("Message = %q, want %q", e.Message, "disk full")
	}
	if e.Time.IsZero() || e.Time.Location() != time.UTC {
		t.Errorf("Time = %v, want current UTC time", e.Time)
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		eventType string
		data      map[string]any
		want      string
	}{
		{"task.completed", map[string]any{"description": "Call mom"}, `task "Call mom" completed`},
		{"alarm.stopped", map[string]any{"reason": "user"}, "alarm stopped by user"},
		{"alarm.stopped", nil, "alarm stopped"},
		{"scan.completed", nil, "scan.completed"},
	}
	for _, tt := range tests {
		if got := Describe(tt.eventType, tt.data); got != tt.want {
			t.Errorf("Describe(%s) = %q, want %q", tt.eventType, got, tt.want)
		}
	}
}
