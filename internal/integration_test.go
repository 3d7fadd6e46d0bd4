package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/valter-silva-au/mustdo/internal/observability"
	"github.com/valter-silva-au/mustdo/pkg/models"
)

// Two Apps on one data directory stand in for two mustdo processes: a
// "watch" session and one-shot commands run from another terminal.
func TestIntegration_SharedStoreAcrossProcesses(t *testing.T) {
	dir := t.TempDir()
	doc := `[{"description":"Pay rent","deadline":"2020-01-01T09:00:00"}]`
	if err := os.WriteFile(filepath.Join(dir, "tasks.json"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	watcher := newTestApp(t, dir)
	oneShot := newTestApp(t, dir)

	if _, err := oneShot.Engine.CreateTask("Call bank", ""); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	res, err := watcher.Engine.Tick()
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(res.Triggered) != 1 || res.Triggered[0].Description != "Pay rent" {
		t.Fatalf("triggered = %+v, want Pay rent", res.Triggered)
	}
	if watcher.Engine.AlarmState() != models.AlarmSounding {
		t.Fatalf("alarm = %s, want sounding", watcher.Engine.AlarmState())
	}
	if got := len(watcher.Engine.Snapshot()); got != 2 {
		t.Errorf("watcher sees %d tasks, want 2 after reload", got)
	}

	// Completing the overdue task elsewhere lets the next scan stop the alarm.
	done, err := oneShot.Engine.CompleteAt(1)
	if err != nil {
		t.Fatalf("CompleteAt: %v", err)
	}
	if !done.Notified {
		t.Error("one-shot engine should have reloaded the notified flag")
	}

	res, err = watcher.Engine.Tick()
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if res.Alarm != models.AlarmIdle {
		t.Errorf("alarm = %s, want idle once nothing is overdue", res.Alarm)
	}

	events, err := watcher.EventLog.Read(observability.EventFilter{TypePrefix: "alarm."})
	if err != nil {
		t.Fatal(err)
	}
	var types []string
	for _, e := range events {
		types = append(types, e.Type)
	}
	if len(types) != 2 || types[0] != "alarm.started" || types[1] != "alarm.stopped" {
		t.Errorf("alarm events = %v, want [alarm.started alarm.stopped]", types)
	}
}

func TestIntegration_StopAcknowledgesAndPersists(t *testing.T) {
	dir := t.TempDir()
	doc := `[
  {"description":"Stand-up","deadline":"2020-01-01T09:00:00"},
  {"description":"Retro","deadline":"2020-01-01T15:00:00","completed":true}
]`
	if err := os.WriteFile(filepath.Join(dir, "tasks.json"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	app := newTestApp(t, dir)
	acked, err := app.Engine.StopAlarm()
	if err != nil {
		t.Fatalf("StopAlarm: %v", err)
	}
	if len(acked) != 2 {
		t.Errorf("acknowledged %d task(s), want 2 (completed tasks included)", len(acked))
	}

	reopened := newTestApp(t, dir)
	for _, task := range reopened.Engine.Snapshot() {
		if !task.Notified {
			t.Errorf("%q not persisted as notified", task.Description)
		}
	}

	res, err := reopened.Engine.Tick()
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Triggered) != 0 {
		t.Errorf("acknowledged tasks must not trigger again: %+v", res.Triggered)
	}
}

func TestIntegration_StopFromOtherProcessSilencesWatcher(t *testing.T) {
	dir := t.TempDir()
	doc := `[{"description":"Pay rent","deadline":"2020-01-01T09:00:00"}]`
	if err := os.WriteFile(filepath.Join(dir, "tasks.json"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	watcher := newTestApp(t, dir)
	oneShot := newTestApp(t, dir)

	res, err := watcher.Engine.Tick()
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if res.Alarm != models.AlarmSounding {
		t.Fatalf("alarm = %s, want sounding", res.Alarm)
	}

	// `mustdo stop` from another terminal.
	if _, err := oneShot.Engine.StopAlarm(); err != nil {
		t.Fatalf("StopAlarm: %v", err)
	}

	res, err = watcher.Engine.Tick()
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if res.Alarm != models.AlarmIdle {
		t.Errorf("alarm = %s, want idle after a stop from another process", res.Alarm)
	}
	if watcher.Engine.AlarmState() != models.AlarmIdle {
		t.Errorf("watcher alarm state = %s, want idle", watcher.Engine.AlarmState())
	}

	events, err := watcher.EventLog.Read(observability.EventFilter{Type: "alarm.stopped"})
	if err != nil {
		t.Fatal(err)
	}
	var remote int
	for _, e := range events {
		if e.Data["reason"] == "other_process" {
			remote++
		}
	}
	if remote != 1 {
		t.Errorf("got %d alarm.stopped events from another process, want 1: %+v", remote, events)
	}

	// A later scan with nothing new stays quiet.
	res, err = watcher.Engine.Tick()
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Triggered) != 0 || res.Alarm != models.AlarmIdle {
		t.Errorf("stopped alarm came back: triggered=%d alarm=%s", len(res.Triggered), res.Alarm)
	}
}
