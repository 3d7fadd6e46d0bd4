package cli

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/valter-silva-au/mustdo/internal/observability"
)

func withAlertEngine(t *testing.T) {
	t.Helper()
	orig, origNotifier := AlertEngine, Notifier
	AlertEngine = observability.NewAlertEngine(observability.DefaultAlertThresholds())
	t.Cleanup(func() { AlertEngine, Notifier = orig, origNotifier })
}

func TestAlertsCmd_NilEngine(t *testing.T) {
	orig := AlertEngine
	defer func() { AlertEngine = orig }()
	AlertEngine = nil

	err := alertsCmd.RunE(alertsCmd, []string{})
	if err == nil {
		t.Fatal("expected error when AlertEngine is nil")
	}
	if !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAlertsCmd_NoAlerts(t *testing.T) {
	e := setupEngine(t)
	withAlertEngine(t)
	mustAdd(t, e, "Lunch", "12:00")

	out := captureStdout(t, func() {
		if err := alertsCmd.RunE(alertsCmd, []string{}); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
	if !strings.Contains(out, "No active alerts.") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestAlertsCmd_WithAlerts(t *testing.T) {
	e, clock := setupEngineWithClock(t)
	withAlertEngine(t)
	mustAdd(t, e, "Stand-up", "10:05")
	mustAdd(t, e, "Call mom", "10:20")
	clock.Advance(10 * time.Minute)

	out := captureStdout(t, func() {
		if err := alertsCmd.RunE(alertsCmd, []string{}); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
	if !strings.Contains(out, "2 active alert(s)") {
		t.Errorf("unexpected output: %s", out)
	}
	if !strings.Contains(out, `[HIGH] "Stand-up" was due at 10:05`) {
		t.Errorf("missing overdue alert:\n%s", out)
	}
	if !strings.Contains(out, `[MEDIUM] "Call mom" is due at 10:20`) {
		t.Errorf("missing due-soon alert:\n%s", out)
	}
}

func setNotify(t *testing.T) {
	t.Helper()
	if err := alertsCmd.Flags().Set("notify", "true"); err != nil {
		t.Fatalf("setting --notify: %v", err)
	}
	t.Cleanup(func() { _ = alertsCmd.Flags().Set("notify", "false") })
}

func TestAlertsCmd_NotifyWithoutNotifier(t *testing.T) {
	e, clock := setupEngineWithClock(t)
	withAlertEngine(t)
	mustAdd(t, e, "Stand-up", "10:05")
	clock.Advance(10 * time.Minute)
	Notifier = nil
	setNotify(t)

	var err error
	captureStdout(t, func() {
		err = alertsCmd.RunE(alertsCmd, []string{})
	})
	if err == nil {
		t.Fatal("expected error when notifier is nil")
	}
	if !strings.Contains(err.Error(), "notifier not configured") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAlertsCmd_NotifySuccess(t *testing.T) {
	e, clock := setupEngineWithClock(t)
	withAlertEngine(t)
	mustAdd(t, e, "Stand-up", "10:05")
	clock.Advance(10 * time.Minute)
	setNotify(t)

	var got []observability.Alert
	Notifier = &notifierMock{
		notifyFn: func(alerts []observability.Alert) error {
			got = alerts
			return nil
		},
	}

	var err error
	captureStdout(t, func() {
		err = alertsCmd.RunE(alertsCmd, []string{})
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "overdue-1" {
		t.Errorf("expected the overdue alert to be sent, got %+v", got)
	}
}

func TestAlertsCmd_NotifyError(t *testing.T) {
	e, clock := setupEngineWithClock(t)
	withAlertEngine(t)
	mustAdd(t, e, "Stand-up", "10:05")
	clock.Advance(10 * time.Minute)
	setNotify(t)

	Notifier = &notifierMock{
		notifyFn: func(alerts []observability.Alert) error {
			return fmt.Errorf("webhook failed")
		},
	}

	var err error
	captureStdout(t, func() {
		err = alertsCmd.RunE(alertsCmd, []string{})
	})
	if err == nil {
		t.Fatal("expected error from Notify")
	}
	if !strings.Contains(err.Error(), "sending notifications") {
		t.Errorf("unexpected error: %v", err)
	}
}
