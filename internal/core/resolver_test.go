package core

import (
	"errors"
	"testing"
	"time"

	"github.com/valter-silva-au/mustdo/pkg/models"
)

func at(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
}

func TestResolveDeadline(t *testing.T) {
	tests := []struct {
		name  string
		clock string
		now   time.Time
		want  time.Time
	}{
		{"later today", "14:30", at(2026, 3, 14, 10, 0), at(2026, 3, 14, 14, 30)},
		{"earlier rolls to tomorrow", "07:00", at(2026, 3, 14, 10, 0), at(2026, 3, 15, 7, 0)},
		{"midnight from 23:59", "00:00", at(2026, 3, 14, 23, 59), at(2026, 3, 15, 0, 0)},
		{"single digit hour", "9:05", at(2026, 3, 14, 8, 0), at(2026, 3, 14, 9, 5)},
		{"month end", "06:00", at(2026, 1, 31, 12, 0), at(2026, 2, 1, 6, 0)},
		{"year end", "06:00", at(2026, 12, 31, 12, 0), at(2027, 1, 1, 6, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveDeadline(tt.clock, tt.now)
			if err != nil {
				t.Fatalf("ResolveDeadline(%q) error: %v", tt.clock, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ResolveDeadline(%q) = %v, want %v", tt.clock, got, tt.want)
			}
		})
	}
}

func TestResolveDeadline_SameMinuteIsToday(t *testing.T) {
	now := at(2026, 3, 14, 10, 0)
	got, err := ResolveDeadline("10:00", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(now) {
		t.Errorf("got %v, want %v", got, now)
	}
}

func TestResolveDeadline_SecondsPastMinuteRollsOver(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 30, 0, time.UTC)
	got, err := ResolveDeadline("10:00", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := at(2026, 3, 15, 10, 0); !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestResolveDeadline_Invalid(t *testing.T) {
	now := at(2026, 3, 14, 10, 0)
	for _, clock := range []string{"", "abc", "99:99", "24:00", "12:60", "12", "12:345", "-1:00", " 12:00", "12:00:00"} {
		t.Run(clock, func(t *testing.T) {
			_, err := ResolveDeadline(clock, now)
			if !errors.Is(err, models.ErrInvalidTimeFormat) {
				t.Errorf("ResolveDeadline(%q) error = %v, want ErrInvalidTimeFormat", clock, err)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("23:59")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h != 23 || m != 59 {
		t.Errorf("ParseClock = %d:%d, want 23:59", h, m)
	}
}
