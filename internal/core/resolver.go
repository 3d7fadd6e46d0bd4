package core

import (
	"regexp"
	"strconv"
	"time"
)

// clockPattern matches 24-hour "H:MM", "HH:MM", "H:M" and "HH:M".
var clockPattern = regexp.MustCompile(`^([0-9]{1,2}):([0-9]{1,2})$`)

// ParseClock parses a 24-hour "HH:MM" wall-clock string.
func ParseClock(clock string) (hour, minute int, err error) {
	m := clockPattern.FindStringSubmatch(clock)
	if m == nil {
		return 0, 0, invalidTimef("%q: use HH:MM (e.g. 09:30)", clock)
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	if hour > 23 || minute > 59 {
		return 0, 0, invalidTimef("%q: hour must be 0-23 and minute 0-59", clock)
	}
	return hour, minute, nil
}

// ResolveDeadline turns a wall-clock "HH:MM" into the next timestamp at that
// time: today, or tomorrow when today's occurrence is already before now.
// The result is in now's location and is never before now.
func ResolveDeadline(clock string, now time.Time) (time.Time, error) {
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	y, mo, d := now.Date()
	deadline := time.Date(y, mo, d, hour, minute, 0, 0, now.Location())
	if deadline.Before(now) {
		// Day overflow is normalized by time.Date across month and year ends.
		deadline = time.Date(y, mo, d+1, hour, minute, 0, 0, now.Location())
	}
	return deadline, nil
}
