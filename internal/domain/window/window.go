package window

import (
	"fmt"
	"strings"
	"time"
)

type Mode string

const (
	ModeToday  Mode = "today"
	ModeMonday Mode = "monday"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeToday:
		return ModeToday, nil
	case ModeMonday:
		return ModeMonday, nil
	default:
		return "", fmt.Errorf("invalid target %q (want today or monday)", s)
	}
}

// DateWindow is the target day of a run and the week it is deduplicated against.
// Start <= Target <= End. Start is a Monday 00:00:00 and End the following
// Sunday 23:59:59, both wall clock in the same location.
type DateWindow struct {
	Mode   Mode
	Target time.Time
	Start  time.Time
	End    time.Time
}

func (w DateWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Compute returns the window for mode relative to now. All arithmetic is done
// in now's location.
func Compute(mode Mode, now time.Time) (DateWindow, error) {
	switch mode {
	case ModeToday:
		return DateWindow{
			Mode:   mode,
			Target: now,
			Start:  WeekStart(now),
			End:    WeekEnd(now),
		}, nil
	case ModeMonday:
		target := NextMonday(now)
		start := midnight(target)
		return DateWindow{
			Mode:   mode,
			Target: target,
			Start:  start,
			End:    lastSecondOfWeek(start),
		}, nil
	default:
		return DateWindow{}, fmt.Errorf("unknown mode %q", mode)
	}
}

// NextMonday returns the Monday strictly after now, keeping now's time of day.
// On a Monday it advances a full week.
func NextMonday(now time.Time) time.Time {
	days := (7 - isoWeekday(now)) % 7
	if days == 0 {
		days = 7
	}
	return now.AddDate(0, 0, days)
}

// WeekStart is Monday 00:00:00 of the week containing t.
func WeekStart(t time.Time) time.Time {
	return midnight(t.AddDate(0, 0, -isoWeekday(t)))
}

// WeekEnd is Sunday 23:59:59 of the week containing t.
func WeekEnd(t time.Time) time.Time {
	return lastSecondOfWeek(WeekStart(t))
}

// lastSecondOfWeek is built from calendar fields, not a fixed duration, so a
// DST change inside the week does not move it off Sunday 23:59:59.
func lastSecondOfWeek(start time.Time) time.Time {
	y, m, d := start.Date()
	return time.Date(y, m, d+6, 23, 59, 59, 0, start.Location())
}

// isoWeekday maps Monday..Sunday to 0..6.
func isoWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
