package window

import (
	"testing"
	"time"

	"github.com/teambition/rrule-go"
)

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Skipf("timezone %s unavailable: %v", name, err)
	}
	return loc
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"today", ModeToday, false},
		{"monday", ModeMonday, false},
		{" Monday ", ModeMonday, false},
		{"tomorrow", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// checkWeek asserts Monday 00:00:00 .. Sunday 23:59:59 wall clock, six
// calendar days apart.
func checkWeek(t *testing.T, what string, start, end time.Time) {
	t.Helper()
	if start.Weekday() != time.Monday {
		t.Fatalf("%s: week start is a %s", what, start.Weekday())
	}
	if h, m, s := start.Clock(); h != 0 || m != 0 || s != 0 || start.Nanosecond() != 0 {
		t.Fatalf("%s: week start is not midnight: %s", what, start)
	}
	if h, m, s := end.Clock(); end.Weekday() != time.Sunday || h != 23 || m != 59 || s != 59 {
		t.Fatalf("%s: week end is not Sunday 23:59:59: %s", what, end)
	}
	sy, sm, sd := start.AddDate(0, 0, 6).Date()
	ey, em, ed := end.Date()
	if sy != ey || sm != em || sd != ed {
		t.Fatalf("%s: week end %s is not six days after %s", what, end, start)
	}
}

func TestWeekBoundsHoldForEveryDay(t *testing.T) {
	for _, zone := range []string{"America/Sao_Paulo", "America/New_York", "Europe/Berlin", "Australia/Sydney"} {
		t.Run(zone, func(t *testing.T) {
			loc := mustLoad(t, zone)
			base := time.Date(2024, time.January, 1, 13, 45, 12, 500, loc)

			for i := 0; i < 800; i++ {
				d := base.AddDate(0, 0, i)
				start, end := WeekStart(d), WeekEnd(d)

				if d.Before(start) || d.After(end) {
					t.Fatalf("%s outside its week [%s, %s]", d, start, end)
				}
				checkWeek(t, d.String(), start, end)
				if again := WeekStart(start); !again.Equal(start) {
					t.Fatalf("WeekStart not idempotent for %s: %s != %s", d, again, start)
				}
			}
		})
	}
}

func TestWeekEndAcrossSpringForward(t *testing.T) {
	loc := mustLoad(t, "America/New_York")
	// clocks jump forward on Sunday 2026-03-08
	d := time.Date(2026, time.March, 4, 10, 0, 0, 0, loc)

	want := time.Date(2026, time.March, 8, 23, 59, 59, 0, loc)
	if got := WeekEnd(d); !got.Equal(want) {
		t.Fatalf("WeekEnd(%s) = %s, want %s", d, got, want)
	}
	earlyMonday := time.Date(2026, time.March, 9, 0, 30, 0, 0, loc)
	w, err := Compute(ModeToday, d)
	if err != nil {
		t.Fatal(err)
	}
	if w.Contains(earlyMonday) {
		t.Errorf("window %s..%s leaks into the next Monday", w.Start, w.End)
	}
}

func TestComputeMondayAcrossFallBack(t *testing.T) {
	loc := mustLoad(t, "America/New_York")
	// next Monday is 2026-10-26; clocks fall back on Sunday 2026-11-01
	now := time.Date(2026, time.October, 22, 9, 0, 0, 0, loc)

	w, err := Compute(ModeMonday, now)
	if err != nil {
		t.Fatal(err)
	}
	checkWeek(t, "monday window", w.Start, w.End)
	if want := time.Date(2026, time.November, 1, 23, 59, 59, 0, loc); !w.End.Equal(want) {
		t.Errorf("End = %s, want %s", w.End, want)
	}
}

func TestNextMondayOnMondaySkipsAWeek(t *testing.T) {
	monday := time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)
	got := NextMonday(monday)
	if want := monday.AddDate(0, 0, 7); !got.Equal(want) {
		t.Fatalf("NextMonday(%s) = %s, want %s", monday, got, want)
	}
}

func TestNextMondayMatchesRecurrenceRule(t *testing.T) {
	loc := mustLoad(t, "America/Sao_Paulo")
	base := time.Date(2025, time.March, 1, 0, 0, 0, 0, loc)

	for i := 0; i < 400; i++ {
		day := base.AddDate(0, 0, i)
		r, err := rrule.NewRRule(rrule.ROption{
			Freq:      rrule.WEEKLY,
			Byweekday: []rrule.Weekday{rrule.MO},
			Dtstart:   day,
		})
		if err != nil {
			t.Fatalf("rrule: %v", err)
		}
		want := r.After(day, false)

		now := day.Add(14*time.Hour + 30*time.Minute)
		got := NextMonday(now)

		if got.Weekday() != time.Monday {
			t.Fatalf("NextMonday(%s) = %s, not a Monday", now, got)
		}
		gy, gm, gd := got.Date()
		wy, wm, wd := want.Date()
		if gy != wy || gm != wm || gd != wd {
			t.Fatalf("NextMonday(%s) = %s, want date of %s", now, got, want)
		}
		if !got.After(now) {
			t.Fatalf("NextMonday(%s) = %s is not in the future", now, got)
		}
		if ahead := midnight(got).Sub(midnight(now)); ahead > 7*24*time.Hour {
			t.Fatalf("NextMonday(%s) is %s ahead", now, ahead)
		}
		if now.Weekday() != time.Monday {
			if ahead := midnight(got).Sub(midnight(now)); ahead > 6*24*time.Hour {
				t.Fatalf("NextMonday(%s) from a %s is %s ahead", now, now.Weekday(), ahead)
			}
		}
	}
}

func TestComputeToday(t *testing.T) {
	// Wednesday
	now := time.Date(2026, time.October, 21, 16, 20, 0, 0, time.UTC)
	w, err := Compute(ModeToday, now)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !w.Target.Equal(now) {
		t.Errorf("Target = %s, want %s", w.Target, now)
	}
	if want := time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC); !w.Start.Equal(want) {
		t.Errorf("Start = %s, want %s", w.Start, want)
	}
	if want := time.Date(2026, time.October, 25, 23, 59, 59, 0, time.UTC); !w.End.Equal(want) {
		t.Errorf("End = %s, want %s", w.End, want)
	}
	if !w.Contains(w.Target) {
		t.Errorf("window does not contain its target")
	}
}

func TestComputeMonday(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		wantStart time.Time
	}{
		{
			name:      "from wednesday",
			now:       time.Date(2026, time.October, 21, 16, 20, 0, 0, time.UTC),
			wantStart: time.Date(2026, time.October, 26, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "from monday",
			now:       time.Date(2026, time.October, 19, 7, 0, 0, 0, time.UTC),
			wantStart: time.Date(2026, time.October, 26, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "from sunday",
			now:       time.Date(2026, time.October, 25, 23, 0, 0, 0, time.UTC),
			wantStart: time.Date(2026, time.October, 26, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := Compute(ModeMonday, tt.now)
			if err != nil {
				t.Fatalf("Compute: %v", err)
			}
			if !w.Start.Equal(tt.wantStart) {
				t.Errorf("Start = %s, want %s", w.Start, tt.wantStart)
			}
			checkWeek(t, tt.name, w.Start, w.End)
			if w.Target.Weekday() != time.Monday || !w.Contains(w.Target) {
				t.Errorf("Target %s not a Monday inside the window", w.Target)
			}
		})
	}
}

func TestComputeUnknownMode(t *testing.T) {
	if _, err := Compute(Mode("friday"), time.Now()); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
