package usecases

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/example/cardsync/internal/domain/board"
	"github.com/example/cardsync/internal/domain/calendar"
	"github.com/example/cardsync/internal/domain/window"
	"github.com/example/cardsync/internal/internaltypes"
	"github.com/example/cardsync/internal/metrics"
)

type stubBoard struct {
	cards []board.Card
	err   error
}

func (s *stubBoard) Name() string { return "stub-board" }

func (s *stubBoard) FetchActiveCards(ctx context.Context, boardID string) ([]board.Card, error) {
	return s.cards, s.err
}

type existsCall struct {
	CalendarID string
	Title      string
	Start, End time.Time
}

type createCall struct {
	CalendarID string
	Card       board.Card
	Target     time.Time
}

// stubCalendar answers existence from a fixed set of titles and never learns
// about events it creates.
type stubCalendar struct {
	existing  map[string]bool
	loc       *time.Location
	existsErr error
	createErr error
	failAfter int

	exists  []existsCall
	creates []createCall
}

func (s *stubCalendar) Name() string { return "stub-calendar" }

func (s *stubCalendar) EventExists(ctx context.Context, calendarID, title string, start, end time.Time) (bool, error) {
	s.exists = append(s.exists, existsCall{calendarID, title, start, end})
	if s.existsErr != nil {
		return false, s.existsErr
	}
	return s.existing[title], nil
}

func (s *stubCalendar) CreateEvent(ctx context.Context, calendarID string, card board.Card, target time.Time) (calendar.Event, error) {
	if s.createErr != nil && len(s.creates) >= s.failAfter {
		return calendar.Event{}, s.createErr
	}
	s.creates = append(s.creates, createCall{calendarID, card, target})
	return calendar.NewEvent(card, target, s.loc), nil
}

// Wednesday 2026-10-21 15:30 UTC.
var fixedNow = time.Date(2026, time.October, 21, 15, 30, 0, 0, time.UTC)

func newSync(b *stubBoard, c *stubCalendar) SyncCards {
	return SyncCards{
		Board:      b,
		Calendar:   c,
		BoardID:    "board-1",
		CalendarID: "primary",
		Marker:     "#",
		Location:   time.UTC,
		Now:        func() time.Time { return fixedNow },
	}
}

func titles(cards ...string) []board.Card {
	out := make([]board.Card, len(cards))
	for i, t := range cards {
		out[i] = board.Card{ID: t, Title: t, SourceList: "A Fazer"}
	}
	return out
}

func createdTitles(calls []createCall) []string {
	var out []string
	for _, c := range calls {
		out = append(out, c.Card.Title)
	}
	return out
}

func TestAnnotatedCardsNeverCreated(t *testing.T) {
	cal := &stubCalendar{}
	uc := newSync(&stubBoard{cards: titles("#Header", "Deploy", "#", "# spaced", "Review #3")}, cal)

	rep, err := uc.Execute(context.Background(), window.ModeToday)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := []string{"Deploy", "Review #3"}
	if got := createdTitles(cal.creates); !reflect.DeepEqual(got, want) {
		t.Errorf("created = %q, want %q", got, want)
	}
	if rep.SkippedAnnotated != 3 {
		t.Errorf("SkippedAnnotated = %d, want 3", rep.SkippedAnnotated)
	}
	for _, c := range cal.exists {
		if c.Title[0] == '#' {
			t.Errorf("existence checked for annotation %q", c.Title)
		}
	}
}

func TestExistingEventShortCircuitsCreation(t *testing.T) {
	cal := &stubCalendar{existing: map[string]bool{"Write report": true}}
	uc := newSync(&stubBoard{cards: titles("Write report")}, cal)

	rep, err := uc.Execute(context.Background(), window.ModeToday)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(cal.creates) != 0 {
		t.Errorf("created %d events, want 0", len(cal.creates))
	}
	if rep.SkippedExisting != 1 {
		t.Errorf("SkippedExisting = %d, want 1", rep.SkippedExisting)
	}
}

func TestNewCardCreatesOneEventAtEight(t *testing.T) {
	cal := &stubCalendar{loc: time.UTC}
	uc := newSync(&stubBoard{cards: titles("Write report")}, cal)

	rep, err := uc.Execute(context.Background(), window.ModeToday)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(cal.creates) != 1 {
		t.Fatalf("created %d events, want 1", len(cal.creates))
	}
	if !cal.creates[0].Target.Equal(fixedNow) || cal.creates[0].CalendarID != "primary" {
		t.Errorf("create call = %+v", cal.creates[0])
	}
	ev := rep.Created[0]
	if want := time.Date(2026, time.October, 21, 8, 0, 0, 0, time.UTC); !ev.Start.Equal(want) {
		t.Errorf("Start = %s, want %s", ev.Start, want)
	}
	if ev.End.Sub(ev.Start) != time.Hour {
		t.Errorf("duration = %s", ev.End.Sub(ev.Start))
	}
}

func TestExistenceCheckUsesWeekWindow(t *testing.T) {
	tests := []struct {
		mode      window.Mode
		wantStart time.Time
		wantEnd   time.Time
		wantDay   int
	}{
		{window.ModeToday,
			time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC),
			time.Date(2026, time.October, 25, 23, 59, 59, 0, time.UTC), 21},
		{window.ModeMonday,
			time.Date(2026, time.October, 26, 0, 0, 0, 0, time.UTC),
			time.Date(2026, time.November, 1, 23, 59, 59, 0, time.UTC), 26},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			cal := &stubCalendar{}
			uc := newSync(&stubBoard{cards: titles("Deploy")}, cal)

			if _, err := uc.Execute(context.Background(), tt.mode); err != nil {
				t.Fatalf("Execute: %v", err)
			}
			got := cal.exists[0]
			if !got.Start.Equal(tt.wantStart) || !got.End.Equal(tt.wantEnd) {
				t.Errorf("window = %s..%s, want %s..%s", got.Start, got.End, tt.wantStart, tt.wantEnd)
			}
			if d := cal.creates[0].Target.Day(); d != tt.wantDay {
				t.Errorf("target day = %d, want %d", d, tt.wantDay)
			}
		})
	}
}

// Titles repeated within one run are checked against pre-existing events only,
// not against each other.
func TestDuplicateTitlesInSameRunAreBothCreated(t *testing.T) {
	cal := &stubCalendar{existing: map[string]bool{}}
	uc := newSync(&stubBoard{cards: titles("Write report", "#Note: ignore", "Write report")}, cal)

	rep, err := uc.Execute(context.Background(), window.ModeToday)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := []string{"Write report", "Write report"}
	if got := createdTitles(cal.creates); !reflect.DeepEqual(got, want) {
		t.Errorf("created = %q, want %q", got, want)
	}
	if rep.CardsFetched != 3 || rep.SkippedAnnotated != 1 || len(rep.Created) != 2 {
		t.Errorf("report = %+v", rep)
	}
}

func TestBoardFailureAbortsBeforeCalendar(t *testing.T) {
	boom := &internaltypes.RemoteServiceError{Service: "trello", Op: "list lists", StatusCode: 500}
	cal := &stubCalendar{}
	uc := newSync(&stubBoard{err: boom}, cal)

	_, err := uc.Execute(context.Background(), window.ModeToday)
	var remote *internaltypes.RemoteServiceError
	if !errors.As(err, &remote) || remote != boom {
		t.Fatalf("expected the board error, got %v", err)
	}
	if len(cal.exists)+len(cal.creates) != 0 {
		t.Error("calendar touched after board failure")
	}
}

func TestCalendarFailureStopsRemainingCards(t *testing.T) {
	boom := &internaltypes.RemoteServiceError{Service: "gcal", Op: "insert event", StatusCode: 403}
	cal := &stubCalendar{createErr: boom, failAfter: 1}
	uc := newSync(&stubBoard{cards: titles("one", "two", "three")}, cal)

	rep, err := uc.Execute(context.Background(), window.ModeToday)
	if !errors.Is(err, boom) {
		t.Fatalf("expected insert error, got %v", err)
	}
	if got := createdTitles(cal.creates); !reflect.DeepEqual(got, []string{"one"}) {
		t.Errorf("created = %q, want [one]", got)
	}
	if len(cal.exists) != 2 {
		t.Errorf("existence checks = %d, want 2 (third card untouched)", len(cal.exists))
	}
	if len(rep.Created) != 1 {
		t.Errorf("report lists %d created events, want 1", len(rep.Created))
	}
}

func TestExistenceFailureAborts(t *testing.T) {
	boom := errors.New("calendar down")
	cal := &stubCalendar{existsErr: boom}
	uc := newSync(&stubBoard{cards: titles("one", "two")}, cal)

	if _, err := uc.Execute(context.Background(), window.ModeToday); !errors.Is(err, boom) {
		t.Fatalf("expected existence error, got %v", err)
	}
	if len(cal.exists) != 1 || len(cal.creates) != 0 {
		t.Errorf("exists=%d creates=%d, want 1/0", len(cal.exists), len(cal.creates))
	}
}

func TestDryRunDoesNotCreate(t *testing.T) {
	cal := &stubCalendar{}
	uc := newSync(&stubBoard{cards: titles("one", "#skip", "two")}, cal)
	uc.DryRun = true

	rep, err := uc.Execute(context.Background(), window.ModeMonday)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(cal.creates) != 0 {
		t.Errorf("dry run created %d events", len(cal.creates))
	}
	if len(rep.Created) != 2 || !rep.DryRun {
		t.Fatalf("report = %+v", rep)
	}
	if want := time.Date(2026, time.October, 26, 8, 0, 0, 0, time.UTC); !rep.Created[0].Start.Equal(want) {
		t.Errorf("planned start = %s, want %s", rep.Created[0].Start, want)
	}
}

func TestMetricsFollowTheRun(t *testing.T) {
	m := metrics.New()
	cal := &stubCalendar{existing: map[string]bool{"old": true}}
	uc := newSync(&stubBoard{cards: titles("old", "#note", "new")}, cal)
	uc.Metrics = m

	if _, err := uc.Execute(context.Background(), window.ModeToday); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := testutil.ToFloat64(m.CardsFetched); got != 3 {
		t.Errorf("fetched = %v", got)
	}
	if got := testutil.ToFloat64(m.CardsSkipped.WithLabelValues("annotation")); got != 1 {
		t.Errorf("skipped annotation = %v", got)
	}
	if got := testutil.ToFloat64(m.CardsSkipped.WithLabelValues("existing")); got != 1 {
		t.Errorf("skipped existing = %v", got)
	}
	if got := testutil.ToFloat64(m.EventsCreated); got != 1 {
		t.Errorf("created = %v", got)
	}
}

func TestMissingProviders(t *testing.T) {
	if _, err := (SyncCards{}).Execute(context.Background(), window.ModeToday); err == nil {
		t.Fatal("expected error without providers")
	}
}
