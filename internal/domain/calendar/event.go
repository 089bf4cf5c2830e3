package calendar

import (
	"context"
	"time"

	"github.com/example/cardsync/internal/domain/board"
)

const (
	StartHour = 8
	Duration  = time.Hour
)

type Event struct {
	ID          string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	TimeZone    string
}

// NewEvent builds the event for card on target's calendar day: 08:00:00 in loc,
// one hour long, title and description copied verbatim.
func NewEvent(card board.Card, target time.Time, loc *time.Location) Event {
	if loc == nil {
		loc = target.Location()
	}
	y, m, d := target.In(loc).Date()
	start := time.Date(y, m, d, StartHour, 0, 0, 0, loc)
	return Event{
		Title:       card.Title,
		Description: card.Description,
		Start:       start,
		End:         start.Add(Duration),
		TimeZone:    loc.String(),
	}
}

type Provider interface {
	Name() string
	// EventExists reports whether an event titled exactly title lies in [start, end].
	EventExists(ctx context.Context, calendarID, title string, start, end time.Time) (bool, error)
	CreateEvent(ctx context.Context, calendarID string, card board.Card, target time.Time) (Event, error)
}
