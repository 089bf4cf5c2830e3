package gcal

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	gcalendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"github.com/example/cardsync/internal/domain/board"
	"github.com/example/cardsync/internal/domain/calendar"
	"github.com/example/cardsync/internal/internaltypes"
	"github.com/example/cardsync/internal/logging"
)

const serviceName = "gcal"

// Client queries and inserts events through the Calendar v3 API. Events are
// created in loc and tagged with its IANA name.
type Client struct {
	svc *gcalendar.Service
	loc *time.Location
	log *zap.Logger
}

func New(svc *gcalendar.Service, loc *time.Location, log *zap.Logger) *Client {
	if loc == nil {
		loc = time.UTC
	}
	return &Client{svc: svc, loc: loc, log: logging.OrNop(log)}
}

func (c *Client) Name() string { return serviceName }

// EventExists lists events in [start, end] using title as a search query, then
// requires an exact summary match: the remote search is fuzzy.
func (c *Client) EventExists(ctx context.Context, calendarID, title string, start, end time.Time) (bool, error) {
	call := c.svc.Events.List(calendarID).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		Q(title).
		SingleEvents(true)

	found := false
	seen := 0
	err := call.Pages(ctx, func(page *gcalendar.Events) error {
		for _, ev := range page.Items {
			seen++
			if ev.Summary == title {
				found = true
				return errStop
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return false, remoteError("list events", err)
	}
	c.log.Debug("calendar lookup",
		zap.String("title", title),
		zap.Int("candidates", seen),
		zap.Bool("found", found),
	)
	return found, nil
}

// CreateEvent inserts the 08:00 one-hour event for card on target's day.
func (c *Client) CreateEvent(ctx context.Context, calendarID string, card board.Card, target time.Time) (calendar.Event, error) {
	ev := calendar.NewEvent(card, target, c.loc)
	created, err := c.svc.Events.Insert(calendarID, toAPI(ev)).Context(ctx).Do()
	if err != nil {
		return calendar.Event{}, remoteError("insert event", err)
	}
	ev.ID = created.Id
	return ev, nil
}

// Ping checks that the session can read calendarID.
func (c *Client) Ping(ctx context.Context, calendarID string) error {
	cal, err := c.svc.Calendars.Get(calendarID).Context(ctx).Do()
	if err != nil {
		return remoteError("get calendar", err)
	}
	c.log.Debug("calendar reachable", zap.String("calendar", cal.Summary))
	return nil
}

var errStop = errors.New("stop paging")

func toAPI(ev calendar.Event) *gcalendar.Event {
	return &gcalendar.Event{
		Summary:     ev.Title,
		Description: ev.Description,
		Start: &gcalendar.EventDateTime{
			DateTime: ev.Start.Format(time.RFC3339),
			TimeZone: ev.TimeZone,
		},
		End: &gcalendar.EventDateTime{
			DateTime: ev.End.Format(time.RFC3339),
			TimeZone: ev.TimeZone,
		},
	}
}

func remoteError(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &internaltypes.RemoteServiceError{
			Service:    serviceName,
			Op:         op,
			StatusCode: apiErr.Code,
			Message:    apiErr.Message,
			Err:        err,
		}
	}
	return &internaltypes.RemoteServiceError{Service: serviceName, Op: op, Err: err}
}
