package usecases

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/cardsync/internal/domain/board"
	"github.com/example/cardsync/internal/domain/calendar"
	"github.com/example/cardsync/internal/domain/window"
	"github.com/example/cardsync/internal/logging"
	"github.com/example/cardsync/internal/metrics"
)

// SyncCards creates one calendar event per active board card that is neither
// an annotation nor already present in the target week.
type SyncCards struct {
	Board      board.Provider
	Calendar   calendar.Provider
	BoardID    string
	CalendarID string

	// Marker prefixes annotation card titles.
	Marker   string
	Location *time.Location
	Now      func() time.Time
	DryRun   bool

	Log     *zap.Logger
	Metrics *metrics.Sync
}

type Report struct {
	Window           window.DateWindow
	CardsFetched     int
	SkippedAnnotated int
	SkippedExisting  int
	// Created holds inserted events, or in dry-run the events that would be.
	Created []calendar.Event
	DryRun  bool
}

// Execute runs one linear pass. The first error aborts the pass; events
// already created stay created and are listed in the returned report.
func (u SyncCards) Execute(ctx context.Context, mode window.Mode) (Report, error) {
	if u.Board == nil || u.Calendar == nil {
		return Report{}, fmt.Errorf("board and calendar providers are required")
	}
	log := logging.OrNop(u.Log)
	rep := Report{DryRun: u.DryRun}

	cards, err := u.Board.FetchActiveCards(ctx, u.BoardID)
	if err != nil {
		return rep, fmt.Errorf("fetch cards: %w", err)
	}
	rep.CardsFetched = len(cards)
	u.Metrics.Fetched(len(cards))

	w, err := window.Compute(mode, u.now())
	if err != nil {
		return rep, err
	}
	rep.Window = w
	log.Info("sync window",
		zap.String("target", string(mode)),
		zap.Time("target_day", w.Target),
		zap.Time("window_start", w.Start),
		zap.Time("window_end", w.End),
		zap.Int("cards", len(cards)),
	)

	for _, card := range cards {
		clog := log.With(zap.String("card", card.Title), zap.String("list", card.SourceList))
		if card.IsAnnotation(u.Marker) {
			rep.SkippedAnnotated++
			u.Metrics.Skipped("annotation")
			clog.Debug("annotation card skipped")
			continue
		}

		exists, err := u.Calendar.EventExists(ctx, u.CalendarID, card.Title, w.Start, w.End)
		if err != nil {
			return rep, fmt.Errorf("check event %q: %w", card.Title, err)
		}
		if exists {
			rep.SkippedExisting++
			u.Metrics.Skipped("existing")
			clog.Debug("event already scheduled")
			continue
		}

		if u.DryRun {
			ev := calendar.NewEvent(card, w.Target, u.Location)
			rep.Created = append(rep.Created, ev)
			clog.Info("would create event", zap.Time("start", ev.Start))
			continue
		}

		ev, err := u.Calendar.CreateEvent(ctx, u.CalendarID, card, w.Target)
		if err != nil {
			return rep, fmt.Errorf("create event %q: %w", card.Title, err)
		}
		rep.Created = append(rep.Created, ev)
		u.Metrics.Created()
		clog.Info("event created", zap.String("event_id", ev.ID), zap.Time("start", ev.Start))
	}
	return rep, nil
}

func (u SyncCards) now() time.Time {
	now := time.Now
	if u.Now != nil {
		now = u.Now
	}
	if u.Location != nil {
		return now().In(u.Location)
	}
	return now()
}
