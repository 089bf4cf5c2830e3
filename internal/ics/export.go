package ics

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/example/cardsync/internal/domain/calendar"
)

const productID = "-//cardsync//board cards//EN"

// uidNamespace keeps UIDs stable for the same event across exports.
var uidNamespace = uuid.MustParse("6f1c7c1e-2b4e-4d43-9a8e-5d0f3f6f8a10")

// Write serializes events as a VCALENDAR. stamp is used for DTSTAMP.
func Write(w io.Writer, events []calendar.Event, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, ev := range events {
		ve := cal.AddEvent(UID(ev))
		ve.SetDtStampTime(stamp.UTC())
		ve.SetStartAt(ev.Start.UTC())
		ve.SetEndAt(ev.End.UTC())
		ve.SetSummary(ev.Title)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
	}
	return cal.SerializeTo(w)
}

// WriteFile writes the calendar to path atomically via a temp file + rename.
func WriteFile(path string, events []calendar.Event, stamp time.Time) error {
	if path == "" {
		return errors.New("ics path is empty")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".cardsync-*.ics.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := Write(tmp, events, stamp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// UID is the calendar ID when the event has one, otherwise a name-based UUID
// of title and start.
func UID(ev calendar.Event) string {
	if ev.ID != "" {
		return ev.ID + "@cardsync"
	}
	return uuid.NewSHA1(uidNamespace, []byte(ev.Title+"|"+ev.Start.UTC().Format(time.RFC3339))).String() + "@cardsync"
}
