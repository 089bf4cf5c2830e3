package syncrun

import (
	"context"
	"time"
)

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is the audit record of one sync pass. It is written after the fact and
// never consulted when deciding what to create.
type Run struct {
	ID         string
	Target     string
	BoardID    string
	CalendarID string

	WindowStart time.Time
	WindowEnd   time.Time

	CardsFetched     int
	SkippedAnnotated int
	SkippedExisting  int
	Created          int
	DryRun           bool

	Status Status
	Error  *string

	StartedAt  time.Time
	FinishedAt time.Time
}

func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

type Recorder interface {
	Record(ctx context.Context, r Run) error
}
