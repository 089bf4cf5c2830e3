package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/example/cardsync/internal/domain/syncrun"
)

type RunRepo struct{ db *DB }

func NewRunRepo(d *DB) *RunRepo { return &RunRepo{db: d} }

const runColumns = `id,target,board_id,calendar_id,window_start,window_end,cards_fetched,skipped_annotated,skipped_existing,created,dry_run,status,error,started_at,finished_at`

func (r *RunRepo) Name() string { return "postgres" }

// Ping checks the ledger database is reachable. The ledger is one table, so
// resourceID is ignored.
func (r *RunRepo) Ping(ctx context.Context, resourceID string) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("db: ping: %w", err)
	}
	return nil
}

func (r *RunRepo) Record(ctx context.Context, run syncrun.Run) error {
	err := r.db.Exec(ctx, `
INSERT INTO sync_runs(`+runColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		run.ID, run.Target, run.BoardID, run.CalendarID, nullTime(run.WindowStart), nullTime(run.WindowEnd),
		run.CardsFetched, run.SkippedAnnotated, run.SkippedExisting, run.Created, run.DryRun,
		string(run.Status), run.Error, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("db: record run %s: %w", run.ID, err)
	}
	return nil
}

func (r *RunRepo) Get(ctx context.Context, id string) (syncrun.Run, error) {
	row := r.db.QueryRow(ctx, `SELECT `+runColumns+` FROM sync_runs WHERE id=$1`, id)
	run, err := scanRun(row)
	if err != nil {
		return syncrun.Run{}, WrapNotFound(err)
	}
	return run, nil
}

func (r *RunRepo) ListRecent(ctx context.Context, limit int) ([]syncrun.Run, error) {
	if limit < 1 {
		limit = 20
	}
	rows, err := r.db.Query(ctx, `SELECT `+runColumns+` FROM sync_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("db: list runs: %w", err)
	}
	defer rows.Close()

	var out []syncrun.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (syncrun.Run, error) {
	var (
		run                    syncrun.Run
		status                 string
		windowStart, windowEnd *time.Time
	)
	if err := s.Scan(
		&run.ID, &run.Target, &run.BoardID, &run.CalendarID, &windowStart, &windowEnd,
		&run.CardsFetched, &run.SkippedAnnotated, &run.SkippedExisting, &run.Created, &run.DryRun,
		&status, &run.Error, &run.StartedAt, &run.FinishedAt,
	); err != nil {
		return syncrun.Run{}, err
	}
	run.Status = syncrun.Status(status)
	if windowStart != nil {
		run.WindowStart = *windowStart
	}
	if windowEnd != nil {
		run.WindowEnd = *windowEnd
	}
	return run, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
