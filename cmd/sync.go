package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/cardsync/internal/application/usecases"
	"github.com/example/cardsync/internal/config"
	"github.com/example/cardsync/internal/domain/syncrun"
	"github.com/example/cardsync/internal/domain/window"
	"github.com/example/cardsync/internal/ics"
	"github.com/example/cardsync/internal/infrastructure/gcal"
	"github.com/example/cardsync/internal/infrastructure/postgres"
	"github.com/example/cardsync/internal/infrastructure/redislock"
	"github.com/example/cardsync/internal/infrastructure/trello"
	"github.com/example/cardsync/internal/internaltypes"
	"github.com/example/cardsync/internal/metrics"
)

type syncOptions struct {
	target      string
	dryRun      bool
	icsOut      string
	metricsFile string
}

// syncer owns the clients of one process. The schedule command builds it once
// and runs it on every tick.
type syncer struct {
	cfg  config.Config
	opts syncOptions
	log  *zap.Logger
	out  io.Writer

	uc      usecases.SyncCards
	metrics *metrics.Sync
	ledger  syncrun.Recorder
	locker  *redislock.Locker

	closers []func()
}

// newSyncer authenticates against the calendar before any other remote call,
// so a bad credential file fails the run without touching the board.
func newSyncer(ctx context.Context, cfg config.Config, opts syncOptions, log *zap.Logger, out io.Writer) (*syncer, error) {
	svc, err := gcal.NewService(ctx, cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}

	s := &syncer{cfg: cfg, opts: opts, log: log, out: out, metrics: metrics.New()}

	boardOpts := []trello.Option{trello.WithTimeout(cfg.HTTPTimeout), trello.WithLogger(log)}
	if cfg.TrelloBaseURL != "" {
		boardOpts = append(boardOpts, trello.WithBaseURL(cfg.TrelloBaseURL))
	}
	s.uc = usecases.SyncCards{
		Board:      trello.New(trello.Credentials{APIKey: cfg.TrelloAPIKey, Token: cfg.TrelloToken}, cfg.TrelloLists, boardOpts...),
		Calendar:   gcal.New(svc, cfg.Location(), log),
		BoardID:    cfg.TrelloBoardID,
		CalendarID: cfg.CalendarID,
		Marker:     cfg.AnnotationMarker,
		Location:   cfg.Location(),
		DryRun:     opts.dryRun,
		Log:        log,
		Metrics:    s.metrics,
	}

	if cfg.DatabaseURL != "" {
		d, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, d.Close)
		if err := postgres.Migrate(ctx, d); err != nil {
			s.Close()
			return nil, err
		}
		s.ledger = postgres.NewRunRepo(d)
	}

	if cfg.RedisAddr != "" {
		rdb := redislock.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		s.closers = append(s.closers, func() { _ = rdb.Close() })
		s.locker = redislock.New(rdb, cfg.LockTTL, log)
	}
	return s, nil
}

func (s *syncer) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// Run performs one sync pass and records its outcome.
func (s *syncer) Run(ctx context.Context) error {
	mode, err := window.ParseMode(s.opts.target)
	if err != nil {
		return err
	}

	run := syncrun.Run{
		ID:         uuid.NewString(),
		Target:     string(mode),
		BoardID:    s.cfg.TrelloBoardID,
		CalendarID: s.cfg.CalendarID,
		DryRun:     s.opts.dryRun,
		StartedAt:  time.Now(),
	}
	log := s.log.With(zap.String("run_id", run.ID))
	s.uc.Log = log

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, redislock.Key(s.cfg.TrelloBoardID, s.cfg.CalendarID))
		if err != nil {
			if errors.Is(err, redislock.ErrHeld) {
				log.Warn("another run holds the lock, skipping")
			}
			return err
		}
		defer release(context.WithoutCancel(ctx))
	}

	rep, runErr := s.uc.Execute(ctx, mode)
	run.FinishedAt = time.Now()
	run.WindowStart, run.WindowEnd = rep.Window.Start, rep.Window.End
	run.CardsFetched = rep.CardsFetched
	run.SkippedAnnotated = rep.SkippedAnnotated
	run.SkippedExisting = rep.SkippedExisting
	run.Created = len(rep.Created)
	run.Status = syncrun.StatusSucceeded
	if runErr != nil {
		run.Status = syncrun.StatusFailed
		msg := runErr.Error()
		run.Error = &msg
		log.Error("sync failed", zap.String("kind", internaltypes.Kind(runErr)), zap.Error(runErr))
	}

	s.finish(ctx, log, run)
	if runErr != nil {
		return runErr
	}

	if s.opts.icsOut != "" {
		if err := ics.WriteFile(s.opts.icsOut, rep.Created, run.FinishedAt); err != nil {
			return err
		}
		log.Info("ics written", zap.String("path", s.opts.icsOut), zap.Int("events", len(rep.Created)))
	}

	printReport(s.out, rep)
	return nil
}

// finish stores the run outside the sync pass. Ledger and metrics failures are
// logged and never change the run outcome.
func (s *syncer) finish(ctx context.Context, log *zap.Logger, run syncrun.Run) {
	s.metrics.ObserveRun(string(run.Status), run.Duration(), run.FinishedAt)
	if s.opts.metricsFile != "" {
		if err := s.metrics.WriteTextfile(s.opts.metricsFile); err != nil {
			log.Warn("write metrics textfile", zap.Error(err))
		}
	}
	if s.ledger != nil {
		if err := s.ledger.Record(context.WithoutCancel(ctx), run); err != nil {
			log.Warn("record run", zap.Error(err))
		}
	}
	log.Info("sync finished",
		zap.String("status", string(run.Status)),
		zap.Int("created", run.Created),
		zap.Int("skipped_existing", run.SkippedExisting),
		zap.Int("skipped_annotated", run.SkippedAnnotated),
		zap.Duration("took", run.Duration()),
	)
}

func printReport(w io.Writer, rep usecases.Report) {
	if rep.DryRun {
		fmt.Fprintf(w, "Dry run: %d event(s) would be created for %s.\n", len(rep.Created), rep.Window.Target.Format("2006-01-02"))
		for _, ev := range rep.Created {
			fmt.Fprintf(w, "  %s  %s\n", ev.Start.Format("2006-01-02 15:04"), ev.Title)
		}
		return
	}
	fmt.Fprintf(w, "Events created successfully: %d created, %d already scheduled, %d annotations skipped.\n",
		len(rep.Created), rep.SkippedExisting, rep.SkippedAnnotated)
}
