package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/cardsync/internal/domain/window"
	"github.com/example/cardsync/internal/scheduler"
)

func newScheduleCmd(envFile *string) *cobra.Command {
	var (
		opts       syncOptions
		spec       string
		runOnStart bool
	)

	c := &cobra.Command{
		Use:   "schedule",
		Short: "Run the sync on a cron schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := window.ParseMode(opts.target); err != nil {
				return err
			}
			cfg, log, err := setup(*envFile)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			if spec == "" {
				spec = cfg.ScheduleCron
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := newSyncer(ctx, cfg, opts, log, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer s.Close()

			sch := &scheduler.Scheduler{
				Spec:       spec,
				Location:   cfg.Location(),
				Job:        s.Run,
				Log:        log,
				RunOnStart: runOnStart,
			}
			if err := sch.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	addSyncFlags(c, &opts)
	c.Flags().StringVar(&spec, "cron", "", "five-field cron spec (default SCHEDULE_CRON)")
	c.Flags().BoolVar(&runOnStart, "run-now", false, "run once immediately before the first tick")
	return c
}
