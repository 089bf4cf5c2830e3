package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/cardsync/internal/domain/syncrun"
	"github.com/example/cardsync/internal/infrastructure/postgres"
	"github.com/example/cardsync/internal/internaltypes"
)

func newHistoryCmd(envFile *string) *cobra.Command {
	var limit int
	c := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recent sync runs from the run ledger, or show one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(*envFile)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			if cfg.DatabaseURL == "" {
				return &internaltypes.ConfigurationError{Missing: []string{"DATABASE_URL"}}
			}

			ctx := cmd.Context()
			d, err := postgres.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()
			if err := postgres.Migrate(ctx, d); err != nil {
				return err
			}

			repo := postgres.NewRunRepo(d)
			var runs []syncrun.Run
			if len(args) == 1 {
				r, err := repo.Get(ctx, args[0])
				if errors.Is(err, internaltypes.ErrNotFound) {
					return fmt.Errorf("run %s: %w", args[0], err)
				}
				if err != nil {
					return err
				}
				runs = append(runs, r)
			} else {
				runs, err = repo.ListRecent(ctx, limit)
				if err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			for _, r := range runs {
				fmt.Fprintf(out, "id=%s started=%s target=%s status=%s created=%d existing=%d annotated=%d dry_run=%t took=%s\n",
					r.ID, r.StartedAt.Format(time.RFC3339), r.Target, r.Status,
					r.Created, r.SkippedExisting, r.SkippedAnnotated, r.DryRun, r.Duration().Round(time.Millisecond))
				if r.Error != nil {
					fmt.Fprintf(out, "  error: %s\n", *r.Error)
				}
			}
			return nil
		},
	}
	c.Flags().IntVar(&limit, "limit", 20, "number of runs to show")
	return c
}
