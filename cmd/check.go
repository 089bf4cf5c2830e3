package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/cardsync/internal/application/usecases"
	"github.com/example/cardsync/internal/infrastructure/gcal"
	"github.com/example/cardsync/internal/infrastructure/postgres"
	"github.com/example/cardsync/internal/infrastructure/trello"
)

func newCheckCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify access to the board, the calendar and the run ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(*envFile)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.HTTPTimeout)
			defer cancel()

			svc, err := gcal.NewService(ctx, cfg.CredentialsFile)
			if err != nil {
				return err
			}
			boardOpts := []trello.Option{trello.WithTimeout(cfg.HTTPTimeout), trello.WithLogger(log)}
			if cfg.TrelloBaseURL != "" {
				boardOpts = append(boardOpts, trello.WithBaseURL(cfg.TrelloBaseURL))
			}

			checks := []usecases.PingProvider{
				{Provider: trello.New(trello.Credentials{APIKey: cfg.TrelloAPIKey, Token: cfg.TrelloToken}, cfg.TrelloLists, boardOpts...), ResourceID: cfg.TrelloBoardID},
				{Provider: gcal.New(svc, cfg.Location(), log), ResourceID: cfg.CalendarID},
			}
			var errs []error
			if cfg.DatabaseURL != "" {
				d, err := postgres.Open(ctx, cfg.DatabaseURL)
				if err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "postgres: %v\n", err)
					errs = append(errs, err)
				} else {
					defer d.Close()
					checks = append(checks, usecases.PingProvider{Provider: postgres.NewRunRepo(d)})
				}
			}

			for _, c := range checks {
				start := time.Now()
				if err := c.Execute(ctx); err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", c.Provider.Name(), err)
					errs = append(errs, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%s)\n", c.Provider.Name(), time.Since(start).Round(time.Millisecond))
			}
			return errors.Join(errs...)
		},
	}
}
