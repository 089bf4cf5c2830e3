package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/cardsync/internal/config"
	"github.com/example/cardsync/internal/domain/window"
	"github.com/example/cardsync/internal/internaltypes"
	"github.com/example/cardsync/internal/logging"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

func NewRootCmd() *cobra.Command {
	var (
		envFile string
		opts    syncOptions
	)

	root := &cobra.Command{
		Use:   "cardsync",
		Short: "Turn active Trello cards into Google Calendar events at 08:00",
		Long: `cardsync reads the cards of the configured Trello lists and creates a one-hour
calendar event at 08:00 for every card that has no event with the same title in
the target week. Cards whose title starts with the annotation marker are skipped.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := window.ParseMode(opts.target); err != nil {
				return err
			}
			cfg, log, err := setup(envFile)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx := cmd.Context()
			s, err := newSyncer(ctx, cfg, opts, log, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer s.Close()
			return s.Run(ctx)
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv or yaml config file (missing file is fine)")
	addSyncFlags(root, &opts)

	root.AddCommand(newVersionCmd())
	root.AddCommand(newScheduleCmd(&envFile))
	root.AddCommand(newHistoryCmd(&envFile))
	root.AddCommand(newConfigCmd(&envFile))
	root.AddCommand(newCheckCmd(&envFile))

	return root
}

func addSyncFlags(c *cobra.Command, opts *syncOptions) {
	c.Flags().StringVar(&opts.target, "target", string(window.ModeToday), "today: schedule within the current week, monday: schedule for next Monday")
	c.Flags().BoolVar(&opts.dryRun, "dry-run", false, "check the calendar but create nothing")
	c.Flags().StringVar(&opts.icsOut, "ics-out", "", "also write the created events to this .ics file")
	c.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus textfile metrics to this path")
}

// setup loads configuration and builds the process logger.
func setup(envFile string) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return config.Config{}, nil, &internaltypes.ConfigurationError{Err: err}
	}
	return cfg, log, nil
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "cardsync: %s error: %v\n", internaltypes.Kind(err), err)
		var cfgErr *internaltypes.ConfigurationError
		if errors.As(err, &cfgErr) {
			fmt.Fprintln(os.Stderr, "hint: set the missing keys in the environment or in the --env-file")
		}
		os.Exit(1)
	}
}
