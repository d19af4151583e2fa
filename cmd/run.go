package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/campsite-bookings/internal/scheduler"
	"github.com/example/campsite-bookings/internal/source"
)

func newRunCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the background scheduler (pull, auto-progress, sweep) until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, cleanup, err := buildApp(ctx, migrateUp)
			if err != nil {
				return err
			}
			defer cleanup()

			s := &scheduler.Scheduler{
				Source:        source.FileSource{Path: a.cfg.SourceFile},
				Reconcile:     a.reconcile,
				Workflow:      a.workflow,
				Sweeper:       a.sweeper,
				Store:         a.store,
				PullInterval:  a.cfg.PullInterval,
				SweepInterval: a.cfg.SweepInterval,
				Retention:     a.cfg.Retention,
				Log:           a.log,
				Now:           time.Now,
			}

			a.log.Info().
				Dur("pull_interval", a.cfg.PullInterval).
				Dur("sweep_interval", a.cfg.SweepInterval).
				Msg("scheduler starting")

			if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}
