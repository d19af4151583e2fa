package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	var retentionDays int

	c := &cobra.Command{
		Use:   "sweep",
		Short: "Archive terminal bookings past the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := buildApp(ctx, true)
			if err != nil {
				return err
			}
			defer cleanup()

			retention := a.cfg.Retention
			if retentionDays >= 0 {
				retention = time.Duration(retentionDays) * 24 * time.Hour
			}

			moved, err := a.sweeper.Sweep(ctx, time.Now(), retention)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "archived %d booking(s)\n", moved)
			return nil
		},
	}

	c.Flags().IntVar(&retentionDays, "retention-days", -1, "override ARCHIVE_AFTER_DAYS for this sweep")
	return c
}
