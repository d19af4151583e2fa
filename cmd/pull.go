package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/campsite-bookings/internal/source"
)

func newPullCmd() *cobra.Command {
	var file string

	c := &cobra.Command{
		Use:   "pull",
		Short: "Run one reconciliation pass against the source export",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := buildApp(ctx, true)
			if err != nil {
				return err
			}
			defer cleanup()

			if file == "" {
				file = a.cfg.SourceFile
			}
			rows, err := source.FileSource{Path: file}.Rows(ctx)
			if err != nil {
				return err
			}

			sum, err := a.reconcile.Pull(ctx, rows)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "pull done: created=%d skipped=%d errored=%d\n",
				sum.Created, sum.Skipped, len(sum.Errored))
			for _, re := range sum.Errored {
				fmt.Fprintf(os.Stdout, "  row %d: %s\n", re.Row, re.Reason)
			}
			return nil
		},
	}

	c.Flags().StringVar(&file, "file", "", "CSV export to pull from (default from SOURCE_FILE)")
	return c
}
