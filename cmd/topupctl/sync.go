package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cryptotopup/internal/app"
)

func syncCmd() *cobra.Command {
	var (
		since time.Duration
		limit int
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Poll the gateway for open top-ups and finalize the paid ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("limit must be positive, got %d", limit)
			}
			return withApp(cmd, func(a *app.App) error {
				report, err := a.Topups.SyncOpen(cmd.Context(), time.Now().Add(-since), limit)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "checked=%d finalized=%d failed=%d\n",
					report.Checked, report.Finalized, report.Failed)
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "Only poll payments created within this window")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of payments to poll")

	return cmd
}
