package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"cryptotopup/internal/app"
	"cryptotopup/internal/report"
)

const dateLayout = "2006-01-02"

func exportCmd() *cobra.Command {
	var from, to, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export top-ups created in a date range to an xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := parseRange(from, to, time.Now().UTC())
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app.App) error {
				payments, err := a.Repos.Payments.ListBetween(cmd.Context(), start, end)
				if err != nil {
					return err
				}

				f, err := os.Create(out)
				if err != nil {
					return err
				}
				if err := report.WritePayments(f, payments); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported %d payments to %s\n", len(payments), out)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "First day, YYYY-MM-DD (default: 30 days ago)")
	cmd.Flags().StringVar(&to, "to", "", "Last day inclusive, YYYY-MM-DD (default: today)")
	cmd.Flags().StringVarP(&out, "out", "o", "payments.xlsx", "Output file")

	return cmd
}

// parseRange turns inclusive day bounds into a half-open UTC interval.
func parseRange(from, to string, now time.Time) (time.Time, time.Time, error) {
	today := now.Truncate(24 * time.Hour)

	end := today
	if to != "" {
		t, err := time.Parse(dateLayout, to)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to: %w", err)
		}
		end = t
	}
	end = end.AddDate(0, 0, 1)

	start := today.AddDate(0, 0, -30)
	if from != "" {
		t, err := time.Parse(dateLayout, from)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from: %w", err)
		}
		start = t
	}

	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("--from must not be after --to")
	}
	return start, end, nil
}
