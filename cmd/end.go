package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/screen-time-tracker/internal/timecalc"
)

var endCmd = &cobra.Command{
	Use:   "end",
	Short: "End the day and archive its laps",
	Args:  cobra.NoArgs,
	RunE:  runEnd,
}

func runEnd(cmd *cobra.Command, args []string) error {
	ctx, cancel := requestContext()
	defer cancel()

	rec, err := newClient().EndDay(ctx)
	if err != nil {
		fail(err)
	}
	fmt.Printf("Ended %s. Total: %s in %d lap(s)\n",
		rec.Date, timecalc.FormatDuration(rec.TotalDuration), len(rec.Laps))
	return nil
}
