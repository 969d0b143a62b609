package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/screen-time-tracker/internal/model"
	"github.com/Tiliavir/screen-time-tracker/internal/timecalc"
	"github.com/Tiliavir/screen-time-tracker/internal/tracker"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := requestContext()
	defer cancel()

	client := newClient()
	st, err := client.Status(ctx)
	if err != nil {
		fail(err)
	}
	var session *tracker.SessionState
	if st != nil {
		if session, err = client.Session(ctx); err != nil {
			fail(err)
		}
	}
	printStatus(os.Stdout, st, session)
	return nil
}

func printStatus(w io.Writer, st *model.Status, session *tracker.SessionState) {
	if st == nil {
		fmt.Fprintln(w, "No active session.")
		return
	}

	state := "running"
	if session != nil && session.Paused {
		switch session.Origin {
		case model.PauseSystem:
			state = "paused (screen locked or asleep)"
		default:
			state = "paused"
		}
	}
	fmt.Fprintf(w, "Tracking %s: %s\n", st.DayKey, state)
	fmt.Fprintf(w, "  Current lap: %s\n", formatElapsed(st.CurrentLapDuration))
	fmt.Fprintf(w, "  Total: %s\n", timecalc.FormatDurationHHMMSS(st.TotalSessionDuration))
}
