package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Tiliavir/screen-time-tracker/internal/model"
	"github.com/Tiliavir/screen-time-tracker/internal/timecalc"
	"github.com/Tiliavir/screen-time-tracker/internal/tracker"
)

var (
	lapsDate   string
	lapsFormat string
)

var lapsCmd = &cobra.Command{
	Use:   "laps",
	Short: "List the laps of a day",
	Args:  cobra.NoArgs,
	RunE:  runLaps,
}

func init() {
	lapsCmd.Flags().StringVar(&lapsDate, "date", "", "Day to show as YYYY-MM-DD (default: current session)")
	lapsCmd.Flags().StringVar(&lapsFormat, "format", "md", "Output format: md, csv, json, yaml")
}

func runLaps(cmd *cobra.Command, args []string) error {
	ctx, cancel := requestContext()
	defer cancel()

	client := newClient()
	laps, err := client.Laps(ctx, lapsDate)
	if err != nil {
		fail(err)
	}
	var session *tracker.SessionState
	if lapsDate == "" {
		if session, err = client.Session(ctx); err != nil {
			fail(err)
		}
	}
	day := lapsDay(lapsDate, session, time.Now())
	if err := writeLaps(os.Stdout, lapsFormat, day, laps); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return nil
}

// lapsDay names the day the listed laps belong to. Without a date they are
// the session's, which keeps its day across midnight.
func lapsDay(date string, session *tracker.SessionState, now time.Time) string {
	switch {
	case date != "":
		return date
	case session != nil:
		return session.DayKey
	default:
		return timecalc.DayKey(now)
	}
}

func writeLaps(w io.Writer, format, day string, laps []model.Lap) error {
	switch format {
	case "md", "":
		printLaps(w, day, laps)
		return nil
	case "csv":
		printLapsCSV(w, day, laps)
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(laps)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(laps); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want md, csv, json or yaml)", format)
	}
}

// printLaps prints one line per lap followed by the day's total.
func printLaps(w io.Writer, day string, laps []model.Lap) {
	if len(laps) == 0 {
		fmt.Fprintln(w, "No laps found.")
		return
	}

	fmt.Fprintln(w, day)
	var total int64
	for i, l := range laps {
		endStr := "ongoing"
		durStr := ""
		if l.EndTime != nil {
			endStr = timecalc.FormatClock(*l.EndTime)
		}
		if l.Duration != nil {
			total += *l.Duration
			durStr = fmt.Sprintf(" (%s)", timecalc.FormatDuration(*l.Duration))
		}
		fmt.Fprintf(w, "  #%d  %s–%s%s\n", i+1, timecalc.FormatClock(l.StartTime), endStr, durStr)
	}
	fmt.Fprintf(w, "Total: %s\n", timecalc.FormatDuration(total))
}

func printLapsCSV(w io.Writer, day string, laps []model.Lap) {
	fmt.Fprintln(w, "date,lap,start,end,duration_seconds")
	for i, l := range laps {
		startStr := time.Unix(l.StartTime, 0).UTC().Format(time.RFC3339)
		endStr := ""
		if l.EndTime != nil {
			endStr = time.Unix(*l.EndTime, 0).UTC().Format(time.RFC3339)
		}
		durStr := ""
		if l.Duration != nil {
			durStr = fmt.Sprint(*l.Duration)
		}
		fmt.Fprintf(w, "%s,%d,%s,%s,%s\n",
			csvEscape(day), i+1, csvEscape(startStr), csvEscape(endStr), durStr)
	}
}

// csvEscape wraps a field in quotes if it contains a comma, quote, or newline.
func csvEscape(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
