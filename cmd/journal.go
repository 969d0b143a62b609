package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Tiliavir/screen-time-tracker/internal/journal"
)

var (
	journalDate   string
	journalFormat string
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Show the recorded transitions of a day",
	Args:  cobra.NoArgs,
	RunE:  runJournal,
}

func init() {
	journalCmd.Flags().StringVar(&journalDate, "date", "", "Day to show as YYYY-MM-DD (default: today)")
	journalCmd.Flags().StringVar(&journalFormat, "format", "md", "Output format: md, json, yaml")
}

func runJournal(cmd *cobra.Command, args []string) error {
	ctx, cancel := requestContext()
	defer cancel()

	entries, err := newClient().Journal(ctx, journalDate)
	if err != nil {
		fail(err)
	}
	if err := writeJournal(os.Stdout, journalFormat, entries); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return nil
}

func writeJournal(w io.Writer, format string, entries []journal.Entry) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "yaml":
		out, err := yaml.Marshal(entries)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	case "md", "":
		if len(entries) == 0 {
			fmt.Fprintln(w, "No transitions recorded.")
			return nil
		}
		for _, e := range entries {
			line := fmt.Sprintf("%s  %-13s lap %d  %ds", e.At.Local().Format("15:04:05"), e.Kind, e.Lap, e.Seconds)
			if e.Cause != "" {
				line += "  " + e.Cause
			}
			if e.Origin != "" {
				line += "  (" + e.Origin + ")"
			}
			fmt.Fprintln(w, line)
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q (want md, json or yaml)", format)
	}
}
