package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var lapCmd = &cobra.Command{
	Use:   "lap",
	Short: "Close the current lap and open a new one",
	Long: `lap closes the running lap and opens the next one. When tracking is
paused it resumes instead, even after a lock or sleep pause.`,
	Args: cobra.NoArgs,
	RunE: runLap,
}

func runLap(cmd *cobra.Command, args []string) error {
	ctx, cancel := requestContext()
	defer cancel()

	msg, err := newClient().AddLap(ctx)
	if err != nil {
		fail(err)
	}
	fmt.Println(msg)
	return nil
}
