package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start tracking today",
	Args:  cobra.NoArgs,
	RunE:  runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	ctx, cancel := requestContext()
	defer cancel()

	msg, err := newClient().StartDay(ctx)
	if err != nil {
		fail(err)
	}
	fmt.Println(msg)
	return nil
}
