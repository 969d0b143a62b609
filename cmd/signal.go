package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var signalCmd = &cobra.Command{
	Use:       "signal <lock|unlock|sleep|wake>",
	Short:     "Inject a lock or sleep signal by hand",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"lock", "unlock", "sleep", "wake"},
	RunE:      runSignal,
}

func runSignal(cmd *cobra.Command, args []string) error {
	ctx, cancel := requestContext()
	defer cancel()

	msg, err := newClient().Signal(ctx, args[0])
	if err != nil {
		fail(err)
	}
	fmt.Println(msg)
	return nil
}
