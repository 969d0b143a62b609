package cmd

import (
	"context"
	"log/slog"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/screen-time-tracker/internal/daemon"
	"github.com/Tiliavir/screen-time-tracker/internal/logfields"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the tracking daemon in the foreground",
	Args:  cobra.NoArgs,
	RunE:  runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg := appCfg
	cfg.Daemon.Addr = flagAddr

	d, err := daemon.New(cfg, appBase)
	if err != nil {
		fail(err)
	}

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting daemon", logfields.Path(appBase))
	if err := d.Run(ctx); err != nil {
		slog.Error("Daemon stopped with error", logfields.Error(err))
		os.Exit(2)
	}
	return nil
}
