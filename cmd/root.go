package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/screen-time-tracker/internal/api"
	"github.com/Tiliavir/screen-time-tracker/internal/config"
	"github.com/Tiliavir/screen-time-tracker/internal/storage"
	"github.com/Tiliavir/screen-time-tracker/internal/tracker"
)

const requestTimeout = 15 * time.Second

var (
	flagAddr string

	appBase string
	appCfg  config.Config
)

var rootCmd = &cobra.Command{
	Use:   "stt",
	Short: "Screen Time Tracker – counts the time you actually spend at the screen",
	Long: `stt tracks working time as laps within a day. A background daemon
(stt run) pauses the count while the screen is locked or the machine sleeps.
All data is stored as human-readable JSON files in ~/.stt/.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagAddr, "addr", "", "Daemon address (default from config.json)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(endCmd)
	rootCmd.AddCommand(lapCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(lapsCmd)
	rootCmd.AddCommand(signalCmd)
	rootCmd.AddCommand(journalCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	base, err := storage.BaseDir()
	if err != nil {
		return err
	}
	cfg, err := config.Load(base)
	if err != nil {
		return err
	}
	appBase, appCfg = base, cfg
	if flagAddr == "" {
		flagAddr = cfg.Daemon.Addr
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel()})))
	return nil
}

func newClient() *api.Client {
	return api.NewClient(flagAddr)
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

// exitCode is 1 for commands the tracker refused and 2 for everything else.
func exitCode(err error) int {
	var te *tracker.Error
	if !errors.As(err, &te) {
		return 2
	}
	switch te.Code {
	case tracker.ErrLockAcquisitionFailed.Code, api.ErrInternal.Code, api.ErrUnavailable.Code:
		return 2
	}
	return 1
}

func errorText(err error) string {
	if errors.Is(err, api.ErrDaemonUnreachable) {
		return fmt.Sprintf("%v (is `stt run` running on %s?)", err, flagAddr)
	}
	var te *tracker.Error
	if errors.As(err, &te) && te.Message != "" {
		return te.Message
	}
	return err.Error()
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, errorText(err))
	os.Exit(exitCode(err))
}
