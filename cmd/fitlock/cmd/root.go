// Package cmd implements the fitlock command line.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ayusman/fitlock/internal/logger"
	"github.com/ayusman/fitlock/internal/service"
	"github.com/ayusman/fitlock/internal/version"
)

var (
	// common holds the persistent --config and --log-level flags.
	common service.Common

	// rootCmd is the base command; it does nothing on its own.
	rootCmd = &cobra.Command{
		Use:   "fitlock",
		Short: "Count push-ups from a camera and unlock apps when the goal is reached.",
		Long: `FitLock counts push-ups by tracking the elbow angle and body alignment
of a person in a side view. It runs as an HTTP API for mobile and web
clients (serve) or as a local camera window (local).

Configuration is read from the YAML file given with --config or
$FITLOCK_CONFIG, then from FITLOCK_* environment variables.`,
		SilenceUsage: true,
	}
)

// Execute runs the fitlock CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&common.ConfigPath, "config", "c", "", "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&common.LogLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.PersistentPostRun = func(*cobra.Command, []string) {
		logger.Sync()
	}
}
