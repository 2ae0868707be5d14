package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ayusman/fitlock/internal/service"
)

var serveOpts service.ServeOptions

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server.",
	Long: `Serves the rep counter API. Clients post camera frames or on-device
pose landmarks and read back the count; with --camera the server also
reads its own camera and streams annotated video at /api/video-feed.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signalContext()
		defer stop()

		serveOpts.Common = common
		return service.Serve(ctx, &serveOpts)
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	serveCmd.Flags().StringVarP(&serveOpts.Addr, "addr", "a", "", "listen address, overrides addr from config")
	serveCmd.Flags().BoolVar(&serveOpts.Camera, "camera", false, "read the server camera, overrides camera.enabled")
	serveCmd.Flags().BoolVar(&serveOpts.Tray, "tray", false, "show the system tray menu")
	rootCmd.AddCommand(serveCmd)
}
