package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ayusman/fitlock/internal/service"
)

var localOpts service.LocalOptions

var localCmd = &cobra.Command{
	Use:   "local",
	Short: "Count push-ups in a local camera window.",
	Long: `Opens the camera, or a video file, and shows the annotated frames in a
window. Press r to reset the counter and q to quit.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signalContext()
		defer stop()

		localOpts.Common = common
		return service.RunLocal(ctx, &localOpts)
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	localCmd.Flags().StringVar(&localOpts.Source, "camera", "", "camera index or video file, defaults to camera.device_id")
	rootCmd.AddCommand(localCmd)
}
