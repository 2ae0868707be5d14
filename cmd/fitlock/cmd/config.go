package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ayusman/fitlock/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(cmd.Context(), common.ConfigPath)
		if err != nil {
			return err
		}
		if common.LogLevel != "" {
			cfg.LogLevel = common.LogLevel
		}

		out, err := config.Dump(cfg)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), string(out))
		return err
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(configCmd)
}
