package cmd

import (
	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "fieldfleet",
	Short:         "Harvest-support fleet planner",
	Long:          "fieldfleet forecasts unit readiness from vegetation-index series, groups the\nforecast events into deployment windows and assigns machines to units.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }
