package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "warden-cli",
	Short: "warden-cli is the command-line interface for runner-warden.",
	Long: `A CLI for operating a runner-warden deployment: inspecting the job ledger,
listing outstanding execution units and signing test deliveries.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to a runner-warden YAML config file")
}

// initConfig points viper at an explicit config file if one was given.
func initConfig() {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	}
}
