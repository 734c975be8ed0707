// Package cmd implements icemetactl's cobra commands: table lifecycle
// operations, commits, and retention maintenance against a configured
// storage backend.
package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "icemetactl",
	Short: "icemetactl operates Iceberg-style table metadata directly against a storage backend.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
