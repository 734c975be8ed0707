package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags; "dev" covers local builds.
var Version = "dev"

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print icemetactl's version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("icemetactl v%s\n", Version)
		return nil
	},
}
