package root

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command for the lead capture admin CLI.
var rootCmd = &cobra.Command{
	Use:           "leadcapture",
	Short:         "Lead capture admin CLI",
	Long:          "Administrative utilities for the lead capture service (schema bootstrap, client provisioning and seeding, dev tokens).",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// Root returns the mutable root command for wiring from subpackages.
func Root() *cobra.Command {
	return rootCmd
}
