package auth

import "github.com/spf13/cobra"

// Command groups auth helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Auth utilities (dev tokens)",
	}

	cmd.AddCommand(devTokenCommand())
	return cmd
}
