package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zenGate-Global/leadcapture/platform/go/persistence"
)

// Command groups bootstrap helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Bootstrap database resources",
	}

	cmd.AddCommand(schemaCommand())
	return cmd
}

func schemaCommand() *cobra.Command {
	var (
		databaseURL string
		schema      string
	)

	c := &cobra.Command{
		Use:   "schema",
		Short: "Apply the tenants, capture_pages and leads DDL (idempotent)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{
				ConnString:      databaseURL,
				ApplicationName: "leadcapture-cli",
			})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			if err := persistence.BootstrapSchema(ctx, pool, schema); err != nil {
				return err
			}

			target := schema
			if target == "" {
				target = "default search_path"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema bootstrapped (%s)\n", target)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection string (defaults to $DATABASE_URL)")
	c.Flags().StringVar(&schema, "schema", "", "optional schema to create and bootstrap into")

	return c
}
