package tenantcmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	capturepagesrepo "github.com/zenGate-Global/leadcapture/domains/capture-pages/be/repo"
	capturepages "github.com/zenGate-Global/leadcapture/domains/capture-pages/be/service"
	"github.com/zenGate-Global/leadcapture/domains/tenants/be/repo"
	"github.com/zenGate-Global/leadcapture/domains/tenants/be/service"
	"github.com/zenGate-Global/leadcapture/platform/go/persistence"
)

// Command groups client provisioning helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Client utilities (create, seed)",
	}

	cmd.AddCommand(createCommand())
	cmd.AddCommand(seedCommand())
	return cmd
}

func createCommand() *cobra.Command {
	var (
		databaseURL string
		input       service.CreateInput
		email       string
		webhookURL  string
	)

	c := &cobra.Command{
		Use:   "create",
		Short: "Create a client bound to an auth provider subject",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			return withServices(ctx, databaseURL, func(tenants *service.Service, _ capturepages.Service) error {
				input.Email = strPtrOrNil(email)
				t, err := tenants.Create(ctx, input)
				if err != nil {
					return fmt.Errorf("create client: %w", err)
				}

				if strings.TrimSpace(webhookURL) != "" {
					if t, err = tenants.UpdateWebhook(ctx, t.ID, webhookURL); err != nil {
						return fmt.Errorf("set webhook: %w", err)
					}
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Client created: %s (%s)\n", t.Username, t.ID)
				return nil
			})
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection string (defaults to $DATABASE_URL)")
	c.Flags().StringVar(&input.AuthID, "auth-id", "", "auth provider subject the client logs in with")
	c.Flags().StringVar(&input.Username, "username", "", "public username (3-50 chars, letters, digits, _ and -)")
	c.Flags().StringVar(&email, "email", "", "contact email")
	c.Flags().StringVar(&webhookURL, "webhook-url", "", "absolute http(s) URL notified on new leads")
	c.Flags().BoolVar(&input.CaptureName, "capture-name", false, "collect visitor names on the default page")
	c.Flags().BoolVar(&input.CapturePhone, "capture-phone", false, "collect visitor phone numbers on the default page")
	c.Flags().BoolVar(&input.NotifyOnNewLeads, "notify-on-new-leads", false, "publish owner notifications for new leads")

	_ = c.MarkFlagRequired("auth-id")
	_ = c.MarkFlagRequired("username")

	return c
}

func seedCommand() *cobra.Command {
	var (
		databaseURL string
		file        string
	)

	c := &cobra.Command{
		Use:   "seed",
		Short: "Create clients and capture pages from a YAML file (idempotent)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open seed file: %w", err)
			}
			defer f.Close()

			seed, err := LoadSeed(f)
			if err != nil {
				return err
			}

			return withServices(ctx, databaseURL, func(tenants *service.Service, pages capturepages.Service) error {
				return Apply(ctx, tenants, pages, seed, cmd.OutOrStdout())
			})
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection string (defaults to $DATABASE_URL)")
	c.Flags().StringVarP(&file, "file", "f", "", "seed file")

	_ = c.MarkFlagRequired("file")

	return c
}

// withServices opens a pool and wires the tenant and capture page services over it.
func withServices(ctx context.Context, databaseURL string, fn func(*service.Service, capturepages.Service) error) error {
	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{
		ConnString:      databaseURL,
		ApplicationName: "leadcapture-cli",
	})
	if err != nil {
		return fmt.Errorf("init pool: %w", err)
	}
	defer persistence.ClosePool(pool)

	tenants, pages, err := newServices(ctx, pool)
	if err != nil {
		return err
	}
	return fn(tenants, pages)
}

func newServices(ctx context.Context, pool *pgxpool.Pool) (*service.Service, capturepages.Service, error) {
	tenantStore, err := persistence.NewTenantStore(ctx, pool)
	if err != nil {
		return nil, nil, fmt.Errorf("init tenant store: %w", err)
	}
	pageStore, err := persistence.NewCapturePageStore(ctx, pool)
	if err != nil {
		return nil, nil, fmt.Errorf("init capture page store: %w", err)
	}

	pages := capturepages.New(capturepagesrepo.NewPostgresRepository(pageStore))
	return service.New(repo.NewPostgresRepository(tenantStore), pages), pages, nil
}

func strPtrOrNil(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
