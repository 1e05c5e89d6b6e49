package tenantcmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	capturepages "github.com/zenGate-Global/leadcapture/domains/capture-pages/be/service"
	"github.com/zenGate-Global/leadcapture/domains/tenants/be/service"
)

// Seed is the YAML document accepted by `tenant seed`.
type Seed struct {
	Tenants []SeedTenant `yaml:"tenants"`
}

// SeedTenant describes one client and its capture pages.
type SeedTenant struct {
	AuthID           string     `yaml:"authId"`
	Username         string     `yaml:"username"`
	Email            string     `yaml:"email"`
	WebhookURL       string     `yaml:"webhookUrl"`
	CaptureName      bool       `yaml:"captureName"`
	CapturePhone     bool       `yaml:"capturePhone"`
	NotifyOnNewLeads bool       `yaml:"notifyOnNewLeads"`
	Pages            []SeedPage `yaml:"pages"`
}

// SeedPage describes a capture page.
type SeedPage struct {
	Name               string  `yaml:"name"`
	Slug               string  `yaml:"slug"`
	Headline           string  `yaml:"headline"`
	Subheadline        *string `yaml:"subheadline"`
	BackgroundType     string  `yaml:"backgroundType"`
	BackgroundColor    *string `yaml:"backgroundColor"`
	BackgroundGradient *string `yaml:"backgroundGradient"`
	BackgroundImage    *string `yaml:"backgroundImage"`
	TextColor          *string `yaml:"textColor"`
	ButtonColor        *string `yaml:"buttonColor"`
	ButtonTextColor    *string `yaml:"buttonTextColor"`
	FontFamily         *string `yaml:"fontFamily"`
	CaptureName        bool    `yaml:"captureName"`
	CapturePhone       bool    `yaml:"capturePhone"`
	IsActive           *bool   `yaml:"isActive"`
}

// TenantSeeder is the subset of the tenants service used when seeding.
type TenantSeeder interface {
	Create(ctx context.Context, input service.CreateInput) (service.Tenant, error)
	ResolveByUsername(ctx context.Context, username string) (service.Tenant, error)
	UpdateWebhook(ctx context.Context, id uuid.UUID, rawURL string) (service.Tenant, error)
}

// PageCreator is the subset of the capture pages service used when seeding.
type PageCreator interface {
	Create(ctx context.Context, tenantID uuid.UUID, input capturepages.CreateInput) (capturepages.Page, error)
}

// LoadSeed decodes a seed document. Unknown keys are rejected.
func LoadSeed(r io.Reader) (Seed, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var seed Seed
	if err := dec.Decode(&seed); err != nil {
		if errors.Is(err, io.EOF) {
			return Seed{}, errors.New("seed file is empty")
		}
		return Seed{}, fmt.Errorf("decode seed file: %w", err)
	}
	return seed, nil
}

// Apply creates every client and page in seed. Clients that already exist
// under the same auth id are reused and pages whose slug is taken are skipped,
// so the same file can be applied repeatedly.
func Apply(ctx context.Context, tenants TenantSeeder, pages PageCreator, seed Seed, out io.Writer) error {
	for _, st := range seed.Tenants {
		t, created, err := ensureTenant(ctx, tenants, st)
		if err != nil {
			return fmt.Errorf("client %q: %w", st.Username, err)
		}
		if created {
			fmt.Fprintf(out, "client %s created (%s)\n", t.Username, t.ID)
		} else {
			fmt.Fprintf(out, "client %s exists (%s)\n", t.Username, t.ID)
		}

		if st.WebhookURL != "" {
			if _, err := tenants.UpdateWebhook(ctx, t.ID, st.WebhookURL); err != nil {
				return fmt.Errorf("client %q webhook: %w", st.Username, err)
			}
		}

		for _, sp := range st.Pages {
			page, err := pages.Create(ctx, t.ID, toCreateInput(sp))
			switch {
			case errors.Is(err, capturepages.ErrSlugTaken):
				fmt.Fprintf(out, "  page %s skipped: slug taken\n", sp.Slug)
			case err != nil:
				return fmt.Errorf("client %q page %q: %w", st.Username, sp.Slug, err)
			default:
				fmt.Fprintf(out, "  page %s created at %s\n", page.Slug, page.PublicPath())
			}
		}
	}
	return nil
}

func ensureTenant(ctx context.Context, tenants TenantSeeder, st SeedTenant) (service.Tenant, bool, error) {
	t, err := tenants.Create(ctx, service.CreateInput{
		AuthID:           st.AuthID,
		Username:         st.Username,
		Email:            strPtrOrNil(st.Email),
		CaptureName:      st.CaptureName,
		CapturePhone:     st.CapturePhone,
		NotifyOnNewLeads: st.NotifyOnNewLeads,
	})
	if err == nil {
		return t, true, nil
	}
	if !errors.Is(err, service.ErrUsernameTaken) && !errors.Is(err, service.ErrAuthIDTaken) {
		return service.Tenant{}, false, err
	}

	existing, lookupErr := tenants.ResolveByUsername(ctx, st.Username)
	if lookupErr != nil {
		return service.Tenant{}, false, fmt.Errorf("%w (lookup: %w)", err, lookupErr)
	}
	if existing.AuthID != st.AuthID {
		return service.Tenant{}, false, fmt.Errorf("username belongs to another auth id: %w", service.ErrUsernameTaken)
	}
	return existing, false, nil
}

func toCreateInput(sp SeedPage) capturepages.CreateInput {
	return capturepages.CreateInput{
		Name:               sp.Name,
		Slug:               sp.Slug,
		Headline:           sp.Headline,
		Subheadline:        sp.Subheadline,
		BackgroundType:     sp.BackgroundType,
		BackgroundColor:    sp.BackgroundColor,
		BackgroundGradient: sp.BackgroundGradient,
		BackgroundImage:    sp.BackgroundImage,
		TextColor:          sp.TextColor,
		ButtonColor:        sp.ButtonColor,
		ButtonTextColor:    sp.ButtonTextColor,
		FontFamily:         sp.FontFamily,
		CaptureName:        sp.CaptureName,
		CapturePhone:       sp.CapturePhone,
		IsActive:           sp.IsActive,
	}
}
