package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/zenGate-Global/leadcapture/domains/tenants/be/service"
	"github.com/zenGate-Global/leadcapture/platform/go/persistence"
)

// PostgresRepository implements the tenant repository on the shared persistence layer.
type PostgresRepository struct {
	store *persistence.TenantStore
}

// NewPostgresRepository constructs a repository backed by TenantStore.
func NewPostgresRepository(store *persistence.TenantStore) *PostgresRepository {
	if store == nil {
		panic("tenant store is required")
	}
	return &PostgresRepository{store: store}
}

func (r *PostgresRepository) Create(ctx context.Context, t service.Tenant) (service.Tenant, error) {
	rec, err := r.store.Create(ctx, persistence.CreateTenantParams{
		TenantID:         t.ID,
		AuthID:           t.AuthID,
		Username:         t.Username,
		Email:            t.Email,
		CaptureName:      t.CaptureName,
		CapturePhone:     t.CapturePhone,
		NotifyOnNewLeads: t.NotifyOnNewLeads,
	})
	if err != nil {
		return service.Tenant{}, mapStoreError(err)
	}
	return toServiceTenant(rec), nil
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (service.Tenant, error) {
	rec, err := r.store.GetByID(ctx, id)
	if err != nil {
		return service.Tenant{}, mapStoreError(err)
	}
	return toServiceTenant(rec), nil
}

func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (service.Tenant, error) {
	rec, err := r.store.GetByUsername(ctx, username)
	if err != nil {
		return service.Tenant{}, mapStoreError(err)
	}
	return toServiceTenant(rec), nil
}

func (r *PostgresRepository) FindByAuthID(ctx context.Context, authID string) (service.Tenant, error) {
	rec, err := r.store.GetByAuthID(ctx, authID)
	if err != nil {
		return service.Tenant{}, mapStoreError(err)
	}
	return toServiceTenant(rec), nil
}

func (r *PostgresRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.store.UsernameExists(ctx, username)
}

func (r *PostgresRepository) UpdateSettings(ctx context.Context, id uuid.UUID, update service.SettingsUpdate) (service.Tenant, error) {
	rec, err := r.store.UpdateSettings(ctx, id, persistence.UpdateTenantSettingsParams{
		Username:         update.Username,
		CaptureName:      update.CaptureName,
		CapturePhone:     update.CapturePhone,
		NotifyOnNewLeads: update.NotifyOnNewLeads,
	})
	if err != nil {
		return service.Tenant{}, mapStoreError(err)
	}
	return toServiceTenant(rec), nil
}

func (r *PostgresRepository) UpdateWebhook(ctx context.Context, id uuid.UUID, webhookURL *string) (service.Tenant, error) {
	rec, err := r.store.UpdateWebhook(ctx, id, webhookURL)
	if err != nil {
		return service.Tenant{}, mapStoreError(err)
	}
	return toServiceTenant(rec), nil
}

func toServiceTenant(rec persistence.TenantRecord) service.Tenant {
	return service.Tenant{
		ID:               rec.TenantID,
		AuthID:           rec.AuthID,
		Username:         rec.Username,
		Email:            rec.Email,
		WebhookURL:       rec.WebhookURL,
		CaptureName:      rec.CaptureName,
		CapturePhone:     rec.CapturePhone,
		NotifyOnNewLeads: rec.NotifyOnNewLeads,
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
	}
}

func mapStoreError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrTenantNotFound):
		return service.ErrNotFound
	case errors.Is(err, persistence.ErrAuthIDConflict):
		return service.ErrAuthIDTaken
	case errors.Is(err, persistence.ErrUsernameConflict):
		return service.ErrUsernameTaken
	default:
		return err
	}
}
