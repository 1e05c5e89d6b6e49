package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/zenGate-Global/leadcapture/platform/go/persistence"
)

// Repository defines the persistence operations required by the capture pages service.
type Repository interface {
	Create(ctx context.Context, params persistence.CreateCapturePageParams) (persistence.CapturePageRecord, error)
	Get(ctx context.Context, id uuid.UUID) (persistence.CapturePageRecord, error)
	GetBySlug(ctx context.Context, slug string) (persistence.CapturePageRecord, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]persistence.CapturePageRecord, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (persistence.CapturePageRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	store *persistence.CapturePageStore
}

// NewPostgresRepository constructs a repository backed by the shared persistence layer.
func NewPostgresRepository(store *persistence.CapturePageStore) Repository {
	if store == nil {
		panic("capture page store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) Create(ctx context.Context, params persistence.CreateCapturePageParams) (persistence.CapturePageRecord, error) {
	return r.store.Create(ctx, params)
}

func (r *postgresRepository) Get(ctx context.Context, id uuid.UUID) (persistence.CapturePageRecord, error) {
	return r.store.GetByID(ctx, id)
}

func (r *postgresRepository) GetBySlug(ctx context.Context, slug string) (persistence.CapturePageRecord, error) {
	return r.store.GetBySlug(ctx, slug)
}

func (r *postgresRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]persistence.CapturePageRecord, error) {
	return r.store.ListByTenant(ctx, tenantID)
}

func (r *postgresRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) (persistence.CapturePageRecord, error) {
	return r.store.SetActive(ctx, id, active)
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.store.Delete(ctx, id)
}
