package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/zenGate-Global/leadcapture/platform/go/persistence"
)

// Repository defines the persistence operations required by the leads service.
type Repository interface {
	InsertIfAbsent(ctx context.Context, params persistence.InsertLeadParams) (persistence.Lead, bool, error)
	ListByTenant(ctx context.Context, params persistence.ListLeadsParams) (persistence.ListLeadsResult, error)
	Get(ctx context.Context, id uuid.UUID) (persistence.Lead, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	store *persistence.LeadStore
}

// NewPostgresRepository constructs a repository backed by the shared persistence layer.
func NewPostgresRepository(store *persistence.LeadStore) Repository {
	if store == nil {
		panic("lead store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) InsertIfAbsent(ctx context.Context, params persistence.InsertLeadParams) (persistence.Lead, bool, error) {
	return r.store.InsertIfAbsent(ctx, params)
}

func (r *postgresRepository) ListByTenant(ctx context.Context, params persistence.ListLeadsParams) (persistence.ListLeadsResult, error) {
	return r.store.ListByTenant(ctx, params)
}

func (r *postgresRepository) Get(ctx context.Context, id uuid.UUID) (persistence.Lead, error) {
	return r.store.GetByID(ctx, id)
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.store.Delete(ctx, id)
}
