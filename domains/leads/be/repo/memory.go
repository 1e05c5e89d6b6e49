package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/leadcapture/platform/go/persistence"
)

type tenantEmail struct {
	tenantID uuid.UUID
	email    string
}

// MemoryRepository keeps leads in process and enforces the (tenant, email)
// uniqueness of the leads table.
type MemoryRepository struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]persistence.Lead
	byEmail map[tenantEmail]uuid.UUID
	now     func() time.Time
}

// NewMemoryRepository constructs a MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[uuid.UUID]persistence.Lead),
		byEmail: make(map[tenantEmail]uuid.UUID),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRepository) InsertIfAbsent(_ context.Context, params persistence.InsertLeadParams) (persistence.Lead, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := tenantEmail{tenantID: params.TenantID, email: params.Email}
	if _, exists := r.byEmail[key]; exists {
		return persistence.Lead{}, false, nil
	}

	lead := persistence.Lead{
		LeadID:    params.LeadID,
		TenantID:  params.TenantID,
		Email:     params.Email,
		Name:      params.Name,
		Phone:     params.Phone,
		CreatedAt: r.now(),
	}
	r.byID[lead.LeadID] = lead
	r.byEmail[key] = lead.LeadID
	return lead, true, nil
}

func (r *MemoryRepository) ListByTenant(_ context.Context, params persistence.ListLeadsParams) (persistence.ListLeadsResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matching := make([]persistence.Lead, 0)
	for _, lead := range r.byID {
		if lead.TenantID == params.TenantID {
			matching = append(matching, lead)
		}
	}
	sort.Slice(matching, func(i, j int) bool {
		if matching[i].CreatedAt.Equal(matching[j].CreatedAt) {
			return matching[i].LeadID.String() < matching[j].LeadID.String()
		}
		return matching[i].CreatedAt.After(matching[j].CreatedAt)
	})

	result := persistence.ListLeadsResult{Leads: []persistence.Lead{}, TotalItems: len(matching)}
	start := (params.Page - 1) * params.PageSize
	if params.Page < 1 || params.PageSize <= 0 || start >= len(matching) {
		return result, nil
	}
	end := start + params.PageSize
	if end > len(matching) {
		end = len(matching)
	}
	result.Leads = append(result.Leads, matching[start:end]...)
	return result, nil
}

func (r *MemoryRepository) Get(_ context.Context, id uuid.UUID) (persistence.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.byID[id]
	if !ok {
		return persistence.Lead{}, persistence.ErrLeadNotFound
	}
	return lead, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.byID[id]
	if !ok {
		return persistence.ErrLeadNotFound
	}
	delete(r.byID, id)
	delete(r.byEmail, tenantEmail{tenantID: lead.TenantID, email: lead.Email})
	return nil
}
