package repo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/leadcapture/domains/tenants/be/service"
)

// MemoryRepository is an in-memory implementation that enforces the same
// uniqueness rules as the tenants table. Suitable for tests and local runs.
type MemoryRepository struct {
	mu         sync.RWMutex
	byID       map[uuid.UUID]service.Tenant
	byAuthID   map[string]uuid.UUID
	byUsername map[string]uuid.UUID
}

// NewMemoryRepository constructs a MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:       make(map[uuid.UUID]service.Tenant),
		byAuthID:   make(map[string]uuid.UUID),
		byUsername: make(map[string]uuid.UUID),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, t service.Tenant) (service.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byAuthID[t.AuthID]; ok {
		return service.Tenant{}, service.ErrAuthIDTaken
	}
	if _, ok := r.byUsername[t.Username]; ok {
		return service.Tenant{}, service.ErrUsernameTaken
	}

	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	r.byID[t.ID] = t
	r.byAuthID[t.AuthID] = t.ID
	r.byUsername[t.Username] = t.ID
	return t, nil
}

func (r *MemoryRepository) Get(ctx context.Context, id uuid.UUID) (service.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	if !ok {
		return service.Tenant{}, service.ErrNotFound
	}
	return t, nil
}

func (r *MemoryRepository) FindByUsername(ctx context.Context, username string) (service.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byUsername[username]
	if !ok {
		return service.Tenant{}, service.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *MemoryRepository) FindByAuthID(ctx context.Context, authID string) (service.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byAuthID[authID]
	if !ok {
		return service.Tenant{}, service.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *MemoryRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byUsername[username]
	return ok, nil
}

func (r *MemoryRepository) UpdateSettings(ctx context.Context, id uuid.UUID, update service.SettingsUpdate) (service.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byID[id]
	if !ok {
		return service.Tenant{}, service.ErrNotFound
	}

	if update.Username != nil && *update.Username != t.Username {
		if _, taken := r.byUsername[*update.Username]; taken {
			return service.Tenant{}, service.ErrUsernameTaken
		}
		delete(r.byUsername, t.Username)
		t.Username = *update.Username
		r.byUsername[t.Username] = id
	}
	if update.CaptureName != nil {
		t.CaptureName = *update.CaptureName
	}
	if update.CapturePhone != nil {
		t.CapturePhone = *update.CapturePhone
	}
	if update.NotifyOnNewLeads != nil {
		t.NotifyOnNewLeads = *update.NotifyOnNewLeads
	}

	t.UpdatedAt = time.Now().UTC()
	r.byID[id] = t
	return t, nil
}

func (r *MemoryRepository) UpdateWebhook(ctx context.Context, id uuid.UUID, webhookURL *string) (service.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byID[id]
	if !ok {
		return service.Tenant{}, service.ErrNotFound
	}
	t.WebhookURL = webhookURL
	t.UpdatedAt = time.Now().UTC()
	r.byID[id] = t
	return t, nil
}
