package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	capturepages "github.com/zenGate-Global/leadcapture/domains/capture-pages/be/service"
	"github.com/zenGate-Global/leadcapture/platform/go/tenant"
	"github.com/zenGate-Global/leadcapture/platform/go/webhook"
)

// Errors returned by the service layer.
var (
	ErrNotFound           = errors.New("tenant not found")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrAuthIDTaken        = errors.New("auth id is already bound to a tenant")
	ErrProvisionExhausted = errors.New("could not allocate a unique username")
)

// MaxUsernameProbes bounds the candidates tried when provisioning a tenant.
const MaxUsernameProbes = 10

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

// ValidationError is returned when the input payload is invalid.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	return "validation error"
}

// Tenant represents a client of the service.
type Tenant struct {
	ID               uuid.UUID
	AuthID           string
	Username         string
	Email            *string
	WebhookURL       *string
	CaptureName      bool
	CapturePhone     bool
	NotifyOnNewLeads bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Identity returns the request-scoped identity for the tenant.
func (t Tenant) Identity() tenant.Identity {
	return tenant.Identity{TenantID: t.ID, AuthID: t.AuthID, Username: t.Username}
}

// CreateInput represents an administrative tenant creation.
type CreateInput struct {
	AuthID           string
	Username         string
	Email            *string
	CaptureName      bool
	CapturePhone     bool
	NotifyOnNewLeads bool
}

// SettingsInput lists the settings a tenant may change. Nil fields are untouched.
type SettingsInput struct {
	Username         *string
	CaptureName      *bool
	CapturePhone     *bool
	NotifyOnNewLeads *bool
}

// SettingsUpdate is the validated form of SettingsInput handed to the repository.
type SettingsUpdate struct {
	Username         *string
	CaptureName      *bool
	CapturePhone     *bool
	NotifyOnNewLeads *bool
}

// Repository abstracts persistence for tenants. Implementations report unique
// violations as ErrAuthIDTaken or ErrUsernameTaken and missing rows as ErrNotFound.
type Repository interface {
	Create(ctx context.Context, t Tenant) (Tenant, error)
	Get(ctx context.Context, id uuid.UUID) (Tenant, error)
	FindByUsername(ctx context.Context, username string) (Tenant, error)
	FindByAuthID(ctx context.Context, authID string) (Tenant, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	UpdateSettings(ctx context.Context, id uuid.UUID, update SettingsUpdate) (Tenant, error)
	UpdateWebhook(ctx context.Context, id uuid.UUID, webhookURL *string) (Tenant, error)
}

// PageFinder looks up capture pages by their global slug.
type PageFinder interface {
	FindBySlug(ctx context.Context, slug string) (capturepages.Page, error)
}

// Service resolves and manages tenants.
type Service struct {
	repo  Repository
	pages PageFinder
}

// New constructs a tenants Service.
func New(repo Repository, pages PageFinder) *Service {
	if repo == nil {
		panic("tenant repository is required")
	}
	if pages == nil {
		panic("page finder is required")
	}
	return &Service{repo: repo, pages: pages}
}

// Get returns the tenant with the given id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Tenant, error) {
	if id == uuid.Nil {
		return Tenant{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// ResolveByUsername returns the tenant owning the username (exact match).
func (s *Service) ResolveByUsername(ctx context.Context, username string) (Tenant, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Tenant{}, ErrNotFound
	}
	return s.repo.FindByUsername(ctx, username)
}

// ResolveBySlug returns the owner of the active page registered under slug.
// Inactive pages are reported as ErrNotFound.
func (s *Service) ResolveBySlug(ctx context.Context, slug string) (Tenant, capturepages.Page, error) {
	page, err := s.activePage(ctx, slug)
	if err != nil {
		return Tenant{}, capturepages.Page{}, err
	}

	owner, err := s.repo.Get(ctx, page.TenantID)
	if err != nil {
		return Tenant{}, capturepages.Page{}, err
	}
	return owner, page, nil
}

// ResolveByTenantAndSlug returns the tenant and page only when the active page
// registered under slug belongs to tenantID.
func (s *Service) ResolveByTenantAndSlug(ctx context.Context, tenantID uuid.UUID, slug string) (Tenant, capturepages.Page, error) {
	if tenantID == uuid.Nil {
		return Tenant{}, capturepages.Page{}, ErrNotFound
	}

	page, err := s.activePage(ctx, slug)
	if err != nil {
		return Tenant{}, capturepages.Page{}, err
	}
	if page.TenantID != tenantID {
		return Tenant{}, capturepages.Page{}, ErrNotFound
	}

	owner, err := s.repo.Get(ctx, tenantID)
	if err != nil {
		return Tenant{}, capturepages.Page{}, err
	}
	return owner, page, nil
}

func (s *Service) activePage(ctx context.Context, slug string) (capturepages.Page, error) {
	page, err := s.pages.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, capturepages.ErrNotFound) {
			return capturepages.Page{}, ErrNotFound
		}
		return capturepages.Page{}, fmt.Errorf("find capture page: %w", err)
	}
	if !page.IsActive {
		return capturepages.Page{}, ErrNotFound
	}
	return page, nil
}

// ResolveOrProvisionByAuthID returns the tenant bound to authID, creating one on
// first sight. Concurrent first logins converge on a single tenant.
func (s *Service) ResolveOrProvisionByAuthID(ctx context.Context, authID, emailHint string) (Tenant, error) {
	authID = strings.TrimSpace(authID)
	if authID == "" {
		return Tenant{}, newValidationError(map[string]string{"authId": "authId is required"})
	}

	existing, err := s.repo.FindByAuthID(ctx, authID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Tenant{}, err
	}

	var email *string
	if trimmed := strings.TrimSpace(emailHint); trimmed != "" {
		email = &trimmed
	}

	base := tenant.DeriveUsername(authID)
	for attempt := 0; attempt < MaxUsernameProbes; attempt++ {
		candidate := tenant.UsernameCandidate(base, attempt)

		taken, err := s.repo.UsernameExists(ctx, candidate)
		if err != nil {
			return Tenant{}, err
		}
		if taken || tenant.IsReservedUsername(candidate) {
			continue
		}

		created, err := s.repo.Create(ctx, Tenant{
			ID:       uuid.New(),
			AuthID:   authID,
			Username: candidate,
			Email:    email,
		})
		switch {
		case err == nil:
			return created, nil
		case errors.Is(err, ErrAuthIDTaken):
			// A concurrent first login for the same auth id won the insert.
			return s.repo.FindByAuthID(ctx, authID)
		case errors.Is(err, ErrUsernameTaken):
			continue
		default:
			return Tenant{}, err
		}
	}

	return Tenant{}, ErrProvisionExhausted
}

// ResolveIdentity binds a verified external identity to its tenant.
func (s *Service) ResolveIdentity(ctx context.Context, authID, emailHint string) (tenant.Identity, error) {
	t, err := s.ResolveOrProvisionByAuthID(ctx, authID, emailHint)
	if err != nil {
		return tenant.Identity{}, err
	}
	return t.Identity(), nil
}

// Create provisions a tenant with an explicit username.
func (s *Service) Create(ctx context.Context, input CreateInput) (Tenant, error) {
	fieldErrors := FieldErrors{}

	authID := strings.TrimSpace(input.AuthID)
	if authID == "" {
		fieldErrors.add("authId", "authId is required")
	}

	username := strings.TrimSpace(input.Username)
	validateUsername(fieldErrors, username)

	if len(fieldErrors) > 0 {
		return Tenant{}, &ValidationError{Fields: fieldErrors}
	}

	var email *string
	if input.Email != nil && strings.TrimSpace(*input.Email) != "" {
		trimmed := strings.TrimSpace(*input.Email)
		email = &trimmed
	}

	return s.repo.Create(ctx, Tenant{
		ID:               uuid.New(),
		AuthID:           authID,
		Username:         username,
		Email:            email,
		CaptureName:      input.CaptureName,
		CapturePhone:     input.CapturePhone,
		NotifyOnNewLeads: input.NotifyOnNewLeads,
	})
}

// UpdateSettings applies the provided settings. A username owned by another
// tenant fails with ErrUsernameTaken and leaves both tenants unchanged.
func (s *Service) UpdateSettings(ctx context.Context, id uuid.UUID, input SettingsInput) (Tenant, error) {
	if id == uuid.Nil {
		return Tenant{}, ErrNotFound
	}

	update := SettingsUpdate{
		CaptureName:      input.CaptureName,
		CapturePhone:     input.CapturePhone,
		NotifyOnNewLeads: input.NotifyOnNewLeads,
	}

	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		fieldErrors := FieldErrors{}
		validateUsername(fieldErrors, username)
		if len(fieldErrors) > 0 {
			return Tenant{}, &ValidationError{Fields: fieldErrors}
		}

		current, err := s.repo.Get(ctx, id)
		if err != nil {
			return Tenant{}, err
		}
		if current.Username != username {
			taken, err := s.repo.UsernameExists(ctx, username)
			if err != nil {
				return Tenant{}, err
			}
			if taken {
				return Tenant{}, ErrUsernameTaken
			}
			update.Username = &username
		}
	}

	return s.repo.UpdateSettings(ctx, id, update)
}

// UpdateWebhook sets the webhook URL; a blank value clears it.
func (s *Service) UpdateWebhook(ctx context.Context, id uuid.UUID, rawURL string) (Tenant, error) {
	if id == uuid.Nil {
		return Tenant{}, ErrNotFound
	}

	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return s.repo.UpdateWebhook(ctx, id, nil)
	}

	if err := webhook.ValidateURL(trimmed); err != nil {
		return Tenant{}, newValidationError(map[string]string{"webhookUrl": "webhookUrl must be an absolute http or https URL"})
	}
	return s.repo.UpdateWebhook(ctx, id, &trimmed)
}

func validateUsername(fieldErrors FieldErrors, username string) {
	switch {
	case username == "":
		fieldErrors.add("username", "username is required")
	case len(username) < tenant.MinUsernameLength:
		fieldErrors.add("username", fmt.Sprintf("username must be at least %d characters", tenant.MinUsernameLength))
	case len(username) > tenant.MaxUsernameLength:
		fieldErrors.add("username", fmt.Sprintf("username must be at most %d characters", tenant.MaxUsernameLength))
	case !usernamePattern.MatchString(username):
		fieldErrors.add("username", "username can only contain letters, numbers, hyphens, and underscores")
	case tenant.IsReservedUsername(username):
		fieldErrors.add("username", "username is reserved")
	}
}

func newValidationError(fields map[string]string) error {
	fe := FieldErrors{}
	for key, message := range fields {
		fe.add(key, message)
	}
	return &ValidationError{Fields: fe}
}

func (f FieldErrors) add(field, message string) {
	if f == nil {
		return
	}
	f[field] = append(f[field], message)
}
