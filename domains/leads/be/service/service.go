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
	"github.com/zenGate-Global/leadcapture/domains/leads/be/repo"
	notifications "github.com/zenGate-Global/leadcapture/domains/notifications/be/service"
	tenants "github.com/zenGate-Global/leadcapture/domains/tenants/be/service"
	"github.com/zenGate-Global/leadcapture/platform/go/metrics"
	"github.com/zenGate-Global/leadcapture/platform/go/persistence"
	"github.com/zenGate-Global/leadcapture/platform/go/webhook"
)

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

// ValidationError is returned when the input payload is invalid.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	return "validation error"
}

// Domain sentinel errors.
var (
	ErrTenantNotFound = errors.New("client not found")
	ErrNotFound       = errors.New("lead not found")
	ErrForbidden      = errors.New("lead belongs to another client")
)

// Submission outcomes recorded in metrics.
const (
	OutcomeCreated       = "created"
	OutcomeDuplicate     = "duplicate"
	OutcomeRejected      = "rejected"
	OutcomeUnknownTenant = "unknown_tenant"
	OutcomeError         = "error"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Lead is the domain view of a captured lead.
type Lead struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Email     string
	Name      *string
	Phone     *string
	CreatedAt time.Time
}

// SubmitInput is a visitor submission. Exactly one reference form is used:
// Username, TenantID with Slug, or Slug alone.
type SubmitInput struct {
	Email    string
	Username string
	TenantID uuid.UUID
	Slug     string
	Name     *string
	Phone    *string
}

// SubmitResult reports the pipeline outcome. Lead is nil for a duplicate.
type SubmitResult struct {
	Lead       *Lead
	Duplicate  bool
	RedirectTo string
}

// ListOptions controls pagination for List.
type ListOptions struct {
	Page     int
	PageSize int
}

// ListResult is one page of leads.
type ListResult struct {
	Leads      []Lead
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
}

// TenantResolver maps a submission reference onto its owning tenant.
type TenantResolver interface {
	ResolveByUsername(ctx context.Context, username string) (tenants.Tenant, error)
	ResolveBySlug(ctx context.Context, slug string) (tenants.Tenant, capturepages.Page, error)
	ResolveByTenantAndSlug(ctx context.Context, tenantID uuid.UUID, slug string) (tenants.Tenant, capturepages.Page, error)
}

// Notifier receives new-lead events. Implementations must not block.
type Notifier interface {
	NotifyNewLead(ctx context.Context, target notifications.Target, event webhook.Event)
}

// Service defines the lead ingestion pipeline and dashboard queries.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (SubmitResult, error)
	List(ctx context.Context, tenantID uuid.UUID, opts ListOptions) (ListResult, error)
	Delete(ctx context.Context, tenantID, leadID uuid.UUID) error
}

type service struct {
	repo     repo.Repository
	resolver TenantResolver
	notifier Notifier
	metrics  *metrics.Metrics
}

// New constructs the leads Service. m may be nil.
func New(r repo.Repository, resolver TenantResolver, notifier Notifier, m *metrics.Metrics) Service {
	if r == nil {
		panic("lead repository is required")
	}
	if resolver == nil {
		panic("tenant resolver is required")
	}
	if notifier == nil {
		panic("notifier is required")
	}
	return &service{repo: r, resolver: resolver, notifier: notifier, metrics: m}
}

// NormalizeEmail trims and lowercases an email address. It is idempotent.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *service) Submit(ctx context.Context, input SubmitInput) (SubmitResult, error) {
	email := NormalizeEmail(input.Email)

	fieldErrors := FieldErrors{}
	switch {
	case email == "":
		fieldErrors.add("email", "email is required")
	case !emailPattern.MatchString(email):
		fieldErrors.add("email", "email must be a valid address")
	}
	if !hasReference(input) {
		fieldErrors.add("username", "username, tenantId with slug, or slug is required")
	}
	if len(fieldErrors) > 0 {
		s.metrics.LeadSubmission(OutcomeRejected)
		return SubmitResult{}, &ValidationError{Fields: fieldErrors}
	}

	owner, captureName, capturePhone, err := s.resolveOwner(ctx, input)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			s.metrics.LeadSubmission(OutcomeUnknownTenant)
		} else {
			s.metrics.LeadSubmission(OutcomeError)
		}
		return SubmitResult{}, err
	}

	params := persistence.InsertLeadParams{
		LeadID:   uuid.New(),
		TenantID: owner.ID,
		Email:    email,
	}
	if captureName {
		params.Name = optionalText(input.Name)
	}
	if capturePhone {
		params.Phone = optionalText(input.Phone)
	}

	record, inserted, err := s.repo.InsertIfAbsent(ctx, params)
	if err != nil {
		s.metrics.LeadSubmission(OutcomeError)
		return SubmitResult{}, fmt.Errorf("store lead: %w", err)
	}

	result := SubmitResult{RedirectTo: fmt.Sprintf("/%s/thank-you", owner.Username)}
	if !inserted {
		s.metrics.LeadSubmission(OutcomeDuplicate)
		result.Duplicate = true
		return result, nil
	}

	lead := mapLead(record)
	result.Lead = &lead
	s.metrics.LeadSubmission(OutcomeCreated)

	s.notifier.NotifyNewLead(ctx, notifications.TargetFor(owner), newLeadEvent(owner, lead))
	return result, nil
}

func (s *service) List(ctx context.Context, tenantID uuid.UUID, opts ListOptions) (ListResult, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	records, err := s.repo.ListByTenant(ctx, persistence.ListLeadsParams{
		TenantID: tenantID,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return ListResult{}, fmt.Errorf("list leads: %w", err)
	}

	leads := make([]Lead, 0, len(records.Leads))
	for _, record := range records.Leads {
		leads = append(leads, mapLead(record))
	}

	totalPages := 0
	if records.TotalItems > 0 {
		totalPages = (records.TotalItems + pageSize - 1) / pageSize
	}

	return ListResult{
		Leads:      leads,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: records.TotalItems,
		TotalPages: totalPages,
	}, nil
}

func (s *service) Delete(ctx context.Context, tenantID, leadID uuid.UUID) error {
	if leadID == uuid.Nil {
		return ErrNotFound
	}

	record, err := s.repo.Get(ctx, leadID)
	if err != nil {
		return mapPersistenceError(err)
	}
	if record.TenantID != tenantID {
		return ErrForbidden
	}

	if err := s.repo.Delete(ctx, leadID); err != nil {
		return mapPersistenceError(err)
	}
	return nil
}

// resolveOwner returns the owning tenant and the capture flags governing the
// submission: the page's flags when a page was used, the tenant's otherwise.
func (s *service) resolveOwner(ctx context.Context, input SubmitInput) (tenants.Tenant, bool, bool, error) {
	slug := strings.TrimSpace(input.Slug)
	username := strings.TrimSpace(input.Username)

	var (
		owner tenants.Tenant
		page  capturepages.Page
		err   error
	)
	switch {
	case input.TenantID != uuid.Nil && slug != "":
		owner, page, err = s.resolver.ResolveByTenantAndSlug(ctx, input.TenantID, slug)
	case username != "":
		owner, err = s.resolver.ResolveByUsername(ctx, username)
		if err == nil {
			return owner, owner.CaptureName, owner.CapturePhone, nil
		}
	default:
		owner, page, err = s.resolver.ResolveBySlug(ctx, slug)
	}

	if err != nil {
		if errors.Is(err, tenants.ErrNotFound) {
			return tenants.Tenant{}, false, false, ErrTenantNotFound
		}
		return tenants.Tenant{}, false, false, fmt.Errorf("resolve client: %w", err)
	}
	return owner, page.CaptureName, page.CapturePhone, nil
}

func hasReference(input SubmitInput) bool {
	if strings.TrimSpace(input.Username) != "" {
		return true
	}
	return strings.TrimSpace(input.Slug) != ""
}

func newLeadEvent(owner tenants.Tenant, lead Lead) webhook.Event {
	return webhook.Event{
		Event: webhook.EventNewLead,
		Lead: webhook.LeadPayload{
			ID:        lead.ID.String(),
			Email:     lead.Email,
			Name:      lead.Name,
			Phone:     lead.Phone,
			CreatedAt: lead.CreatedAt,
		},
		Client: webhook.ClientPayload{ID: owner.ID.String(), Username: owner.Username},
	}
}

func optionalText(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func mapLead(record persistence.Lead) Lead {
	return Lead{
		ID:        record.LeadID,
		TenantID:  record.TenantID,
		Email:     record.Email,
		Name:      record.Name,
		Phone:     record.Phone,
		CreatedAt: record.CreatedAt,
	}
}

func mapPersistenceError(err error) error {
	if errors.Is(err, persistence.ErrLeadNotFound) {
		return ErrNotFound
	}
	return err
}

func (f FieldErrors) add(field, message string) {
	if f == nil {
		return
	}
	f[field] = append(f[field], message)
}
