package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/leadcapture/domains/capture-pages/be/repo"
	"github.com/zenGate-Global/leadcapture/platform/go/persistence"
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
	ErrNotFound  = errors.New("capture page not found")
	ErrSlugTaken = errors.New("slug is already taken")
	ErrForbidden = errors.New("capture page belongs to another tenant")
)

// Background types accepted for a page.
const (
	BackgroundGradient = "gradient"
	BackgroundSolid    = "solid"
	BackgroundImage    = "image"
)

// Page is the domain view of a capture page.
type Page struct {
	ID                 uuid.UUID
	TenantID           uuid.UUID
	Name               string
	Slug               string
	Headline           string
	Subheadline        *string
	BackgroundType     string
	BackgroundColor    *string
	BackgroundGradient *string
	BackgroundImage    *string
	TextColor          *string
	ButtonColor        *string
	ButtonTextColor    *string
	FontFamily         *string
	CaptureName        bool
	CapturePhone       bool
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// PublicPath is the visitor-facing location of the page.
func (p Page) PublicPath() string {
	return fmt.Sprintf("/c/%s/%s", p.TenantID, p.Slug)
}

// CreateInput carries a page definition from the builder.
type CreateInput struct {
	Name               string
	Slug               string
	Headline           string
	Subheadline        *string
	BackgroundType     string
	BackgroundColor    *string
	BackgroundGradient *string
	BackgroundImage    *string
	TextColor          *string
	ButtonColor        *string
	ButtonTextColor    *string
	FontFamily         *string
	CaptureName        bool
	CapturePhone       bool
	IsActive           *bool
}

// Service defines the business operations for the capture page registry.
type Service interface {
	Create(ctx context.Context, tenantID uuid.UUID, input CreateInput) (Page, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]Page, error)
	SetActive(ctx context.Context, tenantID, pageID uuid.UUID, active bool) (Page, error)
	Delete(ctx context.Context, tenantID, pageID uuid.UUID) error
	FindBySlug(ctx context.Context, slug string) (Page, error)
}

type service struct {
	repo repo.Repository
}

// New constructs a capture pages Service backed by the provided repository.
func New(r repo.Repository) Service {
	if r == nil {
		panic("capture page repository is required")
	}
	return &service{repo: r}
}

func (s *service) Create(ctx context.Context, tenantID uuid.UUID, input CreateInput) (Page, error) {
	if tenantID == uuid.Nil {
		return Page{}, ErrForbidden
	}

	params, err := buildCreateParams(tenantID, input)
	if err != nil {
		return Page{}, err
	}

	record, err := s.repo.Create(ctx, params)
	if err != nil {
		return Page{}, mapPersistenceError(err)
	}

	return mapPage(record), nil
}

func (s *service) List(ctx context.Context, tenantID uuid.UUID) ([]Page, error) {
	records, err := s.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	pages := make([]Page, 0, len(records))
	for _, record := range records {
		pages = append(pages, mapPage(record))
	}
	return pages, nil
}

func (s *service) SetActive(ctx context.Context, tenantID, pageID uuid.UUID, active bool) (Page, error) {
	if err := s.requireOwner(ctx, tenantID, pageID); err != nil {
		return Page{}, err
	}

	record, err := s.repo.SetActive(ctx, pageID, active)
	if err != nil {
		return Page{}, mapPersistenceError(err)
	}
	return mapPage(record), nil
}

func (s *service) Delete(ctx context.Context, tenantID, pageID uuid.UUID) error {
	if err := s.requireOwner(ctx, tenantID, pageID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, pageID); err != nil {
		return mapPersistenceError(err)
	}
	return nil
}

// FindBySlug returns the page registered under slug regardless of activation.
// Visitor-facing callers must check IsActive themselves.
func (s *service) FindBySlug(ctx context.Context, slug string) (Page, error) {
	normalized, err := persistence.NormalizeSlug(slug)
	if err != nil {
		return Page{}, ErrNotFound
	}

	record, err := s.repo.GetBySlug(ctx, normalized)
	if err != nil {
		return Page{}, mapPersistenceError(err)
	}
	return mapPage(record), nil
}

func (s *service) requireOwner(ctx context.Context, tenantID, pageID uuid.UUID) error {
	if pageID == uuid.Nil {
		return ErrNotFound
	}

	record, err := s.repo.Get(ctx, pageID)
	if err != nil {
		return mapPersistenceError(err)
	}
	if record.TenantID != tenantID {
		return ErrForbidden
	}
	return nil
}

func buildCreateParams(tenantID uuid.UUID, input CreateInput) (persistence.CreateCapturePageParams, error) {
	fieldErrors := FieldErrors{}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		fieldErrors.add("name", "name is required")
	}

	headline := strings.TrimSpace(input.Headline)
	if headline == "" {
		fieldErrors.add("headline", "headline is required")
	}

	slug, slugErr := persistence.NormalizeSlug(input.Slug)
	if slugErr != nil {
		fieldErrors.add("slug", slugErr.Error())
	}

	background := strings.ToLower(strings.TrimSpace(input.BackgroundType))
	switch background {
	case "":
		background = BackgroundGradient
	case BackgroundGradient, BackgroundSolid, BackgroundImage:
	default:
		fieldErrors.add("backgroundType", "backgroundType must be one of gradient, solid, image")
	}

	if len(fieldErrors) > 0 {
		return persistence.CreateCapturePageParams{}, &ValidationError{Fields: fieldErrors}
	}

	active := false
	if input.IsActive != nil {
		active = *input.IsActive
	}

	return persistence.CreateCapturePageParams{
		PageID:             uuid.New(),
		TenantID:           tenantID,
		Name:               name,
		Slug:               slug,
		Headline:           headline,
		Subheadline:        optionalText(input.Subheadline),
		BackgroundType:     background,
		BackgroundColor:    optionalText(input.BackgroundColor),
		BackgroundGradient: optionalText(input.BackgroundGradient),
		BackgroundImage:    optionalText(input.BackgroundImage),
		TextColor:          optionalText(input.TextColor),
		ButtonColor:        optionalText(input.ButtonColor),
		ButtonTextColor:    optionalText(input.ButtonTextColor),
		FontFamily:         optionalText(input.FontFamily),
		CaptureName:        input.CaptureName,
		CapturePhone:       input.CapturePhone,
		IsActive:           active,
	}, nil
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

func mapPage(record persistence.CapturePageRecord) Page {
	return Page{
		ID:                 record.PageID,
		TenantID:           record.TenantID,
		Name:               record.Name,
		Slug:               record.Slug,
		Headline:           record.Headline,
		Subheadline:        record.Subheadline,
		BackgroundType:     record.BackgroundType,
		BackgroundColor:    record.BackgroundColor,
		BackgroundGradient: record.BackgroundGradient,
		BackgroundImage:    record.BackgroundImage,
		TextColor:          record.TextColor,
		ButtonColor:        record.ButtonColor,
		ButtonTextColor:    record.ButtonTextColor,
		FontFamily:         record.FontFamily,
		CaptureName:        record.CaptureName,
		CapturePhone:       record.CapturePhone,
		IsActive:           record.IsActive,
		CreatedAt:          record.CreatedAt,
		UpdatedAt:          record.UpdatedAt,
	}
}

func mapPersistenceError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrCapturePageNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrSlugConflict):
		return ErrSlugTaken
	default:
		return err
	}
}

func (f FieldErrors) add(field, message string) {
	if f == nil {
		return
	}
	f[field] = append(f[field], message)
}
