package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"github.com/zenGate-Global/leadcapture/domains/capture-pages/be/service"
	tenants "github.com/zenGate-Global/leadcapture/domains/tenants/be/service"
	platformlogging "github.com/zenGate-Global/leadcapture/platform/go/logging"
	"github.com/zenGate-Global/leadcapture/platform/go/problem"
	"github.com/zenGate-Global/leadcapture/platform/go/requesttrace"
	"github.com/zenGate-Global/leadcapture/platform/go/tenant"
)

type operation string

const (
	createOperation    operation = "capturePagesCreate"
	listOperation      operation = "capturePagesList"
	setActiveOperation operation = "capturePagesSetActive"
	deleteOperation    operation = "capturePagesDelete"
	resolveOperation   operation = "capturePagesResolve"
	viewOperation      operation = "capturePagesView"
)

// PageResolver finds the active page and owner behind a visitor URL.
type PageResolver interface {
	ResolveBySlug(ctx context.Context, slug string) (tenants.Tenant, service.Page, error)
	ResolveByTenantAndSlug(ctx context.Context, tenantID uuid.UUID, slug string) (tenants.Tenant, service.Page, error)
}

// Handler wires the capture page registry to HTTP.
type Handler struct {
	svc      service.Service
	resolver PageResolver
	logger   *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, resolver PageResolver, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("capture pages service is required")
	}
	if resolver == nil {
		panic("page resolver is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, resolver: resolver, logger: logger}
}

// DashboardRoutes registers the page builder routes.
func (h *Handler) DashboardRoutes(r chi.Router) {
	r.Get("/capture-pages", h.List)
	r.Post("/capture-pages", h.Create)
	r.Patch("/capture-pages/{pageId}", h.SetActive)
	r.Delete("/capture-pages/{pageId}", h.Delete)
}

// APIRoutes registers the JSON lookups used by the page renderer.
func (h *Handler) APIRoutes(r chi.Router) {
	r.Get("/capture-pages/resolve/{slug}", h.Resolve)
	r.Get("/capture-pages/{tenantId}/{slug}", h.View)
}

// PublicRoutes registers the visitor-facing /c routes.
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Get("/c/{slug}", h.RedirectBySlug)
	r.Get("/c/{tenantId}/{slug}", h.View)
}

// CapturePage is the dashboard JSON form of a page.
type CapturePage struct {
	ID                 uuid.UUID `json:"id"`
	TenantID           uuid.UUID `json:"tenantId"`
	Name               string    `json:"name"`
	Slug               string    `json:"slug"`
	Headline           string    `json:"headline"`
	Subheadline        *string   `json:"subheadline"`
	BackgroundType     string    `json:"backgroundType"`
	BackgroundColor    *string   `json:"backgroundColor"`
	BackgroundGradient *string   `json:"backgroundGradient"`
	BackgroundImage    *string   `json:"backgroundImage"`
	TextColor          *string   `json:"textColor"`
	ButtonColor        *string   `json:"buttonColor"`
	ButtonTextColor    *string   `json:"buttonTextColor"`
	FontFamily         *string   `json:"fontFamily"`
	CaptureName        bool      `json:"captureName"`
	CapturePhone       bool      `json:"capturePhone"`
	IsActive           bool      `json:"isActive"`
	PublicPath         string    `json:"publicPath"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// PageView feeds the renderer of a public capture page.
type PageView struct {
	CapturePage
	Username string `json:"username"`
}

// ResolvedPage locates a page by slug.
type ResolvedPage struct {
	TenantID uuid.UUID `json:"tenantId"`
	Slug     string    `json:"slug"`
}

// CreateRequest is the body of POST /dashboard/capture-pages.
type CreateRequest struct {
	Name               string  `json:"name"`
	Slug               string  `json:"slug"`
	Headline           string  `json:"headline"`
	Subheadline        *string `json:"subheadline,omitempty"`
	BackgroundType     string  `json:"backgroundType,omitempty"`
	BackgroundColor    *string `json:"backgroundColor,omitempty"`
	BackgroundGradient *string `json:"backgroundGradient,omitempty"`
	BackgroundImage    *string `json:"backgroundImage,omitempty"`
	TextColor          *string `json:"textColor,omitempty"`
	ButtonColor        *string `json:"buttonColor,omitempty"`
	ButtonTextColor    *string `json:"buttonTextColor,omitempty"`
	FontFamily         *string `json:"fontFamily,omitempty"`
	CaptureName        bool    `json:"captureName,omitempty"`
	CapturePhone       bool    `json:"capturePhone,omitempty"`
	IsActive           *bool   `json:"isActive,omitempty"`
}

type setActiveRequest struct {
	IsActive *bool `json:"isActive"`
}

// List implements GET /dashboard/capture-pages.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}

	pages, err := h.svc.List(ctx, identity.TenantID)
	if err != nil {
		problem.Write(w, h.problemForError(ctx, err, listOperation))
		return
	}

	items := make([]CapturePage, 0, len(pages))
	for _, page := range pages {
		items = append(items, toCapturePage(page))
	}
	problem.WriteJSON(w, http.StatusOK, items)
}

// Create implements POST /dashboard/capture-pages.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}

	var body CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problem.Write(w, problem.New("Invalid request body", "request body must be a JSON object", problem.TypeValidation, http.StatusBadRequest, nil))
		return
	}

	created, err := h.svc.Create(ctx, identity.TenantID, toCreateInput(body))
	if err != nil {
		problem.Write(w, h.problemForError(ctx, err, createOperation))
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/dashboard/capture-pages/%s", created.ID))
	problem.WriteJSON(w, http.StatusCreated, toCapturePage(created))
}

// SetActive implements PATCH /dashboard/capture-pages/{pageId}.
func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}

	pageID, err := bindUUID(r, "pageId")
	if err != nil {
		problem.Write(w, h.problemForError(ctx, err, setActiveOperation))
		return
	}

	var body setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.IsActive == nil {
		problem.Write(w, h.problemForError(ctx, &service.ValidationError{Fields: service.FieldErrors{"isActive": {"isActive is required"}}}, setActiveOperation))
		return
	}

	updated, err := h.svc.SetActive(ctx, identity.TenantID, pageID, *body.IsActive)
	if err != nil {
		problem.Write(w, h.problemForError(ctx, err, setActiveOperation))
		return
	}
	problem.WriteJSON(w, http.StatusOK, toCapturePage(updated))
}

// Delete implements DELETE /dashboard/capture-pages/{pageId}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}

	pageID, err := bindUUID(r, "pageId")
	if err != nil {
		problem.Write(w, h.problemForError(ctx, err, deleteOperation))
		return
	}

	if err := h.svc.Delete(ctx, identity.TenantID, pageID); err != nil {
		problem.Write(w, h.problemForError(ctx, err, deleteOperation))
		return
	}

	audit := requesttrace.FromContextOrVisitor(ctx)
	h.loggerFrom(ctx).Info("capture page deleted",
		zap.String("page_id", pageID.String()),
		zap.String("actor_kind", string(audit.ActorKind)),
	)
	w.WriteHeader(http.StatusNoContent)
}

// Resolve implements GET /capture-pages/resolve/{slug}.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, page, err := h.resolver.ResolveBySlug(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		problem.Write(w, h.problemForError(ctx, err, resolveOperation))
		return
	}
	problem.WriteJSON(w, http.StatusOK, ResolvedPage{TenantID: owner.ID, Slug: page.Slug})
}

// RedirectBySlug implements GET /c/{slug}: a 302 to the canonical page URL.
func (h *Handler) RedirectBySlug(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	_, page, err := h.resolver.ResolveBySlug(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		problem.Write(w, h.problemForError(ctx, err, resolveOperation))
		return
	}
	http.Redirect(w, r, page.PublicPath(), http.StatusFound)
}

// View implements GET /c/{tenantId}/{slug} and its /api/v1 twin.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, err := bindUUID(r, "tenantId")
	if err != nil {
		// A malformed tenant id cannot address any page.
		problem.Write(w, h.problemForError(ctx, tenants.ErrNotFound, viewOperation))
		return
	}

	owner, page, err := h.resolver.ResolveByTenantAndSlug(ctx, tenantID, chi.URLParam(r, "slug"))
	if err != nil {
		problem.Write(w, h.problemForError(ctx, err, viewOperation))
		return
	}
	problem.WriteJSON(w, http.StatusOK, PageView{CapturePage: toCapturePage(page), Username: owner.Username})
}

func (h *Handler) requireIdentity(w http.ResponseWriter, r *http.Request) (tenant.Identity, bool) {
	identity, ok := tenant.FromContext(r.Context())
	if !ok {
		problem.Write(w, problem.New("Unauthorized", "missing tenant identity", problem.TypeUnauthorized, http.StatusUnauthorized, nil))
	}
	return identity, ok
}

func bindUUID(r *http.Request, name string) (uuid.UUID, error) {
	var id uuid.UUID
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		return uuid.Nil, &service.ValidationError{Fields: service.FieldErrors{name: {fmt.Sprintf("invalid format for parameter %s", name)}}}
	}
	return id, nil
}

func toCreateInput(body CreateRequest) service.CreateInput {
	return service.CreateInput{
		Name:               body.Name,
		Slug:               body.Slug,
		Headline:           body.Headline,
		Subheadline:        body.Subheadline,
		BackgroundType:     body.BackgroundType,
		BackgroundColor:    body.BackgroundColor,
		BackgroundGradient: body.BackgroundGradient,
		BackgroundImage:    body.BackgroundImage,
		TextColor:          body.TextColor,
		ButtonColor:        body.ButtonColor,
		ButtonTextColor:    body.ButtonTextColor,
		FontFamily:         body.FontFamily,
		CaptureName:        body.CaptureName,
		CapturePhone:       body.CapturePhone,
		IsActive:           body.IsActive,
	}
}

func toCapturePage(page service.Page) CapturePage {
	return CapturePage{
		ID:                 page.ID,
		TenantID:           page.TenantID,
		Name:               page.Name,
		Slug:               page.Slug,
		Headline:           page.Headline,
		Subheadline:        page.Subheadline,
		BackgroundType:     page.BackgroundType,
		BackgroundColor:    page.BackgroundColor,
		BackgroundGradient: page.BackgroundGradient,
		BackgroundImage:    page.BackgroundImage,
		TextColor:          page.TextColor,
		ButtonColor:        page.ButtonColor,
		ButtonTextColor:    page.ButtonTextColor,
		FontFamily:         page.FontFamily,
		CaptureName:        page.CaptureName,
		CapturePhone:       page.CapturePhone,
		IsActive:           page.IsActive,
		PublicPath:         page.PublicPath(),
		CreatedAt:          page.CreatedAt,
		UpdatedAt:          page.UpdatedAt,
	}
}

func (h *Handler) problemForError(ctx context.Context, err error, op operation) problem.Details {
	status, title, detail, problemType, fields := h.classifyError(err)

	logger := h.loggerFrom(ctx)
	fieldsForLog := []zap.Field{
		zap.String("operation", string(op)),
		zap.Int("status", status),
		zap.Error(err),
	}

	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("capture pages operation failed", fieldsForLog...)
	case status == http.StatusNotFound:
		logger.Info("capture page not found", fieldsForLog...)
	default:
		logger.Warn("capture pages request rejected", fieldsForLog...)
	}

	return problem.New(title, detail, problemType, status, fields)
}

func (h *Handler) classifyError(err error) (status int, title, detail, problemType string, fieldErrors service.FieldErrors) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, "Validation failed", "one or more fields are invalid", problem.TypeValidation, validationErr.Fields
	case errors.Is(err, service.ErrNotFound), errors.Is(err, tenants.ErrNotFound):
		return http.StatusNotFound, "Resource not found", "capture page not found", problem.TypeNotFound, nil
	case errors.Is(err, service.ErrSlugTaken):
		return http.StatusConflict, "Conflict", service.ErrSlugTaken.Error(), problem.TypeConflict, nil
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "Forbidden", "capture page belongs to another client", problem.TypeForbidden, nil
	default:
		return http.StatusInternalServerError, "Internal server error", "an unexpected error occurred", problem.TypeInternal, nil
	}
}

func (h *Handler) loggerFrom(ctx context.Context) *zap.Logger {
	if logger, ok := platformlogging.FromContext(ctx); ok {
		return logger
	}
	return h.logger
}
