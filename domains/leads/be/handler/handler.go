package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"github.com/zenGate-Global/leadcapture/domains/leads/be/service"
	platformlogging "github.com/zenGate-Global/leadcapture/platform/go/logging"
	"github.com/zenGate-Global/leadcapture/platform/go/problem"
	"github.com/zenGate-Global/leadcapture/platform/go/requesttrace"
	"github.com/zenGate-Global/leadcapture/platform/go/tenant"
)

type operation string

const (
	submitOperation operation = "leadsSubmit"
	listOperation   operation = "leadsList"
	deleteOperation operation = "leadsDelete"
)

// Handler wires the leads service to HTTP.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("leads service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// PublicRoutes registers the visitor submission route.
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Post("/leads", h.Submit)
}

// DashboardRoutes registers the authenticated lead management routes.
func (h *Handler) DashboardRoutes(r chi.Router) {
	r.Get("/leads", h.List)
	r.Delete("/leads/{leadId}", h.Delete)
}

// SubmitRequest is the body of POST /leads.
type SubmitRequest struct {
	Email    string     `json:"email"`
	Username *string    `json:"username,omitempty"`
	TenantID *uuid.UUID `json:"tenantId,omitempty"`
	Slug     *string    `json:"slug,omitempty"`
	Name     *string    `json:"name,omitempty"`
	Phone    *string    `json:"phone,omitempty"`
}

// SubmitResponse reports a stored or duplicate submission.
type SubmitResponse struct {
	Success    bool      `json:"success"`
	Duplicate  bool      `json:"duplicate"`
	Lead       *LeadView `json:"lead,omitempty"`
	RedirectTo string    `json:"redirectTo"`
}

// LeadView is the JSON form of a lead.
type LeadView struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name"`
	Phone     *string   `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
}

// LeadPage is one page of the dashboard lead list.
type LeadPage struct {
	Items      []LeadView `json:"items"`
	Page       int        `json:"page"`
	PageSize   int        `json:"pageSize"`
	TotalItems int        `json:"totalItems"`
	TotalPages int        `json:"totalPages"`
}

// Submit implements POST /leads: 201 for a new lead, 200 for a duplicate.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problem.Write(w, problem.New("Invalid request body", "request body must be a JSON object", problem.TypeValidation, http.StatusBadRequest, nil))
		return
	}

	result, err := h.svc.Submit(ctx, toSubmitInput(body))
	if err != nil {
		problem.Write(w, h.problemForError(ctx, err, submitOperation))
		return
	}

	if result.Duplicate {
		problem.WriteJSON(w, http.StatusOK, SubmitResponse{Success: true, Duplicate: true, RedirectTo: result.RedirectTo})
		return
	}

	view := toLeadView(*result.Lead)
	problem.WriteJSON(w, http.StatusCreated, SubmitResponse{Success: true, Lead: &view, RedirectTo: result.RedirectTo})
}

// List implements GET /dashboard/leads.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := tenant.FromContext(ctx)
	if !ok {
		problem.Write(w, problem.New("Unauthorized", "missing tenant identity", problem.TypeUnauthorized, http.StatusUnauthorized, nil))
		return
	}

	var opts service.ListOptions
	query := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "page", query, &opts.Page); err != nil {
		problem.Write(w, h.problemForError(ctx, invalidParam("page", err), listOperation))
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "pageSize", query, &opts.PageSize); err != nil {
		problem.Write(w, h.problemForError(ctx, invalidParam("pageSize", err), listOperation))
		return
	}

	result, err := h.svc.List(ctx, identity.TenantID, opts)
	if err != nil {
		problem.Write(w, h.problemForError(ctx, err, listOperation))
		return
	}

	items := make([]LeadView, 0, len(result.Leads))
	for _, lead := range result.Leads {
		items = append(items, toLeadView(lead))
	}

	problem.WriteJSON(w, http.StatusOK, LeadPage{
		Items:      items,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalItems: result.TotalItems,
		TotalPages: result.TotalPages,
	})
}

// Delete implements DELETE /dashboard/leads/{leadId}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := tenant.FromContext(ctx)
	if !ok {
		problem.Write(w, problem.New("Unauthorized", "missing tenant identity", problem.TypeUnauthorized, http.StatusUnauthorized, nil))
		return
	}

	var leadID uuid.UUID
	if err := runtime.BindStyledParameterWithOptions("simple", "leadId", chi.URLParam(r, "leadId"), &leadID, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	}); err != nil {
		problem.Write(w, h.problemForError(ctx, invalidParam("leadId", err), deleteOperation))
		return
	}

	if err := h.svc.Delete(ctx, identity.TenantID, leadID); err != nil {
		problem.Write(w, h.problemForError(ctx, err, deleteOperation))
		return
	}

	audit := requesttrace.FromContextOrVisitor(ctx)
	h.loggerFrom(ctx).Info("lead deleted",
		zap.String("lead_id", leadID.String()),
		zap.String("actor_kind", string(audit.ActorKind)),
	)
	w.WriteHeader(http.StatusNoContent)
}

func toSubmitInput(body SubmitRequest) service.SubmitInput {
	input := service.SubmitInput{
		Email: body.Email,
		Name:  body.Name,
		Phone: body.Phone,
	}
	if body.Username != nil {
		input.Username = *body.Username
	}
	if body.TenantID != nil {
		input.TenantID = *body.TenantID
	}
	if body.Slug != nil {
		input.Slug = *body.Slug
	}
	return input
}

func toLeadView(lead service.Lead) LeadView {
	return LeadView{
		ID:        lead.ID,
		Email:     lead.Email,
		Name:      lead.Name,
		Phone:     lead.Phone,
		CreatedAt: lead.CreatedAt,
	}
}

func invalidParam(name string, err error) error {
	return &service.ValidationError{Fields: service.FieldErrors{name: {err.Error()}}}
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
		logger.Error("leads operation failed", fieldsForLog...)
	case status == http.StatusNotFound:
		logger.Info("leads resource not found", fieldsForLog...)
	default:
		logger.Warn("leads request rejected", fieldsForLog...)
	}

	return problem.New(title, detail, problemType, status, fields)
}

func (h *Handler) classifyError(err error) (status int, title, detail, problemType string, fieldErrors service.FieldErrors) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, "Validation failed", "one or more fields are invalid", problem.TypeValidation, validationErr.Fields
	case errors.Is(err, service.ErrTenantNotFound):
		return http.StatusNotFound, "Resource not found", "client not found", problem.TypeNotFound, nil
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "Resource not found", "lead not found", problem.TypeNotFound, nil
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "Forbidden", "lead belongs to another client", problem.TypeForbidden, nil
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
