package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/leadcapture/domains/tenants/be/service"
	platformlogging "github.com/zenGate-Global/leadcapture/platform/go/logging"
	"github.com/zenGate-Global/leadcapture/platform/go/problem"
	"github.com/zenGate-Global/leadcapture/platform/go/tenant"
)

type operation string

const (
	meOperation             operation = "dashboardMe"
	updateSettingsOperation operation = "dashboardUpdateSettings"
	updateWebhookOperation  operation = "dashboardUpdateWebhook"
	defaultPageOperation    operation = "publicDefaultPage"
	thankYouOperation       operation = "publicThankYou"
)

// TenantService is the subset of the tenants service the HTTP layer needs.
type TenantService interface {
	Get(ctx context.Context, id uuid.UUID) (service.Tenant, error)
	ResolveByUsername(ctx context.Context, username string) (service.Tenant, error)
	UpdateSettings(ctx context.Context, id uuid.UUID, input service.SettingsInput) (service.Tenant, error)
	UpdateWebhook(ctx context.Context, id uuid.UUID, rawURL string) (service.Tenant, error)
}

// Handler exposes the tenant profile, settings and default public page.
type Handler struct {
	svc    TenantService
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc TenantService, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("tenants service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// DashboardRoutes registers the authenticated tenant routes.
func (h *Handler) DashboardRoutes(r chi.Router) {
	r.Get("/me", h.Me)
	r.Patch("/settings", h.UpdateSettings)
	r.Put("/webhook", h.UpdateWebhook)
}

// PublicRoutes registers the visitor-facing default page routes.
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Get("/{username}", h.DefaultPage)
	r.Get("/{username}/thank-you", h.ThankYou)
}

// Profile is the dashboard view of the signed-in tenant.
type Profile struct {
	ID               uuid.UUID `json:"id"`
	Username         string    `json:"username"`
	Email            *string   `json:"email,omitempty"`
	WebhookURL       *string   `json:"webhookUrl"`
	CaptureName      bool      `json:"captureName"`
	CapturePhone     bool      `json:"capturePhone"`
	NotifyOnNewLeads bool      `json:"notifyOnNewLeads"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// DefaultPageView feeds the renderer of /{username}.
type DefaultPageView struct {
	TenantID     uuid.UUID `json:"tenantId"`
	Username     string    `json:"username"`
	CaptureName  bool      `json:"captureName"`
	CapturePhone bool      `json:"capturePhone"`
}

// ThankYouView feeds the renderer of /{username}/thank-you.
type ThankYouView struct {
	Username string `json:"username"`
}

type webhookRequest struct {
	WebhookURL *string `json:"webhookUrl"`
}

// Me implements GET /dashboard/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := tenant.FromContext(ctx)
	if !ok {
		problem.Write(w, problem.New("Unauthorized", "missing tenant identity", problem.TypeUnauthorized, http.StatusUnauthorized, nil))
		return
	}

	t, err := h.svc.Get(ctx, identity.TenantID)
	if err != nil {
		problem.Write(w, h.problemForError(ctx, err, meOperation))
		return
	}
	problem.WriteJSON(w, http.StatusOK, toProfile(t))
}

// UpdateSettings implements PATCH /dashboard/settings.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := tenant.FromContext(ctx)
	if !ok {
		problem.Write(w, problem.New("Unauthorized", "missing tenant identity", problem.TypeUnauthorized, http.StatusUnauthorized, nil))
		return
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problem.Write(w, problem.New("Invalid request body", "request body must be a JSON object", problem.TypeValidation, http.StatusBadRequest, nil))
		return
	}

	input, fieldErrors := toSettingsInput(body)
	if len(fieldErrors) > 0 {
		problem.Write(w, h.problemForError(ctx, &service.ValidationError{Fields: fieldErrors}, updateSettingsOperation))
		return
	}

	updated, err := h.svc.UpdateSettings(ctx, identity.TenantID, input)
	if err != nil {
		problem.Write(w, h.problemForError(ctx, err, updateSettingsOperation))
		return
	}
	problem.WriteJSON(w, http.StatusOK, toProfile(updated))
}

// UpdateWebhook implements PUT /dashboard/webhook. A null or blank URL clears it.
func (h *Handler) UpdateWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := tenant.FromContext(ctx)
	if !ok {
		problem.Write(w, problem.New("Unauthorized", "missing tenant identity", problem.TypeUnauthorized, http.StatusUnauthorized, nil))
		return
	}

	var body webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problem.Write(w, problem.New("Invalid request body", "request body must be a JSON object", problem.TypeValidation, http.StatusBadRequest, nil))
		return
	}

	raw := ""
	if body.WebhookURL != nil {
		raw = *body.WebhookURL
	}

	updated, err := h.svc.UpdateWebhook(ctx, identity.TenantID, raw)
	if err != nil {
		problem.Write(w, h.problemForError(ctx, err, updateWebhookOperation))
		return
	}
	problem.WriteJSON(w, http.StatusOK, webhookRequest{WebhookURL: updated.WebhookURL})
}

// DefaultPage implements GET /{username}.
func (h *Handler) DefaultPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	t, err := h.svc.ResolveByUsername(ctx, chi.URLParam(r, "username"))
	if err != nil {
		problem.Write(w, h.problemForError(ctx, err, defaultPageOperation))
		return
	}

	problem.WriteJSON(w, http.StatusOK, DefaultPageView{
		TenantID:     t.ID,
		Username:     t.Username,
		CaptureName:  t.CaptureName,
		CapturePhone: t.CapturePhone,
	})
}

// ThankYou implements GET /{username}/thank-you.
func (h *Handler) ThankYou(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	t, err := h.svc.ResolveByUsername(ctx, chi.URLParam(r, "username"))
	if err != nil {
		problem.Write(w, h.problemForError(ctx, err, thankYouOperation))
		return
	}
	problem.WriteJSON(w, http.StatusOK, ThankYouView{Username: t.Username})
}

// toSettingsInput keeps absent fields nil and coerces an explicit null on a
// boolean flag to false.
func toSettingsInput(body map[string]json.RawMessage) (service.SettingsInput, service.FieldErrors) {
	input := service.SettingsInput{}
	fieldErrors := service.FieldErrors{}

	if raw, ok := body["username"]; ok {
		var username *string
		if err := json.Unmarshal(raw, &username); err != nil {
			fieldErrors["username"] = append(fieldErrors["username"], "username must be a string")
		} else if username != nil {
			input.Username = username
		}
	}

	flags := map[string]**bool{
		"captureName":      &input.CaptureName,
		"capturePhone":     &input.CapturePhone,
		"notifyOnNewLeads": &input.NotifyOnNewLeads,
	}
	for field, dest := range flags {
		raw, ok := body[field]
		if !ok {
			continue
		}
		var value *bool
		if err := json.Unmarshal(raw, &value); err != nil {
			fieldErrors[field] = append(fieldErrors[field], field+" must be a boolean")
			continue
		}
		coerced := value != nil && *value
		*dest = &coerced
	}

	return input, fieldErrors
}

func toProfile(t service.Tenant) Profile {
	return Profile{
		ID:               t.ID,
		Username:         t.Username,
		Email:            t.Email,
		WebhookURL:       t.WebhookURL,
		CaptureName:      t.CaptureName,
		CapturePhone:     t.CapturePhone,
		NotifyOnNewLeads: t.NotifyOnNewLeads,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
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
		logger.Error("tenant operation failed", fieldsForLog...)
	case status == http.StatusNotFound:
		logger.Info("tenant not found", fieldsForLog...)
	default:
		logger.Warn("tenant request rejected", fieldsForLog...)
	}

	return problem.New(title, detail, problemType, status, fields)
}

func (h *Handler) classifyError(err error) (status int, title, detail, problemType string, fieldErrors service.FieldErrors) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, "Validation failed", "one or more fields are invalid", problem.TypeValidation, validationErr.Fields
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "Resource not found", "client not found", problem.TypeNotFound, nil
	case errors.Is(err, service.ErrUsernameTaken):
		return http.StatusConflict, "Conflict", service.ErrUsernameTaken.Error(), problem.TypeConflict, nil
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
