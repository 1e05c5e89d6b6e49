package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/leadcapture/domains/notifications/be/service"
	tenants "github.com/zenGate-Global/leadcapture/domains/tenants/be/service"
	platformlogging "github.com/zenGate-Global/leadcapture/platform/go/logging"
	"github.com/zenGate-Global/leadcapture/platform/go/problem"
	"github.com/zenGate-Global/leadcapture/platform/go/tenant"
	"github.com/zenGate-Global/leadcapture/platform/go/webhook"
)

type operation string

const (
	testWebhookOperation      operation = "dashboardTestWebhook"
	testNotificationOperation operation = "dashboardTestNotification"
)

// Tester runs synchronous notification checks.
type Tester interface {
	TestWebhook(ctx context.Context, target service.Target) error
	TestOwnerNotification(ctx context.Context, target service.Target) error
}

// TenantLookup loads the signed-in tenant.
type TenantLookup interface {
	Get(ctx context.Context, id uuid.UUID) (tenants.Tenant, error)
}

// Handler exposes the dashboard notification checks.
type Handler struct {
	tester  Tester
	tenants TenantLookup
	logger  *zap.Logger
}

// New constructs a Handler instance.
func New(tester Tester, lookup TenantLookup, logger *zap.Logger) *Handler {
	if tester == nil {
		panic("notification tester is required")
	}
	if lookup == nil {
		panic("tenant lookup is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{tester: tester, tenants: lookup, logger: logger}
}

// DashboardRoutes registers the notification routes under /dashboard.
func (h *Handler) DashboardRoutes(r chi.Router) {
	r.Post("/webhook/test", h.TestWebhook)
	r.Post("/notifications/test", h.TestNotification)
}

// TestResult is the body of a successful check.
type TestResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// TestWebhook implements POST /dashboard/webhook/test.
func (h *Handler) TestWebhook(w http.ResponseWriter, r *http.Request) {
	h.runCheck(w, r, testWebhookOperation, h.tester.TestWebhook, "Test webhook sent successfully")
}

// TestNotification implements POST /dashboard/notifications/test.
func (h *Handler) TestNotification(w http.ResponseWriter, r *http.Request) {
	h.runCheck(w, r, testNotificationOperation, h.tester.TestOwnerNotification, "Test notification queued")
}

func (h *Handler) runCheck(w http.ResponseWriter, r *http.Request, op operation, check func(context.Context, service.Target) error, message string) {
	ctx := r.Context()
	identity, ok := tenant.FromContext(ctx)
	if !ok {
		problem.Write(w, problem.New("Unauthorized", "missing tenant identity", problem.TypeUnauthorized, http.StatusUnauthorized, nil))
		return
	}

	t, err := h.tenants.Get(ctx, identity.TenantID)
	if err != nil {
		problem.Write(w, h.problemForError(ctx, err, op))
		return
	}

	if err := check(ctx, service.TargetFor(t)); err != nil {
		problem.Write(w, h.problemForError(ctx, err, op))
		return
	}
	problem.WriteJSON(w, http.StatusOK, TestResult{Success: true, Message: message})
}

func (h *Handler) problemForError(ctx context.Context, err error, op operation) problem.Details {
	status, title, detail, problemType := h.classifyError(err)

	logger := h.loggerFrom(ctx)
	fieldsForLog := []zap.Field{
		zap.String("operation", string(op)),
		zap.Int("status", status),
		zap.Error(err),
	}

	switch {
	case status == http.StatusBadGateway, status == http.StatusServiceUnavailable:
		logger.Warn("notification check failed", fieldsForLog...)
	case status >= http.StatusInternalServerError:
		logger.Error("notification operation failed", fieldsForLog...)
	case status == http.StatusNotFound:
		logger.Info("tenant not found", fieldsForLog...)
	default:
		logger.Warn("notification request rejected", fieldsForLog...)
	}

	return problem.New(title, detail, problemType, status, nil)
}

func (h *Handler) classifyError(err error) (status int, title, detail, problemType string) {
	var statusErr *webhook.StatusError
	switch {
	case errors.Is(err, service.ErrNoWebhookConfigured):
		return http.StatusBadRequest, "Webhook not configured", "set a webhook URL before testing it", problem.TypeValidation
	case errors.Is(err, service.ErrNotificationsDisabled):
		return http.StatusBadRequest, "Notifications disabled", "enable new lead notifications before testing them", problem.TypeValidation
	case errors.Is(err, service.ErrOwnerStreamUnavailable):
		return http.StatusServiceUnavailable, "Notifications unavailable", "owner notifications are not configured on this server", problem.TypeUpstream
	case errors.Is(err, tenants.ErrNotFound):
		return http.StatusNotFound, "Resource not found", "client not found", problem.TypeNotFound
	case errors.As(err, &statusErr):
		return http.StatusBadGateway, "Webhook test failed", statusErr.Error(), problem.TypeUpstream
	case errors.Is(err, webhook.ErrInvalidURL):
		return http.StatusBadRequest, "Webhook test failed", err.Error(), problem.TypeValidation
	case errors.Is(err, webhook.ErrDelivery), errors.Is(err, context.DeadlineExceeded):
		return http.StatusBadGateway, "Webhook test failed", "the webhook endpoint could not be reached", problem.TypeUpstream
	case errors.Is(err, service.ErrOwnerPublishFailed):
		return http.StatusBadGateway, "Notification test failed", "the notification stream rejected the message", problem.TypeUpstream
	default:
		return http.StatusInternalServerError, "Internal server error", "an unexpected error occurred", problem.TypeInternal
	}
}

func (h *Handler) loggerFrom(ctx context.Context) *zap.Logger {
	if logger, ok := platformlogging.FromContext(ctx); ok {
		return logger
	}
	return h.logger
}
