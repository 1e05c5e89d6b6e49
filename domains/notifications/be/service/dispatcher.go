package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	tenants "github.com/zenGate-Global/leadcapture/domains/tenants/be/service"
	"github.com/zenGate-Global/leadcapture/platform/go/metrics"
	"github.com/zenGate-Global/leadcapture/platform/go/queue"
	"github.com/zenGate-Global/leadcapture/platform/go/requesttrace"
	"github.com/zenGate-Global/leadcapture/platform/go/webhook"
)

// Errors returned by the synchronous test operations.
var (
	ErrNoWebhookConfigured    = errors.New("no webhook url configured")
	ErrNotificationsDisabled  = errors.New("new lead notifications are disabled")
	ErrOwnerStreamUnavailable = errors.New("owner notification stream is not configured")
	ErrOwnerPublishFailed     = errors.New("owner notification publish failed")
)

// Owner notification kinds.
const (
	KindNewLead = "new_lead"
	KindTest    = "test_notification"
)

// Target is the tenant a notification is addressed to.
type Target struct {
	TenantID         uuid.UUID
	Username         string
	AuthID           string
	Email            *string
	WebhookURL       *string
	NotifyOnNewLeads bool
}

// TargetFor builds the notification target for a tenant.
func TargetFor(t tenants.Tenant) Target {
	return Target{
		TenantID:         t.ID,
		Username:         t.Username,
		AuthID:           t.AuthID,
		Email:            t.Email,
		WebhookURL:       t.WebhookURL,
		NotifyOnNewLeads: t.NotifyOnNewLeads,
	}
}

func (t Target) webhookURL() string {
	if t.WebhookURL == nil {
		return ""
	}
	return *t.WebhookURL
}

// WebhookSender delivers one envelope to a URL.
type WebhookSender interface {
	Send(ctx context.Context, target string, event webhook.Event) error
}

// OwnerPublisher pushes a notice onto the owner notification stream.
type OwnerPublisher interface {
	Publish(ctx context.Context, msg queue.OwnerNotification) error
}

// Options configures a Dispatcher.
type Options struct {
	// Timeout bounds each background delivery. Defaults to webhook.DefaultTimeout.
	Timeout   time.Duration
	Publisher OwnerPublisher
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

// Dispatcher fans new-lead events out to tenant webhooks and the owner
// notification stream. Background deliveries never block the caller and their
// failures are logged and dropped.
type Dispatcher struct {
	sender    WebhookSender
	publisher OwnerPublisher
	logger    *zap.Logger
	metrics   *metrics.Metrics
	timeout   time.Duration
	now       func() time.Time

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(sender WebhookSender, logger *zap.Logger, opts Options) *Dispatcher {
	if sender == nil {
		panic("webhook sender is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = webhook.DefaultTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Dispatcher{
		sender:    sender,
		publisher: opts.Publisher,
		logger:    logger,
		metrics:   opts.Metrics,
		timeout:   opts.Timeout,
		now:       opts.Now,
	}
}

// OwnerStreamEnabled reports whether owner notifications are published.
func (d *Dispatcher) OwnerStreamEnabled() bool {
	return d.publisher != nil
}

// NotifyNewLead schedules delivery of event for target and returns immediately.
// The delivery runs on a context detached from ctx's cancellation.
func (d *Dispatcher) NotifyNewLead(ctx context.Context, target Target, event webhook.Event) {
	hookURL := target.webhookURL()
	notifyOwner := target.NotifyOnNewLeads && d.publisher != nil
	if hookURL == "" && !notifyOwner {
		return
	}

	if !d.begin() {
		d.logger.Warn("dispatcher closed, dropping new lead notification",
			zap.String("tenant_id", target.TenantID.String()),
			zap.String("lead_id", event.Lead.ID),
		)
		return
	}

	requestID := requesttrace.FromContextOrVisitor(ctx).RequestID
	detached := requesttrace.IntoContext(context.WithoutCancel(ctx), requesttrace.System(requestID))
	go func() {
		defer d.inflight.Done()

		if hookURL != "" {
			sendCtx, cancel := context.WithTimeout(detached, d.timeout)
			if err := d.deliver(sendCtx, hookURL, event); err != nil {
				d.logger.Warn("webhook delivery failed",
					zap.String("request_id", requestID),
					zap.String("tenant_id", target.TenantID.String()),
					zap.String("lead_id", event.Lead.ID),
					zap.Error(err),
				)
			}
			cancel()
		}

		if notifyOwner {
			pubCtx, cancel := context.WithTimeout(detached, d.timeout)
			if err := d.publishOwner(pubCtx, KindNewLead, target, event); err != nil {
				d.logger.Warn("owner notification failed",
					zap.String("request_id", requestID),
					zap.String("tenant_id", target.TenantID.String()),
					zap.String("lead_id", event.Lead.ID),
					zap.Error(err),
				)
			}
			cancel()
		}
	}()
}

// TestWebhook sends a placeholder event synchronously and reports the outcome.
func (d *Dispatcher) TestWebhook(ctx context.Context, target Target) error {
	hookURL := target.webhookURL()
	if hookURL == "" {
		return ErrNoWebhookConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	event := webhook.TestEvent(target.TenantID.String(), target.Username, d.now())
	return d.deliver(ctx, hookURL, event)
}

// TestOwnerNotification publishes a test notice synchronously.
func (d *Dispatcher) TestOwnerNotification(ctx context.Context, target Target) error {
	if !target.NotifyOnNewLeads {
		return ErrNotificationsDisabled
	}
	if d.publisher == nil {
		return ErrOwnerStreamUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	event := webhook.TestEvent(target.TenantID.String(), target.Username, d.now())
	return d.publishOwner(ctx, KindTest, target, event)
}

// Close stops accepting new deliveries and waits for in-flight ones until ctx ends.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for in-flight notifications: %w", ctx.Err())
	}
}

func (d *Dispatcher) begin() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	d.inflight.Add(1)
	return true
}

func (d *Dispatcher) deliver(ctx context.Context, hookURL string, event webhook.Event) error {
	start := time.Now()
	err := d.sender.Send(ctx, hookURL, event)

	result := "success"
	var statusErr *webhook.StatusError
	switch {
	case err == nil:
	case errors.As(err, &statusErr):
		result = "rejected"
	default:
		result = "failure"
	}
	d.metrics.WebhookDelivery(event.Event, result, time.Since(start))
	return err
}

func (d *Dispatcher) publishOwner(ctx context.Context, kind string, target Target, event webhook.Event) error {
	payload, err := event.Marshal()
	if err != nil {
		d.metrics.OwnerNotification("failure")
		return err
	}

	err = d.publisher.Publish(ctx, queue.OwnerNotification{
		Kind:      kind,
		TenantID:  target.TenantID.String(),
		Username:  target.Username,
		AuthID:    target.AuthID,
		Email:     target.Email,
		Payload:   json.RawMessage(payload),
		CreatedAt: d.now().UTC(),
	})
	if err != nil {
		d.metrics.OwnerNotification("failure")
		return fmt.Errorf("%w: %w", ErrOwnerPublishFailed, err)
	}
	d.metrics.OwnerNotification("success")
	return nil
}
