package requesttrace

import (
	"context"
	"errors"

	"github.com/google/uuid"

	platformauth "github.com/zenGate-Global/leadcapture/platform/go/auth"
	"github.com/zenGate-Global/leadcapture/platform/go/tenant"
)

type contextKey string

const (
	ctxAuditInfo contextKey = "LEADCAPTURE_REQUEST_TRACE"
)

// ActorKind represents who initiated a request.
type ActorKind string

const (
	ActorKindTenant    ActorKind = "tenant"
	ActorKindVisitor   ActorKind = "visitor"
	ActorKindDeveloper ActorKind = "developer"
	ActorKindSystem    ActorKind = "system"
)

// AuditInfo captures request-scoped metadata for traceability.
// AuthID and TenantID are set only for authenticated dashboard requests.
type AuditInfo struct {
	ActorKind ActorKind
	AuthID    *string
	TenantID  *uuid.UUID
	RequestID string
}

// IntoContext stores the AuditInfo in the provided context.
func IntoContext(ctx context.Context, audit AuditInfo) context.Context {
	return context.WithValue(ctx, ctxAuditInfo, audit)
}

// FromContext extracts the AuditInfo from context, returning false when not present.
func FromContext(ctx context.Context) (AuditInfo, bool) {
	if ctx == nil {
		return AuditInfo{}, false
	}
	v := ctx.Value(ctxAuditInfo)
	if v == nil {
		return AuditInfo{}, false
	}

	audit, ok := v.(AuditInfo)
	return audit, ok
}

// FromContextOrVisitor returns the AuditInfo stored on the context, or a visitor record when absent.
func FromContextOrVisitor(ctx context.Context) AuditInfo {
	if audit, ok := FromContext(ctx); ok {
		return audit
	}
	return Visitor("")
}

// FromIdentity builds an AuditInfo for a request the auth gate bound to a tenant.
// Requests admitted by the dev bypass are recorded as developer actors.
func FromIdentity(creds *platformauth.UserCredentials, identity tenant.Identity, requestID string) (AuditInfo, error) {
	if creds == nil {
		return AuditInfo{}, errors.New("credentials are required to build audit info")
	}
	if creds.Id == "" {
		return AuditInfo{}, errors.New("auth id is required to build audit info")
	}
	if identity.TenantID == uuid.Nil {
		return AuditInfo{}, errors.New("tenant id is required to build audit info")
	}

	kind := ActorKindTenant
	if creds.DevBypass {
		kind = ActorKindDeveloper
	}

	authID := creds.Id
	tenantID := identity.TenantID
	return AuditInfo{
		ActorKind: kind,
		AuthID:    &authID,
		TenantID:  &tenantID,
		RequestID: requestID,
	}, nil
}

// Visitor builds an AuditInfo for public capture traffic.
func Visitor(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindVisitor, RequestID: requestID}
}

// System builds an AuditInfo for CLI and background operations.
func System(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindSystem, RequestID: requestID}
}
