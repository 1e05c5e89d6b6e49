package tenant

import (
	"context"

	"github.com/google/uuid"
)

// Identity is the tenant bound to an authenticated request. The auth gate
// attaches it once the external identity has been resolved or provisioned.
type Identity struct {
	TenantID uuid.UUID
	AuthID   string
	Username string
}

type ctxKey string

const identityKey ctxKey = "LEADCAPTURE_TENANT_IDENTITY"

// WithIdentity returns a derived context carrying the tenant Identity.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// FromContext extracts the tenant Identity and a boolean indicating presence.
func FromContext(ctx context.Context) (Identity, bool) {
	v := ctx.Value(identityKey)
	if v == nil {
		return Identity{}, false
	}

	identity, ok := v.(Identity)
	return identity, ok
}
