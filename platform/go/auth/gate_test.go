package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zenGate-Global/leadcapture/platform/go/auth/devtoken"
	"github.com/zenGate-Global/leadcapture/platform/go/tenant"
)

type resolverMock struct {
	resolveFn func(ctx context.Context, authID, emailHint string) (tenant.Identity, error)
}

func (m *resolverMock) ResolveIdentity(ctx context.Context, authID, emailHint string) (tenant.Identity, error) {
	if m.resolveFn == nil {
		panic("resolveFn not set")
	}
	return m.resolveFn(ctx, authID, emailHint)
}

func echoResolver(tenantID uuid.UUID) *resolverMock {
	return &resolverMock{
		resolveFn: func(_ context.Context, authID, _ string) (tenant.Identity, error) {
			return tenant.Identity{TenantID: tenantID, AuthID: authID, Username: "owner"}, nil
		},
	}
}

func TestNewGateRefusesDevBypassOutsideDevelopment(t *testing.T) {
	t.Parallel()

	verify := UnsignedTokenVerifier()
	resolver := echoResolver(uuid.New())

	for _, env := range []string{"", "production", "staging"} {
		_, err := NewGate(verify, nil, resolver, GateOptions{Environment: env, DevBypass: true})
		require.ErrorIs(t, err, ErrDevBypassNotAllowed, env)
	}

	for _, env := range []string{"development", "test", "Development"} {
		gate, err := NewGate(verify, nil, resolver, GateOptions{Environment: env, DevBypass: true})
		require.NoError(t, err, env)
		require.True(t, gate.DevBypassEnabled())
	}
}

func TestGateAuthenticate(t *testing.T) {
	t.Parallel()

	key, publicPEM := newTestKey(t)
	tenantID := uuid.New()

	gate, err := NewGate(newTestVerifier(t, publicPEM), nil, echoResolver(tenantID), GateOptions{Environment: "production"})
	require.NoError(t, err)

	t.Run("valid token resolves tenant", func(t *testing.T) {
		token := signTestToken(t, key, devtoken.Params{UserID: "user_abc"}, time.Now())
		identity, err := gate.Authenticate(context.Background(), token)
		require.NoError(t, err)
		require.Equal(t, tenantID, identity.TenantID)
		require.Equal(t, "user_abc", identity.AuthID)
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := gate.Authenticate(context.Background(), "")
		ue, ok := AsUnauthorized(err)
		require.True(t, ok)
		require.Equal(t, ReasonMissingToken, ue.Reason)
	})

	t.Run("issuer mismatch never reaches the resolver", func(t *testing.T) {
		untouched, err := NewGate(newTestVerifier(t, publicPEM), nil, &resolverMock{}, GateOptions{Environment: "production"})
		require.NoError(t, err)

		token := signTestToken(t, key, devtoken.Params{UserID: "user_abc", Issuer: "https://evil.example"}, time.Now())
		_, err = untouched.Authenticate(context.Background(), token)
		ue, ok := AsUnauthorized(err)
		require.True(t, ok)
		require.Equal(t, ReasonIssuerMismatch, ue.Reason)
	})

	t.Run("expired token", func(t *testing.T) {
		token := signTestToken(t, key, devtoken.Params{UserID: "user_abc", ExpiresIn: time.Minute}, time.Now().Add(-time.Hour))
		_, err := gate.Authenticate(context.Background(), token)
		ue, ok := AsUnauthorized(err)
		require.True(t, ok)
		require.Equal(t, ReasonExpired, ue.Reason)
	})
}

func TestGateDevBypassUsesConfiguredIdentity(t *testing.T) {
	t.Parallel()

	var gotAuthID, gotEmail string
	resolver := &resolverMock{
		resolveFn: func(_ context.Context, authID, emailHint string) (tenant.Identity, error) {
			gotAuthID, gotEmail = authID, emailHint
			return tenant.Identity{TenantID: uuid.New(), AuthID: authID}, nil
		},
	}

	gate, err := NewGate(UnsignedTokenVerifier(), nil, resolver, GateOptions{
		Environment: "development",
		DevBypass:   true,
		DevEmail:    "test@example.com",
	})
	require.NoError(t, err)

	identity, err := gate.Authenticate(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, DefaultDevAuthID, identity.AuthID)
	require.Equal(t, DefaultDevAuthID, gotAuthID)
	require.Equal(t, "test@example.com", gotEmail)
}

func TestRequireTenant(t *testing.T) {
	t.Parallel()

	key, publicPEM := newTestKey(t)
	tenantID := uuid.New()
	logger := zaptest.NewLogger(t)

	gate, err := NewGate(newTestVerifier(t, publicPEM), nil, echoResolver(tenantID), GateOptions{})
	require.NoError(t, err)

	var seen tenant.Identity
	handler := RequireTenant(gate, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := tenant.FromContext(r.Context())
		require.True(t, ok)
		creds, ok := UserFromContext(r.Context())
		require.True(t, ok)
		require.Equal(t, identity.AuthID, creds.Id)
		seen = identity
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("authenticated via user token header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/me", nil)
		req.Header.Set(HeaderUserToken, signTestToken(t, key, devtoken.Params{UserID: "user_hdr"}, time.Now()))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, tenantID, seen.TenantID)
	})

	t.Run("rejection carries reason", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/me", nil)
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, key, devtoken.Params{UserID: "u", Audience: "app_other"}, time.Now()))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, ReasonAudienceMismatch, body["reason"])
		require.EqualValues(t, http.StatusUnauthorized, body["status"])
	})

	t.Run("preflight passes through", func(t *testing.T) {
		passthrough := RequireTenant(gate, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/dashboard/me", nil)
		rec := httptest.NewRecorder()

		passthrough.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRequireTenantResolverFailureIsInternal(t *testing.T) {
	t.Parallel()

	resolver := &resolverMock{
		resolveFn: func(context.Context, string, string) (tenant.Identity, error) {
			return tenant.Identity{}, errors.New("db down")
		},
	}
	gate, err := NewGate(UnsignedTokenVerifier(), nil, resolver, GateOptions{Environment: "test", DevBypass: true})
	require.NoError(t, err)

	handler := RequireTenant(gate, zaptest.NewLogger(t))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/me", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
