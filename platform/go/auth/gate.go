package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/zenGate-Global/leadcapture/platform/go/logging"
	"github.com/zenGate-Global/leadcapture/platform/go/metrics"
	"github.com/zenGate-Global/leadcapture/platform/go/problem"
	"github.com/zenGate-Global/leadcapture/platform/go/tenant"
)

// DefaultDevAuthID is the identity used when the dev bypass admits a request without a token.
const DefaultDevAuthID = "dev-test-user"

// ErrDevBypassNotAllowed is returned when the bypass is requested outside development or test.
var ErrDevBypassNotAllowed = errors.New("dev auth bypass is only allowed in development or test")

// IdentityResolver binds a verified external identity to a tenant, provisioning
// one on first login.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, authID, emailHint string) (tenant.Identity, error)
}

// GateOptions configures optional Gate behaviour.
type GateOptions struct {
	// Environment must be "development" or "test" for DevBypass to be accepted.
	Environment string
	DevBypass   bool
	DevAuthID   string
	DevEmail    string
	Metrics     *metrics.Metrics
}

// Gate turns a request token into a tenant identity.
type Gate struct {
	verify   VerifyFunc
	extract  ExtractFunc
	resolver IdentityResolver
	opts     GateOptions
}

// NewGate wires a verifier, claim extractor and resolver. A nil extractor falls
// back to DefaultCredentialExtractor.
func NewGate(verify VerifyFunc, extract ExtractFunc, resolver IdentityResolver, opts GateOptions) (*Gate, error) {
	if verify == nil {
		return nil, errors.New("verify func is required")
	}
	if resolver == nil {
		return nil, errors.New("identity resolver is required")
	}
	if extract == nil {
		extract = DefaultCredentialExtractor
	}

	if opts.DevBypass {
		switch strings.ToLower(strings.TrimSpace(opts.Environment)) {
		case "development", "test":
		default:
			return nil, ErrDevBypassNotAllowed
		}
		if opts.DevAuthID == "" {
			opts.DevAuthID = DefaultDevAuthID
		}
	}

	return &Gate{verify: verify, extract: extract, resolver: resolver, opts: opts}, nil
}

// DevBypassEnabled reports whether token-less requests are admitted.
func (g *Gate) DevBypassEnabled() bool {
	return g.opts.DevBypass
}

// Authenticate verifies the token and returns the bound tenant identity. An
// empty token fails with reason missing_token unless the dev bypass is on.
func (g *Gate) Authenticate(ctx context.Context, token string) (tenant.Identity, error) {
	identity, _, err := g.authenticate(ctx, token)
	return identity, err
}

func (g *Gate) authenticate(ctx context.Context, token string) (tenant.Identity, *UserCredentials, error) {
	creds, err := g.credentials(ctx, token)
	if err != nil {
		if ue, ok := AsUnauthorized(err); ok {
			g.opts.Metrics.AuthOutcome(ue.Reason)
		}
		return tenant.Identity{}, nil, err
	}

	identity, err := g.resolver.ResolveIdentity(ctx, creds.Id, creds.Email)
	if err != nil {
		g.opts.Metrics.AuthOutcome("resolve_error")
		return tenant.Identity{}, nil, fmt.Errorf("resolve identity: %w", err)
	}

	if creds.DevBypass {
		g.opts.Metrics.AuthOutcome("dev_bypass")
	} else {
		g.opts.Metrics.AuthOutcome("authenticated")
	}
	return identity, creds, nil
}

func (g *Gate) credentials(ctx context.Context, token string) (*UserCredentials, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		if !g.opts.DevBypass {
			return nil, newUnauthorized(ReasonMissingToken, "no bearer token or user token header")
		}
		return &UserCredentials{
			Id:        g.opts.DevAuthID,
			Email:     g.opts.DevEmail,
			DevBypass: true,
		}, nil
	}

	claims, err := g.verify(ctx, token)
	if err != nil {
		if _, ok := AsUnauthorized(err); ok {
			return nil, err
		}
		return nil, newUnauthorized(ReasonInvalidToken, err.Error())
	}

	creds, err := g.extract(claims)
	if err != nil {
		if _, ok := AsUnauthorized(err); ok {
			return nil, err
		}
		return nil, newUnauthorized(ReasonInvalidToken, err.Error())
	}
	return creds, nil
}

// RequireTenant authenticates every request and stores the credentials and
// tenant identity on the context. Preflight requests pass through untouched.
func RequireTenant(gate *Gate, fallback *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			logger := logging.FromRequest(r, fallback)
			token, _ := ExtractJWTToken(r)

			identity, creds, err := gate.authenticate(r.Context(), token)
			if err != nil {
				if ue, ok := AsUnauthorized(err); ok {
					logger.Info("request rejected by auth gate",
						zap.String("reason", ue.Reason),
						zap.String("detail", ue.Message),
					)
					w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Bearer error="invalid_token", error_description=%q`, ue.Reason))
					problem.Write(w, problem.New(
						"Unauthorized",
						"A valid access token is required.",
						problem.TypeUnauthorized,
						http.StatusUnauthorized,
						nil,
					).WithReason(ue.Reason))
					return
				}

				logger.Error("failed to resolve tenant for request", zap.Error(err))
				problem.Write(w, problem.New(
					"Internal Server Error",
					"An unexpected error occurred.",
					problem.TypeInternal,
					http.StatusInternalServerError,
					nil,
				))
				return
			}

			ctx := WithCredentials(r.Context(), creds)
			ctx = tenant.WithIdentity(ctx, identity)
			ctx = logging.WithLogger(ctx, logger.With(
				zap.String("tenant_id", identity.TenantID.String()),
				zap.String("username", identity.Username),
			))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
