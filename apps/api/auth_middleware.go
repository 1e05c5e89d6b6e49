package main

import (
	"context"
	"strings"

	"go.uber.org/zap"

	platformauth "github.com/zenGate-Global/leadcapture/platform/go/auth"
	"github.com/zenGate-Global/leadcapture/platform/go/gcp"
	"github.com/zenGate-Global/leadcapture/platform/go/metrics"

	tenantsservice "github.com/zenGate-Global/leadcapture/domains/tenants/be/service"
)

// buildAuthGate constructs the dashboard auth gate for the configured provider.
// Verified subjects are bound to tenants, provisioning one on first login.
func buildAuthGate(ctx context.Context, cfg config, tenantService *tenantsservice.Service, m *metrics.Metrics, logger *zap.Logger) *platformauth.Gate {
	var verify platformauth.VerifyFunc
	switch cfg.AuthProvider {
	case "whop":
		var err error
		verify, err = platformauth.ES256Verifier(platformauth.VerifierConfig{
			PublicKeyPEM: cfg.WhopPublicKey,
			Issuer:       cfg.WhopIssuer,
			Audience:     cfg.WhopAppID,
		})
		if err != nil {
			logger.Fatal("init whop token verifier", zap.Error(err))
		}
	case "firebase":
		fbAuth, err := gcp.InitFirebaseAuth(ctx, gcp.FirebaseConfig{
			ProjectID:       cfg.FirebaseProjectID,
			CredentialsFile: cfg.FirebaseCredentialsFile,
		})
		if err != nil {
			logger.Fatal("init firebase auth", zap.Error(err))
		}
		verify = platformauth.FirebaseTokenVerifier(fbAuth)
	case "dev":
		if strings.EqualFold(cfg.Environment, "production") {
			logger.Fatal("dev auth provider is not allowed in production")
		}
		logger.Warn("using unsigned dev tokens; do not use in production")
		verify = platformauth.UnsignedTokenVerifier()
	default:
		logger.Fatal("unsupported auth provider", zap.String("provider", cfg.AuthProvider))
	}

	gate, err := platformauth.NewGate(verify, nil, tenantService, platformauth.GateOptions{
		Environment: cfg.Environment,
		DevBypass:   cfg.DevAuthBypass,
		DevAuthID:   cfg.DevAuthID,
		Metrics:     m,
	})
	if err != nil {
		logger.Fatal("init auth gate", zap.Error(err))
	}
	if gate.DevBypassEnabled() {
		logger.Warn("dev auth bypass enabled; token-less dashboard requests act as the dev user",
			zap.String("auth_id", cfg.DevAuthID),
		)
	}
	return gate
}
