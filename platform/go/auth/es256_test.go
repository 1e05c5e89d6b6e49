package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/leadcapture/platform/go/auth/devtoken"
)

const (
	testIssuer   = "urn:whopcom:exp-proxy"
	testAudience = "app_test"
)

func newTestKey(t *testing.T) (*ecdsa.PrivateKey, string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	return key, string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func newTestVerifier(t *testing.T, publicPEM string) VerifyFunc {
	t.Helper()

	verify, err := ES256Verifier(VerifierConfig{
		PublicKeyPEM: publicPEM,
		Issuer:       testIssuer,
		Audience:     testAudience,
		Leeway:       time.Second,
	})
	require.NoError(t, err)
	return verify
}

func signTestToken(t *testing.T, key *ecdsa.PrivateKey, p devtoken.Params, now time.Time) string {
	t.Helper()

	if p.Issuer == "" {
		p.Issuer = testIssuer
	}
	if p.Audience == "" {
		p.Audience = testAudience
	}
	token, err := devtoken.BuildSignedES256Token(p, key, now)
	require.NoError(t, err)
	return token
}

func TestES256VerifierAcceptsValidToken(t *testing.T) {
	t.Parallel()

	key, publicPEM := newTestKey(t)
	verify := newTestVerifier(t, publicPEM)

	token := signTestToken(t, key, devtoken.Params{UserID: "user_ok", Email: "ok@example.com"}, time.Now())

	claims, err := verify(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "user_ok", claims["sub"])
	require.Equal(t, "ok@example.com", claims["email"])
}

func TestES256VerifierAcceptsBareBase64Key(t *testing.T) {
	t.Parallel()

	key, publicPEM := newTestKey(t)
	body := strings.TrimSpace(publicPEM)
	body = strings.TrimPrefix(body, "-----BEGIN PUBLIC KEY-----")
	body = strings.TrimSuffix(body, "-----END PUBLIC KEY-----")
	body = strings.ReplaceAll(strings.TrimSpace(body), "\n", `\n`)

	verify := newTestVerifier(t, body)
	_, err := verify(context.Background(), signTestToken(t, key, devtoken.Params{UserID: "user_ok"}, time.Now()))
	require.NoError(t, err)
}

func TestES256VerifierRejections(t *testing.T) {
	t.Parallel()

	key, publicPEM := newTestKey(t)
	otherKey, _ := newTestKey(t)
	verify := newTestVerifier(t, publicPEM)
	now := time.Now()

	hs256, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user_hs", "iss": testIssuer, "aud": testAudience, "exp": now.Add(time.Hour).Unix(),
	}).SignedString([]byte("shared-secret"))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"sub": "user_noexp", "iss": testIssuer, "aud": testAudience,
	}).SignedString(key)
	require.NoError(t, err)

	testCases := []struct {
		name   string
		token  string
		reason string
	}{
		{name: "garbage", token: "not.a.jwt", reason: ReasonMalformed},
		{name: "wrong key", token: signTestToken(t, otherKey, devtoken.Params{UserID: "u"}, now), reason: ReasonInvalidSignature},
		{name: "wrong algorithm", token: hs256, reason: ReasonInvalidSignature},
		{name: "expired", token: signTestToken(t, key, devtoken.Params{UserID: "u", ExpiresIn: time.Minute}, now.Add(-time.Hour)), reason: ReasonExpired},
		{name: "issued in the future", token: signTestToken(t, key, devtoken.Params{UserID: "u"}, now.Add(time.Hour)), reason: ReasonNotYetValid},
		{name: "wrong issuer", token: signTestToken(t, key, devtoken.Params{UserID: "u", Issuer: "someone-else"}, now), reason: ReasonIssuerMismatch},
		{name: "wrong audience", token: signTestToken(t, key, devtoken.Params{UserID: "u", Audience: "app_other"}, now), reason: ReasonAudienceMismatch},
		{name: "missing expiry", token: noExpiry, reason: ReasonInvalidToken},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := verify(context.Background(), tc.token)
			ue, ok := AsUnauthorized(err)
			require.True(t, ok, "expected UnauthorizedError, got %v", err)
			require.Equal(t, tc.reason, ue.Reason)
		})
	}
}

func TestES256VerifierConfigValidation(t *testing.T) {
	t.Parallel()

	_, publicPEM := newTestKey(t)

	_, err := ES256Verifier(VerifierConfig{PublicKeyPEM: publicPEM, Audience: testAudience})
	require.Error(t, err)

	_, err = ES256Verifier(VerifierConfig{PublicKeyPEM: publicPEM, Issuer: testIssuer})
	require.Error(t, err)

	_, err = ES256Verifier(VerifierConfig{PublicKeyPEM: "bm90LWEta2V5", Issuer: testIssuer, Audience: testAudience})
	require.Error(t, err)
}
