package auth

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultLeeway = 30 * time.Second

// VerifierConfig holds the material needed to validate provider-issued tokens.
type VerifierConfig struct {
	// PublicKeyPEM is a PKIX EC public key, either PEM encoded or as a bare base64 body.
	PublicKeyPEM string
	Issuer       string
	Audience     string
	Leeway       time.Duration
}

// ParseECPublicKey accepts a PEM block or the base64 body of one. Escaped
// newlines from single-line environment values are restored first.
func ParseECPublicKey(raw string) (*ecdsa.PublicKey, error) {
	key := strings.TrimSpace(strings.ReplaceAll(raw, `\n`, "\n"))
	if key == "" {
		return nil, errors.New("public key is required")
	}
	if !strings.Contains(key, "-----BEGIN") {
		key = "-----BEGIN PUBLIC KEY-----\n" + key + "\n-----END PUBLIC KEY-----"
	}

	pub, err := jwt.ParseECPublicKeyFromPEM([]byte(key))
	if err != nil {
		return nil, fmt.Errorf("parse ec public key: %w", err)
	}
	return pub, nil
}

// ES256Verifier returns a VerifyFunc accepting only ES256 tokens signed by the
// configured key, issued by Issuer for Audience, and carrying an expiry.
func ES256Verifier(cfg VerifierConfig) (VerifyFunc, error) {
	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, errors.New("issuer is required")
	}
	if strings.TrimSpace(cfg.Audience) == "" {
		return nil, errors.New("audience is required")
	}

	pub, err := ParseECPublicKey(cfg.PublicKeyPEM)
	if err != nil {
		return nil, err
	}

	leeway := cfg.Leeway
	if leeway == 0 {
		leeway = defaultLeeway
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(leeway),
	)

	keyFunc := func(token *jwt.Token) (interface{}, error) {
		return pub, nil
	}

	return func(ctx context.Context, token string) (map[string]interface{}, error) {
		claims := jwt.MapClaims{}
		if _, err := parser.ParseWithClaims(token, claims, keyFunc); err != nil {
			return nil, newUnauthorized(reasonForJWTError(err), err.Error())
		}
		return claims, nil
	}, nil
}

func reasonForJWTError(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ReasonMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ReasonInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return ReasonNotYetValid
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ReasonIssuerMismatch
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ReasonAudienceMismatch
	default:
		return ReasonInvalidToken
	}
}
