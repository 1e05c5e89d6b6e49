package devtoken

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestBuildUnsignedToken(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()

	token, err := BuildUnsignedToken(Params{
		UserID:    "user_123",
		Email:     "owner@example.com",
		Name:      "Dev Owner",
		Issuer:    "urn:whopcom:exp-proxy",
		Audience:  "app_local",
		ExpiresIn: time.Hour,
	}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	header, payload := splitToken(t, token)
	if got, want := header["alg"], "none"; got != want {
		t.Fatalf("header alg = %v, want %v", got, want)
	}

	if got, want := payload["iss"], "urn:whopcom:exp-proxy"; got != want {
		t.Errorf("iss = %v, want %v", got, want)
	}
	if got, want := payload["aud"], "app_local"; got != want {
		t.Errorf("aud = %v, want %v", got, want)
	}
	if got, want := payload["sub"], "user_123"; got != want {
		t.Errorf("sub = %v, want %v", got, want)
	}
	if got, want := payload["email"], "owner@example.com"; got != want {
		t.Errorf("email = %v, want %v", got, want)
	}
	if got, want := payload["exp"], float64(now.Add(time.Hour).Unix()); got != want {
		t.Errorf("exp = %v, want %v", got, want)
	}
}

func TestBuildUnsignedTokenRequiresSubject(t *testing.T) {
	if _, err := BuildUnsignedToken(Params{Issuer: "iss", Audience: "aud"}, time.Time{}); err == nil {
		t.Fatal("expected error for missing user id")
	}
}

func TestBuildSignedES256Token(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	token, err := BuildSignedES256Token(Params{
		UserID:   "user_456",
		Issuer:   "urn:whopcom:exp-proxy",
		Audience: "app_local",
	}, key, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"ES256"}))
	if err != nil {
		t.Fatalf("parse signed token: %v", err)
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub != "user_456" {
		t.Errorf("sub = %q (%v), want user_456", sub, err)
	}
}

func splitToken(t *testing.T, token string) (map[string]interface{}, map[string]interface{}) {
	t.Helper()
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		t.Fatalf("invalid token format: %q", token)
	}

	return decodeSegment(t, parts[0]), decodeSegment(t, parts[1])
}

func decodeSegment(t *testing.T, segment string) map[string]interface{} {
	t.Helper()
	raw, err := base64.RawURLEncoding.DecodeString(segment)
	if err != nil {
		t.Fatalf("decode segment: %v", err)
	}

	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal segment: %v", err)
	}
	return out
}
