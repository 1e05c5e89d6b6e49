package devtoken

import (
	"crypto/ecdsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Params captures the claims of a provider user token for local and CI use.
// No environment variables are read so the builder stays deterministic for tooling.
type Params struct {
	UserID    string        // sub claim (required)
	Email     string        // email claim (optional)
	Name      string        // display name (optional)
	Issuer    string        // iss claim (required)
	Audience  string        // aud claim, the provider app id (required)
	ExpiresIn time.Duration // relative expiry; default 1h if zero
}

func (p Params) claims(now time.Time) (jwt.MapClaims, error) {
	if strings.TrimSpace(p.UserID) == "" {
		return nil, errors.New("userID is required")
	}
	if strings.TrimSpace(p.Issuer) == "" {
		return nil, errors.New("issuer is required")
	}
	if strings.TrimSpace(p.Audience) == "" {
		return nil, errors.New("audience is required")
	}

	if now.IsZero() {
		now = time.Now().UTC()
	}
	expiresIn := p.ExpiresIn
	if expiresIn == 0 {
		expiresIn = time.Hour
	}

	claims := jwt.MapClaims{
		"iss": p.Issuer,
		"aud": p.Audience,
		"sub": p.UserID,
		"iat": now.Unix(),
		"exp": now.Add(expiresIn).Unix(),
	}
	if p.Email != "" {
		claims["email"] = p.Email
	}
	if p.Name != "" {
		claims["name"] = p.Name
	}
	return claims, nil
}

// BuildUnsignedToken returns a JWT string with alg "none" and no signature.
// It is accepted only by the dev auth provider.
func BuildUnsignedToken(p Params, now time.Time) (string, error) {
	claims, err := p.claims(now)
	if err != nil {
		return "", err
	}

	headerSegment, err := encodeSegment(map[string]interface{}{"alg": "none", "typ": "JWT"})
	if err != nil {
		return "", err
	}
	payloadSegment, err := encodeSegment(claims)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s.%s", headerSegment, payloadSegment), nil
}

// BuildSignedES256Token signs the claims with key, producing a token the
// ES256 verifier accepts when configured with the matching public key.
func BuildSignedES256Token(p Params, key *ecdsa.PrivateKey, now time.Time) (string, error) {
	if key == nil {
		return "", errors.New("signing key is required")
	}
	claims, err := p.claims(now)
	if err != nil {
		return "", err
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func encodeSegment(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
