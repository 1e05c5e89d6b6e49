package tenant

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	// MinUsernameLength and MaxUsernameLength bound tenant usernames.
	MinUsernameLength = 3
	MaxUsernameLength = 50

	derivedBaseLength = 24
)

// usernameNamespace seeds the name-based UUID used when an auth id has too few
// usable characters to form a username.
var usernameNamespace = uuid.MustParse("6f1d9a8e-3b0c-4c61-9a57-1f0f3e6c2b41")

// DeriveUsername maps an external auth id onto a username-safe base. The result
// is deterministic: the same auth id always yields the same base.
func DeriveUsername(authID string) string {
	var b strings.Builder
	lastHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(authID)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen && b.Len() > 0 {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
		if b.Len() >= derivedBaseLength {
			break
		}
	}

	base := strings.Trim(b.String(), "-_")
	if len(base) > derivedBaseLength {
		base = strings.Trim(base[:derivedBaseLength], "-_")
	}
	if len(base) < MinUsernameLength {
		base = "user-" + ShortID(uuid.NewSHA1(usernameNamespace, []byte(authID)))
	}
	return base
}

// UsernameCandidate returns the probe for the given attempt: the base itself
// first, then base-1, base-2 and so on, always within MaxUsernameLength.
func UsernameCandidate(base string, attempt int) string {
	if attempt <= 0 {
		return truncate(base, MaxUsernameLength)
	}
	suffix := "-" + strconv.Itoa(attempt)
	return truncate(base, MaxUsernameLength-len(suffix)) + suffix
}

// ShortID returns the first 8 hexadecimal characters of a UUID (without dashes).
func ShortID(id uuid.UUID) string {
	hex := strings.ReplaceAll(id.String(), "-", "")
	if len(hex) < 8 {
		return hex
	}
	return hex[:8]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// reservedUsernames collide with fixed root routes.
var reservedUsernames = map[string]struct{}{
	"api":     {},
	"c":       {},
	"docs":    {},
	"healthz": {},
	"metrics": {},
	"openapi": {},
	"readyz":  {},
}

// IsReservedUsername reports whether username would be shadowed by a fixed route.
func IsReservedUsername(username string) bool {
	_, ok := reservedUsernames[strings.ToLower(username)]
	return ok
}
