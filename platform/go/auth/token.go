package auth

import (
	"net/http"
	"strings"
)

// HeaderUserToken carries the identity provider token when the dashboard is
// embedded by the provider's proxy.
const HeaderUserToken = "x-whop-user-token"

// ExtractJWTToken returns the bearer token from the Authorization header, then
// falls back to the provider user token header.
func ExtractJWTToken(r *http.Request) (string, bool) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		const prefix = "Bearer "
		// Case-insensitive prefix match.
		if len(authHeader) >= len(prefix) && strings.EqualFold(authHeader[:len(prefix)], prefix) {
			if token := strings.TrimSpace(authHeader[len(prefix):]); token != "" {
				return token, true
			}
		}
	}

	if token := strings.TrimSpace(r.Header.Get(HeaderUserToken)); token != "" {
		return token, true
	}

	return "", false
}
