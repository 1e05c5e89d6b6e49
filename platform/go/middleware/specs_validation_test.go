package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/stretchr/testify/require"
)

func authInput(r *http.Request, scheme string) *openapi3filter.AuthenticationInput {
	return &openapi3filter.AuthenticationInput{
		RequestValidationInput: &openapi3filter.RequestValidationInput{Request: r},
		SecuritySchemeName:     scheme,
	}
}

func TestAuthenticationFunc(t *testing.T) {
	t.Parallel()

	strict := AuthenticationFunc(false)
	ctx := context.Background()

	bare := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/me", nil)
	require.Error(t, strict(ctx, authInput(bare, "bearerAuth")))
	require.NoError(t, strict(ctx, authInput(bare, "other")))
	require.NoError(t, AuthenticationFunc(true)(ctx, authInput(bare, "bearerAuth")))

	bearer := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/me", nil)
	bearer.Header.Set("Authorization", "Bearer token")
	require.NoError(t, strict(ctx, authInput(bearer, "bearerAuth")))

	userToken := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/me", nil)
	userToken.Header.Set("x-whop-user-token", "token")
	require.NoError(t, strict(ctx, authInput(userToken, "bearerAuth")))
}
