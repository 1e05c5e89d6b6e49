package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractJWTToken(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		headers map[string]string
		want    string
		wantOK  bool
	}{
		{name: "bearer", headers: map[string]string{"Authorization": "Bearer abc"}, want: "abc", wantOK: true},
		{name: "lowercase bearer", headers: map[string]string{"Authorization": "bearer abc"}, want: "abc", wantOK: true},
		{name: "user token header", headers: map[string]string{HeaderUserToken: "xyz"}, want: "xyz", wantOK: true},
		{
			name:    "bearer preferred",
			headers: map[string]string{"Authorization": "Bearer abc", HeaderUserToken: "xyz"},
			want:    "abc",
			wantOK:  true,
		},
		{
			name:    "basic falls back to header",
			headers: map[string]string{"Authorization": "Basic Zm9vOmJhcg==", HeaderUserToken: "xyz"},
			want:    "xyz",
			wantOK:  true,
		},
		{name: "empty bearer", headers: map[string]string{"Authorization": "Bearer   "}},
		{name: "none"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/dashboard/me", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}

			got, ok := ExtractJWTToken(req)
			require.Equal(t, tc.wantOK, ok)
			require.Equal(t, tc.want, got)
		})
	}
}
