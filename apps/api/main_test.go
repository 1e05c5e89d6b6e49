package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	platformauth "github.com/zenGate-Global/leadcapture/platform/go/auth"
	"github.com/zenGate-Global/leadcapture/platform/go/problem"
)

func validatedRouter(t *testing.T, devBypass bool) (http.Handler, *bool) {
	t.Helper()

	reached := false
	ok := func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}

	r := chi.NewRouter()
	r.Use(mustNewSpecValidator(zaptest.NewLogger(t), devBypass))
	r.Post("/api/v1/leads", ok)
	r.Get("/api/v1/dashboard/me", ok)
	return r, &reached
}

func TestSpecValidatorAcceptsValidSubmission(t *testing.T) {
	t.Parallel()

	router, reached := validatedRouter(t, false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/leads", strings.NewReader(`{"email":"x@y.com","username":"acme"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, *reached)
}

func TestSpecValidatorRejectsMissingEmail(t *testing.T) {
	t.Parallel()

	router, reached := validatedRouter(t, false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/leads", strings.NewReader(`{"username":"acme"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.False(t, *reached)
	require.Equal(t, problem.ContentType, rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, problem.TypeValidation, body["type"])
}

func TestSpecValidatorDashboardToken(t *testing.T) {
	t.Parallel()

	router, reached := validatedRouter(t, false)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/me", nil))
	require.False(t, *reached)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, problem.ContentType, rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), platformauth.ReasonMissingToken)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, problem.TypeUnauthorized, body["type"])
	require.Equal(t, platformauth.ReasonMissingToken, body["reason"])

	router, reached = validatedRouter(t, false)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/me", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, *reached)

	router, reached = validatedRouter(t, true)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/me", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, *reached)
}

func TestDocsRoutes(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	registerDocsRoutes(r, zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/docs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "/openapi/leadcapture.json")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi/leadcapture.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.Contains(t, doc["paths"], "/api/v1/leads")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi/unknown.json", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
