package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zenGate-Global/leadcapture/domains/leads/be/service"
	"github.com/zenGate-Global/leadcapture/platform/go/tenant"
)

type mockService struct {
	submitFn func(ctx context.Context, input service.SubmitInput) (service.SubmitResult, error)
	listFn   func(ctx context.Context, tenantID uuid.UUID, opts service.ListOptions) (service.ListResult, error)
	deleteFn func(ctx context.Context, tenantID, leadID uuid.UUID) error
}

func (m *mockService) Submit(ctx context.Context, input service.SubmitInput) (service.SubmitResult, error) {
	if m.submitFn == nil {
		panic("submitFn not configured")
	}
	return m.submitFn(ctx, input)
}

func (m *mockService) List(ctx context.Context, tenantID uuid.UUID, opts service.ListOptions) (service.ListResult, error) {
	if m.listFn == nil {
		panic("listFn not configured")
	}
	return m.listFn(ctx, tenantID, opts)
}

func (m *mockService) Delete(ctx context.Context, tenantID, leadID uuid.UUID) error {
	if m.deleteFn == nil {
		panic("deleteFn not configured")
	}
	return m.deleteFn(ctx, tenantID, leadID)
}

func newRouter(h *Handler, identity *tenant.Identity) http.Handler {
	r := chi.NewRouter()
	h.PublicRoutes(r)
	r.Route("/dashboard", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				if identity != nil {
					req = req.WithContext(tenant.WithIdentity(req.Context(), *identity))
				}
				next.ServeHTTP(w, req)
			})
		})
		h.DashboardRoutes(r)
	})
	return r
}

func TestSubmitCreated(t *testing.T) {
	t.Parallel()

	leadID := uuid.New()
	tenantID := uuid.New()
	svc := &mockService{
		submitFn: func(_ context.Context, input service.SubmitInput) (service.SubmitResult, error) {
			require.Equal(t, tenantID, input.TenantID)
			require.Equal(t, "launch", input.Slug)
			require.Empty(t, input.Username)
			return service.SubmitResult{
				Lead:       &service.Lead{ID: leadID, Email: "x@y.com", CreatedAt: time.Now().UTC()},
				RedirectTo: "/acme/thank-you",
			}, nil
		},
	}
	h := New(svc, zaptest.NewLogger(t))

	body := `{"email":"x@y.com","tenantId":"` + tenantID.String() + `","slug":"launch"}`
	rec := httptest.NewRecorder()
	newRouter(h, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/leads", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.False(t, resp.Duplicate)
	require.Equal(t, leadID, resp.Lead.ID)
	require.Equal(t, "/acme/thank-you", resp.RedirectTo)
}

func TestSubmitDuplicateIsOK(t *testing.T) {
	t.Parallel()

	svc := &mockService{
		submitFn: func(context.Context, service.SubmitInput) (service.SubmitResult, error) {
			return service.SubmitResult{Duplicate: true, RedirectTo: "/acme/thank-you"}, nil
		},
	}
	h := New(svc, zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	newRouter(h, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/leads", strings.NewReader(`{"email":"x@y.com","username":"acme"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"success":true,"duplicate":true,"redirectTo":"/acme/thank-you"}`, rec.Body.String())
}

func TestSubmitErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "validation", err: &service.ValidationError{Fields: service.FieldErrors{"email": {"email is required"}}}, status: http.StatusBadRequest},
		{name: "unknown tenant", err: service.ErrTenantNotFound, status: http.StatusNotFound},
		{name: "store failure", err: errors.New("db down"), status: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := &mockService{submitFn: func(context.Context, service.SubmitInput) (service.SubmitResult, error) {
				return service.SubmitResult{}, tc.err
			}}
			h := New(svc, zaptest.NewLogger(t))

			rec := httptest.NewRecorder()
			newRouter(h, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/leads", strings.NewReader(`{"email":"x@y.com","username":"acme"}`)))
			require.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusInternalServerError {
				require.NotContains(t, rec.Body.String(), "db down")
			}
		})
	}
}

func TestSubmitMalformedBody(t *testing.T) {
	t.Parallel()

	h := New(&mockService{}, zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	newRouter(h, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/leads", strings.NewReader(`{`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListBindsPagination(t *testing.T) {
	t.Parallel()

	identity := tenant.Identity{TenantID: uuid.New()}
	svc := &mockService{
		listFn: func(_ context.Context, tenantID uuid.UUID, opts service.ListOptions) (service.ListResult, error) {
			require.Equal(t, identity.TenantID, tenantID)
			require.Equal(t, 2, opts.Page)
			require.Equal(t, 10, opts.PageSize)
			return service.ListResult{
				Leads:      []service.Lead{{ID: uuid.New(), Email: "x@y.com"}},
				Page:       2,
				PageSize:   10,
				TotalItems: 11,
				TotalPages: 2,
			}, nil
		},
	}
	h := New(svc, zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	newRouter(h, &identity).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/leads?page=2&pageSize=10", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var page LeadPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)
	require.Equal(t, 11, page.TotalItems)
}

func TestListRejectsBadPage(t *testing.T) {
	t.Parallel()

	identity := tenant.Identity{TenantID: uuid.New()}
	h := New(&mockService{}, zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	newRouter(h, &identity).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/leads?page=abc", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListRequiresIdentity(t *testing.T) {
	t.Parallel()

	h := New(&mockService{}, zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	newRouter(h, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/leads", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDelete(t *testing.T) {
	t.Parallel()

	identity := tenant.Identity{TenantID: uuid.New()}
	own := uuid.New()
	foreign := uuid.New()
	svc := &mockService{
		deleteFn: func(_ context.Context, tenantID, leadID uuid.UUID) error {
			require.Equal(t, identity.TenantID, tenantID)
			switch leadID {
			case own:
				return nil
			case foreign:
				return service.ErrForbidden
			default:
				return service.ErrNotFound
			}
		},
	}
	h := New(svc, zaptest.NewLogger(t))
	router := newRouter(h, &identity)

	for path, status := range map[string]int{
		"/dashboard/leads/" + own.String():     http.StatusNoContent,
		"/dashboard/leads/" + foreign.String(): http.StatusForbidden,
		"/dashboard/leads/" + uuid.NewString(): http.StatusNotFound,
		"/dashboard/leads/not-a-uuid":          http.StatusBadRequest,
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, path, nil))
		require.Equal(t, status, rec.Code, path)
	}
}
