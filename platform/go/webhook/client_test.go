package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func sampleEvent() Event {
	name := "Ada"
	return Event{
		Event: EventNewLead,
		Lead: LeadPayload{
			ID:        "9b1f2c1e-2d7a-4c55-8a0e-3f1f4f3f9a10",
			Email:     "ada@example.com",
			Name:      &name,
			CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		Client: ClientPayload{ID: "c6c1a0c2-6a63-4f0f-a1f7-8d4f0c2f5b11", Username: "acme"},
	}
}

func TestSendPostsEnvelope(t *testing.T) {
	t.Parallel()

	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := NewClient(time.Second)
	require.NoError(t, client.Send(context.Background(), server.URL, sampleEvent()))

	require.Equal(t, "new_lead", got["event"])
	lead := got["lead"].(map[string]any)
	require.Equal(t, "ada@example.com", lead["email"])
	require.Equal(t, "Ada", lead["name"])
	require.Contains(t, lead, "phone")
	require.Nil(t, lead["phone"])
	require.Equal(t, "2025-03-01T12:00:00Z", lead["createdAt"])
	require.Equal(t, "acme", got["client"].(map[string]any)["username"])
}

func TestClientOptions(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "probe/2", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(time.Second, WithHTTPClient(server.Client()), WithUserAgent("probe/2"), WithHTTPClient(nil))
	require.NoError(t, client.Send(context.Background(), server.URL, sampleEvent()))
}

func TestSendReportsNon2xx(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	err := NewClient(time.Second).Send(context.Background(), server.URL, sampleEvent())

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	require.Equal(t, "nope", statusErr.Body)
}

func TestSendReportsClosedConnection(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		require.True(t, ok)
		conn, _, err := hj.Hijack()
		require.NoError(t, err)
		_ = conn.Close()
	}))
	defer server.Close()

	err := NewClient(time.Second).Send(context.Background(), server.URL, sampleEvent())
	require.Error(t, err)

	var statusErr *StatusError
	require.False(t, errors.As(err, &statusErr))
}

func TestSendHonoursTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	start := time.Now()
	err := NewClient(50*time.Millisecond).Send(context.Background(), server.URL, sampleEvent())
	require.Error(t, err)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestSendRejectsInvalidURL(t *testing.T) {
	t.Parallel()

	err := NewClient(time.Second).Send(context.Background(), "ftp://example.com/hook", sampleEvent())
	require.ErrorIs(t, err, ErrInvalidURL)
}

func TestValidateURL(t *testing.T) {
	t.Parallel()

	valid := []string{"https://hooks.example.com/in", "http://localhost:8080/hook", " https://x.io "}
	for _, raw := range valid {
		require.NoError(t, ValidateURL(raw), raw)
	}

	invalid := []string{"", "hooks.example.com", "/relative", "mailto:a@b.c", "https://", "ht tp://x"}
	for _, raw := range invalid {
		require.ErrorIs(t, ValidateURL(raw), ErrInvalidURL, raw)
	}
}

func TestMarshalValidatesAgainstSchema(t *testing.T) {
	t.Parallel()

	payload, err := TestEvent("tenant-1", "acme", time.Now()).Marshal()
	require.NoError(t, err)
	require.Contains(t, string(payload), `"test_webhook"`)
	require.Contains(t, string(payload), `"test-lead-id"`)

	bad := sampleEvent()
	bad.Event = "lead_deleted"
	_, err = bad.Marshal()
	require.Error(t, err)

	bad = sampleEvent()
	bad.Client.Username = ""
	_, err = bad.Marshal()
	require.Error(t, err)
}
