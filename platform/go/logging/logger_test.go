package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLoggerLevels(t *testing.T) {
	t.Parallel()

	logger, err := NewLogger(Config{Component: "api", Level: "WARN"})
	require.NoError(t, err)
	require.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	require.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	logger, err = NewLogger(Config{Development: true})
	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(zapcore.InfoLevel))

	_, err = NewLogger(Config{Level: "loud"})
	require.Error(t, err)
}

func TestNewLoggerCloudFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := NewLogger(Config{Component: "leadcapture-api", Output: zapcore.AddSync(&buf)})
	require.NoError(t, err)
	logger.Warn("webhook failed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "WARNING", entry["severity"])
	require.Equal(t, "webhook failed", entry["message"])
	require.Equal(t, "leadcapture-api", entry["component"])
}

func TestRequestLoggerStoresScopedLogger(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	handler := middleware.RequestID(RequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scoped, ok := FromContext(r.Context())
		require.True(t, ok)
		scoped.Info("inside handler")
		w.WriteHeader(http.StatusTeapot)
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusTeapot, rec.Code)
	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, "inside handler", entries[0].Message)
	require.Contains(t, entries[0].ContextMap(), "request_id")
	require.Equal(t, "request completed", entries[1].Message)
	require.EqualValues(t, http.StatusTeapot, entries[1].ContextMap()["status"])
}

func TestRequestLoggerLevels(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	handler := RequestLogger(zap.New(core), "/healthz")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/boom" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/healthz", "/boom", "/leads"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.All()
	require.Len(t, entries, 3)
	require.Equal(t, zapcore.DebugLevel, entries[0].Level)
	require.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	require.Equal(t, zapcore.InfoLevel, entries[2].Level)
}

func TestFromRequestFallback(t *testing.T) {
	t.Parallel()

	fallback := zap.NewNop()
	require.Same(t, fallback, FromRequest(httptest.NewRequest(http.MethodGet, "/", nil), fallback))
}
