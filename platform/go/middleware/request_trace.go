package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	platformauth "github.com/zenGate-Global/leadcapture/platform/go/auth"
	platformlogging "github.com/zenGate-Global/leadcapture/platform/go/logging"
	"github.com/zenGate-Global/leadcapture/platform/go/requesttrace"
	"github.com/zenGate-Global/leadcapture/platform/go/tenant"
)

// RequestTrace populates the context with request-scoped AuditInfo.
// It should run after the auth gate so the tenant identity is available when present.
func RequestTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := platformlogging.FromRequest(r, nil)
		requestID := middleware.GetReqID(r.Context())

		audit := requesttrace.Visitor(requestID)
		creds, hasCreds := platformauth.UserFromContext(r.Context())
		identity, hasIdentity := tenant.FromContext(r.Context())
		if hasCreds && hasIdentity {
			var err error
			audit, err = requesttrace.FromIdentity(creds, identity, requestID)
			if err != nil {
				if logger != nil {
					logger.Error("build audit info from identity", zap.Error(err))
				}
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}

		ctx := requesttrace.IntoContext(r.Context(), audit)
		if logger != nil {
			logger = logger.With(zap.String("actor_kind", string(audit.ActorKind)))
			ctx = platformlogging.WithLogger(ctx, logger)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
