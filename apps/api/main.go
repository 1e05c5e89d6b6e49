package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	oapimiddleware "github.com/oapi-codegen/nethttp-middleware"
	"go.uber.org/zap"

	"github.com/zenGate-Global/leadcapture/contracts"
	capturepageshandler "github.com/zenGate-Global/leadcapture/domains/capture-pages/be/handler"
	capturepagesrepo "github.com/zenGate-Global/leadcapture/domains/capture-pages/be/repo"
	capturepagesservice "github.com/zenGate-Global/leadcapture/domains/capture-pages/be/service"
	leadshandler "github.com/zenGate-Global/leadcapture/domains/leads/be/handler"
	leadsrepo "github.com/zenGate-Global/leadcapture/domains/leads/be/repo"
	leadsservice "github.com/zenGate-Global/leadcapture/domains/leads/be/service"
	notificationshandler "github.com/zenGate-Global/leadcapture/domains/notifications/be/handler"
	notificationsservice "github.com/zenGate-Global/leadcapture/domains/notifications/be/service"
	tenantshandler "github.com/zenGate-Global/leadcapture/domains/tenants/be/handler"
	tenantsrepo "github.com/zenGate-Global/leadcapture/domains/tenants/be/repo"
	tenantsservice "github.com/zenGate-Global/leadcapture/domains/tenants/be/service"
	platformauth "github.com/zenGate-Global/leadcapture/platform/go/auth"
	platformlogging "github.com/zenGate-Global/leadcapture/platform/go/logging"
	"github.com/zenGate-Global/leadcapture/platform/go/metrics"
	platformmiddleware "github.com/zenGate-Global/leadcapture/platform/go/middleware"
	"github.com/zenGate-Global/leadcapture/platform/go/persistence"
	"github.com/zenGate-Global/leadcapture/platform/go/problem"
	"github.com/zenGate-Global/leadcapture/platform/go/queue"
	"github.com/zenGate-Global/leadcapture/platform/go/webhook"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	Environment     string        `env:"APP_ENV" envDefault:"production"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogDevelopment  bool          `env:"LOG_DEVELOPMENT" envDefault:"false"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	DatabaseURL      string `env:"DATABASE_URL,required"`
	DatabaseMaxConns int32  `env:"DATABASE_MAX_CONNS" envDefault:"10"`
	BootstrapSchema  bool   `env:"BOOTSTRAP_SCHEMA" envDefault:"false"`

	AuthProvider            string `env:"AUTH_PROVIDER" envDefault:"whop"` // whop | firebase | dev
	WhopPublicKey           string `env:"WHOP_PUBLIC_KEY"`
	WhopIssuer              string `env:"WHOP_ISSUER" envDefault:"urn:whopcom:exp-proxy"`
	WhopAppID               string `env:"WHOP_APP_ID"`
	FirebaseProjectID       string `env:"FIREBASE_PROJECT_ID"`
	FirebaseCredentialsFile string `env:"FIREBASE_CREDENTIALS_FILE"`
	DevAuthBypass           bool   `env:"DEV_AUTH_BYPASS" envDefault:"false"`
	DevAuthID               string `env:"DEV_AUTH_ID" envDefault:"dev-test-user"`

	WebhookTimeout time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"5s"`
	RedisURL       string        `env:"REDIS_URL"`
	OwnerQueue     string        `env:"OWNER_NOTIFICATIONS_QUEUE" envDefault:"leadcapture:owner-notifications"`
	MetricsPrefix  string        `env:"METRICS_PREFIX" envDefault:"leadcapture"`
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("load .env: %v", err)
	}

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component:   "api-server",
		Level:       cfg.LogLevel,
		Development: cfg.LogDevelopment,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{
		ConnString:      cfg.DatabaseURL,
		ApplicationName: "leadcapture-api",
		MaxConns:        cfg.DatabaseMaxConns,
	})
	if err != nil {
		logger.Fatal("init postgres pool", zap.Error(err))
	}
	defer persistence.ClosePool(pool)

	if cfg.BootstrapSchema {
		if err := persistence.BootstrapSchema(ctx, pool, ""); err != nil {
			logger.Fatal("bootstrap schema", zap.Error(err))
		}
		logger.Info("database schema bootstrapped")
	}

	appMetrics := metrics.New(cfg.MetricsPrefix)

	tenantStore, err := persistence.NewTenantStore(ctx, pool)
	if err != nil {
		logger.Fatal("init tenant store", zap.Error(err))
	}
	pageStore, err := persistence.NewCapturePageStore(ctx, pool)
	if err != nil {
		logger.Fatal("init capture page store", zap.Error(err))
	}
	leadStore, err := persistence.NewLeadStore(ctx, pool)
	if err != nil {
		logger.Fatal("init lead store", zap.Error(err))
	}

	pageService := capturepagesservice.New(capturepagesrepo.NewPostgresRepository(pageStore))
	tenantService := tenantsservice.New(tenantsrepo.NewPostgresRepository(tenantStore), pageService)

	dispatchOpts := notificationsservice.Options{
		Timeout: cfg.WebhookTimeout,
		Metrics: appMetrics,
	}
	var publisher *queue.Publisher
	if cfg.RedisURL != "" {
		rdb, err := queue.NewRedisClient(cfg.RedisURL)
		if err != nil {
			logger.Fatal("init redis client", zap.Error(err))
		}
		publisher, err = queue.NewPublisher(rdb, cfg.OwnerQueue)
		if err != nil {
			logger.Fatal("init owner notification publisher", zap.Error(err))
		}
		if err := publisher.Ping(ctx); err != nil {
			logger.Warn("owner notification stream unreachable at startup", zap.Error(err))
		}
		// Assigned only when set: a nil *Publisher must not become a non-nil interface.
		dispatchOpts.Publisher = publisher
		logger.Info("owner notifications enabled", zap.String("queue", publisher.QueueName()))
	}

	dispatcher := notificationsservice.NewDispatcher(
		webhook.NewClient(cfg.WebhookTimeout),
		logger.Named("dispatcher"),
		dispatchOpts,
	)
	logger.Info("lead notifications ready",
		zap.Duration("webhook_timeout", cfg.WebhookTimeout),
		zap.Bool("owner_stream", dispatcher.OwnerStreamEnabled()),
	)
	leadService := leadsservice.New(leadsrepo.NewPostgresRepository(leadStore), tenantService, dispatcher, appMetrics)

	gate := buildAuthGate(ctx, cfg, tenantService, appMetrics, logger)

	tenantHTTPHandler := tenantshandler.New(tenantService, logger)
	pageHTTPHandler := capturepageshandler.New(pageService, tenantService, logger)
	leadHTTPHandler := leadshandler.New(leadService, logger)
	notificationHTTPHandler := notificationshandler.New(dispatcher, tenantService, logger)

	cors := platformmiddleware.DefaultCORS()
	if len(cfg.CORSOrigins) > 0 {
		cors = platformmiddleware.CORS(cfg.CORSOrigins)
	}

	rootRouter := chi.NewRouter()
	rootRouter.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Timeout(cfg.RequestTimeout),
		cors,
		appMetrics.Middleware,
	)
	rootRouter.Use(platformlogging.RequestLogger(logger, "/healthz", "/readyz", "/metrics"))

	rootRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := persistence.Ready(r.Context(), pool); err != nil {
			platformlogging.FromRequest(r, logger).Warn("readiness check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Method(http.MethodGet, "/metrics", appMetrics.Handler())

	registerDocsRoutes(rootRouter, logger)

	rootRouter.Group(func(r chi.Router) {
		r.Use(platformmiddleware.RequestTrace)
		pageHTTPHandler.PublicRoutes(r)
		tenantHTTPHandler.PublicRoutes(r)
	})

	apiRouter := chi.NewRouter()
	apiRouter.Use(mustNewSpecValidator(logger, gate.DevBypassEnabled()))
	apiRouter.Group(func(r chi.Router) {
		r.Use(platformmiddleware.RequestTrace)
		leadHTTPHandler.PublicRoutes(r)
		pageHTTPHandler.APIRoutes(r)
	})
	apiRouter.Route("/dashboard", func(r chi.Router) {
		r.Use(platformauth.RequireTenant(gate, logger))
		r.Use(platformmiddleware.RequestTrace)
		tenantHTTPHandler.DashboardRoutes(r)
		leadHTTPHandler.DashboardRoutes(r)
		pageHTTPHandler.DashboardRoutes(r)
		notificationHTTPHandler.DashboardRoutes(r)
	})
	rootRouter.Mount("/api/v1", apiRouter)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      rootRouter,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting api server", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Warn("pending notifications abandoned", zap.Error(err))
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Warn("close owner notification publisher", zap.Error(err))
		}
	}
}

// mustNewSpecValidator builds the request validator for the /api/v1 surface from
// the embedded contract. Validation failures are reported as problem+json.
func mustNewSpecValidator(logger *zap.Logger, devBypass bool) func(http.Handler) http.Handler {
	spec := mustLoadSpec(logger)
	return oapimiddleware.OapiRequestValidatorWithOptions(spec, &oapimiddleware.Options{
		Options: openapi3filter.Options{
			AuthenticationFunc: platformmiddleware.AuthenticationFunc(devBypass),
		},
		ErrorHandler: func(w http.ResponseWriter, message string, statusCode int) {
			details := problem.New(http.StatusText(statusCode), message, problemTypeFor(statusCode), statusCode, nil)
			if statusCode == http.StatusUnauthorized {
				// Only token presence is checked here; verification failures come from the gate.
				w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Bearer error="invalid_token", error_description=%q`, platformauth.ReasonMissingToken))
				details = details.WithReason(platformauth.ReasonMissingToken)
			}
			problem.Write(w, details)
		},
	})
}

// mustLoadSpec returns the embedded OpenAPI document.
func mustLoadSpec(logger *zap.Logger) *openapi3.T {
	spec, err := contracts.GetSwagger()
	if err != nil {
		logger.Fatal("load openapi contract", zap.Error(err))
	}
	logSecuritySchemes(logger, spec)
	return spec
}

func problemTypeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return problem.TypeValidation
	case http.StatusUnauthorized:
		return problem.TypeUnauthorized
	case http.StatusForbidden:
		return problem.TypeForbidden
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return problem.TypeNotFound
	default:
		return problem.TypeInternal
	}
}

func logSecuritySchemes(logger *zap.Logger, spec *openapi3.T) {
	if spec.Components.SecuritySchemes == nil {
		spec.Components.SecuritySchemes = openapi3.SecuritySchemes{}
	}

	if _, ok := spec.Components.SecuritySchemes["bearerAuth"]; !ok {
		spec.Components.SecuritySchemes["bearerAuth"] = &openapi3.SecuritySchemeRef{
			Value: &openapi3.SecurityScheme{
				Type:   "http",
				Scheme: "bearer",
			},
		}
		logger.Warn("injecting default bearerAuth security scheme", zap.String("contract", contracts.Name))
	}

	names := make([]string, 0, len(spec.Components.SecuritySchemes))
	for name := range spec.Components.SecuritySchemes {
		names = append(names, name)
	}
	logger.Debug("loaded security schemes", zap.String("contract", contracts.Name), zap.Strings("names", names))
}
