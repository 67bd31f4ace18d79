package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Amund211/newsfeed/internal/adapters/cache"
	"github.com/Amund211/newsfeed/internal/adapters/contentgenerator"
	"github.com/Amund211/newsfeed/internal/adapters/store"
	"github.com/Amund211/newsfeed/internal/app"
	"github.com/Amund211/newsfeed/internal/config"
	"github.com/Amund211/newsfeed/internal/logging"
	"github.com/Amund211/newsfeed/internal/ports"
	"github.com/Amund211/newsfeed/internal/reporting"
	"github.com/Amund211/newsfeed/internal/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	// Root CAs for TLS to redis and the content generator in minimal images
	_ "golang.org/x/crypto/x509roots/fallback"
)

const SERVICE_NAME = "newsfeed"

// Set at build time with -ldflags "-X main.version=..."
var version = "dev"

const UPSTREAM_REQUESTS_PER_SECOND = 20
const UPSTREAM_BURST = 40

func main() {
	instanceID := uuid.New().String()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("instanceID", instanceID)

	fail := func(msg string, args ...any) {
		logger.Error(msg, args...)
		os.Exit(1)
	}

	config, err := config.ConfigFromEnv()
	if err != nil {
		fail("Failed to load config", "error", err.Error())
	}

	if config.GCPProject() != "" {
		handler := logging.NewCloudTraceHandler(slog.NewJSONHandler(os.Stdout, nil), config.GCPProject())
		logger = slog.New(handler).With("instanceID", instanceID)
	}
	logger.Info("Loaded config", "config", config.NonSensitiveString(), "version", version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if config.OTelEnabled() {
		shutdownOTel, err := telemetry.SetupOTelSDK(ctx, SERVICE_NAME, version)
		if err != nil {
			fail("Failed to initialize OpenTelemetry", "error", err.Error())
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownOTel(shutdownCtx); err != nil {
				logger.Error("Failed to shut down OpenTelemetry", "error", err.Error())
			}
		}()
		logger.Info("Initialized OpenTelemetry")
	}

	sentryMiddleware, flush, err := reporting.NewSentryMiddlewareOrMock(config)
	if err != nil {
		fail("Failed to initialize Sentry", "error", err.Error())
	}
	defer flush()
	logger.Info("Initialized Sentry middleware")

	var contentStore cache.Store
	if config.RedisURL() != "" {
		client, err := store.NewRedisClient(ctx, config.RedisURL())
		if err != nil {
			fail("Failed to connect to redis", "error", err.Error())
		}
		defer client.Close()
		contentStore = store.NewRedisStore(client)
		logger.Info("Initialized redis store")
	} else {
		ttlStore, stopStore := store.NewTTLStore()
		defer stopStore()
		contentStore = ttlStore
		logger.Warn("Using in-process store, coordination is limited to this instance")
	}

	var generator contentgenerator.ContentGenerator
	if config.ContentGeneratorURL() != "" {
		generator, err = contentgenerator.NewUpstream(
			contentgenerator.NewRetryingHTTPClient(logger.With("component", "contentgenerator")),
			config.ContentGeneratorURL(),
			UPSTREAM_REQUESTS_PER_SECOND,
			UPSTREAM_BURST,
		)
		if err != nil {
			fail("Failed to initialize content generator", "error", err.Error())
		}
		logger.Info("Initialized upstream content generator")
	} else {
		generator = contentgenerator.NewPlaceholder()
		logger.Info("Using placeholder content generator")
	}

	coordinator, err := cache.NewCoordinator(contentStore, generator.Generate)
	if err != nil {
		fail("Failed to initialize coordinator", "error", err.Error())
	}

	requestNewsfeed := app.BuildRequestNewsfeed(coordinator)
	primeNewsfeed := app.BuildPrimeNewsfeed(coordinator)
	handleLogin := app.BuildHandleLogin(coordinator)

	mux := http.NewServeMux()
	mux.HandleFunc(
		"GET /v1/newsfeed/{subjectID}",
		ports.MakeGetNewsfeedHandler(
			requestNewsfeed,
			logger.With("port", "newsfeed"),
			sentryMiddleware,
		),
	)
	mux.HandleFunc(
		"POST /v1/login/{subjectID}",
		ports.MakeLoginHandler(
			handleLogin,
			primeNewsfeed,
			logger.With("port", "login"),
			sentryMiddleware,
		),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", config.Port()),
		Handler:           otelhttp.NewHandler(mux, SERVICE_NAME),
		ReadHeaderTimeout: 10 * time.Second,
		// Waiters may block for up to the maximum wait timeout
		WriteTimeout: ports.MAX_WAIT_TIMEOUT + 20*time.Second,
	}

	shutdownComplete := make(chan struct{})
	go func() {
		defer close(shutdownComplete)
		<-ctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ports.MAX_WAIT_TIMEOUT+5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shut down server", "error", err.Error())
		}
	}()

	logger.Info("Init complete", "port", config.Port())
	err = server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		<-shutdownComplete
		logger.Info("Server shutdown")
	} else {
		fail("Server error", "error", err.Error())
	}
}
