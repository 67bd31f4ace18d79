package reporting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/Amund211/newsfeed/internal/config"
	"github.com/Amund211/newsfeed/internal/logging"
	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
)

var storeKeyRx = regexp.MustCompile(`newsfeed_content:[^\s:"]+`)
var hostRx = regexp.MustCompile(`\[:{0,2}([0-9a-f]{0,4}:?){1,8}\]:\d+|\b(\d{1,3}\.){3}\d{1,3}:\d+`)

// Strip per-subject and per-connection details so equal failures group together
func sanitizeError(err string) string {
	err = storeKeyRx.ReplaceAllString(err, "newsfeed_content:<subject>")
	err = hostRx.ReplaceAllString(err, "<host>")
	return err
}

func Report(ctx context.Context, err error, extras ...map[string]string) {
	if err == nil {
		err = errors.New("No error provided")
	}

	logger := logging.FromContext(ctx)

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		logger.WarnContext(ctx, "Failed to get Sentry hub from context", "error", err.Error(), "extras", extras)
		return
	}

	logger.ErrorContext(
		ctx,
		"Reporting error to Sentry",
		slog.String("error", err.Error()),
		slog.Any("extras", extras),
	)

	hub.WithScope(func(scope *sentry.Scope) {
		m := metaFromContext(ctx)
		scope.SetTags(m.tags)
		for key, value := range m.extras {
			scope.SetExtra(key, value)
		}
		if m.userID != "" {
			scope.SetUser(sentry.User{ID: m.userID})
		}
		if !m.startedAt.IsZero() {
			scope.SetExtra("secondsSinceStart", time.Since(m.startedAt).Seconds())
		}

		for _, extra := range extras {
			for key, value := range extra {
				scope.SetExtra(key, value)
			}
		}

		scope.SetFingerprint([]string{"{{ default }}", sanitizeError(err.Error())})
		hub.CaptureException(err)
	})
}

// Tag reports from a request with the port handling it
func NewAddMetaMiddleware(port string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			userAgent := r.UserAgent()
			if userAgent == "" {
				userAgent = "<missing>"
			}

			ctx := AddTagsToContext(r.Context(), map[string]string{
				"port":       port,
				"userAgent":  userAgent,
				"methodPath": fmt.Sprintf("%s %s", r.Method, r.URL.Path),
			})
			ctx = setStartedAtInContext(ctx, time.Now())

			next(w, r.WithContext(ctx))
		}
	}
}

func InitSentryMiddleware(sentryDSN string, environment string) (func(http.HandlerFunc) http.HandlerFunc, func(), error) {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              sentryDSN,
		Environment:      environment,
		EnableTracing:    true,
		TracesSampleRate: 1.0 / 100.0,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize sentry: %w", err)
	}

	sentryHandler := sentryhttp.New(sentryhttp.Options{
		Repanic: true,
	})

	middleware := func(next http.HandlerFunc) http.HandlerFunc {
		return sentryHandler.HandleFunc(next)
	}

	flush := func() {
		sentry.Flush(5 * time.Second)
	}

	return middleware, flush, nil
}

func NewSentryMiddlewareOrMock(conf config.Config) (func(http.HandlerFunc) http.HandlerFunc, func(), error) {
	if conf.SentryDSN() != "" {
		return InitSentryMiddleware(conf.SentryDSN(), conf.Environment())
	}

	if conf.IsDevelopment() {
		middleware := func(next http.HandlerFunc) http.HandlerFunc {
			return next
		}
		return middleware, func() {}, nil
	}

	return nil, nil, fmt.Errorf("missing Sentry DSN in non-development environment")
}
