package ports

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Amund211/newsfeed/internal/app"
	"github.com/Amund211/newsfeed/internal/domain"
	"github.com/Amund211/newsfeed/internal/logging"
	"github.com/Amund211/newsfeed/internal/reporting"
)

// Warm the newsfeed cache when a subject logs in
//
// ?force=true regenerates even when content is cached.
func MakeLoginHandler(
	handleLogin app.HandleLogin,
	primeNewsfeed app.PrimeNewsfeed,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middlewares := []func(http.HandlerFunc) http.HandlerFunc{
		buildMetricsMiddleware("login"),
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		reporting.NewAddMetaMiddleware("login"),
	}
	middlewares = append(middlewares, buildRateLimitMiddlewares(4, 120, 0.2, 5)...)
	middleware := ComposeMiddlewares(middlewares...)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		subjectID := r.PathValue("subjectID")

		ctx = reporting.SetUserIDInContext(ctx, r.Header.Get("X-User-Id"))
		ctx = reporting.AddExtrasToContext(ctx, map[string]string{"subjectID": subjectID})

		force := false
		if rawForce := r.URL.Query().Get("force"); rawForce != "" {
			parsed, err := strconv.ParseBool(rawForce)
			if err != nil {
				writeErrorResponse(w, http.StatusBadRequest, "invalid force")
				return
			}
			force = parsed
		}

		var generated bool
		var err error
		if force {
			err = primeNewsfeed(ctx, subjectID)
			generated = err == nil
		} else {
			generated, err = handleLogin(ctx, subjectID)
		}

		if errors.Is(err, domain.ErrInvalidSubjectID) {
			writeErrorResponse(w, http.StatusBadRequest, "invalid subject id")
			return
		} else if errors.Is(err, domain.ErrTemporarilyUnavailable) {
			writeErrorResponse(w, http.StatusServiceUnavailable, "temporarily unavailable")
			return
		} else if err != nil {
			writeErrorResponse(w, http.StatusInternalServerError, "internal server error")
			return
		}

		writeResponse(w, http.StatusOK, newsfeedResponse{
			Success:   true,
			SubjectID: subjectID,
			Generated: &generated,
		})
	}

	return middleware(handler)
}
