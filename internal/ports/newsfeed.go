package ports

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/Amund211/newsfeed/internal/app"
	"github.com/Amund211/newsfeed/internal/domain"
	"github.com/Amund211/newsfeed/internal/logging"
	"github.com/Amund211/newsfeed/internal/reporting"
)

const MAX_WAIT_TIMEOUT = 10 * time.Second

// Seconds until a client should retry a request that timed out waiting
const RETRY_AFTER_SECONDS = "1"

// Parse the optional timeout query parameter, given in seconds
//
// A missing parameter gives 0, which selects the default wait timeout.
func parseTimeout(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}

	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return 0, errors.New("invalid timeout")
	}

	timeout := time.Duration(seconds * float64(time.Second))
	if timeout <= 0 {
		return 0, errors.New("invalid timeout")
	}
	return min(timeout, MAX_WAIT_TIMEOUT), nil
}

func MakeGetNewsfeedHandler(
	requestNewsfeed app.RequestNewsfeed,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middlewares := []func(http.HandlerFunc) http.HandlerFunc{
		buildMetricsMiddleware("get_newsfeed"),
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		reporting.NewAddMetaMiddleware("get_newsfeed"),
	}
	middlewares = append(middlewares, buildRateLimitMiddlewares(8, 240, 2, 60)...)
	middleware := ComposeMiddlewares(middlewares...)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		subjectID := r.PathValue("subjectID")

		userID := r.Header.Get("X-User-Id")
		ctx = reporting.SetUserIDInContext(ctx, userID)
		ctx = reporting.AddExtrasToContext(ctx, map[string]string{"subjectID": subjectID})

		timeout, err := parseTimeout(r.URL.Query().Get("timeout"))
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "invalid timeout")
			return
		}

		newsfeed, found, err := requestNewsfeed(ctx, subjectID, timeout)
		if errors.Is(err, domain.ErrInvalidSubjectID) {
			writeErrorResponse(w, http.StatusBadRequest, "invalid subject id")
			return
		} else if errors.Is(err, domain.ErrTemporarilyUnavailable) {
			writeErrorResponse(w, http.StatusServiceUnavailable, "temporarily unavailable")
			return
		} else if err != nil {
			// NOTE: RequestNewsfeed implementations handle their own error reporting
			writeErrorResponse(w, http.StatusInternalServerError, "internal server error")
			return
		}

		if !found {
			w.Header().Set("Retry-After", RETRY_AFTER_SECONDS)
			writeErrorResponse(w, http.StatusServiceUnavailable, "newsfeed not ready")
			return
		}

		writeResponse(w, http.StatusOK, newsfeedResponse{
			Success:   true,
			SubjectID: newsfeed.SubjectID,
			Content:   string(newsfeed.Content),
		})
	}

	return middleware(handler)
}
