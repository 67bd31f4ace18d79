package ports

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Amund211/newsfeed/internal/ratelimiting"
	"github.com/stretchr/testify/require"
)

type mockedRateLimiter struct {
	t           *testing.T
	allow       bool
	expectedKey string
}

func (m *mockedRateLimiter) Consume(key string) bool {
	m.t.Helper()
	require.Equal(m.t, m.expectedKey, key)
	return m.allow
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Parallel()

	for _, allow := range []bool{true, false} {
		name := "not allowed"
		if allow {
			name = "allowed"
		}
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			handlerCalled := false
			onLimitExceededCalled := false
			subjectRateLimiter := ratelimiting.NewRequestBasedRateLimiter(
				&mockedRateLimiter{t: t, allow: allow, expectedKey: "subject: user-1"},
				ratelimiting.SubjectIDKeyFunc,
			)

			handler := NewRateLimitMiddleware(
				subjectRateLimiter,
				func(w http.ResponseWriter, r *http.Request) {
					onLimitExceededCalled = true
					writeErrorResponse(w, http.StatusTooManyRequests, "rate limit exceeded")
				},
			)(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/v1/newsfeed/user-1", nil)
			req.SetPathValue("subjectID", "user-1")
			w := httptest.NewRecorder()
			handler(w, req)

			require.Equal(t, allow, handlerCalled)
			require.Equal(t, !allow, onLimitExceededCalled)
			if allow {
				require.Equal(t, http.StatusOK, w.Code)
			} else {
				require.Equal(t, http.StatusTooManyRequests, w.Code)
				require.JSONEq(t, `{"success":false,"cause":"rate limit exceeded"}`, w.Body.String())
			}
		})
	}
}

func TestComposeMiddlewares(t *testing.T) {
	t.Parallel()

	record := func(events *[]string, name string) func(http.HandlerFunc) http.HandlerFunc {
		return func(next http.HandlerFunc) http.HandlerFunc {
			return func(w http.ResponseWriter, r *http.Request) {
				*events = append(*events, name+" pre")
				next(w, r)
				*events = append(*events, name+" post")
			}
		}
	}

	t.Run("none", func(t *testing.T) {
		t.Parallel()

		called := false
		handler := ComposeMiddlewares()(func(w http.ResponseWriter, r *http.Request) {
			called = true
		})
		handler(httptest.NewRecorder(), &http.Request{})
		require.True(t, called)
	})

	t.Run("first is outermost", func(t *testing.T) {
		t.Parallel()

		events := []string{}
		middleware := ComposeMiddlewares(
			record(&events, "1"),
			record(&events, "2"),
			record(&events, "3"),
		)

		handler := middleware(func(w http.ResponseWriter, r *http.Request) {
			events = append(events, "handler")
		})
		handler(httptest.NewRecorder(), &http.Request{})

		require.Equal(t, []string{
			"1 pre", "2 pre", "3 pre",
			"handler",
			"3 post", "2 post", "1 post",
		}, events)
	})
}

func TestMetricsMiddlewareRecordsStatus(t *testing.T) {
	t.Parallel()

	var seen *statusRecorder
	handler := buildMetricsMiddleware("test")(func(w http.ResponseWriter, r *http.Request) {
		recorder, ok := w.(*statusRecorder)
		require.True(t, ok)
		seen = recorder
		w.WriteHeader(http.StatusTeapot)
	})

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusTeapot, w.Code)
	require.Equal(t, http.StatusTeapot, seen.status)
}
