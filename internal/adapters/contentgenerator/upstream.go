package contentgenerator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Amund211/newsfeed/internal/domain"
	"github.com/Amund211/newsfeed/internal/logging"
	"github.com/Amund211/newsfeed/internal/reporting"
	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const USER_AGENT = "newsfeed/1.0"

const MAX_CONTENT_SIZE = 1 << 20

type HttpClient interface {
	Do(req *retryablehttp.Request) (*http.Response, error)
}

type upstreamMetricsCollection struct {
	requestCount metric.Int64Counter
}

func setupUpstreamMetrics(meter metric.Meter) (upstreamMetricsCollection, error) {
	requestCount, err := meter.Int64Counter("contentgenerator/upstream/request_count")
	if err != nil {
		return upstreamMetricsCollection{}, fmt.Errorf("failed to create request count metric: %w", err)
	}

	return upstreamMetricsCollection{
		requestCount: requestCount,
	}, nil
}

type upstream struct {
	httpClient HttpClient
	baseURL    *url.URL
	limiter    *rate.Limiter

	metrics upstreamMetricsCollection
	tracer  trace.Tracer
}

// Retrying HTTP client for the upstream generator
//
// 429 and 5xx responses are retried with exponential backoff.
func NewRetryingHTTPClient(logger *slog.Logger) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.HTTPClient = &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	client.RetryMax = 3
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.Logger = logger
	return client
}

// Generator fetching content from GET <baseURL>/<subjectID>
//
// Requests are throttled to requestsPerSecond with a burst of burst.
func NewUpstream(httpClient HttpClient, baseURL string, requestsPerSecond float64, burst int) (ContentGenerator, error) {
	const name = "newsfeed/contentgenerator/upstream"

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse upstream url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("upstream url must be http(s), got '%s'", baseURL)
	}

	meter := otel.Meter(name)
	tracer := otel.Tracer(name)

	metrics, err := setupUpstreamMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to set up metrics: %w", err)
	}

	return &upstream{
		httpClient: httpClient,
		baseURL:    parsed,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), burst),

		metrics: metrics,
		tracer:  tracer,
	}, nil
}

func (u *upstream) Generate(ctx context.Context, subjectID string) ([]byte, error) {
	ctx, span := u.tracer.Start(ctx, "Upstream.Generate")
	defer span.End()

	err := u.limiter.Wait(ctx)
	if err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "Did not run Upstream.Generate due to rate limiting", "error", err.Error())
		return nil, fmt.Errorf("%w: too many requests to upstream generator: %w", domain.ErrTemporarilyUnavailable, err)
	}

	requestURL := u.baseURL.JoinPath(url.PathEscape(subjectID)).String()
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		err := fmt.Errorf("failed to create request: %w", err)
		reporting.Report(ctx, err)
		return nil, err
	}
	req.Header.Set("User-Agent", USER_AGENT)

	resp, err := u.httpClient.Do(req)
	if err != nil {
		u.metrics.requestCount.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "error")))
		err := fmt.Errorf("%w: failed to send request: %w", domain.ErrTemporarilyUnavailable, err)
		if !errors.Is(err, context.Canceled) {
			reporting.Report(ctx, err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	u.metrics.requestCount.Add(ctx, 1, metric.WithAttributes(attribute.Int("status", resp.StatusCode)))

	data, err := io.ReadAll(io.LimitReader(resp.Body, MAX_CONTENT_SIZE+1))
	if err != nil {
		err := fmt.Errorf("failed to read response body: %w", err)
		reporting.Report(ctx, err)
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("upstream returned status %d", resp.StatusCode)
		reporting.Report(ctx, err, map[string]string{
			"statusCode": fmt.Sprint(resp.StatusCode),
			"body":       strings.TrimSpace(string(data[:min(len(data), 256)])),
		})
		return nil, err
	}

	if len(data) > MAX_CONTENT_SIZE {
		err := fmt.Errorf("upstream content exceeds %d bytes", MAX_CONTENT_SIZE)
		reporting.Report(ctx, err)
		return nil, err
	}

	return data, nil
}
