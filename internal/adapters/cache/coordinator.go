package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/Amund211/newsfeed/internal/domain"
	"github.com/Amund211/newsfeed/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const DEFAULT_CONTENT_TTL = 30 * time.Minute
const DEFAULT_WAIT_TIMEOUT = 3 * time.Second

// Coordinates population of the content cache so at most one generation runs per
// subject at a time
//
// All coordination state lives in the store. The coordinator only holds immutable
// collaborators and is safe to share between goroutines and processes.
type Coordinator struct {
	store      Store
	generate   GenerateFunc
	contentTTL time.Duration

	metrics coordinatorMetricsCollection
	tracer  trace.Tracer
}

type Option func(*Coordinator)

func WithContentTTL(ttl time.Duration) Option {
	return func(c *Coordinator) {
		c.contentTTL = ttl
	}
}

func NewCoordinator(store Store, generate GenerateFunc, opts ...Option) (*Coordinator, error) {
	const name = "newsfeed/cache/coordinator"

	meter := otel.Meter(name)
	tracer := otel.Tracer(name)

	metrics, err := setupCoordinatorMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to set up metrics: %w", err)
	}

	coordinator := &Coordinator{
		store:      store,
		generate:   generate,
		contentTTL: DEFAULT_CONTENT_TTL,

		metrics: metrics,
		tracer:  tracer,
	}
	for _, opt := range opts {
		opt(coordinator)
	}

	return coordinator, nil
}

func storeError(operation string, key string, err error) error {
	return fmt.Errorf("%w: failed to %s %s: %w", domain.ErrStoreUnavailable, operation, key, err)
}

// Returns content, found, error
//
// A cold cache makes the caller either the single generator for the subject or a
// waiter on the hand-off list. Waiters give up after timeout and report the content
// as not found; that is not an error.
func (c *Coordinator) RequestContent(ctx context.Context, subjectID string, timeout time.Duration) ([]byte, bool, error) {
	ctx, span := c.tracer.Start(ctx, "Coordinator.RequestContent")
	defer span.End()

	if timeout <= 0 {
		timeout = DEFAULT_WAIT_TIMEOUT
	}

	keys := keysFor(subjectID)
	logger := logging.FromContext(ctx)

	content, found, err := c.store.Get(ctx, keys.content)
	if err != nil {
		return nil, false, storeError("get", keys.content, err)
	}
	if found {
		logger.InfoContext(ctx, "Getting newsfeed content", "cache", "hit")
		c.metrics.recordOutcome(ctx, outcomeHit)
		span.SetAttributes(attribute.String("cache.outcome", string(outcomeHit)))
		return content, true, nil
	}

	// The lock expires at the latest timeout after this, wherever the store sets it
	lockedAt := time.Now()
	acquired, err := c.store.SetIfAbsent(ctx, keys.lock, []byte(LOCK_VALUE), timeout)
	if err != nil {
		return nil, false, storeError("acquire lock", keys.lock, err)
	}

	if acquired {
		logger.InfoContext(ctx, "Getting newsfeed content", "cache", "miss")
		// Waiters depend on the generator finishing, even if our caller goes away
		return c.generateWithLock(context.WithoutCancel(ctx), span, subjectID, keys, lockedAt, timeout)
	}

	logger.InfoContext(ctx, "Waiting for newsfeed content", "cache", "wait")
	return c.waitForHandoff(ctx, span, keys, timeout)
}

func (c *Coordinator) generateWithLock(ctx context.Context, span trace.Span, subjectID string, keys subjectKeys, lockedAt time.Time, lockTTL time.Duration) ([]byte, bool, error) {
	// A generator finishing between our miss and our lock acquisition has already
	// released its lock
	content, found, err := c.store.Get(ctx, keys.content)
	if err != nil {
		return nil, false, storeError("get", keys.content, err)
	}
	if found {
		if err := c.store.Delete(ctx, keys.lock); err != nil {
			return nil, false, storeError("release lock", keys.lock, err)
		}
		logging.FromContext(ctx).InfoContext(ctx, "Getting newsfeed content", "cache", "late_hit")
		c.metrics.recordOutcome(ctx, outcomeLateHit)
		span.SetAttributes(attribute.String("cache.outcome", string(outcomeLateHit)))
		return content, true, nil
	}

	content, err = c.runGeneration(ctx, subjectID, "request")
	if err != nil {
		// NOTE: The lock is kept until it expires
		return nil, false, err
	}

	err = c.store.Set(ctx, keys.content, content, c.contentTTL)
	if err != nil {
		return nil, false, storeError("set", keys.content, err)
	}

	err = c.store.Push(ctx, keys.handoff, content, lockTTL)
	if err != nil {
		return nil, false, storeError("publish to", keys.handoff, err)
	}

	// Once the lock has expired it may belong to a different generator
	if time.Since(lockedAt) < lockTTL {
		err = c.store.Delete(ctx, keys.lock)
		if err != nil {
			return nil, false, storeError("release lock", keys.lock, err)
		}
	}

	c.metrics.recordOutcome(ctx, outcomeGenerated)
	span.SetAttributes(attribute.String("cache.outcome", string(outcomeGenerated)))
	return content, true, nil
}

func (c *Coordinator) waitForHandoff(ctx context.Context, span trace.Span, keys subjectKeys, timeout time.Duration) ([]byte, bool, error) {
	logger := logging.FromContext(ctx)

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	waitStart := time.Now()
	content, delivered, err := c.store.BlockingTransfer(waitCtx, keys.handoff, keys.queue, timeout)
	c.metrics.waitDuration.Record(ctx, time.Since(waitStart).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, fmt.Errorf("failed to wait for hand-off: %w", ctx.Err())
		}
		// Clients with deadline aware sockets can fail with an i/o timeout just before
		// waitCtx itself reports the deadline
		deadline, _ := waitCtx.Deadline()
		if waitCtx.Err() == nil && time.Now().Before(deadline) {
			return nil, false, storeError("wait on", keys.handoff, err)
		}
		// The wait deadline elapsed inside the store call
		delivered = false
	}

	if delivered {
		_, _, err := c.store.PopFront(ctx, keys.queue)
		if err != nil {
			return nil, false, storeError("pop", keys.queue, err)
		}

		// Relay the value so the next blocked waiter is released as well
		err = c.store.Push(ctx, keys.handoff, content, timeout)
		if err != nil {
			return nil, false, storeError("relay to", keys.handoff, err)
		}

		logger.InfoContext(ctx, "Getting newsfeed content", "cache", "handoff")
		c.metrics.recordOutcome(ctx, outcomeHandoff)
		span.SetAttributes(attribute.String("cache.outcome", string(outcomeHandoff)))
		return content, true, nil
	}

	// The generator may have written the cache entry while our wait was expiring
	content, found, err := c.store.Get(ctx, keys.content)
	if err != nil {
		return nil, false, storeError("get", keys.content, err)
	}
	if found {
		logger.InfoContext(ctx, "Getting newsfeed content", "cache", "late_hit")
		c.metrics.recordOutcome(ctx, outcomeLateHit)
		span.SetAttributes(attribute.String("cache.outcome", string(outcomeLateHit)))
		return content, true, nil
	}

	logger.InfoContext(ctx, "Newsfeed content not available", "cache", "timeout", "timeout", timeout.String())
	c.metrics.recordOutcome(ctx, outcomeUnavailable)
	span.SetAttributes(attribute.String("cache.outcome", string(outcomeUnavailable)))
	return nil, false, nil
}

func (c *Coordinator) runGeneration(ctx context.Context, subjectID string, trigger string) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "Coordinator.generate")
	defer span.End()

	start := time.Now()
	content, err := c.generate(ctx, subjectID)

	attributes := metric.WithAttributes(
		attribute.String("trigger", trigger),
		attribute.Bool("success", err == nil),
	)
	c.metrics.generationCount.Add(ctx, 1, attributes)
	c.metrics.generationDuration.Record(ctx, time.Since(start).Seconds(), attributes)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return nil, fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}

	return content, nil
}

// Unconditionally generate content and cache it
//
// Cancellation of ctx does not interrupt the generation or the write. No lock is
// taken. Concurrent calls for the same subject must be serialized by the caller.
func (c *Coordinator) PrimeOnLogin(ctx context.Context, subjectID string) error {
	// Generated content is written even if the caller goes away
	ctx, span := c.tracer.Start(context.WithoutCancel(ctx), "Coordinator.PrimeOnLogin")
	defer span.End()

	key := CacheKey(subjectID)

	content, err := c.runGeneration(ctx, subjectID, "login")
	if err != nil {
		return err
	}

	err = c.store.Set(ctx, key, content, c.contentTTL)
	if err != nil {
		return storeError("set", key, err)
	}

	logging.FromContext(ctx).InfoContext(ctx, "Primed newsfeed content")
	return nil
}

// Prime the cache unless content is already cached
//
// Returns whether content was generated
func (c *Coordinator) HandleLoginTrigger(ctx context.Context, subjectID string) (bool, error) {
	ctx, span := c.tracer.Start(ctx, "Coordinator.HandleLoginTrigger")
	defer span.End()

	key := CacheKey(subjectID)

	_, found, err := c.store.Get(ctx, key)
	if err != nil {
		return false, storeError("get", key, err)
	}
	if found {
		logging.FromContext(ctx).InfoContext(ctx, "Skipping login priming", "cache", "hit")
		return false, nil
	}

	err = c.PrimeOnLogin(ctx, subjectID)
	if err != nil {
		return false, err
	}

	return true, nil
}
