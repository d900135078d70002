// Package external provides the anti-corruption layer between the SkySense
// domain and the remote weather backend. All outbound HTTP calls are routed
// through the BaseClient, which enforces consistent resilience patterns:
// per-attempt timeouts, client-side throttling, circuit breaking, retries with
// exponential backoff, and error mapping.
package external

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"skysense/internal/types"
)

// DefaultTimeout bounds a single attempt.
const DefaultTimeout = 10 * time.Second

// maxResponseSize caps how much of a response body is read (4 MB).
const maxResponseSize = 4 << 20

// RetryPolicy configures the retry behavior for the BaseClient.
type RetryPolicy struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultRetryPolicy returns the defaults for weather backend calls:
// two retries after the first attempt.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		MinWait:    500 * time.Millisecond,
		MaxWait:    10 * time.Second,
	}
}

// CallOverrides adjusts timeout and retry count for a single call. Zero
// values keep the client defaults.
type CallOverrides struct {
	Timeout    time.Duration
	MaxRetries *int
}

// Response is a fully read 2xx response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Attempts   int
}

// BaseClient wraps an *http.Client, a rate limiter and a circuit breaker to
// enforce consistent resilience patterns on all outbound HTTP calls.
type BaseClient struct {
	client      *http.Client
	breaker     *gobreaker.CircuitBreaker[*http.Response]
	limiter     *rate.Limiter
	retryPolicy RetryPolicy
	timeout     time.Duration
	userAgent   string
	logger      *slog.Logger
	sleepFn     func(context.Context, time.Duration) error
}

// BaseClientOption is a functional option for configuring a BaseClient.
type BaseClientOption func(*BaseClient)

// WithSleepFunc overrides the sleep function used between retries.
// This is intended for testing to avoid real delays. A context cancelled
// during fn still ends the retry loop once fn returns.
func WithSleepFunc(fn func(time.Duration)) BaseClientOption {
	return func(c *BaseClient) {
		c.sleepFn = func(ctx context.Context, d time.Duration) error {
			fn(d)
			return ctx.Err()
		}
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WithTimeout sets the default per-attempt timeout.
func WithTimeout(d time.Duration) BaseClientOption {
	return func(c *BaseClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit throttles outgoing attempts to rps with the given burst.
// A non-positive rps disables throttling.
func WithRateLimit(rps float64, burst int) BaseClientOption {
	return func(c *BaseClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) BaseClientOption {
	return func(c *BaseClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBreaker replaces the default circuit breaker. This is useful for
// testing or when sharing a breaker across clients.
func WithBreaker(cb *gobreaker.CircuitBreaker[*http.Response]) BaseClientOption {
	return func(c *BaseClient) {
		c.breaker = cb
	}
}

// NewHTTPClient returns an *http.Client whose transport transparently
// negotiates and decodes gzip/zstd responses. Deadlines are applied per
// attempt by the BaseClient, so no client-wide timeout is set.
func NewHTTPClient() *http.Client {
	return &http.Client{Transport: gzhttp.Transport(http.DefaultTransport)}
}

// NewBreaker builds the default circuit breaker: it opens after more than
// five consecutive failures and half-opens after 30 seconds.
func NewBreaker(name string) *gobreaker.CircuitBreaker[*http.Response] {
	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})
}

// NewBaseClient creates a BaseClient with the given http client, circuit
// breaker name, retry policy, and user agent string.
func NewBaseClient(
	httpClient *http.Client,
	breakerName string,
	retryPolicy RetryPolicy,
	userAgent string,
	opts ...BaseClientOption,
) *BaseClient {
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}

	bc := &BaseClient{
		client:      httpClient,
		breaker:     NewBreaker(breakerName),
		retryPolicy: retryPolicy,
		timeout:     DefaultTimeout,
		userAgent:   userAgent,
		logger:      slog.Default(),
		sleepFn:     sleepContext,
	}

	for _, opt := range opts {
		opt(bc)
	}

	return bc
}

// Get issues a GET to rawURL with:
//  1. Request ID and User-Agent header injection
//  2. Client-side throttling
//  3. A bounded per-attempt deadline
//  4. Circuit breaker wrapping
//  5. Sequential retries on transport failure, timeout and 5xx, with
//     exponential backoff (MinWait * 2^attempt, clamped to MaxWait)
//  6. Error mapping to types.AppError
//
// 404, 429 and other non-5xx statuses surface after a single attempt.
func (c *BaseClient) Get(ctx context.Context, rawURL string, o CallOverrides) (*Response, error) {
	timeout := c.timeout
	if o.Timeout > 0 {
		timeout = o.Timeout
	}
	retries := c.retryPolicy.MaxRetries
	if o.MaxRetries != nil {
		retries = *o.MaxRetries
	}
	if retries < 0 {
		retries = 0
	}

	var lastErr *types.AppError
	maxAttempts := 1 + retries
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, mapTransportError(ctx, err)
			}
		}

		resp, retryAfter, err := c.attempt(ctx, rawURL, timeout)
		if err == nil {
			resp.Attempts = attempt + 1
			return resp, nil
		}
		lastErr = err

		if !err.Retryable() || ctx.Err() != nil || attempt == maxAttempts-1 {
			break
		}

		wait := c.computeBackoff(attempt, retryAfter)
		c.logger.DebugContext(ctx, "retrying weather backend request",
			"url", rawURL,
			"attempt", attempt+1,
			"wait", wait,
			"error", err,
		)
		if err := c.sleepFn(ctx, wait); err != nil {
			return nil, mapTransportError(ctx, err).WithDetails(map[string]any{"url": rawURL})
		}
	}

	return nil, lastErr.WithDetails(map[string]any{"url": rawURL})
}

// attempt performs one round trip and reads the body under the attempt
// deadline. The returned duration is a server-requested Retry-After, if any.
func (c *BaseClient) attempt(ctx context.Context, rawURL string, timeout time.Duration) (*Response, time.Duration, *types.AppError) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if requestID := types.GetRequestID(ctx); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		r, doErr := c.client.Do(req)
		if doErr != nil {
			return nil, doErr
		}
		// Treat 5xx as errors for the circuit breaker.
		if r.StatusCode >= 500 {
			return r, fmt.Errorf("upstream returned %d", r.StatusCode)
		}
		return r, nil
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, 0, types.NewAppError(
				types.ErrCodeUpstreamUnavailable,
				"circuit breaker is open; weather backend unavailable",
				err,
			)
		}
		if resp != nil {
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			drainAndClose(resp.Body)
			return nil, retryAfter, types.NewHTTPError(resp.StatusCode, err)
		}
		return nil, 0, mapTransportError(attemptCtx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		drainAndClose(resp.Body)
		return nil, 0, types.NewHTTPError(resp.StatusCode, nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, 0, mapTransportError(attemptCtx, err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, 0, nil
}

// computeBackoff determines the wait duration before the next retry attempt.
// A server-provided Retry-After wins (clamped to MaxWait); otherwise the wait
// is MinWait * 2^attempt, clamped to MaxWait.
func (c *BaseClient) computeBackoff(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		if retryAfter > c.retryPolicy.MaxWait {
			return c.retryPolicy.MaxWait
		}
		return retryAfter
	}

	wait := float64(c.retryPolicy.MinWait) * math.Pow(2, float64(attempt))
	if maxWait := float64(c.retryPolicy.MaxWait); maxWait > 0 && wait > maxWait {
		wait = maxWait
	}
	return time.Duration(wait)
}

// parseRetryAfter accepts delta-seconds or an HTTP-date.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if wait := time.Until(t); wait > 0 {
			return wait
		}
	}
	return 0
}

// mapTransportError classifies a failure where no HTTP response was obtained.
func mapTransportError(ctx context.Context, err error) *types.AppError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return types.NewAppError(types.ErrCodeNetworkTimeout, "request exceeded deadline", err)
	}
	if errors.Is(err, context.Canceled) {
		return types.NewAppError(types.ErrCodeNetworkUnreachable, "request canceled", err)
	}
	return types.NewAppError(types.ErrCodeNetworkUnreachable, "weather backend unreachable", err)
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	body.Close()
}
