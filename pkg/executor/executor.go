package executor

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"socialharvest/pkg/config"
	"socialharvest/pkg/errors"
	"socialharvest/pkg/logger"
	"socialharvest/pkg/proxy"
	"socialharvest/pkg/ratelimit"
	"socialharvest/pkg/retry"
)

// Options carries optional per-request settings.
type Options struct {
	// Headers are merged over the default browser header set.
	Headers map[string]string
	// Body is sent as the request body for non-GET methods.
	Body []byte
}

// Response is the outcome of a successful request.
type Response struct {
	StatusCode int
	Body       []byte
	// Data holds the decoded JSON payload. Non-JSON bodies are wrapped
	// under the "raw_response" key instead of failing the call.
	Data map[string]interface{}
}

// Executor issues outbound platform requests through the proxy pool and
// rate limiter, retrying transient failures with exponential backoff.
// One executor is shared by all collection operations of a platform.
type Executor struct {
	platform string

	pool    *proxy.Pool
	limiter *ratelimit.Limiter
	pacer   *ratelimit.Pacer
	backoff retry.BackoffStrategy
	logger  logger.Logger

	maxRetries  int
	timeout     time.Duration
	maxRateWait time.Duration

	mu      sync.Mutex
	current *proxy.Record
	clients map[string]*http.Client
	direct  *http.Client
}

// New creates an executor for one platform using the engine settings
// from cfg. A nil logger falls back to the global logger.
func New(cfg *config.Config, platform string, pool *proxy.Pool, limiter *ratelimit.Limiter, log logger.Logger) *Executor {
	if log == nil {
		log = logger.GetLogger()
	}

	e := &Executor{
		platform: platform,
		pool:     pool,
		limiter:  limiter,
		pacer:    ratelimit.NewPacer(cfg.Pacing.RequestsPerSecond, cfg.Pacing.Burst),
		backoff: &retry.ExponentialBackoff{
			BaseDelay:  cfg.Engine.RetryDelay(),
			MaxDelay:   time.Minute,
			Multiplier: 2.0,
		},
		logger: log.WithFields(map[string]interface{}{
			"component": "executor",
			"platform":  platform,
		}),
		maxRetries:  cfg.Engine.MaxRetries,
		timeout:     cfg.Engine.RequestTimeout(),
		maxRateWait: cfg.Engine.MaxRateLimitWait(),
		clients:     make(map[string]*http.Client),
	}
	e.direct = &http.Client{
		Timeout:   e.timeout,
		Transport: newTransport(nil),
	}
	return e
}

func newTransport(proxyURL *url.URL) *http.Transport {
	t := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if proxyURL != nil {
		t.Proxy = http.ProxyURL(proxyURL)
	}
	return t
}

// Execute performs one logical platform request. Transient failures
// (5xx, timeouts, proxy connection errors) are retried up to the attempt
// budget; rate-limited, authentication, and client failures surface
// immediately as typed *errors.Error values. Context cancellation is
// honored between attempts and during waits.
func (e *Executor) Execute(ctx context.Context, endpoint, method, rawURL string, opts *Options) (*Response, error) {
	var lastErr *errors.Error

	for attempt := 0; attempt < e.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if attempt > 0 {
			e.logger.WarnWithFields("retrying request", map[string]interface{}{
				"endpoint": endpoint,
				"url":      rawURL,
				"attempt":  attempt,
				"error":    lastErr.Error(),
			})
			if err := retry.Wait(ctx, e.backoff.NextDelay(attempt-1)); err != nil {
				return nil, err
			}
		}

		resp, err := e.attempt(ctx, endpoint, method, rawURL, opts)
		if err == nil {
			return resp, nil
		}

		typed, ok := errors.AsError(err)
		if !ok {
			// Context cancellation and other untyped failures stop the loop
			return nil, err
		}
		if !errors.IsRetryable(typed.Type) {
			return nil, typed
		}
		lastErr = typed
	}

	e.logger.ErrorWithFields("retries exhausted", map[string]interface{}{
		"endpoint":    endpoint,
		"url":         rawURL,
		"max_retries": e.maxRetries,
		"last_error":  lastErr.Error(),
	})
	return nil, &errors.Error{
		Type:    errors.ErrorTypeExhausted,
		Message: fmt.Sprintf("failed after %d attempts: %s", e.maxRetries, lastErr.Message),
		Code:    lastErr.Code,
	}
}

// attempt runs a single pass of the pace, gate, send, classify loop.
func (e *Executor) attempt(ctx context.Context, endpoint, method, rawURL string, opts *Options) (*Response, error) {
	if err := e.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	rec := e.ensureProxy(ctx)
	proxyID := ""
	if rec != nil {
		proxyID = rec.ID
	}

	if allowed, wait := e.limiter.Acquire(e.platform, endpoint, proxyID); !allowed {
		return nil, e.deniedLocally(ctx, endpoint, wait)
	}

	req, err := e.buildRequest(ctx, method, rawURL, opts)
	if err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeClient,
			Message: fmt.Sprintf("invalid request: %v", err),
		}
	}

	e.logger.DebugWithFields("sending request", map[string]interface{}{
		"method":   method,
		"url":      rawURL,
		"endpoint": endpoint,
		"proxy":    proxyID,
	})

	start := time.Now()
	resp, err := e.clientFor(rec).Do(req)
	elapsed := time.Since(start)

	if err != nil {
		return nil, e.classifyTransportError(ctx, err, rec)
	}
	defer resp.Body.Close()

	if rec != nil {
		e.pool.RecordUsage(rec.ID, true, float64(elapsed.Milliseconds()))
	}

	e.logger.DebugWithFields("request completed", map[string]interface{}{
		"method":   method,
		"url":      rawURL,
		"status":   resp.StatusCode,
		"duration": elapsed,
	})

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("reading response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	return e.classifyStatus(resp, body, rawURL)
}

// deniedLocally handles a closed local rate window. Waits inside the cap
// are absorbed here before surfacing; longer waits and daily-cap denials
// surface at once. The result is never retried locally.
func (e *Executor) deniedLocally(ctx context.Context, endpoint string, wait int) error {
	logger.LogRateLimit(e.platform, endpoint, wait)
	delay := time.Duration(wait) * time.Second
	if wait > 0 && delay <= e.maxRateWait {
		if err := retry.Wait(ctx, delay); err != nil {
			return err
		}
	}
	return &errors.Error{
		Type:       errors.ErrorTypeRateLimited,
		Message:    fmt.Sprintf("rate limited, retry after %ds", wait),
		RetryAfter: wait,
	}
}

func (e *Executor) buildRequest(ctx context.Context, method, rawURL string, opts *Options) (*http.Request, error) {
	var body io.Reader
	if opts != nil && len(opts.Body) > 0 {
		body = bytes.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}

	for key, value := range defaultHeaders() {
		req.Header.Set(key, value)
	}
	if opts != nil {
		for key, value := range opts.Headers {
			req.Header.Set(key, value)
		}
	}
	return req, nil
}

// classifyTransportError maps a failed round trip onto the error
// taxonomy. Proxy failures mark the pinned proxy failed and rotate it
// before returning, so the next attempt runs on a fresh candidate.
func (e *Executor) classifyTransportError(ctx context.Context, err error, rec *proxy.Record) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	switch {
	case rec != nil && isProxyConnectError(err):
		e.logger.WarnWithFields("proxy failed", map[string]interface{}{
			"proxy": rec.ID,
			"error": err.Error(),
		})
		e.pool.RecordUsage(rec.ID, false, 0)
		e.replaceProxy(ctx, rec.ID)
		return &errors.Error{
			Type:    errors.ErrorTypeProxy,
			Message: fmt.Sprintf("proxy connection failed: %v", err),
		}

	case isTimeout(err):
		return &errors.Error{
			Type:    errors.ErrorTypeTimeout,
			Message: fmt.Sprintf("request timed out: %v", err),
		}

	default:
		return &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}
	}
}

func (e *Executor) classifyStatus(resp *http.Response, body []byte, rawURL string) (*Response, error) {
	switch {
	case resp.StatusCode == http.StatusOK:
		out := &Response{StatusCode: resp.StatusCode, Body: body}
		if err := json.Unmarshal(body, &out.Data); err != nil {
			out.Data = map[string]interface{}{"raw_response": string(body)}
		}
		return out, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		e.logger.WarnWithFields("rate limited by platform", map[string]interface{}{
			"url":         rawURL,
			"retry_after": retryAfter,
		})
		return nil, &errors.Error{
			Type:       errors.ErrorTypeRateLimited,
			Message:    fmt.Sprintf("rate limited by platform, retry after %ds", retryAfter),
			Code:       resp.StatusCode,
			RetryAfter: retryAfter,
		}

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &errors.Error{
			Type:    errors.ErrorTypeAuth,
			Message: fmt.Sprintf("authentication failed: %d", resp.StatusCode),
			Code:    resp.StatusCode,
		}

	case resp.StatusCode == http.StatusNotFound:
		return nil, &errors.Error{
			Type:    errors.ErrorTypeNotFound,
			Message: "resource not found",
			Code:    resp.StatusCode,
		}

	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, &errors.Error{
			Type:    errors.ErrorTypeServer,
			Message: fmt.Sprintf("server error: %d", resp.StatusCode),
			Code:    resp.StatusCode,
		}

	default:
		return nil, &errors.Error{
			Type:    errors.ErrorTypeClient,
			Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, preview(body)),
			Code:    resp.StatusCode,
		}
	}
}

// ensureProxy returns the pinned proxy, selecting one when none is held.
// A nil return means the pool has no eligible proxy and the request goes
// out directly.
func (e *Executor) ensureProxy(ctx context.Context) *proxy.Record {
	e.mu.Lock()
	if e.current != nil {
		rec := e.current
		e.mu.Unlock()
		return rec
	}
	e.mu.Unlock()

	rec := e.pool.Select()
	if rec == nil {
		rec = e.pool.Rotate(ctx, "")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		e.current = rec
	}
	return e.current
}

// replaceProxy swaps the pinned proxy after a failure. The pin is only
// updated if it still points at the failed proxy, so concurrent calls
// do not clobber each other's replacements.
func (e *Executor) replaceProxy(ctx context.Context, failedID string) {
	replacement := e.pool.Rotate(ctx, failedID)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current != nil && e.current.ID == failedID {
		e.current = replacement
	}
}

// clientFor returns an HTTP client routed through the given proxy,
// creating and caching one per proxy on first use.
func (e *Executor) clientFor(rec *proxy.Record) *http.Client {
	if rec == nil {
		return e.direct
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok := e.clients[rec.ID]; ok {
		return c
	}

	proxyURL, err := url.Parse(rec.URL())
	if err != nil {
		return e.direct
	}
	c := &http.Client{
		Timeout:   e.timeout,
		Transport: newTransport(proxyURL),
	}
	e.clients[rec.ID] = c
	return c
}

// Close releases idle connections held by the cached HTTP clients.
func (e *Executor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.direct.CloseIdleConnections()
	for _, c := range e.clients {
		c.CloseIdleConnections()
	}
}

// isProxyConnectError reports whether the round trip failed reaching the
// proxy rather than the target. With a proxy configured every dial goes
// to the proxy address, so dial failures count as proxy failures.
func isProxyConnectError(err error) bool {
	msg := err.Error()
	if strings.Contains(msg, "proxyconnect") || strings.Contains(msg, "socks connect") {
		return true
	}
	var opErr *net.OpError
	return stderrors.As(err, &opErr) && opErr.Op == "dial"
}

func isTimeout(err error) bool {
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return stderrors.Is(err, context.DeadlineExceeded)
}

// parseRetryAfter reads a Retry-After header value in seconds. Missing
// or malformed values fall back to 60.
func parseRetryAfter(value string) int {
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds < 0 {
		return 60
	}
	return seconds
}

func preview(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
