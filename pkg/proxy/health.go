package proxy

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// HealthChecker verifies that a proxy can carry a request. Implementations
// return the observed response time in milliseconds.
type HealthChecker interface {
	Check(ctx context.Context, proxyURL string) (responseTimeMs float64, err error)
}

// restyChecker issues a single lightweight GET through the candidate proxy.
// Certificate verification is skipped so TLS-intercepting proxies still pass.
type restyChecker struct {
	checkURL string
	timeout  time.Duration
}

// NewHealthChecker builds the default checker. An empty checkURL falls back
// to https://httpbin.org/ip; a zero timeout falls back to 10s.
func NewHealthChecker(checkURL string, timeout time.Duration) HealthChecker {
	if checkURL == "" {
		checkURL = "https://httpbin.org/ip"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &restyChecker{checkURL: checkURL, timeout: timeout}
}

func (c *restyChecker) Check(ctx context.Context, proxyURL string) (float64, error) {
	client := resty.New().
		SetProxy(proxyURL).
		SetTimeout(c.timeout).
		SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})

	resp, err := client.R().SetContext(ctx).Get(c.checkURL)
	if err != nil {
		return 0, fmt.Errorf("health check request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return 0, fmt.Errorf("health check returned status %d", resp.StatusCode())
	}
	return float64(resp.Time().Milliseconds()), nil
}

// CheckerFunc adapts a plain function to the HealthChecker interface
type CheckerFunc func(ctx context.Context, proxyURL string) (float64, error)

func (f CheckerFunc) Check(ctx context.Context, proxyURL string) (float64, error) {
	return f(ctx, proxyURL)
}
