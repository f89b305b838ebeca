package executor

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialharvest/pkg/config"
	"socialharvest/pkg/errors"
	"socialharvest/pkg/logger"
	"socialharvest/pkg/proxy"
	"socialharvest/pkg/ratelimit"
)

// testConfig returns engine settings tuned so retries and pacing do not
// slow the suite down.
func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Engine.MaxRetries = 3
	cfg.Engine.RetryDelayMs = 5
	cfg.Engine.RequestTimeoutMs = 2000
	cfg.Pacing.RequestsPerSecond = 1000
	cfg.Pacing.Burst = 10
	return cfg
}

func newTestExecutor(cfg *config.Config) *Executor {
	log := logger.NewTestLogger()
	pool := proxy.New(&cfg.Proxy, log)
	limiter := ratelimit.New(log)
	return New(cfg, "instagram", pool, limiter, log)
}

func TestExecuteSuccessJSON(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"user": {"id": "123456", "username": "testuser"}}`))
	}))
	defer server.Close()

	e := newTestExecutor(testConfig())
	defer e.Close()

	resp, err := e.Execute(context.Background(), "profile", http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(1), hits.Load())

	user, ok := resp.Data["user"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "testuser", user["username"])
}

func TestExecuteRawFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>not json</body></html>"))
	}))
	defer server.Close()

	e := newTestExecutor(testConfig())
	defer e.Close()

	resp, err := e.Execute(context.Background(), "profile", http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	// Non-JSON bodies still count as success with the text preserved
	assert.Equal(t, "<html><body>not json</body></html>", resp.Data["raw_response"])
	assert.Equal(t, []byte("<html><body>not json</body></html>"), resp.Body)
}

func TestExecutePlatformRateLimit(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Retry-After", "45")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	e := newTestExecutor(testConfig())
	defer e.Close()

	resp, err := e.Execute(context.Background(), "posts", http.MethodGet, server.URL, nil)
	assert.Nil(t, resp)
	require.Error(t, err)

	var typed *errors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, errors.ErrorTypeRateLimited, typed.Type)
	assert.Equal(t, 45, typed.RetryAfter)
	assert.Equal(t, 45, errors.RetryAfterSeconds(err))

	// A 429 surfaces to the caller without consuming retry attempts
	assert.Equal(t, int32(1), hits.Load())
}

func TestExecutePlatformRateLimitDefaultRetryAfter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	e := newTestExecutor(testConfig())
	defer e.Close()

	_, err := e.Execute(context.Background(), "posts", http.MethodGet, server.URL, nil)
	require.Error(t, err)

	var typed *errors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, 60, typed.RetryAfter)
}

func TestExecuteAuthNotRetried(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(fmt.Sprintf("status %d", status), func(t *testing.T) {
			var hits atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.WriteHeader(status)
			}))
			defer server.Close()

			e := newTestExecutor(testConfig())
			defer e.Close()

			_, err := e.Execute(context.Background(), "profile", http.MethodGet, server.URL, nil)
			require.Error(t, err)

			var typed *errors.Error
			require.ErrorAs(t, err, &typed)
			assert.Equal(t, errors.ErrorTypeAuth, typed.Type)
			assert.Equal(t, status, typed.Code)
			assert.Equal(t, int32(1), hits.Load())
		})
	}
}

func TestExecuteServerErrorRetried(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"status": "ok"}`))
	}))
	defer server.Close()

	e := newTestExecutor(testConfig())
	defer e.Close()

	resp, err := e.Execute(context.Background(), "profile", http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Data["status"])
	assert.Equal(t, int32(3), hits.Load())
}

func TestExecuteExhaustedRetries(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	e := newTestExecutor(testConfig())
	defer e.Close()

	_, err := e.Execute(context.Background(), "profile", http.MethodGet, server.URL, nil)
	require.Error(t, err)

	var typed *errors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, errors.ErrorTypeExhausted, typed.Type)
	assert.Equal(t, http.StatusServiceUnavailable, typed.Code)
	assert.Contains(t, typed.Message, "3 attempts")
	assert.Equal(t, int32(3), hits.Load())
}

func TestExecuteClientError(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))
	defer server.Close()

	e := newTestExecutor(testConfig())
	defer e.Close()

	_, err := e.Execute(context.Background(), "profile", http.MethodGet, server.URL, nil)
	require.Error(t, err)

	var typed *errors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, errors.ErrorTypeClient, typed.Type)
	assert.Equal(t, http.StatusTeapot, typed.Code)
	assert.Contains(t, typed.Message, "short and stout")
	assert.Equal(t, int32(1), hits.Load())
}

func TestExecuteNotFound(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	e := newTestExecutor(testConfig())
	defer e.Close()

	_, err := e.Execute(context.Background(), "profile", http.MethodGet, server.URL, nil)
	require.Error(t, err)

	var typed *errors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, errors.ErrorTypeNotFound, typed.Type)
	assert.Equal(t, int32(1), hits.Load())
}

func TestExecuteTimeoutRetried(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			time.Sleep(500 * time.Millisecond)
			return
		}
		w.Write([]byte(`{"status": "ok"}`))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.Engine.RequestTimeoutMs = 50
	e := newTestExecutor(cfg)
	defer e.Close()

	resp, err := e.Execute(context.Background(), "profile", http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Data["status"])
	assert.Equal(t, int32(2), hits.Load())
}

func TestExecuteDailyWindowClosed(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	cfg := testConfig()
	e := newTestExecutor(cfg)
	defer e.Close()
	e.limiter.SetQuota("instagram", 10, 0)

	start := time.Now()
	_, err := e.Execute(context.Background(), "profile", http.MethodGet, server.URL, nil)
	require.Error(t, err)

	var typed *errors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, errors.ErrorTypeRateLimited, typed.Type)
	assert.Equal(t, 0, typed.RetryAfter)

	// Daily-cap denials surface at once: no upstream call, no sleep
	assert.Equal(t, int32(0), hits.Load())
	assert.Less(t, time.Since(start), time.Second)
}

func TestExecuteHourlyWaitBeyondCap(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.Engine.MaxRateLimitWaitMs = 0
	e := newTestExecutor(cfg)
	defer e.Close()
	e.limiter.SetQuota("instagram", 0, 100)

	start := time.Now()
	_, err := e.Execute(context.Background(), "profile", http.MethodGet, server.URL, nil)
	require.Error(t, err)

	var typed *errors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, errors.ErrorTypeRateLimited, typed.Type)
	assert.Greater(t, typed.RetryAfter, 0)

	assert.Equal(t, int32(0), hits.Load())
	assert.Less(t, time.Since(start), time.Second)
}

func TestExecuteContextCancelled(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	e := newTestExecutor(testConfig())
	defer e.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Execute(ctx, "profile", http.MethodGet, server.URL, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), hits.Load())
}

func TestExecuteHeaders(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	e := newTestExecutor(testConfig())
	defer e.Close()

	opts := &Options{Headers: map[string]string{
		"X-IG-App-ID": "936619743392459",
	}}
	_, err := e.Execute(context.Background(), "profile", http.MethodGet, server.URL, opts)
	require.NoError(t, err)

	assert.Contains(t, userAgents, got.Get("User-Agent"))
	assert.Equal(t, "1", got.Get("DNT"))
	assert.Equal(t, "1", got.Get("Upgrade-Insecure-Requests"))
	assert.Contains(t, got.Get("Accept"), "application/json")
	assert.Equal(t, "936619743392459", got.Get("X-IG-App-ID"))
}

func TestExecuteHeaderOverride(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	e := newTestExecutor(testConfig())
	defer e.Close()

	opts := &Options{Headers: map[string]string{
		"User-Agent": "custom-agent/1.0",
	}}
	_, err := e.Execute(context.Background(), "profile", http.MethodGet, server.URL, opts)
	require.NoError(t, err)

	assert.Equal(t, "custom-agent/1.0", got.Get("User-Agent"))
}

func TestExecuteRotatesFailedProxy(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"status": "ok"}`))
	}))
	defer server.Close()

	cfg := testConfig()
	// Port 1 refuses connections immediately, so the first attempt fails
	// at the proxy dial
	cfg.Proxy.Entries = []config.ProxyEntry{
		{Host: "127.0.0.1", Port: 1, Protocol: "http"},
	}

	e := newTestExecutor(cfg)
	defer e.Close()

	resp, err := e.Execute(context.Background(), "profile", http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Data["status"])

	// The dead proxy never carried the request; the retry went direct
	assert.Equal(t, int32(1), hits.Load())

	snapshot := e.pool.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, int64(1), snapshot[0].FailedRequests)
	assert.Equal(t, float64(0), snapshot[0].SuccessRate)
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		value string
		want  int
	}{
		{"45", 45},
		{" 120 ", 120},
		{"0", 0},
		{"", 60},
		{"soon", 60},
		{"-5", 60},
	}

	for _, tt := range tests {
		if got := parseRetryAfter(tt.value); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %d, want %d", tt.value, got, tt.want)
		}
	}
}

func TestIsProxyConnectError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"connect through proxy", fmt.Errorf("proxyconnect tcp: dial tcp 10.0.0.1:8080: connection refused"), true},
		{"socks handshake", fmt.Errorf("socks connect tcp 10.0.0.1:1080: EOF"), true},
		{"dial failure", &net.OpError{Op: "dial", Net: "tcp", Err: fmt.Errorf("connection refused")}, true},
		{"read failure", &net.OpError{Op: "read", Net: "tcp", Err: fmt.Errorf("reset by peer")}, false},
		{"plain error", fmt.Errorf("something else"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isProxyConnectError(tt.err))
		})
	}
}
