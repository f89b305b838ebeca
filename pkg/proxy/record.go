package proxy

import (
	"fmt"
	"time"

	"socialharvest/pkg/config"
)

// Supported proxy protocols
const (
	ProtocolHTTP   = "http"
	ProtocolHTTPS  = "https"
	ProtocolSOCKS5 = "socks5"
)

// Thresholds for proxy health accounting
const (
	// minSuccessRate is the floor below which a proxy is not selectable
	minSuccessRate = 0.3
	// deactivationMinRequests is how many requests a proxy gets before the
	// auto-deactivation rule applies
	deactivationMinRequests = 10
	// responseTimeSmoothing is the EMA weight given to a new sample
	responseTimeSmoothing = 0.2
)

// Record tracks one proxy's identity, health and usage accounting.
// Records are created by pool administration and mutated on every recorded
// usage; the engine never deletes them.
type Record struct {
	ID       string
	Host     string
	Port     int
	Username string
	Password string
	Protocol string

	// Optional provider metadata
	Provider string
	Location string

	// Health
	IsActive        bool
	SuccessRate     float64
	AvgResponseTime float64 // milliseconds, exponential moving average

	// Usage counters
	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64
	RequestsToday      int
	DailyLimit         int

	// Timestamps
	LastUsed    time.Time
	LastSuccess time.Time
	LastFailure time.Time

	// usageDay is the UTC date RequestsToday counts against
	usageDay string
}

// NewRecord builds a Record from a configuration entry. Fresh proxies start
// active with a full success rate so they are immediately selectable.
func NewRecord(entry config.ProxyEntry, defaultDailyLimit int) *Record {
	protocol := entry.Protocol
	if protocol == "" {
		protocol = ProtocolHTTP
	}
	dailyLimit := entry.DailyLimit
	if dailyLimit <= 0 {
		dailyLimit = defaultDailyLimit
	}
	return &Record{
		ID:          recordID(entry.Host, entry.Port),
		Host:        entry.Host,
		Port:        entry.Port,
		Username:    entry.Username,
		Password:    entry.Password,
		Protocol:    protocol,
		IsActive:    true,
		SuccessRate: 1.0,
		DailyLimit:  dailyLimit,
	}
}

func recordID(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}

// URL returns the proxy URL including credentials when present
func (r *Record) URL() string {
	if r.Username != "" && r.Password != "" {
		return fmt.Sprintf("%s://%s:%s@%s:%d", r.Protocol, r.Username, r.Password, r.Host, r.Port)
	}
	return fmt.Sprintf("%s://%s:%d", r.Protocol, r.Host, r.Port)
}

// Available reports whether the proxy can serve a request right now:
// active, success rate above the floor, and under its daily request limit.
func (r *Record) Available() bool {
	return r.IsActive &&
		r.SuccessRate > minSuccessRate &&
		r.RequestsToday < r.DailyLimit
}

// resetDailyIfNeeded zeroes the daily counter when the UTC date has rolled
// over since it was last counted. Callers hold the pool lock.
func (r *Record) resetDailyIfNeeded(now time.Time) {
	day := now.UTC().Format("2006-01-02")
	if r.usageDay != day {
		r.usageDay = day
		r.RequestsToday = 0
	}
}

// recordUsage updates the counters, success rate and response-time average
// for one completed request. The moving average only absorbs successful
// samples; the first success seeds it directly. Callers hold the pool lock.
func (r *Record) recordUsage(success bool, responseTimeMs float64, now time.Time) {
	r.resetDailyIfNeeded(now)
	r.LastUsed = now
	r.TotalRequests++
	r.RequestsToday++

	if success {
		r.SuccessfulRequests++
		r.LastSuccess = now
		if responseTimeMs > 0 {
			if r.AvgResponseTime == 0 {
				r.AvgResponseTime = responseTimeMs
			} else {
				r.AvgResponseTime = r.AvgResponseTime*(1-responseTimeSmoothing) + responseTimeMs*responseTimeSmoothing
			}
		}
	} else {
		r.FailedRequests++
		r.LastFailure = now
	}

	r.SuccessRate = float64(r.SuccessfulRequests) / float64(r.TotalRequests)

	// Auto-deactivate consistently failing proxies
	if r.TotalRequests > deactivationMinRequests && r.SuccessRate < minSuccessRate {
		r.IsActive = false
	}
}

// clone returns a snapshot copy safe to hand outside the pool lock
func (r *Record) clone() *Record {
	c := *r
	return &c
}
