package ratelimit

import (
	"math"
	"sync"
	"time"

	"socialharvest/pkg/logger"
)

// Quota is the hour/day request budget for one platform
type Quota struct {
	PerHour int
	PerDay  int
}

// defaultQuotas are the built-in platform budgets; unknown platforms fall
// back to the catch-all quota
var defaultQuotas = map[string]Quota{
	"instagram": {PerHour: 200, PerDay: 4000},
	"youtube":   {PerHour: 1000, PerDay: 50000},
	"tiktok":    {PerHour: 100, PerDay: 2000},
	"twitter":   {PerHour: 300, PerDay: 7200},
}

var fallbackQuota = Quota{PerHour: 100, PerDay: 1000}

// DefaultQuota returns the built-in budget for a platform
func DefaultQuota(platform string) Quota {
	if q, ok := defaultQuotas[platform]; ok {
		return q
	}
	return fallbackQuota
}

// State tracks one (platform, endpoint, proxy) bucket. Counters reset
// exactly when now crosses the reset deadline, after which the deadline
// advances to the top of the next hour / next UTC midnight.
type State struct {
	Platform        string
	Endpoint        string
	ProxyID         string
	RequestsPerHour int
	RequestsPerDay  int
	HourCount       int
	DayCount        int
	HourResetAt     time.Time
	DayResetAt      time.Time
	LastRequestAt   time.Time
}

func (s *State) resetWindows(now time.Time) {
	if !now.Before(s.HourResetAt) {
		s.HourCount = 0
		s.HourResetAt = now.Truncate(time.Hour).Add(time.Hour)
	}
	if !now.Before(s.DayResetAt) {
		s.DayCount = 0
		s.DayResetAt = nextUTCMidnight(now)
	}
}

func (s *State) allowed() bool {
	return s.HourCount < s.RequestsPerHour && s.DayCount < s.RequestsPerDay
}

// waitSeconds reports how long until the hourly window opens again. Only
// the hourly cap produces a wait; a bound daily cap reports zero and the
// caller surfaces the denial instead of sleeping a day away.
func (s *State) waitSeconds(now time.Time) int {
	if s.HourCount >= s.RequestsPerHour {
		remaining := s.HourResetAt.Sub(now).Seconds()
		if remaining <= 0 {
			return 0
		}
		return int(math.Ceil(remaining))
	}
	return 0
}

func nextUTCMidnight(now time.Time) time.Time {
	utc := now.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
}

type bucketKey struct {
	platform string
	endpoint string
	proxyID  string
}

// Limiter enforces fixed hour/day windows per (platform, endpoint) pair,
// optionally segmented per proxy. Buckets are created lazily with the
// platform's quota and never deleted. Check and record share one lock so
// concurrent callers cannot overshoot a window between the two steps.
type Limiter struct {
	mu     sync.Mutex
	states map[bucketKey]*State
	quotas map[string]Quota
	logger logger.Logger
}

// New creates a limiter with the built-in platform quotas
func New(log logger.Logger) *Limiter {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Limiter{
		states: make(map[bucketKey]*State),
		quotas: make(map[string]Quota),
		logger: log.WithField("component", "rate_limiter"),
	}
}

// SetQuota overrides the budget for a platform. Existing buckets keep the
// quota they were created with; only new buckets see the override.
func (l *Limiter) SetQuota(platform string, perHour, perDay int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.quotas[platform] = Quota{PerHour: perHour, PerDay: perDay}
}

// CanProceed reports whether a request fits the current windows, and how
// many seconds to wait when the hourly cap is the binding constraint.
func (l *Limiter) CanProceed(platform, endpoint, proxyID string) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	state := l.ensureLocked(platform, endpoint, proxyID, now)
	state.resetWindows(now)
	return state.allowed(), state.waitSeconds(now)
}

// RecordRequest counts one permitted request against both windows.
// Callers must have seen a true CanProceed for the same bucket; Acquire
// wraps both steps in a single critical section.
func (l *Limiter) RecordRequest(platform, endpoint, proxyID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	state := l.ensureLocked(platform, endpoint, proxyID, now)
	state.HourCount++
	state.DayCount++
	state.LastRequestAt = now
}

// Acquire atomically checks the windows and, when permitted, consumes one
// request. Denials report the hourly wait exactly like CanProceed.
func (l *Limiter) Acquire(platform, endpoint, proxyID string) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	state := l.ensureLocked(platform, endpoint, proxyID, now)
	state.resetWindows(now)

	if !state.allowed() {
		wait := state.waitSeconds(now)
		l.logger.DebugWithFields("rate window closed", map[string]interface{}{
			"platform":     platform,
			"endpoint":     endpoint,
			"wait_seconds": wait,
		})
		return false, wait
	}

	state.HourCount++
	state.DayCount++
	state.LastRequestAt = now
	return true, 0
}

// ensureLocked lazily creates the bucket with the platform quota.
// Callers hold the limiter lock.
func (l *Limiter) ensureLocked(platform, endpoint, proxyID string, now time.Time) *State {
	k := bucketKey{platform: platform, endpoint: endpoint, proxyID: proxyID}
	if state, ok := l.states[k]; ok {
		return state
	}

	quota, ok := l.quotas[platform]
	if !ok {
		quota = DefaultQuota(platform)
	}
	state := &State{
		Platform:        platform,
		Endpoint:        endpoint,
		ProxyID:         proxyID,
		RequestsPerHour: quota.PerHour,
		RequestsPerDay:  quota.PerDay,
		HourResetAt:     now.Truncate(time.Hour).Add(time.Hour),
		DayResetAt:      nextUTCMidnight(now),
	}
	l.states[k] = state
	return state
}
