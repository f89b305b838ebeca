package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"socialharvest/pkg/logger"
)

func TestDefaultQuota(t *testing.T) {
	tests := []struct {
		platform string
		perHour  int
		perDay   int
	}{
		{"instagram", 200, 4000},
		{"youtube", 1000, 50000},
		{"tiktok", 100, 2000},
		{"twitter", 300, 7200},
		{"somethingelse", 100, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.platform, func(t *testing.T) {
			q := DefaultQuota(tt.platform)
			if q.PerHour != tt.perHour || q.PerDay != tt.perDay {
				t.Errorf("expected %d/%d, got %d/%d", tt.perHour, tt.perDay, q.PerHour, q.PerDay)
			}
		})
	}
}

func TestAcquireUnderQuota(t *testing.T) {
	l := New(logger.NewNopLogger())
	l.SetQuota("testplat", 3, 10)

	for i := 0; i < 3; i++ {
		allowed, wait := l.Acquire("testplat", "profile", "")
		if !allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
		if wait != 0 {
			t.Errorf("allowed request should report zero wait, got %d", wait)
		}
	}

	allowed, wait := l.Acquire("testplat", "profile", "")
	if allowed {
		t.Error("fourth request should be denied")
	}
	if wait <= 0 {
		t.Errorf("hourly-bound denial should report a positive wait, got %d", wait)
	}
	if wait > 3600 {
		t.Errorf("wait cannot exceed one hour, got %d", wait)
	}
}

func TestHourlyExhaustionUntilReset(t *testing.T) {
	l := New(logger.NewNopLogger())
	l.SetQuota("testplat", 2, 100)

	l.Acquire("testplat", "posts", "")
	l.Acquire("testplat", "posts", "")

	allowed, wait := l.CanProceed("testplat", "posts", "")
	if allowed {
		t.Error("exhausted hourly window should deny")
	}
	if wait <= 0 {
		t.Errorf("expected positive wait until hour reset, got %d", wait)
	}

	// Force the hourly deadline into the past; the next check resets the
	// window and admits requests again
	l.mu.Lock()
	state := l.states[bucketKey{platform: "testplat", endpoint: "posts"}]
	state.HourResetAt = time.Now().Add(-time.Second)
	l.mu.Unlock()

	allowed, wait = l.CanProceed("testplat", "posts", "")
	if !allowed {
		t.Error("window should reopen once the reset deadline passes")
	}
	if wait != 0 {
		t.Errorf("reopened window should report zero wait, got %d", wait)
	}

	l.mu.Lock()
	if state.HourCount != 0 {
		t.Errorf("hour count should reset to zero, got %d", state.HourCount)
	}
	if !state.HourResetAt.After(time.Now()) {
		t.Error("hour reset deadline should advance into the future")
	}
	l.mu.Unlock()
}

func TestDailyCapReportsZeroWait(t *testing.T) {
	l := New(logger.NewNopLogger())
	l.SetQuota("testplat", 10, 2)

	l.Acquire("testplat", "comments", "")
	l.Acquire("testplat", "comments", "")

	allowed, wait := l.Acquire("testplat", "comments", "")
	if allowed {
		t.Error("exhausted daily window should deny")
	}
	if wait != 0 {
		t.Errorf("daily-bound denial reports zero wait, got %d", wait)
	}
}

func TestBucketsIndependentPerEndpoint(t *testing.T) {
	l := New(logger.NewNopLogger())
	l.SetQuota("testplat", 1, 10)

	l.Acquire("testplat", "profile", "")

	if allowed, _ := l.Acquire("testplat", "profile", ""); allowed {
		t.Error("profile bucket should be exhausted")
	}
	if allowed, _ := l.Acquire("testplat", "posts", ""); !allowed {
		t.Error("posts bucket should be independent of profile")
	}
}

func TestBucketsIndependentPerProxy(t *testing.T) {
	l := New(logger.NewNopLogger())
	l.SetQuota("testplat", 1, 10)

	l.Acquire("testplat", "profile", "proxy1:80")

	if allowed, _ := l.Acquire("testplat", "profile", "proxy1:80"); allowed {
		t.Error("proxy1 bucket should be exhausted")
	}
	if allowed, _ := l.Acquire("testplat", "profile", "proxy2:80"); !allowed {
		t.Error("proxy2 bucket should be independent of proxy1")
	}
}

func TestCanProceedDoesNotConsume(t *testing.T) {
	l := New(logger.NewNopLogger())
	l.SetQuota("testplat", 2, 10)

	for i := 0; i < 5; i++ {
		if allowed, _ := l.CanProceed("testplat", "profile", ""); !allowed {
			t.Fatal("CanProceed must not consume the budget")
		}
	}

	l.mu.Lock()
	state := l.states[bucketKey{platform: "testplat", endpoint: "profile"}]
	if state.HourCount != 0 || state.DayCount != 0 {
		t.Errorf("counters should be untouched, got hour=%d day=%d", state.HourCount, state.DayCount)
	}
	l.mu.Unlock()
}

func TestRecordRequestCounts(t *testing.T) {
	l := New(logger.NewNopLogger())

	l.RecordRequest("instagram", "profile", "")
	l.RecordRequest("instagram", "profile", "")

	l.mu.Lock()
	state := l.states[bucketKey{platform: "instagram", endpoint: "profile"}]
	l.mu.Unlock()

	if state.HourCount != 2 || state.DayCount != 2 {
		t.Errorf("expected both counters at 2, got hour=%d day=%d", state.HourCount, state.DayCount)
	}
	if state.LastRequestAt.IsZero() {
		t.Error("LastRequestAt should be set")
	}
	if state.RequestsPerHour != 200 || state.RequestsPerDay != 4000 {
		t.Errorf("instagram bucket should carry platform defaults, got %d/%d",
			state.RequestsPerHour, state.RequestsPerDay)
	}
}

func TestDailyWindowReset(t *testing.T) {
	l := New(logger.NewNopLogger())
	l.SetQuota("testplat", 100, 2)

	l.Acquire("testplat", "profile", "")
	l.Acquire("testplat", "profile", "")

	if allowed, _ := l.CanProceed("testplat", "profile", ""); allowed {
		t.Fatal("daily window should be exhausted")
	}

	l.mu.Lock()
	state := l.states[bucketKey{platform: "testplat", endpoint: "profile"}]
	state.DayResetAt = time.Now().Add(-time.Second)
	l.mu.Unlock()

	if allowed, _ := l.CanProceed("testplat", "profile", ""); !allowed {
		t.Error("daily window should reopen after UTC midnight passes")
	}

	l.mu.Lock()
	if !state.DayResetAt.After(time.Now()) {
		t.Error("day reset deadline should advance into the future")
	}
	if got := state.DayResetAt.UTC(); got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 {
		t.Errorf("day reset should land on UTC midnight, got %v", got)
	}
	l.mu.Unlock()
}

func TestAcquireAtomicUnderConcurrency(t *testing.T) {
	l := New(logger.NewNopLogger())
	l.SetQuota("testplat", 50, 1000)

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if allowed, _ := l.Acquire("testplat", "profile", ""); allowed {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if granted != 50 {
		t.Errorf("exactly the hourly quota should be granted, got %d", granted)
	}
}

func TestPacer(t *testing.T) {
	p := NewPacer(1000, 1)

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := p.Wait(ctx); err != nil {
			t.Fatalf("pacer wait failed: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("high-rate pacer should admit requests quickly, took %v", elapsed)
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	slow := NewPacer(0.001, 1)
	slow.Allow() // drain the burst token
	if err := slow.Wait(cancelled); err == nil {
		t.Error("pacer should surface context cancellation")
	}
}
