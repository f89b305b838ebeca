package task

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	tk := New("inf-1", "instagram", TypePosts, PriorityHigh)

	if tk.ID == "" || len(tk.ID) != 36 {
		t.Errorf("expected a UUID id, got %q", tk.ID)
	}
	if tk.Status != StatusPending {
		t.Errorf("new task status = %s, want pending", tk.Status)
	}
	if tk.Priority != PriorityHigh {
		t.Errorf("priority = %d, want %d", tk.Priority, PriorityHigh)
	}
	if tk.MaxRetries != DefaultMaxRetries {
		t.Errorf("max retries = %d, want %d", tk.MaxRetries, DefaultMaxRetries)
	}
	if tk.RetryCount != 0 {
		t.Errorf("retry count = %d, want 0", tk.RetryCount)
	}
	if tk.CreatedAt.IsZero() || tk.UpdatedAt.IsZero() {
		t.Error("timestamps not initialized")
	}
}

func TestPriorityValues(t *testing.T) {
	if PriorityLow != 1 || PriorityNormal != 5 || PriorityHigh != 8 || PriorityCritical != 10 {
		t.Errorf("priority values drifted: low=%d normal=%d high=%d critical=%d",
			PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical)
	}
}

func TestLifecycleHappyPath(t *testing.T) {
	tk := New("inf-1", "instagram", TypeProfile, PriorityNormal)

	if err := tk.MarkStarted("worker-1"); err != nil {
		t.Fatalf("MarkStarted: %v", err)
	}
	if tk.Status != StatusRunning {
		t.Fatalf("status = %s, want running", tk.Status)
	}
	if tk.WorkerID != "worker-1" || tk.StartedAt.IsZero() {
		t.Error("start bookkeeping missing")
	}

	if err := tk.MarkCompleted(42); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if tk.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", tk.Status)
	}
	if tk.ItemsCollected != 42 {
		t.Errorf("items collected = %d, want 42", tk.ItemsCollected)
	}
	if tk.CompletedAt.IsZero() || tk.Duration < 0 {
		t.Error("completion bookkeeping missing")
	}
	if !tk.IsTerminal() {
		t.Error("completed task should be terminal")
	}
}

func TestRetrySchedule(t *testing.T) {
	tk := New("inf-1", "instagram", TypePosts, PriorityNormal)

	// Delay doubles per failure: 2m, 4m, 8m.
	for i, wantDelay := range []time.Duration{2 * time.Minute, 4 * time.Minute, 8 * time.Minute} {
		if err := tk.MarkStarted("worker-1"); err != nil {
			t.Fatalf("failure %d MarkStarted: %v", i+1, err)
		}
		before := time.Now().UTC()
		if err := tk.MarkFailed("boom", true); err != nil {
			t.Fatalf("failure %d MarkFailed: %v", i+1, err)
		}

		if tk.Status != StatusRetry {
			t.Fatalf("failure %d status = %s, want retry", i+1, tk.Status)
		}
		if tk.RetryCount != i+1 {
			t.Fatalf("failure %d retry count = %d, want %d", i+1, tk.RetryCount, i+1)
		}
		got := tk.NextRetryAt.Sub(before)
		if got < wantDelay || got > wantDelay+5*time.Second {
			t.Errorf("failure %d next retry in %v, want about %v", i+1, got, wantDelay)
		}
	}
}

func TestFailedAfterRetriesExhausted(t *testing.T) {
	tk := New("inf-1", "instagram", TypePosts, PriorityNormal)

	// Three failures leave retries on the table, the fourth parks the task.
	for i := 0; i < 4; i++ {
		if err := tk.MarkStarted("worker-1"); err != nil {
			t.Fatalf("attempt %d MarkStarted: %v", i+1, err)
		}
		if err := tk.MarkFailed("boom", true); err != nil {
			t.Fatalf("attempt %d MarkFailed: %v", i+1, err)
		}
	}

	if tk.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", tk.Status)
	}
	if tk.RetryCount != 3 {
		t.Errorf("retry count = %d, want 3", tk.RetryCount)
	}
	if !tk.IsTerminal() {
		t.Error("failed task should be terminal")
	}
}

func TestCompletesAfterRetries(t *testing.T) {
	tk := New("inf-1", "instagram", TypePosts, PriorityNormal)

	for i := 0; i < 2; i++ {
		if err := tk.MarkStarted("worker-1"); err != nil {
			t.Fatalf("MarkStarted: %v", err)
		}
		if err := tk.MarkFailed("transient", true); err != nil {
			t.Fatalf("MarkFailed: %v", err)
		}
	}
	if err := tk.MarkStarted("worker-1"); err != nil {
		t.Fatalf("final MarkStarted: %v", err)
	}
	if err := tk.MarkCompleted(10); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	if tk.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", tk.Status)
	}
	if tk.RetryCount != 2 {
		t.Errorf("retry count = %d, want 2", tk.RetryCount)
	}
}

func TestNonRetryableFailureParksImmediately(t *testing.T) {
	tk := New("inf-1", "instagram", TypeProfile, PriorityNormal)

	if err := tk.MarkStarted("worker-1"); err != nil {
		t.Fatalf("MarkStarted: %v", err)
	}
	if err := tk.MarkFailed("authentication expired", false); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	if tk.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", tk.Status)
	}
	if tk.RetryCount != 0 {
		t.Errorf("retry count = %d, want 0", tk.RetryCount)
	}
	if tk.ErrorMessage != "authentication expired" {
		t.Errorf("error message = %q", tk.ErrorMessage)
	}
}

func TestCanRetryNow(t *testing.T) {
	tk := New("inf-1", "instagram", TypePosts, PriorityNormal)
	now := time.Now().UTC()

	if tk.CanRetryNow(now) {
		t.Error("pending task should not be retry-due")
	}

	tk.Status = StatusRetry
	tk.NextRetryAt = now.Add(time.Minute)
	if tk.CanRetryNow(now) {
		t.Error("future schedule should not be due")
	}

	tk.NextRetryAt = now.Add(-time.Second)
	if !tk.CanRetryNow(now) {
		t.Error("past schedule should be due")
	}

	if !tk.CanRetryNow(tk.NextRetryAt) {
		t.Error("exactly at the schedule should count as due")
	}
}

func TestCancel(t *testing.T) {
	tk := New("inf-1", "instagram", TypePosts, PriorityNormal)
	if err := tk.Cancel(); err != nil {
		t.Fatalf("cancelling a pending task: %v", err)
	}
	if tk.Status != StatusCancelled {
		t.Fatalf("status = %s, want cancelled", tk.Status)
	}

	running := New("inf-1", "instagram", TypePosts, PriorityNormal)
	if err := running.MarkStarted("worker-1"); err != nil {
		t.Fatal(err)
	}
	if err := running.Cancel(); err != nil {
		t.Fatalf("cancelling a running task: %v", err)
	}

	done := New("inf-1", "instagram", TypePosts, PriorityNormal)
	if err := done.MarkStarted("worker-1"); err != nil {
		t.Fatal(err)
	}
	if err := done.MarkCompleted(1); err != nil {
		t.Fatal(err)
	}
	if err := done.Cancel(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("cancelling a completed task = %v, want ErrInvalidTransition", err)
	}
}

func TestInvalidTransitions(t *testing.T) {
	tk := New("inf-1", "instagram", TypePosts, PriorityNormal)

	if err := tk.MarkCompleted(1); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("completing a pending task = %v, want ErrInvalidTransition", err)
	}
	if err := tk.MarkFailed("x", true); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("failing a pending task = %v, want ErrInvalidTransition", err)
	}

	if err := tk.MarkStarted("w"); err != nil {
		t.Fatal(err)
	}
	if err := tk.MarkStarted("w"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("starting a running task = %v, want ErrInvalidTransition", err)
	}

	if err := tk.MarkCompleted(1); err != nil {
		t.Fatal(err)
	}
	err := tk.MarkStarted("w")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("restarting a completed task = %v, want ErrInvalidTransition", err)
	}
	if !strings.Contains(err.Error(), "completed -> running") {
		t.Errorf("transition error should name both states, got %q", err)
	}
}
