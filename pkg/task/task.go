// Package task models collection work items and their lifecycle. Tasks
// move pending -> running -> completed, detouring through retry with an
// exponential schedule when a run fails, and are kept afterwards as an
// audit trail.
package task

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is a task's position in its lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRetry     Status = "retry"
	StatusCancelled Status = "cancelled"
)

// Priority orders pending work. Higher values run first.
type Priority int

const (
	PriorityLow      Priority = 1
	PriorityNormal   Priority = 5
	PriorityHigh     Priority = 8
	PriorityCritical Priority = 10
)

// Type names what a task collects.
type Type string

const (
	TypeProfile  Type = "profile"
	TypePosts    Type = "posts"
	TypeComments Type = "comments"
)

// DefaultMaxRetries bounds how many failed runs a task survives before it
// is parked as failed.
const DefaultMaxRetries = 3

// ErrInvalidTransition reports a lifecycle move the state machine forbids.
var ErrInvalidTransition = errors.New("task: invalid status transition")

// Task is one unit of collection work. Terminal tasks are retained so the
// store keeps a per-influencer audit of what ran, when and how it ended.
type Task struct {
	ID           string   `json:"id"`
	InfluencerID string   `json:"influencer_id"`
	Platform     string   `json:"platform"`
	Type         Type     `json:"type"`
	TargetID     string   `json:"target_id,omitempty"`
	Status       Status   `json:"status"`
	Priority     Priority `json:"priority"`

	WorkerID    string        `json:"worker_id,omitempty"`
	StartedAt   time.Time     `json:"started_at,omitempty"`
	CompletedAt time.Time     `json:"completed_at,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`

	ItemsCollected int    `json:"items_collected"`
	ItemsFailed    int    `json:"items_failed"`
	ErrorMessage   string `json:"error_message,omitempty"`

	RetryCount  int       `json:"retry_count"`
	MaxRetries  int       `json:"max_retries"`
	NextRetryAt time.Time `json:"next_retry_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a pending task for an influencer on a platform.
func New(influencerID, platformName string, taskType Type, priority Priority) *Task {
	now := time.Now().UTC()
	return &Task{
		ID:           uuid.NewString(),
		InfluencerID: influencerID,
		Platform:     platformName,
		Type:         taskType,
		Status:       StatusPending,
		Priority:     priority,
		MaxRetries:   DefaultMaxRetries,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// MarkStarted moves a pending or retry task to running and records which
// worker picked it up.
func (t *Task) MarkStarted(workerID string) error {
	if t.Status != StatusPending && t.Status != StatusRetry {
		return t.transitionError(StatusRunning)
	}
	t.Status = StatusRunning
	t.WorkerID = workerID
	t.StartedAt = time.Now().UTC()
	t.touch()
	return nil
}

// MarkCompleted moves a running task to completed and records the item
// count and run duration.
func (t *Task) MarkCompleted(itemsCollected int) error {
	if t.Status != StatusRunning {
		return t.transitionError(StatusCompleted)
	}
	t.Status = StatusCompleted
	t.CompletedAt = time.Now().UTC()
	t.ItemsCollected = itemsCollected
	if !t.StartedAt.IsZero() {
		t.Duration = t.CompletedAt.Sub(t.StartedAt)
	}
	t.touch()
	return nil
}

// MarkFailed records a failed run. While retries remain and the failure is
// retryable, the task moves to retry with the next attempt scheduled
// 2^RetryCount minutes out, the exponent taken after the bump (first
// failure +2m, second +4m, third +8m). Otherwise the task parks as failed.
func (t *Task) MarkFailed(errorMessage string, canRetry bool) error {
	if t.Status != StatusRunning {
		return t.transitionError(StatusFailed)
	}
	t.ErrorMessage = errorMessage

	if canRetry && t.RetryCount < t.MaxRetries {
		t.RetryCount++
		t.Status = StatusRetry
		t.NextRetryAt = time.Now().UTC().Add(retryDelay(t.RetryCount))
	} else {
		t.Status = StatusFailed
		t.CompletedAt = time.Now().UTC()
		if !t.StartedAt.IsZero() {
			t.Duration = t.CompletedAt.Sub(t.StartedAt)
		}
	}
	t.touch()
	return nil
}

// Cancel aborts a task that has not reached a terminal state.
func (t *Task) Cancel() error {
	if t.IsTerminal() {
		return t.transitionError(StatusCancelled)
	}
	t.Status = StatusCancelled
	t.touch()
	return nil
}

// CanRetryNow reports whether a retry task's schedule has come due.
func (t *Task) CanRetryNow(now time.Time) bool {
	return t.Status == StatusRetry && !t.NextRetryAt.IsZero() && !now.Before(t.NextRetryAt)
}

// IsTerminal reports whether the task has finished for good.
func (t *Task) IsTerminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed || t.Status == StatusCancelled
}

func (t *Task) touch() {
	t.UpdatedAt = time.Now().UTC()
}

func (t *Task) transitionError(to Status) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, to)
}

func retryDelay(retryCount int) time.Duration {
	return time.Duration(1<<retryCount) * time.Minute
}
