package orchestrator

import (
	"socialharvest/pkg/errors"
)

// CollectionResult is the synchronous outcome of one orchestrated
// operation. It is returned to the caller and never persisted; the task
// row carries the durable record.
type CollectionResult struct {
	Success        bool
	Skipped        bool
	TaskID         string
	ItemsCollected int

	// Data holds the collected records: *platform.Profile,
	// []*platform.Post or []*platform.Comment depending on the operation.
	Data interface{}

	Err               error
	RateLimited       bool
	RetryAfterSeconds int
	ProxyFailed       bool
	AuthFailed        bool
}

// resultFromError maps a typed collection error onto the result flags
// callers branch on.
func resultFromError(taskID string, err error) CollectionResult {
	result := CollectionResult{TaskID: taskID, Err: err}

	if typed, ok := errors.AsError(err); ok {
		switch typed.Type {
		case errors.ErrorTypeRateLimited:
			result.RateLimited = true
			result.RetryAfterSeconds = typed.RetryAfter
		case errors.ErrorTypeProxy:
			result.ProxyFailed = true
		case errors.ErrorTypeAuth:
			result.AuthFailed = true
		}
	}
	return result
}

// taskRetryable reports whether a failure should reschedule the task.
// Rate limits and exhausted request budgets clear on their own, so the
// task lifecycle retries them even though the executor does not.
func taskRetryable(err error) bool {
	typed, ok := errors.AsError(err)
	if !ok {
		return true
	}
	switch typed.Type {
	case errors.ErrorTypeAuth, errors.ErrorTypeClient, errors.ErrorTypeNotFound, errors.ErrorTypeParsing:
		return false
	}
	return true
}
