// Package retry provides exponential backoff and retry logic for handling
// transient failures in network operations across collection platforms.
//
// Features:
//   - Multiple backoff strategies (exponential, linear, constant)
//   - Jitter to avoid thundering herd problems
//   - Context support for cancellation
//   - Configurable retry predicates
//   - Integration with the engine's typed errors
//
// Basic usage:
//
//	// Simple retry with defaults
//	err := retry.Do(func() error {
//		return checker.Check(proxyURL)
//	}, nil)
//
//	// Custom configuration
//	cfg := &retry.Config{
//		MaxAttempts: 5,
//		Backoff: &retry.ExponentialBackoff{
//			BaseDelay:    2 * time.Second,
//			MaxDelay:     30 * time.Second,
//			Multiplier:   2.0,
//			JitterFactor: 0.1,
//		},
//		RetryIf: retry.DefaultRetryIf,
//		Logger:  logger.GetLogger(),
//	}
//	err := retry.Do(operation, cfg)
//
// Attempts passed to BackoffStrategy.NextDelay are zero-based, so an
// ExponentialBackoff with BaseDelay 1s and Multiplier 2 yields delays of
// 1s, 2s, 4s for attempts 0, 1, 2.
//
// Rate-limited and auth errors are never retried by DefaultRetryIf: the
// task scheduler owns recovery for both, using the server's retry-after
// hint where one was provided.
package retry
