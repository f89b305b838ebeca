// Package ratelimit enforces per-platform request budgets for the
// collection engine.
//
// This package keeps collection under each platform's tolerated request
// volume to avoid blocks and account flags.
//
// Two cooperating pieces:
//
// Window Limiter:
//   - Fixed hour and day windows per (platform, endpoint, proxy) bucket
//   - Buckets created lazily with platform quotas, never deleted
//   - Hourly windows reset at the top of the hour, daily windows at UTC
//     midnight
//   - Denials report seconds until the hourly window reopens; a bound
//     daily cap reports zero so callers surface the denial instead of
//     sleeping until midnight
//
// Pacer:
//   - Process-wide token bucket (golang.org/x/time/rate) smoothing bursts
//     below the window quotas
//
// Usage:
//
//	limiter := ratelimit.New(logger.GetLogger())
//	limiter.SetQuota("instagram", 200, 4000)
//
//	allowed, wait := limiter.Acquire("instagram", "profile", "")
//	if !allowed {
//	    // wait seconds until the hourly window reopens, 0 if day-capped
//	}
//
//	pacer := ratelimit.NewPacer(2.0, 1)
//	if err := pacer.Wait(ctx); err != nil {
//	    // context cancelled while pacing
//	}
//
// Acquire combines the check and the count in one critical section;
// CanProceed/RecordRequest are the split variant for callers that need to
// look before they leap.
package ratelimit
