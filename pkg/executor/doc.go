// Package executor issues outbound platform requests with proxy
// rotation, rate-limit gating and bounded retries.
//
// Every call runs the same loop: pace, acquire a rate-limit slot, pin a
// proxy, send, classify. Transient outcomes (5xx, timeouts, proxy
// connection failures) are retried with exponential backoff up to the
// configured attempt budget. Rate-limited and authentication responses
// are never retried here; they surface as typed errors so the task
// scheduler decides when to come back.
//
// Example usage:
//
//	exec := executor.New(cfg, "instagram", pool, limiter, log)
//	defer exec.Close()
//
//	resp, err := exec.Execute(ctx, "profile", http.MethodGet, url, nil)
//	if err != nil {
//	    if errors.IsRateLimited(err) {
//	        // Reschedule after errors.RetryAfterSeconds(err)
//	    }
//	    return err
//	}
//	user := resp.Data["user"]
package executor
