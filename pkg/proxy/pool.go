package proxy

import (
	"context"
	"sort"
	"sync"
	"time"

	"socialharvest/pkg/config"
	"socialharvest/pkg/logger"
)

// Pool manages a shared set of proxy records with least-recently-used
// selection, a session exclusion set and health-checked rotation. All
// record mutation happens under the pool mutex; callers receive snapshot
// copies, never live records.
type Pool struct {
	mu       sync.Mutex
	records  map[string]*Record
	excluded map[string]struct{}
	usage    map[string]int // per-process selection counts, tie-break only

	checker HealthChecker
	logger  logger.Logger
}

// New builds a pool from the proxy configuration block. The pool may be
// empty; callers treat a nil selection as "connect directly".
func New(cfg *config.ProxyConfig, log logger.Logger) *Pool {
	if log == nil {
		log = logger.GetLogger()
	}
	p := &Pool{
		records:  make(map[string]*Record),
		excluded: make(map[string]struct{}),
		usage:    make(map[string]int),
		checker:  NewHealthChecker(cfg.HealthCheckURL, cfg.HealthCheckTimeout()),
		logger:   log.WithField("component", "proxy_pool"),
	}
	p.Load(cfg.Entries, cfg.DefaultDailyLimit)
	return p
}

// Load replaces the pool contents wholesale from configuration entries.
// Session exclusions and usage counters are reset alongside.
func (p *Pool) Load(entries []config.ProxyEntry, defaultDailyLimit int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.records = make(map[string]*Record, len(entries))
	p.excluded = make(map[string]struct{})
	p.usage = make(map[string]int)
	for _, entry := range entries {
		rec := NewRecord(entry, defaultDailyLimit)
		p.records[rec.ID] = rec
	}

	if len(entries) > 0 {
		p.logger.InfoWithFields("proxy pool loaded", map[string]interface{}{
			"proxies": len(entries),
		})
	}
}

// Add registers a single proxy record, replacing any record with the same id
func (p *Pool) Add(rec *Record) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records[rec.ID] = rec
}

// Len returns the number of records in the pool
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.records)
}

// Select returns the best available proxy, or nil when none qualifies.
// Candidates are active proxies above the success-rate floor and under
// their daily limit, minus the session exclusion set; the least recently
// used candidate wins, with the per-process selection count breaking ties.
// The exclusion set clears itself when it would exclude every candidate.
func (p *Pool) Select() *Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selectLocked(time.Now())
}

func (p *Pool) selectLocked(now time.Time) *Record {
	candidates := p.candidatesLocked(now)
	if len(candidates) == 0 {
		return nil
	}

	eligible := make([]*Record, 0, len(candidates))
	for _, rec := range candidates {
		if _, isExcluded := p.excluded[rec.ID]; !isExcluded {
			eligible = append(eligible, rec)
		}
	}

	// The exclusion set never starves the pool: once it would rule out
	// every candidate it is cleared and selection starts over.
	if len(eligible) == 0 {
		p.logger.InfoWithFields("session exclusions cleared", map[string]interface{}{
			"excluded": len(p.excluded),
		})
		p.excluded = make(map[string]struct{})
		eligible = candidates
	}

	sort.Slice(eligible, func(i, j int) bool {
		if !eligible[i].LastUsed.Equal(eligible[j].LastUsed) {
			return eligible[i].LastUsed.Before(eligible[j].LastUsed)
		}
		return p.usage[eligible[i].ID] < p.usage[eligible[j].ID]
	})

	chosen := eligible[0]
	p.usage[chosen.ID]++

	p.logger.DebugWithFields("proxy selected", map[string]interface{}{
		"proxy_id":     chosen.ID,
		"success_rate": chosen.SuccessRate,
	})
	return chosen.clone()
}

// candidatesLocked returns every record currently available for use,
// ignoring the session exclusion set
func (p *Pool) candidatesLocked(now time.Time) []*Record {
	candidates := make([]*Record, 0, len(p.records))
	for _, rec := range p.records {
		rec.resetDailyIfNeeded(now)
		if rec.Available() {
			candidates = append(candidates, rec)
		}
	}
	return candidates
}

// Exclude marks a proxy as failed for the rest of the session
func (p *Pool) Exclude(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.excluded[id] = struct{}{}
}

// Rotate excludes the failed proxy and returns a health-checked replacement,
// or nil when no candidate passes. Each candidate gets a single lightweight
// request through the proxy before being handed out; failures are recorded
// against the candidate and selection moves on. The loop is bounded by the
// pool size, so a fully unhealthy pool terminates with nil.
func (p *Pool) Rotate(ctx context.Context, failedID string) *Record {
	p.mu.Lock()
	if failedID != "" {
		p.excluded[failedID] = struct{}{}
	}
	bound := len(p.records)
	p.mu.Unlock()

	for i := 0; i < bound; i++ {
		p.mu.Lock()
		candidate := p.selectLocked(time.Now())
		p.mu.Unlock()
		if candidate == nil {
			return nil
		}

		// Health check happens outside the lock; it is a network call
		responseTime, err := p.checker.Check(ctx, candidate.URL())
		if err != nil {
			p.logger.WarnWithFields("proxy failed health check", map[string]interface{}{
				"proxy_id": candidate.ID,
				"error":    err.Error(),
			})
			p.RecordUsage(candidate.ID, false, 0)
			p.Exclude(candidate.ID)
			if ctx.Err() != nil {
				return nil
			}
			continue
		}

		p.RecordUsage(candidate.ID, true, responseTime)
		p.logger.InfoWithFields("proxy rotated", map[string]interface{}{
			"failed_proxy": failedID,
			"replacement":  candidate.ID,
		})
		return candidate
	}

	return nil
}

// RecordUsage applies one completed request to a proxy's accounting.
// Unknown ids are ignored.
func (p *Pool) RecordUsage(id string, success bool, responseTimeMs float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.records[id]
	if !ok {
		return
	}

	wasActive := rec.IsActive
	rec.recordUsage(success, responseTimeMs, time.Now())

	if wasActive && !rec.IsActive {
		p.logger.WarnWithFields("proxy auto-deactivated", map[string]interface{}{
			"proxy_id":       rec.ID,
			"success_rate":   rec.SuccessRate,
			"total_requests": rec.TotalRequests,
		})
	}
}

// Snapshot returns a copy of every record, ordered by id, for inspection
func (p *Pool) Snapshot() []*Record {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*Record, 0, len(p.records))
	for _, rec := range p.records {
		out = append(out, rec.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
