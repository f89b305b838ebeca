package worker

import (
	"context"
	"time"

	"socialharvest/pkg/logger"
	"socialharvest/pkg/platform"
	"socialharvest/pkg/task"
)

// Default daemon tuning.
const (
	DefaultPollInterval = time.Minute
	DefaultDrainBatch   = 10
)

// Scheduler yields the influencers whose collection interval has
// elapsed. The sqlite store satisfies it.
type Scheduler interface {
	DueInfluencers(ctx context.Context, now time.Time) ([]*platform.Influencer, error)
}

// Daemon periodically drains due tasks and enqueues collection jobs for
// due influencers onto the pool.
type Daemon struct {
	pool       *Pool
	schedule   Scheduler
	engine     Engine
	interval   time.Duration
	postLimit  int
	drainBatch int
	logger     logger.Logger
}

// NewDaemon wires a daemon around a pool. A zero interval falls back to
// DefaultPollInterval; postLimit caps how many posts each sweep collects
// per influencer, zero meaning the collector's default.
func NewDaemon(pool *Pool, schedule Scheduler, engine Engine, interval time.Duration, postLimit int, log logger.Logger) *Daemon {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Daemon{
		pool:       pool,
		schedule:   schedule,
		engine:     engine,
		interval:   interval,
		postLimit:  postLimit,
		drainBatch: DefaultDrainBatch,
		logger:     log,
	}
}

// Run starts the pool and loops until ctx is cancelled: each tick first
// drains retry and pending tasks, then enqueues profile and posts jobs
// for every influencer the schedule reports due. The pool is stopped
// only after the sweep loop exits so no submit races the queue close.
func (d *Daemon) Run(ctx context.Context) error {
	d.pool.Start()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for res := range d.pool.Results() {
			d.logResult(res)
		}
	}()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			d.pool.Stop()
			<-done
			return ctx.Err()
		case <-ticker.C:
			d.sweep(ctx)
		}
	}
}

func (d *Daemon) sweep(ctx context.Context) {
	if n, err := d.engine.ProcessPending(ctx, d.drainBatch); err != nil {
		d.logger.WithError(err).Warn("draining due tasks")
	} else if n > 0 {
		d.logger.InfoWithFields("drained due tasks", map[string]interface{}{
			"processed": n,
		})
	}

	due, err := d.schedule.DueInfluencers(ctx, time.Now().UTC())
	if err != nil {
		d.logger.WithError(err).Warn("listing due influencers")
		return
	}

	for _, inf := range due {
		// Force: the schedule already decided dueness, and the profile
		// job's success stamps last_collected, which would otherwise
		// skip the posts job queued right behind it.
		if err := d.pool.Submit(Job{Type: task.TypeProfile, InfluencerID: inf.ID, Force: true}); err != nil {
			return
		}
		if err := d.pool.Submit(Job{Type: task.TypePosts, InfluencerID: inf.ID, Limit: d.postLimit, Force: true}); err != nil {
			return
		}
	}
	if len(due) > 0 {
		d.logger.InfoWithFields("enqueued due influencers", map[string]interface{}{
			"count": len(due),
		})
	}
}

func (d *Daemon) logResult(res Result) {
	fields := map[string]interface{}{
		"type":        string(res.Job.Type),
		"influencer":  res.Job.InfluencerID,
		"task_id":     res.Collection.TaskID,
		"duration_ms": res.Duration.Milliseconds(),
	}
	switch {
	case res.Collection.Skipped:
		d.logger.DebugWithFields("collection skipped, interval not elapsed", fields)
	case res.Collection.Err != nil:
		fields["error"] = res.Collection.Err.Error()
		if res.Collection.RateLimited {
			fields["retry_after_seconds"] = res.Collection.RetryAfterSeconds
		}
		d.logger.ErrorWithFields("collection failed", fields)
	default:
		fields["items"] = res.Collection.ItemsCollected
		d.logger.InfoWithFields("collection finished", fields)
	}
}
