// Package worker runs collection jobs on a bounded pool of goroutines and
// carries the daemon loop that feeds the pool from the store's schedule.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"socialharvest/pkg/logger"
	"socialharvest/pkg/orchestrator"
	"socialharvest/pkg/task"
)

// Job is one collection run request. Profile and posts jobs target an
// influencer; comments jobs target a stored post.
type Job struct {
	Type         task.Type
	InfluencerID string
	PostID       string
	Limit        int
	Force        bool
}

// Result pairs a finished job with its collection outcome.
type Result struct {
	Job        Job
	Collection orchestrator.CollectionResult
	Duration   time.Duration
}

// Engine is the slice of the orchestrator the pool drives.
type Engine interface {
	CollectProfile(ctx context.Context, influencerID string, force bool) orchestrator.CollectionResult
	CollectPosts(ctx context.Context, influencerID string, limit int, force bool) orchestrator.CollectionResult
	CollectComments(ctx context.Context, postID string, limit int) orchestrator.CollectionResult
	ProcessPending(ctx context.Context, maxTasks int) (int, error)
}

// Pool manages concurrent collection workers.
type Pool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	engine      Engine
	logger      logger.Logger
}

// NewPool creates a collection worker pool.
func NewPool(numWorkers int, engine Engine, log logger.Logger) *Pool {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())

	if log == nil {
		log = logger.GetLogger()
	}

	return &Pool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2),
		resultQueue: make(chan Result, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		engine:      engine,
		logger:      log,
	}
}

// Start launches all workers.
func (p *Pool) Start() {
	p.logger.InfoWithFields("starting collection worker pool", map[string]interface{}{
		"num_workers": p.numWorkers,
	})

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop drains the queue and shuts the pool down. No Submit may run
// concurrently with or after Stop.
func (p *Pool) Stop() {
	p.logger.Info("stopping collection worker pool")

	close(p.jobQueue)
	p.wg.Wait()
	close(p.resultQueue)
	p.cancel()

	p.logger.Info("collection worker pool stopped")
}

// Submit adds a collection job to the queue.
func (p *Pool) Submit(job Job) error {
	select {
	case p.jobQueue <- job:
		p.logger.DebugWithFields("job submitted to queue", map[string]interface{}{
			"type":       string(job.Type),
			"influencer": job.InfluencerID,
		})
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	}
}

// Results returns the channel finished jobs are delivered on.
func (p *Pool) Results() <-chan Result {
	return p.resultQueue
}

// QueueSize returns the number of jobs waiting in the queue.
func (p *Pool) QueueSize() int {
	return len(p.jobQueue)
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	p.logger.DebugWithFields("worker started", map[string]interface{}{
		"worker_id": id,
	})

	for job := range p.jobQueue {
		select {
		case <-p.ctx.Done():
			p.logger.DebugWithFields("worker stopping, context cancelled", map[string]interface{}{
				"worker_id": id,
			})
			return
		default:
		}

		result := p.processJob(job, id)

		select {
		case p.resultQueue <- result:
		case <-p.ctx.Done():
			p.logger.DebugWithFields("worker stopping, context cancelled while sending result", map[string]interface{}{
				"worker_id": id,
			})
			return
		}
	}

	p.logger.DebugWithFields("worker stopping, job queue closed", map[string]interface{}{
		"worker_id": id,
	})
}

func (p *Pool) processJob(job Job, workerID int) Result {
	start := time.Now()

	p.logger.DebugWithFields("worker processing job", map[string]interface{}{
		"worker_id":  workerID,
		"type":       string(job.Type),
		"influencer": job.InfluencerID,
	})

	var res orchestrator.CollectionResult
	switch job.Type {
	case task.TypeProfile:
		res = p.engine.CollectProfile(p.ctx, job.InfluencerID, job.Force)
	case task.TypePosts:
		res = p.engine.CollectPosts(p.ctx, job.InfluencerID, job.Limit, job.Force)
	case task.TypeComments:
		res = p.engine.CollectComments(p.ctx, job.PostID, job.Limit)
	default:
		res = orchestrator.CollectionResult{Err: fmt.Errorf("unknown job type %q", job.Type)}
	}

	return Result{
		Job:        job,
		Collection: res,
		Duration:   time.Since(start),
	}
}
