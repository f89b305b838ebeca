package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"socialharvest/pkg/logger"
	"socialharvest/pkg/orchestrator"
	"socialharvest/pkg/platform"
	"socialharvest/pkg/task"
)

// mockEngine counts calls and returns canned results.
type mockEngine struct {
	delay         time.Duration
	failErr       error
	profileCalls  int32
	postsCalls    int32
	commentsCalls int32
	pendingCalls  int32

	mu     sync.Mutex
	forces []bool
}

func (m *mockEngine) result() orchestrator.CollectionResult {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.failErr != nil {
		return orchestrator.CollectionResult{Err: m.failErr}
	}
	return orchestrator.CollectionResult{Success: true, ItemsCollected: 1}
}

func (m *mockEngine) CollectProfile(ctx context.Context, influencerID string, force bool) orchestrator.CollectionResult {
	atomic.AddInt32(&m.profileCalls, 1)
	m.mu.Lock()
	m.forces = append(m.forces, force)
	m.mu.Unlock()
	return m.result()
}

func (m *mockEngine) CollectPosts(ctx context.Context, influencerID string, limit int, force bool) orchestrator.CollectionResult {
	atomic.AddInt32(&m.postsCalls, 1)
	m.mu.Lock()
	m.forces = append(m.forces, force)
	m.mu.Unlock()
	return m.result()
}

func (m *mockEngine) CollectComments(ctx context.Context, postID string, limit int) orchestrator.CollectionResult {
	atomic.AddInt32(&m.commentsCalls, 1)
	return m.result()
}

func (m *mockEngine) ProcessPending(ctx context.Context, maxTasks int) (int, error) {
	atomic.AddInt32(&m.pendingCalls, 1)
	return 0, nil
}

// mockSchedule reports the same influencers due on every sweep.
type mockSchedule struct {
	due   []*platform.Influencer
	calls int32
}

func (m *mockSchedule) DueInfluencers(ctx context.Context, now time.Time) ([]*platform.Influencer, error) {
	atomic.AddInt32(&m.calls, 1)
	return m.due, nil
}

func collectResults(pool *Pool) (*[]Result, *sync.WaitGroup) {
	results := &[]Result{}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for result := range pool.Results() {
			*results = append(*results, result)
		}
	}()
	return results, &wg
}

func TestPoolRunsSubmittedJobs(t *testing.T) {
	engine := &mockEngine{delay: 5 * time.Millisecond}
	pool := NewPool(3, engine, logger.NewTestLogger())
	pool.Start()

	results, wg := collectResults(pool)

	numJobs := 9
	for i := 0; i < numJobs; i++ {
		var job Job
		switch i % 3 {
		case 0:
			job = Job{Type: task.TypeProfile, InfluencerID: fmt.Sprintf("inf-%d", i)}
		case 1:
			job = Job{Type: task.TypePosts, InfluencerID: fmt.Sprintf("inf-%d", i), Limit: 10}
		case 2:
			job = Job{Type: task.TypeComments, PostID: fmt.Sprintf("post-%d", i)}
		}
		if err := pool.Submit(job); err != nil {
			t.Errorf("failed to submit job %d: %v", i, err)
		}
	}

	pool.Stop()
	wg.Wait()

	if len(*results) != numJobs {
		t.Fatalf("expected %d results, got %d", numJobs, len(*results))
	}
	for _, result := range *results {
		if !result.Collection.Success {
			t.Errorf("expected success for %s job, got %+v", result.Job.Type, result.Collection)
		}
		if result.Duration <= 0 {
			t.Error("expected a positive duration")
		}
	}

	if n := atomic.LoadInt32(&engine.profileCalls); n != 3 {
		t.Errorf("expected 3 profile calls, got %d", n)
	}
	if n := atomic.LoadInt32(&engine.postsCalls); n != 3 {
		t.Errorf("expected 3 posts calls, got %d", n)
	}
	if n := atomic.LoadInt32(&engine.commentsCalls); n != 3 {
		t.Errorf("expected 3 comments calls, got %d", n)
	}
}

func TestPoolReportsFailures(t *testing.T) {
	engine := &mockEngine{failErr: errors.New("upstream down")}
	pool := NewPool(2, engine, logger.NewTestLogger())
	pool.Start()

	results, wg := collectResults(pool)

	numJobs := 5
	for i := 0; i < numJobs; i++ {
		if err := pool.Submit(Job{Type: task.TypeProfile, InfluencerID: fmt.Sprintf("inf-%d", i)}); err != nil {
			t.Errorf("failed to submit job %d: %v", i, err)
		}
	}

	pool.Stop()
	wg.Wait()

	if len(*results) != numJobs {
		t.Fatalf("expected %d results, got %d", numJobs, len(*results))
	}
	for _, result := range *results {
		if result.Collection.Success {
			t.Error("expected every job to fail")
		}
		if result.Collection.Err == nil {
			t.Error("expected an error in the result")
		}
	}
}

func TestPoolConcurrency(t *testing.T) {
	engine := &mockEngine{delay: 100 * time.Millisecond}
	pool := NewPool(5, engine, logger.NewTestLogger())
	pool.Start()

	results, wg := collectResults(pool)

	numJobs := 10
	start := time.Now()
	for i := 0; i < numJobs; i++ {
		if err := pool.Submit(Job{Type: task.TypeProfile, InfluencerID: fmt.Sprintf("inf-%d", i)}); err != nil {
			t.Errorf("failed to submit job %d: %v", i, err)
		}
	}

	pool.Stop()
	wg.Wait()

	// 10 jobs at 100ms across 5 workers should take about two rounds.
	elapsed := time.Since(start)
	if elapsed > 400*time.Millisecond {
		t.Errorf("jobs took too long: %v", elapsed)
	}
	if len(*results) != numJobs {
		t.Fatalf("expected %d results, got %d", numJobs, len(*results))
	}
}

func TestPoolRejectsUnknownJobType(t *testing.T) {
	engine := &mockEngine{}
	pool := NewPool(1, engine, logger.NewTestLogger())
	pool.Start()

	results, wg := collectResults(pool)

	if err := pool.Submit(Job{Type: task.Type("reels")}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	pool.Stop()
	wg.Wait()

	if len(*results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(*results))
	}
	if (*results)[0].Collection.Err == nil {
		t.Error("expected an error for an unknown job type")
	}
}

func TestDaemonSweepEnqueuesDueWork(t *testing.T) {
	engine := &mockEngine{}
	schedule := &mockSchedule{due: []*platform.Influencer{
		{ID: "inf-1", Platform: platform.Instagram, Username: "nasa"},
	}}
	pool := NewPool(2, engine, logger.NewTestLogger())
	daemon := NewDaemon(pool, schedule, engine, 10*time.Millisecond, 25, logger.NewTestLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	err := daemon.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error from Run, got %v", err)
	}

	if n := atomic.LoadInt32(&schedule.calls); n < 1 {
		t.Error("expected at least one schedule poll")
	}
	if n := atomic.LoadInt32(&engine.pendingCalls); n < 1 {
		t.Error("expected at least one due-task drain")
	}
	if n := atomic.LoadInt32(&engine.profileCalls); n < 1 {
		t.Error("expected at least one profile job")
	}
	if n := atomic.LoadInt32(&engine.postsCalls); n < 1 {
		t.Error("expected at least one posts job")
	}

	// Daemon-scheduled jobs bypass the per-run interval gate; the
	// schedule already decided dueness.
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if len(engine.forces) == 0 {
		t.Fatal("expected recorded collection calls")
	}
	for _, force := range engine.forces {
		if !force {
			t.Error("expected daemon jobs to run with force")
		}
	}
}
