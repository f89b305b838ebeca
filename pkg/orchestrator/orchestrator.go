package orchestrator

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/semaphore"

	"socialharvest/pkg/errors"
	"socialharvest/pkg/logger"
	"socialharvest/pkg/platform"
	"socialharvest/pkg/task"
)

// DefaultGateSize bounds concurrent collection operations when the
// caller passes none.
const DefaultGateSize = 10

// Orchestrator drives collection operations end to end: task audit,
// interval checks, the collector call, persistence and error-to-result
// mapping. Dependencies are constructor-injected.
type Orchestrator struct {
	registry *platform.Registry
	storage  Storage
	tasks    TaskStore
	gate     *semaphore.Weighted
	logger   logger.Logger
	workerID string
	closers  []interface{ Close() }
}

// New builds an orchestrator around a collector registry and the two
// persistence boundaries. gateSize bounds concurrent operations; zero or
// negative selects DefaultGateSize.
func New(registry *platform.Registry, storage Storage, tasks TaskStore, gateSize int, log logger.Logger) *Orchestrator {
	if gateSize <= 0 {
		gateSize = DefaultGateSize
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "local"
	}
	return &Orchestrator{
		registry: registry,
		storage:  storage,
		tasks:    tasks,
		gate:     semaphore.NewWeighted(int64(gateSize)),
		logger:   log.WithField("component", "orchestrator"),
		workerID: fmt.Sprintf("%s-%d", hostname, os.Getpid()),
	}
}

// Manage registers a resource to close when the orchestrator shuts down,
// typically each platform's request executor.
func (o *Orchestrator) Manage(c interface{ Close() }) {
	o.closers = append(o.closers, c)
}

// Close releases managed resources. Idle connections held by executors
// are dropped here.
func (o *Orchestrator) Close() {
	for _, c := range o.closers {
		c.Close()
	}
	o.logger.Debug("orchestrator closed")
}

// CollectProfile refreshes one influencer's profile. With force false the
// operation is skipped, successfully, while the influencer's collection
// interval has not elapsed.
func (o *Orchestrator) CollectProfile(ctx context.Context, influencerID string, force bool) CollectionResult {
	inf, collector, result, ok := o.prepare(ctx, influencerID, force)
	if !ok {
		return result
	}

	tk := task.New(influencerID, inf.Platform, task.TypeProfile, task.PriorityNormal)
	if err := o.tasks.SaveTask(ctx, tk); err != nil {
		return resultFromError("", fmt.Errorf("saving task: %w", err))
	}

	return o.run(ctx, tk, o.profileWork(inf, collector))
}

// CollectPosts gathers up to limit recent posts for an influencer. limit
// zero or negative lets the collector apply its platform default.
func (o *Orchestrator) CollectPosts(ctx context.Context, influencerID string, limit int, force bool) CollectionResult {
	inf, collector, result, ok := o.prepare(ctx, influencerID, force)
	if !ok {
		return result
	}

	tk := task.New(influencerID, inf.Platform, task.TypePosts, task.PriorityNormal)
	if err := o.tasks.SaveTask(ctx, tk); err != nil {
		return resultFromError("", fmt.Errorf("saving task: %w", err))
	}

	return o.run(ctx, tk, o.postsWork(inf, collector, limit))
}

// CollectComments gathers up to limit comments for a stored post.
func (o *Orchestrator) CollectComments(ctx context.Context, postID string, limit int) CollectionResult {
	post, err := o.storage.Post(ctx, postID)
	if err != nil {
		return resultFromError("", fmt.Errorf("loading post %s: %w", postID, err))
	}

	collector, ok := o.registry.Get(post.Platform)
	if !ok {
		return resultFromError("", noCollectorError(post.Platform))
	}

	tk := task.New(post.InfluencerID, post.Platform, task.TypeComments, task.PriorityNormal)
	tk.TargetID = postID
	if err := o.tasks.SaveTask(ctx, tk); err != nil {
		return resultFromError("", fmt.Errorf("saving task: %w", err))
	}

	return o.run(ctx, tk, o.commentsWork(post, collector, limit))
}

// ProcessPending pulls due tasks, pending plus retry tasks whose schedule
// has passed, and drives each through the collection flow. It returns how
// many tasks were run; per-task outcomes land on the task rows.
func (o *Orchestrator) ProcessPending(ctx context.Context, maxTasks int) (int, error) {
	if maxTasks <= 0 {
		maxTasks = DefaultGateSize
	}

	due, err := o.tasks.DueTasks(ctx, maxTasks)
	if err != nil {
		return 0, fmt.Errorf("loading due tasks: %w", err)
	}

	processed := 0
	for _, tk := range due {
		if ctx.Err() != nil {
			break
		}
		if tk.Status == task.StatusCancelled || tk.IsTerminal() {
			continue
		}

		result := o.runTask(ctx, tk)
		processed++

		if result.Err != nil {
			o.logger.WarnWithFields("task run failed", map[string]interface{}{
				"task_id": tk.ID,
				"type":    string(tk.Type),
				"status":  string(tk.Status),
				"error":   result.Err.Error(),
			})
		}
	}
	return processed, nil
}

// runTask rebuilds the collection work a stored task describes and runs it.
func (o *Orchestrator) runTask(ctx context.Context, tk *task.Task) CollectionResult {
	switch tk.Type {
	case task.TypeProfile, task.TypePosts:
		inf, err := o.storage.Influencer(ctx, tk.InfluencerID)
		if err != nil {
			return o.failTask(ctx, tk, fmt.Errorf("loading influencer %s: %w", tk.InfluencerID, err))
		}
		collector, ok := o.registry.Get(inf.Platform)
		if !ok {
			return o.failTask(ctx, tk, noCollectorError(inf.Platform))
		}
		if tk.Type == task.TypeProfile {
			return o.run(ctx, tk, o.profileWork(inf, collector))
		}
		return o.run(ctx, tk, o.postsWork(inf, collector, 0))

	case task.TypeComments:
		post, err := o.storage.Post(ctx, tk.TargetID)
		if err != nil {
			return o.failTask(ctx, tk, fmt.Errorf("loading post %s: %w", tk.TargetID, err))
		}
		collector, ok := o.registry.Get(post.Platform)
		if !ok {
			return o.failTask(ctx, tk, noCollectorError(post.Platform))
		}
		return o.run(ctx, tk, o.commentsWork(post, collector, 0))

	default:
		return o.failTask(ctx, tk, &errors.Error{
			Type:    errors.ErrorTypeClient,
			Message: fmt.Sprintf("unknown task type %q", tk.Type),
		})
	}
}

// prepare resolves the influencer and collector for an operation and
// applies the interval short-circuit. ok false means the returned result
// is final.
func (o *Orchestrator) prepare(ctx context.Context, influencerID string, force bool) (*platform.Influencer, platform.Collector, CollectionResult, bool) {
	inf, err := o.storage.Influencer(ctx, influencerID)
	if err != nil {
		return nil, nil, resultFromError("", fmt.Errorf("loading influencer %s: %w", influencerID, err)), false
	}

	collector, ok := o.registry.Get(inf.Platform)
	if !ok {
		return nil, nil, resultFromError("", noCollectorError(inf.Platform)), false
	}

	if !force && !inf.CollectionDue(time.Now().UTC()) {
		o.logger.DebugWithFields("collection interval not elapsed, skipping", map[string]interface{}{
			"influencer":     influencerID,
			"platform":       inf.Platform,
			"last_collected": inf.LastCollected,
		})
		return nil, nil, CollectionResult{Success: true, Skipped: true}, false
	}

	return inf, collector, CollectionResult{}, true
}

// run drives one task through running to its terminal state under the
// concurrency gate.
func (o *Orchestrator) run(ctx context.Context, tk *task.Task, work func(ctx context.Context) (interface{}, int, error)) CollectionResult {
	if err := o.gate.Acquire(ctx, 1); err != nil {
		// Only context cancellation gets here; the task never ran.
		if cancelErr := tk.Cancel(); cancelErr == nil {
			o.updateTask(ctx, tk)
		}
		return resultFromError(tk.ID, err)
	}
	defer o.gate.Release(1)

	from := tk.Status
	if err := tk.MarkStarted(o.workerID); err != nil {
		return resultFromError(tk.ID, err)
	}
	o.updateTask(ctx, tk)
	logger.LogTaskTransition(tk.ID, string(from), string(task.StatusRunning))

	data, items, err := work(ctx)
	if err != nil {
		return o.failTask(ctx, tk, err)
	}

	if markErr := tk.MarkCompleted(items); markErr != nil {
		o.logger.WithError(markErr).Warn("completing task record")
	}
	o.updateTask(ctx, tk)

	return CollectionResult{
		Success:        true,
		TaskID:         tk.ID,
		ItemsCollected: items,
		Data:           data,
	}
}

func (o *Orchestrator) profileWork(inf *platform.Influencer, collector platform.Collector) func(ctx context.Context) (interface{}, int, error) {
	return func(ctx context.Context) (interface{}, int, error) {
		profile, err := collector.CollectProfile(ctx, inf.Username)
		if err != nil {
			return nil, 0, err
		}
		if err := o.storage.UpsertProfile(ctx, inf.ID, profile); err != nil {
			return nil, 0, err
		}
		o.touchCollected(ctx, inf.ID)
		logger.LogCollection(inf.Platform, inf.ID, "profile", 1, nil)
		return profile, 1, nil
	}
}

func (o *Orchestrator) postsWork(inf *platform.Influencer, collector platform.Collector, limit int) func(ctx context.Context) (interface{}, int, error) {
	return func(ctx context.Context) (interface{}, int, error) {
		externalID, err := o.resolveExternalID(ctx, inf, collector)
		if err != nil {
			return nil, 0, err
		}

		posts, err := collector.CollectPosts(ctx, externalID, limit)
		if err != nil {
			return nil, 0, err
		}
		if err := o.storage.UpsertPosts(ctx, inf.ID, posts); err != nil {
			return nil, 0, err
		}
		o.touchCollected(ctx, inf.ID)
		logger.LogCollection(inf.Platform, inf.ID, "posts", len(posts), nil)
		return posts, len(posts), nil
	}
}

func (o *Orchestrator) commentsWork(post *StoredPost, collector platform.Collector, limit int) func(ctx context.Context) (interface{}, int, error) {
	return func(ctx context.Context) (interface{}, int, error) {
		comments, err := collector.CollectComments(ctx, post.ExternalID, limit)
		if err != nil {
			return nil, 0, err
		}
		if err := o.storage.UpsertComments(ctx, post.ID, comments); err != nil {
			return nil, 0, err
		}
		logger.LogCollection(post.Platform, post.InfluencerID, "comments", len(comments), nil)
		return comments, len(comments), nil
	}
}

// resolveExternalID returns the influencer's platform-side ID, collecting
// the profile to discover it when the store does not know it yet. Posts
// pagination needs the numeric ID, not the handle.
func (o *Orchestrator) resolveExternalID(ctx context.Context, inf *platform.Influencer, collector platform.Collector) (string, error) {
	if inf.ExternalID != "" {
		return inf.ExternalID, nil
	}

	profile, err := collector.CollectProfile(ctx, inf.Username)
	if err != nil {
		return "", err
	}
	if err := o.storage.UpsertProfile(ctx, inf.ID, profile); err != nil {
		o.logger.WithError(err).WithField("influencer", inf.ID).Warn("persisting resolved profile")
	}
	return profile.ExternalID, nil
}

// failTask records a failed run on the task and maps the error onto the
// result. Retryable failures reschedule, the rest park the task as failed.
func (o *Orchestrator) failTask(ctx context.Context, tk *task.Task, err error) CollectionResult {
	from := tk.Status
	if markErr := tk.MarkFailed(err.Error(), taskRetryable(err)); markErr != nil {
		// The task never reached running (its influencer or post failed to
		// load); park it directly so it is not retried blindly.
		tk.Status = task.StatusFailed
		tk.ErrorMessage = err.Error()
	}
	o.updateTask(ctx, tk)
	logger.LogTaskTransition(tk.ID, string(from), string(tk.Status))

	return resultFromError(tk.ID, err)
}

// touchCollected stamps a successful collection; losing the stamp only
// makes the next interval check conservative, so it never fails the run.
func (o *Orchestrator) touchCollected(ctx context.Context, influencerID string) {
	if err := o.storage.TouchInfluencerCollected(ctx, influencerID, time.Now().UTC()); err != nil {
		o.logger.WithError(err).WithField("influencer", influencerID).Warn("updating last collected timestamp")
	}
}

// updateTask persists task state best-effort; an audit write failure must
// not undo a collection that already happened.
func (o *Orchestrator) updateTask(ctx context.Context, tk *task.Task) {
	if err := o.tasks.UpdateTask(ctx, tk); err != nil {
		o.logger.WithError(err).WithField("task_id", tk.ID).Warn("persisting task state")
	}
}

func noCollectorError(platformName string) error {
	return &errors.Error{
		Type:    errors.ErrorTypeClient,
		Message: fmt.Sprintf("no collector registered for platform %q", platformName),
	}
}
