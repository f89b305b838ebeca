package orchestrator

import (
	"context"
	"time"

	"socialharvest/pkg/platform"
	"socialharvest/pkg/task"
)

// Storage persists what collectors bring back. Upserts are keyed on
// (externalID, platform) and must be idempotent so reruns refresh rows
// instead of duplicating them.
type Storage interface {
	// Influencer loads a tracked influencer by store ID.
	Influencer(ctx context.Context, influencerID string) (*platform.Influencer, error)

	// TouchInfluencerCollected records when a collection last succeeded.
	TouchInfluencerCollected(ctx context.Context, influencerID string, at time.Time) error

	// Post loads the stored reference a comment collection starts from.
	Post(ctx context.Context, postID string) (*StoredPost, error)

	UpsertProfile(ctx context.Context, influencerID string, profile *platform.Profile) error
	UpsertPosts(ctx context.Context, influencerID string, posts []*platform.Post) error
	UpsertComments(ctx context.Context, postID string, comments []*platform.Comment) error
}

// TaskStore persists the task audit trail.
type TaskStore interface {
	SaveTask(ctx context.Context, t *task.Task) error
	UpdateTask(ctx context.Context, t *task.Task) error
	Task(ctx context.Context, taskID string) (*task.Task, error)

	// DueTasks returns pending tasks plus retry tasks whose schedule has
	// come due, ordered by priority descending then age.
	DueTasks(ctx context.Context, limit int) ([]*task.Task, error)
}

// StoredPost is the slice of a persisted post needed to collect its
// comments: which platform it lives on and its external identifier there.
type StoredPost struct {
	ID           string
	InfluencerID string
	Platform     string
	ExternalID   string
}
