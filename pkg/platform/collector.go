package platform

import (
	"context"
	"sort"
	"sync"
)

// Collector is the per-platform collection strategy. Each collection
// method issues its requests through the shared executor and returns
// normalized records; the Normalize methods are exposed separately so
// raw payloads captured elsewhere can be reprocessed.
type Collector interface {
	Platform() string
	Authenticate(ctx context.Context) error
	CollectProfile(ctx context.Context, handle string) (*Profile, error)
	CollectPosts(ctx context.Context, userID string, limit int) ([]*Post, error)
	CollectComments(ctx context.Context, postID string, limit int) ([]*Comment, error)
	NormalizeProfile(raw map[string]interface{}) (*Profile, error)
	NormalizePost(raw map[string]interface{}) (*Post, error)
	NormalizeComment(raw map[string]interface{}) (*Comment, error)
}

// Registry maps platform identifiers to their collectors.
type Registry struct {
	mu         sync.RWMutex
	collectors map[string]Collector
}

func NewRegistry() *Registry {
	return &Registry{collectors: make(map[string]Collector)}
}

// Register adds a collector under its own platform identifier,
// replacing any previous registration.
func (r *Registry) Register(c Collector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collectors[c.Platform()] = c
}

// Get returns the collector for a platform identifier.
func (r *Registry) Get(platform string) (Collector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.collectors[platform]
	return c, ok
}

// Platforms returns the registered platform identifiers in sorted order.
func (r *Registry) Platforms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.collectors))
	for name := range r.collectors {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
