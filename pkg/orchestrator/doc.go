// Package orchestrator coordinates collection runs across platforms.
//
// Each operation creates a task, takes a slot on the concurrency gate,
// calls the platform collector, persists what came back through the
// Storage boundary and maps any typed failure onto a CollectionResult.
// Failures never cross the boundary as panics or bare errors; callers
// always receive a result they can branch on.
//
// Example usage:
//
//	registry := platform.NewRegistry()
//	registry.Register(instagram.New(exec, cfg, log))
//
//	orch := orchestrator.New(registry, store, store, cfg.Engine.MaxConcurrent, log)
//	orch.Manage(exec)
//	defer orch.Close()
//
//	result := orch.CollectPosts(ctx, influencerID, 50, false)
//	if result.RateLimited {
//		log.Warn(fmt.Sprintf("throttled, retry in %ds", result.RetryAfterSeconds))
//	}
package orchestrator
